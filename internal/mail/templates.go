package mail

import (
	"bytes"
	"text/template"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`Hi {{.Username}},

Confirm your email address by submitting this verification token within {{.Window}}:

    {{.Token}}

If you did not sign up, ignore this message.
`))

	inviteTmpl = template.Must(template.New("invite").Parse(
		`You have been invited to join a team on Crewdesk.

Sign up with this invite code to join:

    {{.Code}}
`))
)

// VerificationEmail renders the subject and body of the signup verification email.
func VerificationEmail(username, token, window string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = verificationTmpl.Execute(&buf, map[string]string{
		"Username": username,
		"Token":    token,
		"Window":   window,
	})
	if err != nil {
		return "", "", err
	}
	return "Verify your email", buf.String(), nil
}

// InviteEmail renders the subject and body of a team invitation email.
func InviteEmail(code string) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := inviteTmpl.Execute(&buf, map[string]string{"Code": code}); err != nil {
		return "", "", err
	}
	return "You have been invited to a team", buf.String(), nil
}
