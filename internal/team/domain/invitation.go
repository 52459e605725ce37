package domain

import "time"

// Invitation records that a team admin invited an email address. The email
// need not belong to an existing user. A terminal status (accepted, canceled)
// is never reused; duplicate pending invitations to the same email are allowed.
type Invitation struct {
	ID         string
	TeamID     string
	Email      string
	InviteCode string // team's code at the time the invite was sent
	InvitedBy  string
	Status     InvitationStatus
	CreatedAt  time.Time
	AcceptedAt *time.Time
	AcceptedBy string
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationCanceled InvitationStatus = "canceled"
)

// Terminal reports whether the invitation can no longer transition.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationCanceled
}
