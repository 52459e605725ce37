package security

import "time"

// NewVerificationToken returns a cryptographically random email verification
// token and its expiry. The token is single-use: the identity service clears it
// from the user row once consumed.
func NewVerificationToken(ttl time.Duration) (token string, expiresAt time.Time, err error) {
	token, err = randomHex(24)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().UTC().Add(ttl), nil
}
