package domain

import (
	"errors"
	"time"
)

// Team groups users under a single admin. InviteCode is empty until first
// requested; once set it stays stable until explicitly regenerated.
type Team struct {
	ID         string
	AdminID    string
	InviteCode string
	CreatedAt  time.Time
}

// Validate validates the team for persistence.
func (t *Team) Validate() error {
	if t.AdminID == "" {
		return errors.New("admin_id is required")
	}
	return nil
}
