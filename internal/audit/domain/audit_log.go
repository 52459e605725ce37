package domain

import "time"

// AuditLog represents one recorded activity event.
type AuditLog struct {
	ID        string
	TeamID    string
	UserID    string
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
