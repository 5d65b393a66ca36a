package users

import "time"

// User is a registered actor. Authentication happens at the edge; this
// registry backs approver role checks and actor attribution.
type User struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
