package projects

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is a construction project. Its budget feeds the cost report.
type Project struct {
	ID        int64
	Code      string
	Name      string
	ClientID  *int64
	Budget    decimal.Decimal
	Location  string
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is the paying customer of a project.
type Client struct {
	ID            int64
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	StatusActive    = "ACTIVE"
	StatusOnHold    = "ON_HOLD"
	StatusCompleted = "COMPLETED"
)

// KnownStatus reports whether s is a valid project status.
func KnownStatus(s string) bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}
