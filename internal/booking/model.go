// Package booking schedules property inspections between tenants and agents.
package booking

import (
	"slices"
	"time"

	"github.com/evcraddock/smartrent/internal/property"
)

// Status is where a booking is in its lifecycle.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Cancelled Status = "cancelled"
	Completed Status = "completed"
)

// ValidStatuses is the set of allowed booking statuses.
var ValidStatuses = []Status{Pending, Confirmed, Cancelled, Completed}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	return slices.Contains(ValidStatuses, s)
}

// Upcoming reports whether the inspection is still expected to happen.
func (s Status) Upcoming() bool {
	return s == Pending || s == Confirmed
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Pending:
		return "Pending"
	case Confirmed:
		return "Confirmed"
	case Cancelled:
		return "Cancelled"
	case Completed:
		return "Completed"
	default:
		return string(s)
	}
}

// Booking is a requested property inspection.
type Booking struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	PropertyID   string     `json:"property_id"`
	AgentID      string     `json:"agent_id,omitempty"`
	Status       Status     `json:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`

	Property *property.Property `json:"property,omitempty"`
}

// Request is the booking form.
type Request struct {
	PropertyID   string    `json:"property_id" validate:"required"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Notes        string    `json:"notes" validate:"max=1000"`
}
