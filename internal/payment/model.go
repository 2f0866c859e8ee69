// Package payment records rent payments and drives them from pending to
// completed or failed through a payment gateway.
package payment

import (
	"slices"
	"time"

	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

// Status is where a payment is in its lifecycle.
type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Failed    Status = "failed"
	Refunded  Status = "refunded"
)

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	return slices.Contains([]Status{Pending, Completed, Failed, Refunded}, s)
}

// DefaultCurrency is used when a request names none.
const DefaultCurrency = "NGN"

// Payment is one rent payment from a tenant.
type Payment struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	LandlordID string     `json:"landlord_id,omitempty"`
	PropertyID string     `json:"property_id,omitempty"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Status     Status     `json:"status"`
	Method     string     `json:"method,omitempty"`
	Reference  string     `json:"reference"`
	ReceiptURL string     `json:"receipt_url,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Property *property.Property `json:"property,omitempty"`
	Tenant   *profile.Profile   `json:"tenant,omitempty"`
	Landlord *profile.Profile   `json:"landlord,omitempty"`
}

// Request is the payment form.
type Request struct {
	PropertyID string     `json:"property_id" validate:"required"`
	Amount     float64    `json:"amount" validate:"gt=0"`
	Currency   string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	// Email is handed to the gateway for its checkout page.
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Stats summarizes a set of payments.
type Stats struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Pending     int     `json:"pending"`
	TotalAmount float64 `json:"totalAmount"`
}

// ComputeStats counts payments by status and sums completed amounts.
func ComputeStats(list []Payment) Stats {
	st := Stats{Total: len(list)}
	for _, p := range list {
		switch p.Status {
		case Completed:
			st.Completed++
			st.TotalAmount += p.Amount
		case Pending:
			st.Pending++
		}
	}
	return st
}
