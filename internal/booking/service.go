package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/validate"
)

const table = "bookings"

// ErrPastDate is returned when an inspection is scheduled in the past.
var ErrPastDate = errors.New("inspection date cannot be in the past")

// Service provides booking business logic.
type Service struct {
	b      backend.Backend
	access *access.Checker
	notes  *notification.Service
	sink   notify.Sink
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a booking service.
func NewService(b backend.Backend, notes *notification.Service, sink notify.Sink, log *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{b: b, access: access.NewChecker(b), notes: notes, sink: sink, log: log, now: time.Now}
}

// Create books an inspection of a listing for the tenant. The listing's
// agent is copied onto the booking; it starts pending.
func (s *Service) Create(ctx context.Context, tenantID string, req Request) (*Booking, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !validate.FutureDate(req.ScheduledFor, s.now()) {
		return nil, ErrPastDate
	}
	if err := s.access.Require(ctx, tenantID, "bookings", "create"); err != nil {
		return nil, err
	}

	prop, err := backend.One(ctx, s.b, backend.From("properties").Select("id", "agent_id").Eq("id", req.PropertyID))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", req.PropertyID, err)
	}

	var agent any
	if id := prop.String("agent_id"); id != "" {
		agent = id
	}
	row, err := s.b.Insert(ctx, table, backend.Row{
		"tenant_id":     tenantID,
		"property_id":   req.PropertyID,
		"agent_id":      agent,
		"status":        string(Pending),
		"scheduled_for": req.ScheduledFor.UTC(),
		"notes":         req.Notes,
	})
	if err != nil {
		s.sink.Notify("Error booking inspection", notify.Error)
		return nil, fmt.Errorf("inserting booking: %w", err)
	}

	var bk Booking
	if err := backend.DecodeRow(row, &bk); err != nil {
		return nil, err
	}
	s.log.Info("booking created", "id", bk.ID, "property_id", bk.PropertyID, "tenant", tenantID)
	s.sink.Notify("Inspection booked successfully!", notify.Success)
	return &bk, nil
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	row, err := backend.One(ctx, s.b, backend.From(table).Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}
	var bk Booking
	if err := backend.DecodeRow(row, &bk); err != nil {
		return nil, err
	}
	return &bk, nil
}

// ForTenant returns the tenant's bookings, newest first, with the listing
// attached.
func (s *Service) ForTenant(ctx context.Context, tenantID string) ([]Booking, error) {
	list, err := s.list(ctx, backend.From(table).Eq("tenant_id", tenantID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing tenant bookings: %w", err)
	}
	return list, nil
}

// ForAgent returns bookings for the agent's listings, newest first.
func (s *Service) ForAgent(ctx context.Context, agentID string) ([]Booking, error) {
	list, err := s.list(ctx, backend.From(table).Eq("agent_id", agentID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing agent bookings: %w", err)
	}
	return list, nil
}

// UpcomingCount returns how many of the tenant's bookings are pending or
// confirmed. Errors count as zero.
func (s *Service) UpcomingCount(ctx context.Context, tenantID string) int {
	n, err := s.b.Count(ctx, backend.From(table).
		Eq("tenant_id", tenantID).
		In("status", []string{string(Pending), string(Confirmed)}))
	if err != nil {
		s.log.Error("counting upcoming bookings", "tenant", tenantID, "error", err)
		return 0
	}
	return n
}

// UpdateStatus moves a booking to status. Tenants may only touch their own
// bookings and agents only bookings for their listings. Confirming notifies
// the tenant.
func (s *Service) UpdateStatus(ctx context.Context, userID, bookingID string, status Status) (*Booking, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid booking status: %q", status)
	}
	if err := s.access.Require(ctx, userID, "bookings", "update"); err != nil {
		return nil, err
	}
	bk, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch s.access.Role(ctx, userID) {
	case access.Tenant:
		if bk.TenantID != userID {
			return nil, fmt.Errorf("update booking: %w", access.ErrForbidden)
		}
	case access.Agent:
		if bk.AgentID != userID {
			return nil, fmt.Errorf("update booking: %w", access.ErrForbidden)
		}
	}

	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", bookingID), backend.Row{"status": string(status)}); err != nil {
		s.sink.Notify("Error updating booking", notify.Error)
		return nil, fmt.Errorf("updating booking: %w", err)
	}
	bk.Status = status

	if status == Confirmed && s.notes != nil {
		if _, err := s.notes.BookingConfirmed(ctx, bk.ID, bk.TenantID); err != nil {
			s.log.Warn("notifying tenant", "booking_id", bk.ID, "error", err)
		}
	}
	s.sink.Notify("Booking marked "+status.Label(), notify.Success)
	return bk, nil
}

// Delete removes a booking. Only admins may delete.
func (s *Service) Delete(ctx context.Context, userID, bookingID string) error {
	if err := s.access.Require(ctx, userID, "bookings", "delete"); err != nil {
		return err
	}
	n, err := s.b.Delete(ctx, backend.From(table).Eq("id", bookingID))
	if err != nil {
		return fmt.Errorf("deleting booking: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, backend.ErrNotFound)
	}
	return nil
}

func (s *Service) list(ctx context.Context, q *backend.Query) ([]Booking, error) {
	rows, err := s.b.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	list := []Booking{}
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	props, err := property.ByIDs(ctx, s.b, backend.IDs(rows, "property_id"))
	if err != nil {
		return nil, err
	}
	for i := range list {
		if p, ok := props[list[i].PropertyID]; ok {
			list[i].Property = &p
		}
	}
	return list, nil
}
