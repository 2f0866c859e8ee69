// Package notification stores in-app notifications and delivers new ones
// as they arrive.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/notify"
)

const table = "notifications"

// DefaultLimit is how many notifications List returns by default.
const DefaultLimit = 20

// Notification types.
const (
	TypeSystem   = "system"
	TypeMessage  = "message"
	TypeBooking  = "booking"
	TypePayment  = "payment"
	TypeProperty = "property"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	Type              string    `json:"type"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType string    `json:"related_entity_type,omitempty"`
	RelatedEntityID   string    `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Service reads, creates and watches notifications.
type Service struct {
	b      backend.Backend
	feed   backend.Feed
	alerts notify.Alerter
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a notification service. alerts receives a push alert
// for every notification delivered through Subscribe.
func NewService(b backend.Backend, feed backend.Feed, alerts notify.Alerter, log *slog.Logger) *Service {
	if alerts == nil {
		alerts = notify.NoAlerts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{b: b, feed: feed, alerts: alerts, log: log, now: time.Now}
}

// List returns the user's newest notifications. A non-positive limit means
// DefaultLimit. Failures are logged and yield an empty list.
func (s *Service) List(ctx context.Context, userID string, limit int) []Notification {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.b.Select(ctx, backend.From(table).
		Eq("user_id", userID).
		Order("created_at", false).
		Limit(limit))
	if err != nil {
		s.log.Error("fetching notifications", "user_id", userID, "error", err)
		return []Notification{}
	}
	var list []Notification
	if err := backend.Decode(rows, &list); err != nil {
		s.log.Error("decoding notifications", "error", err)
		return []Notification{}
	}
	return list
}

// MarkAsRead marks one notification read.
func (s *Service) MarkAsRead(ctx context.Context, id string) error {
	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", id), backend.Row{"is_read": true}); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks every unread notification of the user read.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) error {
	q := backend.From(table).Eq("user_id", userID).Eq("is_read", false)
	if _, err := s.b.Update(ctx, q, backend.Row{"is_read": true}); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns how many unread notifications the user has, or 0
// when the count fails.
func (s *Service) UnreadCount(ctx context.Context, userID string) int {
	n, err := s.b.Count(ctx, backend.From(table).Eq("user_id", userID).Eq("is_read", false))
	if err != nil {
		s.log.Error("counting unread notifications", "user_id", userID, "error", err)
		return 0
	}
	return n
}

// Create stores n as unread, stamped now, and returns the stored record.
func (s *Service) Create(ctx context.Context, n Notification) (*Notification, error) {
	if n.Type == "" {
		n.Type = TypeSystem
	}
	row, err := s.b.Insert(ctx, table, backend.Row{
		"user_id":             n.UserID,
		"title":               n.Title,
		"message":             n.Message,
		"type":                n.Type,
		"is_read":             false,
		"related_entity_type": n.RelatedEntityType,
		"related_entity_id":   n.RelatedEntityID,
		"created_at":          s.now().UTC(),
	})
	if err != nil {
		s.log.Error("creating notification", "user_id", n.UserID, "error", err)
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	var stored Notification
	if err := backend.DecodeRow(row, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Subscribe calls fn for every notification created for the user and
// raises a push alert for it. fn must not block.
func (s *Service) Subscribe(ctx context.Context, userID string, fn func(Notification)) (backend.Subscription, error) {
	w := backend.Watch{Table: table, Column: "user_id", Value: userID}
	sub, err := s.feed.Subscribe(ctx, w, func(row backend.Row) {
		var n Notification
		if err := backend.DecodeRow(row, &n); err != nil {
			s.log.Warn("decoding notification event", "error", err)
			return
		}
		fn(n)
		s.alerts.Alert(notify.Alert{Title: n.Title, Body: n.Message})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to notifications: %w", err)
	}
	return sub, nil
}

// BookingConfirmed tells a tenant their inspection was confirmed.
func (s *Service) BookingConfirmed(ctx context.Context, bookingID, userID string) (*Notification, error) {
	return s.Create(ctx, Notification{
		UserID:            userID,
		Title:             "Booking Confirmed",
		Message:           "Your property inspection has been confirmed",
		Type:              TypeBooking,
		RelatedEntityType: "booking",
		RelatedEntityID:   bookingID,
	})
}

// NewMessage tells a user someone sent them a message.
func (s *Service) NewMessage(ctx context.Context, userID, senderName string) (*Notification, error) {
	return s.Create(ctx, Notification{
		UserID:  userID,
		Title:   "New Message",
		Message: "You have a new message from " + senderName,
		Type:    TypeMessage,
	})
}

// PaymentReceived tells a landlord a payment arrived.
func (s *Service) PaymentReceived(ctx context.Context, userID string, amount float64) (*Notification, error) {
	return s.Create(ctx, Notification{
		UserID:  userID,
		Title:   "Payment Received",
		Message: fmt.Sprintf("Payment of %s has been received", format.Naira(amount)),
		Type:    TypePayment,
	})
}

// PropertyVerification tells an owner whether their listing was approved.
func (s *Service) PropertyVerification(ctx context.Context, propertyID, userID string, approved bool) (*Notification, error) {
	n := Notification{
		UserID:            userID,
		Title:             "Property Verified",
		Message:           "Your property listing has been verified and is now live",
		Type:              TypeProperty,
		RelatedEntityType: "property",
		RelatedEntityID:   propertyID,
	}
	if !approved {
		n.Title = "Property Rejected"
		n.Message = "Your property listing needs additional verification"
	}
	return s.Create(ctx, n)
}
