package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/validate"
)

const table = "messages"

// Draft is an outgoing message.
type Draft struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	PropertyID string `json:"property_id,omitempty"`
	Content    string `json:"content" validate:"required,max=5000"`
}

// Service sends, lists and watches messages.
type Service struct {
	b      backend.Backend
	feed   backend.Feed
	access *access.Checker
	notes  *notification.Service
	sink   notify.Sink
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a chat service.
func NewService(b backend.Backend, feed backend.Feed, notes *notification.Service, sink notify.Sink, log *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		b:      b,
		feed:   feed,
		access: access.NewChecker(b),
		notes:  notes,
		sink:   sink,
		log:    log,
		now:    time.Now,
	}
}

// SendMessage stores an unread message from senderID and notifies the
// receiver. Failures raise an error toast and are returned.
func (s *Service) SendMessage(ctx context.Context, senderID string, d Draft) (*Message, error) {
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, senderID, "messages", "create"); err != nil {
		return nil, err
	}

	var prop any
	if d.PropertyID != "" {
		prop = d.PropertyID
	}
	row, err := s.b.Insert(ctx, table, backend.Row{
		"sender_id":   senderID,
		"receiver_id": d.ReceiverID,
		"property_id": prop,
		"content":     d.Content,
		"is_read":     false,
		"created_at":  s.now().UTC(),
	})
	if err != nil {
		s.sink.Notify("Error sending message", notify.Error)
		return nil, fmt.Errorf("sending message: %w", err)
	}

	var m Message
	if err := backend.DecodeRow(row, &m); err != nil {
		return nil, err
	}

	if s.notes != nil {
		name := "a user"
		if p, err := profile.ByIDs(ctx, s.b, []string{senderID}); err == nil {
			if sp, ok := p[senderID]; ok && sp.FullName != "" {
				name = sp.FullName
			}
		}
		if _, err := s.notes.NewMessage(ctx, d.ReceiverID, name); err != nil {
			s.log.Warn("notifying recipient", "receiver", d.ReceiverID, "error", err)
		}
	}
	return &m, nil
}

// GetConversations returns one entry per counterparty of the user, most
// recently active first. Failures are logged and yield an empty list.
func (s *Service) GetConversations(ctx context.Context, userID string) []Conversation {
	msgs, err := s.load(ctx, backend.From(table).
		Or(
			backend.And(backend.Eq("sender_id", userID)),
			backend.And(backend.Eq("receiver_id", userID)),
		).
		Order("created_at", false))
	if err != nil {
		s.log.Error("fetching conversations", "user", userID, "error", err)
		return []Conversation{}
	}
	return Conversations(userID, msgs)
}

// GetMessages returns the messages between userID and otherID, oldest
// first, optionally limited to one listing. Messages addressed to userID
// are marked read, and the returned slice reflects that. Failures are
// logged and yield an empty list.
func (s *Service) GetMessages(ctx context.Context, userID, otherID, propertyID string) []Message {
	q := backend.From(table).
		Or(
			backend.And(backend.Eq("sender_id", userID), backend.Eq("receiver_id", otherID)),
			backend.And(backend.Eq("sender_id", otherID), backend.Eq("receiver_id", userID)),
		)
	if propertyID != "" {
		q.Eq("property_id", propertyID)
	}
	q.Order("created_at", true)

	msgs, err := s.load(ctx, q)
	if err != nil {
		s.log.Error("fetching messages", "user", userID, "other", otherID, "error", err)
		return []Message{}
	}

	var unread []string
	for _, m := range msgs {
		if m.ReceiverID == userID && !m.IsRead {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		if err := s.MarkAsRead(ctx, unread); err == nil {
			for i := range msgs {
				if msgs[i].ReceiverID == userID {
					msgs[i].IsRead = true
				}
			}
		}
	}
	return msgs
}

// MarkAsRead flags the given messages read. An empty list does nothing.
func (s *Service) MarkAsRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.b.Update(ctx, backend.From(table).In("id", ids), backend.Row{"is_read": true}); err != nil {
		s.log.Error("marking messages read", "count", len(ids), "error", err)
		return fmt.Errorf("marking messages read: %w", err)
	}
	return nil
}

// SubscribeToMessages calls fn for every message delivered to the user.
// fn must not block.
func (s *Service) SubscribeToMessages(ctx context.Context, userID string, fn func(Message)) (backend.Subscription, error) {
	w := backend.Watch{Table: table, Column: "receiver_id", Value: userID}
	sub, err := s.feed.Subscribe(ctx, w, func(row backend.Row) {
		var m Message
		if err := backend.DecodeRow(row, &m); err != nil {
			s.log.Warn("decoding message event", "error", err)
			return
		}
		fn(m)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to messages: %w", err)
	}
	return sub, nil
}

// GetUnreadCount returns how many unread messages the user has. Errors
// count as zero.
func (s *Service) GetUnreadCount(ctx context.Context, userID string) int {
	n, err := s.b.Count(ctx, backend.From(table).Eq("receiver_id", userID).Eq("is_read", false))
	if err != nil {
		s.log.Error("counting unread messages", "user", userID, "error", err)
		return 0
	}
	return n
}

// load selects messages and attaches sender, receiver and listing.
func (s *Service) load(ctx context.Context, q *backend.Query) ([]Message, error) {
	rows, err := s.b.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	msgs := []Message{}
	if err := backend.Decode(rows, &msgs); err != nil {
		return nil, err
	}

	people, err := profile.ByIDs(ctx, s.b, backend.IDs(rows, "sender_id", "receiver_id"))
	if err != nil {
		return nil, err
	}
	props, err := property.ByIDs(ctx, s.b, backend.IDs(rows, "property_id"))
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		m := &msgs[i]
		if p, ok := people[m.SenderID]; ok {
			m.Sender = &p
		}
		if p, ok := people[m.ReceiverID]; ok {
			m.Receiver = &p
		}
		if p, ok := props[m.PropertyID]; ok {
			m.Property = &p
		}
	}
	return msgs, nil
}
