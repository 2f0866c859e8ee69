// Package chat sends and reads direct messages and derives conversations
// from them. Conversations are never stored; they are grouped on read.
package chat

import (
	"slices"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

// Message is one direct message, optionally about a listing.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	PropertyID string    `json:"property_id,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`

	Sender   *profile.Profile   `json:"sender,omitempty"`
	Receiver *profile.Profile   `json:"receiver,omitempty"`
	Property *property.Property `json:"property,omitempty"`
}

// Conversation summarizes the messages between the viewer and one
// counterparty.
type Conversation struct {
	ID          string             `json:"id"`
	OtherUserID string             `json:"other_user_id"`
	OtherUser   *profile.Profile   `json:"other_user,omitempty"`
	LastMessage Message            `json:"last_message"`
	UnreadCount int                `json:"unread_count"`
	Property    *property.Property `json:"property,omitempty"`
}

// Key returns the conversation key for two participants: their ids sorted
// and joined with "_".
func Key(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, "_")
}

// Conversations groups msgs, which must be ordered newest first, into one
// entry per counterparty of userID in first-seen order. The first message
// seen for a counterparty becomes its LastMessage.
func Conversations(userID string, msgs []Message) []Conversation {
	index := make(map[string]int)
	out := []Conversation{}
	for _, m := range msgs {
		other, otherProfile := m.SenderID, m.Sender
		if m.SenderID == userID {
			other, otherProfile = m.ReceiverID, m.Receiver
		}
		key := Key(userID, other)

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Conversation{
				ID:          key,
				OtherUserID: other,
				OtherUser:   otherProfile,
				LastMessage: m,
				Property:    m.Property,
			})
		}
		if !m.IsRead && m.ReceiverID == userID {
			out[i].UnreadCount++
		}
	}
	return out
}
