package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/chat"
)

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, s.app.Chat.GetConversations(r.Context(), userID(r)), http.StatusOK)
}

// handleMessages handles GET /api/messages?with=<user>[&property=<id>].
// Reading a thread marks the caller's incoming messages read.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	other := q.Get("with")
	if other == "" {
		apiError(w, "with is required", http.StatusBadRequest)
		return
	}
	apiJSON(w, s.app.Chat.GetMessages(r.Context(), userID(r), other, q.Get("property")), http.StatusOK)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var d chat.Draft
	if !decode(w, r, &d) {
		return
	}
	m, err := s.app.Chat.SendMessage(r.Context(), userID(r), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, m, http.StatusCreated)
}

type notificationsResponse struct {
	Notifications any `json:"notifications"`
	Unread        int `json:"unread"`
}

// handleNotifications handles GET /api/notifications[?limit=n].
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	ctx := r.Context()
	uid := userID(r)
	apiJSON(w, notificationsResponse{
		Notifications: s.app.Notifications.List(ctx, uid, limit),
		Unread:        s.app.Notifications.UnreadCount(ctx, uid),
	}, http.StatusOK)
}

// handleMarkNotificationRead marks one of the caller's notifications read.
// Other users' notifications read as not found.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	q := backend.From("notifications").Select("id").Eq("id", id).Eq("user_id", userID(r))
	if _, err := backend.One(ctx, s.app.Backend, q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.app.Notifications.MarkAsRead(ctx, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "read": true}, http.StatusOK)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Notifications.MarkAllAsRead(r.Context(), userID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]bool{"read": true}, http.StatusOK)
}
