package web

import (
	"net/http"
	"time"

	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/profile"
)

// handleMe returns the caller's profile, creating it on first use.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.Profiles.Ensure(r.Context(), *currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var c profile.Changes
	if !decode(w, r, &c) {
		return
	}
	p, err := s.app.Profiles.Update(r.Context(), userID(r), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// handleListUsers lists every profile, optionally those created since
// ?since= (RFC 3339). Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.app.Access.IsAdmin(r.Context(), userID(r)) {
		apiError(w, "admin access required", http.StatusForbidden)
		return
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apiError(w, "invalid since: want RFC 3339", http.StatusBadRequest)
			return
		}
		since = t
	}

	users, err := s.app.Profiles.List(r.Context(), since)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"users": users, "by_role": analytics.GroupByRole(users)}, http.StatusOK)
}
