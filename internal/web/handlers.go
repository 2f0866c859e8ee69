package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/dashboard"
)

// period reads ?period=, falling back to the default for unknown values.
func period(r *http.Request) string {
	p := r.URL.Query().Get("period")
	if !analytics.ValidPeriod(p) {
		return analytics.DefaultPeriod
	}
	return p
}

type dashboardResponse struct {
	*dashboard.View
	Sections []string `json:"sections"`
}

// handleDashboard handles GET /api/dashboard and /api/dashboard/{section}.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.app.Dashboard()
	d.Period = period(r)

	section := mux.Vars(r)["section"]
	if section == "" {
		section = dashboard.Overview
	}
	v, err := d.Navigate(r.Context(), userID(r), section)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, dashboardResponse{View: v, Sections: dashboard.Sections(v.Role)}, http.StatusOK)
}

// handleAdmin handles GET /api/admin/{section}; only admins get through.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	d := s.app.Dashboard()
	d.Period = period(r)

	v, err := d.Admin(r.Context(), userID(r), mux.Vars(r)["section"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, dashboardResponse{View: v, Sections: dashboard.Sections(access.Admin)}, http.StatusOK)
}

// handleAnalytics returns the caller's analytics for ?period=; admins get
// the platform-wide numbers.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	p := period(r)

	role := s.app.Profiles.Role(ctx, uid)
	if role == access.Admin {
		apiJSON(w, s.app.Analytics.AdminAnalytics(ctx, p), http.StatusOK)
		return
	}
	apiJSON(w, s.app.Analytics.UserAnalytics(ctx, uid, role, p), http.StatusOK)
}

// handlePropertyAnalytics returns view and inquiry series for one listing.
// Only its agent, its landlord or an admin may see them.
func (s *Server) handlePropertyAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	uid := userID(r)
	if !s.app.Access.IsPropertyOwner(ctx, id, uid) && !s.app.Access.IsAdmin(ctx, uid) {
		s.writeError(w, r, access.ErrForbidden)
		return
	}
	apiJSON(w, s.app.Analytics.PropertyAnalytics(ctx, id, period(r)), http.StatusOK)
}
