package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/logging"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/search"
	"github.com/evcraddock/smartrent/internal/validate"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// writeError maps service errors to status codes. Validation failures
// carry their per-field messages.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		apiJSON(w, map[string]any{"error": "validation failed", "fields": verrs}, http.StatusBadRequest)
		return
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, booking.ErrPastDate), errors.Is(err, payment.ErrReferenceMismatch):
		code = http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidCode):
		code = http.StatusUnauthorized
	case errors.Is(err, access.ErrForbidden), errors.Is(err, dashboard.ErrAccessDenied):
		code = http.StatusForbidden
	case errors.Is(err, backend.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, payment.ErrAlreadySettled),
		errors.Is(err, payment.ErrClosed):
		code = http.StatusConflict
	case errors.Is(err, payment.ErrVerificationFailed):
		code = http.StatusPaymentRequired
	case errors.Is(err, auth.ErrUnsupported), errors.Is(err, payment.ErrNoGateway):
		code = http.StatusNotImplemented
	}

	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err, "request_id", logging.RequestID(r.Context()))
		apiError(w, "internal error", code)
		return
	}
	apiError(w, err.Error(), code)
}

// decode reads a JSON body into dst, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// filtersFromQuery reads search filters from URL parameters. Bad numbers
// are ignored, the same as leaving the field blank.
func filtersFromQuery(r *http.Request) property.Filters {
	q := r.URL.Query()
	num := func(key string) float64 {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	f := property.Filters{
		Location:     strings.TrimSpace(q.Get("location")),
		PropertyType: q.Get("type"),
		MinPrice:     num("min_price"),
		MaxPrice:     num("max_price"),
		Bedrooms:     int(num("bedrooms")),
		Bathrooms:    int(num("bathrooms")),
		SortBy:       q.Get("sort"),
	}
	if a := q.Get("amenities"); a != "" {
		f.Amenities = strings.Split(a, ",")
	}
	return f
}

type searchResponse struct {
	Results []property.Card `json:"results"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	HasMore bool            `json:"has_more"`
}

// handleSearch handles GET /api/properties. Pages grow the visible window
// the way "load more" does: page n shows the first n*PerPage results.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	svc := search.NewService(s.app.Properties, nil, nil, s.log)
	visible := svc.Search(r.Context(), filtersFromQuery(r))
	for i := 1; i < page && svc.HasMore(); i++ {
		visible = svc.LoadMore()
	}

	apiJSON(w, searchResponse{
		Results: property.Cards(visible),
		Total:   svc.Total(),
		Page:    page,
		HasMore: svc.HasMore(),
	}, http.StatusOK)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 6
	}
	apiJSON(w, property.Cards(s.app.Properties.Featured(r.Context(), limit)), http.StatusOK)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, search.Suggestions(r.URL.Query().Get("q")), http.StatusOK)
}

func (s *Server) handlePopular(w http.ResponseWriter, _ *http.Request) {
	apiJSON(w, search.PopularSearches(), http.StatusOK)
}

// handleProperty handles GET /api/properties/{id} and records the view.
func (s *Server) handleProperty(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.app.Properties.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	viewer := ""
	if u, err := s.app.CurrentUser(r.Context(), bearerToken(r)); err == nil {
		viewer = u.ID
	}
	if err := s.app.Properties.RecordView(r.Context(), id, viewer); err != nil {
		s.log.Warn("recording view", "property", id, "error", err)
	}

	apiJSON(w, struct {
		*property.Property
		Card property.Card `json:"card"`
	}{p, property.NewCard(*p)}, http.StatusOK)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var in property.NewProperty
	if !decode(w, r, &in) {
		return
	}
	p, err := s.app.Properties.Create(r.Context(), userID(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusCreated)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Properties.Delete(r.Context(), userID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "deleted": true}, http.StatusOK)
}

func (s *Server) handleVerifyProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved bool `json:"approved"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.app.Properties.Verify(r.Context(), userID(r), id, req.Approved); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "verified": req.Approved}, http.StatusOK)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available bool `json:"available"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.app.Properties.SetAvailable(r.Context(), userID(r), id, req.Available); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "available": req.Available}, http.StatusOK)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Properties.Favorites(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, property.Cards(list), http.StatusOK)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Properties.AddFavorite(r.Context(), userID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"property_id": id, "favorite": true}, http.StatusOK)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Properties.RemoveFavorite(r.Context(), userID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"property_id": id, "favorite": false}, http.StatusOK)
}

// handleBookings lists the caller's bookings: their own as a tenant, or
// those for their listings as an agent.
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	var (
		list []booking.Booking
		err  error
	)
	if s.app.Profiles.Role(ctx, uid) == access.Agent {
		list, err = s.app.Bookings.ForAgent(ctx, uid)
	} else {
		list, err = s.app.Bookings.ForTenant(ctx, uid)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, list, http.StatusOK)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if !decode(w, r, &req) {
		return
	}
	b, err := s.app.Bookings.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, b, http.StatusCreated)
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status booking.Status `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !req.Status.IsValid() {
		apiError(w, "invalid booking status", http.StatusBadRequest)
		return
	}
	b, err := s.app.Bookings.UpdateStatus(r.Context(), userID(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, b, http.StatusOK)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Bookings.Delete(r.Context(), userID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "deleted": true}, http.StatusOK)
}
