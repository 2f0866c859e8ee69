// Package web serves the smartrent JSON API: dashboards, listings, search,
// bookings, messages, notifications and the payment gateway callback.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/app"
	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/logging"
)

// Server is the HTTP API server.
type Server struct {
	app    *app.App
	router *mux.Router
	log    *slog.Logger
}

type ctxKey struct{}

// NewServer creates a server over a.
func NewServer(a *app.App, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{app: a, router: mux.NewRouter(), log: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(logging.RequestLogger)
	r.Use(s.recoverer)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Open endpoints
	r.HandleFunc("/api/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/otp", s.handleSendOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/oauth/{provider}", s.handleOAuth).Methods(http.MethodGet)
	r.HandleFunc("/api/properties", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/properties/featured", s.handleFeatured).Methods(http.MethodGet)
	r.HandleFunc("/api/properties/{id}", s.handleProperty).Methods(http.MethodGet)
	r.HandleFunc("/api/search/suggestions", s.handleSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/api/search/popular", s.handlePopular).Methods(http.MethodGet)
	// The gateway calls back without a user session.
	r.HandleFunc("/api/payments/{id}/callback", s.handlePaymentCallback).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireUser)
	// Without its own handler a method mismatch here surfaces as 404.
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/me", s.handleUpdateMe).Methods(http.MethodPatch)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/{section}", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/admin/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/admin/{section}", s.handleAdmin).Methods(http.MethodGet)
	api.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/analytics/properties/{id}", s.handlePropertyAnalytics).Methods(http.MethodGet)

	api.HandleFunc("/properties", s.handleCreateProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}", s.handleDeleteProperty).Methods(http.MethodDelete)
	api.HandleFunc("/properties/{id}/verify", s.handleVerifyProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/availability", s.handleAvailability).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/favorite", s.handleAddFavorite).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/favorite", s.handleRemoveFavorite).Methods(http.MethodDelete)
	api.HandleFunc("/favorites", s.handleFavorites).Methods(http.MethodGet)

	api.HandleFunc("/bookings", s.handleBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", s.handleUpdateBooking).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id}", s.handleDeleteBooking).Methods(http.MethodDelete)

	api.HandleFunc("/conversations", s.handleConversations).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.handleMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.handleSendMessage).Methods(http.MethodPost)

	api.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read", s.handleMarkAllNotificationsRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}/read", s.handleMarkNotificationRead).Methods(http.MethodPost)

	api.HandleFunc("/payments", s.handlePayments).Methods(http.MethodGet)
	api.HandleFunc("/payments", s.handleInitiatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id}/receipt", s.handleReceipt).Methods(http.MethodGet)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apiError(w, "method not allowed", http.StatusMethodNotAllowed)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic", "path", r.URL.Path, "panic", v, "request_id", logging.RequestID(r.Context()))
				apiError(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireUser resolves the bearer token to a user, rejecting the request
// when it is missing or invalid.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		u, err := s.app.CurrentUser(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// currentUser returns the user requireUser attached to the request.
func currentUser(r *http.Request) *auth.User {
	u, _ := r.Context().Value(ctxKey{}).(*auth.User)
	return u
}

func userID(r *http.Request) string {
	if u := currentUser(r); u != nil {
		return u.ID
	}
	return ""
}
