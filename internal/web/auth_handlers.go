package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/validate"
)

type sessionResponse struct {
	*auth.Session
	Profile *profile.Profile `json:"profile,omitempty"`
	// Message is set when the account must be confirmed before sign-in.
	Message string `json:"message,omitempty"`
}

type contactRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c contactRequest) contact() auth.Contact {
	return auth.Contact{
		Email: strings.TrimSpace(strings.ToLower(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// signedIn ensures the user's profile exists and writes the session.
func (s *Server) signedIn(w http.ResponseWriter, r *http.Request, sess *auth.Session, code int) {
	resp := sessionResponse{Session: sess}
	if sess.AccessToken == "" {
		resp.Message = "Check your email to confirm your account."
		apiJSON(w, resp, code)
		return
	}
	p, err := s.app.Profiles.Ensure(r.Context(), sess.User)
	if err != nil {
		s.log.Error("ensuring profile", "user", sess.User.ID, "error", err)
	}
	resp.Profile = p
	apiJSON(w, resp, code)
}

// handleSignUp handles POST /api/auth/signup.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form validate.SignUp
	if !decode(w, r, &form) {
		return
	}
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))
	if err := validate.Struct(form); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.app.Auth.SignUp(r.Context(), auth.SignUpParams{
		Email:    form.Email,
		Phone:    form.Phone,
		Password: form.Password,
		Metadata: map[string]any{"full_name": form.FullName, "role": form.Role},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.signedIn(w, r, sess, http.StatusCreated)
}

// handleLogin handles POST /api/auth/login with an email or phone and a
// password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		contactRequest
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		apiError(w, "password is required", http.StatusBadRequest)
		return
	}

	sess, err := s.app.Auth.SignInWithPassword(r.Context(), req.contact(), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.signedIn(w, r, sess, http.StatusOK)
}

// handleSendOTP handles POST /api/auth/otp. The response is the same
// whether or not the contact belongs to an account.
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decode(w, r, &req) {
		return
	}
	c := req.contact()
	if c.Email == "" && c.Phone == "" {
		apiError(w, "email or phone is required", http.StatusBadRequest)
		return
	}
	if err := s.app.Auth.SignInWithOTP(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"message": "If that account exists, a sign-in code has been sent."}, http.StatusOK)
}

// handleVerifyOTP handles POST /api/auth/verify.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		contactRequest
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	sess, err := s.app.Auth.VerifyOTP(r.Context(), req.contact(), strings.TrimSpace(req.Code))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.signedIn(w, r, sess, http.StatusOK)
}

// handleOAuth handles GET /api/auth/oauth/{provider} by redirecting to the
// provider's sign-in page.
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Auth.OAuthURL(mux.Vars(r)["provider"], r.URL.Query().Get("redirect_to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// handleLogout revokes the caller's token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Auth.SignOut(r.Context(), bearerToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]bool{"signed_out": true}, http.StatusOK)
}
