package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/client"
)

// Hosted talks to the hosted auth API under /auth/v1.
type Hosted struct {
	c *client.Client
}

// NewHosted returns a provider using c for transport.
func NewHosted(c *client.Client) *Hosted {
	return &Hosted{c: c}
}

// tokenResponse is the token grant payload. Sign-up without automatic
// confirmation returns the bare user object instead.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

func (r tokenResponse) session(raw json.RawMessage) (*Session, error) {
	s := &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	if r.User != nil {
		s.User = *r.User
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.User); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return s, nil
}

func (h *Hosted) grant(ctx context.Context, r client.Request) (*Session, error) {
	var raw json.RawMessage
	if _, err := h.c.Do(ctx, r, &raw); err != nil {
		return nil, err
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return tr.session(raw)
}

// SignUp registers a user; metadata is stored as user_metadata.
func (h *Hosted) SignUp(ctx context.Context, p SignUpParams) (*Session, error) {
	body := map[string]any{"password": p.Password}
	if p.Email != "" {
		body["email"] = p.Email
	}
	if p.Phone != "" {
		body["phone"] = p.Phone
	}
	if len(p.Metadata) > 0 {
		body["data"] = p.Metadata
	}
	s, err := h.grant(ctx, client.Request{Method: http.MethodPost, Path: "/auth/v1/signup", Body: body})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", mapError(err))
	}
	return s, nil
}

// SignInWithPassword exchanges an email or phone and password for a session.
func (h *Hosted) SignInWithPassword(ctx context.Context, c Contact, password string) (*Session, error) {
	body := map[string]any{"password": password}
	if c.Email != "" {
		body["email"] = c.Email
	} else {
		body["phone"] = c.Phone
	}
	s, err := h.grant(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/v1/token",
		Query:  url.Values{"grant_type": {"password"}},
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", mapError(err))
	}
	return s, nil
}

// SignInWithOTP asks the service to send a magic link/code by email, or a
// code by SMS.
func (h *Hosted) SignInWithOTP(ctx context.Context, c Contact) error {
	if _, err := c.target(); err != nil {
		return err
	}
	body := map[string]any{"create_user": true}
	if c.Email != "" {
		body["email"] = c.Email
	} else {
		body["phone"] = c.Phone
	}
	if err := h.c.Post(ctx, "/auth/v1/otp", body, nil); err != nil {
		return fmt.Errorf("sending code: %w", mapError(err))
	}
	return nil
}

// VerifyOTP exchanges a one-time code for a session.
func (h *Hosted) VerifyOTP(ctx context.Context, c Contact, code string) (*Session, error) {
	body := map[string]any{"token": code}
	if c.Email != "" {
		body["type"] = "email"
		body["email"] = c.Email
	} else {
		body["type"] = "sms"
		body["phone"] = c.Phone
	}
	s, err := h.grant(ctx, client.Request{Method: http.MethodPost, Path: "/auth/v1/verify", Body: body})
	var ce *client.Error
	if errors.As(err, &ce) && ce.Status < http.StatusInternalServerError {
		return nil, fmt.Errorf("verifying code: %w: %s", ErrInvalidCode, ce.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("verifying code: %w", err)
	}
	return s, nil
}

// OAuthURL builds the authorize URL for a provider such as "google".
func (h *Hosted) OAuthURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is required")
	}
	q := url.Values{"provider": {provider}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return strings.TrimRight(h.c.BaseURL(), "/") + "/auth/v1/authorize?" + q.Encode(), nil
}

// SignOut revokes the session behind accessToken.
func (h *Hosted) SignOut(ctx context.Context, accessToken string) error {
	_, err := h.c.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/v1/logout", Token: accessToken}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", mapError(err))
	}
	return nil
}

// User returns the account behind accessToken.
func (h *Hosted) User(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	var u User
	_, err := h.c.Do(ctx, client.Request{Method: http.MethodGet, Path: "/auth/v1/user", Token: accessToken}, &u)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", mapError(err))
	}
	return &u, nil
}

// mapError turns well-known auth API failures into package errors while
// keeping the service's message.
func mapError(err error) error {
	var ce *client.Error
	if !errors.As(err, &ce) {
		return err
	}
	msg := strings.ToLower(ce.Message)
	switch {
	case strings.Contains(msg, "invalid login credentials"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, ce.Message)
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s", ErrUserExists, ce.Message)
	case ce.Status == http.StatusUnauthorized || ce.Status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidToken, ce.Message)
	}
	return err
}
