// Package auth signs users in and out, either against the hosted auth API
// or against a local SQLite user table.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned when an email/phone and password
	// pair does not match a user.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrUserExists is returned by SignUp for a taken email or phone.
	ErrUserExists = errors.New("user already registered")
	// ErrInvalidToken is returned for access tokens that are malformed,
	// expired or signed out.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCode is returned when a one-time code does not verify.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrUnsupported is returned for sign-in methods a provider lacks.
	ErrUnsupported = errors.New("not supported by this auth provider")
)

// User is an authenticated account. Metadata carries the values given at
// sign-up, notably full_name and role.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Meta returns a string metadata value, or "".
func (u User) Meta(key string) string {
	s, _ := u.Metadata[key].(string)
	return s
}

// Session is the result of a successful sign-in. AccessToken is empty when
// the provider requires the user to confirm their email first.
type Session struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// SignUpParams registers a new account.
type SignUpParams struct {
	Email    string
	Phone    string
	Password string
	Metadata map[string]any
}

// Contact identifies a user by email or, when Email is empty, by phone.
type Contact struct {
	Email string
	Phone string
}

func (c Contact) target() (string, error) {
	switch {
	case c.Email != "":
		return c.Email, nil
	case c.Phone != "":
		return c.Phone, nil
	}
	return "", fmt.Errorf("email or phone is required")
}

// Provider is an auth backend.
type Provider interface {
	SignUp(ctx context.Context, p SignUpParams) (*Session, error)
	SignInWithPassword(ctx context.Context, c Contact, password string) (*Session, error)
	// SignInWithOTP sends a one-time code (email or SMS) to c.
	SignInWithOTP(ctx context.Context, c Contact) error
	VerifyOTP(ctx context.Context, c Contact, code string) (*Session, error)
	// OAuthURL returns the URL that starts a third-party sign-in flow.
	OAuthURL(provider, redirectTo string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*User, error)
}

// DemoUser is a seeded account for trying each role.
type DemoUser struct {
	Email    string
	Password string
	Phone    string
	FullName string
	Role     string
}

// DemoUsers are the accounts created by `sr auth seed-demo`.
var DemoUsers = []DemoUser{
	{Email: "demo@tenant.com", Password: "demo123", Phone: "+2348012345678", FullName: "Demo Tenant", Role: "tenant"},
	{Email: "demo@agent.com", Password: "demo123", Phone: "+2348022345678", FullName: "Demo Agent", Role: "agent"},
	{Email: "demo@landlord.com", Password: "demo123", Phone: "+2348032345678", FullName: "Demo Landlord", Role: "landlord"},
	{Email: "admin@smartrent.com", Password: "admin123", Phone: "+2348042345678", FullName: "Admin User", Role: "admin"},
}

// SeedResult reports what happened to one demo user.
type SeedResult struct {
	Email   string
	Created bool
	Err     error
}

// SeedDemoUsers signs up every demo user. Users that already exist are
// reported with Created false and no error.
func SeedDemoUsers(ctx context.Context, p Provider) []SeedResult {
	results := make([]SeedResult, 0, len(DemoUsers))
	for _, d := range DemoUsers {
		_, err := p.SignUp(ctx, SignUpParams{
			Email:    d.Email,
			Phone:    d.Phone,
			Password: d.Password,
			Metadata: map[string]any{"full_name": d.FullName, "role": d.Role},
		})
		r := SeedResult{Email: d.Email, Created: err == nil}
		if err != nil && !errors.Is(err, ErrUserExists) {
			r.Err = err
		}
		results = append(results, r)
	}
	return results
}
