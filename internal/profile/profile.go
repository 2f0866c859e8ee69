// Package profile reads and maintains user profiles, the public face of an
// auth account.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/validate"
)

const table = "profiles"

// DefaultRole is assumed for users without a profile.
const DefaultRole = "tenant"

// Profile is a user's display record.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service reads and writes profiles.
type Service struct {
	b   backend.Backend
	log *slog.Logger
	now func() time.Time
}

// NewService creates a profile service.
func NewService(b backend.Backend, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{b: b, log: log, now: time.Now}
}

// Get returns the profile with id. A missing profile is backend.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	row, err := backend.One(ctx, s.b, backend.From(table).Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}
	var p Profile
	if err := backend.DecodeRow(row, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure returns u's profile, creating it on first sign-in. The name comes
// from sign-up metadata or the local part of the email; the role from
// metadata or DefaultRole.
func (s *Service) Ensure(ctx context.Context, u auth.User) (*Profile, error) {
	p, err := s.Get(ctx, u.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return nil, err
	}

	name := u.Meta("full_name")
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	role := u.Meta("role")
	if !validate.Role(role) {
		role = DefaultRole
	}

	row, err := s.b.Insert(ctx, table, backend.Row{
		"id":        u.ID,
		"full_name": name,
		"email":     u.Email,
		"phone":     u.Phone,
		"role":      role,
	})
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	s.log.Info("profile created", "user_id", u.ID, "role", role)

	var created Profile
	if err := backend.DecodeRow(row, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Changes is a partial profile update. Nil fields are left alone; the role
// cannot be changed after creation.
type Changes struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,ngphone"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// Update applies c to the profile with id and returns the result.
func (s *Service) Update(ctx context.Context, id string, c Changes) (*Profile, error) {
	if err := validate.Struct(c); err != nil {
		return nil, err
	}

	values := backend.Row{"updated_at": s.now().UTC()}
	if c.FullName != nil {
		values["full_name"] = *c.FullName
	}
	if c.Phone != nil {
		values["phone"] = *c.Phone
	}
	if c.AvatarURL != nil {
		values["avatar_url"] = *c.AvatarURL
	}

	n, err := s.b.Update(ctx, backend.From(table).Eq("id", id), values)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("updating profile %s: %w", id, backend.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// List returns every profile created at or after since; a zero since
// lists everyone.
func (s *Service) List(ctx context.Context, since time.Time) ([]Profile, error) {
	return All(ctx, s.b, since)
}

// Role returns the user's role, or DefaultRole when the profile is missing
// or unreadable.
func (s *Service) Role(ctx context.Context, id string) string {
	return Role(ctx, s.b, id)
}

// Role looks up a user's role directly against b.
func Role(ctx context.Context, b backend.Backend, id string) string {
	row, err := backend.One(ctx, b, backend.From(table).Select("role").Eq("id", id))
	if err != nil {
		return DefaultRole
	}
	if r := row.String("role"); r != "" {
		return r
	}
	return DefaultRole
}

// ByIDs loads the profiles with the given ids, keyed by id. Ids with no
// profile are absent from the map.
func ByIDs(ctx context.Context, b backend.Backend, ids []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := b.Select(ctx, backend.From(table).In("id", ids))
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	var list []Profile
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// All returns every profile, optionally only those created at or after
// since.
func All(ctx context.Context, b backend.Backend, since time.Time) ([]Profile, error) {
	q := backend.From(table)
	if !since.IsZero() {
		q.Gte("created_at", since.UTC())
	}
	rows, err := b.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	var list []Profile
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	return list, nil
}
