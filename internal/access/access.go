// Package access decides which roles may perform which actions.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/profile"
)

// ErrForbidden is returned when a user's role does not allow an action.
var ErrForbidden = errors.New("permission denied")

// Roles.
const (
	Tenant   = "tenant"
	Agent    = "agent"
	Landlord = "landlord"
	Admin    = "admin"
)

// permissions maps role → resource → allowed actions.
var permissions = map[string]map[string][]string{
	Tenant: {
		"properties": {"read", "favorite"},
		"bookings":   {"create", "read", "update"},
		"payments":   {"read", "create"},
		"messages":   {"read", "create"},
		"profile":    {"read", "update"},
	},
	Agent: {
		"properties": {"create", "read", "update", "delete"},
		"bookings":   {"read", "update"},
		"payments":   {"read"},
		"messages":   {"read", "create"},
		"profile":    {"read", "update"},
		"analytics":  {"read"},
	},
	Landlord: {
		"properties": {"create", "read", "update"},
		"bookings":   {"read"},
		"payments":   {"read"},
		"messages":   {"read", "create"},
		"profile":    {"read", "update"},
		"analytics":  {"read"},
	},
	Admin: {
		"users":      {"create", "read", "update", "delete"},
		"properties": {"create", "read", "update", "delete", "verify"},
		"bookings":   {"read", "update", "delete"},
		"payments":   {"read"},
		"messages":   {"read"},
		"profile":    {"read", "update"},
		"analytics":  {"read"},
		"system":     {"manage"},
	},
}

// CanAccess reports whether role may perform action on resource.
// Anything not listed is denied.
func CanAccess(role, resource, action string) bool {
	return slices.Contains(permissions[role][resource], action)
}

// Actions returns the actions role may perform on resource.
func Actions(role, resource string) []string {
	return slices.Clone(permissions[role][resource])
}

// Checker answers access questions about users by looking up their role.
type Checker struct {
	b backend.Backend
}

// NewChecker creates a checker reading profiles and properties from b.
func NewChecker(b backend.Backend) *Checker {
	return &Checker{b: b}
}

// Role returns the user's role; users without a profile are tenants.
func (c *Checker) Role(ctx context.Context, userID string) string {
	return profile.Role(ctx, c.b, userID)
}

// Can reports whether the user may perform action on resource.
func (c *Checker) Can(ctx context.Context, userID, resource, action string) bool {
	return CanAccess(c.Role(ctx, userID), resource, action)
}

// Require returns ErrForbidden unless the user may perform action on
// resource.
func (c *Checker) Require(ctx context.Context, userID, resource, action string) error {
	if !c.Can(ctx, userID, resource, action) {
		return fmt.Errorf("%s %s: %w", action, resource, ErrForbidden)
	}
	return nil
}

// IsPropertyOwner reports whether the user is the agent or landlord of the
// property. A missing property is owned by nobody.
func (c *Checker) IsPropertyOwner(ctx context.Context, propertyID, userID string) bool {
	row, err := backend.One(ctx, c.b, backend.From("properties").Select("agent_id", "landlord_id").Eq("id", propertyID))
	if err != nil || userID == "" {
		return false
	}
	return row.String("agent_id") == userID || row.String("landlord_id") == userID
}

// IsAdmin reports whether the user is an admin.
func (c *Checker) IsAdmin(ctx context.Context, userID string) bool {
	return c.Role(ctx, userID) == Admin
}

// IsAgent reports whether the user is an agent.
func (c *Checker) IsAgent(ctx context.Context, userID string) bool {
	return c.Role(ctx, userID) == Agent
}

// IsLandlord reports whether the user is a landlord.
func (c *Checker) IsLandlord(ctx context.Context, userID string) bool {
	return c.Role(ctx, userID) == Landlord
}

// IsTenant reports whether the user is a tenant.
func (c *Checker) IsTenant(ctx context.Context, userID string) bool {
	return c.Role(ctx, userID) == Tenant
}
