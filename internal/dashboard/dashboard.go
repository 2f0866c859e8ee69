// Package dashboard builds the per-role dashboard views. Each section
// loader fetches what it needs, in parallel where the fetches are
// independent, and returns a view model; rendering is up to the caller.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/chat"
	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

var (
	// ErrNotAuthenticated is returned when there is no signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAccessDenied is returned when the user's role may not see a dashboard.
	ErrAccessDenied = errors.New("access denied")
)

// Overview is the landing section of every dashboard.
const Overview = "overview"

var sections = map[string][]string{
	access.Tenant:   {Overview, "properties", "favorites", "bookings", "payments", "messages", "profile"},
	access.Agent:    {Overview, "properties", "add-property", "leads", "messages", "analytics", "profile"},
	access.Landlord: {Overview, "properties", "add-property", "tenants", "payments", "analytics", "profile"},
	access.Admin:    {Overview, "users", "properties", "approvals", "reports", "analytics", "cms", "settings"},
}

// Sections lists the navigation entries for role, in menu order.
func Sections(role string) []string {
	return slices.Clone(sections[role])
}

// View is one rendered dashboard section.
type View struct {
	Role    string `json:"role"`
	Section string `json:"section"`
	Title   string `json:"title"`
	// Data holds the section's view model; nil for placeholders.
	Data        any    `json:"data,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Services are the data sources the dashboards read from.
type Services struct {
	Profiles   *profile.Service
	Properties *property.Service
	Bookings   *booking.Service
	Payments   *payment.Service
	Chat       *chat.Service
	Analytics  *analytics.Service
}

// Dashboard routes users to their role's sections.
type Dashboard struct {
	svc  Services
	sink notify.Sink
	log  *slog.Logger

	// Period bounds analytics on every dashboard.
	Period string
}

// New creates a Dashboard.
func New(svc Services, sink notify.Sink, log *slog.Logger) *Dashboard {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dashboard{svc: svc, sink: sink, log: log, Period: analytics.DefaultPeriod}
}

type loader func(ctx context.Context, userID string) (any, error)

func (d *Dashboard) loaders(role string) map[string]loader {
	switch role {
	case access.Tenant:
		return map[string]loader{
			Overview:     d.tenantOverview,
			"properties": d.browse,
			"favorites":  d.favorites,
			"bookings":   d.tenantBookings,
			"payments":   d.tenantPayments,
			"messages":   d.messages,
			"profile":    d.profile,
		}
	case access.Agent:
		return map[string]loader{
			Overview:     d.agentOverview,
			"properties": d.agentProperties,
			"leads":      d.leads,
			"messages":   d.messages,
			"analytics":  d.userAnalytics(access.Agent),
			"profile":    d.profile,
		}
	case access.Landlord:
		return map[string]loader{
			Overview:     d.landlordOverview,
			"properties": d.landlordProperties,
			"tenants":    d.tenants,
			"payments":   d.landlordPayments,
			"analytics":  d.userAnalytics(access.Landlord),
			"profile":    d.profile,
		}
	case access.Admin:
		return map[string]loader{
			Overview:     d.adminOverview,
			"users":      d.users,
			"properties": d.browse,
			"approvals":  d.approvals,
			"analytics":  d.adminAnalytics,
		}
	}
	return nil
}

// Load opens the signed-in user's dashboard on its overview.
func (d *Dashboard) Load(ctx context.Context, userID string) (*View, error) {
	return d.Navigate(ctx, userID, Overview)
}

// Navigate opens section on the user's dashboard. Sections the role does
// not have fall back to the overview. A section that fails to load raises
// an "Error loading <section>" toast and comes back as a placeholder.
func (d *Dashboard) Navigate(ctx context.Context, userID, section string) (*View, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	role := d.svc.Profiles.Role(ctx, userID)
	if _, ok := sections[role]; !ok {
		return nil, fmt.Errorf("role %q: %w", role, ErrAccessDenied)
	}
	return d.open(ctx, userID, role, section), nil
}

// Admin opens a section of the admin dashboard, refusing everyone but
// admins.
func (d *Dashboard) Admin(ctx context.Context, userID, section string) (*View, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if role := d.svc.Profiles.Role(ctx, userID); role != access.Admin {
		return nil, ErrAccessDenied
	}
	return d.open(ctx, userID, access.Admin, section), nil
}

func (d *Dashboard) open(ctx context.Context, userID, role, section string) *View {
	if !slices.Contains(sections[role], section) {
		section = Overview
	}
	v := &View{Role: role, Section: section, Title: title(section)}

	load, ok := d.loaders(role)[section]
	if !ok {
		v.Placeholder = v.Title + " section coming soon..."
		return v
	}
	data, err := load(ctx, userID)
	if err != nil {
		d.log.Error("loading dashboard section", "role", role, "section", section, "user", userID, "error", err)
		d.sink.Notify("Error loading "+section, notify.Error)
		v.Placeholder = "Unable to load " + section + " right now."
		return v
	}
	v.Data = data
	return v
}

func title(section string) string {
	switch section {
	case "add-property":
		return "Add Property"
	case "cms":
		return "CMS"
	}
	return format.Title(section)
}

func first[T any](list []T, n int) []T {
	return list[:min(n, len(list))]
}

// Shared section loaders.

func (d *Dashboard) browse(ctx context.Context, _ string) (any, error) {
	list, err := d.svc.Properties.Search(ctx, property.Filters{SortBy: property.SortNewest})
	if err != nil {
		return nil, err
	}
	return property.Cards(list), nil
}

func (d *Dashboard) messages(ctx context.Context, userID string) (any, error) {
	return d.svc.Chat.GetConversations(ctx, userID), nil
}

func (d *Dashboard) profile(ctx context.Context, userID string) (any, error) {
	return d.svc.Profiles.Get(ctx, userID)
}
