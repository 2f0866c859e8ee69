package analytics

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/profile"
)

// PropertyStats is the activity on one listing.
type PropertyStats struct {
	TotalViews     int     `json:"total_views"`
	TotalInquiries int     `json:"total_inquiries"`
	ViewsData      []Point `json:"views_data"`
	InquiriesData  []Point `json:"inquiries_data"`
}

// UserStats is the activity around one user, shaped by their role.
type UserStats struct {
	Properties   int     `json:"properties"`
	Bookings     int     `json:"bookings"`
	Payments     int     `json:"payments"`
	Revenue      float64 `json:"revenue"`
	BookingsData []Point `json:"bookings_data"`
	PaymentsData []Point `json:"payments_data"`
	RevenueData  []Point `json:"revenue_data"`
}

// AdminStats is platform-wide activity.
type AdminStats struct {
	TotalUsers      int            `json:"total_users"`
	TotalProperties int            `json:"total_properties"`
	TotalBookings   int            `json:"total_bookings"`
	TotalRevenue    float64        `json:"total_revenue"`
	UserStats       map[string]int `json:"user_stats"`
	PropertiesData  []Point        `json:"properties_data"`
	BookingsData    []Point        `json:"bookings_data"`
	RevenueData     []Point        `json:"revenue_data"`
}

func emptyPropertyStats() PropertyStats {
	return PropertyStats{ViewsData: []Point{}, InquiriesData: []Point{}}
}

func emptyUserStats() UserStats {
	return UserStats{BookingsData: []Point{}, PaymentsData: []Point{}, RevenueData: []Point{}}
}

func emptyAdminStats() AdminStats {
	return AdminStats{
		UserStats:      map[string]int{},
		PropertiesData: []Point{},
		BookingsData:   []Point{},
		RevenueData:    []Point{},
	}
}

// Service runs analytics queries. Every query is bounded below by the
// period cutoff; failures are logged and yield zero stats.
type Service struct {
	b   backend.Backend
	log *slog.Logger
	now func() time.Time
}

// NewService creates an analytics service.
func NewService(b backend.Backend, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{b: b, log: log, now: time.Now}
}

func (s *Service) cutoff(period string) time.Time {
	return Cutoff(period, s.now())
}

// PropertyAnalytics returns views and inquiries for a listing.
func (s *Service) PropertyAnalytics(ctx context.Context, propertyID, period string) PropertyStats {
	since := s.cutoff(period)
	var views, inquiries []backend.Row

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = s.b.Select(gctx, backend.From("property_views").
			Eq("property_id", propertyID).
			Gte("viewed_at", since))
		return err
	})
	g.Go(func() error {
		var err error
		inquiries, err = s.b.Select(gctx, backend.From("bookings").
			Eq("property_id", propertyID).
			Gte("created_at", since))
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("fetching property analytics", "property", propertyID, "error", err)
		return emptyPropertyStats()
	}

	return PropertyStats{
		TotalViews:     len(views),
		TotalInquiries: len(inquiries),
		ViewsData:      GroupByDate(views, "viewed_at", ""),
		InquiriesData:  GroupByDate(inquiries, "created_at", ""),
	}
}

// UserAnalytics returns the activity for a user in role. Agents see their
// listings and the bookings assigned to them; landlords their listings and
// the payments made to them; tenants their own bookings and payments.
// Revenue sums every payment amount in the period.
func (s *Service) UserAnalytics(ctx context.Context, userID, role, period string) UserStats {
	since := s.cutoff(period)

	var propsQ, bookingsQ, paymentsQ *backend.Query
	switch role {
	case access.Agent:
		propsQ = backend.From("properties").Select("id").Eq("agent_id", userID)
		bookingsQ = backend.From("bookings").Eq("agent_id", userID).Gte("created_at", since)
	case access.Landlord:
		propsQ = backend.From("properties").Select("id").Eq("landlord_id", userID)
		paymentsQ = backend.From("payments").Eq("landlord_id", userID).Gte("created_at", since)
	case access.Tenant:
		bookingsQ = backend.From("bookings").Eq("tenant_id", userID).Gte("created_at", since)
		paymentsQ = backend.From("payments").Eq("tenant_id", userID).Gte("created_at", since)
	}

	var props, bookings, payments []backend.Row
	g, gctx := errgroup.WithContext(ctx)
	run := func(q *backend.Query, dst *[]backend.Row) {
		if q == nil {
			return
		}
		g.Go(func() error {
			rows, err := s.b.Select(gctx, q)
			*dst = rows
			return err
		})
	}
	run(propsQ, &props)
	run(bookingsQ, &bookings)
	run(paymentsQ, &payments)
	if err := g.Wait(); err != nil {
		s.log.Error("fetching user analytics", "user", userID, "role", role, "error", err)
		return emptyUserStats()
	}

	return UserStats{
		Properties:   len(props),
		Bookings:     len(bookings),
		Payments:     len(payments),
		Revenue:      sum(payments, "amount"),
		BookingsData: GroupByDate(bookings, "created_at", ""),
		PaymentsData: GroupByDate(payments, "created_at", ""),
		RevenueData:  GroupByDate(payments, "created_at", "amount"),
	}
}

// PortfolioViews returns daily views across several listings.
func (s *Service) PortfolioViews(ctx context.Context, propertyIDs []string, period string) []Point {
	if len(propertyIDs) == 0 {
		return []Point{}
	}
	rows, err := s.b.Select(ctx, backend.From("property_views").
		Select("property_id", "viewed_at").
		In("property_id", propertyIDs).
		Gte("viewed_at", s.cutoff(period)))
	if err != nil {
		s.log.Error("fetching portfolio views", "properties", len(propertyIDs), "error", err)
		return []Point{}
	}
	return GroupByDate(rows, "viewed_at", "")
}

// AdminAnalytics returns platform totals. Users are counted over all time;
// listings, bookings and payments over the period.
func (s *Service) AdminAnalytics(ctx context.Context, period string) AdminStats {
	since := s.cutoff(period)

	var (
		users                     []profile.Profile
		props, bookings, payments []backend.Row
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = profile.All(gctx, s.b, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		props, err = s.b.Select(gctx, backend.From("properties").Select("id", "created_at").Gte("created_at", since))
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.b.Select(gctx, backend.From("bookings").Select("id", "created_at").Gte("created_at", since))
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.b.Select(gctx, backend.From("payments").Select("id", "amount", "created_at").Gte("created_at", since))
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("fetching admin analytics", "error", err)
		return emptyAdminStats()
	}

	return AdminStats{
		TotalUsers:      len(users),
		TotalProperties: len(props),
		TotalBookings:   len(bookings),
		TotalRevenue:    sum(payments, "amount"),
		UserStats:       GroupByRole(users),
		PropertiesData:  GroupByDate(props, "created_at", ""),
		BookingsData:    GroupByDate(bookings, "created_at", ""),
		RevenueData:     GroupByDate(payments, "created_at", "amount"),
	}
}
