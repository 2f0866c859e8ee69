package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/property"
)

// AgentStats are the agent overview counters.
type AgentStats struct {
	TotalProperties int     `json:"total_properties"`
	ActiveListings  int     `json:"active_listings"`
	Inquiries       int     `json:"inquiries"`
	Revenue         float64 `json:"revenue"`
}

// AgentOverview is the agent landing view.
type AgentOverview struct {
	Stats            AgentStats          `json:"stats"`
	RecentProperties []property.Property `json:"recent_properties"`
	ViewsChart       analytics.Chart     `json:"views_chart"`
	InquiriesChart   analytics.Chart     `json:"inquiries_chart"`
}

// AnalyticsView is the analytics section of agent and landlord dashboards.
type AnalyticsView struct {
	Period        string              `json:"period"`
	Stats         analytics.UserStats `json:"stats"`
	BookingsChart analytics.Chart     `json:"bookings_chart"`
	RevenueChart  analytics.Chart     `json:"revenue_chart"`
}

func (d *Dashboard) agentOverview(ctx context.Context, userID string) (any, error) {
	var (
		props []property.Property
		stats analytics.UserStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = d.svc.Properties.ByAgent(gctx, userID)
		return err
	})
	g.Go(func() error {
		stats = d.svc.Analytics.UserAnalytics(gctx, userID, access.Agent, d.Period)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, len(props))
	active := 0
	for i, p := range props {
		ids[i] = p.ID
		if p.IsAvailable {
			active++
		}
	}
	views := d.svc.Analytics.PortfolioViews(ctx, ids, d.Period)

	return AgentOverview{
		Stats: AgentStats{
			TotalProperties: len(props),
			ActiveListings:  active,
			Inquiries:       stats.Bookings,
			Revenue:         stats.Revenue,
		},
		RecentProperties: first(props, 5),
		ViewsChart:       analytics.LineChart(views),
		InquiriesChart:   analytics.LineChart(stats.BookingsData),
	}, nil
}

func (d *Dashboard) agentProperties(ctx context.Context, userID string) (any, error) {
	return d.svc.Properties.ByAgent(ctx, userID)
}

func (d *Dashboard) leads(ctx context.Context, userID string) (any, error) {
	return d.svc.Bookings.ForAgent(ctx, userID)
}

func (d *Dashboard) userAnalytics(role string) loader {
	return func(ctx context.Context, userID string) (any, error) {
		stats := d.svc.Analytics.UserAnalytics(ctx, userID, role, d.Period)
		return AnalyticsView{
			Period:        d.Period,
			Stats:         stats,
			BookingsChart: analytics.LineChart(stats.BookingsData),
			RevenueChart:  analytics.LineChart(stats.RevenueData),
		}, nil
	}
}
