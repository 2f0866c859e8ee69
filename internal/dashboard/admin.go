package dashboard

import (
	"context"
	"time"

	"github.com/evcraddock/smartrent/internal/analytics"
)

// AdminOverview is the admin landing view.
type AdminOverview struct {
	Stats            analytics.AdminStats `json:"stats"`
	UserDistribution analytics.Chart      `json:"user_distribution"`
	PropertiesChart  analytics.Chart      `json:"properties_chart"`
	RevenueChart     analytics.Chart      `json:"revenue_chart"`
}

func (d *Dashboard) adminOverview(ctx context.Context, _ string) (any, error) {
	stats := d.svc.Analytics.AdminAnalytics(ctx, d.Period)
	perDay := make(map[string]int, len(stats.PropertiesData))
	for _, p := range stats.PropertiesData {
		perDay[p.Date] = int(p.Value)
	}
	return AdminOverview{
		Stats:            stats,
		UserDistribution: analytics.PieChart(stats.UserStats),
		PropertiesChart:  analytics.BarChart(perDay),
		RevenueChart:     analytics.LineChart(stats.RevenueData),
	}, nil
}

// AdminAnalyticsView is the admin analytics section.
type AdminAnalyticsView struct {
	Period        string               `json:"period"`
	Stats         analytics.AdminStats `json:"stats"`
	BookingsChart analytics.Chart      `json:"bookings_chart"`
	RevenueChart  analytics.Chart      `json:"revenue_chart"`
}

func (d *Dashboard) adminAnalytics(ctx context.Context, _ string) (any, error) {
	stats := d.svc.Analytics.AdminAnalytics(ctx, d.Period)
	return AdminAnalyticsView{
		Period:        d.Period,
		Stats:         stats,
		BookingsChart: analytics.LineChart(stats.BookingsData),
		RevenueChart:  analytics.LineChart(stats.RevenueData),
	}, nil
}

func (d *Dashboard) users(ctx context.Context, _ string) (any, error) {
	return d.svc.Profiles.List(ctx, time.Time{})
}

func (d *Dashboard) approvals(ctx context.Context, _ string) (any, error) {
	return d.svc.Properties.Pending(ctx)
}
