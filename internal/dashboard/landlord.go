package dashboard

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

// LandlordStats are the landlord overview counters.
type LandlordStats struct {
	Properties      int     `json:"properties"`
	OccupiedUnits   int     `json:"occupied_units"`
	PendingPayments int     `json:"pending_payments"`
	Revenue         float64 `json:"revenue"`
	// OccupancyRate is the percentage of listings not available to rent.
	OccupancyRate int `json:"occupancy_rate"`
}

// LandlordOverview is the landlord landing view.
type LandlordOverview struct {
	Stats          LandlordStats     `json:"stats"`
	RecentPayments []payment.Payment `json:"recent_payments"`
	RevenueChart   analytics.Chart   `json:"revenue_chart"`
}

// TenantSummary is one tenant in the landlord's tenants section.
type TenantSummary struct {
	Tenant   profile.Profile `json:"tenant"`
	Payments int             `json:"payments"`
	Paid     float64         `json:"paid"`
}

// Occupancy returns the number of rented listings and the rounded
// percentage they make of all listings.
func Occupancy(props []property.Property) (rented, rate int) {
	for _, p := range props {
		if !p.IsAvailable {
			rented++
		}
	}
	if len(props) == 0 {
		return 0, 0
	}
	return rented, int(math.Round(float64(rented) * 100 / float64(len(props))))
}

func (d *Dashboard) landlordOverview(ctx context.Context, userID string) (any, error) {
	var (
		props    []property.Property
		payments []payment.Payment
		stats    payment.Stats
		activity analytics.UserStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = d.svc.Properties.ByLandlord(gctx, userID)
		return err
	})
	g.Go(func() error {
		payments = d.svc.Payments.LandlordPayments(gctx, userID)
		return nil
	})
	g.Go(func() error {
		stats = d.svc.Payments.Stats(gctx, userID, access.Landlord)
		return nil
	})
	g.Go(func() error {
		activity = d.svc.Analytics.UserAnalytics(gctx, userID, access.Landlord, d.Period)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rented, rate := Occupancy(props)
	return LandlordOverview{
		Stats: LandlordStats{
			Properties:      len(props),
			OccupiedUnits:   rented,
			PendingPayments: stats.Pending,
			Revenue:         stats.TotalAmount,
			OccupancyRate:   rate,
		},
		RecentPayments: first(payments, 5),
		RevenueChart:   analytics.LineChart(activity.RevenueData),
	}, nil
}

func (d *Dashboard) landlordProperties(ctx context.Context, userID string) (any, error) {
	return d.svc.Properties.ByLandlord(ctx, userID)
}

func (d *Dashboard) landlordPayments(ctx context.Context, userID string) (any, error) {
	return d.svc.Payments.LandlordPayments(ctx, userID), nil
}

// tenants lists everyone who has paid the landlord, in order of their most
// recent payment.
func (d *Dashboard) tenants(ctx context.Context, userID string) (any, error) {
	payments := d.svc.Payments.LandlordPayments(ctx, userID)
	index := make(map[string]int)
	out := []TenantSummary{}
	for _, p := range payments {
		if p.Tenant == nil {
			continue
		}
		i, ok := index[p.TenantID]
		if !ok {
			i = len(out)
			index[p.TenantID] = i
			out = append(out, TenantSummary{Tenant: *p.Tenant})
		}
		out[i].Payments++
		if p.Status == payment.Completed {
			out[i].Paid += p.Amount
		}
	}
	return out, nil
}
