package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/property"
)

// TenantStats are the tenant overview counters.
type TenantStats struct {
	Favorites         int `json:"favorites"`
	CompletedPayments int `json:"completed_payments"`
	UpcomingBookings  int `json:"upcoming_bookings"`
	UnreadMessages    int `json:"unread_messages"`
}

// TenantOverview is the tenant landing view.
type TenantOverview struct {
	Stats           TenantStats       `json:"stats"`
	RecentFavorites []property.Card   `json:"recent_favorites"`
	RecentPayments  []payment.Payment `json:"recent_payments"`
}

// TenantPayments is the tenant payments section.
type TenantPayments struct {
	Stats    payment.Stats     `json:"stats"`
	Payments []payment.Payment `json:"payments"`
}

func (d *Dashboard) tenantOverview(ctx context.Context, userID string) (any, error) {
	var (
		favorites []property.Property
		payments  []payment.Payment
		stats     payment.Stats
		upcoming  int
		unread    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		favorites, err = d.svc.Properties.Favorites(gctx, userID)
		return err
	})
	g.Go(func() error {
		payments = d.svc.Payments.TenantPayments(gctx, userID)
		return nil
	})
	g.Go(func() error {
		stats = d.svc.Payments.Stats(gctx, userID, access.Tenant)
		return nil
	})
	g.Go(func() error {
		upcoming = d.svc.Bookings.UpcomingCount(gctx, userID)
		return nil
	})
	g.Go(func() error {
		unread = d.svc.Chat.GetUnreadCount(gctx, userID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return TenantOverview{
		Stats: TenantStats{
			Favorites:         len(favorites),
			CompletedPayments: stats.Completed,
			UpcomingBookings:  upcoming,
			UnreadMessages:    unread,
		},
		RecentFavorites: property.Cards(first(favorites, 3)),
		RecentPayments:  first(payments, 3),
	}, nil
}

func (d *Dashboard) favorites(ctx context.Context, userID string) (any, error) {
	list, err := d.svc.Properties.Favorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	return property.Cards(list), nil
}

func (d *Dashboard) tenantBookings(ctx context.Context, userID string) (any, error) {
	list, err := d.svc.Bookings.ForTenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *Dashboard) tenantPayments(ctx context.Context, userID string) (any, error) {
	var out TenantPayments
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Payments = d.svc.Payments.TenantPayments(gctx, userID)
		return nil
	})
	g.Go(func() error {
		out.Stats = d.svc.Payments.Stats(gctx, userID, access.Tenant)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
