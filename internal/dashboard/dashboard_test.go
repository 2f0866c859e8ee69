package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/sqlite"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/chat"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	d    *Dashboard
	b    *sqlite.Backend
	sink *notify.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	b, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	seed := func(table string, r backend.Row) {
		t.Helper()
		if _, err := b.Insert(ctx, table, r); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}
	seed("profiles", backend.Row{"id": "tenant1", "role": access.Tenant, "full_name": "Ada Obi"})
	seed("profiles", backend.Row{"id": "agent1", "role": access.Agent, "full_name": "Bola Agent"})
	seed("profiles", backend.Row{"id": "land1", "role": access.Landlord, "full_name": "Chidi Eze"})
	seed("profiles", backend.Row{"id": "admin1", "role": access.Admin})

	seed("properties", backend.Row{"id": "p1", "title": "Lekki flat", "address": "Lekki", "price": 900000.0, "agent_id": "agent1", "is_verified": true, "is_available": true})
	seed("properties", backend.Row{"id": "p2", "title": "Yaba room", "address": "Yaba", "landlord_id": "land1", "is_available": false})
	seed("properties", backend.Row{"id": "p3", "title": "Surulere duplex", "address": "Surulere", "landlord_id": "land1", "is_available": true})

	seed("favorites", backend.Row{"user_id": "tenant1", "property_id": "p1"})
	seed("bookings", backend.Row{"tenant_id": "tenant1", "property_id": "p1", "agent_id": "agent1", "status": "pending"})
	seed("messages", backend.Row{"sender_id": "agent1", "receiver_id": "tenant1", "property_id": "p1", "content": "Viewing is at 10am"})
	seed("payments", backend.Row{"tenant_id": "tenant1", "landlord_id": "land1", "property_id": "p2", "amount": 1000.0, "status": "completed"})
	seed("payments", backend.Row{"tenant_id": "tenant1", "landlord_id": "land1", "property_id": "p2", "amount": 500.0, "status": "pending"})

	sink := &notify.Recorder{}
	notes := notification.NewService(b, b, nil, nil)
	d := New(Services{
		Profiles:   profile.NewService(b, nil),
		Properties: property.NewService(b, notes, sink, nil),
		Bookings:   booking.NewService(b, notes, sink, nil),
		Payments:   payment.NewService(b, nil, notes, sink, nil),
		Chat:       chat.NewService(b, b, notes, sink, nil),
		Analytics:  analytics.NewService(b, nil),
	}, sink, nil)
	return fixture{d: d, b: b, sink: sink}
}

func TestNotAuthenticated(t *testing.T) {
	f := newFixture(t)
	if _, err := f.d.Load(context.Background(), ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestSections(t *testing.T) {
	got := Sections(access.Agent)
	if len(got) != 7 || got[0] != Overview {
		t.Errorf("agent sections = %v", got)
	}
	got[0] = "changed"
	if Sections(access.Agent)[0] != Overview {
		t.Error("Sections returned shared slice")
	}
	if len(Sections("guest")) != 0 {
		t.Error("unknown role has sections")
	}
}

func TestTenantOverview(t *testing.T) {
	f := newFixture(t)
	v, err := f.d.Load(context.Background(), "tenant1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Role != access.Tenant || v.Section != Overview || v.Title != "Overview" {
		t.Errorf("view = %+v", v)
	}
	o, ok := v.Data.(TenantOverview)
	if !ok {
		t.Fatalf("data = %T", v.Data)
	}
	want := TenantStats{Favorites: 1, CompletedPayments: 1, UpcomingBookings: 1, UnreadMessages: 1}
	if o.Stats != want {
		t.Errorf("stats = %+v, want %+v", o.Stats, want)
	}
	if len(o.RecentFavorites) != 1 || o.RecentFavorites[0].Price != "₦900,000/month" {
		t.Errorf("favorites = %+v", o.RecentFavorites)
	}
	if len(o.RecentPayments) != 2 {
		t.Errorf("payments = %d, want 2", len(o.RecentPayments))
	}
}

func TestTenantSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		section string
		check   func(t *testing.T, data any)
	}{
		{"favorites", func(t *testing.T, data any) {
			if cards, ok := data.([]property.Card); !ok || len(cards) != 1 {
				t.Errorf("data = %#v", data)
			}
		}},
		{"bookings", func(t *testing.T, data any) {
			if list, ok := data.([]booking.Booking); !ok || len(list) != 1 || list[0].Property == nil {
				t.Errorf("data = %#v", data)
			}
		}},
		{"payments", func(t *testing.T, data any) {
			p, ok := data.(TenantPayments)
			if !ok || p.Stats.Total != 2 || len(p.Payments) != 2 {
				t.Errorf("data = %#v", data)
			}
		}},
		{"messages", func(t *testing.T, data any) {
			convs, ok := data.([]chat.Conversation)
			if !ok || len(convs) != 1 || convs[0].UnreadCount != 1 {
				t.Errorf("data = %#v", data)
			}
		}},
		{"profile", func(t *testing.T, data any) {
			if p, ok := data.(*profile.Profile); !ok || p.FullName != "Ada Obi" {
				t.Errorf("data = %#v", data)
			}
		}},
		{"properties", func(t *testing.T, data any) {
			// only available listings are browsable
			if cards, ok := data.([]property.Card); !ok || len(cards) != 2 {
				t.Errorf("data = %#v", data)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			v, err := f.d.Navigate(ctx, "tenant1", tt.section)
			if err != nil {
				t.Fatalf("navigate: %v", err)
			}
			if v.Section != tt.section || v.Placeholder != "" {
				t.Fatalf("view = %+v", v)
			}
			tt.check(t, v.Data)
		})
	}
}

func TestUnknownSectionFallsBackToOverview(t *testing.T) {
	f := newFixture(t)
	// approvals belongs to admins only
	v, err := f.d.Navigate(context.Background(), "tenant1", "approvals")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if v.Section != Overview {
		t.Errorf("section = %q, want overview", v.Section)
	}
}

func TestPlaceholderSections(t *testing.T) {
	f := newFixture(t)
	v, err := f.d.Navigate(context.Background(), "agent1", "add-property")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if v.Data != nil || v.Placeholder != "Add Property section coming soon..." {
		t.Errorf("view = %+v", v)
	}
}

func TestAgentOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.b.Insert(ctx, "property_views", backend.Row{"property_id": "p1", "viewed_at": time.Now().UTC()}); err != nil {
		t.Fatalf("seed view: %v", err)
	}

	v, err := f.d.Load(ctx, "agent1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	o, ok := v.Data.(AgentOverview)
	if !ok {
		t.Fatalf("data = %T", v.Data)
	}
	want := AgentStats{TotalProperties: 1, ActiveListings: 1, Inquiries: 1}
	if o.Stats != want {
		t.Errorf("stats = %+v, want %+v", o.Stats, want)
	}
	if len(o.RecentProperties) != 1 {
		t.Errorf("recent = %d", len(o.RecentProperties))
	}
	if len(o.ViewsChart.Labels) != 1 || o.ViewsChart.Datasets[0].Data[0] != 1 {
		t.Errorf("views chart = %+v", o.ViewsChart)
	}

	leads, err := f.d.Navigate(ctx, "agent1", "leads")
	if err != nil {
		t.Fatalf("leads: %v", err)
	}
	if list, ok := leads.Data.([]booking.Booking); !ok || len(list) != 1 {
		t.Errorf("leads = %#v", leads.Data)
	}
}

func TestLandlordOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.d.Load(ctx, "land1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	o, ok := v.Data.(LandlordOverview)
	if !ok {
		t.Fatalf("data = %T", v.Data)
	}
	want := LandlordStats{Properties: 2, OccupiedUnits: 1, PendingPayments: 1, Revenue: 1000, OccupancyRate: 50}
	if o.Stats != want {
		t.Errorf("stats = %+v, want %+v", o.Stats, want)
	}
	if len(o.RecentPayments) != 2 {
		t.Errorf("recent payments = %d", len(o.RecentPayments))
	}
	if analytics.Total(pointsOf(o.RevenueChart)) != 1500 {
		t.Errorf("revenue chart = %+v", o.RevenueChart)
	}

	tv, err := f.d.Navigate(ctx, "land1", "tenants")
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	list, ok := tv.Data.([]TenantSummary)
	if !ok || len(list) != 1 {
		t.Fatalf("tenants = %#v", tv.Data)
	}
	if list[0].Tenant.ID != "tenant1" || list[0].Payments != 2 || list[0].Paid != 1000 {
		t.Errorf("summary = %+v", list[0])
	}
}

func pointsOf(c analytics.Chart) []analytics.Point {
	var out []analytics.Point
	for _, v := range c.Datasets[0].Data {
		out = append(out, analytics.Point{Value: v})
	}
	return out
}

func TestOccupancy(t *testing.T) {
	tests := []struct {
		avail      []bool
		rented, pc int
	}{
		{nil, 0, 0},
		{[]bool{true}, 0, 0},
		{[]bool{false}, 1, 100},
		{[]bool{false, true, true}, 1, 33},
		{[]bool{false, false, true}, 2, 67},
	}
	for _, tt := range tests {
		props := make([]property.Property, len(tt.avail))
		for i, a := range tt.avail {
			props[i].IsAvailable = a
		}
		rented, rate := Occupancy(props)
		if rented != tt.rented || rate != tt.pc {
			t.Errorf("Occupancy(%v) = %d, %d; want %d, %d", tt.avail, rented, rate, tt.rented, tt.pc)
		}
	}
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.d.Admin(ctx, "tenant1", Overview); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("tenant err = %v, want ErrAccessDenied", err)
	}
	if _, err := f.d.Admin(ctx, "", Overview); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("anonymous err = %v", err)
	}

	v, err := f.d.Admin(ctx, "admin1", Overview)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	o, ok := v.Data.(AdminOverview)
	if !ok {
		t.Fatalf("data = %T", v.Data)
	}
	if o.Stats.TotalUsers != 4 || o.Stats.TotalProperties != 3 || o.Stats.TotalRevenue != 1500 {
		t.Errorf("stats = %+v", o.Stats)
	}
	if len(o.UserDistribution.Labels) != 4 {
		t.Errorf("distribution = %+v", o.UserDistribution)
	}

	av, err := f.d.Admin(ctx, "admin1", "approvals")
	if err != nil {
		t.Fatalf("approvals: %v", err)
	}
	if list, ok := av.Data.([]property.Property); !ok || len(list) != 2 {
		t.Errorf("approvals = %#v", av.Data)
	}

	uv, err := f.d.Navigate(ctx, "admin1", "users")
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if list, ok := uv.Data.([]profile.Profile); !ok || len(list) != 4 {
		t.Errorf("users = %#v", uv.Data)
	}
}

func TestSectionErrorShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	_ = f.b.Close()

	// a missing profile reads as tenant
	v, err := f.d.Navigate(context.Background(), "tenant1", "favorites")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if v.Data != nil || v.Placeholder == "" {
		t.Errorf("view = %+v", v)
	}
	if !f.sink.Has("Error loading favorites", notify.Error) {
		t.Errorf("entries = %+v", f.sink.Entries())
	}
}
