package analytics

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

type fixture struct {
	s *Service
	b *sqlite.Backend
}

// newFixture seeds one agent listing and one landlord listing with views,
// bookings and payments spread over the last few months.
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

	seed("profiles", backend.Row{"id": "admin1", "role": access.Admin, "created_at": daysAgo(400)})
	seed("profiles", backend.Row{"id": "agent1", "role": access.Agent, "created_at": daysAgo(200)})
	seed("profiles", backend.Row{"id": "land1", "role": access.Landlord, "created_at": daysAgo(60)})
	seed("profiles", backend.Row{"id": "tenant1", "role": access.Tenant, "created_at": daysAgo(5)})
	seed("profiles", backend.Row{"id": "tenant2", "role": access.Tenant, "created_at": daysAgo(2)})

	seed("properties", backend.Row{"id": "p1", "title": "Lekki flat", "address": "Lekki", "agent_id": "agent1", "created_at": daysAgo(100)})
	seed("properties", backend.Row{"id": "p2", "title": "Yaba room", "address": "Yaba", "landlord_id": "land1", "created_at": daysAgo(3)})

	seed("property_views", backend.Row{"property_id": "p1", "viewed_at": daysAgo(1)})
	seed("property_views", backend.Row{"property_id": "p1", "viewed_at": daysAgo(1)})
	seed("property_views", backend.Row{"property_id": "p1", "viewed_at": daysAgo(4)})
	seed("property_views", backend.Row{"property_id": "p1", "viewed_at": daysAgo(45)})
	seed("property_views", backend.Row{"property_id": "p2", "viewed_at": daysAgo(1)})

	seed("bookings", backend.Row{"tenant_id": "tenant1", "property_id": "p1", "agent_id": "agent1", "created_at": daysAgo(2)})
	seed("bookings", backend.Row{"tenant_id": "tenant2", "property_id": "p1", "agent_id": "agent1", "created_at": daysAgo(10)})
	seed("bookings", backend.Row{"tenant_id": "tenant1", "property_id": "p1", "agent_id": "agent1", "created_at": daysAgo(80)})

	seed("payments", backend.Row{"tenant_id": "tenant1", "landlord_id": "land1", "property_id": "p2", "amount": 1000.0, "status": "completed", "created_at": daysAgo(1)})
	seed("payments", backend.Row{"tenant_id": "tenant2", "landlord_id": "land1", "property_id": "p2", "amount": 500.0, "status": "pending", "created_at": daysAgo(1)})
	seed("payments", backend.Row{"tenant_id": "tenant1", "landlord_id": "land1", "property_id": "p2", "amount": 250.0, "status": "completed", "created_at": daysAgo(200)})

	s := NewService(b, nil)
	s.now = func() time.Time { return testNow }
	return fixture{s: s, b: b}
}

func TestPropertyAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.s.PropertyAnalytics(ctx, "p1", Month)
	if got.TotalViews != 3 || got.TotalInquiries != 2 {
		t.Errorf("totals = %d views, %d inquiries", got.TotalViews, got.TotalInquiries)
	}
	wantViews := []Point{{"2024-06-26", 1}, {"2024-06-29", 2}}
	if !reflect.DeepEqual(got.ViewsData, wantViews) {
		t.Errorf("views = %v, want %v", got.ViewsData, wantViews)
	}

	if q := f.s.PropertyAnalytics(ctx, "p1", Quarter); q.TotalViews != 4 || q.TotalInquiries != 3 {
		t.Errorf("quarter totals = %d views, %d inquiries", q.TotalViews, q.TotalInquiries)
	}
	if w := f.s.PropertyAnalytics(ctx, "p1", Week); w.TotalViews != 3 || w.TotalInquiries != 1 {
		t.Errorf("week totals = %d views, %d inquiries", w.TotalViews, w.TotalInquiries)
	}
}

func TestUserAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		user, role string
		want       UserStats
	}{
		{"agent1", access.Agent, UserStats{Properties: 1, Bookings: 2}},
		{"land1", access.Landlord, UserStats{Properties: 1, Payments: 2, Revenue: 1500}},
		{"tenant1", access.Tenant, UserStats{Bookings: 1, Payments: 1, Revenue: 1000}},
		{"admin1", access.Admin, UserStats{}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := f.s.UserAnalytics(ctx, tt.user, tt.role, Month)
			if got.Properties != tt.want.Properties || got.Bookings != tt.want.Bookings ||
				got.Payments != tt.want.Payments || got.Revenue != tt.want.Revenue {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if Total(got.BookingsData) != float64(got.Bookings) || Total(got.PaymentsData) != float64(got.Payments) {
				t.Errorf("series do not match totals: %+v", got)
			}
		})
	}
}

func TestUserRevenueSeries(t *testing.T) {
	f := newFixture(t)
	got := f.s.UserAnalytics(context.Background(), "land1", access.Landlord, Month)
	want := []Point{{"2024-06-29", 1500}}
	if !reflect.DeepEqual(got.RevenueData, want) {
		t.Errorf("revenue = %v, want %v", got.RevenueData, want)
	}
}

func TestPortfolioViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.s.PortfolioViews(ctx, []string{"p1", "p2"}, Month)
	want := []Point{{"2024-06-26", 1}, {"2024-06-29", 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("views = %v, want %v", got, want)
	}
	if got := f.s.PortfolioViews(ctx, nil, Month); got == nil || len(got) != 0 {
		t.Errorf("no properties = %#v", got)
	}
}

func TestAdminAnalytics(t *testing.T) {
	f := newFixture(t)
	got := f.s.AdminAnalytics(context.Background(), Month)

	if got.TotalUsers != 5 || got.TotalProperties != 1 || got.TotalBookings != 2 || got.TotalRevenue != 1500 {
		t.Errorf("totals = %+v", got)
	}
	wantRoles := map[string]int{access.Admin: 1, access.Agent: 1, access.Landlord: 1, access.Tenant: 2}
	if !reflect.DeepEqual(got.UserStats, wantRoles) {
		t.Errorf("user stats = %v", got.UserStats)
	}
	wantRevenue := []Point{{"2024-06-29", 1500}}
	if !reflect.DeepEqual(got.RevenueData, wantRevenue) {
		t.Errorf("revenue = %v, want %v", got.RevenueData, wantRevenue)
	}
}

func TestFailuresYieldZeroStats(t *testing.T) {
	f := newFixture(t)
	_ = f.b.Close()
	ctx := context.Background()

	p := f.s.PropertyAnalytics(ctx, "p1", Month)
	if !reflect.DeepEqual(p, emptyPropertyStats()) {
		t.Errorf("property = %+v", p)
	}
	u := f.s.UserAnalytics(ctx, "agent1", access.Agent, Month)
	if !reflect.DeepEqual(u, emptyUserStats()) {
		t.Errorf("user = %+v", u)
	}
	a := f.s.AdminAnalytics(ctx, Month)
	if !reflect.DeepEqual(a, emptyAdminStats()) {
		t.Errorf("admin = %+v", a)
	}
}
