package booking

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/sqlite"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/validate"
)

var testNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func testSetup(t *testing.T) (*Service, *sqlite.Backend, string) {
	t.Helper()
	b, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	for id, role := range map[string]string{
		"admin1":  access.Admin,
		"agent1":  access.Agent,
		"agent2":  access.Agent,
		"land1":   access.Landlord,
		"tenant1": access.Tenant,
		"tenant2": access.Tenant,
	} {
		if _, err := b.Insert(ctx, "profiles", backend.Row{"id": id, "role": role}); err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	prop, err := b.Insert(ctx, "properties", backend.Row{
		"title": "Lekki flat", "address": "Lekki", "price": 200000.0, "agent_id": "agent1",
	})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}

	s := NewService(b, notification.NewService(b, b, nil, nil), &notify.Recorder{}, nil)
	s.now = func() time.Time { return testNow }
	return s, b, prop.String("id")
}

func book(t *testing.T, s *Service, tenant, propID string) *Booking {
	t.Helper()
	bk, err := s.Create(context.Background(), tenant, Request{
		PropertyID:   propID,
		ScheduledFor: testNow.Add(48 * time.Hour),
		Notes:        "morning please",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return bk
}

func TestCreate(t *testing.T) {
	s, _, propID := testSetup(t)

	bk := book(t, s, "tenant1", propID)
	if bk.ID == "" {
		t.Error("expected an id")
	}
	if bk.Status != Pending {
		t.Errorf("status = %q, want %q", bk.Status, Pending)
	}
	if bk.AgentID != "agent1" {
		t.Errorf("agent_id = %q, want agent1", bk.AgentID)
	}
	if bk.ScheduledFor == nil || !bk.ScheduledFor.Equal(testNow.Add(48*time.Hour)) {
		t.Errorf("scheduled_for = %v", bk.ScheduledFor)
	}
	if bk.Notes != "morning please" {
		t.Errorf("notes = %q", bk.Notes)
	}
}

func TestCreateRejects(t *testing.T) {
	s, _, propID := testSetup(t)
	ctx := context.Background()
	future := testNow.Add(time.Hour)

	tests := []struct {
		name   string
		tenant string
		req    Request
		check  func(error) bool
	}{
		{"past date", "tenant1", Request{PropertyID: propID, ScheduledFor: testNow.AddDate(0, 0, -2)},
			func(err error) bool { return errors.Is(err, ErrPastDate) }},
		{"missing property id", "tenant1", Request{ScheduledFor: future},
			func(err error) bool { var v validate.Errors; return errors.As(err, &v) }},
		{"agents cannot book", "agent1", Request{PropertyID: propID, ScheduledFor: future},
			func(err error) bool { return errors.Is(err, access.ErrForbidden) }},
		{"unknown property", "tenant1", Request{PropertyID: "nope", ScheduledFor: future},
			func(err error) bool { return errors.Is(err, backend.ErrNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.tenant, tt.req)
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestListings(t *testing.T) {
	s, _, propID := testSetup(t)
	ctx := context.Background()

	book(t, s, "tenant1", propID)
	book(t, s, "tenant1", propID)
	book(t, s, "tenant2", propID)

	mine, err := s.ForTenant(ctx, "tenant1")
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d bookings, want 2", len(mine))
	}
	if mine[0].Property == nil || mine[0].Property.Title != "Lekki flat" {
		t.Errorf("property = %+v", mine[0].Property)
	}

	agent, err := s.ForAgent(ctx, "agent1")
	if err != nil || len(agent) != 3 {
		t.Errorf("for agent = %d, %v", len(agent), err)
	}
	none, err := s.ForAgent(ctx, "agent2")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("empty agent = %#v, %v", none, err)
	}
}

func TestUpdateStatus(t *testing.T) {
	s, b, propID := testSetup(t)
	ctx := context.Background()
	bk := book(t, s, "tenant1", propID)

	if _, err := s.UpdateStatus(ctx, "agent1", bk.ID, "archived"); err == nil {
		t.Error("expected error for invalid status")
	}
	if _, err := s.UpdateStatus(ctx, "agent2", bk.ID, Confirmed); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("other agent err = %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "tenant2", bk.ID, Cancelled); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("other tenant err = %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "land1", bk.ID, Confirmed); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("landlord err = %v", err)
	}

	got, err := s.UpdateStatus(ctx, "agent1", bk.ID, Confirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != Confirmed {
		t.Errorf("status = %q", got.Status)
	}

	rows, err := b.Select(ctx, backend.From("notifications").Eq("user_id", "tenant1"))
	if err != nil {
		t.Fatalf("select notifications: %v", err)
	}
	if len(rows) != 1 || rows[0].String("type") != notification.TypeBooking || rows[0].String("related_entity_id") != bk.ID {
		t.Errorf("notifications = %v", rows)
	}

	if _, err := s.UpdateStatus(ctx, "tenant1", bk.ID, Cancelled); err != nil {
		t.Errorf("tenant cancel: %v", err)
	}
	if n := len(mustSelect(t, b, "tenant1")); n != 1 {
		t.Errorf("cancelling should not notify, got %d notifications", n)
	}
}

func mustSelect(t *testing.T, b *sqlite.Backend, user string) []backend.Row {
	t.Helper()
	rows, err := b.Select(context.Background(), backend.From("notifications").Eq("user_id", user))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return rows
}

func TestUpcomingCount(t *testing.T) {
	s, _, propID := testSetup(t)
	ctx := context.Background()

	a := book(t, s, "tenant1", propID)
	book(t, s, "tenant1", propID)
	c := book(t, s, "tenant1", propID)
	if _, err := s.UpdateStatus(ctx, "agent1", a.ID, Confirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "agent1", c.ID, Completed); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := s.UpcomingCount(ctx, "tenant1"); got != 2 {
		t.Errorf("upcoming = %d, want 2", got)
	}
}

func TestDelete(t *testing.T) {
	s, _, propID := testSetup(t)
	ctx := context.Background()
	bk := book(t, s, "tenant1", propID)

	if err := s.Delete(ctx, "tenant1", bk.ID); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("tenant delete err = %v", err)
	}
	if err := s.Delete(ctx, "admin1", bk.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := s.Get(ctx, bk.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		s        Status
		valid    bool
		upcoming bool
		label    string
	}{
		{Pending, true, true, "Pending"},
		{Confirmed, true, true, "Confirmed"},
		{Cancelled, true, false, "Cancelled"},
		{Completed, true, false, "Completed"},
		{"archived", false, false, "archived"},
	}
	for _, tt := range tests {
		if tt.s.IsValid() != tt.valid || tt.s.Upcoming() != tt.upcoming || tt.s.Label() != tt.label {
			t.Errorf("%q: valid=%v upcoming=%v label=%q", tt.s, tt.s.IsValid(), tt.s.Upcoming(), tt.s.Label())
		}
	}
}
