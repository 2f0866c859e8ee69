package cli

import (
	"strings"
	"testing"

	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/chat"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/property"
)

func login(t *testing.T, cfg, email, password string) {
	t.Helper()
	sr(t, cfg, "login", "--email", email, "--password", password)
}

func addLekkiFlat(t *testing.T, cfg string) property.Property {
	t.Helper()
	var p property.Property
	srJSON(t, cfg, &p, "properties", "add",
		"--title", "Lekki garden flat",
		"--address", "12 Admiralty Way, Lekki",
		"--price", "1200000",
		"--type", "apartment",
		"--bedrooms", "2",
		"--bathrooms", "2",
		"--amenity", "wifi",
		"--amenity", "parking")
	if p.ID == "" {
		t.Fatal("added property has no id")
	}
	return p
}

func TestRentingFlow(t *testing.T) {
	cfg := testConfig(t)

	signUp(t, cfg, "chidi@example.com", "Chidi Eze", "landlord")
	flat := addLekkiFlat(t, cfg)
	if flat.LandlordID == "" || flat.IsVerified {
		t.Fatalf("new listing = %+v", flat)
	}

	var mine []property.Card
	srJSON(t, cfg, &mine, "properties", "mine")
	if len(mine) != 1 || mine[0].ID != flat.ID {
		t.Errorf("mine = %+v", mine)
	}

	signUp(t, cfg, "ada@example.com", "Ada Obi", "tenant")

	var found searchResult
	srJSON(t, cfg, &found, "search", "lekki", "--bedrooms", "2")
	if found.Total != 1 || len(found.Results) != 1 || found.Results[0].Price != "₦1,200,000/month" {
		t.Errorf("search = %+v", found)
	}

	var b booking.Booking
	srJSON(t, cfg, &b, "bookings", "add", flat.ID, "2099-01-10", "--time", "14:30", "--notes", "after work")
	if b.Status != booking.Pending || b.PropertyID != flat.ID {
		t.Errorf("booking = %+v", b)
	}
	var bookings []booking.Booking
	srJSON(t, cfg, &bookings, "bookings")
	if len(bookings) != 1 {
		t.Errorf("bookings = %d, want 1", len(bookings))
	}

	out := sr(t, cfg, "messages", "send", flat.LandlordID, "Is", "it", "still", "available?", "--property", flat.ID)
	if !strings.Contains(out, "Message sent.") {
		t.Errorf("send output = %q", out)
	}

	var started payResult
	srJSON(t, cfg, &started, "pay", flat.ID, "1,200,000", "--browser=false")
	if started.Payment.Status != payment.Pending || started.Payment.Amount != 1200000 {
		t.Fatalf("pay = %+v", started.Payment)
	}
	if started.Checkout.Reference != started.Payment.ID {
		t.Errorf("reference = %q, want payment id", started.Checkout.Reference)
	}

	out = sr(t, cfg, "pay", "verify", started.Payment.ID)
	if !strings.Contains(out, "completed") {
		t.Errorf("verify output = %q", out)
	}
	if _, _, err := executeCommand("--config", cfg, "pay", "verify", started.Payment.ID); err == nil {
		t.Error("second verify settled again")
	}

	var paid paymentsResult
	srJSON(t, cfg, &paid, "payments")
	if paid.Stats.Completed != 1 || paid.Stats.TotalAmount != 1200000 {
		t.Errorf("stats = %+v", paid.Stats)
	}
	receipt := sr(t, cfg, "payments", "receipt", started.Payment.ID)
	if !strings.HasPrefix(receipt, "data:") {
		t.Errorf("receipt = %.40q", receipt)
	}

	login(t, cfg, "chidi@example.com", "Secret123")

	var notes notificationsResult
	srJSON(t, cfg, &notes, "notifications")
	if notes.Unread < 2 {
		t.Errorf("unread = %d, want message and payment notifications", notes.Unread)
	}
	sr(t, cfg, "notifications", "read", "--all")
	srJSON(t, cfg, &notes, "notifications")
	if notes.Unread != 0 {
		t.Errorf("unread after read --all = %d", notes.Unread)
	}

	var convs []chat.Conversation
	srJSON(t, cfg, &convs, "messages")
	if len(convs) != 1 || convs[0].UnreadCount != 1 {
		t.Fatalf("conversations = %+v", convs)
	}
	var thread []chat.Message
	srJSON(t, cfg, &thread, "messages", "show", convs[0].OtherUserID)
	if len(thread) != 1 || thread[0].Content != "Is it still available?" {
		t.Errorf("thread = %+v", thread)
	}

	var received paymentsResult
	srJSON(t, cfg, &received, "payments")
	if len(received.Payments) != 1 {
		t.Errorf("landlord payments = %d, want 1", len(received.Payments))
	}

	var stats analytics.PropertyStats
	srJSON(t, cfg, &stats, "analytics", "--property", flat.ID, "--period", "7d")
	if stats.TotalInquiries != 1 {
		t.Errorf("inquiries = %d, want 1", stats.TotalInquiries)
	}

	var v dashboard.View
	srJSON(t, cfg, &v, "dashboard")
	if v.Role != "landlord" || v.Section != dashboard.Overview {
		t.Errorf("dashboard = %s/%s", v.Role, v.Section)
	}
}

func TestAdminVerifiesListing(t *testing.T) {
	cfg := testConfig(t)

	signUp(t, cfg, "chidi@example.com", "Chidi Eze", "landlord")
	flat := addLekkiFlat(t, cfg)

	var featured []property.Card
	srJSON(t, cfg, &featured, "properties")
	if len(featured) != 0 {
		t.Fatalf("unverified listing featured: %+v", featured)
	}

	if _, _, err := executeCommand("--config", cfg, "properties", "verify", flat.ID); err == nil {
		t.Error("landlord verified a listing")
	}

	sr(t, cfg, "auth", "seed-demo")
	login(t, cfg, "admin@smartrent.com", "admin123")
	sr(t, cfg, "properties", "verify", flat.ID)

	srJSON(t, cfg, &featured, "properties")
	if len(featured) != 1 || featured[0].ID != flat.ID {
		t.Errorf("featured = %+v", featured)
	}

	var st analytics.AdminStats
	srJSON(t, cfg, &st, "analytics")
	if st.TotalProperties != 1 || st.UserStats["admin"] != 1 {
		t.Errorf("admin analytics = %+v", st)
	}
}

func TestSeedDemoTwice(t *testing.T) {
	cfg := testConfig(t)

	var first []seedRow
	srJSON(t, cfg, &first, "auth", "seed-demo")
	if len(first) != 4 {
		t.Fatalf("seeded %d accounts, want 4", len(first))
	}
	for _, r := range first {
		if r.Status != "created" {
			t.Errorf("%s: status %q, want created", r.Email, r.Status)
		}
	}

	out := sr(t, cfg, "auth", "seed-demo")
	if strings.Count(out, "exists") != 4 {
		t.Errorf("second seed = %q", out)
	}
}
