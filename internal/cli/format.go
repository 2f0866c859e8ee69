package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/chat"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table is a tabwriter that remembers its first write error.
type table struct {
	tw  *tabwriter.Writer
	err error
}

// newTable starts a table with a header row and a dashed separator.
func newTable(w io.Writer, header ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.row(header...)
	seps := make([]string, len(header))
	for i, h := range header {
		seps[i] = strings.Repeat("-", len(h))
	}
	t.row(seps...)
	return t
}

func (t *table) row(cols ...string) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintln(t.tw, strings.Join(cols, "\t")); err != nil {
		t.err = fmt.Errorf("writing table row: %w", err)
	}
}

func (t *table) flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printPropertyTable prints listing cards as a table.
func printPropertyTable(w io.Writer, cards []property.Card) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No properties found.")
		return err
	}

	t := newTable(w, "ID", "TITLE", "PRICE", "BED", "BATH", "TYPE", "")
	for _, c := range cards {
		t.row(c.ID, format.Truncate(c.Title, 32), c.Price,
			fmt.Sprint(c.Bedrooms), fmt.Sprint(c.Bathrooms), c.TypeLabel, strings.Join(c.Badges, ", "))
	}
	if err := t.flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal: %d properties\n", len(cards))
	return err
}

// printPropertySummary prints a single listing in text format.
func printPropertySummary(w io.Writer, p property.Property) {
	c := property.NewCard(p)
	fmt.Fprintf(w, "%s\n", p.Title)
	fmt.Fprintf(w, "  ID:        %s\n", p.ID)
	fmt.Fprintf(w, "  Address:   %s\n", p.Address)
	fmt.Fprintf(w, "  Price:     %s\n", c.Price)
	fmt.Fprintf(w, "  Type:      %s\n", c.TypeLabel)
	fmt.Fprintf(w, "  Features:  %s\n", c.Features())
	if len(p.Amenities) > 0 {
		fmt.Fprintf(w, "  Amenities: %s\n", strings.Join(p.Amenities, ", "))
	}
	if len(c.Badges) > 0 {
		fmt.Fprintf(w, "  Status:    %s\n", strings.Join(c.Badges, ", "))
	}
	if c.AgentName != "" {
		fmt.Fprintf(w, "  Agent:     %s\n", c.AgentName)
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
}

func printBookings(w io.Writer, list []booking.Booking) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No bookings.")
		return err
	}
	t := newTable(w, "ID", "PROPERTY", "WHEN", "STATUS")
	for _, b := range list {
		title := b.PropertyID
		if b.Property != nil {
			title = format.Truncate(b.Property.Title, 32)
		}
		when := "-"
		if b.ScheduledFor != nil {
			when = format.DateTime(*b.ScheduledFor)
		}
		t.row(b.ID, title, when, b.Status.Label())
	}
	return t.flush()
}

func printConversations(w io.Writer, list []chat.Conversation, now time.Time) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No conversations.")
		return err
	}
	t := newTable(w, "WITH", "USER ID", "LAST MESSAGE", "WHEN", "UNREAD")
	for _, c := range list {
		name := "-"
		if c.OtherUser != nil {
			name = c.OtherUser.FullName
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprint(c.UnreadCount)
		}
		t.row(name, c.OtherUserID, format.Truncate(c.LastMessage.Content, 40),
			format.Ago(c.LastMessage.CreatedAt, now), unread)
	}
	return t.flush()
}

// printMessages prints a thread oldest first; me marks the caller's side.
func printMessages(w io.Writer, list []chat.Message, me string) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for _, m := range list {
		who := "them"
		switch {
		case m.SenderID == me:
			who = "you"
		case m.Sender != nil && m.Sender.FullName != "":
			who = m.Sender.FullName
		}
		fmt.Fprintf(w, "[%s] %s\n  %s\n\n", format.DateTime(m.CreatedAt), who, m.Content)
	}
}

func printNotifications(w io.Writer, list []notification.Notification, unread int, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	for _, n := range list {
		mark := " "
		if !n.IsRead {
			mark = "•"
		}
		fmt.Fprintf(w, "%s %s (%s)\n    %s\n    id: %s\n", mark, n.Title, format.Ago(n.CreatedAt, now), n.Message, n.ID)
	}
	fmt.Fprintf(w, "\n%d unread\n", unread)
}

func printPayments(w io.Writer, list []payment.Payment, stats payment.Stats) error {
	fmt.Fprintf(w, "Payments: %d total, %d completed, %d pending, %s paid\n\n",
		stats.Total, stats.Completed, stats.Pending, format.Naira(stats.TotalAmount))
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No payments.")
		return err
	}
	t := newTable(w, "ID", "PROPERTY", "AMOUNT", "STATUS", "DATE")
	for _, p := range list {
		title := "-"
		if p.Property != nil {
			title = format.Truncate(p.Property.Title, 28)
		}
		date := p.CreatedAt
		if p.PaidAt != nil {
			date = *p.PaidAt
		}
		t.row(p.ID, title, format.Currency(p.Amount, p.Currency), format.Title(string(p.Status)), format.Date(date))
	}
	return t.flush()
}

func printProfile(w io.Writer, p profile.Profile) {
	fmt.Fprintf(w, "%s\n", p.FullName)
	fmt.Fprintf(w, "  ID:     %s\n", p.ID)
	fmt.Fprintf(w, "  Role:   %s\n", format.Title(p.Role))
	if p.Email != "" {
		fmt.Fprintf(w, "  Email:  %s\n", p.Email)
	}
	if p.Phone != "" {
		fmt.Fprintf(w, "  Phone:  %s\n", p.Phone)
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  Joined: %s\n", format.Date(p.CreatedAt))
	}
}

func printUsers(w io.Writer, list []profile.Profile) error {
	t := newTable(w, "ID", "NAME", "EMAIL", "ROLE", "JOINED")
	for _, p := range list {
		t.row(p.ID, p.FullName, p.Email, p.Role, format.Date(p.CreatedAt))
	}
	return t.flush()
}

// printSeries prints a date series as "date  value" lines.
func printSeries(w io.Writer, label string, points []analytics.Point, money bool) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", label)
	for _, p := range points {
		v := fmt.Sprintf("%g", p.Value)
		if money {
			v = format.Naira(p.Value)
		}
		fmt.Fprintf(w, "  %s  %s\n", p.Date, v)
	}
}

func printUserStats(w io.Writer, s analytics.UserStats) {
	fmt.Fprintf(w, "Properties: %d\nBookings:   %d\nPayments:   %d\nRevenue:    %s\n",
		s.Properties, s.Bookings, s.Payments, format.Naira(s.Revenue))
	printSeries(w, "Bookings", s.BookingsData, false)
	printSeries(w, "Revenue", s.RevenueData, true)
}

func printAdminStats(w io.Writer, s analytics.AdminStats) {
	fmt.Fprintf(w, "Users:      %d\nProperties: %d\nBookings:   %d\nRevenue:    %s\n",
		s.TotalUsers, s.TotalProperties, s.TotalBookings, format.Naira(s.TotalRevenue))
	for _, role := range []string{"tenant", "agent", "landlord", "admin"} {
		if n := s.UserStats[role]; n > 0 {
			fmt.Fprintf(w, "  %-9s %d\n", role+":", n)
		}
	}
	printSeries(w, "New properties", s.PropertiesData, false)
	printSeries(w, "Revenue", s.RevenueData, true)
}

// printView prints a dashboard section. Sections without a text layout
// fall back to JSON.
func printView(w io.Writer, v *dashboard.View) error {
	fmt.Fprintf(w, "%s · %s\n\n", format.Title(v.Role), v.Title)
	if v.Placeholder != "" {
		_, err := fmt.Fprintln(w, v.Placeholder)
		return err
	}

	switch d := v.Data.(type) {
	case dashboard.TenantOverview:
		s := d.Stats
		fmt.Fprintf(w, "Favorites: %d   Payments: %d   Upcoming bookings: %d   Unread messages: %d\n\n",
			s.Favorites, s.CompletedPayments, s.UpcomingBookings, s.UnreadMessages)
		if err := printPropertyTable(w, d.RecentFavorites); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return printPayments(w, d.RecentPayments, payment.ComputeStats(d.RecentPayments))
	case dashboard.AgentOverview:
		s := d.Stats
		fmt.Fprintf(w, "Properties: %d   Active: %d   Inquiries: %d   Revenue: %s\n\n",
			s.TotalProperties, s.ActiveListings, s.Inquiries, format.Naira(s.Revenue))
		return printPropertyTable(w, property.Cards(d.RecentProperties))
	case dashboard.LandlordOverview:
		s := d.Stats
		fmt.Fprintf(w, "Properties: %d   Occupied: %d (%d%%)   Pending payments: %d   Revenue: %s\n\n",
			s.Properties, s.OccupiedUnits, s.OccupancyRate, s.PendingPayments, format.Naira(s.Revenue))
		return printPayments(w, d.RecentPayments, payment.ComputeStats(d.RecentPayments))
	case dashboard.AdminOverview:
		printAdminStats(w, d.Stats)
		return nil
	case dashboard.AnalyticsView:
		fmt.Fprintf(w, "Last %s\n\n", d.Period)
		printUserStats(w, d.Stats)
		return nil
	case dashboard.AdminAnalyticsView:
		fmt.Fprintf(w, "Last %s\n\n", d.Period)
		printAdminStats(w, d.Stats)
		return nil
	case dashboard.TenantPayments:
		return printPayments(w, d.Payments, d.Stats)
	case []payment.Payment:
		return printPayments(w, d, payment.ComputeStats(d))
	case []property.Card:
		return printPropertyTable(w, d)
	case []property.Property:
		return printPropertyTable(w, property.Cards(d))
	case []booking.Booking:
		return printBookings(w, d)
	case []chat.Conversation:
		return printConversations(w, d, time.Now())
	case []profile.Profile:
		return printUsers(w, d)
	case *profile.Profile:
		printProfile(w, *d)
		return nil
	case []dashboard.TenantSummary:
		t := newTable(w, "TENANT", "EMAIL", "PAYMENTS", "PAID")
		for _, s := range d {
			t.row(s.Tenant.FullName, s.Tenant.Email, fmt.Sprint(s.Payments), format.Naira(s.Paid))
		}
		return t.flush()
	}
	return printJSON(w, v.Data)
}
