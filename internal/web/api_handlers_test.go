package web

import (
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"
)

func (e *testEnv) createProperty(t *testing.T, owner user, title, address string, price float64) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/properties", owner.Token, map[string]any{
		"title":         title,
		"address":       address,
		"price":         price,
		"bedrooms":      2,
		"bathrooms":     1,
		"property_type": "apartment",
		"amenities":     []string{"wifi", "parking"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create property: status %d: %s", w.Code, w.Body.String())
	}
	var p struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &p)
	return p.ID
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")

	tests := []struct {
		path    string
		section string
	}{
		{"/api/dashboard", "overview"},
		{"/api/dashboard/favorites", "favorites"},
		{"/api/dashboard/approvals", "overview"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.request(t, http.MethodGet, tt.path, tenant.Token, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status %d: %s", w.Code, w.Body.String())
			}
			var v struct {
				Role     string   `json:"role"`
				Section  string   `json:"section"`
				Sections []string `json:"sections"`
			}
			decodeJSON(t, w, &v)
			if v.Role != "tenant" || v.Section != tt.section || len(v.Sections) != 7 {
				t.Errorf("view = %+v", v)
			}
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")
	admin := env.signUp(t, "admin@example.com", "Admin User", "admin")

	if w := env.request(t, http.MethodGet, "/api/admin/overview", tenant.Token, nil); w.Code != http.StatusForbidden {
		t.Errorf("tenant admin overview status = %d, want 403", w.Code)
	}
	if w := env.request(t, http.MethodGet, "/api/admin/users", tenant.Token, nil); w.Code != http.StatusForbidden {
		t.Errorf("tenant users status = %d, want 403", w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/admin/overview?period=7d", admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin overview: status %d: %s", w.Code, w.Body.String())
	}

	w = env.request(t, http.MethodGet, "/api/admin/users", admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("users: status %d", w.Code)
	}
	var users struct {
		Users  []map[string]any `json:"users"`
		ByRole map[string]int   `json:"by_role"`
	}
	decodeJSON(t, w, &users)
	if len(users.Users) != 2 || users.ByRole["tenant"] != 1 || users.ByRole["admin"] != 1 {
		t.Errorf("users = %+v", users)
	}

	if w := env.request(t, http.MethodGet, "/api/admin/users?since=yesterday", admin.Token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", w.Code)
	}
}

func TestPropertyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord")
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")

	id := env.createProperty(t, landlord, "Lekki garden flat", "12 Admiralty Way, Lekki", 1200000)
	env.createProperty(t, landlord, "Yaba mini flat", "4 Herbert Macaulay, Yaba", 450000)

	if w := env.request(t, http.MethodPost, "/api/properties", tenant.Token, map[string]any{
		"title": "Tenant listing", "address": "Somewhere nice", "price": 10, "property_type": "house",
	}); w.Code != http.StatusForbidden {
		t.Errorf("tenant create status = %d, want 403", w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/properties?location=lekki", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: status %d", w.Code)
	}
	var res struct {
		Results []struct {
			ID    string `json:"id"`
			Price string `json:"price"`
		} `json:"results"`
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	}
	decodeJSON(t, w, &res)
	if res.Total != 1 || len(res.Results) != 1 || res.Results[0].ID != id || res.HasMore {
		t.Fatalf("search = %+v", res)
	}
	if res.Results[0].Price != "₦1,200,000/month" {
		t.Errorf("price = %q", res.Results[0].Price)
	}

	if w := env.request(t, http.MethodGet, "/api/properties/"+id, tenant.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	if w := env.request(t, http.MethodGet, "/api/properties/missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}

	w = env.request(t, http.MethodGet, "/api/analytics/properties/"+id, landlord.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("property analytics: status %d", w.Code)
	}
	var stats struct {
		TotalViews int `json:"total_views"`
	}
	decodeJSON(t, w, &stats)
	if stats.TotalViews != 1 {
		t.Errorf("views = %d, want 1", stats.TotalViews)
	}
	if w := env.request(t, http.MethodGet, "/api/analytics/properties/"+id, tenant.Token, nil); w.Code != http.StatusForbidden {
		t.Errorf("tenant analytics status = %d, want 403", w.Code)
	}

	if w := env.request(t, http.MethodPost, "/api/properties/"+id+"/favorite", tenant.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("favorite: status %d: %s", w.Code, w.Body.String())
	}
	w = env.request(t, http.MethodGet, "/api/favorites", tenant.Token, nil)
	var favs []map[string]any
	decodeJSON(t, w, &favs)
	if len(favs) != 1 || favs[0]["id"] != id {
		t.Errorf("favorites = %v", favs)
	}
	if w := env.request(t, http.MethodDelete, "/api/properties/"+id+"/favorite", tenant.Token, nil); w.Code != http.StatusOK {
		t.Errorf("unfavorite: status %d", w.Code)
	}
}

func TestSearchPaging(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord")
	for i := 0; i < 14; i++ {
		env.createProperty(t, landlord, "Surulere flat "+string(rune('A'+i)), "Adeniran Ogunsanya, Surulere", 300000)
	}

	tests := []struct {
		query   string
		visible int
		hasMore bool
	}{
		{"", 12, true},
		{"?page=2", 14, false},
		{"?page=9", 14, false},
		{"?page=bogus", 12, true},
	}
	for _, tt := range tests {
		w := env.request(t, http.MethodGet, "/api/properties"+tt.query, "", nil)
		var res struct {
			Results []any `json:"results"`
			Total   int   `json:"total"`
			HasMore bool  `json:"has_more"`
		}
		decodeJSON(t, w, &res)
		if len(res.Results) != tt.visible || res.Total != 14 || res.HasMore != tt.hasMore {
			t.Errorf("%q: visible %d total %d more %v", tt.query, len(res.Results), res.Total, res.HasMore)
		}
	}
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/api/search/suggestions?q=lek", "", nil)
	var got []string
	decodeJSON(t, w, &got)
	if !reflect.DeepEqual(got, []string{"Lekki"}) {
		t.Errorf("suggestions = %v", got)
	}
}

func TestBookings(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord")
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")
	id := env.createProperty(t, landlord, "Ikoyi penthouse", "1 Bourdillon Road, Ikoyi", 5000000)

	w := env.request(t, http.MethodPost, "/api/bookings", tenant.Token, map[string]any{
		"property_id":   id,
		"scheduled_for": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"notes":         "Morning works best",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create booking: status %d: %s", w.Code, w.Body.String())
	}
	var b struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, w, &b)
	if b.Status != "pending" {
		t.Errorf("status = %q, want pending", b.Status)
	}

	w = env.request(t, http.MethodGet, "/api/bookings", tenant.Token, nil)
	var list []map[string]any
	decodeJSON(t, w, &list)
	if len(list) != 1 {
		t.Errorf("bookings = %d, want 1", len(list))
	}

	if w := env.request(t, http.MethodPatch, "/api/bookings/"+b.ID, tenant.Token, map[string]string{"status": "maybe"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d, want 400", w.Code)
	}
	if w := env.request(t, http.MethodPost, "/api/bookings", tenant.Token, map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty booking code = %d, want 400", w.Code)
	}
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord")
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")

	w := env.request(t, http.MethodPost, "/api/messages", tenant.Token, map[string]string{
		"receiver_id": landlord.ID,
		"content":     "Is the flat still available?",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: status %d: %s", w.Code, w.Body.String())
	}

	unread := func() int {
		t.Helper()
		w := env.request(t, http.MethodGet, "/api/conversations", landlord.Token, nil)
		var convs []struct {
			UnreadCount int `json:"unread_count"`
		}
		decodeJSON(t, w, &convs)
		if len(convs) != 1 {
			t.Fatalf("conversations = %d, want 1", len(convs))
		}
		return convs[0].UnreadCount
	}
	if n := unread(); n != 1 {
		t.Errorf("unread before reading = %d, want 1", n)
	}

	w = env.request(t, http.MethodGet, "/api/messages?with="+tenant.ID, landlord.Token, nil)
	var thread []struct {
		Content string `json:"content"`
	}
	decodeJSON(t, w, &thread)
	if len(thread) != 1 || !strings.Contains(thread[0].Content, "available") {
		t.Errorf("thread = %+v", thread)
	}
	if n := unread(); n != 0 {
		t.Errorf("unread after reading = %d, want 0", n)
	}

	if w := env.request(t, http.MethodGet, "/api/messages", landlord.Token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing with status = %d, want 400", w.Code)
	}
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord")
	tenant := env.signUp(t, "ada@example.com", "Ada Obi", "tenant")

	env.request(t, http.MethodPost, "/api/messages", tenant.Token, map[string]string{
		"receiver_id": landlord.ID,
		"content":     "Hello",
	})

	w := env.request(t, http.MethodGet, "/api/notifications", landlord.Token, nil)
	var resp struct {
		Notifications []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"notifications"`
		Unread int `json:"unread"`
	}
	decodeJSON(t, w, &resp)
	if len(resp.Notifications) != 1 || resp.Unread != 1 {
		t.Fatalf("notifications = %+v", resp)
	}
	id := resp.Notifications[0].ID

	if w := env.request(t, http.MethodPost, "/api/notifications/"+id+"/read", tenant.Token, nil); w.Code != http.StatusNotFound {
		t.Errorf("other user's notification status = %d, want 404", w.Code)
	}
	if w := env.request(t, http.MethodPost, "/api/notifications/"+id+"/read", landlord.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("mark read: status %d", w.Code)
	}

	w = env.request(t, http.MethodGet, "/api/notifications", landlord.Token, nil)
	decodeJSON(t, w, &resp)
	if resp.Unread != 0 {
		t.Errorf("unread = %d, want 0", resp.Unread)
	}
}
