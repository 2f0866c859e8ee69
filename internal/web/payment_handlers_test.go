package web

import (
	"net/http"
	"strings"
	"testing"
)

type paymentFixture struct {
	env      *testEnv
	landlord user
	tenant   user
	property string
}

func newPaymentFixture(t *testing.T) paymentFixture {
	t.Helper()
	env := newTestEnv(t)
	f := paymentFixture{
		env:      env,
		landlord: env.signUp(t, "chidi@example.com", "Chidi Eze", "landlord"),
		tenant:   env.signUp(t, "ada@example.com", "Ada Obi", "tenant"),
	}
	f.property = env.createProperty(t, f.landlord, "Lekki garden flat", "12 Admiralty Way, Lekki", 1200000)
	return f
}

func (f paymentFixture) initiate(t *testing.T) string {
	t.Helper()
	return f.initiateAmount(t, 1200000)
}

func (f paymentFixture) initiateAmount(t *testing.T, amount float64) string {
	t.Helper()
	w := f.env.request(t, http.MethodPost, "/api/payments", f.tenant.Token, map[string]any{
		"property_id": f.property,
		"amount":      amount,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Payment struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			LandlordID string `json:"landlord_id"`
			Method     string `json:"method"`
		} `json:"payment"`
		Checkout struct {
			Reference string `json:"reference"`
		} `json:"checkout"`
	}
	decodeJSON(t, w, &resp)
	if resp.Payment.Status != "pending" || resp.Payment.LandlordID != f.landlord.ID || resp.Payment.Method != "paystack" {
		t.Fatalf("payment = %+v", resp.Payment)
	}
	if resp.Checkout.Reference != resp.Payment.ID {
		t.Fatalf("reference = %q, want payment id %q", resp.Checkout.Reference, resp.Payment.ID)
	}
	return resp.Payment.ID
}

func (f paymentFixture) callback(t *testing.T, id string) (int, map[string]any) {
	t.Helper()
	return f.callbackWith(t, id, id)
}

func (f paymentFixture) callbackWith(t *testing.T, id, reference string) (int, map[string]any) {
	t.Helper()
	w := f.env.request(t, http.MethodPost, "/api/payments/"+id+"/callback", "", map[string]string{"reference": reference})
	var body map[string]any
	decodeJSON(t, w, &body)
	return w.Code, body
}

// statuses maps the tenant's payment ids to their status.
func (f paymentFixture) statuses(t *testing.T) map[string]string {
	t.Helper()
	w := f.env.request(t, http.MethodGet, "/api/payments", f.tenant.Token, nil)
	var list struct {
		Payments []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payments"`
	}
	decodeJSON(t, w, &list)
	out := make(map[string]string, len(list.Payments))
	for _, p := range list.Payments {
		out[p.ID] = p.Status
	}
	return out
}

func TestCallbackRejectsForeignReference(t *testing.T) {
	f := newPaymentFixture(t)
	cheap := f.initiateAmount(t, 1)
	big := f.initiateAmount(t, 5000000)
	other := f.initiate(t)
	f.env.paidRef.Store(cheap)

	if code, body := f.callbackWith(t, big, cheap); code != http.StatusBadRequest {
		t.Errorf("big with cheap reference: status %d, want 400: %v", code, body)
	}
	if code, body := f.callbackWith(t, other, "made-up"); code != http.StatusBadRequest {
		t.Errorf("made-up reference: status %d, want 400: %v", code, body)
	}

	got := f.statuses(t)
	if got[big] != "pending" || got[other] != "pending" {
		t.Errorf("statuses after rejected callbacks = %v, want both pending", got)
	}

	if code, body := f.callback(t, cheap); code != http.StatusOK || body["status"] != "completed" {
		t.Errorf("cheap callback: status %d: %v", code, body)
	}
	if code, _ := f.callback(t, big); code != http.StatusPaymentRequired {
		t.Errorf("big with own unpaid reference: status %d, want 402", code)
	}
}

func TestPaymentCompletes(t *testing.T) {
	f := newPaymentFixture(t)
	id := f.initiate(t)

	code, body := f.callback(t, id)
	if code != http.StatusOK {
		t.Fatalf("callback: status %d: %v", code, body)
	}
	if body["status"] != "completed" {
		t.Errorf("status = %v, want completed", body["status"])
	}
	if url, _ := body["receipt_url"].(string); !strings.HasPrefix(url, "data:") {
		t.Errorf("receipt_url = %q", url)
	}

	if code, _ := f.callback(t, id); code != http.StatusConflict {
		t.Errorf("second callback status = %d, want 409", code)
	}

	w := f.env.request(t, http.MethodGet, "/api/payments", f.landlord.Token, nil)
	var list struct {
		Stats struct {
			Total       int     `json:"total"`
			Completed   int     `json:"completed"`
			TotalAmount float64 `json:"totalAmount"`
		} `json:"stats"`
		Payments []map[string]any `json:"payments"`
	}
	decodeJSON(t, w, &list)
	if list.Stats.Total != 1 || list.Stats.Completed != 1 || list.Stats.TotalAmount != 1200000 {
		t.Errorf("landlord stats = %+v", list.Stats)
	}

	w = f.env.request(t, http.MethodGet, "/api/notifications", f.landlord.Token, nil)
	var notes struct {
		Notifications []struct {
			Title string `json:"title"`
		} `json:"notifications"`
		Unread int `json:"unread"`
	}
	decodeJSON(t, w, &notes)
	if notes.Unread != 1 || len(notes.Notifications) != 1 || notes.Notifications[0].Title != "Payment Received" {
		t.Errorf("landlord notifications = %+v", notes)
	}
}

func TestPaymentDeclined(t *testing.T) {
	f := newPaymentFixture(t)
	f.env.approve.Store(false)
	id := f.initiate(t)

	if code, body := f.callback(t, id); code != http.StatusPaymentRequired {
		t.Fatalf("callback status = %d, want 402: %v", code, body)
	}

	w := f.env.request(t, http.MethodGet, "/api/payments", f.tenant.Token, nil)
	var list struct {
		Payments []struct {
			Status string `json:"status"`
		} `json:"payments"`
	}
	decodeJSON(t, w, &list)
	if len(list.Payments) != 1 || list.Payments[0].Status != "failed" {
		t.Errorf("payments = %+v", list.Payments)
	}

	if w := f.env.request(t, http.MethodGet, "/api/payments/"+id+"/receipt", f.tenant.Token, nil); w.Code != http.StatusConflict {
		t.Errorf("receipt of failed payment status = %d, want 409", w.Code)
	}
}

func TestReceiptAccess(t *testing.T) {
	f := newPaymentFixture(t)
	stranger := f.env.signUp(t, "bola@example.com", "Bola Ade", "tenant")
	id := f.initiate(t)
	if code, body := f.callback(t, id); code != http.StatusOK {
		t.Fatalf("callback: status %d: %v", code, body)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"tenant", f.tenant.Token, http.StatusOK},
		{"landlord", f.landlord.Token, http.StatusOK},
		{"stranger", stranger.Token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.env.request(t, http.MethodGet, "/api/payments/"+id+"/receipt", tt.token, nil)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var r struct {
				ReceiptURL string `json:"receipt_url"`
			}
			decodeJSON(t, w, &r)
			if !strings.HasPrefix(r.ReceiptURL, "data:text/html") {
				t.Errorf("receipt_url = %q", r.ReceiptURL)
			}
		})
	}
}

func TestInitiatePaymentRejects(t *testing.T) {
	f := newPaymentFixture(t)
	tests := []struct {
		name  string
		token string
		body  map[string]any
		want  int
	}{
		{"landlord cannot pay", f.landlord.Token, map[string]any{"property_id": f.property, "amount": 100}, http.StatusForbidden},
		{"zero amount", f.tenant.Token, map[string]any{"property_id": f.property, "amount": 0}, http.StatusBadRequest},
		{"unknown property", f.tenant.Token, map[string]any{"property_id": "missing", "amount": 100}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := f.env.request(t, http.MethodPost, "/api/payments", tt.token, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCallbackUnknownPayment(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/payments/missing/callback", "", map[string]string{"reference": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
