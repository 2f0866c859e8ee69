package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/config"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/property"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Backend.SQLitePath = filepath.Join(dir, "smartrent.db")
	cfg.Auth.JWTSecret = "test-secret"
	return cfg, filepath.Join(dir, "config.yaml")
}

func testApp(t *testing.T) *App {
	t.Helper()
	cfg, path := testConfig(t)
	a, err := New(context.Background(), cfg, Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewLocal(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	s, err := a.Auth.SignUp(ctx, auth.SignUpParams{
		Email:    "bola@example.com",
		Password: "Secret123",
		Metadata: map[string]any{"full_name": "Bola Agent", "role": access.Agent},
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	u, err := a.CurrentUser(ctx, s.AccessToken)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if _, err := a.Profiles.Ensure(ctx, *u); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	v, err := a.Dashboard().Load(ctx, u.ID)
	if err != nil {
		t.Fatalf("load dashboard: %v", err)
	}
	if v.Role != access.Agent {
		t.Errorf("role = %q, want agent", v.Role)
	}
}

func TestCurrentUserRejects(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	if _, err := a.CurrentUser(ctx, ""); !errors.Is(err, dashboard.ErrNotAuthenticated) {
		t.Errorf("empty token err = %v", err)
	}
	if _, err := a.CurrentUser(ctx, "garbage"); !errors.Is(err, dashboard.ErrNotAuthenticated) {
		t.Errorf("bad token err = %v", err)
	}
}

func TestPaymentsWithoutGateway(t *testing.T) {
	a := testApp(t)
	_, err := a.Payments.Initiate(context.Background(), "tenant1", payment.Request{PropertyID: "p1", Amount: 10})
	if !errors.Is(err, payment.ErrNoGateway) {
		t.Errorf("err = %v, want ErrNoGateway", err)
	}
}

func TestGateway(t *testing.T) {
	tests := []struct {
		name    string
		pay     config.PaymentConfig
		want    string
		wantErr bool
	}{
		{"http", config.PaymentConfig{Gateway: "http", VerifyURL: "https://pay.example.com/verify"}, "paystack", false},
		{"http without verify url", config.PaymentConfig{Gateway: "http"}, "", true},
		{"midtrans", config.PaymentConfig{Gateway: "midtrans", MidtransServerKey: "SB-key"}, "midtrans", false},
		{"midtrans without key", config.PaymentConfig{Gateway: "midtrans"}, "", true},
		{"unknown", config.PaymentConfig{Gateway: "cash"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Payment = tt.pay
			gw, err := Gateway(cfg)
			if tt.wantErr {
				if err == nil || gw != nil {
					t.Errorf("Gateway() = %v, %v; want error and nil gateway", gw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Gateway() err = %v", err)
			}
			if gw.Name() != tt.want {
				t.Errorf("name = %q, want %q", gw.Name(), tt.want)
			}
		})
	}
}

func TestSearchUsesFileHistory(t *testing.T) {
	a := testApp(t)
	_, path := testConfig(t)

	s, err := a.Search("user1", path)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	s.UpdateFilters(property.Filters{Location: "Lekki"})
	s.SaveSearch(context.Background())
	list := s.History(context.Background())
	if len(list) != 1 || list[0].Filters.Location != "Lekki" {
		t.Errorf("history = %+v", list)
	}
}

func TestUnknownDriver(t *testing.T) {
	cfg, path := testConfig(t)
	cfg.Backend.Driver = "mongo"
	if _, err := New(context.Background(), cfg, Options{ConfigPath: path}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
