package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/config"
)

func TestSaveAndClearSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sr", "config.yaml")
	if err := config.Save(path, config.Config{Server: config.ServerConfig{Addr: ":9090"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	expires := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	sess := &auth.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
		User:         auth.User{ID: "u1", Email: "ada@example.com"},
	}
	if err := saveSession(path, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Session.AccessToken != "access" || loaded.Session.UserID != "u1" || loaded.Session.Email != "ada@example.com" {
		t.Errorf("session = %+v", loaded.Session)
	}
	if !loaded.Session.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v, want %v", loaded.Session.ExpiresAt, expires)
	}
	if loaded.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q, want preserved", loaded.Server.Addr)
	}

	if err := clearSession(path); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	loaded, err = config.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Session.AccessToken != "" {
		t.Errorf("access_token = %q, want empty", loaded.Session.AccessToken)
	}
	if loaded.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q, want preserved after clear", loaded.Server.Addr)
	}
}

func TestConfigPathFlag(t *testing.T) {
	flagConfig = "/tmp/custom.yaml"
	t.Cleanup(func() { flagConfig = "" })

	got, err := configPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if got != "/tmp/custom.yaml" {
		t.Errorf("config path = %q", got)
	}
}

func TestConfigPathDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	flagConfig = ""

	got, err := configPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if want := filepath.Join(home, ".config", "sr", "config.yaml"); got != want {
		t.Errorf("config path = %q, want %q", got, want)
	}
}
