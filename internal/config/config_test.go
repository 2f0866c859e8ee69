package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points HOME and the working directory at a temp dir so no real
// config or .env file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	tmp := isolate(t)

	cfg, err := Load(filepath.Join(tmp, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Driver != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Backend.Driver)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Backend.Timeout)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadLayering(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "config.yaml")

	file := `
backend:
  driver: rest
  url: https://file.example
  anon_key: file-key
  timeout: 10s
server:
  addr: ":9000"
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, ".env"), []byte("SR_ANON_KEY=dotenv-key\nSR_ADDR=:7000\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SR_ADDR", ":6000")
	t.Setenv("SR_POLL_INTERVAL", "500ms")

	// godotenv sets process env for keys not already present
	t.Cleanup(func() { _ = os.Unsetenv("SR_ANON_KEY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.URL != "https://file.example" {
		t.Errorf("url = %q, want file value", cfg.Backend.URL)
	}
	if cfg.Backend.AnonKey != "dotenv-key" {
		t.Errorf("anon key = %q, want .env value", cfg.Backend.AnonKey)
	}
	if cfg.Server.Addr != ":6000" {
		t.Errorf("addr = %q, want env value over .env", cfg.Server.Addr)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.Backend.Timeout)
	}
	if cfg.Backend.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %v, want 500ms", cfg.Backend.PollInterval)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	tmp := isolate(t)
	t.Setenv("SR_HTTP_TIMEOUT", "soon")

	if _, err := Load(filepath.Join(tmp, "none.yaml")); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Backend.Driver = "mongo" }, true},
		{"rest without key", func(c *Config) { c.Backend.Driver = DriverREST; c.Backend.URL = "https://x" }, true},
		{"rest complete", func(c *Config) {
			c.Backend.Driver = DriverREST
			c.Backend.URL = "https://x"
			c.Backend.AnonKey = "k"
		}, false},
		{"postgres without dsn", func(c *Config) {
			c.Backend.Driver = DriverPostgres
			c.Backend.URL = "https://x"
			c.Backend.AnonKey = "k"
		}, true},
		{"midtrans without key", func(c *Config) { c.Payment.Gateway = "midtrans" }, true},
		{"unknown gateway", func(c *Config) { c.Payment.Gateway = "cash" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, ".config", "sr", "config.yaml")

	cfg := Config{Session: Session{AccessToken: "tok", UserID: "u1", Email: "ada@example.com"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if loaded.Session.AccessToken != "tok" || loaded.Session.UserID != "u1" {
		t.Errorf("session = %+v", loaded.Session)
	}
}

func TestUpdateKeepsOtherFields(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "config.yaml")

	if err := Save(path, Config{Server: ServerConfig{Addr: ":1234"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Update(path, func(c *Config) { c.Session = Session{} }); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Server.Addr != ":1234" {
		t.Errorf("addr = %q, want :1234", loaded.Server.Addr)
	}
}

func TestEnsureJWTSecret(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "config.yaml")

	cfg := Default()
	secret, err := EnsureJWTSecret(path, &cfg)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64", len(secret))
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Auth.JWTSecret != secret {
		t.Error("secret was not persisted")
	}

	again, err := EnsureJWTSecret(path, &cfg)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again != secret {
		t.Error("expected existing secret to be reused")
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		s    Session
		want bool
	}{
		{"empty", Session{}, false},
		{"no expiry", Session{AccessToken: "t"}, true},
		{"future expiry", Session{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", Session{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, false},
	}
	for _, tt := range tests {
		if got := tt.s.Active(now); got != tt.want {
			t.Errorf("%s: Active = %v, want %v", tt.name, got, tt.want)
		}
	}
}
