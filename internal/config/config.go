// Package config loads smartrent settings from defaults, the YAML config
// file, a .env file and SR_* environment variables, in that order.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the CLI and the HTTP API need.
type Config struct {
	DevMode bool          `yaml:"dev_mode,omitempty"`
	Backend BackendConfig `yaml:"backend,omitempty"`
	Auth    AuthConfig    `yaml:"auth,omitempty"`
	SMTP    SMTPConfig    `yaml:"smtp,omitempty"`
	Payment PaymentConfig `yaml:"payment,omitempty"`
	Search  SearchConfig  `yaml:"search,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Session Session       `yaml:"session,omitempty"`
}

// BackendConfig selects and configures the data backend.
type BackendConfig struct {
	Driver string `yaml:"driver,omitempty"`
	// URL is the hosted project root, e.g. https://xyz.supabase.co.
	URL          string        `yaml:"url,omitempty"`
	AnonKey      string        `yaml:"anon_key,omitempty"`
	DatabaseURL  string        `yaml:"database_url,omitempty"`
	SQLitePath   string        `yaml:"sqlite_path,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// AuthConfig configures the local auth provider.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret,omitempty"`
	SessionTTL time.Duration `yaml:"session_ttl,omitempty"`
}

// SMTPConfig configures outgoing mail for one-time codes and receipts.
type SMTPConfig struct {
	Host string `yaml:"host,omitempty"`
	Port string `yaml:"port,omitempty"`
	User string `yaml:"user,omitempty"`
	Pass string `yaml:"pass,omitempty"`
	From string `yaml:"from,omitempty"`
}

// Configured reports whether enough is set to send mail.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

// PaymentConfig selects the payment gateway.
type PaymentConfig struct {
	// Gateway is "http" (checkout + verification endpoints) or "midtrans".
	Gateway            string `yaml:"gateway,omitempty"`
	CheckoutURL        string `yaml:"checkout_url,omitempty"`
	VerifyURL          string `yaml:"verify_url,omitempty"`
	MidtransServerKey  string `yaml:"midtrans_server_key,omitempty"`
	MidtransProduction bool   `yaml:"midtrans_production,omitempty"`
}

// SearchConfig configures saved search history.
type SearchConfig struct {
	RedisURL    string `yaml:"redis_url,omitempty"`
	HistoryPath string `yaml:"history_path,omitempty"`
}

// ServerConfig configures `sr serve`.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Session is the signed-in user's auth state, persisted between commands.
type Session struct {
	AccessToken  string    `yaml:"access_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	UserID       string    `yaml:"user_id,omitempty"`
	Email        string    `yaml:"email,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty"`
}

// Active reports whether the session holds a token that has not expired.
func (s Session) Active(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// DefaultPath returns the config file path: ~/.config/sr/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sr", "config.yaml"), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Driver:       DriverSQLite,
			Timeout:      30 * time.Second,
			PollInterval: 3 * time.Second,
		},
		Auth: AuthConfig{
			SessionTTL: time.Hour,
		},
		SMTP:    SMTPConfig{Port: "587"},
		Payment: PaymentConfig{Gateway: "http"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load builds the effective configuration. A missing config file or .env
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads only the config file, without defaults or environment.
// This is what Save writes back, so env secrets never land on disk.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, readable only by the owner since it may hold
// session tokens.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Update applies fn to the file config at path and saves the result.
func Update(path string, fn func(*Config)) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	fn(&cfg)
	return Save(path, cfg)
}

// EnsureJWTSecret returns the local auth signing secret, generating and
// persisting one on first use.
func EnsureJWTSecret(path string, cfg *Config) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := Update(path, func(c *Config) { c.Auth.JWTSecret = secret }); err != nil {
		return "", err
	}
	cfg.Auth.JWTSecret = secret
	return secret, nil
}

// Validate checks the settings that would otherwise fail later and vaguely.
func (c Config) Validate() error {
	switch c.Backend.Driver {
	case DriverSQLite:
	case DriverREST:
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return errors.New("backend url and anon key are required for the rest driver")
		}
	case DriverPostgres:
		if c.Backend.DatabaseURL == "" {
			return errors.New("database url is required for the postgres driver")
		}
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return errors.New("backend url and anon key are required for hosted auth")
		}
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}

	switch c.Payment.Gateway {
	case "http", "":
	case "midtrans":
		if c.Payment.MidtransServerKey == "" {
			return errors.New("midtrans server key is required for the midtrans gateway")
		}
	default:
		return fmt.Errorf("unknown payment gateway %q", c.Payment.Gateway)
	}
	return nil
}

func applyEnv(c *Config) error {
	setString(&c.Backend.Driver, "SR_BACKEND_DRIVER")
	setString(&c.Backend.URL, "SR_BACKEND_URL")
	setString(&c.Backend.AnonKey, "SR_ANON_KEY")
	setString(&c.Backend.DatabaseURL, "SR_DATABASE_URL")
	setString(&c.Backend.SQLitePath, "SR_SQLITE_PATH")
	setString(&c.Auth.JWTSecret, "SR_JWT_SECRET")
	setString(&c.SMTP.Host, "SR_SMTP_HOST")
	setString(&c.SMTP.Port, "SR_SMTP_PORT")
	setString(&c.SMTP.User, "SR_SMTP_USER")
	setString(&c.SMTP.Pass, "SR_SMTP_PASS")
	setString(&c.SMTP.From, "SR_SMTP_FROM")
	setString(&c.Payment.Gateway, "SR_PAYMENT_GATEWAY")
	setString(&c.Payment.CheckoutURL, "SR_PAYMENT_CHECKOUT_URL")
	setString(&c.Payment.VerifyURL, "SR_PAYMENT_VERIFY_URL")
	setString(&c.Payment.MidtransServerKey, "SR_MIDTRANS_SERVER_KEY")
	setString(&c.Search.RedisURL, "SR_REDIS_URL")
	setString(&c.Search.HistoryPath, "SR_SEARCH_HISTORY")
	setString(&c.Server.Addr, "SR_ADDR")
	setString(&c.Session.AccessToken, "SR_ACCESS_TOKEN")

	if v := os.Getenv("SR_DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SR_DEV_MODE: %w", err)
		}
		c.DevMode = b
	}
	if v := os.Getenv("SR_MIDTRANS_PRODUCTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SR_MIDTRANS_PRODUCTION: %w", err)
		}
		c.Payment.MidtransProduction = b
	}
	for key, dst := range map[string]*time.Duration{
		"SR_HTTP_TIMEOUT":  &c.Backend.Timeout,
		"SR_POLL_INTERVAL": &c.Backend.PollInterval,
		"SR_SESSION_TTL":   &c.Auth.SessionTTL,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
