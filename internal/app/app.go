// Package app builds the backend, auth provider and services described by
// a Config. The CLI and the HTTP API share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/postgres"
	"github.com/evcraddock/smartrent/internal/backend/rest"
	"github.com/evcraddock/smartrent/internal/backend/sqlite"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/chat"
	"github.com/evcraddock/smartrent/internal/client"
	"github.com/evcraddock/smartrent/internal/config"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/email"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/payment"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/search"
)

// Options are the pieces the caller supplies instead of the config.
type Options struct {
	// ConfigPath is where a generated local auth secret gets persisted.
	ConfigPath string
	Sink       notify.Sink
	Alerts     notify.Alerter
	Log        *slog.Logger
}

// App is a wired set of services over one backend.
type App struct {
	Config  config.Config
	Backend backend.Client
	Auth    auth.Provider
	Access  *access.Checker

	Profiles      *profile.Service
	Properties    *property.Service
	Bookings      *booking.Service
	Payments      *payment.Service
	Chat          *chat.Service
	Notifications *notification.Service
	Analytics     *analytics.Service

	sink notify.Sink
	log  *slog.Logger
	// hosted is set for the rest and postgres drivers.
	hosted *client.Client

	mu      sync.Mutex
	closers []func() error
}

// New opens the configured backend and builds every service on it.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if opts.Sink == nil {
		opts.Sink = notify.Discard
	}
	if opts.Alerts == nil {
		opts.Alerts = notify.NoAlerts
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	a := &App{Config: cfg, sink: opts.Sink, log: opts.Log}
	if err := a.openBackend(ctx, opts.ConfigPath); err != nil {
		return nil, err
	}

	gw, err := Gateway(cfg)
	if err != nil {
		// Reads still work; taking payments reports ErrNoGateway.
		a.log.Warn("payments disabled", "error", err)
	}

	b := a.Backend
	a.Access = access.NewChecker(b)
	a.Notifications = notification.NewService(b, b, opts.Alerts, a.log)
	a.Profiles = profile.NewService(b, a.log)
	a.Properties = property.NewService(b, a.Notifications, a.sink, a.log)
	a.Bookings = booking.NewService(b, a.Notifications, a.sink, a.log)
	a.Chat = chat.NewService(b, b, a.Notifications, a.sink, a.log)
	a.Analytics = analytics.NewService(b, a.log)
	a.Payments = payment.NewService(b, gw, a.Notifications, a.sink, a.log)
	if cfg.SMTP.Configured() {
		smtp := cfg.SMTP
		a.Payments.MailReceipts(func(m email.Message) error { return email.Send(smtp, m) })
	}
	return a, nil
}

func (a *App) openBackend(ctx context.Context, configPath string) error {
	cfg := &a.Config
	switch cfg.Backend.Driver {
	case config.DriverSQLite, "":
		b, err := sqlite.Open(cfg.Backend.SQLitePath)
		if err != nil {
			return err
		}
		secret, err := config.EnsureJWTSecret(configPath, cfg)
		if err != nil {
			_ = b.Close()
			return fmt.Errorf("local auth: %w", err)
		}
		a.Backend = b
		a.Auth = auth.NewLocal(b.DB(), secret, cfg.Auth.SessionTTL, auth.NewMailer(cfg.SMTP, cfg.DevMode))

	case config.DriverREST:
		a.hosted = client.New(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout)
		a.hosted.SetAccessToken(cfg.Session.AccessToken)
		a.Backend = rest.New(a.hosted, cfg.Backend.PollInterval)
		a.Auth = auth.NewHosted(a.hosted)

	case config.DriverPostgres:
		b, err := postgres.Connect(ctx, postgres.Config{
			DatabaseURL:  cfg.Backend.DatabaseURL,
			PollInterval: cfg.Backend.PollInterval,
		})
		if err != nil {
			return err
		}
		a.hosted = client.New(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout)
		a.hosted.SetAccessToken(cfg.Session.AccessToken)
		a.Backend = b
		a.Auth = auth.NewHosted(a.hosted)

	default:
		return fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
	return nil
}

// Gateway builds the configured payment gateway.
func Gateway(cfg config.Config) (payment.Gateway, error) {
	switch cfg.Payment.Gateway {
	case "midtrans":
		m, err := payment.NewMidtrans(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransProduction)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "http", "":
		g, err := payment.NewHTTPGateway(cfg.Payment.CheckoutURL, cfg.Payment.VerifyURL, cfg.Backend.Timeout)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown payment gateway %q", cfg.Payment.Gateway)
}

// SetAccessToken makes later hosted requests act as the signed-in user.
func (a *App) SetAccessToken(token string) {
	if a.hosted != nil {
		a.hosted.SetAccessToken(token)
	}
}

// Dashboard returns a dashboard controller over the app's services.
func (a *App) Dashboard() *dashboard.Dashboard {
	return dashboard.New(dashboard.Services{
		Profiles:   a.Profiles,
		Properties: a.Properties,
		Bookings:   a.Bookings,
		Payments:   a.Payments,
		Chat:       a.Chat,
		Analytics:  a.Analytics,
	}, a.sink, a.log)
}

// Search returns a search session for userID. History goes to Redis when a
// URL is configured, otherwise to a YAML file next to the config.
func (a *App) Search(userID, configPath string) (*search.Service, error) {
	var history search.History
	if url := a.Config.Search.RedisURL; url != "" {
		rdb, err := search.NewRedisClient(url)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.closers = append(a.closers, rdb.Close)
		a.mu.Unlock()
		history = search.NewRedisHistory(rdb, userID)
	} else {
		path := a.Config.Search.HistoryPath
		if path == "" {
			path = search.DefaultHistoryPath(configPath)
		}
		history = search.NewFileHistory(path)
	}
	return search.NewService(a.Properties, history, a.sink, a.log), nil
}

// CurrentUser resolves the signed-in user from an access token.
func (a *App) CurrentUser(ctx context.Context, accessToken string) (*auth.User, error) {
	if accessToken == "" {
		return nil, dashboard.ErrNotAuthenticated
	}
	u, err := a.Auth.User(ctx, accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, fmt.Errorf("%w: %w", dashboard.ErrNotAuthenticated, err)
		}
		return nil, err
	}
	return u, nil
}

// Close releases the backend and any Redis connections.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	errs := make([]error, 0, len(a.closers)+1)
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}
