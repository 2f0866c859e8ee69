// Package cli defines the cobra command tree for sr.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/app"
	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/config"
	"github.com/evcraddock/smartrent/internal/dashboard"
	"github.com/evcraddock/smartrent/internal/logging"
	"github.com/evcraddock/smartrent/internal/notify"
)

var (
	flagFormat string
	flagConfig string
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in (run 'sr login')")

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sr",
		Short:         "Find, rent and manage properties on SmartRent",
		Long:          "A client for the SmartRent rental marketplace. Search listings, book inspections, message agents, pay rent and view your dashboard from the terminal, or serve the JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/sr/config.yaml)")

	root.AddCommand(
		newSignUpCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newAuthCmd(),
		newProfileCmd(),
		newDashboardCmd(),
		newPropertiesCmd(),
		newSearchCmd(),
		newBookingsCmd(),
		newMessagesCmd(),
		newNotificationsCmd(),
		newPayCmd(),
		newPaymentsCmd(),
		newAnalyticsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// env is one command's view of the app: the loaded config, where it came
// from and the services built on it.
type env struct {
	app  *app.App
	cfg  config.Config
	path string
	out  io.Writer
	log  *slog.Logger
}

// openApp loads the config and opens the backend. Toasts go to stderr.
func openApp(cmd *cobra.Command) (*env, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := logging.Quiet(cmd.ErrOrStderr())
	if cfg.DevMode {
		log = logging.New(cmd.ErrOrStderr(), true)
	}

	a, err := app.New(cmd.Context(), cfg, app.Options{
		ConfigPath: path,
		Sink:       notify.NewPrinter(cmd.ErrOrStderr()),
		Alerts:     notify.NewBell(cmd.ErrOrStderr()),
		Log:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening backend: %w", err)
	}
	return &env{app: a, cfg: a.Config, path: path, out: cmd.OutOrStdout(), log: log}, nil
}

// close releases the backend, logging any error.
func (e *env) close() {
	if err := e.app.Close(); err != nil {
		e.log.Warn("closing backend", "error", err)
	}
}

// user returns the signed-in user, checking the stored token with the
// auth provider.
func (e *env) user(ctx context.Context) (*auth.User, error) {
	if !e.cfg.Session.Active(time.Now()) {
		return nil, errNotLoggedIn
	}
	u, err := e.app.CurrentUser(ctx, e.cfg.Session.AccessToken)
	if errors.Is(err, dashboard.ErrNotAuthenticated) {
		return nil, fmt.Errorf("session expired: %w", errNotLoggedIn)
	}
	return u, err
}

// userID is user for commands that only need the id.
func (e *env) userID(ctx context.Context) (string, error) {
	u, err := e.user(ctx)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// emit prints v as JSON with --format json, otherwise runs text.
func (e *env) emit(v any, text func(w io.Writer) error) error {
	if isJSON() {
		return printJSON(e.out, v)
	}
	return text(e.out)
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	e, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(cmd.Context(), e)
}
