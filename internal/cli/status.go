package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/app"
	"github.com/evcraddock/smartrent/internal/config"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check backend and auth status",
		Long:  "Shows which backend is configured and whether the stored session is still valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

type statusResult struct {
	Config   string `json:"config"`
	Backend  string `json:"backend"`
	Payments string `json:"payments"`
	LoggedIn bool   `json:"logged_in"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Unread   int    `json:"unread_notifications"`
	Problem  string `json:"problem,omitempty"`
}

func runStatus(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, e *env) error {
		st := statusResult{
			Config:   e.path,
			Backend:  backendLabel(e.cfg),
			Payments: "disabled",
		}
		if gw, err := app.Gateway(e.cfg); err == nil {
			st.Payments = gw.Name()
		}

		u, err := e.user(ctx)
		switch {
		case err == nil:
			st.LoggedIn = true
			st.Email = u.Email
			st.Role = e.app.Profiles.Role(ctx, u.ID)
			st.Unread = e.app.Notifications.UnreadCount(ctx, u.ID)
		case errors.Is(err, errNotLoggedIn):
			st.Problem = err.Error()
		default:
			st.Problem = fmt.Sprintf("cannot reach auth provider: %v", err)
		}

		return e.emit(st, func(w io.Writer) error {
			fmt.Fprintf(w, "Config:   %s\n", st.Config)
			fmt.Fprintf(w, "Backend:  %s\n", st.Backend)
			fmt.Fprintf(w, "Payments: %s\n", st.Payments)
			if !st.LoggedIn {
				fmt.Fprintf(w, "Status:   ✗ %s\n", st.Problem)
				return nil
			}
			fmt.Fprintf(w, "Status:   ✓ logged in as %s (%s)\n", st.Email, st.Role)
			if st.Unread > 0 {
				fmt.Fprintf(w, "          %d unread notifications\n", st.Unread)
			}
			return nil
		})
	})
}

func backendLabel(cfg config.Config) string {
	switch cfg.Backend.Driver {
	case config.DriverREST:
		return "rest " + cfg.Backend.URL
	case config.DriverPostgres:
		return "postgres"
	}
	if cfg.Backend.SQLitePath != "" {
		return "sqlite " + cfg.Backend.SQLitePath
	}
	return "sqlite (default path)"
}
