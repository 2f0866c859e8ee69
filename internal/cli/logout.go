package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Long:  "Revokes the stored session with the auth provider and removes it from the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd)
		},
	}
}

func runLogout(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, e *env) error {
		token := e.cfg.Session.AccessToken
		if token == "" {
			_, err := fmt.Fprintln(e.out, "Not logged in.")
			return err
		}

		// An already expired or revoked token still gets cleared locally.
		if err := e.app.Auth.SignOut(ctx, token); err != nil {
			e.log.Warn("signing out", "error", err)
		}
		if err := clearSession(e.path); err != nil {
			return err
		}

		_, err := fmt.Fprintln(e.out, "✓ Logged out.")
		return err
	})
}
