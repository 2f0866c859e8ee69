package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/profile"
)

func newProfileCmd() *cobra.Command {
	var (
		name  string
		phone string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Long: `Show your profile. Pass --name or --phone to change them.

Examples:
  sr profile
  sr profile --name "Ada Obi-Eze"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c profile.Changes
			if cmd.Flags().Changed("name") {
				c.FullName = &name
			}
			if cmd.Flags().Changed("phone") {
				c.Phone = &phone
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				return runProfile(ctx, e, c)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new full name")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone number")

	return cmd
}

func runProfile(ctx context.Context, e *env, c profile.Changes) error {
	u, err := e.user(ctx)
	if err != nil {
		return err
	}

	var p *profile.Profile
	if c == (profile.Changes{}) {
		p, err = e.app.Profiles.Ensure(ctx, *u)
	} else {
		p, err = e.app.Profiles.Update(ctx, u.ID, c)
	}
	if err != nil {
		return err
	}

	return e.emit(p, func(w io.Writer) error {
		printProfile(w, *p)
		return nil
	})
}
