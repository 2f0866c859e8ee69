package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/validate"
)

func newSignUpCmd() *cobra.Command {
	var form validate.SignUp

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create a SmartRent account and sign in.

Roles: tenant, agent, landlord

Examples:
  sr signup --email ada@example.com --name "Ada Obi"
  sr signup --email chidi@example.com --name "Chidi Eze" --role landlord --phone 08031234567`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignUp(cmd, form)
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Role, "role", "tenant", "account role")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "password again (defaults to --password)")

	return cmd
}

func runSignUp(cmd *cobra.Command, form validate.SignUp) error {
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))

	return withApp(cmd, func(ctx context.Context, e *env) error {
		in := bufio.NewReader(cmd.InOrStdin())
		if form.Password == "" {
			var err error
			if form.Password, err = prompt(e.out, in, "Password: "); err != nil {
				return err
			}
			if form.ConfirmPassword, err = prompt(e.out, in, "Confirm password: "); err != nil {
				return err
			}
		}
		if form.ConfirmPassword == "" {
			form.ConfirmPassword = form.Password
		}
		if err := validate.Struct(form); err != nil {
			return err
		}

		sess, err := e.app.Auth.SignUp(ctx, auth.SignUpParams{
			Email:    form.Email,
			Phone:    form.Phone,
			Password: form.Password,
			Metadata: map[string]any{"full_name": form.FullName, "role": form.Role},
		})
		if err != nil {
			return err
		}
		return finishLogin(ctx, e, sess)
	})
}
