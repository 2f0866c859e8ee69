package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/auth"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newSeedDemoCmd())
	return cmd
}

func newSeedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create the demo accounts",
		Long:  "Signs up one demo account per role. Accounts that already exist are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runSeedDemo)
		},
	}
}

type seedRow struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func runSeedDemo(ctx context.Context, e *env) error {
	results := auth.SeedDemoUsers(ctx, e.app.Auth)

	rows := make([]seedRow, len(results))
	var failed int
	for i, r := range results {
		d := auth.DemoUsers[i]
		row := seedRow{Email: r.Email, Password: d.Password, Role: d.Role, Status: "exists"}
		switch {
		case r.Err != nil:
			row.Status = "error: " + r.Err.Error()
			failed++
		case r.Created:
			row.Status = "created"
		}
		rows[i] = row
	}

	err := e.emit(rows, func(w io.Writer) error {
		t := newTable(w, "EMAIL", "PASSWORD", "ROLE", "STATUS")
		for _, r := range rows {
			t.row(r.Email, r.Password, r.Role, r.Status)
		}
		return t.flush()
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d demo accounts could not be created", failed)
	}
	return nil
}
