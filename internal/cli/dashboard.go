package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/analytics"
	"github.com/evcraddock/smartrent/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "dashboard [section]",
		Short: "Show your dashboard",
		Long: `Show a section of your role's dashboard. Without a section, shows the overview.

Sections:
  tenant:   overview, properties, favorites, bookings, payments, messages, profile
  agent:    overview, properties, add-property, leads, messages, analytics, profile
  landlord: overview, properties, add-property, tenants, payments, analytics, profile
  admin:    overview, users, properties, approvals, reports, analytics, cms, settings`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := dashboard.Overview
			if len(args) == 1 {
				section = strings.ToLower(args[0])
			}
			if !analytics.ValidPeriod(period) {
				return fmt.Errorf("invalid period %q (want 7d, 30d, 90d or 1y)", period)
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				return runDashboard(ctx, e, section, period)
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", analytics.DefaultPeriod, "analytics period (7d|30d|90d|1y)")

	return cmd
}

func runDashboard(ctx context.Context, e *env, section, period string) error {
	uid, err := e.userID(ctx)
	if err != nil {
		return err
	}

	d := e.app.Dashboard()
	d.Period = period
	v, err := d.Navigate(ctx, uid, section)
	if err != nil {
		return err
	}

	return e.emit(v, func(w io.Writer) error {
		if err := printView(w, v); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nSections: %s\n", strings.Join(dashboard.Sections(v.Role), ", "))
		return err
	})
}
