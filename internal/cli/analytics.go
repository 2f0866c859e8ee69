package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/analytics"
)

func newAnalyticsCmd() *cobra.Command {
	var (
		period     string
		propertyID string
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show activity over a period",
		Long: `Show your activity over a period. Admins see platform-wide numbers.
With --property, shows views and inquiries for one of your listings.

Periods: 7d, 30d, 90d, 1y`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !analytics.ValidPeriod(period) {
				return fmt.Errorf("invalid period %q (want 7d, 30d, 90d or 1y)", period)
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}

				if propertyID != "" {
					if !e.app.Access.IsPropertyOwner(ctx, propertyID, uid) && !e.app.Access.IsAdmin(ctx, uid) {
						return access.ErrForbidden
					}
					st := e.app.Analytics.PropertyAnalytics(ctx, propertyID, period)
					return e.emit(st, func(w io.Writer) error {
						fmt.Fprintf(w, "Views:     %d\nInquiries: %d\n", st.TotalViews, st.TotalInquiries)
						printSeries(w, "Views", st.ViewsData, false)
						printSeries(w, "Inquiries", st.InquiriesData, false)
						return nil
					})
				}

				role := e.app.Profiles.Role(ctx, uid)
				if role == access.Admin {
					st := e.app.Analytics.AdminAnalytics(ctx, period)
					return e.emit(st, func(w io.Writer) error {
						printAdminStats(w, st)
						return nil
					})
				}
				st := e.app.Analytics.UserAnalytics(ctx, uid, role, period)
				return e.emit(st, func(w io.Writer) error {
					printUserStats(w, st)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", analytics.DefaultPeriod, "period (7d|30d|90d|1y)")
	cmd.Flags().StringVar(&propertyID, "property", "", "show one listing's views and inquiries")

	return cmd
}
