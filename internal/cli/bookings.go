package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/booking"
	"github.com/evcraddock/smartrent/internal/format"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookings",
		Aliases: []string{"booking"},
		Short:   "List and manage property inspections",
		Long:    "Without a subcommand, lists your inspections: the ones you booked as a tenant, or the ones for your listings as an agent.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runBookings)
		},
	}
	cmd.AddCommand(newBookCmd(), newBookingStatusCmd(), newBookingRemoveCmd())
	return cmd
}

func runBookings(ctx context.Context, e *env) error {
	uid, err := e.userID(ctx)
	if err != nil {
		return err
	}
	var list []booking.Booking
	if e.app.Profiles.Role(ctx, uid) == access.Agent {
		list, err = e.app.Bookings.ForAgent(ctx, uid)
	} else {
		list, err = e.app.Bookings.ForTenant(ctx, uid)
	}
	if err != nil {
		return err
	}
	return e.emit(list, func(w io.Writer) error { return printBookings(w, list) })
}

// parseSchedule reads a YYYY-MM-DD date and HH:MM time in loc.
func parseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date or time %q %q (want YYYY-MM-DD and HH:MM)", date, clock)
	}
	return t, nil
}

func newBookCmd() *cobra.Command {
	var (
		clock string
		notes string
	)

	cmd := &cobra.Command{
		Use:   "add <property-id> <date>",
		Short: "Book an inspection",
		Long: `Book an inspection of a listing.

Date format: YYYY-MM-DD

Examples:
  sr bookings add 3f2a... 2026-11-02
  sr bookings add 3f2a... 2026-11-02 --time 14:30 --notes "coming with my partner"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseSchedule(args[1], clock, time.Local)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				b, err := e.app.Bookings.Create(ctx, uid, booking.Request{
					PropertyID:   args[0],
					ScheduledFor: when,
					Notes:        notes,
				})
				if err != nil {
					return err
				}
				return e.emit(b, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Inspection booked for %s (#%s, %s)\n",
						format.DateTime(when), b.ID, b.Status.Label())
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&clock, "time", "10:00", "inspection time (HH:MM)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "optional notes for the agent")

	return cmd
}

func newBookingStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a booking's status",
		Long:  "Statuses: pending, confirmed, cancelled, completed. Confirming notifies the tenant.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := booking.Status(strings.ToLower(args[1]))
			if !status.IsValid() {
				return fmt.Errorf("invalid status %q", args[1])
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				b, err := e.app.Bookings.UpdateStatus(ctx, uid, args[0], status)
				if err != nil {
					return err
				}
				return e.emit(b, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Booking %s is now %s.\n", b.ID, b.Status.Label())
					return err
				})
			})
		},
	}
}

func newBookingRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Bookings.Delete(ctx, uid, args[0]); err != nil {
					return err
				}
				return e.emit(map[string]any{"id": args[0], "deleted": true}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Booking %s removed.\n", args[0])
					return err
				})
			})
		},
	}
}
