package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/notification"
)

type notificationsResult struct {
	Notifications []notification.Notification `json:"notifications"`
	Unread        int                         `json:"unread"`
}

func newNotificationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif", "n"},
		Short:   "List your notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				res := notificationsResult{
					Notifications: e.app.Notifications.List(ctx, uid, limit),
					Unread:        e.app.Notifications.UnreadCount(ctx, uid),
				}
				return e.emit(res, func(w io.Writer) error {
					printNotifications(w, res.Notifications, res.Unread, time.Now())
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", notification.DefaultLimit, "number of notifications")

	cmd.AddCommand(newReadCmd(), newWatchCmd())
	return cmd
}

func newReadCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark notifications as read",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all takes no id")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if all {
					if err := e.app.Notifications.MarkAllAsRead(ctx, uid); err != nil {
						return err
					}
					return e.emit(map[string]bool{"read": true}, func(w io.Writer) error {
						_, err := fmt.Fprintln(w, "All notifications marked read.")
						return err
					})
				}

				id := args[0]
				q := backend.From("notifications").Select("id").Eq("id", id).Eq("user_id", uid)
				if _, err := backend.One(ctx, e.app.Backend, q); err != nil {
					return fmt.Errorf("notification %s: %w", id, err)
				}
				if err := e.app.Notifications.MarkAsRead(ctx, id); err != nil {
					return err
				}
				return e.emit(map[string]any{"id": id, "read": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Marked read.")
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "mark every notification read")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print notifications as they arrive",
		Long:  "Print new notifications as they arrive, ringing the terminal bell for each. Stop with Ctrl-C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				sub, err := e.app.Notifications.Subscribe(ctx, uid, func(n notification.Notification) {
					if isJSON() {
						_ = printJSON(e.out, n)
						return
					}
					fmt.Fprintf(e.out, "[%s] %s: %s\n", format.DateTime(n.CreatedAt), n.Title, n.Message)
				})
				if err != nil {
					return err
				}
				defer sub.Close()

				if !isJSON() {
					fmt.Fprintln(cmd.ErrOrStderr(), "Watching for notifications. Press Ctrl-C to stop.")
				}
				<-ctx.Done()
				return nil
			})
		},
	}
}
