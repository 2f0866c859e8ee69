package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/chat"
)

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg", "inbox"},
		Short:   "List your conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				list := e.app.Chat.GetConversations(ctx, uid)
				return e.emit(list, func(w io.Writer) error {
					return printConversations(w, list, time.Now())
				})
			})
		},
	}
	cmd.AddCommand(newThreadCmd(), newSendCmd())
	return cmd
}

func newThreadCmd() *cobra.Command {
	var propertyID string

	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Read your messages with a user",
		Long:  "Print the thread with a user, oldest first. Their messages to you are marked read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				list := e.app.Chat.GetMessages(ctx, uid, args[0], propertyID)
				return e.emit(list, func(w io.Writer) error {
					printMessages(w, list, uid)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "only messages about this listing")
	return cmd
}

func newSendCmd() *cobra.Command {
	var propertyID string

	cmd := &cobra.Command{
		Use:   "send <user-id> <text...>",
		Short: "Send a message",
		Long: `Send a direct message, optionally about a listing.

Example:
  sr messages send 9c1e... "Is the flat still available?" --property 3f2a...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args[1:], " "))
			if content == "" {
				return fmt.Errorf("message text is empty")
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				m, err := e.app.Chat.SendMessage(ctx, uid, chat.Draft{
					ReceiverID: args[0],
					PropertyID: propertyID,
					Content:    content,
				})
				if err != nil {
					return err
				}
				return e.emit(m, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Message sent.")
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "listing the message is about")
	return cmd
}
