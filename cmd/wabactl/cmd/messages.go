package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"waba-integration/internal/app"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/models"

	"github.com/spf13/cobra"
)

var downloadAs string

var sendCmd = &cobra.Command{
	Use:   "send <message-id>",
	Short: "Send a Draft or Queued message",
	Args:  cobra.ExactArgs(1),
	RunE: messageCommand(func(ctx context.Context, s *messaging.Session, msg *models.Message) error {
		_, err := s.Dispatcher.Send(ctx, msg)
		return err
	}),
}

var uploadCmd = &cobra.Command{
	Use:   "upload <message-id>",
	Short: "Upload a message's attached file to the provider",
	Args:  cobra.ExactArgs(1),
	RunE: messageCommand(func(ctx context.Context, s *messaging.Session, msg *models.Message) error {
		return s.Transfer.Upload(ctx, msg)
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download <message-id>",
	Short: "Download a message's provider-hosted media",
	Args:  cobra.ExactArgs(1),
	RunE: messageCommand(func(ctx context.Context, s *messaging.Session, msg *models.Message) error {
		principal := messaging.SystemPrincipal
		if downloadAs != "" {
			principal = messaging.Principal{Name: downloadAs}
		}
		return s.Transfer.Download(ctx, msg, principal)
	}),
}

var markSeenCmd = &cobra.Command{
	Use:   "mark-seen <message-id>",
	Short: "Send a read receipt for an incoming message",
	Args:  cobra.ExactArgs(1),
	RunE: messageCommand(func(ctx context.Context, s *messaging.Session, msg *models.Message) error {
		return s.Dispatcher.MarkAsSeen(ctx, msg)
	}),
}

func init() {
	downloadCmd.Flags().StringVar(&downloadAs, "as", "", "principal to act as (default: system)")
}

// messageCommand loads the message named by the first argument, runs op in a
// fresh session and prints the resulting message.
func messageCommand(op func(ctx context.Context, s *messaging.Session, msg *models.Message) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseMessageID(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			msg, err := a.Store.GetMessage(ctx, id)
			if err != nil {
				return err
			}

			if err := op(ctx, messaging.NewSession(a.Deps), msg); err != nil {
				a.Logger.LogError(err, "Operation failed", map[string]interface{}{"message_id": id})
				return err
			}

			out, err := json.MarshalIndent(msg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		})
	}
}

func parseMessageID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.ErrCodeValidation, "invalid message id %q", arg)
	}
	return uint(id), nil
}
