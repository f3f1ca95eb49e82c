package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// NewListenCommand creates the listen command.
func NewListenCommand() *cobra.Command {
	var natsURL string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen for update notifications",
		Long:  "Subscribe to content item and collection update notifications and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				natsURL = viper.GetString("nats_url")
			}

			if natsURL == "" {
				config, err := loadCLIConfig()
				if err != nil {
					return err
				}

				natsURL = config.NATSURL
			}

			listener, err := p2p.NewListener(natsURL, func(subject string, notification p2p.Notification) {
				action := "updated"
				if notification.Action == p2p.ActionDelete {
					action = "deleted"
				}

				switch subject {
				case p2p.SubjectCollectionUpdates:
					fmt.Printf("collection %s %s\n", notification.Code, action)
				default:
					fmt.Printf("content item %s %s\n", notification.Slug, action)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to create listener: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println("Listening for updates (Ctrl-C to stop)...")

			err = listener.Listen(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("listener stopped: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL to subscribe on")

	return cmd
}
