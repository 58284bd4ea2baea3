package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Backland-Labs/runclient/internal/logger"
	"github.com/Backland-Labs/runclient/internal/progress"
	"github.com/Backland-Labs/runclient/internal/schema"
	"github.com/Backland-Labs/runclient/internal/webhook"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <deployment-id>",
		Short: "Follow live progress events of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			endpoint, err := c.GetWebsocketURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			a.printer.Info("Watching %s", args[0])
			err = progress.Listen(cmd.Context(), endpoint.WSConnectionURL, func(ev progress.Event) error {
				return a.printer.JSON(ev)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newWebhookCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Receive run completion webhooks",
	}
	cmd.AddCommand(newWebhookServeCommand(a))
	return cmd
}

func newWebhookServeCommand(a *app) *cobra.Command {
	var (
		port int
		path string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for webhook deliveries and print each payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Webhook.Port = port
			}
			if cmd.Flags().Changed("path") {
				a.cfg.Webhook.Path = path
			}

			var mu sync.Mutex
			consumer := webhook.ConsumerFunc(func(_ context.Context, payload *schema.WebhookPayload) error {
				mu.Lock()
				defer mu.Unlock()
				a.printer.Success("Run %s reported %s", payload.RunID, payload.Status)
				return a.printer.JSON(payload)
			})

			srv := webhook.NewServer(
				fmt.Sprintf(":%d", a.cfg.Webhook.Port),
				consumer,
				webhook.WithPath(a.cfg.Webhook.Path),
				webhook.WithLogger(logger.GetLogger()),
			)
			a.printer.Info("Listening on :%d%s", a.cfg.Webhook.Port, a.cfg.Webhook.Path)
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides RUNCLIENT_WEBHOOK_PORT)")
	cmd.Flags().StringVar(&path, "path", "", "Delivery path (overrides RUNCLIENT_WEBHOOK_PATH)")
	return cmd
}
