// Package cli implements the runctl command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Backland-Labs/runclient/internal/client"
	"github.com/Backland-Labs/runclient/internal/config"
	"github.com/Backland-Labs/runclient/internal/logger"
	"github.com/Backland-Labs/runclient/internal/output"
)

const version = "0.1.0"

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	apiBase    string
	apiToken   string

	cfg     *config.Config
	printer *output.Printer
}

// Execute runs the CLI
func Execute() error {
	printer := output.NewPrinter()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	// Sync fails with EINVAL when stderr is a terminal
	defer func() { _ = logger.GetLogger().Sync() }()

	err := newRootCommand(printer).ExecuteContext(ctx)
	if err != nil {
		printer.Error("%v", err)
	}
	return err
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(output.NewPrinter())
}

func newRootCommand(printer *output.Printer) *cobra.Command {
	a := &app{printer: printer}

	cmd := &cobra.Command{
		Use:   "runctl",
		Short: "runctl - client for the workflow execution service",
		Long: `runctl - client for the workflow execution service

Start runs of a deployment, poll their status, upload input files and
follow live progress. Configuration comes from RUNCLIENT_* environment
variables, an optional YAML file (--config) and the flags below.

Examples:
  runctl run dep-123 --input prompt="a red bicycle" --sync
  runctl status 4f1c...
  runctl upload ./photo.png
  runctl watch dep-123
  runctl webhook serve --port 3001`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.apiBase, "api-base", "", "Service base URL (overrides RUNCLIENT_API_BASE)")
	cmd.PersistentFlags().StringVar(&a.apiToken, "token", "", "API token (overrides RUNCLIENT_API_TOKEN)")
	cmd.SetVersionTemplate("runctl version {{.Version}}\n")

	cmd.AddCommand(
		newRunCommand(a),
		newStatusCommand(a),
		newUploadURLCommand(a),
		newUploadCommand(a),
		newWebsocketURLCommand(a),
		newWatchCommand(a),
		newWebhookCommand(a),
	)

	return cmd
}

// load reads configuration, applies flag overrides and sets up logging
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiBase != "" {
		cfg.API.Base = a.apiBase
	}
	if a.apiToken != "" {
		cfg.API.Token = a.apiToken
	}
	a.cfg = cfg

	if err := logger.Initialize(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// client builds a service client from the loaded configuration
func (a *app) client() (*client.Client, error) {
	c, err := client.New(append(a.cfg.ClientOptions(), client.WithLogger(logger.GetLogger()))...)
	if err != nil {
		return nil, fmt.Errorf("%w (set RUNCLIENT_API_TOKEN or --token)", err)
	}
	return c, nil
}
