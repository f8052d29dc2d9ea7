package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/wsgateway/internal/config"
	"github.com/rmacdonaldsmith/wsgateway/internal/logging"
)

const (
	// Application info
	appName    = "wsgateway"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "WebSocket inbound gateway",
		Long: `wsgateway accepts WebSocket connections on configured inbound endpoints and
dispatches responses to the originating connection or to every connection sharing
its subscriber path, according to each endpoint's broadcast level.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, appVersion)
		},
	}
}

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAndValidate(configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			gw, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting gateway",
				zap.String("version", appVersion),
				zap.Int("endpoints", len(cfg.Endpoints)),
			)
			return gw.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wsgateway.yaml", "Path to the YAML configuration file")
	return cmd
}
