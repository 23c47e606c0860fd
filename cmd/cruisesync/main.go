package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cruisesync/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    utils.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		logLevel   string
		jsonLogs   bool
	)

	root := &cobra.Command{
		Use:           "cruisesync",
		Short:         "Ingest cruise offers, bookings and loyalty status captured by a browser extractor",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := utils.LoadConfigFile(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("json-logs") {
				cfg.Log.JSON = jsonLogs
			}
			logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.JSON)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log JSON instead of console lines")

	root.AddCommand(
		newServeCmd(a),
		newTokenCmd(a),
		newLoginCmd(a),
		newSessionCmd(a),
		newPreviewCmd(a),
		newWatchCmd(a),
		newReplayCmd(a),
	)
	return root
}
