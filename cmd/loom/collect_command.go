package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loom/internal/collector"
	"loom/internal/logging"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run the capture collector service",
		Long: "Run the HTTP service capture clients push frames to. Frames are\n" +
			"stored in the layout the convert command indexes, so a collector and\n" +
			"converter pair needs no extra wiring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			srv := collector.New(cfg, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Collector listening on %s\n", srv.Addr())
			fmt.Fprintf(out, "Frames are stored under %s\n", cfg.Collector.DataDir)
			fmt.Fprintln(out, "Press Ctrl+C to stop.")

			<-runCtx.Done()
			logger.Info("collector shutting down")
			return nil
		},
	}
}
