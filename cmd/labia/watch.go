package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/ingest"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/report"
	"github.com/hyperjump/labia/internal/watcher"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the collection in step with the source directory",
		Long: `Watch the source directory: PDFs created or modified there are re-ingested and the
chunks of deleted PDFs are removed. With --sync (the default) every PDF is ingested first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			orch := a.orchestrator(nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if sync {
				run, err := orch.Run(ctx, ingest.Request{Mode: models.ModeFull})
				switch {
				case errors.Is(err, ingest.ErrNoFiles):
				case run != nil:
					report.PrintSummary(cmd.OutOrStdout(), run)
				case err != nil:
					return err
				}
			}

			svc := watcher.NewService(a.cfg.Source.Directory, a.cfg.Source.RecursiveOrDefault(), orch,
				watcher.WithLogger(a.logger))
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", a.cfg.Source.Directory)
			if err := svc.Run(ctx, false); err != nil {
				a.logger.Error("watcher failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", true, "ingest every PDF before watching")
	return cmd
}
