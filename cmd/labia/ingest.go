package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperjump/labia/internal/ingest"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/report"
)

type ingestOptions struct {
	test  bool
	files string
	reset bool
}

func addIngestFlags(cmd *cobra.Command, o *ingestOptions) {
	cmd.Flags().BoolVar(&o.test, "test", false, "test mode: process only the files matching --files or ingest.test_patterns")
	cmd.Flags().StringVar(&o.files, "files", "", "comma-separated file name globs to process (implies --test)")
	cmd.Flags().BoolVar(&o.reset, "reset", false, "delete every entry of the collection before ingesting (asks for confirmation)")
}

func newIngestCmd(opts *globalOptions) *cobra.Command {
	o := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the PDFs of the source directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, o)
		},
	}
	addIngestFlags(cmd, o)
	return cmd
}

// request maps the ingest flags to an orchestrator request.
func (o *ingestOptions) request(testPatterns []string) (ingest.Request, error) {
	req := ingest.Request{Reset: o.reset, Mode: models.ModeFull}
	patterns := ingest.ParsePatterns(o.files)
	if o.test || len(patterns) > 0 {
		if len(patterns) == 0 {
			patterns = testPatterns
		}
		if len(patterns) == 0 {
			return req, errors.New("test mode needs --files or ingest.test_patterns in the config")
		}
		req.Mode = models.ModeTest
		req.Patterns = patterns
	}
	return req, nil
}

func runIngest(cmd *cobra.Command, opts *globalOptions, o *ingestOptions) error {
	out := cmd.OutOrStdout()
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := o.request(a.cfg.Ingest.TestPatterns)
	if err != nil {
		return err
	}
	if req.Reset {
		fmt.Fprintln(out, "WARNING: every vectorized document of the collection will be deleted.")
	}
	orch := a.orchestrator(&ingest.PromptConfirmer{In: cmd.InOrStdin(), Out: out, Token: a.cfg.Ingest.ConfirmToken})

	ctx, stop := interruptible(cmd.Context(), orch, out)
	defer stop()

	run, err := orch.Run(ctx, req)
	if errors.Is(err, ingest.ErrResetDeclined) {
		fmt.Fprintln(out, "Reset not confirmed; nothing was changed.")
		return nil
	}
	if run == nil {
		return err
	}
	report.PrintSummary(out, run)
	fmt.Fprintf(out, "Run log and workbook written under %s\n", filepath.Join(a.cfg.Ingest.LogDir, "runs"))
	return err
}

// interruptible returns a context cancelled by the first SIGINT or SIGTERM, which stops
// scheduling new files. A second signal aborts the documents in flight.
func interruptible(parent context.Context, orch *ingest.Orchestrator, out io.Writer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for n := 1; ; n++ {
			select {
			case <-done:
				return
			case <-sigCh:
				if n == 1 {
					fmt.Fprintln(out, "\nStopping after the documents in progress; interrupt again to abort them.")
					cancel()
					continue
				}
				fmt.Fprintln(out, "\nAborting documents in progress.")
				orch.Abort()
				return
			}
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		close(done)
		cancel()
	}
}
