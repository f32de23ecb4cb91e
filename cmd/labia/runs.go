package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/labia/internal/cli"
	"github.com/hyperjump/labia/internal/report"
	"github.com/hyperjump/labia/internal/storage"
)

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		offset int
		format string
	)
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List ingestion runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			f, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ledger, err := storage.NewSQLiteLedger(cfg.Storage.DatabasePath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if len(args) == 1 {
				run, err := ledger.GetRun(cmd.Context(), args[0])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if f == cli.OutputJSON {
					return cli.WriteJSON(out, run)
				}
				report.PrintSummary(out, run)
				fmt.Fprintln(out)
				cli.WriteOutcomes(out, run)
				return nil
			}

			runs, err := ledger.ListRuns(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			if f == cli.OutputJSON {
				return cli.WriteJSON(out, runs)
			}
			cli.WriteRuns(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text or json")
	return cmd
}
