package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	ingestOpts := &ingestOptions{}

	root := &cobra.Command{
		Use:   "labia",
		Short: "Ingest lab QC PDFs into the retrieval collection",
		Long: `labia extracts text and tables from the laboratory quality-control PDFs, cleans and
normalizes them, splits them into chunks and stores their embeddings in the collection read by
the retrieval application.

Without a subcommand it runs an ingestion, like "labia ingest".`,
		Example: `  labia                                   # ingest every PDF in the source directory
  labia --test --files "LLCCI02*,LLCCI05*"  # ingest a subset
  labia --reset                           # wipe the collection first (asks for SI)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, ingestOpts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "config file path (defaults and environment apply when missing)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file loaded before the config")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	addIngestFlags(root, ingestOpts)

	root.AddCommand(
		newIngestCmd(opts),
		newSearchCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newRunsCmd(opts),
		newStatusCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "labia version %s\n", version)
		},
	}
}
