package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperjump/labia/internal/cli"
	"github.com/hyperjump/labia/internal/server"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the collection size, the last run and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := server.CollectStatus(cmd.Context(), a.engine, a.ledger, a.cfg)
			if err != nil {
				return err
			}
			if f == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), st)
			}
			writeStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text or json")
	return cmd
}

func writeStatus(w io.Writer, st *server.Status) {
	fmt.Fprintf(w, "Collection:  %s (%s store)\n", st.Collection, st.StoreType)
	fmt.Fprintf(w, "Chunks:      %d\n", st.Chunks)
	fmt.Fprintf(w, "Documents:   %d\n", st.Documents)
	fmt.Fprintf(w, "Embeddings:  %s (%d dimensions)\n", st.EmbeddingModel, st.Dimensions)
	fmt.Fprintf(w, "Chunking:    %d / %d overlap\n", st.ChunkSize, st.ChunkOverlap)
	fmt.Fprintf(w, "Keyword:     %v\n", st.KeywordEnabled)
	fmt.Fprintf(w, "Runs:        %d\n", st.Runs)
	if r := st.LastRun; r != nil {
		fmt.Fprintf(w, "Last run:    %s at %s, %d/%d files, %d failed, %d chunks\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Counts.FilesProcessed, r.Counts.FilesTotal, r.Counts.FilesFailed, r.Counts.ChunksCreated)
	}
	fmt.Fprintf(w, "Disk usage:  %s\n", cli.FormatBytes(st.DiskBytes))
	for _, u := range st.Disk {
		fmt.Fprintf(w, "  %-16s %10s  %s\n", u.Component, cli.FormatBytes(u.Bytes), u.Path)
	}
}
