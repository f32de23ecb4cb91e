package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/labia/internal/models"
)

// PrintSummary writes the operator-facing summary of a run.
func PrintSummary(w io.Writer, run *models.IngestionRun) {
	c := run.Counts
	fmt.Fprintf(w, "Run %s (%s) on collection %s\n", run.ID, run.Mode, run.Collection)
	if run.Reset {
		fmt.Fprintf(w, "  reset: %d entries deleted\n", run.ResetCount)
	}
	if run.Cancelled {
		fmt.Fprintln(w, "  run was cancelled before all files were processed")
	}
	fmt.Fprintf(w, "  files processed: %d of %d (%d failed, %d skipped)\n",
		c.FilesProcessed, c.FilesTotal, c.FilesFailed, c.FilesSkipped)
	fmt.Fprintf(w, "  chunks created:  %d (%d failed)\n", c.ChunksCreated, c.ChunksFailed)
	fmt.Fprintf(w, "  tables:          %d\n", c.TablesProcessed)
	if d := run.FinishedAt.Sub(run.StartedAt); d > 0 {
		fmt.Fprintf(w, "  took:            %s\n", d.Round(1e6))
	}

	failed := run.FailedFiles()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w, "Failed files:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range failed {
		fmt.Fprintf(tw, "  %s\t%s\n", f.File, f.Reason)
	}
	_ = tw.Flush()
}
