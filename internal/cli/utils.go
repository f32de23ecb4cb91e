// Package cli renders command output for the labia CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/search"
	"github.com/hyperjump/labia/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes retrieval hits to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (collection %s)\n\n", response.Total, response.QueryTime, response.Collection)
	for _, hit := range response.Hits {
		writeHit(w, hit, response.Query)
	}
	return nil
}

func writeHit(w io.Writer, hit *models.SearchHit, query string) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
		hit.Rank, hit.Score, hit.KeywordScore, hit.SemanticScore)
	fmt.Fprintf(w, "Documento: %s", orDash(hit.DocumentCode))
	if hit.Revision != "" {
		fmt.Fprintf(w, " rev %s", hit.Revision)
	}
	fmt.Fprintf(w, " | Sección: %s | Página: %d", orDash(hit.Section), hit.Page)
	if hit.TableFlag {
		fmt.Fprint(w, " | tabla")
	}
	fmt.Fprintln(w)
	if hit.ReferencedStandards != "" {
		fmt.Fprintf(w, "Normas: %s\n", hit.ReferencedStandards)
	}
	if hit.SourceFile != "" {
		fmt.Fprintf(w, "Archivo: %s\n", hit.SourceFile)
	}
	text := utils.Truncate(hit.Text, 1200)
	if !hit.TableFlag {
		text = search.Highlight(hit.Text, query, 300)
	}
	fmt.Fprintf(w, "\n%s\n\n", text)
}

// WriteRuns writes a table of runs, newest first.
func WriteRuns(w io.Writer, runs []*models.IngestionRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tRESET\tFILES\tFAILED\tCHUNKS\tTABLES")
	for _, r := range runs {
		c := r.Counts
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%d/%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Mode, r.Reset,
			c.FilesProcessed, c.FilesTotal, c.FilesFailed, c.ChunksCreated, c.TablesProcessed)
	}
	_ = tw.Flush()
}

// WriteOutcomes writes the per-file outcomes of a run.
func WriteOutcomes(w io.Writer, run *models.IngestionRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCODE\tSTATUS\tPAGES\tCHUNKS\tTABLES\tREASON")
	for _, o := range run.Outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			o.File, orDash(o.DocumentCode), o.Status, o.Pages, o.Chunks, o.Tables, TruncateWords(o.Reason, 12))
	}
	_ = tw.Flush()
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
