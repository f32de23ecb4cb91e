package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/labia/internal/cli"
	"github.com/hyperjump/labia/internal/models"
)

type searchOptions struct {
	topK     int
	code     string
	section  string
	keyword  bool
	semantic bool
	minScore float64
	format   string
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	o := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve the chunks most similar to a query",
		Long: `Retrieve the top-K chunks of the collection for a query, the way the retrieval
application does. The query is all arguments joined by spaces.`,
		Example: `  labia search revenimiento del concreto
  labia search --code LLCCI02 --section PROCEDIMIENTO "presión de ensayo"
  labia search --keyword --format json ASTM C143`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, o, args)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.topK, "top-k", "k", 0, "number of chunks to return (default search.default_top_k)")
	f.StringVar(&o.code, "code", "", "only chunks of this document code")
	f.StringVar(&o.section, "section", "", "only chunks of this section (e.g. OBJETIVO, PROCEDIMIENTO)")
	f.BoolVar(&o.keyword, "keyword", false, "fuse keyword scores (requires the keyword index)")
	f.BoolVar(&o.semantic, "semantic", true, "use semantic similarity")
	f.Float64Var(&o.minScore, "min-score", 0, "drop hits scoring below this value")
	f.StringVarP(&o.format, "format", "o", "text", "output format: text or json")
	return cmd
}

func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(cmd *cobra.Command, opts *globalOptions, o *searchOptions, args []string) error {
	format, err := cli.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if !o.keyword && !o.semantic {
		return errors.New("enable at least one of --keyword and --semantic")
	}
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	query := &models.SearchQuery{
		Query:           buildSearchQuery(args),
		TopK:            o.topK,
		DocumentCode:    o.code,
		Section:         models.SectionName(o.section),
		KeywordEnabled:  o.keyword,
		SemanticEnabled: o.semantic,
		MinScore:        o.minScore,
	}
	response, err := a.engine.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
}
