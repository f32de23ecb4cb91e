// Package clean removes headers, footers and other repeated boilerplate from extracted documents.
package clean

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/pkg/utils"
)

// Rule is a fixed boilerplate pattern. Matches are removed from every line.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultRules are the banners and page furniture seen across the laboratory corpus.
var DefaultRules = []Rule{
	{"controlled-copy", regexp.MustCompile(`(?i)DOCUMENTO\s+CONTROLADO`)},
	{"company-banner", regexp.MustCompile(`(?i)LAZARUS.*$`)},
	{"page-of", regexp.MustCompile(`(?i)P[áa]gina\s+\d+\s+de\s+\d+`)},
	{"page-number", regexp.MustCompile(`^\s*\d+\s*$`)},
	{"underscore-rule", regexp.MustCompile(`_{3,}`)},
	{"dash-rule", regexp.MustCompile(`-{3,}`)},
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
	digitRun = regexp.MustCompile(`\d+`)
	// furniture marks header and footer lines whose numbers change from page to page
	furniture = regexp.MustCompile(`\b(?:pagina|pag|hoja|rev|revision|version|codigo|cod|fecha|edicion|emision)\b`)
)

// Cleaner strips boilerplate from the text blocks of one document at a time. Table blocks
// pass through unchanged.
type Cleaner struct {
	rules     []Rule
	threshold float64
	minPages  int
	logger    *zap.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets a logger that reports the lines classified as boilerplate.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cleaner) { c.logger = l }
}

// WithRules replaces the fixed rule table.
func WithRules(rules ...Rule) Option {
	return func(c *Cleaner) { c.rules = rules }
}

// NewCleaner returns a cleaner using DefaultRules and the frequency settings of cfg.
func NewCleaner(cfg *config.CleanConfig, opts ...Option) *Cleaner {
	c := &Cleaner{rules: DefaultRules, threshold: 0.5, minPages: 2}
	if cfg != nil {
		if cfg.BoilerplateThreshold > 0 {
			c.threshold = cfg.BoilerplateThreshold
		}
		if cfg.MinPages > 0 {
			c.minPages = cfg.MinPages
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean returns a copy of doc with boilerplate removed. The first occurrence of every removed
// repeated line is kept in Boilerplate, so header fields stay available to metadata rules.
// Cleaning a cleaned document returns it unchanged.
func (c *Cleaner) Clean(doc *models.CleanedDocument) *models.CleanedDocument {
	out := doc.Clone()

	lines := make([][]string, len(out.Blocks))
	for i, b := range out.Blocks {
		if b.IsTable() {
			continue
		}
		lines[i] = c.applyRules(strings.Split(b.Text, "\n"))
	}

	repeated := c.repeatedKeys(out, lines)
	removed := 0
	recorded := make(map[string]bool)
	blocks := out.Blocks[:0]
	for i, b := range out.Blocks {
		if b.IsTable() {
			blocks = append(blocks, b)
			continue
		}
		kept := lines[i][:0]
		for _, l := range lines[i] {
			if k := lineKey(l); k != "" && repeated[k] {
				removed++
				if !recorded[k] {
					recorded[k] = true
					out.Boilerplate = append(out.Boilerplate, l)
				}
				continue
			}
			kept = append(kept, l)
		}
		b.Text = strings.TrimSpace(blankRun.ReplaceAllString(strings.Join(kept, "\n"), "\n\n"))
		if b.Text == "" {
			continue
		}
		blocks = append(blocks, b)
	}
	out.Blocks = blocks

	if c.logger != nil && len(repeated) > 0 {
		keys := make([]string, 0, len(repeated))
		for k := range repeated {
			keys = append(keys, k)
		}
		c.logger.Debug("boilerplate removed",
			zap.String("file", doc.FileName),
			zap.Strings("lines", keys),
			zap.Int("occurrences", removed))
	}
	return out
}

// applyRules removes fixed patterns and collapses horizontal whitespace, repeating until no
// rule matches so the result is stable under another pass. Lines emptied by a rule are
// dropped; blank lines already present are kept.
func (c *Cleaner) applyRules(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		blank := strings.TrimSpace(l) == ""
		for {
			next := l
			for _, r := range c.rules {
				next = r.Pattern.ReplaceAllString(next, "")
			}
			next = strings.TrimSpace(spaceRun.ReplaceAllString(next, " "))
			if next == l {
				break
			}
			l = next
		}
		if l == "" && !blank {
			continue
		}
		out = append(out, l)
	}
	return out
}

// repeatedKeys returns the line keys present on more than threshold of the document's pages.
func (c *Cleaner) repeatedKeys(doc *models.CleanedDocument, lines [][]string) map[string]bool {
	pages := doc.PageCount
	if pages == 0 {
		seen := make(map[int]bool)
		for _, b := range doc.Blocks {
			seen[b.Page] = true
		}
		pages = len(seen)
	}
	if pages < c.minPages {
		return nil
	}

	onPages := make(map[string]map[int]bool)
	for i, b := range doc.Blocks {
		for _, l := range lines[i] {
			k := lineKey(l)
			if k == "" {
				continue
			}
			if onPages[k] == nil {
				onPages[k] = make(map[int]bool)
			}
			onPages[k][b.Page] = true
		}
	}

	repeated := make(map[string]bool)
	for k, ps := range onPages {
		if float64(len(ps))/float64(pages) > c.threshold {
			repeated[k] = true
		}
	}
	return repeated
}

// lineKey identifies near-identical lines: case, accents and spacing are ignored. Numbers are
// ignored only in page furniture such as "Página 2 de 5" or "Rev. 03".
func lineKey(l string) string {
	k := strings.ToLower(utils.FoldAccents(l))
	if furniture.MatchString(k) {
		k = digitRun.ReplaceAllString(k, "#")
	}
	return strings.Join(strings.Fields(k), " ")
}
