// Package metadata derives structured document fields (code, standards, revision, date) from
// cleaned document text using independent pattern rules.
package metadata

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/models"
)

// DocumentType is the type recorded for every document of the corpus.
const DocumentType = "instructivo_laboratorio"

// Extractor applies the rule tables to a document. Rules never fail: a rule without a match
// leaves its field empty.
type Extractor struct {
	codes     []CodeRule
	standards []StandardRule
	dates     []DateRule
	variables []VariableRule
	logger    *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger that reports documents without a code.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithCodeRules replaces the document code rules.
func WithCodeRules(rules ...CodeRule) Option {
	return func(e *Extractor) { e.codes = rules }
}

// NewExtractor returns an extractor using the default rule tables.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		codes:     CodeRules,
		standards: StandardRules,
		dates:     DateRules,
		variables: VariableRules,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDocument reads the removed header lines first, then the narrative text, then the tables,
// so a code printed only in a repeated header is still found.
func (e *Extractor) ExtractDocument(doc *models.CleanedDocument) *models.DocumentMetadata {
	parts := make([]string, 0, len(doc.Boilerplate)+2)
	parts = append(parts, doc.Boilerplate...)
	parts = append(parts, doc.Text())
	for _, t := range doc.Tables() {
		parts = append(parts, t.Text)
	}
	return e.Extract(strings.Join(parts, "\n"), doc.FileName)
}

// Extract derives metadata from text. fileName is recorded as the source and used as the last
// resort for the document code.
func (e *Extractor) Extract(text, fileName string) *models.DocumentMetadata {
	md := &models.DocumentMetadata{
		SourceFile:   filepath.Base(fileName),
		DocumentType: DocumentType,
	}

	md.DocumentCode = e.code(text)
	if md.DocumentCode == "" && fileName != "" {
		name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		md.DocumentCode = e.code(strings.ToUpper(name))
	}
	md.LowConfidence = md.DocumentCode == ""

	md.ReferencedStandards = e.standardsIn(text)
	md.Revision = revision(text)
	md.IssueDate = e.date(text)
	md.TechnicalVariables = e.variablesIn(text)

	if md.LowConfidence && e.logger != nil {
		e.logger.Warn("no document code found", zap.String("file", md.SourceFile))
	}
	return md
}

func (e *Extractor) code(text string) string {
	for _, r := range e.codes {
		scope := window(text, r.Window)
		for _, m := range r.Pattern.FindAllStringSubmatch(scope, -1) {
			code := strings.ToUpper(separators.ReplaceAllString(m[1], ""))
			if isStandardBody(code) {
				continue
			}
			return code
		}
	}
	return ""
}

func isStandardBody(code string) bool {
	for _, b := range standardBodies {
		if strings.HasPrefix(code, b) {
			return true
		}
	}
	return false
}

func (e *Extractor) standardsIn(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range e.standards {
		for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
			s := r.Format(m)
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func revision(text string) string {
	m := revisionPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	return "rev" + twoDigits(n)
}

func (e *Extractor) date(text string) *time.Time {
	for _, r := range e.dates {
		for _, m := range r.Pattern.FindAllStringSubmatch(window(text, r.Window), -1) {
			var d, mo, y string
			switch r.Layout {
			case "ymd":
				y, mo, d = m[1], m[2], m[3]
			default:
				d, mo, y = m[1], m[2], m[3]
			}
			if t, ok := makeDate(y, mo, d); ok {
				return &t
			}
		}
	}
	return nil
}

// makeDate rejects impossible dates such as 31/02. Two-digit years are read as 20YY.
func makeDate(y, mo, d string) (time.Time, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(mo)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if len(y) == 2 {
		year += 2000
	}
	if len(y) == 3 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func (e *Extractor) variablesIn(text string) []string {
	var out []string
	for _, r := range e.variables {
		if r.Pattern.MatchString(text) {
			out = append(out, r.Name)
		}
	}
	return out
}

func window(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	return text[:n]
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
