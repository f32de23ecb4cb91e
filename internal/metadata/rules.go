package metadata

import (
	"regexp"
	"strings"
)

// CodeRule recognizes a document code. Group 1 holds the code with its separators.
type CodeRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Window limits the search to the first Window bytes of the text; zero means the whole text.
	Window int
}

// StandardRule recognizes references to one standards body.
type StandardRule struct {
	Body    string
	Pattern *regexp.Regexp
	Format  func(groups []string) string
}

// VariableRule reports a technical variable when its pattern occurs.
type VariableRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DateRule recognizes an issue date. Layout names the group order: "dmy" or "ymd".
type DateRule struct {
	Name    string
	Pattern *regexp.Regexp
	Layout  string
	Window  int
}

// CodeRules are tried in order over the text, then over the file name.
var CodeRules = []CodeRule{
	{
		Name:    "laboratory",
		Pattern: regexp.MustCompile(`(?i)(?:^|[^A-Z0-9])(LL[-\s_]?C{1,2}I{1,2}[-\s_]?I?[-\s_]?\d{2,3})(?:[^0-9]|$)`),
	},
	{
		Name:    "hyphenated",
		Pattern: regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z]{2}-[A-Z]{2,3}-\d{2,3})(?:[^0-9]|$)`),
		Window:  1500,
	},
	{
		Name:    "compact",
		Pattern: regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z]{4,5}\d{2,3})(?:[^0-9]|$)`),
		Window:  1500,
	},
}

// standardBodies never name a document code.
var standardBodies = []string{"ASTM", "NMX", "ISO", "UNE", "AASHTO", "ACI", "NOM", "EN"}

var separators = regexp.MustCompile(`[-\s_]+`)

// StandardRules cover the bodies cited by the laboratory instructions.
var StandardRules = []StandardRule{
	{
		Body:    "ASTM",
		Pattern: regexp.MustCompile(`(?i)\bASTM\s+([A-Z])\s?(\d{1,4})(?:\s?M)?(?:-(\d{2,4}))?\b`),
		Format: func(g []string) string {
			s := "ASTM " + strings.ToUpper(g[1]) + g[2]
			if g[3] != "" {
				s += "-" + g[3]
			}
			return s
		},
	},
	{
		Body:    "EN",
		Pattern: regexp.MustCompile(`\b(?:UNE-)?EN\s+(\d{3,5}(?:-\d{1,2})*)\b`),
		Format:  func(g []string) string { return "EN " + g[1] },
	},
	{
		Body:    "NMX",
		Pattern: regexp.MustCompile(`(?i)\bNMX[-\s]?([A-Z])[-\s]?(\d{2,4})\b`),
		Format:  func(g []string) string { return "NMX-" + strings.ToUpper(g[1]) + "-" + g[2] },
	},
	{
		Body:    "ISO",
		Pattern: regexp.MustCompile(`\bISO\s+(\d{3,5}(?:-\d{1,2})?)\b`),
		Format:  func(g []string) string { return "ISO " + g[1] },
	},
}

var revisionPattern = regexp.MustCompile(`(?i)\b(?:revisi[oó]n|rev|edici[oó]n)\.?\s*(?:n[o°º]\.?\s*)?:?\s*(\d{1,2})(?:$|[^0-9/-])`)

// DateRules are tried in order; labelled dates win over bare ones near the top of the document.
var DateRules = []DateRule{
	{
		Name:    "labelled",
		Pattern: regexp.MustCompile(`(?i)\b(?:fecha|date)(?:\s+de\s+(?:emisi[oó]n|revisi[oó]n|elaboraci[oó]n|vigencia))?\s*[:.]?\s*(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`),
		Layout:  "dmy",
	},
	{
		Name:    "labelled-iso",
		Pattern: regexp.MustCompile(`(?i)\b(?:fecha|date)(?:\s+de\s+(?:emisi[oó]n|revisi[oó]n|elaboraci[oó]n|vigencia))?\s*[:.]?\s*(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		Layout:  "ymd",
	},
	{
		Name:    "iso",
		Pattern: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		Layout:  "ymd",
		Window:  1500,
	},
	{
		Name:    "dmy",
		Pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		Layout:  "dmy",
		Window:  1500,
	},
}

// VariableRules are the measured quantities the retrieval application filters on.
var VariableRules = []VariableRule{
	{"pH", regexp.MustCompile(`\bpH\b`)},
	{"Pa", regexp.MustCompile(`\bPa\b`)},
	{"Ps", regexp.MustCompile(`\bPs\b`)},
	{"G", regexp.MustCompile(`\bG\b`)},
	{"T", regexp.MustCompile(`\bT\b`)},
	{"V", regexp.MustCompile(`\bV\b`)},
	{"gravedad específica", regexp.MustCompile(`(?i)gravedad\s+espec[ií]fica`)},
	{"revenimiento", regexp.MustCompile(`(?i)revenimiento`)},
	{"resistencia", regexp.MustCompile(`(?i)resistencia`)},
	{"contenido de aire", regexp.MustCompile(`(?i)contenido\s+de\s+aire`)},
	{"viscosidad", regexp.MustCompile(`(?i)viscosidad`)},
	{"densidad", regexp.MustCompile(`(?i)densidad`)},
}
