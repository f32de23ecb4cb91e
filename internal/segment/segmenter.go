// Package segment partitions cleaned documents into named sections by detecting headings.
package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/pkg/utils"
)

// Heading maps heading words to a section name. Patterns run against the line with accents
// folded, upper-cased and numbering removed.
type Heading struct {
	Name    models.SectionName
	Pattern *regexp.Regexp
	// Caption headings ("Tabla 3", "Figura 2") need a number after the word and are accepted in
	// any case.
	Caption bool
}

// DefaultHeadings is the controlled vocabulary with the synonyms used across the corpus.
var DefaultHeadings = []Heading{
	{Name: models.SectionInicio, Pattern: regexp.MustCompile(`^(?:INTRODUCCION|GENERALIDADES)\b`)},
	{Name: models.SectionObjetivo, Pattern: regexp.MustCompile(`^(?:OBJETIVOS?|PROPOSITO)\b`)},
	{Name: models.SectionAlcance, Pattern: regexp.MustCompile(`^(?:ALCANCE|CAMPO DE APLICACION)\b`)},
	{Name: models.SectionRequisitos, Pattern: regexp.MustCompile(`^(?:REQUISITOS|REQUERIMIENTOS)\b`)},
	{Name: models.SectionMateriales, Pattern: regexp.MustCompile(`^(?:MATERIALES|REACTIVOS)\b`)},
	{Name: models.SectionEquipos, Pattern: regexp.MustCompile(`^(?:EQUIPOS?|APARATOS|INSTRUMENTOS)\b`)},
	{Name: models.SectionProcedimiento, Pattern: regexp.MustCompile(`^(?:PROCEDIMIENTOS?|METODO|DESARROLLO)\b`)},
	{Name: models.SectionCalculos, Pattern: regexp.MustCompile(`^(?:CALCULOS?|FORMULAS|EXPRESION)\b`)},
	{Name: models.SectionResultados, Pattern: regexp.MustCompile(`^(?:RESULTADOS|INFORME)\b`)},
	{Name: models.SectionPrecauciones, Pattern: regexp.MustCompile(`^(?:PRECAUCIONES|SEGURIDAD|ADVERTENCIAS)\b`)},
	{Name: models.SectionReferencias, Pattern: regexp.MustCompile(`^(?:REFERENCIAS|NORMAS|BIBLIOGRAFIA)\b`)},
	{Name: models.SectionFin, Pattern: regexp.MustCompile(`^FIN(?: DEL DOCUMENTO)?\b`)},
	{Name: models.SectionTabla, Pattern: regexp.MustCompile(`^TABLA\s+(?:NO\.?\s*)?(?:\d+|[IVX]+)\b`), Caption: true},
	{Name: models.SectionFigura, Pattern: regexp.MustCompile(`^(?:FIGURA|FIG\.)\s*(?:NO\.?\s*)?(?:\d+|[IVX]+)\b`), Caption: true},
}

var (
	numbering    = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXL]+\.|[A-Z][.)])\s*(?:[-–)]\s*)?`)
	trailingMark = regexp.MustCompile(`[\s.:;\-–]+$`)
)

const (
	defaultMaxHeadingRunes = 60
	// maxNumberedTail bounds the words a numbered mixed-case heading may carry after its
	// vocabulary word, so "5.2 Procedimiento de ensayo" opens a section and the step
	// "3. Equipo de protección obligatorio" does not.
	maxNumberedTail = 2
)

// Segmenter splits documents into sections.
type Segmenter struct {
	headings []Heading
	maxRunes int
	logger   *zap.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets a logger that reports the detected section sequence.
func WithLogger(l *zap.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

// WithHeadings replaces the heading vocabulary.
func WithHeadings(h ...Heading) Option {
	return func(s *Segmenter) { s.headings = h }
}

// NewSegmenter returns a segmenter using DefaultHeadings.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{headings: DefaultHeadings, maxRunes: defaultMaxHeadingRunes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Match reports the section a line opens, if it is a heading. A heading is a short line that
// starts with a vocabulary word after optional numbering ("5.", "5.2", "IV.", "A)", "6 -"), and is
// written in capitals, the word alone, the word followed by a colon, or numbered with at most two
// more words.
func (s *Segmenter) Match(line string) (models.SectionName, bool) {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > s.maxRunes {
		return "", false
	}
	folded := strings.ToUpper(utils.FoldAccents(line))
	numbered := false
	if loc := numbering.FindStringIndex(folded); loc != nil {
		folded = folded[loc[1]:]
		numbered = true
	}
	bare := trailingMark.ReplaceAllString(folded, "")
	for _, h := range s.headings {
		loc := h.Pattern.FindStringIndex(bare)
		if loc == nil {
			continue
		}
		rest := strings.TrimSpace(bare[loc[1]:])
		if h.Caption || rest == "" || strings.HasPrefix(rest, ":") || isUpper(line) ||
			numbered && len(strings.Fields(rest)) <= maxNumberedTail {
			return h.Name, true
		}
	}
	return "", false
}

// Segment partitions doc into sections in reading order. Text before the first heading forms an
// INICIO section, or UNKNOWN when the document has no heading at all. Table blocks join the
// section open at their position. The heading line stays as the first line of its section.
func (s *Segmenter) Segment(doc *models.CleanedDocument) []models.Section {
	var (
		sections []models.Section
		current  = models.Section{Name: models.SectionInicio}
		buf      []string
		from     models.Block
		headings int
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		b := from
		b.Text = text
		current.Blocks = append(current.Blocks, b)
	}
	open := func(name models.SectionName) {
		flush()
		if !current.Empty() {
			sections = append(sections, current)
		}
		current = models.Section{Name: name}
		headings++
	}

	for _, b := range doc.Blocks {
		if b.IsTable() {
			flush()
			current.Blocks = append(current.Blocks, b)
			continue
		}
		if len(buf) > 0 && (from.Page != b.Page || from.Kind != b.Kind) {
			flush()
		}
		from = b
		for _, l := range strings.Split(b.Text, "\n") {
			if name, ok := s.Match(l); ok {
				open(name)
				from = b
			}
			buf = append(buf, l)
		}
	}
	flush()
	if !current.Empty() {
		sections = append(sections, current)
	}

	if headings == 0 && len(sections) == 1 {
		sections[0].Name = models.SectionUnknown
	}
	for i := range sections {
		sections[i].Index = i
	}

	if s.logger != nil {
		names := make([]string, len(sections))
		for i, sec := range sections {
			names[i] = string(sec.Name)
		}
		s.logger.Debug("sections detected", zap.String("file", doc.FileName), zap.Strings("sections", names))
	}
	return sections
}

// isUpper reports whether every letter of s is upper case and s has at least one letter.
func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 0
}
