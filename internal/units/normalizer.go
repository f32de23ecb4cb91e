// Package units detects measurement expressions in laboratory text and annotates them with
// their SI equivalent, keeping the original expression intact.
package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/labia/internal/models"
)

// Rule maps a unit token to its SI target.
type Rule struct {
	// Unit is the canonical spelling of the source unit.
	Unit string
	// Pattern matches the unit token right after the number. It must not contain capturing
	// groups.
	Pattern string
	// Target is the SI unit the value is converted to.
	Target string
	// Convert turns a value in Unit into Target.
	Convert func(float64) float64
	// Symbol marks units written without a separating space (°C, ").
	Symbol bool
}

func scale(f float64) func(float64) float64 {
	return func(v float64) float64 { return v * f }
}

// DefaultRules is the vocabulary of the laboratory corpus. Alternatives are tried in order, so
// tokens sharing a prefix list the longer one first ("mm" before "m", "gal" before "g").
var DefaultRules = []Rule{
	{Unit: "°C", Pattern: `[°º]\s?C`, Target: "K", Convert: func(v float64) float64 { return v + 273.15 }, Symbol: true},
	{Unit: "°F", Pattern: `[°º]\s?F`, Target: "°C", Convert: func(v float64) float64 { return (v - 32) * 5 / 9 }, Symbol: true},
	{Unit: "psi", Pattern: `(?i:psi)`, Target: "kPa", Convert: scale(6.894757293168)},
	{Unit: "MPa", Pattern: `(?i:mpa)`, Target: "kPa", Convert: scale(1000)},
	{Unit: "kPa", Pattern: `(?i:kpa)`, Target: "kPa", Convert: scale(1)},
	{Unit: "Pa", Pattern: `Pa`, Target: "kPa", Convert: scale(0.001)},
	{Unit: "mm", Pattern: `mm`, Target: "mm", Convert: scale(1)},
	{Unit: "cm", Pattern: `cm`, Target: "mm", Convert: scale(10)},
	{Unit: "mL", Pattern: `(?i:ml)`, Target: "L", Convert: scale(0.001)},
	{Unit: "in", Pattern: `(?:in|pulg(?:adas?)?)`, Target: "mm", Convert: scale(25.4)},
	{Unit: "in", Pattern: `["”]`, Target: "mm", Convert: scale(25.4), Symbol: true},
	{Unit: "ft", Pattern: `(?:ft|pies)`, Target: "m", Convert: scale(0.3048)},
	{Unit: "m", Pattern: `m`, Target: "m", Convert: scale(1)},
	{Unit: "kg", Pattern: `kg`, Target: "kg", Convert: scale(1)},
	{Unit: "lb", Pattern: `(?:lbs?|libras?)`, Target: "kg", Convert: scale(0.45359237)},
	{Unit: "gal", Pattern: `(?:galon(?:es)?|gal)`, Target: "L", Convert: scale(3.785411784)},
	{Unit: "g", Pattern: `g`, Target: "kg", Convert: scale(0.001)},
	{Unit: "L", Pattern: `(?:litros?|L|l)`, Target: "L", Convert: scale(1)},
}

const annotationPrefix = " (≈ "

var annotationPattern = regexp.MustCompile(` \(≈ -?\d+(?:\.\d+)? [^()\s]+\)`)

// Normalizer annotates measurements with their SI value.
type Normalizer struct {
	rules   []Rule
	pattern *regexp.Regexp
}

// NewNormalizer compiles rules, or DefaultRules when none are given.
func NewNormalizer(rules ...Rule) *Normalizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	alts := make([]string, len(rules))
	for i, r := range rules {
		alts[i] = fmt.Sprintf("(%s)", r.Pattern)
	}
	// group 1 number, group 2 separator, groups 3.. one per rule
	expr := `(-?\d+(?:[.,]\d+)*)([ \t]*)(?:` + strings.Join(alts, "|") + `)`
	return &Normalizer{rules: rules, pattern: regexp.MustCompile(expr)}
}

type match struct {
	start, end int
	m          models.Measurement
	converted  bool
	annotated  bool
}

// Normalize returns text with an annotation such as " (≈ 172.37 kPa)" after every recognized
// measurement whose unit differs from its SI target, plus all measurements found. Expressions
// already followed by an annotation are not annotated again, and annotations are never
// treated as measurements.
func (n *Normalizer) Normalize(text string) (string, []models.Measurement) {
	matches := n.scan(text)
	if len(matches) == 0 {
		return text, nil
	}
	var (
		b    strings.Builder
		last int
		out  = make([]models.Measurement, 0, len(matches))
	)
	for _, mt := range matches {
		out = append(out, mt.m)
		if mt.annotated || !mt.converted {
			continue
		}
		b.WriteString(text[last:mt.end])
		b.WriteString(Annotation(mt.m))
		last = mt.end
	}
	b.WriteString(text[last:])
	return b.String(), out
}

// Scan reports the measurements in text without modifying it.
func (n *Normalizer) Scan(text string) []models.Measurement {
	matches := n.scan(text)
	out := make([]models.Measurement, 0, len(matches))
	for _, mt := range matches {
		out = append(out, mt.m)
	}
	return out
}

// Annotation renders the inline SI annotation for a measurement.
func Annotation(m models.Measurement) string {
	return annotationPrefix + FormatValue(m.NormalizedValue) + " " + m.NormalizedUnit + ")"
}

// FormatValue prints values of magnitude one or more with two decimals and smaller values with
// up to four significant digits, so that 5 g reads 0.005 kg.
func FormatValue(v float64) string {
	if math.Abs(v) >= 1 || v == 0 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (n *Normalizer) scan(text string) []match {
	skip := annotationPattern.FindAllStringIndex(text, -1)
	inAnnotation := func(pos int) bool {
		for _, s := range skip {
			if pos >= s[0] && pos < s[1] {
				return true
			}
		}
		return false
	}

	var out []match
	for _, loc := range n.pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if inAnnotation(start) || !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		rule, ok := n.ruleFor(loc)
		if !ok {
			continue
		}
		sep := text[loc[4]:loc[5]]
		if rule.Symbol && len(sep) > 1 || !rule.Symbol && sep == "" {
			continue
		}
		v, ok := parseNumber(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		out = append(out, match{
			start: start,
			end:   end,
			m: models.Measurement{
				OriginalText:    text[start:end],
				NormalizedValue: roundValue(rule.Convert(v)),
				NormalizedUnit:  rule.Target,
			},
			converted: rule.Unit != rule.Target,
			annotated: strings.HasPrefix(text[end:], annotationPrefix) && inAnnotation(end),
		})
	}
	return out
}

// parseNumber reads integers, decimals written with either mark, and thousands grouped with
// either mark. A single mark followed by exactly three digits groups thousands ("4,000" and
// "4.000" are 4000) unless the integer part is zero ("0,500" is 0.5). When both marks appear
// the last one is the decimal mark. Anything else, such as "4.2.3", is rejected.
func parseNumber(raw string) (float64, bool) {
	sign := 1.0
	if strings.HasPrefix(raw, "-") {
		sign, raw = -1, raw[1:]
	}
	intPart, frac := raw, ""
	if last := strings.LastIndexAny(raw, ".,"); last >= 0 {
		head, tail := raw[:last], raw[last+1:]
		switch {
		case strings.ContainsAny(head, ".,"):
			if strings.ContainsRune(head, rune(raw[last])) {
				// one mark repeated, so every mark groups thousands
				break
			}
			intPart, frac = head, tail
		case len(tail) == 3 && len(head) <= 3 && strings.Trim(head, "0") != "":
			intPart = head + tail
		default:
			intPart, frac = head, tail
		}
	}

	groups := strings.FieldsFunc(intPart, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) > 1 {
		if strings.Contains(intPart, ".") && strings.Contains(intPart, ",") || len(groups[0]) > 3 {
			return 0, false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, false
			}
		}
	}
	num := strings.Join(groups, "")
	if frac != "" {
		num += "." + frac
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return sign * v, true
}

func (n *Normalizer) ruleFor(loc []int) (Rule, bool) {
	for i, r := range n.rules {
		g := 3 + i
		if loc[2*g] >= 0 {
			return r, true
		}
	}
	return Rule{}, false
}

// boundaryBefore rejects numbers glued to a preceding word or number, as in "C109" or "1.2.3".
func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != ',' && r != '-' && r != '_'
}

// boundaryAfter rejects units that continue into a longer word, as in "25 min".
func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// roundValue keeps two decimals for values of magnitude one or more and four significant
// digits below that.
func roundValue(v float64) float64 {
	if v == 0 || math.Abs(v) >= 1 {
		r := math.Round(v*100) / 100
		if r == 0 {
			return 0
		}
		return r
	}
	exp := math.Floor(math.Log10(math.Abs(v)))
	f := math.Pow(10, 3-exp)
	return math.Round(v*f) / f
}
