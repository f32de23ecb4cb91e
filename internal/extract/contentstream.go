package extract

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"golang.org/x/text/encoding/charmap"

	"github.com/hyperjump/labia/internal/models"
)

// contentStreamBackend reads the raw page content stream with pdfcpu and decodes the
// text-showing operators. It serves pages the native reader cannot parse.
type contentStreamBackend struct{}

func (contentStreamBackend) Name() string { return SourceContentStream }

func (contentStreamBackend) ExtractPage(ctx context.Context, src *Source, page int) (blocks []models.RawBlock, err error) {
	cpu, err := src.contentContext()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			blocks, err = nil, fmt.Errorf("content stream: %v", rec)
		}
	}()
	r, err := pdfcpu.ExtractPageContent(cpu, page)
	if err != nil {
		return nil, fmt.Errorf("extract page content: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	text := streamText(data)
	if text == "" {
		return nil, nil
	}
	return []models.RawBlock{{
		Kind:    models.BlockText,
		Page:    page,
		Content: text,
		Source:  SourceContentStream,
	}}, nil
}

type tokenKind int

const (
	tokOther tokenKind = iota
	tokNumber
	tokString
	tokArray
	tokOperator
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	items []token
}

// streamText decodes the text shown by a content stream, one output line per text line.
func streamText(data []byte) string {
	var (
		out      []string
		cur      strings.Builder
		operands []token
		lastY    = -1.0
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	space := func() {
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
	}
	lastString := func() (token, bool) {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				return operands[i], true
			}
		}
		return token{}, false
	}

	lx := &streamLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.text {
		case "Tj":
			if s, ok := lastString(); ok {
				cur.WriteString(s.text)
			}
		case "'", "\"":
			flush()
			if s, ok := lastString(); ok {
				cur.WriteString(s.text)
			}
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				for _, it := range operands[n-1].items {
					switch {
					case it.kind == tokString:
						cur.WriteString(it.text)
					case it.kind == tokNumber && it.num < -250:
						space()
					}
				}
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == tokNumber && operands[n-1].num != 0 {
				flush()
			} else {
				space()
			}
		case "Tm":
			if n := len(operands); n >= 6 && operands[n-1].kind == tokNumber {
				if y := operands[n-1].num; y != lastY {
					flush()
					lastY = y
				} else {
					space()
				}
			} else {
				flush()
			}
		case "T*":
			flush()
		case "ET":
			space()
		}
		operands = operands[:0]
	}
	flush()
	return strings.Join(out, "\n")
}

// streamLexer splits a content stream into the tokens the text decoder needs.
type streamLexer struct {
	data []byte
	pos  int
}

func (lx *streamLexer) next() (token, bool) {
	lx.skipSpace()
	if lx.pos >= len(lx.data) {
		return token{}, false
	}
	c := lx.data[lx.pos]
	switch {
	case c == '(':
		lx.pos++
		return token{kind: tokString, text: decodeText(lx.literal())}, true
	case c == '<' && lx.peek(1) == '<', c == '>' && lx.peek(1) == '>':
		lx.pos += 2
		return token{kind: tokOther}, true
	case c == '<':
		lx.pos++
		return token{kind: tokString, text: decodeText(lx.hexString())}, true
	case c == '[':
		lx.pos++
		var items []token
		for {
			lx.skipSpace()
			if lx.pos >= len(lx.data) {
				break
			}
			if lx.data[lx.pos] == ']' {
				lx.pos++
				break
			}
			it, ok := lx.next()
			if !ok {
				break
			}
			items = append(items, it)
		}
		return token{kind: tokArray, items: items}, true
	case c == ']' || c == '{' || c == '}' || c == ')' || c == '>':
		lx.pos++
		return token{kind: tokOther}, true
	case c == '/':
		lx.pos++
		return token{kind: tokOther, text: lx.word()}, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		w := lx.word()
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return token{kind: tokOther, text: w}, true
		}
		return token{kind: tokNumber, num: f}, true
	default:
		w := lx.word()
		if w == "" {
			lx.pos++
			return token{kind: tokOther}, true
		}
		if w == "ID" {
			lx.skipInlineImage()
		}
		return token{kind: tokOperator, text: w}, true
	}
}

func (lx *streamLexer) peek(off int) byte {
	if lx.pos+off < len(lx.data) {
		return lx.data[lx.pos+off]
	}
	return 0
}

func (lx *streamLexer) skipSpace() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case c == '%':
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
		case isPDFSpace(c):
			lx.pos++
		default:
			return
		}
	}
}

func (lx *streamLexer) word() string {
	start := lx.pos
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isPDFSpace(c) || isDelimiter(c) {
			break
		}
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

// literal reads a parenthesized string body after the opening parenthesis.
func (lx *streamLexer) literal() []byte {
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if lx.pos >= len(lx.data) {
				return out
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && lx.pos < len(lx.data); i++ {
						d := lx.data[lx.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

func (lx *streamLexer) hexString() []byte {
	var digits []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		if c == '>' {
			break
		}
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	n, err := hex.Decode(out, digits)
	if err != nil {
		return nil
	}
	return out[:n]
}

// skipInlineImage moves past inline image data up to the EI operator.
func (lx *streamLexer) skipInlineImage() {
	for lx.pos+2 < len(lx.data) {
		if isPDFSpace(lx.data[lx.pos]) && lx.data[lx.pos+1] == 'E' && lx.data[lx.pos+2] == 'I' &&
			(lx.pos+3 == len(lx.data) || isPDFSpace(lx.data[lx.pos+3])) {
			lx.pos += 3
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.data)
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

// decodeText decodes a single-byte encoded string as Windows-1252. Strings made mostly of
// control bytes (two-byte glyph ids without a usable encoding) decode to "".
func decodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	var (
		out     strings.Builder
		control int
	)
	for _, r := range string(s) {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			out.WriteByte(' ')
		case unicode.IsControl(r):
			control++
		default:
			out.WriteRune(r)
		}
	}
	if control*4 > len(b) {
		return ""
	}
	return out.String()
}
