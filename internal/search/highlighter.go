package search

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/labia/pkg/utils"
)

// Highlight returns about maxLen runes of content around the first query term it contains,
// with ellipses where text was cut. Matching ignores case and accents.
func Highlight(content, query string, maxLen int) string {
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}
	folded := []rune(strings.ToLower(utils.FoldAccents(content)))
	at := -1
	if len(folded) == len(runes) {
		for _, term := range strings.Fields(strings.ToLower(utils.FoldAccents(query))) {
			if utf8.RuneCountInString(term) < 3 {
				continue
			}
			if i := runeIndex(folded, []rune(term)); i >= 0 && (at < 0 || i < at) {
				at = i
			}
		}
	}
	start := 0
	if at > maxLen/3 {
		start = at - maxLen/3
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
	}
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

func runeIndex(s, sub []rune) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
