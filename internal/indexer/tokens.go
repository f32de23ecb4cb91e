package indexer

import "unicode/utf8"

// TokenCounter estimates the number of model tokens in text. Counts must not decrease when text
// grows.
type TokenCounter func(text string) int

// RuneTokens counts one token per four runes, rounded up, which is close to what embedding
// tokenizers report for Spanish prose.
func RuneTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
