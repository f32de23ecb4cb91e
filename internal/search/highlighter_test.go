package search

import (
	"strings"
	"testing"
)

func TestHighlight(t *testing.T) {
	if Highlight("short", "x", 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if got := Highlight("long text here", "", 4); got != "long..." {
		t.Errorf("got %s", got)
	}
	if Highlight("x", "x", 0) != "x" {
		t.Error("maxLen 0 should return as-is")
	}
}

func TestHighlight_CentersOnTerm(t *testing.T) {
	content := strings.Repeat("relleno ", 20) + "la compresión del cilindro " + strings.Repeat("final ", 20)
	got := Highlight(content, "COMPRESION", 40)
	if !strings.Contains(got, "compresión") {
		t.Errorf("snippet %q does not contain the term", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet %q should be cut on both sides", got)
	}
}
