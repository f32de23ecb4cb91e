package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatterns(t *testing.T) {
	assert.Equal(t, []string{"LLCCI*", "*05.pdf"}, ParsePatterns(" LLCCI* ,, *05.pdf "))
	assert.Nil(t, ParsePatterns(""))
}

func TestSelectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "A.PDF", "notas.txt", filepath.Join("sub", "c.pdf")} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	base := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = filepath.Base(p)
		}
		return out
	}

	tests := []struct {
		name      string
		recursive bool
		patterns  []string
		want      []string
	}{
		{"all top level", false, nil, []string{"A.PDF", "b.pdf"}},
		{"recursive", true, nil, []string{"A.PDF", "b.pdf", "c.pdf"}},
		{"case insensitive glob", true, []string{"a*"}, []string{"A.PDF"}},
		{"several globs", true, []string{"c.pdf", "B.*"}, []string{"b.pdf", "c.pdf"}},
		{"only pdfs", false, []string{"notas*"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectFiles(dir, tt.recursive, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, base(got))
		})
	}

	_, err := SelectFiles(dir, false, []string{"["})
	assert.Error(t, err)
	_, err = SelectFiles(filepath.Join(dir, "missing"), false, nil)
	assert.Error(t, err)
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"SI\n", true},
		{"  SI  \n", true},
		{"SI", true},
		{"si\n", false},
		{"Si\n", false},
		{"SÍ\n", false},
		{"yes\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := &PromptConfirmer{In: strings.NewReader(tt.input), Out: &out, Token: "SI"}
			ok, err := c.Confirm(context.Background(), "Reset?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "Type SI to continue")
		})
	}
}
