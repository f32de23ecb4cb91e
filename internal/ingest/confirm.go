package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve a destructive step.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// PromptConfirmer reads one line from In and accepts only the exact Token.
type PromptConfirmer struct {
	In    io.Reader
	Out   io.Writer
	Token string
}

// Confirm prints prompt and waits for a line. Any answer other than Token, including an empty
// input or a differently cased token, declines.
func (p *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.Out, "%s Type %s to continue: ", prompt, p.Token)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return false, fmt.Errorf("failed to read confirmation: %w", a.err)
		}
		return strings.TrimSpace(a.line) == p.Token, nil
	}
}
