package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Fake answers without a network. It summarizes by counting the blocks of
// the assembled content, or delegates to Respond when set.
type Fake struct {
	Respond func(ctx context.Context, req Request) (string, error)
}

func (f *Fake) Name() string { return "fake" }
func (f *Fake) Close() error { return nil }

func (f *Fake) text(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond != nil {
		return f.Respond(ctx, req)
	}
	files, children := 0, 0
	for _, line := range strings.Split(req.Content, "\n") {
		switch {
		case strings.HasPrefix(line, "File: "):
			files++
		case strings.HasPrefix(line, "Directory: "):
			children++
		}
	}
	dir := req.Directory
	if dir == "" {
		dir = "."
	}
	return fmt.Sprintf("Directory %s: %d source files, %d child summaries.", dir, files, children), nil
}

func (f *Fake) Complete(ctx context.Context, req Request) (Completion, error) {
	text, err := f.text(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	return complete(req, text)
}

// Stream emits the response one word at a time.
func (f *Fake) Stream(ctx context.Context, req Request) (*Stream, error) {
	text, err := f.text(ctx, req)
	if err != nil {
		return nil, err
	}
	words := strings.SplitAfter(text, " ")
	i := 0
	return NewStream(func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i >= len(words) {
			return "", io.EOF
		}
		i++
		return words[i-1], nil
	}, nil), nil
}
