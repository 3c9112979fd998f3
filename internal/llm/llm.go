// Package llm talks to text-generation backends on behalf of the scheduler.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/babar-dev/babar/internal/shape"
)

// Options configures a Summarizer.
type Options struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"maxTokensPerRequest"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"apiKey"`
	Retries     int           `mapstructure:"retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Request is one summarization call.
type Request struct {
	// Directory is the root-relative path being summarized; informational only.
	Directory string
	System    string
	Content   string
	Shape     *shape.Shape
}

// Completion is the full response to a Request.
type Completion struct {
	Text string
	// Sections is set when the request had a shape and every required field was recovered.
	Sections []shape.Value
}

// Summarizer produces summaries from assembled directory content.
type Summarizer interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
	Stream(ctx context.Context, req Request) (*Stream, error)
	Close() error
}

// PermanentError marks failures that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is marked permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ErrEmptyResponse is returned when a backend answers without text.
var ErrEmptyResponse = errors.New("empty response")

func complete(req Request, text string) (Completion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Completion{}, ErrEmptyResponse
	}
	c := Completion{Text: text}
	if req.Shape.Len() > 0 {
		if values, ok := req.Shape.Parse(text); ok {
			c.Sections = values
		}
	}
	return c, nil
}

// systemPrompt appends the JSON instructions for shaped requests.
func systemPrompt(req Request) string {
	if req.Shape.Len() == 0 {
		return req.System
	}
	return strings.TrimSpace(req.System) + "\n\n" + req.Shape.Instructions()
}

// Stream is a forward-only sequence of text chunks. Close releases the
// underlying transport and may be called at any point.
type Stream struct {
	next  func() (string, error)
	close func() error

	text string
	err  error
	done bool
	once sync.Once
	cerr error
}

// NewStream wraps a chunk source. next returns io.EOF at the end.
func NewStream(next func() (string, error), close func() error) *Stream {
	if close == nil {
		close = func() error { return nil }
	}
	return &Stream{next: next, close: close}
}

// Next advances to the next non-empty chunk.
func (s *Stream) Next() bool {
	for !s.done {
		chunk, err := s.next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			s.done = true
			s.Close()
			return false
		}
		if chunk != "" {
			s.text = chunk
			return true
		}
	}
	return false
}

// Text returns the current chunk.
func (s *Stream) Text() string { return s.text }

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close releases the stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.done = true
		s.cerr = s.close()
	})
	return s.cerr
}

// Collect drains s into a single string and closes it.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Text())
	}
	if err := s.Err(); err != nil {
		return b.String(), fmt.Errorf("stream interrupted: %w", err)
	}
	return b.String(), nil
}
