package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "llama2"
)

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	http     *http.Client
	endpoint string
	opts     Options
}

func NewOllama(opts Options) *Ollama {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if opts.Model == "" {
		opts.Model = defaultOllamaModel
	}
	return &Ollama{http: newHTTPClient(opts.Timeout), endpoint: endpoint, opts: opts}
}

func (o *Ollama) Name() string { return "ollama:" + o.opts.Model }
func (o *Ollama) Close() error { return nil }

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *Ollama) body(req Request, stream bool) ollamaRequest {
	body := ollamaRequest{
		Model:  o.opts.Model,
		System: systemPrompt(req),
		Prompt: req.Content,
		Stream: stream,
		Options: map[string]any{
			"temperature": o.opts.Temperature,
		},
	}
	if o.opts.MaxTokens > 0 {
		body.Options["num_predict"] = o.opts.MaxTokens
	}
	if req.Shape.Len() > 0 {
		body.Format = "json"
	}
	return body
}

func (o *Ollama) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := postJSON(ctx, o.http, o.endpoint+"/api/generate", nil, o.body(req, false))
	if err != nil {
		return Completion{}, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	if out.Error != "" {
		return Completion{}, fmt.Errorf("ollama: %s", out.Error)
	}
	return complete(req, out.Response)
}

// Stream decodes newline-delimited JSON chunks until one reports done.
func (o *Ollama) Stream(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := postJSON(ctx, o.http, o.endpoint+"/api/generate", nil, o.body(req, true))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ollama: %w", err)
	}

	dec := json.NewDecoder(resp.Body)
	finished := false
	next := func() (string, error) {
		if finished {
			return "", io.EOF
		}
		var chunk ollamaChunk
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", fmt.Errorf("ollama: malformed stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama: %s", chunk.Error)
		}
		finished = chunk.Done
		return chunk.Response, nil
	}
	return NewStream(next, func() error {
		cancel()
		return resp.Body.Close()
	}), nil
}
