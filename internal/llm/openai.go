package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	babarerrors "github.com/babar-dev/babar/internal/errors"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	http     *http.Client
	endpoint string
	apiKey   string
	opts     Options
}

// NewOpenAI requires an API key (Options.APIKey or OPENAI_API_KEY) unless a
// custom endpoint is configured.
func NewOpenAI(opts Options) (*OpenAI, error) {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" && endpoint == defaultOpenAIEndpoint {
		return nil, babarerrors.Configf("openai provider requires OPENAI_API_KEY")
	}
	return &OpenAI{
		http:     newHTTPClient(opts.Timeout),
		endpoint: endpoint,
		apiKey:   key,
		opts:     opts,
	}, nil
}

func (o *OpenAI) Name() string { return "openai:" + o.opts.Model }
func (o *OpenAI) Close() error { return nil }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Stream         bool              `json:"stream,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (o *OpenAI) body(req Request, stream bool) openAIRequest {
	body := openAIRequest{
		Model: o.opts.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: req.Content},
		},
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		Stream:      stream,
	}
	if req.Shape.Len() > 0 {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	return body
}

func (o *OpenAI) headers() map[string]string {
	if o.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + o.apiKey}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := postJSON(ctx, o.http, o.endpoint+"/chat/completions", o.headers(), o.body(req, false))
	if err != nil {
		return Completion{}, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("openai: failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return complete(req, out.Choices[0].Message.Content)
}

// Stream reads server-sent events until the [DONE] marker. A body that ends
// before the marker is reported as io.ErrUnexpectedEOF.
func (o *OpenAI) Stream(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := postJSON(ctx, o.http, o.endpoint+"/chat/completions", o.headers(), o.body(req, true))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai: %w", err)
	}

	lines := newLineReader(resp.Body)
	done := false
	next := func() (string, error) {
		if done {
			return "", io.EOF
		}
		for {
			line, err := lines.next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return "", io.ErrUnexpectedEOF
				}
				return "", err
			}
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				done = true
				return "", io.EOF
			}
			var chunk openAIResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return "", fmt.Errorf("openai: malformed stream event: %w", err)
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				return chunk.Choices[0].Delta.Content, nil
			}
		}
	}
	return NewStream(next, func() error {
		cancel()
		return resp.Body.Close()
	}), nil
}
