package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/shape"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini uses the official genai client against the Gemini API.
type Gemini struct {
	cli  *genai.Client
	opts Options
}

// NewGemini reads the key from Options.APIKey, GEMINI_API_KEY or GOOGLE_API_KEY.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	key := opts.APIKey
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key == "" {
			key = os.Getenv(env)
		}
	}
	if key == "" {
		return nil, babarerrors.Configf("gemini provider requires GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if opts.Endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.Endpoint}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &Gemini{cli: cli, opts: opts}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.opts.Model }
func (g *Gemini) Close() error { return nil }

func (g *Gemini) config(req Request) *genai.GenerateContentConfig {
	temp := float32(g.opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temp,
	}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if req.Shape.Len() > 0 {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schemaFor(req.Shape)
	}
	return cfg
}

func (g *Gemini) contents(req Request) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(req.Content, genai.RoleUser)}
}

func (g *Gemini) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.opts.Model, g.contents(req), g.config(req))
	if err != nil {
		return Completion{}, fmt.Errorf("gemini: %w", err)
	}
	return complete(req, responseText(resp))
}

// Stream pulls from the genai iterator; Close stops it and cancels the call.
func (g *Gemini) Stream(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	seq := g.cli.Models.GenerateContentStream(ctx, g.opts.Model, g.contents(req), g.config(req))
	pull, stop := iter.Pull2(seq)

	next := func() (string, error) {
		resp, err, ok := pull()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
		return responseText(resp), nil
	}
	return NewStream(next, func() error {
		stop()
		cancel()
		return nil
	}), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// schemaFor converts an output shape into a response schema with declared ordering.
func schemaFor(s *shape.Shape) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, s.Len()),
	}
	for _, f := range s.Fields() {
		prop := &genai.Schema{Type: genai.TypeString, Description: f.Title}
		if f.Kind == shape.List {
			prop = &genai.Schema{
				Type:        genai.TypeArray,
				Description: f.Title,
				Items:       &genai.Schema{Type: genai.TypeString},
			}
		}
		schema.Properties[f.Key] = prop
		schema.PropertyOrdering = append(schema.PropertyOrdering, f.Key)
		if f.Required {
			schema.Required = append(schema.Required, f.Key)
		}
	}
	return schema
}
