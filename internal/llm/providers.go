package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

var providers = map[string]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderGemini: true,
	ProviderFake:   true,
}

// ParseProvider normalizes a provider name.
func ParseProvider(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ProviderOpenAI, nil
	}
	if !providers[name] {
		return "", babarerrors.Configf("unsupported llm provider %q (supported: %s)", raw, strings.Join(SupportedProviders(), ", "))
	}
	return name, nil
}

// SupportedProviders lists provider names in order.
func SupportedProviders() []string {
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOllama:
		return defaultOllamaModel
	case ProviderGemini:
		return defaultGeminiModel
	case ProviderFake:
		return ""
	default:
		return "gpt-4"
	}
}

// New builds the Summarizer for opts.Provider, wrapped in Retry when
// opts.Retries is positive. Construction failures are config errors.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Summarizer, error) {
	name, err := ParseProvider(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(name)
	}

	var s Summarizer
	switch name {
	case ProviderOpenAI:
		s, err = NewOpenAI(opts)
	case ProviderOllama:
		s = NewOllama(opts)
	case ProviderGemini:
		s, err = NewGemini(ctx, opts)
	case ProviderFake:
		s = &Fake{}
	}
	if err != nil {
		if babarerrors.IsConfig(err) {
			return nil, err
		}
		return nil, babarerrors.New(babarerrors.Config, "", fmt.Errorf("%s: %w", name, err))
	}
	if opts.Retries > 0 {
		s = Retry(s, opts.Retries+1, 500*time.Millisecond, logger)
	}
	return s, nil
}
