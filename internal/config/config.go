// Package config loads run settings from .babarrc files, BABAR_* environment
// variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/babar-dev/babar/internal/artifact"
	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/ignore"
	"github.com/babar-dev/babar/internal/llm"
	"github.com/babar-dev/babar/internal/prompt"
	"github.com/babar-dev/babar/internal/shape"
	"github.com/spf13/viper"
)

// FileName is the config file base name; any extension viper reads is accepted.
const FileName = ".babarrc"

// Config is the resolved, validated configuration for one run.
type Config struct {
	OutputFile     string        `mapstructure:"outputFile"`
	Prompt         string        `mapstructure:"prompt"`
	IgnorePatterns []string      `mapstructure:"ignorePatterns"`
	Extensions     []string      `mapstructure:"extensions"`
	ExcerptLimit   int           `mapstructure:"excerptLimit"`
	Concurrency    int           `mapstructure:"concurrency"`
	Provenance     bool          `mapstructure:"provenance"`
	Outline        bool          `mapstructure:"outline"`
	OutputSchema   []shape.Field `mapstructure:"outputSchema"`
	LLM            llm.Options   `mapstructure:"llm"`
	Watch          WatchConfig   `mapstructure:"watch"`

	// Shape is compiled from OutputSchema during Load.
	Shape *shape.Shape `mapstructure:"-"`
	// Source is the config file that was read, if any.
	Source string `mapstructure:"-"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoadOptions selects where configuration comes from.
type LoadOptions struct {
	Root string
	// File overrides the .babarrc lookup in Root.
	File string
	// Overrides are applied above every other source, keyed like the config file.
	Overrides map[string]any
}

// legacyKeys maps flat keys accepted at the top level of a config file to their nested home.
var legacyKeys = map[string]string{
	"model":               "llm.model",
	"temperature":         "llm.temperature",
	"maxTokensPerRequest": "llm.maxTokensPerRequest",
	"provider":            "llm.provider",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("outputFile", artifact.DefaultName)
	v.SetDefault("prompt", prompt.DefaultTemplate)
	v.SetDefault("ignorePatterns", ignore.DefaultSubstrings)
	v.SetDefault("extensions", ignore.DefaultExtensions)
	v.SetDefault("excerptLimit", prompt.DefaultExcerptLimit)
	v.SetDefault("concurrency", 0)
	v.SetDefault("provenance", true)
	v.SetDefault("outline", true)
	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.maxTokensPerRequest", 4000)
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}

// Load resolves configuration: defaults, then the config file, then
// environment variables, then overrides. Any problem is a config error.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BABAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.model", "BABAR_MODEL", "BABAR_LLM_MODEL")
	_ = v.BindEnv("llm.temperature", "BABAR_TEMPERATURE", "BABAR_LLM_TEMPERATURE")
	_ = v.BindEnv("llm.provider", "BABAR_PROVIDER", "BABAR_LLM_PROVIDER")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		root := opts.Root
		if root == "" {
			root = "."
		}
		v.SetConfigName(FileName)
		v.AddConfigPath(root)
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return cfg, babarerrors.New(babarerrors.Config, opts.File, fmt.Errorf("failed to read config: %w", err))
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
		for flat, nested := range legacyKeys {
			if v.InConfig(flat) && !v.InConfig(nested) {
				v.SetDefault(nested, v.Get(flat))
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, babarerrors.New(babarerrors.Config, cfg.Source, fmt.Errorf("failed to decode config: %w", err))
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.OutputFile = strings.TrimSpace(c.OutputFile)
	if c.OutputFile == "" || c.OutputFile != filepath.Base(c.OutputFile) {
		return babarerrors.Configf("outputFile must be a plain file name, got %q", c.OutputFile)
	}
	if c.Concurrency < 0 {
		return babarerrors.Configf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.ExcerptLimit < 0 {
		return babarerrors.Configf("excerptLimit must be >= 0, got %d", c.ExcerptLimit)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return babarerrors.Configf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.LLM.Retries < 0 {
		return babarerrors.Configf("llm.retries must be >= 0, got %d", c.LLM.Retries)
	}

	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		return err
	}
	c.LLM.Provider = provider
	if c.LLM.Model == "" {
		c.LLM.Model = llm.DefaultModel(provider)
	}

	s, err := shape.Compile(c.OutputSchema)
	if err != nil {
		return babarerrors.Configf("invalid outputSchema: %v", err)
	}
	c.Shape = s
	return nil
}

// Filter builds the path filter for this configuration.
func (c Config) Filter(rules *ignore.Matcher) *ignore.Filter {
	return ignore.NewFilter(c.OutputFile, c.IgnorePatterns, c.Extensions, rules)
}
