package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/babar-dev/babar/internal/artifact"
	"github.com/babar-dev/babar/internal/config"
	"github.com/babar-dev/babar/internal/ignore"
	"github.com/babar-dev/babar/internal/languages"
	"github.com/babar-dev/babar/internal/llm"
	"github.com/babar-dev/babar/internal/logging"
	"github.com/babar-dev/babar/internal/prompt"
	"github.com/babar-dev/babar/internal/scheduler"
	"github.com/babar-dev/babar/internal/state"
	"github.com/babar-dev/babar/internal/tree"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session holds everything resolved once per command invocation.
type session struct {
	root   string
	cfg    config.Config
	logger *zap.Logger
	filter *ignore.Filter
	out    io.Writer
	asJSON bool
	quiet  bool
}

func newSession(cmd *cobra.Command, rootPath string) (*session, error) {
	verbosity, err := cmd.Flags().GetCount("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to read --verbose flag: %w", err)
	}
	quiet, err := OptionalBoolFlag(cmd, "quiet")
	if err != nil {
		return nil, err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return nil, err
	}
	configFile, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	overrides, err := ConfigOverrides(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(verbosity, quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := LoadEnv(rootPath); err != nil {
		logger.Warn("failed to load .env", zap.String("root", rootPath), zap.Error(err))
	}

	cfg, err := config.Load(config.LoadOptions{Root: rootPath, File: configFile, Overrides: overrides})
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		logger.Debug("loaded config", zap.String("file", cfg.Source))
	}

	rules, err := ignore.LoadRules(rootPath)
	if err != nil {
		return nil, err
	}
	matcher := ignore.NewMatcher(rules)
	if matcher.Len() > 0 {
		logger.Debug("loaded ignore rules", zap.String("file", ignore.RulesFile), zap.Int("rules", matcher.Len()))
	}

	return &session{
		root:   rootPath,
		cfg:    cfg,
		logger: logger,
		filter: cfg.Filter(matcher),
		out:    cmd.OutOrStdout(),
		asJSON: asJSON,
		quiet:  quiet,
	}, nil
}

func (s *session) summarizer(ctx context.Context) (llm.Summarizer, error) {
	return llm.New(ctx, s.cfg.LLM, s.logger)
}

func (s *session) scan(ctx context.Context) (*tree.Result, error) {
	res, err := tree.NewBuilder(s.filter, s.logger).Build(ctx, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	s.logger.Info("scanned project",
		zap.String("root", s.root),
		zap.Int("to_analyze", res.TotalToAnalyze),
		zap.Int("issues", len(res.Issues)),
	)
	return res, nil
}

// newStore returns a store with an empty cache. Each run gets its own.
func (s *session) newStore() *artifact.Store {
	return artifact.NewStore(s.cfg.OutputFile, s.logger)
}

func (s *session) assembler(store *artifact.Store) *prompt.Assembler {
	opts := prompt.Options{
		Template:     s.cfg.Prompt,
		ExcerptLimit: s.cfg.ExcerptLimit,
		Shape:        s.cfg.Shape,
	}
	if s.cfg.Outline {
		opts.Outlines = languages.NewDefaultRegistry()
	}
	return prompt.NewAssembler(opts, store, s.logger)
}

// analyze scans the project and summarizes every stale directory. The summary
// is returned even when ctx was cancelled part-way through.
func (s *session) analyze(ctx context.Context, summarizer llm.Summarizer, mode string) (RunSummary, error) {
	res, err := s.scan(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	store := s.newStore()
	progress := newProgressReporter("analyzing", s.asJSON || s.quiet)
	sched := scheduler.New(scheduler.Options{
		Summarizer:  summarizer,
		Store:       store,
		Oracle:      state.NewOracle(s.cfg.OutputFile),
		Assembler:   s.assembler(store),
		Logger:      s.logger,
		Concurrency: s.cfg.Concurrency,
		Provenance:  s.cfg.Provenance,
		OnProgress:  progress.Handle,
	})
	report, runErr := sched.Run(ctx, res.Root, res.TotalToAnalyze)
	progress.Done(report)

	summary := newRunSummary(mode, s.root, summarizer.Name(), report, len(res.Issues))
	if runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)) {
		summary.Interrupted = true
	}
	return summary, runErr
}
