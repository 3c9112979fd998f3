package cli

import (
	"context"

	"github.com/babar-dev/babar/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunWatch summarizes once, then again each time source files settle after a change.
func RunWatch(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(pathArg(args))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := newSession(cmd, rootPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	summarizer, err := s.summarizer(ctx)
	if err != nil {
		return err
	}
	defer summarizer.Close()

	rerun := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			s.logger.Info("re-running after changes", zap.Strings("files", changed))
		}
		summary, err := s.analyze(ctx, summarizer, "watch")
		if summary.Mode != "" {
			if printErr := PrintRunSummary(s.out, summary, s.asJSON); printErr != nil {
				return printErr
			}
		}
		return err
	}
	if err := rerun(ctx, nil); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	watcher, err := watch.New(rootPath, s.filter, s.cfg.OutputFile, s.cfg.Watch.Debounce, s.logger)
	if err != nil {
		return err
	}
	s.logger.Info("watching for changes", zap.String("root", rootPath))
	return watcher.Run(ctx, rerun)
}
