package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func RunRoot(cmd *cobra.Command, args []string) error {
	dir, err := OptionalStringFlag(cmd, "directory")
	if err != nil {
		return err
	}
	return analyzePath(cmd, dir, "run")
}

func RunAnalyze(cmd *cobra.Command, args []string) error {
	return analyzePath(cmd, pathArg(args), "run")
}

func analyzePath(cmd *cobra.Command, path, mode string) error {
	rootPath, err := resolveRoot(path)
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

	summary, runErr := s.analyze(ctx, summarizer, mode)
	if summary.Mode != "" {
		if err := PrintRunSummary(s.out, summary, s.asJSON); err != nil {
			return err
		}
	}
	return runErr
}

// signalContext cancels on Ctrl-C or SIGTERM so in-flight requests are aborted.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
