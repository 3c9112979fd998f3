package cli

import (
	"path/filepath"
	"time"

	"github.com/babar-dev/babar/internal/state"
	"github.com/babar-dev/babar/internal/tree"
	"github.com/spf13/cobra"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()
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

	res, err := s.scan(ctx)
	if err != nil {
		return err
	}

	oracle := state.NewOracle(s.cfg.OutputFile)
	summary := StatusSummary{
		Mode:       "status",
		RootPath:   rootPath,
		Total:      res.TotalToAnalyze,
		ScanIssues: len(res.Issues),
	}
	res.Root.Walk(func(node *tree.Node) {
		if node.IsPassThrough() {
			return
		}
		verdict := oracle.Check(node)
		if !verdict.Stale {
			return
		}
		dir := StaleDirectory{Directory: node.Rel(), Reason: string(verdict.Reason)}
		if verdict.NewestFile != "" {
			dir.NewestFile = filepath.Base(verdict.NewestFile)
		}
		summary.Directories = append(summary.Directories, dir)
	})
	summary.Stale = len(summary.Directories)
	summary.DurationMS = time.Since(start).Milliseconds()

	return PrintStatusSummary(s.out, summary, s.asJSON)
}
