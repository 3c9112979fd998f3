package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RunPreview streams a summary of one directory to stdout. Nothing is written
// to disk, so the directory stays stale for the next run.
func RunPreview(cmd *cobra.Command, args []string) error {
	dir, err := OptionalStringFlag(cmd, "directory")
	if err != nil {
		return err
	}
	rootPath, err := resolveRoot(dir)
	if err != nil {
		return err
	}
	rel, err := relativeTo(rootPath, args[0])
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
	node := res.Root.Find(rel)
	if node == nil {
		return fmt.Errorf("%s contains no source files babar would summarize", args[0])
	}

	req, err := s.assembler(s.newStore()).Build(ctx, node)
	if err != nil {
		return err
	}

	summarizer, err := s.summarizer(ctx)
	if err != nil {
		return err
	}
	defer summarizer.Close()

	stream, err := summarizer.Stream(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start summary for %s: %w", rel, err)
	}
	defer stream.Close()

	for stream.Next() {
		if _, err := fmt.Fprint(s.out, stream.Text()); err != nil {
			return err
		}
	}
	fmt.Fprintln(s.out)
	if err := stream.Err(); err != nil {
		return fmt.Errorf("summary for %s ended early: %w", rel, err)
	}
	return nil
}
