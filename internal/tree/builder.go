package tree

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/ignore"
	"go.uber.org/zap"
)

// Issue records a contained scan or read failure.
type Issue struct {
	Kind babarerrors.Kind
	Path string
	Err  error
}

// Result is the outcome of a Build.
type Result struct {
	Root           *Node
	TotalToAnalyze int
	Issues         []Issue
}

// Builder scans a directory hierarchy into a pruned tree.
type Builder struct {
	filter  *ignore.Filter
	logger  *zap.Logger
	readDir func(string) ([]fs.DirEntry, error)
	stat    func(string) (fs.FileInfo, error)
}

// NewBuilder returns a Builder using the real filesystem.
func NewBuilder(filter *ignore.Filter, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		filter:  filter,
		logger:  logger,
		readDir: os.ReadDir,
		stat:    os.Stat,
	}
}

// Build scans rootPath depth-first. Subdirectories are attached only when
// their subtree holds a relevant file; TotalToAnalyze counts nodes with own files.
func (b *Builder) Build(ctx context.Context, rootPath string) (*Result, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rootPath, err)
	}
	info, err := b.stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	res := &Result{Root: newNode(abs, nil)}
	if err := b.scan(ctx, res, res.Root); err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Builder) scan(ctx context.Context, res *Result, node *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := b.readDir(node.Path)
	if err != nil {
		b.record(res, babarerrors.Scan, node.Path, err)
		entries = nil
	}

	for _, entry := range entries {
		full := filepath.Join(node.Path, entry.Name())
		rel, _ := filepath.Rel(res.Root.Path, full)
		rel = filepath.ToSlash(rel)
		if b.filter.Excluded(rel, entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			child := newNode(full, node)
			if err := b.scan(ctx, res, child); err != nil {
				return err
			}
			if child.HasOwnFiles || len(child.Children) > 0 {
				node.Children[child.Name] = child
			}
			continue
		}

		if !b.filter.IsRelevant(full) {
			continue
		}
		info, err := b.stat(full)
		if err != nil {
			b.record(res, babarerrors.Read, full, err)
			continue
		}
		node.Files = append(node.Files, File{Path: full, ModTime: info.ModTime()})
	}

	node.HasOwnFiles = len(node.Files) > 0
	if node.HasOwnFiles {
		res.TotalToAnalyze++
	}
	return nil
}

func (b *Builder) record(res *Result, kind babarerrors.Kind, path string, err error) {
	res.Issues = append(res.Issues, Issue{Kind: kind, Path: path, Err: err})
	b.logger.Warn("skipping unreadable path",
		zap.String("kind", string(kind)),
		zap.String("path", path),
		zap.Error(err),
	)
}
