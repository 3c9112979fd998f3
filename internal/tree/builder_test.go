package tree

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/ignore"
	"go.uber.org/zap"
)

func newTestBuilder(rules ...string) *Builder {
	filter := ignore.NewFilter(".aimd", nil, nil, ignore.NewMatcher(rules))
	return NewBuilder(filter, zap.NewNop())
}

func TestBuildPrunesAndCountsOwnFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "src", "utils", "a.ts"), "export const a = 1\n")
	mustWriteFile(t, filepath.Join(root, "docs", "readme.md"), "# docs\n")

	res, err := newTestBuilder().Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if res.TotalToAnalyze != 1 {
		t.Fatalf("expected totalToAnalyze=1, got %d", res.TotalToAnalyze)
	}
	if _, ok := res.Root.Children["docs"]; ok {
		t.Fatalf("expected docs to be pruned")
	}
	src := res.Root.Children["src"]
	if src == nil {
		t.Fatalf("expected src to be retained")
	}
	if !src.IsPassThrough() {
		t.Fatalf("expected src to be a pass-through node")
	}
	utils := src.Children["utils"]
	if utils == nil || !utils.HasOwnFiles || len(utils.Files) != 1 {
		t.Fatalf("expected utils with one own file, got %#v", utils)
	}
	if utils.Depth != 2 || utils.Rel() != "src/utils" {
		t.Fatalf("unexpected utils depth/rel: %d %s", utils.Depth, utils.Rel())
	}
	if utils.Parent() != src || src.Parent() != res.Root || res.Root.Parent() != nil {
		t.Fatalf("expected parent links root <- src <- utils")
	}
}

func TestBuildDepthInvariant(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "main.go"), "package main\n")
	mustWriteFile(t, filepath.Join(root, "a", "b", "c", "deep.py"), "x = 1\n")
	mustWriteFile(t, filepath.Join(root, "a", "side.rb"), "puts 1\n")

	res, err := newTestBuilder().Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res.Root.Walk(func(n *Node) {
		if n.Parent() == nil {
			if n.Depth != 0 {
				t.Fatalf("expected root depth 0, got %d", n.Depth)
			}
			return
		}
		if n.Depth != n.Parent().Depth+1 {
			t.Fatalf("depth invariant broken at %s", n.Rel())
		}
		if !n.HasOwnFiles && len(n.Children) == 0 {
			t.Fatalf("expected pruning to drop empty %s", n.Rel())
		}
	})

	if res.TotalToAnalyze != 3 {
		t.Fatalf("expected 3 nodes with own files, got %d", res.TotalToAnalyze)
	}

	buckets := GroupByDepth(res.Root)
	if len(buckets) != 4 {
		t.Fatalf("expected 4 depth buckets, got %d", len(buckets))
	}
	for depth, bucket := range buckets {
		for _, n := range bucket {
			if n.Depth != depth {
				t.Fatalf("node %s in bucket %d has depth %d", n.Rel(), depth, n.Depth)
			}
		}
	}
	if got := res.Root.Find("a/b"); got == nil || !got.IsPassThrough() {
		t.Fatalf("expected a/b to be a pass-through node")
	}
}

func TestBuildSkipsIgnoredEntries(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = 1\n")
	mustWriteFile(t, filepath.Join(root, ".hidden", "x.go"), "package x\n")
	mustWriteFile(t, filepath.Join(root, "generated", "g.go"), "package g\n")
	mustWriteFile(t, filepath.Join(root, "app", "app.go"), "package app\n")
	mustWriteFile(t, filepath.Join(root, "app", ".aimd"), "summary\n")

	res, err := newTestBuilder("generated/").Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(res.Root.Children) != 1 || res.Root.Children["app"] == nil {
		t.Fatalf("expected only app to survive, got %v", res.Root.SortedChildren())
	}
	app := res.Root.Children["app"]
	if len(app.Files) != 1 || filepath.Base(app.Files[0].Path) != "app.go" {
		t.Fatalf("expected artifact file to be skipped as irrelevant, got %#v", app.Files)
	}
}

func TestBuildContainsListingFailure(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "ok", "a.go"), "package ok\n")
	mustWriteFile(t, filepath.Join(root, "broken", "b.go"), "package broken\n")

	b := newTestBuilder()
	brokenDir := filepath.Join(root, "broken")
	b.readDir = func(dir string) ([]fs.DirEntry, error) {
		if dir == brokenDir {
			return nil, fs.ErrPermission
		}
		return os.ReadDir(dir)
	}

	res, err := b.Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build should contain listing failures, got %v", err)
	}
	if _, ok := res.Root.Children["broken"]; ok {
		t.Fatalf("expected unreadable directory to be treated as empty")
	}
	if res.Root.Children["ok"] == nil || res.TotalToAnalyze != 1 {
		t.Fatalf("expected sibling to be scanned normally")
	}
	if len(res.Issues) != 1 || res.Issues[0].Kind != babarerrors.Scan || !errors.Is(res.Issues[0].Err, fs.ErrPermission) {
		t.Fatalf("expected one scan issue, got %#v", res.Issues)
	}
}

func TestBuildExcludesUnstattableFile(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "pkg", "good.go"), "package pkg\n")
	mustWriteFile(t, filepath.Join(root, "pkg", "bad.go"), "package pkg\n")

	b := newTestBuilder()
	bad := filepath.Join(root, "pkg", "bad.go")
	b.stat = func(path string) (fs.FileInfo, error) {
		if path == bad {
			return nil, fs.ErrPermission
		}
		return os.Stat(path)
	}

	res, err := b.Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	pkg := res.Root.Children["pkg"]
	if pkg == nil || len(pkg.Files) != 1 {
		t.Fatalf("expected one readable file in pkg, got %#v", pkg)
	}
	if len(res.Issues) != 1 || res.Issues[0].Kind != babarerrors.Read {
		t.Fatalf("expected one read issue, got %#v", res.Issues)
	}
}

func TestBuildEmptyRoot(t *testing.T) {
	root := t.TempDir()
	res, err := newTestBuilder().Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.Root == nil || len(res.Root.Children) != 0 || res.TotalToAnalyze != 0 {
		t.Fatalf("expected childless root and zero total, got %#v", res)
	}
}

func TestBuildRejectsMissingRoot(t *testing.T) {
	_, err := newTestBuilder().Build(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatalf("expected missing root to fail")
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.go"), "package a\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestBuilder().Build(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
