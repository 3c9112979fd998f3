package watch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/babar-dev/babar/internal/ignore"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	filter := ignore.NewFilter(".aimd", nil, nil, ignore.NewMatcher([]string{"generated/"}))
	return &Watcher{
		root:         root,
		filter:       filter,
		artifactName: ".aimd",
		debounce:     500 * time.Millisecond,
		logger:       zap.NewNop(),
		pending:      make(map[string]time.Time),
	}
}

func TestRelevantFiltersEvents(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	cases := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{name: "src/app.go", op: fsnotify.Write, want: true},
		{name: "src/app.go", op: fsnotify.Remove, want: true},
		{name: "src/app.go", op: fsnotify.Chmod, want: false},
		{name: "src/.aimd", op: fsnotify.Write, want: false},
		{name: "src/.babar-123.tmp", op: fsnotify.Create, want: false},
		{name: "src/README.md", op: fsnotify.Write, want: false},
		{name: "node_modules/pkg/index.js", op: fsnotify.Write, want: false},
		{name: "generated/types.ts", op: fsnotify.Create, want: false},
		{name: "lib/types.ts", op: fsnotify.Create, want: true},
	}
	for _, tc := range cases {
		event := fsnotify.Event{Name: filepath.Join(root, tc.name), Op: tc.op}
		if got := w.relevant(event); got != tc.want {
			t.Fatalf("%s %s: expected %v, got %v", tc.op, tc.name, tc.want, got)
		}
	}
}

func TestSettledWaitsForQuietWindow(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)
	start := time.Now()

	w.pending[filepath.Join(root, "b.go")] = start
	w.pending[filepath.Join(root, "a.go")] = start.Add(200 * time.Millisecond)

	if got := w.settled(start.Add(600 * time.Millisecond)); got != nil {
		t.Fatalf("expected no paths while a change is still settling, got %v", got)
	}

	got := w.settled(start.Add(800 * time.Millisecond))
	if len(got) != 2 || got[0] != filepath.Join(root, "a.go") || got[1] != filepath.Join(root, "b.go") {
		t.Fatalf("expected sorted settled paths, got %v", got)
	}
	if len(w.pending) != 0 {
		t.Fatalf("expected pending set to be drained")
	}
	if got := w.settled(start.Add(time.Second)); got != nil {
		t.Fatalf("expected nothing after drain, got %v", got)
	}
}
