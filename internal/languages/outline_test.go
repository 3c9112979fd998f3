package languages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestOutlineGo(t *testing.T) {
	src := []byte(`package store

type Store struct{}

type Option func(*Store)

func New() *Store { return &Store{} }

func (s *Store) Read(key string) string { return key }
`)

	symbols, err := NewDefaultRegistry().Outline(context.Background(), "store/store.go", src)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}

	want := []Symbol{
		{Kind: "type", Name: "Store", Line: 3},
		{Kind: "type", Name: "Option", Line: 5},
		{Kind: "func", Name: "New", Line: 7},
		{Kind: "method", Name: "Read", Receiver: "*Store", Line: 9},
	}
	if !reflect.DeepEqual(symbols, want) {
		t.Fatalf("unexpected outline:\n got %#v\nwant %#v", symbols, want)
	}
	if got := Format(symbols); got != "type Store, type Option, func New, method (*Store).Read" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestOutlinePython(t *testing.T) {
	src := []byte(`class Greeter:
    def greet(self, name):
        return "hi " + name


def main():
    Greeter().greet("x")
`)

	symbols, err := NewDefaultRegistry().Outline(context.Background(), "app/main.py", src)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	got := Format(symbols)
	if got != "class Greeter, def greet, def main" {
		t.Fatalf("unexpected outline %q", got)
	}
}

func TestOutlineTypeScript(t *testing.T) {
	src := []byte(`export interface Options { verbose: boolean }

export class Runner {
  run(): void {}
}

export function start(): Runner { return new Runner() }
`)

	symbols, err := NewDefaultRegistry().Outline(context.Background(), "src/runner.ts", src)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	got := Format(symbols)
	if got != "interface Options, class Runner, method run, function start" {
		t.Fatalf("unexpected outline %q", got)
	}
}

func TestOutlineUnknownExtension(t *testing.T) {
	symbols, err := NewDefaultRegistry().Outline(context.Background(), "README.md", []byte("# hi"))
	if err != nil || symbols != nil {
		t.Fatalf("expected no outline for unsupported files, got %v %v", symbols, err)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewDefaultRegistry()
	for ext, name := range map[string]string{
		"a.go": "go", "a.py": "python", "a.rb": "ruby", "A.java": "java",
		"a.js": "javascript", "a.jsx": "javascript", "a.ts": "typescript", "a.tsx": "tsx",
	} {
		g, ok := r.Lookup(ext)
		if !ok || g.Name != name {
			t.Fatalf("Lookup(%s): expected %s, got %v", ext, name, g)
		}
	}
}

func TestOutlineGoFixture(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "worker.go"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	symbols, err := NewDefaultRegistry().Outline(context.Background(), "worker.go", src)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	want := "type Service, type Worker, type Mode, type Queue, method (*Queue).Push, method (Worker).Name, method (*Worker).Run, func helper, func logStart"
	if got := Format(symbols); got != want {
		t.Fatalf("unexpected outline:\n got %s\nwant %s", got, want)
	}
	if symbols[4].Line != 21 {
		t.Fatalf("expected Push on line 21, got %d", symbols[4].Line)
	}
}

func TestOutlineStopsAtMaxSymbols(t *testing.T) {
	var b strings.Builder
	b.WriteString("package big\n")
	for i := 0; i < MaxSymbols+10; i++ {
		fmt.Fprintf(&b, "func F%d() {}\n", i)
	}

	symbols, err := NewDefaultRegistry().Outline(context.Background(), "big.go", []byte(b.String()))
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	if len(symbols) != MaxSymbols {
		t.Fatalf("expected %d symbols, got %d", MaxSymbols, len(symbols))
	}
}
