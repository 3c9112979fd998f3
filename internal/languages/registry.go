// Package languages extracts declaration outlines from source files with tree-sitter.
package languages

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Grammar binds a tree-sitter language to the node types worth listing.
type Grammar struct {
	Name       string
	Extensions []string
	Language   *sitter.Language
	// Kinds maps a node type to the label shown in the outline.
	Kinds map[string]string
}

// Registry maps file extensions to grammars.
type Registry struct {
	byExt map[string]*Grammar
}

func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]*Grammar)}
}

// Register adds g for each of its extensions, replacing earlier registrations.
func (r *Registry) Register(g *Grammar) {
	for _, ext := range g.Extensions {
		r.byExt[strings.ToLower(ext)] = g
	}
}

// Lookup returns the grammar for path's extension.
func (r *Registry) Lookup(path string) (*Grammar, bool) {
	g, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return g, ok
}

var scriptKinds = map[string]string{
	"function_declaration":           "function",
	"generator_function_declaration": "function",
	"class_declaration":              "class",
	"method_definition":              "method",
	"interface_declaration":          "interface",
	"type_alias_declaration":         "type",
	"enum_declaration":               "enum",
}

// NewDefaultRegistry covers every extension the default filter accepts.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&Grammar{
		Name:       "go",
		Extensions: []string{".go"},
		Language:   golang.GetLanguage(),
		Kinds: map[string]string{
			"function_declaration": "func",
			"method_declaration":   "method",
			"type_spec":            "type",
		},
	})
	r.Register(&Grammar{
		Name:       "python",
		Extensions: []string{".py"},
		Language:   python.GetLanguage(),
		Kinds: map[string]string{
			"function_definition": "def",
			"class_definition":    "class",
		},
	})
	r.Register(&Grammar{
		Name:       "ruby",
		Extensions: []string{".rb"},
		Language:   ruby.GetLanguage(),
		Kinds: map[string]string{
			"method":           "def",
			"singleton_method": "def",
			"class":            "class",
			"module":           "module",
		},
	})
	r.Register(&Grammar{
		Name:       "java",
		Extensions: []string{".java"},
		Language:   java.GetLanguage(),
		Kinds: map[string]string{
			"class_declaration":     "class",
			"interface_declaration": "interface",
			"enum_declaration":      "enum",
			"record_declaration":    "record",
			"method_declaration":    "method",
		},
	})
	r.Register(&Grammar{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx"},
		Language:   javascript.GetLanguage(),
		Kinds:      scriptKinds,
	})
	r.Register(&Grammar{
		Name:       "typescript",
		Extensions: []string{".ts"},
		Language:   typescript.GetLanguage(),
		Kinds:      scriptKinds,
	})
	r.Register(&Grammar{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		Language:   tsx.GetLanguage(),
		Kinds:      scriptKinds,
	})

	return r
}
