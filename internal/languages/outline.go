package languages

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// MaxSymbols caps the outline of a single file.
const MaxSymbols = 40

// Symbol is one top-level or nested declaration.
type Symbol struct {
	Kind     string
	Name     string
	Receiver string
	Line     int
}

func (s Symbol) String() string {
	if s.Receiver != "" {
		return fmt.Sprintf("%s (%s).%s", s.Kind, s.Receiver, s.Name)
	}
	return s.Kind + " " + s.Name
}

// Outline parses content and lists its declarations in source order.
// Files without a registered grammar return no symbols and no error.
func (r *Registry) Outline(ctx context.Context, path string, content []byte) ([]Symbol, error) {
	g, ok := r.Lookup(path)
	if !ok {
		return nil, nil
	}

	// Parsers are not safe for concurrent use; directories are outlined in parallel.
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(g.Language)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", path, g.Name, err)
	}
	defer tree.Close()

	symbols := make([]Symbol, 0)
	collect(tree.RootNode(), content, g, &symbols)
	return symbols, nil
}

func collect(node *sitter.Node, content []byte, g *Grammar, out *[]Symbol) {
	if node == nil || len(*out) >= MaxSymbols {
		return
	}
	if kind, ok := g.Kinds[node.Type()]; ok {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			*out = append(*out, Symbol{
				Kind:     kind,
				Name:     nameNode.Content(content),
				Receiver: receiverType(node, content),
				Line:     int(node.StartPoint().Row) + 1,
			})
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collect(node.NamedChild(i), content, g, out)
	}
}

// receiverType returns the bare type of a Go method receiver.
func receiverType(node *sitter.Node, content []byte) string {
	if node.Type() != "method_declaration" {
		return ""
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := strings.Trim(recv.Content(content), "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	if i := strings.Index(typ, "["); i >= 0 {
		typ = typ[:i]
	}
	return typ
}

// Format renders symbols as a single comma-separated line.
func Format(symbols []Symbol) string {
	if len(symbols) == 0 {
		return ""
	}
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}
