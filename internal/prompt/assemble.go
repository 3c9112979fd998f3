// Package prompt assembles the summarization request for one directory.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/babar-dev/babar/internal/artifact"
	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/fileutil"
	"github.com/babar-dev/babar/internal/languages"
	"github.com/babar-dev/babar/internal/llm"
	"github.com/babar-dev/babar/internal/shape"
	"github.com/babar-dev/babar/internal/tree"
	"go.uber.org/zap"
)

// DefaultExcerptLimit is the number of characters kept from each file.
const DefaultExcerptLimit = 1000

// ErrNothingToSummarize means no own file was readable and no child summary exists.
var ErrNothingToSummarize = errors.New("no readable files or child summaries")

// Options configures an Assembler.
type Options struct {
	Template     string
	ExcerptLimit int
	Shape        *shape.Shape
	// Outlines adds tree-sitter declaration lists to excerpts when set.
	Outlines *languages.Registry
}

// Assembler turns a node, its files, and its children's artifacts into a Request.
type Assembler struct {
	opts     Options
	store    *artifact.Store
	logger   *zap.Logger
	readFile func(string) ([]byte, error)
}

func NewAssembler(opts Options, store *artifact.Store, logger *zap.Logger) *Assembler {
	if opts.ExcerptLimit <= 0 {
		opts.ExcerptLimit = DefaultExcerptLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{opts: opts, store: store, logger: logger, readFile: os.ReadFile}
}

type fileBlock struct {
	name    string
	excerpt string
	outline string
}

type childBlock struct {
	name string
	text string
}

// Build reads node's own files and its children's artifacts. Unreadable
// files are logged and left out; children without an artifact are skipped.
func (a *Assembler) Build(ctx context.Context, node *tree.Node) (llm.Request, error) {
	files := make([]fileBlock, 0, len(node.Files))
	for _, f := range node.Files {
		if err := ctx.Err(); err != nil {
			return llm.Request{}, err
		}
		data, err := a.readFile(f.Path)
		if err != nil {
			a.logger.Warn("skipping unreadable file",
				zap.String("path", f.Path),
				zap.Error(babarerrors.New(babarerrors.Read, f.Path, err)),
			)
			continue
		}
		name, _ := filepath.Rel(node.Path, f.Path)
		files = append(files, fileBlock{
			name:    filepath.ToSlash(name),
			excerpt: fileutil.Truncate(string(data), a.opts.ExcerptLimit),
			outline: a.outline(ctx, f.Path, data),
		})
	}

	children := make([]childBlock, 0, len(node.Children))
	for _, child := range node.SortedChildren() {
		if text, ok := a.store.Read(child); ok {
			children = append(children, childBlock{name: child.Name, text: text})
		}
	}

	if len(files) == 0 && len(children) == 0 {
		return llm.Request{}, babarerrors.New(babarerrors.Read, node.Path, ErrNothingToSummarize)
	}

	return llm.Request{
		Directory: node.Rel(),
		System:    RenderSystem(a.opts.Template, len(files), len(children)),
		Content:   renderContent(files, children),
		Shape:     a.opts.Shape,
	}, nil
}

func (a *Assembler) outline(ctx context.Context, path string, data []byte) string {
	if a.opts.Outlines == nil {
		return ""
	}
	symbols, err := a.opts.Outlines.Outline(ctx, path, data)
	if err != nil {
		a.logger.Debug("outline failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return languages.Format(symbols)
}

func renderContent(files []fileBlock, children []childBlock) string {
	var b strings.Builder
	if len(files) > 0 {
		blocks := make([]string, len(files))
		for i, f := range files {
			block := fmt.Sprintf("File: %s\n\n%s\n\n", f.name, f.excerpt)
			if f.outline != "" {
				block += fmt.Sprintf("Declarations: %s\n\n", f.outline)
			}
			blocks[i] = block
		}
		b.WriteString("# Source Files\n\n")
		b.WriteString(strings.Join(blocks, "---\n\n"))
	}
	if len(children) > 0 {
		blocks := make([]string, len(children))
		for i, c := range children {
			blocks[i] = fmt.Sprintf("Directory: %s\n\n%s\n\n", c.name, c.text)
		}
		b.WriteString("\n# Child Directory Summaries\n\n")
		b.WriteString(strings.Join(blocks, "---\n\n"))
	}
	return b.String()
}
