package artifact

import (
	"fmt"
	"strings"
	"time"

	"github.com/babar-dev/babar/internal/shape"
)

// Provenance identifies the run that produced an artifact. Provider is the
// summarizer name, which already carries the model (e.g. "openai:gpt-4").
type Provenance struct {
	Provider    string
	RunID       string
	GeneratedAt time.Time
}

// Line renders the provenance as an HTML comment.
func (p Provenance) Line() string {
	return fmt.Sprintf("<!-- babar: generated %s by %s run %s -->",
		p.GeneratedAt.UTC().Format(time.RFC3339), p.Provider, p.RunID)
}

// Document is the content written for one directory.
type Document struct {
	Provenance *Provenance
	Body       string
	Sections   []shape.Value
}

// Render produces the artifact text. Sections, when present, replace Body.
func (d Document) Render() string {
	var b strings.Builder
	if d.Provenance != nil {
		b.WriteString(d.Provenance.Line())
		b.WriteString("\n\n")
	}

	if len(d.Sections) == 0 {
		b.WriteString(strings.TrimSpace(d.Body))
		b.WriteString("\n")
		return b.String()
	}

	first := true
	for _, section := range d.Sections {
		if section.Empty() {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		fmt.Fprintf(&b, "## %s\n\n", section.Title)
		if section.Kind == shape.List {
			for _, item := range section.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
			continue
		}
		b.WriteString(strings.TrimSpace(section.Text))
		b.WriteString("\n")
	}
	return b.String()
}
