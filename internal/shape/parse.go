package shape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Value is the recovered content of one field.
type Value struct {
	Field
	Text    string
	Items   []string
	Present bool
}

// Empty reports whether the value carries no content.
func (v Value) Empty() bool {
	if v.Kind == List {
		return len(v.Items) == 0
	}
	return strings.TrimSpace(v.Text) == ""
}

// Parse recovers field values from raw model output. JSON objects are decoded
// first; otherwise headings that name a field slice the text; otherwise every
// text field takes the whole text and every list field takes its non-empty lines.
// ok is false when a required field ends up empty.
func (s *Shape) Parse(raw string) (values []Value, ok bool) {
	if s.Len() == 0 {
		return nil, false
	}
	if decoded, err := s.Decode(raw); err == nil {
		values = decoded
	} else if sliced, found := s.sliceByHeadings(raw); found {
		values = sliced
	} else {
		values = s.wholeText(raw)
	}
	return values, s.complete(values)
}

// Decode reads a JSON object (optionally inside a code fence) into field values.
func (s *Shape) Decode(raw string) ([]Value, error) {
	body := stripFence(raw)
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("output is not a JSON object")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}

	values := make([]Value, len(s.fields))
	for i, f := range s.fields {
		values[i] = Value{Field: f}
		v, exists := obj[f.Key]
		if !exists || v == nil {
			continue
		}
		values[i].Present = true
		switch f.Kind {
		case List:
			values[i].Items = toItems(v)
		default:
			values[i].Text = toText(v)
		}
	}
	return values, nil
}

var headingRe = regexp.MustCompile(`^\s*(?:#{1,6}\s+|\*\*)?([^:*#]+?)(?:\*\*)?\s*:?\s*$`)

func (s *Shape) sliceByHeadings(raw string) ([]Value, bool) {
	lookup := make(map[string]int, len(s.fields)*2)
	for i, f := range s.fields {
		lookup[normalizeLabel(f.Key)] = i
		lookup[normalizeLabel(f.Title)] = i
	}

	bodies := make([][]string, len(s.fields))
	seen := make([]bool, len(s.fields))
	current := -1
	found := false
	for _, line := range strings.Split(raw, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil && isHeadingLine(line) {
			if idx, ok := lookup[normalizeLabel(m[1])]; ok {
				current = idx
				seen[idx] = true
				found = true
				continue
			}
		}
		if current >= 0 {
			bodies[current] = append(bodies[current], line)
		}
	}
	if !found {
		return nil, false
	}

	values := make([]Value, len(s.fields))
	for i, f := range s.fields {
		values[i] = Value{Field: f, Present: seen[i]}
		text := strings.TrimSpace(strings.Join(bodies[i], "\n"))
		if f.Kind == List {
			values[i].Items = splitLines(text)
		} else {
			values[i].Text = text
		}
	}
	return values, true
}

func (s *Shape) wholeText(raw string) []Value {
	text := strings.TrimSpace(raw)
	values := make([]Value, len(s.fields))
	for i, f := range s.fields {
		values[i] = Value{Field: f, Present: text != ""}
		if f.Kind == List {
			values[i].Items = splitLines(text)
		} else {
			values[i].Text = text
		}
	}
	return values
}

func (s *Shape) complete(values []Value) bool {
	for _, v := range values {
		if v.Required && v.Empty() {
			return false
		}
	}
	return true
}

func isHeadingLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#") ||
		(strings.HasPrefix(trimmed, "**") && strings.Contains(trimmed[2:], "**")) ||
		(strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "*"))
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer("_", " ", "-", " ").Replace(label)
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)

func splitLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func stripFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.Index(body, "\n"); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		return strings.Join(toItems(t), "\n")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func toItems(v any) []string {
	switch t := v.(type) {
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if text := toText(item); text != "" {
				items = append(items, text)
			}
		}
		return items
	case string:
		return splitLines(t)
	default:
		return []string{toText(t)}
	}
}
