// Package shape describes the ordered sections a summary is asked to contain
// and recovers those sections from model output.
package shape

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind is the value type of a section.
type Kind string

const (
	Text Kind = "text"
	List Kind = "list"
)

// Field is one declared section.
type Field struct {
	Key      string `mapstructure:"key" json:"key"`
	Title    string `mapstructure:"title" json:"title,omitempty"`
	Kind     Kind   `mapstructure:"kind" json:"kind"`
	Required bool   `mapstructure:"required" json:"required,omitempty"`
}

// Shape is a validated, ordered field list. The zero value and nil mean free text.
type Shape struct {
	fields []Field
	byKey  map[string]int
}

// Compile validates fields. It returns nil for an empty list.
func Compile(fields []Field) (*Shape, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Shape{byKey: make(map[string]int, len(fields))}
	for i, f := range fields {
		f.Key = strings.TrimSpace(f.Key)
		if f.Key == "" {
			return nil, fmt.Errorf("output field %d has an empty key", i)
		}
		if _, dup := s.byKey[f.Key]; dup {
			return nil, fmt.Errorf("output field %q is declared twice", f.Key)
		}
		switch Kind(strings.ToLower(string(f.Kind))) {
		case "", Text, "string":
			f.Kind = Text
		case List, "array":
			f.Kind = List
		default:
			return nil, fmt.Errorf("output field %q has unknown kind %q (want text or list)", f.Key, f.Kind)
		}
		if strings.TrimSpace(f.Title) == "" {
			f.Title = titleFromKey(f.Key)
		}
		s.byKey[f.Key] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// Fields returns a copy of the declared fields in order.
func (s *Shape) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}

// Len reports the number of fields.
func (s *Shape) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Instructions describes the expected JSON object for providers without native schema support.
func (s *Shape) Instructions() string {
	if s.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Respond with a single JSON object with these keys:\n")
	for _, f := range s.fields {
		typ := "string"
		if f.Kind == List {
			typ = "array of strings"
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "- %q (%s, %s): %s\n", f.Key, typ, req, f.Title)
	}
	return b.String()
}

func titleFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
