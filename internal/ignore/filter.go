package ignore

import (
	"path/filepath"
	"strings"
)

// Marker is the leading character that hides a file or directory from scanning.
const Marker = "."

// DefaultSubstrings lists path fragments that exclude an entry.
var DefaultSubstrings = []string{
	"node_modules",
	"dist",
	"build",
	"coverage",
	".git",
	".next",
	".cache",
	".temp",
	"vendor",
}

// DefaultExtensions lists source file suffixes considered for summaries.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".py", ".go", ".java", ".rb"}

// Filter decides which paths the tree builder skips and which files it keeps.
type Filter struct {
	artifactName string
	substrings   []string
	extensions   map[string]bool
	rules        *Matcher
}

// NewFilter builds a Filter. The artifact name is exempt from the marker rule.
// Empty substrings or extensions fall back to the defaults.
func NewFilter(artifactName string, substrings, extensions []string, rules *Matcher) *Filter {
	if len(substrings) == 0 {
		substrings = DefaultSubstrings
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	return &Filter{
		artifactName: artifactName,
		substrings:   append([]string(nil), substrings...),
		extensions:   exts,
		rules:        rules,
	}
}

// ShouldIgnore reports whether path is hidden (marker-prefixed final segment
// that is not the artifact) or contains an ignore substring.
func (f *Filter) ShouldIgnore(path string) bool {
	base := filepath.Base(filepath.ToSlash(path))
	if strings.HasPrefix(base, Marker) && !strings.HasSuffix(base, f.artifactName) {
		return true
	}
	for _, sub := range f.substrings {
		if sub != "" && strings.Contains(path, sub) {
			return true
		}
	}
	return false
}

// IsRelevant reports whether path has an allowed source extension.
func (f *Filter) IsRelevant(path string) bool {
	return f.extensions[filepath.Ext(path)]
}

// Excluded combines ShouldIgnore with the project rules for a root-relative path.
func (f *Filter) Excluded(relPath string, isDir bool) bool {
	if f.ShouldIgnore(relPath) {
		return true
	}
	return f.rules.ShouldIgnore(relPath, isDir)
}
