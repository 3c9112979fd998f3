package artifact

import (
	"os"
	"path/filepath"

	"github.com/babar-dev/babar/internal/fileutil"
	"github.com/babar-dev/babar/internal/tree"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultName is the artifact file written into each summarized directory.
const DefaultName = ".aimd"

const cacheSize = 512

// PathFor returns the artifact location for a directory.
func PathFor(dir, name string) string {
	return filepath.Join(dir, name)
}

// Store reads and writes per-directory artifacts. Texts written through the
// Store are cached so parents can aggregate them without another read.
type Store struct {
	name   string
	logger *zap.Logger
	cache  *lru.Cache[string, string]
}

// NewStore returns a Store for artifacts called name.
func NewStore(name string, logger *zap.Logger) *Store {
	if name == "" {
		name = DefaultName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &Store{name: name, logger: logger, cache: cache}
}

// Name returns the artifact file name.
func (s *Store) Name() string {
	return s.name
}

// Path returns the artifact path for node.
func (s *Store) Path(node *tree.Node) string {
	return PathFor(node.Path, s.name)
}

// Read returns the artifact text for node. Absent or unreadable artifacts
// report ok=false.
func (s *Store) Read(node *tree.Node) (string, bool) {
	path := s.Path(node)
	if text, ok := s.cache.Get(path); ok {
		return text, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("artifact unreadable", zap.String("path", path), zap.Error(err))
		}
		return "", false
	}
	return string(data), true
}

// Write replaces the artifact for node with doc.
func (s *Store) Write(node *tree.Node, doc Document) error {
	path := s.Path(node)
	text := doc.Render()
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return err
	}
	s.cache.Add(path, text)
	return nil
}
