package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure by the stage that produced it.
type Kind string

const (
	// Scan means a directory listing failed; the directory is treated as empty.
	Scan Kind = "scan"
	// Read means a source file could not be read or statted; the file is excluded.
	Read Kind = "read"
	// Write means an artifact could not be persisted; the node stays stale.
	Write Kind = "write"
	// Provider means the text-generation backend failed for one node.
	Provider Kind = "provider"
	// Config means the run cannot start.
	Config Kind = "config"
)

// Error carries a Kind and the path it concerns.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// New wraps err with kind and path.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Configf builds a config error from a format string.
func Configf(format string, args ...any) *Error {
	return &Error{Kind: Config, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConfig reports whether err is fatal at startup.
func IsConfig(err error) bool {
	return KindOf(err) == Config
}
