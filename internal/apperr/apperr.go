package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable category for application errors.
type Kind string

const (
	// Version resolution failures.
	NoTagsFound      Kind = "no_tags_found"
	MalformedTag     Kind = "malformed_tag"
	RevisionNotFound Kind = "revision_not_found"
	InvalidTopology  Kind = "invalid_topology" // tag is not an ancestor of HEAD

	InvalidInput Kind = "invalid_input"
	NotFound     Kind = "not_found"
	External     Kind = "external" // external tool failed (git/cmake)
	Internal     Kind = "internal" // programmer bug, invariant broken
)

// E is a rich, chainable error.
type E struct {
	Op   string // where it happened, e.g. "version.Resolve"
	Kind Kind   // category
	Err  error  // wrapped cause
	Msg  string // optional, short context message
}

func (e *E) Error() string {
	base := e.Msg
	if base == "" && e.Err != nil {
		base = e.Err.Error()
	}
	if e.Op != "" && base != "" {
		return fmt.Sprintf("%s: %s", e.Op, base)
	}
	if e.Op != "" {
		return e.Op
	}
	return base
}

func (e *E) Unwrap() error { return e.Err }

// Wrap creates an E that wraps the provided error with operation, kind, and message.
func Wrap(op string, kind Kind, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	return &E{Op: op, Kind: kind, Err: err, Msg: fmt.Sprintf(msg, args...)}
}

// New creates a new E with no wrapped cause.
func New(op string, kind Kind, msg string, args ...any) error {
	return &E{Op: op, Kind: kind, Msg: fmt.Sprintf(msg, args...)}
}

// IsKind reports whether the outermost *E in the chain is of the provided Kind.
func IsKind(err error, k Kind) bool {
	var e *E
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the Kind of the outermost *E in the chain, or "" when err
// carries no kind.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsResolution reports whether err is one of the version resolution kinds.
func IsResolution(err error) bool {
	switch KindOf(err) {
	case NoTagsFound, MalformedTag, RevisionNotFound, InvalidTopology:
		return true
	}
	return false
}
