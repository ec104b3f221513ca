package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies structural compile failures.
type ErrorKind string

const (
	// UnknownBlockType: the program references a type the registry
	// never loaded.
	UnknownBlockType ErrorKind = "unknown-block-type"

	// MissingGenerator: the type is registered but has no generator.
	// Distinct from UnknownBlockType; editor-only decorative blocks
	// legitimately lack one and are rejected here, at compile time.
	MissingGenerator ErrorKind = "missing-generator"

	// UnfilledRequiredSlot: a value socket with no child and no
	// declared shadow.
	UnfilledRequiredSlot ErrorKind = "unfilled-required-slot"

	// BadGenerator: a generator returned something other than a
	// string or a [code, order] pair, or threw.
	BadGenerator ErrorKind = "bad-generator"
)

// Error is a compile failure tied to one node, with the path from the
// root so the editor can highlight the failing block.
type Error struct {
	Kind ErrorKind `json:"kind"`

	// BlockType is the offending node's type.
	BlockType string `json:"blockType"`

	// Path walks from the root to the offending node: the root slot
	// name, then statement indices and arg names.
	Path []string `json:"path"`

	Detail string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: block %q at %s", e.Kind, e.BlockType, strings.Join(e.Path, "/"))
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}
