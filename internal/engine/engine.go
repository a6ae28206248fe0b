// Package engine defines the capability surface of an incremental parsing
// engine: given a grammar, a byte source, and an optional previous tree, it
// produces a new concrete syntax tree. The coordinator in internal/parser
// consumes only this surface; internal/engine/sitter backs it with
// tree-sitter, internal/engine/dummy with a deterministic stand-in.
package engine

import (
	"context"

	"arbor/internal/language"
	"arbor/internal/position"
)

// ReadFunc pulls the next fragment of source text starting at the given
// 0-based byte offset. The point carries the same position as a line and
// byte column. Empty or nil output signals end of input.
type ReadFunc func(offset uint32, pt position.Point) []byte

// Edit describes a source mutation in both byte and point coordinates. For
// incremental reuse to be correct it must match the real document change
// exactly; nothing here can verify that.
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32
	Start      position.Point
	OldEnd     position.Point
	NewEnd     position.Point
}

// Tree is a concrete syntax tree owned by the engine that produced it.
type Tree interface {
	// RootRange is the span the tree covers, in whole-document coordinates.
	RootRange() position.Range

	// Edit shifts the tree to reflect a source change so it can serve as
	// the baseline of an incremental parse.
	Edit(e Edit)

	// Close releases the engine-side resources of the tree.
	Close()
}

// Engine is the incremental parsing engine behind a Parser.
type Engine interface {
	// Attach sets the grammar used by subsequent parses. It fails with
	// ErrGrammarVersion if the grammar's ABI is outside the engine's
	// supported window, leaving any previously attached grammar in place.
	Attach(lang language.Language) error

	// Language returns the currently attached grammar, or nil.
	Language() language.Language

	// Parse parses a complete source buffer, reusing old if given.
	Parse(ctx context.Context, content []byte, old Tree) (Tree, error)

	// ParseWith parses source pulled on demand through read, one fragment
	// at a time in document order.
	ParseWith(ctx context.Context, read ReadFunc, old Tree) (Tree, error)

	// SetTimeoutMicros limits how long each parse may take, in
	// microseconds. Zero disables the limit. The deadline is checked by
	// the engine at its own pace and is not a hard real-time bound.
	SetTimeoutMicros(micros uint64)

	// TimeoutMicros returns the configured per-parse limit.
	TimeoutMicros() uint64

	// SetIncludedRanges restricts parsing to the given spans of the
	// document while keeping tree coordinates aligned to the whole
	// document. An empty slice restores whole-document parsing. Ranges
	// must already be validated by the caller.
	SetIncludedRanges(ranges []position.Range) error

	// Reset makes the next parse start from the beginning of the document
	// instead of resuming a previously halted one.
	Reset()

	// Close releases the engine.
	Close()
}
