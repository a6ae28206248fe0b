// Package dummy is a deterministic in-memory engine. It honors the full
// engine contract but "parses" by remembering the content it was fed, so
// coordinator behavior can be exercised without a compiled grammar.
package dummy

import (
	"bytes"
	"context"
	"fmt"

	"arbor/internal/engine"
	"arbor/internal/language"
	"arbor/internal/position"
)

// ABI window accepted by Attach, mirroring the real engine's.
const (
	MinABIVersion = 13
	ABIVersion    = 14
)

// Grammar is a stand-in grammar definition.
type Grammar struct {
	name string
	abi  uint32
}

// NewGrammar creates a grammar handle with the given ABI tag.
func NewGrammar(name string, abi uint32) *Grammar {
	return &Grammar{name: name, abi: abi}
}

// Name implements language.Language.
func (g *Grammar) Name() string {
	return g.name
}

// ABIVersion implements language.Language.
func (g *Grammar) ABIVersion() uint32 {
	return g.abi
}

// Tree is the dummy parse result: the span of the content that was parsed.
type Tree struct {
	content []byte
	closed  bool
	edits   int
}

// RootRange implements engine.Tree.
func (t *Tree) RootRange() position.Range {
	return position.Range{
		StartByte: 0,
		EndByte:   uint32(len(t.content)),
		Start:     position.Point{Line: 1, Column: 0},
		End:       position.PointAt(t.content, uint32(len(t.content))),
	}
}

// Lines is the dummy's notion of tree structure: the number of lines in the
// parsed content.
func (t *Tree) Lines() int {
	return bytes.Count(t.content, []byte("\n")) + 1
}

// Edit implements engine.Tree. The dummy only counts edits; reuse is
// observable through Edits.
func (t *Tree) Edit(engine.Edit) {
	t.edits++
}

// Edits returns how many edits were applied to the tree.
func (t *Tree) Edits() int {
	return t.edits
}

// Close implements engine.Tree.
func (t *Tree) Close() {
	t.closed = true
}

// Closed reports whether the tree was released.
func (t *Tree) Closed() bool {
	return t.closed
}

// Engine implements engine.Engine over plain byte buffers.
type Engine struct {
	lang    *Grammar
	timeout uint64
	ranges  []position.Range
	resets  int

	// FailNext makes the next parse produce no tree, exercising the
	// engine-failure path.
	FailNext bool
}

// New creates an engine with no language attached.
func New() *Engine {
	return &Engine{}
}

// Attach implements engine.Engine.
func (e *Engine) Attach(lang language.Language) error {
	g, ok := lang.(*Grammar)
	if !ok {
		return fmt.Errorf("%w: grammar %q was not compiled for this engine",
			engine.ErrGrammarVersion, lang.Name())
	}
	if g.abi < MinABIVersion || g.abi > ABIVersion {
		return fmt.Errorf("%w: grammar %s has ABI %d, engine supports %d through %d",
			engine.ErrGrammarVersion, g.name, g.abi, MinABIVersion, ABIVersion)
	}

	e.lang = g
	return nil
}

// Language implements engine.Engine.
func (e *Engine) Language() language.Language {
	if e.lang == nil {
		return nil
	}
	return e.lang
}

// Parse implements engine.Engine.
func (e *Engine) Parse(ctx context.Context, content []byte, old engine.Tree) (engine.Tree, error) {
	if e.lang == nil {
		return nil, engine.ErrNoLanguage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.FailNext {
		e.FailNext = false
		return nil, engine.ErrNoTree
	}

	return &Tree{content: append([]byte(nil), content...)}, nil
}

// ParseWith implements engine.Engine, pulling fragments until one comes
// back empty.
func (e *Engine) ParseWith(ctx context.Context, read engine.ReadFunc, old engine.Tree) (engine.Tree, error) {
	if e.lang == nil {
		return nil, engine.ErrNoLanguage
	}

	var content []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset := uint32(len(content))
		frag := read(offset, position.PointAt(content, offset))
		if len(frag) == 0 {
			break
		}
		content = append(content, frag...)
	}

	if e.FailNext {
		e.FailNext = false
		return nil, engine.ErrNoTree
	}

	return &Tree{content: content}, nil
}

// SetTimeoutMicros implements engine.Engine.
func (e *Engine) SetTimeoutMicros(micros uint64) {
	e.timeout = micros
}

// TimeoutMicros implements engine.Engine.
func (e *Engine) TimeoutMicros() uint64 {
	return e.timeout
}

// SetIncludedRanges implements engine.Engine.
func (e *Engine) SetIncludedRanges(ranges []position.Range) error {
	e.ranges = append([]position.Range(nil), ranges...)
	return nil
}

// IncludedRanges returns the ranges last handed to the engine.
func (e *Engine) IncludedRanges() []position.Range {
	return e.ranges
}

// Reset implements engine.Engine.
func (e *Engine) Reset() {
	e.resets++
}

// Resets returns how many times Reset was called.
func (e *Engine) Resets() int {
	return e.resets
}

// Close implements engine.Engine.
func (e *Engine) Close() {}
