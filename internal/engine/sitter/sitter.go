// Package sitter backs the engine capability with tree-sitter, through the
// smacker/go-tree-sitter binding.
package sitter

import (
	"context"
	"errors"
	"fmt"

	ts "github.com/smacker/go-tree-sitter"

	"arbor/internal/engine"
	"arbor/internal/language"
	"arbor/internal/position"
)

// ABI window of the bundled tree-sitter runtime. Grammars generated within
// this window attach cleanly.
const (
	MinABIVersion = 13
	ABIVersion    = 14
)

// Grammar tags a compiled tree-sitter grammar with its name and ABI
// version. It implements language.Language.
type Grammar struct {
	name string
	abi  uint32
	lang *ts.Language
}

// NewGrammar wraps a compiled tree-sitter grammar.
func NewGrammar(name string, abi uint32, lang *ts.Language) *Grammar {
	return &Grammar{name: name, abi: abi, lang: lang}
}

// Name implements language.Language.
func (g *Grammar) Name() string {
	return g.name
}

// ABIVersion implements language.Language.
func (g *Grammar) ABIVersion() uint32 {
	return g.abi
}

// Sitter exposes the underlying tree-sitter language.
func (g *Grammar) Sitter() *ts.Language {
	return g.lang
}

// Engine implements engine.Engine on a tree-sitter parser.
type Engine struct {
	parser *ts.Parser
	lang   *Grammar
}

// New creates an engine with no language attached.
func New() *Engine {
	return &Engine{parser: ts.NewParser()}
}

// Attach implements engine.Engine. A grammar not produced for this engine,
// or produced with an ABI outside the supported window, is rejected and the
// previous grammar stays attached.
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

	e.parser.SetLanguage(g.lang)
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

	st, err := e.parser.ParseCtx(ctx, unwrap(old), content)
	return wrap(st, err)
}

// ParseWith implements engine.Engine, pulling fragments through read.
func (e *Engine) ParseWith(ctx context.Context, read engine.ReadFunc, old engine.Tree) (engine.Tree, error) {
	if e.lang == nil {
		return nil, engine.ErrNoLanguage
	}

	in := ts.Input{
		Encoding: ts.InputEncodingUTF8,
		Read: func(offset uint32, pt ts.Point) []byte {
			return read(offset, toPoint(pt))
		},
	}
	st, err := e.parser.ParseInputCtx(ctx, unwrap(old), in)
	return wrap(st, err)
}

// SetTimeoutMicros implements engine.Engine. The limit is forwarded to
// tree-sitter, which checks elapsed time at its own cadence; a halted parse
// keeps its state and resumes on the next call unless Reset is issued.
func (e *Engine) SetTimeoutMicros(micros uint64) {
	e.parser.SetOperationLimit(int(micros))
}

// TimeoutMicros implements engine.Engine.
func (e *Engine) TimeoutMicros() uint64 {
	return uint64(e.parser.OperationLimit())
}

// SetIncludedRanges implements engine.Engine. The ranges are expected to be
// validated by the coordinator.
func (e *Engine) SetIncludedRanges(ranges []position.Range) error {
	converted := make([]ts.Range, len(ranges))
	for i, r := range ranges {
		converted[i] = ts.Range{
			StartByte:  r.StartByte,
			EndByte:    r.EndByte,
			StartPoint: fromPoint(r.Start),
			EndPoint:   fromPoint(r.End),
		}
	}
	e.parser.SetIncludedRanges(converted)
	return nil
}

// Reset implements engine.Engine.
func (e *Engine) Reset() {
	e.parser.Reset()
}

// Close implements engine.Engine.
func (e *Engine) Close() {
	e.parser.Close()
}

func wrap(st *ts.Tree, err error) (engine.Tree, error) {
	if err != nil {
		if errors.Is(err, ts.ErrOperationLimit) {
			return nil, fmt.Errorf("%w: %v", engine.ErrTimeout, err)
		}
		return nil, err
	}
	if st == nil {
		return nil, engine.ErrNoTree
	}
	return &Tree{tree: st}, nil
}

func unwrap(old engine.Tree) *ts.Tree {
	if t, ok := old.(*Tree); ok {
		return t.tree
	}
	return nil
}

// Tree wraps a tree-sitter syntax tree.
type Tree struct {
	tree *ts.Tree
}

// RootRange implements engine.Tree.
func (t *Tree) RootRange() position.Range {
	root := t.tree.RootNode()
	return position.Range{
		StartByte: root.StartByte(),
		EndByte:   root.EndByte(),
		Start:     toPoint(root.StartPoint()),
		End:       toPoint(root.EndPoint()),
	}
}

// Edit implements engine.Tree.
func (t *Tree) Edit(e engine.Edit) {
	t.tree.Edit(ts.EditInput{
		StartIndex:  e.StartByte,
		OldEndIndex: e.OldEndByte,
		NewEndIndex: e.NewEndByte,
		StartPoint:  fromPoint(e.Start),
		OldEndPoint: fromPoint(e.OldEnd),
		NewEndPoint: fromPoint(e.NewEnd),
	})
}

// Close implements engine.Tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// tree-sitter rows count from 0; points at this package's boundary use
// 1-based lines.
func toPoint(p ts.Point) position.Point {
	return position.Point{Line: p.Row + 1, Column: p.Column}
}

func fromPoint(p position.Point) ts.Point {
	return ts.Point{Row: p.Line - 1, Column: p.Column}
}
