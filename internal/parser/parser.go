// Package parser coordinates incremental parsing of documents. A Parser
// owns the parse configuration (grammar, timeout, included ranges) and
// exposes the two parse entry points, translating between document
// positions and the engine's coordinates and wrapping results as shared
// tree handles.
package parser

import (
	"context"
	"fmt"

	"arbor/internal/engine"
	"arbor/internal/input"
	"arbor/internal/language"
	"arbor/internal/position"
	"arbor/internal/tree"
)

// ErrInvalidRanges is returned when an included-ranges set is malformed: a
// range ends before it starts, or the set is unordered or overlapping.
var ErrInvalidRanges = fmt.Errorf("invalid included ranges")

// Parser drives one engine. It is exclusively owned by one caller and is
// not safe for concurrent use; its configuration persists across parses.
type Parser struct {
	eng    engine.Engine
	lang   language.Language
	ranges []position.Range
}

// New creates a Parser around the given engine.
func New(eng engine.Engine) *Parser {
	return &Parser{eng: eng}
}

// SetLanguage attaches the grammar the parser should use. Attaching fails
// with engine.ErrGrammarVersion if the grammar was generated with an ABI
// the engine does not support; the previously attached grammar stays
// active in that case.
func (p *Parser) SetLanguage(lang language.Language) error {
	if err := p.eng.Attach(lang); err != nil {
		return err
	}
	p.lang = lang
	return nil
}

// Language returns the currently attached grammar, or nil if none is set.
func (p *Parser) Language() language.Language {
	return p.lang
}

// ParseString parses a complete source string, handing the whole document
// to the engine at once. If old is non-nil it is used as the baseline for
// an incremental parse; it must already have been edited to exactly match
// the changes between the old and new source.
func (p *Parser) ParseString(ctx context.Context, source string, old *tree.Handle) (*tree.Handle, error) {
	prev, release, err := baseline(old)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := p.eng.Parse(ctx, []byte(source), prev)
	if err != nil {
		return nil, err
	}
	return tree.NewHandle(t), nil
}

// ParseChunks parses source pulled from src one fragment at a time, in
// document order. An empty fragment ends the input.
//
// If src fails while producing a fragment, the error is deferred until the
// engine has wound down, then returned exactly as the source raised it; any
// tree the engine completed from the fragments seen before the failure is
// discarded. A source error always wins over an apparently successful
// parse.
func (p *Parser) ParseChunks(ctx context.Context, src input.Source, old *tree.Handle) (*tree.Handle, error) {
	prev, release, err := baseline(old)
	if err != nil {
		return nil, err
	}
	defer release()

	in := input.NewAdapter(src)
	t, err := p.eng.ParseWith(ctx, in.Read, prev)
	if srcErr := in.Err(); srcErr != nil {
		if t != nil {
			t.Close()
		}
		return nil, srcErr
	}
	if err != nil {
		return nil, err
	}
	return tree.NewHandle(t), nil
}

// baseline takes a shared borrow of the old tree, if any. An in-progress
// exclusive access on the handle surfaces as tree.ErrBorrowed.
func baseline(old *tree.Handle) (engine.Tree, func(), error) {
	if old == nil {
		return nil, func() {}, nil
	}
	return old.Borrow()
}

// SetTimeoutMicros limits how long each parse may take, in microseconds.
// Zero removes the limit. The deadline is a hint the engine checks at its
// own pace, not a hard real-time guarantee.
func (p *Parser) SetTimeoutMicros(micros uint64) {
	p.eng.SetTimeoutMicros(micros)
}

// TimeoutMicros returns the configured per-parse limit in microseconds.
func (p *Parser) TimeoutMicros() uint64 {
	return p.eng.TimeoutMicros()
}

// Reset makes the next parse start from the beginning of the document.
// After a timeout or cancellation the engine keeps the interrupted state
// and resumes from it on the next parse; call Reset first when pointing the
// parser at different code.
func (p *Parser) Reset() {
	p.eng.Reset()
}

// SetIncludedRanges restricts parsing to the given spans while keeping tree
// coordinates aligned to the whole document, which is how the relevant
// parts of a multi-language document are parsed. The ranges must be valid,
// ordered, and disjoint; a malformed set is rejected with ErrInvalidRanges
// and the previously configured set stays active. An empty set restores
// whole-document parsing.
func (p *Parser) SetIncludedRanges(ranges []position.Range) error {
	if err := checkRanges(ranges); err != nil {
		return err
	}
	if err := p.eng.SetIncludedRanges(ranges); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRanges, err)
	}
	p.ranges = append([]position.Range(nil), ranges...)
	return nil
}

// IncludedRanges returns the active included-ranges set. Nil means the
// whole document is parsed.
func (p *Parser) IncludedRanges() []position.Range {
	if p.ranges == nil {
		return nil
	}
	return append([]position.Range(nil), p.ranges...)
}

func checkRanges(ranges []position.Range) error {
	for i, r := range ranges {
		if !r.Valid() {
			return fmt.Errorf("%w: range %d ends before it starts", ErrInvalidRanges, i)
		}
		if i > 0 && r.StartByte < ranges[i-1].EndByte {
			return fmt.Errorf("%w: range %d overlaps range %d", ErrInvalidRanges, i, i-1)
		}
	}
	return nil
}

// Close releases the engine.
func (p *Parser) Close() {
	p.eng.Close()
}
