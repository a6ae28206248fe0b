// Package document keeps open buffers and their syntax trees in sync. A
// Document owns its content bytes, a parser configured for its language,
// and the tree of the last successful parse; edits shift the tree and
// trigger an incremental reparse through the chunk protocol.
package document

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"arbor/internal/engine"
	"arbor/internal/input"
	"arbor/internal/language"
	"arbor/internal/parser"
	"arbor/internal/position"
	"arbor/internal/tree"
)

// DefaultChunkSize caps how much text one chunk request hands to the
// engine when no size is configured.
const DefaultChunkSize = 4096

// Change is a point-addressed replacement of a span of the document.
// Positions use 1-based lines and 0-based byte columns.
type Change struct {
	Start   position.Point
	End     position.Point
	NewText string
}

// Stats describes the last successful parse, for the index.
type Stats struct {
	Bytes       int
	Root        position.Range
	Elapsed     time.Duration
	Incremental bool
}

// Document is an open buffer.
type Document struct {
	mu      sync.RWMutex
	content []byte
	parser  *parser.Parser
	tree    *tree.Handle
	chunk   int
	stats   Stats
}

// New parses content and returns the open document. The parser must
// already have a language attached; the document takes ownership of it.
func New(ctx context.Context, p *parser.Parser, content []byte) (*Document, error) {
	return NewWithChunkSize(ctx, p, content, DefaultChunkSize)
}

// NewWithChunkSize is New with an explicit chunk size for reparses.
func NewWithChunkSize(ctx context.Context, p *parser.Parser, content []byte, chunkSize int) (*Document, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	d := &Document{
		parser:  p,
		content: append([]byte(nil), content...),
		chunk:   chunkSize,
	}
	if err := d.reparse(ctx, false); err != nil {
		return nil, fmt.Errorf("initial parse: %w", err)
	}
	return d, nil
}

// Content returns the current text.
func (d *Document) Content() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.content)
}

// Language returns the grammar the document is parsed with.
func (d *Document) Language() language.Language {
	return d.parser.Language()
}

// Tree returns the current tree handle, retained for the caller. The
// caller must Release it.
func (d *Document) Tree() *tree.Handle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.tree == nil {
		return nil
	}
	return d.tree.Retain()
}

// RootRange returns the span of the last successful parse.
func (d *Document) RootRange() (position.Range, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.tree == nil {
		return position.Range{}, fmt.Errorf("document has no tree")
	}
	return d.tree.RootRange()
}

// Stats returns metadata about the last successful parse.
func (d *Document) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// ApplyChanges applies edits in order, shifts the tree by the exact same
// mutations, and reparses incrementally with the shifted tree as the
// baseline. The reparse of the new content is structurally equivalent to a
// from-scratch parse when the edits describe the real mutation.
func (d *Document) ApplyChanges(ctx context.Context, changes []Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range changes {
		if err := d.applyChange(c); err != nil {
			return err
		}
	}
	return d.reparse(ctx, true)
}

func (d *Document) applyChange(c Change) error {
	startByte := position.OffsetAt(d.content, c.Start)
	oldEndByte := position.OffsetAt(d.content, c.End)
	if oldEndByte < startByte {
		return fmt.Errorf("change ends before it starts")
	}
	newEndByte := startByte + uint32(len(c.NewText))

	spliced := make([]byte, 0, len(d.content)-int(oldEndByte-startByte)+len(c.NewText))
	spliced = append(spliced, d.content[:startByte]...)
	spliced = append(spliced, c.NewText...)
	spliced = append(spliced, d.content[oldEndByte:]...)
	d.content = spliced

	if d.tree == nil {
		return nil
	}
	return d.tree.Edit(engine.Edit{
		StartByte:  startByte,
		OldEndByte: oldEndByte,
		NewEndByte: newEndByte,
		Start:      c.Start,
		OldEnd:     c.End,
		NewEnd:     position.PointAt(d.content, newEndByte),
	})
}

// SetContent replaces the whole document and parses it from scratch.
func (d *Document) SetContent(ctx context.Context, content []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.content = append([]byte(nil), content...)
	return d.reparse(ctx, false)
}

// reparse feeds the current content to the engine through the chunk
// protocol. Called with d.mu held.
func (d *Document) reparse(ctx context.Context, incremental bool) error {
	old := d.tree
	if !incremental {
		old = nil
	}

	start := time.Now()
	src := byteSource{content: d.content, chunk: d.chunk}
	h, err := d.parser.ParseChunks(ctx, src, old)
	if err != nil {
		return err
	}

	if d.tree != nil {
		if err := d.tree.Release(); err != nil {
			_ = h.Release()
			return err
		}
	}
	d.tree = h

	root, err := h.RootRange()
	if err != nil {
		return err
	}
	d.stats = Stats{
		Bytes:       len(d.content),
		Root:        root,
		Elapsed:     time.Since(start),
		Incremental: old != nil,
	}
	return nil
}

// Close releases the tree and the parser.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tree != nil {
		if err := d.tree.Release(); err != nil {
			return fmt.Errorf("failed to release tree: %w", err)
		}
		d.tree = nil
	}
	d.parser.Close()
	return nil
}

// byteSource serves chunks of a content snapshot. Chunks stop at line
// boundaries where possible so fragment positions follow the text.
type byteSource struct {
	content []byte
	chunk   int
}

// ReadAt implements input.Source.
func (s byteSource) ReadAt(pos position.BytePos, pt position.Point) (string, error) {
	off := int(pos.Offset())
	if off >= len(s.content) {
		return "", nil
	}

	end := off + s.chunk
	if end > len(s.content) {
		end = len(s.content)
	}
	if i := bytes.IndexByte(s.content[off:end], '\n'); i >= 0 {
		end = off + i + 1
	}
	return string(s.content[off:end]), nil
}

var _ input.Source = byteSource{}
