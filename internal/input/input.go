// Package input defines the pull-based chunk protocol between a document
// source and the parsing engine, and the adapter that carries source errors
// across the engine's callback boundary.
package input

import (
	"arbor/internal/position"
)

// Source produces the next fragment of a document, starting at the given
// position. pos is the 1-based byte position of the fragment start; pt
// carries the same position as a line and byte column. Returning an empty
// fragment signals end of input. The engine requests fragments strictly in
// increasing-or-equal position order, one synchronous call at a time.
type Source interface {
	ReadAt(pos position.BytePos, pt position.Point) (string, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(pos position.BytePos, pt position.Point) (string, error)

// ReadAt implements Source.
func (f SourceFunc) ReadAt(pos position.BytePos, pt position.Point) (string, error) {
	return f(pos, pt)
}

// Adapter exposes a Source as an engine.ReadFunc. The engine invokes the
// callback from inside its parse loop, where an error cannot propagate
// safely, so a failure is parked in the adapter and an empty fragment is
// handed back, which the engine takes as end of input and winds down
// cleanly. Once an error is parked, later pulls return empty without
// touching the Source again.
//
// Callers must check Err after the engine returns: a parked error
// invalidates whatever tree the engine produced from the fragments seen
// before the failure.
type Adapter struct {
	src Source
	err error
}

// NewAdapter wraps a Source for one parse.
func NewAdapter(src Source) *Adapter {
	return &Adapter{src: src}
}

// Read implements engine.ReadFunc.
func (a *Adapter) Read(offset uint32, pt position.Point) []byte {
	if a.err != nil {
		return nil
	}

	frag, err := a.src.ReadAt(position.BytePosOf(offset), pt)
	if err != nil {
		a.err = err
		return nil
	}
	return []byte(frag)
}

// Err returns the error deferred during the parse, if any.
func (a *Adapter) Err() error {
	return a.err
}
