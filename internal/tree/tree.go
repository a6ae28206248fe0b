// Package tree provides shared ownership of syntax trees. A Handle may be
// held by several logical owners at once, typically the caller and a later
// parse that uses the tree as its baseline. Reads may overlap; mutation
// requires exclusive access and fails fast instead of blocking, because an
// overlapping access means the caller protocol was violated, not that there
// is contention worth waiting out.
package tree

import (
	"fmt"
	"sync/atomic"

	"arbor/internal/engine"
	"arbor/internal/position"
)

// ErrBorrowed is returned when an access would overlap an exclusive one, or
// an exclusive access would overlap any other. The caller must release the
// conflicting access and retry.
var ErrBorrowed = fmt.Errorf("tree is already borrowed")

// Borrow-cell states below zero. Positive values count shared readers.
const (
	exclusive = -1
	closed    = -2
)

// Handle is a reference-counted syntax tree with fail-fast borrow checking.
type Handle struct {
	refs    atomic.Int32
	borrows atomic.Int32
	tree    engine.Tree
}

// NewHandle wraps a freshly produced engine tree with one reference.
func NewHandle(t engine.Tree) *Handle {
	h := &Handle{tree: t}
	h.refs.Store(1)
	return h
}

// Retain adds a reference and returns the handle for convenience.
func (h *Handle) Retain() *Handle {
	h.refs.Add(1)
	return h
}

// Release drops a reference. When the last reference goes, the underlying
// tree is closed; that needs exclusive access, so releasing the final
// reference while a borrow is outstanding fails with ErrBorrowed and keeps
// the reference.
func (h *Handle) Release() error {
	if h.refs.Add(-1) > 0 {
		return nil
	}
	if !h.borrows.CompareAndSwap(0, closed) {
		h.refs.Add(1)
		return ErrBorrowed
	}
	h.tree.Close()
	return nil
}

// Borrow takes shared access to the tree, for reading or for use as a parse
// baseline. The returned release function must be called when done; calling
// it more than once is harmless.
func (h *Handle) Borrow() (engine.Tree, func(), error) {
	for {
		n := h.borrows.Load()
		if n < 0 {
			return nil, nil, ErrBorrowed
		}
		if h.borrows.CompareAndSwap(n, n+1) {
			break
		}
	}

	var done atomic.Bool
	release := func() {
		if done.CompareAndSwap(false, true) {
			h.borrows.Add(-1)
		}
	}
	return h.tree, release, nil
}

// BorrowMut takes exclusive access to the tree, required for any mutation.
// It fails with ErrBorrowed if any access is outstanding.
func (h *Handle) BorrowMut() (engine.Tree, func(), error) {
	if !h.borrows.CompareAndSwap(0, exclusive) {
		return nil, nil, ErrBorrowed
	}

	var done atomic.Bool
	release := func() {
		if done.CompareAndSwap(false, true) {
			h.borrows.Store(0)
		}
	}
	return h.tree, release, nil
}

// Edit shifts the tree to reflect a source change, under exclusive access.
// Applying edits that exactly match the real document mutation is the
// caller's contract for correct incremental reuse.
func (h *Handle) Edit(e engine.Edit) error {
	t, release, err := h.BorrowMut()
	if err != nil {
		return err
	}
	defer release()

	t.Edit(e)
	return nil
}

// RootRange reads the tree's span under a shared borrow.
func (h *Handle) RootRange() (position.Range, error) {
	t, release, err := h.Borrow()
	if err != nil {
		return position.Range{}, err
	}
	defer release()

	return t.RootRange(), nil
}
