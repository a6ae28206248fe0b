package tree_test

import (
	"errors"
	"testing"

	"arbor/internal/engine"
	"arbor/internal/position"
	"arbor/internal/tree"
)

type fakeTree struct {
	closed bool
	edits  int
}

func (f *fakeTree) RootRange() position.Range { return position.Range{} }
func (f *fakeTree) Edit(engine.Edit)          { f.edits++ }
func (f *fakeTree) Close()                    { f.closed = true }

func TestBorrowMutConflict(t *testing.T) {
	h := tree.NewHandle(&fakeTree{})

	_, release, err := h.BorrowMut()
	if err != nil {
		t.Fatalf("first exclusive borrow failed: %v", err)
	}

	if _, _, err := h.BorrowMut(); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("expected ErrBorrowed for overlapping exclusive borrow, got %v", err)
	}

	release()

	_, release, err = h.BorrowMut()
	if err != nil {
		t.Fatalf("exclusive borrow after release failed: %v", err)
	}
	release()
}

func TestSharedBorrowsOverlap(t *testing.T) {
	h := tree.NewHandle(&fakeTree{})

	_, release1, err := h.Borrow()
	if err != nil {
		t.Fatalf("first shared borrow failed: %v", err)
	}
	_, release2, err := h.Borrow()
	if err != nil {
		t.Fatalf("second shared borrow failed: %v", err)
	}

	if _, _, err := h.BorrowMut(); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("expected ErrBorrowed for exclusive over shared, got %v", err)
	}

	release1()
	release2()

	_, release, err := h.BorrowMut()
	if err != nil {
		t.Fatalf("exclusive borrow after readers released failed: %v", err)
	}
	release()
}

func TestEditRequiresExclusive(t *testing.T) {
	ft := &fakeTree{}
	h := tree.NewHandle(ft)

	_, release, err := h.Borrow()
	if err != nil {
		t.Fatalf("shared borrow failed: %v", err)
	}

	if err := h.Edit(engine.Edit{}); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("expected ErrBorrowed while read is outstanding, got %v", err)
	}

	release()

	if err := h.Edit(engine.Edit{}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if ft.edits != 1 {
		t.Fatalf("expected 1 edit, got %d", ft.edits)
	}
}

func TestReleaseClosesOnLastReference(t *testing.T) {
	ft := &fakeTree{}
	h := tree.NewHandle(ft)
	h.Retain()

	if err := h.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if ft.closed {
		t.Fatal("tree closed while a reference was still held")
	}

	if err := h.Release(); err != nil {
		t.Fatalf("final release failed: %v", err)
	}
	if !ft.closed {
		t.Fatal("tree not closed after last reference dropped")
	}

	if _, _, err := h.Borrow(); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("expected borrow after close to fail, got %v", err)
	}
}

func TestReleaseWhileBorrowed(t *testing.T) {
	ft := &fakeTree{}
	h := tree.NewHandle(ft)

	_, release, err := h.Borrow()
	if err != nil {
		t.Fatalf("borrow failed: %v", err)
	}

	if err := h.Release(); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("expected ErrBorrowed releasing a borrowed handle, got %v", err)
	}
	if ft.closed {
		t.Fatal("tree closed despite outstanding borrow")
	}

	release()

	if err := h.Release(); err != nil {
		t.Fatalf("release after borrow ended failed: %v", err)
	}
	if !ft.closed {
		t.Fatal("tree not closed after release")
	}
}
