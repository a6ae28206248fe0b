package parser_test

import (
	"context"
	"errors"
	"testing"

	"arbor/internal/engine"
	"arbor/internal/engine/dummy"
	"arbor/internal/input"
	"arbor/internal/parser"
	"arbor/internal/position"
	"arbor/internal/tree"
)

const sample = "func main() {\n\tprintln(\"hi\")\n}\n"

func newParser(t *testing.T) (*parser.Parser, *dummy.Engine) {
	t.Helper()
	eng := dummy.New()
	p := parser.New(eng)
	if err := p.SetLanguage(dummy.NewGrammar("mock", dummy.ABIVersion)); err != nil {
		t.Fatalf("attaching grammar: %v", err)
	}
	return p, eng
}

func chunkSource(text string, size int) input.Source {
	return input.SourceFunc(func(pos position.BytePos, pt position.Point) (string, error) {
		off := int(pos.Offset())
		if off >= len(text) {
			return "", nil
		}
		end := off + size
		if end > len(text) {
			end = len(text)
		}
		return text[off:end], nil
	})
}

func rangeOver(content string, startByte, endByte uint32) position.Range {
	c := []byte(content)
	return position.Range{
		StartByte: startByte,
		EndByte:   endByte,
		Start:     position.PointAt(c, startByte),
		End:       position.PointAt(c, endByte),
	}
}

func TestParseString(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	handle, err := p.ParseString(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	defer handle.Release()

	root, err := handle.RootRange()
	if err != nil {
		t.Fatalf("reading root range: %v", err)
	}
	if root.StartByte != 0 || root.EndByte != uint32(len(sample)) {
		t.Errorf("root spans bytes %d-%d, want 0-%d", root.StartByte, root.EndByte, len(sample))
	}
	if root.Start.Line != 1 {
		t.Errorf("root starts at line %d, want 1", root.Start.Line)
	}
}

func TestParseChunksMatchesParseString(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	whole, err := p.ParseString(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("whole parse failed: %v", err)
	}
	defer whole.Release()

	for _, size := range []int{1, 4, 1024} {
		chunked, err := p.ParseChunks(context.Background(), chunkSource(sample, size), nil)
		if err != nil {
			t.Fatalf("chunked parse (size %d) failed: %v", size, err)
		}

		wholeRoot, _ := whole.RootRange()
		chunkedRoot, err := chunked.RootRange()
		if err != nil {
			t.Fatalf("reading chunked root: %v", err)
		}
		if chunkedRoot != wholeRoot {
			t.Errorf("size %d: chunked root %+v differs from whole-string root %+v",
				size, chunkedRoot, wholeRoot)
		}
		chunked.Release()
	}
}

func TestParseChunksSourceError(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	errBoom := errors.New("buffer was killed")
	calls := 0
	src := input.SourceFunc(func(pos position.BytePos, pt position.Point) (string, error) {
		calls++
		if calls >= 3 {
			return "", errBoom
		}
		return "frag ", nil
	})

	handle, err := p.ParseChunks(context.Background(), src, nil)
	if handle != nil {
		t.Fatal("got a tree handle despite a source failure")
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want the source's own error %v", err, errBoom)
	}
}

func TestSetLanguageKeepsPreviousOnFailure(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	err := p.SetLanguage(dummy.NewGrammar("too-old", dummy.MinABIVersion-1))
	if !errors.Is(err, engine.ErrGrammarVersion) {
		t.Fatalf("got %v, want engine.ErrGrammarVersion", err)
	}
	if got := p.Language().Name(); got != "mock" {
		t.Fatalf("active grammar is %q after failed attach, want %q", got, "mock")
	}

	// The parser still works with the surviving grammar.
	handle, err := p.ParseString(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("parse after failed attach: %v", err)
	}
	handle.Release()
}

func TestIncludedRanges(t *testing.T) {
	p, eng := newParser(t)
	defer p.Close()

	valid := []position.Range{
		rangeOver(sample, 0, 5),
		rangeOver(sample, 10, 20),
	}
	if err := p.SetIncludedRanges(valid); err != nil {
		t.Fatalf("setting valid ranges: %v", err)
	}
	if got := p.IncludedRanges(); len(got) != 2 || got[0] != valid[0] || got[1] != valid[1] {
		t.Fatalf("IncludedRanges() = %+v, want %+v", got, valid)
	}
	if got := eng.IncludedRanges(); len(got) != 2 {
		t.Fatalf("engine received %d ranges, want 2", len(got))
	}

	t.Run("overlapping set rejected", func(t *testing.T) {
		bad := []position.Range{
			rangeOver(sample, 0, 10),
			rangeOver(sample, 5, 15),
		}
		if err := p.SetIncludedRanges(bad); !errors.Is(err, parser.ErrInvalidRanges) {
			t.Fatalf("got %v, want ErrInvalidRanges", err)
		}
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		bad := []position.Range{{
			StartByte: 10, EndByte: 2,
			Start: position.Point{Line: 1, Column: 10},
			End:   position.Point{Line: 1, Column: 2},
		}}
		if err := p.SetIncludedRanges(bad); !errors.Is(err, parser.ErrInvalidRanges) {
			t.Fatalf("got %v, want ErrInvalidRanges", err)
		}
	})

	// A rejected set leaves the previous configuration active.
	if got := p.IncludedRanges(); len(got) != 2 || got[0] != valid[0] {
		t.Fatalf("configuration changed after rejected set: %+v", got)
	}

	// An empty set restores whole-document parsing.
	if err := p.SetIncludedRanges(nil); err != nil {
		t.Fatalf("clearing ranges: %v", err)
	}
	if got := p.IncludedRanges(); len(got) != 0 {
		t.Fatalf("ranges still set after clearing: %+v", got)
	}
}

func TestBaselineBorrowConflict(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	handle, err := p.ParseString(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("initial parse: %v", err)
	}
	defer handle.Release()

	_, release, err := handle.BorrowMut()
	if err != nil {
		t.Fatalf("taking exclusive borrow: %v", err)
	}

	if _, err := p.ParseChunks(context.Background(), chunkSource(sample, 8), handle); !errors.Is(err, tree.ErrBorrowed) {
		t.Fatalf("got %v, want tree.ErrBorrowed", err)
	}

	release()

	next, err := p.ParseChunks(context.Background(), chunkSource(sample, 8), handle)
	if err != nil {
		t.Fatalf("reparse after borrow released: %v", err)
	}
	next.Release()
}

func TestEngineProducesNoTree(t *testing.T) {
	p, eng := newParser(t)
	defer p.Close()

	eng.FailNext = true
	if _, err := p.ParseChunks(context.Background(), chunkSource(sample, 8), nil); !errors.Is(err, engine.ErrNoTree) {
		t.Fatalf("got %v, want engine.ErrNoTree", err)
	}

	// The failure is not sticky.
	handle, err := p.ParseChunks(context.Background(), chunkSource(sample, 8), nil)
	if err != nil {
		t.Fatalf("parse after engine failure: %v", err)
	}
	handle.Release()
}

func TestIncrementalReparse(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	before := "let x = 1\nlet y = 2\n"
	after := "let x = 100\nlet y = 2\n"

	handle, err := p.ParseString(context.Background(), before, nil)
	if err != nil {
		t.Fatalf("initial parse: %v", err)
	}
	defer handle.Release()

	// "1" at byte 8 becomes "100".
	edit := engine.Edit{
		StartByte:  8,
		OldEndByte: 9,
		NewEndByte: 11,
		Start:      position.PointAt([]byte(before), 8),
		OldEnd:     position.PointAt([]byte(before), 9),
		NewEnd:     position.PointAt([]byte(after), 11),
	}
	if err := handle.Edit(edit); err != nil {
		t.Fatalf("recording edit: %v", err)
	}

	reparsed, err := p.ParseChunks(context.Background(), chunkSource(after, 8), handle)
	if err != nil {
		t.Fatalf("incremental reparse: %v", err)
	}
	defer reparsed.Release()

	scratch, err := p.ParseString(context.Background(), after, nil)
	if err != nil {
		t.Fatalf("from-scratch parse: %v", err)
	}
	defer scratch.Release()

	incRoot, _ := reparsed.RootRange()
	scratchRoot, _ := scratch.RootRange()
	if incRoot != scratchRoot {
		t.Errorf("incremental root %+v differs from from-scratch root %+v", incRoot, scratchRoot)
	}
}

func TestTimeoutConfiguration(t *testing.T) {
	p, _ := newParser(t)
	defer p.Close()

	if got := p.TimeoutMicros(); got != 0 {
		t.Fatalf("default timeout = %d, want 0", got)
	}
	p.SetTimeoutMicros(5000)
	if got := p.TimeoutMicros(); got != 5000 {
		t.Fatalf("timeout = %d after set, want 5000", got)
	}
}

func TestReset(t *testing.T) {
	p, eng := newParser(t)
	defer p.Close()

	p.Reset()
	p.Reset()
	if got := eng.Resets(); got != 2 {
		t.Fatalf("engine saw %d resets, want 2", got)
	}
}

func TestParseWithoutLanguage(t *testing.T) {
	p := parser.New(dummy.New())
	defer p.Close()

	if _, err := p.ParseString(context.Background(), sample, nil); !errors.Is(err, engine.ErrNoLanguage) {
		t.Fatalf("got %v, want engine.ErrNoLanguage", err)
	}
	if p.Language() != nil {
		t.Fatal("expected no language before a successful attach")
	}
}
