// Package position models text positions the way editor buffers address
// them: absolute byte positions counted from 1, and line/column pairs where
// the line is 1-based and the column counts bytes on that line.
package position

// BytePos is an absolute byte position in a document, counted from 1. The
// zero value is not a valid position; use BytePosOf to build one from a
// 0-based offset.
type BytePos uint32

// BytePosOf converts a 0-based byte offset into a BytePos.
func BytePosOf(offset uint32) BytePos {
	return BytePos(offset + 1)
}

// Offset returns the 0-based byte offset for the position.
func (p BytePos) Offset() uint32 {
	return uint32(p) - 1
}

// Point is a two-dimensional text position. Line counts from 1. Column
// counts from 0 and counts raw bytes on the line, not glyphs and not UTF-16
// units, so for multi-byte text it diverges from the visible column.
type Point struct {
	Line   uint32
	Column uint32
}

// Range is a contiguous span of a document, carried in both byte and point
// form so it can be handed to the engine without re-deriving either.
type Range struct {
	StartByte uint32
	EndByte   uint32
	Start     Point
	End       Point
}

// Valid reports whether the range ends at or after its start, in both the
// byte form and the point form.
func (r Range) Valid() bool {
	if r.EndByte < r.StartByte {
		return false
	}
	if r.End.Line < r.Start.Line {
		return false
	}
	if r.End.Line == r.Start.Line && r.End.Column < r.Start.Column {
		return false
	}
	return true
}

// PointAt computes the point for a byte offset into content. Offsets past
// the end of content yield the position just past the last byte. No
// validation against any particular document is done here; callers must
// pass offsets obtained from the same content.
func PointAt(content []byte, offset uint32) Point {
	line := uint32(1)
	column := uint32(0)

	for i := uint32(0); i < offset && i < uint32(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 0
		} else {
			column++
		}
	}

	return Point{Line: line, Column: column}
}

// OffsetAt computes the byte offset for a point, clamped to the end of
// content. For any offset within bounds, OffsetAt(content, PointAt(content,
// offset)) == offset.
func OffsetAt(content []byte, pt Point) uint32 {
	var offset uint32
	line := uint32(1)

	for line < pt.Line && offset < uint32(len(content)) {
		if content[offset] == '\n' {
			line++
		}
		offset++
	}

	offset += pt.Column
	if offset > uint32(len(content)) {
		offset = uint32(len(content))
	}

	return offset
}
