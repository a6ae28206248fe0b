package lsp

import (
	"strings"
	"unicode/utf8"

	"arbor/internal/position"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// fromLSPPosition converts a UTF-16 LSP position into a byte-column point.
// LSP lines count from 0 and characters count UTF-16 code units; the core
// counts lines from 1 and columns in bytes.
func fromLSPPosition(document string, pos protocol.Position) position.Point {
	lines := strings.Split(document, "\n")
	if int(pos.Line) >= len(lines) {
		pos.Line = uint32(len(lines) - 1)
	}

	// Traverse runes in the target line to match the UTF-16 unit count.
	var unitCount, byteCount uint32
	for _, r := range lines[pos.Line] {
		units := uint32(1)
		if r > 0xFFFF {
			units = 2
		}
		if unitCount+units > pos.Character {
			break
		}
		unitCount += units
		byteCount += uint32(utf8.RuneLen(r))
	}

	return position.Point{Line: pos.Line + 1, Column: byteCount}
}

// toLSPPosition converts a byte-column point back into a UTF-16 LSP
// position within the given document.
func toLSPPosition(document string, pt position.Point) protocol.Position {
	lines := strings.Split(document, "\n")
	row := pt.Line - 1
	if int(row) >= len(lines) {
		row = uint32(len(lines) - 1)
	}

	line := lines[row]
	col := pt.Column
	if col > uint32(len(line)) {
		col = uint32(len(line))
	}

	var unitCount uint32
	for _, r := range line[:col] {
		if r > 0xFFFF {
			unitCount += 2
		} else {
			unitCount++
		}
	}

	return protocol.Position{Line: row, Character: unitCount}
}
