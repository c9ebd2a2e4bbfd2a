package finding

import (
	"sort"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 code unit column, as used by
// the language server protocol.
type Position struct {
	Line      int
	Character int
}

// LineIndex converts between byte offsets and positions in one text.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}

	for i := range len(text) {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &LineIndex{text: text, starts: starts}
}

// line returns the zero-based line containing offset.
func (idx *LineIndex) line(offset int) int {
	return sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > offset }) - 1
}

func (idx *LineIndex) clamp(offset int) int {
	return max(0, min(offset, len(idx.text)))
}

// Position converts a byte offset to a line and UTF-16 column.
func (idx *LineIndex) Position(offset int) Position {
	offset = idx.clamp(offset)
	line := idx.line(offset)

	units := 0

	for _, r := range idx.text[idx.starts[line]:offset] {
		units += utf16Len(r)
	}

	return Position{Line: line, Character: units}
}

// Offset converts a line and UTF-16 column back to a byte offset. Columns
// past the end of the line clamp to the line end.
func (idx *LineIndex) Offset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}

	if pos.Line >= len(idx.starts) {
		return len(idx.text)
	}

	offset := idx.starts[pos.Line]
	units := 0

	for offset < len(idx.text) && units < pos.Character {
		r, size := utf8.DecodeRuneInString(idx.text[offset:])
		if r == '\n' {
			break
		}

		units += utf16Len(r)
		offset += size
	}

	return offset
}

// LineColumn converts a byte offset to a one-based line and rune column.
func (idx *LineIndex) LineColumn(offset int) (int, int) {
	offset = idx.clamp(offset)
	line := idx.line(offset)

	return line + 1, utf8.RuneCountInString(idx.text[idx.starts[line]:offset]) + 1
}

// Annotate fills Line and Column on every finding.
func (idx *LineIndex) Annotate(findings []Finding) {
	for i := range findings {
		findings[i].Line, findings[i].Column = idx.LineColumn(findings[i].Span.Start)
	}
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}

	return 1
}
