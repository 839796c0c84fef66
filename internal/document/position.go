// Package document converts LSP positions into offsets within source text.
package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// PositionToOffset converts an LSP position (0-based line, UTF-16 character)
// to a byte offset in text.
func PositionToOffset(text string, pos protocol.Position) (int, error) {
	line := int(pos.Line)
	lines := strings.Split(text, "\n")

	if line >= len(lines) {
		return 0, fmt.Errorf("line %d out of range (0-%d)", line, len(lines)-1)
	}

	offset := 0
	for i := range line {
		offset += len(lines[i]) + 1
	}

	inLine, err := utf16ToByteOffset(lines[line], int(pos.Character))
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", line, err)
	}

	return offset + inLine, nil
}

// TextBeforeCursor returns the prefix of text that ends at pos.
func TextBeforeCursor(text string, pos protocol.Position) (string, error) {
	offset, err := PositionToOffset(text, pos)
	if err != nil {
		return "", err
	}

	return text[:offset], nil
}

// utf16ToByteOffset converts a UTF-16 code unit offset within line to a byte offset.
// An offset inside a surrogate pair resolves to the start of that rune.
func utf16ToByteOffset(line string, utf16Offset int) (int, error) {
	units := 0

	for i, r := range line {
		if units >= utf16Offset {
			return i, nil
		}

		n := utf16Len(r)
		if units+n > utf16Offset {
			return i, nil
		}

		units += n
	}

	if units < utf16Offset {
		return 0, fmt.Errorf("character %d exceeds line length %d", utf16Offset, units)
	}

	return len(line), nil
}

func utf16Len(r rune) int {
	if r > 0xFFFF && r <= utf8.MaxRune {
		return 2
	}

	return 1
}
