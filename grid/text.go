package grid

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a malformed text grid. Line and Column are 1-based.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

const digits = "0123456789abcdefghij"

// Parse reads a text grid. Each character is one codel: 0-9 and a-j are
// palette indices in base 20, '.' is white and '#' is black. Lines
// starting with ';' are comments and blank lines are skipped.
func Parse(r io.Reader) (*Grid, error) {
	var rows [][]int
	width := -1
	firstLine := 0

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if text == "" || strings.HasPrefix(strings.TrimSpace(text), ";") {
			continue
		}

		row := make([]int, 0, len(text))
		for i, ch := range text {
			v, ok := CodelValue(ch)
			if !ok {
				return nil, &ParseError{Line: line, Column: i + 1, Msg: fmt.Sprintf("unknown codel %q", ch)}
			}
			row = append(row, v)
		}

		if width == -1 {
			width, firstLine = len(row), line
		} else if len(row) != width {
			return nil, &ParseError{
				Line: line,
				Msg:  fmt.Sprintf("row has %d codels, line %d has %d", len(row), firstLine, width),
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyGrid
	}
	return FromRows(rows)
}

// ParseString is Parse over a string.
func ParseString(s string) (*Grid, error) {
	return Parse(strings.NewReader(s))
}

// CodelValue maps a text-format character to its palette index.
func CodelValue(ch rune) (int, bool) {
	switch {
	case ch == '.':
		return int(White), true
	case ch == '#':
		return int(Black), true
	case ch >= 'A' && ch <= 'J':
		ch += 'a' - 'A'
	}
	if i := strings.IndexRune(digits, ch); i >= 0 {
		return i, true
	}
	return 0, false
}

// CodelChar is the inverse of CodelValue.
func CodelChar(c Colour) byte {
	switch {
	case c == White:
		return '.'
	case c == Black:
		return '#'
	case c.Chromatic():
		return digits[c]
	}
	return '?'
}

// Format renders g in the text format accepted by Parse.
func (g *Grid) Format() string {
	var sb strings.Builder
	sb.Grow((g.Width + 1) * g.Height)
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			sb.WriteByte(CodelChar(g.At(r, c)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
