package vm

import (
	"bufio"
	"io"
	"math"
	"unicode"
)

// Input supplies values to the in-number and in-char commands.
// NextNumber fails with ErrInputExhausted when only whitespace remains and
// ErrInvalidInput when the next character is not a digit. NextChar reports
// false at the end of input. A failed read consumes nothing beyond skipped
// whitespace.
type Input interface {
	NextNumber() (int64, error)
	NextChar() (rune, bool)
}

// ---------------------------------------------------------------------------
// StringInput
// ---------------------------------------------------------------------------

// StringInput reads from a fixed string.
type StringInput struct {
	runes []rune
	pos   int
}

// NewStringInput returns an Input over s.
func NewStringInput(s string) *StringInput {
	return &StringInput{runes: []rune(s)}
}

// NextNumber skips whitespace and reads a run of decimal digits. On
// failure the position is left at the first non-digit.
func (in *StringInput) NextNumber() (int64, error) {
	for in.pos < len(in.runes) && unicode.IsSpace(in.runes[in.pos]) {
		in.pos++
	}
	if in.pos == len(in.runes) {
		return 0, ErrInputExhausted
	}
	start := in.pos
	var n int64
	for in.pos < len(in.runes) && isDigit(in.runes[in.pos]) {
		d := int64(in.runes[in.pos] - '0')
		if n > (math.MaxInt64-d)/10 {
			in.pos = start
			return 0, ErrInvalidInput
		}
		n = n*10 + d
		in.pos++
	}
	if in.pos == start {
		return 0, ErrInvalidInput
	}
	return n, nil
}

// NextChar returns the next character, whitespace included.
func (in *StringInput) NextChar() (rune, bool) {
	if in.pos >= len(in.runes) {
		return 0, false
	}
	r := in.runes[in.pos]
	in.pos++
	return r, true
}

// Remaining returns the unread input.
func (in *StringInput) Remaining() string {
	return string(in.runes[in.pos:])
}

// Pos returns the number of characters consumed.
func (in *StringInput) Pos() int {
	return in.pos
}

// ---------------------------------------------------------------------------
// ReaderInput
// ---------------------------------------------------------------------------

// ReaderInput reads lazily from an io.Reader such as a terminal, so a
// program only blocks when it actually asks for input.
type ReaderInput struct {
	r *bufio.Reader
}

// NewReaderInput returns an Input over r.
func NewReaderInput(r io.Reader) *ReaderInput {
	return &ReaderInput{r: bufio.NewReader(r)}
}

// NextNumber skips whitespace and reads a run of decimal digits.
func (in *ReaderInput) NextNumber() (int64, error) {
	for {
		r, _, err := in.r.ReadRune()
		if err != nil {
			return 0, ErrInputExhausted
		}
		if !unicode.IsSpace(r) {
			_ = in.r.UnreadRune()
			break
		}
	}

	var n int64
	digits := 0
	for {
		r, _, err := in.r.ReadRune()
		if err != nil {
			break
		}
		if !isDigit(r) {
			_ = in.r.UnreadRune()
			break
		}
		d := int64(r - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, ErrInvalidInput
		}
		n = n*10 + d
		digits++
	}
	if digits == 0 {
		return 0, ErrInvalidInput
	}
	return n, nil
}

// NextChar returns the next character.
func (in *ReaderInput) NextChar() (rune, bool) {
	r, _, err := in.r.ReadRune()
	if err != nil {
		return 0, false
	}
	return r, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
