package vm

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// state is the mutable part of a run shared by Machine and Interpreter.
type state struct {
	stack  Stack
	dp     grid.Direction
	cc     grid.Chooser
	input  Input
	output strings.Builder
}

// execute applies one command. It returns the text written, if any, and
// the runtime error. On error the stack is as it was before the command.
func (s *state) execute(op compiler.Opcode, operand int64) (string, error) {
	st := &s.stack
	switch op {
	case compiler.OpNop:

	case compiler.OpPush:
		st.Push(operand)

	case compiler.OpPop:
		if _, err := st.Pop(); err != nil {
			return "", err
		}

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod, compiler.OpGreater:
		a, b, err := st.Pop2()
		if err != nil {
			return "", err
		}
		v, err := arith(op, a, b)
		if err != nil {
			st.Push(b)
			st.Push(a)
			return "", err
		}
		st.Push(v)

	case compiler.OpNot:
		a, err := st.Pop()
		if err != nil {
			return "", err
		}
		if a == 0 {
			st.Push(1)
		} else {
			st.Push(0)
		}

	case compiler.OpPointer:
		a, err := st.Pop()
		if err != nil {
			return "", err
		}
		s.dp = s.dp.Clockwise(int(a % 4))

	case compiler.OpSwitch:
		a, err := st.Pop()
		if err != nil {
			return "", err
		}
		s.cc = s.cc.Toggle(int(a % 2))

	case compiler.OpDup:
		a, err := st.Peek()
		if err != nil {
			return "", err
		}
		st.Push(a)

	case compiler.OpRoll:
		count, depth, err := st.Pop2()
		if err != nil {
			return "", err
		}
		if err := st.Roll(depth, count); err != nil {
			st.Push(depth)
			st.Push(count)
			return "", err
		}

	case compiler.OpInNum:
		if s.input == nil {
			return "", ErrInputExhausted
		}
		n, err := s.input.NextNumber()
		if err != nil {
			return "", err
		}
		st.Push(n)

	case compiler.OpInChar:
		if s.input == nil {
			return "", ErrInputExhausted
		}
		r, ok := s.input.NextChar()
		if !ok {
			return "", ErrInputExhausted
		}
		st.Push(int64(r))

	case compiler.OpOutNum:
		a, err := st.Pop()
		if err != nil {
			return "", err
		}
		out := strconv.FormatInt(a, 10)
		s.output.WriteString(out)
		return out, nil

	case compiler.OpOutChar:
		a, err := st.Peek()
		if err != nil {
			return "", err
		}
		if a < 0 || a > utf8.MaxRune || !utf8.ValidRune(rune(a)) {
			return "", ErrInvalidChar
		}
		st.Pop()
		out := string(rune(a))
		s.output.WriteString(out)
		return out, nil
	}
	return "", nil
}

// arith computes a binary command with a on top and b below it.
func arith(op compiler.Opcode, a, b int64) (int64, error) {
	switch op {
	case compiler.OpAdd:
		v := b + a
		if (v > b) != (a > 0) {
			return 0, ErrOverflow
		}
		return v, nil
	case compiler.OpSub:
		v := b - a
		if (v < b) != (a > 0) {
			return 0, ErrOverflow
		}
		return v, nil
	case compiler.OpMul:
		return mul(b, a)
	case compiler.OpDiv:
		if a == 0 {
			return 0, ErrDivideByZero
		}
		if b == math.MinInt64 && a == -1 {
			return 0, ErrOverflow
		}
		q := b / a
		if b%a != 0 && (b < 0) != (a < 0) {
			q--
		}
		return q, nil
	case compiler.OpMod:
		if a == 0 {
			return 0, ErrDivideByZero
		}
		r := b % a
		if r != 0 && (r < 0) != (a < 0) {
			r += a
		}
		return r, nil
	case compiler.OpGreater:
		if b > a {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func mul(x, y int64) (int64, error) {
	if x == 0 || y == 0 {
		return 0, nil
	}
	neg := (x < 0) != (y < 0)
	hi, lo := bits.Mul64(abs(x), abs(y))
	if hi != 0 {
		return 0, ErrOverflow
	}
	if neg {
		if lo > 1<<63 {
			return 0, ErrOverflow
		}
		return -int64(lo), nil
	}
	if lo > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(lo), nil
}

func abs(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}
