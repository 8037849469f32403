package vm

import "errors"

// Runtime errors. All but ErrOverflow are recoverable: the instruction
// becomes a no-op, the stack is left as it was and execution continues.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrDivideByZero   = errors.New("divide by zero")
	ErrNegativeDepth  = errors.New("negative roll depth")
	ErrInvalidInput   = errors.New("no number in input")
	ErrInputExhausted = errors.New("input exhausted")
	ErrInvalidChar    = errors.New("value is not a valid character")

	// ErrOverflow is fatal and ends the run.
	ErrOverflow = errors.New("integer overflow")

	// ErrIncomplete marks a path where compilation hit its transition bound.
	ErrIncomplete = errors.New("program incomplete: transition limit reached while compiling")

	// ErrTrapped marks a path that cycles forever inside a white region.
	ErrTrapped = errors.New("trapped in white region")

	// ErrStepLimit is returned by Run when maxSteps is exhausted.
	ErrStepLimit = errors.New("step limit reached")
)

// IsFatal reports whether err ends the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrOverflow)
}
