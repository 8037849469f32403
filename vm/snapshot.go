package vm

import (
	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// Snapshot is the machine state after one executed instruction.
type Snapshot struct {
	PC      int             // index of the executed instruction (step number for the interpreter)
	Block   int             // block the instruction was issued from
	Op      compiler.Opcode // executed instruction
	Operand int64           // push operand
	Stack   []int64         // stack after execution, bottom first
	DP      grid.Direction
	CC      grid.Chooser
	Output  string // text written by this instruction
	Err     error  // runtime error, if any
	Fatal   bool   // Err ended the run
}

// Stepper is a resumable program run. Step executes one instruction and
// returns its snapshot; it returns false once the run has finished.
// NextBlock reports the block of the instruction Step would execute next.
type Stepper interface {
	Step() (Snapshot, bool)
	Done() bool
	NextBlock() (int, bool)
}
