package vm

import (
	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// Interpreter runs a grid directly, without compiling it first. It
// produces the same command and marker snapshots as a Machine running the
// compiled program, minus the JUMP and LOOP bookkeeping, and it is not
// subject to the compiler's transition bound.
type Interpreter struct {
	ectx  *compiler.ExecutionContext
	walk  *grid.Walker
	steps int
	done  bool
	err   error
	st    state
}

// NewInterpreter starts a direct run at the given codel.
func NewInterpreter(ectx *compiler.ExecutionContext, opts compiler.Options, in Input) *Interpreter {
	it := &Interpreter{
		ectx: ectx,
		walk: ectx.Walker(opts.StartRow, opts.StartCol, opts.DP, opts.CC),
	}
	it.st.input = in
	it.st.dp, it.st.cc = opts.DP, opts.CC
	return it
}

// Step advances the walker to its next reportable transition and executes
// it. Slides through white produce no snapshot of their own.
func (it *Interpreter) Step() (Snapshot, bool) {
	if it.done {
		return Snapshot{}, false
	}

	for {
		block := it.walk.Block()
		m := it.walk.Next()
		snap := Snapshot{PC: it.steps, Block: block}

		switch m.Kind {
		case grid.MoveSlide:
			continue

		case grid.MoveHalt:
			it.done = true
			return Snapshot{}, false

		case grid.MoveTrapped:
			snap.Op = compiler.OpTrapped
			snap.Err = ErrTrapped
			it.err = ErrTrapped
			it.done = true

		case grid.MoveToggle:
			snap.Op = compiler.OpCC

		case grid.MoveRotate:
			snap.Op = compiler.OpDP

		case grid.MoveEnter:
			op, _ := it.ectx.Table.Lookup(m.From, m.To)
			snap.Op = op
			snap.Block = m.FromBlock
			if op == compiler.OpPush {
				snap.Operand = int64(m.ExitSize)
			}
			it.st.dp, it.st.cc = m.DP, m.CC
			out, err := it.st.execute(op, snap.Operand)
			snap.Output = out
			if err != nil {
				snap.Err = err
				if IsFatal(err) {
					snap.Fatal = true
					it.err = err
					it.done = true
				}
			}
			if op.IsBranch() {
				it.walk.SetPointers(it.st.dp, it.st.cc)
			}
		}

		it.st.dp, it.st.cc = it.walk.Pointers()
		snap.DP, snap.CC = it.st.dp, it.st.cc
		snap.Stack = it.st.stack.Values()
		it.steps++
		return snap, true
	}
}

// Done reports whether the run has finished.
func (it *Interpreter) Done() bool {
	return it.done || it.walk.Done()
}

// NextBlock returns the block the walker is in.
func (it *Interpreter) NextBlock() (int, bool) {
	if it.Done() {
		return 0, false
	}
	b := it.walk.Block()
	return b, b >= 0
}

// Position returns the walker's codel.
func (it *Interpreter) Position() (row, col int) {
	return it.walk.Position()
}

// Steps returns the number of snapshots produced.
func (it *Interpreter) Steps() int { return it.steps }

// Output returns everything written so far.
func (it *Interpreter) Output() string { return it.st.output.String() }

// Stack returns a copy of the stack.
func (it *Interpreter) Stack() []int64 { return it.st.stack.Values() }

// Err returns the error that ended the run, if any.
func (it *Interpreter) Err() error { return it.err }
