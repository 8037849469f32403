package vm

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/codel/compiler"
)

var log = commonlog.GetLogger("codel.vm")

// Machine executes a compiled program one instruction at a time.
type Machine struct {
	prog  *compiler.Program
	pc    int
	steps int
	done  bool
	err   error
	st    state
}

// NewMachine prepares prog for execution with the given input. A nil
// input makes every read fail.
func NewMachine(prog *compiler.Program, in Input) *Machine {
	m := &Machine{prog: prog}
	m.st.input = in
	if len(prog.Instructions) > 0 {
		m.st.dp = prog.Instructions[0].DP
		m.st.cc = prog.Instructions[0].CC
	}
	return m
}

// Step executes the instruction at the program counter.
func (m *Machine) Step() (Snapshot, bool) {
	if m.Done() {
		m.done = true
		return Snapshot{}, false
	}

	in := &m.prog.Instructions[m.pc]
	snap := Snapshot{PC: m.pc, Block: in.Block, Op: in.Op, Operand: in.Operand}
	next := m.pc + 1

	switch in.Op {
	case compiler.OpEnd:
		m.done = true
		return Snapshot{}, false

	case compiler.OpTimeout:
		snap.Err = ErrIncomplete
		m.err = ErrIncomplete
		m.done = true

	case compiler.OpTrapped:
		snap.Err = ErrTrapped
		m.err = ErrTrapped
		m.done = true

	case compiler.OpJump, compiler.OpLoop:
		next = in.Targets[0]

	case compiler.OpDP, compiler.OpCC:
		m.st.dp, m.st.cc = in.DP, in.CC

	default:
		m.st.dp, m.st.cc = in.DP, in.CC
		out, err := m.st.execute(in.Op, in.Operand)
		snap.Output = out
		if err != nil {
			snap.Err = err
			if IsFatal(err) {
				log.Errorf("fatal error at %d (%s): %v", m.pc, in.Op, err)
				snap.Fatal = true
				m.err = err
				m.done = true
			}
		}
		if in.Op.IsBranch() {
			next = in.Target(m.st.dp, m.st.cc)
		}
	}

	snap.Stack = m.st.stack.Values()
	snap.DP, snap.CC = m.st.dp, m.st.cc
	m.pc = next
	m.steps++
	return snap, true
}

// Done reports whether the run has finished.
func (m *Machine) Done() bool {
	return m.done || m.pc < 0 || m.pc >= len(m.prog.Instructions)
}

// NextBlock returns the block of the next instruction.
func (m *Machine) NextBlock() (int, bool) {
	if m.Done() {
		return 0, false
	}
	return m.prog.Instructions[m.pc].Block, true
}

// PC returns the program counter.
func (m *Machine) PC() int { return m.pc }

// Steps returns the number of snapshots produced.
func (m *Machine) Steps() int { return m.steps }

// Output returns everything written so far.
func (m *Machine) Output() string { return m.st.output.String() }

// Stack returns a copy of the stack.
func (m *Machine) Stack() []int64 { return m.st.stack.Values() }

// Err returns the error that ended the run, if any.
func (m *Machine) Err() error { return m.err }
