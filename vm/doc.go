// Package vm executes colour-grid programs.
//
// This package contains:
//   - the operand stack and input sources
//   - Machine, which steps through a compiled program
//   - Interpreter, which walks the grid directly
//   - Run, for batch execution to completion
//   - DebugSession, with breakpoints, stepping and continue
//
// Both runners yield one Snapshot per executed instruction. Runtime errors
// are recorded in the snapshot and leave the stack unchanged; integer
// overflow is the only fatal error.
package vm
