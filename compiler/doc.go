// Package compiler turns a colour grid into a flat instruction program.
//
// The compiler drives a grid.Walker from the start codel, translating each
// colour transition through the CommandTable. Pointer and switch commands
// become branches over the possible DP or CC outcomes, revisited states
// become LOOP instructions, and failed exits are recorded as DP/CC markers
// so a debugger can replay pointer movement exactly.
//
// Compilation always terminates: settled states are memoized across the
// whole program and every straight-line sequence is bounded by
// Options.MaxTransitions, after which a TIMEOUT marker is emitted.
package compiler
