package compiler

import "github.com/chazu/codel/grid"

// commandGrid is indexed [lightStep][hueStep].
var commandGrid = [3][6]Opcode{
	{OpNop, OpAdd, OpDiv, OpGreater, OpDup, OpInChar},
	{OpPush, OpSub, OpMod, OpPointer, OpRoll, OpOutNum},
	{OpPop, OpMul, OpNot, OpSwitch, OpInNum, OpOutChar},
}

// CommandTable maps an (exit colour, entry colour) pair to the command
// executed when moving between them.
type CommandTable struct {
	cmds [grid.NumColours][grid.NumColours]Opcode
	set  [grid.NumColours][grid.NumColours]bool
}

// NewCommandTable builds the table from hue and lightness differences.
// White and black have no entries.
func NewCommandTable() *CommandTable {
	t := &CommandTable{}
	for from := grid.Colour(0); from < grid.White; from++ {
		for to := grid.Colour(0); to < grid.White; to++ {
			hue, light := from.Steps(to)
			t.cmds[from][to] = commandGrid[light][hue]
			t.set[from][to] = true
		}
	}
	return t
}

// Lookup returns the command for moving from exit to entry.
func (t *CommandTable) Lookup(exit, entry grid.Colour) (Opcode, bool) {
	if !exit.Valid() || !entry.Valid() || !t.set[exit][entry] {
		return 0, false
	}
	return t.cmds[exit][entry], true
}

// RowEntry is one cell of a command table row.
type RowEntry struct {
	Colour  grid.Colour
	Op      Opcode
	Defined bool
}

// Row returns the command reached from base for every palette colour.
func (t *CommandTable) Row(base grid.Colour) []RowEntry {
	row := make([]RowEntry, grid.NumColours)
	for c := grid.Colour(0); c < grid.NumColours; c++ {
		op, ok := t.Lookup(base, c)
		row[c] = RowEntry{Colour: c, Op: op, Defined: ok}
	}
	return row
}
