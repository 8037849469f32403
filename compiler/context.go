package compiler

import (
	"errors"

	"github.com/chazu/codel/grid"
)

// ErrNoGrid is returned when compiling without a grid.
var ErrNoGrid = errors.New("no grid to compile")

// ExecutionContext bundles everything a compile or run reads: a private
// copy of the grid, its block analysis and the command table. It is never
// mutated after construction, so editors may keep changing their own grid.
type ExecutionContext struct {
	Grid   *grid.Grid
	Blocks *grid.Blocks
	Table  *CommandTable
}

// NewExecutionContext clones g and analyzes the clone. A nil table selects
// the standard command table.
func NewExecutionContext(g *grid.Grid, table *CommandTable) (*ExecutionContext, error) {
	if g == nil {
		return nil, ErrNoGrid
	}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, grid.ErrEmptyGrid
	}
	if table == nil {
		table = defaultTable
	}
	c := g.Clone()
	return &ExecutionContext{Grid: c, Blocks: grid.Analyze(c), Table: table}, nil
}

// Walker returns a walker over the context's grid.
func (e *ExecutionContext) Walker(row, col int, dp grid.Direction, cc grid.Chooser) *grid.Walker {
	return grid.NewWalker(e.Grid, e.Blocks, row, col, dp, cc)
}

var defaultTable = NewCommandTable()

// DefaultTable returns the shared standard command table.
func DefaultTable() *CommandTable {
	return defaultTable
}
