package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGrid is returned for grids with zero width or height.
	ErrEmptyGrid = errors.New("grid has zero width or height")

	// ErrRagged is returned when rows have differing lengths.
	ErrRagged = errors.New("grid rows have differing widths")

	// ErrColour is returned for cell values outside the palette.
	ErrColour = errors.New("colour index out of range")
)

// Grid is a rectangular program of codels stored row-major in a flat slice.
type Grid struct {
	Width, Height int
	cells         []Colour
}

// New creates a width x height grid with every codel set to fill.
func New(width, height int, fill Colour) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyGrid
	}
	if !fill.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrColour, int(fill))
	}
	g := &Grid{Width: width, Height: height, cells: make([]Colour, width*height)}
	for i := range g.cells {
		g.cells[i] = fill
	}
	return g, nil
}

// FromRows builds a grid from rows of colour indices, as delivered by an
// editor. Rows must be non-empty and of equal length.
func FromRows(rows [][]int) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	height, width := len(rows), len(rows[0])
	g := &Grid{Width: width, Height: height, cells: make([]Colour, 0, width*height)}
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRagged, r, len(row), width)
		}
		for c, v := range row {
			if !Colour(v).Valid() {
				return nil, fmt.Errorf("%w: %d at (%d,%d)", ErrColour, v, r, c)
			}
			g.cells = append(g.cells, Colour(v))
		}
	}
	return g, nil
}

// Index returns the offset of (row, col) in the flat cell slice.
func (g *Grid) Index(row, col int) int {
	return row*g.Width + col
}

// InBounds reports whether (row, col) lies inside the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.Height && col < g.Width
}

// At returns the colour at (row, col). The coordinates must be in bounds.
func (g *Grid) At(row, col int) Colour {
	return g.cells[g.Index(row, col)]
}

// Set paints a single codel.
func (g *Grid) Set(row, col int, c Colour) {
	g.cells[g.Index(row, col)] = c
}

// Clone returns a deep copy, so a compile or run can hold a consistent
// snapshot while the original keeps being edited.
func (g *Grid) Clone() *Grid {
	cells := make([]Colour, len(g.cells))
	copy(cells, g.cells)
	return &Grid{Width: g.Width, Height: g.Height, cells: cells}
}

// Rows returns the grid as rows of colour indices.
func (g *Grid) Rows() [][]int {
	rows := make([][]int, g.Height)
	for r := range rows {
		rows[r] = make([]int, g.Width)
		for c := range rows[r] {
			rows[r][c] = int(g.At(r, c))
		}
	}
	return rows
}

// Fill recolours the 4-connected same-colour region containing (row, col)
// and returns the number of codels changed.
func (g *Grid) Fill(row, col int, c Colour) int {
	orig := g.At(row, col)
	if orig == c {
		return 0
	}
	changed := 0
	work := []int{g.Index(row, col)}
	g.cells[work[0]] = c
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		changed++
		r, cc := i/g.Width, i%g.Width
		for _, n := range g.neighbours(r, cc) {
			if g.cells[n] == orig {
				g.cells[n] = c
				work = append(work, n)
			}
		}
	}
	return changed
}

// neighbours returns the in-bounds 4-connected neighbour offsets of (row, col).
func (g *Grid) neighbours(row, col int) []int {
	ns := make([]int, 0, 4)
	if col+1 < g.Width {
		ns = append(ns, g.Index(row, col+1))
	}
	if row+1 < g.Height {
		ns = append(ns, g.Index(row+1, col))
	}
	if col > 0 {
		ns = append(ns, g.Index(row, col-1))
	}
	if row > 0 {
		ns = append(ns, g.Index(row-1, col))
	}
	return ns
}
