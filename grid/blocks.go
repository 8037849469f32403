package grid

// Blocks is the result of block analysis: a label for every codel and the
// size of every labelled block. Labels are assigned in row-major order of
// each block's first codel and are only meaningful for the grid they were
// computed from.
type Blocks struct {
	Width, Height int
	labels        []int // per codel
	sizes         []int // per label
}

// Analyze labels every maximal 4-connected same-colour region of g,
// white and black included.
func Analyze(g *Grid) *Blocks {
	b := &Blocks{
		Width:  g.Width,
		Height: g.Height,
		labels: make([]int, len(g.cells)),
	}
	for i := range b.labels {
		b.labels[i] = -1
	}

	var work []int
	for start := range g.cells {
		if b.labels[start] != -1 {
			continue
		}
		label := len(b.sizes)
		colour := g.cells[start]
		size := 0

		b.labels[start] = label
		work = append(work[:0], start)
		for len(work) > 0 {
			i := work[len(work)-1]
			work = work[:len(work)-1]
			size++
			for _, n := range g.neighbours(i/g.Width, i%g.Width) {
				if b.labels[n] == -1 && g.cells[n] == colour {
					b.labels[n] = label
					work = append(work, n)
				}
			}
		}
		b.sizes = append(b.sizes, size)
	}
	return b
}

// Label returns the block label of (row, col).
func (b *Blocks) Label(row, col int) int {
	return b.labels[row*b.Width+col]
}

// Size returns the size of the block containing (row, col).
func (b *Blocks) Size(row, col int) int {
	return b.sizes[b.Label(row, col)]
}

// SizeOf returns the size of the block with the given label, or 0 if the
// label is unknown.
func (b *Blocks) SizeOf(label int) int {
	if label < 0 || label >= len(b.sizes) {
		return 0
	}
	return b.sizes[label]
}

// Count returns the number of blocks.
func (b *Blocks) Count() int {
	return len(b.sizes)
}

// Cells returns the (row, col) pairs belonging to a block, in row-major
// order.
func (b *Blocks) Cells(label int) [][2]int {
	var cells [][2]int
	for i, l := range b.labels {
		if l == label {
			cells = append(cells, [2]int{i / b.Width, i % b.Width})
		}
	}
	return cells
}

// LabelMap returns the per-codel block labels as rows.
func (b *Blocks) LabelMap() [][]int {
	return b.rows(func(i int) int { return b.labels[i] })
}

// SizeMap returns the per-codel block sizes as rows.
func (b *Blocks) SizeMap() [][]int {
	return b.rows(func(i int) int { return b.sizes[b.labels[i]] })
}

func (b *Blocks) rows(value func(i int) int) [][]int {
	rows := make([][]int, b.Height)
	for r := range rows {
		rows[r] = make([]int, b.Width)
		for c := range rows[r] {
			rows[r][c] = value(r*b.Width + c)
		}
	}
	return rows
}
