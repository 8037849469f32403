package grid

// FindExit locates the codel through which execution leaves the block
// containing (row, col). Among the block's codels on its DP-facing
// boundary, the one farthest in the DP direction is chosen; ties go to the
// codel farthest towards the CC side (clockwise of DP for ChooseRight,
// counter-clockwise for ChooseLeft). The returned coordinates are those of
// the neighbouring codel across that edge and may be off-grid or black.
func FindExit(g *Grid, row, col int, dp Direction, cc Chooser) (int, int) {
	side := dp.Clockwise(-1)
	if cc == ChooseRight {
		side = dp.Clockwise(1)
	}
	dr, dc := dp.Delta()
	sr, sc := side.Delta()

	colour := g.At(row, col)
	visited := make([]bool, len(g.cells))
	start := g.Index(row, col)
	visited[start] = true
	work := []int{start}

	best := -1
	var bestFar, bestSide int
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		r, c := i/g.Width, i%g.Width

		nr, nc := r+dr, c+dc
		if !g.InBounds(nr, nc) || g.At(nr, nc) != colour {
			far, across := dr*r+dc*c, sr*r+sc*c
			if best == -1 || far > bestFar || (far == bestFar && across > bestSide) {
				best, bestFar, bestSide = i, far, across
			}
		}

		for _, n := range g.neighbours(r, c) {
			if !visited[n] && g.cells[n] == colour {
				visited[n] = true
				work = append(work, n)
			}
		}
	}

	return best/g.Width + dr, best%g.Width + dc
}
