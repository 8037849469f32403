package grid

// MaxBounces is the number of consecutive failed exits after which a
// program terminates: every DP/CC combination has been tried.
const MaxBounces = 8

// MoveKind classifies one transition of a Walker.
type MoveKind int

const (
	MoveToggle  MoveKind = iota // CC toggled after a failed exit
	MoveRotate                  // DP rotated after a failed exit
	MoveEnter                   // crossed directly into another colour block
	MoveSlide                   // slid through white into a colour block
	MoveTrapped                 // white-region recovery started repeating
	MoveHalt                    // all DP/CC combinations failed
)

func (k MoveKind) String() string {
	switch k {
	case MoveToggle:
		return "toggle"
	case MoveRotate:
		return "rotate"
	case MoveEnter:
		return "enter"
	case MoveSlide:
		return "slide"
	case MoveTrapped:
		return "trapped"
	case MoveHalt:
		return "halt"
	}
	return "?"
}

// Move describes one transition. DP, CC, Row and Col are the walker state
// after the transition.
type Move struct {
	Kind     MoveKind
	Row, Col int
	DP       Direction
	CC       Chooser

	// Set for MoveEnter.
	From, To  Colour
	FromBlock int
	ExitSize  int

	// Block is the block the walker is in after the move, or -1 while it
	// is sliding through white.
	Block int

	// Recovery marks toggles and rotations issued while sliding.
	Recovery bool
}

type slideState struct {
	row, col int
	dp       Direction
	cc       Chooser
}

// Walker traverses a grid following the DP/CC rules. It knows nothing
// about instructions: callers interpret the colour transitions it reports.
type Walker struct {
	g      *Grid
	blocks *Blocks

	row, col int
	dp       Direction
	cc       Chooser
	bounces  int

	inWhite       bool
	pendingRotate bool
	seen          map[slideState]bool
	done          bool
}

// NewWalker places a walker at (row, col). A walker starting on black is
// already halted; one starting on white slides before anything else.
func NewWalker(g *Grid, blocks *Blocks, row, col int, dp Direction, cc Chooser) *Walker {
	w := &Walker{g: g, blocks: blocks, row: row, col: col, dp: dp, cc: cc}
	switch g.At(row, col) {
	case Black:
		w.done = true
	case White:
		w.inWhite = true
		w.seen = make(map[slideState]bool)
	}
	return w
}

// Position returns the walker's current codel.
func (w *Walker) Position() (row, col int) {
	return w.row, w.col
}

// Pointers returns the current DP and CC.
func (w *Walker) Pointers() (Direction, Chooser) {
	return w.dp, w.cc
}

// SetPointers overrides DP and CC, as the pointer and switch commands do.
func (w *Walker) SetPointers(dp Direction, cc Chooser) {
	w.dp, w.cc = dp, cc
}

// Block returns the label of the current block, or -1 while sliding.
func (w *Walker) Block() int {
	if w.inWhite {
		return -1
	}
	return w.blocks.Label(w.row, w.col)
}

// Bounces returns the number of consecutive failed exits.
func (w *Walker) Bounces() int {
	return w.bounces
}

// Done reports whether the walker has halted or been trapped.
func (w *Walker) Done() bool {
	return w.done
}

// Next performs one transition.
func (w *Walker) Next() Move {
	if w.done {
		return w.move(MoveHalt)
	}
	if w.pendingRotate {
		w.pendingRotate = false
		w.dp = w.dp.Clockwise(1)
		m := w.move(MoveRotate)
		m.Recovery = true
		return m
	}
	if w.inWhite {
		return w.slide()
	}
	if w.bounces >= MaxBounces {
		w.done = true
		return w.move(MoveHalt)
	}

	nr, nc := FindExit(w.g, w.row, w.col, w.dp, w.cc)
	if !w.g.InBounds(nr, nc) || w.g.At(nr, nc) == Black {
		w.bounces++
		if w.bounces%2 == 1 {
			w.cc = w.cc.Toggle(1)
			return w.move(MoveToggle)
		}
		w.dp = w.dp.Clockwise(1)
		return w.move(MoveRotate)
	}

	from := w.g.At(w.row, w.col)
	fromBlock := w.blocks.Label(w.row, w.col)
	size := w.blocks.Size(w.row, w.col)
	w.row, w.col = nr, nc

	if w.g.At(nr, nc) == White {
		w.inWhite = true
		w.seen = make(map[slideState]bool)
		return w.slide()
	}

	w.bounces = 0
	m := w.move(MoveEnter)
	m.From, m.To = from, w.g.At(nr, nc)
	m.FromBlock = fromBlock
	m.ExitSize = size
	return m
}

// slide moves through white in the DP direction. When blocked it starts
// the recovery pair (toggle CC now, rotate DP on the next call) unless the
// same blocked state has been seen before, in which case the walker is
// trapped.
func (w *Walker) slide() Move {
	dr, dc := w.dp.Delta()
	for {
		nr, nc := w.row+dr, w.col+dc
		if !w.g.InBounds(nr, nc) || w.g.At(nr, nc) == Black {
			break
		}
		w.row, w.col = nr, nc
		if w.g.At(nr, nc) != White {
			w.inWhite = false
			w.seen = nil
			w.bounces = 0
			return w.move(MoveSlide)
		}
	}

	key := slideState{w.row, w.col, w.dp, w.cc}
	if w.seen[key] {
		w.done = true
		return w.move(MoveTrapped)
	}
	w.seen[key] = true

	w.cc = w.cc.Toggle(1)
	w.pendingRotate = true
	m := w.move(MoveToggle)
	m.Recovery = true
	return m
}

func (w *Walker) move(kind MoveKind) Move {
	return Move{
		Kind:      kind,
		Row:       w.row,
		Col:       w.col,
		DP:        w.dp,
		CC:        w.cc,
		FromBlock: -1,
		Block:     w.Block(),
	}
}
