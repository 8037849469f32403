package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/codel/grid"
)

// DefaultMaxTransitions bounds the walker transitions compiled in one
// straight-line sequence before a TIMEOUT marker is emitted.
const DefaultMaxTransitions = 500

// ErrStartOutOfBounds is returned when the start codel is outside the grid.
var ErrStartOutOfBounds = errors.New("start position outside grid")

var log = commonlog.GetLogger("codel.compiler")

// Options configures a compile.
type Options struct {
	StartRow, StartCol int
	DP                 grid.Direction
	CC                 grid.Chooser
	MaxTransitions     int
}

func (o Options) withDefaults() Options {
	if o.MaxTransitions <= 0 {
		o.MaxTransitions = DefaultMaxTransitions
	}
	return o
}

// stateKey identifies a point from which compilation is deterministic:
// the walker has just settled in a block with no pending bounces.
type stateKey struct {
	block int
	dp    grid.Direction
	cc    grid.Chooser
}

// ---------------------------------------------------------------------------
// Compiler
// ---------------------------------------------------------------------------

type compiler struct {
	ectx *ExecutionContext
	opts Options
	out  []Instruction

	// memo maps every settled state already compiled to the index of the
	// first instruction compiled from it. Revisiting a state becomes a LOOP.
	memo map[stateKey]int

	timeouts int
	trapped  int
}

// Compile walks the grid from the start codel and produces the program.
//
// Straight-line paths are emitted in order. A pointer or switch command
// becomes a branch whose targets are indexed by the resulting DP or CC;
// each arm is compiled after the branch and, if it halts, ends in a JUMP to
// a shared END. Paths that reach an already-compiled state end in a LOOP
// back to it.
func Compile(ectx *ExecutionContext, opts Options) (*Program, error) {
	if ectx == nil || ectx.Grid == nil {
		return nil, ErrNoGrid
	}
	opts = opts.withDefaults()
	if !ectx.Grid.InBounds(opts.StartRow, opts.StartCol) {
		return nil, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrStartOutOfBounds,
			opts.StartRow, opts.StartCol, ectx.Grid.Width, ectx.Grid.Height)
	}

	c := &compiler{
		ectx: ectx,
		opts: opts,
		memo: make(map[stateKey]int),
	}

	w := ectx.Walker(opts.StartRow, opts.StartCol, opts.DP, opts.CC)
	if w.Done() {
		c.emit(Instruction{Op: OpEnd, Block: -1, Dest: -1, DP: opts.DP, CC: opts.CC})
	} else if c.sequence(w) {
		dp, cc := w.Pointers()
		c.emit(Instruction{Op: OpEnd, Block: w.Block(), Dest: -1, DP: dp, CC: cc})
	}

	if c.timeouts > 0 || c.trapped > 0 {
		log.Warningf("compile stopped early: %d timeout(s), %d trapped path(s)", c.timeouts, c.trapped)
	}

	return &Program{
		Instructions: c.out,
		Width:        ectx.Grid.Width,
		Height:       ectx.Grid.Height,
		Digest:       Digest(ectx.Grid, opts),
		Timeouts:     c.timeouts,
		Trapped:      c.trapped,
	}, nil
}

func (c *compiler) emit(in Instruction) int {
	c.out = append(c.out, in)
	return len(c.out) - 1
}

// settle records the walker's current block state as compiled from the
// next instruction index. It returns the earlier index if the state was
// already compiled.
func (c *compiler) settle(block int, dp grid.Direction, cc grid.Chooser) (int, bool) {
	key := stateKey{block, dp, cc}
	if at, ok := c.memo[key]; ok {
		return at, true
	}
	c.memo[key] = len(c.out)
	return 0, false
}

// sequence compiles from the walker's state until the path halts, loops,
// branches or hits a safety stop. It returns true only when the walker
// halted, leaving the terminating instruction to the caller.
func (c *compiler) sequence(w *grid.Walker) bool {
	last := w.Block()
	if last >= 0 {
		dp, cc := w.Pointers()
		c.settle(last, dp, cc)
	}

	for transitions := 0; ; transitions++ {
		if transitions >= c.opts.MaxTransitions {
			c.timeouts++
			dp, cc := w.Pointers()
			c.emit(Instruction{Op: OpTimeout, Block: last, Dest: -1, DP: dp, CC: cc})
			return false
		}

		m := w.Next()
		switch m.Kind {
		case grid.MoveHalt:
			return true

		case grid.MoveTrapped:
			c.trapped++
			c.emit(Instruction{Op: OpTrapped, Block: last, Dest: -1, DP: m.DP, CC: m.CC})
			return false

		case grid.MoveToggle:
			c.emit(Instruction{Op: OpCC, Block: last, Dest: m.Block, DP: m.DP, CC: m.CC})

		case grid.MoveRotate:
			c.emit(Instruction{Op: OpDP, Block: last, Dest: m.Block, DP: m.DP, CC: m.CC})

		case grid.MoveSlide:
			last = m.Block
			if at, seen := c.settle(m.Block, m.DP, m.CC); seen {
				c.loop(at, m)
				return false
			}

		case grid.MoveEnter:
			last = m.Block
			op, _ := c.ectx.Table.Lookup(m.From, m.To)
			in := Instruction{Op: op, Block: m.FromBlock, Dest: m.Block, DP: m.DP, CC: m.CC}
			if op == OpPush {
				in.Operand = int64(m.ExitSize)
			}
			if op.IsBranch() {
				c.branch(m, in)
				return false
			}
			c.emit(in)
			if at, seen := c.settle(m.Block, m.DP, m.CC); seen {
				c.loop(at, m)
				return false
			}
		}
	}
}

func (c *compiler) loop(target int, m grid.Move) {
	c.emit(Instruction{
		Op:      OpLoop,
		Targets: []int{target},
		Block:   m.Block,
		Dest:    m.Block,
		DP:      m.DP,
		CC:      m.CC,
	})
}

// branch emits a pointer or switch instruction and compiles one arm per
// possible outcome. Arms whose start state is already compiled reuse it.
func (c *compiler) branch(m grid.Move, in Instruction) {
	at := c.emit(in)

	arms := 2
	if in.Op == OpPointer {
		arms = 4
	}
	log.Debugf("branch %s at %d from block %d: %d arms", in.Op, at, in.Dest, arms)

	targets := make([]int, arms)
	var jumps []int
	for i := 0; i < arms; i++ {
		dp, cc := in.DP, in.CC
		if in.Op == OpPointer {
			dp = grid.Direction(i)
		} else {
			cc = grid.Chooser(i)
		}
		if prev, ok := c.memo[stateKey{in.Dest, dp, cc}]; ok {
			targets[i] = prev
			continue
		}

		targets[i] = len(c.out)
		w := c.ectx.Walker(m.Row, m.Col, dp, cc)
		if c.sequence(w) {
			adp, acc := w.Pointers()
			jumps = append(jumps, c.emit(Instruction{Op: OpJump, Block: w.Block(), Dest: -1, DP: adp, CC: acc}))
		}
	}
	c.out[at].Targets = targets

	merge := c.emit(Instruction{Op: OpEnd, Block: in.Dest, Dest: -1, DP: in.DP, CC: in.CC})
	for _, j := range jumps {
		c.out[j].Targets = []int{merge}
	}
}
