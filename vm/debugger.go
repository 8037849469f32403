package vm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// ---------------------------------------------------------------------------
// DebugSession: interactive execution of one grid
// ---------------------------------------------------------------------------

// SessionOptions configures a DebugSession.
type SessionOptions struct {
	Compile   compiler.Options
	Interpret bool   // walk the grid directly instead of compiling
	Input     string // input text, re-read from the start on every Start
}

// DebugSession owns one run of a grid: the execution context, the current
// runner and everything a debugger displays. Breakpoints are block labels
// and are consulted only by Continue.
type DebugSession struct {
	mu sync.Mutex

	opts SessionOptions
	ectx *compiler.ExecutionContext
	prog *compiler.Program

	runner Stepper
	input  *StringInput
	last   *Snapshot
	output strings.Builder
	steps  int
	errors int
	ended  error

	breakpoints map[int]bool
	pause       atomic.Bool
}

// StopReason says why Continue returned.
type StopReason int

const (
	StopFinished StopReason = iota
	StopBreakpoint
	StopPaused
	StopStepLimit
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopFinished:
		return "finished"
	case StopBreakpoint:
		return "breakpoint"
	case StopPaused:
		return "paused"
	case StopStepLimit:
		return "step limit"
	case StopCancelled:
		return "cancelled"
	}
	return "?"
}

// ContinueResult holds the snapshots produced by one Continue call.
type ContinueResult struct {
	Snapshots []Snapshot
	Reason    StopReason
}

// SessionState is a point-in-time view of a session.
type SessionState struct {
	Running     bool
	Done        bool
	PC          int
	Block       int
	NextBlock   int
	DP          grid.Direction
	CC          grid.Chooser
	Stack       []int64
	Output      string
	Steps       int
	Errors      int
	LastErr     string
	Breakpoints []int
}

// ---------------------------------------------------------------------------
// Creation and lifecycle
// ---------------------------------------------------------------------------

// NewDebugSession analyzes a private copy of g and, unless interpreting,
// compiles it.
func NewDebugSession(g *grid.Grid, opts SessionOptions) (*DebugSession, error) {
	d := &DebugSession{
		opts:        opts,
		breakpoints: make(map[int]bool),
	}
	if err := d.load(g); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DebugSession) load(g *grid.Grid) error {
	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		return err
	}
	var prog *compiler.Program
	if !d.opts.Interpret {
		prog, err = compiler.Compile(ectx, d.opts.Compile)
		if err != nil {
			return err
		}
	}
	d.ectx, d.prog = ectx, prog
	return nil
}

// Start discards any current run and begins a new one from the first
// instruction with an empty stack, fresh input and no output.
func (d *DebugSession) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startLocked()
}

func (d *DebugSession) startLocked() {
	d.resetLocked()
	d.input = NewStringInput(d.opts.Input)
	if d.prog != nil {
		d.runner = NewMachine(d.prog, d.input)
	} else {
		d.runner = NewInterpreter(d.ectx, d.opts.Compile, d.input)
	}
	log.Debugf("session started (%d instructions)", d.programLen())
}

// Stop discards the current run and resets all run state. Breakpoints are
// kept.
func (d *DebugSession) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *DebugSession) resetLocked() {
	d.runner = nil
	d.input = nil
	d.last = nil
	d.output.Reset()
	d.steps = 0
	d.errors = 0
	d.ended = nil
	d.pause.Store(false)
}

// Pause asks a running Continue to return after its current step. It may
// be called from any goroutine.
func (d *DebugSession) Pause() {
	d.pause.Store(true)
}

// SetInput replaces the input text. It takes effect on the next Start.
func (d *DebugSession) SetInput(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Input = s
}

// Replace swaps in a new grid, for example after an edit. The current run
// is stopped and breakpoints are cleared, since block labels do not
// survive re-analysis.
func (d *DebugSession) Replace(g *grid.Grid) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replaceLocked(g)
}

func (d *DebugSession) replaceLocked(g *grid.Grid) error {
	if err := d.load(g); err != nil {
		return err
	}
	d.resetLocked()
	d.breakpoints = make(map[int]bool)
	return nil
}

// Paint bucket-fills the region at (row, col) with c and reloads the
// session. It returns the number of codels changed.
func (d *DebugSession) Paint(row, col int, c grid.Colour) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g := d.ectx.Grid.Clone()
	if !g.InBounds(row, col) {
		return 0, fmt.Errorf("paint at (%d,%d): outside %dx%d grid", row, col, g.Width, g.Height)
	}
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", grid.ErrColour, int(c))
	}
	n := g.Fill(row, col, c)
	if n == 0 {
		return 0, nil
	}
	return n, d.replaceLocked(g)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Step executes one instruction, starting a run if none is active. It
// returns false when the run has finished.
func (d *DebugSession) Step() (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepLocked()
}

func (d *DebugSession) stepLocked() (Snapshot, bool) {
	if d.runner == nil {
		d.startLocked()
	}
	snap, ok := d.runner.Step()
	if !ok {
		return Snapshot{}, false
	}
	d.steps++
	d.output.WriteString(snap.Output)
	if snap.Err != nil {
		if snap.Fatal || d.runner.Done() {
			d.ended = snap.Err
		} else {
			d.errors++
		}
	}
	d.last = &snap
	return snap, true
}

// Continue runs until the program finishes, the next instruction's block
// has a breakpoint, Pause is called, maxSteps snapshots have been taken
// or ctx is done. At least one step is taken, so continuing from a
// breakpoint moves past it. maxSteps <= 0 means no limit.
func (d *DebugSession) Continue(ctx context.Context, maxSteps int) (ContinueResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pause.Store(false)

	var res ContinueResult
	for {
		if err := ctx.Err(); err != nil {
			res.Reason = StopCancelled
			return res, err
		}
		if maxSteps > 0 && len(res.Snapshots) >= maxSteps {
			res.Reason = StopStepLimit
			return res, nil
		}

		snap, ok := d.stepLocked()
		if !ok {
			res.Reason = StopFinished
			return res, nil
		}
		res.Snapshots = append(res.Snapshots, snap)
		if d.runner.Done() {
			res.Reason = StopFinished
			return res, nil
		}

		if next, ok := d.runner.NextBlock(); ok && d.breakpoints[next] {
			res.Reason = StopBreakpoint
			return res, nil
		}
		if d.pause.CompareAndSwap(true, false) {
			res.Reason = StopPaused
			return res, nil
		}
	}
}

// State returns the current session state.
func (d *DebugSession) State() SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := SessionState{
		Running:     d.runner != nil && !d.runner.Done(),
		Done:        d.runner != nil && d.runner.Done(),
		PC:          -1,
		Block:       -1,
		NextBlock:   -1,
		Output:      d.output.String(),
		Steps:       d.steps,
		Errors:      d.errors,
		Breakpoints: d.listLocked(),
		DP:          d.opts.Compile.DP,
		CC:          d.opts.Compile.CC,
		Stack:       []int64{},
	}
	if d.last != nil {
		s.PC, s.Block = d.last.PC, d.last.Block
		s.DP, s.CC = d.last.DP, d.last.CC
		s.Stack = d.last.Stack
		if d.last.Err != nil {
			s.LastErr = d.last.Err.Error()
		}
	}
	if d.runner != nil {
		if next, ok := d.runner.NextBlock(); ok {
			s.NextBlock = next
		}
	}
	return s
}

// Program returns the compiled program, or nil when interpreting.
func (d *DebugSession) Program() *compiler.Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prog
}

// Context returns the session's execution context.
func (d *DebugSession) Context() *compiler.ExecutionContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ectx
}

// Err returns the error that ended the run, if any.
func (d *DebugSession) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

func (d *DebugSession) programLen() int {
	if d.prog == nil {
		return 0
	}
	return d.prog.Len()
}

// ---------------------------------------------------------------------------
// Breakpoint management
// ---------------------------------------------------------------------------

// SetBreakpoint sets a breakpoint on a block label.
func (d *DebugSession) SetBreakpoint(block int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if block < 0 || block >= d.ectx.Blocks.Count() {
		return fmt.Errorf("no block %d", block)
	}
	d.breakpoints[block] = true
	return nil
}

// RemoveBreakpoint removes a breakpoint.
func (d *DebugSession) RemoveBreakpoint(block int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.breakpoints[block] {
		return fmt.Errorf("no breakpoint at block %d", block)
	}
	delete(d.breakpoints, block)
	return nil
}

// ToggleBreakpointAt toggles the breakpoint on the block containing
// (row, col) and reports whether it is now set.
func (d *DebugSession) ToggleBreakpointAt(row, col int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ectx.Grid.InBounds(row, col) {
		return false, fmt.Errorf("no codel at (%d,%d)", row, col)
	}
	block := d.ectx.Blocks.Label(row, col)
	if d.breakpoints[block] {
		delete(d.breakpoints, block)
		return false, nil
	}
	d.breakpoints[block] = true
	return true, nil
}

// HasBreakpoint reports whether block has a breakpoint.
func (d *DebugSession) HasBreakpoint(block int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breakpoints[block]
}

// ListBreakpoints returns the breakpoint block labels in ascending order.
func (d *DebugSession) ListBreakpoints() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listLocked()
}

func (d *DebugSession) listLocked() []int {
	out := make([]int, 0, len(d.breakpoints))
	for b := range d.breakpoints {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// ClearAllBreakpoints removes all breakpoints.
func (d *DebugSession) ClearAllBreakpoints() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoints = make(map[int]bool)
}
