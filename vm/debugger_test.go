package vm

import (
	"context"
	"sync"
	"testing"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

func newSession(t *testing.T, src string, opts SessionOptions) *DebugSession {
	t.Helper()
	g, err := grid.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	d, err := NewDebugSession(g, opts)
	if err != nil {
		t.Fatalf("NewDebugSession returned error: %v", err)
	}
	return d
}

// Blocks in pushOutGrid: 0 light red, 1 red, 2 dark magenta, 3 black.

// ---------------------------------------------------------------------------
// Breakpoint management
// ---------------------------------------------------------------------------

func TestSessionBreakpointManagement(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{})

	if err := d.SetBreakpoint(99); err == nil {
		t.Error("SetBreakpoint on unknown block should fail")
	}
	if err := d.SetBreakpoint(2); err != nil {
		t.Fatalf("SetBreakpoint returned error: %v", err)
	}
	if !d.HasBreakpoint(2) {
		t.Error("HasBreakpoint(2) = false")
	}
	if err := d.RemoveBreakpoint(1); err == nil {
		t.Error("RemoveBreakpoint without a breakpoint should fail")
	}

	set, err := d.ToggleBreakpointAt(1, 5)
	if err != nil || set {
		t.Errorf("ToggleBreakpointAt(1,5) = %v, %v; want cleared", set, err)
	}
	set, _ = d.ToggleBreakpointAt(0, 5)
	if !set || !d.HasBreakpoint(1) {
		t.Error("ToggleBreakpointAt(0,5) should set block 1")
	}
	if _, err := d.ToggleBreakpointAt(5, 5); err == nil {
		t.Error("toggle outside grid should fail")
	}

	d.SetBreakpoint(0)
	if got := d.ListBreakpoints(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("ListBreakpoints() = %v, want [0 1]", got)
	}
	d.ClearAllBreakpoints()
	if len(d.ListBreakpoints()) != 0 {
		t.Error("ClearAllBreakpoints left breakpoints")
	}
}

// ---------------------------------------------------------------------------
// Execution control
// ---------------------------------------------------------------------------

func TestSessionContinueStopsAtBreakpoint(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{})
	d.SetBreakpoint(1)

	res, err := d.Continue(context.Background(), 0)
	if err != nil {
		t.Fatalf("Continue returned error: %v", err)
	}
	if res.Reason != StopBreakpoint || len(res.Snapshots) != 1 {
		t.Fatalf("first Continue = %s after %d steps, want breakpoint after 1", res.Reason, len(res.Snapshots))
	}
	if st := d.State(); st.NextBlock != 1 || !st.Running {
		t.Errorf("state = %+v", st)
	}

	res, err = d.Continue(context.Background(), 0)
	if err != nil {
		t.Fatalf("Continue returned error: %v", err)
	}
	if res.Reason != StopFinished || len(res.Snapshots) != 9 {
		t.Errorf("second Continue = %s after %d steps, want finished after 9", res.Reason, len(res.Snapshots))
	}

	st := d.State()
	if st.Output != "5" || st.Steps != 10 {
		t.Errorf("state output %q steps %d", st.Output, st.Steps)
	}
}

func TestSessionBreakpointInsideBlock(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{})
	d.SetBreakpoint(2)

	res, _ := d.Continue(context.Background(), 0)
	if res.Reason != StopBreakpoint || len(res.Snapshots) != 2 {
		t.Fatalf("Continue = %s after %d, want breakpoint after 2", res.Reason, len(res.Snapshots))
	}
	// Every bounce inside block 2 hits the breakpoint again.
	res, _ = d.Continue(context.Background(), 0)
	if res.Reason != StopBreakpoint || len(res.Snapshots) != 1 {
		t.Fatalf("Continue = %s after %d, want breakpoint after 1", res.Reason, len(res.Snapshots))
	}
	d.RemoveBreakpoint(2)
	res, _ = d.Continue(context.Background(), 0)
	if res.Reason != StopFinished || len(res.Snapshots) != 7 {
		t.Errorf("Continue = %s after %d, want finished after 7", res.Reason, len(res.Snapshots))
	}
}

func TestSessionStepAndStop(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{})

	snap, ok := d.Step()
	if !ok || snap.Op != compiler.OpPush || snap.PC != 0 {
		t.Fatalf("first Step = %+v, %v", snap, ok)
	}
	snap, _ = d.Step()
	if snap.Output != "5" {
		t.Errorf("second Step output = %q", snap.Output)
	}

	d.Stop()
	st := d.State()
	if st.Running || st.Steps != 0 || st.Output != "" || len(st.Stack) != 0 || st.PC != -1 {
		t.Errorf("state after Stop = %+v", st)
	}

	snap, _ = d.Step()
	if snap.PC != 0 {
		t.Errorf("Step after Stop restarted at %d", snap.PC)
	}
}

func TestSessionStepLimitAndPause(t *testing.T) {
	d := newSession(t, "000006h\n", SessionOptions{})
	res, err := d.Continue(context.Background(), 25)
	if err != nil {
		t.Fatalf("Continue returned error: %v", err)
	}
	if res.Reason != StopStepLimit || len(res.Snapshots) != 25 {
		t.Errorf("Continue = %s after %d", res.Reason, len(res.Snapshots))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = d.Continue(ctx, 0)
	if err == nil || res.Reason != StopCancelled {
		t.Errorf("cancelled Continue = %s, %v", res.Reason, err)
	}
}

func TestSessionInputResetOnStart(t *testing.T) {
	// light red -> dark blue is in-number; dark blue -> light blue is
	// light step 1, hue 0: push.
	d := newSession(t, "0g4\n", SessionOptions{Input: "12"})
	snap, _ := d.Step()
	if snap.Op != compiler.OpInNum || !equalValues(snap.Stack, []int64{12}) {
		t.Fatalf("first Step = %+v", snap)
	}

	d.SetInput("34")
	d.Start()
	snap, _ = d.Step()
	if !equalValues(snap.Stack, []int64{34}) {
		t.Errorf("after restart stack = %v, want [34]", snap.Stack)
	}
}

func TestSessionInterpretMode(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{Interpret: true})
	if d.Program() != nil {
		t.Error("interpreting session should not compile")
	}
	res, err := d.Continue(context.Background(), 0)
	if err != nil {
		t.Fatalf("Continue returned error: %v", err)
	}
	if res.Reason != StopFinished || d.State().Output != "5" {
		t.Errorf("Continue = %s, output %q", res.Reason, d.State().Output)
	}
}

func TestSessionPaint(t *testing.T) {
	d := newSession(t, pushOutGrid, SessionOptions{})
	d.SetBreakpoint(1)
	d.Step()

	// Repaint the dark magenta block yellow: red -> yellow is add.
	n, err := d.Paint(0, 6, grid.Yellow)
	if err != nil {
		t.Fatalf("Paint returned error: %v", err)
	}
	if n != 3 {
		t.Errorf("Paint changed %d codels, want 3", n)
	}
	if len(d.ListBreakpoints()) != 0 {
		t.Error("breakpoints should be cleared after an edit")
	}
	if st := d.State(); st.Steps != 0 {
		t.Errorf("run should be reset after an edit, steps = %d", st.Steps)
	}
	if op := d.Program().Instructions[1].Op; op != compiler.OpAdd {
		t.Errorf("second instruction after paint = %s, want ADD", op)
	}
	if _, err := d.Paint(9, 9, grid.Red); err == nil {
		t.Error("Paint outside grid should fail")
	}
}

func TestSessionConcurrentPaintsKeepBothEdits(t *testing.T) {
	// Two separate white codels, each its own block.
	d := newSession(t, "0.#.\n####\n", SessionOptions{})

	var wg sync.WaitGroup
	for _, col := range []int{1, 3} {
		wg.Add(1)
		go func(col int) {
			defer wg.Done()
			if _, err := d.Paint(0, col, grid.Red); err != nil {
				t.Errorf("Paint(0,%d) returned error: %v", col, err)
			}
		}(col)
	}
	wg.Wait()

	g := d.Context().Grid
	if g.At(0, 1) != grid.Red || g.At(0, 3) != grid.Red {
		t.Errorf("lost an edit:\n%s", g.Format())
	}
}
