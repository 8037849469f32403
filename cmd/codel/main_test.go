package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/vm"
)

const pushOutGrid = "000006h\n#####hh\n"

func newDebugSession(t *testing.T, src string) *vm.DebugSession {
	t.Helper()
	g, err := grid.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	d, err := vm.NewDebugSession(g, vm.SessionOptions{})
	if err != nil {
		t.Fatalf("NewDebugSession returned error: %v", err)
	}
	return d
}

func debugTranscript(t *testing.T, d *vm.DebugSession, script string) string {
	t.Helper()
	var out bytes.Buffer
	runDebugger(context.Background(), d, strings.NewReader(script), &out, 1000)
	return out.String()
}

// ---------------------------------------------------------------------------
// Debugger REPL
// ---------------------------------------------------------------------------

func TestDebuggerStepAndContinue(t *testing.T) {
	d := newDebugSession(t, pushOutGrid)
	out := debugTranscript(t, d, "step 2\nbreak 0 5\nbl\nstop\ncontinue\ncontinue\nquit\n")

	for _, want := range []string{
		"0000  PUSH     5",
		"0001  OUT_NUM",
		"breakpoints: [1]",
		"run reset",
		"stopped: breakpoint after 1 steps",
		"stopped: finished after 9 steps",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if st := d.State(); st.Output != "5" {
		t.Errorf("output = %q, want 5", st.Output)
	}
}

func TestDebuggerErrorsDoNotStop(t *testing.T) {
	d := newDebugSession(t, pushOutGrid)
	out := debugTranscript(t, d, "frobnicate\nbreak 99\ndelete 1\nstep\n")
	if strings.Count(out, "error:") != 3 {
		t.Errorf("want 3 errors:\n%s", out)
	}
	if !strings.Contains(out, "0000  PUSH") {
		t.Errorf("step after errors did not run:\n%s", out)
	}
}

func TestDebuggerPaintAndGrid(t *testing.T) {
	d := newDebugSession(t, pushOutGrid)
	out := debugTranscript(t, d, "paint 0 6 1\ngrid\n")
	if !strings.Contains(out, "painted 3 codels") {
		t.Errorf("paint not reported:\n%s", out)
	}
	if !strings.Contains(out, "0000061\n#####11\n") {
		t.Errorf("grid not repainted:\n%s", out)
	}
}

func TestSetBreakpointAtNeverClears(t *testing.T) {
	d := newDebugSession(t, pushOutGrid)
	for i := 0; i < 2; i++ {
		if err := setBreakpointAt(d, 0, 0); err != nil {
			t.Fatalf("setBreakpointAt returned error: %v", err)
		}
		if !d.HasBreakpoint(0) {
			t.Fatalf("call %d left block 0 without a breakpoint", i+1)
		}
	}
}

// ---------------------------------------------------------------------------
// Palette
// ---------------------------------------------------------------------------

func TestPrintPalette(t *testing.T) {
	var out bytes.Buffer
	if err := printPalette(&out, "0"); err != nil {
		t.Fatalf("printPalette returned error: %v", err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "From light red (0, #FFC0C0):") {
		t.Errorf("header = %q", strings.SplitN(s, "\n", 2)[0])
	}
	if !strings.Contains(s, "6  normal red") || !strings.Contains(s, "PUSH") {
		t.Errorf("palette missing push:\n%s", s)
	}
	if n := strings.Count(s, "\n"); n != 19 {
		t.Errorf("palette has %d lines, want 19", n)
	}

	for _, bad := range []string{"", "01", "x", "#"} {
		if err := printPalette(&out, bad); err == nil {
			t.Errorf("printPalette(%q) should fail", bad)
		}
	}
}
