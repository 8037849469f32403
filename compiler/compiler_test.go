package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/codel/grid"
)

func compileString(t *testing.T, src string, opts Options) *Program {
	t.Helper()
	g, err := grid.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	ectx, err := NewExecutionContext(g, nil)
	if err != nil {
		t.Fatalf("NewExecutionContext returned error: %v", err)
	}
	prog, err := Compile(ectx, opts)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if err := prog.Validate(); err != nil {
		t.Fatalf("compiled program invalid: %v\n%s", err, prog.Disassemble())
	}
	return prog
}

func ops(p *Program) []Opcode {
	out := make([]Opcode, len(p.Instructions))
	for i, in := range p.Instructions {
		out[i] = in.Op
	}
	return out
}

func assertOps(t *testing.T, p *Program, want ...Opcode) {
	t.Helper()
	got := ops(p)
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d\n%s", len(got), len(want), p.Disassemble())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d = %s, want %s\n%s", i, got[i], want[i], p.Disassemble())
		}
	}
}

// ---------------------------------------------------------------------------
// Straight-line compilation
// ---------------------------------------------------------------------------

func TestCompileWalledBlockOnlyBounces(t *testing.T) {
	p := compileString(t, "00#\n00#\n###\n", Options{})
	assertOps(t, p,
		OpCC, OpDP, OpCC, OpDP, OpCC, OpDP, OpCC, OpDP,
		OpEnd)
	if len(p.Commands()) != 0 {
		t.Errorf("expected only markers, got commands %v", p.Commands())
	}
	if !p.Complete() {
		t.Error("program should be complete")
	}
	if p.Instructions[1].DP != grid.Down {
		t.Errorf("first DP marker records %v, want down", p.Instructions[1].DP)
	}
}

func TestCompileAdd(t *testing.T) {
	p := compileString(t, "67\n", Options{})
	assertOps(t, p,
		OpAdd,
		OpCC, OpDP, OpCC, OpDP,
		OpInChar,
		OpCC, OpDP, OpCC, OpDP,
		OpAdd,
		OpLoop)

	add := p.Instructions[0]
	if add.Block != 0 || add.Dest != 1 {
		t.Errorf("ADD block %d -> %d, want 0 -> 1", add.Block, add.Dest)
	}
	if loop := p.Instructions[11]; loop.Targets[0] != 1 {
		t.Errorf("LOOP target = %d, want 1", loop.Targets[0])
	}
}

func TestCompilePushCarriesBlockSize(t *testing.T) {
	p := compileString(t, "000006\n", Options{})
	first := p.Instructions[0]
	if first.Op != OpPush || first.Operand != 5 {
		t.Fatalf("first instruction = %s, want PUSH 5", first.Format())
	}
}

func TestCompileStartOnBlack(t *testing.T) {
	p := compileString(t, "#0\n", Options{})
	assertOps(t, p, OpEnd)
}

func TestCompileStartOnWhiteSlides(t *testing.T) {
	p := compileString(t, "..6\n##7\n", Options{})
	// The slide itself emits nothing; the first command is red -> yellow.
	cmds := p.Commands()
	if len(cmds) == 0 || cmds[0].Op != OpAdd {
		t.Fatalf("first command = %v, want ADD\n%s", cmds, p.Disassemble())
	}
	if p.Instructions[0].Op != OpCC || p.Instructions[0].Block != 1 {
		t.Errorf("first instruction = %s, want CC in the red block", p.Instructions[0].Format())
	}
}

func TestCompileStartOutOfBounds(t *testing.T) {
	g, _ := grid.ParseString("01\n")
	ectx, _ := NewExecutionContext(g, nil)
	_, err := Compile(ectx, Options{StartRow: 3})
	if !errors.Is(err, ErrStartOutOfBounds) {
		t.Errorf("error = %v, want ErrStartOutOfBounds", err)
	}
	if _, err := Compile(nil, Options{}); !errors.Is(err, ErrNoGrid) {
		t.Errorf("nil context error = %v, want ErrNoGrid", err)
	}
}

// ---------------------------------------------------------------------------
// Safety stops
// ---------------------------------------------------------------------------

func TestCompileTimeout(t *testing.T) {
	p := compileString(t, "00#\n00#\n###\n", Options{MaxTransitions: 3})
	assertOps(t, p, OpCC, OpDP, OpCC, OpTimeout)
	if p.Timeouts != 1 || p.Complete() {
		t.Errorf("Timeouts = %d, Complete = %v", p.Timeouts, p.Complete())
	}
}

func TestCompileTrappedInWhite(t *testing.T) {
	p := compileString(t, "..\n..\n", Options{})
	last := p.Instructions[len(p.Instructions)-1]
	if last.Op != OpTrapped {
		t.Fatalf("last instruction = %s, want TRAPPED\n%s", last.Op, p.Disassemble())
	}
	if p.Trapped != 1 {
		t.Errorf("Trapped = %d, want 1", p.Trapped)
	}
	for _, in := range p.Instructions[:len(p.Instructions)-1] {
		if in.Op != OpCC && in.Op != OpDP {
			t.Errorf("unexpected %s before trap", in.Op)
		}
	}
}

// ---------------------------------------------------------------------------
// Branches and loops
// ---------------------------------------------------------------------------

func TestCompilePointerBranch(t *testing.T) {
	// light red -> normal cyan is a pointer command.
	p := compileString(t, "09\n", Options{})
	br := p.Instructions[0]
	if br.Op != OpPointer {
		t.Fatalf("first instruction = %s, want POINTER", br.Op)
	}
	if len(br.Targets) != 4 {
		t.Fatalf("pointer has %d targets, want 4", len(br.Targets))
	}
	if br.Targets[0] != 1 {
		t.Errorf("first arm starts at %d, want 1", br.Targets[0])
	}
	if last := p.Instructions[len(p.Instructions)-1]; last.Op != OpEnd {
		t.Errorf("program ends with %s, want END", last.Op)
	}
}

func TestCompileSwitchArmsShareMerge(t *testing.T) {
	// light red -> dark cyan is a switch. The dark cyan block is walled in
	// on every side it can exit from, so both arms halt and jump to the
	// same merge END.
	g, err := grid.FromRows([][]int{
		{0, 15, 19},
		{15, 15, 19},
	})
	if err != nil {
		t.Fatalf("FromRows returned error: %v", err)
	}
	ectx, _ := NewExecutionContext(g, nil)
	p, err := Compile(ectx, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	br := p.Instructions[0]
	if br.Op != OpSwitch || len(br.Targets) != 2 {
		t.Fatalf("first instruction = %s", br.Format())
	}
	if br.Targets[0] != 1 || br.Targets[1] != 10 {
		t.Errorf("arm targets = %v, want [1 10]\n%s", br.Targets, p.Disassemble())
	}

	end := p.Len() - 1
	if p.Instructions[end].Op != OpEnd {
		t.Fatalf("last instruction = %s, want END", p.Instructions[end].Op)
	}
	jumps := 0
	for _, in := range p.Instructions {
		if in.Op == OpJump {
			jumps++
			if in.Targets[0] != end {
				t.Errorf("JUMP targets %d, want merge %d", in.Targets[0], end)
			}
		}
	}
	if jumps != 2 {
		t.Errorf("got %d jumps, want 2", jumps)
	}
	if p.Len() != 20 {
		t.Errorf("got %d instructions, want 20\n%s", p.Len(), p.Disassemble())
	}
}

func TestCompileTerminatesOnDenseGrid(t *testing.T) {
	rows := make([][]int, 12)
	for r := range rows {
		rows[r] = make([]int, 12)
		for c := range rows[r] {
			rows[r][c] = (r*7 + c*3 + r*c) % 20
		}
	}
	g, err := grid.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows returned error: %v", err)
	}
	ectx, _ := NewExecutionContext(g, nil)
	p, err := Compile(ectx, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	if p.Len() == 0 {
		t.Fatal("empty program")
	}
	last := p.Instructions[p.Len()-1].Op
	if !last.IsTerminal() && last != OpLoop && last != OpJump {
		t.Errorf("program ends with %s", last)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := "0192\n3#a.\n..b4\n"
	a := compileString(t, src, Options{})
	b := compileString(t, src, Options{})
	if a.Disassemble() != b.Disassemble() {
		t.Error("two compiles of the same grid differ")
	}
	if a.Digest != b.Digest {
		t.Error("digests differ")
	}
	c := compileString(t, src, Options{CC: grid.ChooseRight})
	if c.Digest == a.Digest {
		t.Error("digest should depend on options")
	}
}

func TestContextIsolatedFromEdits(t *testing.T) {
	g, _ := grid.ParseString("67\n")
	ectx, _ := NewExecutionContext(g, nil)
	g.Set(0, 1, grid.Black)
	p, err := Compile(ectx, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if p.Instructions[0].Op != OpAdd {
		t.Errorf("edit leaked into context: first op %s", p.Instructions[0].Op)
	}
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	p := compileString(t, "000006h\n#####hh\n", Options{})
	out := p.DisassembleWithName("push")
	for _, want := range []string{"; === push ===", "; Grid: 7x2", "0000  PUSH     5", "OUT_NUM", "END"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}
