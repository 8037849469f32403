package grid

import "testing"

func newWalker(t *testing.T, src string, row, col int) *Walker {
	t.Helper()
	g := mustParse(t, src)
	return NewWalker(g, Analyze(g), row, col, Right, ChooseLeft)
}

func TestWalkerBouncesOut(t *testing.T) {
	w := newWalker(t, "00#\n00#\n###\n", 0, 0)

	want := []MoveKind{
		MoveToggle, MoveRotate, MoveToggle, MoveRotate,
		MoveToggle, MoveRotate, MoveToggle, MoveRotate,
		MoveHalt,
	}
	for i, k := range want {
		m := w.Next()
		if m.Kind != k {
			t.Fatalf("move %d = %v, want %v", i, m.Kind, k)
		}
	}
	if !w.Done() {
		t.Error("walker should be done after eight bounces")
	}
	if dp, cc := w.Pointers(); dp != Right || cc != ChooseLeft {
		t.Errorf("pointers after full cycle = %v/%v, want right/left", dp, cc)
	}
}

func TestWalkerEnter(t *testing.T) {
	w := newWalker(t, "0061\n0061\n", 0, 0)
	m := w.Next()
	if m.Kind != MoveEnter {
		t.Fatalf("move = %v, want enter", m.Kind)
	}
	if m.From != LightRed || m.To != Red || m.ExitSize != 4 {
		t.Errorf("enter = %v->%v size %d", m.From, m.To, m.ExitSize)
	}
	if m.Row != 0 || m.Col != 2 {
		t.Errorf("position = (%d,%d), want (0,2)", m.Row, m.Col)
	}
	if m.FromBlock != 0 || m.Block != 1 {
		t.Errorf("blocks = %d->%d, want 0->1", m.FromBlock, m.Block)
	}
	if w.Bounces() != 0 {
		t.Errorf("Bounces() = %d after a move", w.Bounces())
	}
}

func TestWalkerSlide(t *testing.T) {
	w := newWalker(t, "0..1\n", 0, 0)
	m := w.Next()
	if m.Kind != MoveSlide {
		t.Fatalf("move = %v, want slide", m.Kind)
	}
	if m.Col != 3 || m.Block != 2 {
		t.Errorf("landed at col %d block %d, want col 3 block 2", m.Col, m.Block)
	}
}

func TestWalkerSlideRecovery(t *testing.T) {
	// Sliding right hits the edge; recovery turns down into colour 1.
	w := newWalker(t, "0..\n##1\n", 0, 0)

	if m := w.Next(); m.Kind != MoveToggle || !m.Recovery || m.Block != -1 {
		t.Fatalf("first move = %+v, want recovery toggle in white", m)
	}
	if m := w.Next(); m.Kind != MoveRotate || !m.Recovery || m.DP != Down {
		t.Fatalf("second move = %+v, want recovery rotate to down", m)
	}
	m := w.Next()
	if m.Kind != MoveSlide || m.Row != 1 || m.Col != 2 {
		t.Fatalf("third move = %+v, want slide to (1,2)", m)
	}
}

func TestWalkerTrappedInWhite(t *testing.T) {
	w := newWalker(t, "..\n..\n", 0, 0)
	for i := 0; i < 100; i++ {
		m := w.Next()
		if m.Kind == MoveTrapped {
			if !w.Done() {
				t.Error("trapped walker should be done")
			}
			return
		}
		if m.Kind == MoveHalt || m.Kind == MoveEnter || m.Kind == MoveSlide {
			t.Fatalf("unexpected %v in an all-white grid", m.Kind)
		}
	}
	t.Fatal("walker never detected the trap")
}

func TestWalkerStartOnBlack(t *testing.T) {
	w := newWalker(t, "#0\n", 0, 0)
	if !w.Done() {
		t.Fatal("walker on black should start done")
	}
	if m := w.Next(); m.Kind != MoveHalt {
		t.Errorf("move = %v, want halt", m.Kind)
	}
}

func TestWalkerSetPointers(t *testing.T) {
	w := newWalker(t, "1\n0\n", 0, 0)
	w.SetPointers(Down, ChooseRight)
	m := w.Next()
	if m.Kind != MoveEnter || m.Row != 1 {
		t.Errorf("move = %+v, want enter downwards", m)
	}
}
