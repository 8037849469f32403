package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustParse(t *testing.T, src string) *grid.Grid {
	t.Helper()
	g, err := grid.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	return g
}

// ---------------------------------------------------------------------------
// Program library
// ---------------------------------------------------------------------------

func TestSaveAndLoadProgram(t *testing.T) {
	s := openTemp(t)
	g := mustParse(t, "01.\n#hj\n")

	id, err := s.SaveProgram("hello", g)
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	if id == "" {
		t.Fatal("SaveProgram returned an empty id")
	}

	got, err := s.LoadProgram("hello")
	if err != nil {
		t.Fatalf("LoadProgram returned error: %v", err)
	}
	if got.Format() != g.Format() {
		t.Errorf("loaded grid = %q, want %q", got.Format(), g.Format())
	}
}

func TestSaveProgramKeepsID(t *testing.T) {
	s := openTemp(t)
	id1, err := s.SaveProgram("p", mustParse(t, "01"))
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	id2, err := s.SaveProgram("p", mustParse(t, "234\n567"))
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("id changed on overwrite: %s -> %s", id1, id2)
	}

	g, _ := s.LoadProgram("p")
	if g.Width != 3 || g.Height != 2 {
		t.Errorf("overwritten grid is %dx%d, want 3x2", g.Width, g.Height)
	}
}

func TestSaveProgramRejectsEmptyName(t *testing.T) {
	s := openTemp(t)
	if _, err := s.SaveProgram("  ", mustParse(t, "0")); err == nil {
		t.Error("SaveProgram with empty name should fail")
	}
}

func TestLoadProgramNotFound(t *testing.T) {
	s := openTemp(t)
	if _, err := s.LoadProgram("missing"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("LoadProgram(missing) = %v, want ErrProgramNotFound", err)
	}
}

func TestListAndDeletePrograms(t *testing.T) {
	s := openTemp(t)
	s.SaveProgram("beta", mustParse(t, "01"))
	s.SaveProgram("alpha", mustParse(t, "0\n1"))

	list, err := s.ListPrograms()
	if err != nil {
		t.Fatalf("ListPrograms returned error: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Fatalf("ListPrograms() = %+v", list)
	}
	if list[0].Width != 1 || list[0].Height != 2 {
		t.Errorf("alpha is %dx%d, want 1x2", list[0].Width, list[0].Height)
	}

	if err := s.DeleteProgram("alpha"); err != nil {
		t.Fatalf("DeleteProgram returned error: %v", err)
	}
	if err := s.DeleteProgram("alpha"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("second DeleteProgram = %v, want ErrProgramNotFound", err)
	}
	list, _ = s.ListPrograms()
	if len(list) != 1 {
		t.Errorf("after delete ListPrograms() has %d entries", len(list))
	}
}

// ---------------------------------------------------------------------------
// Compiled cache
// ---------------------------------------------------------------------------

func TestCacheProgramRoundTrip(t *testing.T) {
	s := openTemp(t)
	g := mustParse(t, "000006")
	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		t.Fatalf("NewExecutionContext returned error: %v", err)
	}
	prog, err := compiler.Compile(ectx, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	if _, ok, err := s.CachedProgram(prog.Digest); ok || err != nil {
		t.Fatalf("CachedProgram before caching = %v, %v", ok, err)
	}
	if err := s.CacheProgram(prog); err != nil {
		t.Fatalf("CacheProgram returned error: %v", err)
	}
	got, ok, err := s.CachedProgram(prog.Digest)
	if err != nil || !ok {
		t.Fatalf("CachedProgram = %v, %v", ok, err)
	}
	if got.Len() != prog.Len() || got.Digest != prog.Digest {
		t.Errorf("cached program differs: %d instructions, digest %s", got.Len(), got.DigestString())
	}
	if got.Instructions[0].Op != compiler.OpPush || got.Instructions[0].Operand != 5 {
		t.Errorf("first instruction = %s %d", got.Instructions[0].Op, got.Instructions[0].Operand)
	}
}

func TestCompileUsesCache(t *testing.T) {
	s := openTemp(t)
	g := mustParse(t, "67")

	first, err := s.Compile(g, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if _, ok, _ := s.CachedProgram(first.Digest); !ok {
		t.Fatal("Compile did not cache the program")
	}
	second, err := s.Compile(g, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if second.Len() != first.Len() {
		t.Errorf("cached compile has %d instructions, want %d", second.Len(), first.Len())
	}

	other, _ := s.Compile(g, compiler.Options{MaxTransitions: 3})
	if other.Digest == first.Digest {
		t.Error("different options should give a different digest")
	}
}
