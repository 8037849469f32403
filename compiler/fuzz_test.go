package compiler

import (
	"testing"

	"github.com/chazu/codel/grid"
)

// ---------------------------------------------------------------------------
// FuzzUnmarshalProgram: the program reader must never panic, and every
// program it accepts must be safe to branch through.
// ---------------------------------------------------------------------------

func FuzzUnmarshalProgram(f *testing.F) {
	for _, src := range []string{
		"000006h\n#####hh\n",
		"67\n",
		"09\n",
		"0.1\n...\n#2#\n",
	} {
		g, err := grid.ParseString(src)
		if err != nil {
			f.Fatalf("ParseString returned error: %v", err)
		}
		ectx, err := NewExecutionContext(g, nil)
		if err != nil {
			f.Fatalf("NewExecutionContext returned error: %v", err)
		}
		p, err := Compile(ectx, Options{})
		if err != nil {
			f.Fatalf("Compile returned error: %v", err)
		}
		data, err := MarshalProgram(p)
		if err != nil {
			f.Fatalf("MarshalProgram returned error: %v", err)
		}
		f.Add(data)
	}
	f.Add([]byte{})
	f.Add([]byte{0xff, 0x00})
	f.Add([]byte{0xa1, 0x01, 0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("UnmarshalProgram panicked on %x: %v", data, r)
			}
		}()

		p, err := UnmarshalProgram(data)
		if err != nil {
			return
		}
		n := len(p.Instructions)
		for i := range p.Instructions {
			in := &p.Instructions[i]
			if in.Target(in.DP, in.CC) >= n {
				t.Fatalf("instruction %d targets past the end", i)
			}
			for dp := grid.Right; dp <= grid.Up; dp++ {
				for _, cc := range []grid.Chooser{grid.ChooseLeft, grid.ChooseRight} {
					if in.Target(dp, cc) >= n {
						t.Fatalf("instruction %d targets past the end", i)
					}
				}
			}
		}
		_ = p.Disassemble()
	})
}
