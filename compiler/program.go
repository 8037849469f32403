package compiler

import (
	"encoding/hex"

	"github.com/chazu/codel/grid"
)

// Instruction is one compiled step. Commands carry the block they were
// issued from; markers carry the block the walker was in when the marker
// was recorded.
type Instruction struct {
	Op      Opcode         `cbor:"1,keyasint" json:"op"`
	Operand int64          `cbor:"2,keyasint,omitempty" json:"operand,omitempty"`
	Targets []int          `cbor:"3,keyasint,omitempty" json:"targets,omitempty"` // branch / jump destinations
	Block   int            `cbor:"4,keyasint" json:"block"`                       // originating block, -1 in white
	Dest    int            `cbor:"5,keyasint" json:"dest"`                        // block entered, -1 if none
	DP      grid.Direction `cbor:"6,keyasint" json:"dp"`                          // DP in effect when compiled
	CC      grid.Chooser   `cbor:"7,keyasint" json:"cc"`                          // CC in effect when compiled
}

// Target returns the destination a branch takes for the DP or CC that
// results from executing it.
func (in *Instruction) Target(dp grid.Direction, cc grid.Chooser) int {
	switch in.Op {
	case OpPointer:
		return in.Targets[dp]
	case OpSwitch:
		return in.Targets[cc]
	case OpJump, OpLoop:
		return in.Targets[0]
	}
	return -1
}

// Program is an immutable compiled instruction sequence together with the
// dimensions and digest of the grid it came from.
type Program struct {
	Instructions []Instruction `cbor:"1,keyasint" json:"instructions"`
	Width        int           `cbor:"2,keyasint" json:"width"`
	Height       int           `cbor:"3,keyasint" json:"height"`
	Digest       [32]byte      `cbor:"4,keyasint" json:"-"`
	Timeouts     int           `cbor:"5,keyasint,omitempty" json:"timeouts,omitempty"`
	Trapped      int           `cbor:"6,keyasint,omitempty" json:"trapped,omitempty"`
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// DigestString returns the digest as lowercase hex.
func (p *Program) DigestString() string {
	return hex.EncodeToString(p.Digest[:])
}

// Complete reports whether every path reached a natural end: no TIMEOUT or
// TRAPPED markers were emitted.
func (p *Program) Complete() bool {
	return p.Timeouts == 0 && p.Trapped == 0
}

// Commands returns the non-marker instructions in program order.
func (p *Program) Commands() []Instruction {
	var out []Instruction
	for _, in := range p.Instructions {
		if !in.Op.IsMarker() {
			out = append(out, in)
		}
	}
	return out
}
