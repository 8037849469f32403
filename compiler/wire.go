package compiler

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/codel/grid"
)

// ErrBadProgram is returned when a decoded program fails validation.
var ErrBadProgram = errors.New("malformed program")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a Program to canonical CBOR.
func MarshalProgram(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalProgram deserializes a Program from CBOR and validates it.
func UnmarshalProgram(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("compiler: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks opcodes, pointer values, target arity and target range.
func (p *Program) Validate() error {
	n := len(p.Instructions)
	for i, in := range p.Instructions {
		if _, ok := opcodeInfoTable[in.Op]; !ok {
			return fmt.Errorf("%w: unknown opcode 0x%02X at %d", ErrBadProgram, byte(in.Op), i)
		}
		if in.DP < grid.Right || in.DP > grid.Up {
			return fmt.Errorf("%w: %s at %d has DP %d", ErrBadProgram, in.Op, i, int(in.DP))
		}
		if in.CC != grid.ChooseLeft && in.CC != grid.ChooseRight {
			return fmt.Errorf("%w: %s at %d has CC %d", ErrBadProgram, in.Op, i, int(in.CC))
		}
		want := 0
		switch in.Op {
		case OpPointer:
			want = 4
		case OpSwitch:
			want = 2
		case OpJump, OpLoop:
			want = 1
		}
		if len(in.Targets) != want {
			return fmt.Errorf("%w: %s at %d has %d targets, want %d", ErrBadProgram, in.Op, i, len(in.Targets), want)
		}
		for _, t := range in.Targets {
			if t < 0 || t >= n {
				return fmt.Errorf("%w: %s at %d targets %d", ErrBadProgram, in.Op, i, t)
			}
		}
	}
	return nil
}

// digestInput is the canonical form hashed by Digest.
type digestInput struct {
	Rows           [][]int        `cbor:"1,keyasint"`
	StartRow       int            `cbor:"2,keyasint"`
	StartCol       int            `cbor:"3,keyasint"`
	DP             grid.Direction `cbor:"4,keyasint"`
	CC             grid.Chooser   `cbor:"5,keyasint"`
	MaxTransitions int            `cbor:"6,keyasint"`
}

// Digest identifies a grid together with the options it is compiled with.
// Equal digests compile to equal programs.
func Digest(g *grid.Grid, opts Options) [32]byte {
	opts = opts.withDefaults()
	data, err := cborEncMode.Marshal(digestInput{
		Rows:           g.Rows(),
		StartRow:       opts.StartRow,
		StartCol:       opts.StartCol,
		DP:             opts.DP,
		CC:             opts.CC,
		MaxTransitions: opts.MaxTransitions,
	})
	if err != nil {
		panic(fmt.Sprintf("compiler: digest encoding failed: %v", err))
	}
	return sha256.Sum256(data)
}
