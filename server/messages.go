package server

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/store"
	"github.com/chazu/codel/vm"
)

// jsonCodec carries the plain request and response structs below over
// Connect. It replaces Connect's protobuf-JSON codec under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ---------------------------------------------------------------------------
// Shared shapes
// ---------------------------------------------------------------------------

// GridSource names a grid either as palette-index rows or in the text
// format. Rows wins when both are set.
type GridSource struct {
	Rows   [][]int `json:"rows,omitempty"`
	Source string  `json:"source,omitempty"`
}

func (s GridSource) grid() (*grid.Grid, error) {
	if len(s.Rows) > 0 {
		return grid.FromRows(s.Rows)
	}
	if s.Source != "" {
		return grid.ParseString(s.Source)
	}
	return nil, grid.ErrEmptyGrid
}

// StartOptions selects the start codel and pointers. DP and CC are names
// ("right", "left"); empty means the default.
type StartOptions struct {
	StartRow       int    `json:"startRow,omitempty"`
	StartCol       int    `json:"startCol,omitempty"`
	DP             string `json:"dp,omitempty"`
	CC             string `json:"cc,omitempty"`
	MaxTransitions int    `json:"maxTransitions,omitempty"`
}

func (o StartOptions) compileOptions() (compiler.Options, error) {
	opts := compiler.Options{
		StartRow:       o.StartRow,
		StartCol:       o.StartCol,
		MaxTransitions: o.MaxTransitions,
	}
	if o.DP != "" {
		dp, err := grid.ParseDirection(o.DP)
		if err != nil {
			return opts, err
		}
		opts.DP = dp
	}
	if o.CC != "" {
		cc, err := grid.ParseChooser(o.CC)
		if err != nil {
			return opts, err
		}
		opts.CC = cc
	}
	if opts.MaxTransitions < 0 {
		return opts, fmt.Errorf("maxTransitions must not be negative")
	}
	return opts, nil
}

// InstructionView is an Instruction with names instead of codes.
type InstructionView struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Operand int64  `json:"operand,omitempty"`
	Targets []int  `json:"targets,omitempty"`
	Block   int    `json:"block"`
	Dest    int    `json:"dest"`
	DP      string `json:"dp"`
	CC      string `json:"cc"`
}

func instructionViews(p *compiler.Program) []InstructionView {
	out := make([]InstructionView, len(p.Instructions))
	for i, in := range p.Instructions {
		out[i] = InstructionView{
			Index:   i,
			Op:      in.Op.String(),
			Operand: in.Operand,
			Targets: in.Targets,
			Block:   in.Block,
			Dest:    in.Dest,
			DP:      in.DP.String(),
			CC:      in.CC.String(),
		}
	}
	return out
}

// SnapshotView is a vm.Snapshot with names instead of codes.
type SnapshotView struct {
	PC      int     `json:"pc"`
	Block   int     `json:"block"`
	Op      string  `json:"op"`
	Operand int64   `json:"operand,omitempty"`
	Stack   []int64 `json:"stack"`
	DP      string  `json:"dp"`
	CC      string  `json:"cc"`
	Output  string  `json:"output,omitempty"`
	Error   string  `json:"error,omitempty"`
	Fatal   bool    `json:"fatal,omitempty"`
}

func snapshotView(s vm.Snapshot) SnapshotView {
	v := SnapshotView{
		PC:      s.PC,
		Block:   s.Block,
		Op:      s.Op.String(),
		Operand: s.Operand,
		Stack:   s.Stack,
		DP:      s.DP.String(),
		CC:      s.CC.String(),
		Output:  s.Output,
		Fatal:   s.Fatal,
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

// StateView is a vm.SessionState with names instead of codes.
type StateView struct {
	Running     bool    `json:"running"`
	Done        bool    `json:"done"`
	PC          int     `json:"pc"`
	Block       int     `json:"block"`
	NextBlock   int     `json:"nextBlock"`
	DP          string  `json:"dp"`
	CC          string  `json:"cc"`
	Stack       []int64 `json:"stack"`
	Output      string  `json:"output"`
	Steps       int     `json:"steps"`
	Errors      int     `json:"errors"`
	LastError   string  `json:"lastError,omitempty"`
	Breakpoints []int   `json:"breakpoints"`
}

func stateView(s vm.SessionState) StateView {
	return StateView{
		Running:     s.Running,
		Done:        s.Done,
		PC:          s.PC,
		Block:       s.Block,
		NextBlock:   s.NextBlock,
		DP:          s.DP.String(),
		CC:          s.CC.String(),
		Stack:       s.Stack,
		Output:      s.Output,
		Steps:       s.Steps,
		Errors:      s.Errors,
		LastError:   s.LastErr,
		Breakpoints: s.Breakpoints,
	}
}

// ---------------------------------------------------------------------------
// CompileService
// ---------------------------------------------------------------------------

type CompileRequest struct {
	GridSource
	StartOptions
}

type CompileResponse struct {
	Instructions []InstructionView `json:"instructions"`
	Blocks       [][]int           `json:"blocks"`
	Disassembly  string            `json:"disassembly"`
	Digest       string            `json:"digest"`
	Complete     bool              `json:"complete"`
	Timeouts     int               `json:"timeouts,omitempty"`
	Trapped      int               `json:"trapped,omitempty"`
}

// ---------------------------------------------------------------------------
// DebugService
// ---------------------------------------------------------------------------

type CreateSessionRequest struct {
	Name string `json:"name,omitempty"`
	GridSource
	StartOptions
	Input     string `json:"input,omitempty"`
	Interpret bool   `json:"interpret,omitempty"`
}

type CreateSessionResponse struct {
	SessionID   string  `json:"sessionId"`
	Blocks      [][]int `json:"blocks"`
	Disassembly string  `json:"disassembly,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type DestroySessionResponse struct{}

type StepResponse struct {
	Snapshot *SnapshotView `json:"snapshot,omitempty"`
	State    StateView     `json:"state"`
}

type ContinueRequest struct {
	SessionID string `json:"sessionId"`
	MaxSteps  int    `json:"maxSteps,omitempty"`
}

type ContinueResponse struct {
	Snapshots []SnapshotView `json:"snapshots"`
	Reason    string         `json:"reason"`
	State     StateView      `json:"state"`
}

// SetBreakpointsRequest replaces the session's breakpoints. Blocks are
// block labels; Cells are (row, col) pairs resolved to their blocks.
type SetBreakpointsRequest struct {
	SessionID string   `json:"sessionId"`
	Blocks    []int    `json:"blocks,omitempty"`
	Cells     [][2]int `json:"cells,omitempty"`
}

type SetBreakpointsResponse struct {
	Breakpoints []int `json:"breakpoints"`
}

type PaintRequest struct {
	SessionID string `json:"sessionId"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	Colour    int    `json:"colour"`
}

type PaintResponse struct {
	Changed     int       `json:"changed"`
	Blocks      [][]int   `json:"blocks"`
	Disassembly string    `json:"disassembly,omitempty"`
	State       StateView `json:"state"`
}

// ---------------------------------------------------------------------------
// LibraryService
// ---------------------------------------------------------------------------

type SaveRequest struct {
	Name string `json:"name"`
	GridSource
}

type SaveResponse struct {
	ID string `json:"id"`
}

type LoadRequest struct {
	Name string `json:"name"`
}

type LoadResponse struct {
	Rows   [][]int `json:"rows"`
	Source string  `json:"source"`
}

type ListRequest struct{}

type ListResponse struct {
	Programs []store.ProgramInfo `json:"programs"`
}
