package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/vm"
)

// DebugService implements /codel.v1.DebugService. Every session operation
// runs on the engine worker.
type DebugService struct {
	worker   *EngineWorker
	sessions *SessionStore
}

// NewDebugService creates a DebugService.
func NewDebugService(worker *EngineWorker, sessions *SessionStore) *DebugService {
	return &DebugService{worker: worker, sessions: sessions}
}

func (s *DebugService) lookup(id string) (*vm.DebugSession, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("sessionId is required"))
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	return session.Debug, nil
}

// CreateSession loads a grid into a new debug session.
func (s *DebugService) CreateSession(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[CreateSessionResponse], error) {
	g, err := req.Msg.grid()
	if err != nil {
		return nil, invalidGrid(err)
	}
	opts, err := req.Msg.compileOptions()
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp, err := onEngine(s.worker, func(e *Engine) (*CreateSessionResponse, error) {
		d, err := vm.NewDebugSession(g, vm.SessionOptions{
			Compile:   opts,
			Interpret: req.Msg.Interpret,
			Input:     req.Msg.Input,
		})
		if err != nil {
			return nil, invalidGrid(err)
		}
		session := s.sessions.Create(req.Msg.Name, d)
		out := &CreateSessionResponse{
			SessionID: session.ID,
			Blocks:    d.Context().Blocks.LabelMap(),
		}
		if prog := d.Program(); prog != nil {
			out.Disassembly = prog.Disassemble()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// DestroySession discards a session.
func (s *DebugService) DestroySession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[DestroySessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("sessionId is required"))
	}
	_, err := onEngine(s.worker, func(e *Engine) (struct{}, error) {
		if !s.sessions.Destroy(req.Msg.SessionID) {
			return struct{}{}, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.SessionID))
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&DestroySessionResponse{}), nil
}

// Step executes one instruction.
func (s *DebugService) Step(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StepResponse], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*StepResponse, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		out := &StepResponse{}
		if snap, ok := d.Step(); ok {
			v := snapshotView(snap)
			out.Snapshot = &v
		}
		out.State = stateView(d.State())
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Continue runs until a breakpoint, the end of the program or the step
// limit. A request limit of zero uses the server's limit.
func (s *DebugService) Continue(
	ctx context.Context,
	req *connect.Request[ContinueRequest],
) (*connect.Response[ContinueResponse], error) {
	if req.Msg.MaxSteps < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("maxSteps must not be negative"))
	}
	resp, err := onEngine(s.worker, func(e *Engine) (*ContinueResponse, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		limit := req.Msg.MaxSteps
		if limit == 0 || (e.MaxSteps > 0 && limit > e.MaxSteps) {
			limit = e.MaxSteps
		}
		res, err := d.Continue(ctx, limit)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, connect.NewError(connect.CodeCanceled, err)
			}
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		out := &ContinueResponse{
			Snapshots: make([]SnapshotView, len(res.Snapshots)),
			Reason:    res.Reason.String(),
			State:     stateView(d.State()),
		}
		for i, snap := range res.Snapshots {
			out.Snapshots[i] = snapshotView(snap)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Stop resets the session's run. Breakpoints are kept.
func (s *DebugService) Stop(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StateView], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*StateView, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		d.Stop()
		st := stateView(d.State())
		return &st, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// State returns the session state without executing anything.
func (s *DebugService) State(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StateView], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*StateView, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		st := stateView(d.State())
		return &st, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// SetBreakpoints replaces the session's breakpoints. Nothing changes if any
// block or cell is invalid.
func (s *DebugService) SetBreakpoints(
	ctx context.Context,
	req *connect.Request[SetBreakpointsRequest],
) (*connect.Response[SetBreakpointsResponse], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*SetBreakpointsResponse, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		ectx := d.Context()
		blocks := append([]int(nil), req.Msg.Blocks...)
		for _, cell := range req.Msg.Cells {
			if !ectx.Grid.InBounds(cell[0], cell[1]) {
				return nil, connect.NewError(connect.CodeInvalidArgument,
					fmt.Errorf("no codel at (%d,%d)", cell[0], cell[1]))
			}
			blocks = append(blocks, ectx.Blocks.Label(cell[0], cell[1]))
		}
		for _, b := range blocks {
			if b < 0 || b >= ectx.Blocks.Count() {
				return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("no block %d", b))
			}
		}

		d.ClearAllBreakpoints()
		for _, b := range blocks {
			if err := d.SetBreakpoint(b); err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
		}
		return &SetBreakpointsResponse{Breakpoints: d.ListBreakpoints()}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Paint bucket-fills a region and reloads the session. The run is reset
// and breakpoints are cleared.
func (s *DebugService) Paint(
	ctx context.Context,
	req *connect.Request[PaintRequest],
) (*connect.Response[PaintResponse], error) {
	c := grid.Colour(req.Msg.Colour)
	if !c.Valid() {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %d", grid.ErrColour, req.Msg.Colour))
	}
	resp, err := onEngine(s.worker, func(e *Engine) (*PaintResponse, error) {
		d, err := s.lookup(req.Msg.SessionID)
		if err != nil {
			return nil, err
		}
		if !d.Context().Grid.InBounds(req.Msg.Row, req.Msg.Col) {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("no codel at (%d,%d)", req.Msg.Row, req.Msg.Col))
		}
		n, err := d.Paint(req.Msg.Row, req.Msg.Col, c)
		if err != nil {
			return nil, invalidGrid(err)
		}
		out := &PaintResponse{
			Changed: n,
			Blocks:  d.Context().Blocks.LabelMap(),
			State:   stateView(d.State()),
		}
		if prog := d.Program(); prog != nil {
			out.Disassembly = prog.Disassemble()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}
