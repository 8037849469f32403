package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// engineOutcome carries a handler result and its error out of the worker.
type engineOutcome[T any] struct {
	value T
	err   error
}

// onEngine runs fn on the worker goroutine. Worker failures (panics) are
// reported as internal errors; fn's own error is returned unchanged.
func onEngine[T any](w *EngineWorker, fn func(*Engine) (T, error)) (T, error) {
	res, err := w.Do(func(e *Engine) interface{} {
		v, err := fn(e)
		return engineOutcome[T]{value: v, err: err}
	})
	if err != nil {
		var zero T
		return zero, connect.NewError(connect.CodeInternal, err)
	}
	out := res.(engineOutcome[T])
	return out.value, out.err
}

// invalidGrid maps grid and compile input errors to InvalidArgument and
// everything else to Internal.
func invalidGrid(err error) error {
	var perr *grid.ParseError
	switch {
	case errors.As(err, &perr),
		errors.Is(err, grid.ErrEmptyGrid),
		errors.Is(err, grid.ErrRagged),
		errors.Is(err, grid.ErrColour),
		errors.Is(err, compiler.ErrStartOutOfBounds):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	log.Errorf("engine: %v", err)
	return connect.NewError(connect.CodeInternal, err)
}

// CompileService implements /codel.v1.CompileService.
type CompileService struct {
	worker *EngineWorker
}

// NewCompileService creates a CompileService.
func NewCompileService(worker *EngineWorker) *CompileService {
	return &CompileService{worker: worker}
}

// Compile compiles a grid and returns its instructions, block labels and
// disassembly.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	g, err := req.Msg.grid()
	if err != nil {
		return nil, invalidGrid(err)
	}
	opts, err := req.Msg.compileOptions()
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp, err := onEngine(s.worker, func(e *Engine) (*CompileResponse, error) {
		prog, ectx, err := e.Compile(g, opts)
		if err != nil {
			return nil, invalidGrid(err)
		}
		return &CompileResponse{
			Instructions: instructionViews(prog),
			Blocks:       ectx.Blocks.LabelMap(),
			Disassembly:  prog.Disassemble(),
			Digest:       prog.DigestString(),
			Complete:     prog.Complete(),
			Timeouts:     prog.Timeouts,
			Trapped:      prog.Trapped,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}
