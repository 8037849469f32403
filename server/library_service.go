package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/codel/store"
)

// LibraryService implements /codel.v1.LibraryService over the engine's
// store.
type LibraryService struct {
	worker *EngineWorker
}

// NewLibraryService creates a LibraryService.
func NewLibraryService(worker *EngineWorker) *LibraryService {
	return &LibraryService{worker: worker}
}

func libraryError(err error) error {
	if errors.Is(err, store.ErrProgramNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	log.Errorf("library: %v", err)
	return connect.NewError(connect.CodeInternal, err)
}

// Save stores a grid under a name.
func (s *LibraryService) Save(
	ctx context.Context,
	req *connect.Request[SaveRequest],
) (*connect.Response[SaveResponse], error) {
	if strings.TrimSpace(req.Msg.Name) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	g, err := req.Msg.grid()
	if err != nil {
		return nil, invalidGrid(err)
	}

	resp, err := onEngine(s.worker, func(e *Engine) (*SaveResponse, error) {
		id, err := e.Store.SaveProgram(req.Msg.Name, g)
		if err != nil {
			return nil, libraryError(err)
		}
		return &SaveResponse{ID: id}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Load returns a stored grid.
func (s *LibraryService) Load(
	ctx context.Context,
	req *connect.Request[LoadRequest],
) (*connect.Response[LoadResponse], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*LoadResponse, error) {
		g, err := e.Store.LoadProgram(req.Msg.Name)
		if err != nil {
			return nil, libraryError(err)
		}
		return &LoadResponse{Rows: g.Rows(), Source: g.Format()}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// List returns every stored program.
func (s *LibraryService) List(
	ctx context.Context,
	req *connect.Request[ListRequest],
) (*connect.Response[ListResponse], error) {
	resp, err := onEngine(s.worker, func(e *Engine) (*ListResponse, error) {
		programs, err := e.Store.ListPrograms()
		if err != nil {
			return nil, libraryError(err)
		}
		if programs == nil {
			programs = []store.ProgramInfo{}
		}
		return &ListResponse{Programs: programs}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}
