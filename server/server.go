// Package server exposes compilation, debug sessions and the program
// library over Connect (HTTP/JSON), and grid diagnostics over LSP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/codel/store"
)

var log = commonlog.GetLogger("codel.server")

// Procedure paths.
const (
	CompileProcedure = "/codel.v1.CompileService/Compile"

	CreateSessionProcedure  = "/codel.v1.DebugService/CreateSession"
	DestroySessionProcedure = "/codel.v1.DebugService/DestroySession"
	StepProcedure           = "/codel.v1.DebugService/Step"
	ContinueProcedure       = "/codel.v1.DebugService/Continue"
	StopProcedure           = "/codel.v1.DebugService/Stop"
	SetBreakpointsProcedure = "/codel.v1.DebugService/SetBreakpoints"
	PaintProcedure          = "/codel.v1.DebugService/Paint"
	StateProcedure          = "/codel.v1.DebugService/State"

	SaveProcedure = "/codel.v1.LibraryService/Save"
	LoadProcedure = "/codel.v1.LibraryService/Load"
	ListProcedure = "/codel.v1.LibraryService/List"
)

// CodelServer serves the Connect services on one mux.
type CodelServer struct {
	worker   *EngineWorker
	sessions *SessionStore
	mux      *http.ServeMux

	stopSweeper func()
}

// ServerOption configures a CodelServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store         *store.Store
	maxSteps      int
	sessionTTL    time.Duration
	sweepInterval time.Duration
}

// WithStore enables the program library and the compiled-program cache.
func WithStore(s *store.Store) ServerOption {
	return func(c *serverConfig) { c.store = s }
}

// WithMaxSteps caps the steps one Continue call may take.
func WithMaxSteps(n int) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithSessionTTL sets how long an unused debug session is kept.
func WithSessionTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) { c.sessionTTL = ttl }
}

// New creates a CodelServer.
func New(opts ...ServerOption) *CodelServer {
	cfg := &serverConfig{
		maxSteps:   100000,
		sessionTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sweepInterval == 0 {
		cfg.sweepInterval = cfg.sessionTTL / 6
		if cfg.sweepInterval < time.Second {
			cfg.sweepInterval = time.Second
		}
	}

	worker := NewEngineWorker(&Engine{Store: cfg.store, MaxSteps: cfg.maxSteps})
	sessions := NewSessionStore()

	s := &CodelServer{
		worker:   worker,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}

	compileSvc := NewCompileService(worker)
	handle(s.mux, CompileProcedure, compileSvc.Compile)

	debugSvc := NewDebugService(worker, sessions)
	handle(s.mux, CreateSessionProcedure, debugSvc.CreateSession)
	handle(s.mux, DestroySessionProcedure, debugSvc.DestroySession)
	handle(s.mux, StepProcedure, debugSvc.Step)
	handle(s.mux, ContinueProcedure, debugSvc.Continue)
	handle(s.mux, StopProcedure, debugSvc.Stop)
	handle(s.mux, SetBreakpointsProcedure, debugSvc.SetBreakpoints)
	handle(s.mux, PaintProcedure, debugSvc.Paint)
	handle(s.mux, StateProcedure, debugSvc.State)

	if cfg.store != nil {
		librarySvc := NewLibraryService(worker)
		handle(s.mux, SaveProcedure, librarySvc.Save)
		handle(s.mux, LoadProcedure, librarySvc.Load)
		handle(s.mux, ListProcedure, librarySvc.List)
	}

	s.stopSweeper = sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)
	return s
}

// handle registers a unary Connect handler using the JSON codec.
func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, connect.WithCodec(jsonCodec{})))
}

// Handler returns the HTTP handler serving every registered procedure.
func (s *CodelServer) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *CodelServer) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *CodelServer) ListenAndServe(addr string) error {
	fmt.Printf("codel server listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP/JSON): http://%s%s\n", addr, CompileProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server.
func (s *CodelServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
