package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/store"
)

// Engine is the state owned by the worker goroutine: the optional program
// library and the run limits handlers apply.
type Engine struct {
	Store    *store.Store
	MaxSteps int
}

// Compile compiles g, going through the store's cache when one is
// configured.
func (e *Engine) Compile(g *grid.Grid, opts compiler.Options) (*compiler.Program, *compiler.ExecutionContext, error) {
	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		return nil, nil, err
	}
	if e.Store != nil {
		prog, err := e.Store.Compile(ectx.Grid, opts)
		if err != nil {
			return nil, nil, err
		}
		return prog, ectx, nil
	}
	prog, err := compiler.Compile(ectx, opts)
	if err != nil {
		return nil, nil, err
	}
	return prog, ectx, nil
}

// ErrWorkerStopped is returned by Do once the worker has been stopped.
var ErrWorkerStopped = errors.New("engine worker stopped")

// engineRequest is a unit of work to be executed on the engine goroutine.
type engineRequest struct {
	fn   func(*Engine) interface{}
	done chan engineResult
}

type engineResult struct {
	value interface{}
	err   error
}

// EngineWorker serializes all engine access through a single goroutine.
// Debug sessions and the store are touched only from inside Do.
type EngineWorker struct {
	engine   *Engine
	requests chan engineRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewEngineWorker creates an EngineWorker and starts the processing
// goroutine.
func NewEngineWorker(e *Engine) *EngineWorker {
	w := &EngineWorker{
		engine:   e,
		requests: make(chan engineRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *EngineWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *EngineWorker) execute(fn func(*Engine) interface{}) engineResult {
	var result engineResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("engine panic: %v", r)
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.engine)
	}()
	return result
}

// Do submits fn for execution on the engine goroutine and blocks until it
// completes. A panic in fn is returned as an error; after Stop, Do returns
// ErrWorkerStopped.
func (w *EngineWorker) Do(fn func(*Engine) interface{}) (interface{}, error) {
	req := engineRequest{
		fn:   fn,
		done: make(chan engineResult, 1),
	}
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *EngineWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
