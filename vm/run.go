package vm

import (
	"context"
	"fmt"
	"strings"
)

// Result summarises a run driven by Run.
type Result struct {
	Steps  int
	Errors int // recoverable runtime errors
	Output string
	Stack  []int64
}

// Run drives s until it finishes, maxSteps snapshots have been taken or
// ctx is done. maxSteps <= 0 means no limit. fn, when non-nil, observes
// every snapshot.
//
// The returned error is ctx's error, ErrStepLimit, or the error that ended
// the run (ErrOverflow, ErrIncomplete, ErrTrapped). Recoverable errors are
// only counted.
func Run(ctx context.Context, s Stepper, maxSteps int, fn func(Snapshot)) (Result, error) {
	var res Result
	var out strings.Builder
	finish := func(err error) (Result, error) {
		res.Output = out.String()
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if maxSteps > 0 && res.Steps >= maxSteps {
			return finish(fmt.Errorf("%w after %d steps", ErrStepLimit, res.Steps))
		}

		snap, ok := s.Step()
		if !ok {
			return finish(nil)
		}
		res.Steps++
		res.Stack = snap.Stack
		out.WriteString(snap.Output)
		if fn != nil {
			fn(snap)
		}

		if snap.Err != nil {
			if snap.Fatal || s.Done() {
				return finish(snap.Err)
			}
			res.Errors++
		}
	}
}
