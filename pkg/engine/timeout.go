package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chazu/relief/pkg/graph"
	"github.com/chazu/relief/pkg/logging"
	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout bounds a single evaluation unless WithTimeout says otherwise.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a program runs past the engine's timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to an evaluation that finished after a
	// newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets how long one program may run. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// evalResult carries one evaluation's output from its goroutine.
type evalResult struct {
	graph  *graph.DesignGraph
	errors []EvalError
	err    error
}

// watchdog belongs to one evaluation. zygomys cannot be interrupted from
// outside, so once the watchdog fires every relief builtin the abandoned
// program calls fails with ErrTimeout. A runaway loop that keeps building
// solids, patterns or textures stops at its next builtin call.
type watchdog struct {
	limit time.Duration
	fired atomic.Bool
}

func newWatchdog(limit time.Duration) *watchdog {
	return &watchdog{limit: limit}
}

func (w *watchdog) guard(fn zygo.ZlispUserFunction) zygo.ZlispUserFunction {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if w.fired.Load() {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		return fn(env, name, args)
	}
}

// registrar installs builtins behind a watchdog.
type registrar struct {
	env *zygo.Zlisp
	wd  *watchdog
}

func (r registrar) AddFunction(name string, fn zygo.ZlispUserFunction) {
	r.env.AddFunction(name, r.wd.guard(fn))
}

// wait returns the result from ch unless the watchdog's limit passes first
// or a newer evaluation (a higher generation) has started meanwhile.
func (e *Engine) wait(ch <-chan evalResult, gen uint64, wd *watchdog) (*graph.DesignGraph, []EvalError, error) {
	timer := time.NewTimer(wd.limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			logging.Logger().Debug("discarding stale evaluation", "generation", gen, "current", current)
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err

	case <-timer.C:
		wd.fired.Store(true)
		logging.Logger().Warn("evaluation timed out", "limit", wd.limit, "generation", gen)
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, wd.limit)
	}
}
