package interp

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stepwise-dev/stepwise/ast"
)

// Runtime is component C8 (spec.md §2): the host-facing registry that
// creates Executions and hands back the ones it has created, so a host can
// enumerate or wait on every in-flight execution without threading its own
// bookkeeping alongside the evaluator.
type Runtime struct {
	id uuid.UUID

	// IsDebug gates the per-step trace emitted by Execution.Step (spec.md
	// §6, trace.go) — named as a plain exported field, not an accessor,
	// to match how host code is expected to flip it directly in tests.
	IsDebug bool

	mu         sync.Mutex
	executions map[uuid.UUID]*Execution

	dispatchMu  sync.Mutex
	dispatchQ   []func()
	dispatching bool
}

// NewRuntime allocates an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{id: uuid.New(), executions: map[uuid.UUID]*Execution{}}
}

// ID returns the runtime's unique identifier.
func (rt *Runtime) ID() uuid.UUID { return rt.id }

// Execute builds a new top-level Execution for program against rootScope
// (typically the result of WithGlobal) and registers it, but does not start
// driving it — callers choose Start, Wait, or manual Step calls (spec.md §6
// `runtime.execute(program, rootScope) → Execution`).
func (rt *Runtime) Execute(program *ast.Program, rootScope *Scope, desc string) *Execution {
	root := NewFrame(program, rootScope, RoleNone)
	ex := newExecutionWithSource(rt, root, desc, program.Source)
	rt.mu.Lock()
	rt.executions[ex.id] = ex
	rt.mu.Unlock()
	return ex
}

// Executions returns a snapshot of every execution this runtime has created
// (spec.md §6 "runtime.executions: the live set of Executions").
func (rt *Runtime) Executions() []*Execution {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*Execution, 0, len(rt.executions))
	for _, ex := range rt.executions {
		out = append(out, ex)
	}
	return out
}

// Execution looks up a registered execution by id.
func (rt *Runtime) Execution(id uuid.UUID) (*Execution, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ex, ok := rt.executions[id]
	return ex, ok
}

// dispatch runs fn serialized against every other call dispatched through
// this runtime, whichever goroutine enqueues it: the caller that finds the
// queue idle becomes the drainer and runs fn (and anything enqueued while it
// runs) inline; a caller that finds a drain already in progress just
// appends and returns, trusting the active drainer to reach it. This keeps
// two executions that share mutable state (e.g. a common root scope, spec.md
// §1 "run multiple concurrent executions side by side") from ever stepping
// concurrently just because their respective awaited promises happened to
// settle on two different timer goroutines — the same
// RegisterCallback/enqueueCallback hand-back-to-one-thread idiom the pack's
// grafana-k6 event loop (js/eventloop) uses for async work settling a
// promise off the main thread.
func (rt *Runtime) dispatch(fn func()) {
	rt.dispatchMu.Lock()
	rt.dispatchQ = append(rt.dispatchQ, fn)
	if rt.dispatching {
		rt.dispatchMu.Unlock()
		return
	}
	rt.dispatching = true
	rt.dispatchMu.Unlock()

	for {
		rt.dispatchMu.Lock()
		if len(rt.dispatchQ) == 0 {
			rt.dispatching = false
			rt.dispatchMu.Unlock()
			return
		}
		next := rt.dispatchQ[0]
		rt.dispatchQ = rt.dispatchQ[1:]
		rt.dispatchMu.Unlock()
		next()
	}
}

// WaitAll drives every registered execution to completion concurrently and
// returns the first error encountered, not counting an execution that
// ended in Abort (context cancellation aborts the rest), fanning the individual Execution.Wait() promises out through an
// errgroup rather than a hand-rolled WaitGroup (spec.md §5 "a host
// coordinating many concurrent executions").
func (rt *Runtime) WaitAll(ctx context.Context) error {
	execs := rt.Executions()
	g, ctx := errgroup.WithContext(ctx)
	for _, ex := range execs {
		ex := ex
		g.Go(func() error {
			p := ex.Wait()
			select {
			case <-ctx.Done():
				p.Abort()
				return ctx.Err()
			case <-p.settled:
				if err := p.Err(); err != nil && !IsAbort(err) {
					return err
				}
				return nil
			}
		})
	}
	return g.Wait()
}
