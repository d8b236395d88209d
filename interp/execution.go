package interp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/stepwise-dev/stepwise/ast"
)

// Execution is a live interpretation of one program, or of one async
// UserFunction call body (spec.md §3 "Execution"). It owns a Stack and,
// while parked at an await, the ObservablePromise it is waiting on.
type Execution struct {
	id      uuid.UUID
	desc    string
	runtime *Runtime

	// source is the program text this execution (or the program whose
	// function literal this call descends from) was parsed from; nil if
	// unknown. traceEnter slices it to produce the trace line's source
	// fragment (spec.md §6) and silently falls back to printing the node
	// type alone when it's absent.
	source []byte

	mu       sync.Mutex
	state    ExecutionState
	finished bool
	result   Value
	err      error
	done     chan struct{}

	// onFinish, if set, is invoked exactly once when the execution
	// terminates — the hook async UserFunction calls use to settle the
	// outer promise they hand back to their caller (spec.md §4.5).
	onFinish func(Value, error)

	waitOnce    sync.Once
	waitPromise *ObservablePromise
}

// newExecutionWithSource builds an execution rooted at a single frame (the
// program node, or a function call's "call" frame per spec.md §4.5). source
// is the program text backing traceEnter's source slicing, or nil if none
// is available (e.g. an execution built directly in a test).
func newExecutionWithSource(rt *Runtime, root *Frame, desc string, source []byte) *Execution {
	st := NewStack()
	st.Push(root)
	return &Execution{
		id:      uuid.New(),
		desc:    desc,
		runtime: rt,
		source:  source,
		state:   ExecutionState{stack: st},
		done:    make(chan struct{}),
	}
}

// ID returns the execution's unique identifier.
func (ex *Execution) ID() uuid.UUID { return ex.id }

// Desc returns the human-readable description supplied at creation.
func (ex *Execution) Desc() string { return ex.desc }

// State exposes the read-only observation surface of spec.md §6:
// `execution.state: {stack, awaitingPromise}`.
func (ex *Execution) State() *ExecutionState {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return &ex.state
}

// Done returns a channel closed once the execution has terminated, for a
// host that wants to select on many executions.
func (ex *Execution) Done() <-chan struct{} { return ex.done }

// Result returns the final captured value (meaningful only once Done() is
// closed and Err() is nil).
func (ex *Execution) Result() Value {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.result
}

// Err returns the terminal error, if the execution ended by an uncaught
// throw, an internal StateInvariantError, or an unswallowed Abort.
func (ex *Execution) Err() error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.err
}

func (ex *Execution) finish(value Value, err error) {
	ex.mu.Lock()
	if ex.finished {
		ex.mu.Unlock()
		return
	}
	ex.finished = true
	ex.result = value
	ex.err = err
	hook := ex.onFinish
	ex.mu.Unlock()
	close(ex.done)
	if hook != nil {
		hook(value, err)
	}
}

// Step performs exactly one unit of progress on the execution's top frame
// (spec.md §4.4 "the cooperative atom of execution"): push a child frame,
// pop the top frame with a value, or mutate its local index/subIndex/state
// — or, at an AwaitExpression, park by setting awaitingPromise.
//
// Step is non-reentrant (spec.md §5) and must not be called while the
// execution is parked at a still-pending await; callers driving an
// execution to completion should use Start or Wait instead, which only
// resume Step once any awaited promise has settled.
func (ex *Execution) Step() error {
	// Step mutates ex.state (the frame stack) directly without holding
	// ex.mu across the call: spec.md §5 already forbids a host from
	// driving one execution's Step from two goroutines at once, so the
	// stack itself only ever has one writer at a time. ex.mu exists to
	// protect the handful of fields (finished/result/err/onFinish) that
	// genuinely are read cross-goroutine (Done/Result/Err, and the other
	// end of an await's settlement callback).
	ex.mu.Lock()
	finished := ex.finished
	stackLen := ex.state.stack.Len()
	pending := ex.state.awaitingPromise
	ex.mu.Unlock()

	if finished {
		return &StateInvariantError{Detail: "step called on a terminated execution"}
	}
	if stackLen == 0 {
		return &StateInvariantError{Detail: "empty stack at step"}
	}
	if pending != nil && pending.State() == Pending {
		return &StateInvariantError{Detail: "step called while parked on a pending await"}
	}

	if ex.runtime != nil && ex.runtime.IsDebug {
		ex.traceEnter()
	}

	return ex.evalStep()
}

// Start begins pumping the execution cooperatively and returns
// immediately; completion (including any error) is discarded by the
// caller but still observable via Done/Err (spec.md §4.6).
func (ex *Execution) Start() {
	go ex.pump()
}

// Wait pumps the execution to completion cooperatively and returns a
// promise that resolves (with a nil value) when the stack empties, or
// rejects with the terminal error (spec.md §4.6, §6
// `execution.wait(): Promise<void>`).
func (ex *Execution) Wait() *ObservablePromise {
	ex.waitOnce.Do(func() {
		ex.waitPromise = NewObservablePromise(func(resolve func(Value), reject func(error)) {
			ex.mu.Lock()
			already := ex.finished
			err := ex.err
			if !already {
				ex.onFinish = chainFinish(ex.onFinish, func(v Value, e error) {
					if e != nil {
						reject(e)
						return
					}
					resolve(nil)
				})
			}
			ex.mu.Unlock()
			if already {
				if err != nil {
					reject(err)
				} else {
					resolve(nil)
				}
				return
			}
			ex.pump()
		})
	})
	return ex.waitPromise
}

// chainFinish composes two onFinish hooks so registering a second waiter
// (e.g. both Wait() and an async UserFunction's outer promise) never
// drops the first.
func chainFinish(existing, next func(Value, error)) func(Value, error) {
	if existing == nil {
		return next
	}
	return func(v Value, err error) {
		existing(v, err)
		next(v, err)
	}
}

// pump drives Step calls: synchronously while there is no pending await,
// and by re-entering itself from the awaited promise's settlement
// otherwise — so suspension is always promise-triggered, never a busy
// loop across an await (spec.md §4.6, §5).
func (ex *Execution) pump() {
	for {
		ex.mu.Lock()
		finished := ex.finished
		ex.mu.Unlock()
		if finished {
			return
		}

		err := ex.Step()
		if err != nil {
			ex.finish(nil, err)
			return
		}

		ex.mu.Lock()
		finished = ex.finished
		pending := ex.state.awaitingPromise
		ex.mu.Unlock()
		if finished {
			return
		}
		if pending != nil {
			pending.OnSettle(func() { ex.pump() })
			return
		}
	}
}

// runSync drives the execution to completion on the calling goroutine,
// blocking (not spinning) across any await — the mechanism spec.md §4.5
// uses for a synchronous UserFunction body: "pump step() in a tight loop
// ... ret with the captured value." A synchronous call is not allowed to
// return to its Go caller before its body finishes, so unlike pump(), an
// encountered await blocks this goroutine on a channel rather than
// yielding control back to the driver.
func (ex *Execution) runSync() {
	for {
		ex.mu.Lock()
		finished := ex.finished
		ex.mu.Unlock()
		if finished {
			return
		}

		err := ex.Step()
		if err != nil {
			ex.finish(nil, err)
			return
		}

		ex.mu.Lock()
		finished = ex.finished
		pending := ex.state.awaitingPromise
		ex.mu.Unlock()
		if finished {
			return
		}
		if pending != nil {
			settled := make(chan struct{})
			pending.OnSettle(func() { close(settled) })
			<-settled
		}
	}
}

// isLoopNode reports whether n is a node kind the Break/Continue unwind
// logic recognizes as a loop (spec.md §4.4).
func isLoopNode(n ast.Node) bool {
	switch n.(type) {
	case *ast.ForStatement, *ast.WhileStatement, *ast.DoWhileStatement:
		return true
	default:
		return false
	}
}
