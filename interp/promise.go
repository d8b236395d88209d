package interp

import "sync"

// PromiseState is the externally observable settle state of an
// ObservablePromise (spec.md §3). Transitions are monotone:
// Pending → Fulfilled | Rejected | Aborted.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
	Aborted
)

func (s PromiseState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ObservablePromise is the cancellable promise variant of spec.md §3/§4.2
// (component C3): its settle state is a plain readable field rather than a
// callback-only contract, so the evaluator's step function can *poll* an
// await instead of resubscribing a callback on every micro-step. Modeled
// on the ecosystem's Promise[T]-with-a-State-field shape (e.g. a
// CompletableFuture-style promise), specialized to a single dynamically
// typed Value and given a cancellation trigger.
type ObservablePromise struct {
	mu       sync.Mutex
	state    PromiseState
	value    Value
	err      error
	settled  chan struct{}
	once     sync.Once
	onSettle []func()

	// runtime, when set, is the Runtime whose step()s this promise's
	// eventual settlement can resume (the Execution that created it via
	// `new Promise(...)` or an async call — see tagRuntime). Left nil for a
	// promise with no such owner (e.g. one built directly in a test), in
	// which case settlement continuations just run inline.
	runtime *Runtime
}

// tagRuntime attaches rt to p, right after construction and before p
// escapes to any other goroutine, so a later out-of-band settlement (most
// commonly a time.AfterFunc timer firing resolve/reject on its own
// goroutine) dispatches p's OnSettle continuations through rt's single
// serialized queue instead of running them inline on whatever goroutine
// happened to settle p.
func (p *ObservablePromise) tagRuntime(rt *Runtime) *ObservablePromise {
	p.runtime = rt
	return p
}

// dispatch runs cb inline if p has no attached runtime, or through that
// runtime's serialized queue otherwise (see Runtime.dispatch).
func (p *ObservablePromise) dispatch(cb func()) {
	if p.runtime != nil {
		p.runtime.dispatch(cb)
		return
	}
	cb()
}

// NewObservablePromise constructs a promise from an executor, exactly as
// spec.md §4.2 describes: executor receives resolve/reject callbacks, and
// firing the returned promise's Abort() rejects it with the Abort
// sentinel (spec.md §5 "Cancellation").
func NewObservablePromise(executor func(resolve func(Value), reject func(error))) *ObservablePromise {
	p := &ObservablePromise{settled: make(chan struct{})}
	resolve := func(v Value) { p.settle(Fulfilled, v, nil) }
	reject := func(err error) {
		if err == errAbortSentinelWrapped {
			p.settle(Aborted, nil, errAbortSentinelWrapped)
			return
		}
		p.settle(Rejected, nil, err)
	}
	if executor != nil {
		executor(resolve, reject)
	}
	return p
}

// errAbortSentinelWrapped is a private marker so Abort() below can reject
// through the same settle() path that a guest-visible reject(err) would
// use, without every caller having to know the Abort convention.
var errAbortSentinelWrapped = &abortError{}

// Resolved returns an already-fulfilled promise, for host builtins that
// need to hand back a settled value without an executor (e.g.
// Promise.resolve semantics used internally by globals.go).
func Resolved(v Value) *ObservablePromise {
	return NewObservablePromise(func(resolve func(Value), reject func(error)) { resolve(v) })
}

// RejectedWith returns an already-rejected promise.
func RejectedWith(err error) *ObservablePromise {
	return NewObservablePromise(func(resolve func(Value), reject func(error)) { reject(err) })
}

func (p *ObservablePromise) settle(state PromiseState, v Value, err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.state = state
		p.value = v
		p.err = err
		callbacks := p.onSettle
		p.onSettle = nil
		p.mu.Unlock()
		close(p.settled)
		for _, cb := range callbacks {
			p.dispatch(cb)
		}
	})
}

// State returns the current settle state.
func (p *ObservablePromise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Value returns the fulfillment value. Only meaningful once State() ==
// Fulfilled.
func (p *ObservablePromise) Value() Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Err returns the rejection error. Only meaningful once State() is
// Rejected or Aborted.
func (p *ObservablePromise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Abort fires the cancellation trigger, rejecting the promise with the
// Abort sentinel. Idempotent: firing on an already-settled promise is a
// no-op (spec.md §4.2).
func (p *ObservablePromise) Abort() {
	p.settle(Aborted, nil, errAbortSentinelWrapped)
}

// OnSettle registers cb to run once the promise settles: right away if it
// is already settled, otherwise right after the transition. Both paths go
// through p.dispatch, which routes cb through p's attached runtime's
// dispatch queue if it has one (see tagRuntime/dispatch) and runs it inline
// otherwise, so the continuation never runs concurrently with
// another dispatched continuation regardless of which goroutine actually
// triggered the settlement. It is the mechanism the execution driver (§4.6)
// uses to "chain continuation off that promise's settlement" without
// busy-polling across goroutines; the evaluator's own step()-time polling
// (spec.md §4.4 AwaitExpression) uses State() instead and does not need
// this.
func (p *ObservablePromise) OnSettle(cb func()) {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		p.dispatch(cb)
		return
	}
	p.onSettle = append(p.onSettle, cb)
	p.mu.Unlock()
}

// isObservable is the type guard spec.md §4.2 calls `isObservable(v)`.
func isObservable(v Value) (*ObservablePromise, bool) {
	p, ok := v.(*ObservablePromise)
	return p, ok
}

// IsObservable exposes the type guard to host code and globals.go.
func IsObservable(v Value) bool {
	_, ok := isObservable(v)
	return ok
}

// thenable is a Go value with an unexported then(onFulfilled, onRejected)
// method, the shape wrapThenable adapts. No guest value implements it: a
// guest object that has a `then` property is not treated as a thenable, and
// awaiting it yields the object itself.
type thenable interface {
	then(onFulfilled, onRejected func(Value))
}

// wrapThenable adapts a thenable-shaped guest object into an
// ObservablePromise by invoking its then method once.
func wrapThenable(t thenable) *ObservablePromise {
	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		t.then(
			func(v Value) { resolve(v) },
			func(v Value) { reject(throwValue(v)) },
		)
	})
}

// promiseProperty backs guest-visible `.then`/`.catch`/`.finally` chaining
// (spec.md §8 scenario 3: "sleep(v*10).then(()=>console.log(v))"). Each
// returns a GoFunc building a derived ObservablePromise off p's own
// OnSettle, the same pattern promiseAll/promiseRace use in globals.go.
func promiseProperty(p *ObservablePromise, key string) (Value, bool) {
	switch key {
	case "then":
		return &GoFunc{Name: "then", Fn: func(_ Value, args []Value) (Value, error) {
			onFulfilled, _ := argAt(args, 0).(Callable)
			onRejected, _ := argAt(args, 1).(Callable)
			return chainPromise(p, onFulfilled, onRejected), nil
		}}, true
	case "catch":
		return &GoFunc{Name: "catch", Fn: func(_ Value, args []Value) (Value, error) {
			onRejected, _ := argAt(args, 0).(Callable)
			return chainPromise(p, nil, onRejected), nil
		}}, true
	case "finally":
		return &GoFunc{Name: "finally", Fn: func(_ Value, args []Value) (Value, error) {
			onFinally, _ := argAt(args, 0).(Callable)
			return NewObservablePromise(func(resolve func(Value), reject func(error)) {
				p.OnSettle(func() {
					if onFinally != nil {
						_, _ = onFinally.Call(Undefined, nil)
					}
					switch p.State() {
					case Fulfilled:
						resolve(p.Value())
					case Rejected:
						reject(p.Err())
					case Aborted:
						reject(&abortError{})
					}
				})
			}), nil
		}}, true
	default:
		return nil, false
	}
}

// chainPromise builds the derived promise behind .then/.catch: it runs the
// matching guest callback (if any) once p settles and resolves/rejects with
// whatever that callback returns, or propagates p's own outcome untouched
// when no matching callback was given.
func chainPromise(p *ObservablePromise, onFulfilled, onRejected Callable) *ObservablePromise {
	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		p.OnSettle(func() {
			switch p.State() {
			case Fulfilled:
				if onFulfilled == nil {
					resolve(p.Value())
					return
				}
				v, err := onFulfilled.Call(Undefined, []Value{p.Value()})
				if err != nil {
					reject(err)
					return
				}
				resolve(v)
			case Rejected:
				if onRejected == nil {
					reject(p.Err())
					return
				}
				v, err := onRejected.Call(Undefined, []Value{guestErrorValue(p.Err())})
				if err != nil {
					reject(err)
					return
				}
				resolve(v)
			case Aborted:
				reject(&abortError{})
			}
		})
	})
}

// guestErrorValue unwraps a guestError back into the guest-visible Value it
// carries, so a .catch handler receives the thrown value, not a Go error.
func guestErrorValue(err error) Value {
	if ge, ok := err.(*guestError); ok {
		return ge.Value
	}
	if err == nil {
		return Undefined
	}
	return err.Error()
}
