package interp

import "fmt"

// The error kinds of spec.md §7, each a concrete type so host code can
// `errors.As` them instead of matching on message strings — the same
// inspectable-error shape yaegi uses for its Panic type in interp.go.

// UnsupportedNodeError reports a guest program using an AST node kind the
// evaluator has no case for.
type UnsupportedNodeError struct {
	Kind string
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("unsupported node: %s", e.Kind)
}

// UnsupportedOperatorError reports an operator outside the supported set
// (spec.md §4.4: UnaryExpression's throw/delete, or any unrecognized
// binary/update operator).
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator: %s", e.Operator)
}

// UnsupportedParamError reports a function parameter pattern other than a
// plain identifier or trailing rest identifier (spec.md §4.5).
type UnsupportedParamError struct {
	Kind string
}

func (e *UnsupportedParamError) Error() string {
	return fmt.Sprintf("unsupported parameter pattern: %s", e.Kind)
}

// UndefinedIdentifierError reports a scope-chain lookup that found no
// binding at all for name.
type UndefinedIdentifierError struct {
	Name string
}

func (e *UndefinedIdentifierError) Error() string {
	return fmt.Sprintf("undefined identifier: %s", e.Name)
}

// UninitializedReadError reports a read of a declared-but-not-yet
// initialized binding (spec.md §3 TDZ, §8 property 3).
type UninitializedReadError struct {
	Name string
}

func (e *UninitializedReadError) Error() string {
	return fmt.Sprintf("cannot access %q before initialization", e.Name)
}

// StateInvariantError reports an internal invariant violation: an empty
// stack at step, a step on a terminated execution or while parked on a
// pending await, a break/continue/return with no enclosing loop or call,
// an unreachable loop phase, an assignment or update target that is not an
// lvalue, etc. It should never occur for a
// correctly functioning evaluator; it exists so the failure is loud and
// typed rather than a nil-pointer panic.
type StateInvariantError struct {
	Detail string
}

func (e *StateInvariantError) Error() string {
	return fmt.Sprintf("interpreter state invariant violated: %s", e.Detail)
}

// IsAbort reports whether err (or the value thrown as an error) is the
// Abort sentinel — the condition a cancellation-aware host caller should
// swallow rather than report as a genuine failure (spec.md §7).
func IsAbort(v interface{}) bool {
	if _, ok := v.(*abortError); ok {
		return true
	}
	return v == Abort
}

// guestError wraps an arbitrary guest-thrown value (anything that isn't
// already a Go error) so it can travel through Go's `error` channel
// without losing the original Value.
type guestError struct {
	Value Value
}

func (e *guestError) Error() string {
	return fmt.Sprintf("%v", e.Value)
}

// throwValue converts any value propagated by unwinding (an Abort
// sentinel, a Go error from a host builtin, or an arbitrary guest value)
// into a Go error suitable for returning from step/wait.
func throwValue(v Value) error {
	if v == Abort {
		return &abortError{}
	}
	if err, ok := v.(error); ok {
		return err
	}
	return &guestError{Value: v}
}

// abortError is the error-shaped form of the Abort sentinel, returned from
// wait() when an execution is cancelled while awaiting.
type abortError struct{}

func (e *abortError) Error() string { return "aborted" }

// Unwrap returns nil: abortError wraps no other error. There is no Is
// method; code tests interp.IsAbort(v), which accepts both the raw Abort
// Value and this error form.
func (e *abortError) Unwrap() error { return nil }
