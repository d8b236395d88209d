package interp

import (
	"fmt"

	"github.com/stepwise-dev/stepwise/ast"
)

// UserFunction is component C6 (spec.md §4.5): a guest function literal
// turned into a host-callable closure. Its own call body runs as its own
// Execution rooted at a RoleCall frame — the frame ReturnStatement's unwind
// targets — driven synchronously (runSync, blocking the Go caller across
// any await) for a non-async function, or asynchronously (Start, settling
// a freshly returned ObservablePromise) for an async one.
type UserFunction struct {
	name    string
	params  []*ast.Param
	body    ast.Node // *ast.BlockStatement, or a bare expression for a concise arrow body
	closure *Scope
	isArrow bool
	async   bool
	runtime *Runtime

	// source is the text of the program the function literal was parsed
	// from, carried purely so a call's own Execution can trace-slice its
	// statements (see traceEnter in trace.go).
	source []byte
}

// newUserFunction builds the Callable backing a FunctionExpression node,
// capturing closure as its defining scope. source is the defining
// execution's program text (may be nil), threaded through so the call's
// own Execution can trace-slice its body.
func newUserFunction(n *ast.FunctionExpression, closure *Scope, rt *Runtime, source []byte) *UserFunction {
	return &UserFunction{
		name:    n.Name,
		params:  n.Params,
		body:    n.Body,
		closure: closure,
		async:   n.Async,
		runtime: rt,
		source:  source,
	}
}

// newArrowFunction builds the Callable backing an ArrowFunctionExpression
// node. Arrow functions never bind their own `this` — Call leaves it out of
// the call scope entirely so ThisExpression lookups fall through to
// whatever `this` binding the closure scope chain already carries.
func newArrowFunction(n *ast.ArrowFunctionExpression, closure *Scope, rt *Runtime, source []byte) *UserFunction {
	return &UserFunction{
		params:  n.Params,
		body:    n.Body,
		closure: closure,
		isArrow: true,
		async:   n.Async,
		runtime: rt,
		source:  source,
	}
}

// IsAsync reports whether calling this function returns an
// ObservablePromise rather than a plain value.
func (uf *UserFunction) IsAsync() bool { return uf.async }

func (uf *UserFunction) String() string {
	name := uf.name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("function %s() { ... }", name)
}

// Call invokes the function. A synchronous body is pumped to completion on
// the calling goroutine before Call returns (spec.md §4.5 "a synchronous
// call must not return to its Go caller before its body finishes"); an
// async body starts its sub-execution and returns an ObservablePromise
// immediately, settled once that sub-execution finishes.
func (uf *UserFunction) Call(this Value, args []Value) (Value, error) {
	callScope := uf.closure.Child()
	if !uf.isArrow {
		callScope.Define("this", this)
	}
	if err := bindParams(callScope, uf.params, args); err != nil {
		return nil, err
	}

	root := NewFrame(uf.body, callScope, RoleCall)
	ex := newExecutionWithSource(uf.runtime, root, "call:"+uf.name, uf.source)

	if !uf.async {
		ex.runSync()
		if ex.Err() != nil {
			return nil, ex.Err()
		}
		return ex.Result(), nil
	}

	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		ex.onFinish = func(v Value, err error) {
			if err != nil {
				if _, ok := err.(*abortError); ok {
					reject(errAbortSentinelWrapped)
					return
				}
				reject(err)
				return
			}
			resolve(v)
		}
		ex.Start()
	}).tagRuntime(uf.runtime), nil
}

// bindParams defines each parameter in callScope from args, applying
// Undefined for a missing trailing argument and collecting any remainder
// into the final rest parameter (spec.md §4.5). A parameter the parser
// accepted as a destructuring pattern (ast.Param.Pattern != "", since this
// grammar has no way to bind one) fails the whole call with
// UnsupportedParamError instead of silently dropping it.
func bindParams(scope *Scope, params []*ast.Param, args []Value) error {
	for i, p := range params {
		if p.Pattern != "" {
			return &UnsupportedParamError{Kind: p.Pattern}
		}
		if p.Rest {
			rest := []Value{}
			if i < len(args) {
				rest = append(rest, args[i:]...)
			}
			scope.Define(p.Name, NewArray(rest))
			return nil
		}
		if i < len(args) {
			scope.Define(p.Name, args[i])
		} else {
			scope.Define(p.Name, Undefined)
		}
	}
	return nil
}
