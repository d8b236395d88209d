package interp

import "fmt"

// Value is any host value flowing through evaluation, plus the two
// sentinels spec.md §3 requires: Uninitialized (the TDZ placeholder) and
// Abort (the cancellation sentinel). Both are modeled as unique,
// unforgeable tokens per spec.md §9 "shared-state sentinels" — a guest
// program can never construct a value that compares equal to either.
type Value = interface{}

// sentinel is the unexported marker type backing Uninitialized and Abort,
// so that no value built from guest code (which only ever sees exported
// constructors) can alias them.
type sentinel struct{ name string }

func (s *sentinel) String() string { return s.name }

// Uninitialized is stored for a declared-but-not-yet-initialized binding.
// Reading it produces UninitializedReadError (spec.md §3, §7).
var Uninitialized = &sentinel{name: "<uninitialized>"}

// Abort is the value a cancelled await rejects with (spec.md §3, §5).
var Abort = &sentinel{name: "<abort>"}

// Undefined is the host's `undefined` value, distinct from Null.
var Undefined Value = undefinedType{}

type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Null is the host's `null` value (ast.NullLiteral evaluates to this).
var Null Value = nullType{}

type nullType struct{}

func (nullType) String() string { return "null" }

// IsNullish reports whether v is Null or Undefined — the condition `??`
// and optional-chaining short-circuit on.
func IsNullish(v Value) bool {
	return v == nil || v == Undefined || v == Null
}

// IsUserFunction reports whether v is a guest-defined function (as opposed
// to a host-injected GoFunc), so host code can distinguish the two (spec.md
// §3 "UserFunction").
func IsUserFunction(v Value) bool {
	_, ok := v.(*UserFunction)
	return ok
}

// Callable is any host value that can be invoked as a function. Both
// UserFunctions (§4.5) and host-injected Go functions implement it.
type Callable interface {
	// Call invokes the function with the given receiver and arguments.
	Call(this Value, args []Value) (Value, error)
	// IsAsync reports whether calling this function returns an
	// ObservablePromise rather than a plain value.
	IsAsync() bool
}

// GoFunc adapts a plain Go function into a synchronous Callable, for
// ambient globals (console.log, Math.*, JSON.*, ...).
type GoFunc struct {
	Name string
	Fn   func(this Value, args []Value) (Value, error)
}

func (f *GoFunc) Call(this Value, args []Value) (Value, error) { return f.Fn(this, args) }
func (f *GoFunc) IsAsync() bool                                 { return false }
func (f *GoFunc) String() string                                { return fmt.Sprintf("function %s() { [native code] }", f.Name) }

// Object is an ordered string-keyed property bag: the representation of
// object literals, and of the `this` receiver for method calls. Insertion
// order is preserved because spread and JSON.stringify (spec.md §4.4,
// §8 property 7) both observe "own enumerable keys" in source order.
type Object struct {
	keys  []string
	props map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{props: map[string]Value{}}
}

// Get returns the property value, or Undefined if absent.
func (o *Object) Get(key string) Value {
	if v, ok := o.props[key]; ok {
		return v
	}
	return Undefined
}

// Has reports whether key is an own property (used by the `in` operator).
func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Set creates or overwrites a property, preserving first-insertion order.
func (o *Object) Set(key string, v Value) {
	if o.props == nil {
		o.props = map[string]Value{}
	}
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

// Keys returns own enumerable keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Array is a dense, mutable list: the representation of array literals.
type Array struct {
	Elements []Value
}

// NewArray wraps a slice of elements (holes are represented as Undefined).
func NewArray(elems []Value) *Array {
	return &Array{Elements: elems}
}
