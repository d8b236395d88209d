package interp

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sink is the injectable destination console.debug writes through (spec.md
// §1's "console.debug-style trace sink", carved out as an external
// collaborator the core only depends on by this function shape, never by a
// concrete logger). console.log/warn/error are unaffected by Sink — they
// always print to stdout, the same as the teacher's own plain
// fmt.Println-backed console.
type Sink func(args ...Value)

// defaultSink writes to stderr, matching trace.go's own destination for
// debug output: console.debug is meant as a debug-channel counterpart to
// console.log, not another stdout logger.
func defaultSink(args ...Value) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = consoleFormat(a)
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))
}

// Globals returns the ambient bindings withGlobal merges into a root scope
// that doesn't already define them (spec.md §4.1, and this module's
// supplemented console/JSON/Math/timer/Promise surface), wiring
// console.debug to the default (stderr) sink. It builds a fresh map on
// every call rather than caching one; the timer table and timer id counter
// behind setTimeout/clearTimeout are package-level and shared by every
// runtime.
func Globals() map[string]Value {
	return GlobalsWithSink(defaultSink)
}

// GlobalsWithSink is Globals with a caller-supplied console.debug
// destination — the hook a host embedding this evaluator uses to route
// debug output somewhere other than stderr (a log aggregator, a playground's
// log pane, a test's capture buffer) without touching console.log's own
// wiring.
func GlobalsWithSink(sink Sink) map[string]Value {
	return map[string]Value{
		"undefined": Undefined,
		"NaN":       math.NaN(),
		"Infinity":  math.Inf(1),
		"console":   buildConsole(sink),
		"Math":      buildMath(),
		"JSON":      buildJSON(),
		"Promise":   buildPromiseNamespace(),
		"setTimeout": &GoFunc{Name: "setTimeout", Fn: func(_ Value, args []Value) (Value, error) {
			return setTimeoutImpl(args)
		}},
		"clearTimeout": &GoFunc{Name: "clearTimeout", Fn: func(_ Value, args []Value) (Value, error) {
			clearTimeoutImpl(args)
			return Undefined, nil
		}},
	}
}

func buildConsole(sink Sink) *Object {
	o := NewObject()
	log := func(this Value, args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = consoleFormat(a)
		}
		fmt.Println(strings.Join(parts, " "))
		return Undefined, nil
	}
	debug := func(this Value, args []Value) (Value, error) {
		sink(args...)
		return Undefined, nil
	}
	o.Set("log", &GoFunc{Name: "log", Fn: log})
	o.Set("debug", &GoFunc{Name: "debug", Fn: debug})
	o.Set("error", &GoFunc{Name: "error", Fn: log})
	o.Set("warn", &GoFunc{Name: "warn", Fn: log})
	return o
}

// FormatValue renders v the way console.log would, for host code (the CLI's
// `run` command) printing a program's final result.
func FormatValue(v Value) string {
	return consoleFormat(v)
}

func consoleFormat(v Value) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		s, err := stringifyJSON(v, "")
		if err != nil {
			return toDisplayString(v)
		}
		return s
	}
}

func buildMath() *Object {
	o := NewObject()
	o.Set("PI", math.Pi)
	o.Set("E", math.E)
	unary := func(name string, fn func(float64) float64) {
		o.Set(name, &GoFunc{Name: name, Fn: func(_ Value, args []Value) (Value, error) {
			return fn(toNumber(argAt(args, 0))), nil
		}})
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)
	unary("trunc", math.Trunc)
	unary("sqrt", math.Sqrt)
	unary("sign", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	})
	o.Set("pow", &GoFunc{Name: "pow", Fn: func(_ Value, args []Value) (Value, error) {
		return math.Pow(toNumber(argAt(args, 0)), toNumber(argAt(args, 1))), nil
	}})
	o.Set("max", &GoFunc{Name: "max", Fn: func(_ Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return math.Inf(-1), nil
		}
		m := toNumber(args[0])
		for _, a := range args[1:] {
			m = math.Max(m, toNumber(a))
		}
		return m, nil
	}})
	o.Set("min", &GoFunc{Name: "min", Fn: func(_ Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return math.Inf(1), nil
		}
		m := toNumber(args[0])
		for _, a := range args[1:] {
			m = math.Min(m, toNumber(a))
		}
		return m, nil
	}})
	o.Set("random", &GoFunc{Name: "random", Fn: func(_ Value, _ []Value) (Value, error) {
		return rand.Float64(), nil
	}})
	return o
}

func buildJSON() *Object {
	o := NewObject()
	o.Set("stringify", &GoFunc{Name: "stringify", Fn: func(_ Value, args []Value) (Value, error) {
		indent := ""
		if len(args) > 2 {
			switch v := args[2].(type) {
			case float64:
				indent = strings.Repeat(" ", int(v))
			case string:
				indent = v
			}
		}
		s, err := stringifyJSON(argAt(args, 0), indent)
		if err != nil {
			return Undefined, err
		}
		return s, nil
	}})
	o.Set("parse", &GoFunc{Name: "parse", Fn: func(_ Value, args []Value) (Value, error) {
		var raw interface{}
		if err := json.Unmarshal([]byte(toDisplayString(argAt(args, 0))), &raw); err != nil {
			return nil, &guestError{Value: fmt.Sprintf("SyntaxError: %s", err)}
		}
		return fromJSONValue(raw), nil
	}})
	return o
}

// stringifyJSON renders v as the host language's JSON.stringify would.
// Object key order follows insertion order (not encoding/json's
// alphabetical map order) since Object already preserves it.
func stringifyJSON(v Value, indent string) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, v, indent, ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(b *strings.Builder, v Value, indent, prefix string) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		enc, _ := json.Marshal(t)
		b.Write(enc)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(formatNumber(t))
		}
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *Array:
		b.WriteByte('[')
		childPrefix := prefix + indent
		for i, el := range t.Elements {
			if i > 0 {
				b.WriteByte(',')
			}
			newlineIndent(b, indent, childPrefix)
			ev := el
			if IsNullish(ev) {
				ev = Null
			}
			if err := writeJSON(b, ev, indent, childPrefix); err != nil {
				return err
			}
		}
		newlineIndent(b, indent, prefix)
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		childPrefix := prefix + indent
		first := true
		for _, k := range t.Keys() {
			val := t.Get(k)
			if val == Undefined || IsCallable(val) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			newlineIndent(b, indent, childPrefix)
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			if indent != "" {
				b.WriteByte(' ')
			}
			if err := writeJSON(b, val, indent, childPrefix); err != nil {
				return err
			}
		}
		if !first {
			newlineIndent(b, indent, prefix)
		}
		b.WriteByte('}')
	default:
		if v == Undefined {
			b.WriteString("null")
		} else if v == Null {
			b.WriteString("null")
		} else {
			b.WriteString("null")
		}
	}
	return nil
}

func newlineIndent(b *strings.Builder, indent, prefix string) {
	if indent == "" {
		return
	}
	b.WriteByte('\n')
	b.WriteString(prefix)
}

// fromJSONValue converts encoding/json's generic decode result into this
// evaluator's Value representation.
func fromJSONValue(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case float64:
		return t
	case string:
		return t
	case bool:
		return t
	case []interface{}:
		out := make([]Value, len(t))
		for i, el := range t {
			out[i] = fromJSONValue(el)
		}
		return NewArray(out)
	case map[string]interface{}:
		o := NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			o.Set(k, fromJSONValue(t[k]))
		}
		return o
	default:
		return Undefined
	}
}

// IsCallable reports whether v can be invoked as a function.
func IsCallable(v Value) bool {
	_, ok := v.(Callable)
	return ok
}

// PromiseConstructor is the guest-visible `Promise` global: both a callable
// constructor (`new Promise((resolve, reject) => ...)`, spec.md §8 scenario
// 3's `sleep` helper) and a property bag carrying the static combinators
// (`.resolve`/`.reject`/`.all`/`.race`). The evaluator's Value model has no
// single built-in type that is both at once, so this wraps an *Object (for
// the static methods, reachable through getProperty) with its own Call.
type PromiseConstructor struct {
	*Object
}

func (pc *PromiseConstructor) Call(_ Value, args []Value) (Value, error) {
	executor, ok := argAt(args, 0).(Callable)
	if !ok {
		return nil, &guestError{Value: "TypeError: Promise executor is not a function"}
	}
	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		resolveFn := &GoFunc{Name: "resolve", Fn: func(_ Value, a []Value) (Value, error) {
			resolve(argAt(a, 0))
			return Undefined, nil
		}}
		rejectFn := &GoFunc{Name: "reject", Fn: func(_ Value, a []Value) (Value, error) {
			reject(throwValue(argAt(a, 0)))
			return Undefined, nil
		}}
		_, _ = executor.Call(Undefined, []Value{resolveFn, rejectFn})
	}), nil
}

func (pc *PromiseConstructor) IsAsync() bool { return false }

func buildPromiseNamespace() *PromiseConstructor {
	o := NewObject()
	o.Set("resolve", &GoFunc{Name: "resolve", Fn: func(_ Value, args []Value) (Value, error) {
		v := argAt(args, 0)
		if p, ok := isObservable(v); ok {
			return p, nil
		}
		return Resolved(v), nil
	}})
	o.Set("reject", &GoFunc{Name: "reject", Fn: func(_ Value, args []Value) (Value, error) {
		return RejectedWith(throwValue(argAt(args, 0))), nil
	}})
	o.Set("all", &GoFunc{Name: "all", Fn: func(_ Value, args []Value) (Value, error) {
		return promiseAll(argAt(args, 0))
	}})
	o.Set("race", &GoFunc{Name: "race", Fn: func(_ Value, args []Value) (Value, error) {
		return promiseRace(argAt(args, 0))
	}})
	return &PromiseConstructor{Object: o}
}

func promiseAll(v Value) (Value, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, &guestError{Value: "TypeError: Promise.all expects an array"}
	}
	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		n := len(arr.Elements)
		if n == 0 {
			resolve(NewArray(nil))
			return
		}
		results := make([]Value, n)
		var mu sync.Mutex
		remaining := n
		var done bool
		for i, el := range arr.Elements {
			i, el := i, el
			p, isP := isObservable(el)
			if !isP {
				mu.Lock()
				results[i] = el
				remaining--
				if remaining == 0 && !done {
					done = true
					resolve(NewArray(results))
				}
				mu.Unlock()
				continue
			}
			p.OnSettle(func() {
				mu.Lock()
				defer mu.Unlock()
				if done {
					return
				}
				switch p.State() {
				case Fulfilled:
					results[i] = p.Value()
					remaining--
					if remaining == 0 {
						done = true
						resolve(NewArray(results))
					}
				case Rejected:
					done = true
					reject(p.Err())
				case Aborted:
					done = true
					reject(&abortError{})
				}
			})
		}
	}), nil
}

func promiseRace(v Value) (Value, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, &guestError{Value: "TypeError: Promise.race expects an array"}
	}
	return NewObservablePromise(func(resolve func(Value), reject func(error)) {
		var mu sync.Mutex
		var done bool
		for _, el := range arr.Elements {
			el := el
			p, isP := isObservable(el)
			if !isP {
				mu.Lock()
				if !done {
					done = true
					resolve(el)
				}
				mu.Unlock()
				continue
			}
			p.OnSettle(func() {
				mu.Lock()
				defer mu.Unlock()
				if done {
					return
				}
				done = true
				switch p.State() {
				case Fulfilled:
					resolve(p.Value())
				case Rejected:
					reject(p.Err())
				case Aborted:
					reject(&abortError{})
				}
			})
		}
	}), nil
}

var (
	timerMu  sync.Mutex
	timerSeq float64
	timers   = map[float64]*time.Timer{}
)

func setTimeoutImpl(args []Value) (Value, error) {
	fn, ok := argAt(args, 0).(Callable)
	if !ok {
		return nil, &guestError{Value: "TypeError: setTimeout callback is not a function"}
	}
	delay := time.Duration(toNumber(argAt(args, 1))) * time.Millisecond
	extra := append([]Value(nil), args[minInt(2, len(args)):]...)

	timerMu.Lock()
	timerSeq++
	id := timerSeq
	timerMu.Unlock()

	t := time.AfterFunc(delay, func() {
		timerMu.Lock()
		delete(timers, id)
		timerMu.Unlock()
		invokeTimerCallback(fn, extra)
	})

	timerMu.Lock()
	timers[id] = t
	timerMu.Unlock()
	return id, nil
}

// invokeTimerCallback runs a setTimeout callback on the timer's own
// goroutine. When fn is a guest function literal closed over a live
// Runtime (the common `setTimeout(() => ..., ms)` shape, as opposed to the
// `setTimeout(resolve, ms)` shape used to back a promise — whose
// continuations are already routed through ObservablePromise.dispatch, see
// promise.go), the call is handed to that runtime's serialized dispatch
// queue instead of run inline, so it can't step a registered Execution
// concurrently with another one's resumption just because two timers fired
// close together.
func invokeTimerCallback(fn Callable, args []Value) {
	if uf, ok := fn.(*UserFunction); ok && uf.runtime != nil {
		uf.runtime.dispatch(func() { _, _ = fn.Call(Undefined, args) })
		return
	}
	_, _ = fn.Call(Undefined, args)
}

func clearTimeoutImpl(args []Value) {
	id := toNumber(argAt(args, 0))
	timerMu.Lock()
	t, ok := timers[id]
	delete(timers, id)
	timerMu.Unlock()
	if ok {
		t.Stop()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
