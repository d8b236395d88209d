package interp

import "fmt"

// LValue is the reference-type result of evaluating an expression in
// RoleLeft: either a scope binding (`{object: scope, key: name}` for a
// bare identifier, spec.md §4.4) or an object property
// (`{object, key}` for a member expression).
type LValue struct {
	scope *Scope
	name  string
	obj   Value
	key   string
}

// Get reads the current value denoted by the L-value.
func (lv *LValue) Get() (Value, error) {
	if lv.scope != nil {
		v, ok := lv.scope.Lookup(lv.name)
		if !ok {
			return nil, &UndefinedIdentifierError{Name: lv.name}
		}
		if v == Uninitialized {
			return nil, &UninitializedReadError{Name: lv.name}
		}
		return v, nil
	}
	return getProperty(lv.obj, lv.key)
}

// Set writes a new value to the location denoted by the L-value.
func (lv *LValue) Set(v Value) error {
	if lv.scope != nil {
		if !lv.scope.Assign(lv.name, v) {
			return &UndefinedIdentifierError{Name: lv.name}
		}
		return nil
	}
	return setProperty(lv.obj, lv.key, v)
}

// getProperty reads key off base, covering the property-bearing Value
// kinds the evaluator produces: objects, arrays, promises, regexes, and
// strings. Reading off a nullish base is a guest-visible TypeError
// (spec.md §4.4's OptionalMemberExpression is expected to short-circuit
// before ever calling this).
func getProperty(base Value, key string) (Value, error) {
	switch b := base.(type) {
	case *Object:
		if b == nil {
			return nil, nullPropertyError(key)
		}
		return b.Get(key), nil
	case *Array:
		if b == nil {
			return nil, nullPropertyError(key)
		}
		if key == "length" {
			return float64(len(b.Elements)), nil
		}
		if idx, ok := arrayIndex(key); ok {
			if idx >= 0 && idx < len(b.Elements) {
				return b.Elements[idx], nil
			}
			return Undefined, nil
		}
		if m, ok := arrayMethod(b, key); ok {
			return m, nil
		}
		return Undefined, nil
	case *ObservablePromise:
		if b == nil {
			return nil, nullPropertyError(key)
		}
		if m, ok := promiseProperty(b, key); ok {
			return m, nil
		}
		return Undefined, nil
	case *PromiseConstructor:
		return b.Object.Get(key), nil
	case *RegExp:
		if b == nil {
			return nil, nullPropertyError(key)
		}
		if m, ok := regexpProperty(b, key); ok {
			return m, nil
		}
		return Undefined, nil
	case string:
		if key == "length" {
			return float64(len([]rune(b))), nil
		}
		if idx, ok := arrayIndex(key); ok {
			r := []rune(b)
			if idx >= 0 && idx < len(r) {
				return string(r[idx]), nil
			}
			return Undefined, nil
		}
		return Undefined, nil
	default:
		if IsNullish(base) {
			return nil, nullPropertyError(key)
		}
		return Undefined, nil
	}
}

func nullPropertyError(key string) error {
	return &guestError{Value: fmt.Sprintf("TypeError: cannot read properties of null/undefined (reading %q)", key)}
}

// setProperty writes key on base, covering objects and arrays (string
// indexing is immutable and not assignable, matching host-language
// string semantics).
func setProperty(base Value, key string, v Value) error {
	switch b := base.(type) {
	case *Object:
		if b == nil {
			return nullPropertyError(key)
		}
		b.Set(key, v)
		return nil
	case *Array:
		if b == nil {
			return nullPropertyError(key)
		}
		if idx, ok := arrayIndex(key); ok {
			for idx >= len(b.Elements) {
				b.Elements = append(b.Elements, Undefined)
			}
			b.Elements[idx] = v
			return nil
		}
		return nil
	default:
		if IsNullish(base) {
			return nullPropertyError(key)
		}
		return nil
	}
}

// arrayIndex parses key as a non-negative decimal array index.
func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n := 0
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
