package interp

// arrayMethod resolves the small set of Array.prototype-style methods
// programs can call on an array value (spec.md §9 "a minimal functional
// surface, not a full standard-library polyfill"). Each is a GoFunc closing
// over the receiving array, matching how globals.go builds ambient
// builtins.
func arrayMethod(a *Array, name string) (Value, bool) {
	switch name {
	case "push":
		return &GoFunc{Name: "push", Fn: func(_ Value, args []Value) (Value, error) {
			a.Elements = append(a.Elements, args...)
			return float64(len(a.Elements)), nil
		}}, true
	case "pop":
		return &GoFunc{Name: "pop", Fn: func(_ Value, _ []Value) (Value, error) {
			n := len(a.Elements)
			if n == 0 {
				return Undefined, nil
			}
			v := a.Elements[n-1]
			a.Elements = a.Elements[:n-1]
			return v, nil
		}}, true
	case "shift":
		return &GoFunc{Name: "shift", Fn: func(_ Value, _ []Value) (Value, error) {
			if len(a.Elements) == 0 {
				return Undefined, nil
			}
			v := a.Elements[0]
			a.Elements = a.Elements[1:]
			return v, nil
		}}, true
	case "includes":
		return &GoFunc{Name: "includes", Fn: func(_ Value, args []Value) (Value, error) {
			target := argAt(args, 0)
			for _, el := range a.Elements {
				if valuesEqual(el, target) {
					return true, nil
				}
			}
			return false, nil
		}}, true
	case "indexOf":
		return &GoFunc{Name: "indexOf", Fn: func(_ Value, args []Value) (Value, error) {
			target := argAt(args, 0)
			for i, el := range a.Elements {
				if valuesEqual(el, target) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}}, true
	case "join":
		return &GoFunc{Name: "join", Fn: func(_ Value, args []Value) (Value, error) {
			sep := ","
			if len(args) > 0 {
				sep = toDisplayString(args[0])
			}
			out := ""
			for i, el := range a.Elements {
				if i > 0 {
					out += sep
				}
				if !IsNullish(el) {
					out += toDisplayString(el)
				}
			}
			return out, nil
		}}, true
	case "slice":
		return &GoFunc{Name: "slice", Fn: func(_ Value, args []Value) (Value, error) {
			start, end := sliceBounds(len(a.Elements), args)
			out := make([]Value, 0, end-start)
			if start < end {
				out = append(out, a.Elements[start:end]...)
			}
			return NewArray(out), nil
		}}, true
	case "concat":
		return &GoFunc{Name: "concat", Fn: func(_ Value, args []Value) (Value, error) {
			out := make([]Value, len(a.Elements))
			copy(out, a.Elements)
			for _, arg := range args {
				if other, ok := arg.(*Array); ok {
					out = append(out, other.Elements...)
				} else {
					out = append(out, arg)
				}
			}
			return NewArray(out), nil
		}}, true
	case "reverse":
		return &GoFunc{Name: "reverse", Fn: func(_ Value, _ []Value) (Value, error) {
			for i, j := 0, len(a.Elements)-1; i < j; i, j = i+1, j-1 {
				a.Elements[i], a.Elements[j] = a.Elements[j], a.Elements[i]
			}
			return a, nil
		}}, true
	case "map":
		return &GoFunc{Name: "map", Fn: func(_ Value, args []Value) (Value, error) {
			fn, ok := argAt(args, 0).(Callable)
			if !ok {
				return nil, &guestError{Value: "TypeError: Array.prototype.map callback is not a function"}
			}
			out := make([]Value, len(a.Elements))
			for i, el := range a.Elements {
				v, err := fn.Call(Undefined, []Value{el, float64(i), a})
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return NewArray(out), nil
		}}, true
	case "filter":
		return &GoFunc{Name: "filter", Fn: func(_ Value, args []Value) (Value, error) {
			fn, ok := argAt(args, 0).(Callable)
			if !ok {
				return nil, &guestError{Value: "TypeError: Array.prototype.filter callback is not a function"}
			}
			var out []Value
			for i, el := range a.Elements {
				v, err := fn.Call(Undefined, []Value{el, float64(i), a})
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					out = append(out, el)
				}
			}
			return NewArray(out), nil
		}}, true
	case "forEach":
		return &GoFunc{Name: "forEach", Fn: func(_ Value, args []Value) (Value, error) {
			fn, ok := argAt(args, 0).(Callable)
			if !ok {
				return nil, &guestError{Value: "TypeError: Array.prototype.forEach callback is not a function"}
			}
			for i, el := range a.Elements {
				if _, err := fn.Call(Undefined, []Value{el, float64(i), a}); err != nil {
					return nil, err
				}
			}
			return Undefined, nil
		}}, true
	case "reduce":
		return &GoFunc{Name: "reduce", Fn: func(_ Value, args []Value) (Value, error) {
			fn, ok := argAt(args, 0).(Callable)
			if !ok {
				return nil, &guestError{Value: "TypeError: Array.prototype.reduce callback is not a function"}
			}
			i := 0
			var acc Value
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(a.Elements) == 0 {
					return nil, &guestError{Value: "TypeError: reduce of empty array with no initial value"}
				}
				acc = a.Elements[0]
				i = 1
			}
			for ; i < len(a.Elements); i++ {
				v, err := fn.Call(Undefined, []Value{acc, a.Elements[i], float64(i), a})
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		}}, true
	default:
		return nil, false
	}
}

func argAt(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func sliceBounds(n int, args []Value) (int, int) {
	start, end := 0, n
	if len(args) > 0 {
		start = normalizeIndex(toNumber(args[0]), n)
	}
	if len(args) > 1 && args[1] != Undefined {
		end = normalizeIndex(toNumber(args[1]), n)
	}
	if start > end {
		start = end
	}
	return start, end
}

func normalizeIndex(f float64, n int) int {
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
