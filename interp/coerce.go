package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stepwise-dev/stepwise/ast"
)

// truthy implements the host language's boolean coercion (spec.md §4.4,
// used by If/While/For/logical operators/ternary).
func truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		if v == Undefined || v == Null {
			return false
		}
		return true
	}
}

// toNumber implements numeric coercion for arithmetic and bitwise operators.
func toNumber(v Value) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		if v == Null {
			return 0
		}
		return math.NaN()
	}
}

// toInt32/toUint32 truncate a numeric coercion to 32 bits, per the bitwise
// operators' ToInt32/ToUint32 abstract operations.
func toInt32(v Value) int32 {
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}

func toUint32(v Value) uint32 {
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(f))
}

// relational implements <, <=, >, >= with string-vs-string lexical
// comparison and numeric comparison otherwise; any NaN operand makes every
// relational operator false, never falling back to the wrong branch.
func relational(op string, left, right Value) bool {
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch op {
			case "<":
				return ls < rs
			case "<=":
				return ls <= rs
			case ">":
				return ls > rs
			case ">=":
				return ls >= rs
			}
		}
	}
	a, b := toNumber(left), toNumber(right)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

// valuesEqual backs both == and === (spec.md §9 treats them identically:
// no separate loose-coercion ladder).
func valuesEqual(left, right Value) bool {
	if left == nil {
		left = Undefined
	}
	if right == nil {
		right = Undefined
	}
	if IsNullish(left) && IsNullish(right) {
		return true
	}
	switch l := left.(type) {
	case float64:
		r, ok := right.(float64)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	default:
		return left == right
	}
}

// toDisplayString implements string coercion (the `+` operator when either
// side is a string, template-free string building, and object keys).
func toDisplayString(v Value) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return t.String()
	default:
		if v == Undefined || v == nil {
			return "undefined"
		}
		if v == Null {
			return "null"
		}
		return fmt.Sprintf("%v", v)
	}
}

// formatNumber renders f the way the host's Number-to-string coercion does:
// integral values without a trailing ".0", special values by name.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// typeOf implements the `typeof` operator.
func typeOf(v Value) string {
	switch v.(type) {
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case Callable:
		return "function"
	default:
		if v == Undefined || v == nil {
			return "undefined"
		}
		return "object"
	}
}

func isString(v Value) bool {
	_, ok := v.(string)
	return ok
}

// spreadValues expands a spread-position value into its component values:
// an array's elements, a string's characters, or — for anything else — a
// single-element fallback rather than an error (spec.md §9 keeps iteration
// protocols out of scope).
func spreadValues(v Value) []Value {
	switch t := v.(type) {
	case *Array:
		out := make([]Value, len(t.Elements))
		copy(out, t.Elements)
		return out
	case string:
		r := []rune(t)
		out := make([]Value, len(r))
		for i, c := range r {
			out[i] = string(c)
		}
		return out
	default:
		return []Value{v}
	}
}

// staticKeyName resolves an ObjectProperty/ObjectMethod key that can be
// known without evaluation: a bare identifier or literal. Computed keys
// (anything else) return ok=false and must be evaluated as a child frame.
func staticKeyName(key ast.Node) (string, bool) {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name, true
	case *ast.StringLiteral:
		return k.Value, true
	case *ast.NumericLiteral:
		return formatNumber(k.Value), true
	default:
		return "", false
	}
}

// binaryOp applies every BinaryExpression operator except the
// short-circuiting logical ones (&&, ||, ??), which the evaluator handles
// with their own frame phases since they must not evaluate their right
// operand unconditionally.
func binaryOp(op string, left, right Value) (Value, error) {
	switch op {
	case "+":
		if isString(left) || isString(right) {
			return toDisplayString(left) + toDisplayString(right), nil
		}
		return toNumber(left) + toNumber(right), nil
	case "-":
		return toNumber(left) - toNumber(right), nil
	case "*":
		return toNumber(left) * toNumber(right), nil
	case "/":
		return toNumber(left) / toNumber(right), nil
	case "%":
		return math.Mod(toNumber(left), toNumber(right)), nil
	case "**":
		return math.Pow(toNumber(left), toNumber(right)), nil
	case "&":
		return float64(toInt32(left) & toInt32(right)), nil
	case "|":
		return float64(toInt32(left) | toInt32(right)), nil
	case "^":
		return float64(toInt32(left) ^ toInt32(right)), nil
	case "<<":
		return float64(toInt32(left) << (toUint32(right) & 31)), nil
	case ">>":
		return float64(toInt32(left) >> (toUint32(right) & 31)), nil
	case ">>>":
		return float64(toUint32(left) >> (toUint32(right) & 31)), nil
	case "<", "<=", ">", ">=":
		return relational(op, left, right), nil
	case "==", "===":
		return valuesEqual(left, right), nil
	case "!=", "!==":
		return !valuesEqual(left, right), nil
	case "in":
		obj, ok := right.(*Object)
		if !ok {
			return false, nil
		}
		return obj.Has(toDisplayString(left)), nil
	case "instanceof":
		// Constructor identity is not modeled in this subset (spec.md §9);
		// always false rather than a false positive.
		return false, nil
	case "|>":
		fn, ok := right.(Callable)
		if !ok {
			return nil, &UnsupportedOperatorError{Operator: "|>"}
		}
		return fn.Call(Undefined, []Value{left})
	default:
		return nil, &UnsupportedOperatorError{Operator: op}
	}
}
