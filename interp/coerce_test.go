package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthyMatchesHostCoercionRules(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(Undefined))
	assert.False(t, truthy(Null))
	assert.False(t, truthy(float64(0)))
	assert.False(t, truthy(math.NaN()))
	assert.False(t, truthy(""))
	assert.True(t, truthy(float64(1)))
	assert.True(t, truthy("0"))
	assert.True(t, truthy(NewObject()))
}

func TestToNumberCoercesEachValueKind(t *testing.T) {
	assert.Equal(t, float64(1), toNumber(true))
	assert.Equal(t, float64(0), toNumber(false))
	assert.Equal(t, float64(0), toNumber(Null))
	assert.Equal(t, float64(42), toNumber(" 42 "))
	assert.True(t, math.IsNaN(toNumber("not a number")))
	assert.True(t, math.IsNaN(toNumber(Undefined)))
}

func TestToInt32AndToUint32WrapAndHandleNonFiniteInputs(t *testing.T) {
	assert.Equal(t, int32(-1), toInt32(float64(4294967295)))
	assert.Equal(t, uint32(4294967295), toUint32(float64(-1)))
	assert.Equal(t, int32(0), toInt32(math.NaN()))
	assert.Equal(t, uint32(0), toUint32(math.Inf(1)))
}

func TestRelationalComparesStringsLexicallyAndNumbersNumerically(t *testing.T) {
	assert.True(t, relational("<", "apple", "banana"))
	assert.False(t, relational("<", "banana", "apple"))
	assert.True(t, relational(">=", float64(3), float64(3)))
	assert.False(t, relational("<", math.NaN(), float64(1)))
	assert.False(t, relational(">", math.NaN(), float64(1)))
	// mixed operand types fall through to numeric comparison
	assert.True(t, relational("<", "5", float64(10)))
}

func TestValuesEqualTreatsNullAndUndefinedAsEqualToEachOther(t *testing.T) {
	assert.True(t, valuesEqual(Undefined, Null))
	assert.True(t, valuesEqual(nil, Undefined))
	assert.False(t, valuesEqual(float64(0), ""))
	assert.False(t, valuesEqual(float64(1), "1"))
	assert.True(t, valuesEqual(float64(1), float64(1)))
}

func TestFormatNumberMatchesHostNumberToStringCoercion(t *testing.T) {
	assert.Equal(t, "NaN", formatNumber(math.NaN()))
	assert.Equal(t, "Infinity", formatNumber(math.Inf(1)))
	assert.Equal(t, "-Infinity", formatNumber(math.Inf(-1)))
	assert.Equal(t, "3", formatNumber(3))
	assert.Equal(t, "3.5", formatNumber(3.5))
}

func TestTypeOfCoversEveryValueKind(t *testing.T) {
	assert.Equal(t, "number", typeOf(float64(1)))
	assert.Equal(t, "string", typeOf("s"))
	assert.Equal(t, "boolean", typeOf(true))
	assert.Equal(t, "undefined", typeOf(Undefined))
	assert.Equal(t, "object", typeOf(Null))
	assert.Equal(t, "object", typeOf(NewObject()))
	assert.Equal(t, "function", typeOf(&GoFunc{Name: "f", Fn: func(Value, []Value) (Value, error) { return Undefined, nil }}))
}

func TestSpreadValuesExpandsArraysAndStringsButWrapsEverythingElse(t *testing.T) {
	assert.Equal(t, []Value{float64(1), float64(2)}, spreadValues(NewArray([]Value{float64(1), float64(2)})))
	assert.Equal(t, []Value{"a", "b"}, spreadValues("ab"))
	assert.Equal(t, []Value{float64(5)}, spreadValues(float64(5)))
}

func TestBinaryOpPlusConcatenatesWhenEitherSideIsAString(t *testing.T) {
	v, err := binaryOp("+", "x", float64(1))
	assert.NoError(t, err)
	assert.Equal(t, "x1", v)

	v, err = binaryOp("+", float64(1), float64(2))
	assert.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestBinaryOpInChecksObjectKeyMembership(t *testing.T) {
	o := NewObject()
	o.Set("a", float64(1))
	v, err := binaryOp("in", "a", o)
	assert.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = binaryOp("in", "missing", o)
	assert.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestBinaryOpInstanceofIsAlwaysFalse(t *testing.T) {
	v, err := binaryOp("instanceof", NewObject(), NewObject())
	assert.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestBinaryOpPipelineCallsTheRightOperandWithTheLeftOperand(t *testing.T) {
	double := &GoFunc{Name: "double", Fn: func(_ Value, args []Value) (Value, error) {
		return toNumber(args[0]) * 2, nil
	}}
	v, err := binaryOp("|>", float64(21), double)
	assert.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestBinaryOpUnsupportedOperatorReturnsATypedError(t *testing.T) {
	_, err := binaryOp("@@", float64(1), float64(2))
	var unsupported *UnsupportedOperatorError
	assert.ErrorAs(t, err, &unsupported)
}
