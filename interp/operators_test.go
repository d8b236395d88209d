package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnaryOperatorsCoverTheFullSet(t *testing.T) {
	ex, _ := runProgram(t, `
		[!false, -5, +"3", ~0, void 9, typeof 1];
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{true, float64(-5), float64(3), float64(-1), Undefined, "number"}, arr.Elements)
}

func TestTypeofOnAnUndeclaredIdentifierIsUndefinedNotAnError(t *testing.T) {
	ex, _ := runProgram(t, `typeof neverDeclared;`)
	require.NoError(t, ex.Err())
	require.Equal(t, "undefined", ex.Result())
}

func TestUpdateExpressionPrefixReturnsTheNewValuePostfixReturnsTheOld(t *testing.T) {
	ex, _ := runProgram(t, `
		let a = 5;
		let pre = ++a;
		let post = a++;
		[pre, post, a];
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(6), float64(6), float64(7)}, arr.Elements)
}

func TestDecrementOperator(t *testing.T) {
	ex, _ := runProgram(t, `
		let a = 5;
		a--;
		a;
	`)
	require.NoError(t, ex.Err())
	require.Equal(t, float64(4), ex.Result())
}

func TestCompoundAssignmentOperatorsCoverTheArithmeticForms(t *testing.T) {
	ex, _ := runProgram(t, `
		let a = 10;
		a += 5; // 15
		a -= 3; // 12
		a *= 2; // 24
		a /= 4; // 6
		a %= 4; // 2
		a **= 3; // 8
		a;
	`)
	require.NoError(t, ex.Err())
	require.Equal(t, float64(8), ex.Result())
}

func TestCompoundAssignmentOnlyEvaluatesTheLValueTargetOnce(t *testing.T) {
	ex, _ := runProgram(t, `
		let calls = 0;
		let obj = { a: 1 };
		function target() {
			calls++;
			return obj;
		}
		target().a += 10;
		[obj.a, calls];
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(11), float64(1)}, arr.Elements)
}
