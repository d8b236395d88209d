package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayMethodsMutateAndReturnAsSpecified(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want Value
	}{
		{"push returns new length", `let a = [1, 2]; a.push(3, 4);`, float64(4)},
		{"pop removes and returns last element", `let a = [1, 2, 3]; a.pop();`, float64(3)},
		{"pop on empty array is undefined", `let a = []; a.pop();`, Undefined},
		{"shift removes and returns first element", `let a = [1, 2, 3]; a.shift();`, float64(1)},
		{"includes finds a matching element", `[1, 2, 3].includes(2);`, true},
		{"includes reports false for a miss", `[1, 2, 3].includes(9);`, false},
		{"indexOf finds the first match", `[1, 2, 3, 2].indexOf(2);`, float64(1)},
		{"indexOf reports -1 for a miss", `[1, 2, 3].indexOf(9);`, float64(-1)},
		{"join uses a default comma separator", `[1, 2, 3].join();`, "1,2,3"},
		{"join honors a custom separator", `[1, 2, 3].join("-");`, "1-2-3"},
		{"reduce with no initial value uses the first element", `[1, 2, 3, 4].reduce((acc, v) => acc + v);`, float64(10)},
		{"reduce with an initial value starts there", `[1, 2, 3].reduce((acc, v) => acc + v, 10);`, float64(16)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex, _ := runProgram(t, tc.src)
			require.NoError(t, ex.Err())
			require.Equal(t, tc.want, ex.Result())
		})
	}
}

func TestArraySliceDoesNotMutateTheSource(t *testing.T) {
	ex, _ := runProgram(t, `
		let a = [1, 2, 3, 4, 5];
		let b = a.slice(1, 3);
		[a.length, b];
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, float64(5), arr.Elements[0])
	sliced := arr.Elements[1].(*Array)
	require.Equal(t, []Value{float64(2), float64(3)}, sliced.Elements)
}

func TestArraySliceNegativeIndices(t *testing.T) {
	ex, _ := runProgram(t, `[1, 2, 3, 4, 5].slice(-2);`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(4), float64(5)}, arr.Elements)
}

func TestArrayConcatFlattensOneLevelOfArrayArguments(t *testing.T) {
	ex, _ := runProgram(t, `[1, 2].concat([3, 4], 5);`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(1), float64(2), float64(3), float64(4), float64(5)}, arr.Elements)
}

func TestArrayReverseMutatesInPlace(t *testing.T) {
	ex, _ := runProgram(t, `
		let a = [1, 2, 3];
		let b = a.reverse();
		a.push(99);
		b;
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(3), float64(2), float64(1), float64(99)}, arr.Elements,
		"reverse must return the same underlying array, not a copy")
}

func TestArrayForEachVisitsElementIndexAndArray(t *testing.T) {
	ex, _ := runProgram(t, `
		let seen = [];
		[10, 20, 30].forEach((el, i, arr) => {
			seen.push([el, i, arr.length]);
		});
		seen;
	`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Len(t, arr.Elements, 3)
	first := arr.Elements[0].(*Array)
	require.Equal(t, []Value{float64(10), float64(0), float64(3)}, first.Elements)
}

func TestArrayFilterKeepsOnlyTruthyResults(t *testing.T) {
	ex, _ := runProgram(t, `[1, 2, 3, 4, 5, 6].filter((v) => v % 2 === 0);`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(2), float64(4), float64(6)}, arr.Elements)
}

func TestArrayReduceOnEmptyArrayWithNoInitialValueThrows(t *testing.T) {
	ex, _ := runProgram(t, `[].reduce((acc, v) => acc + v);`)
	require.Error(t, ex.Err())
}

func TestArrayMapCallbackErrorPropagatesAsExecutionError(t *testing.T) {
	ex, _ := runProgram(t, `[1, 2, 3].map((v) => v.nonexistent.deeper);`)
	require.Error(t, ex.Err())
}
