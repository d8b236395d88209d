package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/parser"
)

func TestMathNamespaceExposesConstantsAndFunctions(t *testing.T) {
	ex, _ := runProgram(t, `Math.floor(Math.sqrt(17));`)
	require.NoError(t, ex.Err())
	require.Equal(t, float64(4), ex.Result())
}

func TestMathMaxAndMinAcceptVariadicArguments(t *testing.T) {
	ex, _ := runProgram(t, `[Math.max(1, 9, 3), Math.min(1, 9, 3)];`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{float64(9), float64(1)}, arr.Elements)
}

func TestJSONStringifyThenParseRoundTrips(t *testing.T) {
	ex, _ := runProgram(t, `
		let original = { a: 1, b: [1, 2, 3], c: "x", d: true, e: null };
		let roundTripped = JSON.parse(JSON.stringify(original));
		JSON.stringify(roundTripped);
	`)
	require.NoError(t, ex.Err())
	require.Equal(t, `{"a":1,"b":[1,2,3],"c":"x","d":true,"e":null}`, ex.Result())
}

func TestJSONStringifyWithNumericIndentPrettyPrints(t *testing.T) {
	ex, _ := runProgram(t, `JSON.stringify({ a: 1 }, null, 2);`)
	require.NoError(t, ex.Err())
	require.Equal(t, "{\n  \"a\": 1\n}", ex.Result())
}

func TestJSONParseRejectsMalformedInput(t *testing.T) {
	ex, _ := runProgram(t, `JSON.parse("{not json");`)
	require.Error(t, ex.Err())
}

func TestJSONStringifySkipsFunctionValuedProperties(t *testing.T) {
	ex, _ := runProgram(t, `
		let obj = { a: 1, f: () => 2 };
		JSON.stringify(obj);
	`)
	require.NoError(t, ex.Err())
	require.Equal(t, `{"a":1}`, ex.Result())
}

func TestUndefinedNaNAndInfinityGlobalsAreBound(t *testing.T) {
	ex, _ := runProgram(t, `[undefined === undefined, NaN !== NaN, Infinity > 1e300];`)
	require.NoError(t, ex.Err())
	arr := ex.Result().(*Array)
	require.Equal(t, []Value{true, true, true}, arr.Elements)
}

// console.debug is the one console method spec.md §1 carves out as routed
// through an injectable sink rather than a fixed logger — WithGlobalSink
// lets a host capture it without touching console.log/warn/error's own
// stdout wiring.
func TestConsoleDebugRoutesThroughTheInjectedSink(t *testing.T) {
	program, err := parser.Parse([]byte(`console.debug("a", 1); console.log("untouched");`))
	require.NoError(t, err)

	var captured []Value
	sink := func(args ...Value) {
		captured = append(captured, args...)
	}

	rt := NewRuntime()
	scope := WithGlobalSink(NewRootScope(), sink)
	ex := rt.Execute(program, scope, t.Name())

	done := make(chan struct{})
	go func() {
		ex.Start()
		<-ex.Done()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not finish within 5s")
	}

	require.NoError(t, ex.Err())
	require.Equal(t, []Value{"a", float64(1)}, captured)
}
