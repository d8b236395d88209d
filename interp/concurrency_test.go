package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/parser"
)

// Two executions that share a root scope and both await a setTimeout-backed
// sleep (spec.md §8 scenario 6 "cooperative interleaving") must never step
// concurrently just because their timers fire close together — each push
// onto the shared array must land, with none lost to a racing write.
func TestConcurrentExecutionsSharingARootScopeDoNotRaceOnSleep(t *testing.T) {
	src := `
		const sleep = ms => new Promise(r => setTimeout(r, ms));
		async function run(tag) {
			await sleep(1);
			shared.push(tag);
		}
		await run(tag);
	`

	rootScope := WithGlobal(NewRootScope())
	rootScope.Define("shared", NewArray(nil))

	rt := NewRuntime()
	var executions []*Execution
	for i := 0; i < 8; i++ {
		program, err := parser.Parse([]byte(src))
		require.NoError(t, err)

		scope := rootScope.Child()
		scope.Define("tag", float64(i))

		ex := rt.Execute(program, scope, "concurrent-sleep")
		executions = append(executions, ex)
		ex.Start()
	}

	for _, ex := range executions {
		select {
		case <-ex.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("execution did not finish within 5s")
		}
		require.NoError(t, ex.Err())
	}

	shared, ok := rootScope.Lookup("shared")
	require.True(t, ok)
	arr := shared.(*Array)
	require.Len(t, arr.Elements, 8, "every execution's push must land exactly once")

	seen := map[float64]bool{}
	for _, v := range arr.Elements {
		seen[v.(float64)] = true
	}
	require.Len(t, seen, 8, "no two executions should have collided on the same slot")
}
