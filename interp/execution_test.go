package interp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/parser"
)

func TestExecutionCanBeCancelledWhileAwaitingAPendingPromise(t *testing.T) {
	program, err := parser.Parse([]byte("await p;"))
	require.NoError(t, err)

	pending := NewObservablePromise(nil)
	scope := WithGlobal(NewRootScope())
	scope.Define("p", pending)

	rt := NewRuntime()
	ex := rt.Execute(program, scope, "cancel-test")
	ex.Start()

	require.Eventually(t, func() bool {
		return ex.State().AwaitingPromise() != nil
	}, time.Second, time.Millisecond, "execution never parked at the await")

	pending.Abort()

	select {
	case <-ex.Done():
	case <-time.After(time.Second):
		t.Fatal("execution did not finish after its awaited promise was aborted")
	}
	assert.Error(t, ex.Err())
}

func TestExecutionWaitResolvesAfterCompletion(t *testing.T) {
	program, err := parser.Parse([]byte("1 + 1;"))
	require.NoError(t, err)

	rt := NewRuntime()
	ex := rt.Execute(program, WithGlobal(NewRootScope()), "wait-test")

	waitPromise := ex.Wait()
	settled := make(chan struct{})
	waitPromise.OnSettle(func() { close(settled) })

	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("Wait()'s promise never settled")
	}
	assert.Equal(t, Fulfilled, waitPromise.State())
	assert.Equal(t, float64(2), ex.Result())
}

func TestExecutionWaitPropagatesAGuestError(t *testing.T) {
	program, err := parser.Parse([]byte("doesNotExist;"))
	require.NoError(t, err)

	rt := NewRuntime()
	ex := rt.Execute(program, WithGlobal(NewRootScope()), "wait-error-test")

	waitPromise := ex.Wait()
	settled := make(chan struct{})
	waitPromise.OnSettle(func() { close(settled) })
	<-settled

	assert.Equal(t, Rejected, waitPromise.State())
	assert.Error(t, waitPromise.Err())
}

func TestRuntimeWaitAllDrivesEveryRegisteredExecution(t *testing.T) {
	rt := NewRuntime()
	for i := 0; i < 3; i++ {
		program, err := parser.Parse([]byte("1 + 1;"))
		require.NoError(t, err)
		rt.Execute(program, WithGlobal(NewRootScope()), "batch")
	}

	err := rt.WaitAll(context.Background())
	require.NoError(t, err)

	for _, ex := range rt.Executions() {
		assert.NoError(t, ex.Err())
		assert.Equal(t, float64(2), ex.Result())
	}
}

func TestRuntimeWaitAllReturnsFirstError(t *testing.T) {
	rt := NewRuntime()
	ok, err := parser.Parse([]byte("1 + 1;"))
	require.NoError(t, err)
	bad, err := parser.Parse([]byte("doesNotExist;"))
	require.NoError(t, err)

	rt.Execute(ok, WithGlobal(NewRootScope()), "ok")
	rt.Execute(bad, WithGlobal(NewRootScope()), "bad")

	assert.Error(t, rt.WaitAll(context.Background()))
}

func TestRuntimeExecutionLookupByID(t *testing.T) {
	rt := NewRuntime()
	program, err := parser.Parse([]byte("1;"))
	require.NoError(t, err)
	ex := rt.Execute(program, WithGlobal(NewRootScope()), "lookup-test")

	found, ok := rt.Execution(ex.ID())
	require.True(t, ok)
	assert.Same(t, ex, found)

	_, ok = rt.Execution(NewRuntime().ID())
	assert.False(t, ok)
}
