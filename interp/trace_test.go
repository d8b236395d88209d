package interp

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/parser"
)

func TestTraceEnterEmitsOneLinePerStepWhenDebugIsEnabled(t *testing.T) {
	program, err := parser.Parse([]byte("1 + 1;"))
	require.NoError(t, err)

	rt := NewRuntime()
	rt.IsDebug = true
	ex := rt.Execute(program, WithGlobal(NewRootScope()), "trace-test")

	r, w, err := os.Pipe()
	require.NoError(t, err)
	prevStderr := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = prevStderr }()

	require.NoError(t, ex.Step())

	w.Close()
	os.Stderr = prevStderr

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	out := string(buf[:n])

	require.Contains(t, out, "[trace-test:step]")
	// spec.md §6: "[desc:step] <indent><NodeType> <index>:<subIndex>
	// <sourceLineSlice>" — the root frame's own enter line, with no raw
	// byte offsets and with the node's actual source text sliced out.
	require.Contains(t, out, "[trace-test:step] Program 0:0 1 + 1;")
	require.NotContains(t, out, "@", "must not fall back to the old offset format")
}

func TestTraceEmitsAReturnLineForEveryCompletedFrame(t *testing.T) {
	program, err := parser.Parse([]byte("1 + 1;"))
	require.NoError(t, err)

	rt := NewRuntime()
	rt.IsDebug = true
	ex := rt.Execute(program, WithGlobal(NewRootScope()), "trace-test")

	r, w, err := os.Pipe()
	require.NoError(t, err)
	prevStderr := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = prevStderr }()

	for len(ex.State().Stack()) > 0 {
		require.NoError(t, ex.Step())
	}

	w.Close()
	os.Stderr = prevStderr

	buf := make([]byte, 8192)
	n, _ := r.Read(buf)
	out := string(buf[:n])

	// spec.md §6's return line: "[desc:step] <indent>→ <value>" — emitted
	// by ret()/unwindTo whenever a frame delivers its value to its parent,
	// not just the one printed by traceEnter on the way in.
	require.Contains(t, out, "[trace-test:step] → 2")
}

func TestTraceEnterIsSilentWhenTheStackIsEmpty(t *testing.T) {
	ex := &Execution{desc: "empty", state: ExecutionState{stack: NewStack()}}
	// Nothing pushed: must not panic on a nil top-of-stack.
	ex.traceEnter()
}
