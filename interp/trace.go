package interp

import (
	"fmt"
	"os"
	"strings"

	"github.com/stepwise-dev/stepwise/ast"
)

// traceEnter prints one line describing the frame Step is about to drive,
// gated by runtime.IsDebug (spec.md §6): `[desc:step] <indent><NodeType>
// <index>:<subIndex> <sourceLineSlice>`. Modeled on yaegi's env-gated AST/
// CFG dump style (interp.go's debugger hooks): terse, one line per step,
// safe to leave compiled in.
func (ex *Execution) traceEnter() {
	f := ex.state.stack.Top()
	if f == nil {
		return
	}
	depth := ex.state.stack.Len()
	fmt.Fprintf(os.Stderr, "[%s:step] %s%s %d:%d %s\n",
		ex.desc, traceIndent(depth), nodeTypeName(f.Node), f.Index, f.SubIndex, ex.traceSlice(f.Node))
}

// traceReturn prints the matching return line for a frame ret()/unwindTo
// just delivered value out of: `[desc:step] <indent>→ <value>`. depth is
// the stack depth the frame occupied (one deeper than the parent it is
// returning into), matching traceEnter's indent for the same frame.
func (ex *Execution) traceReturn(depth int, value Value) {
	fmt.Fprintf(os.Stderr, "[%s:step] %s→ %s\n", ex.desc, traceIndent(depth), toDisplayString(value))
}

func traceIndent(depth int) string {
	if depth <= 1 {
		return ""
	}
	return strings.Repeat("  ", depth-1)
}

// nodeTypeName strips the package-qualified "*ast." prefix fmt's %T gives a
// node pointer, leaving the bare node kind (spec.md §6 "<NodeType>").
func nodeTypeName(n ast.Node) string {
	s := fmt.Sprintf("%T", n)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// traceSlice returns the source text node spans, collapsed to one line, or
// "<no source>" if this execution has no program text to slice (e.g. a
// frame built directly in a test without going through Runtime.Execute or
// a UserFunction call). AST start/end offsets exist for exactly this
// purpose (spec.md §6 "used only for trace slicing").
func (ex *Execution) traceSlice(n ast.Node) string {
	if ex.source == nil {
		return "<no source>"
	}
	start, end := n.Pos()
	if start < 0 || end > len(ex.source) || start > end {
		return "<no source>"
	}
	slice := string(ex.source[start:end])
	slice = strings.Join(strings.Fields(slice), " ")
	const maxLen = 80
	if len(slice) > maxLen {
		slice = slice[:maxLen] + "…"
	}
	return slice
}
