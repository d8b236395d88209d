package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDeclareThenLookupIsUninitialized(t *testing.T) {
	s := NewRootScope()
	s.Declare("x")
	v, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Same(t, Uninitialized, v)
}

func TestScopeAssignWalksParentChain(t *testing.T) {
	parent := NewRootScope()
	parent.Define("x", float64(1))
	child := parent.Child()

	ok := child.Assign("x", float64(2))
	require.True(t, ok)

	v, _ := parent.Lookup("x")
	assert.Equal(t, float64(2), v, "Assign must overwrite the declaring scope, not shadow it in child")
}

func TestScopeAssignReportsFalseForUnknownName(t *testing.T) {
	s := NewRootScope()
	assert.False(t, s.Assign("neverDeclared", float64(1)))
}

func TestScopeShallowCopyIsIndependentOfSource(t *testing.T) {
	src := NewRootScope()
	src.Define("i", float64(0))
	cp := src.ShallowCopy()

	cp.Set("i", float64(99))
	v, _ := src.Lookup("i")
	assert.Equal(t, float64(0), v, "mutating the copy must not affect the source scope's own binding")

	src.Set("i", float64(1))
	v, _ = cp.Lookup("i")
	assert.Equal(t, float64(99), v, "mutating the source after copying must not affect the copy")
}

func TestScopeShallowCopySharesParent(t *testing.T) {
	parent := NewRootScope()
	parent.Define("outer", "value")
	src := parent.Child()
	cp := src.ShallowCopy()

	v, ok := cp.Lookup("outer")
	require.True(t, ok, "a shallow copy must still see bindings from the shared parent chain")
	assert.Equal(t, "value", v)
}

func TestWithGlobalNeverOverridesHostSuppliedBindings(t *testing.T) {
	base := NewRootScope()
	base.Define("console", "host override")

	WithGlobal(base)

	v, ok := base.Lookup("console")
	require.True(t, ok)
	assert.Equal(t, "host override", v)
}

func TestWithGlobalPopulatesAmbientBindings(t *testing.T) {
	base := WithGlobal(NewRootScope())
	for _, name := range []string{"console", "Math", "JSON", "Promise", "setTimeout", "clearTimeout", "undefined", "NaN", "Infinity"} {
		_, ok := base.Lookup(name)
		assert.True(t, ok, "expected ambient binding %q", name)
	}
}
