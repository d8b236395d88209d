package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackPushPopTopOrdering(t *testing.T) {
	s := NewStack()
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Top())

	a := NewFrame(nil, nil, RoleNone)
	b := NewFrame(nil, nil, RoleNone)
	s.Push(a)
	s.Push(b)

	require.Equal(t, 2, s.Len())
	assert.Same(t, b, s.Top())

	popped := s.Pop()
	assert.Same(t, b, popped)
	assert.Equal(t, 1, s.Len())
	assert.Same(t, a, s.Top())
}

func TestStackFramesReturnsAnIndependentCopy(t *testing.T) {
	s := NewStack()
	s.Push(NewFrame(nil, nil, RoleNone))

	snapshot := s.Frames()
	require.Len(t, snapshot, 1)

	s.Push(NewFrame(nil, nil, RoleNone))
	assert.Len(t, snapshot, 1, "a previously taken snapshot must not observe later pushes")
	assert.Equal(t, 2, s.Len())
}
