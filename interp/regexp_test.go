package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileRegExpAppliesCaseInsensitiveFlag(t *testing.T) {
	re, err := compileRegExp("abc", "i")
	require.NoError(t, err)
	assert.True(t, re.Test("ABC"))
	assert.True(t, re.global == false)
}

func TestCompileRegExpMarksGlobalFlag(t *testing.T) {
	re, err := compileRegExp("a+", "g")
	require.NoError(t, err)
	assert.True(t, re.global)
}

func TestCompileRegExpRejectsAnUnsupportedFlag(t *testing.T) {
	_, err := compileRegExp("a", "z")
	assert.Error(t, err)
}

func TestCompileRegExpRejectsInvalidPattern(t *testing.T) {
	_, err := compileRegExp("(unterminated", "")
	assert.Error(t, err)
}

func TestRegExpString(t *testing.T) {
	re, err := compileRegExp("a+", "gi")
	require.NoError(t, err)
	assert.Equal(t, "/a+/gi", re.String())
}

func TestRegExpPropertiesAreReachableFromGuestCode(t *testing.T) {
	ex, _ := runProgram(t, `
		let re = /^a+$/gi;
		[re.test("AAA"), re.test("b"), re.source, re.flags, re.global];
	`)
	require.NoError(t, ex.Err())
	arr, ok := ex.Result().(*Array)
	require.True(t, ok, "expected an Array result, got %T", ex.Result())
	require.Equal(t, []Value{true, false, "^a+$", "gi", true}, arr.Elements)
}
