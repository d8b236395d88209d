package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/ast"
)

func TestParseValidPrograms(t *testing.T) {
	valids := []string{
		"",
		"1 + 2;",
		"let x = 1; const y = 2; var z = 3;",
		"if (a) { b(); } else { c(); }",
		"for (let i = 0; i < 10; i++) { console.log(i); }",
		"while (true) { break; }",
		"do { x++; } while (x < 10);",
		"function add(a, b) { return a + b; }",
		"const f = (a, b) => a + b;",
		"const g = async (a) => { return await a; };",
		"const obj = { a: 1, b() { return 2; }, ...rest };",
		"const arr = [1, 2, ...rest, ,];",
		"a?.b?.c();",
		"a ?? b;",
		"a |> b |> c;",
		"x &&= 1; x ||= 2; x ??= 3;",
		"new Foo.Bar(1, 2);",
		"/abc/gi.test(x);",
		"for (;;) { continue; }",
	}
	for _, src := range valids {
		t.Run(src, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.NoError(t, err, "source: %s", src)
		})
	}
}

func TestParseInvalidPrograms(t *testing.T) {
	invalids := []string{
		"let;",
		"if (a {",
		"function () {}",
		"a.;",
		"1 +",
	}
	for _, src := range invalids {
		t.Run(src, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err, "source: %s", src)
		})
	}
}

func TestParseFunctionDeclarationDesugarsToConstBinding(t *testing.T) {
	prog, err := Parse([]byte("function add(a, b) { return a + b; }"))
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	require.True(t, ok, "expected a VariableDeclaration, got %T", prog.Body[0])
	assert.Equal(t, "const", decl.Kind)
	require.Len(t, decl.Declarations, 1)
	assert.Equal(t, "add", decl.Declarations[0].Name)

	fe, ok := decl.Declarations[0].Init.(*ast.FunctionExpression)
	require.True(t, ok, "expected a FunctionExpression initializer, got %T", decl.Declarations[0].Init)
	assert.Equal(t, "add", fe.Name)
	require.Len(t, fe.Params, 2)
	assert.Equal(t, "a", fe.Params[0].Name)
	assert.Equal(t, "b", fe.Params[1].Name)
}

func TestParseArrowVsParenExpression(t *testing.T) {
	prog, err := Parse([]byte("const f = (a) => a;"))
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.VariableDeclaration)
	_, ok := decl.Declarations[0].Init.(*ast.ArrowFunctionExpression)
	assert.True(t, ok, "expected arrow function, got %T", decl.Declarations[0].Init)

	prog2, err := Parse([]byte("const f = (a);"))
	require.NoError(t, err)
	decl2 := prog2.Body[0].(*ast.VariableDeclaration)
	_, ok = decl2.Declarations[0].Init.(*ast.Identifier)
	assert.True(t, ok, "expected a bare parenthesized identifier, got %T", decl2.Declarations[0].Init)
}

func TestParseRestParameter(t *testing.T) {
	prog, err := Parse([]byte("function f(a, ...rest) { return rest; }"))
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fe := decl.Declarations[0].Init.(*ast.FunctionExpression)
	require.Len(t, fe.Params, 2)
	assert.False(t, fe.Params[0].Rest)
	assert.True(t, fe.Params[1].Rest)
	assert.Equal(t, "rest", fe.Params[1].Name)
}

func TestParseForLoopClauses(t *testing.T) {
	prog, err := Parse([]byte("for (let i = 0; i < 10; i = i + 1) { x; }"))
	require.NoError(t, err)
	fs, ok := prog.Body[0].(*ast.ForStatement)
	require.True(t, ok, "expected a ForStatement, got %T", prog.Body[0])
	assert.NotNil(t, fs.Init)
	assert.NotNil(t, fs.Test)
	assert.NotNil(t, fs.Update)
	assert.NotNil(t, fs.Body)
}

func TestParseOptionalChainFlags(t *testing.T) {
	prog, err := Parse([]byte("a?.b;"))
	require.NoError(t, err)
	es := prog.Body[0].(*ast.ExpressionStatement)
	me, ok := es.Expression.(*ast.MemberExpression)
	require.True(t, ok, "expected a MemberExpression, got %T", es.Expression)
	assert.True(t, me.Optional)
	assert.False(t, me.Computed)
}

func TestParsePrecedenceOfStarStarIsRightAssociative(t *testing.T) {
	// 2 ** 3 ** 2 must parse as 2 ** (3 ** 2), not (2 ** 3) ** 2.
	prog, err := Parse([]byte("2 ** 3 ** 2;"))
	require.NoError(t, err)
	es := prog.Body[0].(*ast.ExpressionStatement)
	outer, ok := es.Expression.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "**", outer.Operator)

	left, ok := outer.Left.(*ast.NumericLiteral)
	require.True(t, ok, "expected left operand to be the literal 2, got %T", outer.Left)
	assert.Equal(t, float64(2), left.Value)

	_, ok = outer.Right.(*ast.BinaryExpression)
	assert.True(t, ok, "expected right operand to itself be a ** expression, got %T", outer.Right)
}
