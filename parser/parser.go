package parser

import (
	"fmt"
	"strconv"

	"github.com/stepwise-dev/stepwise/ast"
)

// Parser is a recursive-descent statement parser over a Pratt expression
// parser, modeled on the cue-lang parser's file/decl/expr split (cue/parser)
// but built from scratch for this grammar: the cue parser consumes a
// token.File-backed scanner the same shape Lexer gives here, but CUE's
// grammar (no statements, no `await`, comma-as-separator everywhere) is too
// different to reuse beyond the overall "scan one token ahead, dispatch on
// current.Kind" structure.
type Parser struct {
	lex     *Lexer
	tok     Token
	lastEnd int
}

// ParseError reports a syntax error with its byte offset, mirroring how the
// evaluator's own errors carry structured detail instead of bare strings.
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// Parse parses a complete source file into a Program.
func Parse(src []byte) (*ast.Program, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(RBRACE /* unused sentinel: stop only at EOF */, true)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Base: ast.Base{Start: 0, End: len(src)}, Body: body, Source: src}, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return &ParseError{Message: err.Error(), Offset: tok.Start}
	}
	p.lastEnd = p.tok.End
	p.tok = tok
	return nil
}

func (p *Parser) expect(k Kind, what string) error {
	if p.tok.Kind != k {
		return &ParseError{Message: fmt.Sprintf("expected %s, got %q", what, p.tok.Literal), Offset: p.tok.Start}
	}
	return p.advance()
}

func (p *Parser) at(k Kind) bool { return p.tok.Kind == k }

// parseStatements reads statements until `until` (RBRACE for a block) or
// EOF when topLevel is set.
func (p *Parser) parseStatements(until Kind, topLevel bool) ([]ast.Node, error) {
	var body []ast.Node
	for {
		if topLevel && p.at(EOF) {
			break
		}
		if !topLevel && (p.at(until) || p.at(EOF)) {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return body, nil
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	start := p.tok.Start
	if err := p.expect(LBRACE, "'{'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(RBRACE, false)
	if err != nil {
		return nil, err
	}
	end := p.tok.End
	if err := p.expect(RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return &ast.BlockStatement{Base: baseAt(start, end), Body: body}, nil
}

func baseAt(start, end int) ast.Base {
	return ast.Base{Start: start, End: end}
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.tok.Kind {
	case LBRACE:
		return p.parseBlock()
	case LET, CONST, VAR:
		return p.parseVariableDeclaration()
	case IF:
		return p.parseIf()
	case FOR:
		return p.parseFor()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDoWhile()
	case BREAK:
		start := p.tok.Start
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeSemi()
		return &ast.BreakStatement{Base: baseAt(start, end)}, nil
	case CONTINUE:
		start := p.tok.Start
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeSemi()
		return &ast.ContinueStatement{Base: baseAt(start, end)}, nil
	case RETURN:
		return p.parseReturn()
	case FUNCTION:
		return p.parseFunctionDeclaration()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) consumeSemi() {
	if p.at(SEMI) {
		_ = p.advance()
	}
}

func (p *Parser) parseVariableDeclaration() (ast.Node, error) {
	start := p.tok.Start
	kind := p.tok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	var decls []*ast.VariableDeclarator
	for {
		if !p.at(IDENT) {
			return nil, &ParseError{Message: "expected binding name", Offset: p.tok.Start}
		}
		dstart := p.tok.Start
		name := p.tok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		var init ast.Node
		dend := p.lastEnd
		if p.at(ASSIGN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			init = e
			dend = p.lastEnd
		}
		decls = append(decls, &ast.VariableDeclarator{Base: baseAt(dstart, dend), Name: name, Init: init})
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	end := p.lastEnd
	p.consumeSemi()
	return &ast.VariableDeclaration{Base: baseAt(start, end), Kind: kind, Declarations: decls}, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var alt ast.Node
	if p.at(ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStatement{Base: baseAt(start, p.lastEnd), Test: test, Consequent: cons, Alternate: alt}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var init ast.Node
	if !p.at(SEMI) {
		var err error
		switch p.tok.Kind {
		case LET, CONST, VAR:
			init, err = p.parseVariableDeclarationNoSemi()
		default:
			init, err = p.parseExpr()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(SEMI, "';'"); err != nil {
		return nil, err
	}
	var test ast.Node
	if !p.at(SEMI) {
		var err error
		test, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(SEMI, "';'"); err != nil {
		return nil, err
	}
	var update ast.Node
	if !p.at(RPAREN) {
		var err error
		update, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Base: baseAt(start, p.lastEnd), Init: init, Test: test, Update: update, Body: body}, nil
}

// parseVariableDeclarationNoSemi parses `let x = 1, y = 2` without consuming
// a trailing `;` — used by for-loop init clauses where the loop owns the
// separator semicolons.
func (p *Parser) parseVariableDeclarationNoSemi() (ast.Node, error) {
	start := p.tok.Start
	kind := p.tok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	var decls []*ast.VariableDeclarator
	for {
		if !p.at(IDENT) {
			return nil, &ParseError{Message: "expected binding name", Offset: p.tok.Start}
		}
		dstart := p.tok.Start
		name := p.tok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		var init ast.Node
		dend := p.lastEnd
		if p.at(ASSIGN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			init = e
			dend = p.lastEnd
		}
		decls = append(decls, &ast.VariableDeclarator{Base: baseAt(dstart, dend), Name: name, Init: init})
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.VariableDeclaration{Base: baseAt(start, p.lastEnd), Kind: kind, Declarations: decls}, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Base: baseAt(start, p.lastEnd), Test: test, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expect(WHILE, "'while'"); err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	end := p.lastEnd
	p.consumeSemi()
	return &ast.DoWhileStatement{Base: baseAt(start, end), Test: test, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	var arg ast.Node
	if !p.at(SEMI) && !p.at(RBRACE) && !p.at(EOF) {
		var err error
		arg, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	end := p.lastEnd
	p.consumeSemi()
	return &ast.ReturnStatement{Base: baseAt(start, end), Argument: arg}, nil
}

// parseFunctionDeclaration desugars `function foo(...) {...}` into a
// VariableDeclaration binding foo to a named FunctionExpression — the ast
// package has no separate FunctionDeclaration node (spec.md §4.4's node set
// is exactly FunctionExpression/ArrowFunctionExpression), so a statement
// position function literal is just sugar for `const foo = function foo()
// {...}`.
func (p *Parser) parseFunctionDeclaration() (ast.Node, error) {
	start := p.tok.Start
	fn, err := p.parseFunctionExpression(false)
	if err != nil {
		return nil, err
	}
	fe := fn.(*ast.FunctionExpression)
	if fe.Name == "" {
		return nil, &ParseError{Message: "function declaration requires a name", Offset: start}
	}
	return &ast.VariableDeclaration{
		Base: baseAt(start, p.lastEnd),
		Kind: "const",
		Declarations: []*ast.VariableDeclarator{
			{Base: baseAt(start, p.lastEnd), Name: fe.Name, Init: fe},
		},
	}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Node, error) {
	start := p.tok.Start
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end := p.lastEnd
	p.consumeSemi()
	return &ast.ExpressionStatement{Base: baseAt(start, end), Expression: expr}, nil
}

// parseExpr parses a single expression. This grammar has no comma/sequence
// operator or AST node, so a comma-separated for-loop update clause such as
// `i++, j--` is a parse error.
func (p *Parser) parseExpr() (ast.Node, error) {
	return p.parseAssignExpr()
}

var assignOps = map[Kind]string{
	ASSIGN:     "=",
	PLUSEQ:     "+=",
	MINUSEQ:    "-=",
	STAREQ:     "*=",
	SLASHEQ:    "/=",
	PERCENTEQ:  "%=",
	STARSTAREQ: "**=",
	ANDANDEQ:   "&&=",
	OROREQ:     "||=",
	NULLISHEQ:  "??=",
}

func (p *Parser) parseAssignExpr() (ast.Node, error) {
	start := p.tok.Start
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.tok.Kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignmentExpression{Base: baseAt(start, p.lastEnd), Operator: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseConditional() (ast.Node, error) {
	start := p.tok.Start
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.at(QUESTION) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cons, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(COLON, "':'"); err != nil {
			return nil, err
		}
		alt, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ConditionalExpression{Base: baseAt(start, p.lastEnd), Test: test, Consequent: cons, Alternate: alt}, nil
	}
	return test, nil
}

// binary operator precedence table, lowest first. `|>` binds looser than
// `??`, matching a left-to-right pipeline reading.
var precedence = map[Kind]int{
	PIPEGT:     1,
	NULLISH:    2,
	OROR:       3,
	ANDAND:     4,
	PIPE:       5,
	CARET:      6,
	AMP:        7,
	EQ:         8,
	NEQ:        8,
	EQEQEQ:     8,
	NEQEQ:      8,
	LT:         9,
	LTE:        9,
	GT:         9,
	GTE:        9,
	IN:         9,
	INSTANCEOF: 9,
	SHL:        10,
	SHR:        10,
	USHR:       10,
	PLUS:       11,
	MINUS:      11,
	STAR:       12,
	SLASH:      12,
	PERCENT:    12,
	STARSTAR:   13,
}

var binOpText = map[Kind]string{
	PIPEGT: "|>", NULLISH: "??", OROR: "||", ANDAND: "&&",
	PIPE: "|", CARET: "^", AMP: "&",
	EQ: "==", NEQ: "!=", EQEQEQ: "===", NEQEQ: "!==",
	LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	IN: "in", INSTANCEOF: "instanceof",
	SHL: "<<", SHR: ">>", USHR: ">>>",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	STARSTAR: "**",
}

// parseBinary is a standard precedence-climbing Pratt loop. `**` is
// right-associative; every other binary operator is left-associative.
func (p *Parser) parseBinary(minPrec int) (ast.Node, error) {
	start := p.tok.Start
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := precedence[p.tok.Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		op := binOpText[p.tok.Kind]
		opKind := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		nextMin := prec + 1
		if opKind == STARSTAR {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Base: baseAt(start, p.lastEnd), Operator: op, Left: left, Right: right}
	}
}

var unaryOps = map[Kind]string{
	BANG: "!", TILDE: "~", PLUS: "+", MINUS: "-",
	VOID: "void", TYPEOF: "typeof",
}

func (p *Parser) parseUnary() (ast.Node, error) {
	start := p.tok.Start
	if op, ok := unaryOps[p.tok.Kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: baseAt(start, p.lastEnd), Operator: op, Argument: arg}, nil
	}
	if p.at(AWAIT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Base: baseAt(start, p.lastEnd), Argument: arg}, nil
	}
	if p.at(INC) || p.at(DEC) {
		op := "++"
		if p.at(DEC) {
			op = "--"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Base: baseAt(start, p.lastEnd), Operator: op, Argument: arg, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	start := p.tok.Start
	expr, err := p.parseCallOrMember()
	if err != nil {
		return nil, err
	}
	if p.at(INC) || p.at(DEC) {
		op := "++"
		if p.at(DEC) {
			op = "--"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Base: baseAt(start, p.lastEnd), Operator: op, Argument: expr, Prefix: false}, nil
	}
	return expr, nil
}

func (p *Parser) parseCallOrMember() (ast.Node, error) {
	start := p.tok.Start
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			// Keywords are valid property names (`obj.do`); only a literal
			// or EOF/ILLEGAL in property position is an error.
			if !p.at(IDENT) && p.tok.Kind < LET {
				return nil, &ParseError{Message: "expected property name after '.'", Offset: p.tok.Start}
			}
			name := p.tok.Literal
			pstart := p.tok.Start
			pend := p.tok.End
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{
				Base: baseAt(start, p.lastEnd), Object: expr,
				Property: &ast.Identifier{Base: baseAt(pstart, pend), Name: name},
				Computed: false,
			}
		case QDOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.at(LPAREN) {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				expr = &ast.CallExpression{Base: baseAt(start, p.lastEnd), Callee: expr, Arguments: args, Optional: true}
				continue
			}
			name := p.tok.Literal
			pstart := p.tok.Start
			pend := p.tok.End
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{
				Base: baseAt(start, p.lastEnd), Object: expr,
				Property: &ast.Identifier{Base: baseAt(pstart, pend), Name: name},
				Computed: false, Optional: true,
			}
		case LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RBRACKET, "']'"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: baseAt(start, p.lastEnd), Object: expr, Property: prop, Computed: true}
		case LPAREN:
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Base: baseAt(start, p.lastEnd), Callee: expr, Arguments: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArguments() ([]ast.Node, error) {
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.at(RPAREN) {
		if p.at(ELLIPSIS) {
			start := p.tok.Start
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.SpreadElement{Base: baseAt(start, p.lastEnd), Argument: arg})
		} else {
			arg, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	start := p.tok.Start
	switch p.tok.Kind {
	case NUMBER:
		lit := p.tok.Literal
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, &ParseError{Message: "invalid number literal", Offset: start}
		}
		return &ast.NumericLiteral{Base: baseAt(start, end), Value: f}, nil
	case STRING:
		lit := p.tok.Literal
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Base: baseAt(start, end), Value: lit}, nil
	case REGEXP:
		pattern, flags := splitRegexLiteral(p.tok.Literal)
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.RegExpLiteral{Base: baseAt(start, end), Pattern: pattern, Flags: flags}, nil
	case TRUE, FALSE:
		v := p.tok.Kind == TRUE
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BooleanLiteral{Base: baseAt(start, end), Value: v}, nil
	case NULL:
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLiteral{Base: baseAt(start, end)}, nil
	case UNDEFINED:
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Identifier{Base: baseAt(start, end), Name: "undefined"}, nil
	case THIS:
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ThisExpression{Base: baseAt(start, end)}, nil
	case IDENT:
		return p.parseIdentOrArrow()
	case LPAREN:
		return p.parseParenOrArrow()
	case LBRACKET:
		return p.parseArrayLiteral()
	case LBRACE:
		return p.parseObjectLiteral()
	case FUNCTION:
		return p.parseFunctionExpression(false)
	case ASYNC:
		return p.parseAsync()
	case NEW:
		return p.parseNew()
	default:
		return nil, &ParseError{Message: fmt.Sprintf("unexpected token %q", p.tok.Literal), Offset: p.tok.Start}
	}
}

func splitRegexLiteral(lit string) (pattern, flags string) {
	for i := 0; i < len(lit); i++ {
		if lit[i] == 0 {
			return lit[:i], lit[i+1:]
		}
	}
	return lit, ""
}

// parseIdentOrArrow handles a bare identifier, which might turn out to be a
// single-parameter concise arrow function (`x => x + 1`).
func (p *Parser) parseIdentOrArrow() (ast.Node, error) {
	start := p.tok.Start
	name := p.tok.Literal
	end := p.tok.End
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(ARROW) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.finishArrow(start, []*ast.Param{{Base: baseAt(start, end), Name: name}}, false)
	}
	return &ast.Identifier{Base: baseAt(start, end), Name: name}, nil
}

// parseParenOrArrow disambiguates `(a, b) => ...` from a parenthesized
// expression by first trying to parse a parameter list and checking for a
// following `=>`; when the tokens are not a parameter list, it rewinds the
// lexer to just after `(` and re-parses them as a grouped expression. The
// parameter-list attempt only accepts the shapes arrow parameter lists
// have here (bare identifiers, rest identifier); a lone `(x)` with no
// arrow is returned as the identifier itself.
func (p *Parser) parseParenOrArrow() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(RPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(ARROW, "'=>'"); err != nil {
			return nil, err
		}
		return p.finishArrow(start, nil, false)
	}

	// Try reading a plain-identifier/rest-identifier parameter list,
	// remembering the position just after '(' so a failed attempt can be
	// rewound.
	savedLex, savedTok, savedEnd := *p.lex, p.tok, p.lastEnd
	if params, ok := p.tryParamList(); ok {
		if p.at(ARROW) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishArrow(start, params, false)
		}
		// Not actually an arrow: only valid if the "list" was a single bare
		// identifier, which is also a valid parenthesized expression.
		if len(params) == 1 && !params[0].Rest {
			return &ast.Identifier{Base: baseAt(start, p.lastEnd), Name: params[0].Name}, nil
		}
		return nil, &ParseError{Message: "expected '=>' after parameter list", Offset: p.tok.Start}
	}
	*p.lex, p.tok, p.lastEnd = savedLex, savedTok, savedEnd

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return expr, nil
}

// tryParamList scans a comma-separated identifier/rest-identifier list
// followed by ')', consuming tokens as it goes. It returns ok=false when the
// token stream does not have that shape — e.g. `(1+2)` or `(a ?? 5)` — by
// which point it may already have consumed some tokens; parseParenOrArrow
// rewinds them, parseAsync reports a parse error.
func (p *Parser) tryParamList() ([]*ast.Param, bool) {
	if !p.at(IDENT) && !p.at(ELLIPSIS) {
		return nil, false
	}
	var params []*ast.Param
	for {
		if p.at(ELLIPSIS) {
			start := p.tok.Start
			if err := p.advance(); err != nil {
				return nil, false
			}
			if !p.at(IDENT) {
				return nil, false
			}
			name := p.tok.Literal
			end := p.tok.End
			if err := p.advance(); err != nil {
				return nil, false
			}
			params = append(params, &ast.Param{Base: baseAt(start, end), Name: name, Rest: true})
			break
		}
		if !p.at(IDENT) {
			return nil, false
		}
		start := p.tok.Start
		name := p.tok.Literal
		end := p.tok.End
		if err := p.advance(); err != nil {
			return nil, false
		}
		params = append(params, &ast.Param{Base: baseAt(start, end), Name: name})
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, false
			}
			continue
		}
		break
	}
	if !p.at(RPAREN) {
		return nil, false
	}
	if err := p.advance(); err != nil {
		return nil, false
	}
	return params, true
}

func (p *Parser) finishArrow(start int, params []*ast.Param, async bool) (ast.Node, error) {
	var body ast.Node
	if p.at(LBRACE) {
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		body = b
	} else {
		e, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		body = e
	}
	return &ast.ArrowFunctionExpression{Base: baseAt(start, p.lastEnd), Params: params, Body: body, Async: async}, nil
}

func (p *Parser) parseAsync() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(FUNCTION) {
		fn, err := p.parseFunctionExpression(true)
		if err != nil {
			return nil, err
		}
		return fn, nil
	}
	if p.at(IDENT) {
		name := p.tok.Literal
		nstart := p.tok.Start
		nend := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(ARROW, "'=>'"); err != nil {
			return nil, err
		}
		return p.finishArrow(start, []*ast.Param{{Base: baseAt(nstart, nend), Name: name}}, true)
	}
	if p.at(LPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(RPAREN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(ARROW, "'=>'"); err != nil {
				return nil, err
			}
			return p.finishArrow(start, nil, true)
		}
		params, ok := p.tryParamList()
		if !ok {
			return nil, &ParseError{Message: "expected async arrow parameter list", Offset: p.tok.Start}
		}
		if err := p.expect(ARROW, "'=>'"); err != nil {
			return nil, err
		}
		return p.finishArrow(start, params, true)
	}
	return nil, &ParseError{Message: "expected 'function' or an arrow parameter list after 'async'", Offset: p.tok.Start}
}

func (p *Parser) parseFunctionExpression(async bool) (ast.Node, error) {
	start := p.tok.Start
	if err := p.expect(FUNCTION, "'function'"); err != nil {
		return nil, err
	}
	name := ""
	if p.at(IDENT) {
		name = p.tok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var params []*ast.Param
	for !p.at(RPAREN) {
		param, err := p.parseOneParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionExpression{Base: baseAt(start, p.lastEnd), Name: name, Params: params, Body: body, Async: async}, nil
}

func (p *Parser) parseNew() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	callee, err := p.parseCallOrMemberNoCall()
	if err != nil {
		return nil, err
	}
	var args []ast.Node
	if p.at(LPAREN) {
		args, err = p.parseArguments()
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpression{Base: baseAt(start, p.lastEnd), Callee: callee, Arguments: args}, nil
}

// parseCallOrMemberNoCall parses a member-expression chain for `new`'s
// callee without consuming a trailing call — `new a.b.C(...)` must bind the
// `(...)` to the NewExpression itself, not to a nested CallExpression.
func (p *Parser) parseCallOrMemberNoCall() (ast.Node, error) {
	start := p.tok.Start
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name := p.tok.Literal
			pstart := p.tok.Start
			pend := p.tok.End
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{
				Base: baseAt(start, p.lastEnd), Object: expr,
				Property: &ast.Identifier{Base: baseAt(pstart, pend), Name: name},
			}
		case LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RBRACKET, "']'"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: baseAt(start, p.lastEnd), Object: expr, Property: prop, Computed: true}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArrayLiteral() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	var elems []ast.Node
	for !p.at(RBRACKET) {
		if p.at(COMMA) {
			elems = append(elems, nil)
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.at(ELLIPSIS) {
			estart := p.tok.Start
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, &ast.SpreadElement{Base: baseAt(estart, p.lastEnd), Argument: arg})
		} else {
			e, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	end := p.tok.End
	if err := p.expect(RBRACKET, "']'"); err != nil {
		return nil, err
	}
	return &ast.ArrayExpression{Base: baseAt(start, end), Elements: elems}, nil
}

func (p *Parser) parseObjectLiteral() (ast.Node, error) {
	start := p.tok.Start
	if err := p.advance(); err != nil {
		return nil, err
	}
	var props []ast.Node
	for !p.at(RBRACE) {
		if p.at(ELLIPSIS) {
			estart := p.tok.Start
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			props = append(props, &ast.SpreadElement{Base: baseAt(estart, p.lastEnd), Argument: arg})
		} else {
			prop, err := p.parseObjectMember()
			if err != nil {
				return nil, err
			}
			props = append(props, prop)
		}
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	end := p.tok.End
	if err := p.expect(RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return &ast.ObjectExpression{Base: baseAt(start, end), Properties: props}, nil
}

func (p *Parser) parseObjectMember() (ast.Node, error) {
	start := p.tok.Start
	computed := false
	var key ast.Node
	if p.at(LBRACKET) {
		computed = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		k, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		key = k
		if err := p.expect(RBRACKET, "']'"); err != nil {
			return nil, err
		}
	} else if p.at(STRING) {
		key = &ast.StringLiteral{Base: baseAt(p.tok.Start, p.tok.End), Value: p.tok.Literal}
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.at(NUMBER) {
		f, _ := strconv.ParseFloat(p.tok.Literal, 64)
		key = &ast.NumericLiteral{Base: baseAt(p.tok.Start, p.tok.End), Value: f}
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		name := p.tok.Literal
		key = &ast.Identifier{Base: baseAt(p.tok.Start, p.tok.End), Name: name}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.at(LPAREN) {
		// Shorthand method: `key() { ... }`.
		fnStart := start
		params, err := p.parseParamsParenthesized()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		fn := &ast.FunctionExpression{Base: baseAt(fnStart, p.lastEnd), Params: params, Body: body}
		return &ast.ObjectMethod{Base: baseAt(start, p.lastEnd), Key: key, Computed: computed, Function: fn}, nil
	}

	if p.at(COLON) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ObjectProperty{Base: baseAt(start, p.lastEnd), Key: key, Value: val, Computed: computed}, nil
	}

	// Shorthand property: `{ x }` means `{ x: x }`.
	id, ok := key.(*ast.Identifier)
	if !ok {
		return nil, &ParseError{Message: "expected ':' after object key", Offset: p.tok.Start}
	}
	return &ast.ObjectProperty{
		Base: baseAt(start, p.lastEnd), Key: key,
		Value: &ast.Identifier{Base: baseAt(start, p.lastEnd), Name: id.Name},
		Computed: false, Shorthand: true,
	}, nil
}

func (p *Parser) parseParamsParenthesized() ([]*ast.Param, error) {
	if err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var params []*ast.Param
	for !p.at(RPAREN) {
		param, err := p.parseOneParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return params, p.expect(RPAREN, "')'")
}

// parseOneParam parses a single parameter: a plain identifier, a trailing
// `...rest` identifier, or — syntactically accepted but always rejected at
// bind time — an object or array destructuring pattern (spec.md §4.5
// "other parameter patterns fail with UnsupportedParam"). Shared by
// parseFunctionExpression and parseParamsParenthesized (object-literal
// shorthand methods) so both reject the same way. Arrow parameter lists do
// not come here: they go through tryParamList, which accepts only
// identifiers and a rest identifier, so a pattern in an arrow parameter
// list is a ParseError.
func (p *Parser) parseOneParam() (*ast.Param, error) {
	pstart := p.tok.Start
	rest := false
	if p.at(ELLIPSIS) {
		rest = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.at(LBRACE) || p.at(LBRACKET) {
		return p.parseUnsupportedParamPattern(pstart)
	}
	if !p.at(IDENT) {
		return nil, &ParseError{Message: "expected parameter name", Offset: p.tok.Start}
	}
	pname := p.tok.Literal
	pend := p.tok.End
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Param{Base: baseAt(pstart, pend), Name: pname, Rest: rest}, nil
}

// parseUnsupportedParamPattern consumes a balanced `{...}` or `[...]`
// parameter pattern without validating its contents — this grammar has no
// destructuring-pattern AST shape to parse it into — and returns a
// placeholder Param carrying which bracket kind it saw, so bindParams can
// surface UnsupportedParamError instead of the parser rejecting the
// program outright at parse time.
func (p *Parser) parseUnsupportedParamPattern(pstart int) (*ast.Param, error) {
	open, close, kind := LBRACE, RBRACE, "object"
	if p.at(LBRACKET) {
		open, close, kind = LBRACKET, RBRACKET, "array"
	}
	depth := 0
	for {
		switch p.tok.Kind {
		case open:
			depth++
		case close:
			depth--
		case EOF:
			return nil, &ParseError{Message: "unterminated parameter pattern", Offset: p.tok.Start}
		}
		pend := p.tok.End
		if err := p.advance(); err != nil {
			return nil, err
		}
		if depth == 0 {
			return &ast.Param{Base: baseAt(pstart, pend), Pattern: kind}, nil
		}
	}
}
