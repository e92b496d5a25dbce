// Package parser turns a token stream into K's AST via precedence
// climbing over a mutable operator table.
//
// Design: a struct holding the lexer and the current token plus
// match/check/advance/consume-style helpers, in the shape of the
// teacher's pkg/frontend.Parser, generalized from Typthon's indentation-
// sensitive statement grammar to K's precedence-climbing expression
// grammar (spec.md §4.2). Every production that can fail returns a
// *kerr.ParseError as a plain Go error rather than appending to an
// error slice, since K's driver treats each top-level construct as an
// independent unit of recovery.
package parser

import (
	"github.com/kale-lang/kalec/pkg/ast"
	"github.com/kale-lang/kalec/pkg/kerr"
	"github.com/kale-lang/kalec/pkg/lexer"
	"github.com/kale-lang/kalec/pkg/token"
)

// Parser holds one lexer's worth of parsing state: the current token,
// its start location, and the mutable binary-operator precedence table
// (spec.md §4.2). The table lives here rather than as a package-level
// constant because user-defined binary operators mutate it as their
// definitions compile.
type Parser struct {
	lex        *lexer.Lexer
	cur        token.Token
	curLoc     token.Location
	precedence map[byte]int

	// AnonExprName names the synthetic prototype ParseTopLevelExpr
	// wraps a bare expression in. Defaults to ast.AnonExprName.
	AnonExprName string
}

// New creates a Parser reading from lex and primes the first token.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{
		lex:          lex,
		precedence:   defaultPrecedence(),
		AnonExprName: ast.AnonExprName,
	}
	p.advance()
	return p
}

func defaultPrecedence() map[byte]int {
	return map[byte]int{'=': 2, '<': 10, '+': 20, '-': 20, '*': 40, '/': 40}
}

// RegisterOperator inserts or overwrites op's precedence, returning
// whatever entry it replaced so a failed definition can roll back to
// exactly that state instead of erasing the entry outright. Called by
// the code generator before it lowers the body of a user
// binary-operator definition; the entry stays if lowering succeeds and
// is undone with RestoreOperator if it fails.
func (p *Parser) RegisterOperator(op byte, prec int) (prevPrec int, hadPrev bool) {
	prevPrec, hadPrev = p.precedence[op]
	p.precedence[op] = prec
	return prevPrec, hadPrev
}

// RestoreOperator undoes a RegisterOperator call for a definition that
// failed to compile: reinstates the entry it overwrote, or removes the
// operator entirely if RegisterOperator reports there was none,
// matching spec.md §8's "pre-existing entry is unchanged" rollback.
func (p *Parser) RestoreOperator(op byte, prevPrec int, hadPrev bool) {
	if hadPrev {
		p.precedence[op] = prevPrec
	} else {
		delete(p.precedence, op)
	}
}

// Precedence reports op's registered binary precedence.
func (p *Parser) Precedence(op byte) (int, bool) {
	prec, ok := p.precedence[op]
	return prec, ok
}

// Current returns the token the parser is currently positioned on.
func (p *Parser) Current() token.Token { return p.cur }

// AtEOF reports whether the parser has consumed the entire input.
func (p *Parser) AtEOF() bool { return p.cur.Kind == token.Eof }

// TokenCount reports how many tokens have been lexed so far, for
// klog.Lexed.
func (p *Parser) TokenCount() int { return p.lex.TokenCount() }

// Recover discards the current token. The driver calls this exactly
// once after a ParseError to resynchronize before retrying the next
// top-level construct (spec.md §4.2's "minimal error recovery").
func (p *Parser) Recover() { p.advance() }

func (p *Parser) advance() {
	p.curLoc = p.lex.GetLocation()
	p.cur = p.lex.Next()
}

func (p *Parser) curChar() (byte, bool) {
	if p.cur.Kind == token.Char {
		return p.cur.Ch, true
	}
	return 0, false
}

func (p *Parser) curIsChar(ch byte) bool {
	c, ok := p.curChar()
	return ok && c == ch
}

func (p *Parser) curIsKeyword(kw token.Keyword) bool {
	return p.cur.Kind == token.KeywordTok && p.cur.KeywordVal == kw
}

// ParseDefinition parses `def prototype expression`.
func (p *Parser) ParseDefinition() (*ast.Function, error) {
	p.advance() // consume 'def'
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Proto: proto, Body: body}, nil
}

// ParseExtern parses `extern prototype`.
func (p *Parser) ParseExtern() (*ast.Prototype, error) {
	p.advance() // consume 'extern'
	return p.parsePrototype()
}

// ParseTopLevelExpr wraps a bare expression in an anonymous Function
// whose prototype is named AnonExprName, per spec.md §4.2.
func (p *Parser) ParseTopLevelExpr() (*ast.Function, error) {
	loc := p.curLoc
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	proto := &ast.Prototype{Loc: loc, Name: p.AnonExprName}
	return &ast.Function{Proto: proto, Body: body}, nil
}

func (p *Parser) parsePrototype() (*ast.Prototype, error) {
	loc := p.curLoc

	switch {
	case p.cur.Kind == token.Identifier:
		name := p.cur.Ident
		p.advance()
		argNames, err := p.parseArgNameList()
		if err != nil {
			return nil, err
		}
		return &ast.Prototype{Loc: loc, Name: name, ArgNames: argNames, Kind: ast.KindFunction}, nil

	case p.curIsKeyword(token.KwUnary):
		p.advance()
		op, ok := p.curChar()
		if !ok {
			return nil, kerr.NewParse(p.curLoc, "invalid unary operator")
		}
		p.advance()
		argNames, err := p.parseArgNameList()
		if err != nil {
			return nil, err
		}
		if len(argNames) != 1 {
			return nil, kerr.NewParse(p.curLoc, "Invalid number of operands for operator")
		}
		proto := &ast.Prototype{Loc: loc, ArgNames: argNames, Kind: ast.UnaryOp, OpChar: op}
		proto.Name = proto.OperatorName()
		return proto, nil

	case p.curIsKeyword(token.KwBinary):
		p.advance()
		op, ok := p.curChar()
		if !ok {
			return nil, kerr.NewParse(p.curLoc, "invalid unary operator")
		}
		p.advance()
		precedence := 30
		if p.cur.Kind == token.Number {
			precedence = int(p.cur.Num)
			p.advance()
		}
		argNames, err := p.parseArgNameList()
		if err != nil {
			return nil, err
		}
		if len(argNames) != 2 {
			return nil, kerr.NewParse(p.curLoc, "Invalid number of operands for operator")
		}
		proto := &ast.Prototype{Loc: loc, ArgNames: argNames, Kind: ast.BinaryOp, OpChar: op, Precedence: precedence}
		proto.Name = proto.OperatorName()
		return proto, nil

	default:
		return nil, kerr.NewParse(loc, "Expected identifier, 'unary', or 'binary' in ParsePrototype")
	}
}

// parseArgNameList parses `'(' IDENT* ')'`, shared by all three
// prototype forms.
func (p *Parser) parseArgNameList() ([]string, error) {
	if !p.curIsChar('(') {
		return nil, kerr.NewParse(p.curLoc, "Expected '(' in prototype")
	}
	p.advance()

	var names []string
	for p.cur.Kind == token.Identifier {
		names = append(names, p.cur.Ident)
		p.advance()
	}

	if !p.curIsChar(')') {
		return nil, kerr.NewParse(p.curLoc, "Expected ')' in prototype")
	}
	p.advance()
	return names, nil
}

// parseExpression parses a unary expression followed by a chain of
// binary operators, folded by precedence climbing.
func (p *Parser) parseExpression() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseBinOpRHS(0, lhs)
}

func (p *Parser) tokPrecedence() int {
	ch, ok := p.curChar()
	if !ok {
		return -1
	}
	prec, ok := p.precedence[ch]
	if !ok {
		return -1
	}
	return prec
}

func (p *Parser) parseBinOpRHS(exprPrec int, lhs ast.Expr) (ast.Expr, error) {
	for {
		tokPrec := p.tokPrecedence()
		if tokPrec < exprPrec {
			return lhs, nil
		}

		op, _ := p.curChar()
		loc := p.curLoc
		p.advance()

		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if nextPrec := p.tokPrecedence(); tokPrec < nextPrec {
			rhs, err = p.parseBinOpRHS(tokPrec+1, rhs)
			if err != nil {
				return nil, err
			}
		}

		lhs = ast.NewBinary(loc, op, lhs, rhs)
	}
}

// parseUnary applies the unary-operator rule: any char token other than
// '(' or ',' at an expression's start is a unary-operator application
// (spec.md §4.2), even if the operator is not (yet) defined — codegen,
// not the parser, rejects unknown unary operators.
func (p *Parser) parseUnary() (ast.Expr, error) {
	if op, ok := p.curChar(); ok && op != '(' && op != ',' {
		loc := p.curLoc
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(loc, op, operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.cur.Kind == token.Number:
		return p.parseNumber(), nil
	case p.cur.Kind == token.Identifier:
		return p.parseIdentifierExpr()
	case p.curIsChar('('):
		return p.parseParenExpr()
	case p.curIsKeyword(token.KwIf):
		return p.parseIfExpr()
	case p.curIsKeyword(token.KwFor):
		return p.parseForExpr()
	case p.curIsKeyword(token.KwVar):
		return p.parseVarExpr()
	default:
		return nil, kerr.NewParse(p.curLoc, "unknown token when expecting an expression")
	}
}

func (p *Parser) parseNumber() ast.Expr {
	loc := p.curLoc
	val := p.cur.Num
	p.advance()
	return ast.NewNumber(loc, val)
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	p.advance() // consume '('
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.curIsChar(')') {
		return nil, kerr.NewParse(p.curLoc, "expected ')'")
	}
	p.advance()
	return e, nil
}

func (p *Parser) parseIdentifierExpr() (ast.Expr, error) {
	loc := p.curLoc
	name := p.cur.Ident
	p.advance()

	if !p.curIsChar('(') {
		return ast.NewVariable(loc, name), nil
	}
	p.advance() // consume '('

	var args []ast.Expr
	if !p.curIsChar(')') {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.curIsChar(')') {
				break
			}
			if !p.curIsChar(',') {
				return nil, kerr.NewParse(p.curLoc, "Expected ')' or ',' in argument list")
			}
			p.advance()
		}
	}
	p.advance() // consume ')'
	return ast.NewCall(loc, name, args), nil
}

func (p *Parser) parseIfExpr() (ast.Expr, error) {
	loc := p.curLoc
	p.advance() // consume 'if'

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.curIsKeyword(token.KwThen) {
		return nil, kerr.NewParse(p.curLoc, "expected then")
	}
	p.advance()

	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.curIsKeyword(token.KwElse) {
		return nil, kerr.NewParse(p.curLoc, "expected else")
	}
	p.advance()

	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewIf(loc, cond, then, els), nil
}

func (p *Parser) parseForExpr() (ast.Expr, error) {
	loc := p.curLoc
	p.advance() // consume 'for'

	if p.cur.Kind != token.Identifier {
		return nil, kerr.NewParse(p.curLoc, "expected identifier after for")
	}
	varName := p.cur.Ident
	p.advance()

	if !p.curIsChar('=') {
		return nil, kerr.NewParse(p.curLoc, "expected = after for")
	}
	p.advance()

	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.curIsChar(',') {
		return nil, kerr.NewParse(p.curLoc, "expected ',' after for start value")
	}
	p.advance()

	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var step ast.Expr
	if p.curIsChar(',') {
		p.advance()
		step, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	if !p.curIsKeyword(token.KwIn) {
		return nil, kerr.NewParse(p.curLoc, "expected 'in' after for")
	}
	p.advance()

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(loc, varName, start, end, step, body), nil
}

func (p *Parser) parseVarExpr() (ast.Expr, error) {
	loc := p.curLoc
	p.advance() // consume 'var'

	if p.cur.Kind != token.Identifier {
		return nil, kerr.NewParse(p.curLoc, "Expected identifier list after 'var'")
	}

	var decls []ast.VarDecl
	for {
		declLoc := p.curLoc
		name := p.cur.Ident
		p.advance()

		var init ast.Expr
		if p.curIsChar('=') {
			p.advance()
			var err error
			init, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		} else {
			init = ast.NewNumber(declLoc, 0.0)
		}
		decls = append(decls, ast.VarDecl{Name: name, Init: init})

		if !p.curIsChar(',') {
			break
		}
		p.advance()
		if p.cur.Kind != token.Identifier {
			return nil, kerr.NewParse(p.curLoc, "Expected identifier list after 'var'")
		}
	}

	if !p.curIsKeyword(token.KwIn) {
		return nil, kerr.NewParse(p.curLoc, "expected 'in' keyword after 'var'")
	}
	p.advance()

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewVar(loc, decls, body), nil
}
