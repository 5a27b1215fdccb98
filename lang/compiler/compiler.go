// Package compiler implements Quixil's single-pass Pratt compiler: it reads
// tokens from the scanner and emits bytecode directly into a chunk attached
// to a function object, with no intermediate AST. Scopes, jumps and nested
// function bodies are all tracked as the parser descends the token stream.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/quixil-lang/quixil/lang/object"
	"github.com/quixil-lang/quixil/lang/scanner"
	"github.com/quixil-lang/quixil/lang/token"
)

// Precedence orders Quixil's binary and unary operators, low to high.
type Precedence int

//nolint:revive
const (
	PrecNone Precedence = iota
	PrecLowest
	PrecAssignment
	PrecConditional
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:  {prefix: grouping, infix: call, precedence: PrecCall},
		token.MINUS:   {prefix: unary, infix: binary, precedence: PrecTerm},
		token.PLUS:    {infix: binary, precedence: PrecTerm},
		token.SLASH:   {infix: binary, precedence: PrecFactor},
		token.STAR:    {infix: binary, precedence: PrecFactor},
		token.BANG:    {prefix: unary},
		token.BANG_EQ: {infix: binary, precedence: PrecEquality},
		token.EQ_EQ:   {infix: binary, precedence: PrecEquality},
		token.GT:      {infix: binary, precedence: PrecComparison},
		token.GT_EQ:   {infix: binary, precedence: PrecComparison},
		token.LT:      {infix: binary, precedence: PrecComparison},
		token.LT_EQ:   {infix: binary, precedence: PrecComparison},
		token.IDENT:   {prefix: variable},
		token.NUMBER:  {prefix: number},
		token.STRING:  {prefix: stringLiteral},
		token.INTEROP: {prefix: templateString},
		token.AND:     {infix: and_, precedence: PrecAnd},
		token.OR:      {infix: or_, precedence: PrecOr},
		token.FALSE:   {prefix: literal},
		token.TRUE:    {prefix: literal},
		token.NIL:     {prefix: literal},
	}
}

func getRule(k token.Kind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{}
}

type funcType int

const (
	typeMain funcType = iota
	typeFunction
)

type local struct {
	name  string
	depth int // -1 means declared but not yet initialized
}

// maxLocals matches the one-byte OP_GET_LOCAL/OP_SET_LOCAL slot operand.
const maxLocals = 256

// fnCompiler holds the state for the function currently being compiled: its
// in-progress object, its local-variable stack, and a link to the compiler
// for the lexically enclosing function (nil for the top-level script).
type fnCompiler struct {
	enclosing  *fnCompiler
	function   *object.ObjFunction
	kind       funcType
	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// parser is the single shared cursor over the token stream: current/previous
// token, error-recovery state, and a pointer to the VM's string interner
// (every interned constant and identifier name goes through it, so that
// pointer equality of strings is sound at run time).
type parser struct {
	src      string
	scanner  *scanner.Scanner
	interner object.Interner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []string

	cur *fnCompiler
}

// Compile compiles source into a top-level function object ready to run on
// the VM. It returns a nil function and a non-empty list of diagnostic
// messages if any compile error occurred; no bytecode is produced in that
// case beyond what was emitted before the error (the caller must not
// execute it).
func Compile(source string, interner object.Interner) (*object.ObjFunction, []string) {
	p := &parser{
		src:      source,
		scanner:  scanner.New(source),
		interner: interner,
	}
	p.cur = &fnCompiler{function: object.NewFunctionObject(nil), kind: typeMain}
	// Slot 0 is reserved for the script function itself.
	p.cur.locals[0] = local{name: "", depth: 0}
	p.cur.localCount = 1

	p.advance()
	for !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "Expect end of expression.")

	fn := p.endCompiler()
	if p.hadError {
		return nil, p.errors
	}
	return fn, nil
}

// --- token stream plumbing ---

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Next()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme(p.src))
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errors = append(p.errors, fmt.Sprintf("[Line %d] Error: %s", tok.Line, msg))
}

// synchronize discards tokens until after a statement boundary (a ';' or one
// of the statement-starting keywords), ending the panic-mode suppression
// window so subsequent errors are reported again.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMI {
			return
		}
		if scanner.IsSyncPoint(p.current.Kind) {
			return
		}
		p.advance()
	}
}

// --- bytecode emission ---

func (p *parser) chunk() *object.Chunk { return p.cur.function.Chunk }

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitOp(op object.OpCode) { p.emitByte(byte(op)) }

func (p *parser) emitBytes(op object.OpCode, arg byte) {
	p.emitOp(op)
	p.emitByte(arg)
}

func (p *parser) emitReturn() {
	p.emitOp(object.OpNil)
	p.emitOp(object.OpReturn)
}

func (p *parser) makeConstant(v object.Value) byte {
	idx := p.chunk().AddConstant(v)
	if idx >= object.MaxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v object.Value) {
	p.emitBytes(object.OpConstant, p.makeConstant(v))
}

// emitJump emits a jump opcode with a two-byte placeholder operand and
// returns the offset of the first placeholder byte, to be patched once the
// jump target is known.
func (p *parser) emitJump(op object.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

const maxJumpDistance = 0xffff

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > maxJumpDistance {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(object.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > maxJumpDistance {
		p.error("Loop body too large.")
		return
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

// endCompiler finishes the current function: emits the implicit `nil;
// return`, then pops the compiler stack back to the enclosing function.
func (p *parser) endCompiler() *object.ObjFunction {
	p.emitReturn()
	fn := p.cur.function
	p.cur = p.cur.enclosing
	return fn
}

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	for p.cur.localCount > 0 && p.cur.locals[p.cur.localCount-1].depth > p.cur.scopeDepth {
		p.emitOp(object.OpPop)
		p.cur.localCount--
	}
}

// --- variables ---

func (p *parser) identifierConstant(name string) byte {
	return p.makeConstant(p.interner.InternCopy(name).AsValue())
}

func (p *parser) resolveLocal(c *fnCompiler, name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *parser) addLocal(name string) {
	if p.cur.localCount == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.cur.locals[p.cur.localCount] = local{name: name, depth: -1}
	p.cur.localCount++
}

func (p *parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme(p.src)
	for i := p.cur.localCount - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme(p.src))
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[p.cur.localCount-1].depth = p.cur.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(object.OpDefineGlobal, global)
}

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp object.OpCode
	arg := p.resolveLocal(p.cur, name)
	if arg != -1 {
		getOp, setOp = object.OpGetLocal, object.OpSetLocal
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = object.OpGetGlobal, object.OpSetGlobal
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitBytes(setOp, byte(arg))
	} else {
		p.emitBytes(getOp, byte(arg))
	}
}

// --- Pratt engine ---

func (p *parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecConditional
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) expression() { p.parsePrecedence(PrecAssignment) }

// --- expression grammar ---

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(p *parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(PrecUnary)
	switch opKind {
	case token.BANG:
		p.emitOp(object.OpNot)
	case token.MINUS:
		p.emitOp(object.OpNegate)
	}
}

func binary(p *parser, _ bool) {
	opKind := p.previous.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQ:
		p.emitOp(object.OpEqual)
		p.emitOp(object.OpNot)
	case token.EQ_EQ:
		p.emitOp(object.OpEqual)
	case token.GT:
		p.emitOp(object.OpGreater)
	case token.GT_EQ:
		p.emitOp(object.OpLess)
		p.emitOp(object.OpNot)
	case token.LT:
		p.emitOp(object.OpLess)
	case token.LT_EQ:
		p.emitOp(object.OpGreater)
		p.emitOp(object.OpNot)
	case token.PLUS:
		p.emitOp(object.OpAdd)
	case token.MINUS:
		p.emitOp(object.OpSubtract)
	case token.STAR:
		p.emitOp(object.OpMultiply)
	case token.SLASH:
		p.emitOp(object.OpDivide)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(object.OpJumpIfFalse)
	endJump := p.emitJump(object.OpJump)
	p.patchJump(elseJump)
	p.emitOp(object.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func call(p *parser, _ bool) {
	argCount := argumentList(p)
	p.emitBytes(object.OpCall, argCount)
}

func argumentList(p *parser) byte {
	var count int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}

func number(p *parser, _ bool) {
	lit := p.previous.Lexeme(p.src)
	n, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(object.Number(n))
}

func stringLiteral(p *parser, _ bool) {
	p.emitConstant(p.interner.InternCopy(p.previous.Text).AsValue())
}

// templateString compiles a template string starting from the INTEROP token
// already consumed into p.previous. It emits an initial empty-string
// constant, then for every literal segment it emits OP_CONSTANT segment;
// OP_ADD; <interpolated expression>; OP_ADD, repeating for every subsequent
// INTEROP segment the scanner produces, and finally appends the trailing
// literal (carried by the terminating STRING token) with one last OP_ADD.
//
// The scanner, not this function, decides when an interpolation closes: once
// the '(' opened by "$(" is balanced, Next starts producing the following
// STRING or INTEROP token directly, with no RPAREN token in between.
func templateString(p *parser, _ bool) {
	p.emitConstant(p.interner.InternCopy("").AsValue())
	for {
		p.emitConstant(p.interner.InternCopy(p.previous.Text).AsValue())
		p.emitOp(object.OpAdd)

		p.expression()
		p.emitOp(object.OpAdd)

		switch p.current.Kind {
		case token.STRING:
			p.advance()
			p.emitConstant(p.interner.InternCopy(p.previous.Text).AsValue())
			p.emitOp(object.OpAdd)
			return
		case token.INTEROP:
			p.advance()
			continue
		default:
			p.errorAtCurrent("Unterminated template string.")
			return
		}
	}
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(object.OpFalse)
	case token.NIL:
		p.emitOp(object.OpNil)
	case token.TRUE:
		p.emitOp(object.OpTrue)
	}
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme(p.src), canAssign)
}

// --- statement grammar ---

func (p *parser) declaration() {
	switch {
	case p.match(token.VAR):
		p.varDeclaration()
	case p.match(token.FUNCTION):
		p.funDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(object.OpNil)
	}
	p.consume(token.SEMI, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

// function compiles a nested function body into its own fnCompiler, emits
// OP_CONSTANT for the resulting function object in the enclosing compiler,
// and restores p.cur to the enclosing compiler.
func (p *parser) function(kind funcType) {
	name := p.previous.Lexeme(p.src)
	fnObj := object.NewFunctionObject(p.interner.InternCopy(name))
	p.cur = &fnCompiler{enclosing: p.cur, function: fnObj, kind: kind}

	// Slot 0 is reserved for the callee itself.
	p.cur.locals[0] = local{name: "", depth: 0}
	p.cur.localCount = 1

	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			if p.cur.function.Arity == 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			p.cur.function.Arity++
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler()
	p.emitConstant(fn.AsValue())
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.WHEN):
		p.whenStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after value.")
	p.emitOp(object.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after expression.")
	p.emitOp(object.OpPop)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.statement()

	elseJump := p.emitJump(object.OpJump)
	p.patchJump(thenJump)
	p.emitOp(object.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(object.OpPop)
}

// maxWhenCases matches the spec's 256-case ceiling for a single `when`.
const maxWhenCases = 256

func (p *parser) whenStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'when'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after when subject.")
	p.consume(token.LBRACE, "Expect '{' before when body.")

	var endJumps []int
	sawElse := false
	caseCount := 0

	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if sawElse {
			p.error("'else' case must be the last case in a 'when'.")
		}

		if p.match(token.ELSE) {
			p.consume(token.ARROW, "Expect '->' after 'else'.")
			sawElse = true
			p.statement()
			continue
		}

		if caseCount >= maxWhenCases {
			p.error("Too many cases in 'when'.")
		}
		caseCount++

		p.emitOp(object.OpDup)
		p.expression()
		p.consume(token.ARROW, "Expect '->' after case value.")
		p.emitOp(object.OpEqual)

		nextCase := p.emitJump(object.OpJumpIfFalse)
		p.emitOp(object.OpPop)
		p.statement()
		endJumps = append(endJumps, p.emitJump(object.OpJump))

		p.patchJump(nextCase)
		p.emitOp(object.OpPop)
	}

	p.consume(token.RBRACE, "Expect '}' after when body.")
	for _, j := range endJumps {
		p.patchJump(j)
	}
	p.emitOp(object.OpPop)
}

func (p *parser) returnStatement() {
	if p.cur.kind == typeMain {
		p.error("Can't return from top-level code.")
	}

	if p.match(token.SEMI) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(token.SEMI, "Expect ';' after return value.")
	p.emitOp(object.OpReturn)
}
