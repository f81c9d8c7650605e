package vm

import (
	"fmt"
	"io"
	"strconv"

	"github.com/loxlang/golox/internal/lexer"
	"github.com/loxlang/golox/internal/token"
)

// FunctionKind distinguishes the four contexts a function body can compile
// in, which changes how slot 0 and `return` are handled.
type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindFunction
	KindMethod
	KindInitializer
)

const maxLocals = 256
const maxUpvalues = 256
const maxArgs = 255

type local struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// compilerCtx is one frame of the per-function compilation-context stack
// described in the design: it tracks the function currently being built,
// its locals/upvalues, and the enclosing context so closures can resolve
// captures by walking outward.
type compilerCtx struct {
	enclosing *compilerCtx

	function *ObjFunction
	kind     FunctionKind

	locals     []local
	scopeDepth int

	upvalues []upvalueRef
}

// classCompilerCtx tracks class-compilation state (stacked, for nested
// classes) used only to validate `this`/`super` usage.
type classCompilerCtx struct {
	enclosing     *classCompilerCtx
	hasSuperclass bool
}

// compiler is the single-pass Pratt parser: it holds the token cursor and
// the nested compilation-context stacks, and emits bytecode directly into
// each compilerCtx's function Chunk as it recognizes grammar productions.
// There is no intermediate AST.
type compiler struct {
	vm  *VM
	lex *lexer.Lexer

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errOut    io.Writer

	cc           *compilerCtx
	currentClass *classCompilerCtx
}

// Compile compiles source into a top-level function ("the script"). The
// second return value is false if any compile error was reported, in which
// case the driver should exit with status 65 and must not run the result.
func Compile(vm *VM, source string, errOut io.Writer) (*ObjFunction, bool) {
	c := &compiler{
		vm:     vm,
		lex:    lexer.New(source),
		errOut: errOut,
	}
	c.initCompiler(KindScript)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endCompiler()
	return fn, !c.hadError
}

func (c *compiler) initCompiler(kind FunctionKind) {
	fn := &ObjFunction{Chunk: NewChunk()}
	// Parked on the stack before allocation so a stress-mode collection
	// triggered by this very allocation can't reclaim it: at this point it
	// isn't reachable through the compiler-root chain yet (compilerRoot
	// still points at the enclosing context).
	c.vm.push(ObjVal(fn))
	c.vm.allocate(fn, 64)
	c.vm.pop()

	cc := &compilerCtx{
		enclosing: c.cc,
		kind:      kind,
	}
	cc.function = fn

	// Slot 0 is reserved for the receiver in methods/initializers and is
	// otherwise unused (but still occupies a stack slot as the callee).
	receiverName := ""
	if kind == KindMethod || kind == KindInitializer {
		receiverName = "this"
	}
	cc.locals = append(cc.locals, local{name: receiverName, depth: 0})

	c.cc = cc
	c.vm.compilerRoot = cc

	if kind != KindScript {
		cc.function.Name = c.vm.internString(c.previous.Lexeme)
	}
}

func (c *compiler) endCompiler() *ObjFunction {
	c.emitReturn()
	fn := c.cc.function
	fn.UpvalueCount = len(c.cc.upvalues)

	if c.vm.debugFlags.DisassembleChunks && !c.hadError {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		fmt.Fprint(c.errOut, Disassemble(fn.Chunk, name))
	}

	c.cc = c.cc.enclosing
	c.vm.compilerRoot = c.cc
	return fn
}

// --- token cursor -----------------------------------------------------

func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Kind != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *compiler) check(kind token.Kind) bool {
	return c.current.Kind == kind
}

func (c *compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *compiler) consume(kind token.Kind, message string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	fmt.Fprintf(c.errOut, "[line %d] Error", tok.Line)
	switch {
	case tok.Kind == token.EOF:
		fmt.Fprint(c.errOut, " at end")
	case tok.Kind == token.ERROR:
		// lexeme already is the message
	default:
		fmt.Fprintf(c.errOut, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(c.errOut, ": %s\n", message)
}

// synchronize skips tokens until a likely statement boundary, so the
// compiler can keep reporting further errors instead of cascading.
func (c *compiler) synchronize() {
	c.panicMode = false

	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMICOLON {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---------------------------------------------------

func (c *compiler) chunk() *Chunk { return c.cc.function.Chunk }

func (c *compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *compiler) emitOp(op Opcode) {
	c.chunk().WriteOp(op, c.previous.Line)
}

func (c *compiler) emitOps(op1, op2 Opcode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *compiler) emitOpByte(op Opcode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *compiler) emitReturn() {
	if c.cc.kind == KindInitializer {
		c.emitOpByte(OP_GET_LOCAL, 0)
	} else {
		c.emitOp(OP_NIL)
	}
	c.emitOp(OP_RETURN)
}

// makeConstant adds value to the current chunk's constant pool, reporting
// a compile error if the 256-entry limit addressable by a one-byte operand
// is exceeded.
func (c *compiler) makeConstant(value Value) byte {
	idx, ok := c.chunk().AddConstant(value)
	if !ok {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(value Value) {
	c.emitOpByte(OP_CONSTANT, c.makeConstant(value))
}

// emitJump writes op followed by a two-byte placeholder operand and returns
// the operand's offset, to be patched later by patchJump.
func (c *compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.chunk().Len() - 2
}

func (c *compiler) patchJump(offset int) {
	jump := c.chunk().Len() - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)
	offset := c.chunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- scopes & variables --------------------------------------------------

func (c *compiler) beginScope() {
	c.cc.scopeDepth++
}

func (c *compiler) endScope() {
	c.cc.scopeDepth--
	locs := c.cc.locals
	for len(locs) > 0 && locs[len(locs)-1].depth > c.cc.scopeDepth {
		if locs[len(locs)-1].isCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		locs = locs[:len(locs)-1]
	}
	c.cc.locals = locs
}

func (c *compiler) identifierConstant(name string) byte {
	return c.makeConstant(ObjVal(c.vm.internString(name)))
}

func (c *compiler) resolveLocal(cc *compilerCtx, name string) int {
	for i := len(cc.locals) - 1; i >= 0; i-- {
		if cc.locals[i].name == name {
			if cc.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *compiler) addUpvalue(cc *compilerCtx, index uint8, isLocal bool) int {
	for i, uv := range cc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(cc.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	cc.upvalues = append(cc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(cc.upvalues) - 1
}

func (c *compiler) resolveUpvalue(cc *compilerCtx, name string) int {
	if cc.enclosing == nil {
		return -1
	}
	if localIdx := c.resolveLocal(cc.enclosing, name); localIdx != -1 {
		cc.enclosing.locals[localIdx].isCaptured = true
		return c.addUpvalue(cc, uint8(localIdx), true)
	}
	if upvalIdx := c.resolveUpvalue(cc.enclosing, name); upvalIdx != -1 {
		return c.addUpvalue(cc, uint8(upvalIdx), false)
	}
	return -1
}

func (c *compiler) declareVariable(name string) {
	if c.cc.scopeDepth == 0 {
		return
	}
	for i := len(c.cc.locals) - 1; i >= 0; i-- {
		l := c.cc.locals[i]
		if l.depth != -1 && l.depth < c.cc.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *compiler) addLocal(name string) {
	if len(c.cc.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.cc.locals = append(c.cc.locals, local{name: name, depth: -1})
}

func (c *compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENTIFIER, errMsg)
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.cc.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *compiler) markInitialized() {
	if c.cc.scopeDepth == 0 {
		return
	}
	c.cc.locals[len(c.cc.locals)-1].depth = c.cc.scopeDepth
}

func (c *compiler) defineVariable(global byte) {
	if c.cc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(OP_DEFINE_GLOBAL, global)
}

func (c *compiler) argumentList() byte {
	argCount := 0
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == maxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

// parseNumber parses a NUMBER token's lexeme. Lox's lexer only
// ever produces well-formed digit sequences, so the conversion cannot fail.
func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}

// unescapeString strips the surrounding quotes from a STRING lexeme. Lox
// has no escape sequences.
func unescapeString(lexeme string) string {
	return lexeme[1 : len(lexeme)-1]
}
