package vm

import "github.com/loxlang/golox/internal/token"

// Precedence orders binding tightness from loosest to tightest, exactly as
// laid out in the grammar: assignment; or; and; equality; comparison; term;
// factor; unary; call/property; primary.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
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

type parseFn func(c *compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LEFT_PAREN:    {prefixGrouping, infixCall, PrecCall},
		token.DOT:           {nil, infixDot, PrecCall},
		token.MINUS:         {prefixUnary, infixBinary, PrecTerm},
		token.PLUS:          {nil, infixBinary, PrecTerm},
		token.SLASH:         {nil, infixBinary, PrecFactor},
		token.STAR:          {nil, infixBinary, PrecFactor},
		token.BANG:          {prefixUnary, nil, PrecNone},
		token.BANG_EQUAL:    {nil, infixBinary, PrecEquality},
		token.EQUAL_EQUAL:   {nil, infixBinary, PrecEquality},
		token.GREATER:       {nil, infixBinary, PrecComparison},
		token.GREATER_EQUAL: {nil, infixBinary, PrecComparison},
		token.LESS:          {nil, infixBinary, PrecComparison},
		token.LESS_EQUAL:    {nil, infixBinary, PrecComparison},
		token.IDENTIFIER:    {prefixVariable, nil, PrecNone},
		token.STRING:        {prefixString, nil, PrecNone},
		token.NUMBER:        {prefixNumber, nil, PrecNone},
		token.AND:           {nil, infixAnd, PrecAnd},
		token.OR:            {nil, infixOr, PrecOr},
		token.FALSE:         {prefixLiteral, nil, PrecNone},
		token.TRUE:          {prefixLiteral, nil, PrecNone},
		token.NIL:           {prefixLiteral, nil, PrecNone},
		token.THIS:          {prefixThis, nil, PrecNone},
		token.SUPER:         {prefixSuper, nil, PrecNone},
	}
}

func ruleFor(kind token.Kind) parseRule {
	if r, ok := rules[kind]; ok {
		return r
	}
	return parseRule{precedence: PrecNone}
}

func (c *compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Kind).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.current.Kind).precedence {
		c.advance()
		infix := ruleFor(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func prefixNumber(c *compiler, _ bool) {
	c.emitConstant(NumberVal(parseNumber(c.previous.Lexeme)))
}

func prefixString(c *compiler, _ bool) {
	c.emitConstant(ObjVal(c.vm.internString(unescapeString(c.previous.Lexeme))))
}

func prefixLiteral(c *compiler, _ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	case token.NIL:
		c.emitOp(OP_NIL)
	}
}

func prefixGrouping(c *compiler, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func prefixUnary(c *compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.BANG:
		c.emitOp(OP_NOT)
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	}
}

func infixBinary(c *compiler, _ bool) {
	opKind := c.previous.Kind
	rule := ruleFor(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQUAL:
		c.emitOps(OP_EQUAL, OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOps(OP_LESS, OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOps(OP_GREATER, OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	}
}

func infixAnd(c *compiler, _ bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func infixOr(c *compiler, _ bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)
	c.patchJump(elseJump)
	c.emitOp(OP_POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func infixCall(c *compiler, _ bool) {
	argCount := c.argumentList()
	c.emitOpByte(OP_CALL, argCount)
}

func infixDot(c *compiler, canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'.")
	nameConst := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitOpByte(OP_SET_PROPERTY, nameConst)
	case c.match(token.LEFT_PAREN):
		argCount := c.argumentList()
		c.emitOpByte(OP_INVOKE, nameConst)
		c.emitByte(argCount)
	default:
		c.emitOpByte(OP_GET_PROPERTY, nameConst)
	}
}

func prefixVariable(c *compiler, canAssign bool) {
	c.variable(canAssign)
}

func (c *compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg int

	if localIdx := c.resolveLocal(c.cc, name); localIdx != -1 {
		arg = localIdx
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else if upvalIdx := c.resolveUpvalue(c.cc, name); upvalIdx != -1 {
		arg = upvalIdx
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func prefixThis(c *compiler, _ bool) {
	if c.currentClass == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func prefixSuper(c *compiler, _ bool) {
	if c.currentClass == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.currentClass.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENTIFIER, "Expect superclass method name.")
	nameConst := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable("this", false)
	if c.match(token.LEFT_PAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(OP_SUPER_INVOKE, nameConst)
		c.emitByte(argCount)
	} else {
		c.namedVariable("super", false)
		c.emitOpByte(OP_GET_SUPER, nameConst)
	}
}
