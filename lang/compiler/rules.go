package compiler

import (
	"strconv"

	"github.com/mna/kscript/lang/token"
	"github.com/mna/kscript/lang/value"
)

// precedence orders KScript's binary operators from loosest- to
// tightest-binding, matching spec.md §4.2's grammar.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is the Pratt parsing table: for every token.Kind that can start or
// continue an expression, the function that parses it and the precedence to
// bind at. Grounded on the same table-driven shape golox's vm compiler uses
// (parseRules/parsePrec in _examples/other_examples), generalized to
// KScript's operator and literal set.
var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:  {prefix: grouping, infix: call, prec: precCall},
		token.DOT:     {infix: dot, prec: precCall},
		token.MINUS:   {prefix: unary, infix: binary, prec: precTerm},
		token.PLUS:    {infix: binary, prec: precTerm},
		token.SLASH:   {infix: binary, prec: precFactor},
		token.STAR:    {infix: binary, prec: precFactor},
		token.BANG:    {prefix: unary},
		token.BANG_EQ: {infix: binary, prec: precEquality},
		token.EQ_EQ:   {infix: binary, prec: precEquality},
		token.GT:      {infix: binary, prec: precComparison},
		token.GT_EQ:   {infix: binary, prec: precComparison},
		token.LT:      {infix: binary, prec: precComparison},
		token.LT_EQ:   {infix: binary, prec: precComparison},
		token.IDENT:   {prefix: variable},
		token.STRING:  {prefix: stringLit},
		token.NUMBER:  {prefix: number},
		token.AND:     {infix: and_, prec: precAnd},
		token.OR:      {infix: or_, prec: precOr},
		token.FALSE:   {prefix: literal},
		token.NIL:     {prefix: literal},
		token.TRUE:    {prefix: literal},
		token.THIS:    {prefix: this_},
		token.SUPER:   {prefix: super_},
	}
}

func (c *compiler) getRule(k token.Kind) parseRule { return rules[k] }

// expression parses a full expression at the lowest precedence.
func (c *compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *compiler) parsePrecedence(prec precedence) {
	c.advance()
	rule := c.getRule(c.previous.Kind)
	if rule.prefix == nil {
		c.error("expect expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)

	for prec <= c.getRule(c.current.Kind).prec {
		c.advance()
		infix := c.getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.error("invalid assignment target")
	}
}

func grouping(c *compiler, _ bool) {
	c.expression()
	c.consume(token.RPAREN, "expect ')' after expression")
}

func number(c *compiler, _ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("invalid number literal")
		return
	}
	c.emitConstant(value.Number(n))
}

func stringLit(c *compiler, _ bool) {
	// Lexeme includes the surrounding quotes.
	raw := c.previous.Lexeme
	s := raw[1 : len(raw)-1]
	c.emitConstant(c.h.InternString(s))
}

func literal(c *compiler, _ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(value.OpFalse)
	case token.TRUE:
		c.emitOp(value.OpTrue)
	case token.NIL:
		c.emitOp(value.OpNil)
	}
}

func unary(c *compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		c.emitOp(value.OpNot)
	case token.MINUS:
		c.emitOp(value.OpNegate)
	}
}

func binary(c *compiler, _ bool) {
	opKind := c.previous.Kind
	rule := c.getRule(opKind)
	c.parsePrecedence(rule.prec + 1)

	switch opKind {
	case token.BANG_EQ:
		c.emitOp(value.OpEqual)
		c.emitOp(value.OpNot)
	case token.EQ_EQ:
		c.emitOp(value.OpEqual)
	case token.GT:
		c.emitOp(value.OpGreater)
	case token.GT_EQ:
		c.emitOp(value.OpLess)
		c.emitOp(value.OpNot)
	case token.LT:
		c.emitOp(value.OpLess)
	case token.LT_EQ:
		c.emitOp(value.OpGreater)
		c.emitOp(value.OpNot)
	case token.PLUS:
		c.emitOp(value.OpAdd)
	case token.MINUS:
		c.emitOp(value.OpSubtract)
	case token.STAR:
		c.emitOp(value.OpMultiply)
	case token.SLASH:
		c.emitOp(value.OpDivide)
	}
}

func and_(c *compiler, _ bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or_(c *compiler, _ bool) {
	elseJump := c.emitJump(value.OpJumpIfFalse)
	endJump := c.emitJump(value.OpJump)
	c.patchJump(elseJump)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func call(c *compiler, _ bool) {
	argc := c.argumentList()
	c.emitBytes(value.OpCall, argc)
}

func (c *compiler) argumentList() byte {
	var argc int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == 255 {
				c.error("can't have more than 255 arguments")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after arguments")
	return byte(argc)
}

func dot(c *compiler, canAssign bool) {
	c.consume(token.IDENT, "expect property name after '.'")
	name := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitBytes(value.OpSetProperty, name)
	case c.match(token.LPAREN):
		argc := c.argumentList()
		c.emitBytes(value.OpInvoke, name)
		c.emitByte(argc)
	default:
		c.emitBytes(value.OpGetProperty, name)
	}
}

func variable(c *compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp value.OpCode
	slot := c.resolveLocal(c.fc, name.Lexeme)
	if slot != -1 {
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	} else if slot = c.resolveUpvalue(c.fc, name.Lexeme); slot != -1 {
		getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
	} else {
		slot = int(c.identifierConstant(name))
		getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitBytes(setOp, byte(slot))
	} else {
		c.emitBytes(getOp, byte(slot))
	}
}

func this_(c *compiler, _ bool) {
	if c.class == nil {
		c.error("can't use 'this' outside of a class")
		return
	}
	c.namedVariable(c.previous, false)
}

func super_(c *compiler, _ bool) {
	switch {
	case c.class == nil:
		c.error("can't use 'super' outside of a class")
	case !c.class.hasSuperclass:
		c.error("can't use 'super' in a class with no superclass")
	default:
	}

	c.consume(token.DOT, "expect '.' after 'super'")
	c.consume(token.IDENT, "expect superclass method name")
	name := c.identifierConstant(c.previous)

	c.namedVariable(token.Token{Kind: token.THIS, Lexeme: "this"}, false)
	if c.match(token.LPAREN) {
		argc := c.argumentList()
		c.namedVariable(token.Token{Kind: token.SUPER, Lexeme: "super"}, false)
		c.emitBytes(value.OpSuperInvoke, name)
		c.emitByte(argc)
	} else {
		c.namedVariable(token.Token{Kind: token.SUPER, Lexeme: "super"}, false)
		c.emitBytes(value.OpGetSuper, name)
	}
}
