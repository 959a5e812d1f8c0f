package compiler

import (
	"github.com/mna/kscript/lang/token"
	"github.com/mna/kscript/lang/value"
)

// function compiles a 'fun' body (or a method body, when called from
// classDeclaration) into its own Function, then emits OP_CLOSURE in the
// enclosing chunk so the runtime captures the right upvalues.
func (c *compiler) function(ft funcType, name string) {
	c.beginFunction(ft, name)
	c.beginScope()

	c.consume(token.LPAREN, "expect '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			c.fc.fn.Arity++
			if c.fc.fn.Arity > 255 {
				c.errorAtCurrent("can't have more than 255 parameters")
			}
			c.consume(token.IDENT, "expect parameter name")
			c.declareVariable(c.previous)
			c.markInitialized()
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after parameters")
	c.consume(token.LBRACE, "expect '{' before function body")
	c.block()

	upvalues := c.fc.upvalues
	fn := c.endFunction()

	idx := c.makeConstant(fn)
	c.emitBytes(value.OpClosure, idx)
	for _, uv := range upvalues {
		b := byte(0)
		if uv.IsLocal {
			b = 1
		}
		c.emitByte(b)
		c.emitByte(uv.Index)
	}
}

// classDeclaration compiles 'class Name [extend Super] { method* }'.
// Inheritance copies the superclass's method table at OP_INHERIT time
// (spec.md's copy-down invariant): later edits to the superclass's methods
// are not retroactively visible to subclasses already created.
func (c *compiler) classDeclaration() {
	c.consume(token.IDENT, "expect class name")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)
	c.declareVariable(nameTok)

	c.emitBytes(value.OpClass, nameConst)
	c.defineVariable(nameTok)

	cc := &classCompiler{enclosing: c.class}
	c.class = cc

	if c.match(token.EXTEND) || c.match(token.LT) {
		c.consume(token.IDENT, "expect superclass name")
		variable(c, false) // pushes the superclass value
		if nameTok.Lexeme == c.previous.Lexeme {
			c.error("a class can't inherit from itself")
		}

		c.beginScope()
		c.addLocal(token.Token{Kind: token.SUPER, Lexeme: "super"})
		c.defineVariable(token.Token{})

		c.namedVariable(nameTok, false)
		c.emitOp(value.OpInherit)
		cc.hasSuperclass = true
	}

	c.namedVariable(nameTok, false)
	c.consume(token.LBRACE, "expect '{' before class body")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "expect '}' after class body")
	c.emitOp(value.OpPop) // the class value pushed above for OP_METHOD

	if cc.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *compiler) method() {
	c.consume(token.IDENT, "expect method name")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)

	ft := typeMethod
	if nameTok.Lexeme == "init" {
		ft = typeInitializer
	}
	c.function(ft, nameTok.Lexeme)
	c.emitBytes(value.OpMethod, nameConst)
}
