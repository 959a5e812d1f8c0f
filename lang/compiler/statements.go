package compiler

import (
	"github.com/mna/kscript/lang/token"
	"github.com/mna/kscript/lang/value"
)

// declaration parses one top-level-or-block-level declaration, recovering to
// the next statement boundary on a compile error (spec.md's panic-mode
// synchronization).
func (c *compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "expect '}' after block")
}

func (c *compiler) printStatement() {
	c.expression()
	c.consume(token.SEMI, "expect ';' after value")
	c.emitOp(value.OpPrint)
}

func (c *compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "expect ';' after expression")
	c.emitOp(value.OpPop)
}

func (c *compiler) ifStatement() {
	c.consume(token.LPAREN, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	thenJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()

	elseJump := c.emitJump(value.OpJump)
	c.patchJump(thenJump)
	c.emitOp(value.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	c.consume(token.LPAREN, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	exitJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(value.OpPop)
}

// forStatement desugars the C-style for loop into an initializer followed by
// an equivalent while loop, exactly as spec.md §4.2 prescribes.
func (c *compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.match(token.SEMI) {
		c.expression()
		c.consume(token.SEMI, "expect ';' after loop condition")
		exitJump = c.emitJump(value.OpJumpIfFalse)
		c.emitOp(value.OpPop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(value.OpJump)
		incrStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(value.OpPop)
		c.consume(token.RPAREN, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(value.OpPop)
	}
	c.endScope()
}

func (c *compiler) returnStatement() {
	if c.fc.fnType == typeScript {
		c.error("can't return from top-level code")
	}
	if c.match(token.SEMI) {
		c.emitReturn()
		return
	}
	if c.fc.fnType == typeInitializer {
		c.error("can't return a value from an initializer")
	}
	c.expression()
	c.consume(token.SEMI, "expect ';' after return value")
	c.emitOp(value.OpReturn)
}

func (c *compiler) varDeclaration() {
	c.consume(token.IDENT, "expect variable name")
	name := c.previous
	c.declareVariable(name)

	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(value.OpNil)
	}
	c.consume(token.SEMI, "expect ';' after variable declaration")
	c.defineVariable(name)
}

func (c *compiler) defineVariable(name token.Token) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(value.OpDefineGlobal, c.identifierConstant(name))
}

func (c *compiler) funDeclaration() {
	c.consume(token.IDENT, "expect function name")
	name := c.previous
	c.declareVariable(name)
	c.markInitialized()
	c.function(typeFunction, name.Lexeme)
	c.defineVariable(name)
}
