// Package compiler implements KScript's single-pass compiler: a
// recursive-descent statement parser combined with a Pratt expression
// parser that emits bytecode directly into a value.Chunk as it goes, with no
// intervening AST. It resolves local-variable slots and closure upvalues
// while parsing.
package compiler

import (
	"fmt"
	"strings"

	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/scanner"
	"github.com/mna/kscript/lang/token"
	"github.com/mna/kscript/lang/value"
)

// MaxLocals is the largest number of local variables (including reserved
// slot 0) a single function may declare, per spec.md's fixed limits.
const MaxLocals = 256

// MaxUpvalues is the largest number of upvalues a single function may
// capture.
const MaxUpvalues = 256

// MaxFrames bounds the VM's call-frame stack; the compiler does not enforce
// it (the machine package does), but it's documented here since it's one of
// spec.md's fixed limits.
const MaxFrames = 64

// funcType distinguishes the handful of ways a Function is compiled, so that
// slot 0 and 'return' are handled correctly.
type funcType int

const (
	typeFunction funcType = iota
	typeScript
	typeMethod
	typeInitializer
)

// local tracks one declared local variable slot within a function compiler.
type local struct {
	name       token.Token
	depth      int // -1 means "declared but not yet initialized"
	isCaptured bool
}

// funcCompiler holds the compiler state for a single function (or the
// top-level script, or a method) being compiled. funcCompilers form a stack
// via enclosing, one per lexically nested 'fun' (spec.md's "Compiler
// frames").
type funcCompiler struct {
	enclosing *funcCompiler

	fn       *value.Function
	fnType   funcType
	upvalues []value.UpvalueDesc

	locals     []local
	scopeDepth int
}

// classCompiler tracks the class currently being compiled, to validate
// 'this'/'super' usage and to know whether the enclosing class has a
// superclass.
type classCompiler struct {
	enclosing      *classCompiler
	hasSuperclass  bool
}

// compiler is the top-level driver: it owns the scanner, the current/
// previous token (for one token of lookahead), the stack of funcCompilers,
// and accumulated errors.
type compiler struct {
	scan *scanner.Scanner
	h    *heap.Heap

	current  token.Token
	previous token.Token

	fc    *funcCompiler
	class *classCompiler

	errors    []string
	panicMode bool
}

// CompileError reports every error panic-mode recovery collected while
// compiling a program. Callers that need to distinguish a compile failure
// from a runtime failure (e.g. to pick a process exit code) can type-assert
// or errors.As against it.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	return strings.Join(e.Errors, "\n")
}

// Compile compiles src as a complete KScript program (as opposed to a single
// REPL expression) and returns the top-level Function, ready to be wrapped
// in a Closure and run. On any compile error it returns a nil Function and a
// non-nil *CompileError listing every error found (spec.md's panic-mode
// recovery collects more than just the first).
func Compile(h *heap.Heap, src string) (*value.Function, error) {
	c := &compiler{scan: scanner.New(src), h: h}
	c.beginFunction(typeScript, "")

	c.advance()
	for !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.EOF, "expect end of expression")

	fn := c.endFunction()
	if len(c.errors) > 0 {
		return nil, &CompileError{Errors: c.errors}
	}
	return fn, nil
}

func (c *compiler) beginFunction(ft funcType, name string) {
	fn := &value.Function{Name: name}
	if c.h != nil {
		c.h.Alloc(fn, 64)
	}
	fc := &funcCompiler{
		enclosing: c.fc,
		fn:        fn,
		fnType:    ft,
	}
	// Slot 0 is reserved: 'this' inside a method, otherwise an anonymous slot
	// holding the called closure itself.
	slotName := ""
	if ft == typeMethod || ft == typeInitializer {
		slotName = "this"
	}
	fc.locals = append(fc.locals, local{name: token.Token{Lexeme: slotName}, depth: 0})
	wasTopLevel := c.fc == nil
	c.fc = fc

	if wasTopLevel && c.h != nil {
		c.h.AddRootMarker(c)
	}
}

// MarkRoots implements heap.RootMarker: while this function (and any it
// encloses) is being compiled, its in-progress Function and constant pool
// must be reachable, per spec.md §4.3.
func (c *compiler) MarkRoots(mark func(value.Value)) {
	for fc := c.fc; fc != nil; fc = fc.enclosing {
		mark(fc.fn)
	}
}

func (c *compiler) endFunction() *value.Function {
	c.emitReturn()
	fn := c.fc.fn
	fn.UpvalueCount = len(c.fc.upvalues)

	c.fc = c.fc.enclosing
	if c.fc == nil && c.h != nil {
		c.h.RemoveRootMarker(c)
	}
	return fn
}

func (c *compiler) currentChunk() *value.Chunk { return &c.fc.fn.Chunk }

// --- token stream plumbing ---

func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Scan()
		if c.current.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- error reporting & panic-mode recovery ---

func (c *compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	where := tok.Lexeme
	if tok.Kind == token.EOF {
		where = "end"
	}
	c.errors = append(c.errors, fmt.Sprintf("[line %d] Error at '%s': %s", tok.Line, where, msg))
}

func (c *compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMI {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ---

func (c *compiler) emitByte(b byte) { c.currentChunk().Write(b, c.previous.Line) }
func (c *compiler) emitOp(op value.OpCode) { c.currentChunk().WriteOp(op, c.previous.Line) }

func (c *compiler) emitBytes(op value.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *compiler) emitReturn() {
	if c.fc.fnType == typeInitializer {
		c.emitBytes(value.OpGetLocal, 0)
	} else {
		c.emitOp(value.OpNil)
	}
	c.emitOp(value.OpReturn)
}

func (c *compiler) makeConstant(v value.Value) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx >= value.MaxConstants {
		c.error("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(v value.Value) {
	c.emitBytes(value.OpConstant, c.makeConstant(v))
}

// emitJump emits a jump opcode with a placeholder 2-byte offset and returns
// the offset of the first placeholder byte, to be patched by patchJump.
func (c *compiler) emitJump(op value.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("too much code to jump over")
		return
	}
	code := c.currentChunk().Code
	code[offset] = byte(jump >> 8 & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

func (c *compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("loop body too large")
		return
	}
	c.emitByte(byte(offset >> 8 & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// identifierConstant interns name and adds it to the constant pool, for use
// by opcodes that name a global/property/method by a constant-pool index.
func (c *compiler) identifierConstant(tok token.Token) byte {
	return c.makeConstant(c.h.InternString(tok.Lexeme))
}
