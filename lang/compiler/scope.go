package compiler

import (
	"github.com/mna/kscript/lang/token"
	"github.com/mna/kscript/lang/value"
)

func (c *compiler) beginScope() { c.fc.scopeDepth++ }

// endScope closes the innermost scope, popping its locals off the value
// stack at runtime (OP_POP) or, for any that were captured by a closure,
// closing the corresponding upvalue (OP_CLOSE_UPVALUE) instead.
func (c *compiler) endScope() {
	c.fc.scopeDepth--

	locals := c.fc.locals
	n := len(locals)
	for n > 0 && locals[n-1].depth > c.fc.scopeDepth {
		if locals[n-1].isCaptured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		n--
	}
	c.fc.locals = locals[:n]
}

// declareVariable records name as a new local in the current scope (a
// no-op at global scope, where variables are resolved by name at runtime
// instead of by slot). It rejects redeclaring a name already local to this
// exact scope, per spec.md §7.
func (c *compiler) declareVariable(name token.Token) {
	if c.fc.scopeDepth == 0 {
		return
	}
	for i := len(c.fc.locals) - 1; i >= 0; i-- {
		l := c.fc.locals[i]
		if l.depth != -1 && l.depth < c.fc.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

func (c *compiler) addLocal(name token.Token) {
	if len(c.fc.locals) >= MaxLocals {
		c.error("too many local variables in function")
		return
	}
	c.fc.locals = append(c.fc.locals, local{name: name, depth: -1})
}

func (c *compiler) markInitialized() {
	if c.fc.scopeDepth == 0 {
		return
	}
	c.fc.locals[len(c.fc.locals)-1].depth = c.fc.scopeDepth
}

// resolveLocal searches fc's locals (innermost first) for name, returning
// its slot index or -1 if not found. A local found with depth -1 (declared
// but not yet initialized — e.g. 'var a = a;') is a compile error.
func (c *compiler) resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name.Lexeme == name {
			if fc.locals[i].depth == -1 {
				c.error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue searches the chain of enclosing compilers for name,
// threading an UpvalueDesc through every intermediate function so that each
// closure in the chain only ever captures from its immediate parent, per
// spec.md §4.2.
func (c *compiler) resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if slot := c.resolveLocal(fc.enclosing, name); slot != -1 {
		fc.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(fc, byte(slot), true)
	}
	if up := c.resolveUpvalue(fc.enclosing, name); up != -1 {
		return c.addUpvalue(fc, byte(up), false)
	}
	return -1
}

func (c *compiler) addUpvalue(fc *funcCompiler, index byte, isLocal bool) int {
	for i, uv := range fc.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= MaxUpvalues {
		c.error("too many closure variables in function")
		return 0
	}
	fc.upvalues = append(fc.upvalues, value.UpvalueDesc{IsLocal: isLocal, Index: index})
	return len(fc.upvalues) - 1
}
