package compiler_test

import (
	"testing"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *value.Function {
	t.Helper()
	h := heap.New()
	fn, err := compiler.Compile(h, src)
	require.NoError(t, err)
	require.NotNil(t, fn)
	return fn
}

func TestCompileArithmeticEmitsExpectedOps(t *testing.T) {
	fn := compile(t, "1 + 2 * 3;")
	var ops []value.OpCode
	for _, b := range fn.Chunk.Code {
		ops = append(ops, value.OpCode(b))
	}
	assert.Contains(t, ops, value.OpAdd)
	assert.Contains(t, ops, value.OpMultiply)
	assert.Contains(t, ops, value.OpPop)
}

func TestCompileGlobalVarDeclaration(t *testing.T) {
	fn := compile(t, "var a = 10; print a;")
	hasDefine, hasGet, hasPrint := false, false, false
	for _, b := range fn.Chunk.Code {
		switch value.OpCode(b) {
		case value.OpDefineGlobal:
			hasDefine = true
		case value.OpGetGlobal:
			hasGet = true
		case value.OpPrint:
			hasPrint = true
		}
	}
	assert.True(t, hasDefine)
	assert.True(t, hasGet)
	assert.True(t, hasPrint)
}

func TestCompileLocalUsesSlotOps(t *testing.T) {
	fn := compile(t, "{ var a = 1; print a; }")
	hasLocalGet := false
	for _, b := range fn.Chunk.Code {
		if value.OpCode(b) == value.OpGetLocal {
			hasLocalGet = true
		}
	}
	assert.True(t, hasLocalGet, "block-scoped local should resolve to OP_GET_LOCAL, not a global")
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compile(t, `
fun outer() {
  var x = "captured";
  fun inner() { print x; }
  return inner;
}
`)
	// The script's constant pool holds 'outer'; outer's constant pool holds
	// the 'inner' Function.
	var inner *value.Function
	for _, c := range fn.Chunk.Constants {
		if outer, ok := c.(*value.Function); ok && outer.Name == "outer" {
			for _, oc := range outer.Chunk.Constants {
				if f, ok := oc.(*value.Function); ok && f.Name == "inner" {
					inner = f
				}
			}
		}
	}
	require.NotNil(t, inner)
	assert.Equal(t, 1, inner.UpvalueCount)
}

func TestCompileErrorsReportLineAndLexeme(t *testing.T) {
	h := heap.New()
	_, err := compiler.Compile(h, "var;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[line 1]")
}

func TestCompileUndeclaredThisOutsideClassIsError(t *testing.T) {
	h := heap.New()
	_, err := compiler.Compile(h, "print this;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "this")
}

func TestCompileClassWithSuperclass(t *testing.T) {
	fn := compile(t, `
class Animal {
  speak() { print "..."; }
}
class Dog extend Animal {
  speak() {
    super.speak();
    print "Woof";
  }
}
`)
	// OP_INHERIT is in the script's chunk; OP_SUPER_INVOKE is in the chunk of
	// Dog.speak, one of the script's Function constants.
	chunks := []value.Chunk{fn.Chunk}
	for _, k := range fn.Chunk.Constants {
		if f, ok := k.(*value.Function); ok {
			chunks = append(chunks, f.Chunk)
		}
	}
	hasInherit, hasSuperInvoke := false, false
	for _, ch := range chunks {
		for _, b := range ch.Code {
			switch value.OpCode(b) {
			case value.OpInherit:
				hasInherit = true
			case value.OpSuperInvoke:
				hasSuperInvoke = true
			}
		}
	}
	assert.True(t, hasInherit)
	assert.True(t, hasSuperInvoke)
}

func TestCompileTooManyConstants(t *testing.T) {
	src := ""
	for i := 0; i < 300; i++ {
		src += "print " + string(rune('0'+(i%10))) + ";\n"
	}
	h := heap.New()
	_, err := compiler.Compile(h, src)
	// 300 distinct-by-position number constants exceed MaxConstants=256, since
	// AddConstant does not deduplicate.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many constants")
}
