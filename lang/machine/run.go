package machine

import (
	"fmt"

	"github.com/mna/kscript/lang/value"
)

// run drives the fetch-decode-execute loop for the topmost frame, dipping
// into nested calls by pushing a new frame and returning to this same loop
// (there is no Go-level recursion per KScript call: a deeply recursive
// KScript program uses machine frames, not goroutine stack, up to
// framesMax).
func (m *Machine) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(*RuntimeError); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	fr := m.currentFrame()
	code := fr.closure.Function.Chunk.Code

	readByte := func() byte {
		b := code[fr.ip]
		fr.ip++
		return b
	}
	readShort := func() int {
		hi, lo := code[fr.ip], code[fr.ip+1]
		fr.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return fr.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() *value.String {
		return readConstant().(*value.String)
	}

	for {
		m.steps++
		if m.steps&1023 == 0 {
			if m.Ctx != nil {
				select {
				case <-m.Ctx.Done():
					panic(m.runtimeError("cancelled: %s", m.Ctx.Err()))
				default:
				}
			}
			if m.StepLimit > 0 && m.steps > m.StepLimit {
				panic(m.runtimeError("step limit exceeded"))
			}
		}

		op := value.OpCode(readByte())
		switch op {
		case value.OpConstant:
			m.push(readConstant())

		case value.OpNil:
			m.push(value.Nil{})
		case value.OpTrue:
			m.push(value.Bool(true))
		case value.OpFalse:
			m.push(value.Bool(false))
		case value.OpPop:
			m.pop()

		// Local slot 0 is the callee (or 'this'), which sits at base-1.
		case value.OpGetLocal:
			slot := readByte()
			m.push(m.stack[fr.base-1+int(slot)])
		case value.OpSetLocal:
			slot := readByte()
			m.stack[fr.base-1+int(slot)] = m.peek(0)

		case value.OpGetGlobal:
			name := readString()
			v, ok := m.globals.Get(name.Chars)
			if !ok {
				panic(m.runtimeError("undefined variable '%s'", name.Chars))
			}
			m.push(v)
		case value.OpDefineGlobal:
			name := readString()
			m.globals.Put(name.Chars, m.peek(0))
			m.pop()
		case value.OpSetGlobal:
			name := readString()
			if _, ok := m.globals.Get(name.Chars); !ok {
				panic(m.runtimeError("undefined variable '%s'", name.Chars))
			}
			m.globals.Put(name.Chars, m.peek(0))

		case value.OpGetUpvalue:
			slot := readByte()
			m.push(fr.closure.Upvalues[slot].Get())
		case value.OpSetUpvalue:
			slot := readByte()
			fr.closure.Upvalues[slot].Set(m.peek(0))

		case value.OpGetProperty:
			m.opGetProperty(readString())
		case value.OpSetProperty:
			m.opSetProperty(readString())
		case value.OpGetSuper:
			name := readString()
			super := m.pop().(*value.Class)
			m.bindMethod(super, m.peek(0), name) // replaces the receiver

		case value.OpEqual:
			b, a := m.pop(), m.pop()
			m.push(value.Bool(value.Equal(a, b)))
		case value.OpGreater:
			m.binaryNumber(op)
		case value.OpLess:
			m.binaryNumber(op)
		case value.OpAdd:
			m.opAdd()
		case value.OpSubtract, value.OpMultiply, value.OpDivide:
			m.binaryNumber(op)

		case value.OpNot:
			m.push(value.Bool(!value.Truth(m.pop())))
		case value.OpNegate:
			n, ok := m.peek(0).(value.Number)
			if !ok {
				panic(m.runtimeError("operand must be a number"))
			}
			m.pop()
			m.push(-n)

		case value.OpPrint:
			fmt.Fprintln(m.Stdout, m.pop().String())

		case value.OpJump:
			offset := readShort()
			fr.ip += offset
		case value.OpJumpIfFalse:
			offset := readShort()
			if !value.Truth(m.peek(0)) {
				fr.ip += offset
			}
		case value.OpLoop:
			offset := readShort()
			fr.ip -= offset

		case value.OpCall:
			argc := int(readByte())
			m.callValue(m.peek(argc), argc)
			fr = m.currentFrame()
			code = fr.closure.Function.Chunk.Code
		case value.OpInvoke:
			name := readString()
			argc := int(readByte())
			m.invoke(name, argc)
			fr = m.currentFrame()
			code = fr.closure.Function.Chunk.Code
		case value.OpSuperInvoke:
			name := readString()
			argc := int(readByte())
			super := m.pop().(*value.Class)
			m.invokeFromClass(super, name, argc)
			fr = m.currentFrame()
			code = fr.closure.Function.Chunk.Code

		case value.OpClosure:
			fn := readConstant().(*value.Function)
			closure := &value.Closure{Function: fn, Upvalues: make([]*value.Upvalue, fn.UpvalueCount)}
			m.heap.Alloc(closure, 32)
			m.push(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = m.captureUpvalue(fr.base - 1 + int(index))
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}
		case value.OpCloseUpvalue:
			m.closeUpvalues(m.sp - 1)
			m.pop()

		case value.OpReturn:
			result := m.pop()
			m.closeUpvalues(fr.base - 1)
			m.frames = m.frames[:len(m.frames)-1]
			if len(m.frames) == 0 {
				m.pop() // the implicit script closure
				return nil
			}
			m.sp = fr.base - 1
			m.push(result)
			fr = m.currentFrame()
			code = fr.closure.Function.Chunk.Code

		case value.OpClass:
			class := value.NewClass(readString().Chars)
			m.heap.Alloc(class, 48)
			m.push(class)
		case value.OpInherit:
			super, ok := m.peek(1).(*value.Class)
			if !ok {
				panic(m.runtimeError("superclass must be a class"))
			}
			sub := m.peek(0).(*value.Class)
			super.Methods.Iter(func(name string, cl *value.Closure) bool {
				sub.Methods.Put(name, cl)
				return false
			})
			m.pop() // the subclass value pushed just for this copy-down; the
			// superclass value remains, bound to the 'super' local
		case value.OpMethod:
			m.defineMethod(readString())

		default:
			panic(m.runtimeError("unknown opcode %s", op))
		}
	}
}

func (m *Machine) binaryNumber(op value.OpCode) {
	b, ok1 := m.peek(0).(value.Number)
	a, ok2 := m.peek(1).(value.Number)
	if !ok1 || !ok2 {
		panic(m.runtimeError("operands must be numbers"))
	}
	m.pop()
	m.pop()
	switch op {
	case value.OpGreater:
		m.push(value.Bool(a > b))
	case value.OpLess:
		m.push(value.Bool(a < b))
	case value.OpSubtract:
		m.push(a - b)
	case value.OpMultiply:
		m.push(a * b)
	case value.OpDivide:
		m.push(a / b)
	}
}

// opAdd implements '+': number+number, or string+string concatenation
// (interned, per spec.md §9's decision that string+number is a runtime
// error rather than implicit coercion).
func (m *Machine) opAdd() {
	b, c := m.peek(0), m.peek(1)
	switch bv := b.(type) {
	case value.Number:
		if av, ok := c.(value.Number); ok {
			m.pop()
			m.pop()
			m.push(av + bv)
			return
		}
	case *value.String:
		if av, ok := c.(*value.String); ok {
			m.pop()
			m.pop()
			m.push(m.heap.InternString(av.Chars + bv.Chars))
			return
		}
	}
	panic(m.runtimeError("operands must be two numbers or two strings"))
}
