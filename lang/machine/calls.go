package machine

import "github.com/mna/kscript/lang/value"

// callValue dispatches a call to whatever kind of callable sits at
// peek(argc): a Closure, a BoundMethod, a Class (constructor), or a
// NativeFn. It leaves the result on the stack in place of the callee and its
// arguments, in the normal case; for Closures it instead pushes a new frame
// and returns, letting run's loop continue from there.
func (m *Machine) callValue(callee value.Value, argc int) bool {
	switch c := callee.(type) {
	case *value.Closure:
		return m.call(c, argc)
	case *value.BoundMethod:
		m.stack[m.sp-argc-1] = c.Receiver
		return m.call(c.Method, argc)
	case *value.Class:
		inst := value.NewInstance(c)
		m.heap.Alloc(inst, 48)
		m.stack[m.sp-argc-1] = inst
		if init, ok := c.Method("init"); ok {
			return m.call(init, argc)
		}
		if argc != 0 {
			panic(m.runtimeError("expected 0 arguments but got %d", argc))
		}
		return true
	case *value.NativeFn:
		args := make([]value.Value, argc)
		copy(args, m.stack[m.sp-argc:m.sp])
		result, err := c.Fn(args)
		if err != nil {
			panic(m.runtimeError("%s", err.Error()))
		}
		m.sp -= argc + 1
		m.push(result)
		return true
	default:
		panic(m.runtimeError("can only call functions and classes"))
	}
}

// call pushes a new frame for closure, having already placed its argc
// arguments (and the closure itself, at base-1) on the stack.
func (m *Machine) call(closure *value.Closure, argc int) bool {
	if argc != closure.Function.Arity {
		panic(m.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argc))
	}
	if len(m.frames) >= m.maxFrames() {
		panic(m.runtimeError("stack overflow"))
	}
	m.frames = append(m.frames, frame{
		closure: closure,
		base:    m.sp - argc,
	})
	return true
}

// invoke fuses a property lookup with a call, the OP_INVOKE fast path for
// 'recv.method(args)' that skips materializing a BoundMethod (spec.md
// §4.4). Plain field access (a callable stored in a field rather than a
// class method) still works, falling back to get-then-call.
func (m *Machine) invoke(name *value.String, argc int) {
	receiver := m.peek(argc)
	inst, ok := receiver.(*value.Instance)
	if !ok {
		panic(m.runtimeError("only instances have methods"))
	}
	if field, ok := inst.Fields.Get(name.Chars); ok {
		m.stack[m.sp-argc-1] = field
		m.callValue(field, argc)
		return
	}
	m.invokeFromClass(inst.Class, name, argc)
}

func (m *Machine) invokeFromClass(class *value.Class, name *value.String, argc int) {
	method, ok := class.Method(name.Chars)
	if !ok {
		panic(m.runtimeError("undefined property '%s'", name.Chars))
	}
	m.call(method, argc)
}

func (m *Machine) opGetProperty(name *value.String) {
	inst, ok := m.peek(0).(*value.Instance)
	if !ok {
		panic(m.runtimeError("only instances have properties"))
	}
	if field, ok := inst.Fields.Get(name.Chars); ok {
		m.pop()
		m.push(field)
		return
	}
	m.bindMethod(inst.Class, inst, name)
}

func (m *Machine) opSetProperty(name *value.String) {
	inst, ok := m.peek(1).(*value.Instance)
	if !ok {
		panic(m.runtimeError("only instances have fields"))
	}
	inst.Fields.Put(name.Chars, m.peek(0))
	v := m.pop()
	m.pop()
	m.push(v)
}

func (m *Machine) bindMethod(class *value.Class, receiver value.Value, name *value.String) {
	method, ok := class.Method(name.Chars)
	if !ok {
		panic(m.runtimeError("undefined property '%s'", name.Chars))
	}
	bound := &value.BoundMethod{Receiver: receiver, Method: method}
	m.heap.Alloc(bound, 32)
	m.pop()
	m.push(bound)
}

func (m *Machine) defineMethod(name *value.String) {
	method := m.peek(0).(*value.Closure)
	class := m.peek(1).(*value.Class)
	class.Methods.Put(name.Chars, method)
	m.pop()
}

// captureUpvalue returns the open Upvalue for stack slot, reusing an
// existing one if the machine's intrusive open-upvalues list (sorted by
// descending slot) already has one for this exact slot, per spec.md §4.2.
func (m *Machine) captureUpvalue(slot int) *value.Upvalue {
	var prev *value.Upvalue
	uv := m.openUpvalues
	for uv != nil && uv.Slot > slot {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Slot == slot {
		return uv
	}

	created := &value.Upvalue{Stack: m.stack, Slot: slot}
	m.heap.Alloc(created, 24)
	created.Next = uv
	if prev == nil {
		m.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above slot (the frame's base
// slots being popped), copying each one's value out of the stack so it
// survives after the frame's stack window is reused.
func (m *Machine) closeUpvalues(slot int) {
	for m.openUpvalues != nil && m.openUpvalues.Slot >= slot {
		uv := m.openUpvalues
		uv.Close()
		m.openUpvalues = uv.Next
	}
}
