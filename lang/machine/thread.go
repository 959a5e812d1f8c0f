package machine

import (
	"context"
	"fmt"
	"os"

	"github.com/dolthub/swiss"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/value"
)

// New returns a Machine ready to run closures allocated from h. The native
// functions described in spec.md §6 ('clock', 'str') are defined as globals
// up front.
func New(h *heap.Heap) *Machine {
	m := &Machine{
		stack:   make([]value.Value, stackMax),
		globals: swiss.NewMap[string, value.Value](32),
		heap:    h,
		Stdout:  os.Stdout,
		Ctx:     context.Background(),
	}
	h.AddRootMarker(m)
	defineNatives(m)
	return m
}

// MarkRoots implements heap.RootMarker: the value stack (up to sp), every
// frame's closure, the open-upvalues list, and the globals table are all GC
// roots while the machine is alive.
func (m *Machine) MarkRoots(mark func(value.Value)) {
	for i := 0; i < m.sp; i++ {
		mark(m.stack[i])
	}
	for _, fr := range m.frames {
		mark(fr.closure)
	}
	for uv := m.openUpvalues; uv != nil; uv = uv.Next {
		mark(uv)
	}
	m.globals.Iter(func(_ string, v value.Value) bool {
		mark(v)
		return false
	})
}

func (m *Machine) push(v value.Value) {
	if m.sp >= len(m.stack) {
		panic(&RuntimeError{Message: "stack overflow"})
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *Machine) pop() value.Value {
	m.sp--
	return m.stack[m.sp]
}

func (m *Machine) peek(distance int) value.Value {
	return m.stack[m.sp-1-distance]
}

// Run executes closure to completion (as the implicit top-level script, or
// as an already-bound call). It returns the error if execution raised one.
func (m *Machine) Run(closure *value.Closure) (err error) {
	m.push(closure)
	if !m.call(closure, 0) {
		return &RuntimeError{Message: "failed to start closure"}
	}
	return m.run()
}

func (m *Machine) currentFrame() *frame { return &m.frames[len(m.frames)-1] }

// runtimeError builds a RuntimeError carrying the current call-stack trace
// and unwinds all frames, leaving the machine ready to run another program
// (mirroring the teacher's Thread, which is reusable across calls).
func (m *Machine) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	var trace []string
	for i := len(m.frames) - 1; i >= 0; i-- {
		fr := m.frames[i]
		fn := fr.closure.Function
		line := fn.Chunk.Lines[fr.ip-1]
		name := "script"
		if fn.Name != "" {
			name = fn.Name + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	m.frames = m.frames[:0]
	m.sp = 0
	return &RuntimeError{Message: msg, Trace: trace}
}
