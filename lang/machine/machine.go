// Package machine implements KScript's virtual machine: a stack-based
// bytecode interpreter operating on the Closures, Classes and Instances the
// compiler package produces, driven by a value.Chunk's flat instruction
// stream.
package machine

import (
	"context"
	"io"

	"github.com/dolthub/swiss"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// frame is one call-frame on the machine's call stack: the running closure,
// the instruction pointer into its chunk, and the base slot of its window
// onto the value stack.
type frame struct {
	closure *value.Closure
	ip      int
	base    int
}

// RuntimeError is returned by Run when a KScript program raises an error
// that isn't caught by the host: an operation applied to the wrong type, an
// undefined global, a wrong arity, and so on. Error() renders the message
// followed by a call-stack trace, formatted per spec.md §7: one "[line L]
// in <fn>" entry per active frame, innermost first.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	for _, line := range e.Trace {
		msg += "\n" + line
	}
	return msg
}

// Machine is a single KScript thread of execution: its value stack, call
// frames, global namespace, and the heap it allocates from. A Machine is not
// safe for concurrent use; spec.md confines one Machine to one goroutine at
// a time, mirroring the teacher's single-threaded Thread type.
type Machine struct {
	stack  []value.Value
	sp     int
	frames []frame

	globals *swiss.Map[string, value.Value]
	heap    *heap.Heap

	openUpvalues *value.Upvalue

	// Stdout is where 'print' writes. Defaults to io.Discard-free os.Stdout
	// via New; tests typically substitute a bytes.Buffer.
	Stdout io.Writer

	// Ctx, when set, is checked periodically so a runaway script can be
	// cancelled cooperatively (e.g. Ctrl-C at the REPL); this is a host-level
	// affordance, invisible to KScript programs themselves. Defaults to
	// context.Background() via New.
	Ctx context.Context

	// MaxFrames overrides the default call-frame depth limit (framesMax) when
	// non-zero, wired from the CLI's -max-frames flag.
	MaxFrames int

	// StepLimit, when non-zero, bounds the number of instructions Run will
	// execute before returning a RuntimeError, wired from -max-steps.
	StepLimit int

	steps int
}

func (m *Machine) maxFrames() int {
	if m.MaxFrames > 0 {
		return m.MaxFrames
	}
	return framesMax
}

var _ heap.RootMarker = (*Machine)(nil)
