package machine

import (
	"fmt"
	"time"

	"github.com/mna/kscript/lang/value"
)

// defineNatives installs the host-provided functions spec.md §6 promises
// every program: 'clock' for coarse timing and benchmarking loops, and
// 'str' for explicit stringification of any value.
func defineNatives(m *Machine) {
	m.defineNative("clock", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
	m.defineNative("str", 1, func(args []value.Value) (value.Value, error) {
		return m.heap.InternString(args[0].String()), nil
	})
}

func (m *Machine) defineNative(name string, arity int, fn func([]value.Value) (value.Value, error)) {
	native := &value.NativeFn{Name: name, Arity: arity, Fn: func(args []value.Value) (value.Value, error) {
		if arity >= 0 && len(args) != arity {
			return nil, fmt.Errorf("expected %d arguments but got %d", arity, len(args))
		}
		return fn(args)
	}}
	m.heap.Alloc(native, 32)
	m.globals.Put(name, native)
}
