// Package value implements the runtime value representation of KScript: the
// tagged-union Value type, the heap object model (Obj and its variants), the
// bytecode Chunk, and the instruction set the compiler emits and the machine
// executes.
package value

import "fmt"

// Value is any value a KScript program can manipulate: Nil, Bool, Number, or
// one of the heap-allocated Obj variants. Nil, Bool and Number are ordinary
// Go values, not tracked by the heap; every other concrete type implementing
// Value also implements Obj.
type Value interface {
	// String returns a human-readable rendering of the value, the same one
	// 'print' and the 'str' native produce.
	String() string
	// TypeName returns a short name for the value's type, used in error
	// messages (e.g. "number", "string", "nil").
	TypeName() string
}

// Nil is the value of the 'nil' literal. The zero value of Nil is the only
// meaningful value.
type Nil struct{}

func (Nil) String() string   { return "nil" }
func (Nil) TypeName() string { return "nil" }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) TypeName() string { return "bool" }

// Number is an IEEE-754 double; KScript has no separate integer type.
type Number float64

func (n Number) String() string {
	f := float64(n)
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
func (Number) TypeName() string { return "number" }

// Truth reports the truthiness of v: nil and false are false, every other
// value (including 0 and the empty string) is true.
func Truth(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal reports whether x and y are considered equal by KScript's '==':
// Nil==Nil, booleans and numbers by value, strings by content, every other
// object by identity.
func Equal(x, y Value) bool {
	switch x := x.(type) {
	case Nil:
		_, ok := y.(Nil)
		return ok
	case Bool:
		yb, ok := y.(Bool)
		return ok && x == yb
	case Number:
		yn, ok := y.(Number)
		return ok && x == yn
	case *String:
		ys, ok := y.(*String)
		return ok && x.Chars == ys.Chars
	default:
		return x == y
	}
}
