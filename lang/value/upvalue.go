package value

// Upvalue relays a closure's access to a variable that lives in an outer
// frame. While open, it points at a slot on the value stack owned by some
// still-running frame; once that frame returns, the upvalue is closed and
// owns the value outright. Open upvalues form a linked list (maintained by
// the machine package) sorted by descending stack slot so that capturing the
// same slot twice returns the same Upvalue.
type Upvalue struct {
	ObjHeader

	// Stack is the value stack the upvalue reads from while open; Slot is the
	// index into it. Closed is true once the upvalue owns Value instead.
	Stack  []Value
	Slot   int
	Closed bool
	Value  Value

	// Next links to the upvalue for the next-lower stack slot in the machine's
	// open-upvalues list. Unused once Closed.
	Next *Upvalue
}

var (
	_ Obj = (*Upvalue)(nil)
)

func (u *Upvalue) String() string   { return "upvalue" }
func (u *Upvalue) TypeName() string { return "upvalue" }

func (u *Upvalue) Trace(mark func(Value)) {
	if u.Closed {
		mark(u.Value)
	}
}

// Get returns the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.Closed {
		return u.Value
	}
	return u.Stack[u.Slot]
}

// Set assigns the upvalue's current value, whether open or closed.
func (u *Upvalue) Set(v Value) {
	if u.Closed {
		u.Value = v
		return
	}
	u.Stack[u.Slot] = v
}

// Close detaches the upvalue from the stack, copying out its current value.
// Called when the frame owning its slot is about to be popped.
func (u *Upvalue) Close() {
	u.Value = u.Stack[u.Slot]
	u.Closed = true
	u.Stack = nil
}
