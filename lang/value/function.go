package value

import "fmt"

// Function is the compiled form of a 'fun' declaration (or the implicit
// top-level function of a program or REPL line): a name, its arity, the
// number of upvalues its closures must capture, and its owned Chunk.
type Function struct {
	ObjHeader
	Name         string // empty for the implicit top-level/anonymous function
	Arity        int
	UpvalueCount int
	Chunk        Chunk
}

var (
	_ Value = (*Function)(nil)
	_ Obj   = (*Function)(nil)
)

func (f *Function) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}
func (f *Function) TypeName() string { return "function" }

func (f *Function) Trace(mark func(Value)) {
	for _, c := range f.Chunk.Constants {
		mark(c)
	}
}

// UpvalueDesc describes, for one upvalue slot of a Function, where the
// enclosing Closure created for it should capture its value from: a local
// slot in the immediately enclosing frame (IsLocal true) or an upvalue of the
// enclosing closure (IsLocal false).
type UpvalueDesc struct {
	IsLocal bool
	Index   byte
}

// Closure pairs a Function with the Upvalues its body captured from
// enclosing scopes. It is the only callable value produced by 'fun'.
type Closure struct {
	ObjHeader
	Function *Function
	Upvalues []*Upvalue
}

var (
	_ Value = (*Closure)(nil)
	_ Obj   = (*Closure)(nil)
)

func (c *Closure) String() string   { return c.Function.String() }
func (c *Closure) TypeName() string { return "function" }

func (c *Closure) Trace(mark func(Value)) {
	mark(c.Function)
	for _, uv := range c.Upvalues {
		// OP_CLOSURE allocates the Closure and roots it before filling each
		// Upvalues slot one at a time, so a collection mid-fill can find a
		// still-nil slot here; mark(nil) would hand the heap a typed-nil
		// *Upvalue wrapped in a non-nil Value interface.
		if uv != nil {
			mark(uv)
		}
	}
}

// Name returns the name of the underlying function, or "script" for the
// implicit top-level function.
func (c *Closure) Name() string {
	if c.Function.Name == "" {
		return "script"
	}
	return c.Function.Name
}

// NativeFn is a host-provided function such as 'clock' or 'str'. Arity of -1
// means variadic.
type NativeFn struct {
	ObjHeader
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

var (
	_ Value = (*NativeFn)(nil)
	_ Obj   = (*NativeFn)(nil)
)

func (n *NativeFn) String() string       { return "<native fn>" }
func (n *NativeFn) TypeName() string     { return "function" }
func (n *NativeFn) Trace(func(Value))    {}
