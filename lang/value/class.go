package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Class is a KScript class: a name and a mapping from method name to
// Closure. Single inheritance is implemented by copying the superclass's
// method table into the subclass at the moment of 'extend' (OP_INHERIT);
// later changes to the superclass are not retroactively visible (see
// spec.md's inheritance copy-down invariant).
type Class struct {
	ObjHeader
	Name    string
	Methods *swiss.Map[string, *Closure]
}

var (
	_ Value = (*Class)(nil)
	_ Obj   = (*Class)(nil)
)

// NewClass returns an empty class named name.
func NewClass(name string) *Class {
	return &Class{Name: name, Methods: swiss.NewMap[string, *Closure](8)}
}

func (c *Class) String() string   { return fmt.Sprintf("<class %s>", c.Name) }
func (c *Class) TypeName() string { return "class" }

func (c *Class) Trace(mark func(Value)) {
	c.Methods.Iter(func(_ string, m *Closure) bool {
		mark(m)
		return false
	})
}

// Method looks up a method by name, returning (nil, false) if the class (or,
// via copy-down, its ancestors at inheritance time) has none by that name.
func (c *Class) Method(name string) (*Closure, bool) {
	return c.Methods.Get(name)
}

// Instance is an instance of a Class: a reference to its class plus a
// mapping from field name to Value.
type Instance struct {
	ObjHeader
	Class  *Class
	Fields *swiss.Map[string, Value]
}

var (
	_ Value = (*Instance)(nil)
	_ Obj   = (*Instance)(nil)
)

// NewInstance returns a new, field-less instance of class.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: swiss.NewMap[string, Value](4)}
}

func (i *Instance) String() string   { return fmt.Sprintf("<class %s instance>", i.Class.Name) }
func (i *Instance) TypeName() string { return "instance" }

func (i *Instance) Trace(mark func(Value)) {
	mark(i.Class)
	i.Fields.Iter(func(_ string, v Value) bool {
		mark(v)
		return false
	})
}

// BoundMethod pairs a receiver with one of its class's Closures, produced by
// reading a method off an instance (y = inst.method) or by 'super.method'.
type BoundMethod struct {
	ObjHeader
	Receiver Value
	Method   *Closure
}

var (
	_ Value = (*BoundMethod)(nil)
	_ Obj   = (*BoundMethod)(nil)
)

func (b *BoundMethod) String() string   { return b.Method.String() }
func (b *BoundMethod) TypeName() string { return "function" }

func (b *BoundMethod) Trace(mark func(Value)) {
	mark(b.Receiver)
	mark(b.Method)
}
