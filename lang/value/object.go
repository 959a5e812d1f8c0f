package value

// ObjHeader is embedded by every heap-allocated object. It carries the
// bookkeeping the garbage collector needs: the mark bit and the intrusive
// link to the next object on the heap's all-objects list. Objects are never
// constructed directly with a zero ObjHeader in user code — they are always
// produced through Heap.Track (or a helper that calls it), which links them
// onto the list.
type ObjHeader struct {
	marked bool
	next   Obj
	size   int
}

// Obj is the interface every heap-allocated value implements in addition to
// Value. It exposes just enough for the heap package to trace and sweep
// objects without needing to switch on their concrete type.
type Obj interface {
	Value
	header() *ObjHeader
	// Trace calls mark for every Value this object directly references. It is
	// invoked by the collector while the object is gray, to turn its referents
	// gray in turn.
	Trace(mark func(Value))
}

func (h *ObjHeader) header() *ObjHeader { return h }

// Marked reports whether the object is currently marked reachable. Exposed
// for the heap package (same module, different package).
func (h *ObjHeader) Marked() bool { return h.marked }

// SetMarked sets the mark bit.
func (h *ObjHeader) SetMarked(v bool) { h.marked = v }

// Next returns the next object on the all-objects list.
func (h *ObjHeader) Next() Obj { return h.next }

// SetNext sets the next object on the all-objects list.
func (h *ObjHeader) SetNext(o Obj) { h.next = o }

// Size returns the number of bytes this object was charged against the
// heap's allocation pressure counter.
func (h *ObjHeader) Size() int { return h.size }

// SetSize records the number of bytes this object counts against the heap's
// allocation pressure counter.
func (h *ObjHeader) SetSize(n int) { h.size = n }

// Header exposes the ObjHeader of any Obj; used by the heap package, which
// cannot call the unexported header() method directly.
func Header(o Obj) *ObjHeader { return o.header() }
