// Package heap implements KScript's object allocator and its stop-the-world
// mark-and-sweep garbage collector. Every heap-allocated value.Obj is routed
// through a single entry point (Track) that records it on the all-objects
// list and, once allocation pressure crosses a threshold, runs a collection
// cycle.
//
// GC must never run while an object is only partially initialized: callers
// that allocate an object and then allocate more objects to fill its fields
// (e.g. a Closure before its Upvalues are captured) must push the
// partially-built handle onto a root (typically the VM's value stack) before
// making any allocation that could itself trigger a collection.
package heap

import (
	"github.com/dolthub/swiss"
	"github.com/mna/kscript/lang/value"
)

// RootMarker is implemented by the owner of a Heap (the VM, and the compiler
// while it is building a program) to enumerate its GC roots. MarkRoots must
// call mark for every value.Value directly reachable from the root set: the
// value stack, call-frame closures, open upvalues, the globals table, and —
// while compiling — the in-progress function chain and its constant pools.
type RootMarker interface {
	MarkRoots(mark func(value.Value))
}

const (
	defaultNextGC  = 1 << 20 // 1 MiB of charged allocations before the first cycle
	growthFactor   = 2
	minThreshold   = 1 << 16
)

// Stats summarizes the outcome of a single collection cycle, for logging.
type Stats struct {
	ObjectsFreed   int
	BytesBefore    int
	BytesAfter     int
	NextThreshold  int
}

// Heap owns every heap-allocated KScript object and performs mark-and-sweep
// collection.
type Heap struct {
	objects value.Obj
	gray    []value.Obj

	bytesAllocated int
	nextGC         int

	strings *swiss.Map[string, *value.String]

	markers []RootMarker

	// OnCollect, if set, is invoked after every completed collection cycle.
	OnCollect func(Stats)

	// StressGC, when true, forces a collection on every single allocation.
	// Used by tests to verify GC safety per spec.md's testable properties.
	StressGC bool

	allocCount int
}

// New returns an empty Heap ready to track allocations.
func New() *Heap {
	return &Heap{
		nextGC:  defaultNextGC,
		strings: swiss.NewMap[string, *value.String](64),
	}
}

// AddRootMarker registers m as a source of GC roots. Root markers are
// consulted, in registration order, at the start of every collection cycle.
func (h *Heap) AddRootMarker(m RootMarker) {
	h.markers = append(h.markers, m)
}

// RemoveRootMarker undoes AddRootMarker; used by the compiler to pop itself
// off the root set once the top-level program finishes compiling.
func (h *Heap) RemoveRootMarker(m RootMarker) {
	for i, mk := range h.markers {
		if mk == m {
			h.markers = append(h.markers[:i], h.markers[i+1:]...)
			return
		}
	}
}

// BytesAllocated returns the current allocation-pressure counter.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// Track charges size against allocation pressure and triggers a collection
// cycle if pressure has crossed the threshold (or StressGC is set), before
// linking obj onto the heap's all-objects list. The ordering matters: obj is
// not traceable from any root yet at this point (it was just allocated by the
// caller and isn't reachable through the object graph), so it must also not
// yet be on the all-objects list that this collection's sweep frees from —
// running the collection first, then linking, keeps a freshly allocated
// object safe without requiring it to be rooted before this call returns.
// obj must itself be linked into the object graph (or become a new root)
// before any subsequent allocation, per the package-level GC-safety note.
func (h *Heap) Track(obj value.Obj, size int) {
	h.bytesAllocated += size
	h.allocCount++

	if h.StressGC || h.bytesAllocated >= h.nextGC {
		h.Collect()
	}

	hdr := value.Header(obj)
	hdr.SetSize(size)
	hdr.SetNext(h.objects)
	h.objects = obj
}

// InternString returns the canonical *value.String for s, allocating and
// tracking a new one only the first time s is seen. Equal content therefore
// always yields an identical pointer, making name-based field/method/global
// lookups an identity (and pointer-hash) comparison, per spec.md §9.
func (h *Heap) InternString(s string) *value.String {
	if str, ok := h.strings.Get(s); ok {
		return str
	}
	str := &value.String{Chars: s, Hash: value.HashString(s)}
	h.Track(str, len(s)+16)
	h.strings.Put(s, str)
	return str
}

// Alloc tracks a freshly constructed object of arbitrary kind (Function,
// Closure, Upvalue, Class, Instance, BoundMethod, NativeFn) with a charge of
// size bytes. Prefer InternString for strings.
func (h *Heap) Alloc(obj value.Obj, size int) {
	h.Track(obj, size)
}

// Collect runs one stop-the-world mark-and-sweep cycle: mark every object
// reachable from the registered root markers and the (weak) intern table,
// trace from there, then sweep the all-objects list freeing anything
// unmarked, and clear any intern-table entry whose string did not survive.
func (h *Heap) Collect() {
	before := h.bytesAllocated

	for _, m := range h.markers {
		m.MarkRoots(h.mark)
	}

	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		obj := h.gray[n]
		h.gray = h.gray[:n]
		obj.Trace(h.mark)
	}

	h.sweepInternTable()
	freed := h.sweepObjects()

	h.nextGC = h.bytesAllocated * growthFactor
	if h.nextGC < minThreshold {
		h.nextGC = minThreshold
	}

	if h.OnCollect != nil {
		h.OnCollect(Stats{
			ObjectsFreed:  freed,
			BytesBefore:   before,
			BytesAfter:    h.bytesAllocated,
			NextThreshold: h.nextGC,
		})
	}
}

// mark is the callback passed to RootMarker.MarkRoots and to Obj.Trace. It
// marks v (if it is a heap object and not already marked) and pushes it onto
// the gray worklist.
func (h *Heap) mark(v value.Value) {
	if v == nil {
		return
	}
	obj, ok := v.(value.Obj)
	if !ok {
		return // Nil, Bool, Number are not heap-tracked
	}
	hdr := value.Header(obj)
	if hdr.Marked() {
		return
	}
	hdr.SetMarked(true)
	h.gray = append(h.gray, obj)
}

// sweepInternTable clears weak root entries: any interned string that was
// not marked during this cycle is dropped from the table (its ObjHeader will
// be collected below, like any other unreachable object).
func (h *Heap) sweepInternTable() {
	var dead []string
	h.strings.Iter(func(k string, s *value.String) bool {
		if !value.Header(s).Marked() {
			dead = append(dead, k)
		}
		return false
	})
	for _, k := range dead {
		h.strings.Delete(k)
	}
}

// sweepObjects walks the all-objects list, drops every unmarked object, and
// clears the mark bit on every survivor so the next cycle starts fresh.
func (h *Heap) sweepObjects() int {
	freed := 0
	var prev value.Obj
	cur := h.objects
	for cur != nil {
		hdr := value.Header(cur)
		next := hdr.Next()
		if hdr.Marked() {
			hdr.SetMarked(false)
			prev = cur
		} else {
			h.bytesAllocated -= hdr.Size()
			freed++
			if prev == nil {
				h.objects = next
			} else {
				value.Header(prev).SetNext(next)
			}
		}
		cur = next
	}
	return freed
}
