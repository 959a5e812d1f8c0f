package heap_test

import (
	"testing"

	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRoots lets a test control exactly what the collector considers
// reachable, without needing a whole VM.
type fakeRoots struct {
	values []value.Value
}

func (f *fakeRoots) MarkRoots(mark func(value.Value)) {
	for _, v := range f.values {
		mark(v)
	}
}

func TestInternStringDeduplicates(t *testing.T) {
	h := heap.New()
	a := h.InternString("hello")
	b := h.InternString("hello")
	assert.Same(t, a, b)

	c := h.InternString("world")
	assert.NotSame(t, a, c)
}

func TestCollectFreesUnreachableAndKeepsReachable(t *testing.T) {
	h := heap.New()
	roots := &fakeRoots{}
	h.AddRootMarker(roots)

	kept := h.InternString("kept")
	roots.values = []value.Value{kept}

	oldGarbage := h.InternString("garbage")

	before := h.BytesAllocated()
	h.Collect()
	after := h.BytesAllocated()

	assert.Less(t, after, before)

	// kept must still be findable and identical (weak intern table kept its
	// entry because the string was marked).
	again := h.InternString("kept")
	assert.Same(t, kept, again)

	// garbage must have been re-allocated as a *new* object, since its old
	// intern-table entry was cleared.
	gone := h.InternString("garbage")
	assert.NotNil(t, gone)
	assert.NotSame(t, oldGarbage, gone)
}

func TestStressGCPreservesReachableGraph(t *testing.T) {
	h := heap.New()

	roots := &fakeRoots{}
	h.AddRootMarker(roots)

	cls := value.NewClass("Counter")
	roots.values = []value.Value{cls}

	// Build the method graph first, rooting each closure via the class the
	// moment it exists, then turn on StressGC: every remaining allocation now
	// forces a full collection, and the already-rooted graph must survive all
	// of them intact.
	for i := 0; i < 10; i++ {
		fn := &value.Function{Name: "m"}
		h.Alloc(fn, 64)
		closure := &value.Closure{Function: fn}
		h.Alloc(closure, 64)
		cls.Methods.Put("m", closure)
	}

	h.StressGC = true
	for i := 0; i < 50; i++ {
		other := &value.Function{Name: "noise"}
		h.Alloc(other, 64)
	}

	m, ok := cls.Method("m")
	require.True(t, ok)
	require.NotNil(t, m)
}

func TestOnCollectCallback(t *testing.T) {
	h := heap.New()
	var stats []heap.Stats
	h.OnCollect = func(s heap.Stats) { stats = append(stats, s) }
	h.AddRootMarker(&fakeRoots{})

	_ = h.InternString("a")
	h.Collect()

	require.Len(t, stats, 1)
	assert.GreaterOrEqual(t, stats[0].ObjectsFreed, 1)
}
