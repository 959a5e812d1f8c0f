package value

// String is an immutable heap-allocated byte sequence with a precomputed
// hash, used for both string values and property/method/variable names.
// Strings are normally interned (see Heap.InternString) so that equal
// content means identical pointer, making map-key lookups by name an
// identity comparison.
type String struct {
	ObjHeader
	Chars string
	Hash  uint32
}

var (
	_ Value = (*String)(nil)
	_ Obj   = (*String)(nil)
)

func (s *String) String() string    { return s.Chars }
func (s *String) TypeName() string  { return "string" }
func (s *String) Trace(func(Value)) {}

// HashString computes the FNV-1a hash of s, the same algorithm used to hash
// every interned String.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
