package heap

// Pointer identifies an allocation by the offset of its payload within the heap's arena. Every
// payload sits after a block header, so the zero value never names a live allocation.
type Pointer int

// NullPointer is returned alongside allocation failures. Releasing it does nothing.
const NullPointer Pointer = 0
