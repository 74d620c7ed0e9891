package metadata

// AllocationRequestType is an enum that indicates which search produced an AllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestBestFit indicates the block was chosen by the best-fit search
	AllocationRequestBestFit AllocationRequestType = iota
	// AllocationRequestExactFit indicates the search stopped early on a block of exactly the requested size
	AllocationRequestExactFit
	// AllocationRequestFirstFit indicates the block was the lowest-offset block large enough
	AllocationRequestFirstFit
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestBestFit:  "BestFit",
	AllocationRequestExactFit: "ExactFit",
	AllocationRequestFirstFit: "FirstFit",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to place a new allocation. It can be committed with BlockMetadata.Alloc as long as
// the arena has not been modified in between.
type AllocationRequest struct {
	// Offset is the offset of the header of the free block the allocation will be carved from
	Offset int
	// Size is the aligned block size of the allocation, header included
	Size int
	// BlockSize is the size of the free block at Offset when the request was created
	BlockSize int
	// Type identifies the search that produced this request
	Type AllocationRequestType
}

// PayloadOffset is the offset of the first byte the caller may use once the request is committed
func (r AllocationRequest) PayloadOffset(layout Layout) int {
	return r.Offset + layout.HeaderSpan()
}

// Split reports whether committing the request will split the chosen block
func (r AllocationRequest) Split(layout Layout) bool {
	return r.BlockSize-r.Size >= layout.MinBlockSize()
}
