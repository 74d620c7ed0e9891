package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/vmheap/memutils"
)

// BlockMetadata manages the block chain embedded in a single arena. All metadata lives inside
// the arena itself: implementations may not keep an auxiliary index of blocks, and every query
// is answered by walking the chain.
type BlockMetadata interface {
	// Size retrieves the size in bytes of the arena
	Size() int
	// Layout retrieves the block layout shared with the arena initializer
	Layout() Layout

	// Validate performs internal consistency checks on the block chain. When the implementation
	// is functioning correctly and callers respect the release contract, it should not be possible
	// for this method to return an error.
	Validate() error
	// AllocationCount returns the number of busy blocks in the arena
	AllocationCount() int
	// FreeRegionsCount returns the number of free blocks in the arena. Since adjacent free blocks
	// are always merged, this is also the number of distinct free regions.
	FreeRegionsCount() int
	// SumFreeSize returns the number of bytes held by free blocks, headers and footers included
	SumFreeSize() int
	// MayHaveFreeBlock is a fast heuristic indicating whether an allocation of the provided
	// size could possibly succeed. It may produce false positives but never false negatives.
	MayHaveFreeBlock(size int) bool
	// IsEmpty will return true if this arena has no live allocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each block in address order
	VisitAllRegions(handleBlock func(offset int, size int, free bool) error) error

	// AddDetailedStatistics sums this arena's allocation statistics into the provided
	// memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this arena's allocation statistics into the provided memutils.Statistics
	// object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations, leaving a single free block that spans the arena
	Clear()
	// BlockJsonData populates a json object with information about this arena
	BlockJsonData(json jwriter.ObjectState)

	// CheckCorruption returns nil if the anti-corruption markers are present after every busy
	// payload. Markers are only written when memutils is built with the `debug_mem_utils` build tag.
	CheckCorruption() error

	// CreateAllocationRequest performs the placement search for an allocation of allocSize payload
	// bytes and returns where the implementation would place it. It does not modify the arena. If
	// no block can hold the allocation, it returns false with a nil error.
	CreateAllocationRequest(allocSize int, strategy AllocationStrategy) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest, marking the chosen block busy and splitting it if the
	// remainder can form a block of its own. The implementation must return an error without
	// modifying the arena if the request no longer matches the arena's contents.
	Alloc(request AllocationRequest) error

	// Free releases the block whose payload starts at payloadOffset and merges it with any free
	// neighbors. Releasing a block that is already free returns memutils.ErrAlreadyFree and leaves
	// the arena untouched.
	Free(payloadOffset int) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	view     blockView
	observer RegionObserver
}

// NewBlockMetadata creates a new BlockMetadataBase over the provided arena. The observer is
// notified of every committed allocation and release; pass nil if nobody needs to know.
func NewBlockMetadata(data []byte, layout Layout, observer RegionObserver) BlockMetadataBase {
	if observer == nil {
		observer = FakeRegionObserver{}
	}

	return BlockMetadataBase{
		view:     blockView{data: data, layout: layout},
		observer: observer,
	}
}

// Size returns the size of the arena in bytes
func (m *BlockMetadataBase) Size() int { return len(m.view.data) }

// Layout returns the block layout of the arena
func (m *BlockMetadataBase) Layout() Layout { return m.view.layout }

// BlockJsonData populates a json object with information about this arena
func (m *BlockMetadataBase) BlockJsonData(json jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
	json.Name("Alignment").Int(int(m.view.layout.Alignment))
}
