package metadata

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/vmheap/memutils"
	"golang.org/x/exp/slog"
)

// BestFitBlockMetadata manages an arena as a single chain of variable-length blocks. Every block
// starts with a packed Header, and free blocks end with a footer recording their size so that a
// block can find its predecessor without a separate free list. The chain ends at the end of the
// arena; there is no terminator block.
type BestFitBlockMetadata struct {
	BlockMetadataBase
}

var _ BlockMetadata = &BestFitBlockMetadata{}

// NewBestFitBlockMetadata attaches to an arena that has already been formatted with FormatArena
// (or by any initializer that follows the same Layout). The arena is not modified.
func NewBestFitBlockMetadata(data []byte, layout Layout, observer RegionObserver) *BestFitBlockMetadata {
	return &BestFitBlockMetadata{
		BlockMetadataBase: NewBlockMetadata(data, layout, observer),
	}
}

// FormatArena installs a single free block spanning all of data. The length of data must be a
// multiple of the layout's alignment and large enough to hold one minimal block.
func FormatArena(data []byte, layout Layout) error {
	err := layout.Validate()
	if err != nil {
		return err
	}

	size := len(data)
	if size < layout.MinBlockSize() {
		return errors.Newf("arena of %d bytes is smaller than the minimum block size %d", size, layout.MinBlockSize())
	}
	if !memutils.IsAligned(size, layout.Alignment) {
		return errors.Newf("arena size %d is not a multiple of the alignment %d", size, layout.Alignment)
	}
	if uint64(size) > layout.maxBlockSize() {
		return errors.Newf("arena size %d does not fit in a %d-byte header and a %d-byte footer", size, layout.HeaderSize, layout.FooterSize)
	}

	view := blockView{data: data, layout: layout}
	view.setHeader(0, Header{Size: size, PrevBusy: true})
	view.setFooter(0, size)
	return nil
}

// walk visits every block in address order until visit returns true or an error
func (m *BestFitBlockMetadata) walk(visit func(offset int, header Header) (bool, error)) error {
	for offset := 0; offset < m.view.end(); {
		header, err := m.view.header(offset)
		if err != nil {
			return err
		}

		stop, err := visit(offset, header)
		if err != nil || stop {
			return err
		}

		offset += header.Size
	}

	return nil
}

func (m *BestFitBlockMetadata) Validate() error {
	layout := m.view.layout
	err := layout.Validate()
	if err != nil {
		return err
	}

	if m.Size() < layout.MinBlockSize() {
		return errors.Wrapf(memutils.ErrCorruptArena, "arena of %d bytes cannot hold a block", m.Size())
	}
	if !memutils.IsAligned(m.Size(), layout.Alignment) {
		return errors.Wrapf(memutils.ErrCorruptArena, "arena size %d is not a multiple of the alignment %d", m.Size(), layout.Alignment)
	}

	prevBusy := true
	prevFree := false
	calculatedSize := 0

	err = m.walk(func(offset int, header Header) (bool, error) {
		if header.PrevBusy != prevBusy {
			return true, errors.Wrapf(memutils.ErrCorruptArena, "block at offset %d has previous-busy flag %t, but its predecessor's busy flag is %t", offset, header.PrevBusy, prevBusy)
		}

		if !header.Busy {
			if prevFree {
				return true, errors.Wrapf(memutils.ErrCorruptArena, "block at offset %d is free and directly follows another free block", offset)
			}

			footerSize, err := m.view.footerBefore(offset + header.Size)
			if err != nil {
				return true, err
			}
			if footerSize != header.Size {
				return true, errors.Wrapf(memutils.ErrCorruptArena, "free block at offset %d has size %d, but its footer records %d", offset, header.Size, footerSize)
			}
		}

		calculatedSize += header.Size
		prevBusy = header.Busy
		prevFree = !header.Busy
		return false, nil
	})
	if err != nil {
		return err
	}

	if calculatedSize != m.Size() {
		return errors.Wrapf(memutils.ErrCorruptArena, "the full size of the arena is %d, but the blocks only added up to %d", m.Size(), calculatedSize)
	}

	return nil
}

func (m *BestFitBlockMetadata) VisitAllRegions(handleBlock func(offset int, size int, free bool) error) error {
	return m.walk(func(offset int, header Header) (bool, error) {
		return false, handleBlock(offset, header.Size, !header.Busy)
	})
}

func (m *BestFitBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.Size()

	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

func (m *BestFitBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.AllocationCount()
	stats.BlockBytes += m.Size()
	stats.AllocationBytes += m.Size() - m.SumFreeSize()
}

func (m *BestFitBlockMetadata) AllocationCount() int {
	var count int
	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if !free {
			count++
		}
		return nil
	})

	return count
}

func (m *BestFitBlockMetadata) FreeRegionsCount() int {
	var count int
	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if free {
			count++
		}
		return nil
	})

	return count
}

func (m *BestFitBlockMetadata) SumFreeSize() int {
	var sum int
	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if free {
			sum += size
		}
		return nil
	})

	return sum
}

func (m *BestFitBlockMetadata) MayHaveFreeBlock(size int) bool {
	if size < 1 || size > m.Size() {
		return false
	}

	needed := m.view.layout.BlockSizeFor(size)
	var found bool
	_ = m.walk(func(offset int, header Header) (bool, error) {
		found = !header.Busy && header.Size >= needed
		return found, nil
	})

	return found
}

func (m *BestFitBlockMetadata) IsEmpty() bool {
	return m.AllocationCount() == 0
}

func (m *BestFitBlockMetadata) Clear() {
	if m.Size() < m.view.layout.MinBlockSize() {
		panic("cannot clear an arena that is too small to hold a block")
	}

	m.view.setHeader(0, Header{Size: m.Size(), PrevBusy: true})
	m.view.setFooter(0, m.Size())
	m.observer.Clear()
}

func (m *BestFitBlockMetadata) BlockJsonData(json jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	m.AddDetailedStatistics(&stats)

	m.BlockMetadataBase.BlockJsonData(json, stats.UnusedBytes(), stats.AllocationCount, stats.UnusedRangeCount)
}

func (m *BestFitBlockMetadata) CheckCorruption() error {
	return m.walk(func(offset int, header Header) (bool, error) {
		if header.Busy && !memutils.ValidateMagicValue(m.view.data, offset+header.Size-memutils.DebugMargin) {
			return true, errors.Newf("memory corruption detected after the allocation at offset %d", offset)
		}
		return false, nil
	})
}

func (m *BestFitBlockMetadata) CreateAllocationRequest(allocSize int, strategy AllocationStrategy) (bool, AllocationRequest, error) {
	var allocRequest AllocationRequest

	if allocSize < 1 {
		return false, allocRequest, errors.Wrapf(memutils.ErrZeroSize, "invalid allocSize: %d", allocSize)
	}

	memutils.DebugValidate(m)

	// Is the arena big enough?
	if allocSize > m.Size() {
		return false, allocRequest, nil
	}

	size := m.view.layout.BlockSizeFor(allocSize)
	firstFit := strategy.isFirstFit()
	bestOffset := -1
	bestSize := math.MaxInt
	requestType := AllocationRequestBestFit

	err := m.walk(func(offset int, header Header) (bool, error) {
		if header.Busy || header.Size < size {
			return false, nil
		}

		if header.Size == size {
			bestOffset, bestSize = offset, header.Size
			requestType = AllocationRequestExactFit
			return true, nil
		}

		if firstFit {
			bestOffset, bestSize = offset, header.Size
			requestType = AllocationRequestFirstFit
			return true, nil
		}

		// Strictly smaller so the lowest offset wins ties
		if header.Size < bestSize {
			bestOffset, bestSize = offset, header.Size
		}
		return false, nil
	})
	if err != nil {
		return false, allocRequest, err
	}

	if bestOffset < 0 {
		return false, allocRequest, nil
	}

	allocRequest.Offset = bestOffset
	allocRequest.Size = size
	allocRequest.BlockSize = bestSize
	allocRequest.Type = requestType
	return true, allocRequest, nil
}

func (m *BestFitBlockMetadata) Alloc(req AllocationRequest) error {
	layout := m.view.layout

	if !memutils.IsAligned(req.Offset, layout.Alignment) {
		return errors.Newf("allocation request offset %d is not aligned to %d", req.Offset, layout.Alignment)
	}
	if req.Size < layout.MinBlockSize() || !memutils.IsAligned(req.Size, layout.Alignment) {
		return errors.Newf("allocation request has invalid size %d", req.Size)
	}

	current, err := m.view.header(req.Offset)
	if err != nil {
		return err
	}
	if current.Busy {
		return errors.Newf("allocation request targets the block at offset %d, which is already busy", req.Offset)
	}
	if current.Size != req.BlockSize {
		return errors.Newf("allocation request expected a block of %d bytes at offset %d, but found %d", req.BlockSize, req.Offset, current.Size)
	}
	if current.Size < req.Size {
		return errors.New("allocation request had a block too small for the request")
	}

	split := req.Split(layout)
	blockSize := current.Size
	if split {
		blockSize = req.Size
	}
	next := req.Offset + blockSize

	// Read the successor before writing anything so a corrupt chain leaves the arena untouched
	if !split && next != m.view.end() {
		_, err = m.view.header(next)
		if err != nil {
			return err
		}
	}

	if split {
		remainder := current.Size - req.Size
		m.view.setHeader(req.Offset, Header{Size: req.Size, Busy: true, PrevBusy: current.PrevBusy})
		m.view.setHeader(next, Header{Size: remainder, PrevBusy: true})
		m.view.setFooter(next, remainder)
	} else {
		current.Busy = true
		m.view.setHeader(req.Offset, current)

		err = m.view.setPrevBusy(next, true)
		if err != nil {
			return err
		}
	}

	if memutils.DebugMargin > 0 {
		memutils.WriteMagicValue(m.view.data, req.Offset+blockSize-memutils.DebugMargin)
	}

	m.observer.AllocRegion(req.Offset, blockSize, split)
	return nil
}

// BlockAt returns the header of the busy block whose payload starts at payloadOffset
func (m *BestFitBlockMetadata) BlockAt(payloadOffset int) (Header, error) {
	layout := m.view.layout
	offset := payloadOffset - layout.HeaderSpan()

	if offset < 0 || payloadOffset >= m.view.end() || !memutils.IsAligned(offset, layout.Alignment) {
		return Header{}, errors.Wrapf(memutils.ErrBadPointer, "payload offset %d", payloadOffset)
	}

	header, err := m.view.header(offset)
	if err != nil {
		return header, errors.Wrapf(err, "payload offset %d", payloadOffset)
	}
	if !header.Busy {
		return header, errors.Wrapf(memutils.ErrAlreadyFree, "block at offset %d", offset)
	}

	return header, nil
}

func (m *BestFitBlockMetadata) Free(payloadOffset int) error {
	block, err := m.BlockAt(payloadOffset)
	if err != nil {
		return err
	}

	offset := payloadOffset - m.view.layout.HeaderSpan()
	next := offset + block.Size

	// Look up both neighbors before writing anything
	var nextHeader Header
	hasNext := next != m.view.end()
	if hasNext {
		nextHeader, err = m.view.header(next)
		if err != nil {
			return err
		}
	}

	prev := -1
	var prevHeader Header
	if !block.PrevBusy {
		prevSize, err := m.view.footerBefore(offset)
		if err != nil {
			return err
		}

		prev = offset - prevSize
		prevHeader, err = m.view.header(prev)
		if err != nil {
			return err
		}
		if prevHeader.Busy || prevHeader.Size != prevSize {
			return errors.Wrapf(memutils.ErrCorruptArena, "block at offset %d claims a free predecessor, but the footer before it does not match", offset)
		}
	}

	m.observer.FreeRegion(offset, block.Size)

	block.Busy = false
	m.view.setHeader(offset, block)
	m.view.setFooter(offset, block.Size)

	if hasNext {
		nextHeader.PrevBusy = false
		m.view.setHeader(next, nextHeader)

		// Merge forward first so that a backward merge adds the final size
		if !nextHeader.Busy {
			block.Size += nextHeader.Size
			m.view.setHeader(offset, block)
			m.view.setFooter(offset, block.Size)
			m.observer.MergeRegions(offset, block.Size, true)
		}
	}

	if prev >= 0 {
		prevHeader.Size += block.Size
		m.view.setHeader(prev, prevHeader)
		m.view.setFooter(prev, prevHeader.Size)
		m.observer.MergeRegions(prev, prevHeader.Size, false)
	}

	return nil
}

func (m *BestFitBlockMetadata) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, offset int, size int)) {
	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if !free {
			logFunc(logger, offset, size)
		}
		return nil
	})
}

// PrintDetailedMap writes every block in the arena to a "Regions" array on the provided json
// object. name may be nil; if it is not, it is called with the payload offset of each busy block
// and any non-empty result is written alongside the block.
func (m *BestFitBlockMetadata) PrintDetailedMap(json jwriter.ObjectState, name func(payloadOffset int) string) {
	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Size").Int(size)
		if free {
			obj.Name("Type").String("Free")
			return nil
		}

		obj.Name("Type").String("Busy")
		obj.Name("PayloadSize").Int(m.view.layout.PayloadSize(size))
		if name != nil {
			if allocName := name(offset + m.view.layout.HeaderSpan()); allocName != "" {
				obj.Name("Name").String(allocName)
			}
		}
		return nil
	})
}
