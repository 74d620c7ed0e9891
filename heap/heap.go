package heap

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/vmheap/internal/utils"
	"github.com/vkngwrapper/vmheap/memutils"
	"github.com/vkngwrapper/vmheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// ErrDestroyed is returned from every operation on a heap after Destroy has succeeded
var ErrDestroyed = errors.New("heap has been destroyed")

// Heap hands out variable-sized allocations from a single arena. All bookkeeping apart from
// allocation names lives in the arena itself.
type Heap struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	data         []byte
	layout       metadata.Layout
	strategy     metadata.AllocationStrategy
	createFlags  CreateFlags
	releaseArena func() error

	metadata *metadata.BestFitBlockMetadata
	counters Counters
	names    *swiss.Map[Pointer, string]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

// Allocate reserves at least size bytes and returns a Pointer to them. The payload is aligned to
// the arena's alignment. Failure never modifies the arena: a zero size returns
// memutils.ErrZeroSize and an arena with no large enough free block returns
// memutils.ErrOutOfMemory. Both wrap memutils.ErrExhausted.
func (h *Heap) Allocate(size int) (Pointer, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::Allocate", slog.Int("Size", size))

	if h.metadata == nil {
		return NullPointer, ErrDestroyed
	}

	success, request, err := h.metadata.CreateAllocationRequest(size, h.strategy)
	if err != nil {
		h.counters.FailedAllocations++
		return NullPointer, err
	}
	if !success {
		h.counters.FailedAllocations++
		return NullPointer, errors.Wrapf(memutils.ErrOutOfMemory, "allocation of %d bytes", size)
	}

	err = h.metadata.Alloc(request)
	if err != nil {
		h.counters.FailedAllocations++
		return NullPointer, err
	}

	h.counters.AllocateCalls++
	return Pointer(request.PayloadOffset(h.layout)), nil
}

// Release returns an allocation to the heap, merging it with any free neighbors. Releasing
// NullPointer or an allocation that has already been released does nothing. Pointers that do
// not name an allocation in this heap are reported to the logger and otherwise ignored.
func (h *Heap) Release(ptr Pointer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::Release", slog.Int("Pointer", int(ptr)))

	if ptr == NullPointer || h.metadata == nil {
		return
	}

	err := h.metadata.Free(int(ptr))
	if errors.Is(err, memutils.ErrAlreadyFree) {
		h.logger.Debug("Heap::Release ignored a pointer that was already released", slog.Int("Pointer", int(ptr)))
		return
	} else if err != nil {
		h.counters.InvalidReleases++
		h.logger.LogAttrs(context.Background(), slog.LevelError, "Heap::Release received an invalid pointer",
			slog.Int("Pointer", int(ptr)),
			slog.Any("error", err),
		)
		return
	}

	h.names.Delete(ptr)
	h.counters.ReleaseCalls++
}

// Bytes returns the payload of a live allocation. The slice aliases the arena and its capacity
// is capped at the payload size, which may exceed the size originally requested.
func (h *Heap) Bytes(ptr Pointer) ([]byte, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	payloadSize, err := h.payloadSize(ptr)
	if err != nil {
		return nil, err
	}

	start := int(ptr)
	end := start + payloadSize
	return h.data[start:end:end], nil
}

// PayloadSize returns the number of bytes usable at ptr
func (h *Heap) PayloadSize(ptr Pointer) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.payloadSize(ptr)
}

func (h *Heap) payloadSize(ptr Pointer) (int, error) {
	if h.metadata == nil {
		return 0, ErrDestroyed
	}

	header, err := h.metadata.BlockAt(int(ptr))
	if err != nil {
		return 0, err
	}

	return h.layout.PayloadSize(header.Size), nil
}

// SetAllocationName attaches a name to a live allocation for use in BuildStatsString and leak
// reports. An empty name removes any existing one. Names are dropped when the allocation is
// released.
func (h *Heap) SetAllocationName(ptr Pointer, name string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::SetAllocationName")

	if h.metadata == nil {
		return ErrDestroyed
	}

	_, err := h.metadata.BlockAt(int(ptr))
	if err != nil {
		return err
	}

	if name == "" {
		h.names.Delete(ptr)
	} else {
		h.names.Put(ptr, name)
	}
	return nil
}

func (h *Heap) AllocationName(ptr Pointer) string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	name, _ := h.names.Get(ptr)
	return name
}

// Counters returns a copy of the heap's running totals
func (h *Heap) Counters() Counters {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.counters
}

// Reset releases every allocation at once, leaving one free block that spans the arena
func (h *Heap) Reset() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::Reset")

	if h.metadata == nil {
		return ErrDestroyed
	}

	h.metadata.Clear()
	h.names = swiss.NewMap[Pointer, string](16)
	return nil
}

// Validate checks the block chain and the name table for consistency
func (h *Heap) Validate() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return ErrDestroyed
	}

	err := h.metadata.Validate()
	if err != nil {
		return err
	}

	h.names.Iter(func(ptr Pointer, name string) bool {
		_, err = h.metadata.BlockAt(int(ptr))
		if err != nil {
			err = errors.Wrapf(err, "allocation name %q does not belong to a live allocation", name)
			return true
		}
		return false
	})

	return err
}

// CheckCorruption verifies the guard bytes written after every live payload. Guard bytes are only
// written when memutils is built with the debug_mem_utils build tag; otherwise this always
// succeeds.
func (h *Heap) CheckCorruption() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::CheckCorruption")

	if h.metadata == nil {
		return ErrDestroyed
	}

	return h.metadata.CheckCorruption()
}

// CalculateStatistics populates stats with the current state of the arena
func (h *Heap) CalculateStatistics(stats *memutils.DetailedStatistics) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	stats.Clear()
	if h.metadata != nil {
		h.metadata.AddDetailedStatistics(stats)
	}
}

// BuildStatsString returns a json document describing the heap. When detailed is true, every
// block in the arena is listed along with its allocation name.
func (h *Heap) BuildStatsString(detailed bool) string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::BuildStatsString")

	writer := jwriter.NewWriter()
	obj := writer.Object()

	var stats memutils.DetailedStatistics
	stats.Clear()
	if h.metadata != nil {
		h.metadata.AddDetailedStatistics(&stats)
	}

	totalObj := obj.Name("Total").Object()
	printStatistics(totalObj, &stats)
	totalObj.End()

	countersObj := obj.Name("Counters").Object()
	h.counters.printJson(countersObj)
	countersObj.End()

	if h.metadata != nil {
		arenaObj := obj.Name("Arena").Object()
		arenaObj.Name("Strategy").String(h.strategy.String())
		h.metadata.BlockJsonData(arenaObj)
		if detailed {
			h.metadata.PrintDetailedMap(arenaObj, h.lookupName)
		}
		arenaObj.End()
	}

	obj.End()
	return string(writer.Bytes())
}

func (h *Heap) lookupName(payloadOffset int) string {
	name, _ := h.names.Get(Pointer(payloadOffset))
	return name
}

func printStatistics(json jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
	if stats.UnusedRangeCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}
	json.Name("Fragmentation").Float64(stats.Fragmentation())
}

// Destroy tears down the heap. If any allocations remain, each one is logged and an error is
// returned without releasing the arena. Otherwise the ReleaseArena function from CreateOptions
// is called, if one was provided.
func (h *Heap) Destroy() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.logger.Debug("Heap::Destroy")

	if h.metadata == nil {
		return ErrDestroyed
	}

	if !h.metadata.IsEmpty() {
		count := h.metadata.AllocationCount()
		h.metadata.DebugLogAllAllocations(h.logger, h.logUnreleasedMemory)
		return errors.Newf("%d allocations were not released before the destruction of this heap", count)
	}

	if h.releaseArena != nil {
		err := h.releaseArena()
		if err != nil {
			return errors.Wrap(err, "failed to release the arena")
		}
	}

	h.metadata = nil
	h.data = nil
	h.names = swiss.NewMap[Pointer, string](16)
	return nil
}

func (h *Heap) logUnreleasedMemory(logger *slog.Logger, offset, size int) {
	ptr := Pointer(offset + h.layout.HeaderSpan())
	name, _ := h.names.Get(ptr)
	if name == "" {
		name = "empty"
	}

	logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unreleased allocation",
		slog.Int("pointer", int(ptr)),
		slog.Int("size", size),
		slog.String("name", name),
	)
}
