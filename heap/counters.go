package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/vmheap/memutils/metadata"
)

// Counters are running totals kept for the lifetime of a Heap. Byte counts are block sizes,
// headers included.
type Counters struct {
	AllocateCalls     int
	ReleaseCalls      int
	FailedAllocations int
	InvalidReleases   int

	AllocatedBytes int
	ReleasedBytes  int
	Splits         int
	ForwardMerges  int
	BackwardMerges int
	Resets         int
}

var _ metadata.RegionObserver = &Counters{}

func (c *Counters) AllocRegion(offset, size int, split bool) {
	c.AllocatedBytes += size
	if split {
		c.Splits++
	}
}

func (c *Counters) FreeRegion(offset, size int) {
	c.ReleasedBytes += size
}

func (c *Counters) MergeRegions(offset, size int, forward bool) {
	if forward {
		c.ForwardMerges++
	} else {
		c.BackwardMerges++
	}
}

func (c *Counters) Clear() {
	c.Resets++
}

func (c *Counters) printJson(json jwriter.ObjectState) {
	json.Name("AllocateCalls").Int(c.AllocateCalls)
	json.Name("ReleaseCalls").Int(c.ReleaseCalls)
	json.Name("FailedAllocations").Int(c.FailedAllocations)
	json.Name("InvalidReleases").Int(c.InvalidReleases)
	json.Name("AllocatedBytes").Int(c.AllocatedBytes)
	json.Name("ReleasedBytes").Int(c.ReleasedBytes)
	json.Name("Splits").Int(c.Splits)
	json.Name("ForwardMerges").Int(c.ForwardMerges)
	json.Name("BackwardMerges").Int(c.BackwardMerges)
	json.Name("Resets").Int(c.Resets)
}
