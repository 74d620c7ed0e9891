package metadata

import "strings"

// AllocationStrategy exposes several options for choosing the block a new allocation is placed in.
// If none is chosen, best fit is used.
type AllocationStrategy uint32

const (
	// AllocationStrategyMinMemory selects the smallest free block that can hold the allocation, accepting
	// the first block that matches exactly. It walks the whole chain unless an exact match is found.
	AllocationStrategyMinMemory AllocationStrategy = 1 << iota
	// AllocationStrategyMinTime selects the first free block that can hold the allocation, ending
	// the walk as early as possible at the expense of fragmentation.
	AllocationStrategyMinTime
	// AllocationStrategyMinOffset selects the free block at the lowest offset that can hold the
	// allocation. With a single address-ordered chain this is the same block MinTime picks.
	AllocationStrategyMinOffset
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyMinMemory: "AllocationStrategyMinMemory",
	AllocationStrategyMinTime:   "AllocationStrategyMinTime",
	AllocationStrategyMinOffset: "AllocationStrategyMinOffset",
}

func (s AllocationStrategy) String() string {
	if s == 0 {
		return "AllocationStrategyDefault"
	}

	var names []string
	for bit := AllocationStrategy(1); bit > 0 && bit <= s; bit <<= 1 {
		if s&bit == 0 {
			continue
		}

		name, ok := allocationStrategyMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

func (s AllocationStrategy) isFirstFit() bool {
	return s&AllocationStrategyMinMemory == 0 && s&(AllocationStrategyMinTime|AllocationStrategyMinOffset) != 0
}
