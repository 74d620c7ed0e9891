package metadata_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/vmheap/memutils"
	"github.com/vkngwrapper/vmheap/memutils/metadata"
)

type testBlock struct {
	size int
	busy bool
}

func skipIfDebugMargin(t *testing.T) {
	t.Helper()
	if memutils.DebugMargin > 0 {
		t.Skip("exact block sizes differ when debug margins are enabled")
	}
}

func putField(data []byte, offset, width int, value uint64) {
	if width == 4 {
		binary.LittleEndian.PutUint32(data[offset:], uint32(value))
		return
	}
	binary.LittleEndian.PutUint64(data[offset:], value)
}

func getField(data []byte, offset, width int) uint64 {
	if width == 4 {
		return uint64(binary.LittleEndian.Uint32(data[offset:]))
	}
	return binary.LittleEndian.Uint64(data[offset:])
}

// buildArena lays out the provided blocks back to back with correct flags and footers
func buildArena(layout metadata.Layout, blocks ...testBlock) []byte {
	total := 0
	for _, block := range blocks {
		total += block.size
	}

	data := make([]byte, total)
	offset := 0
	prevBusy := true
	for _, block := range blocks {
		header := metadata.Header{Size: block.size, Busy: block.busy, PrevBusy: prevBusy}
		putField(data, offset, layout.HeaderSize, header.Encode())
		if !block.busy {
			putField(data, offset+block.size-layout.FooterSize, layout.FooterSize, uint64(block.size))
		}

		offset += block.size
		prevBusy = block.busy
	}

	return data
}

// readHeaders decodes the block chain straight from the arena bytes
func readHeaders(t *testing.T, data []byte, layout metadata.Layout) []metadata.Header {
	t.Helper()

	var headers []metadata.Header
	for offset := 0; offset < len(data); {
		header := metadata.DecodeHeader(getField(data, offset, layout.HeaderSize))
		require.Positive(t, header.Size, "block at offset %d has no size", offset)
		headers = append(headers, header)
		offset += header.Size
	}

	return headers
}

func newFormatted(t *testing.T, size int, layout metadata.Layout) ([]byte, *metadata.BestFitBlockMetadata) {
	t.Helper()

	data := make([]byte, size)
	require.NoError(t, metadata.FormatArena(data, layout))
	return data, metadata.NewBestFitBlockMetadata(data, layout, nil)
}

func allocate(t *testing.T, md metadata.BlockMetadata, size int) int {
	t.Helper()

	success, req, err := md.CreateAllocationRequest(size, metadata.AllocationStrategyMinMemory)
	require.NoError(t, err)
	require.True(t, success, "no room for %d bytes", size)
	require.NoError(t, md.Alloc(req))

	return req.PayloadOffset(md.Layout())
}

// permutations returns every ordering of the indices [0, n)
func permutations(n int) [][]int {
	var out [][]int
	var permute func(prefix []int, rest []int)
	permute = func(prefix []int, rest []int) {
		if len(rest) == 0 {
			out = append(out, append([]int(nil), prefix...))
			return
		}
		for i := range rest {
			next := append(append([]int(nil), rest[:i]...), rest[i+1:]...)
			permute(append(prefix, rest[i]), next)
		}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	permute(nil, indices)
	return out
}
