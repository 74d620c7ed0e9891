package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutMaxBlockSize(t *testing.T) {
	require.Equal(t, uint64(math.MaxUint64)&^flagMask, DefaultLayout.maxBlockSize())
	require.Equal(t, uint64(math.MaxUint32)&^flagMask, Layout{Alignment: 8, HeaderSize: 4, FooterSize: 8}.maxBlockSize())

	// A 4-byte footer limits the arena even when the header is wide
	require.Equal(t, uint64(math.MaxUint32)&^flagMask, Layout{Alignment: 8, HeaderSize: 8, FooterSize: 4}.maxBlockSize())
}
