package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/vmheap/memutils"
)

// Layout describes how blocks are laid out inside an arena. The arena initializer and the
// BlockMetadata that manages the arena must agree on a Layout, otherwise block sizes will
// not decode correctly.
type Layout struct {
	// Alignment is the quantum every block size and the arena size are multiples of. It must be a
	// power of two no smaller than 4 so that the two flag bits never collide with the size.
	Alignment uint
	// HeaderSize is the width in bytes of the packed header field at the start of every block: 4 or 8.
	// Payloads start HeaderSpan bytes into a block, which pads the field up to the alignment.
	HeaderSize int
	// FooterSize is the width in bytes of the size field at the end of every free block: 4 or 8
	FooterSize int
}

// DefaultLayout uses 8-byte alignment with 8-byte headers and footers
var DefaultLayout = Layout{
	Alignment:  8,
	HeaderSize: 8,
	FooterSize: 8,
}

const minAlignment = 4

func (l Layout) Validate() error {
	err := memutils.CheckPow2(l.Alignment, "alignment")
	if err != nil {
		return err
	}
	if l.Alignment < minAlignment {
		return errors.Newf("alignment must be at least %d to leave room for the flag bits, but was %d", minAlignment, l.Alignment)
	}
	if l.HeaderSize != 4 && l.HeaderSize != 8 {
		return errors.Newf("header size must be 4 or 8 bytes, but was %d", l.HeaderSize)
	}
	if l.FooterSize != 4 && l.FooterSize != 8 {
		return errors.Newf("footer size must be 4 or 8 bytes, but was %d", l.FooterSize)
	}

	return nil
}

// MinBlockSize is the smallest block that can still hold a header and, once freed, a footer
func (l Layout) MinBlockSize() int {
	return memutils.AlignUp(l.HeaderSize+l.FooterSize, l.Alignment)
}

// BlockSizeFor returns the block size needed to satisfy a payload of allocSize bytes. The
// footer is not reserved for busy blocks, but the block is never smaller than MinBlockSize
// so that it can become free again.
func (l Layout) BlockSizeFor(allocSize int) int {
	size := memutils.AlignUp(allocSize+l.HeaderSpan()+memutils.DebugMargin, l.Alignment)
	if minSize := l.MinBlockSize(); size < minSize {
		return minSize
	}

	return size
}

// HeaderSpan is the distance from the start of a block to its payload. The header field is
// padded up to the alignment so that payloads are aligned whenever blocks are.
func (l Layout) HeaderSpan() int {
	return memutils.AlignUp(l.HeaderSize, l.Alignment)
}

// PayloadSize is the number of bytes a caller may use in a busy block of the provided size
func (l Layout) PayloadSize(blockSize int) int {
	return blockSize - l.HeaderSpan() - memutils.DebugMargin
}

// maxBlockSize is the largest size both the header and footer fields of this layout can carry
func (l Layout) maxBlockSize() uint64 {
	if l.HeaderSize == 4 || l.FooterSize == 4 {
		return uint64(^uint32(0)) &^ flagMask
	}

	return ^uint64(0) &^ flagMask
}
