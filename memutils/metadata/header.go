package metadata

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/vmheap/memutils"
)

const (
	busyFlag     uint64 = 1
	prevBusyFlag uint64 = 2
	flagMask            = busyFlag | prevBusyFlag
)

// Header is the decoded form of the packed field at the start of every block
type Header struct {
	// Size is the total size of the block in bytes, header included
	Size int
	// Busy is true while the block holds a live allocation
	Busy bool
	// PrevBusy mirrors the busy state of the block immediately before this one. The first
	// block in an arena always has PrevBusy set.
	PrevBusy bool
}

// Encode packs the header into its on-arena representation: the size in the high bits
// and the two flags in the low bits
func (h Header) Encode() uint64 {
	packed := uint64(h.Size)
	if h.Busy {
		packed |= busyFlag
	}
	if h.PrevBusy {
		packed |= prevBusyFlag
	}

	return packed
}

// DecodeHeader unpacks a header field read from an arena
func DecodeHeader(packed uint64) Header {
	return Header{
		Size:     int(packed &^ flagMask),
		Busy:     packed&busyFlag != 0,
		PrevBusy: packed&prevBusyFlag != 0,
	}
}

// blockView reads and writes block metadata inside an arena buffer. All accessors
// are bounds checked and never reinterpret the buffer as anything but fixed-width
// little-endian integers.
type blockView struct {
	data   []byte
	layout Layout
}

func (v blockView) end() int {
	return len(v.data)
}

func (v blockView) readField(offset, width int) (uint64, error) {
	if offset < 0 || offset+width > len(v.data) {
		return 0, errors.Wrapf(memutils.ErrCorruptArena, "field at offset %d of width %d is outside the arena (%d bytes)", offset, width, len(v.data))
	}

	if width == 4 {
		return uint64(binary.LittleEndian.Uint32(v.data[offset:])), nil
	}
	return binary.LittleEndian.Uint64(v.data[offset:]), nil
}

func (v blockView) writeField(offset, width int, value uint64) {
	if width == 4 {
		binary.LittleEndian.PutUint32(v.data[offset:offset+4], uint32(value))
		return
	}
	binary.LittleEndian.PutUint64(v.data[offset:offset+8], value)
}

// header decodes the header of the block at offset and checks that it describes a block
// that fits inside the arena
func (v blockView) header(offset int) (Header, error) {
	packed, err := v.readField(offset, v.layout.HeaderSize)
	if err != nil {
		return Header{}, err
	}

	h := DecodeHeader(packed)
	if h.Size < v.layout.MinBlockSize() || !memutils.IsAligned(h.Size, v.layout.Alignment) || offset+h.Size > len(v.data) {
		return h, errors.Wrapf(memutils.ErrCorruptArena, "block at offset %d has invalid size %d", offset, h.Size)
	}

	return h, nil
}

func (v blockView) setHeader(offset int, h Header) {
	v.writeField(offset, v.layout.HeaderSize, h.Encode())
}

// footerBefore reads the size recorded in the footer that ends immediately before offset
func (v blockView) footerBefore(offset int) (int, error) {
	size, err := v.readField(offset-v.layout.FooterSize, v.layout.FooterSize)
	if err != nil {
		return 0, err
	}

	return int(size), nil
}

// setFooter writes the footer of a free block of the provided size starting at offset
func (v blockView) setFooter(offset, size int) {
	v.writeField(offset+size-v.layout.FooterSize, v.layout.FooterSize, uint64(size))
}

// setPrevBusy updates the previous-busy flag of the block at offset, unless offset is the
// end marker
func (v blockView) setPrevBusy(offset int, prevBusy bool) error {
	if offset == v.end() {
		return nil
	}

	h, err := v.header(offset)
	if err != nil {
		return err
	}

	h.PrevBusy = prevBusy
	v.setHeader(offset, h)
	return nil
}
