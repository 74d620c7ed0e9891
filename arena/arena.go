package arena

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/vmheap/memutils"
	"github.com/vkngwrapper/vmheap/memutils/metadata"
)

// Arena owns a contiguous byte region that has been formatted as a single free block. The heap
// package manages the blocks; the Arena only decides where the bytes come from and how they are
// returned.
type Arena struct {
	data    []byte
	layout  metadata.Layout
	release func(data []byte) error
}

// New allocates an arena from the Go heap. size is rounded down to the layout's alignment and
// must still be large enough to hold one minimal block.
func New(size int, layout metadata.Layout) (*Arena, error) {
	size, err := checkSize(size, layout)
	if err != nil {
		return nil, err
	}

	return newArena(make([]byte, size), layout, nil)
}

// Map allocates an arena from an anonymous private memory mapping, so the bytes live outside the
// Go heap and are returned to the OS on Close. On platforms without mmap it behaves like New.
func Map(size int, layout metadata.Layout) (*Arena, error) {
	size, err := checkSize(size, layout)
	if err != nil {
		return nil, err
	}

	data, release, err := mapAnonymous(size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map a %d-byte arena", size)
	}

	a, err := newArena(data, layout, release)
	if err != nil {
		_ = release(data)
		return nil, err
	}

	return a, nil
}

// Format installs a single free block spanning data, discarding anything that was there
func Format(data []byte, layout metadata.Layout) error {
	return metadata.FormatArena(data, layout)
}

func checkSize(size int, layout metadata.Layout) (int, error) {
	err := layout.Validate()
	if err != nil {
		return 0, err
	}

	aligned := memutils.AlignDown(size, layout.Alignment)
	if aligned < layout.MinBlockSize() {
		return 0, errors.Newf("arena size %d is smaller than the minimum block size %d", size, layout.MinBlockSize())
	}

	return aligned, nil
}

func newArena(data []byte, layout metadata.Layout, release func([]byte) error) (*Arena, error) {
	err := Format(data, layout)
	if err != nil {
		return nil, err
	}

	return &Arena{
		data:    data,
		layout:  layout,
		release: release,
	}, nil
}

// Bytes returns the arena's backing memory. It is nil after Close.
func (a *Arena) Bytes() []byte {
	return a.data
}

func (a *Arena) Len() int {
	return len(a.data)
}

func (a *Arena) Layout() metadata.Layout {
	return a.layout
}

// Close releases the arena's memory. Slices previously returned from Bytes must not be used
// afterward. Calling Close more than once is harmless.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}

	data := a.data
	a.data = nil

	if a.release == nil {
		return nil
	}
	return a.release(data)
}
