package heap

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/vmheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific heap behaviors to activate or deactivate
type CreateFlags int32

const (
	// HeapCreateExternallySynchronized ensures that this heap will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized
	// by some other mechanism, but performance may improve because no mutex is taken.
	HeapCreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	HeapCreateExternallySynchronized: "HeapCreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit > 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

// CreateOptions contains optional settings when creating a heap
type CreateOptions struct {
	// Flags indicates specific heap behaviors to activate or deactivate
	Flags CreateFlags

	// Layout describes the block format of the arena. It must match the layout the arena was
	// formatted with. When nil, metadata.DefaultLayout is used.
	Layout *metadata.Layout

	// Strategy selects how free blocks are chosen. The zero value is best fit.
	Strategy metadata.AllocationStrategy

	// ReleaseArena is called by Destroy once every allocation has been released. It is usually
	// the Close method of the arena the heap was created over.
	ReleaseArena func() error
}

// New creates a heap over data, which must already hold a valid block chain for the chosen
// layout, such as one produced by arena.New or arena.Format. The heap does not copy data; it
// manages the bytes in place.
//
// logger - Receives call tracing at debug level and misuse reports at error level. May be nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, data []byte, options CreateOptions) (*Heap, error) {
	if logger == nil {
		logger = discardLogger()
	}

	layout := metadata.DefaultLayout
	if options.Layout != nil {
		layout = *options.Layout
	}

	err := layout.Validate()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("cannot create a heap over an empty arena")
	}

	h := &Heap{
		logger:       logger,
		data:         data,
		layout:       layout,
		strategy:     options.Strategy,
		createFlags:  options.Flags,
		releaseArena: options.ReleaseArena,
		names:        swiss.NewMap[Pointer, string](16),
	}
	h.mutex.UseMutex = options.Flags&HeapCreateExternallySynchronized == 0
	h.metadata = metadata.NewBestFitBlockMetadata(data, layout, &h.counters)

	err = h.metadata.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "arena does not hold a valid block chain")
	}

	logger.Debug("Heap::New",
		slog.Int("Size", len(data)),
		slog.String("Flags", options.Flags.String()),
		slog.String("Strategy", options.Strategy.String()),
	)

	return h, nil
}
