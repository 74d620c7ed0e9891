package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrExhausted is the root of every allocation failure. Exhaustion never mutates the arena and
	// is recoverable by releasing memory and trying again.
	ErrExhausted = errors.New("arena exhausted")

	// ErrZeroSize is returned when an allocation of zero bytes is requested
	ErrZeroSize = errors.Wrap(ErrExhausted, "allocation size must be greater than zero")

	// ErrOutOfMemory is returned when no free block in the arena can hold the requested allocation
	ErrOutOfMemory = errors.Wrap(ErrExhausted, "no free block large enough")

	// ErrBadPointer is returned when a pointer does not land on a block header inside the arena
	ErrBadPointer = errors.New("pointer does not reference a block in this arena")

	// ErrAlreadyFree is returned when releasing a block whose busy flag is already clear
	ErrAlreadyFree = errors.New("block is already free")

	// ErrCorruptArena is returned when the block chain breaks one of its layout invariants
	ErrCorruptArena = errors.New("arena metadata is corrupt")
)
