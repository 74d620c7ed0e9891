package metadata

//go:generate mockgen -source observer.go -destination ./mocks/observer.go -package mock_metadata

// RegionObserver is notified whenever a BlockMetadata commits a change to its block chain. offset
// is always the offset of the block header and size is the block size, header included.
type RegionObserver interface {
	AllocRegion(offset, size int, split bool)
	FreeRegion(offset, size int)
	MergeRegions(offset, size int, forward bool)
	Clear()
}

// FakeRegionObserver is a RegionObserver that ignores every notification
type FakeRegionObserver struct{}

func (o FakeRegionObserver) AllocRegion(offset, size int, split bool)    {}
func (o FakeRegionObserver) FreeRegion(offset, size int)                 {}
func (o FakeRegionObserver) MergeRegions(offset, size int, forward bool) {}
func (o FakeRegionObserver) Clear()                                      {}
