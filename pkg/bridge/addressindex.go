package bridge

import (
	"math"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
)

// BumpAddressIndices reserves count derivation indices on the internal or
// external chain and returns the first reserved index. count must be > 0.
func (b *Bridge) BumpAddressIndices(count uint8, internal bool) (uint32, error) {
	if count == 0 {
		return 0, ErrInvalidCount
	}

	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	tx, err := b.store.Begin()
	if err != nil {
		return 0, ErrDatabase(err)
	}
	defer tx.Rollback()

	indices, err := b.store.GetNextAddressIndex(tx)
	if err != nil {
		return 0, ErrDatabase(err)
	}

	var first uint32
	if internal {
		first = indices.Internal
	} else {
		first = indices.External
	}
	if first > math.MaxUint32-uint32(count) {
		return 0, ErrUnexpected("address index overflow")
	}
	next := first + uint32(count)
	if internal {
		indices.Internal = next
	} else {
		indices.External = next
	}

	if err := b.store.UpdateNextAddressIndex(tx, indices); err != nil {
		return 0, ErrDatabase(err)
	}
	if err := tx.Commit().Error; err != nil {
		return 0, ErrDatabase(err)
	}

	logger.Debug("address indices bumped",
		"internal", internal, "count", count, "first", first)
	return first, nil
}

// CurrentAddressIndices returns the last reserved index per chain, nil when
// no index has been reserved on that chain yet.
func (b *Bridge) CurrentAddressIndices() (internal, external *uint32, err error) {
	indices, err := b.store.GetNextAddressIndex(nil)
	if err != nil {
		return nil, nil, ErrDatabase(err)
	}
	if indices.Internal > 0 {
		v := indices.Internal - 1
		internal = &v
	}
	if indices.External > 0 {
		v := indices.External - 1
		external = &v
	}
	return internal, external, nil
}
