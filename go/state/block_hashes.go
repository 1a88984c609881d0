// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Ember/go/ember"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/slices"
)

// DefaultBlockHashCapacity covers the window of blocks accessible through
// the BLOCKHASH instruction.
const DefaultBlockHashCapacity = 256

// BlockHashes is a ember.BlockStore retaining the hashes of the blocks with
// the highest numbers added so far. Which hashes are retained only depends on
// the set of added blocks, not on the order they were added in. It is safe
// for concurrent use.
type BlockHashes struct {
	mu       sync.Mutex
	capacity int
	cache    *lru.Cache[uint64, ember.Hash]
}

// NewBlockHashes creates a block store retaining up to the given number of
// hashes. A non-positive capacity selects DefaultBlockHashCapacity.
func NewBlockHashes(capacity int) (*BlockHashes, error) {
	if capacity <= 0 {
		capacity = DefaultBlockHashCapacity
	}
	cache, err := lru.New[uint64, ember.Hash](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create block hash cache: %w", err)
	}
	return &BlockHashes{capacity: capacity, cache: cache}, nil
}

// Add records the hash of the block with the given number. If the store is
// full, the block with the lowest number is dropped, which may be the added
// one.
func (b *BlockHashes) Add(number uint64, hash ember.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache.Contains(number) || b.cache.Len() < b.capacity {
		b.cache.Add(number, hash)
		return
	}
	lowest := slices.Min(b.cache.Keys())
	if number < lowest {
		return
	}
	b.cache.Remove(lowest)
	b.cache.Add(number, hash)
}

// GetBlockHashByNumber returns the recorded hash of the given block or a
// zero hash if it is not known.
func (b *BlockHashes) GetBlockHashByNumber(number uint64) ember.Hash {
	hash, _ := b.cache.Peek(number)
	return hash
}

func (b *BlockHashes) Len() int {
	return b.cache.Len()
}
