// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"fmt"

	"github.com/Fantom-foundation/Ember/go/ember"
	lru "github.com/hashicorp/golang-lru/v2"
)

// jumpDests is a bit set marking the positions of JUMPDEST instructions in a
// piece of code. JUMPDEST bytes within the immediate data of PUSH instructions
// are not marked.
type jumpDests []uint64

func (j jumpDests) contains(pos uint64) bool {
	if pos/64 >= uint64(len(j)) {
		return false
	}
	return j[pos/64]&(1<<(pos%64)) != 0
}

func analyzeJumpDests(code []byte) jumpDests {
	res := make(jumpDests, (len(code)+63)/64)
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		if op == JUMPDEST {
			res[i/64] |= 1 << (i % 64)
		}
		i += op.Width()
	}
	return res
}

// JumpDestAnalyzerConfig configures the code analysis cache.
type JumpDestAnalyzerConfig struct {
	// CacheSize is the number of code hashes whose analysis is retained. A
	// value of zero selects a default, negative values disable the cache.
	CacheSize int
}

// JumpDestAnalyzer determines valid jump destinations of code. Results are
// cached by code hash, so the analysis of a contract is only conducted once.
// A JumpDestAnalyzer is safe for concurrent use.
type JumpDestAnalyzer struct {
	cache *lru.Cache[ember.Hash, jumpDests]
}

func NewJumpDestAnalyzer(config JumpDestAnalyzerConfig) (*JumpDestAnalyzer, error) {
	capacity := config.CacheSize
	if capacity == 0 {
		capacity = 1 << 12
	}

	var cache *lru.Cache[ember.Hash, jumpDests]
	if capacity > 0 {
		var err error
		cache, err = lru.New[ember.Hash, jumpDests](capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to create jump destination cache: %w", err)
		}
	}
	return &JumpDestAnalyzer{cache: cache}, nil
}

// analyze returns the jump destinations of the given code. If a code hash is
// provided, it must be the hash of the code; the result is cached under it.
func (a *JumpDestAnalyzer) analyze(code []byte, codeHash *ember.Hash) jumpDests {
	if a == nil || a.cache == nil || codeHash == nil {
		return analyzeJumpDests(code)
	}
	if res, found := a.cache.Get(*codeHash); found {
		return res
	}
	res := analyzeJumpDests(code)
	a.cache.Add(*codeHash, res)
	return res
}
