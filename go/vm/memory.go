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
	"math"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/holiman/uint256"
)

// Memory is the byte-addressable scratch space of a call frame. Its size is
// always a multiple of 32 bytes. Expansions are charged to the gas of the
// owning program.
type Memory struct {
	store             []byte
	currentMemoryCost ember.Gas
}

func NewMemory() *Memory {
	return &Memory{}
}

func toValidMemorySize(size uint64) uint64 {
	fullWordsSize := ember.SizeInWords(size) * 32
	if size != 0 && fullWordsSize < size {
		return math.MaxUint64
	}
	return fullWordsSize
}

const (
	// Maximum memory size allowed. Expansion costs of larger sizes exceed
	// any gas limit.
	maxMemoryExpansionSize = 0x1FFFFFFFE0
)

// memoryCost computes the total cost of a memory of the given number of
// words: Memory*words + words²/QuadCoeffDiv.
func memoryCost(words uint64, fees *chainspec.FeeSchedule) ember.Gas {
	return ember.Gas(words*uint64(fees.Memory) + words*words/uint64(fees.QuadCoeffDiv))
}

func (m *Memory) getExpansionCosts(size uint64, fees *chainspec.FeeSchedule) ember.Gas {

	// static assert
	const (
		// Memory expansion cost is done using unsigned arithmetic, the cost
		// of the maximum expansion size must not overflow int64.
		maxInWords uint64 = (uint64(maxMemoryExpansionSize) + 31) / 32
		_                 = int64(maxInWords*maxInWords/512 + 3*maxInWords)
	)

	if m.length() >= size {
		return 0
	}
	size = toValidMemorySize(size)

	if size > maxMemoryExpansionSize {
		return ember.Gas(math.MaxInt64)
	}

	return memoryCost(ember.SizeInWords(size), fees) - m.currentMemoryCost
}

// expandMemory expands the memory to cover the range [offset, offset+size) and
// charges the expansion to the given program. A size of zero never expands
// the memory, regardless of the offset.
func (m *Memory) expandMemory(offset, size uint64, p *Program) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return ErrGasUintOverflow
	}
	if m.length() < needed {
		fee := m.getExpansionCosts(needed, &p.spec.Fees)
		if err := p.SpendGas(fee); err != nil {
			return err
		}
		m.expandMemoryWithoutCharging(needed, &p.spec.Fees)
	}
	return nil
}

func (m *Memory) expandMemoryWithoutCharging(needed uint64, fees *chainspec.FeeSchedule) {
	needed = toValidMemorySize(needed)
	size := m.length()
	if size < needed {
		m.currentMemoryCost += m.getExpansionCosts(needed, fees)
		m.store = append(m.store, make([]byte, needed-size)...)
	}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// set writes the given value at the given offset, expanding the memory if
// required.
func (m *Memory) set(offset uint64, value []byte, p *Program) error {
	size := uint64(len(value))
	if err := m.expandMemory(offset, size, p); err != nil {
		return err
	}
	copy(m.store[offset:offset+size], value)
	return nil
}

// setLimited writes at most size bytes of data to the given offset. Bytes of
// the window not covered by data keep their current content. The window must
// have been expanded before.
func (m *Memory) setLimited(offset, size uint64, data []byte) {
	if size == 0 || offset >= m.length() {
		return
	}
	if uint64(len(data)) < size {
		size = uint64(len(data))
	}
	end := min(offset+size, m.length())
	copy(m.store[offset:end], data)
}

// getSlice obtains a slice of size bytes from the memory at the given offset.
// The returned slice is backed by the memory's internal data and is
// invalidated by any subsequent expansion.
func (m *Memory) getSlice(offset, size uint64, p *Program) ([]byte, error) {
	if err := m.expandMemory(offset, size, p); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

// readWord reads a word from the memory at the given offset into the given
// target, expanding the memory if needed.
func (m *Memory) readWord(offset uint64, target *uint256.Int, p *Program) error {
	data, err := m.getSlice(offset, 32, p)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

// read returns a copy of size bytes starting at the given offset without
// expanding the memory. Bytes beyond the current size read as zero.
func (m *Memory) read(offset, size uint64) []byte {
	res := make([]byte, size)
	m.copyData(offset, res)
	return res
}

// copyData copies data from the memory, starting at the given offset, to the
// target slice, padding with zeros where the memory ends.
func (m *Memory) copyData(offset uint64, target []byte) {
	if m.length() < offset {
		clear(target)
		return
	}
	covered := copy(target, m.store[offset:])
	clear(target[covered:])
}
