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
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// statisticRunner is a runner that collects statistics about the instruction
// sequence of the executed code. Statistics of all programs run by the same
// interpreter are aggregated.
type statisticRunner struct {
	mutex sync.Mutex
	stats *statistics
}

func (s *statisticRunner) run(p *Program) (status, error) {
	stats := statsCollector{stats: newStatistics()}
	status := statusRunning
	for status == statusRunning {
		if p.pc < uint64(len(p.code)) {
			stats.nextOp(OpCode(p.code[p.pc]))
		}
		status = step(p)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	s.stats.insert(stats.stats)
	return status, nil
}

// getSummary returns a summary of the collected statistics in a human-readable
// format.
func (s *statisticRunner) getSummary() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	return s.stats.print()
}

// reset clears the collected statistics.
func (s *statisticRunner) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = newStatistics()
}

// statistics contains the instruction sequence statistics of a code execution.
// It counts the number of times each instruction is executed, as well as the
// number of times each pair, triple, and quad of instructions are executed.
type statistics struct {
	count       uint64
	singleCount map[uint64]uint64
	pairCount   map[uint64]uint64
	tripleCount map[uint64]uint64
	quadCount   map[uint64]uint64
}

func newStatistics() *statistics {
	return &statistics{
		singleCount: map[uint64]uint64{},
		pairCount:   map[uint64]uint64{},
		tripleCount: map[uint64]uint64{},
		quadCount:   map[uint64]uint64{},
	}
}

// insert adds the instruction counts of the given statistics to this instance.
func (s *statistics) insert(src *statistics) {
	s.count += src.count
	for k, v := range src.singleCount {
		s.singleCount[k] += v
	}
	for k, v := range src.pairCount {
		s.pairCount[k] += v
	}
	for k, v := range src.tripleCount {
		s.tripleCount[k] += v
	}
	for k, v := range src.quadCount {
		s.quadCount[k] += v
	}
}

// getTopN returns the n most frequent sequences of the given counts. Ties are
// broken by the sequence value to keep the output deterministic.
func getTopN(data map[uint64]uint64, n int) []uint64 {
	keys := maps.Keys(data)
	slices.SortFunc(keys, func(a, b uint64) int {
		if data[a] != data[b] {
			if data[a] > data[b] {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	if len(keys) < n {
		return keys
	}
	return keys[:n]
}

// print returns a human-readable summary of the collected statistics.
func (s *statistics) print() string {
	builder := strings.Builder{}
	write := func(format string, args ...interface{}) {
		builder.WriteString(fmt.Sprintf(format, args...))
	}
	percentage := func(count uint64) float32 {
		return float32(count*100) / float32(s.count)
	}

	write("\n----- Statistics ------\n")
	write("\nSteps: %d\n", s.count)
	write("\nSingles:\n")
	for _, k := range getTopN(s.singleCount, 5) {
		c := s.singleCount[k]
		write("\t%-30v: %d (%.2f%%)\n", OpCode(k), c, percentage(c))
	}
	write("\nPairs:\n")
	for _, k := range getTopN(s.pairCount, 5) {
		c := s.pairCount[k]
		write("\t%-30v%-30v: %d (%.2f%%)\n", OpCode(k>>16), OpCode(k), c, percentage(c))
	}
	write("\nTriples:\n")
	for _, k := range getTopN(s.tripleCount, 5) {
		c := s.tripleCount[k]
		write("\t%-30v%-30v%-30v: %d (%.2f%%)\n", OpCode(k>>32), OpCode(k>>16), OpCode(k), c, percentage(c))
	}
	write("\nQuads:\n")
	for _, k := range getTopN(s.quadCount, 5) {
		c := s.quadCount[k]
		write("\t%-30v%-30v%-30v%-30v: %d (%.2f%%)\n", OpCode(k>>48), OpCode(k>>32), OpCode(k>>16), OpCode(k), c, percentage(c))
	}
	write("\n")

	return builder.String()
}

// statsCollector is a helper struct that keeps track of the recent history of
// instructions executed by the VM to collect instruction sequence statistics.
type statsCollector struct {
	stats *statistics

	last       uint64
	secondLast uint64
	thirdLast  uint64
}

func (s *statsCollector) nextOp(op OpCode) {
	cur := uint64(op)
	s.stats.count++
	s.stats.singleCount[cur]++
	if s.stats.count >= 2 {
		s.stats.pairCount[s.last<<16|cur]++
	}
	if s.stats.count >= 3 {
		s.stats.tripleCount[s.secondLast<<32|s.last<<16|cur]++
	}
	if s.stats.count >= 4 {
		s.stats.quadCount[s.thirdLast<<48|s.secondLast<<32|s.last<<16|cur]++
	}
	s.last, s.secondLast, s.thirdLast = cur, s.last, s.secondLast
}
