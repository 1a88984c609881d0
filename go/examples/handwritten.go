// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/ethereum/go-ethereum/params"
)

// GetStaticOverheadExample provides the shortest contract touching every
// part of a frame: a non-empty code needing jump analysis, a memory
// expansion through CALLDATACOPY and a non-empty output. It returns its
// argument.
func GetStaticOverheadExample() Example {
	code := []byte{
		byte(vm.PUSH1), 4, // size
		byte(vm.PUSH1), 32, // offset in call data
		byte(vm.PUSH1), 28, // offset in memory
		byte(vm.CALLDATACOPY),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}
	return exampleSpec{
		Name:      "static_overhead",
		Code:      code,
		reference: identity,
	}.build()
}

// GetSha3Example provides a contract hashing a zero word x times, feeding
// each hash into the next round. It returns the last byte of the final hash.
func GetSha3Example() Example {
	const (
		loopStart = 3
		loopEnd   = 24
	)
	code := []byte{
		byte(vm.PUSH1), 4,
		byte(vm.CALLDATALOAD), // counter

		// loopStart: leave once the counter hits zero
		byte(vm.JUMPDEST),
		byte(vm.DUP1),
		byte(vm.ISZERO),
		byte(vm.PUSH1), loopEnd,
		byte(vm.JUMPI),

		// memory[0:32] = keccak(memory[0:32])
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.SHA3),
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),

		// counter--
		byte(vm.PUSH1), 1,
		byte(vm.SWAP1),
		byte(vm.SUB),
		byte(vm.PUSH1), loopStart,
		byte(vm.JUMP),

		// loopEnd: return the lowest byte of the hash
		byte(vm.JUMPDEST),
		byte(vm.PUSH1), 0,
		byte(vm.MLOAD),
		byte(vm.PUSH1), 0xff,
		byte(vm.AND),
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}
	return exampleSpec{
		Name:      "sha3",
		Code:      code,
		reference: sha3Ref,
	}.build()
}

func sha3Ref(x int) int {
	var hash ember.Hash
	for i := 0; i < x; i++ {
		hash = ember.Keccak256(hash[:])
	}
	return int(hash[31])
}

// The analysis examples consist of a maximum sized contract whose body is
// filled with a repeated instruction sequence that is jumped over. Running
// them is dominated by the jump destination analysis of the filler.

func GetJumpdestAnalysisExample() Example {
	return analysisExample("jumpdest", []byte{byte(vm.JUMPDEST)})
}

func GetStopAnalysisExample() Example {
	return analysisExample("stop", []byte{byte(vm.STOP)})
}

func GetPush1AnalysisExample() Example {
	return analysisExample("push1", []byte{byte(vm.PUSH1), 0})
}

func GetPush32AnalysisExample() Example {
	return analysisExample("push32", append([]byte{byte(vm.PUSH32)}, make([]byte, 32)...))
}

func analysisExample(name string, filler []byte) Example {
	return exampleSpec{
		Name:      name,
		Code:      GenerateAnalysisCode(filler),
		reference: identity,
	}.build()
}

// GenerateAnalysisCode produces a contract of the maximum code size which
// returns its argument after jumping over as many copies of the given filler
// as fit into the code.
func GenerateAnalysisCode(filler []byte) []byte {
	prologue := []byte{
		byte(vm.PUSH1), 4,
		byte(vm.CALLDATALOAD),
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH2), 0, 0, // target, patched below
		byte(vm.JUMP),
	}
	epilogue := []byte{
		byte(vm.JUMPDEST),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}

	space := params.MaxCodeSize - len(prologue) - len(epilogue)
	code := make([]byte, 0, params.MaxCodeSize)
	code = append(code, prologue...)
	for i := 0; i < space/len(filler); i++ {
		code = append(code, filler...)
	}
	target := len(code)
	code[7] = byte(target >> 8)
	code[8] = byte(target)
	return append(code, epilogue...)
}

func identity(x int) int {
	return x
}
