// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainspec

import (
	"bytes"
	"testing"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"pgregory.net/rand"
)

func TestPrecompiled_AgreesWithGethOnRandomInputs(t *testing.T) {
	spec := MustForFork(ember.Byzantium)
	for _, addr := range spec.Precompiles.Addresses() {
		t.Run(addr.String(), func(t *testing.T) {
			ours, _ := spec.Precompiles.Get(addr)
			reference, found := geth.PrecompiledContractsByzantium[common.Address(addr)]
			if !found {
				t.Fatalf("geth has no precompiled contract at %v", addr)
			}

			rnd := rand.New(0)
			for i := 0; i < 200; i++ {
				input := randomPrecompileInput(rnd, addr)

				if want, got := reference.RequiredGas(input), ours.RequiredGas(input); ember.Gas(want) != got {
					t.Fatalf("unexpected gas for input %x, wanted %d, got %d", input, want, got)
				}
				want, err := reference.Run(input)
				got, ok := ours.Execute(input, PrecompiledContext{})
				if (err == nil) != ok {
					t.Fatalf("unexpected success for input %x, wanted %t, got %t", input, err == nil, ok)
				}
				if !bytes.Equal(want, got) {
					t.Fatalf("unexpected output for input %x, wanted %x, got %x", input, want, got)
				}
			}
		})
	}
}

// randomPrecompileInput produces random input of a size suitable for the
// contract at the given address. Modexp inputs declare small lengths to keep
// the costs within the range where all implementations agree.
func randomPrecompileInput(rnd *rand.Rand, addr ember.Address) []byte {
	if addr == PrecompiledAddress(5) {
		header := make([]byte, modExpHeaderSize)
		for i := 0; i < 3; i++ {
			header[32*i+31] = byte(rnd.Intn(65))
		}
		body := make([]byte, rnd.Intn(200))
		rnd.Read(body)
		return append(header, body...)
	}
	input := make([]byte, rnd.Intn(400))
	rnd.Read(input)
	return input
}
