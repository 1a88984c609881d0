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

//go:generate mockgen -source precompiled.go -destination precompiled_mock.go -package chainspec

import (
	"bytes"
	"crypto/sha256"
	"math/big"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PrecompiledContract is a native routine executed in place of byte-code when
// a call targets one of the reserved low addresses.
type PrecompiledContract interface {
	// RequiredGas computes the costs of running the contract on the given
	// input. It is a pure function of the input.
	RequiredGas(input []byte) ember.Gas
	// Execute runs the contract. The result is false if the input is
	// invalid, in which case the output is empty.
	Execute(input []byte, ctx PrecompiledContext) ([]byte, bool)
}

// PrecompiledContext provides the environment of a precompiled contract
// invocation. The value has been transferred before the contract runs.
type PrecompiledContext struct {
	Track  ember.Repository
	Caller ember.Address
	Value  ember.Value
}

// Precompiles is a registry of precompiled contracts indexed by address.
type Precompiles struct {
	contracts map[ember.Address]PrecompiledContract
}

// NewPrecompiles creates a registry covering the given contracts.
func NewPrecompiles(contracts map[ember.Address]PrecompiledContract) *Precompiles {
	return &Precompiles{contracts: maps.Clone(contracts)}
}

// Get looks up the contract at the given address.
func (p *Precompiles) Get(address ember.Address) (PrecompiledContract, bool) {
	if p == nil {
		return nil, false
	}
	contract, found := p.contracts[address]
	return contract, found
}

// Addresses lists the addresses of all registered contracts in ascending
// order.
func (p *Precompiles) Addresses() []ember.Address {
	if p == nil {
		return nil
	}
	res := maps.Keys(p.contracts)
	slices.SortFunc(res, func(a, b ember.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return res
}

// PrecompiledAddress returns the address of the n-th precompiled contract.
func PrecompiledAddress(n byte) ember.Address {
	return ember.Address{19: n}
}

var frontierPrecompiles = NewPrecompiles(map[ember.Address]PrecompiledContract{
	PrecompiledAddress(1): ecRecover{},
	PrecompiledAddress(2): sha256Hash{},
	PrecompiledAddress(3): ripemd160Hash{},
	PrecompiledAddress(4): identity{},
})

var byzantiumPrecompiles = NewPrecompiles(map[ember.Address]PrecompiledContract{
	PrecompiledAddress(1): ecRecover{},
	PrecompiledAddress(2): sha256Hash{},
	PrecompiledAddress(3): ripemd160Hash{},
	PrecompiledAddress(4): identity{},
	PrecompiledAddress(5): modExp{},
	PrecompiledAddress(6): bn256Add{},
	PrecompiledAddress(7): bn256ScalarMul{},
	PrecompiledAddress(8): bn256Pairing{},
})

const (
	ecRecoverGas        = 3000
	sha256BaseGas       = 60
	sha256PerWordGas    = 12
	ripemd160BaseGas    = 600
	ripemd160PerWordGas = 120
	identityBaseGas     = 15
	identityPerWordGas  = 3
)

func linearCost(input []byte, base, perWord ember.Gas) ember.Gas {
	return base + perWord*ember.Gas(ember.SizeInWords(uint64(len(input))))
}

type ecRecover struct{}

func (ecRecover) RequiredGas([]byte) ember.Gas {
	return ecRecoverGas
}

// Execute recovers the address of the signer of a hash. The input is a hash,
// followed by v, r and s as 32 byte words. Invalid signatures produce an
// empty output, not a failure.
func (ecRecover) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	input = rightPad(input, 0, 128)

	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	v := input[63] - 27

	if !isZero(input[32:63]) || !crypto.ValidateSignatureValues(v, r, s, false) {
		return []byte{}, true
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v
	pubKey, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return []byte{}, true
	}
	hash := ember.Keccak256(pubKey[1:])
	return leftPad(hash[12:], 32), true
}

type sha256Hash struct{}

func (sha256Hash) RequiredGas(input []byte) ember.Gas {
	return linearCost(input, sha256BaseGas, sha256PerWordGas)
}

func (sha256Hash) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	h := sha256.Sum256(input)
	return h[:], true
}

type ripemd160Hash struct{}

func (ripemd160Hash) RequiredGas(input []byte) ember.Gas {
	return linearCost(input, ripemd160BaseGas, ripemd160PerWordGas)
}

func (ripemd160Hash) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	hasher := ripemd160.New()
	hasher.Write(input)
	return leftPad(hasher.Sum(nil), 32), true
}

type identity struct{}

func (identity) RequiredGas(input []byte) ember.Gas {
	return linearCost(input, identityBaseGas, identityPerWordGas)
}

func (identity) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	return bytes.Clone(input), true
}

// rightPad returns the size bytes of data starting at offset. Bytes beyond
// the end of data are zero.
func rightPad(data []byte, offset, size uint64) []byte {
	res := make([]byte, size)
	if offset < uint64(len(data)) {
		copy(res, data[offset:])
	}
	return res
}

func leftPad(data []byte, size int) []byte {
	if len(data) >= size {
		return data
	}
	res := make([]byte, size)
	copy(res[size-len(data):], data)
	return res
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
