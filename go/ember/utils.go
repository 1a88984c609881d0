// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ember

import (
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// SizeInWords returns the number of words required to store the given size,
// checking that size+32 does not overflow uint64.
func SizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}

// Keccak256 computes the legacy Keccak-256 hash of the given data.
func Keccak256(data []byte) Hash {
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var res Hash
	hasher.Read(res[:])
	keccakHasherPool.Put(hasher)
	return res
}

// EmptyCodeHash is the hash of empty code.
var EmptyCodeHash = Keccak256(nil)

// CreateAddress computes the address of a contract created by the given
// sender using the given nonce, which is keccak(rlp(sender, nonce))[12:].
func CreateAddress(sender Address, nonce uint64) Address {
	return Address(crypto.CreateAddress(common.Address(sender), nonce))
}

// CreateAddress2 computes the address of a contract created through CREATE2,
// which is keccak(0xff ++ sender ++ salt ++ keccak(initCode))[12:].
func CreateAddress2(sender Address, salt Hash, initCode []byte) Address {
	codeHash := Keccak256(initCode)
	return Address(crypto.CreateAddress2(common.Address(sender), salt, codeHash[:]))
}
