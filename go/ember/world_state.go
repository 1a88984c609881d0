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

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package ember

// Repository is an interface to access and manipulate the state of the block
// chain. The state of the chain is a collection of accounts, each with a
// balance, a nonce, optional code and storage.
//
// A repository may be tracked: StartTracking opens a nested overlay whose
// modifications become visible in the parent only after a Commit. A Rollback
// discards all modifications of the overlay. Every tracked repository must be
// terminated by exactly one Commit or Rollback.
type Repository interface {
	Exists(Address) bool
	Delete(Address)

	GetBalance(Address) Value
	AddBalance(Address, Value)
	// SubBalance reduces the balance of the given account. Callers are
	// required to check that the balance is sufficient.
	SubBalance(Address, Value)

	GetNonce(Address) uint64
	SetNonce(Address, uint64)
	IncreaseNonce(Address) uint64

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	SaveCode(Address, Code)

	GetStorageRow(Address, Key) Word
	PutStorageRow(Address, Key, Word)

	StartTracking() Repository
	Commit()
	Rollback()
}

// BlockStore provides access to the hashes of historic blocks.
type BlockStore interface {
	GetBlockHashByNumber(number uint64) Hash
}
