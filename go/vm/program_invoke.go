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

import "github.com/Fantom-foundation/Ember/go/ember"

// ProgramInvoke summarizes the inputs of a call frame.
type ProgramInvoke struct {
	Owner    ember.Address // the account whose code and storage is used
	Origin   ember.Address // the sender of the transaction
	Caller   ember.Address
	Gas      ember.Gas
	GasPrice ember.Value
	Value    ember.Value
	Data     []byte

	Block ember.BlockParameters

	// Repository is the world state the frame operates on.
	Repository ember.Repository
	// OriginalRepository is the world state at the beginning of the
	// transaction, used for net gas metering of storage updates.
	OriginalRepository ember.Repository
	BlockStore         ember.BlockStore

	Depth  int
	Static bool
}

// child derives the inputs of a nested frame running on the given track.
func (i *ProgramInvoke) child(owner, caller ember.Address, gas ember.Gas, value ember.Value, data []byte, track ember.Repository, static bool) ProgramInvoke {
	return ProgramInvoke{
		Owner:              owner,
		Origin:             i.Origin,
		Caller:             caller,
		Gas:                gas,
		GasPrice:           i.GasPrice,
		Value:              value,
		Data:               data,
		Block:              i.Block,
		Repository:         track,
		OriginalRepository: i.OriginalRepository,
		BlockStore:         i.BlockStore,
		Depth:              i.Depth + 1,
		Static:             static,
	}
}
