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
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/params"
)

// FeeSchedule lists the gas prices of operations and protocol steps. The zero
// value is not useful; schedules are obtained through a Spec.
type FeeSchedule struct {
	// Instruction tiers.
	Zero    ember.Gas
	Base    ember.Gas
	VeryLow ember.Gas
	Low     ember.Gas
	Mid     ember.Gas
	High    ember.Gas

	// Account access.
	Balance     ember.Gas
	ExtCodeSize ember.Gas
	ExtCodeCopy ember.Gas
	ExtCodeHash ember.Gas
	BlockHash   ember.Gas

	// Storage, legacy metering.
	Sload        ember.Gas
	SetSstore    ember.Gas
	ResetSstore  ember.Gas
	RefundSstore ember.Gas

	// Storage, net metering (EIP-1283).
	NetSstoreNoop             ember.Gas
	NetSstoreInit             ember.Gas
	NetSstoreClean            ember.Gas
	NetSstoreDirty            ember.Gas
	NetSstoreClearRefund      ember.Gas
	NetSstoreResetRefund      ember.Gas
	NetSstoreResetClearRefund ember.Gas

	Jumpdest ember.Gas

	// Contract creation and destruction.
	Create         ember.Gas
	CreateData     ember.Gas
	Suicide        ember.Gas
	NewAcctSuicide ember.Gas
	SuicideRefund  ember.Gas

	// Message calls.
	Call        ember.Gas
	StipendCall ember.Gas
	VtCall      ember.Gas
	NewAcctCall ember.Gas

	// Memory and data.
	Memory       ember.Gas
	QuadCoeffDiv ember.Gas
	Sha3         ember.Gas
	Sha3Word     ember.Gas
	Copy         ember.Gas
	Log          ember.Gas
	LogData      ember.Gas
	LogTopic     ember.Gas
	Exp          ember.Gas
	ExpByte      ember.Gas

	// Transactions.
	Transaction               ember.Gas
	TransactionCreateContract ember.Gas
	TxZeroData                ember.Gas
	TxNoZeroData              ember.Gas
}

// frontierFees is the fee schedule all later schedules are derived from.
func frontierFees() FeeSchedule {
	return FeeSchedule{
		Zero:    0,
		Base:    2,
		VeryLow: 3,
		Low:     5,
		Mid:     8,
		High:    10,

		Balance:     ember.Gas(params.BalanceGasFrontier),
		ExtCodeSize: ember.Gas(params.ExtcodeSizeGasFrontier),
		ExtCodeCopy: ember.Gas(params.ExtcodeCopyBaseFrontier),
		ExtCodeHash: ember.Gas(params.ExtcodeHashGasConstantinople),
		BlockHash:   20,

		Sload:        ember.Gas(params.SloadGasFrontier),
		SetSstore:    ember.Gas(params.SstoreSetGas),
		ResetSstore:  ember.Gas(params.SstoreResetGas),
		RefundSstore: ember.Gas(params.SstoreRefundGas),

		NetSstoreNoop:             ember.Gas(params.NetSstoreNoopGas),
		NetSstoreInit:             ember.Gas(params.NetSstoreInitGas),
		NetSstoreClean:            ember.Gas(params.NetSstoreCleanGas),
		NetSstoreDirty:            ember.Gas(params.NetSstoreDirtyGas),
		NetSstoreClearRefund:      ember.Gas(params.NetSstoreClearRefund),
		NetSstoreResetRefund:      ember.Gas(params.NetSstoreResetRefund),
		NetSstoreResetClearRefund: ember.Gas(params.NetSstoreResetClearRefund),

		Jumpdest: ember.Gas(params.JumpdestGas),

		Create:         ember.Gas(params.CreateGas),
		CreateData:     ember.Gas(params.CreateDataGas),
		Suicide:        0,
		NewAcctSuicide: 0,
		SuicideRefund:  ember.Gas(params.SelfdestructRefundGas),

		Call:        ember.Gas(params.CallGasFrontier),
		StipendCall: ember.Gas(params.CallStipend),
		VtCall:      ember.Gas(params.CallValueTransferGas),
		NewAcctCall: ember.Gas(params.CallNewAccountGas),

		Memory:       ember.Gas(params.MemoryGas),
		QuadCoeffDiv: ember.Gas(params.QuadCoeffDiv),
		Sha3:         ember.Gas(params.Keccak256Gas),
		Sha3Word:     ember.Gas(params.Keccak256WordGas),
		Copy:         ember.Gas(params.CopyGas),
		Log:          ember.Gas(params.LogGas),
		LogData:      ember.Gas(params.LogDataGas),
		LogTopic:     ember.Gas(params.LogTopicGas),
		Exp:          ember.Gas(params.ExpGas),
		ExpByte:      ember.Gas(params.ExpByteFrontier),

		Transaction:               ember.Gas(params.TxGas),
		TransactionCreateContract: ember.Gas(params.TxGasContractCreation),
		TxZeroData:                ember.Gas(params.TxDataZeroGas),
		TxNoZeroData:              ember.Gas(params.TxDataNonZeroGasFrontier),
	}
}

// byzantiumFees applies the EIP-150 and EIP-160 repricing to the Frontier
// schedule.
func byzantiumFees() FeeSchedule {
	fees := frontierFees()
	fees.Balance = ember.Gas(params.BalanceGasEIP150)
	fees.ExtCodeSize = ember.Gas(params.ExtcodeSizeGasEIP150)
	fees.ExtCodeCopy = ember.Gas(params.ExtcodeCopyBaseEIP150)
	fees.Sload = ember.Gas(params.SloadGasEIP150)
	fees.Call = ember.Gas(params.CallGasEIP150)
	fees.Suicide = ember.Gas(params.SelfdestructGasEIP150)
	fees.NewAcctSuicide = ember.Gas(params.CreateBySelfdestructGas)
	fees.ExpByte = ember.Gas(params.ExpByteEIP158)
	return fees
}
