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
	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/holiman/uint256"
)

// staticGasTable lists the gas charged for each instruction before it is
// executed. Costs depending on the operands are charged by the instructions.
type staticGasTable [256]ember.Gas

func newStaticGasTable(fees *chainspec.FeeSchedule) *staticGasTable {
	res := &staticGasTable{}
	for i := range res {
		res[i] = getStaticGasPrice(OpCode(i), fees)
	}
	return res
}

func getStaticGasPrice(op OpCode, fees *chainspec.FeeSchedule) ember.Gas {
	if PUSH1 <= op && op <= PUSH32 {
		return fees.VeryLow
	}
	if DUP1 <= op && op <= DUP16 {
		return fees.VeryLow
	}
	if SWAP1 <= op && op <= SWAP16 {
		return fees.VeryLow
	}
	if LOG0 <= op && op <= LOG4 {
		return fees.Log + ember.Gas(op-LOG0)*fees.LogTopic
	}
	switch op {
	case STOP, RETURN, REVERT, SSTORE:
		return fees.Zero
	case ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE, CODESIZE,
		GASPRICE, COINBASE, TIMESTAMP, NUMBER, DIFFICULTY, GASLIMIT,
		RETURNDATASIZE, POP, PC, MSIZE, GAS:
		return fees.Base
	case ADD, SUB, NOT, LT, GT, SLT, SGT, EQ, ISZERO, AND, OR, XOR,
		BYTE, SHL, SHR, SAR, CALLDATALOAD, MLOAD, MSTORE, MSTORE8,
		CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		return fees.VeryLow
	case MUL, DIV, SDIV, MOD, SMOD, SIGNEXTEND:
		return fees.Low
	case ADDMOD, MULMOD, JUMP:
		return fees.Mid
	case JUMPI:
		return fees.High
	case EXP:
		return fees.Exp
	case SHA3:
		return fees.Sha3
	case BALANCE:
		return fees.Balance
	case EXTCODESIZE:
		return fees.ExtCodeSize
	case EXTCODECOPY:
		return fees.ExtCodeCopy
	case EXTCODEHASH:
		return fees.ExtCodeHash
	case BLOCKHASH:
		return fees.BlockHash
	case SLOAD:
		return fees.Sload
	case JUMPDEST:
		return fees.Jumpdest
	case CREATE, CREATE2:
		return fees.Create
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		return fees.Call
	case SELFDESTRUCT:
		return fees.Suicide
	}
	return 0
}

// wordCost computes the cost of processing the given number of bytes at the
// given price per word.
func wordCost(size uint64, pricePerWord ember.Gas) ember.Gas {
	return ember.Gas(ember.SizeInWords(size)) * pricePerWord
}

// gasSStoreLegacy computes the costs of an SSTORE before net gas metering and
// registers the refund for clearing a slot.
func gasSStoreLegacy(p *Program, current, value ember.Word) ember.Gas {
	fees := &p.spec.Fees
	switch {
	case current.IsZero() && !value.IsZero():
		return fees.SetSstore
	case !current.IsZero() && value.IsZero():
		p.FutureRefundGas(fees.RefundSstore)
		return fees.ResetSstore
	default:
		return fees.ResetSstore
	}
}

// gasSStoreEIP1283 computes the costs of an SSTORE under net gas metering and
// registers the resulting refunds, which may be negative:
//
//  1. If current value equals new value (this is a no-op), NetSstoreNoop is deducted.
//  2. If current value does not equal new value:
//     2.1. If original value equals current value (the slot is clean):
//     2.1.1. If original value is 0, NetSstoreInit is deducted.
//     2.1.2. Otherwise, NetSstoreClean is deducted. If new value is 0, add NetSstoreClearRefund to the refund.
//     2.2. If original value does not equal current value (the slot is dirty), NetSstoreDirty is deducted:
//     2.2.1. If original value is not 0:
//     2.2.1.1. If current value is 0, subtract NetSstoreClearRefund from the refund.
//     2.2.1.2. If new value is 0, add NetSstoreClearRefund to the refund.
//     2.2.2. If original value equals new value (the slot is reset):
//     2.2.2.1. If original value is 0, add NetSstoreResetClearRefund to the refund.
//     2.2.2.2. Otherwise, add NetSstoreResetRefund to the refund.
func gasSStoreEIP1283(p *Program, key ember.Key, current, value ember.Word) ember.Gas {
	fees := &p.spec.Fees
	if current == value { // noop (1)
		return fees.NetSstoreNoop
	}
	original := p.OriginalStorageLoad(key)
	if original == current {
		if original.IsZero() { // create slot (2.1.1)
			return fees.NetSstoreInit
		}
		if value.IsZero() { // delete slot (2.1.2b)
			p.FutureRefundGas(fees.NetSstoreClearRefund)
		}
		return fees.NetSstoreClean // write existing slot (2.1.2)
	}
	if !original.IsZero() {
		if current.IsZero() { // recreate slot (2.2.1.1)
			p.FutureRefundGas(-fees.NetSstoreClearRefund)
		} else if value.IsZero() { // delete slot (2.2.1.2)
			p.FutureRefundGas(fees.NetSstoreClearRefund)
		}
	}
	if original == value {
		if original.IsZero() { // reset to original inexistent slot (2.2.2.1)
			p.FutureRefundGas(fees.NetSstoreResetClearRefund)
		} else { // reset to original existing slot (2.2.2.2)
			p.FutureRefundGas(fees.NetSstoreResetRefund)
		}
	}
	return fees.NetSstoreDirty // dirty update (2.2)
}

// isEmptyAccount reports whether the given account has no nonce, balance or
// code.
func isEmptyAccount(repo ember.Repository, address ember.Address) bool {
	return repo.GetNonce(address) == 0 &&
		repo.GetBalance(address).IsZero() &&
		len(repo.GetCode(address)) == 0
}

// needsNewAccount determines whether transferring the given value to the given
// address is charged for the creation of a new account.
func needsNewAccount(p *Program, address ember.Address, value *uint256.Int) bool {
	if p.spec.ChargeEmptyAccounts {
		return !value.IsZero() && isEmptyAccount(p.repo, address)
	}
	return !p.repo.Exists(address)
}
