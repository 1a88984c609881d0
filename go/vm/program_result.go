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
	"github.com/Fantom-foundation/Ember/go/ember"
	"golang.org/x/exp/slices"
)

// ProgramResult accumulates the outcome of a call frame. The gas limit is
// fixed at construction; gas used never exceeds it through the checked
// spending operations of the owning Program.
type ProgramResult struct {
	gasLimit   ember.Gas
	gasUsed    ember.Gas
	returnData []byte
	exception  error
	revert     bool

	// Effects propagated to the parent frame by Merge.
	internalTransactions []*InternalTransaction
	deletedAccounts      []ember.Address // ordered set
	logs                 []ember.Log
	futureRefund         ember.Gas
}

// NewEmptyResult creates a result of a frame that has not consumed any gas.
func NewEmptyResult(gasLimit ember.Gas) *ProgramResult {
	return &ProgramResult{gasLimit: gasLimit}
}

// NewExceptionResult creates the result of a frame that failed with the given
// exception, consuming all of its gas.
func NewExceptionResult(gasLimit ember.Gas, exception error) *ProgramResult {
	res := NewEmptyResult(gasLimit)
	res.SetException(exception)
	res.DrainGas()
	return res
}

func (r *ProgramResult) GasLimit() ember.Gas {
	return r.gasLimit
}

func (r *ProgramResult) GasUsed() ember.Gas {
	return r.gasUsed
}

func (r *ProgramResult) GasLeft() ember.Gas {
	return r.gasLimit - r.gasUsed
}

func (r *ProgramResult) SpendGas(gas ember.Gas) {
	r.gasUsed += gas
}

func (r *ProgramResult) RefundGas(gas ember.Gas) {
	r.gasUsed -= gas
}

func (r *ProgramResult) DrainGas() {
	r.gasUsed = r.gasLimit
}

func (r *ProgramResult) ReturnData() []byte {
	return r.returnData
}

func (r *ProgramResult) SetReturnData(data []byte) {
	r.returnData = data
}

func (r *ProgramResult) Exception() error {
	return r.exception
}

// SetException records the exception of the frame. Frames ending with an
// exception never return data.
func (r *ProgramResult) SetException(err error) {
	r.exception = err
	if err != nil {
		r.returnData = nil
	}
}

func (r *ProgramResult) IsRevert() bool {
	return r.revert
}

func (r *ProgramResult) SetRevert(revert bool) {
	r.revert = revert
}

// Succeeded is true if the frame neither failed nor reverted.
func (r *ProgramResult) Succeeded() bool {
	return r.exception == nil && !r.revert
}

func (r *ProgramResult) InternalTransactions() []*InternalTransaction {
	return r.internalTransactions
}

func (r *ProgramResult) AddInternalTransaction(tx *InternalTransaction) {
	r.internalTransactions = append(r.internalTransactions, tx)
}

// RejectInternalTransactions marks all internal transactions recorded by this
// frame and its children as rejected.
func (r *ProgramResult) RejectInternalTransactions() {
	for _, tx := range r.internalTransactions {
		tx.Reject()
	}
}

// DeletedAccounts lists the accounts marked for deletion in the order they
// were first marked.
func (r *ProgramResult) DeletedAccounts() []ember.Address {
	return r.deletedAccounts
}

func (r *ProgramResult) AddDeletedAccount(address ember.Address) {
	if !slices.Contains(r.deletedAccounts, address) {
		r.deletedAccounts = append(r.deletedAccounts, address)
	}
}

func (r *ProgramResult) Logs() []ember.Log {
	return r.logs
}

func (r *ProgramResult) AddLog(log ember.Log) {
	r.logs = append(r.logs, log)
}

func (r *ProgramResult) FutureRefund() ember.Gas {
	return r.futureRefund
}

func (r *ProgramResult) AddFutureRefund(gas ember.Gas) {
	r.futureRefund += gas
}

func (r *ProgramResult) ResetFutureRefund() {
	r.futureRefund = 0
}

// DiscardEffects drops the deleted accounts, logs and refunds of the frame,
// keeping its internal transactions.
func (r *ProgramResult) DiscardEffects() {
	r.deletedAccounts = nil
	r.logs = nil
	r.futureRefund = 0
}

// Merge folds the result of a child frame into the given parent result and
// returns the new parent result. Internal transactions are always
// propagated, deleted accounts, logs and refunds only if the child neither
// failed nor reverted. Neither of the inputs is modified.
func Merge(parent, child ProgramResult) ProgramResult {
	res := parent
	res.internalTransactions = append(slices.Clip(parent.internalTransactions), child.internalTransactions...)
	if !child.Succeeded() {
		return res
	}
	res.deletedAccounts = slices.Clone(parent.deletedAccounts)
	for _, address := range child.deletedAccounts {
		res.AddDeletedAccount(address)
	}
	res.logs = append(slices.Clip(parent.logs), child.logs...)
	res.futureRefund += child.futureRefund
	return res
}

// Merge folds the given child result into this result.
func (r *ProgramResult) Merge(child *ProgramResult) {
	*r = Merge(*r, *child)
}
