// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package executor

import (
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/vm"
)

// Receipt summarizes the outcome of an executed transaction. A receipt is
// produced for every transaction passing validation, including those whose
// execution failed.
type Receipt struct {
	Transaction          ember.Transaction         `json:"-"`
	Success              bool                      `json:"success"`                   // false if the outer frame failed or reverted
	GasUsed              ember.Gas                 `json:"gasUsed"`                   // gas charged to the sender, after refunds
	ReturnData           ember.Data                `json:"returnData"`                // output of the outer frame, the deployed code for creations
	ContractAddress      *ember.Address            `json:"contractAddress,omitempty"` // filled if a contract was created
	Logs                 []ember.Log               `json:"logs"`
	DeletedAccounts      []ember.Address           `json:"deletedAccounts"`           // sorted by address
	InternalTransactions []*vm.InternalTransaction `json:"internalTransactions"`
}

func (r *Receipt) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Receipt{success: %t, gasUsed: %d, returnData: %x, deletedAccounts: %v, logs: %d}",
		r.Success, r.GasUsed, []byte(r.ReturnData), r.DeletedAccounts, len(r.Logs))
	for _, tx := range r.InternalTransactions {
		builder.WriteString("\n|--")
		builder.WriteString(tx.String())
	}
	return builder.String()
}

// Summary is a view on a receipt reporting failures instead of successes,
// as consumed by block producers.
type Summary struct {
	Transaction          ember.Transaction
	Failed               bool
	GasUsed              ember.Gas
	ReturnData           ember.Data
	InternalTransactions []*vm.InternalTransaction
	DeletedAccounts      []ember.Address
	Logs                 []ember.Log
}

func (r *Receipt) Summary() Summary {
	return Summary{
		Transaction:          r.Transaction,
		Failed:               !r.Success,
		GasUsed:              r.GasUsed,
		ReturnData:           r.ReturnData,
		InternalTransactions: r.InternalTransactions,
		DeletedAccounts:      r.DeletedAccounts,
		Logs:                 r.Logs,
	}
}
