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
	"fmt"

	"github.com/Fantom-foundation/Ember/go/ember"
)

// InternalTransaction records a message call, a contract creation or a
// self-destruct triggered during the execution of a transaction. Except for
// the rejection flag, records are never modified once created.
type InternalTransaction struct {
	Depth    int            `json:"depth"`
	Index    int            `json:"index"`
	Type     OpCode         `json:"type"`
	From     ember.Address  `json:"from"`
	To       *ember.Address `json:"to,omitempty"` // nil for contract creations
	Nonce    uint64         `json:"nonce"`
	Value    ember.Value    `json:"value"`
	Data     ember.Data     `json:"data,omitempty"`
	Gas      ember.Gas      `json:"gas"`
	GasPrice ember.Value    `json:"gasPrice"`
	Rejected bool           `json:"rejected"`
}

// Reject marks the transaction as rejected since the effects of the frame
// issuing it got discarded.
func (tx *InternalTransaction) Reject() {
	tx.Rejected = true
}

func (tx *InternalTransaction) String() string {
	to := "-"
	if tx.To != nil {
		to = tx.To.String()
	}
	return fmt.Sprintf(
		"InternalTransaction{depth: %d, index: %d, type: %v, from: %v, to: %s, nonce: %d, value: %v, gas: %d, rejected: %t}",
		tx.Depth, tx.Index, tx.Type, tx.From, to, tx.Nonce, tx.Value, tx.Gas, tx.Rejected,
	)
}
