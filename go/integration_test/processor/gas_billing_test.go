// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/processor/executor"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
)

func TestProcessor_GasBillingEndToEnd(t *testing.T) {
	senderBalance := ember.NewValue(1000000)
	gasLimit := ember.Gas(100000)
	gasPrice := ember.NewValue(5)
	slot := ember.Key(ember.WordFromUint64(1))

	tests := map[string]struct {
		code    ember.Code
		gasUsed ember.Gas
		success bool
		storage state.Storage
	}{
		"success": {
			code: ember.Code{
				byte(vm.PUSH1), byte(0), // < push 0
				byte(vm.PUSH1), byte(0), // < push 0
				byte(vm.RETURN),
			},
			gasUsed: 21000 + 3 + 3,
			success: true,
			storage: state.Storage{slot: ember.WordFromUint64(42)},
		},
		"refund": {
			code: ember.Code{
				byte(vm.PUSH1), byte(0), // < new value
				byte(vm.PUSH1), byte(1), // < slot
				byte(vm.SSTORE),
			},
			// the refund of clearing the slot is capped by half of the used gas
			gasUsed: (21000 + 3 + 3 + 5000) / 2,
			success: true,
			storage: state.Storage{},
		},
		"failed": {
			code: ember.Code{
				byte(vm.PUSH1), byte(0),
				byte(vm.INVALID),
			},
			gasUsed: gasLimit,
			success: false,
			storage: state.Storage{slot: ember.WordFromUint64(42)},
		},
	}

	sender := ember.Address{1}
	recipient := ember.Address{2}
	for _, fork := range forks {
		for name, test := range tests {
			t.Run(fmt.Sprintf("%v/%s", fork, name), func(t *testing.T) {
				before := state.Accounts{
					sender: {Balance: senderBalance, Nonce: 4},
					recipient: {
						Code:    test.code,
						Storage: state.Storage{slot: ember.WordFromUint64(42)},
					},
				}

				after := before.Clone()
				after[sender] = state.Account{
					Balance: ember.Sub(senderBalance, gasPrice.Scale(uint64(test.gasUsed))),
					Nonce:   5,
				}
				after[recipient] = state.Account{
					Code:    test.code,
					Storage: test.storage,
				}

				scenario := Scenario{
					Fork:   fork,
					Before: before,
					After:  after,
					Transaction: ember.Transaction{
						Sender:    sender,
						Recipient: &recipient,
						GasLimit:  gasLimit,
						GasPrice:  gasPrice,
						Nonce:     4,
					},
					Receipt: executor.Receipt{
						Success: test.success,
						GasUsed: test.gasUsed,
					},
				}
				scenario.Run(t)
			})
		}
	}
}

func TestProcessor_BlockGasLimitIsRespected(t *testing.T) {
	sender := ember.Address{1}
	recipient := ember.Address{2}
	repo := state.NewRepositoryFrom(state.Accounts{
		sender: {Balance: ember.NewValue(1000000)},
	})
	block := ember.BlockParameters{GasLimit: 50000}
	transaction := ember.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		GasLimit:  30000,
		GasPrice:  ember.NewValue(1),
	}

	exec, err := executor.NewTransactionExecutor(transaction, block, repo, nil, executor.Config{
		GasUsedInBlock: 30000,
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if _, err := exec.Run(); err == nil {
		t.Errorf("transaction exceeding the block gas limit should be rejected")
	}
	if want, got := ember.NewValue(1000000), repo.GetBalance(sender); want != got {
		t.Errorf("sender was charged for a rejected transaction, balance %v", got)
	}
}
