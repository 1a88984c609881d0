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
	"bytes"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/processor/executor"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/holiman/uint256"
)

// sufficientGas is a gas limit covering the needs of all transactions run
// by the tests of this package.
const sufficientGas = ember.Gas(50_000_000)

var forks = []ember.Fork{ember.Frontier, ember.Byzantium, ember.Constantinople}

// Scenario represents a test scenario for the transaction executor. A
// scenario consists of a world state before and after the operation, a
// transaction to be executed, block chain parameters, and the expected
// receipt.
type Scenario struct {
	Fork        ember.Fork
	Before      state.Accounts
	After       state.Accounts
	Block       ember.BlockParameters
	Transaction ember.Transaction
	Receipt     executor.Receipt
}

func (s *Scenario) Run(t *testing.T) {
	t.Helper()
	receipt, repo := runTransaction(t, s.Fork, s.Block, s.Before, s.Transaction)

	// check the world state after the operation
	if diff := s.After.Diff(repo.Snapshot()); len(diff) != 0 {
		t.Fatalf("unexpected world state after the operation: \n\t%v", strings.Join(diff, "\n\t"))
	}

	// check the receipt
	if want, got := s.Receipt.Success, receipt.Success; want != got {
		t.Errorf("unexpected success, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.GasUsed, receipt.GasUsed; want != got {
		t.Errorf("unexpected gas used, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.ReturnData, receipt.ReturnData; !bytes.Equal(want, got) {
		t.Errorf("unexpected output, want %x, got %x", want, got)
	}

	wantedCreatedContract := s.Receipt.ContractAddress
	gotCreatedContract := receipt.ContractAddress
	if wantedCreatedContract == nil && gotCreatedContract != nil {
		t.Errorf("unexpected created contract address, want nil, got %v", gotCreatedContract)
	}
	if wantedCreatedContract != nil && gotCreatedContract == nil {
		t.Errorf("unexpected created contract address, want %v, got nil", wantedCreatedContract)
	}
	if wantedCreatedContract != nil && gotCreatedContract != nil {
		if want, got := *wantedCreatedContract, *gotCreatedContract; want != got {
			t.Errorf("unexpected created contract address, want %v, got %v", want, got)
		}
	}

	if len(receipt.Logs) != len(s.Receipt.Logs) {
		t.Fatalf("unexpected receipt logs: %v", receipt.Logs)
	}
	for i, want := range s.Receipt.Logs {
		got := receipt.Logs[i]
		if want, got := want.Address, got.Address; want != got {
			t.Errorf("unexpected receipt log address, want %v, got %v", want, got)
		}
		if want, got := want.Topics, got.Topics; !slices.Equal(want, got) {
			t.Errorf("unexpected receipt log topics, want %v, got %v", want, got)
		}
		if want, got := want.Data, got.Data; !bytes.Equal(want, got) {
			t.Errorf("unexpected receipt data, want %x, got %x", want, got)
		}
	}
}

// defaultBlock is a block with a gas limit not restricting any transaction.
func defaultBlock() ember.BlockParameters {
	return ember.BlockParameters{
		GasLimit: math.MaxInt64,
		Number:   1,
	}
}

// runTransaction executes the given transaction on a repository initialized
// with the given accounts. Transactions failing validation fail the test.
func runTransaction(t *testing.T, fork ember.Fork, block ember.BlockParameters, accounts state.Accounts, tx ember.Transaction) (*executor.Receipt, *state.Repository) {
	t.Helper()
	return runTransactionOn(t, chainspec.MustForFork(fork), block, accounts, tx)
}

func runTransactionOn(t *testing.T, spec chainspec.Spec, block ember.BlockParameters, accounts state.Accounts, tx ember.Transaction) (*executor.Receipt, *state.Repository) {
	t.Helper()
	if block.GasLimit == 0 {
		block = defaultBlock()
	}
	interpreter, err := vm.NewInterpreter(spec, vm.Config{})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	repo := state.NewRepositoryFrom(accounts)
	exec, err := executor.NewTransactionExecutor(tx, block, repo, nil, executor.Config{
		Interpreter: interpreter,
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	receipt, err := exec.Run()
	if err != nil {
		t.Fatalf("failed to run transaction: %v", err)
	}
	return receipt, repo
}

// pushToStack produces code pushing the given values such that the first
// value ends up on top of the stack.
func pushToStack(values ...*uint256.Int) []byte {
	code := []byte{}
	for i := len(values) - 1; i >= 0; i-- {
		valueBytes := values[i].Bytes()
		if len(valueBytes) == 0 {
			valueBytes = []byte{0}
		}
		push := vm.PUSH1 + vm.OpCode(len(valueBytes)-1)
		code = append(code, byte(push))
		code = append(code, valueBytes...)
	}
	return code
}

func addressToUint256(address ember.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(address[:])
}

// wordOf returns the 32 byte big-endian representation of the given number.
func wordOf(value uint64) []byte {
	word := ember.WordFromUint64(value)
	return word[:]
}
