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
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/holiman/uint256"
)

type callType struct {
	callType vm.OpCode
	hasValue bool
	since    ember.Fork
}

func callTypesAndProperties() map[string]callType {
	return map[string]callType{
		"call":         {callType: vm.CALL, hasValue: true, since: ember.Frontier},
		"callCode":     {callType: vm.CALLCODE, hasValue: true, since: ember.Frontier},
		"delegateCall": {callType: vm.DELEGATECALL, hasValue: false, since: ember.Frontier},
		"staticCall":   {callType: vm.STATICCALL, hasValue: false, since: ember.Byzantium},
	}
}

// pushCallArguments produces code pushing the arguments of the given call
// type, forwarding no input and expecting 32 bytes of output at offset 0.
func pushCallArguments(call callType, gas ember.Gas, value ember.Value, target ember.Address) []byte {
	args := []*uint256.Int{
		uint256.NewInt(uint64(gas)),
		addressToUint256(target),
	}
	if call.hasValue {
		args = append(args, value.ToUint256())
	}
	args = append(args,
		uint256.NewInt(0),  // argument offset
		uint256.NewInt(0),  // argument size
		uint256.NewInt(0),  // result offset
		uint256.NewInt(32), // result size
	)
	return pushToStack(args...)
}

func TestProcessor_MaximalCallDepthIsEnforced(t *testing.T) {
	gasLimit := ember.Gas(1_000_000_000_000)
	for _, fork := range forks {
		t.Run(fmt.Sprintf("%v-MaxCallDepth", fork), func(t *testing.T) {
			sender := ember.Address{1}
			receiver := ember.Address{2}

			// put 32byte input value with 0 offset from memory to stack,
			// add 1 to it and put it back to memory with 0 offset
			code := []byte{
				byte(vm.PUSH1), byte(0),
				byte(vm.CALLDATALOAD),
				byte(vm.PUSH1), byte(1),
				byte(vm.ADD),
				byte(vm.PUSH1), byte(0),
				byte(vm.MSTORE)}

			// add stack values for call instruction
			code = append(code, pushToStack(
				uint256.NewInt(uint64(gasLimit)), // gas send to nested call
				addressToUint256(receiver),       // call target
				uint256.NewInt(0),                // value to transfer
				uint256.NewInt(0),                // argument offset
				uint256.NewInt(32),               // argument size
				uint256.NewInt(0),                // result offset
				uint256.NewInt(32),               // result size
			)...)

			// make inner call and return 32byte value with 0 offset from memory
			code = append(code, []byte{
				byte(vm.CALL),
				byte(vm.PUSH1), byte(32),
				byte(vm.PUSH1), byte(0),
				byte(vm.RETURN),
			}...)

			accounts := state.Accounts{
				sender:   {},
				receiver: {Code: code},
			}
			transaction := ember.Transaction{
				Sender:    sender,
				Recipient: &receiver,
				GasLimit:  gasLimit,
			}

			receipt, _ := runTransaction(t, fork, ember.BlockParameters{}, accounts, transaction)
			if !receipt.Success {
				t.Fatalf("execution failed: %v", receipt)
			}
			if want, got := wordOf(uint64(vm.MaxCallDepth + 1)), []byte(receipt.ReturnData); !bytes.Equal(want, got) {
				t.Errorf("unexpected call depth, wanted %x, got %x", want, got)
			}
		})
	}
}

func TestProcessor_DifferentCallTypesAccessStorage(t *testing.T) {
	tests := map[string]bool{
		"call":         false,
		"callCode":     true,
		"staticCall":   false,
		"delegateCall": true,
	}

	calls := callTypesAndProperties()
	for _, fork := range forks {
		for name, sameStorage := range tests {
			call := calls[name]
			if fork < call.since {
				continue
			}
			t.Run(fmt.Sprintf("%v-%s", fork, name), func(t *testing.T) {
				sender0 := ember.Address{1}
				receiver0 := ember.Address{2}
				receiver1 := ember.Address{3}

				// store 42 at storage slot 24
				code0 := []byte{
					byte(vm.PUSH1), byte(42),
					byte(vm.PUSH1), byte(24),
					byte(vm.SSTORE),
				}
				// perform call and forward the result
				code0 = append(code0, pushCallArguments(call, sufficientGas, ember.Value{}, receiver1)...)
				code0 = append(code0, []byte{
					byte(call.callType),
					byte(vm.PUSH1), byte(32),
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}...)

				// inner call, read from storage slot 24 and return its value
				code1 := []byte{
					byte(vm.PUSH1), byte(24),
					byte(vm.SLOAD),
					byte(vm.PUSH1), byte(0),
					byte(vm.MSTORE),
					byte(vm.PUSH1), byte(32),
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}

				accounts := state.Accounts{
					sender0:   {},
					receiver0: {Code: code0},
					receiver1: {Code: code1},
				}
				transaction := ember.Transaction{
					Sender:    sender0,
					Recipient: &receiver0,
					GasLimit:  sufficientGas,
				}

				receipt, repo := runTransaction(t, fork, ember.BlockParameters{}, accounts, transaction)
				if !receipt.Success {
					t.Fatalf("execution was not successful: %v", receipt)
				}
				want := wordOf(0)
				if sameStorage {
					want = wordOf(42)
				}
				if got := []byte(receipt.ReturnData); !bytes.Equal(want, got) {
					t.Errorf("%v accessed unexpected storage, wanted %x, got %x", call.callType, want, got)
				}
				if got := repo.GetStorageRow(receiver0, ember.Key(ember.WordFromUint64(24))); got != ember.WordFromUint64(42) {
					t.Errorf("unexpected storage of caller: %v", got)
				}
			})
		}
	}
}

func TestProcessor_StaticCallCanNotModifyStorage(t *testing.T) {
	sender := ember.Address{1}
	receiver0 := ember.Address{2}
	receiver1 := ember.Address{3}

	call := callTypesAndProperties()["staticCall"]
	code0 := pushCallArguments(call, sufficientGas, ember.Value{}, receiver1)
	code0 = append(code0, []byte{
		byte(vm.STATICCALL),
		byte(vm.PUSH1), byte(0),
		byte(vm.MSTORE),
		byte(vm.PUSH1), byte(32),
		byte(vm.PUSH1), byte(0),
		byte(vm.RETURN),
	}...)
	code1 := []byte{
		byte(vm.PUSH1), byte(1),
		byte(vm.PUSH1), byte(0),
		byte(vm.SSTORE),
	}

	accounts := state.Accounts{
		sender:    {},
		receiver0: {Code: code0},
		receiver1: {Code: code1},
	}
	transaction := ember.Transaction{
		Sender:    sender,
		Recipient: &receiver0,
		GasLimit:  sufficientGas,
	}
	for _, fork := range forks[1:] {
		t.Run(fork.String(), func(t *testing.T) {
			receipt, repo := runTransaction(t, fork, ember.BlockParameters{}, accounts, transaction)
			if !receipt.Success {
				t.Fatalf("execution was not successful: %v", receipt)
			}
			if want, got := wordOf(0), []byte(receipt.ReturnData); !bytes.Equal(want, got) {
				t.Errorf("static call should have failed, got %x", got)
			}
			if got := repo.GetStorageRow(receiver1, ember.Key{}); !got.IsZero() {
				t.Errorf("storage was modified by static call: %v", got)
			}
		})
	}
}
