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

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/processor/executor"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestProcessor_CorrectAddressIsCreated(t *testing.T) {
	gasLimit := uint256.NewInt(uint64(sufficientGas)).Bytes()
	gasPush := vm.PUSH1 + vm.OpCode(len(gasLimit)-1)

	for _, fork := range forks {
		for _, create := range []vm.OpCode{vm.CREATE, vm.CREATE2} {
			if create == vm.CREATE2 && fork < ember.Constantinople {
				continue
			}
			t.Run(fmt.Sprintf("%v-%v", fork, create), func(t *testing.T) {
				sender := ember.Address{1}
				receiver := ember.Address{2}
				toBeCreatedCodeHolder := ember.Address{3}
				initCodeHolder := ember.Address{4}

				initCodeOffset := 64
				saltByte := byte(55)

				// code to be created
				codeToBeCreated := []byte{
					byte(vm.ADDRESS),
					byte(vm.PUSH1), byte(0),
					byte(vm.MSTORE),
					byte(vm.PUSH1), byte(32),
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}

				// save code to be created to memory
				initCode := saveCodeFromAccountToMemory(
					toBeCreatedCodeHolder,
					byte(len(codeToBeCreated)),
					byte(0),
				)

				// get code to be created from memory and return it
				initCode = append(initCode, []byte{
					byte(vm.PUSH1), byte(len(codeToBeCreated)),
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}...)

				// save init code to memory
				baseCode := saveCodeFromAccountToMemory(
					initCodeHolder,
					byte(len(initCode)),
					byte(initCodeOffset),
				)

				// Add salt for CREATE2
				if create == vm.CREATE2 {
					baseCode = append(baseCode, byte(vm.PUSH1), saltByte)
				}

				// Create the contract
				baseCode = append(baseCode, []byte{
					byte(vm.PUSH1), byte(len(initCode)), // input size
					byte(vm.PUSH1), byte(initCodeOffset), // input offset
					byte(vm.PUSH1), byte(0), // value
					byte(create),
				}...)

				// Save created address to memory
				baseCode = append(baseCode, []byte{
					byte(vm.PUSH1), byte(32),
					byte(vm.MSTORE),
				}...)

				// input for the call
				baseCode = append(baseCode, []byte{
					byte(vm.PUSH1), byte(32), // result size
					byte(vm.PUSH1), byte(0), // result offset
					byte(vm.PUSH1), byte(0), // input size
					byte(vm.PUSH1), byte(0), // input offset
					byte(vm.PUSH1), byte(0), // value
					byte(vm.PUSH1), byte(32), // memory offset for address
					byte(vm.MLOAD), // load address
				}...)

				// gas for the call
				baseCode = append(baseCode, byte(gasPush))
				baseCode = append(baseCode, gasLimit...)

				// Call contract and return result
				baseCode = append(baseCode, []byte{
					byte(vm.CALL),
					byte(vm.PUSH1), byte(64),
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}...)

				accounts := state.Accounts{
					sender:                {},
					receiver:              {Code: baseCode, Nonce: 44},
					toBeCreatedCodeHolder: {Code: codeToBeCreated},
					initCodeHolder:        {Code: initCode},
				}
				transaction := ember.Transaction{
					Sender:    sender,
					Recipient: &receiver,
					GasLimit:  sufficientGas,
				}

				salt := common.BytesToHash([]byte{saltByte})
				wantAddress := ember.Address(crypto.CreateAddress(common.Address(receiver), 44))
				if create == vm.CREATE2 {
					wantAddress = ember.Address(crypto.CreateAddress2(common.Address(receiver), salt, crypto.Keccak256(initCode)))
				}

				receipt, repo := runTransaction(t, fork, ember.BlockParameters{}, accounts, transaction)
				if !receipt.Success {
					t.Fatalf("execution was not successful: %v", receipt)
				}
				output := receipt.ReturnData
				if len(output) != 64 {
					t.Fatalf("unexpected output length: %d", len(output))
				}
				if !bytes.Equal(wantAddress[:], output[12:32]) {
					t.Errorf("contract address was not created correctly, returned %x vs %x", output[12:32], wantAddress[:])
				}
				if !bytes.Equal(wantAddress[:], output[44:64]) {
					t.Errorf("contract address was not created correctly, returned %x vs %x", output[44:64], wantAddress[:])
				}
				if got := repo.GetCode(wantAddress); !bytes.Equal(got, codeToBeCreated) {
					t.Errorf("unexpected code of created contract: %x", got)
				}
				if want, got := uint64(45), repo.GetNonce(receiver); want != got {
					t.Errorf("unexpected nonce of creator, want %d, got %d", want, got)
				}
			})
		}
	}
}

func TestProcessor_CreateExistingAccountFails(t *testing.T) {
	sender := ember.Address{1}
	existing := ember.Address(crypto.CreateAddress(common.Address(sender), 0))
	gasLimit := ember.Gas(100_000)

	tests := map[string]state.Account{
		"nonce":   {Nonce: 1},
		"code":    {Code: ember.Code{byte(vm.STOP)}},
		"balance": {Balance: ember.NewValue(7)},
	}

	for _, fork := range forks {
		for name, account := range tests {
			t.Run(fmt.Sprintf("%v-%s", fork, name), func(t *testing.T) {
				before := state.Accounts{
					sender:   {Balance: ember.NewValue(1_000_000)},
					existing: account,
				}
				after := before.Clone()
				after[sender] = state.Account{
					Balance: ember.Sub(ember.NewValue(1_000_000), ember.NewValue(uint64(gasLimit))),
					Nonce:   1,
				}

				scenario := Scenario{
					Fork:   fork,
					Before: before,
					After:  after,
					Transaction: ember.Transaction{
						Sender:   sender,
						GasLimit: gasLimit,
						GasPrice: ember.NewValue(1),
						Input:    ember.Data{byte(vm.STOP)},
					},
					Receipt: executor.Receipt{
						Success: false,
						GasUsed: gasLimit,
					},
				}
				scenario.Run(t)
			})
		}
	}
}

func TestProcessor_CreateWithoutCodeProducesEmptyAccount(t *testing.T) {
	sender := ember.Address{1}
	created := ember.CreateAddress(sender, 0)
	for _, fork := range forks {
		t.Run(fork.String(), func(t *testing.T) {
			scenario := Scenario{
				Fork: fork,
				Before: state.Accounts{
					sender: {Balance: ember.NewValue(100)},
				},
				After: state.Accounts{
					sender:  {Balance: ember.NewValue(90), Nonce: 1},
					created: {Balance: ember.NewValue(10), Nonce: 1},
				},
				Transaction: ember.Transaction{
					Sender:   sender,
					GasLimit: sufficientGas,
					Value:    ember.NewValue(10),
				},
				Receipt: executor.Receipt{
					Success:         true,
					GasUsed:         53000,
					ContractAddress: &created,
				},
			}
			scenario.Run(t)
		})
	}
}

func TestProcessor_CodeSizeIsOnlyLimitedIfConfigured(t *testing.T) {
	maxCodeSize := 24576
	lengths := map[string]int{
		"threshold":          maxCodeSize,
		"exceedingThreshold": maxCodeSize + 1,
	}

	type variant struct {
		spec    chainspec.Spec
		limited bool
	}
	variants := map[string]variant{}
	for _, fork := range forks {
		variants[fork.String()] = variant{spec: chainspec.MustForFork(fork)}
		limited := chainspec.MustForFork(fork)
		limited.MaxContractSize = maxCodeSize
		variants[fork.String()+"-limited"] = variant{spec: limited, limited: true}
	}

	for variantName, variant := range variants {
		for testName, length := range lengths {
			t.Run(fmt.Sprintf("%s-%s", variantName, testName), func(t *testing.T) {
				sender := ember.Address{1}
				addressToBeCreated := ember.CreateAddress(sender, 0)

				initCode := []byte{byte(vm.PUSH2)}
				initCode = append(initCode, uint256.NewInt(uint64(length)).Bytes()...)
				initCode = append(initCode, []byte{
					byte(vm.PUSH1), byte(0),
					byte(vm.RETURN),
				}...)
				accounts := state.Accounts{
					sender: {},
				}
				transaction := ember.Transaction{
					Sender:   sender,
					GasLimit: sufficientGas,
					Input:    initCode,
				}

				receipt, repo := runTransactionOn(t, variant.spec, ember.BlockParameters{}, accounts, transaction)

				success := !variant.limited || length <= maxCodeSize
				if receipt.Success != success {
					t.Errorf("execution success was %v, expected %v", receipt.Success, success)
				}
				if success {
					if got := len(repo.GetCode(addressToBeCreated)); got != length {
						t.Errorf("code has not been set correctly, got %d bytes", got)
					}
				} else {
					if code := repo.GetCode(addressToBeCreated); len(code) != 0 {
						t.Errorf("code should have not been set but returned %v", code)
					}
					if receipt.GasUsed != sufficientGas {
						t.Errorf("execution failed but gas was not fully used, used %d", receipt.GasUsed)
					}
				}
			})
		}
	}
}

func saveCodeFromAccountToMemory(account ember.Address, length byte, offset byte) []byte {
	addressPush := vm.PUSH1 + vm.OpCode(len(ember.Address{})-1)
	code := []byte{}
	code = append(code, []byte{
		byte(vm.PUSH1), length, // input size
		byte(vm.PUSH1), byte(0), // offset in code
		byte(vm.PUSH1), offset, // memory offset
	}...)
	code = append(code, byte(addressPush))
	code = append(code, account[:]...)
	code = append(code, byte(vm.EXTCODECOPY))

	return code
}
