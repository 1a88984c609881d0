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
	"encoding/hex"
	"testing"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/holiman/uint256"
)

func TestStaticGas_SelectedPrices(t *testing.T) {
	fees := chainspec.Default().Fees
	tests := map[OpCode]ember.Gas{
		STOP:         0,
		ADD:          3,
		MUL:          5,
		ADDMOD:       8,
		JUMPI:        10,
		PUSH32:       3,
		DUP1:         3,
		SWAP16:       3,
		SLOAD:        fees.Sload,
		SSTORE:       0,
		LOG0:         375,
		LOG2:         375 + 2*375,
		CALL:         fees.Call,
		CREATE:       32000,
		SELFDESTRUCT: fees.Suicide,
		JUMPDEST:     1,
		SHA3:         30,
	}
	table := newStaticGasTable(&fees)
	for op, want := range tests {
		if got := table[op]; want != got {
			t.Errorf("unexpected static gas of %v, wanted %d, got %d", op, want, got)
		}
	}
}

func TestSstore_NetGasMetering(t *testing.T) {
	tests := []struct {
		code     string
		original byte
		used     ember.Gas
		refund   ember.Gas
	}{
		{"60006000556000600055", 0, 412, 0},
		{"60006000556001600055", 0, 20212, 0},
		{"60016000556000600055", 0, 20212, 19800},
		{"60016000556002600055", 0, 20212, 0},
		{"60016000556001600055", 0, 20212, 0},
		{"60006000556000600055", 1, 5212, 15000},
		{"60006000556001600055", 1, 5212, 4800},
		{"60006000556002600055", 1, 5212, 0},
		{"60026000556000600055", 1, 5212, 15000},
		{"60026000556003600055", 1, 5212, 0},
		{"60026000556001600055", 1, 5212, 4800},
		{"60026000556002600055", 1, 5212, 0},
		{"60016000556000600055", 1, 5212, 15000},
		{"60016000556002600055", 1, 5212, 0},
		{"60016000556001600055", 1, 412, 0},
		{"600160005560006000556001600055", 0, 40218, 19800},
		{"600060005560016000556000600055", 1, 10218, 19800},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			code, err := hex.DecodeString(test.code)
			if err != nil {
				t.Fatalf("invalid code: %v", err)
			}
			repo := state.NewRepositoryFrom(state.Accounts{
				testOwner: {Storage: state.Storage{{}: ember.Word{31: test.original}}},
			})
			invoke := newTestInvoke(repo.StartTracking(), 100_000)
			invoke.OriginalRepository = repo

			interpreter := newTestInterpreter(t, ember.Constantinople)
			p := interpreter.NewProgram(code, nil, invoke)
			interpreter.Play(p)

			if err := p.Result().Exception(); err != nil {
				t.Fatalf("unexpected exception: %v", err)
			}
			if want, got := test.used, p.GasUsed(); want != got {
				t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
			}
			if want, got := test.refund, p.Result().FutureRefund(); want != got {
				t.Errorf("unexpected refund, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestSstore_LegacyGasMetering(t *testing.T) {
	tests := []struct {
		code     string
		original byte
		used     ember.Gas
		refund   ember.Gas
	}{
		{"6001600055", 0, 20006, 0},
		{"6002600055", 1, 5006, 0},
		{"6000600055", 1, 5006, 15000},
		{"6000600055", 0, 5006, 0},
		{"60016000556000600055", 0, 25012, 15000},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			code, err := hex.DecodeString(test.code)
			if err != nil {
				t.Fatalf("invalid code: %v", err)
			}
			repo := state.NewRepositoryFrom(state.Accounts{
				testOwner: {Storage: state.Storage{{}: ember.Word{31: test.original}}},
			})
			p := runCode(t, ember.Byzantium, code, 100_000, repo)

			if err := p.Result().Exception(); err != nil {
				t.Fatalf("unexpected exception: %v", err)
			}
			if want, got := test.used, p.GasUsed(); want != got {
				t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
			}
			if want, got := test.refund, p.Result().FutureRefund(); want != got {
				t.Errorf("unexpected refund, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestNeedsNewAccount_DependsOnFork(t *testing.T) {
	existing := ember.Address{1}
	empty := ember.Address{2}
	missing := ember.Address{3}
	repo := state.NewRepositoryFrom(state.Accounts{
		existing: {Balance: ember.NewValue(1)},
		empty:    {},
	})

	tests := []struct {
		fork    ember.Fork
		address ember.Address
		value   uint64
		want    bool
	}{
		{ember.Frontier, existing, 1, false},
		{ember.Frontier, empty, 1, false},
		{ember.Frontier, missing, 0, true},
		{ember.Frontier, missing, 1, true},
		{ember.Byzantium, existing, 1, false},
		{ember.Byzantium, empty, 1, true},
		{ember.Byzantium, empty, 0, false},
		{ember.Byzantium, missing, 0, false},
		{ember.Byzantium, missing, 1, true},
	}

	for _, test := range tests {
		interpreter := newTestInterpreter(t, test.fork)
		p := interpreter.NewProgram(nil, nil, newTestInvoke(repo, 0))
		if got := needsNewAccount(p, test.address, uint256.NewInt(test.value)); test.want != got {
			t.Errorf("unexpected result for %v in %v with value %d, wanted %t, got %t", test.address, test.fork, test.value, test.want, got)
		}
	}
}

func TestNeedsNewAccount_FollowsSpecToggle(t *testing.T) {
	empty := ember.Address{2}
	repo := state.NewRepositoryFrom(state.Accounts{empty: {}})

	spec := chainspec.MustForFork(ember.Frontier)
	spec.ChargeEmptyAccounts = true
	interpreter, err := NewInterpreter(spec, Config{})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	p := interpreter.NewProgram(nil, nil, newTestInvoke(repo, 0))
	if !needsNewAccount(p, empty, uint256.NewInt(1)) {
		t.Errorf("value transfer to empty account should be charged")
	}
	if needsNewAccount(p, ember.Address{3}, uint256.NewInt(0)) {
		t.Errorf("zero-value call to missing account should not be charged")
	}
}
