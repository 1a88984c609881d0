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
	"testing"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
)

func TestOpCode_String(t *testing.T) {
	tests := map[OpCode]string{
		STOP:         "STOP",
		ADD:          "ADD",
		PUSH1:        "PUSH1",
		PUSH32:       "PUSH32",
		DUP16:        "DUP16",
		SWAP1:        "SWAP1",
		SELFDESTRUCT: "SELFDESTRUCT",
		OpCode(0x0c): "OpCode(12)",
	}
	for op, want := range tests {
		if got := op.String(); want != got {
			t.Errorf("unexpected name, wanted %s, got %s", want, got)
		}
	}
}

func TestOpCode_Width(t *testing.T) {
	for i := 0; i < 256; i++ {
		op := OpCode(i)
		want := 1
		if PUSH1 <= op && op <= PUSH32 {
			want = int(op-PUSH1) + 2
		}
		if got := op.Width(); want != got {
			t.Errorf("unexpected width of %v, wanted %d, got %d", op, want, got)
		}
	}
}

func TestOpCode_InvalidIsNotValid(t *testing.T) {
	if IsValid(INVALID) {
		t.Errorf("INVALID should not be valid")
	}
	if IsValid(OpCode(0x0c)) {
		t.Errorf("undefined opcodes should not be valid")
	}
	if !IsValid(ADD) {
		t.Errorf("ADD should be valid")
	}
}

func TestOpCode_EnabledDependsOnFork(t *testing.T) {
	tests := map[OpCode]ember.Fork{
		ADD:            ember.Frontier,
		DELEGATECALL:   ember.Frontier,
		REVERT:         ember.Byzantium,
		RETURNDATASIZE: ember.Byzantium,
		RETURNDATACOPY: ember.Byzantium,
		STATICCALL:     ember.Byzantium,
		SHL:            ember.Constantinople,
		SHR:            ember.Constantinople,
		SAR:            ember.Constantinople,
		CREATE2:        ember.Constantinople,
		EXTCODEHASH:    ember.Constantinople,
	}
	for op, introduced := range tests {
		for _, fork := range ember.Forks() {
			spec := chainspec.MustForFork(fork)
			if want, got := fork.IsAtLeast(introduced), isEnabled(op, &spec); want != got {
				t.Errorf("unexpected availability of %v in %v, wanted %t, got %t", op, fork, want, got)
			}
		}
	}
}

func TestOpCode_CallKindRoundTrip(t *testing.T) {
	for _, op := range []OpCode{CALL, CALLCODE, DELEGATECALL, STATICCALL, CREATE, CREATE2} {
		if got := opCodeOf(callKind(op)); op != got {
			t.Errorf("unexpected opcode for %v, got %v", op, got)
		}
	}
}
