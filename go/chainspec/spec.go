// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainspec

import (
	"fmt"
	"math"

	"github.com/Fantom-foundation/Ember/go/ember"
)

// Spec summarizes the gas costs and feature toggles of a fork. A Spec is an
// immutable value; it is selected once per transaction and passed explicitly
// to every component depending on it.
type Spec struct {
	Fork        ember.Fork
	Fees        FeeSchedule
	Precompiles *Precompiles

	// MaxContractSize is the maximum size of deployed code. A value <= 0
	// disables the limit. None of the supported forks limits the code size.
	MaxContractSize int
	// CreateEmptyContractOnOOG defines whether a contract creation lacking
	// the gas for its code deposit still succeeds with empty code.
	CreateEmptyContractOnOOG bool
	// ChargeEmptyAccounts defines whether value transfers to existing but
	// empty accounts pay the new account surcharge, and zero-value calls
	// to missing accounts do not.
	ChargeEmptyAccounts bool

	EIP150  bool // 63/64 gas forwarding
	EIP140  bool // REVERT
	EIP211  bool // RETURNDATASIZE, RETURNDATACOPY
	EIP214  bool // STATICCALL
	EIP145  bool // SHL, SHR, SAR
	EIP1014 bool // CREATE2
	EIP1052 bool // EXTCODEHASH
	EIP1283 bool // net gas metering for SSTORE
}

func frontier() Spec {
	return Spec{
		Fork:                     ember.Frontier,
		Fees:                     frontierFees(),
		Precompiles:              frontierPrecompiles,
		MaxContractSize:          0,
		CreateEmptyContractOnOOG: false,
	}
}

func byzantium() Spec {
	spec := frontier()
	spec.Fork = ember.Byzantium
	spec.Fees = byzantiumFees()
	spec.Precompiles = byzantiumPrecompiles
	spec.CreateEmptyContractOnOOG = true
	spec.ChargeEmptyAccounts = true
	spec.EIP150 = true
	spec.EIP140 = true
	spec.EIP211 = true
	spec.EIP214 = true
	return spec
}

func constantinople() Spec {
	spec := byzantium()
	spec.Fork = ember.Constantinople
	spec.EIP145 = true
	spec.EIP1014 = true
	spec.EIP1052 = true
	spec.EIP1283 = true
	return spec
}

// ForFork returns the specification of the given fork.
func ForFork(fork ember.Fork) (Spec, error) {
	switch fork {
	case ember.Frontier:
		return frontier(), nil
	case ember.Byzantium:
		return byzantium(), nil
	case ember.Constantinople:
		return constantinople(), nil
	}
	return Spec{}, fmt.Errorf("unsupported fork: %v", fork)
}

// MustForFork is like ForFork but panics on unsupported forks.
func MustForFork(fork ember.Fork) Spec {
	spec, err := ForFork(fork)
	if err != nil {
		panic(err)
	}
	return spec
}

// Default returns the Byzantium specification.
func Default() Spec {
	return byzantium()
}

// TransactionCost computes the intrinsic gas of the given transaction: the
// base cost of a call or a contract creation plus a per-byte fee depending
// on whether a byte of the payload is zero.
func (s *Spec) TransactionCost(tx *ember.Transaction) ember.Gas {
	cost := s.Fees.Transaction
	if tx.IsCreate() {
		cost = s.Fees.TransactionCreateContract
	}
	for _, b := range tx.Input {
		if b == 0 {
			cost += s.Fees.TxZeroData
		} else {
			cost += s.Fees.TxNoZeroData
		}
	}
	return cost
}

// CallGas computes the gas forwarded to a message call of the given kind. If
// the 63/64 rule is active, the requested gas is capped by all but one 64th
// of the available gas. Otherwise all available gas is forwarded.
func (s *Spec) CallGas(kind ember.CallKind, requested, available ember.Gas) ember.Gas {
	if !s.EIP150 {
		return available
	}
	return min(requested, allButOne64th(available))
}

// CreateGas computes the gas forwarded to the init code of a contract
// creation.
func (s *Spec) CreateGas(available ember.Gas) ember.Gas {
	if !s.EIP150 {
		return available
	}
	return allButOne64th(available)
}

// IsCodeSizeExceeded checks the size of code to be deployed against the
// limit of this specification.
func (s *Spec) IsCodeSizeExceeded(size int) bool {
	return s.MaxContractSize > 0 && size > s.MaxContractSize
}

func allButOne64th(gas ember.Gas) ember.Gas {
	return gas - gas/64
}

// MaxGas is the upper bound of all gas values; cost computations saturate at
// this value instead of wrapping around.
const MaxGas = ember.Gas(math.MaxInt64)
