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

import "github.com/Fantom-foundation/Ember/go/ember"

// Frame failures. Any of these halts the frame, forfeits its remaining gas
// and surfaces to the caller as a failed call.
const (
	ErrOutOfGas              = ember.ConstError("out of gas")
	ErrStackUnderflow        = ember.ConstError("stack underflow")
	ErrStackOverflow         = ember.ConstError("stack overflow")
	ErrCallTooDeep           = ember.ConstError("max call depth exceeded")
	ErrInsufficientBalance   = ember.ConstError("insufficient balance for transfer")
	ErrBadJumpDestination    = ember.ConstError("invalid jump destination")
	ErrPrecompiledFailure    = ember.ConstError("precompiled contract failed")
	ErrInvalidOpCode         = ember.ConstError("invalid opcode")
	ErrStaticCallViolation   = ember.ConstError("write protection")
	ErrReturnDataOutOfBounds = ember.ConstError("return data out of bounds")
	ErrAccountAlreadyExists  = ember.ConstError("contract address collision")
	ErrCodeStoreOutOfGas     = ember.ConstError("contract creation code storage out of gas")
	ErrMaxCodeSizeExceeded   = ember.ConstError("max code size exceeded")
	ErrGasUintOverflow       = ember.ConstError("gas uint64 overflow")
)
