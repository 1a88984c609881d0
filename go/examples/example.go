// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"fmt"
	"math"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
)

// Example is an executable description of a contract and an entry point with a (int)->int signature.
type Example struct {
	exampleSpec
	codeHash ember.Hash // the hash of the code
}

// exampleSpec specifies a contract and an entry point with a (int)->int signature.
type exampleSpec struct {
	Name      string
	Code      []byte        // some contract code
	function  uint32        // identifier of the function in the contract to be called
	reference func(int) int // a reference function computing the same function
}

func (s exampleSpec) build() Example {
	return Example{
		exampleSpec: s,
		codeHash:    ember.Keccak256(s.Code),
	}
}

type Result struct {
	Result  int
	UsedGas ember.Gas
}

// exampleAddress is the account the example code is run on.
var exampleAddress = ember.Address{0xe0}

// RunOn runs this example on the given interpreter, using the given argument.
// The code is executed on an empty world state.
func (e *Example) RunOn(interpreter *vm.Interpreter, argument int) (Result, error) {
	const initialGas = math.MaxInt64
	program := interpreter.NewProgram(e.Code, &e.codeHash, vm.ProgramInvoke{
		Owner:      exampleAddress,
		Gas:        initialGas,
		Data:       encodeArgument(e.function, argument),
		Repository: state.NewRepository(),
	})
	interpreter.Play(program)

	res := program.Result()
	if err := res.Exception(); err != nil {
		return Result{}, err
	}
	if res.IsRevert() {
		return Result{}, fmt.Errorf("execution of %s reverted", e.Name)
	}

	result, err := decodeOutput(res.ReturnData())
	if err != nil {
		return Result{}, err
	}
	return Result{
		Result:  result,
		UsedGas: res.GasUsed(),
	}, nil
}

// RunReference runs the reference function of this example to produce the expected result.
func (e *Example) RunReference(argument int) int {
	return e.reference(argument)
}

// Input returns the call data invoking the example's entry point with the
// given argument.
func (e *Example) Input(argument int) []byte {
	return encodeArgument(e.function, argument)
}

// DecodeOutput extracts the result of the entry point from the output of a
// run of an example.
func DecodeOutput(output []byte) (int, error) {
	return decodeOutput(output)
}

func encodeArgument(function uint32, arg int) []byte {
	data := make([]byte, 4+32) // parameter is padded up to 32 bytes

	// encode function selector in big-endian format
	data[0] = byte(function >> 24)
	data[1] = byte(function >> 16)
	data[2] = byte(function >> 8)
	data[3] = byte(function)

	// encode argument as a big-endian value
	data[4+28] = byte(arg >> 24)
	data[5+28] = byte(arg >> 16)
	data[6+28] = byte(arg >> 8)
	data[7+28] = byte(arg)

	return data
}

func decodeOutput(output []byte) (int, error) {
	if len(output) != 32 {
		return 0, fmt.Errorf("unexpected length of output; wanted 32, got %d", len(output))
	}
	return (int(output[28]) << 24) | (int(output[29]) << 16) | (int(output[30]) << 8) | (int(output[31]) << 0), nil
}
