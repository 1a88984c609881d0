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
	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// MaxCallDepth is the maximum number of nested call frames.
const MaxCallDepth = int(params.CallCreateDepth)

// Program is the execution context of a single call frame. It owns the
// stack, memory, program counter and gas accounting of the frame and
// mediates all side effects of the executed code, including nested message
// calls and contract creations.
//
// The stack and memory of a program are only to be accessed through its
// primitives; the interpreter loop is the only component manipulating the
// stack directly.
type Program struct {
	invoke      ProgramInvoke
	interpreter *Interpreter
	spec        *chainspec.Spec

	code      []byte
	codeHash  *ember.Hash
	jumpDests jumpDests

	pc     uint64
	stack  *Stack
	memory *Memory
	result *ProgramResult

	repo ember.Repository

	// returnDataBuffer holds the output of the most recent nested call.
	returnDataBuffer []byte
}

// NewProgram creates a program running the given code with the given inputs.
// If the hash of the code is known, it may be provided to enable caching of
// the code analysis.
func (i *Interpreter) NewProgram(code []byte, codeHash *ember.Hash, invoke ProgramInvoke) *Program {
	return &Program{
		invoke:      invoke,
		interpreter: i,
		spec:        &i.spec,
		code:        code,
		codeHash:    codeHash,
		stack:       NewStack(),
		memory:      NewMemory(),
		result:      NewEmptyResult(invoke.Gas),
		repo:        invoke.Repository,
	}
}

func (p *Program) Result() *ProgramResult {
	return p.result
}

func (p *Program) Code() []byte {
	return p.code
}

func (p *Program) PC() uint64 {
	return p.pc
}

func (p *Program) Owner() ember.Address {
	return p.invoke.Owner
}

func (p *Program) Depth() int {
	return p.invoke.Depth
}

func (p *Program) IsStatic() bool {
	return p.invoke.Static
}

func (p *Program) Repository() ember.Repository {
	return p.repo
}

// --- Gas ---

func (p *Program) GasLeft() ember.Gas {
	return p.result.GasLeft()
}

func (p *Program) GasUsed() ember.Gas {
	return p.result.GasUsed()
}

// SpendGas charges the given amount of gas. If less than the amount is left,
// nothing is charged and ErrOutOfGas is returned.
func (p *Program) SpendGas(amount ember.Gas) error {
	if amount < 0 || p.GasLeft() < amount {
		return ErrOutOfGas
	}
	p.result.SpendGas(amount)
	return nil
}

func (p *Program) SpendAllGas() {
	p.result.DrainGas()
}

func (p *Program) RefundGas(amount ember.Gas) {
	p.result.RefundGas(amount)
}

// FutureRefundGas registers gas to be refunded at the end of the transaction,
// if this frame and all of its parents succeed.
func (p *Program) FutureRefundGas(amount ember.Gas) {
	p.result.AddFutureRefund(amount)
}

func (p *Program) ResetFutureRefund() {
	p.result.ResetFutureRefund()
}

// fail records the given exception as the outcome of this frame.
func (p *Program) fail(err error) {
	p.SpendAllGas()
	p.ResetFutureRefund()
	p.result.SetException(err)
}

// --- Stack ---

func (p *Program) StackPush(word ember.Word) error {
	if p.stack.len() >= maxStackSize {
		return ErrStackOverflow
	}
	p.stack.pushUndefined().SetBytes32(word[:])
	return nil
}

func (p *Program) StackPop() (ember.Word, error) {
	if p.stack.len() < 1 {
		return ember.Word{}, ErrStackUnderflow
	}
	return ember.Word(p.stack.pop().Bytes32()), nil
}

func (p *Program) stackPushZero() {
	p.stack.pushUndefined().Clear()
}

func (p *Program) stackPushOne() {
	p.stack.pushUndefined().SetOne()
}

// --- Memory ---

// MemorySave writes the given data at the given offset, charging for the
// required expansion of the memory.
func (p *Program) MemorySave(offset uint64, data []byte) error {
	return p.memory.set(offset, data, p)
}

// MemoryLoad reads the word at the given offset, charging for the required
// expansion of the memory.
func (p *Program) MemoryLoad(offset uint64) (ember.Word, error) {
	var value uint256.Int
	if err := p.memory.readWord(offset, &value, p); err != nil {
		return ember.Word{}, err
	}
	return ember.Word(value.Bytes32()), nil
}

// MemoryChunk returns a copy of the given range of the memory, charging for
// the required expansion of the memory.
func (p *Program) MemoryChunk(offset, size uint64) ([]byte, error) {
	data, err := p.memory.getSlice(offset, size, p)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, data...), nil
}

func (p *Program) MemorySize() uint64 {
	return p.memory.length()
}

// --- Control flow ---

// VerifyJumpDest checks that the given position is a JUMPDEST instruction of
// the code of this program and returns the position.
func (p *Program) VerifyJumpDest(dest ember.Word) (uint64, error) {
	return p.verifyJumpDest(dest.ToUint256())
}

func (p *Program) verifyJumpDest(dest *uint256.Int) (uint64, error) {
	if !dest.IsUint64() {
		return 0, ErrBadJumpDestination
	}
	if p.jumpDests == nil {
		p.jumpDests = p.interpreter.analyzer.analyze(p.code, p.codeHash)
	}
	pos := dest.Uint64()
	if !p.jumpDests.contains(pos) {
		return 0, ErrBadJumpDestination
	}
	return pos, nil
}

// --- Environment ---

// GetBlockHash returns the hash of the block with the given number. Only the
// 256 most recent blocks are accessible, for any other block zero is
// returned.
func (p *Program) GetBlockHash(number ember.Word) ember.Word {
	if !number.IsUint64() || p.invoke.Block.Number < 0 {
		return ember.Word{}
	}
	n := number.Uint64()
	current := uint64(p.invoke.Block.Number)
	lower := max(256, current) - 256
	if n >= current || n < lower {
		return ember.Word{}
	}
	return ember.Word(p.invoke.BlockStore.GetBlockHashByNumber(n))
}

// --- Storage ---

func (p *Program) StorageSave(key ember.Key, value ember.Word) {
	p.repo.PutStorageRow(p.invoke.Owner, key, value)
}

func (p *Program) StorageLoad(key ember.Key) ember.Word {
	return p.repo.GetStorageRow(p.invoke.Owner, key)
}

// OriginalStorageLoad returns the value of the given slot at the beginning of
// the transaction.
func (p *Program) OriginalStorageLoad(key ember.Key) ember.Word {
	if p.invoke.OriginalRepository == nil {
		return p.StorageLoad(key)
	}
	return p.invoke.OriginalRepository.GetStorageRow(p.invoke.Owner, key)
}

// --- Return data ---

// ReturnDataBuffer is the output of the most recent nested call of this
// frame.
func (p *Program) ReturnDataBuffer() []byte {
	return p.returnDataBuffer
}

func (p *Program) resetReturnDataBuffer() {
	p.returnDataBuffer = nil
}

func (p *Program) setReturnDataBuffer(data []byte) {
	p.returnDataBuffer = data
}
