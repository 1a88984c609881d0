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
	"github.com/ethereum/go-ethereum/log"
)

// MessageCall summarizes the parameters of a CALL, CALLCODE, DELEGATECALL or
// STATICCALL instruction. Gas is the amount of gas handed to the callee,
// including the stipend; it has been charged to the caller before.
type MessageCall struct {
	Kind        ember.CallKind
	Gas         ember.Gas
	CodeAddress ember.Address
	Value       ember.Value
	InOffset    uint64
	InSize      uint64
	OutOffset   uint64
	OutSize     uint64
}

// CreateContract runs a CREATE of a contract with the init code found in the
// given memory range. The address of the new contract, or zero on failure,
// is pushed on the stack.
func (p *Program) CreateContract(value ember.Value, offset, size uint64) (*ProgramResult, error) {
	p.resetReturnDataBuffer()

	sender := p.invoke.Owner
	if err := p.verifyCall(sender, value); err != nil {
		p.stackPushZero()
		return NewExceptionResult(p.GasLeft(), err), nil
	}

	code, err := p.MemoryChunk(offset, size)
	if err != nil {
		return nil, err
	}
	address := ember.CreateAddress(sender, p.repo.GetNonce(sender))
	return p.createContract(ember.Create, value, code, address), nil
}

// CreateContract2 runs a CREATE2 of a contract with the init code found in the
// given memory range, deriving the address from the given salt.
func (p *Program) CreateContract2(value ember.Value, offset, size uint64, salt ember.Hash) (*ProgramResult, error) {
	p.resetReturnDataBuffer()

	sender := p.invoke.Owner
	if err := p.verifyCall(sender, value); err != nil {
		p.stackPushZero()
		return NewExceptionResult(p.GasLeft(), err), nil
	}

	code, err := p.MemoryChunk(offset, size)
	if err != nil {
		return nil, err
	}
	address := ember.CreateAddress2(sender, salt, code)
	return p.createContract(ember.Create2, value, code, address), nil
}

func (p *Program) createContract(kind ember.CallKind, value ember.Value, code []byte, address ember.Address) *ProgramResult {
	sender := p.invoke.Owner
	collision := p.repo.Exists(address)

	gas := p.spec.CreateGas(p.GasLeft())
	p.result.SpendGas(gas)

	// The nonce of the creator is increased outside of the track, failing
	// creations do not undo it.
	p.repo.IncreaseNonce(sender)

	track := p.repo.StartTracking()
	track.IncreaseNonce(address)
	transfer(track, sender, address, value)

	tx := p.addInternalTx(opCodeOf(kind), sender, nil, p.repo.GetNonce(sender), value, code, gas)

	var result *ProgramResult
	switch {
	case collision:
		result = NewExceptionResult(gas, ErrAccountAlreadyExists)
	case len(code) > 0:
		invoke := p.invoke.child(address, sender, gas, value, nil, track, false)
		child := p.interpreter.NewProgram(code, nil, invoke)
		p.interpreter.Play(child)
		result = child.Result()
	default:
		result = NewEmptyResult(gas)
	}

	if result.Succeeded() {
		p.depositCode(track, address, result)
	}

	if result.Succeeded() {
		track.Commit()
		p.stack.pushUndefined().SetBytes20(address[:])
	} else {
		log.Debug("Contract creation halted", "address", address, "exception", result.Exception(), "revert", result.IsRevert())
		tx.Reject()
		result.RejectInternalTransactions()
		track.Rollback()
		p.stackPushZero()
	}

	if result.IsRevert() {
		p.setReturnDataBuffer(result.ReturnData())
	}

	if result.Exception() == nil {
		p.RefundGas(result.GasLeft())
	}
	p.result.Merge(result)
	return result
}

// DepositCode stores the code returned by the init code run by this program
// as the code of the given account. It is used for contract creations
// issued by transactions; the outcome is recorded in the program's result.
func (p *Program) DepositCode(address ember.Address) {
	p.depositCode(p.repo, address, p.result)
}

// depositCode stores the code returned by a successful init code run,
// charging CreateData gas per byte to the given result.
func (p *Program) depositCode(track ember.Repository, address ember.Address, result *ProgramResult) {
	code := result.ReturnData()
	cost := ember.Gas(len(code)) * p.spec.Fees.CreateData
	switch {
	case p.spec.IsCodeSizeExceeded(len(code)):
		result.SetException(ErrMaxCodeSizeExceeded)
		result.DrainGas()
	case result.GasLeft() < cost:
		result.SetReturnData(nil)
		if p.spec.CreateEmptyContractOnOOG {
			track.SaveCode(address, nil)
		} else {
			result.SetException(ErrCodeStoreOutOfGas)
			result.DrainGas()
		}
	default:
		result.SpendGas(cost)
		track.SaveCode(address, code)
	}
}

// CallContract runs the given message call. A 1 is pushed on the stack if
// the call succeeded, a 0 otherwise.
func (p *Program) CallContract(msg MessageCall) (*ProgramResult, error) {
	p.resetReturnDataBuffer()

	sender := p.invoke.Owner
	if err := p.verifyCall(sender, msg.Value); err != nil {
		p.stackPushZero()
		p.RefundGas(msg.Gas)
		return NewEmptyResult(msg.Gas), nil
	}

	data, err := p.MemoryChunk(msg.InOffset, msg.InSize)
	if err != nil {
		return nil, err
	}

	contract, isPrecompiled := p.spec.Precompiles.Get(msg.CodeAddress)
	result := p.callContract(msg, data, contract, isPrecompiled)
	p.setReturnDataBuffer(result.ReturnData())
	return result, nil
}

func (p *Program) callContract(msg MessageCall, data []byte, contract chainspec.PrecompiledContract, isPrecompiled bool) *ProgramResult {
	sender := p.invoke.Owner
	context := msg.CodeAddress
	if msg.Kind == ember.CallCode || msg.Kind == ember.DelegateCall {
		context = sender
	}

	track := p.repo.StartTracking()
	transfer(track, sender, context, msg.Value)

	to := context
	tx := p.addInternalTx(opCodeOf(msg.Kind), sender, &to, p.repo.GetNonce(sender), msg.Value, data, msg.Gas)

	var result *ProgramResult
	if isPrecompiled {
		result = p.runPrecompiled(contract, msg, data, track)
	} else if code := p.repo.GetCode(msg.CodeAddress); len(code) > 0 {
		caller, value := sender, msg.Value
		if msg.Kind == ember.DelegateCall {
			caller, value = p.invoke.Caller, p.invoke.Value
		}
		static := msg.Kind == ember.StaticCall || p.invoke.Static
		codeHash := p.repo.GetCodeHash(msg.CodeAddress)
		invoke := p.invoke.child(context, caller, msg.Gas, value, data, track, static)
		child := p.interpreter.NewProgram(code, &codeHash, invoke)
		p.interpreter.Play(child)
		result = child.Result()
	} else {
		result = NewEmptyResult(msg.Gas)
	}

	if result.Succeeded() {
		track.Commit()
		p.stackPushOne()
	} else {
		log.Debug("Contract call halted", "address", context, "exception", result.Exception(), "revert", result.IsRevert())
		tx.Reject()
		result.RejectInternalTransactions()
		track.Rollback()
		p.stackPushZero()
	}

	// The output window has been expanded by the caller.
	if data := result.ReturnData(); len(data) > 0 {
		p.memory.setLimited(msg.OutOffset, msg.OutSize, data)
	}

	if result.Exception() == nil {
		p.RefundGas(result.GasLeft())
	}
	p.result.Merge(result)
	return result
}

func (p *Program) runPrecompiled(contract chainspec.PrecompiledContract, msg MessageCall, data []byte, track ember.Repository) *ProgramResult {
	required := contract.RequiredGas(data)
	if required < 0 || required > msg.Gas {
		return NewExceptionResult(msg.Gas, ErrOutOfGas)
	}
	result := NewEmptyResult(msg.Gas)
	result.SpendGas(required)
	output, ok := contract.Execute(data, chainspec.PrecompiledContext{
		Track:  track,
		Caller: p.invoke.Owner,
		Value:  msg.Value,
	})
	if !ok {
		result.SetException(ErrPrecompiledFailure)
		return result
	}
	result.SetReturnData(output)
	return result
}

// Suicide transfers the whole balance of the executing account to the given
// beneficiary and marks the account for deletion at the end of the
// transaction.
func (p *Program) Suicide(beneficiary ember.Address) {
	owner := p.invoke.Owner
	balance := p.repo.GetBalance(owner)

	p.addInternalTx(SELFDESTRUCT, owner, &beneficiary, p.repo.GetNonce(owner), balance, nil, 0)

	if owner == beneficiary {
		p.repo.SubBalance(owner, balance)
	} else {
		transfer(p.repo, owner, beneficiary, balance)
	}
	p.result.AddDeletedAccount(owner)
}

// verifyCall checks the preconditions of a nested call or creation.
func (p *Program) verifyCall(sender ember.Address, endowment ember.Value) error {
	if p.invoke.Depth >= MaxCallDepth {
		return ErrCallTooDeep
	}
	if p.repo.GetBalance(sender).Cmp(endowment) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// transfer moves the given value between accounts. The balance of the sender
// must have been checked before.
func transfer(repo ember.Repository, from, to ember.Address, value ember.Value) {
	if value.IsZero() {
		return
	}
	repo.SubBalance(from, value)
	repo.AddBalance(to, value)
}

func (p *Program) addInternalTx(op OpCode, from ember.Address, to *ember.Address, nonce uint64, value ember.Value, data []byte, gas ember.Gas) *InternalTransaction {
	tx := &InternalTransaction{
		Depth:    p.invoke.Depth,
		Index:    len(p.result.InternalTransactions()),
		Type:     op,
		From:     from,
		To:       to,
		Nonce:    nonce,
		Value:    value,
		Data:     data,
		Gas:      gas,
		GasPrice: p.invoke.GasPrice,
	}
	p.result.AddInternalTransaction(tx)
	log.Debug("Internal transaction", "tx", tx)
	return tx
}
