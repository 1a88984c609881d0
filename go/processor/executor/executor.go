// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package executor

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
)

// Validation failures. A transaction failing validation is not executed and
// produces no receipt.
const (
	ErrBlockGasLimitExceeded = ember.ConstError("block gas limit exceeded")
	ErrIntrinsicGas          = ember.ConstError("intrinsic gas too low")
	ErrNonceMismatch         = ember.ConstError("nonce mismatch")
	ErrInsufficientFunds     = ember.ConstError("insufficient funds for gas * price + value")
	ErrAlreadyExecuted       = ember.ConstError("transaction already executed")
)

// Config summarizes the options of a TransactionExecutor. The zero value
// executes a regular transaction under the default specification.
type Config struct {
	// Interpreter runs the code of the transaction. If nil, an interpreter for
	// chainspec.Default() is created. Sharing an interpreter among executors
	// shares its code analysis cache and statistics.
	Interpreter *vm.Interpreter
	// GasUsedInBlock is the gas consumed by the transactions preceding this
	// one in the current block.
	GasUsedInBlock ember.Gas
	// LocalCall evaluates the transaction without validating it and without
	// charging the sender for gas, as needed for read-only queries.
	LocalCall bool
}

type stage int

const (
	stageInit stage = iota
	stagePrepared
	stageExecuted
	stageFinalized
)

// TransactionExecutor runs a single transaction on a world state. It
// validates the transaction, buys its gas, runs the outer frame within a
// track of the world state, and finally applies refunds and deletions.
// Executors are not reusable.
type TransactionExecutor struct {
	tx         ember.Transaction
	block      ember.BlockParameters
	repo       ember.Repository
	track      ember.Repository
	blockStore ember.BlockStore

	interpreter *vm.Interpreter
	spec        chainspec.Spec
	config      Config

	basicTxCost ember.Gas
	stage       stage

	program         *vm.Program
	result          *vm.ProgramResult
	contractAddress *ember.Address
}

func NewTransactionExecutor(
	tx ember.Transaction,
	block ember.BlockParameters,
	repo ember.Repository,
	blockStore ember.BlockStore,
	config Config,
) (*TransactionExecutor, error) {
	interpreter := config.Interpreter
	if interpreter == nil {
		var err error
		interpreter, err = vm.NewInterpreter(chainspec.Default(), vm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create interpreter: %w", err)
		}
	}
	spec := interpreter.Spec()
	return &TransactionExecutor{
		tx:          tx,
		block:       block,
		repo:        repo,
		blockStore:  blockStore,
		interpreter: interpreter,
		spec:        spec,
		config:      config,
		basicTxCost: spec.TransactionCost(&tx),
		result:      vm.NewEmptyResult(tx.GasLimit),
	}, nil
}

// Run executes the transaction. If the transaction fails validation, the
// world state is not modified and an error is returned. Otherwise a receipt
// is returned, also if the execution of the transaction failed.
func (e *TransactionExecutor) Run() (*Receipt, error) {
	if e.stage != stageInit {
		return nil, ErrAlreadyExecuted
	}
	if err := e.validate(); err != nil {
		e.stage = stageFinalized
		return nil, err
	}
	e.prepare()
	e.execute()
	return e.finalize(), nil
}

// validate checks the transaction against the block and the sender account.
func (e *TransactionExecutor) validate() error {
	tx := &e.tx
	balance := e.repo.GetBalance(tx.Sender)
	if e.config.LocalCall {
		if balance.Cmp(tx.Value) < 0 {
			log.Warn("Not enough balance for local call", "required", tx.Value, "actual", balance)
			return fmt.Errorf("%w: required %v, actual %v", ErrInsufficientFunds, tx.Value, balance)
		}
		return nil
	}

	if tx.GasLimit > e.block.GasLimit-e.config.GasUsedInBlock {
		log.Warn("Too much gas used in this block", "gas", tx.GasLimit, "used", e.config.GasUsedInBlock, "limit", e.block.GasLimit)
		return fmt.Errorf("%w: gas %d, used %d, limit %d", ErrBlockGasLimitExceeded, tx.GasLimit, e.config.GasUsedInBlock, e.block.GasLimit)
	}

	if tx.GasLimit < e.basicTxCost {
		log.Warn("Not enough gas to cover basic transaction cost", "required", e.basicTxCost, "actual", tx.GasLimit)
		return fmt.Errorf("%w: required %d, actual %d", ErrIntrinsicGas, e.basicTxCost, tx.GasLimit)
	}

	if nonce := e.repo.GetNonce(tx.Sender); nonce != tx.Nonce {
		log.Warn("Invalid nonce", "required", nonce, "actual", tx.Nonce)
		return fmt.Errorf("%w: required %d, actual %d", ErrNonceMismatch, nonce, tx.Nonce)
	}

	gasCost, overflow := tx.GasPrice.ScaleWithOverflow(uint64(tx.GasLimit))
	total, overflow2 := new(uint256.Int).AddOverflow(gasCost.ToUint256(), tx.Value.ToUint256())
	if overflow || overflow2 || balance.ToUint256().Cmp(total) < 0 {
		log.Warn("Not enough balance", "required", total, "actual", balance)
		return fmt.Errorf("%w: required %v, actual %v", ErrInsufficientFunds, total, balance)
	}
	return nil
}

// prepare buys the gas of the transaction and sets up the outer frame.
func (e *TransactionExecutor) prepare() {
	e.stage = stagePrepared
	if !e.config.LocalCall {
		e.repo.IncreaseNonce(e.tx.Sender)
		e.repo.SubBalance(e.tx.Sender, e.tx.GasPrice.Scale(uint64(e.tx.GasLimit)))
	}

	e.track = e.repo.StartTracking()
	if e.tx.IsCreate() {
		e.create()
	} else {
		e.call()
	}
}

func (e *TransactionExecutor) call() {
	target := *e.tx.Recipient
	transfer(e.track, e.tx.Sender, target, e.tx.Value)

	if contract, found := e.spec.Precompiles.Get(target); found {
		e.runPrecompiled(target, contract)
		return
	}

	code := e.track.GetCode(target)
	if len(code) == 0 {
		e.spendBasicCost()
		return
	}
	codeHash := e.track.GetCodeHash(target)
	e.program = e.interpreter.NewProgram(code, &codeHash, e.invoke(target, e.tx.Input))
}

func (e *TransactionExecutor) runPrecompiled(address ember.Address, contract chainspec.PrecompiledContract) {
	required := contract.RequiredGas(e.tx.Input)
	available := e.tx.GasLimit - e.basicTxCost
	if required < 0 || available < required {
		log.Warn("Out of gas calling precompiled contract", "address", address, "required", required, "available", available)
		e.result = vm.NewExceptionResult(e.tx.GasLimit, vm.ErrOutOfGas)
		return
	}
	e.result.SpendGas(e.basicTxCost + required)

	output, ok := contract.Execute(e.tx.Input, chainspec.PrecompiledContext{
		Track:  e.track,
		Caller: e.tx.Sender,
		Value:  e.tx.Value,
	})
	if !ok {
		log.Warn("Error executing precompiled contract", "address", address)
		e.result.SetException(vm.ErrPrecompiledFailure)
		e.result.DrainGas()
		return
	}
	e.result.SetReturnData(output)
}

func (e *TransactionExecutor) create() {
	address := ember.CreateAddress(e.tx.Sender, e.tx.Nonce)
	if e.track.Exists(address) {
		log.Warn("Contract already exists", "address", address)
		e.result = vm.NewExceptionResult(e.tx.GasLimit, vm.ErrAccountAlreadyExists)
		return
	}
	e.contractAddress = &address

	e.track.IncreaseNonce(address)
	transfer(e.track, e.tx.Sender, address, e.tx.Value)

	if len(e.tx.Input) == 0 {
		e.spendBasicCost()
		return
	}
	e.program = e.interpreter.NewProgram(e.tx.Input, nil, e.invoke(address, nil))
}

// spendBasicCost charges the intrinsic gas of a transaction not running any
// code. Only local calls may lack the gas for it.
func (e *TransactionExecutor) spendBasicCost() {
	if e.result.GasLeft() < e.basicTxCost {
		e.result = vm.NewExceptionResult(e.tx.GasLimit, vm.ErrOutOfGas)
		return
	}
	e.result.SpendGas(e.basicTxCost)
}

func (e *TransactionExecutor) invoke(owner ember.Address, data []byte) vm.ProgramInvoke {
	return vm.ProgramInvoke{
		Owner:              owner,
		Origin:             e.tx.Sender,
		Caller:             e.tx.Sender,
		Gas:                e.tx.GasLimit,
		GasPrice:           e.tx.GasPrice,
		Value:              e.tx.Value,
		Data:               data,
		Block:              e.block,
		Repository:         e.track,
		OriginalRepository: e.repo,
		BlockStore:         e.blockStore,
	}
}

// execute runs the outer frame, if any, and commits or discards the track of
// the transaction depending on its outcome.
func (e *TransactionExecutor) execute() {
	e.stage = stageExecuted
	defer func() {
		if r := recover(); r != nil {
			log.Error("Unexpected failure executing transaction", "sender", e.tx.Sender, "err", r)
			e.result = vm.NewExceptionResult(e.tx.GasLimit, fmt.Errorf("unexpected failure: %v", r))
			e.track.Rollback()
		}
	}()

	if e.program != nil {
		e.runProgram()
	}

	if e.result.Succeeded() {
		e.track.Commit()
		return
	}

	e.result.DiscardEffects()
	e.result.RejectInternalTransactions()
	e.track.Rollback()
	if e.result.IsRevert() {
		// The return data of the reverted frame is kept, its gas is not.
		e.result.DrainGas()
		log.Debug("Transaction reverted", "sender", e.tx.Sender)
	} else {
		log.Warn("Transaction failed", "sender", e.tx.Sender, "err", e.result.Exception())
	}
}

func (e *TransactionExecutor) runProgram() {
	if err := e.program.SpendGas(e.basicTxCost); err != nil {
		e.result = vm.NewExceptionResult(e.tx.GasLimit, err)
		return
	}

	e.interpreter.Play(e.program)
	e.result = e.program.Result()

	if e.contractAddress != nil && e.result.Succeeded() {
		e.program.DepositCode(*e.contractAddress)
	}
}

// finalize applies the gas refund, deletes self-destructed accounts and
// pays back the unused gas to the sender.
func (e *TransactionExecutor) finalize() *Receipt {
	e.stage = stageFinalized
	result := e.result

	deleted := slices.Clone(result.DeletedAccounts())
	slices.SortFunc(deleted, func(a, b ember.Address) int {
		return bytes.Compare(a[:], b[:])
	})

	refund := result.FutureRefund() + ember.Gas(len(deleted))*e.spec.Fees.SuicideRefund
	refund = max(0, min(refund, result.GasUsed()/2))
	result.RefundGas(refund)
	log.Debug("Gas refund", "refund", refund, "gasUsed", result.GasUsed())

	for _, address := range deleted {
		e.repo.Delete(address)
	}

	if !e.config.LocalCall {
		e.repo.AddBalance(e.tx.Sender, e.tx.GasPrice.Scale(uint64(result.GasLeft())))
	}

	receipt := &Receipt{
		Transaction:          e.tx,
		Success:              result.Succeeded(),
		GasUsed:              result.GasUsed(),
		ReturnData:           result.ReturnData(),
		Logs:                 result.Logs(),
		DeletedAccounts:      deleted,
		InternalTransactions: result.InternalTransactions(),
	}
	if receipt.Success {
		receipt.ContractAddress = e.contractAddress
	}
	return receipt
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
