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
	"fmt"
	"io"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/log"
)

// status is enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning        status = iota // < all fine, ops are processed
	statusStopped                      // < execution stopped with a STOP
	statusReverted                     // < execution stopped with a REVERT
	statusReturned                     // < execution stopped with a RETURN
	statusSelfDestructed               // < execution stopped with a SELF-DESTRUCT
	statusFailed                       // < execution stopped with a logic error
)

func (s status) String() string {
	switch s {
	case statusRunning:
		return "running"
	case statusStopped:
		return "stopped"
	case statusReverted:
		return "reverted"
	case statusReturned:
		return "returned"
	case statusSelfDestructed:
		return "self-destructed"
	case statusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Config summarizes the configuration options of an Interpreter. The zero
// value is a valid configuration.
type Config struct {
	// JumpDestCacheSize is the number of code analyses retained, see
	// JumpDestAnalyzerConfig.
	JumpDestCacheSize int
	// Trace, if set, receives a line for every executed instruction.
	Trace io.Writer
	// WithStatistics enables the collection of instruction statistics, see
	// DumpProfile. It takes precedence over Trace.
	WithStatistics bool
}

// Interpreter runs programs under a fixed chain specification. Nested frames
// are run by the interpreter of their parent. An Interpreter may be shared
// by concurrently executed transactions.
type Interpreter struct {
	spec      chainspec.Spec
	staticGas *staticGasTable
	analyzer  *JumpDestAnalyzer
	runner    runner
}

func NewInterpreter(spec chainspec.Spec, config Config) (*Interpreter, error) {
	analyzer, err := NewJumpDestAnalyzer(JumpDestAnalyzerConfig{
		CacheSize: config.JumpDestCacheSize,
	})
	if err != nil {
		return nil, err
	}

	var runner runner = vanillaRunner{}
	if config.WithStatistics {
		runner = &statisticRunner{}
	} else if config.Trace != nil {
		runner = newLogger(config.Trace)
	}

	return &Interpreter{
		spec:      spec,
		staticGas: newStaticGasTable(&spec.Fees),
		analyzer:  analyzer,
		runner:    runner,
	}, nil
}

// Spec returns the chain specification the interpreter runs programs under.
func (i *Interpreter) Spec() chainspec.Spec {
	return i.spec
}

// DumpProfile writes the collected instruction statistics to the given
// writer. Nothing is written if statistics are disabled.
func (i *Interpreter) DumpProfile(w io.Writer) error {
	if stats, ok := i.runner.(*statisticRunner); ok {
		_, err := io.WriteString(w, stats.getSummary())
		return err
	}
	return nil
}

// ResetProfile clears the collected instruction statistics.
func (i *Interpreter) ResetProfile() {
	if stats, ok := i.runner.(*statisticRunner); ok {
		stats.reset()
	}
}

// Play runs the given program until it halts. The outcome is recorded in the
// program's result. The stack of the program is released afterwards.
func (i *Interpreter) Play(p *Program) {
	defer p.releaseStack()

	// Don't bother with the execution if there's no code.
	if len(p.code) == 0 {
		return
	}

	status, err := i.runner.run(p)
	if err != nil {
		log.Error("Interpreter run failed", "owner", p.invoke.Owner, "depth", p.invoke.Depth, "err", err)
		p.fail(err)
		return
	}
	if status == statusRunning {
		p.fail(fmt.Errorf("unexpected interpreter status: %v", status))
	}
}

func (p *Program) releaseStack() {
	if p.stack != nil {
		ReturnStack(p.stack)
		p.stack = nil
	}
}

// --- Runners ---

type runner interface {
	// run executes the code of the given program.
	// It returns the status of the execution:
	// - Any logical error in the contract execution shall return statusFailed.
	// - error is reserved to return runtime errors, which are not valid states
	// and may not be recoverable.
	run(*Program) (status, error)
}

// vanillaRunner is the default runner that executes the contract code without
// any additional features.
type vanillaRunner struct{}

func (r vanillaRunner) run(p *Program) (status, error) {
	return execute(p, false), nil
}

// --- Execution ---

// step executes the single instruction pointed to by the program counter.
func step(p *Program) status {
	return execute(p, true)
}

// execute runs the code of the given program. If oneStepOnly is true, only the
// instruction pointed to by the program counter is executed. If the execution
// yields any violation (i.e. out of gas, stack underflow, etc), the failure is
// recorded in the program result and statusFailed is returned.
func execute(p *Program, oneStepOnly bool) status {
	status, err := steps(p, oneStepOnly)
	if err != nil {
		p.fail(err)
		return statusFailed
	}
	return status
}

// steps executes the code of the given program. If oneStepOnly is true, only
// the instruction pointed to by the program counter is executed. steps
// returns the status of the execution and an error if the execution yields
// any violation (i.e. out of gas, stack underflow, etc).
func steps(p *Program, oneStepOnly bool) (status, error) {
	staticGasPrices := p.interpreter.staticGas

	status := statusRunning
	for status == statusRunning {
		if p.pc >= uint64(len(p.code)) {
			return statusStopped, nil
		}

		op := OpCode(p.code[p.pc])
		if !isEnabled(op, p.spec) {
			return status, ErrInvalidOpCode
		}

		// Check stack boundary for every instruction
		if err := checkStackLimits(p.stack.len(), op); err != nil {
			return status, err
		}

		// Consume static gas price for instruction before execution
		if err := p.SpendGas(staticGasPrices[op]); err != nil {
			return status, err
		}

		var err error

		// Execute instruction
		switch op {
		case POP:
			opPop(p)
		case JUMP:
			err = opJump(p)
		case JUMPI:
			err = opJumpi(p)
		case JUMPDEST:
			// nothing
		case AND:
			opAnd(p)
		case OR:
			opOr(p)
		case XOR:
			opXor(p)
		case NOT:
			opNot(p)
		case GT:
			opGt(p)
		case LT:
			opLt(p)
		case SGT:
			opSgt(p)
		case SLT:
			opSlt(p)
		case EQ:
			opEq(p)
		case ISZERO:
			opIszero(p)
		case ADD:
			opAdd(p)
		case SUB:
			opSub(p)
		case MUL:
			opMul(p)
		case DIV:
			opDiv(p)
		case SDIV:
			opSDiv(p)
		case MOD:
			opMod(p)
		case SMOD:
			opSMod(p)
		case ADDMOD:
			opAddMod(p)
		case MULMOD:
			opMulMod(p)
		case EXP:
			err = opExp(p)
		case SIGNEXTEND:
			opSignExtend(p)
		case BYTE:
			opByte(p)
		case SHL:
			opShl(p)
		case SHR:
			opShr(p)
		case SAR:
			opSar(p)
		case SHA3:
			err = opSha3(p)
		case PC:
			opPc(p)
		case GAS:
			opGas(p)
		case CALLER:
			opCaller(p)
		case CALLVALUE:
			opCallvalue(p)
		case CALLDATALOAD:
			opCallDataload(p)
		case CALLDATASIZE:
			opCallDatasize(p)
		case CALLDATACOPY:
			err = genericDataCopy(p, p.invoke.Data)
		case CODESIZE:
			opCodeSize(p)
		case CODECOPY:
			err = genericDataCopy(p, p.code)
		case MLOAD:
			err = opMload(p)
		case MSTORE:
			err = opMstore(p)
		case MSTORE8:
			err = opMstore8(p)
		case MSIZE:
			opMsize(p)
		case SLOAD:
			opSload(p)
		case SSTORE:
			err = opSstore(p)
		case ADDRESS:
			opAddress(p)
		case ORIGIN:
			opOrigin(p)
		case BALANCE:
			opBalance(p)
		case GASPRICE:
			opGasPrice(p)
		case EXTCODESIZE:
			opExtcodesize(p)
		case EXTCODECOPY:
			err = opExtCodeCopy(p)
		case EXTCODEHASH:
			opExtcodehash(p)
		case RETURNDATASIZE:
			opReturnDataSize(p)
		case RETURNDATACOPY:
			err = opReturnDataCopy(p)
		case BLOCKHASH:
			opBlockhash(p)
		case COINBASE:
			opCoinbase(p)
		case TIMESTAMP:
			opTimestamp(p)
		case NUMBER:
			opNumber(p)
		case DIFFICULTY:
			opDifficulty(p)
		case GASLIMIT:
			opGasLimit(p)
		case LOG0, LOG1, LOG2, LOG3, LOG4:
			err = opLog(p, int(op-LOG0))
		case CREATE:
			err = genericCreate(p, ember.Create)
		case CREATE2:
			err = genericCreate(p, ember.Create2)
		case CALL, CALLCODE, DELEGATECALL, STATICCALL:
			err = genericCall(p, callKind(op))
		case RETURN:
			err = opEndWithResult(p)
			status = statusReturned
		case REVERT:
			err = opRevert(p)
			status = statusReverted
		case STOP:
			status = opStop()
		case SELFDESTRUCT:
			status, err = opSelfdestruct(p)
		default:
			switch {
			case op.IsPush():
				opPush(p, int(op-PUSH1)+1)
			case DUP1 <= op && op <= DUP16:
				opDup(p, int(op-DUP1)+1)
			case SWAP1 <= op && op <= SWAP16:
				opSwap(p, int(op-SWAP1)+1)
			default:
				err = ErrInvalidOpCode
			}
		}

		if err != nil {
			return status, err
		}

		p.pc++

		if oneStepOnly {
			return status, nil
		}
	}
	return status, nil
}
