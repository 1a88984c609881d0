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
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

const maxStackSize = int(params.StackLimit) // Maximum size of VM stack allowed.

// Stack is the 1024-element 256-bit word-wide stack of a call frame. It is a
// fixed-size stack to prevent memory reallocation during execution. Bounds
// are not checked by the stack itself; the interpreter checks the limits of
// each instruction before executing it.
//
// Each stack consumes 1024 * 32 bytes = 32KB of memory. To mitigate the cost
// of creating stacks for nested calls, stacks are obtained from a pool using
// NewStack() and handed back using ReturnStack(s).
//
// The stack is not thread-safe. NewStack() and ReturnStack() are thread-safe.
type Stack struct {
	data         [maxStackSize]uint256.Int
	stackPointer int
}

// push adds a copy of the given value to the top of the stack.
func (s *Stack) push(d *uint256.Int) {
	s.data[s.stackPointer] = *d
	s.stackPointer++
}

// pushUndefined adds an element with an undefined value to the top of the
// stack and returns a pointer to it, to be set in place by the caller.
func (s *Stack) pushUndefined() *uint256.Int {
	s.stackPointer++
	return &s.data[s.stackPointer-1]
}

// pop removes the top element from the stack and returns a pointer to it. The
// pointer is only valid until the next push operation.
func (s *Stack) pop() *uint256.Int {
	s.stackPointer--
	return &s.data[s.stackPointer]
}

// peek returns a pointer to the top element of the stack without removing it.
func (s *Stack) peek() *uint256.Int {
	return &s.data[s.len()-1]
}

// peekN returns a pointer to the n-th element from the top of the stack. The
// top element is at index 0.
func (s *Stack) peekN(n int) *uint256.Int {
	return &s.data[s.len()-n-1]
}

func (s *Stack) len() int {
	return s.stackPointer
}

// Len returns the number of elements on the stack.
func (s *Stack) Len() int {
	return s.stackPointer
}

// swap exchanges the top element with the n-th element from the top.
func (s *Stack) swap(n int) {
	s.data[s.len()-n-1], s.data[s.len()-1] = s.data[s.len()-1], s.data[s.len()-n-1]
}

// dup duplicates the n-th element from the top and pushes it to the top of the
// stack. dup(0) duplicates the top element.
func (s *Stack) dup(n int) {
	s.data[s.stackPointer] = s.data[s.stackPointer-n-1]
	s.stackPointer++
}

func (s *Stack) String() string {
	b := strings.Builder{}
	for i := 0; i < s.len(); i++ {
		b.WriteString(fmt.Sprintf("    [%4d] 0x%064x\n", s.len()-i-1, s.peekN(i).Bytes32()))
	}
	return b.String()
}

// ------------------ Stack Pool ------------------

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{}
	},
}

// NewStack returns an empty stack from the reuse pool.
func NewStack() *Stack {
	return stackPool.Get().(*Stack)
}

// ReturnStack returns the stack to the reuse pool. Any stack may only be
// returned once. This is not checked internally.
func ReturnStack(s *Stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}

// ------------------ Stack Limits ------------------

// stackUsage defines the effect of an instruction on the stack. The accessed
// range of elements is [from, to) relative to the stack pointer; delta is the
// change of the stack size.
type stackUsage struct {
	from, to, delta int
}

// computeStackUsage computes the stack usage of the given opcode. Undefined
// opcodes do not access the stack.
func computeStackUsage(op OpCode) stackUsage {

	makeUsage := func(pops, pushes int) stackUsage {
		delta := pushes - pops
		to := 0
		if delta > 0 {
			to = delta
		}
		return stackUsage{from: -pops, to: to, delta: delta}
	}

	if PUSH1 <= op && op <= PUSH32 {
		return makeUsage(0, 1)
	}
	if DUP1 <= op && op <= DUP16 {
		return makeUsage(int(op-DUP1+1), int(op-DUP1+2))
	}
	if SWAP1 <= op && op <= SWAP16 {
		return makeUsage(int(op-SWAP1+2), int(op-SWAP1+2))
	}
	if LOG0 <= op && op <= LOG4 {
		return makeUsage(int(op-LOG0+2), 0)
	}

	switch op {
	case JUMPDEST, STOP:
		return makeUsage(0, 0)
	case MSIZE, ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE,
		CODESIZE, GASPRICE, COINBASE, TIMESTAMP, NUMBER,
		DIFFICULTY, GASLIMIT, PC, GAS, RETURNDATASIZE:
		return makeUsage(0, 1)
	case POP, JUMP, SELFDESTRUCT:
		return makeUsage(1, 0)
	case ISZERO, NOT, BALANCE, CALLDATALOAD, EXTCODESIZE,
		BLOCKHASH, MLOAD, SLOAD, EXTCODEHASH:
		return makeUsage(1, 1)
	case MSTORE, MSTORE8, SSTORE, JUMPI, RETURN, REVERT:
		return makeUsage(2, 0)
	case ADD, SUB, MUL, DIV, SDIV, MOD, SMOD, EXP, SIGNEXTEND,
		SHA3, LT, GT, SLT, SGT, EQ, AND, XOR, OR, BYTE,
		SHL, SHR, SAR:
		return makeUsage(2, 1)
	case CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		return makeUsage(3, 0)
	case ADDMOD, MULMOD, CREATE:
		return makeUsage(3, 1)
	case EXTCODECOPY:
		return makeUsage(4, 0)
	case CREATE2:
		return makeUsage(4, 1)
	case STATICCALL, DELEGATECALL:
		return makeUsage(6, 1)
	case CALL, CALLCODE:
		return makeUsage(7, 1)
	}
	return makeUsage(0, 0)
}

// stackLimits defines the stack sizes an instruction may be executed with.
type stackLimits struct {
	min int // The minimum stack size required by an OpCode.
	max int // The maximum stack size allowed before running an OpCode.
}

var precomputedStackLimits = func() (res [256]stackLimits) {
	for i := range res {
		usage := computeStackUsage(OpCode(i))
		res[i] = stackLimits{
			min: -usage.from,
			max: maxStackSize - usage.to,
		}
	}
	return
}()

// checkStackLimits checks that the op will not underflow or overflow the stack
// of the current size. The check is conducted before the stack is modified.
func checkStackLimits(stackLen int, op OpCode) error {
	limits := &precomputedStackLimits[op]
	if stackLen < limits.min {
		return ErrStackUnderflow
	}
	if stackLen > limits.max {
		return ErrStackOverflow
	}
	return nil
}
