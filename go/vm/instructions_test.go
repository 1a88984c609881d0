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
	"bytes"
	"errors"
	"testing"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/holiman/uint256"
)

// runAndGetTop runs the given code followed by returnTopOfStack and returns
// the resulting top of the stack.
func runAndGetTop(t *testing.T, fork ember.Fork, code []byte, invoke ProgramInvoke) ember.Word {
	t.Helper()
	interpreter := newTestInterpreter(t, fork)
	p := interpreter.NewProgram(append(bytes.Clone(code), returnTopOfStack...), nil, invoke)
	interpreter.Play(p)
	if err := p.Result().Exception(); err != nil {
		t.Fatalf("unexpected exception: %v", err)
	}
	return ember.WordFromBytes(p.Result().ReturnData())
}

func allOnes() ember.Word {
	var res ember.Word
	for i := range res {
		res[i] = 0xff
	}
	return res
}

func TestInstructions_ArithmeticAndLogic(t *testing.T) {
	push := func(v byte) []byte { return []byte{byte(PUSH1), v} }
	minusOne := []byte{byte(PUSH1), 0, byte(NOT)}
	concat := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

	tests := map[string]struct {
		code []byte
		want ember.Word
	}{
		"add":         {concat(push(2), push(3), []byte{byte(ADD)}), ember.WordFromUint64(5)},
		"add-wraps":   {concat(push(1), minusOne, []byte{byte(ADD)}), ember.Word{}},
		"sub":         {concat(push(3), push(5), []byte{byte(SUB)}), ember.WordFromUint64(2)},
		"mul":         {concat(push(2), push(3), []byte{byte(MUL)}), ember.WordFromUint64(6)},
		"div":         {concat(push(2), push(7), []byte{byte(DIV)}), ember.WordFromUint64(3)},
		"div-by-zero": {concat(push(0), push(7), []byte{byte(DIV)}), ember.Word{}},
		"sdiv":        {concat(push(1), minusOne, []byte{byte(SDIV)}), allOnes()},
		"mod":         {concat(push(3), push(7), []byte{byte(MOD)}), ember.WordFromUint64(1)},
		"smod":        {concat(push(2), minusOne, []byte{byte(SMOD)}), allOnes()},
		"addmod":      {concat(push(5), push(4), push(3), []byte{byte(ADDMOD)}), ember.WordFromUint64(2)},
		"mulmod":      {concat(push(5), push(4), push(3), []byte{byte(MULMOD)}), ember.WordFromUint64(2)},
		"exp":         {concat(push(3), push(2), []byte{byte(EXP)}), ember.WordFromUint64(8)},
		"signextend":  {concat(push(0xff), push(0), []byte{byte(SIGNEXTEND)}), allOnes()},
		"lt":          {concat(push(2), push(1), []byte{byte(LT)}), ember.WordFromUint64(1)},
		"gt":          {concat(push(2), push(1), []byte{byte(GT)}), ember.Word{}},
		"slt":         {concat(push(1), minusOne, []byte{byte(SLT)}), ember.WordFromUint64(1)},
		"sgt":         {concat(push(1), minusOne, []byte{byte(SGT)}), ember.Word{}},
		"eq":          {concat(push(2), push(2), []byte{byte(EQ)}), ember.WordFromUint64(1)},
		"iszero":      {concat(push(0), []byte{byte(ISZERO)}), ember.WordFromUint64(1)},
		"and":         {concat(push(0x0c), push(0x0a), []byte{byte(AND)}), ember.WordFromUint64(0x08)},
		"or":          {concat(push(0x0c), push(0x0a), []byte{byte(OR)}), ember.WordFromUint64(0x0e)},
		"xor":         {concat(push(0x0c), push(0x0a), []byte{byte(XOR)}), ember.WordFromUint64(0x06)},
		"not":         {concat(push(0), []byte{byte(NOT)}), allOnes()},
		"byte":        {concat(push(0xab), push(31), []byte{byte(BYTE)}), ember.WordFromUint64(0xab)},
		"byte-out":    {concat(push(0xab), push(32), []byte{byte(BYTE)}), ember.Word{}},
		"shl":         {concat(push(1), push(4), []byte{byte(SHL)}), ember.WordFromUint64(16)},
		"shl-large":   {concat(push(1), []byte{byte(PUSH2), 1, 0}, []byte{byte(SHL)}), ember.Word{}},
		"shr":         {concat(push(0x10), push(4), []byte{byte(SHR)}), ember.WordFromUint64(1)},
		"sar":         {concat(minusOne, push(4), []byte{byte(SAR)}), allOnes()},
		"sar-large":   {concat(minusOne, []byte{byte(PUSH2), 1, 0}, []byte{byte(SAR)}), allOnes()},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := runAndGetTop(t, ember.Constantinople, test.code, newTestInvoke(state.NewRepository(), 100_000))
			if test.want != got {
				t.Errorf("unexpected result, wanted %v, got %v", test.want, got)
			}
		})
	}
}

func TestInstructions_Environment(t *testing.T) {
	other := ember.Address{0x30}
	otherCode := ember.Code{byte(STOP), byte(STOP)}
	repo := state.NewRepositoryFrom(state.Accounts{
		testOwner:       {Balance: ember.NewValue(77)},
		other:           {Code: otherCode},
		ember.Address{4}: {},
	})
	invoke := newTestInvoke(repo, 1000)
	invoke.Value = ember.NewValue(12)
	invoke.Data = []byte{1, 2, 3}
	invoke.Caller = ember.Address{0x40}
	invoke.Block.Coinbase = ember.Address{0x50}
	invoke.Block.Timestamp = 1234
	invoke.Block.Difficulty = ember.WordFromUint64(99)

	addressOf := func(op OpCode, address ember.Address) []byte {
		return append(append([]byte{byte(PUSH20)}, address[:]...), byte(op))
	}

	tests := map[string]struct {
		code []byte
		want ember.Word
	}{
		"address":           {[]byte{byte(ADDRESS)}, ember.WordFromAddress(testOwner)},
		"origin":            {[]byte{byte(ORIGIN)}, ember.WordFromAddress(testOrigin)},
		"caller":            {[]byte{byte(CALLER)}, ember.WordFromAddress(ember.Address{0x40})},
		"callvalue":         {[]byte{byte(CALLVALUE)}, ember.WordFromUint64(12)},
		"calldatasize":      {[]byte{byte(CALLDATASIZE)}, ember.WordFromUint64(3)},
		"calldataload":      {[]byte{byte(PUSH1), 1, byte(CALLDATALOAD)}, ember.Word{2, 3}},
		"calldataload-far":  {[]byte{byte(PUSH1), 0xff, byte(CALLDATALOAD)}, ember.Word{}},
		"codesize":          {[]byte{byte(CODESIZE)}, ember.WordFromUint64(uint64(1 + len(returnTopOfStack)))},
		"gasprice":          {[]byte{byte(GASPRICE)}, ember.WordFromUint64(1)},
		"coinbase":          {[]byte{byte(COINBASE)}, ember.WordFromAddress(ember.Address{0x50})},
		"timestamp":         {[]byte{byte(TIMESTAMP)}, ember.WordFromUint64(1234)},
		"number":            {[]byte{byte(NUMBER)}, ember.WordFromUint64(100)},
		"difficulty":        {[]byte{byte(DIFFICULTY)}, ember.WordFromUint64(99)},
		"gaslimit":          {[]byte{byte(GASLIMIT)}, ember.WordFromUint64(1_000_000)},
		"gas":               {[]byte{byte(GAS)}, ember.WordFromUint64(998)},
		"pc":                {[]byte{byte(PUSH1), 0, byte(POP), byte(PC)}, ember.WordFromUint64(3)},
		"msize":             {[]byte{byte(PUSH1), 0, byte(MLOAD), byte(POP), byte(MSIZE)}, ember.WordFromUint64(32)},
		"balance":           {addressOf(BALANCE, testOwner), ember.WordFromUint64(77)},
		"extcodesize":       {addressOf(EXTCODESIZE, other), ember.WordFromUint64(2)},
		"extcodehash":       {addressOf(EXTCODEHASH, other), ember.Word(ember.Keccak256(otherCode))},
		"extcodehash-empty": {addressOf(EXTCODEHASH, ember.Address{4}), ember.Word{}},
		"extcodehash-none":  {addressOf(EXTCODEHASH, ember.Address{5}), ember.Word{}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := runAndGetTop(t, ember.Constantinople, test.code, invoke)
			if test.want != got {
				t.Errorf("unexpected result, wanted %v, got %v", test.want, got)
			}
		})
	}
}

func TestInstructions_Sha3(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0xaa, byte(PUSH1), 0, byte(MSTORE8),
		byte(PUSH1), 1, byte(PUSH1), 0, byte(SHA3),
	}
	got := runAndGetTop(t, ember.Byzantium, code, newTestInvoke(state.NewRepository(), 1000))
	if want := ember.Word(ember.Keccak256([]byte{0xaa})); want != got {
		t.Errorf("unexpected hash, wanted %v, got %v", want, got)
	}
}

func TestInstructions_PushIsPaddedAtEndOfCode(t *testing.T) {
	p := newTestProgram(t, ember.Byzantium, []byte{byte(PUSH4), 0x12, 0x34}, 100)
	opPush(p, 4)

	if want, got := uint64(4), p.pc; want != got {
		t.Errorf("unexpected program counter, wanted %d, got %d", want, got)
	}
	if want, got := uint64(0x12340000), p.stack.peek().Uint64(); want != got {
		t.Errorf("unexpected value, wanted %x, got %x", want, got)
	}
}

func TestInstructions_Jumps(t *testing.T) {
	tests := map[string]struct {
		code []byte
		want error
	}{
		"valid-jump": {
			[]byte{byte(PUSH1), 4, byte(JUMP), byte(INVALID), byte(JUMPDEST), byte(STOP)},
			nil,
		},
		"jump-into-push-data": {
			[]byte{byte(PUSH1), 4, byte(JUMP), byte(PUSH1), byte(JUMPDEST), byte(STOP)},
			ErrBadJumpDestination,
		},
		"jump-to-non-jumpdest": {
			[]byte{byte(PUSH1), 3, byte(JUMP), byte(STOP)},
			ErrBadJumpDestination,
		},
		"jumpi-taken": {
			[]byte{byte(PUSH1), 1, byte(PUSH1), 6, byte(JUMPI), byte(INVALID), byte(JUMPDEST), byte(STOP)},
			nil,
		},
		"jumpi-not-taken": {
			[]byte{byte(PUSH1), 0, byte(PUSH1), 0xff, byte(JUMPI), byte(STOP)},
			nil,
		},
		"jumpi-taken-to-invalid-destination": {
			[]byte{byte(PUSH1), 1, byte(PUSH1), 0xff, byte(JUMPI), byte(STOP)},
			ErrBadJumpDestination,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := runCode(t, ember.Byzantium, test.code, 1000, state.NewRepository())
			if got := p.Result().Exception(); !errors.Is(got, test.want) {
				t.Errorf("unexpected exception, wanted %v, got %v", test.want, got)
			}
		})
	}
}

func TestInstructions_FailuresConsumeAllGas(t *testing.T) {
	tests := map[string]struct {
		fork ember.Fork
		code []byte
		gas  ember.Gas
		want error
	}{
		"stack-underflow": {ember.Byzantium, []byte{byte(ADD)}, 100, ErrStackUnderflow},
		"invalid":         {ember.Byzantium, []byte{byte(INVALID)}, 100, ErrInvalidOpCode},
		"undefined":       {ember.Byzantium, []byte{0x0c}, 100, ErrInvalidOpCode},
		"out-of-gas":      {ember.Byzantium, []byte{byte(PUSH1), 1, byte(PUSH1), 1}, 5, ErrOutOfGas},
		"revert-in-frontier": {
			ember.Frontier, []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(REVERT)}, 100, ErrInvalidOpCode,
		},
		"shl-in-byzantium": {
			ember.Byzantium, []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(SHL)}, 100, ErrInvalidOpCode,
		},
		"memory-offset-overflow": {
			ember.Byzantium, []byte{byte(PUSH1), 1, byte(PUSH9), 1, 0, 0, 0, 0, 0, 0, 0, 0, byte(MSTORE)}, 100, ErrGasUintOverflow,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := state.NewRepository()
			p := runCode(t, test.fork, test.code, test.gas, repo)
			if got := p.Result().Exception(); !errors.Is(got, test.want) {
				t.Errorf("unexpected exception, wanted %v, got %v", test.want, got)
			}
			if got := p.GasLeft(); got != 0 {
				t.Errorf("failed frame should consume all gas, %d left", got)
			}
		})
	}
}

func TestInstructions_ReturnAndRevert(t *testing.T) {
	storeAndEnd := func(op OpCode) []byte {
		return []byte{
			byte(PUSH2), 0x12, 0x34, byte(PUSH1), 0, byte(MSTORE),
			byte(PUSH1), 2, byte(PUSH1), 30, byte(op),
		}
	}

	p := runCode(t, ember.Byzantium, storeAndEnd(RETURN), 1000, state.NewRepository())
	if !p.Result().Succeeded() {
		t.Fatalf("RETURN should succeed, got exception %v", p.Result().Exception())
	}
	if want, got := []byte{0x12, 0x34}, p.Result().ReturnData(); !bytes.Equal(want, got) {
		t.Errorf("unexpected return data, wanted %x, got %x", want, got)
	}

	p = runCode(t, ember.Byzantium, storeAndEnd(REVERT), 1000, state.NewRepository())
	if !p.Result().IsRevert() || p.Result().Exception() != nil {
		t.Fatalf("REVERT should revert without exception, got %v", p.Result().Exception())
	}
	if want, got := []byte{0x12, 0x34}, p.Result().ReturnData(); !bytes.Equal(want, got) {
		t.Errorf("unexpected revert data, wanted %x, got %x", want, got)
	}
	if p.GasLeft() == 0 {
		t.Errorf("REVERT should keep the remaining gas")
	}
}

func TestInstructions_DataCopies(t *testing.T) {
	invoke := newTestInvoke(state.NewRepository(), 1000)
	invoke.Data = []byte{1, 2, 3}

	// copy 4 bytes of call data starting at offset 1 to memory offset 0
	code := []byte{
		byte(PUSH1), 4, byte(PUSH1), 1, byte(PUSH1), 0, byte(CALLDATACOPY),
		byte(PUSH1), 0, byte(MLOAD),
	}
	got := runAndGetTop(t, ember.Byzantium, code, invoke)
	if want := (ember.Word{2, 3}); want != got {
		t.Errorf("unexpected call data copy, wanted %v, got %v", want, got)
	}

	code = []byte{
		byte(PUSH1), 2, byte(PUSH1), 0, byte(PUSH1), 0, byte(CODECOPY),
		byte(PUSH1), 0, byte(MLOAD),
	}
	got = runAndGetTop(t, ember.Byzantium, code, invoke)
	if want := (ember.Word{byte(PUSH1), 2}); want != got {
		t.Errorf("unexpected code copy, wanted %v, got %v", want, got)
	}
}

func TestInstructions_Logs(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0xab, byte(PUSH1), 0, byte(MSTORE8),
		byte(PUSH1), 2, byte(PUSH1), 1, // topics
		byte(PUSH1), 1, byte(PUSH1), 0, // size, offset
		byte(LOG2),
	}
	p := runCode(t, ember.Byzantium, code, 10_000, state.NewRepository())
	if err := p.Result().Exception(); err != nil {
		t.Fatalf("unexpected exception: %v", err)
	}

	logs := p.Result().Logs()
	if len(logs) != 1 {
		t.Fatalf("unexpected number of logs: %d", len(logs))
	}
	log := logs[0]
	if want, got := testOwner, log.Address; want != got {
		t.Errorf("unexpected address, wanted %v, got %v", want, got)
	}
	if want, got := []ember.Hash{ember.Hash(ember.WordFromUint64(1)), ember.Hash(ember.WordFromUint64(2))}, log.Topics; len(got) != 2 || want[0] != got[0] || want[1] != got[1] {
		t.Errorf("unexpected topics, wanted %v, got %v", want, got)
	}
	if want, got := []byte{0xab}, []byte(log.Data); !bytes.Equal(want, got) {
		t.Errorf("unexpected data, wanted %x, got %x", want, got)
	}
	// 6 pushes, MSTORE8 and memory, LOG2 with one byte of data
	if want, got := ember.Gas(6*3+3+3+375+2*375+8), p.GasUsed(); want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
}

func TestInstructions_StaticCallViolations(t *testing.T) {
	tests := map[string][]byte{
		"sstore":       {byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE)},
		"log":          {byte(PUSH1), 0, byte(PUSH1), 0, byte(LOG0)},
		"create":       {byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(CREATE)},
		"selfdestruct": {byte(PUSH1), 0, byte(SELFDESTRUCT)},
		"call-with-value": {
			byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0,
			byte(PUSH1), 1, byte(PUSH1), 0, byte(PUSH1), 0, byte(CALL),
		},
	}

	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			interpreter := newTestInterpreter(t, ember.Constantinople)
			invoke := newTestInvoke(state.NewRepository(), 100_000)
			invoke.Static = true
			p := interpreter.NewProgram(code, nil, invoke)
			interpreter.Play(p)
			if want, got := ErrStaticCallViolation, p.Result().Exception(); !errors.Is(got, want) {
				t.Errorf("unexpected exception, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestInstructions_ReturnDataCopyOutOfBounds(t *testing.T) {
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(PUSH1), 0, byte(RETURNDATACOPY)}
	p := runCode(t, ember.Byzantium, code, 1000, state.NewRepository())
	if want, got := ErrReturnDataOutOfBounds, p.Result().Exception(); !errors.Is(got, want) {
		t.Errorf("unexpected exception, wanted %v, got %v", want, got)
	}
}

func TestInstructions_SelfdestructTransfersBalance(t *testing.T) {
	beneficiary := ember.Address{0x60}
	repo := state.NewRepositoryFrom(state.Accounts{
		testOwner: {Balance: ember.NewValue(100), Nonce: 3},
	})
	code := append(append([]byte{byte(PUSH20)}, beneficiary[:]...), byte(SELFDESTRUCT))

	p := runCode(t, ember.Byzantium, code, 100_000, repo)
	result := p.Result()
	if err := result.Exception(); err != nil {
		t.Fatalf("unexpected exception: %v", err)
	}
	if want, got := ember.NewValue(100), repo.GetBalance(beneficiary); want != got {
		t.Errorf("unexpected beneficiary balance, wanted %v, got %v", want, got)
	}
	if got := repo.GetBalance(testOwner); !got.IsZero() {
		t.Errorf("owner balance should be zero, got %v", got)
	}
	if want, got := []ember.Address{testOwner}, result.DeletedAccounts(); len(got) != 1 || want[0] != got[0] {
		t.Errorf("unexpected deleted accounts, wanted %v, got %v", want, got)
	}
	txs := result.InternalTransactions()
	if len(txs) != 1 {
		t.Fatalf("unexpected number of internal transactions: %d", len(txs))
	}
	if tx := txs[0]; tx.Type != SELFDESTRUCT || tx.From != testOwner || *tx.To != beneficiary || tx.Value != ember.NewValue(100) || tx.Nonce != 3 {
		t.Errorf("unexpected internal transaction: %v", tx)
	}
	// PUSH20, SELFDESTRUCT and the creation of the beneficiary account
	if want, got := ember.Gas(3+5000+25000), p.GasUsed(); want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
}

func TestInstructions_SelfdestructToItselfBurnsBalance(t *testing.T) {
	repo := state.NewRepositoryFrom(state.Accounts{
		testOwner: {Balance: ember.NewValue(100)},
	})
	code := append(append([]byte{byte(PUSH20)}, testOwner[:]...), byte(SELFDESTRUCT))

	p := runCode(t, ember.Byzantium, code, 100_000, repo)
	if err := p.Result().Exception(); err != nil {
		t.Fatalf("unexpected exception: %v", err)
	}
	if got := repo.GetBalance(testOwner); !got.IsZero() {
		t.Errorf("balance should be burned, got %v", got)
	}
}

func TestInstructions_ExpChargesPerExponentByte(t *testing.T) {
	p := newTestProgram(t, ember.Byzantium, nil, 1000)
	p.stack.push(uint256.NewInt(0x1234))
	p.stack.push(uint256.NewInt(2))

	if err := opExp(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 2*p.spec.Fees.ExpByte, p.GasUsed(); want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
}
