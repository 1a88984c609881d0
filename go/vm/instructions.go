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
	"math"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/holiman/uint256"
)

func opStop() status {
	return statusStopped
}

func opEndWithResult(p *Program) error {
	offset := *p.stack.pop()
	size := *p.stack.pop()
	if err := checkSizeOffsetUint64Overflow(&offset, &size); err != nil {
		return err
	}
	data, err := p.memory.getSlice(offset.Uint64(), size.Uint64(), p)
	if err != nil {
		return err
	}
	p.result.SetReturnData(bytes.Clone(data))
	return nil
}

func opRevert(p *Program) error {
	if err := opEndWithResult(p); err != nil {
		return err
	}
	p.result.SetRevert(true)
	return nil
}

func opPc(p *Program) {
	p.stack.pushUndefined().SetUint64(p.pc)
}

func opJump(p *Program) error {
	destination, err := p.verifyJumpDest(p.stack.pop())
	if err != nil {
		return err
	}
	// The interpreter increments the PC after the instruction.
	p.pc = destination - 1
	return nil
}

func opJumpi(p *Program) error {
	target := p.stack.pop()
	condition := p.stack.pop()
	if condition.IsZero() {
		return nil
	}
	destination, err := p.verifyJumpDest(target)
	if err != nil {
		return err
	}
	p.pc = destination - 1
	return nil
}

func opPop(p *Program) {
	p.stack.pop()
}

// opPush pushes the n bytes following the instruction. Code ending within the
// immediate data is padded with zeros on the right.
func opPush(p *Program, n int) {
	z := p.stack.pushUndefined()
	start := min(p.pc+1, uint64(len(p.code)))
	end := min(start+uint64(n), uint64(len(p.code)))
	var value [32]byte
	copy(value[:n], p.code[start:end])
	z.SetBytes(value[:n])
	p.pc += uint64(n)
}

func opDup(p *Program, pos int) {
	p.stack.dup(pos - 1)
}

func opSwap(p *Program, pos int) {
	p.stack.swap(pos)
}

func opMstore(p *Program) error {
	var addr = p.stack.pop()
	var value = p.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return ErrGasUintOverflow
	}
	data := value.Bytes32()
	return p.memory.set(offset, data[:], p)
}

func opMstore8(p *Program) error {
	var addr = p.stack.pop()
	var value = p.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return ErrGasUintOverflow
	}
	return p.memory.set(offset, []byte{byte(value.Uint64())}, p)
}

func opMload(p *Program) error {
	var trg = p.stack.peek()
	var addr = *trg

	if !addr.IsUint64() {
		return ErrGasUintOverflow
	}
	return p.memory.readWord(addr.Uint64(), trg, p)
}

func opMsize(p *Program) {
	p.stack.pushUndefined().SetUint64(p.memory.length())
}

func opSstore(p *Program) error {
	if p.invoke.Static {
		return ErrStaticCallViolation
	}

	key := ember.Key(p.stack.pop().Bytes32())
	value := ember.Word(p.stack.pop().Bytes32())
	current := p.StorageLoad(key)

	var cost ember.Gas
	if p.spec.EIP1283 {
		cost = gasSStoreEIP1283(p, key, current, value)
	} else {
		cost = gasSStoreLegacy(p, current, value)
	}
	if err := p.SpendGas(cost); err != nil {
		return err
	}
	p.StorageSave(key, value)
	return nil
}

func opSload(p *Program) {
	top := p.stack.peek()
	value := p.StorageLoad(ember.Key(top.Bytes32()))
	top.SetBytes32(value[:])
}

func opCaller(p *Program) {
	p.stack.pushUndefined().SetBytes20(p.invoke.Caller[:])
}

func opCallvalue(p *Program) {
	p.stack.pushUndefined().SetBytes32(p.invoke.Value[:])
}

func opCallDatasize(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(len(p.invoke.Data)))
}

func opCallDataload(p *Program) {
	top := p.stack.peek()
	offset, overflow := top.Uint64WithOverflow()
	if overflow {
		top.Clear()
		return
	}
	top.SetBytes32(getData(p.invoke.Data, offset, 32))
}

// genericDataCopy implements CALLDATACOPY and CODECOPY.
func genericDataCopy(p *Program, source []byte) error {
	var (
		memOffset  = p.stack.pop()
		dataOffset = p.stack.pop()
		length     = p.stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = math.MaxUint64
	}

	data, err := p.memory.getSlice(memOffset.Uint64(), length.Uint64(), p)
	if err != nil {
		return err
	}
	if err := p.SpendGas(wordCost(length.Uint64(), p.spec.Fees.Copy)); err != nil {
		return err
	}
	copy(data, getData(source, dataOffset64, length.Uint64()))
	return nil
}

func opAnd(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.And(a, b)
}

func opOr(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Or(a, b)
}

func opNot(p *Program) {
	a := p.stack.peek()
	a.Not(a)
}

func opXor(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Xor(a, b)
}

func opIszero(p *Program) {
	top := p.stack.peek()
	if top.IsZero() {
		top.SetOne()
	} else {
		top.Clear()
	}
}

func opEq(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.Eq(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opLt(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.Lt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opGt(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.Gt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSlt(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.Slt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSgt(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.Sgt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opShr(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.LtUint64(256) {
		b.Rsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opShl(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.LtUint64(256) {
		b.Lsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opSar(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	if a.GtUint64(255) {
		if b.Sign() >= 0 {
			b.Clear()
		} else {
			b.SetAllOne()
		}
		return
	}
	b.SRsh(b, uint(a.Uint64()))
}

func opSignExtend(p *Program) {
	back, num := p.stack.pop(), p.stack.peek()
	num.ExtendSign(num, back)
}

func opByte(p *Program) {
	th, val := p.stack.pop(), p.stack.peek()
	val.Byte(th)
}

func opAdd(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Add(a, b)
}

func opSub(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Sub(a, b)
}

func opMul(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Mul(a, b)
}

func opMulMod(p *Program) {
	a := p.stack.pop()
	b := p.stack.pop()
	n := p.stack.peek()
	n.MulMod(a, b, n)
}

func opDiv(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Div(a, b)
}

func opSDiv(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.SDiv(a, b)
}

func opMod(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.Mod(a, b)
}

func opAddMod(p *Program) {
	a := p.stack.pop()
	b := p.stack.pop()
	n := p.stack.peek()
	n.AddMod(a, b, n)
}

func opSMod(p *Program) {
	a := p.stack.pop()
	b := p.stack.peek()
	b.SMod(a, b)
}

func opExp(p *Program) error {
	base, exponent := p.stack.pop(), p.stack.peek()
	if err := p.SpendGas(p.spec.Fees.ExpByte * ember.Gas(exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSha3(p *Program) error {
	offset, size := p.stack.pop(), p.stack.peek()
	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}

	data, err := p.memory.getSlice(offset.Uint64(), size.Uint64(), p)
	if err != nil {
		return err
	}
	if err := p.SpendGas(wordCost(size.Uint64(), p.spec.Fees.Sha3Word)); err != nil {
		return err
	}

	hash := ember.Keccak256(data)
	size.SetBytes32(hash[:])
	return nil
}

func opGas(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(p.GasLeft()))
}

func opDifficulty(p *Program) {
	difficulty := p.invoke.Block.Difficulty
	p.stack.pushUndefined().SetBytes32(difficulty[:])
}

func opTimestamp(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(p.invoke.Block.Timestamp))
}

func opNumber(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(p.invoke.Block.Number))
}

func opCoinbase(p *Program) {
	coinbase := p.invoke.Block.Coinbase
	p.stack.pushUndefined().SetBytes20(coinbase[:])
}

func opGasLimit(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(p.invoke.Block.GasLimit))
}

func opGasPrice(p *Program) {
	price := p.invoke.GasPrice
	p.stack.pushUndefined().SetBytes32(price[:])
}

func opBalance(p *Program) {
	slot := p.stack.peek()
	balance := p.repo.GetBalance(ember.Address(slot.Bytes20()))
	slot.SetBytes32(balance[:])
}

func opSelfdestruct(p *Program) (status, error) {
	if p.invoke.Static {
		return statusStopped, ErrStaticCallViolation
	}

	beneficiary := ember.Address(p.stack.pop().Bytes20())
	balance := p.repo.GetBalance(p.invoke.Owner)
	if needsNewAccount(p, beneficiary, balance.ToUint256()) {
		if err := p.SpendGas(p.spec.Fees.NewAcctSuicide); err != nil {
			return statusStopped, err
		}
	}

	p.Suicide(beneficiary)
	return statusSelfDestructed, nil
}

func opBlockhash(p *Program) {
	num := p.stack.peek()
	hash := p.GetBlockHash(ember.WordFromUint256(num))
	num.SetBytes32(hash[:])
}

func opAddress(p *Program) {
	p.stack.pushUndefined().SetBytes20(p.invoke.Owner[:])
}

func opOrigin(p *Program) {
	origin := p.invoke.Origin
	p.stack.pushUndefined().SetBytes20(origin[:])
}

func opCodeSize(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(len(p.code)))
}

func opExtcodesize(p *Program) {
	top := p.stack.peek()
	code := p.repo.GetCode(ember.Address(top.Bytes20()))
	top.SetUint64(uint64(len(code)))
}

func opExtcodehash(p *Program) {
	slot := p.stack.peek()
	address := ember.Address(slot.Bytes20())
	if !p.repo.Exists(address) || isEmptyAccount(p.repo, address) {
		slot.Clear()
		return
	}
	hash := p.repo.GetCodeHash(address)
	slot.SetBytes32(hash[:])
}

func opExtCodeCopy(p *Program) error {
	var (
		stack      = p.stack
		a          = stack.pop()
		memOffset  = stack.pop()
		codeOffset = stack.pop()
		length     = stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}
	address := ember.Address(a.Bytes20())

	var codeOffset64 uint64
	if codeOffset.IsUint64() {
		codeOffset64 = codeOffset.Uint64()
	} else {
		codeOffset64 = math.MaxUint64
	}

	data, err := p.memory.getSlice(memOffset.Uint64(), length.Uint64(), p)
	if err != nil {
		return err
	}
	if err := p.SpendGas(wordCost(length.Uint64(), p.spec.Fees.Copy)); err != nil {
		return err
	}
	copy(data, getData(p.repo.GetCode(address), codeOffset64, length.Uint64()))
	return nil
}

func genericCreate(p *Program, kind ember.CallKind) error {
	if p.invoke.Static {
		return ErrStaticCallViolation
	}

	var (
		value  = ember.Value(p.stack.pop().Bytes32())
		offset = *p.stack.pop()
		size   = *p.stack.pop()
		salt   = ember.Hash{}
	)
	if kind == ember.Create2 {
		salt = p.stack.pop().Bytes32()
	}

	if err := checkSizeOffsetUint64Overflow(&offset, &size); err != nil {
		return err
	}
	if err := p.memory.expandMemory(offset.Uint64(), size.Uint64(), p); err != nil {
		return err
	}

	var err error
	if kind == ember.Create2 {
		// Charge for hashing the init code to compute the target address.
		if err := p.SpendGas(wordCost(size.Uint64(), p.spec.Fees.Sha3Word)); err != nil {
			return err
		}
		_, err = p.CreateContract2(value, offset.Uint64(), size.Uint64(), salt)
	} else {
		_, err = p.CreateContract(value, offset.Uint64(), size.Uint64())
	}
	return err
}

// getData returns size bytes of the given data starting at the given offset,
// padded with zeros on the right.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	res := make([]byte, int(size))
	copy(res, data[start:end])
	return res
}

func checkSizeOffsetUint64Overflow(offset, size *uint256.Int) error {
	if size.IsZero() {
		return nil
	}
	if !offset.IsUint64() || !size.IsUint64() || offset.Uint64()+size.Uint64() < offset.Uint64() {
		return ErrGasUintOverflow
	}
	return nil
}

func genericCall(p *Program, kind ember.CallKind) error {
	stack := p.stack
	value := uint256.Int{}

	// Pop call parameters. Operands are copied since the stack is reused by
	// the nested call.
	requested, addr := *stack.pop(), *stack.pop()
	if kind == ember.Call || kind == ember.CallCode {
		value = *stack.pop()
	}
	inOffset, inSize, retOffset, retSize := *stack.pop(), *stack.pop(), *stack.pop(), *stack.pop()

	if kind == ember.Call && p.invoke.Static && !value.IsZero() {
		return ErrStaticCallViolation
	}

	if err := checkSizeOffsetUint64Overflow(&inOffset, &inSize); err != nil {
		return err
	}
	if err := checkSizeOffsetUint64Overflow(&retOffset, &retSize); err != nil {
		return err
	}

	// Memory of both windows is charged before any other call costs.
	if err := p.memory.expandMemory(inOffset.Uint64(), inSize.Uint64(), p); err != nil {
		return err
	}
	if err := p.memory.expandMemory(retOffset.Uint64(), retSize.Uint64(), p); err != nil {
		return err
	}

	toAddr := ember.Address(addr.Bytes20())
	fees := &p.spec.Fees
	if !value.IsZero() {
		if err := p.SpendGas(fees.VtCall); err != nil {
			return err
		}
	}
	if kind == ember.Call && needsNewAccount(p, toAddr, &value) {
		if err := p.SpendGas(fees.NewAcctCall); err != nil {
			return err
		}
	}

	requestedGas := chainspec.MaxGas
	if requested.IsUint64() && requested.Uint64() <= math.MaxInt64 {
		requestedGas = ember.Gas(requested.Uint64())
	}
	gas := p.spec.CallGas(kind, requestedGas, p.GasLeft())
	if err := p.SpendGas(gas); err != nil {
		return err
	}
	if !value.IsZero() {
		gas += fees.StipendCall
	}

	_, err := p.CallContract(MessageCall{
		Kind:        kind,
		Gas:         gas,
		CodeAddress: toAddr,
		Value:       ember.ValueFromUint256(&value),
		InOffset:    inOffset.Uint64(),
		InSize:      inSize.Uint64(),
		OutOffset:   retOffset.Uint64(),
		OutSize:     retSize.Uint64(),
	})
	return err
}

func opReturnDataSize(p *Program) {
	p.stack.pushUndefined().SetUint64(uint64(len(p.returnDataBuffer)))
}

func opReturnDataCopy(p *Program) error {
	var (
		memOffset  = p.stack.pop()
		dataOffset = p.stack.pop()
		length     = p.stack.pop()
	)

	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow || !length.IsUint64() {
		return ErrReturnDataOutOfBounds
	}
	var end uint256.Int
	end.Add(dataOffset, length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(p.returnDataBuffer)) < end64 {
		return ErrReturnDataOutOfBounds
	}

	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}
	if err := p.memory.expandMemory(memOffset.Uint64(), length.Uint64(), p); err != nil {
		return err
	}
	if err := p.SpendGas(wordCost(length.Uint64(), p.spec.Fees.Copy)); err != nil {
		return err
	}
	return p.memory.set(memOffset.Uint64(), p.returnDataBuffer[offset64:end64], p)
}

func opLog(p *Program, size int) error {
	if p.invoke.Static {
		return ErrStaticCallViolation
	}

	topics := make([]ember.Hash, size)
	stack := p.stack
	mStart, mSize := stack.pop(), stack.pop()
	if err := checkSizeOffsetUint64Overflow(mStart, mSize); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		topics[i] = stack.pop().Bytes32()
	}

	start, logSize := mStart.Uint64(), mSize.Uint64()
	data, err := p.memory.getSlice(start, logSize, p)
	if err != nil {
		return err
	}

	// charge for log size
	if logSize > math.MaxInt64/uint64(p.spec.Fees.LogData) {
		return ErrGasUintOverflow
	}
	if err := p.SpendGas(p.spec.Fees.LogData * ember.Gas(logSize)); err != nil {
		return err
	}

	p.result.AddLog(ember.Log{
		Address: p.invoke.Owner,
		Topics:  topics,
		Data:    bytes.Clone(data),
	})
	return nil
}
