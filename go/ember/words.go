// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ember

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// --- Word ---

// WordFromUint64 creates a word holding the given value.
func WordFromUint64(v uint64) (w Word) {
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

// WordFromBytes interprets the given big-endian bytes as a word. Shorter
// inputs are left-padded with zeros, for longer inputs only the rightmost 32
// bytes are retained.
func WordFromBytes(data []byte) (w Word) {
	if len(data) > len(w) {
		data = data[len(data)-len(w):]
	}
	copy(w[len(w)-len(data):], data)
	return w
}

// WordFromAddress converts an address into a word by left-padding it.
func WordFromAddress(a Address) (w Word) {
	copy(w[12:], a[:])
	return w
}

// WordFromUint256 converts a *uint256.Int into a word. Nil is mapped to zero.
func WordFromUint256(v *uint256.Int) Word {
	if v == nil {
		return Word{}
	}
	return v.Bytes32()
}

// ToUint256 returns the unsigned integer represented by this word.
func (w Word) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(w[:])
}

// ToBig returns the unsigned integer represented by this word.
func (w Word) ToBig() *big.Int {
	return new(big.Int).SetBytes(w[:])
}

// ToSigned returns the two's complement interpretation of this word.
func (w Word) ToSigned() *big.Int {
	u := w.ToUint256()
	if u.Sign() >= 0 {
		return u.ToBig()
	}
	return new(big.Int).Neg(new(uint256.Int).Neg(u).ToBig())
}

// Address returns the rightmost 20 bytes of the word.
func (w Word) Address() (a Address) {
	copy(a[:], w[12:])
	return a
}

func (w Word) Add(o Word) Word {
	return WordFromUint256(new(uint256.Int).Add(w.ToUint256(), o.ToUint256()))
}

func (w Word) Sub(o Word) Word {
	return WordFromUint256(new(uint256.Int).Sub(w.ToUint256(), o.ToUint256()))
}

func (w Word) Mul(o Word) Word {
	return WordFromUint256(new(uint256.Int).Mul(w.ToUint256(), o.ToUint256()))
}

func (w Word) IsZero() bool {
	return w == Word{}
}

// IsUint64 returns true if the word value fits into an uint64.
func (w Word) IsUint64() bool {
	for _, b := range w[:24] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Uint64 returns the lowest 64 bits of the word.
func (w Word) Uint64() uint64 {
	return binary.BigEndian.Uint64(w[24:])
}

// BytesOccupied returns the number of significant bytes of the word.
func (w Word) BytesOccupied() int {
	for i, b := range w {
		if b != 0 {
			return len(w) - i
		}
	}
	return 0
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (w Word) MarshalText() ([]byte, error) {
	return bytesToText(w[:])
}

func (w *Word) UnmarshalText(data []byte) error {
	return numberTextToBytes(w[:], data)
}

// --- Value ---

func (v Value) ToBig() *big.Int {
	return new(big.Int).SetBytes(v[:])
}

func (v Value) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(v[:])
}

func (v Value) String() string {
	return v.ToUint256().String()
}

func (v Value) Cmp(o Value) int {
	return bytes.Compare(v[:], o[:])
}

func (v Value) IsZero() bool {
	return v == Value{}
}

// NewValue creates a new Value instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a value of zero.
func NewValue(args ...uint64) (result Value) {
	if len(args) > 4 {
		panic("Too many arguments")
	}
	offset := 4 - len(args)
	for i := 0; i < len(args); i++ {
		start := (offset + i) * 8
		binary.BigEndian.PutUint64(result[start:start+8], args[i])
	}
	return
}

// ValueFromUint256 converts a *uint256.Int to a Value.
// If the input is nil, it returns 0.
func ValueFromUint256(value *uint256.Int) (result Value) {
	if value == nil {
		return result
	}
	return value.Bytes32()
}

// Add returns a+b modulo 2^256.
func Add(a, b Value) Value {
	return ValueFromUint256(new(uint256.Int).Add(a.ToUint256(), b.ToUint256()))
}

// Sub returns a-b modulo 2^256.
func Sub(a, b Value) Value {
	return ValueFromUint256(new(uint256.Int).Sub(a.ToUint256(), b.ToUint256()))
}

// Scale returns v*s, truncated to 256 bits.
func (v Value) Scale(s uint64) Value {
	return ValueFromUint256(new(uint256.Int).Mul(v.ToUint256(), uint256.NewInt(s)))
}

// ScaleWithOverflow returns v*s and whether the product exceeded 256 bits.
func (v Value) ScaleWithOverflow(s uint64) (Value, bool) {
	res, overflow := new(uint256.Int).MulOverflow(v.ToUint256(), uint256.NewInt(s))
	return ValueFromUint256(res), overflow
}

func (v Value) MarshalText() ([]byte, error) {
	return bytesToText(v[:])
}

func (v *Value) UnmarshalText(data []byte) error {
	return numberTextToBytes(v[:], data)
}

// --- Text encodings ---

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (k Key) MarshalText() ([]byte, error) {
	return bytesToText(k[:])
}

func (k *Key) UnmarshalText(data []byte) error {
	return numberTextToBytes(k[:], data)
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

func (d Data) MarshalText() ([]byte, error) {
	return bytesToText(d)
}

func (d *Data) UnmarshalText(data []byte) error {
	res, err := decodeHex(data)
	if err != nil {
		return err
	}
	*d = res
	return nil
}

func (c Code) MarshalText() ([]byte, error) {
	return bytesToText(c)
}

func (c *Code) UnmarshalText(data []byte) error {
	res, err := decodeHex(data)
	if err != nil {
		return err
	}
	*c = res
	return nil
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func decodeHex(data []byte) ([]byte, error) {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	s = s[2:]
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// textToBytes decodes a hex string of exactly the length of the target.
func textToBytes(trg []byte, data []byte) error {
	decoded, err := decodeHex(data)
	if err != nil {
		return err
	}
	if want, got := len(trg), len(decoded); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, decoded)
	return nil
}

// numberTextToBytes decodes a hex encoded number of at most the length of the
// target, left-padding it with zeros.
func numberTextToBytes(trg []byte, data []byte) error {
	decoded, err := decodeHex(data)
	if err != nil {
		return err
	}
	if len(decoded) > len(trg) {
		return fmt.Errorf("invalid format, wanted at most %d bytes, got %d", len(trg), len(decoded))
	}
	clear(trg)
	copy(trg[len(trg)-len(decoded):], decoded)
	return nil
}
