// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainspec

import (
	"math"
	"math/big"

	"github.com/Fantom-foundation/Ember/go/ember"
)

// modExp computes base**exp % mod on arbitrary sized integers (EIP-198).
// The input starts with the byte lengths of base, exponent and modulus as
// 32 byte words, followed by the three values.
type modExp struct{}

const (
	modExpHeaderSize = 96
	// Lengths exceeding this bound can not be paid for and are clamped.
	modExpMaxLength  = math.MaxInt32
	modExpGasDivisor = 20
)

var (
	big1      = big.NewInt(1)
	big64     = big.NewInt(64)
	big1024   = big.NewInt(1024)
	big3072   = big.NewInt(3072)
	big199680 = big.NewInt(199680)
	maxGasBig = big.NewInt(math.MaxInt64)
)

func (modExp) RequiredGas(input []byte) ember.Gas {
	baseLen, expLen, modLen := modExpLengths(input)

	// The first 32 bytes of the exponent determine the adjusted length.
	expHead := new(big.Int).SetBytes(rightPad(input, modExpHeaderSize+baseLen, min(expLen, 32)))

	adjExpLen := new(big.Int)
	if expLen > 32 {
		adjExpLen.SetUint64(8 * (expLen - 32))
	}
	if bitLen := expHead.BitLen(); bitLen > 1 {
		adjExpLen.Add(adjExpLen, big.NewInt(int64(bitLen-1)))
	}
	if adjExpLen.Cmp(big1) < 0 {
		adjExpLen.Set(big1)
	}

	gas := multComplexity(new(big.Int).SetUint64(max(baseLen, modLen)))
	gas.Mul(gas, adjExpLen)
	gas.Div(gas, big.NewInt(modExpGasDivisor))
	if gas.Cmp(maxGasBig) > 0 {
		return MaxGas
	}
	return ember.Gas(gas.Int64())
}

// multComplexity implements the piecewise complexity function of EIP-198.
func multComplexity(x *big.Int) *big.Int {
	sq := new(big.Int).Mul(x, x)
	switch {
	case x.Cmp(big64) <= 0:
		return sq
	case x.Cmp(big1024) <= 0:
		// x^2/4 + 96x - 3072
		sq.Div(sq, big.NewInt(4))
		sq.Add(sq, new(big.Int).Mul(x, big.NewInt(96)))
		return sq.Sub(sq, big3072)
	default:
		// x^2/16 + 480x - 199680
		sq.Div(sq, big.NewInt(16))
		sq.Add(sq, new(big.Int).Mul(x, big.NewInt(480)))
		return sq.Sub(sq, big199680)
	}
}

func (modExp) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	baseLen, expLen, modLen := modExpLengths(input)
	if modLen == 0 {
		return []byte{}, true
	}

	offset := uint64(modExpHeaderSize)
	base := new(big.Int).SetBytes(rightPad(input, offset, baseLen))
	exp := new(big.Int).SetBytes(rightPad(input, offset+baseLen, expLen))
	mod := new(big.Int).SetBytes(rightPad(input, offset+baseLen+expLen, modLen))

	if mod.BitLen() == 0 {
		return make([]byte, modLen), true
	}
	var res *big.Int
	if base.BitLen() == 1 {
		res = base.Mod(base, mod)
	} else {
		res = base.Exp(base, exp, mod)
	}
	return leftPad(res.Bytes(), int(modLen)), true
}

// modExpLengths decodes the three length fields of a modExp input, clamping
// each of them to modExpMaxLength.
func modExpLengths(input []byte) (baseLen, expLen, modLen uint64) {
	header := rightPad(input, 0, modExpHeaderSize)
	return clampLength(header[0:32]), clampLength(header[32:64]), clampLength(header[64:96])
}

func clampLength(data []byte) uint64 {
	w := ember.WordFromBytes(data)
	if !w.IsUint64() || w.Uint64() > modExpMaxLength {
		return modExpMaxLength
	}
	return w.Uint64()
}
