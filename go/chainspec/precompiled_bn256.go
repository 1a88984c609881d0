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
	"math/big"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/ethereum/go-ethereum/crypto/bn256"
)

const (
	bn256AddGas             = 500
	bn256ScalarMulGas       = 40000
	bn256PairingBaseGas     = 100000
	bn256PairingPerPointGas = 80000

	// A pair is a G1 point (x, y) followed by a G2 point (x_b, x_a, y_b, y_a),
	// each coordinate a 32 byte word.
	bn256PairSize = 192
)

// newCurvePoint decodes a G1 point, failing for points not on the curve.
func newCurvePoint(blob []byte) (*bn256.G1, bool) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, false
	}
	return p, true
}

// newTwistPoint decodes a G2 point, failing for points not on the twist.
func newTwistPoint(blob []byte) (*bn256.G2, bool) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, false
	}
	return p, true
}

// bn256Add adds two points of the alt_bn128 curve.
type bn256Add struct{}

func (bn256Add) RequiredGas([]byte) ember.Gas {
	return bn256AddGas
}

func (bn256Add) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	x, ok := newCurvePoint(rightPad(input, 0, 64))
	if !ok {
		return []byte{}, false
	}
	y, ok := newCurvePoint(rightPad(input, 64, 64))
	if !ok {
		return []byte{}, false
	}
	res := new(bn256.G1)
	res.Add(x, y)
	return res.Marshal(), true
}

// bn256ScalarMul multiplies a point of the alt_bn128 curve with a scalar.
type bn256ScalarMul struct{}

func (bn256ScalarMul) RequiredGas([]byte) ember.Gas {
	return bn256ScalarMulGas
}

func (bn256ScalarMul) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	p, ok := newCurvePoint(rightPad(input, 0, 64))
	if !ok {
		return []byte{}, false
	}
	res := new(bn256.G1)
	res.ScalarMult(p, new(big.Int).SetBytes(rightPad(input, 64, 32)))
	return res.Marshal(), true
}

// bn256Pairing checks whether the product of the pairings of the given
// G1/G2 pairs is the identity. The input length has to be a multiple of the
// pair size.
type bn256Pairing struct{}

func (bn256Pairing) RequiredGas(input []byte) ember.Gas {
	return bn256PairingBaseGas + ember.Gas(len(input)/bn256PairSize)*bn256PairingPerPointGas
}

func (bn256Pairing) Execute(input []byte, _ PrecompiledContext) ([]byte, bool) {
	if len(input)%bn256PairSize != 0 {
		return []byte{}, false
	}
	var (
		cs []*bn256.G1
		ts []*bn256.G2
	)
	for i := 0; i < len(input); i += bn256PairSize {
		c, ok := newCurvePoint(input[i : i+64])
		if !ok {
			return []byte{}, false
		}
		t, ok := newTwistPoint(input[i+64 : i+bn256PairSize])
		if !ok {
			return []byte{}, false
		}
		cs = append(cs, c)
		ts = append(ts, t)
	}
	var res ember.Word
	if bn256.PairingCheck(cs, ts) {
		res = ember.WordFromUint64(1)
	}
	return res[:], true
}
