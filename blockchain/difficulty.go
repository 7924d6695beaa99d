// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/libcoin/utxod/chaincfg"
)

// CompactToBig expands the 32-bit compact ("bits") representation of a
// difficulty target into its full big.Int form.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact condenses a big.Int difficulty target into its 32-bit
// compact representation, the inverse of CompactToBig.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CalcNextRequiredDifficulty retargets every RetargetInterval blocks
// (spec §4.D.4): the new target scales by the ratio of actual to
// expected timespan over the interval, clamped to [1/adjustFactor,
// adjustFactor] and floored at the network's PowLimit. Between
// retargets the difficulty carries forward unchanged.
func CalcNextRequiredDifficulty(params *chaincfg.Params, height int32, lastBits uint32, firstBlockTime, lastBlockTime int64) uint32 {
	if (height+1)%params.RetargetInterval != 0 {
		return lastBits
	}

	actualTimespan := lastBlockTime - firstBlockTime
	targetTimespan := int64(params.TargetTimespan / 1e9)

	minTimespan := targetTimespan / params.RetargetAdjustFactor
	maxTimespan := targetTimespan * params.RetargetAdjustFactor
	if actualTimespan < minTimespan {
		actualTimespan = minTimespan
	} else if actualTimespan > maxTimespan {
		actualTimespan = maxTimespan
	}

	oldTarget := CompactToBig(lastBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget = params.PowLimit
	}
	return BigToCompact(newTarget)
}
