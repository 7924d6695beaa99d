// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

// minTxSize is the smallest a relayable transaction may serialize to
// (spec §4.D.5 step 4).
const minTxSize = 100

// sigOpsPerByteLimit caps sig-ops at one per 34 serialized bytes (spec
// §4.D.5 step 4).
const sigOpsPerByteLimit = 34

// freeRelayFeeThreshold is the sat/kB rate below which a transaction is
// "free" and subject to the relay throttle (spec §4.D.5 step 8).
const freeRelayFeeThreshold = 10000

// baseFeePerKB and smallOutputFee are the minFee formula's constants
// (spec §4.D.5 step 7).
const (
	baseFeePerKB   = 10000
	smallOutputFee = 50000
	smallOutputMax = 1000000
)

// checkTransactionStandard enforces the template and shape policy spec
// §4.D.5 step 4 describes: every output must match one of the standard
// script templates, the transaction must carry a sane sig-op density,
// and it must not be implausibly small.
func checkTransactionStandard(tx *wire.MsgTx) error {
	size := tx.SerializeSize()
	if size < minTxSize {
		return txRuleErrorf(ErrTooSmall, "transaction size %d is below the minimum relayable size of %d", size, minTxSize)
	}

	for _, out := range tx.TxOut {
		switch txscript.GetScriptClass(out.PkScript) {
		case txscript.PubKeyTy, txscript.PubKeyHashTy, txscript.ScriptHashTy, txscript.MultiSigTy:
		default:
			return txRuleError(ErrNonStandard, "transaction output does not match a standard script template")
		}
	}

	maxSigOps := size / sigOpsPerByteLimit
	if blockchain.CountSigOps(tx) > maxSigOps {
		return txRuleErrorf(ErrTooManySigOps, "transaction sig-op count exceeds the %d-bytes-per-sigop density limit", sigOpsPerByteLimit)
	}
	return nil
}

// minFee computes the minimum relay/mining fee a transaction must pay
// (spec §4.D.5 step 7): ceil(size/1000)*10000, raised to 50000 whenever
// any output is under 1,000,000 satoshis (a dust-discouragement bump),
// capped at blockchain.MaxSatoshi.
func minFee(tx *wire.MsgTx) int64 {
	size := int64(tx.SerializeSize())
	fee := ((size + 999) / 1000) * baseFeePerKB

	for _, out := range tx.TxOut {
		if out.Value < smallOutputMax {
			if fee < smallOutputFee {
				fee = smallOutputFee
			}
			break
		}
	}

	if fee > blockchain.MaxSatoshi {
		fee = blockchain.MaxSatoshi
	}
	return fee
}

func isFreeRelay(tx *wire.MsgTx, fee int64) bool {
	size := int64(tx.SerializeSize())
	feePerKB := fee * 1000 / size
	return feePerKB < freeRelayFeeThreshold
}
