// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

// MaxSatoshi is the maximum value, in the smallest unit, a single
// output (and therefore a transaction's total output value) may carry.
const MaxSatoshi = 21000000 * 100000000

// maxTimeOffset bounds how far into the future a block's timestamp may
// lie relative to the node's own clock (spec §4.D.1 "time too new").
const maxTimeOffset = 2 * time.Hour

// maxBlockSigOps caps the signature operations a single block may carry.
const maxBlockSigOps = 20000

// CheckTransactionSanity performs context-free checks on a transaction:
// structural validity independent of the UTXO set or chain state (spec
// §4.D.1's "context-free" pass, §7's structural error class).
func CheckTransactionSanity(tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}
	if tx.SerializeSize() > wire.MaxBlockPayload {
		return ruleErrorf(ErrBlockTooBig, "serialized transaction is too big: %d bytes", tx.SerializeSize())
	}

	var total int64
	for _, out := range tx.TxOut {
		if out.Value < 0 || out.Value > MaxSatoshi {
			return ruleErrorf(ErrBadTxOutValue, "transaction output value of %d is out of range", out.Value)
		}
		total += out.Value
		if total < 0 || total > MaxSatoshi {
			return ruleErrorf(ErrBadTxOutValue, "total output value %d exceeds max %d", total, MaxSatoshi)
		}
	}

	seen := make(map[wire.Outpoint]struct{}, len(tx.TxIn))
	for _, in := range tx.TxIn {
		if _, dup := seen[in.PreviousOutpoint]; dup {
			return ruleError(ErrDuplicateTxInputs, "transaction spends the same outpoint more than once")
		}
		seen[in.PreviousOutpoint] = struct{}{}
	}

	if tx.IsCoinbase() {
		slen := len(tx.TxIn[0].SignatureScript)
		if slen < 2 || slen > 100 {
			return ruleErrorf(ErrBadCoinbaseScriptLen, "coinbase script length %d is out of range [2, 100]", slen)
		}
	} else {
		for _, in := range tx.TxIn {
			if isNullOutpoint(&in.PreviousOutpoint) {
				return ruleError(ErrMissingTxOut, "transaction input refers to the null outpoint")
			}
		}
	}
	return nil
}

func isNullOutpoint(op *wire.Outpoint) bool {
	return op.Index == 0xffffffff && op.Hash == (chainhashZero)
}

var chainhashZero = emptyHash()

// CalcBlockSubsidy returns the coinbase value at the given height, the
// classic halving schedule (spec §4.D).
func CalcBlockSubsidy(height int32, params *chaincfg.Params) int64 {
	if params.SubsidyHalvingInterval == 0 {
		return 50 * 100000000
	}
	halvings := uint(height) / uint(params.SubsidyHalvingInterval)
	if halvings >= 64 {
		return 0
	}
	return (50 * 100000000) >> halvings
}

// CountSigOps returns the (possibly overestimated, as with bare
// CHECKSIG in non-P2SH scripts) signature-operation count of a
// transaction's inputs and outputs, used for the per-block sigop cap.
func CountSigOps(tx *wire.MsgTx) int {
	n := 0
	for _, out := range tx.TxOut {
		n += countSigOpsInScript(out.PkScript)
	}
	for _, in := range tx.TxIn {
		n += countSigOpsInScript(in.SignatureScript)
	}
	return n
}

func countSigOpsInScript(script []byte) int {
	switch txscript.GetScriptClass(script) {
	case txscript.PubKeyTy, txscript.PubKeyHashTy:
		return 1
	case txscript.MultiSigTy:
		return 20
	default:
		return 0
	}
}

// checkProofOfWork reports whether header's hash satisfies its own
// claimed difficulty target and that target doesn't exceed the
// network's PowLimit floor.
func checkProofOfWork(header *wire.BlockHeader, params *chaincfg.Params) error {
	target := CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		return ruleError(ErrBadDifficultyBits, "block target difficulty is non-positive")
	}
	if target.Cmp(params.PowLimit) > 0 {
		return ruleError(ErrBadDifficultyBits, "block target difficulty is higher than max allowed")
	}
	hash := header.BlockHash()
	hashNum := hashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		return ruleError(ErrBadProofOfWork, "block hash does not satisfy its claimed proof of work")
	}
	return nil
}

// checkBlockSanity runs the context-free checks on a full block: header
// proof-of-work, non-empty/first-is-coinbase/single-coinbase
// transaction layout, the Merkle root tying the header to its body,
// per-transaction sanity, and the per-block sigop cap.
func checkBlockSanity(block *wire.MsgBlock, params *chaincfg.Params, now time.Time) error {
	if err := checkProofOfWork(&block.Header, params); err != nil {
		return err
	}
	if block.Header.Timestamp.After(now.Add(maxTimeOffset)) {
		return ruleError(ErrTimeTooNew, "block timestamp is too far in the future")
	}
	if len(block.Transactions) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}
	if !block.Transactions[0].IsCoinbase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if tx.IsCoinbase() {
			return ruleError(ErrMultipleCoinbases, "block contains more than one coinbase transaction")
		}
	}
	sigOps := 0
	for _, tx := range block.Transactions {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}
		sigOps += CountSigOps(tx)
	}
	if sigOps > maxBlockSigOps {
		return ruleErrorf(ErrTooManySigOps, "block contains %d signature operations, max %d", sigOps, maxBlockSigOps)
	}

	computed := merkleRootOf(block)
	if computed != block.Header.MerkleRoot {
		return ruleError(ErrBadMerkleRoot, "block merkle root does not match computed value")
	}
	return nil
}
