// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

// StandardScriptVerifyFlags are the standard flags enforced when
// connecting a block's transactions (spec §4.D.3) — also the flag set
// mempool's connectInputs pass verifies spends under, so a transaction
// accepted into the mempool never fails this check again on confirmation.
const StandardScriptVerifyFlags = txscript.ScriptBip16 |
	txscript.ScriptVerifyStrictEncoding |
	txscript.ScriptVerifyLowS

const scriptVerifyFlags = StandardScriptVerifyFlags

// connectBlock applies a block's transactions to the UTXO set (spec
// §4.D.3): staged resolves spends of outputs created earlier in this
// block or an earlier block of the same reorganization, and every
// input is checked for existence/non-spentness/maturity/value/script
// validity. batch and staged are shared across every block of a
// reorganization (spec §4.D.2, §5: "every reorganization is a single
// transaction") — connectBlock only queues writes onto batch; it never
// commits it, and it never touches the in-memory BlockIndex or fires
// hooks. The caller applies those only once the shared batch has
// actually committed.
func (c *Chain) connectBlock(batch *database.Batch, staged map[chainhash.Hash]*database.TxIndex, idx uint32, block *wire.MsgBlock) error {
	height := c.index.Height(idx)
	blockFilePos := c.index.FilePos(idx)
	txOffsets := database.TxByteOffsets(block)
	var dirty []chainhash.Hash

	fetch := func(hash chainhash.Hash) (*database.TxIndex, error) {
		if ti, ok := staged[hash]; ok {
			return ti, nil
		}
		data, err := c.db.Get(database.TxKey(&hash))
		if err != nil {
			return nil, err
		}
		ti, err := database.DeserializeTxIndex(data)
		if err != nil {
			return nil, err
		}
		staged[hash] = ti
		return ti, nil
	}

	var totalFees int64
	for txi, tx := range block.Transactions {
		hash := tx.TxHash()

		if !tx.IsCoinbase() {
			var inputSum int64
			for _, in := range tx.TxIn {
				prevHash := in.PreviousOutpoint.Hash
				prevTi, err := fetch(prevHash)
				if err != nil {
					return ruleErrorf(ErrMissingTxOut, "input refers to unknown transaction %s", prevHash)
				}
				prevIndex := in.PreviousOutpoint.Index
				if int(prevIndex) >= len(prevTi.Spent) {
					return ruleError(ErrMissingTxOut, "input refers to an out-of-range output index")
				}
				if !prevTi.Spent[prevIndex].IsNull() {
					return ruleError(ErrDoubleSpend, "input double-spends an already-spent output")
				}

				prevTx, err := c.db.ReadTx(prevTi.Pos)
				if err != nil {
					return errors.Wrap(err, "reading previous transaction")
				}
				if prevTx.IsCoinbase() {
					prevHeight, ok := c.index.HeightAtFilePos(prevTi.Pos.FileNo, prevTi.Pos.BlockOff)
					if !ok {
						return ruleError(ErrImmatureSpend, "cannot locate containing block of spent coinbase output")
					}
					if height-prevHeight < int32(c.params.CoinbaseMaturity) {
						return ruleError(ErrImmatureSpend, "attempt to spend an immature coinbase output")
					}
				}

				prevOut := prevTx.TxOut[prevIndex]
				if prevOut.Value < 0 || prevOut.Value > MaxSatoshi {
					return ruleError(ErrBadTxOutValue, "previous output value is out of range")
				}
				inputSum += prevOut.Value

				engine, err := txscript.NewEngine(prevOut.PkScript, tx, txi, scriptVerifyFlags, prevOut.Value)
				if err != nil {
					return errors.Wrap(err, "constructing script engine")
				}
				if err := engine.Execute(); err != nil {
					return errors.Wrap(err, "script verification failed")
				}

				prevTi.Spent[prevIndex] = database.DiskTxPos{
					FileNo:   blockFilePos.FileNo,
					BlockOff: blockFilePos.BlockOff,
					TxOff:    txOffsets[txi],
				}
				staged[prevHash] = prevTi
				dirty = append(dirty, prevHash)

				c.updateAddressIndex(batch, prevOut.PkScript, in.PreviousOutpoint, false)
			}

			var outputSum int64
			for _, out := range tx.TxOut {
				outputSum += out.Value
			}
			if inputSum < outputSum {
				return ruleError(ErrSpendTooHigh, "transaction spends more than its inputs provide")
			}
			totalFees += inputSum - outputSum
		}

		newTi := &database.TxIndex{
			Pos:   database.DiskTxPos{FileNo: blockFilePos.FileNo, BlockOff: blockFilePos.BlockOff, TxOff: txOffsets[txi]},
			Spent: make([]database.DiskTxPos, len(tx.TxOut)),
		}
		staged[hash] = newTi
		dirty = append(dirty, hash)

		for i, out := range tx.TxOut {
			c.updateAddressIndex(batch, out.PkScript, wire.Outpoint{Hash: hash, Index: uint32(i)}, true)
		}
	}

	subsidy := CalcBlockSubsidy(height, c.params)
	coinbaseOut := block.Transactions[0].TxOut
	var coinbaseTotal int64
	for _, out := range coinbaseOut {
		coinbaseTotal += out.Value
	}
	if coinbaseTotal > subsidy+totalFees {
		return ruleError(ErrBadCoinbaseValue, "coinbase pays more than the allowed subsidy plus fees")
	}

	for _, hash := range dirty {
		hash := hash
		data, err := staged[hash].Serialize()
		if err != nil {
			return err
		}
		batch.Put(database.TxKey(&hash), data)
	}

	return nil
}

// disconnectBlock reverses connectBlock: every output this block's
// transactions created is deleted from the tx index, and every output
// they spent is marked unspent again. Transactions within the block
// are undone in reverse order (spec §4.D.3): a block may contain a
// chained spend (tx B spending an output tx A created earlier in the
// same block), and only undoing B before A guarantees A's own delete
// is the last, winning write queued for A's key rather than being
// clobbered by the unspend B's undo stages for it. batch is shared
// across every block of a reorganization and committed exactly once by
// the caller; disconnectBlock never commits it and never touches the
// in-memory BlockIndex.
func (c *Chain) disconnectBlock(batch *database.Batch, idx uint32, block *wire.MsgBlock) error {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		hash := tx.TxHash()
		batch.Delete(database.TxKey(&hash))

		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.TxIn {
			prevHash := in.PreviousOutpoint.Hash
			data, err := c.db.Get(database.TxKey(&prevHash))
			if err != nil {
				return errors.Wrap(err, "reading previous transaction index during disconnect")
			}
			prevTi, err := database.DeserializeTxIndex(data)
			if err != nil {
				return err
			}
			prevTi.Spent[in.PreviousOutpoint.Index] = database.NullDiskTxPos
			serialized, err := prevTi.Serialize()
			if err != nil {
				return err
			}
			batch.Put(database.TxKey(&prevHash), serialized)
		}
	}

	return nil
}

// updateAddressIndex maintains the per-address debit ("dr") and credit
// ("cr") coin sets (spec §4.D.3, §4.D.6): an address's debit set gains
// an entry when one of its outputs is created (received), its credit
// set gains an entry when that output is later spent.
func (c *Chain) updateAddressIndex(batch *database.Batch, pkScript []byte, op wire.Outpoint, isReceive bool) {
	_, addr, ok := txscript.ExtractPkScriptAddr(pkScript)
	if !ok {
		return
	}
	key := database.DebitKey(&addr)
	if !isReceive {
		key = database.CreditKey(&addr)
	}
	existing, err := c.db.Get(key)
	var set *database.CoinSet
	if err == nil {
		set, err = database.DeserializeCoinSet(existing)
		if err != nil {
			set = &database.CoinSet{}
		}
	} else {
		set = &database.CoinSet{}
	}
	set.Add(op)
	data, err := set.Serialize()
	if err != nil {
		return
	}
	batch.Put(key, data)
}
