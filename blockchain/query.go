// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/wire"
)

// Utxo is a confirmed, unspent output resolved by LookupUTXO — enough
// for the mempool's connectInputs pass to value, mature-check, and
// script-verify a spend (spec §4.D.5).
type Utxo struct {
	Out        wire.TxOut
	IsCoinbase bool
	Height     int32
}

// LookupUTXO resolves a confirmed, currently-unspent output. It reports
// ok=false both when the transaction is unknown and when the specific
// output has already been spent on the main chain.
func (c *Chain) LookupUTXO(op wire.Outpoint) (*Utxo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := c.db.Get(database.TxKey(&op.Hash))
	if err != nil {
		return nil, false
	}
	ti, err := database.DeserializeTxIndex(data)
	if err != nil || int(op.Index) >= len(ti.Spent) || !ti.Spent[op.Index].IsNull() {
		return nil, false
	}

	tx, err := c.db.ReadTx(ti.Pos)
	if err != nil || int(op.Index) >= len(tx.TxOut) {
		return nil, false
	}

	height, _ := c.index.HeightAtFilePos(ti.Pos.FileNo, ti.Pos.BlockOff)
	return &Utxo{
		Out:        *tx.TxOut[op.Index],
		IsCoinbase: tx.IsCoinbase(),
		Height:     height,
	}, true
}

// ConfirmedTx re-reads a confirmed transaction's full serialized form
// from the block file, for gettxdetails's confirmed-transaction lookup
// (spec §6) once a hash isn't found pending in the mempool.
func (c *Chain) ConfirmedTx(hash *chainhash.Hash) (*wire.MsgTx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := c.db.Get(database.TxKey(hash))
	if err != nil {
		return nil, errors.Errorf("unknown transaction %s", hash)
	}
	ti, err := database.DeserializeTxIndex(data)
	if err != nil {
		return nil, err
	}
	return c.db.ReadTx(ti.Pos)
}

// TxBlockHeight returns the absolute height of the block a confirmed
// transaction is contained in, for gettxdetails's blockheight field
// (spec §6).
func (c *Chain) TxBlockHeight(hash *chainhash.Hash) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.txHeightLocked(hash)
}

// TxConfirmations returns how many blocks deep a confirmed transaction
// sits below the current tip (1 for a transaction in the tip itself),
// for gettxmaturity's confirmation count (spec §6).
func (c *Chain) TxConfirmations(hash *chainhash.Hash) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	height, ok := c.txHeightLocked(hash)
	if !ok {
		return 0, false
	}
	bestHeight := c.index.Height(c.index.Best())
	return bestHeight - height + 1, true
}

// txHeightLocked resolves a confirmed transaction's containing-block
// height. Callers must hold c.mu.
func (c *Chain) txHeightLocked(hash *chainhash.Hash) (int32, bool) {
	data, err := c.db.Get(database.TxKey(hash))
	if err != nil {
		return 0, false
	}
	ti, err := database.DeserializeTxIndex(data)
	if err != nil {
		return 0, false
	}
	return c.index.HeightAtFilePos(ti.Pos.FileNo, ti.Pos.BlockOff)
}

// HaveConfirmedTx reports whether hash names a transaction already
// recorded in the tx index (confirmed on the main chain at some point
// in its history — spent outputs still count, unlike LookupUTXO).
func (c *Chain) HaveConfirmedTx(hash *chainhash.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	has, err := c.db.Has(database.TxKey(hash))
	return err == nil && has
}

// CoinbaseMaturity exposes the network parameter mempool policy needs
// to replicate blockchain's maturity rule against the tentative spend
// height (current best height + 1).
func (c *Chain) CoinbaseMaturity() int32 {
	return int32(c.params.CoinbaseMaturity)
}

// DebitSet returns the confirmed outputs paid to address (spec §4.D.6's
// `debits[addr]`).
func (c *Chain) DebitSet(address *chainhash.Hash160) []wire.Outpoint {
	return c.readCoinSet(database.DebitKey(address))
}

// CreditSet returns the confirmed outputs address has spent (spec
// §4.D.6's `credits[addr]`).
func (c *Chain) CreditSet(address *chainhash.Hash160) []wire.Outpoint {
	return c.readCoinSet(database.CreditKey(address))
}

func (c *Chain) readCoinSet(key []byte) []wire.Outpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := c.db.Get(key)
	if err != nil {
		return nil
	}
	set, err := database.DeserializeCoinSet(data)
	if err != nil {
		return nil
	}
	return set.Coins
}

// LocateBlocks answers a getblocks request (spec §4.E.4): up to
// maxHashes block hashes walking forward on the main chain from the
// locator's best-known ancestor, stopping at hashStop.
func (c *Chain) LocateBlocks(locator BlockLocator, hashStop *chainhash.Hash, maxHashes uint32) []chainhash.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.LocateBlocks(locator, hashStop, maxHashes)
}

// LocateHeaders answers a getheaders request (spec §4.E.4): the
// header-only analogue of LocateBlocks, up to maxHeaders entries.
func (c *Chain) LocateHeaders(locator BlockLocator, hashStop *chainhash.Hash, maxHeaders uint32) []wire.BlockHeader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.LocateHeaders(locator, hashStop, maxHeaders)
}

// BlockByHash re-reads a known block's full serialized form from the
// block file, for getdata's block-inventory response (spec §4.E.4).
func (c *Chain) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	c.mu.RLock()
	idx, ok := c.index.Lookup(hash)
	if !ok {
		c.mu.RUnlock()
		return nil, errors.Errorf("unknown block %s", hash)
	}
	pos := c.index.FilePos(idx)
	c.mu.RUnlock()
	return c.db.ReadBlock(pos)
}

// BestInvalidWork returns the cumulative work of the best-known branch
// that never became the main chain (spec's supplemented
// best-invalid-work diagnostic).
func (c *Chain) BestInvalidWork() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.bestInvalidWork)
}
