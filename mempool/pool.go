// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math"
	"sync"

	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

// Hooks receives mempool events, dispatched into the observer/hook bus
// (spec §4.H).
type Hooks struct {
	OnTxAccepted func(tx *wire.MsgTx)
}

// Pool is the unconfirmed transaction pool (spec §4.D.5): accepted
// transactions indexed by hash and by the outpoints they spend
// (`by_prev`, used for the disabled-replacement conflict check), an
// orphan sub-pool for transactions with an as-yet-unknown parent, and
// the free-relay throttle.
type Pool struct {
	mu     sync.RWMutex
	chain  *blockchain.Chain
	params *chaincfg.Params

	txByHash map[chainhash.Hash]*wire.MsgTx
	byPrev   map[wire.Outpoint]chainhash.Hash

	debits  map[chainhash.Hash160][]wire.Outpoint
	credits map[chainhash.Hash160][]wire.Outpoint

	orphans   *orphanTxPool
	freeRelay *freeRelayThrottle

	Hooks Hooks
}

// New returns an empty mempool bound to chain for UTXO/maturity lookups.
func New(chain *blockchain.Chain, params *chaincfg.Params) *Pool {
	return &Pool{
		chain:     chain,
		params:    params,
		txByHash:  make(map[chainhash.Hash]*wire.MsgTx),
		byPrev:    make(map[wire.Outpoint]chainhash.Hash),
		debits:    make(map[chainhash.Hash160][]wire.Outpoint),
		credits:   make(map[chainhash.Hash160][]wire.Outpoint),
		orphans:   newOrphanTxPool(),
		freeRelay: newFreeRelayThrottle(defaultFreeRelayLimitBytesPerMinute),
	}
}

// HaveTransaction reports whether hash is already known, either pending
// in the pool or previously confirmed.
func (p *Pool) HaveTransaction(hash *chainhash.Hash) bool {
	p.mu.RLock()
	_, inPool := p.txByHash[*hash]
	p.mu.RUnlock()
	if inPool {
		return true
	}
	return p.chain.HaveConfirmedTx(hash)
}

// LookupTransaction returns a pending transaction by hash, for
// gettxdetails's mempool-side lookup (spec §6). It does not consult the
// chain's confirmed-transaction store.
func (p *Pool) LookupTransaction(hash *chainhash.Hash) (*wire.MsgTx, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.txByHash[*hash]
	return tx, ok
}

// ProcessTransaction runs acceptTransaction (spec §4.D.5) end to end:
// context-free checks, coinbase/lock-time/standardness rejection,
// duplicate and conflict checks, connectInputs in mempool mode, the
// free-relay throttle, and orphan draining on success.
func (p *Pool) ProcessTransaction(tx *wire.MsgTx) (isOrphan bool, err error) {
	if err := blockchain.CheckTransactionSanity(tx); err != nil {
		return false, err
	}
	if tx.IsCoinbase() {
		return false, txRuleError(ErrNonStandard, "coinbase transactions are not relayed or accepted into the mempool")
	}
	if tx.LockTime > math.MaxInt32 {
		return false, txRuleError(ErrNonStandard, "transaction lock time exceeds the maximum allowed value")
	}
	if err := checkTransactionStandard(tx); err != nil {
		return false, err
	}

	hash := tx.TxHash()
	if p.HaveTransaction(&hash) {
		return false, txRuleErrorf(ErrAlreadyKnown, "transaction %s is already known", hash)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if conflict := p.findConflict(tx); conflict {
		return false, txRuleError(ErrDoubleSpend, "transaction conflicts with an unconfirmed spend already in the mempool (replacement is disabled)")
	}

	fee, missingParents, err := p.connectInputs(tx)
	if err != nil {
		return false, err
	}
	if len(missingParents) > 0 {
		p.orphans.add(tx, missingParents)
		return true, nil
	}

	if isFreeRelay(tx, fee) && !p.freeRelay.allow(tx.SerializeSize()) {
		return false, txRuleError(ErrFreeRelayThrottled, "free-relay throttle exceeded for this transaction's fee rate")
	}

	p.insert(tx, hash)
	if p.Hooks.OnTxAccepted != nil {
		p.Hooks.OnTxAccepted(tx)
	}

	p.drainOrphans(hash)
	return false, nil
}

// findConflict reports whether any of tx's inputs double-spends an
// outpoint another pending mempool transaction already spends. Spec
// §4.D.5 step 6: the sequence-number replace-by-newer path exists in
// the original source but stays permanently disabled here.
func (p *Pool) findConflict(tx *wire.MsgTx) bool {
	for _, in := range tx.TxIn {
		if _, conflict := p.byPrev[in.PreviousOutpoint]; conflict {
			return true
		}
	}
	return false
}

// connectInputs resolves every input against either a confirmed UTXO or
// another pending mempool transaction's output, verifying its script
// and coinbase maturity, and returns the transaction's fee. Inputs that
// resolve to nothing are returned as missingParents so the caller can
// buffer tx as an orphan instead of rejecting it outright.
func (p *Pool) connectInputs(tx *wire.MsgTx) (fee int64, missingParents []chainhash.Hash, err error) {
	tentativeHeight := p.chain.BestHeight() + 1
	var inputSum int64

	for txi, in := range tx.TxIn {
		if parentTx, ok := p.txByHash[in.PreviousOutpoint.Hash]; ok {
			if int(in.PreviousOutpoint.Index) >= len(parentTx.TxOut) {
				return 0, nil, txRuleError(ErrMissingTxOut, "input refers to an out-of-range output of an in-mempool transaction")
			}
			out := parentTx.TxOut[in.PreviousOutpoint.Index]
			inputSum += out.Value

			engine, err := txscript.NewEngine(out.PkScript, tx, txi, blockchain.StandardScriptVerifyFlags, out.Value)
			if err != nil {
				return 0, nil, txRuleErrorf(ErrScriptVerification, "constructing script engine: %v", err)
			}
			if err := engine.Execute(); err != nil {
				return 0, nil, txRuleErrorf(ErrScriptVerification, "script verification failed: %v", err)
			}
			continue
		}

		utxo, ok := p.chain.LookupUTXO(in.PreviousOutpoint)
		if !ok {
			missingParents = append(missingParents, in.PreviousOutpoint.Hash)
			continue
		}
		if utxo.IsCoinbase && tentativeHeight-utxo.Height < p.chain.CoinbaseMaturity() {
			return 0, nil, txRuleError(ErrImmatureSpend, "attempt to spend an immature coinbase output")
		}
		inputSum += utxo.Out.Value

		engine, err := txscript.NewEngine(utxo.Out.PkScript, tx, txi, blockchain.StandardScriptVerifyFlags, utxo.Out.Value)
		if err != nil {
			return 0, nil, txRuleErrorf(ErrScriptVerification, "constructing script engine: %v", err)
		}
		if err := engine.Execute(); err != nil {
			return 0, nil, txRuleErrorf(ErrScriptVerification, "script verification failed: %v", err)
		}
	}

	if len(missingParents) > 0 {
		return 0, missingParents, nil
	}

	var outputSum int64
	for _, out := range tx.TxOut {
		outputSum += out.Value
	}
	if inputSum < outputSum {
		return 0, nil, txRuleError(ErrSpendTooHigh, "transaction spends more than its inputs provide")
	}
	fee = inputSum - outputSum
	if fee < minFee(tx) {
		return 0, nil, txRuleErrorf(ErrFeeTooLow, "transaction fee %d is below the required minimum of %d", fee, minFee(tx))
	}
	return fee, nil, nil
}

// insert records an accepted transaction into the pool's indices (spec
// §4.D.5 step 9): tx_by_hash, by_prev, and the mempool address indices.
func (p *Pool) insert(tx *wire.MsgTx, hash chainhash.Hash) {
	p.txByHash[hash] = tx
	for _, in := range tx.TxIn {
		p.byPrev[in.PreviousOutpoint] = hash
		if parentTx, ok := p.txByHash[in.PreviousOutpoint.Hash]; ok {
			_, addr, ok := txscript.ExtractPkScriptAddr(parentTx.TxOut[in.PreviousOutpoint.Index].PkScript)
			if ok {
				p.credits[addr] = append(p.credits[addr], in.PreviousOutpoint)
			}
		}
	}
	for i, out := range tx.TxOut {
		_, addr, ok := txscript.ExtractPkScriptAddr(out.PkScript)
		if ok {
			p.debits[addr] = append(p.debits[addr], wire.Outpoint{Hash: hash, Index: uint32(i)})
		}
	}
}

// drainOrphans retries every orphan that named hash as a missing
// parent (spec §4.D.5 step 10). Must be called with p.mu held.
func (p *Pool) drainOrphans(hash chainhash.Hash) {
	for _, orphan := range p.orphans.drainChildrenOf(hash) {
		p.mu.Unlock()
		_, _ = p.ProcessTransaction(orphan)
		p.mu.Lock()
	}
}

// PendingDebits returns the mempool-side half of getdebit's result
// (spec §6): outputs paying address in transactions not yet confirmed.
func (p *Pool) PendingDebits(address *chainhash.Hash160) []wire.Outpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]wire.Outpoint(nil), p.debits[*address]...)
}

// PendingCredits returns the mempool-side half of getcredit's result
// (spec §6): outputs address has spent in transactions not yet
// confirmed.
func (p *Pool) PendingCredits(address *chainhash.Hash160) []wire.Outpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]wire.Outpoint(nil), p.credits[*address]...)
}

// UnspentCoins implements the address-balance API (spec §4.D.6):
// debits[addr] ∪ mempool_debits[addr], minus every input found in
// credits[addr] ∪ mempool_credits[addr].
func (p *Pool) UnspentCoins(address *chainhash.Hash160) []wire.Outpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	spent := make(map[wire.Outpoint]struct{})
	for _, op := range p.chain.CreditSet(address) {
		spent[op] = struct{}{}
	}
	for _, op := range p.credits[*address] {
		spent[op] = struct{}{}
	}

	var coins []wire.Outpoint
	for _, op := range p.chain.DebitSet(address) {
		if _, ok := spent[op]; !ok {
			coins = append(coins, op)
		}
	}
	for _, op := range p.debits[*address] {
		if _, ok := spent[op]; !ok {
			coins = append(coins, op)
		}
	}
	return coins
}
