// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// orphanExpiry bounds how long an orphan transaction may sit in the
// pool without its missing parent ever arriving.
const orphanExpiry = time.Hour

type orphanTx struct {
	tx         *wire.MsgTx
	expiration time.Time
}

// orphanTxPool holds transactions whose connectInputs pass found at
// least one input referring to a transaction this node doesn't yet
// know (spec §4.D.5 step 7): "mark the tx as orphan and store it keyed
// by each missing prev hash".
type orphanTxPool struct {
	byHash     map[chainhash.Hash]*orphanTx
	byPrevHash map[chainhash.Hash][]*orphanTx
}

func newOrphanTxPool() *orphanTxPool {
	return &orphanTxPool{
		byHash:     make(map[chainhash.Hash]*orphanTx),
		byPrevHash: make(map[chainhash.Hash][]*orphanTx),
	}
}

func (op *orphanTxPool) isKnown(hash *chainhash.Hash) bool {
	_, ok := op.byHash[*hash]
	return ok
}

// add indexes tx under every distinct hash in missingParents, so it can
// be found and retried once any one of its missing parents arrives.
func (op *orphanTxPool) add(tx *wire.MsgTx, missingParents []chainhash.Hash) {
	hash := tx.TxHash()
	if op.isKnown(&hash) {
		return
	}
	o := &orphanTx{tx: tx, expiration: time.Now().Add(orphanExpiry)}
	op.byHash[hash] = o
	seen := make(map[chainhash.Hash]struct{}, len(missingParents))
	for _, p := range missingParents {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		op.byPrevHash[p] = append(op.byPrevHash[p], o)
	}
}

func (op *orphanTxPool) remove(o *orphanTx) {
	hash := o.tx.TxHash()
	delete(op.byHash, hash)
	for _, in := range o.tx.TxIn {
		prev := in.PreviousOutpoint.Hash
		siblings := op.byPrevHash[prev]
		for i, s := range siblings {
			if s == o {
				op.byPrevHash[prev] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		if len(op.byPrevHash[prev]) == 0 {
			delete(op.byPrevHash, prev)
		}
	}
}

// drainChildrenOf returns (and removes) every orphan that named hash as
// a missing parent, so the caller can retry acceptance on each (spec
// §4.D.5 step 10).
func (op *orphanTxPool) drainChildrenOf(hash chainhash.Hash) []*wire.MsgTx {
	candidates := append([]*orphanTx(nil), op.byPrevHash[hash]...)
	var drained []*wire.MsgTx
	for _, o := range candidates {
		op.remove(o)
		drained = append(drained, o.tx)
	}
	return drained
}

func (op *orphanTxPool) purgeExpired(now time.Time) {
	for _, o := range op.byHash {
		if now.After(o.expiration) {
			op.remove(o)
		}
	}
}
