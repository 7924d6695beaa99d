// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// orphanExpiry bounds how long an orphan block may sit in the buffer
// without its parent arriving before it is evicted.
const orphanExpiry = time.Hour

type orphanBlock struct {
	block      *wire.MsgBlock
	expiration time.Time
}

// orphanBuffer holds blocks received before their parent (spec §4.E.4:
// "stored under both hash and prev-hash maps; when the parent lands,
// the orphan set is drained breadth-first").
type orphanBuffer struct {
	byHash     map[chainhash.Hash]*orphanBlock
	byPrevHash map[chainhash.Hash][]*orphanBlock
}

func newOrphanBuffer() *orphanBuffer {
	return &orphanBuffer{
		byHash:     make(map[chainhash.Hash]*orphanBlock),
		byPrevHash: make(map[chainhash.Hash][]*orphanBlock),
	}
}

func (ob *orphanBuffer) isKnown(hash *chainhash.Hash) bool {
	_, ok := ob.byHash[*hash]
	return ok
}

func (ob *orphanBuffer) add(block *wire.MsgBlock) {
	hash := block.BlockHash()
	if ob.isKnown(&hash) {
		return
	}
	o := &orphanBlock{block: block, expiration: time.Now().Add(orphanExpiry)}
	ob.byHash[hash] = o
	prev := block.Header.PrevBlock
	ob.byPrevHash[prev] = append(ob.byPrevHash[prev], o)
}

func (ob *orphanBuffer) remove(o *orphanBlock) {
	hash := o.block.BlockHash()
	delete(ob.byHash, hash)
	prev := o.block.Header.PrevBlock
	siblings := ob.byPrevHash[prev]
	for i, s := range siblings {
		if s == o {
			ob.byPrevHash[prev] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(ob.byPrevHash[prev]) == 0 {
		delete(ob.byPrevHash, prev)
	}
}

// drainChildrenOf breadth-first dequeues and returns every orphan whose
// (possibly-chained) parent is hash, removing them from the buffer as
// they're returned so the caller can attempt acceptance on each in turn.
func (ob *orphanBuffer) drainChildrenOf(hash chainhash.Hash) []*wire.MsgBlock {
	var drained []*wire.MsgBlock
	queue := []chainhash.Hash{hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		children := append([]*orphanBlock(nil), ob.byPrevHash[h]...)
		for _, child := range children {
			ob.remove(child)
			drained = append(drained, child.block)
			queue = append(queue, child.block.BlockHash())
		}
	}
	return drained
}

// purgeExpired evicts orphans that have outlived orphanExpiry without
// their parent arriving.
func (ob *orphanBuffer) purgeExpired(now time.Time) {
	for _, o := range ob.byHash {
		if now.After(o.expiration) {
			ob.remove(o)
		}
	}
}
