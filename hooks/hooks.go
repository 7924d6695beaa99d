// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hooks implements the observer/hook bus (spec §4.H): a
// registry of wallet and RPC listeners dispatched on accepted
// transaction, accepted block, and reorganization events, replacing the
// direct singleton calls the original implementation made from the
// wallet into the chain engine.
package hooks

import (
	"sync"

	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/mempool"
	"github.com/libcoin/utxod/wire"
)

var log = logger.Get(logger.HOOK)

// Listener receives the four events the hook bus dispatches. A
// listener implementing only the callbacks it cares about can embed
// NopListener and override selectively.
type Listener interface {
	OnTxAccepted(tx *wire.MsgTx)
	OnBlockAccepted(block *wire.MsgBlock, height int32)
	OnBlockConnected(block *wire.MsgBlock, height int32)
	OnReorganize(oldBest, newBest chainhash.Hash)
}

// NopListener is embeddable by callers that only want a subset of
// Listener's callbacks.
type NopListener struct{}

func (NopListener) OnTxAccepted(*wire.MsgTx)                    {}
func (NopListener) OnBlockAccepted(*wire.MsgBlock, int32)        {}
func (NopListener) OnBlockConnected(*wire.MsgBlock, int32)       {}
func (NopListener) OnReorganize(oldBest, newBest chainhash.Hash) {}

// Bus fans out chain-engine and mempool events to every registered
// listener. Listeners are invoked synchronously and in registration
// order, under a read lock, mirroring the teacher's single-threaded
// notification style rather than spawning a goroutine per listener.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers l to receive every future event. It returns an
// unsubscribe function.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.listeners) && b.listeners[idx] == l {
			b.listeners[idx] = nil
		}
	}
}

func (b *Bus) each(f func(Listener)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.listeners {
		if l != nil {
			f(l)
		}
	}
}

// WireChain returns a blockchain.Hooks value dispatching into the bus,
// for assignment to Chain.Hooks.
func (b *Bus) WireChain() blockchain.Hooks {
	return blockchain.Hooks{
		OnBlockAccepted: func(block *wire.MsgBlock, height int32) {
			b.each(func(l Listener) { l.OnBlockAccepted(block, height) })
		},
		OnBlockConnected: func(block *wire.MsgBlock, height int32) {
			b.each(func(l Listener) { l.OnBlockConnected(block, height) })
		},
		OnReorganize: func(oldBest, newBest chainhash.Hash) {
			b.each(func(l Listener) { l.OnReorganize(oldBest, newBest) })
		},
		OnTxAccepted: func(tx *wire.MsgTx) {
			b.each(func(l Listener) { l.OnTxAccepted(tx) })
		},
	}
}

// WireMempool returns a mempool.Hooks value dispatching into the bus,
// for assignment to Pool.Hooks. Mempool acceptance and block-confirmed
// acceptance both funnel through the same OnTxAccepted callback: a
// listener cannot distinguish the two from this event alone, matching
// the original wallet's single "new transaction" notification.
func (b *Bus) WireMempool() mempool.Hooks {
	return mempool.Hooks{
		OnTxAccepted: func(tx *wire.MsgTx) {
			b.each(func(l Listener) { l.OnTxAccepted(tx) })
		},
	}
}
