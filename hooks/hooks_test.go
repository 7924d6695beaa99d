// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hooks

import (
	"testing"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

type recordingListener struct {
	NopListener
	txs    int
	blocks int
}

func (r *recordingListener) OnTxAccepted(*wire.MsgTx)         { r.txs++ }
func (r *recordingListener) OnBlockAccepted(*wire.MsgBlock, int32) { r.blocks++ }

func TestBusDispatchesToAllListeners(t *testing.T) {
	b := New()
	a := &recordingListener{}
	c := &recordingListener{}
	b.Subscribe(a)
	b.Subscribe(c)

	chainHooks := b.WireChain()
	chainHooks.OnBlockAccepted(&wire.MsgBlock{}, 1)

	if a.blocks != 1 || c.blocks != 1 {
		t.Fatalf("expected both listeners notified, got a=%d c=%d", a.blocks, c.blocks)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	a := &recordingListener{}
	unsub := b.Subscribe(a)

	memHooks := b.WireMempool()
	memHooks.OnTxAccepted(&wire.MsgTx{})
	if a.txs != 1 {
		t.Fatalf("expected 1 delivery before unsubscribe, got %d", a.txs)
	}

	unsub()
	memHooks.OnTxAccepted(&wire.MsgTx{})
	if a.txs != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", a.txs)
	}
}

func TestWireChainReorganizeReachesListener(t *testing.T) {
	b := New()
	var got [2]chainhash.Hash
	b.Subscribe(reorgListener{onReorg: func(oldBest, newBest chainhash.Hash) {
		got[0] = oldBest
		got[1] = newBest
	}})

	chainHooks := b.WireChain()
	oldBest := chainhash.HashH([]byte("old"))
	newBest := chainhash.HashH([]byte("new"))
	chainHooks.OnReorganize(oldBest, newBest)

	if got[0] != oldBest || got[1] != newBest {
		t.Fatal("expected the exact hashes passed through to the listener")
	}
}

type reorgListener struct {
	NopListener
	onReorg func(oldBest, newBest chainhash.Hash)
}

func (r reorgListener) OnReorganize(oldBest, newBest chainhash.Hash) {
	r.onReorg(oldBest, newBest)
}
