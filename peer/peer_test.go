// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/libcoin/utxod/addrmgr"
	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/mempool"
	"github.com/libcoin/utxod/wire"
)

var chainhashZero = chainhash.Hash{}

func newTestPeer(t *testing.T) (*Peer, net.Conn) {
	t.Helper()
	db, err := database.Open(t.TempDir(), wire.RegressionNet)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	params := chaincfg.RegressionNetParams
	chain, err := blockchain.New(db, &params)
	if err != nil {
		t.Fatalf("initializing chain: %v", err)
	}
	pool := mempool.New(chain, &params)
	addrs := addrmgr.New(t.TempDir() + "/addr.dat")
	relay := NewRelayCache()

	local, remote := net.Pipe()
	t.Cleanup(func() { local.Close(); remote.Close() })

	me := wire.NetAddress{IP: net.ParseIP("127.0.0.1"), Port: 8333}
	p := New(local, false, chain, pool, addrs, relay, me)
	return p, remote
}

// TestHandshakeRejectsSelfConnect confirms a version message carrying
// this peer's own nonce is treated as a protocol violation (spec
// §4.E.2's self-connect detector).
func TestHandshakeRejectsSelfConnect(t *testing.T) {
	p, _ := newTestPeer(t)
	v := wire.NewMsgVersion(&wire.NetAddress{IP: net.ParseIP("127.0.0.1")}, &wire.NetAddress{IP: net.ParseIP("127.0.0.2")}, p.nonce, 0)
	if err := p.handleVersion(v); err == nil {
		t.Fatal("expected self-connect to be rejected")
	}
}

// TestHandshakeAcceptsDistinctNonce confirms a normal peer's version
// message completes the handshake and marks versionKnown.
func TestHandshakeAcceptsDistinctNonce(t *testing.T) {
	p, remote := newTestPeer(t)
	go func() {
		// drain whatever the handshake writes back (verack/getaddr/getblocks)
		buf := make([]byte, 4096)
		for {
			remote.SetReadDeadline(time.Now().Add(time.Second))
			if _, err := remote.Read(buf); err != nil {
				return
			}
		}
	}()

	v := wire.NewMsgVersion(&wire.NetAddress{IP: net.ParseIP("127.0.0.2")}, &wire.NetAddress{IP: net.ParseIP("127.0.0.1")}, p.nonce+1, 0)
	if err := p.handleVersion(v); err != nil {
		t.Fatalf("expected handshake to succeed, got: %v", err)
	}
	if !p.VersionKnown() {
		t.Fatal("expected versionKnown to be set")
	}
}

// TestDispatchBeforeVersionIsRejectedByReadLoop confirms any non-version
// message arriving before the handshake is a protocol violation.
func TestDispatchBeforeVersionIsRejectedByReadLoop(t *testing.T) {
	p, remote := newTestPeer(t)
	errCh := make(chan error, 1)
	go func() { errCh <- p.readLoop() }()

	if err := wire.WriteMessage(remote, &wire.MsgPing{Nonce: 1}, wire.ProtocolVersion, wire.MainNet); err != nil {
		t.Fatalf("writing ping: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a protocol violation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("readLoop did not return after malformed pre-handshake message")
	}
}

func TestRelayCacheExpiresAfterWindow(t *testing.T) {
	c := NewRelayCache()
	tx := &wire.MsgTx{Version: 1}
	c.entries[tx.TxHash()] = relayEntry{tx: tx, expires: time.Now().Add(-time.Second)}

	if _, ok := c.Get(tx.TxHash()); ok {
		t.Fatal("expected expired entry to be unavailable")
	}
}

func TestRelayCacheAddThenGet(t *testing.T) {
	c := NewRelayCache()
	tx := &wire.MsgTx{Version: 1}
	c.Add(tx)

	got, ok := c.Get(tx.TxHash())
	if !ok {
		t.Fatal("expected freshly added transaction to be available")
	}
	if got != tx {
		t.Fatal("expected the same transaction pointer back")
	}
}

func TestRelayCacheSweepRemovesExpired(t *testing.T) {
	c := NewRelayCache()
	tx := &wire.MsgTx{Version: 1}
	c.entries[tx.TxHash()] = relayEntry{tx: tx, expires: time.Now().Add(-time.Second)}
	c.Sweep()

	if _, ok := c.entries[tx.TxHash()]; ok {
		t.Fatal("expected Sweep to evict the expired entry")
	}
}

// TestHandleInvDedupsWithinWindow confirms a repeated inv for the same
// unknown item within the 2-minute window produces only one getdata.
func TestHandleInvDedupsWithinWindow(t *testing.T) {
	p, remote := newTestPeer(t)
	p.mu.Lock()
	p.versionKnown = true
	p.mu.Unlock()

	sent := make(chan *wire.MsgGetData, 2)
	go func() {
		for i := 0; i < 2; i++ {
			msg, _, err := wire.ReadMessage(remote, wire.ProtocolVersion, wire.MainNet)
			if err != nil {
				return
			}
			if gd, ok := msg.(*wire.MsgGetData); ok {
				sent <- gd
			}
		}
	}()

	iv := wire.NewInvVect(wire.InvTypeTx, &chainhashZero)
	inv := wire.NewMsgInv()
	inv.AddInvVect(iv)

	if err := p.handleInv(inv); err != nil {
		t.Fatalf("first handleInv: %v", err)
	}
	if err := p.handleInv(inv); err != nil {
		t.Fatalf("second handleInv: %v", err)
	}

	select {
	case gd := <-sent:
		if len(gd.InvList) != 1 {
			t.Fatalf("expected 1 inv item in first getdata, got %d", len(gd.InvList))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a getdata for the first, unseen inv item")
	}

	select {
	case <-sent:
		t.Fatal("expected no second getdata within the dedup window")
	case <-time.After(200 * time.Millisecond):
	}
}

// TestDispatchAlertWithoutTrackerIsIgnored confirms a MsgAlert arriving
// before any tracker is attached is silently dropped rather than
// treated as a protocol violation.
func TestDispatchAlertWithoutTrackerIsIgnored(t *testing.T) {
	p, _ := newTestPeer(t)
	msg := wire.NewMsgAlert(nil, nil)
	if err := p.dispatch(msg); err != nil {
		t.Fatalf("expected an untracked alert to be ignored, got: %v", err)
	}
}
