// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"net"
	"sync/atomic"

	"github.com/libcoin/utxod/addrmgr"
	"github.com/libcoin/utxod/alert"
	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/config"
	"github.com/libcoin/utxod/connmgr"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/hooks"
	"github.com/libcoin/utxod/mempool"
	"github.com/libcoin/utxod/peer"
	"github.com/libcoin/utxod/rpc"
	"github.com/libcoin/utxod/wire"
)

// node wraps every long-running utxod service (spec §4's chain engine,
// mempool, peer/connection layer, alert tracker and RPC surface),
// mirroring the teacher's kaspad wrapper struct (daglabs-btcd/kaspad.go)
// adapted from kaspad's DAG/netadapter stack to this module's
// blockchain/peer/connmgr stack.
type node struct {
	cfg *config.Config

	db     *database.DB
	chain  *blockchain.Chain
	pool   *mempool.Pool
	addrs  *addrmgr.Manager
	conns  *connmgr.ConnManager
	bus    *hooks.Bus
	alerts *alert.Tracker
	rpc    *rpc.Server
	relay  *peer.RelayCache

	started, shutdown int32
}

// newNode opens the database and wires every service together; it does
// not start accepting connections or serving RPC until start is called.
func newNode(cfg *config.Config) (*node, error) {
	params := cfg.NetParams()

	db, err := database.Open(cfg.HomeDir, params.Net)
	if err != nil {
		return nil, err
	}

	chain, err := blockchain.New(db, params)
	if err != nil {
		db.Close()
		return nil, err
	}
	pool := mempool.New(chain, params)
	bus := hooks.New()
	chain.Hooks = bus.WireChain()
	pool.Hooks = bus.WireMempool()

	addrs := addrmgr.New(cfg.AddrsFile)
	relay := peer.NewRelayCache()

	pubKey := params.AlertPubKey
	if cfg.AlertPubKey != "" {
		pubKey, err = hex.DecodeString(cfg.AlertPubKey)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	alerts, err := alert.New(pubKey, int32(wire.ProtocolVersion))
	if err != nil {
		db.Close()
		return nil, err
	}

	n := &node{
		cfg:    cfg,
		db:     db,
		chain:  chain,
		pool:   pool,
		addrs:  addrs,
		bus:    bus,
		alerts: alerts,
		relay:  relay,
	}
	n.conns = connmgr.New(addrs, n.onConnect)

	if !cfg.DisableRPC {
		n.rpc = rpc.New(rpc.Config{
			Listen:     cfg.RPCListen,
			User:       cfg.RPCUser,
			Pass:       cfg.RPCPass,
			MaxClients: cfg.RPCMaxClients,
		}, chain, pool, bus)
	}

	return n, nil
}

// onConnect drives a single connection's peer handshake, handed to
// connmgr as its OnConnect callback.
func (n *node) onConnect(conn net.Conn, inbound bool) {
	me := wire.NetAddress{IP: net.ParseIP("0.0.0.0")}
	p := peer.New(conn, inbound, n.chain, n.pool, n.addrs, n.relay, me)
	p.SetAlertTracker(n.alerts)
	p.Start()
}

// start launches every service: the address manager's purge loop, the
// connection manager's listener and outbound dialer, any explicit
// --connect peers, and the RPC server unless disabled.
func (n *node) start() error {
	if !atomic.CompareAndSwapInt32(&n.started, 0, 1) {
		return nil
	}

	n.addrs.Start()

	if n.cfg.Listen != "" {
		if err := n.conns.Listen(n.cfg.Listen); err != nil {
			return err
		}
	}
	spawn(n.conns.Run)

	for _, addr := range n.cfg.ConnectPeers {
		addr := addr
		spawn(func() { n.dialExplicit(addr) })
	}

	if n.rpc != nil {
		if err := n.rpc.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (n *node) dialExplicit(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Warnf("connecting to %s: %v", addr, err)
		return
	}
	n.onConnect(conn, false)
}

// stop gracefully shuts down every service, safe to call more than
// once.
func (n *node) stop() error {
	if !atomic.CompareAndSwapInt32(&n.shutdown, 0, 1) {
		return nil
	}

	n.conns.Stop()
	if err := n.addrs.Stop(); err != nil {
		log.Errorf("stopping address manager: %v", err)
	}
	if n.rpc != nil {
		if err := n.rpc.Stop(); err != nil {
			log.Errorf("stopping RPC server: %v", err)
		}
	}
	return n.db.Close()
}
