// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr implements the outbound dialer and inbound listener
// spec §4.E.5/§5 describe: an 8-outbound cap, a 117-inbound cap, and a
// 5-second connect timeout.
package connmgr

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/libcoin/utxod/addrmgr"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/wire"
)

var log = logger.Get(logger.CMGR)

// MaxOutbound and MaxInbound are the connection caps spec §4.E.5 names.
const (
	MaxOutbound = 8
	MaxInbound  = 117

	dialTimeout = 5 * time.Second
	retryPeriod = 10 * time.Second
)

// OnConnect is invoked once for every newly-established connection,
// inbound or outbound; the caller is expected to spin up a peer
// handshake on top of conn.
type OnConnect func(conn net.Conn, inbound bool)

// ConnManager drives the outbound dialer loop and the inbound listener,
// honoring both connection caps while delegating endpoint selection to
// addrmgr.
type ConnManager struct {
	mu        sync.Mutex
	addrs     *addrmgr.Manager
	listeners []net.Listener
	onConnect OnConnect

	outboundCount int
	inboundCount  int

	quit chan struct{}
}

// New returns a connection manager dialing endpoints from addrs and
// invoking onConnect for every new connection.
func New(addrs *addrmgr.Manager, onConnect OnConnect) *ConnManager {
	return &ConnManager{addrs: addrs, onConnect: onConnect, quit: make(chan struct{})}
}

// Listen binds addr and begins accepting inbound connections up to
// MaxInbound.
func (cm *ConnManager) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	cm.mu.Lock()
	cm.listeners = append(cm.listeners, l)
	cm.mu.Unlock()

	go cm.acceptLoop(l)
	return nil
}

func (cm *ConnManager) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-cm.quit:
				return
			default:
				log.Warnf("accept error: %v", err)
				continue
			}
		}

		cm.mu.Lock()
		if cm.inboundCount >= MaxInbound {
			cm.mu.Unlock()
			conn.Close()
			continue
		}
		cm.inboundCount++
		cm.mu.Unlock()

		go func() {
			defer cm.connClosed(true)
			cm.onConnect(conn, true)
		}()
	}
}

func (cm *ConnManager) connClosed(inbound bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if inbound {
		cm.inboundCount--
	} else {
		cm.outboundCount--
	}
}

// Run starts the outbound dialer loop, which persists until Stop is
// called: every retryPeriod it tries to bring the outbound count up to
// MaxOutbound using addrmgr-selected candidates.
func (cm *ConnManager) Run() {
	ticker := time.NewTicker(retryPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cm.fillOutbound()
		case <-cm.quit:
			return
		}
	}
}

func (cm *ConnManager) fillOutbound() {
	cm.mu.Lock()
	need := MaxOutbound - cm.outboundCount
	cm.mu.Unlock()

	for i := 0; i < need; i++ {
		addr := cm.addrs.GetAddress()
		if addr == nil {
			return
		}
		cm.dial(addr)
	}
}

func (cm *ConnManager) dial(addr *wire.NetAddress) {
	cm.mu.Lock()
	cm.outboundCount++
	cm.mu.Unlock()

	cm.addrs.Attempt(addr)
	raddr := net.JoinHostPort(addr.IP.String(), strconv.Itoa(int(addr.Port)))
	conn, err := net.DialTimeout("tcp", raddr, dialTimeout)
	if err != nil {
		log.Debugf("dial %s failed: %v", raddr, err)
		cm.connClosed(false)
		return
	}

	go func() {
		defer cm.connClosed(false)
		cm.onConnect(conn, false)
	}()
}

// Stop closes every listener and halts the dialer loop.
func (cm *ConnManager) Stop() {
	close(cm.quit)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, l := range cm.listeners {
		l.Close()
	}
}
