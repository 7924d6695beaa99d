// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer drives one connected remote node through the handshake
// (spec §4.E.2), inventory gossip (spec §4.E.3), and block/tx exchange
// (spec §4.E.4) described in the wire protocol section.
package peer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/libcoin/utxod/addrmgr"
	"github.com/libcoin/utxod/alert"
	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/mempool"
	"github.com/libcoin/utxod/wire"
)

var log = logger.Get(logger.PEER)

const (
	// idleTimeout disconnects a peer whose socket has been silent this
	// long (spec §5: "inactivity (>90 min)").
	idleTimeout = 90 * time.Minute
	// handshakeTimeout disconnects a connection that never completes
	// its version/verack exchange (spec §5: "absent handshake (>60 s)").
	handshakeTimeout = 60 * time.Second
	// relayCacheExpiry is how long an announced transaction stays
	// available for getdata (spec §4.E.4).
	relayCacheExpiry = 15 * time.Minute
	// invDedupWindow suppresses repeat getdata requests for the same
	// inventory item (spec §4.E.3).
	invDedupWindow = 2 * time.Minute

	maxInvPerTrickle = 1000
)

// Hooks carries a callback for this peer's completed version handshake,
// mirroring blockchain.Hooks/mempool.Hooks's shape.
type Hooks struct {
	OnVersionKnown func(p *Peer)
}

// Peer owns one established connection: its own send/receive buffers
// and locks (spec §5: "each peer has its own send-buffer and
// receive-buffer lock"), independent of the chain lock.
type Peer struct {
	conn    net.Conn
	inbound bool

	chain   *blockchain.Chain
	mempool *mempool.Pool
	addrs   *addrmgr.Manager
	relay   *RelayCache
	alerts  *alert.Tracker
	nonce   uint64
	myAddr  wire.NetAddress

	sendMu sync.Mutex

	mu              sync.Mutex
	versionKnown    bool
	verAckReceived  bool
	protocolVersion int32
	lastBlock       int32
	userAgent       string
	lastActivity    time.Time
	knownInv        map[chainhash.Hash]time.Time

	disconnect chan struct{}
	once       sync.Once
}

// New wraps conn as a Peer. The caller must call Start to begin the
// handshake and read loop.
func New(conn net.Conn, inbound bool, chain *blockchain.Chain, pool *mempool.Pool, addrs *addrmgr.Manager, relay *RelayCache, myAddr wire.NetAddress) *Peer {
	var nonceBuf [8]byte
	rand.Read(nonceBuf[:])
	return &Peer{
		conn:         conn,
		inbound:      inbound,
		chain:        chain,
		mempool:      pool,
		addrs:        addrs,
		relay:        relay,
		nonce:        binary.LittleEndian.Uint64(nonceBuf[:]),
		myAddr:       myAddr,
		lastActivity: time.Now(),
		knownInv:     make(map[chainhash.Hash]time.Time),
		disconnect:   make(chan struct{}),
	}
}

// SetAlertTracker attaches the node-wide alert tracker this peer
// verifies incoming MsgAlert broadcasts against (spec §4.E.6). A peer
// with no tracker attached silently drops alert messages.
func (p *Peer) SetAlertTracker(t *alert.Tracker) { p.alerts = t }

// IsSelfConnect reports whether nonce matches this peer's own outbound
// handshake nonce, the self-loop detector spec §4.E.2 requires.
func (p *Peer) IsSelfConnect(nonce uint64) bool { return nonce == p.nonce }

// Start performs the version/verack handshake and launches the read
// loop. It blocks until the peer disconnects.
func (p *Peer) Start() {
	defer p.Close()

	you := &wire.NetAddress{IP: remoteIP(p.conn)}
	version := wire.NewMsgVersion(&p.myAddr, you, p.nonce, p.chain.BestHeight())
	if err := p.send(version); err != nil {
		log.Debugf("sending version to %s: %v", p.conn.RemoteAddr(), err)
		return
	}

	if err := p.readLoop(); err != nil {
		log.Debugf("peer %s disconnected: %v", p.conn.RemoteAddr(), err)
	}
}

func remoteIP(conn net.Conn) net.IP {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

// send frames and writes msg under the peer's own send lock (spec §5).
func (p *Peer) send(msg wire.Message) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return wire.WriteMessage(p.conn, msg, wire.ProtocolVersion, wire.MainNet)
}

// readLoop is the message-handling thread for this one peer (spec §5):
// messages are processed strictly in arrival order on this connection.
func (p *Peer) readLoop() error {
	for {
		select {
		case <-p.disconnect:
			return nil
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		msg, _, err := wire.ReadMessage(p.conn, wire.ProtocolVersion, wire.MainNet)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		p.mu.Lock()
		p.lastActivity = time.Now()
		known := p.versionKnown
		p.mu.Unlock()

		if !known {
			v, ok := msg.(*wire.MsgVersion)
			if !ok {
				return errProtocolViolation("message %s received before version", msg.Command())
			}
			if err := p.handleVersion(v); err != nil {
				return err
			}
			continue
		}

		if err := p.dispatch(msg); err != nil {
			return err
		}
	}
}

type protocolViolation string

func (e protocolViolation) Error() string { return string(e) }

func errProtocolViolation(format string, args ...interface{}) error {
	return protocolViolation(fmt.Sprintf(format, args...))
}

// handleVersion processes the peer's version message (spec §4.E.2): the
// self-connect nonce check, then verack, a getaddr when the peer's
// protocol version is at least 31402 or the local pool holds fewer than
// 1000 addresses, and a getblocks on every handshake, whatever the
// number of connected peers.
func (p *Peer) handleVersion(v *wire.MsgVersion) error {
	if p.IsSelfConnect(v.Nonce) {
		return errProtocolViolation("self-connect detected (nonce %d)", v.Nonce)
	}

	p.mu.Lock()
	p.versionKnown = true
	p.protocolVersion = v.ProtocolVersion
	p.lastBlock = v.LastBlock
	p.userAgent = v.UserAgent
	p.mu.Unlock()

	if err := p.send(&wire.MsgVerAck{}); err != nil {
		return err
	}

	if v.ProtocolVersion >= 31402 || p.addrs.Count() < 1000 {
		if err := p.send(&wire.MsgGetAddr{}); err != nil {
			return err
		}
	}

	locator := p.chain.LatestBlockLocator()
	getBlocks := wire.NewMsgGetBlocks(&chainhash.Hash{})
	for i := range locator {
		getBlocks.AddBlockLocatorHash(&locator[i])
	}
	return p.send(getBlocks)
}

// dispatch handles every post-handshake message type.
func (p *Peer) dispatch(msg wire.Message) error {
	switch m := msg.(type) {
	case *wire.MsgVerAck:
		p.mu.Lock()
		p.verAckReceived = true
		p.mu.Unlock()
		return nil
	case *wire.MsgPing:
		return p.send(&wire.MsgPing{Nonce: m.Nonce})
	case *wire.MsgGetAddr:
		return nil // addr relay batching happens on the owning server's trickle timer
	case *wire.MsgAddr:
		if len(m.AddrList) > wire.MaxAddrPerMsg {
			return errProtocolViolation("addr message exceeds %d entries", wire.MaxAddrPerMsg)
		}
		you := &wire.NetAddress{IP: remoteIP(p.conn)}
		p.addrs.AddAddresses(m.AddrList, you)
		return nil
	case *wire.MsgInv:
		return p.handleInv(m)
	case *wire.MsgGetData:
		return p.handleGetData(m)
	case *wire.MsgGetBlocks:
		return p.handleGetBlocks(m)
	case *wire.MsgGetHeaders:
		return p.handleGetHeaders(m)
	case *wire.MsgTx:
		_, err := p.mempool.ProcessTransaction(m)
		if err == nil {
			p.relay.Add(m)
		}
		return err
	case *wire.MsgBlock:
		_, err := p.chain.ProcessBlock(m)
		return err
	case *wire.MsgAlert:
		return p.handleAlert(m)
	default:
		return nil
	}
}

// handleAlert verifies and folds an incoming operator alert into this
// node's tracker (spec §4.E.6). A peer with no tracker attached ignores
// alert messages entirely rather than treating them as a protocol
// violation, since relaying alerts is optional.
func (p *Peer) handleAlert(m *wire.MsgAlert) error {
	if p.alerts == nil {
		return nil
	}
	a, applies, err := p.alerts.Process(m)
	if err != nil {
		log.Debugf("discarding alert from %s: %v", p.conn.RemoteAddr(), err)
		return nil
	}
	if applies {
		log.Warnf("alert %d active: %s", a.ID, a.StatusBar)
	}
	return nil
}

// alreadyHave reports whether inv names something this node already
// holds (spec §4.E.3): a block in the index or the orphan-block buffer,
// or a transaction pending or confirmed. Orphan transactions are not
// consulted.
func (p *Peer) alreadyHave(iv *wire.InvVect) bool {
	switch iv.Type {
	case wire.InvTypeBlock:
		return p.chain.HaveBlock(&iv.Hash)
	case wire.InvTypeTx:
		return p.mempool.HaveTransaction(&iv.Hash)
	default:
		return false
	}
}

// handleInv answers each unknown item with a getdata, deduplicated by a
// 2-minute window per inventory item (spec §4.E.3).
func (p *Peer) handleInv(m *wire.MsgInv) error {
	getData := wire.NewMsgGetData()
	now := time.Now()

	p.mu.Lock()
	for _, iv := range m.InvList {
		if p.alreadyHave(iv) {
			continue
		}
		if next, ok := p.knownInv[iv.Hash]; ok && now.Before(next) {
			continue
		}
		p.knownInv[iv.Hash] = now.Add(invDedupWindow)
		getData.AddInvVect(iv)
	}
	p.mu.Unlock()

	if len(getData.InvList) == 0 {
		return nil
	}
	return p.send(getData)
}

// handleGetData streams back blocks (re-read from the block file) and
// transactions (from the relay cache), spec §4.E.4.
func (p *Peer) handleGetData(m *wire.MsgGetData) error {
	notFound := &wire.MsgNotFound{}
	for _, iv := range m.InvList {
		switch iv.Type {
		case wire.InvTypeBlock:
			block, err := p.chain.BlockByHash(&iv.Hash)
			if err != nil {
				notFound.InvList = append(notFound.InvList, iv)
				continue
			}
			if err := p.send(block); err != nil {
				return err
			}
		case wire.InvTypeTx:
			tx, ok := p.relay.Get(iv.Hash)
			if !ok {
				notFound.InvList = append(notFound.InvList, iv)
				continue
			}
			if err := p.send(tx); err != nil {
				return err
			}
		}
	}
	if len(notFound.InvList) > 0 {
		return p.send(notFound)
	}
	return nil
}

func (p *Peer) handleGetBlocks(m *wire.MsgGetBlocks) error {
	locator := make(blockchain.BlockLocator, len(m.BlockLocatorHashes))
	for i, h := range m.BlockLocatorHashes {
		locator[i] = *h
	}
	hashes := p.chain.LocateBlocks(locator, &m.StopHash, wire.MaxBlockLocatorsPerMsg)

	inv := wire.NewMsgInv()
	for i := range hashes {
		inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hashes[i]))
	}
	if len(inv.InvList) == 0 {
		return nil
	}
	return p.send(inv)
}

func (p *Peer) handleGetHeaders(m *wire.MsgGetHeaders) error {
	locator := make(blockchain.BlockLocator, len(m.BlockLocatorHashes))
	for i, h := range m.BlockLocatorHashes {
		locator[i] = *h
	}
	headers := p.chain.LocateHeaders(locator, &m.HashStop, wire.MaxBlockHeadersPerMsg)

	out := wire.NewMsgHeaders()
	for i := range headers {
		out.AddBlockHeader(&headers[i])
	}
	return p.send(out)
}

// Announce pushes a single inventory item directly (used by the trickle
// timer in the owning server, spec §5). alreadyHave peers are the
// caller's job to exclude.
func (p *Peer) Announce(iv *wire.InvVect) error {
	inv := wire.NewMsgInv()
	inv.AddInvVect(iv)
	return p.send(inv)
}

// Close disconnects the peer, idempotently.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.disconnect)
		p.conn.Close()
	})
}

// VersionKnown reports whether the version handshake has completed.
func (p *Peer) VersionKnown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.versionKnown
}

// LastBlock returns the peer's self-reported best height.
func (p *Peer) LastBlock() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBlock
}

// IdleFor reports how long it has been since this peer last sent
// anything.
func (p *Peer) IdleFor() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastActivity)
}
