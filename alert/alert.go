// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package alert verifies and tracks signed operator alerts (spec
// §4.E.6): messages broadcast by the holder of the network's alert
// private key warning operators of a protocol issue, optionally
// cancelling an earlier alert or scoping themselves to a version range.
package alert

import (
	"bytes"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/wire"
)

var log = logger.Get(logger.AMGR)

// Tracker holds the set of currently active (unexpired, uncancelled)
// alerts for this node's protocol version, verified against a single
// network authority key.
type Tracker struct {
	mu              sync.Mutex
	pubKey          *btcec.PublicKey
	protocolVersion int32
	active          map[int32]*wire.Alert
}

// New returns a Tracker verifying alerts against pubKeyBytes (spec
// §4.E.6's "hard-coded authority key", conventionally
// chaincfg.Params.AlertPubKey) for a node running protocolVersion.
func New(pubKeyBytes []byte, protocolVersion int32) (*Tracker, error) {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes, btcec.S256())
	if err != nil {
		return nil, err
	}
	return &Tracker{
		pubKey:          pubKey,
		protocolVersion: protocolVersion,
		active:          make(map[int32]*wire.Alert),
	}, nil
}

// Process verifies msg's signature, decodes its payload, and folds it
// into the active set: an already-expired alert is dropped, a cancel
// removes the named alert IDs, and a scoped min/max version or
// sub-version list that excludes this node is ignored. It returns the
// decoded alert and whether it applies to this node.
func (t *Tracker) Process(msg *wire.MsgAlert) (*wire.Alert, bool, error) {
	if !t.verify(msg) {
		return nil, false, errInvalidSignature
	}

	a, err := msg.Payload()
	if err != nil {
		return nil, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range a.SetCancel {
		delete(t.active, id)
	}
	delete(t.active, a.Cancel)

	if time.Now().After(a.Expiration) {
		return a, false, nil
	}
	if !t.appliesToVersion(a) {
		return a, false, nil
	}

	t.active[a.ID] = a
	return a, true, nil
}

func (t *Tracker) appliesToVersion(a *wire.Alert) bool {
	if a.MinVer != 0 && t.protocolVersion < a.MinVer {
		return false
	}
	if a.MaxVer != 0 && t.protocolVersion > a.MaxVer {
		return false
	}
	if len(a.SetSubVer) == 0 {
		return true
	}
	for _, sv := range a.SetSubVer {
		if sv == wire.DefaultUserAgent {
			return true
		}
	}
	return false
}

func (t *Tracker) verify(msg *wire.MsgAlert) bool {
	signature, err := btcec.ParseDERSignature(msg.Signature, btcec.S256())
	if err != nil {
		return false
	}
	hash := chainhash.DoubleHashB(msg.SerializedPayload)
	return signature.Verify(hash, t.pubKey)
}

type alertError string

func (e alertError) Error() string { return string(e) }

const errInvalidSignature = alertError("alert signature does not verify against the network authority key")

// Active returns every currently in-force alert's status-bar text, the
// operator-facing summary a wallet or node would surface (spec §4.E.6).
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var bars []string
	for id, a := range t.active {
		if now.After(a.Expiration) {
			delete(t.active, id)
			continue
		}
		bars = append(bars, a.StatusBar)
	}
	return bars
}

// Purge drops every expired alert, for periodic housekeeping alongside
// the address-pool purge loop.
func (t *Tracker) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for id, a := range t.active {
		if now.After(a.Expiration) {
			delete(t.active, id)
		}
	}
}

// signPayload is test-only scaffolding: it signs a freshly-serialized
// Alert with a private key, mirroring how the network authority
// produces a MsgAlert in the first place.
func signPayload(a *wire.Alert, priv *btcec.PrivateKey) (*wire.MsgAlert, error) {
	var buf bytes.Buffer
	if err := a.Serialize(&buf); err != nil {
		return nil, err
	}
	hash := chainhash.DoubleHashB(buf.Bytes())
	sig, err := priv.Sign(hash)
	if err != nil {
		return nil, err
	}
	return wire.NewMsgAlert(buf.Bytes(), sig.Serialize()), nil
}
