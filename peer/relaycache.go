// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// RelayCache holds recently-announced transactions so a getdata request
// can be answered without re-deriving the transaction from the mempool
// (spec §4.E.4: announced transactions stay fetchable for 15 minutes).
type RelayCache struct {
	mu      sync.Mutex
	entries map[chainhash.Hash]relayEntry
}

type relayEntry struct {
	tx      *wire.MsgTx
	expires time.Time
}

// NewRelayCache returns an empty cache.
func NewRelayCache() *RelayCache {
	return &RelayCache{entries: make(map[chainhash.Hash]relayEntry)}
}

// Add records tx as available for getdata for the next 15 minutes.
func (c *RelayCache) Add(tx *wire.MsgTx) {
	hash := tx.TxHash()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = relayEntry{tx: tx, expires: time.Now().Add(relayCacheExpiry)}
}

// Get returns the cached transaction for hash, if it is still present and
// unexpired.
func (c *RelayCache) Get(hash chainhash.Hash) (*wire.MsgTx, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.tx, true
}

// Sweep evicts every expired entry; intended to run on a periodic timer
// alongside the trickle/rebroadcast threads (spec §5).
func (c *RelayCache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for h, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, h)
		}
	}
}
