// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements the endpoint pool spec §4.E.5 describes: a
// persistent set of known peer addresses, scored for outbound dialing
// and periodically purged of stale entries.
package addrmgr

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/wire"
)

func parseIP(s string) net.IP { return net.ParseIP(s) }

var log = logger.Get(logger.ADXR)

// staleTimeout is how long an endpoint may go unseen before it is purged
// (spec §4.E.5: "unseen for 14 days").
const staleTimeout = 14 * 24 * time.Hour

// minRetryInterval is the base back-off before an endpoint is retried
// after a failed connection attempt (spec §4.E.5: "10 minutes after
// last seen, growing as 3600*sqrt(since_last_seen/3600)").
const minRetryInterval = 10 * time.Minute

// KnownAddress is a single pool entry: a peer's advertised network
// address plus the bookkeeping addrmgr needs for scoring and purging.
type KnownAddress struct {
	Addr       wire.NetAddress
	Src        wire.NetAddress
	LastSeen   time.Time
	LastTry    time.Time
	LastSuccess time.Time
	Attempts   int
}

// key concatenates the address's 16-byte IP and 2-byte port into the
// 18-byte pool key spec §4.E.5 specifies.
func key(addr *wire.NetAddress) [18]byte {
	var k [18]byte
	copy(k[:16], addr.IP.To16())
	binary.BigEndian.PutUint16(k[16:], addr.Port)
	return k
}

// Manager owns the endpoint pool: a third global lock, independent of
// the chain lock and the per-peer buffer locks (spec §5).
type Manager struct {
	mu       sync.Mutex
	path     string
	addrs    map[[18]byte]*KnownAddress
	started  bool
	quit     chan struct{}
}

// New returns a pool backed by path (conventionally addr.dat under the
// network data directory, spec §6's on-disk layout), loading any
// previously persisted entries.
func New(path string) *Manager {
	m := &Manager{path: path, addrs: make(map[[18]byte]*KnownAddress), quit: make(chan struct{})}
	if err := m.load(); err != nil {
		log.Warnf("could not load address pool from %s: %v", path, err)
	}
	return m
}

// Start launches the periodic purge loop.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()
	go m.purgeLoop()
}

// Stop halts the purge loop and persists the pool to disk.
func (m *Manager) Stop() error {
	close(m.quit)
	return m.save()
}

func (m *Manager) purgeLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.purgeStale()
		case <-m.quit:
			return
		}
	}
}

// purgeStale amortizes removal work by capping how many stale entries
// it evicts per call, rather than walking the whole table unconditionally
// to completion (spec §4.E.5: "capped to amortize work").
func (m *Manager) purgeStale() {
	const maxPerPass = 64
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, ka := range m.addrs {
		if removed >= maxPerPass {
			break
		}
		if now.Sub(ka.LastSeen) > staleTimeout {
			delete(m.addrs, k)
			removed++
		}
	}
}

// AddAddresses merges a batch of received addresses (spec §4.E.5: "≤1000
// addresses") into the pool, filtering out non-routable IPv4 addresses
// and timestamps more than 10 minutes in the future, and clamping
// timestamps older than staleTimeout up to that bound; src is whichever
// peer relayed them.
func (m *Manager) AddAddresses(addrs []*wire.NetAddress, src *wire.NetAddress) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, addr := range addrs {
		if !isRoutable(addr) {
			continue
		}
		ts := addr.Timestamp
		if ts.After(now.Add(10 * time.Minute)) {
			continue
		}
		if ts.Before(now.Add(-staleTimeout)) {
			ts = now.Add(-staleTimeout)
		}

		k := key(addr)
		if ka, ok := m.addrs[k]; ok {
			if ts.After(ka.LastSeen) {
				ka.LastSeen = ts
			}
			continue
		}
		m.addrs[k] = &KnownAddress{Addr: *addr, Src: *src, LastSeen: ts}
	}
}

// isRoutable rejects addresses that can never be meaningfully dialed:
// the zero address, loopback, and private/link-local ranges.
func isRoutable(addr *wire.NetAddress) bool {
	ip := addr.IP
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsPrivate() {
		return false
	}
	return true
}

// Good records a successful connection and handshake with addr, used by
// the connection manager once a dialed peer completes version/verack.
func (m *Manager) Good(addr *wire.NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addrs[key(addr)]; ok {
		now := time.Now()
		ka.LastSuccess = now
		ka.LastSeen = now
		ka.Attempts = 0
	}
}

// Attempt records a connection attempt (successful or not) against addr,
// used to compute the retry back-off.
func (m *Manager) Attempt(addr *wire.NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addrs[key(addr)]; ok {
		ka.LastTry = time.Now()
		ka.Attempts++
	}
}

// score implements spec §4.E.5's outbound-selection formula:
// min(since_last_try, 24h) − since_last_seen − deterministic_randomizer(ip, last_try).
func score(ka *KnownAddress, now time.Time) float64 {
	sinceLastTry := now.Sub(ka.LastTry)
	if sinceLastTry > 24*time.Hour {
		sinceLastTry = 24 * time.Hour
	}
	sinceLastSeen := now.Sub(ka.LastSeen)
	return sinceLastTry.Seconds() - sinceLastSeen.Seconds() - deterministicRandomizer(&ka.Addr, ka.LastTry)
}

// deterministicRandomizer derives a stable, addr/lastTry-keyed jitter
// term so repeated scoring passes rank candidates consistently without
// an explicit PRNG — the same (ip, last_try) pair always nets the same
// adjustment (spec §4.E.5).
func deterministicRandomizer(addr *wire.NetAddress, lastTry time.Time) float64 {
	h := sha256.New()
	h.Write(addr.IP.To16())
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(lastTry.Unix()))
	h.Write(buf[:])
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint32(sum[:4])
	return float64(v%3600) - 1800
}

// retryBackoff is how long an endpoint must go untried after a failed
// attempt before it becomes eligible again (spec §4.E.5).
func retryBackoff(ka *KnownAddress, now time.Time) time.Duration {
	sinceLastSeen := now.Sub(ka.LastSeen).Seconds()
	if sinceLastSeen < 0 {
		sinceLastSeen = 0
	}
	backoff := minRetryInterval.Seconds() + 3600*math.Sqrt(sinceLastSeen/3600)
	return time.Duration(backoff) * time.Second
}

// GetAddress selects the highest-scoring endpoint eligible to dial right
// now (outside its back-off window), or nil if the pool is empty or
// every entry is currently backed off.
func (m *Manager) GetAddress() *wire.NetAddress {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var best *KnownAddress
	var bestScore float64
	for _, ka := range m.addrs {
		if !ka.LastTry.IsZero() && now.Sub(ka.LastTry) < retryBackoff(ka, now) {
			continue
		}
		s := score(ka, now)
		if best == nil || s > bestScore {
			best, bestScore = ka, s
		}
	}
	if best == nil {
		return nil
	}
	addr := best.Addr
	return &addr
}

// Count returns the number of addresses currently held.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.addrs)
}

type serializedAddress struct {
	IP          string    `json:"ip"`
	Port        uint16    `json:"port"`
	Services    uint64    `json:"services"`
	SrcIP       string    `json:"src_ip"`
	SrcPort     uint16    `json:"src_port"`
	LastSeen    time.Time `json:"last_seen"`
	LastTry     time.Time `json:"last_try"`
	LastSuccess time.Time `json:"last_success"`
	Attempts    int       `json:"attempts"`
}

// save persists the pool to its JSON file (spec §6's addr.dat).
func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]serializedAddress, 0, len(m.addrs))
	for _, ka := range m.addrs {
		entries = append(entries, serializedAddress{
			IP:          ka.Addr.IP.String(),
			Port:        ka.Addr.Port,
			Services:    uint64(ka.Addr.Services),
			SrcIP:       ka.Src.IP.String(),
			SrcPort:     ka.Src.Port,
			LastSeen:    ka.LastSeen,
			LastTry:     ka.LastTry,
			LastSuccess: ka.LastSuccess,
			Attempts:    ka.Attempts,
		})
	}

	f, err := os.Create(m.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(entries)
}

func (m *Manager) load() error {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var entries []serializedAddress
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		addr := wire.NetAddress{IP: parseIP(e.IP), Port: e.Port, Services: wire.ServiceFlag(e.Services), Timestamp: e.LastSeen}
		src := wire.NetAddress{IP: parseIP(e.SrcIP), Port: e.SrcPort}
		m.addrs[key(&addr)] = &KnownAddress{
			Addr:        addr,
			Src:         src,
			LastSeen:    e.LastSeen,
			LastTry:     e.LastTry,
			LastSuccess: e.LastSuccess,
			Attempts:    e.Attempts,
		}
	}
	return nil
}
