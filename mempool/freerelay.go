// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math"
	"time"
)

// defaultFreeRelayLimitBytesPerMinute is the default free-relay
// threshold (spec §4.D.5 step 8): "15 kB/min".
const defaultFreeRelayLimitBytesPerMinute = 15 * 1000

// freeRelayDecayWindow is the window the rolling byte count decays
// over, matching the classic "last 10 minutes" throttle.
const freeRelayDecayWindow = 10 * time.Minute

// freeRelayThrottle tracks a continuously-decaying estimate of how many
// free-relay (sub-10000-sat/kB) bytes have been accepted recently, the
// same exponential-decay technique as the historical free-transaction-
// area limiter: every elapsed second, the running count is scaled down
// by a factor that shrinks it to about 1/e (roughly 37%) over each
// freeRelayDecayWindow.
type freeRelayThrottle struct {
	limitBytesPerMinute float64
	count               float64
	lastUpdate          time.Time
}

func newFreeRelayThrottle(limitBytesPerMinute float64) *freeRelayThrottle {
	if limitBytesPerMinute <= 0 {
		limitBytesPerMinute = defaultFreeRelayLimitBytesPerMinute
	}
	return &freeRelayThrottle{limitBytesPerMinute: limitBytesPerMinute, lastUpdate: time.Now()}
}

func (f *freeRelayThrottle) decay(now time.Time) {
	elapsed := now.Sub(f.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}
	decayPerSecond := 1.0 - 1.0/freeRelayDecayWindow.Seconds()
	f.count *= math.Pow(decayPerSecond, elapsed)
	f.lastUpdate = now
}

// allow reports whether admitting a size-byte free transaction now
// would keep the decayed rolling count under the threshold; if so it
// records the admission.
func (f *freeRelayThrottle) allow(size int) bool {
	now := time.Now()
	f.decay(now)
	limit := f.limitBytesPerMinute * freeRelayDecayWindow.Minutes()
	if f.count+float64(size) >= limit {
		return false
	}
	f.count += float64(size)
	return true
}
