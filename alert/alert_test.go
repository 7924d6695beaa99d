// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package alert

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"

	"github.com/libcoin/utxod/wire"
)

func newTestTracker(t *testing.T) (*Tracker, *btcec.PrivateKey) {
	t.Helper()
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	tr, err := New(priv.PubKey().SerializeCompressed(), 70002)
	if err != nil {
		t.Fatalf("building tracker: %v", err)
	}
	return tr, priv
}

func TestProcessAcceptsValidAlert(t *testing.T) {
	tr, priv := newTestTracker(t)
	a := &wire.Alert{
		Version:    1,
		RelayUntil: time.Now().Add(time.Hour),
		Expiration: time.Now().Add(time.Hour),
		ID:         1,
		Priority:   100,
		StatusBar:  "node software upgrade required",
	}
	msg, err := signPayload(a, priv)
	if err != nil {
		t.Fatalf("signing test alert: %v", err)
	}

	decoded, applies, err := tr.Process(msg)
	if err != nil {
		t.Fatalf("expected alert to verify, got: %v", err)
	}
	if !applies {
		t.Fatal("expected alert to apply to this node")
	}
	if decoded.StatusBar != a.StatusBar {
		t.Fatalf("status bar mismatch: got %q", decoded.StatusBar)
	}
	bars := tr.Active()
	if len(bars) != 1 || bars[0] != a.StatusBar {
		t.Fatalf("expected one active alert, got %v", bars)
	}
}

func TestProcessRejectsBadSignature(t *testing.T) {
	tr, _ := newTestTracker(t)
	other, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		t.Fatalf("generating attacker key: %v", err)
	}
	a := &wire.Alert{
		Version:    1,
		Expiration: time.Now().Add(time.Hour),
		ID:         1,
		StatusBar:  "forged alert",
	}
	msg, err := signPayload(a, other)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, _, err := tr.Process(msg); err == nil {
		t.Fatal("expected signature verification to fail against the wrong key")
	}
}

func TestProcessIgnoresExpiredAlert(t *testing.T) {
	tr, priv := newTestTracker(t)
	a := &wire.Alert{
		Version:    1,
		Expiration: time.Now().Add(-time.Hour),
		ID:         2,
		StatusBar:  "already expired",
	}
	msg, err := signPayload(a, priv)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	_, applies, err := tr.Process(msg)
	if err != nil {
		t.Fatalf("expected signature to still verify, got: %v", err)
	}
	if applies {
		t.Fatal("expected an already-expired alert to not apply")
	}
}

func TestProcessRespectsVersionRange(t *testing.T) {
	tr, priv := newTestTracker(t)
	a := &wire.Alert{
		Version:    1,
		Expiration: time.Now().Add(time.Hour),
		ID:         3,
		MinVer:     80000,
		StatusBar:  "future protocol only",
	}
	msg, err := signPayload(a, priv)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	_, applies, err := tr.Process(msg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if applies {
		t.Fatal("expected alert scoped to a higher MinVer to not apply")
	}
}

func TestProcessCancelsEarlierAlert(t *testing.T) {
	tr, priv := newTestTracker(t)
	first := &wire.Alert{Version: 1, Expiration: time.Now().Add(time.Hour), ID: 10, StatusBar: "first"}
	msg1, err := signPayload(first, priv)
	if err != nil {
		t.Fatalf("signing first: %v", err)
	}
	if _, _, err := tr.Process(msg1); err != nil {
		t.Fatalf("processing first: %v", err)
	}

	cancel := &wire.Alert{Version: 1, Expiration: time.Now().Add(time.Hour), ID: 11, Cancel: 10, StatusBar: "cancel"}
	msg2, err := signPayload(cancel, priv)
	if err != nil {
		t.Fatalf("signing cancel: %v", err)
	}
	if _, _, err := tr.Process(msg2); err != nil {
		t.Fatalf("processing cancel: %v", err)
	}

	bars := tr.Active()
	if len(bars) != 1 || bars[0] != "cancel" {
		t.Fatalf("expected only the cancel alert to remain active, got %v", bars)
	}
}
