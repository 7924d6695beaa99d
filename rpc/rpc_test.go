// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/coinjson"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/hooks"
	"github.com/libcoin/utxod/mempool"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

func newTestServer(t *testing.T) *Server {
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
	bus := hooks.New()
	chain.Hooks = bus.WireChain()
	pool.Hooks = bus.WireMempool()

	cfg := Config{Listen: "127.0.0.1:0", User: "user", Pass: "pass", MaxClients: 10}
	return New(cfg, chain, pool, bus)
}

func doRPC(s *Server, method string, params ...interface{}) *httptest.ResponseRecorder {
	raw := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, _ := json.Marshal(p)
		raw[i] = b
	}
	body, _ := json.Marshal(coinjson.Request{Method: method, Params: raw, ID: 1})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(body)))
	req.SetBasicAuth("user", "pass")
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)
	return rec
}

func TestHandleRPCRejectsMissingAuth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestHandleRPCUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(s, "nosuchmethod")
	var resp coinjson.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleGetValueReportsZeroForUnknownAddress(t *testing.T) {
	s := newTestServer(t)
	addrHex := hex.EncodeToString(make([]byte, chainhash.Hash160Size))

	rec := doRPC(s, "getvalue", addrHex)
	var resp coinjson.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	var result coinjson.GetValueResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Value != 0 {
		t.Fatalf("expected zero value for an address with no coins, got %d", result.Value)
	}
}

func TestHandlePostTxRejectsMalformedHex(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(s, "posttx", "not-hex")
	var resp coinjson.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding posttx response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected malformed hex to be rejected")
	}
}

func TestHandlePostTxRejectsInputlessTx(t *testing.T) {
	s := newTestServer(t)

	var hash160 chainhash.Hash160
	script := txscript.PayToPubKeyHashScript(hash160[:])

	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(5000, script))
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("serializing tx: %v", err)
	}

	rec := doRPC(s, "posttx", hex.EncodeToString(buf.Bytes()))
	var resp coinjson.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding posttx response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected a transaction with no inputs to be rejected")
	}
}

func TestHandleGetTxDetailsReportsUnknownTx(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(s, "gettxdetails", strings.Repeat("00", chainhash.HashSize))
	var resp coinjson.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding gettxdetails response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an unknown transaction hash to be rejected")
	}
}
