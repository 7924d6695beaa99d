// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"testing"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

func TestBlockFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, wire.RegressionNet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	blk := wire.NewMsgBlock(&wire.BlockHeader{Version: 1})
	tx := wire.NewMsgTx(1)
	prev := chainhash.HashH([]byte("seed"))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutpoint(&prev, 0), nil))
	tx.AddTxOut(wire.NewTxOut(100, nil))
	blk.AddTransaction(tx)

	pos, txOffsets, err := db.WriteBlock(blk)
	if err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if len(txOffsets) != 1 {
		t.Fatalf("expected 1 tx offset, got %d", len(txOffsets))
	}

	got, err := db.ReadBlock(pos)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if got.BlockHash() != blk.BlockHash() {
		t.Fatalf("block hash mismatch after round trip")
	}

	txPos := DiskTxPos{FileNo: pos.FileNo, BlockOff: pos.BlockOff, TxOff: txOffsets[0]}
	gotTx, err := db.ReadTx(txPos)
	if err != nil {
		t.Fatalf("ReadTx: %v", err)
	}
	if gotTx.TxHash() != tx.TxHash() {
		t.Fatalf("tx hash mismatch after round trip")
	}
}

func TestTxIndexSerializeRoundTrip(t *testing.T) {
	ti := &TxIndex{
		Pos:   DiskTxPos{FileNo: 1, BlockOff: 2, TxOff: 3},
		Spent: []DiskTxPos{{}, {FileNo: 4, BlockOff: 5, TxOff: 6}},
	}
	data, err := ti.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := DeserializeTxIndex(data)
	if err != nil {
		t.Fatalf("DeserializeTxIndex: %v", err)
	}
	if got.Pos != ti.Pos || len(got.Spent) != 2 || !got.Spent[0].IsNull() || got.Spent[1] != ti.Spent[1] {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestBatchCommitIsAtomic(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, wire.RegressionNet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	b := db.NewBatch()
	b.Put([]byte("best"), []byte("tip"))
	b.Put(TxKey(&chainhash.Hash{}), []byte("x"))
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	v, err := db.Get([]byte("best"))
	if err != nil || string(v) != "tip" {
		t.Fatalf("Get(best) = %q, %v", v, err)
	}
}
