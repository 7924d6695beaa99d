// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/libcoin/utxod/chainhash"
)

func TestTxSerializeRoundTrip(t *testing.T) {
	tx := NewMsgTx(1)
	prevHash := chainhash.HashH([]byte("prev"))
	tx.AddTxIn(NewTxIn(NewOutpoint(&prevHash, 0), []byte{0x01, 0x02}))
	tx.AddTxOut(NewTxOut(5000000000, []byte{0x76, 0xa9}))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Fatalf("SerializeSize mismatch: got %d want %d", tx.SerializeSize(), buf.Len())
	}

	var got MsgTx
	if err := got.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !reflect.DeepEqual(tx.TxIn, got.TxIn) || !reflect.DeepEqual(tx.TxOut, got.TxOut) {
		t.Fatalf("round trip mismatch:\ngot:  %s\nwant: %s", spew.Sdump(got), spew.Sdump(tx))
	}
	if tx.TxHash() != got.TxHash() {
		t.Fatalf("hash mismatch after round trip")
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			t.Fatalf("WriteVarInt(%d): %v", v, err)
		}
		if buf.Len() != VarIntSerializeSize(v) {
			t.Fatalf("VarIntSerializeSize(%d) = %d, wrote %d", v, VarIntSerializeSize(v), buf.Len())
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("ReadVarInt round trip: got %d want %d", got, v)
		}
	}
}

func TestBlockMerkleRoot(t *testing.T) {
	blk := NewMsgBlock(&BlockHeader{})
	coinbase := NewMsgTx(1)
	coinbase.AddTxIn(NewTxIn(NewOutpoint(&chainhash.Hash{}, 0xffffffff), []byte{0x00}))
	coinbase.AddTxOut(NewTxOut(5000000000, nil))
	blk.AddTransaction(coinbase)

	tx2 := NewMsgTx(1)
	prev := coinbase.TxHash()
	tx2.AddTxIn(NewTxIn(NewOutpoint(&prev, 0), nil))
	tx2.AddTxOut(NewTxOut(100, nil))
	blk.AddTransaction(tx2)

	root := chainhash.MerkleRoot(blk.TxHashes())
	branch := chainhash.GetMerkleBranch(blk.TxHashes(), 1)
	if !chainhash.CheckMerkleBranch(tx2.TxHash(), branch, root) {
		t.Fatalf("merkle branch for tx index 1 did not verify against the root")
	}
}
