// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

func TestScriptBuilderRoundTrip(t *testing.T) {
	hash := chainhash.Hash160B([]byte("recipient"))
	script := PayToPubKeyHashScript(hash)

	class, extracted, ok := ExtractPkScriptAddr(script)
	if !ok {
		t.Fatalf("ExtractPkScriptAddr: expected standard P2PKH match")
	}
	if class != PubKeyHashTy {
		t.Fatalf("class = %v, want PubKeyHashTy", class)
	}
	if string(extracted[:]) != string(hash) {
		t.Fatalf("hash mismatch: got %x want %x", extracted, hash)
	}
	if GetScriptClass(script) != PubKeyHashTy {
		t.Fatalf("GetScriptClass mismatch")
	}
}

func TestEngineTrivialTrue(t *testing.T) {
	// sigScript: OP_1  pkScript: OP_1 (always evaluates true)
	sigScript := NewScriptBuilder().AddOp(Op1).Script()
	pkScript := NewScriptBuilder().AddOp(Op1).Script()

	tx := wire.NewMsgTx(1)
	prevHash := chainhash.HashH([]byte("prev"))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutpoint(&prevHash, 0), sigScript))
	tx.AddTxOut(wire.NewTxOut(1, nil))

	vm, err := NewEngine(pkScript, tx, 0, ScriptVerifyCleanStack, 0)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestEngineFalseRejected(t *testing.T) {
	sigScript := NewScriptBuilder().AddOp(Op0).Script()
	pkScript := NewScriptBuilder().AddOp(OpVerify).Script()

	tx := wire.NewMsgTx(1)
	prevHash := chainhash.HashH([]byte("prev"))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutpoint(&prevHash, 0), sigScript))
	tx.AddTxOut(wire.NewTxOut(1, nil))

	vm, err := NewEngine(pkScript, tx, 0, ScriptNoFlags, 0)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err == nil {
		t.Fatalf("expected script failure for OP_0 ... OP_VERIFY")
	}
}
