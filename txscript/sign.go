// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// SigHashType marks which parts of the transaction a signature commits to
// (spec §4.A.3 signature-hash construction).
type SigHashType uint32

const (
	SigHashAll          SigHashType = 1
	SigHashNone         SigHashType = 2
	SigHashSingle       SigHashType = 3
	SigHashAnyOneCanPay SigHashType = 0x80

	sigHashMask = 0x1f
)

// removeOpcode strips every occurrence of the given opcode from a parsed
// script, used to drop OP_CODESEPARATOR before hashing.
func removeOpcode(pops []parsedOpcode, opcode byte) []parsedOpcode {
	out := make([]parsedOpcode, 0, len(pops))
	for _, pop := range pops {
		if pop.opcode.value != opcode {
			out = append(out, pop)
		}
	}
	return out
}

func unparseScript(pops []parsedOpcode) ([]byte, error) {
	var script []byte
	for _, pop := range pops {
		b, err := pop.bytes()
		if err != nil {
			return nil, err
		}
		script = append(script, b...)
	}
	return script, nil
}

// calcSignatureHash builds the digest a signature for transaction input
// txIdx commits to, given the sub-script (the public key or redeem script
// with CODESEPARATOR-prefixed opcodes removed) and the requested hash
// type.
func calcSignatureHash(subScript []parsedOpcode, hashType SigHashType, tx *wire.MsgTx, txIdx int) ([]byte, error) {
	if (hashType&sigHashMask) == SigHashSingle && txIdx >= len(tx.TxOut) {
		var hash chainhash.Hash
		hash[len(hash)-1] = 1
		return hash[:], nil
	}

	subScript = removeOpcode(subScript, OpCodeSeparator)
	scriptBytes, err := unparseScript(subScript)
	if err != nil {
		return nil, err
	}

	txCopy := tx.Copy()

	for i := range txCopy.TxIn {
		if i == txIdx {
			txCopy.TxIn[i].SignatureScript = scriptBytes
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	switch hashType & sigHashMask {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0]
		for i := range txCopy.TxIn {
			if i != txIdx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	case SigHashSingle:
		txCopy.TxOut = txCopy.TxOut[:txIdx+1]
		for i := 0; i < txIdx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}
		for i := range txCopy.TxIn {
			if i != txIdx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	default:
		// SigHashAll: leave all outputs as-is.
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[txIdx : txIdx+1]
	}

	var buf bytes.Buffer
	if err := txCopy.Serialize(&buf); err != nil {
		return nil, err
	}
	if err := binaryPutUint32(&buf, uint32(hashType)); err != nil {
		return nil, err
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}

func binaryPutUint32(buf *bytes.Buffer, v uint32) error {
	var b [4]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	_, err := buf.Write(b[:])
	return err
}
