// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "github.com/libcoin/utxod/chainhash"

// ScriptClass classifies a public key script by the spending template it
// matches (spec §4.A.3).
type ScriptClass int

const (
	NonStandardTy ScriptClass = iota
	PubKeyTy
	PubKeyHashTy
	ScriptHashTy
	MultiSigTy
	NullDataTy
)

func (c ScriptClass) String() string {
	switch c {
	case PubKeyTy:
		return "pubkey"
	case PubKeyHashTy:
		return "pubkeyhash"
	case ScriptHashTy:
		return "scripthash"
	case MultiSigTy:
		return "multisig"
	case NullDataTy:
		return "nulldata"
	default:
		return "nonstandard"
	}
}

// isScriptHash reports whether pops is the canonical 23-byte P2SH template:
// OP_HASH160 <20-byte hash> OP_EQUAL.
func isScriptHash(pops []parsedOpcode) bool {
	return len(pops) == 3 &&
		pops[0].opcode.value == OpHash160 &&
		pops[1].opcode.value == 20 &&
		len(pops[1].data) == 20 &&
		pops[2].opcode.value == OpEqual
}

// isPubKeyHash reports whether pops is the canonical P2PKH template:
// OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func isPubKeyHash(pops []parsedOpcode) bool {
	return len(pops) == 5 &&
		pops[0].opcode.value == OpDup &&
		pops[1].opcode.value == OpHash160 &&
		pops[2].opcode.value == 20 &&
		len(pops[2].data) == 20 &&
		pops[3].opcode.value == OpEqualVerify &&
		pops[4].opcode.value == OpCheckSig
}

// isPubKey reports whether pops is a bare P2PK template: <pubkey>
// OP_CHECKSIG.
func isPubKey(pops []parsedOpcode) bool {
	return len(pops) == 2 &&
		(len(pops[0].data) == 33 || len(pops[0].data) == 65) &&
		pops[1].opcode.value == OpCheckSig
}

// isMultiSig reports whether pops is an m-of-n CHECKMULTISIG template:
// OP_m <pubkey>... OP_n OP_CHECKMULTISIG.
func isMultiSig(pops []parsedOpcode) bool {
	if len(pops) < 4 {
		return false
	}
	if pops[len(pops)-1].opcode.value != OpCheckMultiSig {
		return false
	}
	numSigs := asSmallInt(pops[0].opcode)
	if numSigs < 1 {
		return false
	}
	numPubKeys := asSmallInt(pops[len(pops)-2].opcode)
	if numPubKeys < numSigs {
		return false
	}
	if len(pops)-3 != numPubKeys {
		return false
	}
	for _, pop := range pops[1 : len(pops)-2] {
		if len(pop.data) != 33 && len(pop.data) != 65 {
			return false
		}
	}
	return true
}

func asSmallInt(op *opcode) int {
	if op.value == Op0 {
		return 0
	}
	return int(op.value - (Op1 - 1))
}

// isNullData reports whether pops is an unspendable data-carrier output:
// OP_RETURN <data>.
func isNullData(pops []parsedOpcode) bool {
	return len(pops) >= 1 && pops[0].opcode.value == OpReturn
}

// GetScriptClass classifies a raw public key script.
func GetScriptClass(script []byte) ScriptClass {
	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy
	}
	switch {
	case isPubKey(pops):
		return PubKeyTy
	case isPubKeyHash(pops):
		return PubKeyHashTy
	case isScriptHash(pops):
		return ScriptHashTy
	case isMultiSig(pops):
		return MultiSigTy
	case isNullData(pops):
		return NullDataTy
	default:
		return NonStandardTy
	}
}

// ExtractPkScriptAddr returns the 20-byte hash a standard P2PKH or P2SH
// script pays to, for the coin/address index (spec §4.E.9, supplemented
// debit/credit bookkeeping).
func ExtractPkScriptAddr(script []byte) (ScriptClass, chainhash.Hash160, bool) {
	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy, chainhash.Hash160{}, false
	}
	var h chainhash.Hash160
	switch {
	case isPubKeyHash(pops):
		copy(h[:], pops[2].data)
		return PubKeyHashTy, h, true
	case isScriptHash(pops):
		copy(h[:], pops[1].data)
		return ScriptHashTy, h, true
	default:
		return GetScriptClass(script), h, false
	}
}

// PayToPubKeyHashScript builds the canonical 25-byte P2PKH script paying
// to the given 20-byte hash.
func PayToPubKeyHashScript(hash160 []byte) []byte {
	b := NewScriptBuilder()
	b.AddOp(OpDup)
	b.AddOp(OpHash160)
	b.AddData(hash160)
	b.AddOp(OpEqualVerify)
	b.AddOp(OpCheckSig)
	return b.Script()
}

// PayToScriptHashScript builds the canonical 23-byte P2SH script paying
// to the given 20-byte script hash.
func PayToScriptHashScript(scriptHash []byte) []byte {
	b := NewScriptBuilder()
	b.AddOp(OpHash160)
	b.AddData(scriptHash)
	b.AddOp(OpEqual)
	return b.Script()
}

// ScriptBuilder accumulates opcodes and pushes into a raw script, choosing
// the minimal push encoding for each AddData call.
type ScriptBuilder struct {
	script []byte
	err    error
}

func NewScriptBuilder() *ScriptBuilder { return &ScriptBuilder{} }

func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	b.script = append(b.script, op)
	return b
}

func (b *ScriptBuilder) AddInt64(n int64) *ScriptBuilder {
	if n == 0 {
		return b.AddOp(Op0)
	}
	if n == -1 || (n >= 1 && n <= 16) {
		return b.AddOp(byte((Op1 - 1) + n))
	}
	return b.AddData(scriptNum(n).Bytes())
}

func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	n := len(data)
	switch {
	case n == 0:
		return b.AddOp(Op0)
	case n == 1 && data[0] >= 1 && data[0] <= 16:
		return b.AddOp(byte((Op1 - 1) + data[0]))
	case n == 1 && data[0] == 0x81:
		return b.AddOp(Op1Negate)
	case n <= 75:
		b.script = append(b.script, byte(n))
	case n <= 255:
		b.script = append(b.script, OpPushData1, byte(n))
	case n <= 65535:
		b.script = append(b.script, OpPushData2, byte(n), byte(n>>8))
	default:
		b.script = append(b.script, OpPushData4, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	b.script = append(b.script, data...)
	return b
}

func (b *ScriptBuilder) Script() []byte { return b.script }
