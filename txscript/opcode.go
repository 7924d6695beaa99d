// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/ripemd160"

	"crypto/sha1"
	"crypto/sha256"

	"github.com/libcoin/utxod/chainhash"
)

// opcode values. Only the subset spec §4.A.3 requires — push, flow control,
// stack manipulation, bitwise/arithmetic comparison, and the hashing/
// signature-check family — is given a handler; everything else parses
// (so scripts containing it don't fail to decode) but is disabled at
// execution time.
const (
	Op0         = 0x00
	OpPushData1 = 0x4c
	OpPushData2 = 0x4d
	OpPushData4 = 0x4e
	Op1Negate   = 0x4f
	OpReserved  = 0x50
	Op1         = 0x51
	Op16        = 0x60
	OpNop       = 0x61
	OpIf        = 0x63
	OpNotIf     = 0x64
	OpElse      = 0x67
	OpEndIf     = 0x68
	OpVerify    = 0x69
	OpReturn    = 0x6a

	OpToAltStack   = 0x6b
	OpFromAltStack = 0x6c
	Op2Drop        = 0x6d
	Op2Dup         = 0x6e
	Op3Dup         = 0x6f
	Op2Over        = 0x70
	Op2Rot         = 0x71
	Op2Swap        = 0x72
	OpIfDup        = 0x73
	OpDepth        = 0x74
	OpDrop         = 0x75
	OpDup          = 0x76
	OpNip          = 0x77
	OpOver         = 0x78
	OpPick         = 0x79
	OpRoll         = 0x7a
	OpRot          = 0x7b
	OpSwap         = 0x7c
	OpTuck         = 0x7d

	OpSize = 0x82

	OpEqual       = 0x87
	OpEqualVerify = 0x88

	Op1Add               = 0x8b
	Op1Sub               = 0x8c
	OpNegate             = 0x8f
	OpAbs                = 0x90
	OpNot                = 0x91
	Op0NotEqual          = 0x92
	OpAdd                = 0x93
	OpSub                = 0x94
	OpBoolAnd            = 0x9a
	OpBoolOr             = 0x9b
	OpNumEqual           = 0x9c
	OpNumEqualVerify     = 0x9d
	OpNumNotEqual        = 0x9e
	OpLessThan           = 0x9f
	OpGreaterThan        = 0xa0
	OpLessThanOrEqual    = 0xa1
	OpGreaterThanOrEqual = 0xa2
	OpMin                = 0xa3
	OpMax                = 0xa4
	OpWithin             = 0xa5

	OpRipemd160           = 0xa6
	OpSha1                = 0xa7
	OpSha256              = 0xa8
	OpHash160             = 0xa9
	OpHash256             = 0xaa
	OpCodeSeparator       = 0xab
	OpCheckSig            = 0xac
	OpCheckSigVerify      = 0xad
	OpCheckMultiSig       = 0xae
	OpCheckMultiSigVerify = 0xaf

	OpNop1  = 0xb0
	OpNop10 = 0xb9
)

// OpCondFalse / OpCondTrue / OpCondSkip tag condStack entries.
const (
	OpCondFalse = 0
	OpCondTrue  = 1
	OpCondSkip  = 2
)

type opcode struct {
	value  byte
	name   string
	length int
	opfunc func(*parsedOpcode, *Engine) error
}

// parsedOpcode is one decoded instruction: the opcode plus any data it
// pushes (for the push-data family).
type parsedOpcode struct {
	opcode *opcode
	data   []byte
}

func (pop *parsedOpcode) isDisabled() bool { return pop.opcode.opfunc == nil }

func (pop *parsedOpcode) alwaysIllegal() bool { return pop.opcode.value == OpReserved }

func (pop *parsedOpcode) isConditional() bool {
	switch pop.opcode.value {
	case OpIf, OpNotIf, OpElse, OpEndIf:
		return true
	}
	return false
}

func (pop *parsedOpcode) checkMinimalDataPush() error {
	data := pop.data
	opcodeVal := pop.opcode.value
	dataLen := len(data)
	if dataLen == 0 && opcodeVal != Op0 {
		return scriptErrorf(ErrMinimalData, "zero length data push not using OP_0")
	} else if dataLen == 1 && data[0] >= 1 && data[0] <= 16 {
		if opcodeVal != Op1+data[0]-1 {
			return scriptErrorf(ErrMinimalData, "data push of the value %d encoded with opcode %d instead of OP_%d", data[0], opcodeVal, data[0])
		}
	} else if dataLen == 1 && data[0] == 0x81 {
		if opcodeVal != Op1Negate {
			return scriptErrorf(ErrMinimalData, "data push of -1 encoded without OP_1NEGATE")
		}
	} else if dataLen <= 75 {
		if int(opcodeVal) != dataLen {
			return scriptErrorf(ErrMinimalData, "data push of %d bytes encoded via opcode %d instead of a direct push", dataLen, opcodeVal)
		}
	} else if dataLen <= 255 {
		if opcodeVal != OpPushData1 {
			return scriptErrorf(ErrMinimalData, "data push of %d bytes encoded via opcode %d instead of OP_PUSHDATA1", dataLen, opcodeVal)
		}
	} else if dataLen <= 65535 {
		if opcodeVal != OpPushData2 {
			return scriptErrorf(ErrMinimalData, "data push of %d bytes encoded via opcode %d instead of OP_PUSHDATA2", dataLen, opcodeVal)
		}
	}
	return nil
}

func (pop *parsedOpcode) print(oneline bool) string {
	if len(pop.data) > 0 {
		return fmt.Sprintf("%s 0x%x", pop.opcode.name, pop.data)
	}
	return pop.opcode.name
}

func (pop *parsedOpcode) bytes() ([]byte, error) {
	var retbytes []byte
	if pop.opcode.length > 0 {
		retbytes = make([]byte, 1, pop.opcode.length)
	} else {
		retbytes = make([]byte, 1, 1+len(pop.data)+4)
	}
	retbytes[0] = pop.opcode.value
	if pop.opcode.length == 1 {
		if len(pop.data) != 0 {
			return nil, scriptErrorf(ErrInternal, "internal consistency error - parsed opcode %s has data length %d when %d was expected", pop.opcode.name, len(pop.data), 0)
		}
		return retbytes, nil
	}
	nbytes := pop.opcode.length
	if pop.opcode.length < 0 {
		l := len(pop.data)
		switch pop.opcode.length {
		case -1:
			retbytes = append(retbytes, byte(l))
			nbytes = int(retbytes[1]) + len(retbytes)
		case -2:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(l))
			retbytes = append(retbytes, b[:]...)
			nbytes = int(binary.LittleEndian.Uint16(retbytes[1:])) + len(retbytes)
		case -4:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(l))
			retbytes = append(retbytes, b[:]...)
			nbytes = int(binary.LittleEndian.Uint32(retbytes[1:])) + len(retbytes)
		}
	}
	retbytes = append(retbytes, pop.data...)
	if len(retbytes) != nbytes {
		return nil, scriptErrorf(ErrInternal, "internal consistency error - parsed opcode %s has data length %d when %d was expected", pop.opcode.name, len(retbytes), nbytes)
	}
	return retbytes, nil
}

var opcodeArray [256]opcode

func init() {
	for i := 0; i < len(opcodeArray); i++ {
		opcodeArray[i] = opcode{value: byte(i), name: fmt.Sprintf("OP_UNKNOWN%d", i), length: 1, opfunc: nil}
	}
	opcodeArray[Op0] = opcode{Op0, "OP_0", 1, opcodeFalse}
	for v := 1; v <= 75; v++ {
		opcodeArray[v] = opcode{byte(v), fmt.Sprintf("OP_DATA_%d", v), v + 1, opcodePushData}
	}
	opcodeArray[OpPushData1] = opcode{OpPushData1, "OP_PUSHDATA1", -1, opcodePushData}
	opcodeArray[OpPushData2] = opcode{OpPushData2, "OP_PUSHDATA2", -2, opcodePushData}
	opcodeArray[OpPushData4] = opcode{OpPushData4, "OP_PUSHDATA4", -4, opcodePushData}
	opcodeArray[Op1Negate] = opcode{Op1Negate, "OP_1NEGATE", 1, opcodeNegate}
	opcodeArray[OpReserved] = opcode{OpReserved, "OP_RESERVED", 1, nil}
	for v := Op1; v <= Op16; v++ {
		n := byte(v - Op1 + 1)
		opcodeArray[v] = opcode{byte(v), fmt.Sprintf("OP_%d", n), 1, opcodeN(n)}
	}
	opcodeArray[OpNop] = opcode{OpNop, "OP_NOP", 1, opcodeNop}
	opcodeArray[OpIf] = opcode{OpIf, "OP_IF", 1, opcodeIf}
	opcodeArray[OpNotIf] = opcode{OpNotIf, "OP_NOTIF", 1, opcodeNotIf}
	opcodeArray[OpElse] = opcode{OpElse, "OP_ELSE", 1, opcodeElse}
	opcodeArray[OpEndIf] = opcode{OpEndIf, "OP_ENDIF", 1, opcodeEndif}
	opcodeArray[OpVerify] = opcode{OpVerify, "OP_VERIFY", 1, opcodeVerify}
	opcodeArray[OpReturn] = opcode{OpReturn, "OP_RETURN", 1, opcodeReturn}

	opcodeArray[OpToAltStack] = opcode{OpToAltStack, "OP_TOALTSTACK", 1, opcodeToAltStack}
	opcodeArray[OpFromAltStack] = opcode{OpFromAltStack, "OP_FROMALTSTACK", 1, opcodeFromAltStack}
	opcodeArray[Op2Drop] = opcode{Op2Drop, "OP_2DROP", 1, opcode2Drop}
	opcodeArray[Op2Dup] = opcode{Op2Dup, "OP_2DUP", 1, opcode2Dup}
	opcodeArray[Op3Dup] = opcode{Op3Dup, "OP_3DUP", 1, opcode3Dup}
	opcodeArray[Op2Over] = opcode{Op2Over, "OP_2OVER", 1, opcode2Over}
	opcodeArray[Op2Rot] = opcode{Op2Rot, "OP_2ROT", 1, opcode2Rot}
	opcodeArray[Op2Swap] = opcode{Op2Swap, "OP_2SWAP", 1, opcode2Swap}
	opcodeArray[OpIfDup] = opcode{OpIfDup, "OP_IFDUP", 1, opcodeIfDup}
	opcodeArray[OpDepth] = opcode{OpDepth, "OP_DEPTH", 1, opcodeDepth}
	opcodeArray[OpDrop] = opcode{OpDrop, "OP_DROP", 1, opcodeDrop}
	opcodeArray[OpDup] = opcode{OpDup, "OP_DUP", 1, opcodeDup}
	opcodeArray[OpNip] = opcode{OpNip, "OP_NIP", 1, opcodeNip}
	opcodeArray[OpOver] = opcode{OpOver, "OP_OVER", 1, opcodeOver}
	opcodeArray[OpPick] = opcode{OpPick, "OP_PICK", 1, opcodePick}
	opcodeArray[OpRoll] = opcode{OpRoll, "OP_ROLL", 1, opcodeRoll}
	opcodeArray[OpRot] = opcode{OpRot, "OP_ROT", 1, opcodeRot}
	opcodeArray[OpSwap] = opcode{OpSwap, "OP_SWAP", 1, opcodeSwap}
	opcodeArray[OpTuck] = opcode{OpTuck, "OP_TUCK", 1, opcodeTuck}

	opcodeArray[OpSize] = opcode{OpSize, "OP_SIZE", 1, opcodeSize}

	opcodeArray[OpEqual] = opcode{OpEqual, "OP_EQUAL", 1, opcodeEqual}
	opcodeArray[OpEqualVerify] = opcode{OpEqualVerify, "OP_EQUALVERIFY", 1, opcodeEqualVerify}

	opcodeArray[Op1Add] = opcode{Op1Add, "OP_1ADD", 1, opcode1Add}
	opcodeArray[Op1Sub] = opcode{Op1Sub, "OP_1SUB", 1, opcode1Sub}
	opcodeArray[OpNegate] = opcode{OpNegate, "OP_NEGATE", 1, opcodeArithNegate}
	opcodeArray[OpAbs] = opcode{OpAbs, "OP_ABS", 1, opcodeAbs}
	opcodeArray[OpNot] = opcode{OpNot, "OP_NOT", 1, opcodeNot}
	opcodeArray[Op0NotEqual] = opcode{Op0NotEqual, "OP_0NOTEQUAL", 1, opcode0NotEqual}
	opcodeArray[OpAdd] = opcode{OpAdd, "OP_ADD", 1, opcodeAdd}
	opcodeArray[OpSub] = opcode{OpSub, "OP_SUB", 1, opcodeSub}
	opcodeArray[OpBoolAnd] = opcode{OpBoolAnd, "OP_BOOLAND", 1, opcodeBoolAnd}
	opcodeArray[OpBoolOr] = opcode{OpBoolOr, "OP_BOOLOR", 1, opcodeBoolOr}
	opcodeArray[OpNumEqual] = opcode{OpNumEqual, "OP_NUMEQUAL", 1, opcodeNumEqual}
	opcodeArray[OpNumEqualVerify] = opcode{OpNumEqualVerify, "OP_NUMEQUALVERIFY", 1, opcodeNumEqualVerify}
	opcodeArray[OpNumNotEqual] = opcode{OpNumNotEqual, "OP_NUMNOTEQUAL", 1, opcodeNumNotEqual}
	opcodeArray[OpLessThan] = opcode{OpLessThan, "OP_LESSTHAN", 1, opcodeLessThan}
	opcodeArray[OpGreaterThan] = opcode{OpGreaterThan, "OP_GREATERTHAN", 1, opcodeGreaterThan}
	opcodeArray[OpLessThanOrEqual] = opcode{OpLessThanOrEqual, "OP_LESSTHANOREQUAL", 1, opcodeLessThanOrEqual}
	opcodeArray[OpGreaterThanOrEqual] = opcode{OpGreaterThanOrEqual, "OP_GREATERTHANOREQUAL", 1, opcodeGreaterThanOrEqual}
	opcodeArray[OpMin] = opcode{OpMin, "OP_MIN", 1, opcodeMin}
	opcodeArray[OpMax] = opcode{OpMax, "OP_MAX", 1, opcodeMax}
	opcodeArray[OpWithin] = opcode{OpWithin, "OP_WITHIN", 1, opcodeWithin}

	opcodeArray[OpRipemd160] = opcode{OpRipemd160, "OP_RIPEMD160", 1, opcodeRipemd160}
	opcodeArray[OpSha1] = opcode{OpSha1, "OP_SHA1", 1, opcodeSha1}
	opcodeArray[OpSha256] = opcode{OpSha256, "OP_SHA256", 1, opcodeSha256}
	opcodeArray[OpHash160] = opcode{OpHash160, "OP_HASH160", 1, opcodeHash160}
	opcodeArray[OpHash256] = opcode{OpHash256, "OP_HASH256", 1, opcodeHash256}
	opcodeArray[OpCodeSeparator] = opcode{OpCodeSeparator, "OP_CODESEPARATOR", 1, opcodeCodeSeparator}
	opcodeArray[OpCheckSig] = opcode{OpCheckSig, "OP_CHECKSIG", 1, opcodeCheckSig}
	opcodeArray[OpCheckSigVerify] = opcode{OpCheckSigVerify, "OP_CHECKSIGVERIFY", 1, opcodeCheckSigVerify}
	opcodeArray[OpCheckMultiSig] = opcode{OpCheckMultiSig, "OP_CHECKMULTISIG", 1, opcodeCheckMultiSig}
	opcodeArray[OpCheckMultiSigVerify] = opcode{OpCheckMultiSigVerify, "OP_CHECKMULTISIGVERIFY", 1, opcodeCheckMultiSigVerify}

	for v := OpNop1; v <= OpNop10; v++ {
		opcodeArray[v] = opcode{byte(v), fmt.Sprintf("OP_NOP%d", v-OpNop1+1), 1, opcodeNop}
	}
}

// parseScript decodes a raw script into its instruction sequence.
func parseScript(script []byte) ([]parsedOpcode, error) {
	var retScript []parsedOpcode
	for i := 0; i < len(script); {
		instr := script[i]
		op := &opcodeArray[instr]
		pop := parsedOpcode{opcode: op}

		switch {
		case op.length == 1:
			i++
		case op.length > 1:
			if len(script[i:]) < op.length {
				return nil, scriptErrorf(ErrMalformedPush, "opcode %s requires %d bytes, only %d remain", op.name, op.length, len(script[i:]))
			}
			pop.data = script[i+1 : i+op.length]
			i += op.length
		case op.length < 0:
			var l int
			off := i + 1
			switch op.length {
			case -1:
				if len(script[off:]) < 1 {
					return nil, scriptErrorf(ErrMalformedPush, "opcode %s requires 1 byte length", op.name)
				}
				l = int(script[off])
				off++
			case -2:
				if len(script[off:]) < 2 {
					return nil, scriptErrorf(ErrMalformedPush, "opcode %s requires 2 byte length", op.name)
				}
				l = int(binary.LittleEndian.Uint16(script[off:]))
				off += 2
			case -4:
				if len(script[off:]) < 4 {
					return nil, scriptErrorf(ErrMalformedPush, "opcode %s requires 4 byte length", op.name)
				}
				l = int(binary.LittleEndian.Uint32(script[off:]))
				off += 4
			}
			if len(script[off:]) < l {
				return nil, scriptErrorf(ErrMalformedPush, "opcode %s pushes %d bytes, only %d remain", op.name, l, len(script[off:]))
			}
			pop.data = script[off : off+l]
			i = off + l
		}
		retScript = append(retScript, pop)
	}
	return retScript, nil
}

func ripemd160Sum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)
}

func sha1Sum(data []byte) []byte {
	h := sha1.Sum(data)
	return h[:]
}

func sha256Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func hash160(data []byte) []byte {
	return chainhash.Hash160B(data)
}

func hash256(data []byte) []byte {
	return chainhash.DoubleHashB(data)
}
