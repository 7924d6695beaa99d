// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"math"

	"github.com/libcoin/utxod/chainhash"
)

// MaxTxInSequenceNum is the value an Input's Sequence must equal for the
// input to be considered final (spec §3).
const MaxTxInSequenceNum uint32 = 0xffffffff

// LockTimeThreshold distinguishes a lock_time interpreted as a block
// height (< threshold) from one interpreted as a unix timestamp.
const LockTimeThreshold = 500000000

// MaxSatoshi is the maximum number of satoshi that may ever exist,
// 21e6 * 1e8, the upper bound on any Output's Value.
const MaxSatoshi = 21000000 * 1e8

// maxTxInPerMessage / maxTxOutPerMessage bound the vector lengths a
// deserializer will accept, derived from the smallest possible encoding of
// an Input/Output so a hostile length prefix cannot force a huge
// allocation.
const (
	minTxInPayload      = 9 + chainhash.HashSize + 4
	maxTxInPerMessage   = (MaxMessagePayload / minTxInPayload) + 1
	minTxOutPayload     = 9
	maxTxOutPerMessage  = (MaxMessagePayload / minTxOutPayload) + 1
)

// Outpoint is a Coin (spec §3): a reference to a specific output of a
// specific previous transaction. The null sentinel (all-zero hash, index
// 0xFFFFFFFF) marks a coinbase/subsidy input.
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutpoint returns a new Outpoint.
func NewOutpoint(hash *chainhash.Hash, index uint32) *Outpoint {
	return &Outpoint{Hash: *hash, Index: index}
}

// IsNull reports whether op is the coinbase sentinel.
func (op *Outpoint) IsNull() bool {
	return op.Index == math.MaxUint32 && op.Hash == (chainhash.Hash{})
}

// Less imposes the total order over Coin specified in spec §3:
// lexicographic by (tx_hash, index).
func (op Outpoint) Less(other Outpoint) bool {
	if op.Hash != other.Hash {
		return op.Hash.Less(other.Hash)
	}
	return op.Index < other.Index
}

func (op Outpoint) String() string {
	return op.Hash.String() + ":" + itoa(op.Index)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// TxIn is an Input (spec §3): a reference to a previous output, the
// unlocking signature script, and a sequence number.
type TxIn struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new Input with the default final sequence number.
func NewTxIn(prevOut *Outpoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutpoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// IsFinal reports whether the input is final, per spec §3.
func (t *TxIn) IsFinal() bool {
	return t.Sequence == MaxTxInSequenceNum
}

// IsCoinbase reports whether the input is the subsidy input of a coinbase
// transaction, i.e. its previous outpoint is the null sentinel.
func (t *TxIn) IsCoinbase() bool {
	return t.PreviousOutpoint.IsNull()
}

// SerializeSize returns the number of bytes it would take to serialize t.
func (t *TxIn) SerializeSize() int {
	return chainhash.HashSize + 4 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript) + 4
}

// TxOut is an Output (spec §3): a satoshi value and a locking script
// interpreted by the Script VM.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new Output.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// SerializeSize returns the number of bytes it would take to serialize t.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx is a Transaction (spec §3): version, inputs (>=1), outputs (>=1),
// lock_time. Its identity is the double-SHA256 of its deterministic
// serialization.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns a new transaction with the given protocol version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn appends in to the transaction's input list.
func (msg *MsgTx) AddTxIn(in *TxIn) {
	msg.TxIn = append(msg.TxIn, in)
}

// AddTxOut appends out to the transaction's output list.
func (msg *MsgTx) AddTxOut(out *TxOut) {
	msg.TxOut = append(msg.TxOut, out)
}

// IsCoinbase reports whether msg is a coinbase transaction: exactly one
// input, and that input's previous outpoint is null.
func (msg *MsgTx) IsCoinbase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].IsCoinbase()
}

// TxHash computes the transaction's identity hash: double-SHA256 of its
// deterministic serialization.
func (msg *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	_ = msg.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Copy returns a deep copy of msg, used by the script engine's signature
// hash construction which must mutate a transaction without disturbing
// the original (spec §4.A "Signature hash").
func (msg *MsgTx) Copy() *MsgTx {
	newTx := &MsgTx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		TxIn:     make([]*TxIn, len(msg.TxIn)),
		TxOut:    make([]*TxOut, len(msg.TxOut)),
	}
	for i, oldIn := range msg.TxIn {
		newScript := make([]byte, len(oldIn.SignatureScript))
		copy(newScript, oldIn.SignatureScript)
		newTx.TxIn[i] = &TxIn{
			PreviousOutpoint: oldIn.PreviousOutpoint,
			SignatureScript:  newScript,
			Sequence:         oldIn.Sequence,
		}
	}
	for i, oldOut := range msg.TxOut {
		newScript := make([]byte, len(oldOut.PkScript))
		copy(newScript, oldOut.PkScript)
		newTx.TxOut[i] = &TxOut{Value: oldOut.Value, PkScript: newScript}
	}
	return newTx
}

// BtcEncode implements the Message interface.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	return msg.Serialize(w)
}

// BtcDecode implements the Message interface.
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	return msg.Deserialize(r)
}

// Command implements the Message interface.
func (msg *MsgTx) Command() string { return CmdTx }

// MaxPayloadLength implements the Message interface.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// Serialize encodes msg using the deterministic tx codec: version,
// varint-prefixed input vector, varint-prefixed output vector, lock_time.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := putUint32(w, uint32(msg.Version)); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeHash(w, &ti.PreviousOutpoint.Hash); err != nil {
			return err
		}
		if err := putUint32(w, ti.PreviousOutpoint.Index); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := putUint32(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := putUint64(w, uint64(to.Value)); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	return putUint32(w, msg.LockTime)
}

// Deserialize decodes msg from r using the inverse of Serialize.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	version, err := getUint32(r)
	if err != nil {
		return err
	}
	msg.Version = int32(version)

	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > maxTxInPerMessage {
		return errTooManyElements("input", inCount, maxTxInPerMessage)
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := readHash(r, &ti.PreviousOutpoint.Hash); err != nil {
			return err
		}
		if ti.PreviousOutpoint.Index, err = getUint32(r); err != nil {
			return err
		}
		if ti.SignatureScript, err = ReadVarBytes(r, MaxMessagePayload, "signature script"); err != nil {
			return err
		}
		if ti.Sequence, err = getUint32(r); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > maxTxOutPerMessage {
		return errTooManyElements("output", outCount, maxTxOutPerMessage)
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		value, err := getUint64(r)
		if err != nil {
			return err
		}
		to.Value = int64(value)
		if to.PkScript, err = ReadVarBytes(r, MaxMessagePayload, "pk script"); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	msg.LockTime, err = getUint32(r)
	return err
}

// SerializeSize returns the number of bytes it would take to serialize msg.
func (msg *MsgTx) SerializeSize() int {
	n := 4 + VarIntSerializeSize(uint64(len(msg.TxIn))) + VarIntSerializeSize(uint64(len(msg.TxOut))) + 4
	for _, ti := range msg.TxIn {
		n += ti.SerializeSize()
	}
	for _, to := range msg.TxOut {
		n += to.SerializeSize()
	}
	return n
}

func errTooManyElements(what string, got, max uint64) error {
	return &MessageError{
		Func:    "MsgTx.Deserialize",
		Message: what + " count " + itoa64(got) + " exceeds max " + itoa64(max),
	}
}

func itoa64(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// MessageError describes an issue decoding or encoding a Message; the
// Func field names the method that raised it for easier tracing in logs.
type MessageError struct {
	Func    string
	Message string
}

func (e *MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Message
	}
	return e.Message
}
