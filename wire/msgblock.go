// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/libcoin/utxod/chainhash"
)

// MaxBlockPayload is the 1 MB block size cap of spec §4.D.1.
const MaxBlockPayload = 1000000

// maxTxPerBlock bounds the deserializer's transaction-count allocation;
// derived from the smallest possible tx encoding so a forged length
// prefix cannot force a huge allocation ahead of validating the payload.
const maxTxPerBlock = (MaxBlockPayload / 61) + 1

// MsgBlock is a Block (spec §3): a header plus its transactions. The
// first transaction must be coinbase; no other transaction may be.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// NewMsgBlock returns a new block with the given header and no
// transactions.
func NewMsgBlock(header *BlockHeader) *MsgBlock {
	return &MsgBlock{Header: *header}
}

// AddTransaction appends tx to the block.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// BlockHash returns the block's identity hash (the header's hash).
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// TxHashes returns the hash of every transaction in the block, in order —
// the leaf list the Merkle tree of spec §4.A is built from.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		hashes[i] = tx.TxHash()
	}
	return hashes
}

// BtcEncode implements the Message interface.
func (msg *MsgBlock) BtcEncode(w io.Writer, pver uint32) error {
	return msg.Serialize(w)
}

// BtcDecode implements the Message interface.
func (msg *MsgBlock) BtcDecode(r io.Reader, pver uint32) error {
	return msg.Deserialize(r)
}

// Command implements the Message interface.
func (msg *MsgBlock) Command() string { return CmdBlock }

// MaxPayloadLength implements the Message interface.
func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// Serialize encodes the block: header then a varint-prefixed transaction
// vector, each transaction using its own deterministic codec.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	if err := writeBlockHeader(w, &msg.Header); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a block using the inverse of Serialize.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	if err := readBlockHeader(r, &msg.Header); err != nil {
		return err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txCount > maxTxPerBlock {
		return errTooManyElements("transaction", txCount, maxTxPerBlock)
	}

	msg.Transactions = make([]*MsgTx, txCount)
	for i := range msg.Transactions {
		tx := &MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions[i] = tx
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (msg *MsgBlock) SerializeSize() int {
	n := BlockHeaderLen + VarIntSerializeSize(uint64(len(msg.Transactions)))
	for _, tx := range msg.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// BytesSerialize is a convenience wrapper returning the serialized bytes
// directly — used by the block store (spec §4.C) when appending a record
// to a blkNNNN.dat file.
func (msg *MsgBlock) BytesSerialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	if err := msg.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
