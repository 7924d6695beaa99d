// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/libcoin/utxod/chainhash"
)

// BlockHeaderLen is the number of bytes a BlockHeader occupies serialized:
// version(4) + prev(32) + merkle(32) + time(4) + bits(4) + nonce(4) = 80.
const BlockHeaderLen = 80

// BlockHeader is the six-field preimage of the block hash (spec §3).
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BlockHash returns the double-SHA256 hash of the serialized header — the
// block's identity.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = writeBlockHeader(&buf, h)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes the header in the canonical 80-byte wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes the header from its canonical 80-byte wire format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := putUint32(w, uint32(h.Version)); err != nil {
		return err
	}
	if err := writeHash(w, &h.PrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := putUint32(w, uint32(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := putUint32(w, h.Bits); err != nil {
		return err
	}
	return putUint32(w, h.Nonce)
}

func readBlockHeader(r io.Reader, h *BlockHeader) error {
	version, err := getUint32(r)
	if err != nil {
		return err
	}
	h.Version = int32(version)

	if err := readHash(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readHash(r, &h.MerkleRoot); err != nil {
		return err
	}

	ts, err := getUint32(r)
	if err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0)

	if h.Bits, err = getUint32(r); err != nil {
		return err
	}
	h.Nonce, err = getUint32(r)
	return err
}

// NewBlockHeader returns a new BlockHeader.
func NewBlockHeader(version int32, prevBlock, merkleRoot *chainhash.Hash, bits, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevBlock,
		MerkleRoot: *merkleRoot,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}
