// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// BlockIndexRecord is the on-disk projection of an in-memory BlockIndex
// arena entry (spec §9): enough to rebuild the arena on restart without
// re-validating every block. ParentHash is the zero hash for genesis.
type BlockIndexRecord struct {
	Header     wire.BlockHeader
	Height     int32
	ChainWork  *big.Int
	FilePos    DiskTxPos
	ParentHash chainhash.Hash
}

// Serialize encodes a BlockIndexRecord for storage under the
// "blockindex" key prefix.
func (r *BlockIndexRecord) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	var hdrBuf bytes.Buffer
	if err := r.Header.Serialize(&hdrBuf); err != nil {
		return nil, err
	}
	buf.Write(hdrBuf.Bytes())

	var heightBuf [4]byte
	binary.LittleEndian.PutUint32(heightBuf[:], uint32(r.Height))
	buf.Write(heightBuf[:])

	workBytes := r.ChainWork.Bytes()
	if err := wire.WriteVarInt(&buf, uint64(len(workBytes))); err != nil {
		return nil, err
	}
	buf.Write(workBytes)

	if err := writeDiskTxPos(&buf, r.FilePos); err != nil {
		return nil, err
	}
	buf.Write(r.ParentHash[:])
	return buf.Bytes(), nil
}

// DeserializeBlockIndexRecord decodes a BlockIndexRecord.
func DeserializeBlockIndexRecord(data []byte) (*BlockIndexRecord, error) {
	r := bytes.NewReader(data)
	rec := &BlockIndexRecord{}
	if err := rec.Header.Deserialize(r); err != nil {
		return nil, errors.Wrap(err, "reading block index header")
	}

	var heightBuf [4]byte
	if _, err := io.ReadFull(r, heightBuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading block index height")
	}
	rec.Height = int32(binary.LittleEndian.Uint32(heightBuf[:]))

	workLen, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading block index chain work length")
	}
	workBytes := make([]byte, workLen)
	if _, err := io.ReadFull(r, workBytes); err != nil {
		return nil, errors.Wrap(err, "reading block index chain work")
	}
	rec.ChainWork = new(big.Int).SetBytes(workBytes)

	if rec.FilePos, err = readDiskTxPos(r); err != nil {
		return nil, errors.Wrap(err, "reading block index file position")
	}
	if _, err := io.ReadFull(r, rec.ParentHash[:]); err != nil {
		return nil, errors.Wrap(err, "reading block index parent hash")
	}
	return rec, nil
}

// BlockIndexKey builds the ("blockindex", hash) index key.
func BlockIndexKey(hash *chainhash.Hash) []byte {
	return append([]byte("blockindex"), hash[:]...)
}

var bestKey = []byte("best")
var invalidWorkKey = []byte("invalid-work")

// BestKey is the singleton key holding the current main-chain tip hash.
func BestKey() []byte { return bestKey }

// InvalidWorkKey is the singleton key set aside for the cumulative work
// of the best-known invalid (losing) branch. Nothing writes or reads it:
// the chain keeps that value in memory only.
func InvalidWorkKey() []byte { return invalidWorkKey }
