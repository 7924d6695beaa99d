// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// TxIndex is the persisted record for one confirmed transaction (spec
// §3): its own disk position, and a spent-position per output — the
// authoritative UTXO representation. Output i is unspent iff
// Spent[i].IsNull().
type TxIndex struct {
	Pos   DiskTxPos
	Spent []DiskTxPos
}

func writeDiskTxPos(w io.Writer, p DiskTxPos) error {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:4], p.FileNo)
	binary.LittleEndian.PutUint32(b[4:8], p.BlockOff)
	binary.LittleEndian.PutUint32(b[8:12], p.TxOff)
	_, err := w.Write(b[:])
	return err
}

func readDiskTxPos(r io.Reader) (DiskTxPos, error) {
	var b [12]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return DiskTxPos{}, err
	}
	return DiskTxPos{
		FileNo:   binary.LittleEndian.Uint32(b[0:4]),
		BlockOff: binary.LittleEndian.Uint32(b[4:8]),
		TxOff:    binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// Serialize encodes a TxIndex for storage under the "tx" key prefix.
func (ti *TxIndex) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDiskTxPos(&buf, ti.Pos); err != nil {
		return nil, err
	}
	if err := wire.WriteVarInt(&buf, uint64(len(ti.Spent))); err != nil {
		return nil, err
	}
	for _, s := range ti.Spent {
		if err := writeDiskTxPos(&buf, s); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeTxIndex decodes a TxIndex record.
func DeserializeTxIndex(data []byte) (*TxIndex, error) {
	r := bytes.NewReader(data)
	pos, err := readDiskTxPos(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading tx index position")
	}
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading tx index spent count")
	}
	spent := make([]DiskTxPos, count)
	for i := range spent {
		if spent[i], err = readDiskTxPos(r); err != nil {
			return nil, errors.Wrap(err, "reading tx index spent entry")
		}
	}
	return &TxIndex{Pos: pos, Spent: spent}, nil
}

// TxKey builds the ("tx", hash) index key.
func TxKey(hash *chainhash.Hash) []byte {
	return append([]byte("tx"), hash[:]...)
}
