// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"path/filepath"

	"github.com/libcoin/utxod/wire"
)

// DB is the full on-disk store: the append-only block file(s) plus the
// goleveldb key-value index (spec §4.C). Block bytes are never rewritten
// once written; every derived fact about them (TxIndex, BlockIndexRecord,
// best tip, address coin sets) lives in the index and is updated through
// atomic Batch commits.
type DB struct {
	blocks *blockStore
	idx    *index
}

// Open opens (creating if necessary) the block store and index rooted
// at dataDir.
func Open(dataDir string, net wire.BitcoinNet) (*DB, error) {
	blocks, err := openBlockStore(filepath.Join(dataDir, "blocks"), net)
	if err != nil {
		return nil, err
	}
	idx, err := openIndex(filepath.Join(dataDir, "index"))
	if err != nil {
		blocks.Close()
		return nil, err
	}
	return &DB{blocks: blocks, idx: idx}, nil
}

// Close flushes the block file and closes the index.
func (db *DB) Close() error {
	if err := db.blocks.Close(); err != nil {
		db.idx.Close()
		return err
	}
	return db.idx.Close()
}

// WriteBlock appends a block to the block file, returning the block's
// own DiskTxPos and the byte offset of each of its transactions (for
// building their DiskTxPos entries).
func (db *DB) WriteBlock(block *wire.MsgBlock) (DiskTxPos, []uint32, error) {
	return db.blocks.writeBlock(block)
}

// ReadBlock re-reads a full block from the block file.
func (db *DB) ReadBlock(pos DiskTxPos) (*wire.MsgBlock, error) {
	return db.blocks.readBlock(pos)
}

// ReadTx re-reads a single transaction from the block file.
func (db *DB) ReadTx(pos DiskTxPos) (*wire.MsgTx, error) {
	return db.blocks.readTx(pos)
}

// Get, Has, Put, and Delete operate directly on the key-value index,
// outside of any batch — used for simple reads and single-key writes
// that don't need atomicity with anything else.
func (db *DB) Get(key []byte) ([]byte, error) { return db.idx.Get(key) }
func (db *DB) Has(key []byte) (bool, error)   { return db.idx.Has(key) }
func (db *DB) Put(key, value []byte) error    { return db.idx.Put(key, value) }
func (db *DB) Delete(key []byte) error        { return db.idx.Delete(key) }

// NewBatch begins an atomic write set over the key-value index. Every
// block connect, disconnect, and reorganization is exactly one Batch
// (spec §5: "every reorganization is a single transaction").
func (db *DB) NewBatch() *Batch { return db.idx.NewBatch() }

// ForEachBlockIndexRecord walks every persisted BlockIndexRecord, used
// to rebuild the in-memory BlockIndex arena on startup.
func (db *DB) ForEachBlockIndexRecord(fn func(rec *BlockIndexRecord) error) error {
	iter := db.idx.iterPrefix([]byte("blockindex"))
	defer iter.Release()
	for iter.Next() {
		rec, err := DeserializeBlockIndexRecord(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}
