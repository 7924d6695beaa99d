// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/iterator"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/util"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("key not found")

// index wraps the goleveldb handle backing the key-value side of the
// store (spec §4.C): tx→TxIndex, blockhash→BlockIndexRecord, the best
// tip pointer, best-invalid-work, and the per-address debit/credit coin
// sets.
type index struct {
	ldb *leveldb.DB
}

func openIndex(path string) (*index, error) {
	opts := &opt.Options{
		Filter: nil,
	}
	ldb, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening leveldb index")
	}
	return &index{ldb: ldb}, nil
}

func (idx *index) Close() error { return idx.ldb.Close() }

func (idx *index) Get(key []byte) ([]byte, error) {
	v, err := idx.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (idx *index) Has(key []byte) (bool, error) {
	return idx.ldb.Has(key, nil)
}

func (idx *index) Put(key, value []byte) error {
	return idx.ldb.Put(key, value, nil)
}

func (idx *index) Delete(key []byte) error {
	return idx.ldb.Delete(key, nil)
}

// iterPrefix returns an iterator over every key sharing the given
// prefix, used for key-value index sweeps (e.g. enumerating the block
// index on startup to rebuild the in-memory arena).
func (idx *index) iterPrefix(prefix []byte) iterator.Iterator {
	return idx.ldb.NewIterator(util.BytesPrefix(prefix), nil)
}

// Batch accumulates writes that commit atomically — the mechanism
// behind every block connect/disconnect and reorg transaction (spec
// §4.C, §5 "every reorganization is a single transaction").
type Batch struct {
	idx *index
	b   *leveldb.Batch
}

// NewBatch begins a new atomic write set.
func (idx *index) NewBatch() *Batch {
	return &Batch{idx: idx, b: new(leveldb.Batch)}
}

func (t *Batch) Put(key, value []byte) { t.b.Put(key, value) }

func (t *Batch) Delete(key []byte) { t.b.Delete(key) }

// Commit writes every accumulated key atomically.
func (t *Batch) Commit() error {
	return t.idx.ldb.Write(t.b, nil)
}
