// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database implements the on-disk block store: an append-only
// block file plus a goleveldb key-value index (spec §4.C). The block
// file is the single source of truth for transaction and block bytes;
// the index only ever stores positions into it and small derived
// records (TxIndex, the persisted BlockIndex projection, the best-tip
// pointer, and the address debit/credit coin sets).
package database

import "fmt"

// DiskTxPos locates a transaction inside a block file: which file, the
// byte offset of that block's length-prefixed record, and the byte
// offset of the transaction within the block's serialized body (spec
// §3, §4.C).
type DiskTxPos struct {
	FileNo    uint32
	BlockOff  uint32
	TxOff     uint32
}

func (p DiskTxPos) IsNull() bool {
	return p.FileNo == 0 && p.BlockOff == 0 && p.TxOff == 0
}

func (p DiskTxPos) String() string {
	return fmt.Sprintf("DiskTxPos{file:%d blockOff:%d txOff:%d}", p.FileNo, p.BlockOff, p.TxOff)
}

// NullDiskTxPos is the zero position, used to mark an unspent output
// slot in a TxIndex's spent vector.
var NullDiskTxPos = DiskTxPos{}
