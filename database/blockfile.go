// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/wire"
)

// maxBlockFileSize is the roll threshold for blkNNNN.dat files (spec
// §4.C: "rolled at ~2 GiB").
const maxBlockFileSize = 2 * 1024 * 1024 * 1024

// blockRecordOverhead is the magic(4)+length(4) prefix preceding every
// serialized block in a block file.
const blockRecordOverhead = 8

// blockStore manages the append-only blkNNNN.dat files. Writers must
// hold the chain lock (cs_main, spec §5) before calling writeBlock;
// reads may run concurrently with the mutex held only for the duration
// of the file handle lookup.
type blockStore struct {
	mu       sync.Mutex
	dir      string
	net      wire.BitcoinNet
	curFile  uint32
	curSize  uint32
	openFile *os.File
}

func openBlockStore(dir string, net wire.BitcoinNet) (*blockStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "creating block store directory")
	}
	bs := &blockStore{dir: dir, net: net}
	if err := bs.openLatest(); err != nil {
		return nil, err
	}
	return bs, nil
}

func (bs *blockStore) fileName(n uint32) string {
	return filepath.Join(bs.dir, fmt.Sprintf("blk%04d.dat", n))
}

func (bs *blockStore) openLatest() error {
	var n uint32
	for {
		if _, err := os.Stat(bs.fileName(n)); err != nil {
			break
		}
		n++
	}
	if n > 0 {
		n--
	}
	return bs.openFileNo(n)
}

func (bs *blockStore) openFileNo(n uint32) error {
	if bs.openFile != nil {
		bs.openFile.Close()
	}
	f, err := os.OpenFile(bs.fileName(n), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return errors.Wrap(err, "opening block file")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "statting block file")
	}
	bs.curFile = n
	bs.curSize = uint32(fi.Size())
	bs.openFile = f
	return nil
}

// Close flushes and closes the current block file.
func (bs *blockStore) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.openFile == nil {
		return nil
	}
	if err := bs.openFile.Sync(); err != nil {
		return err
	}
	return bs.openFile.Close()
}

// writeBlock appends a serialized block, rolling to a new file first if
// the current one would exceed maxBlockFileSize. It returns the
// DiskTxPos pointing at the start of this block's record (FileNo/
// BlockOff), which callers combine with a transaction's byte offset
// within the serialized body to produce that transaction's DiskTxPos.
func (bs *blockStore) writeBlock(block *wire.MsgBlock) (DiskTxPos, []uint32, error) {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return DiskTxPos{}, nil, err
	}
	payload := buf.Bytes()

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.curSize > 0 && uint64(bs.curSize)+uint64(len(payload))+blockRecordOverhead > maxBlockFileSize {
		if err := bs.openFile.Sync(); err != nil {
			return DiskTxPos{}, nil, err
		}
		if err := bs.openFileNo(bs.curFile + 1); err != nil {
			return DiskTxPos{}, nil, err
		}
	}

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(bs.net))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))

	blockOff := bs.curSize
	if _, err := bs.openFile.WriteAt(header[:], int64(blockOff)); err != nil {
		return DiskTxPos{}, nil, errors.Wrap(err, "writing block record header")
	}
	if _, err := bs.openFile.WriteAt(payload, int64(blockOff)+blockRecordOverhead); err != nil {
		return DiskTxPos{}, nil, errors.Wrap(err, "writing block record body")
	}
	bs.curSize = blockOff + blockRecordOverhead + uint32(len(payload))

	txOffsets := txByteOffsets(block)
	return DiskTxPos{FileNo: bs.curFile, BlockOff: blockOff}, txOffsets, nil
}

// TxByteOffsets computes each transaction's byte offset within the
// block's serialized body, so DiskTxPos entries can be constructed
// without re-walking the file on every lookup.
func TxByteOffsets(block *wire.MsgBlock) []uint32 {
	return txByteOffsets(block)
}

func txByteOffsets(block *wire.MsgBlock) []uint32 {
	offsets := make([]uint32, len(block.Transactions))
	var hdrBuf bytes.Buffer
	block.Header.Serialize(&hdrBuf)
	off := uint32(hdrBuf.Len()) + uint32(wire.VarIntSerializeSize(uint64(len(block.Transactions))))
	for i, tx := range block.Transactions {
		offsets[i] = off
		off += uint32(tx.SerializeSize())
	}
	return offsets
}

// readBlock reads the full block whose record begins at pos.
func (bs *blockStore) readBlock(pos DiskTxPos) (*wire.MsgBlock, error) {
	f, err := bs.fileForRead(pos.FileNo)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header [8]byte
	if _, err := f.ReadAt(header[:], int64(pos.BlockOff)); err != nil {
		return nil, errors.Wrap(err, "reading block record header")
	}
	length := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := f.ReadAt(payload, int64(pos.BlockOff)+blockRecordOverhead); err != nil {
		return nil, errors.Wrap(err, "reading block record body")
	}

	blk := &wire.MsgBlock{}
	if err := blk.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, errors.Wrap(err, "deserializing block record")
	}
	return blk, nil
}

// readTx reads a single transaction given its exact DiskTxPos.
func (bs *blockStore) readTx(pos DiskTxPos) (*wire.MsgTx, error) {
	f, err := bs.fileForRead(pos.FileNo)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(pos.BlockOff)+blockRecordOverhead+int64(pos.TxOff), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to transaction position")
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(f); err != nil {
		return nil, errors.Wrap(err, "deserializing transaction record")
	}
	return tx, nil
}

func (bs *blockStore) fileForRead(n uint32) (*os.File, error) {
	bs.mu.Lock()
	if n == bs.curFile {
		f := bs.openFile
		bs.mu.Unlock()
		return os.Open(f.Name())
	}
	name := bs.fileName(n)
	bs.mu.Unlock()
	return os.Open(name)
}
