// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/wire"
)

// medianTimeBlocks is how many immediate ancestors CalcPastMedianTime
// averages over.
const medianTimeBlocks = 11

// noIndex marks an arena slot reference as absent (e.g. genesis's
// parent, or a tip with no successor on the main chain yet).
const noIndex = ^uint32(0)

// indexEntry is one arena slot: a block's header, its position in the
// block file, its height and cumulative work, and parent/next-in-chain
// pointers expressed as arena indices rather than pointers — this is
// what keeps the index an append-only vector instead of a graph of
// heap pointers that could cycle (spec §9).
type indexEntry struct {
	hash       chainhash.Hash
	header     wire.BlockHeader
	height     int32
	chainWork  *big.Int
	filePos    database.DiskTxPos
	parentIdx  uint32
	nextIdx    uint32 // noIndex unless this entry is on the main chain
	inMainChain bool
}

// BlockIndex is the append-only arena of every known block header (spec
// §9). Entries are never removed; only appended and, for the
// main-chain-membership bookkeeping, updated in place.
type BlockIndex struct {
	entries    []indexEntry
	byHash     map[chainhash.Hash]uint32
	byFilePos  map[filePosKey]uint32
	bestIdx    uint32
	bestWork   *big.Int
}

// filePosKey identifies a block by its position in the block file,
// independent of its transaction offset within that block.
type filePosKey struct {
	fileNo, blockOff uint32
}

// NewBlockIndex returns an empty arena.
func NewBlockIndex() *BlockIndex {
	return &BlockIndex{
		byHash:    make(map[chainhash.Hash]uint32),
		byFilePos: make(map[filePosKey]uint32),
		bestWork:  big.NewInt(0),
	}
}

// AddGenesis seeds the arena with the genesis block, making it the
// initial best chain tip.
func (bi *BlockIndex) AddGenesis(header *wire.BlockHeader, filePos database.DiskTxPos) uint32 {
	work := calcWork(header.Bits)
	idx := bi.append(indexEntry{
		hash:        header.BlockHash(),
		header:      *header,
		height:      0,
		chainWork:   work,
		filePos:     filePos,
		parentIdx:   noIndex,
		nextIdx:     noIndex,
		inMainChain: true,
	})
	bi.bestIdx = idx
	bi.bestWork = work
	return idx
}

// Add appends a new entry whose parent is already in the arena. It does
// not by itself affect main-chain membership — callers run setBestChain
// separately once a new entry's cumulative work might exceed the
// current best.
func (bi *BlockIndex) Add(header *wire.BlockHeader, filePos database.DiskTxPos) (uint32, error) {
	parentIdx, ok := bi.byHash[header.PrevBlock]
	if !ok {
		return 0, ruleErrorf(ErrMissingParent, "previous block %s is not known", header.PrevBlock)
	}
	parent := &bi.entries[parentIdx]
	work := new(big.Int).Add(parent.chainWork, calcWork(header.Bits))
	idx := bi.append(indexEntry{
		hash:      header.BlockHash(),
		header:    *header,
		height:    parent.height + 1,
		chainWork: work,
		filePos:   filePos,
		parentIdx: parentIdx,
		nextIdx:   noIndex,
	})
	return idx, nil
}

func (bi *BlockIndex) append(e indexEntry) uint32 {
	idx := uint32(len(bi.entries))
	bi.entries = append(bi.entries, e)
	bi.byHash[e.hash] = idx
	bi.byFilePos[filePosKey{e.filePos.FileNo, e.filePos.BlockOff}] = idx
	return idx
}

// HeightAtFilePos resolves the height of the block stored at the given
// file position, used for coinbase maturity checks against a spent
// output's containing block.
func (bi *BlockIndex) HeightAtFilePos(fileNo, blockOff uint32) (int32, bool) {
	idx, ok := bi.byFilePos[filePosKey{fileNo, blockOff}]
	if !ok {
		return 0, false
	}
	return bi.entries[idx].height, true
}

// Lookup returns the arena index for hash, if known.
func (bi *BlockIndex) Lookup(hash *chainhash.Hash) (uint32, bool) {
	idx, ok := bi.byHash[*hash]
	return idx, ok
}

func (bi *BlockIndex) Height(idx uint32) int32 { return bi.entries[idx].height }

func (bi *BlockIndex) Header(idx uint32) wire.BlockHeader { return bi.entries[idx].header }

func (bi *BlockIndex) Hash(idx uint32) chainhash.Hash { return bi.entries[idx].hash }

func (bi *BlockIndex) FilePos(idx uint32) database.DiskTxPos { return bi.entries[idx].filePos }

func (bi *BlockIndex) ChainWork(idx uint32) *big.Int { return bi.entries[idx].chainWork }

func (bi *BlockIndex) Parent(idx uint32) (uint32, bool) {
	p := bi.entries[idx].parentIdx
	return p, p != noIndex
}

func (bi *BlockIndex) InMainChain(idx uint32) bool { return bi.entries[idx].inMainChain }

func (bi *BlockIndex) Best() uint32 { return bi.bestIdx }

func (bi *BlockIndex) BestWork() *big.Int { return bi.bestWork }

func (bi *BlockIndex) BestHash() chainhash.Hash { return bi.entries[bi.bestIdx].hash }

// setInMainChain sets idx's main-chain membership flag, the mutation a
// reorg performs as it disconnects the losing branch and connects the
// winning one; next-pointers are updated separately through setNext.
func (bi *BlockIndex) setInMainChain(idx uint32, v bool) { bi.entries[idx].inMainChain = v }

func (bi *BlockIndex) setNext(idx, next uint32) { bi.entries[idx].nextIdx = next }

func (bi *BlockIndex) setBest(idx uint32) {
	bi.bestIdx = idx
	bi.bestWork = bi.entries[idx].chainWork
}

// Ancestor walks up idx's ancestry and returns the ancestor at the given
// absolute height (idx itself if it is not above that height).
func (bi *BlockIndex) Ancestor(idx uint32, height int32) uint32 {
	for bi.entries[idx].height > height {
		idx = bi.entries[idx].parentIdx
	}
	return idx
}

// LCA returns the lowest common ancestor of a and b, walking both up to
// the same height and then together — the pivot of a reorganization.
func (bi *BlockIndex) LCA(a, b uint32) uint32 {
	for bi.entries[a].height > bi.entries[b].height {
		a = bi.entries[a].parentIdx
	}
	for bi.entries[b].height > bi.entries[a].height {
		b = bi.entries[b].parentIdx
	}
	for a != b {
		a = bi.entries[a].parentIdx
		b = bi.entries[b].parentIdx
	}
	return a
}

// CalcPastMedianTime returns the median timestamp of idx and its
// medianTimeBlocks-1 immediate ancestors (spec §4.D.4's reference point
// for "time too old").
func (bi *BlockIndex) CalcPastMedianTime(idx uint32) time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	cur := idx
	for i := 0; i < medianTimeBlocks; i++ {
		timestamps = append(timestamps, bi.entries[cur].header.Timestamp.Unix())
		if bi.entries[cur].parentIdx == noIndex {
			break
		}
		cur = bi.entries[cur].parentIdx
	}
	for i := 1; i < len(timestamps); i++ {
		for j := i; j > 0 && timestamps[j-1] > timestamps[j]; j-- {
			timestamps[j-1], timestamps[j] = timestamps[j], timestamps[j-1]
		}
	}
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// calcWork converts a compact difficulty target into the chain-work
// increment a block at that difficulty contributes: floor(2^256 / (target+1)).
func calcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	oneLsh256 := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Div(oneLsh256, denom)
}
