// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/wire"
)

// Hooks receives chain-engine events for the observer/hook bus (spec
// §4.H) and the RPC layer. A nil field is simply not called.
type Hooks struct {
	OnBlockAccepted func(block *wire.MsgBlock, height int32)
	OnBlockConnected func(block *wire.MsgBlock, height int32)
	OnReorganize     func(oldBest, newBest chainhash.Hash)
	OnTxAccepted     func(tx *wire.MsgTx)
}

// Chain is the chain engine (spec §4.D): it owns cs_main, the single
// global lock serializing every block-index and UTXO mutation, and is
// the sole writer of best-chain state (the resolution of SPEC_FULL.md's
// "btcNode vs coinChain precedence" open question — the peer engine
// only ever calls in, never the reverse).
type Chain struct {
	mu     sync.RWMutex // cs_main
	db     *database.DB
	index  *BlockIndex
	params *chaincfg.Params
	orphans *orphanBuffer

	bestInvalidWork *big.Int

	Hooks Hooks
}

// New opens or initializes the chain engine against db, seeding the
// arena with genesis if the database is empty.
func New(db *database.DB, params *chaincfg.Params) (*Chain, error) {
	c := &Chain{
		db:              db,
		index:           NewBlockIndex(),
		params:          params,
		orphans:         newOrphanBuffer(),
		bestInvalidWork: big.NewInt(0),
	}

	var recs []*database.BlockIndexRecord
	err := db.ForEachBlockIndexRecord(func(rec *database.BlockIndexRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading block index records")
	}

	if len(recs) == 0 {
		if err := c.storeGenesis(); err != nil {
			return nil, err
		}
		return c, nil
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Height < recs[j].Height })
	for _, rec := range recs {
		if rec.Height == 0 {
			c.index.AddGenesis(&rec.Header, rec.FilePos)
			continue
		}
		if _, err := c.index.Add(&rec.Header, rec.FilePos); err != nil {
			return nil, errors.Wrap(err, "rebuilding block index arena")
		}
	}
	if err := c.restoreMainChain(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chain) storeGenesis() error {
	genesis := c.params.GenesisBlock
	pos, _, err := c.db.WriteBlock(genesis)
	if err != nil {
		return errors.Wrap(err, "writing genesis block")
	}
	c.index.AddGenesis(&genesis.Header, pos)

	rec := &database.BlockIndexRecord{
		Header:     genesis.Header,
		Height:     0,
		ChainWork:  c.index.ChainWork(c.index.Best()),
		FilePos:    pos,
		ParentHash: chainhash.Hash{},
	}
	data, err := rec.Serialize()
	if err != nil {
		return err
	}
	hash := genesis.BlockHash()

	coinbase := genesis.Transactions[0]
	txOffsets := database.TxByteOffsets(genesis)
	ti := &database.TxIndex{
		Pos:   database.DiskTxPos{FileNo: pos.FileNo, BlockOff: pos.BlockOff, TxOff: txOffsets[0]},
		Spent: make([]database.DiskTxPos, len(coinbase.TxOut)),
	}
	tiData, err := ti.Serialize()
	if err != nil {
		return err
	}
	txHash := coinbase.TxHash()

	b := c.db.NewBatch()
	b.Put(database.BlockIndexKey(&hash), data)
	b.Put(database.BestKey(), hash[:])
	b.Put(database.TxKey(&txHash), tiData)
	return b.Commit()
}

// restoreMainChain re-derives main-chain membership from the persisted
// best-tip pointer by walking from that tip back to genesis, marking
// next-in-chain pointers as it goes (spec §9: the arena's next-pointers
// are reconstructable, so only the tip hash need be durable).
func (c *Chain) restoreMainChain() error {
	tipBytes, err := c.db.Get(database.BestKey())
	if err != nil {
		return errors.Wrap(err, "reading best tip pointer")
	}
	var tipHash chainhash.Hash
	copy(tipHash[:], tipBytes)
	tipIdx, ok := c.index.Lookup(&tipHash)
	if !ok {
		return errors.New("persisted best tip hash not present in block index")
	}

	cur := tipIdx
	var prev uint32 = noIndex
	for {
		c.index.setInMainChain(cur, true)
		if prev != noIndex {
			c.index.setNext(cur, prev)
		}
		p, has := c.index.Parent(cur)
		if !has {
			break
		}
		prev = cur
		cur = p
	}
	c.index.setBest(tipIdx)
	return nil
}

// BestHeight returns the height of the current main-chain tip.
func (c *Chain) BestHeight() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Height(c.index.Best())
}

// BestHash returns the hash of the current main-chain tip.
func (c *Chain) BestHash() chainhash.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.BestHash()
}

// LatestBlockLocator builds a locator rooted at the current tip.
func (c *Chain) LatestBlockLocator() BlockLocator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.LatestBlockLocator()
}

// HaveBlock reports whether hash is already known, either on the main
// chain, on a losing branch, or in the orphan buffer.
func (c *Chain) HaveBlock(hash *chainhash.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.index.Lookup(hash); ok {
		return true
	}
	return c.orphans.isKnown(hash)
}

// ProcessBlock is the entry point for a newly received block (spec
// §4.D.1): context-free checks, orphan buffering if the parent is
// unknown, else acceptance and an attempt to drain any now-connectable
// orphans.
func (c *Chain) ProcessBlock(block *wire.MsgBlock) (isOrphan bool, err error) {
	hash := block.BlockHash()
	if c.HaveBlock(&hash) {
		return false, ruleErrorf(ErrDuplicateBlock, "block %s is already known", hash)
	}
	if err := checkBlockSanity(block, c.params, time.Now()); err != nil {
		return false, err
	}

	c.mu.Lock()
	_, haveParent := c.index.Lookup(&block.Header.PrevBlock)
	c.mu.Unlock()
	if !haveParent {
		c.mu.Lock()
		c.orphans.add(block)
		c.mu.Unlock()
		return true, nil
	}

	if _, err := c.acceptBlock(block); err != nil {
		return false, err
	}

	c.mu.Lock()
	drained := c.orphans.drainChildrenOf(hash)
	c.mu.Unlock()
	for _, orphanBlk := range drained {
		if _, err := c.acceptBlock(orphanBlk); err != nil {
			continue
		}
	}
	return false, nil
}

// acceptBlock runs the contextual checks spec §4.D.1 requires beyond
// checkBlockSanity, appends the block to the arena and block file, and
// triggers setBestChain when its cumulative work overtakes the current
// best.
func (c *Chain) acceptBlock(block *wire.MsgBlock) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parentIdx, ok := c.index.Lookup(&block.Header.PrevBlock)
	if !ok {
		return 0, ruleError(ErrMissingParent, "previous block is not known")
	}
	height := c.index.Height(parentIdx) + 1

	if err := c.validateCheckpoint(height, block.BlockHash()); err != nil {
		return 0, err
	}

	medianTime := c.index.CalcPastMedianTime(parentIdx)
	if !block.Header.Timestamp.After(medianTime) {
		return 0, ruleError(ErrTimeTooOld, "block timestamp is not after median time of last 11 blocks")
	}

	requiredBits := c.nextRequiredDifficulty(parentIdx)
	if block.Header.Bits != requiredBits {
		return 0, ruleErrorf(ErrBadDifficultyBits, "block difficulty bits %08x does not match required %08x", block.Header.Bits, requiredBits)
	}

	pos, _, err := c.db.WriteBlock(block)
	if err != nil {
		return 0, errors.Wrap(err, "writing block to block file")
	}

	idx, err := c.index.Add(&block.Header, pos)
	if err != nil {
		return 0, err
	}

	rec := &database.BlockIndexRecord{
		Header:     block.Header,
		Height:     height,
		ChainWork:  c.index.ChainWork(idx),
		FilePos:    pos,
		ParentHash: block.Header.PrevBlock,
	}
	data, err := rec.Serialize()
	if err != nil {
		return 0, err
	}
	hash := block.BlockHash()
	if err := c.db.Put(database.BlockIndexKey(&hash), data); err != nil {
		return 0, err
	}

	if c.Hooks.OnBlockAccepted != nil {
		c.Hooks.OnBlockAccepted(block, height)
	}

	if c.index.ChainWork(idx).Cmp(c.index.BestWork()) > 0 {
		if err := c.setBestChain(idx, block); err != nil {
			return 0, err
		}
	} else if c.index.ChainWork(idx).Cmp(c.bestInvalidWork) > 0 {
		c.bestInvalidWork = c.index.ChainWork(idx)
	}

	return idx, nil
}

func (c *Chain) validateCheckpoint(height int32, hash chainhash.Hash) error {
	for _, cp := range c.params.Checkpoints {
		if cp.Height == height && *cp.Hash != hash {
			return ruleErrorf(ErrBadCheckpoint, "block at height %d does not match checkpoint hash %s", height, cp.Hash)
		}
	}
	return nil
}

func (c *Chain) nextRequiredDifficulty(parentIdx uint32) uint32 {
	height := c.index.Height(parentIdx)
	lastBits := c.index.Header(parentIdx).Bits
	if (height+1)%c.params.RetargetInterval != 0 {
		return lastBits
	}
	firstIdx := c.index.Ancestor(parentIdx, height+1-c.params.RetargetInterval)
	firstTime := c.index.Header(firstIdx).Timestamp.Unix()
	lastTime := c.index.Header(parentIdx).Timestamp.Unix()
	return CalcNextRequiredDifficulty(c.params, height, lastBits, firstTime, lastTime)
}

// setBestChain reorganizes the main chain to newIdx: disconnect the
// losing branch bottom-up to the LCA, then connect the winning branch
// top-down (spec §4.D.2). The entire reorganization — every disconnect,
// every connect, and the BestKey tip pointer — is staged onto a single
// shared Batch and committed exactly once (spec §4.D.2, §5: "every
// reorganization is a single transaction"). Only after that one commit
// succeeds does the in-memory BlockIndex get mutated and do hooks fire
// (spec §7: a failed reorg rolls back cleanly and keeps the old tip,
// which a half-applied in-memory index could never do).
func (c *Chain) setBestChain(newIdx uint32, newBlock *wire.MsgBlock) error {
	oldIdx := c.index.Best()
	lca := c.index.LCA(oldIdx, newIdx)

	var disconnectPath []uint32
	for cur := oldIdx; cur != lca; {
		disconnectPath = append(disconnectPath, cur)
		p, _ := c.index.Parent(cur)
		cur = p
	}

	var connectPath []uint32
	for cur := newIdx; cur != lca; {
		connectPath = append(connectPath, cur)
		p, _ := c.index.Parent(cur)
		cur = p
	}
	for i, j := 0, len(connectPath)-1; i < j; i, j = i+1, j-1 {
		connectPath[i], connectPath[j] = connectPath[j], connectPath[i]
	}

	oldBestHash := c.index.BestHash()
	newHash := c.index.Hash(newIdx)

	batch := c.db.NewBatch()
	staged := make(map[chainhash.Hash]*database.TxIndex)

	for _, idx := range disconnectPath {
		blk, err := c.db.ReadBlock(c.index.FilePos(idx))
		if err != nil {
			return errors.Wrap(err, "reading block to disconnect")
		}
		if err := c.disconnectBlock(batch, idx, blk); err != nil {
			return errors.Wrap(err, "disconnecting block during reorganization")
		}
	}

	connectBlocks := make([]*wire.MsgBlock, len(connectPath))
	for i, idx := range connectPath {
		var blk *wire.MsgBlock
		var err error
		if idx == newIdx {
			blk = newBlock
		} else {
			blk, err = c.db.ReadBlock(c.index.FilePos(idx))
			if err != nil {
				return errors.Wrap(err, "reading block to connect")
			}
		}
		if err := c.connectBlock(batch, staged, idx, blk); err != nil {
			return errors.Wrap(err, "connecting block during reorganization")
		}
		connectBlocks[i] = blk
	}

	batch.Put(database.BestKey(), newHash[:])
	if err := batch.Commit(); err != nil {
		return errors.Wrap(err, "committing reorganization batch")
	}

	for _, idx := range disconnectPath {
		c.index.setInMainChain(idx, false)
		if p, ok := c.index.Parent(idx); ok {
			c.index.setNext(p, noIndex)
		}
	}
	for i, idx := range connectPath {
		c.index.setInMainChain(idx, true)
		if p, ok := c.index.Parent(idx); ok {
			c.index.setNext(p, idx)
		}
		blk := connectBlocks[i]
		for _, tx := range blk.Transactions {
			if c.Hooks.OnTxAccepted != nil {
				c.Hooks.OnTxAccepted(tx)
			}
		}
		if c.Hooks.OnBlockConnected != nil {
			c.Hooks.OnBlockConnected(blk, c.index.Height(idx))
		}
	}
	c.index.setBest(newIdx)

	if len(disconnectPath) > 0 && c.Hooks.OnReorganize != nil {
		c.Hooks.OnReorganize(oldBestHash, newHash)
	}
	return nil
}
