// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// BlockLocator is a sparse, exponentially-spaced list of block hashes
// from the caller's chain tip back to genesis (spec §3, §4.E.4), used
// so a peer can locate the most recent ancestor it and we share without
// exchanging every height.
type BlockLocator []chainhash.Hash

// blockLocator builds a BlockLocator rooted at idx, doubling the
// stride between included ancestors until genesis is reached.
func (bi *BlockIndex) blockLocator(idx uint32) BlockLocator {
	height := bi.entries[idx].height
	locator := make(BlockLocator, 0, 2+log2Floor(uint32(height)))

	step := int32(1)
	cur := idx
	for {
		locator = append(locator, bi.entries[cur].hash)
		if bi.entries[cur].height == 0 {
			break
		}
		target := bi.entries[cur].height - step
		if target < 0 {
			target = 0
		}
		cur = bi.Ancestor(cur, target)
		step *= 2
	}
	return locator
}

// LatestBlockLocator builds a locator rooted at the current best chain
// tip.
func (bi *BlockIndex) LatestBlockLocator() BlockLocator {
	return bi.blockLocator(bi.bestIdx)
}

func log2Floor(n uint32) uint32 {
	var r uint32
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

// locateAncestor finds the highest main-chain block named by locator,
// falling back to genesis if none of the listed hashes are known main
// chain members.
func (bi *BlockIndex) locateAncestor(locator BlockLocator) uint32 {
	for _, hash := range locator {
		if idx, ok := bi.byHash[hash]; ok && bi.entries[idx].inMainChain {
			return idx
		}
	}
	return bi.genesisIdx()
}

func (bi *BlockIndex) genesisIdx() uint32 {
	cur := bi.bestIdx
	for bi.entries[cur].parentIdx != noIndex {
		cur = bi.entries[cur].parentIdx
	}
	return cur
}

// LocateBlocks returns up to maxHashes main-chain block hashes walking
// forward from locator's best known ancestor, stopping at hashStop
// (spec §4.E.4 getblocks, 500-entry cap).
func (bi *BlockIndex) LocateBlocks(locator BlockLocator, hashStop *chainhash.Hash, maxHashes uint32) []chainhash.Hash {
	start := bi.locateAncestor(locator)
	var hashes []chainhash.Hash
	height := bi.entries[start].height + 1
	for uint32(len(hashes)) < maxHashes {
		idx := bi.Ancestor(bi.bestIdx, height)
		if idx >= uint32(len(bi.entries)) || bi.entries[idx].height != height {
			break
		}
		hashes = append(hashes, bi.entries[idx].hash)
		if bi.entries[idx].hash == *hashStop {
			break
		}
		height++
		if height > bi.entries[bi.bestIdx].height {
			break
		}
	}
	return hashes
}

// LocateHeaders is the header-only analogue of LocateBlocks (spec
// §4.E.4 getheaders, 2000-entry cap).
func (bi *BlockIndex) LocateHeaders(locator BlockLocator, hashStop *chainhash.Hash, maxHeaders uint32) []wire.BlockHeader {
	hashes := bi.LocateBlocks(locator, hashStop, maxHeaders)
	headers := make([]wire.BlockHeader, len(hashes))
	for i, h := range hashes {
		idx := bi.byHash[h]
		headers[i] = bi.entries[idx].header
	}
	return headers
}
