// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

func emptyHash() chainhash.Hash { return chainhash.Hash{} }

// hashToBig interprets a hash as a big-endian-reversed big integer, the
// same convention used to compare a block hash against its difficulty
// target (hashes are stored/displayed reversed relative to their
// natural big-endian numeric reading).
func hashToBig(hash *chainhash.Hash) *big.Int {
	var buf chainhash.Hash
	for i := 0; i < chainhash.HashSize/2; i++ {
		buf[i], buf[chainhash.HashSize-1-i] = hash[chainhash.HashSize-1-i], hash[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

func merkleRootOf(block *wire.MsgBlock) chainhash.Hash {
	return chainhash.MerkleRoot(block.TxHashes())
}
