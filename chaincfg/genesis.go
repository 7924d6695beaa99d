// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// genesisCoinbaseTx is the lone transaction of the mainnet genesis block.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{
		{
			PreviousOutpoint: wire.Outpoint{
				Hash:  chainhash.Hash{},
				Index: 0xffffffff,
			},
			SignatureScript: []byte{
				0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04, 0x45,
				0x54, 0x68, 0x65, 0x20, 0x54, 0x69, 0x6d, 0x65,
				0x73, 0x20, 0x30, 0x33, 0x2f, 0x4a, 0x61, 0x6e,
				0x2f, 0x32, 0x30, 0x30, 0x39, 0x20, 0x43, 0x68,
				0x61, 0x6e, 0x63, 0x65, 0x6c, 0x6c, 0x6f, 0x72,
				0x20, 0x6f, 0x6e, 0x20, 0x62, 0x72, 0x69, 0x6e, 0x6b,
				0x20, 0x6f, 0x66, 0x20, 0x73, 0x65, 0x63, 0x6f,
				0x6e, 0x64, 0x20, 0x62, 0x61, 0x69, 0x6c, 0x6f,
				0x75, 0x74, 0x20, 0x66, 0x6f, 0x72, 0x20, 0x62,
				0x61, 0x6e, 0x6b, 0x73,
			},
			Sequence: 0xffffffff,
		},
	},
	TxOut: []*wire.TxOut{
		{
			Value: 0x12a05f200,
			PkScript: []byte{
				0x41, 0x04, 0x67, 0x8a, 0xfd, 0xb0, 0xfe, 0x55,
				0x48, 0x27, 0x19, 0x67, 0xf1, 0xa6, 0x71, 0x30,
				0xb7, 0x10, 0x5c, 0xd6, 0xa8, 0x28, 0xe0, 0x39,
				0x09, 0xa6, 0x79, 0x62, 0xe0, 0xea, 0x1f, 0x61,
				0xde, 0xb6, 0x49, 0xf6, 0xbc, 0x3f, 0x4c, 0xef,
				0x38, 0xc4, 0xf3, 0x55, 0x04, 0xe5, 0x1e, 0xc1,
				0x12, 0xde, 0x5c, 0x38, 0x4d, 0xf7, 0xba, 0x0b,
				0x8d, 0x57, 0x8a, 0x4c, 0x70, 0x2b, 0x6b, 0xf1,
				0x1d, 0x5f, 0xac,
			},
		},
	},
	LockTime: 0,
}

// genesisMerkleRoot is the Merkle root of a block containing only
// genesisCoinbaseTx — equivalently, the double-SHA256 of that single
// transaction's serialization. Verified in S1 (spec §8).
var genesisMerkleRoot = mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

// genesisBlock is the mainnet genesis block described exactly by spec §8
// scenario S1: version 1, zero prev hash, time 1231006505, bits
// 0x1d00ffff, nonce 2083236893.
var genesisBlock = &wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1231006505, 0),
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// testNetGenesisBlock mirrors genesisBlock but with a distinguishing
// timestamp and nonce so the two networks never share a genesis hash.
var testNetGenesisBlock = &wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1296688602, 0),
		Bits:       0x1d00ffff,
		Nonce:      414098458,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// regtestGenesisBlock is the trivial-difficulty genesis used for local
// single-node regression testing.
var regtestGenesisBlock = &wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1296688602, 0),
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// mainAlertPubKey authorizes signed operator alerts on mainnet and
// testnet (spec §4.E.6). It is a placeholder uncompressed secp256k1
// public key; operators deploying this node to a live network must
// replace it with the alert authority they actually trust.
var mainAlertPubKey = []byte{
	0x04, 0xfc, 0x97, 0x02, 0x84, 0x78, 0x40, 0xaa, 0xf1, 0x95,
	0xde, 0x84, 0x42, 0xeb, 0xec, 0xed, 0xf5, 0xb0, 0x95, 0xcd,
	0xbb, 0x9b, 0xc7, 0x16, 0xbd, 0xa9, 0x11, 0x09, 0x71, 0xb2,
	0x8a, 0x49, 0xe0, 0xea, 0xd8, 0x56, 0x4f, 0xf0, 0xdb, 0x22,
	0x20, 0x9e, 0x03, 0x74, 0x78, 0x2c, 0x09, 0x3b, 0xb8, 0x99,
	0x69, 0x2d, 0x52, 0x4e, 0x9d, 0x6a, 0x69, 0x56, 0xe7, 0xc5,
	0xec, 0xbc, 0xd6, 0x82, 0x84,
}
