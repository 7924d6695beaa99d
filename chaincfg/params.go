// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the per-network parameters a node needs: the
// genesis block, wire magic bytes, default port, proof-of-work limit,
// retarget/subsidy constants, a checkpoint table, and the alert authority
// public key (spec §6, §4.D.4, §4.D.1, §4.E.6).
package chaincfg

import (
	"math/big"
	"time"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// Checkpoint is a hard-coded height/hash pair a block on the main chain
// must match (spec §4.D.1).
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Params groups everything that differs between networks.
type Params struct {
	Name        string
	Net         wire.BitcoinNet
	DefaultPort string
	DNSSeeds    []string

	GenesisBlock *wire.MsgBlock
	GenesisHash  *chainhash.Hash

	PowLimit            *big.Int
	PowLimitBits        uint32
	TargetTimespan      time.Duration
	TargetTimePerBlock  time.Duration
	RetargetAdjustFactor int64
	RetargetInterval    int32

	SubsidyHalvingInterval int32
	CoinbaseMaturity       uint16

	Checkpoints []Checkpoint

	// AlertPubKey authorizes signed operator alerts (spec §4.E.6).
	AlertPubKey []byte
}

// BlocksPerRetarget returns the number of blocks between difficulty
// retargets.
func (p *Params) BlocksPerRetarget() int32 { return p.RetargetInterval }

func bigFromHex(s string) *big.Int {
	n := new(big.Int)
	n.SetString(s, 16)
	return n
}

// mainPowLimit is 2^224 - 1, the easiest allowed mainnet target.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))

func mustHash(s string) *chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

// MainNetParams defines the network parameters for the main production
// network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds:    []string{"seed.utxod.org", "dnsseed.utxod.io"},

	GenesisBlock: genesisBlock,
	GenesisHash:  mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),

	PowLimit:             mainPowLimit,
	PowLimitBits:         0x1d00ffff,
	TargetTimespan:       14 * 24 * time.Hour,
	TargetTimePerBlock:   10 * time.Minute,
	RetargetAdjustFactor: 4,
	RetargetInterval:     2016,

	SubsidyHalvingInterval: 210000,
	CoinbaseMaturity:       100,

	Checkpoints: []Checkpoint{
		{Height: 0, Hash: mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")},
		{Height: 11111, Hash: mustHash("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
	},

	AlertPubKey: mainAlertPubKey,
}

// TestNetParams defines the network parameters for the public test
// network, with the same proof-of-work limit as mainnet and no
// checkpoints.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         wire.TestNet,
	DefaultPort: "18333",
	DNSSeeds:    []string{"testnet-seed.utxod.org"},

	GenesisBlock: testNetGenesisBlock,
	GenesisHash:  mustHash("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),

	PowLimit:             mainPowLimit,
	PowLimitBits:         0x1d00ffff,
	TargetTimespan:       14 * 24 * time.Hour,
	TargetTimePerBlock:   10 * time.Minute,
	RetargetAdjustFactor: 4,
	RetargetInterval:     2016,

	SubsidyHalvingInterval: 210000,
	CoinbaseMaturity:       100,

	Checkpoints: nil,

	AlertPubKey: mainAlertPubKey,
}

// RegressionNetParams defines the network parameters for a local
// single-node regression test network: trivial difficulty, no
// checkpoints, no DNS seeds.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.RegressionNet,
	DefaultPort: "18444",

	GenesisBlock: regtestGenesisBlock,
	GenesisHash:  mustHash("0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"),

	PowLimit:             new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1)),
	PowLimitBits:         0x207fffff,
	TargetTimespan:       14 * 24 * time.Hour,
	TargetTimePerBlock:   10 * time.Minute,
	RetargetAdjustFactor: 4,
	RetargetInterval:     150,

	SubsidyHalvingInterval: 150,
	CoinbaseMaturity:       100,
}
