// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math/big"
	"testing"
	"time"

	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/txscript"
	"github.com/libcoin/utxod/wire"
)

func testParams() *chaincfg.Params {
	p := chaincfg.RegressionNetParams
	p.CoinbaseMaturity = 2
	return &p
}

func newTestChainAndPool(t *testing.T) (*blockchain.Chain, *Pool, *chaincfg.Params) {
	t.Helper()
	db, err := database.Open(t.TempDir(), wire.RegressionNet)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	params := testParams()
	c, err := blockchain.New(db, params)
	if err != nil {
		t.Fatalf("initializing chain: %v", err)
	}
	return c, New(c, params), params
}

// hashToBig mirrors blockchain's own little-endian-reversed hash-as-number
// convention, needed here only to brute-force a valid nonce under
// regtest's trivial proof-of-work target.
func hashToBig(hash *chainhash.Hash) *big.Int {
	var buf chainhash.Hash
	for i := 0; i < chainhash.HashSize/2; i++ {
		buf[i], buf[chainhash.HashSize-1-i] = hash[chainhash.HashSize-1-i], hash[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// mineBlock builds and nonce-mines a block atop parent whose coinbase
// pays to an anyone-can-spend (OP_TRUE) output, optionally carrying
// extraTxs.
func mineBlock(t *testing.T, params *chaincfg.Params, parent wire.BlockHeader, parentHeight int32, extra byte, extraTxs ...*wire.MsgTx) *wire.MsgBlock {
	t.Helper()

	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
		SignatureScript:  []byte{byte(parentHeight + 1), extra},
		Sequence:         0xffffffff,
	})
	coinbase.AddTxOut(&wire.TxOut{
		Value:    blockchain.CalcBlockSubsidy(parentHeight+1, params),
		PkScript: []byte{0x51},
	})

	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:   1,
		PrevBlock: parent.BlockHash(),
		Timestamp: parent.Timestamp.Add(time.Minute),
		Bits:      params.PowLimitBits,
	})
	block.AddTransaction(coinbase)
	for _, tx := range extraTxs {
		block.AddTransaction(tx)
	}
	block.Header.MerkleRoot = chainhash.MerkleRoot(block.TxHashes())

	target := blockchain.CompactToBig(params.PowLimitBits)
	for nonce := uint32(0); ; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if hashToBig(&hash).Cmp(target) <= 0 {
			break
		}
	}
	return block
}

// paddedTrueScript pushes 75 filler bytes before OP_TRUE so transactions
// built from it clear the 100-byte minimum relayable size (spec §4.D.5
// step 4) without changing its anyone-can-spend evaluation: the engine's
// final truth check only looks at the top stack item.
func paddedTrueScript() []byte {
	script := make([]byte, 0, 77)
	script = append(script, 75)
	script = append(script, make([]byte, 75)...)
	script = append(script, 0x51)
	return script
}

// spendCoinbase builds a transaction spending output 0 of coinbaseTx
// (an OP_TRUE script) into a standard pay-to-script-hash output, minus
// fee.
func spendCoinbase(coinbaseTx *wire.MsgTx, fee int64) *wire.MsgTx {
	hash := coinbaseTx.TxHash()
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutpoint: wire.Outpoint{Hash: hash, Index: 0},
		SignatureScript:  paddedTrueScript(),
		Sequence:         0xffffffff,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    coinbaseTx.TxOut[0].Value - fee,
		PkScript: txscript.PayToScriptHashScript(make([]byte, 20)),
	})
	return tx
}

func TestProcessTransactionAcceptsMatureSpend(t *testing.T) {
	c, pool, params := newTestChainAndPool(t)
	genesisHeader := params.GenesisBlock.Header

	blk1 := mineBlock(t, params, genesisHeader, 0, 0)
	if _, err := c.ProcessBlock(blk1); err != nil {
		t.Fatalf("accepting blk1: %v", err)
	}
	blk2 := mineBlock(t, params, blk1.Header, 1, 0)
	if _, err := c.ProcessBlock(blk2); err != nil {
		t.Fatalf("accepting blk2: %v", err)
	}

	spend := spendCoinbase(blk1.Transactions[0], minFee(spendCoinbase(blk1.Transactions[0], 0)))
	isOrphan, err := pool.ProcessTransaction(spend)
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if isOrphan {
		t.Fatalf("expected transaction to be accepted directly, not orphaned")
	}

	hash := spend.TxHash()
	if !pool.HaveTransaction(&hash) {
		t.Fatalf("expected accepted transaction to be known to the pool")
	}
}

func TestProcessTransactionRejectsImmatureCoinbaseSpend(t *testing.T) {
	c, pool, params := newTestChainAndPool(t)
	genesisHeader := params.GenesisBlock.Header

	blk1 := mineBlock(t, params, genesisHeader, 0, 0)
	if _, err := c.ProcessBlock(blk1); err != nil {
		t.Fatalf("accepting blk1: %v", err)
	}

	spend := spendCoinbase(blk1.Transactions[0], minFee(spendCoinbase(blk1.Transactions[0], 0)))
	if _, err := pool.ProcessTransaction(spend); err == nil {
		t.Fatalf("expected immature coinbase spend to be rejected")
	}
}

func TestProcessTransactionBuffersOrphanOnMissingParent(t *testing.T) {
	_, pool, params := newTestChainAndPool(t)
	genesisHeader := params.GenesisBlock.Header

	unknownParent := mineBlock(t, params, genesisHeader, 0, 0xaa).Transactions[0]
	spend := spendCoinbase(unknownParent, minFee(spendCoinbase(unknownParent, 0)))

	isOrphan, err := pool.ProcessTransaction(spend)
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if !isOrphan {
		t.Fatalf("expected transaction with an unknown parent to be buffered as an orphan")
	}

	hash := spend.TxHash()
	if pool.HaveTransaction(&hash) {
		t.Fatalf("an orphan is buffered, not accepted — HaveTransaction should still report false")
	}
}

func TestProcessTransactionRejectsDoubleSpendConflict(t *testing.T) {
	c, pool, params := newTestChainAndPool(t)
	genesisHeader := params.GenesisBlock.Header

	blk1 := mineBlock(t, params, genesisHeader, 0, 0)
	if _, err := c.ProcessBlock(blk1); err != nil {
		t.Fatalf("accepting blk1: %v", err)
	}
	blk2 := mineBlock(t, params, blk1.Header, 1, 0)
	if _, err := c.ProcessBlock(blk2); err != nil {
		t.Fatalf("accepting blk2: %v", err)
	}

	first := spendCoinbase(blk1.Transactions[0], minFee(spendCoinbase(blk1.Transactions[0], 0)))
	if _, err := pool.ProcessTransaction(first); err != nil {
		t.Fatalf("accepting first spend: %v", err)
	}

	second := spendCoinbase(blk1.Transactions[0], minFee(spendCoinbase(blk1.Transactions[0], 0))+1000)
	if _, err := pool.ProcessTransaction(second); err == nil {
		t.Fatalf("expected conflicting double-spend to be rejected")
	}
}

func TestCheckTransactionStandardRejectsNonStandardOutput(t *testing.T) {
	tx := wire.NewMsgTx(1)
	// The padded input keeps the transaction above the minimum size, so
	// the output template check is what rejects it.
	tx.AddTxIn(&wire.TxIn{PreviousOutpoint: wire.Outpoint{Index: 0}, SignatureScript: paddedTrueScript(), Sequence: 0xffffffff})
	// An OP_RETURN data-carrier script classifies as nulldata, which the
	// standardness policy does not accept.
	tx.AddTxOut(&wire.TxOut{Value: 1000000, PkScript: []byte{0x6a, 0x04, 'a', 'b', 'c', 'd'}})

	if err := checkTransactionStandard(tx); err == nil {
		t.Fatalf("expected non-standard output script to be rejected")
	}
}

func TestMinFeeBumpsForSmallOutput(t *testing.T) {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{PreviousOutpoint: wire.Outpoint{Index: 0}, SignatureScript: []byte{0x51}, Sequence: 0xffffffff})
	tx.AddTxOut(&wire.TxOut{Value: 500, PkScript: []byte{0x51}})

	if got := minFee(tx); got != smallOutputFee {
		t.Fatalf("expected small-output bump to %d, got %d", smallOutputFee, got)
	}
}

