// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/libcoin/utxod/chaincfg"
	"github.com/libcoin/utxod/database"
	"github.com/libcoin/utxod/wire"
)

func testParams() *chaincfg.Params {
	p := chaincfg.RegressionNetParams
	p.CoinbaseMaturity = 2
	return &p
}

func newTestChain(t *testing.T) (*Chain, *chaincfg.Params) {
	t.Helper()
	db, err := database.Open(t.TempDir(), wire.RegressionNet)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	params := testParams()
	c, err := New(db, params)
	if err != nil {
		t.Fatalf("initializing chain: %v", err)
	}
	return c, params
}

// mineBlock builds a valid next block atop parent paying the subsidy to
// a distinguishing coinbase script, brute-forcing the nonce against
// regtest's trivial proof-of-work target.
func mineBlock(t *testing.T, params *chaincfg.Params, parent wire.BlockHeader, parentHeight int32, extra byte) *wire.MsgBlock {
	t.Helper()

	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
		SignatureScript:  []byte{byte(parentHeight + 1), extra},
		Sequence:         0xffffffff,
	})
	coinbase.AddTxOut(&wire.TxOut{
		Value:    CalcBlockSubsidy(parentHeight+1, params),
		PkScript: []byte{0x51},
	})

	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    1,
		PrevBlock:  parent.BlockHash(),
		Timestamp:  parent.Timestamp.Add(time.Minute),
		Bits:       params.PowLimitBits,
	})
	block.AddTransaction(coinbase)
	block.Header.MerkleRoot = merkleRootOf(block)

	for nonce := uint32(0); ; nonce++ {
		block.Header.Nonce = nonce
		if checkProofOfWork(&block.Header, params) == nil {
			break
		}
	}
	return block
}

func TestProcessBlockExtendsChain(t *testing.T) {
	c, params := newTestChain(t)

	genesisHeader := params.GenesisBlock.Header
	blk := mineBlock(t, params, genesisHeader, 0, 0)

	isOrphan, err := c.ProcessBlock(blk)
	if err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	if isOrphan {
		t.Fatalf("expected block to be accepted, not orphaned")
	}
	if c.BestHeight() != 1 {
		t.Fatalf("expected best height 1, got %d", c.BestHeight())
	}
	if got := c.BestHash(); got != blk.BlockHash() {
		t.Fatalf("expected best hash %s, got %s", blk.BlockHash(), got)
	}
}

func TestProcessBlockBuffersOrphan(t *testing.T) {
	c, params := newTestChain(t)

	genesisHeader := params.GenesisBlock.Header
	blk1 := mineBlock(t, params, genesisHeader, 0, 0)
	blk2 := mineBlock(t, params, blk1.Header, 1, 0)

	isOrphan, err := c.ProcessBlock(blk2)
	if err != nil {
		t.Fatalf("ProcessBlock(blk2): %v", err)
	}
	if !isOrphan {
		t.Fatalf("expected blk2 to be buffered as an orphan")
	}
	if c.BestHeight() != 0 {
		t.Fatalf("expected best height still 0, got %d", c.BestHeight())
	}

	isOrphan, err = c.ProcessBlock(blk1)
	if err != nil {
		t.Fatalf("ProcessBlock(blk1): %v", err)
	}
	if isOrphan {
		t.Fatalf("expected blk1 to be accepted directly")
	}
	if c.BestHeight() != 2 {
		t.Fatalf("expected orphan blk2 to be drained once its parent landed, height=%d", c.BestHeight())
	}
	if got := c.BestHash(); got != blk2.BlockHash() {
		t.Fatalf("expected best hash %s after drain, got %s", blk2.BlockHash(), got)
	}
}

func TestSetBestChainReorganizes(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := params.GenesisBlock.Header

	a1 := mineBlock(t, params, genesisHeader, 0, 0x01)
	if _, err := c.ProcessBlock(a1); err != nil {
		t.Fatalf("accepting a1: %v", err)
	}

	b1 := mineBlock(t, params, genesisHeader, 0, 0x02)
	if _, err := c.ProcessBlock(b1); err != nil {
		t.Fatalf("accepting b1: %v", err)
	}
	if c.BestHash() != a1.BlockHash() {
		t.Fatalf("expected a1 still best (first-seen tiebreak), got %s", c.BestHash())
	}

	b2 := mineBlock(t, params, b1.Header, 1, 0x02)
	if _, err := c.ProcessBlock(b2); err != nil {
		t.Fatalf("accepting b2: %v", err)
	}
	if c.BestHash() != b2.BlockHash() {
		t.Fatalf("expected reorganization onto the longer b-branch, best=%s want=%s", c.BestHash(), b2.BlockHash())
	}
	if c.BestHeight() != 2 {
		t.Fatalf("expected height 2 after reorg, got %d", c.BestHeight())
	}
}

func TestConnectBlockRejectsImmatureCoinbaseSpend(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := params.GenesisBlock.Header

	blk1 := mineBlock(t, params, genesisHeader, 0, 0)
	if _, err := c.ProcessBlock(blk1); err != nil {
		t.Fatalf("accepting blk1: %v", err)
	}

	coinbaseHash := blk1.Transactions[0].TxHash()
	spend := wire.NewMsgTx(1)
	spend.AddTxIn(&wire.TxIn{
		PreviousOutpoint: wire.Outpoint{Hash: coinbaseHash, Index: 0},
		SignatureScript:  []byte{0x51},
		Sequence:         0xffffffff,
	})
	spend.AddTxOut(&wire.TxOut{Value: 1, PkScript: []byte{0x51}})

	blk2 := mineBlock(t, params, blk1.Header, 1, 0)
	blk2.Transactions = append(blk2.Transactions, spend)
	blk2.Header.MerkleRoot = merkleRootOf(blk2)
	for nonce := uint32(0); ; nonce++ {
		blk2.Header.Nonce = nonce
		if checkProofOfWork(&blk2.Header, params) == nil {
			break
		}
	}

	if _, err := c.ProcessBlock(blk2); err == nil {
		t.Fatalf("expected immature coinbase spend to be rejected")
	}
}
