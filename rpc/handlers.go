// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/coinjson"
	"github.com/libcoin/utxod/wire"
)

// handlerFunc answers one RPC method call given its raw JSON params.
type handlerFunc func(s *Server, params []json.RawMessage) (interface{}, error)

// handlers is the method-name dispatch table (spec §6's seven
// core-observable methods), a plain map rather than the teacher's
// reflection-based command registry — see DESIGN.md.
var handlers = map[string]handlerFunc{
	"getdebit":      handleGetDebit,
	"getcredit":     handleGetCredit,
	"getcoins":      handleGetCoins,
	"getvalue":      handleGetValue,
	"gettxdetails":  handleGetTxDetails,
	"gettxmaturity": handleGetTxMaturity,
	"posttx":        handlePostTx,
}

func decodeAddressParam(params []json.RawMessage) (*chainhash.Hash160, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("missing address parameter")
	}
	var addrHex string
	if err := json.Unmarshal(params[0], &addrHex); err != nil {
		return nil, fmt.Errorf("invalid address parameter: %w", err)
	}
	b, err := hex.DecodeString(addrHex)
	if err != nil || len(b) != chainhash.Hash160Size {
		return nil, fmt.Errorf("address must be a %d-byte hex-encoded hash", chainhash.Hash160Size)
	}
	var h chainhash.Hash160
	copy(h[:], b)
	return &h, nil
}

func outpointsToCmdShape(ops []wire.Outpoint) []coinjson.Outpoint {
	out := make([]coinjson.Outpoint, len(ops))
	for i, op := range ops {
		out[i] = coinjson.Outpoint{Hash: op.Hash.String(), N: op.Index}
	}
	return out
}

// handleGetDebit answers getdebit(address): every coin paying address,
// confirmed and mempool-pending (spec §6).
func handleGetDebit(s *Server, params []json.RawMessage) (interface{}, error) {
	addr, err := decodeAddressParam(params)
	if err != nil {
		return nil, err
	}
	confirmed := s.chain.DebitSet(addr)
	pending := s.mempool.PendingDebits(addr)
	return outpointsToCmdShape(append(confirmed, pending...)), nil
}

// handleGetCredit answers getcredit(address): every coin address has
// spent, confirmed and mempool-pending (spec §6).
func handleGetCredit(s *Server, params []json.RawMessage) (interface{}, error) {
	addr, err := decodeAddressParam(params)
	if err != nil {
		return nil, err
	}
	confirmed := s.chain.CreditSet(addr)
	pending := s.mempool.PendingCredits(addr)
	return outpointsToCmdShape(append(confirmed, pending...)), nil
}

// handleGetCoins answers getcoins(address): address's unspent coins
// (debits minus credits, spec §4.D.6), delegating to the same
// combinator the mempool exposes for balance queries.
func handleGetCoins(s *Server, params []json.RawMessage) (interface{}, error) {
	addr, err := decodeAddressParam(params)
	if err != nil {
		return nil, err
	}
	return outpointsToCmdShape(s.mempool.UnspentCoins(addr)), nil
}

// handleGetValue answers getvalue(address): the total satoshi value of
// address's unspent coins (spec §6).
func handleGetValue(s *Server, params []json.RawMessage) (interface{}, error) {
	addr, err := decodeAddressParam(params)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, op := range s.mempool.UnspentCoins(addr) {
		if utxo, ok := s.chain.LookupUTXO(op); ok {
			total += utxo.Out.Value
			continue
		}
		if tx, ok := s.mempool.LookupTransaction(&op.Hash); ok && int(op.Index) < len(tx.TxOut) {
			total += tx.TxOut[op.Index].Value
		}
	}
	return &coinjson.GetValueResult{Value: total}, nil
}

func decodeTxHashParam(params []json.RawMessage) (*chainhash.Hash, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("missing transaction hash parameter")
	}
	var hashStr string
	if err := json.Unmarshal(params[0], &hashStr); err != nil {
		return nil, fmt.Errorf("invalid transaction hash parameter: %w", err)
	}
	return chainhash.NewHashFromStr(hashStr)
}

// handleGetTxDetails answers gettxdetails(tx_hash) (spec §6): the
// decoded view of a pending or confirmed transaction.
func handleGetTxDetails(s *Server, params []json.RawMessage) (interface{}, error) {
	hash, err := decodeTxHashParam(params)
	if err != nil {
		return nil, err
	}

	tx, found := s.mempool.LookupTransaction(hash)
	if !found {
		var err error
		tx, err = s.chain.ConfirmedTx(hash)
		if err != nil {
			return nil, fmt.Errorf("unknown transaction %s", hash)
		}
	}

	result := &coinjson.GetTxDetailsResult{
		Hash:     hash.String(),
		Ver:      tx.Version,
		VinSize:  len(tx.TxIn),
		VoutSize: len(tx.TxOut),
		LockTime: tx.LockTime,
		Size:     tx.SerializeSize(),
	}
	if height, ok := s.chain.TxBlockHeight(hash); ok {
		result.BlockHeight = height
	}

	for _, in := range tx.TxIn {
		if tx.IsCoinbase() {
			result.In = append(result.In, coinjson.TxDetailsInput{Coinbase: hex.EncodeToString(in.SignatureScript)})
			continue
		}
		result.In = append(result.In, coinjson.TxDetailsInput{
			PrevOut: &coinjson.Outpoint{
				Hash: in.PreviousOutpoint.Hash.String(),
				N:    in.PreviousOutpoint.Index,
			},
			ScriptSig: hex.EncodeToString(in.SignatureScript),
		})
	}
	for _, out := range tx.TxOut {
		result.Out = append(result.Out, coinjson.TxDetailsOutput{
			Value:        formatCoinValue(out.Value),
			ScriptPubKey: hex.EncodeToString(out.PkScript),
		})
	}
	return result, nil
}

// formatCoinValue renders a satoshi amount as the fixed "x.xxxxxxxx"
// string spec §6 requires for gettxdetails output values.
func formatCoinValue(satoshis int64) string {
	whole := satoshis / 1e8
	frac := satoshis % 1e8
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%08d", whole, frac)
}

// handleGetTxMaturity answers gettxmaturity(tx_hash) (spec §6):
// confirmation depth and propagation status. Propagation across the
// peer set is not tracked: known_in_nodes and of_nodes are always
// reported as 1, a single-node view.
func handleGetTxMaturity(s *Server, params []json.RawMessage) (interface{}, error) {
	hash, err := decodeTxHashParam(params)
	if err != nil {
		return nil, err
	}
	if !s.mempool.HaveTransaction(hash) {
		return nil, fmt.Errorf("unknown transaction %s", hash)
	}

	confirmations := 0
	if depth, ok := s.chain.TxConfirmations(hash); ok {
		confirmations = int(depth)
	}
	return &coinjson.GetTxMaturityResult{
		Confirmations: confirmations,
		KnownInNodes:  1,
		OfNodes:       1,
	}, nil
}

// handlePostTx answers posttx({...}) (spec §6): decodes a
// hex-serialized transaction, runs acceptTransaction, and relays it via
// the hook bus on success.
func handlePostTx(s *Server, params []json.RawMessage) (interface{}, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("missing transaction parameter")
	}
	var txHex string
	if err := json.Unmarshal(params[0], &txHex); err != nil {
		return nil, fmt.Errorf("invalid transaction parameter: %w", err)
	}
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("transaction is not valid hex: %w", err)
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("malformed transaction: %w", err)
	}

	if _, err := s.mempool.ProcessTransaction(tx); err != nil {
		return nil, err
	}
	s.bus.WireMempool().OnTxAccepted(tx)
	return nil, nil
}
