// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the chain engine (spec §4.D): block
// acceptance, the in-memory BlockIndex arena, difficulty retarget,
// reorganization, and the address debit/credit index.
package blockchain

import "fmt"

// ErrorCode identifies a specific rule violation a block or transaction
// failed, so callers (mempool policy, RPC error codes) can branch on
// failure class instead of string matching.
type ErrorCode int

const (
	ErrDuplicateBlock ErrorCode = iota
	ErrBlockTooBig
	ErrNoTransactions
	ErrNoTxInputs
	ErrNoTxOutputs
	ErrBadTxOutValue
	ErrDuplicateTxInputs
	ErrMissingParent
	ErrBadMerkleRoot
	ErrBadCheckpoint
	ErrForkTooOld
	ErrBadProofOfWork
	ErrBadDifficultyBits
	ErrTimeTooOld
	ErrTimeTooNew
	ErrUnfinalizedTx
	ErrDoubleSpend
	ErrSpendTooHigh
	ErrBadFees
	ErrTooManySigOps
	ErrImmatureSpend
	ErrMissingTxOut
	ErrBadCoinbaseValue
	ErrFirstTxNotCoinbase
	ErrMultipleCoinbases
	ErrBadCoinbaseScriptLen
)

// RuleError is returned whenever a block or transaction fails a
// consensus rule. It is an ordinary error value, never a panic, so a
// malicious or malformed block can never unwind the chain engine's
// caller.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string { return e.Description }

func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

func ruleErrorf(c ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}
