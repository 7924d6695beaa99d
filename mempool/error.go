// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the unconfirmed transaction pool (spec
// §4.D.5): acceptance policy, orphan transactions awaiting a missing
// parent, and the free-relay throttle.
package mempool

import "fmt"

// ErrorCode identifies why acceptTransaction rejected a transaction.
type ErrorCode int

const (
	ErrNonStandard ErrorCode = iota
	ErrTooManySigOps
	ErrTooSmall
	ErrAlreadyKnown
	ErrOrphanPolicyViolation
	ErrDoubleSpend
	ErrMissingTxOut
	ErrFeeTooLow
	ErrImmatureSpend
	ErrScriptVerification
	ErrSpendTooHigh
	ErrFreeRelayThrottled
)

// TxRuleError is returned whenever a transaction fails mempool policy.
// Never a panic, so a malformed or merely unprofitable transaction can
// never unwind the caller.
type TxRuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e TxRuleError) Error() string { return e.Description }

func txRuleError(c ErrorCode, desc string) TxRuleError {
	return TxRuleError{ErrorCode: c, Description: desc}
}

func txRuleErrorf(c ErrorCode, format string, args ...interface{}) TxRuleError {
	return TxRuleError{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}
