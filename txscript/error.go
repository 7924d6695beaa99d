// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript implements the stack-based script VM used to gate coin
// spends (spec §4.A.3). Every opcode handler returns an error instead of
// panicking: a script failure is an ordinary Go error value, never a
// recovered panic, so a malformed or adversarial script can never unwind
// the engine's caller (spec §9 design notes).
package txscript

import "fmt"

// ErrorCode identifies the specific kind of script error.
type ErrorCode int

const (
	ErrInternal ErrorCode = iota
	ErrInvalidFlags
	ErrInvalidIndex
	ErrUnsupportedAddress
	ErrNotMultisigScript
	ErrTooManyRequiredSigs
	ErrTooManyOperations
	ErrElementTooBig
	ErrUnbalancedConditional
	ErrNegativeLockTime
	ErrLockTimeTooBig
	ErrDisabledOpcode
	ErrReservedOpcode
	ErrMalformedPush
	ErrInvalidStackOperation
	ErrUnbalancedPop
	ErrVerify
	ErrEqualVerify
	ErrNumEqualVerify
	ErrCheckSigVerify
	ErrCheckMultiSigVerify
	ErrEvalFalse
	ErrEmptyStack
	ErrScriptUnfinished
	ErrInvalidProgramCounter
	ErrCleanStack
	ErrDiscourageUpgradableNOPs
	ErrNegativeSubnetworkIndex
	ErrPubKeyFormat
	ErrSigTooShort
	ErrSigTooLong
	ErrSigHighS
	ErrNumberTooBig
	ErrMinimalData
	ErrInvalidSigHashType
	ErrStackOverflow
	ErrEarlyReturn
)

// Error implements the error interface for a script execution failure,
// tagging it with a stable ErrorCode so callers can branch on failure class
// (e.g. mempool policy rejections vs. consensus rejections) without string
// matching.
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

func (e Error) Error() string { return e.Description }

func scriptError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

func scriptErrorf(c ErrorCode, format string, args ...interface{}) Error {
	return Error{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}
