// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec"

	"github.com/libcoin/utxod/wire"
)

// ScriptFlags is a bitmask of additional checks an Engine applies beyond
// the minimum required for consensus validity. Mempool acceptance and
// block connection both run with the same strict set
// (blockchain.StandardScriptVerifyFlags) at every height.
type ScriptFlags uint32

const (
	ScriptNoFlags ScriptFlags = 0

	// ScriptDiscourageUpgradableNops rejects OP_NOP1-OP_NOP10 outside
	// of a soft-fork redefinition. Policy only, never consensus.
	ScriptDiscourageUpgradableNops ScriptFlags = 1 << iota

	// ScriptVerifyStrictEncoding requires DER signatures and the two
	// defined public key encodings.
	ScriptVerifyStrictEncoding

	// ScriptVerifyLowS rejects signatures with a high S value (BIP62).
	ScriptVerifyLowS

	// ScriptVerifyCleanStack requires exactly one item remain on the
	// stack at the end of the public key script.
	ScriptVerifyCleanStack

	// ScriptBip16 enables pay-to-script-hash evaluation of the
	// signature script's final data push.
	ScriptBip16
)

const (
	MaxStackSize          = 244
	MaxScriptSize         = 10000
	MaxScriptElementSize  = 520
	MaxOpsPerScript       = 201
	MaxPubKeysPerMultiSig = 20
)

// halfOrder bounds a valid signature's S value to the curve's lower half,
// taming the historical ECDSA malleability that let a signature be
// re-encoded into a different but equally valid byte string (BIP62).
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// Engine is the virtual machine that evaluates a signature script against
// a public key script for one transaction input (spec §4.A.3).
type Engine struct {
	scripts     [][]parsedOpcode
	scriptIdx   int
	scriptOff   int
	lastCodeSep int
	dstack      stack
	astack      stack
	tx          wire.MsgTx
	txIdx       int
	inputValue  int64
	condStack   []int
	numOps      int
	flags       ScriptFlags
	isP2SH      bool
	savedFirstStack [][]byte
}

func (vm *Engine) hasFlag(flag ScriptFlags) bool { return vm.flags&flag == flag }

func (vm *Engine) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1] == OpCondTrue
}

func (vm *Engine) executeOpcode(pop *parsedOpcode) error {
	if pop.isDisabled() {
		return scriptErrorf(ErrDisabledOpcode, "attempt to execute disabled opcode %s", pop.opcode.name)
	}
	if pop.alwaysIllegal() {
		return scriptErrorf(ErrReservedOpcode, "attempt to execute reserved opcode %s", pop.opcode.name)
	}

	if pop.opcode.value > Op16 {
		vm.numOps++
		if vm.numOps > MaxOpsPerScript {
			return scriptErrorf(ErrTooManyOperations, "exceeded max operation limit of %d", MaxOpsPerScript)
		}
	} else if len(pop.data) > MaxScriptElementSize {
		return scriptErrorf(ErrElementTooBig, "element size %d exceeds max allowed size %d", len(pop.data), MaxScriptElementSize)
	}

	if !vm.isBranchExecuting() && !pop.isConditional() {
		return nil
	}

	if vm.isBranchExecuting() && pop.opcode.value >= 0 && pop.opcode.value <= OpPushData4 {
		if err := pop.checkMinimalDataPush(); err != nil {
			return err
		}
	}

	return pop.opcode.opfunc(pop, vm)
}

func (vm *Engine) validPC() error {
	if vm.scriptIdx >= len(vm.scripts) {
		return scriptErrorf(ErrInvalidProgramCounter, "past input scripts %v:%v %v:xxxx", vm.scriptIdx, vm.scriptOff, len(vm.scripts))
	}
	if vm.scriptOff >= len(vm.scripts[vm.scriptIdx]) {
		return scriptErrorf(ErrInvalidProgramCounter, "past input scripts %v:%v %v:%04d", vm.scriptIdx, vm.scriptOff, vm.scriptIdx, len(vm.scripts[vm.scriptIdx]))
	}
	return nil
}

// Step executes the next instruction, reporting whether execution has
// reached the end of the final script.
func (vm *Engine) Step() (done bool, err error) {
	if err = vm.validPC(); err != nil {
		return true, err
	}
	opcode := &vm.scripts[vm.scriptIdx][vm.scriptOff]
	vm.scriptOff++

	if err = vm.executeOpcode(opcode); err != nil {
		return true, err
	}

	if vm.dstack.Depth()+vm.astack.Depth() > MaxStackSize {
		return true, scriptErrorf(ErrStackOverflow, "combined stack size exceeds max of %d", MaxStackSize)
	}

	if vm.scriptOff < len(vm.scripts[vm.scriptIdx]) {
		return false, nil
	}

	if len(vm.condStack) != 0 {
		return false, scriptErrorf(ErrUnbalancedConditional, "end of script reached in conditional execution")
	}

	vm.scriptOff = 0
	if vm.scriptIdx == 0 && vm.isP2SH {
		vm.scriptIdx++
		vm.savedFirstStack = append([][]byte(nil), vm.dstack.stk...)
	} else if vm.scriptIdx == 1 && vm.isP2SH {
		vm.scriptIdx++
		if err := vm.CheckErrorCondition(false); err != nil {
			return true, err
		}
		script := vm.savedFirstStack[len(vm.savedFirstStack)-1]
		pops, err := parseScript(script)
		if err != nil {
			return true, err
		}
		vm.scripts = append(vm.scripts, pops)
		vm.dstack.stk = vm.savedFirstStack[:len(vm.savedFirstStack)-1]
	} else {
		vm.scriptIdx++
	}

	if vm.scriptIdx >= len(vm.scripts) {
		return true, nil
	}
	return false, nil
}

// Execute runs every remaining step and checks the final result.
func (vm *Engine) Execute() error {
	done := false
	for !done {
		var err error
		done, err = vm.Step()
		if err != nil {
			return err
		}
	}
	return vm.CheckErrorCondition(true)
}

// CheckErrorCondition reports whether the script left exactly a true
// value on the stack.
func (vm *Engine) CheckErrorCondition(finalScript bool) error {
	if vm.scriptIdx < len(vm.scripts) {
		return scriptErrorf(ErrScriptUnfinished, "error check when script unfinished")
	}
	if finalScript && vm.hasFlag(ScriptVerifyCleanStack) {
		if vm.dstack.Depth() > 1 {
			return scriptErrorf(ErrCleanStack, "stack contains %d unexpected items", vm.dstack.Depth()-1)
		}
	}
	if vm.dstack.Depth() < 1 {
		return scriptErrorf(ErrEmptyStack, "stack empty at end of script execution")
	}
	v, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !v {
		return scriptErrorf(ErrEvalFalse, "false stack entry at end of script execution")
	}
	return nil
}

// checkSignature verifies a DER-or-empty signature against a public key
// for the transaction input currently under evaluation.
func (vm *Engine) checkSignature(fullSigBytes, pkBytes []byte, scriptIdx int) (bool, error) {
	if len(fullSigBytes) == 0 {
		return false, nil
	}
	hashType := SigHashType(fullSigBytes[len(fullSigBytes)-1])
	sigBytes := fullSigBytes[:len(fullSigBytes)-1]

	pubKey, err := btcec.ParsePubKey(pkBytes, btcec.S256())
	if err != nil {
		return false, nil
	}
	signature, err := btcec.ParseDERSignature(sigBytes, btcec.S256())
	if err != nil {
		return false, nil
	}
	if vm.hasFlag(ScriptVerifyLowS) && signature.S.Cmp(halfOrder) > 0 {
		return false, nil
	}

	subScript := vm.scripts[scriptIdx][vm.lastCodeSep:]
	hash, err := calcSignatureHash(subScript, hashType, &vm.tx, vm.txIdx)
	if err != nil {
		return false, err
	}
	return signature.Verify(hash, pubKey), nil
}

// NewEngine builds an Engine ready to evaluate sigScript against pkScript
// for input txIdx of tx.
func NewEngine(pkScript []byte, tx *wire.MsgTx, txIdx int, flags ScriptFlags, inputValue int64) (*Engine, error) {
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return nil, scriptErrorf(ErrInvalidIndex, "transaction input index %d >= number of inputs %d", txIdx, len(tx.TxIn))
	}
	sigScript := tx.TxIn[txIdx].SignatureScript

	if len(sigScript) > MaxScriptSize || len(pkScript) > MaxScriptSize {
		return nil, scriptErrorf(ErrElementTooBig, "script size exceeds maximum allowed size of %d", MaxScriptSize)
	}

	sigPops, err := parseScript(sigScript)
	if err != nil {
		return nil, err
	}
	pkPops, err := parseScript(pkScript)
	if err != nil {
		return nil, err
	}

	vm := &Engine{
		scripts:    [][]parsedOpcode{sigPops, pkPops},
		tx:         *tx,
		txIdx:      txIdx,
		inputValue: inputValue,
		flags:      flags,
	}
	vm.dstack.verifyMinimalData = true
	vm.astack.verifyMinimalData = true

	if flags&ScriptBip16 != 0 && isScriptHash(pkPops) {
		if !isPushOnly(sigPops) {
			return nil, scriptErrorf(ErrNotMultisigScript, "signature script for pay-to-script-hash is not push only")
		}
		vm.isP2SH = true
	}

	return vm, nil
}

func isPushOnly(pops []parsedOpcode) bool {
	for _, pop := range pops {
		if pop.opcode.value > Op16 {
			return false
		}
	}
	return true
}
