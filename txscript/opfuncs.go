// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "bytes"

func opcodeFalse(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushByteArray(nil)
	return nil
}

func opcodePushData(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushByteArray(pop.data)
	return nil
}

func opcodeNegate(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(-1))
	return nil
}

func opcodeN(n byte) func(*parsedOpcode, *Engine) error {
	return func(pop *parsedOpcode, vm *Engine) error {
		vm.dstack.PushInt(scriptNum(n))
		return nil
	}
}

func opcodeNop(pop *parsedOpcode, vm *Engine) error {
	if pop.opcode.value >= OpNop1 && pop.opcode.value <= OpNop10 {
		if vm.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptErrorf(ErrDiscourageUpgradableNOPs, "OP_NOP%d reserved for soft-fork upgrades", pop.opcode.value-OpNop1+1)
		}
	}
	return nil
}

func popIfBool(vm *Engine) (bool, error) { return vm.dstack.PopBool() }

func opcodeIf(pop *parsedOpcode, vm *Engine) error {
	condVal := OpCondFalse
	if vm.isBranchExecuting() {
		v, err := popIfBool(vm)
		if err != nil {
			return err
		}
		if v {
			condVal = OpCondTrue
		}
	} else {
		condVal = OpCondSkip
	}
	vm.condStack = append(vm.condStack, condVal)
	return nil
}

func opcodeNotIf(pop *parsedOpcode, vm *Engine) error {
	condVal := OpCondFalse
	if vm.isBranchExecuting() {
		v, err := popIfBool(vm)
		if err != nil {
			return err
		}
		if !v {
			condVal = OpCondTrue
		}
	} else {
		condVal = OpCondSkip
	}
	vm.condStack = append(vm.condStack, condVal)
	return nil
}

func opcodeElse(pop *parsedOpcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		return scriptErrorf(ErrUnbalancedConditional, "encountered OP_ELSE with no matching OP_IF")
	}
	top := len(vm.condStack) - 1
	switch vm.condStack[top] {
	case OpCondTrue:
		vm.condStack[top] = OpCondFalse
	case OpCondFalse:
		vm.condStack[top] = OpCondTrue
	case OpCondSkip:
	}
	return nil
}

func opcodeEndif(pop *parsedOpcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		return scriptErrorf(ErrUnbalancedConditional, "encountered OP_ENDIF with no matching OP_IF")
	}
	vm.condStack = vm.condStack[:len(vm.condStack)-1]
	return nil
}

func abstractVerify(pop *parsedOpcode, vm *Engine, c ErrorCode) error {
	verified, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !verified {
		return scriptErrorf(c, "%s failed", pop.opcode.name)
	}
	return nil
}

func opcodeVerify(pop *parsedOpcode, vm *Engine) error { return abstractVerify(pop, vm, ErrVerify) }

func opcodeReturn(pop *parsedOpcode, vm *Engine) error {
	return scriptErrorf(ErrEarlyReturn, "script returned early")
}

func opcodeToAltStack(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.astack.PushByteArray(so)
	return nil
}

func opcodeFromAltStack(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.astack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushByteArray(so)
	return nil
}

func opcode2Drop(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DropN(2) }

func opcode2Dup(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DupN(2) }

func opcode3Dup(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DupN(3) }

func opcode2Over(pop *parsedOpcode, vm *Engine) error { return vm.dstack.OverN(2) }

func opcode2Rot(pop *parsedOpcode, vm *Engine) error { return vm.dstack.RotN(2) }

func opcode2Swap(pop *parsedOpcode, vm *Engine) error { return vm.dstack.SwapN(2) }

func opcodeIfDup(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	if asBool(so) {
		vm.dstack.PushByteArray(so)
	}
	return nil
}

func opcodeDepth(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
	return nil
}

func opcodeDrop(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DropN(1) }

func opcodeDup(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DupN(1) }

func opcodeNip(pop *parsedOpcode, vm *Engine) error { return vm.dstack.NipN(1) }

func opcodeOver(pop *parsedOpcode, vm *Engine) error { return vm.dstack.OverN(1) }

func opcodePick(pop *parsedOpcode, vm *Engine) error {
	val, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	return vm.dstack.PickN(int32(val))
}

func opcodeRoll(pop *parsedOpcode, vm *Engine) error {
	val, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	return vm.dstack.RollN(int32(val))
}

func opcodeRot(pop *parsedOpcode, vm *Engine) error { return vm.dstack.RotN(1) }

func opcodeSwap(pop *parsedOpcode, vm *Engine) error { return vm.dstack.SwapN(1) }

func opcodeTuck(pop *parsedOpcode, vm *Engine) error { return vm.dstack.Tuck() }

func opcodeSize(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(scriptNum(len(so)))
	return nil
}

func opcodeEqual(pop *parsedOpcode, vm *Engine) error {
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(bytes.Equal(a, b))
	return nil
}

func opcodeEqualVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeEqual(pop, vm); err != nil {
		return err
	}
	return abstractVerify(pop, vm, ErrEqualVerify)
}

func opcode1Add(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(n + 1)
	return nil
}

func opcode1Sub(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(n - 1)
	return nil
}

func opcodeArithNegate(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(-n)
	return nil
}

func opcodeAbs(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	if n < 0 {
		n = -n
	}
	vm.dstack.PushInt(n)
	return nil
}

func opcodeNot(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(n == 0)
	return nil
}

func opcode0NotEqual(pop *parsedOpcode, vm *Engine) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(n != 0)
	return nil
}

func opcodeAdd(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(a + b)
	return nil
}

func opcodeSub(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(a - b)
	return nil
}

func opcodeBoolAnd(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a != 0 && b != 0)
	return nil
}

func opcodeBoolOr(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a != 0 || b != 0)
	return nil
}

func opcodeNumEqual(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a == b)
	return nil
}

func opcodeNumEqualVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeNumEqual(pop, vm); err != nil {
		return err
	}
	return abstractVerify(pop, vm, ErrNumEqualVerify)
}

func opcodeNumNotEqual(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a != b)
	return nil
}

func opcodeLessThan(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a < b)
	return nil
}

func opcodeGreaterThan(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a > b)
	return nil
}

func opcodeLessThanOrEqual(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a <= b)
	return nil
}

func opcodeGreaterThanOrEqual(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(a >= b)
	return nil
}

func opcodeMin(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	if a < b {
		vm.dstack.PushInt(a)
	} else {
		vm.dstack.PushInt(b)
	}
	return nil
}

func opcodeMax(pop *parsedOpcode, vm *Engine) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	if a > b {
		vm.dstack.PushInt(a)
	} else {
		vm.dstack.PushInt(b)
	}
	return nil
}

func opcodeWithin(pop *parsedOpcode, vm *Engine) error {
	maxVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	minVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	x, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= minVal && x < maxVal)
	return nil
}

func hashOp(f func([]byte) []byte) func(*parsedOpcode, *Engine) error {
	return func(pop *parsedOpcode, vm *Engine) error {
		so, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		vm.dstack.PushByteArray(f(so))
		return nil
	}
}

var (
	opcodeRipemd160 = hashOp(ripemd160Sum)
	opcodeSha1      = hashOp(sha1Sum)
	opcodeSha256    = hashOp(sha256Sum)
	opcodeHash160   = hashOp(hash160)
	opcodeHash256   = hashOp(hash256)
)

func opcodeCodeSeparator(pop *parsedOpcode, vm *Engine) error {
	vm.lastCodeSep = vm.scriptOff
	return nil
}

func opcodeCheckSig(pop *parsedOpcode, vm *Engine) error {
	pkBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	fullSigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(fullSigBytes) == 0 {
		vm.dstack.PushBool(false)
		return nil
	}

	ok, err := vm.checkSignature(fullSigBytes, pkBytes, vm.scriptIdx)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(ok)
	return nil
}

func opcodeCheckSigVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeCheckSig(pop, vm); err != nil {
		return err
	}
	return abstractVerify(pop, vm, ErrCheckSigVerify)
}

func opcodeCheckMultiSig(pop *parsedOpcode, vm *Engine) error {
	numKeys, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	numPubKeys := int(numKeys)
	if numPubKeys < 0 || numPubKeys > MaxPubKeysPerMultiSig {
		return scriptErrorf(ErrTooManyRequiredSigs, "multisig pubkey count %d exceeds max %d", numPubKeys, MaxPubKeysPerMultiSig)
	}
	pubKeys := make([][]byte, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pk, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys[i] = pk
	}

	numSigsVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	numSigs := int(numSigsVal)
	if numSigs < 0 || numSigs > numPubKeys {
		return scriptErrorf(ErrInvalidStackOperation, "invalid multisig signature count %d for %d keys", numSigs, numPubKeys)
	}
	signatures := make([][]byte, numSigs)
	for i := 0; i < numSigs; i++ {
		sig, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		signatures[i] = sig
	}

	// CHECKMULTISIG consumes an extra stack item, the historical
	// off-by-one bug preserved for wire compatibility.
	if _, err := vm.dstack.PopByteArray(); err != nil {
		return err
	}

	success := true
	pkIdx := 0
	sigIdx := 0
	for sigIdx < numSigs {
		if pkIdx >= numPubKeys {
			success = false
			break
		}
		ok, err := vm.checkSignature(signatures[sigIdx], pubKeys[pkIdx], vm.scriptIdx)
		if err != nil {
			return err
		}
		if ok {
			sigIdx++
		}
		pkIdx++
	}
	vm.dstack.PushBool(success)
	return nil
}

func opcodeCheckMultiSigVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeCheckMultiSig(pop, vm); err != nil {
		return err
	}
	return abstractVerify(pop, vm, ErrCheckMultiSigVerify)
}
