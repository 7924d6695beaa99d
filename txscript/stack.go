// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// scriptNum is the canonical minimally-encoded signed integer representation
// scripts use on the stack (spec §4.A.3 arithmetic opcodes). Encodings wider
// than defaultScriptNumLen are rejected unless the caller explicitly raises
// the limit, matching the historical 4-byte arithmetic bound.
type scriptNum int64

const defaultScriptNumLen = 4

func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}
	if v[len(v)-1]&0x7f == 0 {
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return scriptErrorf(ErrMinimalData, "non-minimally encoded script number %x", v)
		}
	}
	return nil
}

func makeScriptNum(v []byte, requireMinimal bool, scriptNumLen int) (scriptNum, error) {
	if len(v) > scriptNumLen {
		return 0, scriptErrorf(ErrNumberTooBig, "numeric value encoded as %d bytes exceeds max of %d bytes", len(v), scriptNumLen)
	}
	if requireMinimal {
		if err := checkMinimalDataEncoding(v); err != nil {
			return 0, err
		}
	}
	if len(v) == 0 {
		return 0, nil
	}

	var result int64
	for i, b := range v {
		result |= int64(b) << uint8(8*i)
	}
	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}
	return scriptNum(result), nil
}

func (n scriptNum) Bytes() []byte {
	if n == 0 {
		return nil
	}

	isNegative := n < 0
	absoluteValue := n
	if isNegative {
		absoluteValue = -n
	}

	result := make([]byte, 0, 9)
	for absoluteValue > 0 {
		result = append(result, byte(absoluteValue&0xff))
		absoluteValue >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}
	return result
}

func (n scriptNum) Int32() int32 {
	if n > int64(int32(1<<31-1)) {
		return int32(1<<31 - 1)
	}
	if n < int64(-(1 << 31)) {
		return -(1 << 31)
	}
	return int32(n)
}

// stack is the data or alt stack used by the Engine. Elements are raw byte
// strings; integers and booleans are encoded/decoded on push and pop.
type stack struct {
	stk          [][]byte
	verifyMinimalData bool
}

func (s *stack) Depth() int32 { return int32(len(s.stk)) }

func (s *stack) PushByteArray(so []byte) { s.stk = append(s.stk, so) }

func (s *stack) PushInt(n scriptNum) { s.PushByteArray(n.Bytes()) }

func (s *stack) PushBool(val bool) {
	if val {
		s.PushByteArray([]byte{1})
	} else {
		s.PushByteArray(nil)
	}
}

func (s *stack) PopByteArray() ([]byte, error) { return s.nipN(0) }

func (s *stack) PopInt() (scriptNum, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
}

func (s *stack) PopBool() (bool, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

func (s *stack) PeekByteArray(idx int32) ([]byte, error) {
	sz := int32(len(s.stk))
	if idx < 0 || idx >= sz {
		return nil, scriptErrorf(ErrInvalidStackOperation, "index %d out of range of stack size %d", idx, sz)
	}
	return s.stk[sz-idx-1], nil
}

func (s *stack) PeekInt(idx int32) (scriptNum, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
}

func (s *stack) PeekBool(idx int32) (bool, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

func (s *stack) nipN(idx int32) ([]byte, error) {
	sz := int32(len(s.stk))
	if idx < 0 || idx >= sz {
		return nil, scriptErrorf(ErrInvalidStackOperation, "index %d out of range of stack size %d", idx, sz)
	}
	so := s.stk[sz-idx-1]
	if idx == 0 {
		s.stk = s.stk[:sz-1]
	} else if idx == sz-1 {
		s.stk = append(s.stk[:0:0], s.stk[1:]...)
	} else {
		s.stk = append(s.stk[:sz-idx-1], s.stk[sz-idx:]...)
	}
	return so, nil
}

func (s *stack) NipN(idx int32) error {
	_, err := s.nipN(idx)
	return err
}

func (s *stack) Tuck() error {
	so2, err := s.PopByteArray()
	if err != nil {
		return err
	}
	so1, err := s.PopByteArray()
	if err != nil {
		return err
	}
	s.PushByteArray(so2)
	s.PushByteArray(so1)
	s.PushByteArray(so2)
	return nil
}

func (s *stack) DropN(n int32) error {
	for ; n > 0; n-- {
		if err := s.NipN(0); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) DupN(n int32) error {
	if n < 1 {
		return scriptErrorf(ErrInvalidStackOperation, "non-positive dup count %d", n)
	}
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(n - 1)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

func (s *stack) RotN(n int32) error {
	if n < 1 {
		return scriptErrorf(ErrInvalidStackOperation, "non-positive rotate count %d", n)
	}
	entry := 3*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

func (s *stack) insertAt(so []byte, idx int32) {
	sz := int32(len(s.stk))
	pos := sz - idx
	s.stk = append(s.stk, nil)
	copy(s.stk[pos+1:], s.stk[pos:])
	s.stk[pos] = so
}

func (s *stack) SwapN(n int32) error {
	if n < 1 {
		return scriptErrorf(ErrInvalidStackOperation, "non-positive swap count %d", n)
	}
	entry := 2*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

func (s *stack) OverN(n int32) error {
	if n < 1 {
		return scriptErrorf(ErrInvalidStackOperation, "non-positive over count %d", n)
	}
	entry := 2*n - 1
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

func (s *stack) PickN(n int32) error {
	so, err := s.PeekByteArray(n)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}

func (s *stack) RollN(n int32) error {
	so, err := s.nipN(n)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}

func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

func fromInt32(n int32) scriptNum {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n))
	v, _ := makeScriptNum(buf[:], false, 8)
	return v
}

func (s *stack) String() string {
	var result string
	for i := len(s.stk) - 1; i >= 0; i-- {
		result += fmt.Sprintf("%02d: %x\n", len(s.stk)-i-1, s.stk[i])
	}
	return result
}
