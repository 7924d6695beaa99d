// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the two hash primitives the ledger protocol
// builds everything else on: a 256-bit double-SHA256 identity hash used for
// transactions, blocks and Merkle nodes, and a 160-bit SHA256-then-RIPEMD160
// hash used for addresses.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

// HashSize is the number of bytes in a Hash (256 bits).
const HashSize = 32

// Hash160Size is the number of bytes in a Hash160 (160 bits).
const Hash160Size = 20

// MaxHashStringSize is the maximum length of a Hash hex string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has an invalid length.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is a 256-bit opaque, little-endian identity hash used for
// transaction and block hashes.
type Hash [HashSize]byte

// Hash160 is a 160-bit opaque hash used for addresses.
type Hash160 [Hash160Size]byte

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, the customary on-screen ordering for block/tx identities.
func (h Hash) String() string {
	for i := 0; i < HashSize/2; i++ {
		h[i], h[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(h[:])
}

// CloneBytes returns a copy of the bytes of the hash, in natural
// (non-reversed) order.
func (h *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])
	return newHash
}

// SetBytes sets the bytes that make up the hash from a byte slice.
func (h *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen, HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if the two hashes are equal. Two hashes are equal
// if all bytes are identical. A nil receiver is equal to a nil pointer
// argument only.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// Less reports whether h sorts before other under the natural byte-wise
// ordering used throughout the codec and the Coin total order.
func (h Hash) Less(other Hash) bool {
	for i := HashSize - 1; i >= 0; i-- {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hash string, which is expected to be
// the byte-reversed hexadecimal string customarily displayed on screen.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hexadecimal string encoding of a Hash
// into the destination.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	for i, b := range reversedHash[:HashSize/2] {
		reversedHash[i], reversedHash[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	*dst = reversedHash
	return nil
}

// HashB calculates the single SHA256 hash of the given byte slice.
func HashB(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// HashH calculates the single SHA256 hash of the given byte slice and
// returns it as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB calculates the double SHA256 hash of the given byte slice,
// SHA256(SHA256(b)). This is the identity hash used for blocks and
// transactions.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates the double SHA256 hash of the given byte slice and
// returns it as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// Hash160B calculates RIPEMD160(SHA256(b)), the 160-bit hash used to derive
// addresses from public keys and scripts.
func Hash160B(b []byte) []byte {
	sha := sha256.Sum256(b)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}

// Hash160H calculates Hash160B and returns it as a Hash160.
func Hash160H(b []byte) Hash160 {
	var h Hash160
	copy(h[:], Hash160B(b))
	return h
}

// String returns the Hash160 as a plain (non-reversed) hexadecimal string.
func (h Hash160) String() string {
	return hex.EncodeToString(h[:])
}
