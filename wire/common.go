// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the deterministic binary codec used for every
// on-wire peer message and every on-disk record (blocks, transactions,
// block headers). The encoding is little-endian fixed-width integers,
// variable-length integers, and length-prefixed vectors/strings applied to
// fields in declared order — it is bit-exact and consensus-critical.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/libcoin/utxod/chainhash"
)

// MaxVarIntPayload is the maximum payload size, in bytes, of an encoded
// variable length integer.
const MaxVarIntPayload = 9

var littleEndian = binary.LittleEndian
var bigEndian = binary.BigEndian

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64. One byte if < 0xFD, else 0xFD+uint16, 0xFE+uint32, 0xFF+uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	discriminant := buf[0]

	switch discriminant {
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		rv := littleEndian.Uint64(buf[:8])
		if rv < 1<<32 {
			return 0, fmt.Errorf("non-canonical varint %x - discriminant %x must "+
				"encode a value greater than %x", rv, discriminant, uint64(1)<<32-1)
		}
		return rv, nil

	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		rv := littleEndian.Uint32(buf[:4])
		if uint64(rv) < 1<<16 {
			return 0, fmt.Errorf("non-canonical varint %x - discriminant %x must "+
				"encode a value greater than %x", rv, discriminant, uint16(0xffff))
		}
		return uint64(rv), nil

	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		rv := littleEndian.Uint16(buf[:2])
		if uint64(rv) < 0xfd {
			return 0, fmt.Errorf("non-canonical varint %x - discriminant %x must "+
				"encode a value greater than %x", rv, discriminant, uint8(0xfc))
		}
		return uint64(rv), nil

	default:
		return uint64(discriminant), nil
	}
}

// WriteVarInt writes val to w using the minimal canonical variable length
// integer encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}
	if val <= 0xffff {
		var buf [3]byte
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}
	if val <= 0xffffffff {
		var buf [5]byte
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}
	var buf [9]byte
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array: a varint length
// followed by that many bytes. maxAllowed bounds the length so a hostile
// peer cannot claim an absurd size and stall the reader.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, fmt.Errorf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a variable length byte array as a varint length
// prefix followed by the bytes themselves.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarString reads a variable length string: a varint length followed by
// that many bytes of UTF-8.
func ReadVarString(r io.Reader, maxAllowed uint64) (string, error) {
	b, err := ReadVarBytes(r, maxAllowed, "variable length string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString writes s as a variable length string.
func WriteVarString(w io.Writer, s string) error {
	return WriteVarBytes(w, []byte(s))
}

func putUint32(w io.Writer, val uint32) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func getUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(buf[:]), nil
}

func putUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	littleEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func getUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(buf[:]), nil
}

// writeHash writes the 32-byte hash in its natural (non-reversed) wire
// order.
func writeHash(w io.Writer, hash *chainhash.Hash) error {
	_, err := w.Write(hash[:])
	return err
}

func readHash(r io.Reader, hash *chainhash.Hash) error {
	_, err := io.ReadFull(r, hash[:])
	return err
}
