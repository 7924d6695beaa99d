// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chainhash"
	"github.com/libcoin/utxod/wire"
)

// CoinSet is a persisted set of (tx, output-index) references — an
// address's debit set ("dr": outputs it received) or credit set ("cr":
// outputs it spent), per spec §4.D.3/§4.D.6.
type CoinSet struct {
	Coins []wire.Outpoint
}

func (s *CoinSet) Add(op wire.Outpoint) {
	for _, existing := range s.Coins {
		if existing == op {
			return
		}
	}
	s.Coins = append(s.Coins, op)
}

func (s *CoinSet) Remove(op wire.Outpoint) {
	for i, existing := range s.Coins {
		if existing == op {
			s.Coins = append(s.Coins[:i], s.Coins[i+1:]...)
			return
		}
	}
}

// Serialize encodes a CoinSet for storage under the "dr"/"cr" key
// prefixes.
func (s *CoinSet) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, uint64(len(s.Coins))); err != nil {
		return nil, err
	}
	for _, c := range s.Coins {
		if _, err := buf.Write(c.Hash[:]); err != nil {
			return nil, err
		}
		var idx [4]byte
		idx[0] = byte(c.Index)
		idx[1] = byte(c.Index >> 8)
		idx[2] = byte(c.Index >> 16)
		idx[3] = byte(c.Index >> 24)
		if _, err := buf.Write(idx[:]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeCoinSet decodes a CoinSet record.
func DeserializeCoinSet(data []byte) (*CoinSet, error) {
	r := bytes.NewReader(data)
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading coin set count")
	}
	coins := make([]wire.Outpoint, count)
	for i := range coins {
		if _, err := io.ReadFull(r, coins[i].Hash[:]); err != nil {
			return nil, errors.Wrap(err, "reading coin set hash")
		}
		var idx [4]byte
		if _, err := io.ReadFull(r, idx[:]); err != nil {
			return nil, errors.Wrap(err, "reading coin set index")
		}
		coins[i].Index = uint32(idx[0]) | uint32(idx[1])<<8 | uint32(idx[2])<<16 | uint32(idx[3])<<24
	}
	return &CoinSet{Coins: coins}, nil
}

// DebitKey builds the ("dr", address) index key: outputs paid to
// address.
func DebitKey(address *chainhash.Hash160) []byte {
	return append([]byte("dr"), address[:]...)
}

// CreditKey builds the ("cr", address) index key: outputs address has
// spent.
func CreditKey(address *chainhash.Hash160) []byte {
	return append([]byte("cr"), address[:]...)
}
