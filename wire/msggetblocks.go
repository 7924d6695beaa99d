// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/libcoin/utxod/chainhash"
)

// MaxBlockLocatorsPerMsg is the maximum number of block locator hashes
// allowed per message.
const MaxBlockLocatorsPerMsg = 500

// BlockLocator is a sparse list of block hashes stepping exponentially
// back from a peer's tip (GLOSSARY), used to negotiate a common ancestor.
type BlockLocator []*chainhash.Hash

// MsgGetBlocks requests an inv of up to 500 block hashes walking forward
// from the locator's best known ancestor, stopping at StopHash (spec
// §4.E.4).
type MsgGetBlocks struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	StopHash           chainhash.Hash
}

func NewMsgGetBlocks(stopHash *chainhash.Hash) *MsgGetBlocks {
	return &MsgGetBlocks{ProtocolVersion: ProtocolVersion, StopHash: *stopHash}
}

func (msg *MsgGetBlocks) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorsPerMsg {
		return fmt.Errorf("too many block locator hashes for message [max %d]", MaxBlockLocatorsPerMsg)
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

func (msg *MsgGetBlocks) BtcEncode(w io.Writer, pver uint32) error {
	if err := putUint32(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, h := range msg.BlockLocatorHashes {
		if err := writeHash(w, h); err != nil {
			return err
		}
	}
	return writeHash(w, &msg.StopHash)
}

func (msg *MsgGetBlocks) BtcDecode(r io.Reader, pver uint32) error {
	var err error
	if msg.ProtocolVersion, err = getUint32(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorsPerMsg {
		return fmt.Errorf("too many block locator hashes [count %d, max %d]", count, MaxBlockLocatorsPerMsg)
	}
	msg.BlockLocatorHashes = make([]*chainhash.Hash, count)
	for i := range msg.BlockLocatorHashes {
		h := &chainhash.Hash{}
		if err := readHash(r, h); err != nil {
			return err
		}
		msg.BlockLocatorHashes[i] = h
	}
	return readHash(r, &msg.StopHash)
}

func (msg *MsgGetBlocks) Command() string { return CmdGetBlocks }
func (msg *MsgGetBlocks) MaxPayloadLength(pver uint32) uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxBlockLocatorsPerMsg)) +
		MaxBlockLocatorsPerMsg*chainhash.HashSize + chainhash.HashSize
}

// MaxBlockHeadersPerMsg is the maximum number of headers returned by a
// getheaders request, per spec §4.E.4.
const MaxBlockHeadersPerMsg = 2000

// MsgGetHeaders is the header-only analogue of MsgGetBlocks.
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	return (&MsgGetBlocks{
		ProtocolVersion:    msg.ProtocolVersion,
		BlockLocatorHashes: msg.BlockLocatorHashes,
		StopHash:           msg.HashStop,
	}).BtcEncode(w, pver)
}

func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	inner := &MsgGetBlocks{}
	if err := inner.BtcDecode(r, pver); err != nil {
		return err
	}
	msg.ProtocolVersion = inner.ProtocolVersion
	msg.BlockLocatorHashes = inner.BlockLocatorHashes
	msg.HashStop = inner.StopHash
	return nil
}

func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxBlockLocatorsPerMsg)) +
		MaxBlockLocatorsPerMsg*chainhash.HashSize + chainhash.HashSize
}

// MsgHeaders answers a getheaders request with a vector of bare block
// headers (each with a trailing zero transaction-count byte, matching the
// reference wire format, so a MsgHeaders frame is parsed with the same
// codec as a block with no transactions).
type MsgHeaders struct {
	Headers []*BlockHeader
}

func NewMsgHeaders() *MsgHeaders { return &MsgHeaders{} }

func (msg *MsgHeaders) AddBlockHeader(h *BlockHeader) error {
	if len(msg.Headers)+1 > MaxBlockHeadersPerMsg {
		return fmt.Errorf("too many headers for message [max %d]", MaxBlockHeadersPerMsg)
	}
	msg.Headers = append(msg.Headers, h)
	return nil
}

func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, h := range msg.Headers {
		if err := writeBlockHeader(w, h); err != nil {
			return err
		}
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockHeadersPerMsg {
		return fmt.Errorf("too many headers [count %d, max %d]", count, MaxBlockHeadersPerMsg)
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		h := &BlockHeader{}
		if err := readBlockHeader(r, h); err != nil {
			return err
		}
		if _, err := ReadVarInt(r); err != nil {
			return err
		}
		msg.Headers[i] = h
	}
	return nil
}

func (msg *MsgHeaders) Command() string { return CmdHeaders }
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxBlockHeadersPerMsg)) + MaxBlockHeadersPerMsg*(BlockHeaderLen+1)
}
