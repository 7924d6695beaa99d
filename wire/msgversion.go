// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"
)

// ProtocolVersion is the latest protocol version this implementation
// speaks.
const ProtocolVersion uint32 = 70002

// MaxUserAgentLen is the maximum allowed length of the user agent string.
const MaxUserAgentLen = 256

// DefaultUserAgent is the user agent advertised by this node, following
// the BIP-0014 style "/name:version/" convention.
const DefaultUserAgent = "/utxod:0.1.0/"

// MsgVersion is the first message exchanged by both sides of a new
// connection (spec §4.E.2): protocol version, services, current time, the
// two endpoints, a random nonce used to detect self-connects, a
// human-readable user agent, and the sender's best height.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
}

// NewMsgVersion returns a new version message.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       time.Unix(time.Now().Unix(), 0),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
	}
}

// BtcEncode implements the Message interface.
func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := putUint32(w, uint32(msg.ProtocolVersion)); err != nil {
		return err
	}
	if err := putUint64(w, uint64(msg.Services)); err != nil {
		return err
	}
	if err := putUint64(w, uint64(msg.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := putUint64(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, msg.UserAgent); err != nil {
		return err
	}
	return putUint32(w, uint32(msg.LastBlock))
}

// BtcDecode implements the Message interface.
func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	pv, err := getUint32(r)
	if err != nil {
		return err
	}
	msg.ProtocolVersion = int32(pv)

	services, err := getUint64(r)
	if err != nil {
		return err
	}
	msg.Services = ServiceFlag(services)

	ts, err := getUint64(r)
	if err != nil {
		return err
	}
	msg.Timestamp = time.Unix(int64(ts), 0)

	if err := readNetAddress(r, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrMe, false); err != nil {
		return err
	}

	if msg.Nonce, err = getUint64(r); err != nil {
		return err
	}
	if msg.UserAgent, err = ReadVarString(r, MaxUserAgentLen); err != nil {
		return err
	}

	lb, err := getUint32(r)
	if err != nil {
		return err
	}
	msg.LastBlock = int32(lb)
	return nil
}

// Command implements the Message interface.
func (msg *MsgVersion) Command() string { return CmdVersion }

// MaxPayloadLength implements the Message interface.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 8 + 8 + 8 + 2*maxNetAddressPayload + 8 + (1 + MaxUserAgentLen) + 4
}

// MsgVerAck acknowledges a received version message and completes the
// handshake (spec §4.E.2).
type MsgVerAck struct{}

func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgVerAck) Command() string                          { return CmdVerAck }
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32       { return 0 }
