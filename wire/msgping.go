// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing is a keep-alive / liveness probe. Unlike the reference protocol
// this implementation always carries a nonce (no legacy no-nonce path),
// since the handshake in spec §4.E.2 always runs above protocol 60000.
type MsgPing struct {
	Nonce uint64
}

func NewMsgPing(nonce uint64) *MsgPing { return &MsgPing{Nonce: nonce} }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return putUint64(w, msg.Nonce)
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	var err error
	msg.Nonce, err = getUint64(r)
	return err
}

func (msg *MsgPing) Command() string                          { return CmdPing }
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32       { return 8 }
