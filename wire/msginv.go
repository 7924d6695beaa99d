// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgInv advertises inventory the sender has (spec §4.E.3): up to 1000
// items per message in the trickle path, though the wire format itself
// allows up to maxInvPerMsg for the getblocks response path.
type MsgInv struct {
	InvList []*InvVect
}

func NewMsgInv() *MsgInv { return &MsgInv{} }

func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > maxInvPerMsg {
		return fmt.Errorf("too many invvect in message [max %d]", maxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, uint64(len(msg.InvList))); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := writeInvVect(w, iv); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInvPerMsg {
		return fmt.Errorf("too many invvect in message [count %d, max %d]", count, maxInvPerMsg)
	}
	msg.InvList = make([]*InvVect, count)
	for i := range msg.InvList {
		iv := &InvVect{}
		if err := readInvVect(r, iv); err != nil {
			return err
		}
		msg.InvList[i] = iv
	}
	return nil
}

func (msg *MsgInv) Command() string { return CmdInv }
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(maxInvPerMsg)) + maxInvPerMsg*(4+32)
}

// MsgGetData requests the payload for a set of inventory items (spec
// §4.E.4).
type MsgGetData struct {
	InvList []*InvVect
}

func NewMsgGetData() *MsgGetData { return &MsgGetData{} }

func (msg *MsgGetData) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > maxInvPerMsg {
		return fmt.Errorf("too many invvect in message [max %d]", maxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error {
	return (&MsgInv{InvList: msg.InvList}).BtcEncode(w, pver)
}

func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error {
	inner := &MsgInv{}
	if err := inner.BtcDecode(r, pver); err != nil {
		return err
	}
	msg.InvList = inner.InvList
	return nil
}

func (msg *MsgGetData) Command() string { return CmdGetData }
func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(maxInvPerMsg)) + maxInvPerMsg*(4+32)
}

// MsgNotFound is sent in response to a getdata request for an item the
// responder no longer has (expired from the relay cache, or never had).
type MsgNotFound struct {
	InvList []*InvVect
}

func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error {
	return (&MsgInv{InvList: msg.InvList}).BtcEncode(w, pver)
}

func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error {
	inner := &MsgInv{}
	if err := inner.BtcDecode(r, pver); err != nil {
		return err
	}
	msg.InvList = inner.InvList
	return nil
}

func (msg *MsgNotFound) Command() string { return CmdNotFound }
func (msg *MsgNotFound) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(maxInvPerMsg)) + maxInvPerMsg*(4+32)
}
