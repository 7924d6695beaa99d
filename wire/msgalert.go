// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"
)

// maxAlertSubVersions / maxAlertCancels bound the decoder's allocations
// for the alert payload's variable-length sets.
const (
	maxAlertSubVersions = 256
	maxAlertCancels     = 4096
)

// Alert is the signed_bytes payload of an alert message (spec §4.E.6):
// version, relay-until, expiration, id, cancel-id, a cancel set, a
// min/max protocol version range, a sub-version set, a priority, a free
// text comment, and the status-bar string shown to operators.
type Alert struct {
	Version     int32
	RelayUntil  time.Time
	Expiration  time.Time
	ID          int32
	Cancel      int32
	SetCancel   []int32
	MinVer      int32
	MaxVer      int32
	SetSubVer   []string
	Priority    int32
	Comment     string
	StatusBar   string
	Reserved    string
}

// Serialize encodes the alert payload; this is the byte string that gets
// signed and carried as MsgAlert.SerializedPayload.
func (a *Alert) Serialize(w io.Writer) error {
	if err := putUint32(w, uint32(a.Version)); err != nil {
		return err
	}
	if err := putUint64(w, uint64(a.RelayUntil.Unix())); err != nil {
		return err
	}
	if err := putUint64(w, uint64(a.Expiration.Unix())); err != nil {
		return err
	}
	if err := putUint32(w, uint32(a.ID)); err != nil {
		return err
	}
	if err := putUint32(w, uint32(a.Cancel)); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(a.SetCancel))); err != nil {
		return err
	}
	for _, c := range a.SetCancel {
		if err := putUint32(w, uint32(c)); err != nil {
			return err
		}
	}
	if err := putUint32(w, uint32(a.MinVer)); err != nil {
		return err
	}
	if err := putUint32(w, uint32(a.MaxVer)); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(a.SetSubVer))); err != nil {
		return err
	}
	for _, s := range a.SetSubVer {
		if err := WriteVarString(w, s); err != nil {
			return err
		}
	}
	if err := putUint32(w, uint32(a.Priority)); err != nil {
		return err
	}
	if err := WriteVarString(w, a.Comment); err != nil {
		return err
	}
	if err := WriteVarString(w, a.StatusBar); err != nil {
		return err
	}
	return WriteVarString(w, a.Reserved)
}

// Deserialize decodes an Alert payload, the inverse of Serialize.
func (a *Alert) Deserialize(r io.Reader) error {
	var err error
	version, err := getUint32(r)
	if err != nil {
		return err
	}
	a.Version = int32(version)

	relayUntil, err := getUint64(r)
	if err != nil {
		return err
	}
	a.RelayUntil = time.Unix(int64(relayUntil), 0)

	expiration, err := getUint64(r)
	if err != nil {
		return err
	}
	a.Expiration = time.Unix(int64(expiration), 0)

	id, err := getUint32(r)
	if err != nil {
		return err
	}
	a.ID = int32(id)

	cancel, err := getUint32(r)
	if err != nil {
		return err
	}
	a.Cancel = int32(cancel)

	cancelCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if cancelCount > maxAlertCancels {
		return errTooManyElements("cancel", cancelCount, maxAlertCancels)
	}
	a.SetCancel = make([]int32, cancelCount)
	for i := range a.SetCancel {
		v, err := getUint32(r)
		if err != nil {
			return err
		}
		a.SetCancel[i] = int32(v)
	}

	minVer, err := getUint32(r)
	if err != nil {
		return err
	}
	a.MinVer = int32(minVer)

	maxVer, err := getUint32(r)
	if err != nil {
		return err
	}
	a.MaxVer = int32(maxVer)

	subVerCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if subVerCount > maxAlertSubVersions {
		return errTooManyElements("subver", subVerCount, maxAlertSubVersions)
	}
	a.SetSubVer = make([]string, subVerCount)
	for i := range a.SetSubVer {
		if a.SetSubVer[i], err = ReadVarString(r, MaxUserAgentLen); err != nil {
			return err
		}
	}

	priority, err := getUint32(r)
	if err != nil {
		return err
	}
	a.Priority = int32(priority)

	if a.Comment, err = ReadVarString(r, 1024); err != nil {
		return err
	}
	if a.StatusBar, err = ReadVarString(r, 1024); err != nil {
		return err
	}
	a.Reserved, err = ReadVarString(r, 1024)
	return err
}

// MsgAlert carries a signed operator alert (spec §4.E.6): the serialized
// Alert payload plus an ECDSA signature over it, verified against a
// hard-coded authority key in the alert package.
type MsgAlert struct {
	SerializedPayload []byte
	Signature         []byte
}

func (msg *MsgAlert) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarBytes(w, msg.SerializedPayload); err != nil {
		return err
	}
	return WriteVarBytes(w, msg.Signature)
}

func (msg *MsgAlert) BtcDecode(r io.Reader, pver uint32) error {
	var err error
	if msg.SerializedPayload, err = ReadVarBytes(r, MaxMessagePayload, "alert payload"); err != nil {
		return err
	}
	msg.Signature, err = ReadVarBytes(r, MaxMessagePayload, "alert signature")
	return err
}

func (msg *MsgAlert) Command() string                    { return CmdAlert }
func (msg *MsgAlert) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// Payload decodes and returns the Alert carried by msg.
func (msg *MsgAlert) Payload() (*Alert, error) {
	a := &Alert{}
	if err := a.Deserialize(bytes.NewReader(msg.SerializedPayload)); err != nil {
		return nil, err
	}
	return a, nil
}

// NewMsgAlert builds a MsgAlert from an already-signed payload.
func NewMsgAlert(serializedPayload, signature []byte) *MsgAlert {
	return &MsgAlert{SerializedPayload: serializedPayload, Signature: signature}
}
