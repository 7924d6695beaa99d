// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

// ServiceFlag identifies the services supported by a peer, advertised in
// its version message and in addr records.
type ServiceFlag uint64

// SFNodeNetwork indicates a peer is a full node capable of serving blocks
// and transactions.
const SFNodeNetwork ServiceFlag = 1 << 0

// NetAddress models an Endpoint (spec §3): an IP (v4-mapped-into-v6 or
// native v6), port, service bitmask and the last-seen timestamp. The
// key used in the Endpoint pool (§3) is the 18-byte concatenation of the
// IP bytes and the port, computed by the addrmgr package.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

// NewNetAddressIPPort creates a new NetAddress from an IP, port, and
// supported service flags with the timestamp set to the current time.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Timestamp: time.Now(),
		Services:  services,
		IP:        ip,
		Port:      port,
	}
}

// writeNetAddress serializes a NetAddress. When includeTimestamp is false
// (used only inside the version message, which carries its own time
// field) the 4-byte timestamp is omitted, matching the reference wire
// format.
func writeNetAddress(w io.Writer, na *NetAddress, includeTimestamp bool) error {
	if includeTimestamp {
		if err := putUint32(w, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}

	if err := putUint64(w, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if ip4 := na.IP.To4(); ip4 != nil {
		copy(ip[:12], []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff})
		copy(ip[12:16], ip4)
	} else if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	// Port is big-endian (network byte order) on the wire.
	var portBuf [2]byte
	bigEndian.PutUint16(portBuf[:], na.Port)
	_, err := w.Write(portBuf[:])
	return err
}

func readNetAddress(r io.Reader, na *NetAddress, includeTimestamp bool) error {
	if includeTimestamp {
		ts, err := getUint32(r)
		if err != nil {
			return err
		}
		na.Timestamp = time.Unix(int64(ts), 0)
	}

	services, err := getUint64(r)
	if err != nil {
		return err
	}
	na.Services = ServiceFlag(services)

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}
	na.IP = net.IP(ip[:]).To16()
	if v4 := na.IP.To4(); v4 != nil {
		na.IP = v4
	}

	var portBuf [2]byte
	if _, err := io.ReadFull(r, portBuf[:]); err != nil {
		return err
	}
	na.Port = bigEndian.Uint16(portBuf[:])
	return nil
}

// maxNetAddressPayload is the number of bytes one NetAddress occupies on
// the wire (timestamp not included; it is carried separately where used).
const maxNetAddressPayload = 8 + 16 + 2
