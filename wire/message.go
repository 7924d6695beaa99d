// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MaxMessagePayload is the maximum bytes a message payload can be,
// regardless of any individual limit imposed by a specific message type.
// A payload larger than this is always a protocol violation.
const MaxMessagePayload = 32 * 1024 * 1024

// CommandSize is the fixed size in bytes of a message command, zero padded
// ASCII.
const CommandSize = 12

// MessageHeaderSize is the number of bytes in a message header: magic(4) +
// command(12) + length(4) + checksum(4).
const MessageHeaderSize = 4 + CommandSize + 4 + 4

// Commands used in message headers to identify the type of message.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdAddr        = "addr"
	CmdGetAddr     = "getaddr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdGetBlocks   = "getblocks"
	CmdGetHeaders  = "getheaders"
	CmdTx          = "tx"
	CmdBlock       = "block"
	CmdHeaders     = "headers"
	CmdPing        = "ping"
	CmdAlert       = "alert"
	CmdNotFound    = "notfound"
	CmdReject      = "reject"
)

// Message is the interface all peer protocol messages implement. A
// concrete type has complete control over how it is framed (Command) and
// its own BtcEncode/BtcDecode implementation.
type Message interface {
	BtcEncode(w io.Writer, pver uint32) error
	BtcDecode(r io.Reader, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// ProtocolVersionNoChecksum is the highest protocol version for which the
// version/verack handshake messages are framed without a checksum field,
// per spec §4.E.1.
const ProtocolVersionNoChecksum = 209

// makeEmptyMessage creates a Message of the appropriate concrete type for
// the given command string so the parser can decode into it.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	case CmdGetAddr:
		return &MsgGetAddr{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdGetBlocks:
		return &MsgGetBlocks{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdAlert:
		return &MsgAlert{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	default:
		return nil, fmt.Errorf("unhandled command [%s]", command)
	}
}

// messageHeader is the parsed frame preamble described in spec §4.E.1:
// magic(4) | command(12) | payload_size(4) | checksum(4), the checksum
// being absent for version/verack exchanged at protocol 209 or earlier.
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

// checksum returns the first 4 bytes of the double-SHA256 of payload, the
// frame's integrity check.
func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

func writeCommand(w io.Writer, command string) error {
	var buf [CommandSize]byte
	copy(buf[:], command)
	_, err := w.Write(buf[:])
	return err
}

func readCommand(r io.Reader) (string, error) {
	var buf [CommandSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", err
	}
	i := bytes.IndexByte(buf[:], 0)
	if i == -1 {
		i = CommandSize
	}
	return string(buf[:i]), nil
}

// WriteMessage writes a full frame (header + payload) for msg to w. Whether
// the checksum field is present follows ProtocolVersionNoChecksum.
func WriteMessage(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) error {
	var bw bytes.Buffer
	if err := msg.BtcEncode(&bw, pver); err != nil {
		return err
	}
	payload := bw.Bytes()
	lenp := len(payload)
	if lenp > MaxMessagePayload {
		return fmt.Errorf("message payload is too large - encoded %d bytes, but maximum "+
			"message payload is %d bytes", lenp, MaxMessagePayload)
	}
	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		return fmt.Errorf("message payload is too large - encoded %d bytes, but maximum "+
			"message payload size for messages of type [%s] is %d", lenp, msg.Command(), mpl)
	}

	if _, err := w.Write(btcnet.bytes()); err != nil {
		return err
	}
	if err := writeCommand(w, msg.Command()); err != nil {
		return err
	}
	if err := putUint32(w, uint32(lenp)); err != nil {
		return err
	}
	hasChecksum := !(pver <= ProtocolVersionNoChecksum &&
		(msg.Command() == CmdVersion || msg.Command() == CmdVerAck))
	if hasChecksum {
		sum := checksum(payload)
		if _, err := w.Write(sum[:]); err != nil {
			return err
		}
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage reads one full frame from r, validating magic and checksum,
// and returns the decoded Message plus the raw payload bytes (the relay
// cache of spec §4.E.4 needs the raw bytes to re-send without re-encoding).
func ReadMessage(r io.Reader, pver uint32, btcnet BitcoinNet) (Message, []byte, error) {
	var magicBuf [4]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		return nil, nil, err
	}
	gotMagic := BitcoinNet(littleEndian.Uint32(magicBuf[:]))
	if gotMagic != btcnet {
		return nil, nil, errors.Errorf("message from network %s does not match expected "+
			"network %s", gotMagic, btcnet)
	}

	command, err := readCommand(r)
	if err != nil {
		return nil, nil, err
	}

	length, err := getUint32(r)
	if err != nil {
		return nil, nil, err
	}
	if length > MaxMessagePayload {
		return nil, nil, fmt.Errorf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d bytes", length, MaxMessagePayload)
	}

	hasChecksum := !(pver <= ProtocolVersionNoChecksum &&
		(command == CmdVersion || command == CmdVerAck))
	var wantChecksum [4]byte
	if hasChecksum {
		if _, err := io.ReadFull(r, wantChecksum[:]); err != nil {
			return nil, nil, err
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, err
	}

	if hasChecksum {
		gotChecksum := checksum(payload)
		if gotChecksum != wantChecksum {
			return nil, nil, fmt.Errorf("payload checksum failed - header "+
				"indicates %x, but actual checksum is %x", wantChecksum, gotChecksum)
		}
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		return nil, payload, err
	}
	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, payload, err
	}
	return msg, payload, nil
}

// BitcoinNet is the magic number that identifies the network a message is
// intended for (mainnet vs testnet), the first four bytes of every frame.
type BitcoinNet uint32

const (
	MainNet    BitcoinNet = 0xd9b4bef9
	TestNet    BitcoinNet = 0x0709110b
	RegressionNet BitcoinNet = 0xdab5bffa
)

func (n BitcoinNet) String() string {
	switch n {
	case MainNet:
		return "MainNet"
	case TestNet:
		return "TestNet"
	case RegressionNet:
		return "RegressionNet"
	default:
		return fmt.Sprintf("Unknown BitcoinNet (%d)", uint32(n))
	}
}

func (n BitcoinNet) bytes() []byte {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], uint32(n))
	return buf[:]
}
