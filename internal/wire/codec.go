// Package wire implements the packet codec (spec.md C1): framing,
// CRC-16/MCRF4XX validation, and magic-byte resynchronization over a
// growable buffer. It is grounded on the teacher's internal/serial/codec.go
// DecodeStream, generalized from the UART preamble/checksum framing to the
// MAVLink v2 magic-byte/CRC framing this protocol uses.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/maverrors"
)

const (
	magic        = 0xFD
	minHeaderLen = 10 // magic, len, incompat, compat, seq, sysid, compid, 3-byte msgid
	crcLen       = 2
	signatureLen = 13
	flagSigned   = 0x01
)

// Header is a frame's per-link routing envelope.
type Header struct {
	SystemID    uint8
	ComponentID uint8
	Sequence    uint8
}

// Packet pairs a frame's header with its decoded message.
type Packet struct {
	Header  Header
	Message dialect.Message
}

// Encode serializes p into a full wire frame, truncating trailing zero bytes
// from the payload per spec.md §9's truncation note. Encode never sets the
// signed-packet incompat flag or emits a signature; Decode still parses one
// through when a peer sets it, since authenticating it is an explicit
// Non-goal.
func Encode(p Packet) ([]byte, error) {
	id := p.Message.MessageID()
	crcExtra, err := dialect.CRCExtra(id)
	if err != nil {
		return nil, err
	}

	payload := p.Message.Marshal()
	for len(payload) > 0 && payload[len(payload)-1] == 0 {
		payload = payload[:len(payload)-1]
	}
	if len(payload) > 255 {
		return nil, fmt.Errorf("%w: payload too long (%d bytes)", maverrors.ErrInvalidPayload, len(payload))
	}

	buf := make([]byte, minHeaderLen+len(payload)+crcLen)
	buf[0] = magic
	buf[1] = byte(len(payload))
	buf[2] = 0 // incompat_flags
	buf[3] = 0 // compat_flags
	buf[4] = p.Header.Sequence
	buf[5] = p.Header.SystemID
	buf[6] = p.Header.ComponentID
	buf[7] = byte(id)
	buf[8] = byte(id >> 8)
	buf[9] = byte(id >> 16)
	copy(buf[10:10+len(payload)], payload)

	crc := crcOf(buf[1:10], payload, crcExtra)
	binary.LittleEndian.PutUint16(buf[10+len(payload):], crc)
	return buf, nil
}

// Decode consumes at most one frame from in. It resynchronizes on the magic
// byte exactly as the teacher's serial codec resynchronizes on its UART
// preamble: bytes before the next magic byte are discarded outright, and a
// frame that fails its CRC or names an unknown message id is discarded in
// full (the whole frame is skipped, not just its magic byte) so one bad
// frame never blocks the frames following it (spec.md §4.1, Testable
// property "corrupt-CRC resync"). Decode returns (nil, nil) when in does not
// yet hold a complete frame — the caller should read more bytes and call
// again.
func Decode(in *bytes.Buffer) (*Packet, error) {
	data := in.Bytes()
	if len(data) == 0 {
		return nil, nil
	}

	i := bytes.IndexByte(data, magic)
	if i < 0 {
		// No magic anywhere in the buffer: everything here is garbage.
		in.Next(len(data))
		return nil, nil
	}
	if i > 0 {
		in.Next(i)
		data = data[i:]
	}

	if len(data) < minHeaderLen {
		return nil, nil
	}

	payloadLen := int(data[1])
	incompat := data[2]
	seq := data[4]
	sysID := data[5]
	cmpID := data[6]
	msgID := uint32(data[7]) | uint32(data[8])<<8 | uint32(data[9])<<16

	sigLen := 0
	if incompat&flagSigned != 0 {
		sigLen = signatureLen
	}
	total := minHeaderLen + payloadLen + crcLen + sigLen
	if len(data) < total {
		return nil, nil
	}

	payload := data[10 : 10+payloadLen]
	gotCRC := binary.LittleEndian.Uint16(data[10+payloadLen : 10+payloadLen+crcLen])

	crcExtra, err := dialect.CRCExtra(msgID)
	if err != nil {
		// Unknown message id: can't validate its CRC. Advance past the
		// whole frame — its length byte is trustworthy even though its
		// contents aren't, and leaving it in the buffer would just make
		// Decode re-parse the same bad header on every call.
		in.Next(total)
		return nil, fmt.Errorf("%w: %v", maverrors.ErrInvalidPayload, err)
	}

	if wantCRC := crcOf(data[1:10], payload, crcExtra); gotCRC != wantCRC {
		in.Next(total)
		return nil, maverrors.ErrInvalidCRC
	}

	msg, err := dialect.Parse(msgID, payload)
	if err != nil {
		in.Next(total)
		return nil, fmt.Errorf("%w: %v", maverrors.ErrInvalidPayload, err)
	}

	in.Next(total)
	return &Packet{
		Header:  Header{SystemID: sysID, ComponentID: cmpID, Sequence: seq},
		Message: msg,
	}, nil
}
