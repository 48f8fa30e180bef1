package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/maverrors"
)

func TestEncode_HeartbeatMatchesWireBytes(t *testing.T) {
	hb := dialect.Heartbeat{
		CustomMode:     0,
		Type:           dialect.TypeGCS,
		Autopilot:      dialect.AutopilotInvalid,
		BaseMode:       4,
		SystemStatus:   3,
		MavlinkVersion: 0x81,
	}
	got, err := Encode(Packet{Header: Header{SystemID: 0xFF, ComponentID: 0x01}, Message: hb})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	wantPrefix := []byte{
		0xFD, 0x09, 0x00, 0x00, 0x00, 0xFF, 0x01,
		0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x06, 0x08, 0x04, 0x03, 0x81,
	}
	if len(got) != len(wantPrefix)+2 {
		t.Fatalf("encoded length = %d, want %d", len(got), len(wantPrefix)+2)
	}
	if !bytes.Equal(got[:len(wantPrefix)], wantPrefix) {
		t.Fatalf("encoded frame = % X, want prefix % X", got, wantPrefix)
	}
}

func TestDecode_RoundTripHeartbeat(t *testing.T) {
	hb := dialect.Heartbeat{Type: dialect.TypeGCS, Autopilot: dialect.AutopilotInvalid, BaseMode: 4, SystemStatus: 3, MavlinkVersion: 0x81}
	encoded, err := Encode(Packet{Header: Header{SystemID: 0xFF, ComponentID: 1, Sequence: 7}, Message: hb})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	buf := bytes.NewBuffer(encoded)
	pkt, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if pkt == nil {
		t.Fatal("Decode returned nil packet")
	}
	if pkt.Header.SystemID != 0xFF || pkt.Header.ComponentID != 1 || pkt.Header.Sequence != 7 {
		t.Fatalf("header mismatch: %+v", pkt.Header)
	}
	got, ok := pkt.Message.(dialect.Heartbeat)
	if !ok {
		t.Fatalf("message type = %T, want dialect.Heartbeat", pkt.Message)
	}
	if got != hb {
		t.Fatalf("heartbeat mismatch: got %+v, want %+v", got, hb)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer has %d leftover bytes", buf.Len())
	}
}

// TestDecode_ResyncsPastCorruptFrame feeds a valid frame, a frame whose CRC
// byte has been flipped, and another valid frame back to back. Decode must
// surface ErrInvalidCRC for the middle frame and still recover the frame
// that follows it — spec.md's corrupt-CRC resync property.
func TestDecode_ResyncsPastCorruptFrame(t *testing.T) {
	hbA := dialect.Heartbeat{Type: dialect.TypeGCS, MavlinkVersion: 1}
	hbB := dialect.Heartbeat{Type: dialect.TypeGCS, MavlinkVersion: 2}

	good, err := Encode(Packet{Header: Header{SystemID: 1, ComponentID: 1}, Message: hbA})
	if err != nil {
		t.Fatalf("Encode a: %v", err)
	}
	corrupt, err := Encode(Packet{Header: Header{SystemID: 1, ComponentID: 1}, Message: hbA})
	if err != nil {
		t.Fatalf("Encode corrupt: %v", err)
	}
	corrupt[len(corrupt)-1] ^= 0xFF // flip a CRC byte

	tail, err := Encode(Packet{Header: Header{SystemID: 1, ComponentID: 1}, Message: hbB})
	if err != nil {
		t.Fatalf("Encode b: %v", err)
	}

	stream := append(append(append([]byte{}, good...), corrupt...), tail...)
	buf := bytes.NewBuffer(stream)

	pkt1, err := Decode(buf)
	if err != nil || pkt1 == nil {
		t.Fatalf("first decode: pkt=%v err=%v", pkt1, err)
	}

	// The corrupt frame's CRC failure must advance past the whole frame in
	// a single call, not byte by byte, so the very next Decode recovers the
	// frame that follows it.
	pkt2, err := Decode(buf)
	if !errors.Is(err, maverrors.ErrInvalidCRC) {
		t.Fatalf("corrupt decode err = %v, want ErrInvalidCRC", err)
	}
	if pkt2 != nil {
		t.Fatalf("corrupt decode returned a packet: %+v", pkt2)
	}

	pkt3, err := Decode(buf)
	if err != nil || pkt3 == nil {
		t.Fatalf("third decode: pkt=%v err=%v", pkt3, err)
	}
	got, ok := pkt3.Message.(dialect.Heartbeat)
	if !ok || got != hbB {
		t.Fatalf("recovered message = %+v (ok=%v), want %+v", pkt3.Message, ok, hbB)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer has %d leftover bytes", buf.Len())
	}
}
