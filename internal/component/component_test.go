package component

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/link"
	"github.com/kstaniek/go-mavgcs/internal/mavlink"
	"github.com/kstaniek/go-mavgcs/internal/maverrors"
	"github.com/kstaniek/go-mavgcs/internal/wire"
)

// fakeTransport is an io.ReadWriter a test fully controls: every Write is
// captured on a channel, and bytes pushed onto toRead become available to
// the Link's reader goroutine. It stands in for a live TCP/serial/UDP
// connection the way the teacher's fakeErrPort stands in for a serial port
// in backend_backoff_test.go.
type fakeTransport struct {
	writes  chan []byte
	toRead  chan []byte
	readBuf []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{writes: make(chan []byte, 32), toRead: make(chan []byte, 32)}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	f.writes <- cp
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	for len(f.readBuf) == 0 {
		b, ok := <-f.toRead
		if !ok {
			return 0, io.EOF
		}
		f.readBuf = b
	}
	n := copy(p, f.readBuf)
	f.readBuf = f.readBuf[n:]
	return n, nil
}

func (f *fakeTransport) pushAck(ack dialect.CommandAck) { f.push(ack) }

func (f *fakeTransport) push(msg dialect.Message) {
	f.pushFrom(1, 1, msg)
}

func (f *fakeTransport) pushFrom(systemID, componentID uint8, msg dialect.Message) {
	encoded, err := wire.Encode(wire.Packet{Header: wire.Header{SystemID: systemID, ComponentID: componentID}, Message: msg})
	if err != nil {
		panic(err)
	}
	f.toRead <- encoded
}

func (f *fakeTransport) nextWrite(t *testing.T, within time.Duration) wire.Packet {
	t.Helper()
	select {
	case raw := <-f.writes:
		pkt, err := wire.Decode(bytes.NewBuffer(raw))
		if err != nil || pkt == nil {
			t.Fatalf("decoding captured write: pkt=%v err=%v", pkt, err)
		}
		return *pkt
	case <-time.After(within):
		t.Fatal("no write observed in time")
		return wire.Packet{}
	}
}

func newTestComponent() (*Component, *fakeTransport, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := newFakeTransport()
	l := link.New(ctx, tr, 255, 1)
	c := New(l, 1, 1)
	return c, tr, cancel
}

// TestCommandLong_RetriesThreeTimesWithIncrementingConfirmation covers the
// "exactly 3 sends, confirmation 0/1/2" testable property: the peer ignores
// the first two attempts and only acks the third.
func TestCommandLong_RetriesThreeTimesWithIncrementingConfirmation(t *testing.T) {
	c, tr, cancel := newTestComponent()
	defer cancel()

	done := make(chan struct{})
	var gotAck dialect.CommandAck
	var gotErr error
	go func() {
		defer close(done)
		gotAck, gotErr = c.CommandLong(context.Background(), dialect.CmdComponentArmDisarm, [7]float32{1})
	}()

	for i := 0; i < 3; i++ {
		pkt := tr.nextWrite(t, 2*time.Second)
		cl, ok := pkt.Message.(dialect.CommandLong)
		if !ok {
			t.Fatalf("write %d: message type = %T, want CommandLong", i, pkt.Message)
		}
		if cl.Confirmation != uint8(i) {
			t.Fatalf("write %d: confirmation = %d, want %d", i, cl.Confirmation, i)
		}
		if i == 2 {
			tr.pushAck(dialect.CommandAck{Command: dialect.CmdComponentArmDisarm, Result: dialect.ResultAccepted})
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CommandLong did not return")
	}
	if gotErr != nil {
		t.Fatalf("CommandLong error: %v", gotErr)
	}
	if gotAck.Result != dialect.ResultAccepted {
		t.Fatalf("result = %v, want Accepted", gotAck.Result)
	}
}

// TestCommandLong_InProgressExtendsWaitWithoutResend covers the in-progress
// extension property: once MAV_RESULT_IN_PROGRESS arrives, the component
// must not resend — it only extends the wait to 6s for the terminal ack.
func TestCommandLong_InProgressExtendsWaitWithoutResend(t *testing.T) {
	c, tr, cancel := newTestComponent()
	defer cancel()

	done := make(chan struct{})
	var gotAck dialect.CommandAck
	var gotErr error
	go func() {
		defer close(done)
		gotAck, gotErr = c.CommandLong(context.Background(), dialect.CmdDoSetMode, [7]float32{0, 4})
	}()

	pkt := tr.nextWrite(t, 2*time.Second)
	if cl, ok := pkt.Message.(dialect.CommandLong); !ok || cl.Confirmation != 0 {
		t.Fatalf("first write = %+v, want confirmation 0", pkt.Message)
	}
	tr.pushAck(dialect.CommandAck{Command: dialect.CmdDoSetMode, Result: dialect.ResultInProgress, Progress: 10})

	// No resend should be observed while the extended wait is pending.
	select {
	case raw := <-tr.writes:
		t.Fatalf("unexpected resend during in-progress wait: % X", raw)
	case <-time.After(200 * time.Millisecond):
	}

	tr.pushAck(dialect.CommandAck{Command: dialect.CmdDoSetMode, Result: dialect.ResultAccepted})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CommandLong did not return after terminal ack")
	}
	if gotErr != nil {
		t.Fatalf("CommandLong error: %v", gotErr)
	}
	if gotAck.Result != dialect.ResultAccepted {
		t.Fatalf("result = %v, want Accepted", gotAck.Result)
	}
}

// TestCommandLong_IgnoresAckFromWrongPeer covers spec.md §4.3.1's filtered
// stream: an ack from a system/component other than the addressed peer must
// be ignored, not accepted as if it answered the outstanding command.
func TestCommandLong_IgnoresAckFromWrongPeer(t *testing.T) {
	c, tr, cancel := newTestComponent()
	defer cancel()

	done := make(chan struct{})
	var gotAck dialect.CommandAck
	var gotErr error
	go func() {
		defer close(done)
		gotAck, gotErr = c.CommandLong(context.Background(), dialect.CmdComponentArmDisarm, [7]float32{1})
	}()

	tr.nextWrite(t, 2*time.Second) // confirmation 0
	// An ack from a different system id must be ignored; the component
	// keeps waiting and resends on timeout rather than accepting it.
	tr.pushFrom(9, 9, dialect.CommandAck{Command: dialect.CmdComponentArmDisarm, Result: dialect.ResultAccepted})

	tr.nextWrite(t, 2*time.Second) // confirmation 1, proves the bogus ack was not accepted
	tr.pushAck(dialect.CommandAck{Command: dialect.CmdComponentArmDisarm, Result: dialect.ResultAccepted})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CommandLong did not return")
	}
	if gotErr != nil {
		t.Fatalf("CommandLong error: %v", gotErr)
	}
	if gotAck.Result != dialect.ResultAccepted {
		t.Fatalf("result = %v, want Accepted", gotAck.Result)
	}
}

// TestUploadMission_ScalesCoordinatesAndAcks drives the mission upload
// state machine through a two-item mission addressed via MISSION_REQUEST_INT,
// confirming the lat/lon*1e7 scaling from spec.md's testable property.
func TestUploadMission_ScalesCoordinatesAndAcks(t *testing.T) {
	c, tr, cancel := newTestComponent()
	defer cancel()

	items := []mavlink.Item{
		mavlink.Waypoint{Lat: 38.3706171, Lon: 27.2008103, Alt: 50},
		mavlink.ReturnToLaunch{},
	}

	done := make(chan struct{})
	var gotResult dialect.MavMissionResult
	var gotErr error
	go func() {
		defer close(done)
		gotResult, gotErr = c.UploadMission(context.Background(), items)
	}()

	countPkt := tr.nextWrite(t, time.Second)
	count, ok := countPkt.Message.(dialect.MissionCount)
	if !ok || count.Count != 2 {
		t.Fatalf("first write = %+v, want MissionCount{Count: 2}", countPkt.Message)
	}

	tr.push(dialect.MissionRequestInt{Seq: 0})
	itemPkt := tr.nextWrite(t, time.Second)
	item0, ok := itemPkt.Message.(dialect.MissionItemInt)
	if !ok {
		t.Fatalf("second write = %+v, want MissionItemInt", itemPkt.Message)
	}
	if item0.X != 383706171 || item0.Y != 272008103 {
		t.Fatalf("item0 coords = (%d, %d), want (383706171, 272008103)", item0.X, item0.Y)
	}
	if item0.Frame != dialect.FrameGlobalRelativeAltInt {
		t.Fatalf("item0 frame = %d, want FrameGlobalRelativeAltInt (%d)", item0.Frame, dialect.FrameGlobalRelativeAltInt)
	}

	tr.push(dialect.MissionRequestInt{Seq: 1})
	itemPkt = tr.nextWrite(t, time.Second)
	item1, ok := itemPkt.Message.(dialect.MissionItemInt)
	if !ok || item1.Command != dialect.CmdNavReturnToLaunch {
		t.Fatalf("third write = %+v, want MissionItemInt ReturnToLaunch", itemPkt.Message)
	}

	tr.push(dialect.MissionAck{MavType: dialect.MissionResultAccepted})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("UploadMission did not return")
	}
	if gotErr != nil {
		t.Fatalf("UploadMission error: %v", gotErr)
	}
	if gotResult != dialect.MissionResultAccepted {
		t.Fatalf("result = %v, want Accepted", gotResult)
	}
}

// TestUploadMission_OutOfRangeSeqIsProtocolError covers Open Question 2's
// resolution: a MISSION_REQUEST naming a seq beyond the announced item
// count is ErrProtocol, never a slice-index panic.
func TestUploadMission_OutOfRangeSeqIsProtocolError(t *testing.T) {
	c, tr, cancel := newTestComponent()
	defer cancel()

	items := []mavlink.Item{mavlink.ReturnToLaunch{}}

	done := make(chan struct{})
	var gotErr error
	go func() {
		defer close(done)
		_, gotErr = c.UploadMission(context.Background(), items)
	}()

	tr.nextWrite(t, time.Second) // MISSION_COUNT
	tr.push(dialect.MissionRequest{Seq: 7})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("UploadMission did not return")
	}
	if !errors.Is(gotErr, maverrors.ErrProtocol) {
		t.Fatalf("error = %v, want ErrProtocol", gotErr)
	}
}
