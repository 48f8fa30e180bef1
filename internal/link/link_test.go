package link

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/wire"
)

// blockingRW never returns from Read until ctx is canceled, and discards
// every Write. It stands in for a live transport in tests that only care
// about the broadcast fan-out, not the forwarder/reader goroutines.
type blockingRW struct {
	done <-chan struct{}
}

func (b blockingRW) Read(p []byte) (int, error) {
	<-b.done
	return 0, io.EOF
}

func (b blockingRW) Write(p []byte) (int, error) { return len(p), nil }

// failingWriteRW blocks forever on Read (like blockingRW) but fails every
// Write, simulating a sink that has gone away.
type failingWriteRW struct {
	done <-chan struct{}
}

func (f failingWriteRW) Read(p []byte) (int, error) {
	<-f.done
	return 0, io.EOF
}

func (f failingWriteRW) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func newTestLink(t *testing.T) (*Link, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, blockingRW{done: ctx.Done()}, 255, 1)
	return l, cancel
}

func heartbeat(n uint8) wire.Packet {
	return wire.Packet{
		Header:  wire.Header{SystemID: 1, ComponentID: 1, Sequence: n},
		Message: dialect.Heartbeat{MavlinkVersion: n},
	}
}

// TestBroadcast_SlowSubscriberSeesLatestDropOldest is the "subscriber
// overflow" scenario: a slow subscriber that never drains must end up
// holding exactly the most recent subQueueSize packets, never the oldest
// ones — the deliberate divergence from the teacher's hub.go documented at
// the top of link.go.
func TestBroadcast_SlowSubscriberSeesLatestDropOldest(t *testing.T) {
	l, cancel := newTestLink(t)
	defer cancel()

	slow := l.Subscribe()
	defer l.Unsubscribe(slow)

	const total = 200
	for i := 0; i < total; i++ {
		l.broadcast(heartbeat(uint8(i)))
	}

	if got := len(slow.ch); got != subQueueSize {
		t.Fatalf("slow subscriber buffered %d packets, want %d (full)", got, subQueueSize)
	}

	wantFirst := total - subQueueSize
	first := <-slow.ch
	gotFirst := int(first.Message.(dialect.Heartbeat).MavlinkVersion)
	if gotFirst != wantFirst%256 {
		t.Fatalf("oldest buffered packet version = %d, want %d (drop-oldest should have discarded everything before it)", gotFirst, wantFirst%256)
	}
}

// TestBroadcast_FastSubscriberReceivesEverySentPacket confirms a subscriber
// that drains concurrently is never starved by a slow sibling.
func TestBroadcast_FastSubscriberReceivesEverySentPacket(t *testing.T) {
	l, cancel := newTestLink(t)
	defer cancel()

	slow := l.Subscribe()
	defer l.Unsubscribe(slow)
	fast := l.Subscribe()
	defer l.Unsubscribe(fast)

	const total = 200
	got := make([]wire.Packet, 0, total)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			pkt, err := fast.Receive(context.Background())
			if err != nil {
				return
			}
			got = append(got, pkt)
		}
	}()

	for i := 0; i < total; i++ {
		// Keep the fast subscriber's backlog below capacity, as a consumer
		// that keeps pace would; only the slow sibling overflows.
		for len(fast.ch) == subQueueSize {
			time.Sleep(time.Microsecond)
		}
		l.broadcast(heartbeat(uint8(i)))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("fast subscriber only received %d/%d packets", len(got), total)
	}
	if len(got) != total {
		t.Fatalf("fast subscriber received %d packets, want %d", len(got), total)
	}
}

// TestSendMessage_ReturnsErrLinkClosedAfterWriteFailure covers spec.md §5/§7:
// a transient sink error must terminate the outgoing half so later
// SendMessage calls report link-closed instead of silently succeeding into
// a dead transport.
func TestSendMessage_ReturnsErrLinkClosedAfterWriteFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, failingWriteRW{done: ctx.Done()}, 255, 1)
	defer l.Close()
	defer cancel() // runs before Close, unblocking the fake's Read

	if err := l.SendMessage(context.Background(), dialect.Heartbeat{}); err != nil {
		t.Fatalf("first SendMessage: unexpected error %v", err)
	}

	deadline := time.After(time.Second)
	for {
		err := l.SendMessage(context.Background(), dialect.Heartbeat{})
		if err != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("SendMessage never reported link-closed after a write failure")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestSendMessage_ReturnsErrLinkClosedAfterClose(t *testing.T) {
	l, cancel := newTestLink(t)
	cancel() // unblocks the fake's Read so Close can return
	l.Close()

	err := l.SendMessage(context.Background(), dialect.Heartbeat{})
	if err == nil {
		t.Fatal("expected error sending on a closed link")
	}
}
