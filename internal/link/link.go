// Package link implements the link multiplexer (spec.md C2): a single,
// clonable handle over one underlying transport, with an outgoing bounded
// MPSC queue serviced by one forwarder goroutine that owns the per-link
// sequence counter, and an incoming SPMC broadcast to any number of
// subscribers.
//
// The outgoing side is grounded on the teacher's internal/transport/
// async_tx.go fan-in goroutine. The incoming side is grounded on the
// teacher's internal/hub/hub.go fan-out broadcaster, with one deliberate
// change: hub.Broadcast drops the *incoming* frame on overflow
// (PolicyDrop/PolicyKick), but spec.md's subscriber overflow semantics call
// for drop-*oldest* — a slow subscriber should see the most recent frames,
// not get stuck replaying ones from before it fell behind. Achieving that
// with a plain buffered channel needs a non-blocking receive-then-send
// instead of hub.go's single non-blocking send.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
	"github.com/kstaniek/go-mavgcs/internal/logging"
	"github.com/kstaniek/go-mavgcs/internal/maverrors"
	"github.com/kstaniek/go-mavgcs/internal/metrics"
	"github.com/kstaniek/go-mavgcs/internal/wire"
)

// outQueueSize and subQueueSize are both fixed at 64 per spec.md §4.2.
const (
	outQueueSize = 64
	subQueueSize = 64
	readChunk    = 4096
)

// Subscriber is a read-only view of a Link's incoming packet stream.
// When the subscriber's buffer already holds subQueueSize packets, the
// broadcaster drops the oldest buffered packet to make room, rather than
// blocking or losing the newest arrival.
type Subscriber struct {
	ch chan wire.Packet
}

// Receive blocks until a packet arrives, ctx is done, or the link closes.
func (s *Subscriber) Receive(ctx context.Context) (wire.Packet, error) {
	select {
	case pkt, ok := <-s.ch:
		if !ok {
			return wire.Packet{}, maverrors.ErrLinkClosed
		}
		return pkt, nil
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	}
}

// Link is a single shared, clonable handle over one underlying transport.
type Link struct {
	sysID, cmpID uint8

	out       chan dialect.Message
	closed    atomic.Bool
	outClosed atomic.Bool

	mu   sync.Mutex
	subs map[*Subscriber]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wraps rw (a byte-stream or datagram transport per spec.md's C6
// collaborator contract) in a Link, spawning the outgoing forwarder and
// incoming reader goroutines. sysID/cmpID identify this end of the link in
// every outgoing frame's header.
func New(ctx context.Context, rw io.ReadWriter, sysID, cmpID uint8) *Link {
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		sysID:  sysID,
		cmpID:  cmpID,
		out:    make(chan dialect.Message, outQueueSize),
		subs:   make(map[*Subscriber]struct{}),
		cancel: cancel,
	}
	l.wg.Add(2)
	go l.forward(ctx, rw)
	go l.receive(ctx, rw)
	return l
}

// SendMessage enqueues msg for transmission. It blocks while the outgoing
// queue is full, realizing the bounded-MPSC backpressure spec.md describes,
// and returns ErrLinkClosed if the link has shut down before the message
// could be enqueued.
func (l *Link) SendMessage(ctx context.Context, msg dialect.Message) error {
	if l.closed.Load() || l.outClosed.Load() {
		return maverrors.ErrLinkClosed
	}
	select {
	case l.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a new Subscriber that receives every packet this Link
// decodes from here on. Callers must eventually call Unsubscribe.
func (l *Link) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan wire.Packet, subQueueSize)}
	l.mu.Lock()
	l.subs[s] = struct{}{}
	n := len(l.subs)
	l.mu.Unlock()
	metrics.SetActiveSubscribers(n)
	return s
}

// Unsubscribe removes s from this Link's broadcast set.
func (l *Link) Unsubscribe(s *Subscriber) {
	l.mu.Lock()
	delete(l.subs, s)
	n := len(l.subs)
	l.mu.Unlock()
	metrics.SetActiveSubscribers(n)
}

// Close cancels both goroutines, waits for them to return, and then releases
// all subscribers; pending Receive calls observe ErrLinkClosed. The reader
// goroutine only returns once its pending rw.Read returns, so Close blocks
// until the transport's Read is unblocked (for example by closing it).
func (l *Link) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.cancel()
	l.wg.Wait()

	l.mu.Lock()
	for s := range l.subs {
		close(s.ch)
		delete(l.subs, s)
	}
	l.mu.Unlock()
}

// forward is the sole writer of rw. It owns the per-link sequence counter
// exclusively, so no lock is needed around the increment — the same
// ownership argument the teacher's AsyncTx.loop makes for its single
// consumer goroutine.
//
// A write failure is treated as a terminal sink error, not a transient one
// to log and retry: forward marks the outgoing half closed and stops, so
// every subsequent SendMessage observes ErrLinkClosed instead of silently
// succeeding into a transport that is no longer accepting bytes (spec.md
// §5/§7).
func (l *Link) forward(ctx context.Context, rw io.ReadWriter) {
	defer l.wg.Done()
	var seq uint8
	for {
		select {
		case msg, ok := <-l.out:
			if !ok {
				return
			}
			pkt := wire.Packet{
				Header: wire.Header{SystemID: l.sysID, ComponentID: l.cmpID, Sequence: seq},
				Message: msg,
			}
			seq++
			encoded, err := wire.Encode(pkt)
			if err != nil {
				logging.L().Warn("link: encode failed", "err", err)
				continue
			}
			if _, err := rw.Write(encoded); err != nil {
				metrics.IncError(metrics.ErrTransportWrite)
				logging.L().Warn("link: write failed, closing outgoing half", "err", err)
				l.outClosed.Store(true)
				return
			}
			metrics.IncEncoded()
		case <-ctx.Done():
			return
		}
	}
}

// receive is the sole reader of rw. Invalid-CRC and invalid-payload errors
// are non-fatal and logged at Warn, per spec.md §7's error propagation
// policy; only a transport-level read error ends the loop.
func (l *Link) receive(ctx context.Context, rw io.ReadWriter) {
	defer l.wg.Done()
	buf := new(bytes.Buffer)
	chunk := make([]byte, readChunk)

	for {
		for {
			pkt, err := wire.Decode(buf)
			if err != nil {
				switch {
				case errors.Is(err, maverrors.ErrInvalidCRC):
					metrics.IncInvalidCRC()
				case errors.Is(err, maverrors.ErrInvalidPayload):
					metrics.IncInvalidPayload()
				}
				logging.L().Warn("link: dropping frame", "err", err)
				continue
			}
			if pkt == nil {
				break
			}
			metrics.IncDecoded()
			l.broadcast(*pkt)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := rw.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				metrics.IncError(metrics.ErrTransportRead)
				logging.L().Warn("link: read failed", "err", fmt.Errorf("%w: %v", maverrors.ErrIO, err))
			}
			return
		}
	}
}

// broadcast delivers pkt to every subscriber, dropping the oldest buffered
// packet for any subscriber whose queue is already full.
func (l *Link) broadcast(pkt wire.Packet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s := range l.subs {
		select {
		case s.ch <- pkt:
		default:
			select {
			case <-s.ch:
				metrics.IncSubscriberDrop()
			default:
			}
			select {
			case s.ch <- pkt:
			default:
			}
		}
	}
}
