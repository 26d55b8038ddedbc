package main

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"

	"vidrelay/internal/proto"
)

// batchEntry is one pending fan-out: a forwarded payload and the set of
// destinations it still needs to reach.
type batchEntry struct {
	buf   *bytebufferpool.ByteBuffer
	dests []net.Addr
}

// Relay is the single shared-socket datagram receive loop: identifier
// decode, rate limiting, address learning, and fan-out. It never inspects
// media_payload; the bytes are opaque.
type Relay struct {
	conn    *net.UDPConn
	rooms   *RoomRegistry
	limiter *SourceLimiter
	pool    bytebufferpool.Pool

	mu    sync.Mutex
	queue []batchEntry

	received, forwarded, dropped int64
}

func newRelay(conn *net.UDPConn, rooms *RoomRegistry) *Relay {
	return &Relay{
		conn:    conn,
		rooms:   rooms,
		limiter: newSourceLimiter(),
	}
}

// Counters returns a snapshot of received/forwarded/dropped packet counts.
func (rl *Relay) Counters() (received, forwarded, dropped int64) {
	return atomic.LoadInt64(&rl.received), atomic.LoadInt64(&rl.forwarded), atomic.LoadInt64(&rl.dropped)
}

// Run blocks, serving the datagram socket until ctx is cancelled or the
// socket returns an unrecoverable error.
func (rl *Relay) Run(ctx context.Context) error {
	go rl.limiter.RunSweeper(ctx)
	go rl.flushLoop(ctx)

	buf := make([]byte, proto.MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rl.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := rl.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		atomic.AddInt64(&rl.received, 1)
		rl.handleDatagram(addr, append([]byte(nil), buf[:n]...))
	}
}

func (rl *Relay) handleDatagram(src *net.UDPAddr, datagram []byte) {
	if !rl.limiter.Allow(src.String()) {
		atomic.AddInt64(&rl.dropped, 1)
		return
	}

	room, stream, payload, ok := proto.SplitRelayDatagram(datagram)
	if !ok {
		atomic.AddInt64(&rl.dropped, 1)
		return
	}

	r, ok := rl.rooms.ByID(room)
	if !ok {
		atomic.AddInt64(&rl.dropped, 1)
		return
	}

	entry, isVideo, ok := r.lookupStream(stream)
	if !ok {
		atomic.AddInt64(&rl.dropped, 1)
		return
	}

	dests := r.otherAddrs(stream, isVideo)
	if entry.addr == nil {
		r.learnAddr(stream, isVideo, src)
	}

	if len(dests) == 0 {
		return
	}

	buf := rl.pool.Get()
	buf.Write(stream[:])
	buf.Write(payload)

	if len(dests) <= fanOutImmediateMax {
		for _, d := range dests {
			rl.sendOne(buf.Bytes(), d)
		}
		rl.pool.Put(buf)
		return
	}

	rl.enqueueBatch(batchEntry{buf: buf, dests: dests})
}

func (rl *Relay) sendOne(payload []byte, dest net.Addr) {
	if _, err := rl.conn.WriteTo(payload, dest); err != nil {
		log.Printf("[relay] send to %v: %v", dest, err)
		return
	}
	atomic.AddInt64(&rl.forwarded, 1)
}

func (rl *Relay) enqueueBatch(e batchEntry) {
	rl.mu.Lock()
	if len(rl.queue) >= batchBacklogLimit {
		rl.mu.Unlock()
		atomic.AddInt64(&rl.dropped, int64(len(e.dests)))
		rl.pool.Put(e.buf)
		return
	}
	rl.queue = append(rl.queue, e)
	shouldFlush := len(rl.queue) >= batchFlushCount
	rl.mu.Unlock()

	if shouldFlush {
		rl.flush()
	}
}

func (rl *Relay) flush() {
	rl.mu.Lock()
	q := rl.queue
	rl.queue = nil
	rl.mu.Unlock()

	for _, e := range q {
		for _, d := range e.dests {
			rl.sendOne(e.buf.Bytes(), d)
		}
		rl.pool.Put(e.buf)
	}
}

func (rl *Relay) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.flush()
		}
	}
}
