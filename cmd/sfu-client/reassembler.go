package main

import (
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"vidrelay/internal/proto"
)

// fragmentBuffer accumulates chunks of one in-flight frame for one peer.
type fragmentBuffer struct {
	sequence       uint32
	frameType      proto.FrameType
	chunks         map[uint32][]byte
	lastUpdate     time.Time
	expectedChunks int // -1 until the last-flagged chunk arrives
	hasSequence    bool
}

func newFragmentBuffer() *fragmentBuffer {
	return &fragmentBuffer{chunks: make(map[uint32][]byte), expectedChunks: -1}
}

// frameCache is the last fully reconstructed frame for one peer.
type frameCache struct {
	data      []byte
	sequence  uint32
	corrupted bool
	valid     bool
}

// peerState bundles one peer's fragment buffer and frame cache.
type peerState struct {
	mu    sync.Mutex
	frag  *fragmentBuffer
	cache frameCache
}

// Reassembler turns a sequence of datagrams into a decodable frame cache
// per peer, including corruption recovery and timeout eviction. Grounded
// on the wire protocol's evolved Full/Delta/Heartbeat shape and on the
// teacher's jitter buffer's per-sender-keyed, stale-eviction idiom.
type Reassembler struct {
	pool bytebufferpool.Pool

	mu    sync.Mutex
	peers map[proto.StreamID]*peerState

	onFrame func(proto.StreamID, []byte)
}

// NewReassembler constructs an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{peers: make(map[proto.StreamID]*peerState)}
}

// SetOnFrame registers the callback invoked with each newly published frame.
func (ra *Reassembler) SetOnFrame(fn func(proto.StreamID, []byte)) { ra.onFrame = fn }

func (ra *Reassembler) peer(stream proto.StreamID) *peerState {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	p, ok := ra.peers[stream]
	if !ok {
		p = &peerState{frag: newFragmentBuffer()}
		ra.peers[stream] = p
	}
	return p
}

// Ingest processes one chunk datagram (header already parsed, RoomID and
// StreamID already stripped) for stream.
func (ra *Reassembler) Ingest(stream proto.StreamID, header proto.ChunkHeader, chunkBody []byte) {
	p := ra.peer(stream)
	p.mu.Lock()
	defer p.mu.Unlock()

	ra.evictIfStaleLocked(p)

	if header.Type == proto.FrameHeartbeat {
		// Carries no body effect; never reassembled.
		return
	}

	fb := p.frag
	if !fb.hasSequence || fb.sequence != header.Sequence {
		fb.chunks = make(map[uint32][]byte)
		fb.sequence = header.Sequence
		fb.frameType = header.Type
		fb.expectedChunks = -1
		fb.hasSequence = true
	}

	fb.chunks[header.ChunkID] = append([]byte(nil), chunkBody...)
	fb.lastUpdate = time.Now()
	if header.Last {
		fb.expectedChunks = int(header.ChunkID) + 1
	}

	if fb.expectedChunks < 0 || len(fb.chunks) != fb.expectedChunks {
		return
	}

	frameData := ra.concatLocked(fb)
	ra.dispatchLocked(stream, p, fb.frameType, header.Sequence, frameData)
	p.frag = newFragmentBuffer()
}

func (ra *Reassembler) concatLocked(fb *fragmentBuffer) []byte {
	buf := ra.pool.Get()
	defer ra.pool.Put(buf)
	for id := uint32(0); id < uint32(fb.expectedChunks); id++ {
		buf.Write(fb.chunks[id])
	}
	out := append([]byte(nil), buf.Bytes()...)
	return out
}

func (ra *Reassembler) dispatchLocked(stream proto.StreamID, p *peerState, kind proto.FrameType, sequence uint32, frameData []byte) {
	switch kind {
	case proto.FrameFull:
		p.cache = frameCache{data: frameData, sequence: sequence, corrupted: false, valid: true}
		if ra.onFrame != nil {
			ra.onFrame(stream, frameData)
		}

	case proto.FrameDelta:
		if !p.cache.valid || p.cache.corrupted {
			return
		}
		deltas, err := proto.DecodeDelta(frameData)
		if err != nil {
			p.cache.corrupted = true
			return
		}
		applied, err := proto.ApplyDelta(p.cache.data, deltas)
		if err != nil {
			p.cache.corrupted = true
			return
		}
		p.cache.data = applied
		p.cache.sequence = sequence
		if ra.onFrame != nil {
			ra.onFrame(stream, applied)
		}

	case proto.FrameHeartbeat:
		// unreachable: filtered out before reassembly
	}
}

// evictIfStaleLocked drops a fragment buffer whose last_update is older
// than fragmentBufferTimeout; if a cache exists, it is marked corrupted.
// Runs on each receive iteration, as the spec requires.
func (ra *Reassembler) evictIfStaleLocked(p *peerState) {
	if !p.frag.hasSequence {
		return
	}
	if time.Since(p.frag.lastUpdate) <= fragmentBufferTimeout {
		return
	}
	p.frag = newFragmentBuffer()
	if p.cache.valid {
		p.cache.corrupted = true
	}
}

// CachedFrame returns the last reconstructed frame for stream, if any.
func (ra *Reassembler) CachedFrame(stream proto.StreamID) ([]byte, bool, bool) {
	p := ra.peer(stream)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.data, p.cache.corrupted, p.cache.valid
}
