package main

import (
	"sync"

	"vidrelay/internal/proto"
)

// datagramSender is the minimal collaborator the Sender transmits through;
// satisfied by *DatagramTransport and by test doubles.
type datagramSender interface {
	Send(stream proto.StreamID, payload []byte) error
}

// Sender compares successive encoded frames, emits Full or Delta, chunks,
// stamps, and sends; it emits periodic Heartbeats when frames are
// unchanged. One Sender per outbound stream (e.g. one for video, one for
// audio).
type Sender struct {
	out    datagramSender
	stream proto.StreamID

	mu            sync.Mutex
	lastFrame     []byte
	hasLastFrame  bool
	sequence      uint32
	heartbeatSkip int
}

// NewSender constructs a sender for one StreamID.
func NewSender(out datagramSender, stream proto.StreamID) *Sender {
	return &Sender{out: out, stream: stream}
}

// SendFrame encodes and transmits one newly produced frame, per §4.7.
func (s *Sender) SendFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence = (s.sequence + 1) % proto.SequenceModulus

	var kind proto.FrameType
	var payload []byte

	switch {
	case !s.hasLastFrame || len(s.lastFrame) != len(frame):
		kind, payload = proto.FrameFull, frame

	default:
		deltas, ok := computeDelta(s.lastFrame, frame)
		switch {
		case !ok:
			kind, payload = proto.FrameFull, frame
		case len(deltas) == 0:
			s.lastFrame = append(s.lastFrame[:0], frame...)
			s.heartbeatSkip++
			if s.heartbeatSkip >= heartbeatInterval {
				s.heartbeatSkip = 0
				return s.sendHeartbeat()
			}
			return nil
		default:
			kind, payload = proto.FrameDelta, proto.EncodeDelta(deltas)
		}
	}

	s.lastFrame = append([]byte(nil), frame...)
	s.heartbeatSkip = 0
	s.hasLastFrame = true
	return s.sendChunked(kind, payload)
}

func (s *Sender) sendHeartbeat() error {
	chunk := proto.EncodeChunk(proto.ChunkHeader{Type: proto.FrameHeartbeat, Sequence: s.sequence, ChunkID: 0, Last: true}, nil)
	return s.out.Send(s.stream, chunk)
}

func (s *Sender) sendChunked(kind proto.FrameType, payload []byte) error {
	if len(payload) == 0 {
		return s.out.Send(s.stream, proto.EncodeChunk(proto.ChunkHeader{Type: kind, Sequence: s.sequence, ChunkID: 0, Last: true}, nil))
	}
	total := (len(payload) + proto.MaxChunkPayload - 1) / proto.MaxChunkPayload
	for id := 0; id < total; id++ {
		start := id * proto.MaxChunkPayload
		end := start + proto.MaxChunkPayload
		if end > len(payload) {
			end = len(payload)
		}
		header := proto.ChunkHeader{
			Type:     kind,
			Sequence: s.sequence,
			ChunkID:  uint32(id),
			Last:     id == total-1,
		}
		if err := s.out.Send(s.stream, proto.EncodeChunk(header, payload[start:end])); err != nil {
			return err
		}
	}
	return nil
}
