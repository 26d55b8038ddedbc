package proto

import (
	"encoding/binary"
	"fmt"
)

// MaxDatagramSize is the largest datagram the relay and clients exchange.
const MaxDatagramSize = 1500

// MaxChunkPayload is the largest chunk body a fragment carries.
const MaxChunkPayload = 1350

// FrameType selects how a reassembled frame's payload is interpreted.
type FrameType byte

const (
	FrameFull FrameType = iota
	FrameDelta
	FrameHeartbeat
)

// chunkHeaderSize is the fixed-width prefix of every media chunk:
// type(1) || sequence(4) || chunk_id(4) || last(1).
const chunkHeaderSize = 1 + 4 + 4 + 1

// ChunkHeader is the fixed-width prefix carried by every media chunk once
// the RoomID/StreamID routing prefix has been stripped.
type ChunkHeader struct {
	Type     FrameType
	Sequence uint32 // frame counter modulo 1_000_000
	ChunkID  uint32 // zero-based index of this chunk within the frame
	Last     bool   // true on the final chunk of the frame
}

// SequenceModulus bounds the frame sequence counter.
const SequenceModulus = 1_000_000

// EncodeChunk serializes header followed by the chunk body.
func EncodeChunk(h ChunkHeader, body []byte) []byte {
	out := make([]byte, chunkHeaderSize+len(body))
	out[0] = byte(h.Type)
	binary.BigEndian.PutUint32(out[1:5], h.Sequence)
	binary.BigEndian.PutUint32(out[5:9], h.ChunkID)
	if h.Last {
		out[9] = 1
	}
	copy(out[chunkHeaderSize:], body)
	return out
}

// DecodeChunk parses a chunk header and returns the remaining body slice,
// which aliases buf.
func DecodeChunk(buf []byte) (ChunkHeader, []byte, error) {
	if len(buf) < chunkHeaderSize {
		return ChunkHeader{}, nil, fmt.Errorf("proto: chunk shorter than header (%d bytes)", len(buf))
	}
	h := ChunkHeader{
		Type:     FrameType(buf[0]),
		Sequence: binary.BigEndian.Uint32(buf[1:5]),
		ChunkID:  binary.BigEndian.Uint32(buf[5:9]),
		Last:     buf[9] != 0,
	}
	return h, buf[chunkHeaderSize:], nil
}

// DeltaChunk is one byte-range replacement in a delta frame.
type DeltaChunk struct {
	Offset uint32
	Bytes  []byte
}

// EncodeDelta serializes a delta list as count(4,BE) || repeat: offset(4,BE)
// || len(4,BE) || bytes(len).
func EncodeDelta(chunks []DeltaChunk) []byte {
	size := 4
	for _, c := range chunks {
		size += 4 + 4 + len(c.Bytes)
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(chunks)))
	pos := 4
	for _, c := range chunks {
		binary.BigEndian.PutUint32(out[pos:pos+4], c.Offset)
		binary.BigEndian.PutUint32(out[pos+4:pos+8], uint32(len(c.Bytes)))
		copy(out[pos+8:pos+8+len(c.Bytes)], c.Bytes)
		pos += 8 + len(c.Bytes)
	}
	return out
}

// DecodeDelta parses a delta list produced by EncodeDelta.
func DecodeDelta(buf []byte) ([]DeltaChunk, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("proto: delta list missing count")
	}
	count := binary.BigEndian.Uint32(buf[0:4])
	pos := 4
	chunks := make([]DeltaChunk, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("proto: delta entry %d: truncated header", i)
		}
		offset := binary.BigEndian.Uint32(buf[pos : pos+4])
		length := binary.BigEndian.Uint32(buf[pos+4 : pos+8])
		pos += 8
		if pos+int(length) > len(buf) {
			return nil, fmt.Errorf("proto: delta entry %d: truncated body", i)
		}
		chunks = append(chunks, DeltaChunk{Offset: offset, Bytes: buf[pos : pos+int(length)]})
		pos += int(length)
	}
	return chunks, nil
}

// ApplyDelta applies chunks to a clone of frame and returns the result.
// If any entry fails bounds validation (offset+len > len(frame)), the
// whole apply fails and frame is left unmutated; the spec requires this to
// be atomic, so validation runs before any byte is written.
func ApplyDelta(frame []byte, chunks []DeltaChunk) ([]byte, error) {
	for _, c := range chunks {
		end := uint64(c.Offset) + uint64(len(c.Bytes))
		if end > uint64(len(frame)) {
			return nil, fmt.Errorf("proto: delta entry out of bounds: offset=%d len=%d frame=%d", c.Offset, len(c.Bytes), len(frame))
		}
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	for _, c := range chunks {
		copy(out[c.Offset:], c.Bytes)
	}
	return out, nil
}

// SplitRelayDatagram parses the inbound layout RoomID(R) || StreamID(S) ||
// media_payload(>=1). It returns ok=false if the datagram is shorter than
// R+S+1, in which case the caller must drop it silently.
func SplitRelayDatagram(buf []byte) (room RoomID, stream StreamID, payload []byte, ok bool) {
	const need = idSize + idSize + 1
	if len(buf) < need {
		return RoomID{}, StreamID{}, nil, false
	}
	copy(room[:], buf[0:idSize])
	copy(stream[:], buf[idSize:2*idSize])
	return room, stream, buf[2*idSize:], true
}

// BuildRelayDatagram assembles the client-to-relay wire layout.
func BuildRelayDatagram(room RoomID, stream StreamID, payload []byte) []byte {
	out := make([]byte, 2*idSize+len(payload))
	copy(out[0:idSize], room[:])
	copy(out[idSize:2*idSize], stream[:])
	copy(out[2*idSize:], payload)
	return out
}

// BuildForwardedDatagram assembles the relay-to-peer wire layout: the
// RoomID is stripped, leaving StreamID || media_payload.
func BuildForwardedDatagram(stream StreamID, payload []byte) []byte {
	out := make([]byte, idSize+len(payload))
	copy(out[0:idSize], stream[:])
	copy(out[idSize:], payload)
	return out
}

// SplitForwardedDatagram parses a peer-received datagram into its StreamID
// and payload.
func SplitForwardedDatagram(buf []byte) (stream StreamID, payload []byte, ok bool) {
	if len(buf) < idSize {
		return StreamID{}, nil, false
	}
	copy(stream[:], buf[0:idSize])
	return stream, buf[idSize:], true
}
