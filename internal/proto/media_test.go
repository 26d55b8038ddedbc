package proto

import (
	"bytes"
	"testing"
)

func TestChunkHeaderRoundTrip(t *testing.T) {
	h := ChunkHeader{Type: FrameDelta, Sequence: 42, ChunkID: 3, Last: true}
	body := []byte{9, 9}
	encoded := EncodeChunk(h, body)

	got, gotBody, err := DecodeChunk(encoded)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if got != h {
		t.Fatalf("header = %+v, want %+v", got, h)
	}
	if !bytes.Equal(gotBody, body) {
		t.Fatalf("body = %v, want %v", gotBody, body)
	}
}

func TestDecodeChunkShort(t *testing.T) {
	if _, _, err := DecodeChunk([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected error for undersized chunk")
	}
}

func TestDeltaApplyMatchesScenario(t *testing.T) {
	old := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	want := []byte{0, 1, 9, 9, 4, 5, 6, 7}

	delta := []DeltaChunk{{Offset: 2, Bytes: []byte{9, 9}}}
	encoded := EncodeDelta(delta)

	decoded, err := DecodeDelta(encoded)
	if err != nil {
		t.Fatalf("DecodeDelta: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Offset != 2 || !bytes.Equal(decoded[0].Bytes, []byte{9, 9}) {
		t.Fatalf("decoded = %+v", decoded)
	}

	got, err := ApplyDelta(old, decoded)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("applied = %v, want %v", got, want)
	}
	if !bytes.Equal(old, []byte{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Fatal("ApplyDelta must not mutate the source frame")
	}
}

func TestDeltaApplyCorruptedOffsetFails(t *testing.T) {
	old := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	bad := []DeltaChunk{{Offset: 100, Bytes: []byte{9, 9}}}
	if _, err := ApplyDelta(old, bad); err == nil {
		t.Fatal("expected out-of-bounds delta to fail")
	}
}

func TestApplyDeltaAtomicOnPartialFailure(t *testing.T) {
	old := []byte{0, 1, 2, 3}
	chunks := []DeltaChunk{
		{Offset: 0, Bytes: []byte{9}},
		{Offset: 100, Bytes: []byte{9}}, // invalid, should abort the whole apply
	}
	if _, err := ApplyDelta(old, chunks); err == nil {
		t.Fatal("expected apply to fail atomically")
	}
	if !bytes.Equal(old, []byte{0, 1, 2, 3}) {
		t.Fatal("source frame must be unmutated after a failed apply")
	}
}

func TestSplitRelayDatagramBoundary(t *testing.T) {
	room, stream := RoomID{1, 2, 3, 4}, StreamID{5, 6, 7, 8}
	full := BuildRelayDatagram(room, stream, []byte{0xAA})
	if len(full) != 9 {
		t.Fatalf("len = %d, want 9 (R+S+1)", len(full))
	}
	gotRoom, gotStream, payload, ok := SplitRelayDatagram(full)
	if !ok || gotRoom != room || gotStream != stream || !bytes.Equal(payload, []byte{0xAA}) {
		t.Fatalf("split = (%v,%v,%v,%v)", gotRoom, gotStream, payload, ok)
	}

	short := full[:len(full)-1]
	if _, _, _, ok := SplitRelayDatagram(short); ok {
		t.Fatal("R+S byte datagram must be dropped (ok=false)")
	}
}

func TestForwardedDatagramStripsRoomID(t *testing.T) {
	stream := StreamID{5, 6, 7, 8}
	fwd := BuildForwardedDatagram(stream, []byte{0xAA, 0xBB})
	gotStream, payload, ok := SplitForwardedDatagram(fwd)
	if !ok || gotStream != stream || !bytes.Equal(payload, []byte{0xAA, 0xBB}) {
		t.Fatalf("split = (%v,%v,%v)", gotStream, payload, ok)
	}
}
