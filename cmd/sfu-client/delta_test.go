package main

import (
	"bytes"
	"testing"

	"vidrelay/internal/proto"
)

func TestComputeDeltaMatchesScenario(t *testing.T) {
	// A realistically sized frame with the spec's canonical two-byte change
	// at offset 2, so a small edit stays well under the size-ratio
	// threshold. internal/proto's media_test.go and this package's
	// reassembler_test.go separately cover the literal 8-byte wire example.
	old := make([]byte, 200)
	new := append([]byte(nil), old...)
	new[2], new[3] = 9, 9

	chunks, ok := computeDelta(old, new)
	if !ok {
		t.Fatal("expected a delta, not a Full fallback")
	}
	if len(chunks) != 1 || chunks[0].Offset != 2 || !bytes.Equal(chunks[0].Bytes, []byte{9, 9}) {
		t.Fatalf("chunks = %+v", chunks)
	}

	applied, err := proto.ApplyDelta(old, chunks)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !bytes.Equal(applied, new) {
		t.Fatalf("applied = %v, want %v", applied, new)
	}
}

func TestComputeDeltaUnchangedFrame(t *testing.T) {
	frame := []byte{1, 2, 3, 4}
	chunks, ok := computeDelta(frame, append([]byte(nil), frame...))
	if !ok {
		t.Fatal("identical frames should not fall back to Full")
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks = %v, want none", chunks)
	}
}

func TestComputeDeltaFallsBackAboveThreshold(t *testing.T) {
	old := make([]byte, 100)
	new := make([]byte, 100)
	for i := range new {
		new[i] = byte(i + 1) // every byte differs: one giant run
	}
	_, ok := computeDelta(old, new)
	if ok {
		t.Fatal("a fully-differing frame should fall back to Full")
	}
}

func TestComputeDeltaMergesCloseRuns(t *testing.T) {
	old := make([]byte, 200)
	new := append([]byte(nil), old...)
	new[100] = 1
	new[110] = 1 // 9 bytes of equality between runs, < deltaRunMergeGap (16)

	chunks, ok := computeDelta(old, new)
	if !ok {
		t.Fatal("expected a delta")
	}
	if len(chunks) != 1 {
		t.Fatalf("expected runs to merge into one span, got %d: %+v", len(chunks), chunks)
	}
}

func TestComputeDeltaLengthMismatchFallsBack(t *testing.T) {
	_, ok := computeDelta([]byte{1, 2, 3}, []byte{1, 2, 3, 4})
	if ok {
		t.Fatal("differing lengths must fall back to Full")
	}
}
