package main

import "vidrelay/internal/proto"

// computeDelta scans old and new byte streams of equal length and returns
// the list of byte-range replacements, merging runs separated by fewer
// than deltaRunMergeGap equal bytes. ok is false if the caller should fall
// back to sending a Full frame (serialized delta would reach or exceed
// deltaSizeRatioThreshold of the frame size, or the lengths differ).
func computeDelta(old, new []byte) (chunks []proto.DeltaChunk, ok bool) {
	if len(old) != len(new) {
		return nil, false
	}

	var spans []deltaSpan // half-open [start,end) into new
	i := 0
	for i < len(new) {
		if old[i] == new[i] {
			i++
			continue
		}
		start := i
		for i < len(new) && old[i] != new[i] {
			i++
		}
		spans = append(spans, deltaSpan{start, i})
	}

	spans = mergeCloseSpans(spans, deltaRunMergeGap)

	if len(spans) == 0 {
		return nil, true // frame unchanged
	}

	runs := make([]proto.DeltaChunk, len(spans))
	for idx, s := range spans {
		runs[idx] = proto.DeltaChunk{Offset: uint32(s.start), Bytes: append([]byte(nil), new[s.start:s.end]...)}
	}

	size := estimateDeltaSize(runs)
	if len(new) > 0 && float64(size)/float64(len(new)) >= deltaSizeRatioThreshold {
		return nil, false
	}
	return runs, true
}

type deltaSpan struct{ start, end int }

// mergeCloseSpans merges adjacent differing spans when fewer than gap
// equal bytes separate them, producing a single span covering the union
// (including the now-included equal bytes, so callers re-slice from the
// original buffer rather than concatenating the differing bytes alone).
func mergeCloseSpans(spans []deltaSpan, gap int) []deltaSpan {
	if len(spans) < 2 {
		return spans
	}
	merged := []deltaSpan{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start-last.end < gap {
			last.end = s.end
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// estimateDeltaSize mirrors EncodeDelta's layout: count(4) + per-entry
// offset(4)+len(4)+bytes.
func estimateDeltaSize(chunks []proto.DeltaChunk) int {
	size := 4
	for _, c := range chunks {
		size += 8 + len(c.Bytes)
	}
	return size
}
