package main

import (
	"fmt"
	"math"
	"time"
)

// FrameSource is the out-of-scope camera-capture-plus-encode collaborator:
// capture, resize, grayscale/color conversion and frame encoding all live
// behind this single interface. The sender only ever sees the bytes this
// interface produces.
type FrameSource interface {
	// NextFrame blocks until the next encoded frame is available.
	NextFrame() ([]byte, error)
	Close() error
}

// testPatternSource is a synthetic FrameSource for --camera test mode and
// for tests that must not depend on real camera hardware. Grounded on the
// teacher's TestUser synthetic signal generator: a small deterministic
// payload that changes on a fixed cadence so the delta/heartbeat decision
// in Sender has real signal to work with.
type testPatternSource struct {
	width, height int
	frameInterval time.Duration
	start         time.Time
	closed        bool
}

// NewTestPatternSource returns a FrameSource producing a width*height byte
// grid of horizontal bands that scroll by about 20 rows per second, so
// consecutive frames differ in most rows.
func NewTestPatternSource(width, height int, fps int) *testPatternSource {
	if fps <= 0 {
		fps = 15
	}
	return &testPatternSource{
		width:         width,
		height:        height,
		frameInterval: time.Second / time.Duration(fps),
		start:         time.Now(),
	}
}

func (s *testPatternSource) NextFrame() ([]byte, error) {
	if s.closed {
		return nil, fmt.Errorf("camera: closed")
	}
	time.Sleep(s.frameInterval)

	elapsed := time.Since(s.start).Seconds()
	frame := make([]byte, s.width*s.height)
	phase := int(elapsed*20) % s.width
	for y := 0; y < s.height; y++ {
		rowPhase := (phase + y) % s.width
		shade := byte(128 + 127*math.Sin(float64(rowPhase)/4))
		row := frame[y*s.width : (y+1)*s.width]
		for x := range row {
			row[x] = shade
		}
	}
	return frame, nil
}

func (s *testPatternSource) Close() error {
	s.closed = true
	return nil
}
