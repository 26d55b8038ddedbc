package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
	"gopkg.in/hraban/opus.v2"
)

// Audio constants. Grounded on the teacher's audio.go: 48 kHz mono,
// 20ms/960-sample frames, VoIP-tuned Opus at 32 kbps.
const (
	sampleRate  = 48000
	channels    = 1
	frameSize   = 960 // 20ms at 48kHz
	opusBitrate = 32000
	frameMillis = 20 * time.Millisecond
)

// AudioSource is the out-of-scope audio-device-I/O-and-resampling
// collaborator: it returns already Opus-encoded 20ms frames. The sender
// only ever sees the bytes this interface produces.
type AudioSource interface {
	NextFrame() ([]byte, error)
	Close() error
}

// opusEncoderIface narrows *opus.Encoder to what this file calls, the same
// minimal-interface-wrapping-third-party-type idiom the teacher uses for
// its own opusEncoder/opusDecoder/paStream.
type opusEncoderIface interface {
	Encode(pcm []int16, data []byte) (int, error)
}

// paStream narrows *portaudio.Stream to what this file calls.
type paStream interface {
	Start() error
	Stop() error
	Read() error
	Close() error
}

// micSource captures from the system microphone via PortAudio and encodes
// with Opus.
type micSource struct {
	stream paStream
	enc    opusEncoderIface
	pcm    []int16
	opus   []byte
}

// NewMicSource opens the default input device and an Opus encoder tuned
// for voice.
func NewMicSource() (*micSource, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	enc.SetBitrate(opusBitrate)

	pcm := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, frameSize, pcm)
	if err != nil {
		return nil, fmt.Errorf("open mic stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start mic stream: %w", err)
	}

	return &micSource{stream: stream, enc: enc, pcm: pcm, opus: make([]byte, 1024)}, nil
}

func (m *micSource) NextFrame() ([]byte, error) {
	if err := m.stream.Read(); err != nil {
		return nil, fmt.Errorf("read mic: %w", err)
	}
	n, err := m.enc.Encode(m.pcm, m.opus)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return append([]byte(nil), m.opus[:n]...), nil
}

func (m *micSource) Close() error { return m.stream.Close() }

// toneSource is a synthetic AudioSource used in --camera test mode.
// Grounded on the teacher's TestUser beep generator (440Hz A4,
// 600ms on / 400ms off).
type toneSource struct {
	enc    opusEncoderIface
	opus   []byte
	phase  float64
	start  time.Time
	closed bool
}

const (
	toneFreq      = 440.0
	toneAmplitude = 0.3
	toneOnMs      = 600
	toneOffMs     = 400
)

// NewToneSource returns a synthetic sine-wave AudioSource.
func NewToneSource() (*toneSource, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	enc.SetBitrate(opusBitrate)
	return &toneSource{enc: enc, opus: make([]byte, 1024), start: time.Now()}, nil
}

func (t *toneSource) NextFrame() ([]byte, error) {
	if t.closed {
		return nil, fmt.Errorf("audio: closed")
	}
	time.Sleep(frameMillis)

	pcm := make([]int16, frameSize)
	cycle := time.Duration(toneOnMs+toneOffMs) * time.Millisecond
	on := time.Duration(toneOnMs) * time.Millisecond
	if time.Since(t.start)%cycle < on {
		for i := range pcm {
			s := toneAmplitude * math.Sin(2*math.Pi*toneFreq*t.phase/float64(sampleRate))
			pcm[i] = int16(s * 32767)
			t.phase++
		}
	} else {
		t.phase = 0
	}

	n, err := t.enc.Encode(pcm, t.opus)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return append([]byte(nil), t.opus[:n]...), nil
}

func (t *toneSource) Close() error {
	t.closed = true
	return nil
}
