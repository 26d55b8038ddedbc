package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"vidrelay/internal/proto"
)

// App orchestrates one call: control connection, datagram transport,
// reassembler, senders, and the out-of-scope media/render collaborators.
// One cancellation signal observed at every suspension point drives
// shutdown, per §5.
type App struct {
	username string
	ctrlAddr string

	ctrl     *ControlTransport
	dgram    *DatagramTransport
	reasm    *Reassembler
	renderer Renderer

	camera FrameSource
	audio  AudioSource
}

// NewApp constructs an App. camera/audio may be nil to run control-plane
// only (e.g. a headless listener).
func NewApp(username, ctrlAddr string, camera FrameSource, audio AudioSource, renderer Renderer) *App {
	return &App{
		username: username,
		ctrlAddr: ctrlAddr,
		ctrl:     NewControlTransport(),
		reasm:    NewReassembler(),
		camera:   camera,
		audio:    audio,
		renderer: renderer,
	}
}

// JoinAndRun connects, joins roomName, and runs the call until ctx is
// cancelled. On cancellation it tears down within shutdownGraceTimeout.
func (a *App) JoinAndRun(ctx context.Context, roomName string) error {
	if err := a.ctrl.Connect(ctx, a.ctrlAddr, a.username); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer a.ctrl.Close()

	room, video, audio, err := a.ctrl.JoinRoom(roomName)
	if err != nil {
		return fmt.Errorf("join %q: %w", roomName, err)
	}
	log.Printf("[app] joined room %v as video=%v audio=%v", room, video, audio)

	host, _, err := net.SplitHostPort(a.ctrlAddr)
	if err != nil {
		host = a.ctrlAddr
	}
	relayAddr := net.JoinHostPort(host, defaultUDPPort)

	dgram, err := NewDatagramTransport(relayAddr, room)
	if err != nil {
		return fmt.Errorf("datagram transport: %w", err)
	}
	a.dgram = dgram
	defer a.dgram.Close()

	a.reasm.SetOnFrame(func(peer proto.StreamID, frame []byte) {
		if a.renderer != nil {
			if err := a.renderer.DrawFrame(peer, frame); err != nil {
				log.Printf("[app] draw: %v", err)
			}
		}
	})

	a.dgram.StartReceiving(ctx, func(stream proto.StreamID, payload []byte) {
		header, body, err := proto.DecodeChunk(payload)
		if err != nil {
			log.Printf("[app] malformed chunk from %v: %v", stream, err)
			return
		}
		a.reasm.Ingest(stream, header, body)
	})

	if a.renderer != nil {
		if err := a.renderer.EnableRawMode(); err != nil {
			log.Printf("[app] raw mode: %v", err)
		}
		defer a.renderer.Restore()
	}

	videoSender := NewSender(a.dgram, video)
	audioSender := NewSender(a.dgram, audio)

	done := make(chan struct{})
	go a.captureLoop(ctx, a.camera, videoSender, done)
	go a.captureLoop(ctx, a.audio, audioSender, done)

	<-ctx.Done()
	a.ctrl.LeaveRoom()

	grace := time.NewTimer(shutdownGraceTimeout)
	defer grace.Stop()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-grace.C:
			log.Printf("[app] shutdown grace timeout exceeded, forcing exit")
			return nil
		}
	}
	return nil
}

// frameSource is the common shape of FrameSource/AudioSource for the
// capture loop.
type frameSource interface {
	NextFrame() ([]byte, error)
	Close() error
}

func (a *App) captureLoop(ctx context.Context, src frameSource, sender *Sender, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	if src == nil {
		return
	}
	defer src.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		frame, err := src.NextFrame()
		if err != nil {
			// Media-path errors are surfaced to the user; the call
			// continues if possible, per §7.
			log.Printf("[app] capture: %v", err)
			return
		}
		if err := sender.SendFrame(frame); err != nil {
			log.Printf("[app] send: %v", err)
			return
		}
	}
}
