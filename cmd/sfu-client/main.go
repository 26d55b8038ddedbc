package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
)

func main() {
	username := flag.String("username", "", "display name (default: generated)")
	serverAddr := flag.String("server-address", "", "server host[:port] for the control channel")
	room := flag.String("room", "lobby", "room name to join")
	camera := flag.String("camera", "", "\"test\" for a synthetic pattern and tone; any other value runs without video")
	color := flag.Bool("color", false, "force ANSI color output")
	flag.Parse()

	if *username == "" {
		*username = promptOrDefault("Username", randomUsername())
	}
	if *serverAddr == "" {
		*serverAddr = promptOrDefault("Server address", net.JoinHostPort(defaultServerHost, defaultTCPPort))
	}
	addr := normalizeServerAddr(*serverAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cam FrameSource
	var audioSrc AudioSource
	if *camera == "test" {
		cam = NewTestPatternSource(64, 32, 15)
		tone, err := NewToneSource()
		if err != nil {
			log.Fatalf("[main] synthetic audio: %v", err)
		}
		audioSrc = tone
	} else {
		mic, err := NewMicSource()
		if err != nil {
			log.Printf("[main] microphone unavailable, continuing without audio: %v", err)
		} else {
			audioSrc = mic
		}
	}

	renderer := NewTermRenderer(*color)

	app := NewApp(*username, addr, cam, audioSrc, renderer)
	if err := app.JoinAndRun(ctx, *room); err != nil {
		log.Printf("[main] %v", err)
		os.Exit(1)
	}
}

// normalizeServerAddr fills in the default control-channel port if addr
// names a bare host. Grounded on the teacher's server_addr.go idiom.
func normalizeServerAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultTCPPort)
}

// promptOrDefault asks on stdin when attached to a terminal, falling back
// to def otherwise; supplemented from original_source/'s interactive
// pre-call prompt (see SPEC_FULL.md).
func promptOrDefault(label, def string) string {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return def
	}
	fmt.Printf("%s [%s]: ", label, def)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
