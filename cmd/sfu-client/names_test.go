package main

import (
	"testing"

	"vidrelay/internal/proto"
)

func TestRandomUsernameIsValid(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := randomUsername()
		if err := proto.ValidateName(name); err != nil {
			t.Fatalf("randomUsername() = %q: %v", name, err)
		}
	}
}

func TestNormalizeServerAddrFillsDefaultPort(t *testing.T) {
	got := normalizeServerAddr("example.com")
	if got != "example.com:"+defaultTCPPort {
		t.Fatalf("got %q", got)
	}
	got = normalizeServerAddr("example.com:9000")
	if got != "example.com:9000" {
		t.Fatalf("got %q, host:port should pass through unchanged", got)
	}
}
