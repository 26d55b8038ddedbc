package main

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"vidrelay/internal/proto"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHandshakeOKLiteral(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	users := newUserRegistry()
	disp := newDispatcher(newRoomRegistry(), users)
	h := newConnHandler(server, users, disp)
	done := make(chan struct{})
	go func() {
		h.Serve()
		close(done)
	}()

	if _, err := client.Write([]byte{69, 5, 'a', 'l', 'i', 'c', 'e'}); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Read(reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(reply, []byte{70}) {
		t.Fatalf("reply = %v, want [70]", reply)
	}

	client.Close()
	<-done
}

func TestHandshakeBadNameClosesConnection(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	users := newUserRegistry()
	disp := newDispatcher(newRoomRegistry(), users)
	h := newConnHandler(server, users, disp)
	done := make(chan struct{})
	go func() {
		h.Serve()
		close(done)
	}()

	if _, err := client.Write([]byte{69, 3, 'a', ' ', 'b'}); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	cmd, err := proto.ReadCommand(bufio.NewReader(client))
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if cmd.Op != proto.OpErrorResponse {
		t.Fatalf("cmd = %+v, want ErrorResponse", cmd)
	}

	client.Close()
	<-done
}
