package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"vidrelay/internal/proto"
)

// ConnHandler runs the full lifecycle of one accepted reliable connection:
// handshake, command loop, teardown. One instance per connection; reads
// and writes on the connection are serialized by construction (a single
// goroutine owns the socket writer).
type ConnHandler struct {
	conn  net.Conn
	users *UserRegistry
	disp  *Dispatcher
}

func newConnHandler(conn net.Conn, users *UserRegistry, disp *Dispatcher) *ConnHandler {
	return &ConnHandler{conn: conn, users: users, disp: disp}
}

// Serve runs the handler to completion, blocking until the connection
// terminates. It never returns an error the caller must act on; all
// outcomes are logged here.
func (h *ConnHandler) Serve() {
	defer h.conn.Close()
	r := bufio.NewReader(h.conn)

	sess, err := h.handshake(r)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Printf("[handler] handshake from %s: %v", h.conn.RemoteAddr(), err)
		}
		return
	}
	log.Printf("[handler] %s connected as %q", h.conn.RemoteAddr(), sess.Username)

	h.commandLoop(r, sess)

	h.disp.Teardown(sess)
	log.Printf("[handler] %s (%q) disconnected", h.conn.RemoteAddr(), sess.Username)
}

// handshake implements §4.3 phase 1.
func (h *ConnHandler) handshake(r *bufio.Reader) (*Session, error) {
	cmd, err := proto.ReadCommand(r)
	if err != nil {
		return nil, err
	}
	if cmd.Op != proto.OpHelloFromClient {
		return nil, fmt.Errorf("expected HelloFromClient, got %v", cmd.Op)
	}

	if err := proto.ValidateName(cmd.Str); err != nil {
		h.writeCommand(errorResponse(err.Error()))
		return nil, err
	}
	sess, err := h.users.Add(cmd.Str)
	if err != nil {
		h.writeCommand(errorResponse(err.Error()))
		return nil, err
	}

	if err := h.writeCommand(proto.Simple(proto.OpHelloFromServer)); err != nil {
		h.users.Remove(sess.Username)
		return nil, err
	}
	return sess, nil
}

// commandLoop implements §4.3 phase 2: concurrently await the next decoded
// frame and the next outbound notification, dispatching or forwarding each
// as it arrives. A decode error, EOF, or write error ends the loop.
func (h *ConnHandler) commandLoop(r *bufio.Reader, sess *Session) {
	frames := make(chan proto.Command)
	readErrs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			cmd, err := proto.ReadCommand(r)
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case frames <- cmd:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case cmd := <-frames:
			resp, hasResp := h.disp.Dispatch(sess, cmd)
			if hasResp {
				if err := h.writeCommand(resp); err != nil {
					log.Printf("[handler] write to %q: %v", sess.Username, err)
					return
				}
			}

		case err := <-readErrs:
			if !errors.Is(err, io.EOF) {
				log.Printf("[handler] read from %q: %v", sess.Username, err)
			}
			return

		case out := <-sess.Outbound:
			if err := h.writeCommand(out); err != nil {
				log.Printf("[handler] notify %q: %v", sess.Username, err)
				return
			}
		}
	}
}

func (h *ConnHandler) writeCommand(cmd proto.Command) error {
	_, err := cmd.WriteTo(h.conn)
	return err
}
