package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"vidrelay/internal/proto"
)

// responseOpcodes are the direct-response frames a request correlates with;
// everything else arriving on the control connection is treated as a
// server-initiated notification.
var responseOpcodes = map[proto.Opcode]bool{
	proto.OpHelloFromServer:   true,
	proto.OpErrorResponse:     true,
	proto.OpUserList:          true,
	proto.OpRoomList:          true,
	proto.OpCreateRoomSuccess: true,
	proto.OpDeleteRoomSuccess: true,
	proto.OpJoinRoomSuccess:   true,
}

// ControlTransport owns the reliable control connection. A single
// background read loop demultiplexes incoming frames into either the
// pending-response channel (one outstanding request at a time, matching
// the client's synchronous command usage) or the notification callbacks,
// mirroring the teacher's Connect/readControl + callback-setter shape.
type ControlTransport struct {
	conn net.Conn

	writeMu sync.Mutex
	resp    chan proto.Command

	onJoinedRoom func(proto.StreamID)
	onLeftRoom   func(proto.StreamID)
	onClosed     func(error)
}

// NewControlTransport returns an unconnected transport.
func NewControlTransport() *ControlTransport {
	return &ControlTransport{resp: make(chan proto.Command, 1)}
}

// SetOnOtherUserJoinedRoom registers the callback invoked for each
// OtherUserJoinedRoom notification.
func (t *ControlTransport) SetOnOtherUserJoinedRoom(fn func(proto.StreamID)) { t.onJoinedRoom = fn }

// SetOnOtherUserLeftRoom registers the callback invoked for each
// OtherUserLeftRoom notification.
func (t *ControlTransport) SetOnOtherUserLeftRoom(fn func(proto.StreamID)) { t.onLeftRoom = fn }

// SetOnClosed registers the callback invoked once the read loop exits.
func (t *ControlTransport) SetOnClosed(fn func(error)) { t.onClosed = fn }

// Connect dials addr and performs the handshake for username, returning
// once HelloFromServer is received or the connection is rejected.
func (t *ControlTransport) Connect(ctx context.Context, addr, username string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	t.conn = conn

	go t.readLoop(bufio.NewReader(conn))

	if err := t.send(proto.WithString(proto.OpHelloFromClient, username)); err != nil {
		conn.Close()
		return err
	}
	resp, ok := <-t.resp
	if !ok {
		conn.Close()
		return fmt.Errorf("connection closed during handshake")
	}
	switch resp.Op {
	case proto.OpHelloFromServer:
		return nil
	case proto.OpErrorResponse:
		conn.Close()
		return fmt.Errorf("server rejected username: %s", resp.Str)
	default:
		conn.Close()
		return fmt.Errorf("unexpected handshake response %v", resp.Op)
	}
}

func (t *ControlTransport) readLoop(r *bufio.Reader) {
	defer close(t.resp)
	for {
		cmd, err := proto.ReadCommand(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[control] read: %v", err)
			}
			if t.onClosed != nil {
				t.onClosed(err)
			}
			return
		}
		if responseOpcodes[cmd.Op] {
			t.resp <- cmd
			continue
		}
		t.dispatchNotification(cmd)
	}
}

func (t *ControlTransport) dispatchNotification(cmd proto.Command) {
	switch cmd.Op {
	case proto.OpOtherUserJoinedRoom:
		if t.onJoinedRoom != nil && len(cmd.Bytes) >= 4 {
			var sid proto.StreamID
			copy(sid[:], cmd.Bytes)
			t.onJoinedRoom(sid)
		}
	case proto.OpOtherUserLeftRoom:
		if t.onLeftRoom != nil && len(cmd.Bytes) >= 4 {
			var sid proto.StreamID
			copy(sid[:], cmd.Bytes)
			t.onLeftRoom(sid)
		}
	default:
		log.Printf("[control] unhandled notification %v", cmd.Op)
	}
}

func (t *ControlTransport) send(cmd proto.Command) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := cmd.WriteTo(t.conn)
	return err
}

func (t *ControlTransport) request(cmd proto.Command) (proto.Command, error) {
	if err := t.send(cmd); err != nil {
		return proto.Command{}, err
	}
	resp, ok := <-t.resp
	if !ok {
		return proto.Command{}, fmt.Errorf("connection closed")
	}
	return resp, nil
}

// GetUserList requests the connected-user list.
func (t *ControlTransport) GetUserList() ([]string, error) {
	resp, err := t.request(proto.Simple(proto.OpGetUserList))
	if err != nil {
		return nil, err
	}
	if resp.Op != proto.OpUserList {
		return nil, fmt.Errorf("unexpected response %v", resp.Op)
	}
	return resp.StringList, nil
}

// GetRoomList requests the room list.
func (t *ControlTransport) GetRoomList() ([]string, error) {
	resp, err := t.request(proto.Simple(proto.OpGetRoomList))
	if err != nil {
		return nil, err
	}
	if resp.Op != proto.OpRoomList {
		return nil, fmt.Errorf("unexpected response %v", resp.Op)
	}
	return resp.StringList, nil
}

// CreateRoom requests room creation and blocks for the direct response.
func (t *ControlTransport) CreateRoom(name string) error {
	resp, err := t.request(proto.WithString(proto.OpCreateRoom, name))
	if err != nil {
		return err
	}
	if resp.Op == proto.OpErrorResponse {
		return fmt.Errorf("%s", resp.Str)
	}
	if resp.Op != proto.OpCreateRoomSuccess {
		return fmt.Errorf("unexpected response %v", resp.Op)
	}
	return nil
}

// DeleteRoom requests room deletion and blocks for the direct response.
func (t *ControlTransport) DeleteRoom(name string) error {
	resp, err := t.request(proto.WithString(proto.OpDeleteRoom, name))
	if err != nil {
		return err
	}
	if resp.Op == proto.OpErrorResponse {
		return fmt.Errorf("%s", resp.Str)
	}
	if resp.Op != proto.OpDeleteRoomSuccess {
		return fmt.Errorf("unexpected response %v", resp.Op)
	}
	return nil
}

// JoinRoom requests to join a room and returns the RoomID/video/audio
// StreamIDs carried in JoinRoomSuccess.
func (t *ControlTransport) JoinRoom(name string) (proto.RoomID, proto.StreamID, proto.StreamID, error) {
	resp, err := t.request(proto.WithString(proto.OpJoinRoom, name))
	if err != nil {
		return proto.RoomID{}, proto.StreamID{}, proto.StreamID{}, err
	}
	if resp.Op == proto.OpErrorResponse {
		return proto.RoomID{}, proto.StreamID{}, proto.StreamID{}, fmt.Errorf("%s", resp.Str)
	}
	if resp.Op != proto.OpJoinRoomSuccess || len(resp.Bytes) < 16 {
		return proto.RoomID{}, proto.StreamID{}, proto.StreamID{}, fmt.Errorf("unexpected join response %v", resp.Op)
	}
	var room proto.RoomID
	var video, audio proto.StreamID
	copy(room[:], resp.Bytes[0:4])
	copy(video[:], resp.Bytes[4:8])
	copy(audio[:], resp.Bytes[12:16])
	return room, video, audio, nil
}

// LeaveRoom sends LeaveRoom; there is no direct-response opcode, so this
// does not wait for one.
func (t *ControlTransport) LeaveRoom() error {
	return t.send(proto.Simple(proto.OpLeaveRoom))
}

// Close terminates the connection.
func (t *ControlTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
