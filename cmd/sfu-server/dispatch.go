package main

import (
	"fmt"
	"log"

	"vidrelay/internal/proto"
)

// Dispatcher executes decoded commands against the shared registries,
// mutating state and emitting responses/broadcasts. All validation errors
// become an ErrorResponse; none are fatal to the connection.
type Dispatcher struct {
	rooms *RoomRegistry
	users *UserRegistry
}

func newDispatcher(rooms *RoomRegistry, users *UserRegistry) *Dispatcher {
	return &Dispatcher{rooms: rooms, users: users}
}

// Dispatch executes cmd for sess and returns the direct response to write
// back on the connection, if any. LeaveRoom has no direct-response opcode
// in the catalog; hasResp is false for it and the broadcast is the only
// observable effect.
func (d *Dispatcher) Dispatch(sess *Session, cmd proto.Command) (resp proto.Command, hasResp bool) {
	switch cmd.Op {
	case proto.OpGetUserList:
		return proto.WithStringList(proto.OpUserList, d.users.List()), true

	case proto.OpGetRoomList:
		return proto.WithStringList(proto.OpRoomList, d.rooms.List()), true

	case proto.OpCreateRoom:
		return d.createRoom(cmd.Str), true

	case proto.OpDeleteRoom:
		return d.deleteRoom(cmd.Str), true

	case proto.OpJoinRoom:
		return d.joinRoom(sess, cmd.Str), true

	case proto.OpLeaveRoom:
		d.leaveRoom(sess)
		return proto.Command{}, false

	default:
		return errorResponse(fmt.Sprintf("unsupported command %v", cmd.Op)), true
	}
}

func errorResponse(msg string) proto.Command {
	return proto.WithString(proto.OpErrorResponse, msg)
}

func (d *Dispatcher) createRoom(name string) proto.Command {
	if err := proto.ValidateName(name); err != nil {
		return errorResponse(err.Error())
	}
	if _, err := d.rooms.Create(name); err != nil {
		return errorResponse(err.Error())
	}
	return proto.Simple(proto.OpCreateRoomSuccess)
}

func (d *Dispatcher) deleteRoom(name string) proto.Command {
	if err := d.rooms.Delete(name); err != nil {
		return errorResponse(err.Error())
	}
	return proto.Simple(proto.OpDeleteRoomSuccess)
}

func (d *Dispatcher) joinRoom(sess *Session, name string) proto.Command {
	var resp proto.Command
	err := d.rooms.withNamedRoomLocked(name, func(room *Room) error {
		video, err := proto.NewStreamID()
		if err != nil {
			return err
		}
		audio, err := proto.NewStreamID()
		if err != nil {
			return err
		}

		preMembers, preVideo, preAudio := room.joinInsert(sess.Username, video, audio)
		sess.setJoined(room.ID, video, audio)

		// To existing members: announce both of the joiner's new streams.
		for _, member := range preMembers {
			if peer, ok := d.users.Get(member); ok {
				peer.enqueue(proto.WithBytes(proto.OpOtherUserJoinedRoom, video[:]))
				peer.enqueue(proto.WithBytes(proto.OpOtherUserJoinedRoom, audio[:]))
			}
		}

		// To the joiner: one OtherUserJoinedRoom per pre-existing stream.
		for _, sid := range preVideo {
			sess.enqueue(proto.WithBytes(proto.OpOtherUserJoinedRoom, sid[:]))
		}
		for _, sid := range preAudio {
			sess.enqueue(proto.WithBytes(proto.OpOtherUserJoinedRoom, sid[:]))
		}

		payload := make([]byte, 0, 16)
		payload = append(payload, room.ID[:]...)
		payload = append(payload, video[:]...)
		payload = append(payload, room.ID[:]...)
		payload = append(payload, audio[:]...)
		resp = proto.WithBytes(proto.OpJoinRoomSuccess, payload)
		return nil
	})
	if err != nil {
		return errorResponse(err.Error())
	}
	return resp
}

func (d *Dispatcher) leaveRoom(sess *Session) {
	roomID, video, audio, ok := sess.current()
	if !ok {
		// Absence of a current session is an internal error, not a
		// validation failure surfaced to the client.
		log.Printf("[dispatch] LeaveRoom with no current session for %s", sess.Username)
		return
	}

	var postMembers []string
	err := d.rooms.withRoomLocked(roomID, func(room *Room) error {
		room.leaveRemove(sess.Username, video)
		room.leaveRemove(sess.Username, audio)
		postMembers = append([]string(nil), room.Members...)
		return nil
	})
	sess.clearJoined()
	if err != nil {
		return
	}

	d.broadcastLeft(postMembers, video)
	d.broadcastLeft(postMembers, audio)
}

func (d *Dispatcher) broadcastLeft(members []string, sid proto.StreamID) {
	for _, member := range members {
		if peer, ok := d.users.Get(member); ok {
			peer.enqueue(proto.WithBytes(proto.OpOtherUserLeftRoom, sid[:]))
		}
	}
}

// Teardown implements §4.3 phase 3: remove the user from the room of their
// current session and broadcast OtherUserLeftRoom for each of its two
// StreamIDs. Only that one room is cleaned; a room the user joined earlier
// without a LeaveRoom keeps their membership and streams.
func (d *Dispatcher) Teardown(sess *Session) {
	d.users.Remove(sess.Username)
	roomID, video, audio, ok := sess.current()
	if !ok {
		return
	}

	var postMembers []string
	err := d.rooms.withRoomLocked(roomID, func(room *Room) error {
		room.leaveRemove(sess.Username, video)
		room.leaveRemove(sess.Username, audio)
		postMembers = append([]string(nil), room.Members...)
		return nil
	})
	if err != nil {
		return
	}
	d.broadcastLeft(postMembers, video)
	d.broadcastLeft(postMembers, audio)
}
