package main

import (
	"testing"

	"vidrelay/internal/proto"
)

func drainOutbound(t *testing.T, sess *Session, n int) []proto.Command {
	t.Helper()
	out := make([]proto.Command, 0, n)
	for i := 0; i < n; i++ {
		select {
		case cmd := <-sess.Outbound:
			out = append(out, cmd)
		default:
			t.Fatalf("expected %d outbound messages, got %d", n, len(out))
		}
	}
	return out
}

func TestCreateRoomThenList(t *testing.T) {
	rooms := newRoomRegistry()
	users := newUserRegistry()
	disp := newDispatcher(rooms, users)
	sess := newSession("alice")

	resp, ok := disp.Dispatch(sess, proto.WithString(proto.OpCreateRoom, "lobby"))
	if !ok || resp.Op != proto.OpCreateRoomSuccess {
		t.Fatalf("resp = %+v", resp)
	}

	resp, ok = disp.Dispatch(sess, proto.Simple(proto.OpGetRoomList))
	if !ok || resp.Op != proto.OpRoomList {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.StringList) != 1 || resp.StringList[0] != "lobby" {
		t.Fatalf("rooms = %v, want [lobby]", resp.StringList)
	}
}

func TestDeleteRoomRejectsNonEmpty(t *testing.T) {
	rooms := newRoomRegistry()
	users := newUserRegistry()
	disp := newDispatcher(rooms, users)

	alice := newSession("alice")
	disp.Dispatch(alice, proto.WithString(proto.OpCreateRoom, "lobby"))
	users.byName["alice"] = alice
	disp.Dispatch(alice, proto.WithString(proto.OpJoinRoom, "lobby"))

	resp, ok := disp.Dispatch(alice, proto.WithString(proto.OpDeleteRoom, "lobby"))
	if !ok || resp.Op != proto.OpErrorResponse {
		t.Fatalf("resp = %+v, want ErrorResponse", resp)
	}
}

func TestTwoUserJoinBroadcast(t *testing.T) {
	rooms := newRoomRegistry()
	users := newUserRegistry()
	disp := newDispatcher(rooms, users)

	alice := newSession("alice")
	users.byName["alice"] = alice
	disp.Dispatch(alice, proto.WithString(proto.OpCreateRoom, "lobby"))

	resp, ok := disp.Dispatch(alice, proto.WithString(proto.OpJoinRoom, "lobby"))
	if !ok || resp.Op != proto.OpJoinRoomSuccess {
		t.Fatalf("alice join resp = %+v", resp)
	}
	if len(resp.Bytes) != 16 {
		t.Fatalf("JoinRoomSuccess payload len = %d, want 16 (2x RoomID+StreamID)", len(resp.Bytes))
	}

	bob := newSession("bob")
	users.byName["bob"] = bob
	resp, ok = disp.Dispatch(bob, proto.WithString(proto.OpJoinRoom, "lobby"))
	if !ok || resp.Op != proto.OpJoinRoomSuccess {
		t.Fatalf("bob join resp = %+v", resp)
	}

	// Alice should have received two OtherUserJoinedRoom notifications (bob's
	// video and audio streams).
	aliceNotifs := drainOutbound(t, alice, 2)
	for _, n := range aliceNotifs {
		if n.Op != proto.OpOtherUserJoinedRoom {
			t.Fatalf("alice notif = %+v, want OtherUserJoinedRoom", n)
		}
	}

	// Bob should have received two OtherUserJoinedRoom notifications for
	// alice's pre-existing streams, enqueued before his own JoinRoomSuccess
	// was returned.
	bobNotifs := drainOutbound(t, bob, 2)
	for _, n := range bobNotifs {
		if n.Op != proto.OpOtherUserJoinedRoom {
			t.Fatalf("bob notif = %+v, want OtherUserJoinedRoom", n)
		}
	}
}

func TestLeaveRoomBroadcastsToRemainingMembers(t *testing.T) {
	rooms := newRoomRegistry()
	users := newUserRegistry()
	disp := newDispatcher(rooms, users)

	alice, bob := newSession("alice"), newSession("bob")
	users.byName["alice"], users.byName["bob"] = alice, bob

	disp.Dispatch(alice, proto.WithString(proto.OpCreateRoom, "lobby"))
	disp.Dispatch(alice, proto.WithString(proto.OpJoinRoom, "lobby"))
	disp.Dispatch(bob, proto.WithString(proto.OpJoinRoom, "lobby"))

	// Drain the join notifications so only the leave notification remains.
	drainOutbound(t, alice, 2)
	drainOutbound(t, bob, 2)

	_, hasResp := disp.Dispatch(bob, proto.Simple(proto.OpLeaveRoom))
	if hasResp {
		t.Fatal("LeaveRoom has no direct-response opcode")
	}

	left := drainOutbound(t, alice, 2)
	for _, n := range left {
		if n.Op != proto.OpOtherUserLeftRoom {
			t.Fatalf("notif = %+v, want OtherUserLeftRoom", n)
		}
	}
}
