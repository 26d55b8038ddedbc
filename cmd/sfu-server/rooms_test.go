package main

import (
	"testing"

	"vidrelay/internal/proto"
)

func TestRoomRegistryCreateDuplicateRejected(t *testing.T) {
	rr := newRoomRegistry()
	if _, err := rr.Create("lobby"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := rr.Create("lobby"); err == nil {
		t.Fatal("duplicate room name should be rejected")
	}
}

func TestRoomRegistryDeleteRejectedWithMember(t *testing.T) {
	rr := newRoomRegistry()
	room, err := rr.Create("lobby")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	video, _ := proto.NewStreamID()
	audio, _ := proto.NewStreamID()
	room.joinInsert("alice", video, audio)

	if err := rr.Delete("lobby"); err == nil {
		t.Fatal("delete with one member should be rejected")
	}

	room.leaveRemove("alice", video)
	room.leaveRemove("alice", audio)
	if err := rr.Delete("lobby"); err != nil {
		t.Fatalf("delete with zero members should succeed: %v", err)
	}
}

func TestJoinInsertSnapshotsPreExisting(t *testing.T) {
	rr := newRoomRegistry()
	room, _ := rr.Create("lobby")

	aliceVideo, _ := proto.NewStreamID()
	aliceAudio, _ := proto.NewStreamID()
	preMembers, preVideo, preAudio := room.joinInsert("alice", aliceVideo, aliceAudio)
	if len(preMembers) != 0 || len(preVideo) != 0 || len(preAudio) != 0 {
		t.Fatalf("first join should see empty snapshot, got %v %v %v", preMembers, preVideo, preAudio)
	}

	bobVideo, _ := proto.NewStreamID()
	bobAudio, _ := proto.NewStreamID()
	preMembers, preVideo, preAudio = room.joinInsert("bob", bobVideo, bobAudio)
	if len(preMembers) != 1 || preMembers[0] != "alice" {
		t.Fatalf("bob should see alice as pre-existing member, got %v", preMembers)
	}
	if len(preVideo) != 1 || preVideo[0] != aliceVideo {
		t.Fatalf("bob should see alice's video stream pre-existing, got %v", preVideo)
	}
	if len(preAudio) != 1 || preAudio[0] != aliceAudio {
		t.Fatalf("bob should see alice's audio stream pre-existing, got %v", preAudio)
	}
}

func TestAddressLearningNeverClears(t *testing.T) {
	rr := newRoomRegistry()
	room, _ := rr.Create("lobby")
	video, _ := proto.NewStreamID()
	audio, _ := proto.NewStreamID()
	room.joinInsert("alice", video, audio)

	learned := fakeAddr("1.2.3.4:9")
	room.learnAddr(video, true, learned)

	room.learnAddr(video, true, fakeAddr("5.6.7.8:9"))

	entry, _, ok := room.lookupStream(video)
	if !ok {
		t.Fatal("stream should exist")
	}
	if entry.addr.String() != learned.String() {
		t.Fatalf("address should not be overwritten, got %v", entry.addr)
	}
}

type fakeAddr string

func (f fakeAddr) Network() string { return "udp" }
func (f fakeAddr) String() string  { return string(f) }
