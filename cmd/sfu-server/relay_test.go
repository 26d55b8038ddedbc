package main

import (
	"net"
	"testing"

	"vidrelay/internal/proto"
)

func mustUDPConn(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRelayForwardStripsRoomID(t *testing.T) {
	rooms := newRoomRegistry()
	room, _ := rooms.Create("lobby")

	aliceVideo, _ := proto.NewStreamID()
	bobVideo, _ := proto.NewStreamID()
	room.joinInsert("alice", aliceVideo, proto.StreamID{})
	room.joinInsert("bob", bobVideo, proto.StreamID{})

	relayConn := mustUDPConn(t)
	bobConn := mustUDPConn(t)

	relay := newRelay(relayConn, rooms)
	bobAddr := bobConn.LocalAddr().(*net.UDPAddr)
	room.learnAddr(bobVideo, true, bobAddr)

	datagram := proto.BuildRelayDatagram(room.ID, aliceVideo, []byte{0xAA, 0xBB})
	relay.handleDatagram(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}, datagram)

	buf := make([]byte, proto.MaxDatagramSize)
	n, err := bobConn.Read(buf)
	if err != nil {
		t.Fatalf("bob read: %v", err)
	}
	stream, payload, ok := proto.SplitForwardedDatagram(buf[:n])
	if !ok || stream != aliceVideo {
		t.Fatalf("stream = %v, want %v", stream, aliceVideo)
	}
	if len(payload) != 2 || payload[0] != 0xAA || payload[1] != 0xBB {
		t.Fatalf("payload = %v", payload)
	}
}

func TestRelayDropsShortDatagram(t *testing.T) {
	rooms := newRoomRegistry()
	relayConn := mustUDPConn(t)
	relay := newRelay(relayConn, rooms)

	before, _, dropped := relay.Counters()
	relay.handleDatagram(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, []byte{1, 2, 3})
	_, _, droppedAfter := relay.Counters()
	if droppedAfter != dropped+1 {
		t.Fatalf("dropped = %d, want %d", droppedAfter, dropped+1)
	}
	_ = before
}

func TestSourceLimiterCapsAt5000(t *testing.T) {
	sl := newSourceLimiter()
	allowed := 0
	for i := 0; i < rateLimitMax+1; i++ {
		if sl.Allow("1.2.3.4:9") {
			allowed++
		}
	}
	if allowed != rateLimitMax {
		t.Fatalf("allowed = %d, want %d", allowed, rateLimitMax)
	}
}
