package main

import (
	"context"
	"log"
	"net"

	"vidrelay/internal/proto"
)

// DatagramTransport owns the UDP socket used for the media channel: sending
// client-to-relay datagrams and running the receive loop that feeds peer
// datagrams to a caller-supplied handler. Grounded on the teacher's
// dgramPool-backed send path, generalized from a WebTransport datagram
// stream to a plain net.UDPConn.
type DatagramTransport struct {
	conn  *net.UDPConn
	relay *net.UDPAddr
	room  proto.RoomID
}

// NewDatagramTransport dials relayAddr for room.
func NewDatagramTransport(relayAddr string, room proto.RoomID) (*DatagramTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", relayAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &DatagramTransport{conn: conn, relay: addr, room: room}, nil
}

// Send prepends RoomID||StreamID and transmits payload to the relay.
func (dt *DatagramTransport) Send(stream proto.StreamID, payload []byte) error {
	datagram := proto.BuildRelayDatagram(dt.room, stream, payload)
	_, err := dt.conn.Write(datagram)
	return err
}

// StartReceiving runs the receive loop until ctx is cancelled, invoking
// onDatagram for each forwarded peer datagram.
func (dt *DatagramTransport) StartReceiving(ctx context.Context, onDatagram func(proto.StreamID, []byte)) {
	go func() {
		buf := make([]byte, proto.MaxDatagramSize)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := dt.conn.Read(buf)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Printf("[datagram] read: %v", err)
				return
			}
			stream, payload, ok := proto.SplitForwardedDatagram(buf[:n])
			if !ok {
				continue
			}
			cp := append([]byte(nil), payload...)
			onDatagram(stream, cp)
		}
	}()
}

// Close releases the socket.
func (dt *DatagramTransport) Close() error {
	return dt.conn.Close()
}
