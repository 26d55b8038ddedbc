package main

import (
	"context"
	"fmt"
	"log"
	"net"

	"golang.org/x/sync/errgroup"
)

// Supervisor binds both sockets, accepts reliable connections, spawns the
// datagram relay task, and reaps disconnected clients. An unrecoverable
// relay error terminates the server.
type Supervisor struct {
	tcpAddr string
	udpAddr string

	rooms *RoomRegistry
	users *UserRegistry
	disp  *Dispatcher
	relay *Relay
}

func newSupervisor(tcpAddr, udpAddr string) *Supervisor {
	rooms := newRoomRegistry()
	users := newUserRegistry()
	return &Supervisor{
		tcpAddr: tcpAddr,
		udpAddr: udpAddr,
		rooms:   rooms,
		users:   users,
		disp:    newDispatcher(rooms, users),
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs, returning the
// first fatal error from either the accept loop or the relay.
func (s *Supervisor) Run(ctx context.Context) error {
	tcpLn, err := net.Listen("tcp", s.tcpAddr)
	if err != nil {
		return fmt.Errorf("bind tcp %s: %w", s.tcpAddr, err)
	}
	defer tcpLn.Close()

	udpAddr, err := net.ResolveUDPAddr("udp", s.udpAddr)
	if err != nil {
		return fmt.Errorf("resolve udp %s: %w", s.udpAddr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind udp %s: %w", s.udpAddr, err)
	}
	defer udpConn.Close()

	s.relay = newRelay(udpConn, s.rooms)

	log.Printf("[supervisor] control on tcp://%s, media on udp://%s", s.tcpAddr, s.udpAddr)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.relay.Run(gctx)
	})
	group.Go(func() error {
		runMetricsReporter(gctx, s.relay)
		return nil
	})
	group.Go(func() error {
		return s.acceptLoop(gctx, tcpLn)
	})
	group.Go(func() error {
		<-gctx.Done()
		tcpLn.Close()
		udpConn.Close()
		return nil
	})

	return group.Wait()
}

func (s *Supervisor) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}
		go newConnHandler(conn, s.users, s.disp).Serve()
	}
}
