package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	tcpAddr := flag.String("tcp", defaultTCPAddr, "address for the reliable control channel")
	udpAddr := flag.String("udp", defaultUDPAddr, "address for the datagram media channel")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := newSupervisor(*tcpAddr, *udpAddr)
	if err := sup.Run(ctx); err != nil {
		log.Printf("[main] fatal: %v", err)
		os.Exit(1)
	}
}
