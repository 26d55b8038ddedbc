package main

import "time"

// Centralized magic numbers. One file of named constants, the same way the
// teacher keeps its tunables in one place rather than scattered literals.
const (
	defaultTCPAddr = "0.0.0.0:8040"
	defaultUDPAddr = "0.0.0.0:8039"

	// outboundChanCapacity bounds the per-user server-initiated notification
	// channel; overflow drops the oldest pending message.
	outboundChanCapacity = 16

	// rateLimitWindow and rateLimitMax bound per-source datagram ingress.
	rateLimitWindow = time.Second
	rateLimitMax    = 5000

	// rateLimitIdleAfter and rateLimitSweepInterval govern garbage
	// collection of rate-limit entries for sources that went quiet.
	rateLimitIdleAfter     = 300 * time.Second
	rateLimitSweepInterval = 60 * time.Second

	// fanOutImmediateMax is the destination-count threshold at or below
	// which the relay sends synchronously instead of batching.
	fanOutImmediateMax = 3

	// batchFlushCount and batchFlushInterval bound how long a batched
	// packet waits before it is flushed to the socket.
	batchFlushCount    = 32
	batchFlushInterval = time.Millisecond

	// batchBacklogLimit is the maximum number of pending packets the batch
	// buffer holds before new additions are dropped.
	batchBacklogLimit = 500

	// metricsReportInterval is how often the supervisor logs relay counters.
	metricsReportInterval = 10 * time.Second
)
