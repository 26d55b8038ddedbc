package main

import "time"

// Centralized magic numbers for the client media path, the same single-file
// idiom the server uses for its own tunables.
const (
	defaultServerHost = "127.0.0.1"
	defaultTCPPort    = "8040"
	defaultUDPPort    = "8039"

	// fragmentBufferTimeout evicts a stalled fragment buffer and, if a
	// cache exists for that peer, marks it corrupted.
	fragmentBufferTimeout = 50 * time.Millisecond

	// frameBufferPoolSize is the reference size of the reused byte-buffer
	// pool for assembling frame_data. The Reassembler's bytebufferpool.Pool
	// takes no size and is not capped by this value.
	frameBufferPoolSize = 10

	// deltaSizeRatioThreshold: abandon delta and send Full once the
	// serialized delta would reach or exceed this fraction of frame size.
	deltaSizeRatioThreshold = 0.30

	// deltaRunMergeGap merges two differing runs when fewer than this many
	// equal bytes separate them (MIN_BLOCK_SIZE/4 = 16).
	deltaRunMergeGap = 16

	// heartbeatInterval is the number of consecutive unchanged frames
	// after which a single Heartbeat datagram is sent.
	heartbeatInterval = 30

	// shutdownGraceTimeout bounds how long child tasks are given to yield
	// after the call's cancellation signal trips before a forced exit.
	shutdownGraceTimeout = 500 * time.Millisecond
)
