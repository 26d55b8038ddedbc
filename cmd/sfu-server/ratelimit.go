package main

import (
	"context"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// SourceLimiter enforces the per-source datagram rate limit: 5,000 packets
// per 1s window, lazily reset, with idle sources garbage-collected after
// 300s of inactivity.
type SourceLimiter struct {
	lim *limiter.Limiter

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func newSourceLimiter() *SourceLimiter {
	store := memory.NewStore()
	rate := limiter.Rate{Period: rateLimitWindow, Limit: rateLimitMax}
	return &SourceLimiter{
		lim:      limiter.New(store, rate),
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether a packet from key (the source address string) is
// within its source's current window. Packets beyond the cap are refused;
// the caller drops and counts them.
func (sl *SourceLimiter) Allow(key string) bool {
	ctx, err := sl.lim.Get(context.Background(), key)
	sl.mu.Lock()
	sl.lastSeen[key] = time.Now()
	sl.mu.Unlock()
	if err != nil {
		// Fail open: a limiter backend error must not stall the relay.
		return true
	}
	return !ctx.Reached
}

// SweepIdle drops bookkeeping for sources that have been silent longer
// than rateLimitIdleAfter. Call on a rateLimitSweepInterval ticker.
func (sl *SourceLimiter) SweepIdle(now time.Time) int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	removed := 0
	for key, seen := range sl.lastSeen {
		if now.Sub(seen) > rateLimitIdleAfter {
			delete(sl.lastSeen, key)
			removed++
		}
	}
	return removed
}

// RunSweeper blocks, sweeping idle sources until ctx is cancelled.
func (sl *SourceLimiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(rateLimitSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sl.SweepIdle(now)
		}
	}
}
