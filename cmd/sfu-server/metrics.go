package main

import (
	"context"
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// runMetricsReporter periodically logs relay counters for observability,
// in the shape of the teacher's own periodic metrics report.
func runMetricsReporter(ctx context.Context, relay *Relay) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			received, forwarded, dropped := relay.Counters()
			log.Printf("[metrics] received=%s forwarded=%s dropped=%s",
				humanize.Comma(received), humanize.Comma(forwarded), humanize.Comma(dropped))
		}
	}
}
