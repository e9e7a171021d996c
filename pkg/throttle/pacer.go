// Package throttle implements the fixed-delay pacer that spaces out
// item-count requests. A flat sleep between requests is the only form of
// backpressure applied to the repository server.
package throttle

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pacing.
var (
	bdrThrottleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdr_throttle_waits_total",
		Help: "Total number of fixed-delay waits between requests",
	})

	bdrThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bdr_throttle_wait_seconds",
		Help:    "Duration of fixed-delay waits in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2},
	})
)

// DefaultDelay is the delay used when a non-positive delay is configured.
const DefaultDelay = 500 * time.Millisecond

// Pacer sleeps a fixed delay between requests.
type Pacer struct {
	delay  time.Duration
	logger zerolog.Logger
}

// NewPacer creates a pacer with the given delay. A negative delay falls back
// to DefaultDelay; zero disables pacing (used in tests).
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = DefaultDelay
	}

	return &Pacer{
		delay:  delay,
		logger: log.With().Str("component", "pacer").Logger(),
	}
}

// Delay returns the configured delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks for the configured delay, returning early with the context
// error on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	bdrThrottleWaitsTotal.Inc()
	bdrThrottleWaitSeconds.Observe(p.delay.Seconds())

	p.logger.Debug().Dur("delay", p.delay).Msg("Pacing before next request")

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		p.logger.Warn().Msg("Context cancelled during pacing wait")
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
