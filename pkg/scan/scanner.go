// Package scan implements the manager that walks the collections listing and
// gathers collections whose item count falls within configured bounds.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/birkin/collection-size-query-project/pkg/bdr"
	"github.com/birkin/collection-size-query-project/pkg/pagination"
	"github.com/birkin/collection-size-query-project/pkg/throttle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for scan progress.
var (
	bdrCollectionsCheckedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdr_collections_checked_total",
		Help: "Total collections whose item count was examined",
	})

	bdrCollectionsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdr_collections_matched_total",
		Help: "Total collections whose item count fell within the configured bounds",
	})

	bdrScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bdr_scan_duration_seconds",
		Help:    "Duration of complete scans in seconds",
		Buckets: []float64{1, 5, 15, 60, 300, 900},
	})
)

// Source is the repository access the scanner needs. *bdr.Client satisfies it.
type Source interface {
	FetchCollectionsBatch(ctx context.Context, start, rows int) ([]bdr.CollectionSummary, error)
	FetchCollectionItemCount(ctx context.Context, collectionID string) (count int, found bool, err error)
}

// Config holds the scan configuration.
type Config struct {
	// MinItems and MaxItems are the inclusive bounds for a collection to be
	// considered small.
	MinItems int
	MaxItems int

	// BatchSize is the number of collection summaries requested per listing page.
	BatchSize int

	// MaxCheck caps how many collections have their item count examined.
	MaxCheck int

	// GatherTarget is the number of matches after which the scan stops.
	GatherTarget int

	// Delay is the fixed wait before each item-count request. Zero disables
	// pacing.
	Delay time.Duration
}

// DefaultConfig returns the standard scan configuration.
func DefaultConfig() Config {
	return Config{
		MinItems:     5,
		MaxItems:     50,
		BatchSize:    100,
		MaxCheck:     200,
		GatherTarget: 2,
		Delay:        throttle.DefaultDelay,
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.MinItems < 0 {
		return fmt.Errorf("min items must be >= 0 (got %d)", c.MinItems)
	}
	if c.MaxItems < c.MinItems {
		return fmt.Errorf("max items (%d) must be >= min items (%d)", c.MaxItems, c.MinItems)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.MaxCheck <= 0 {
		return fmt.Errorf("max check must be > 0 (got %d)", c.MaxCheck)
	}
	if c.GatherTarget < 0 {
		return fmt.Errorf("gather target must be >= 0 (got %d)", c.GatherTarget)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0 (got %s)", c.Delay)
	}
	return nil
}

// Scanner drives the scan: paging, pacing, filtering, termination.
type Scanner struct {
	source Source
	pacer  *throttle.Pacer
	config Config
	logger zerolog.Logger
}

// New creates a scanner over the given source.
func New(source Source, cfg Config) (*Scanner, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan config: %w", err)
	}

	return &Scanner{
		source: source,
		pacer:  throttle.NewPacer(cfg.Delay),
		config: cfg,
		logger: log.With().Str("component", "scanner").Logger(),
	}, nil
}

// Run executes the scan and returns the qualifying collections in discovery
// order. The scan stops once matches exceed the gather target, the number of
// examined collections reaches the check limit, or the listing is exhausted.
// A listing failure terminates the scan; item-count failures only skip the
// affected collection. On error the results gathered so far are returned
// alongside it.
func (s *Scanner) Run(ctx context.Context) ([]bdr.CollectionInfo, error) {
	results := make([]bdr.CollectionInfo, 0, s.config.GatherTarget+1)
	checked := 0
	scanStart := time.Now()
	defer func() {
		bdrScanDurationSeconds.Observe(time.Since(scanStart).Seconds())
	}()

	s.logger.Info().
		Int("min_items", s.config.MinItems).
		Int("max_items", s.config.MaxItems).
		Int("max_check", s.config.MaxCheck).
		Int("gather_target", s.config.GatherTarget).
		Msg("Starting collection scan")

	pager := pagination.NewPager(
		pagination.PageFetcherFunc[bdr.CollectionSummary](s.source.FetchCollectionsBatch),
		pagination.Config{PageSize: s.config.BatchSize},
	)

	err := pager.Each(ctx, func(summary bdr.CollectionSummary) (bool, error) {
		if len(results) > s.config.GatherTarget || checked >= s.config.MaxCheck {
			s.logger.Info().
				Int("checked", checked).
				Int("matches", len(results)).
				Msg("Enough small collections found or reached check limit, stopping")
			return true, nil
		}

		if err := s.pacer.Wait(ctx); err != nil {
			return true, err
		}

		count, found, err := s.source.FetchCollectionItemCount(ctx, summary.ID)
		if err != nil {
			// Skip the collection; it still counts against the check limit.
			s.logger.Error().
				Err(err).
				Str("collection_id", summary.ID).
				Msg("Error processing collection")
			checked++
			bdrCollectionsCheckedTotal.Inc()
			return false, nil
		}
		if !found {
			// A response with no count does not count against the check limit.
			s.logger.Warn().
				Str("collection_id", summary.ID).
				Msg("No count returned")
			return false, nil
		}

		s.logger.Info().
			Str("collection_id", summary.ID).
			Int("count", count).
			Msg("Item count")

		if count >= s.config.MinItems && count <= s.config.MaxItems {
			results = append(results, bdr.CollectionInfo{
				ID:    summary.ID,
				Name:  summary.Name,
				Count: count,
			})
			bdrCollectionsMatchedTotal.Inc()
			s.logger.Info().
				Str("collection_id", summary.ID).
				Int("count", count).
				Int("matches", len(results)).
				Msg("Collection added to results")
		}

		checked++
		bdrCollectionsCheckedTotal.Inc()
		return false, nil
	})
	if err != nil {
		return results, err
	}

	s.logger.Info().
		Int("checked", checked).
		Int("matches", len(results)).
		Dur("duration", time.Since(scanStart)).
		Msg("Scan complete")

	return results, nil
}
