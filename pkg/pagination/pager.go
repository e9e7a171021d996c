// Package pagination provides sequential offset-based paging over listing
// endpoints that take rows/start query parameters.
package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds pager configuration.
type Config struct {
	// PageSize is the number of entries requested per page.
	PageSize int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 100,
	}
}

// PageFetcher fetches a single page of entries starting at the given offset.
// An empty page signals exhaustion.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, start, rows int) ([]T, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc[T any] func(ctx context.Context, start, rows int) ([]T, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, start, rows int) ([]T, error) {
	return f(ctx, start, rows)
}

// Pager walks a paginated endpoint one page at a time, in order. Fetching is
// strictly sequential; the next page is only requested after every entry of
// the current page has been visited.
type Pager[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewPager creates a new sequential pager.
func NewPager[T any](fetcher PageFetcher[T], config Config) *Pager[T] {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}

	return &Pager[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// Each visits every entry until the listing is exhausted, fn asks to stop, or
// an error occurs. A fetch error terminates the walk and propagates wrapped;
// an error from fn propagates unmodified. Context cancellation is checked
// between pages.
func (p *Pager[T]) Each(ctx context.Context, fn func(entry T) (stop bool, err error)) error {
	start := 0
	pages := 0
	walkStart := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := p.fetcher.FetchPage(ctx, start, p.config.PageSize)
		if err != nil {
			return fmt.Errorf("fetch page at offset %d: %w", start, err)
		}
		if len(page) == 0 {
			log.Info().
				Int("pages", pages).
				Dur("duration", time.Since(walkStart)).
				Msg("Listing exhausted")
			return nil
		}

		pages++
		log.Debug().
			Int("start", start).
			Int("entries", len(page)).
			Msg("Walking page")

		for _, entry := range page {
			stop, err := fn(entry)
			if err != nil {
				return err
			}
			if stop {
				log.Info().
					Int("pages", pages).
					Dur("duration", time.Since(walkStart)).
					Msg("Walk stopped early")
				return nil
			}
		}

		start += p.config.PageSize
	}
}
