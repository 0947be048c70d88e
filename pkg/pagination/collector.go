package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds collector configuration
type Config struct {
	// MaxConcurrency is the maximum number of windows fetched in parallel
	MaxConcurrency int
	// Timeout per window fetch
	Timeout time.Duration
	// PageSize is the limit requested for every window (1..MaxLimit)
	PageSize int
}

// DefaultConfig returns a conservative configuration for the catalog service
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		PageSize:       MaxLimit,
	}
}

// PageFunc fetches a single window of a sub-collection
type PageFunc[T any] func(ctx context.Context, w Window) (*Page[T], error)

// Collector fetches every window of a sub-collection in parallel
type Collector[T any] struct {
	fetch  PageFunc[T]
	config Config
}

// NewCollector creates a new collector around a single-window fetch function
func NewCollector[T any](fetch PageFunc[T], config Config) *Collector[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.PageSize <= 0 || config.PageSize > MaxLimit {
		config.PageSize = MaxLimit
	}

	return &Collector[T]{
		fetch:  fetch,
		config: config,
	}
}

// CollectAll returns all items of the sub-collection in collection order.
// The first window reveals the total; the remaining windows are distributed
// over a worker pool and reassembled by window index. Any failed window
// aborts the collection and no partial result is returned.
func (c *Collector[T]) CollectAll(ctx context.Context) ([]T, error) {
	start := time.Now()

	first, err := c.fetch(ctx, Window{Offset: 0, Limit: c.config.PageSize})
	if err != nil {
		return nil, fmt.Errorf("fetch first window: %w", err)
	}

	windows := remainingWindows(first.Total, c.config.PageSize)
	if len(windows) == 0 {
		log.Debug().
			Int("total", first.Total).
			Dur("duration", time.Since(start)).
			Msg("Collection complete (single window)")
		return first.Items, nil
	}

	log.Debug().
		Int("total", first.Total).
		Int("windows", len(windows)+1).
		Msg("Starting parallel window fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Slot 0 holds the first window; workers fill the rest by index.
	results := make([][]T, len(windows)+1)
	results[0] = first.Items

	queue := make(chan int, len(windows))
	for i := range windows {
		queue <- i
	}
	close(queue)

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := min(c.config.MaxConcurrency, len(windows))
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range queue {
				if ctx.Err() != nil {
					return
				}

				w := windows[idx]
				pageCtx, pageCancel := context.WithTimeout(ctx, c.config.Timeout)
				page, err := c.fetch(pageCtx, w)
				pageCancel()
				if err != nil {
					log.Warn().
						Err(err).
						Int("worker_id", workerID).
						Int("offset", w.Offset).
						Msg("Window fetch failed")
					fail(fmt.Errorf("fetch window offset=%d limit=%d: %w", w.Offset, w.Limit, err))
					return
				}
				results[idx+1] = page.Items
			}
		}(id)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]T, 0, first.Total)
	for _, chunk := range results {
		items = append(items, chunk...)
	}

	log.Debug().
		Int("items", len(items)).
		Int("total", first.Total).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")

	return items, nil
}

// remainingWindows lists the windows after the first one needed to cover total.
func remainingWindows(total, pageSize int) []Window {
	var windows []Window
	for offset := pageSize; offset < total; offset += pageSize {
		windows = append(windows, Window{Offset: offset, Limit: pageSize})
	}
	return windows
}
