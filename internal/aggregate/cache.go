package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/record"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

const (
	// DefaultTTL is the maximum age of a generation served without a forced refresh.
	DefaultTTL = 600 * time.Second

	// DefaultWorkers bounds how many sources are scraped at once.
	DefaultWorkers = 4

	// DefaultTimeout bounds a single source fetch and parse.
	DefaultTimeout = 30 * time.Second
)

// SourceLister returns the sources to scrape in registry order.
type SourceLister interface {
	List(ctx context.Context) ([]source.Source, error)
}

// Scraper turns one source URL into records.
type Scraper interface {
	Scrape(ctx context.Context, url, tribe string) (*record.Result, error)
}

// SourceError records why one source contributed no records to a round.
type SourceError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Generation is the merged result of one scrape round.
type Generation struct {
	Timestamp time.Time       `json:"timestamp"`
	Records   []record.Record `json:"data"`
	Errors    []SourceError   `json:"errors"`
}

// HasErrors reports whether any source failed during the round.
func (g *Generation) HasErrors() bool {
	return len(g.Errors) > 0
}

// Age returns how old the generation is at now.
func (g *Generation) Age(now time.Time) time.Duration {
	return now.Sub(g.Timestamp)
}

// Options configures a Cache. Zero values fall back to the package defaults.
type Options struct {
	TTL     time.Duration
	Workers int
	Timeout time.Duration
	Clock   func() time.Time
}

// Cache holds the current generation and coordinates scrape rounds.
type Cache struct {
	sources SourceLister
	scraper Scraper
	ttl     time.Duration
	workers int
	timeout time.Duration
	now     func() time.Time

	current atomic.Pointer[Generation]
	rounds  singleflight.Group

	// mu guards epoch and serialises publishing against Invalidate.
	mu    sync.Mutex
	epoch uint64
}

// New creates a Cache over the given sources and scraper.
func New(sources SourceLister, scraper Scraper, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Cache{
		sources: sources,
		scraper: scraper,
		ttl:     opts.TTL,
		workers: opts.Workers,
		timeout: opts.Timeout,
		now:     opts.Clock,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Current returns the published generation, or nil when there is none.
func (c *Cache) Current() *Generation {
	return c.current.Load()
}

// Invalidate drops the current generation so the next Get recomputes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.epoch++
	c.current.Store(nil)
	c.mu.Unlock()

	logger.IncrCounter("cache.invalidations")
	logger.Debug("Cache invalidated", nil)
}

// Get returns the current generation when it is fresh and force is false,
// and runs a scrape round otherwise. Concurrent callers share one round.
//
// Only a failure to list the sources is returned as an error. Per-source
// failures are reported in Generation.Errors.
func (c *Cache) Get(ctx context.Context, force bool) (*Generation, error) {
	if !force {
		if gen := c.fresh(); gen != nil {
			logger.IncrCounter("cache.hits")
			return gen, nil
		}
	}
	logger.IncrCounter("cache.misses")

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	// The round outlives a cancelled caller so that joined callers still get a result.
	roundCtx := context.WithoutCancel(ctx)
	ch := c.rounds.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		if !force {
			if gen := c.fresh(); gen != nil {
				return gen, nil
			}
		}
		return c.refresh(roundCtx, epoch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Generation), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fresh returns the current generation if it may be served without scraping.
func (c *Cache) fresh() *Generation {
	gen := c.current.Load()
	if gen == nil || len(gen.Records) == 0 {
		return nil
	}
	if gen.Age(c.now()) >= c.ttl {
		return nil
	}
	return gen
}

// outcome is the result of scraping one source.
type outcome struct {
	result *record.Result
	err    error
}

// refresh runs one scrape round and publishes it unless the cache was
// invalidated after the round started.
func (c *Cache) refresh(ctx context.Context, epoch uint64) (*Generation, error) {
	start := c.now()
	began := time.Now()

	sources, err := c.sources.List(ctx)
	if err != nil {
		logger.Error("Failed to list sources", nil, err)
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	outcomes := make([]outcome, len(sources))
	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := c.scrapeOne(ctx, src)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	gen := &Generation{
		Timestamp: start,
		Records:   []record.Record{},
		Errors:    []SourceError{},
	}
	for i, src := range sources {
		out := outcomes[i]
		if out.err != nil {
			gen.Errors = append(gen.Errors, SourceError{URL: src.URL, Message: out.err.Error()})
			logger.Warn("Source failed", logger.Fields{
				"url":   src.URL,
				"tribe": src.Tribe,
				"error": out.err.Error(),
			})
			continue
		}
		if out.result == nil {
			continue
		}
		gen.Records = append(gen.Records, out.result.Records...)
		if skipped := out.result.Skipped(); skipped > 0 || out.result.DateFallbacks > 0 {
			logger.Debug("Skipped cells while building records", logger.Fields{
				"url":            src.URL,
				"skipped":        skipped,
				"date_fallbacks": out.result.DateFallbacks,
			})
		}
	}

	published := c.publish(epoch, gen)

	logger.IncrCounter("scrape.rounds")
	logger.AddCounter("scrape.source_failures", int64(len(gen.Errors)))
	logger.SetGauge("scrape.records", float64(len(gen.Records)))
	logger.RecordTiming("scrape.round", time.Since(began))
	logger.Info("Scrape round complete", logger.Fields{
		"sources":   len(sources),
		"records":   len(gen.Records),
		"errors":    len(gen.Errors),
		"published": published,
		"duration":  time.Since(began).String(),
	})

	return gen, nil
}

// publish stores gen as the current generation if no invalidation happened
// since epoch was read.
func (c *Cache) publish(epoch uint64, gen *Generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return false
	}
	c.current.Store(gen)
	return true
}

// scrapeOne scrapes a single source under the per-source timeout. A panic
// in the scraper is reported as that source's error.
func (c *Cache) scrapeOne(ctx context.Context, src source.Source) (res *record.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("panic while scraping: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.scraper.Scrape(ctx, src.URL, src.Tribe)
}
