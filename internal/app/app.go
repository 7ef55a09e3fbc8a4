// Package app wires the source registry, the scraper and the aggregation
// cache into the operations exposed by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/aggregate"
	"github.com/pfrederiksen/teamtemp/internal/config"
	"github.com/pfrederiksen/teamtemp/internal/export"
	"github.com/pfrederiksen/teamtemp/internal/filter"
	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/postgres"
	"github.com/pfrederiksen/teamtemp/internal/record"
	"github.com/pfrederiksen/teamtemp/internal/scraper"
	"github.com/pfrederiksen/teamtemp/internal/source"
	"github.com/pfrederiksen/teamtemp/internal/sqlite"
	"github.com/pfrederiksen/teamtemp/internal/storage"
)

// SQLiteFileName is the database file used by the sqlite store.
const SQLiteFileName = "teamtemp.db"

// App holds the wired components.
type App struct {
	Registry *source.Registry
	Cache    *aggregate.Cache

	closer io.Closer
	now    func() time.Time
}

// New wires an App around an existing registry and cache. The cache is
// subscribed to registry changes.
func New(registry *source.Registry, cache *aggregate.Cache) *App {
	registry.Subscribe(cache.Invalidate)
	return &App{
		Registry: registry,
		Cache:    cache,
		now:      time.Now,
	}
}

// Open builds an App from configuration: it opens the configured store,
// seeds an empty registry and creates the scraper and cache.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := source.NewRegistry(store)

	seeds, err := cfg.Seeds()
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}
	if _, err := registry.Seed(ctx, seeds); err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("seeding sources: %w", err)
	}
	if sources, err := registry.List(ctx); err == nil && len(sources) == 0 {
		logger.Warn("Source registry is empty", logger.Fields{
			"hint": "set " + config.EnvDefaultURL + " or " + config.EnvSourcesJSON + ", or add a source",
		})
	}

	s := scraper.NewWithOptions(scraper.Options{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.Scrape.Timeout,
		Variable:  cfg.Scrape.Variable,
	})
	cache := aggregate.New(registry, s, aggregate.Options{
		TTL:     cfg.Cache.TTL,
		Workers: cfg.Scrape.Workers,
		Timeout: cfg.Scrape.Timeout,
	})

	a := New(registry, cache)
	a.closer = closer
	return a, nil
}

// OpenStore opens the source store selected by cfg.Store.Kind. The returned
// closer is nil for stores that hold no resources.
func OpenStore(ctx context.Context, cfg *config.Config) (source.Store, io.Closer, error) {
	switch cfg.Store.Kind {
	case config.StoreFile:
		store, err := storage.New(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening file store: %w", err)
		}
		logger.Debug("Using file store", logger.Fields{"path": store.Path()})
		return store, nil, nil

	case config.StoreSQLite:
		dir, err := storage.PrepareDir(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		path := filepath.Join(dir, SQLiteFileName)
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("Using sqlite store", logger.Fields{"path": path})
		return store, store, nil

	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.Store.DatabaseURL, 10*time.Second)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Debug("Using postgres store", nil)
		return store, store, nil
	}
	return nil, nil, fmt.Errorf("unsupported store kind %q", cfg.Store.Kind)
}

// Close releases the store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// RegisterSource adds url under tribe, or updates the tribe of an existing
// source. created reports whether a new source was added.
func (a *App) RegisterSource(ctx context.Context, url, tribe string) (source.Source, bool, error) {
	return a.Registry.Add(ctx, url, tribe)
}

// ListSources returns all registered sources in creation order.
func (a *App) ListSources(ctx context.Context) ([]source.Source, error) {
	return a.Registry.List(ctx)
}

// DeleteSource removes a source and reports whether it existed.
func (a *App) DeleteSource(ctx context.Context, id string) (bool, error) {
	return a.Registry.Delete(ctx, id)
}

// GetData returns the cached generation or recomputes it.
func (a *App) GetData(ctx context.Context, force bool) (*aggregate.Generation, error) {
	return a.Cache.Get(ctx, force)
}

// ExportRecords returns the records to export. Unlike GetData, a cached
// generation is used regardless of its age; a round runs only when forced
// or when nothing has been cached yet.
func (a *App) ExportRecords(ctx context.Context, force bool) ([]record.Record, error) {
	gen := a.Cache.Current()
	if force || gen == nil || len(gen.Records) == 0 {
		var err error
		gen, err = a.Cache.Get(ctx, true)
		if err != nil {
			return nil, err
		}
	}
	return gen.Records, nil
}

// Export writes the records matching f in format to w and returns the
// attachment name. A nil filter exports everything.
func (a *App) Export(ctx context.Context, w io.Writer, format export.Format, force bool, f *filter.Filter) (string, error) {
	records, err := a.ExportRecords(ctx, force)
	if err != nil {
		return "", err
	}
	if err := export.Write(w, format, f.Apply(records)); err != nil {
		return "", fmt.Errorf("exporting %s: %w", format, err)
	}
	logger.IncrCounter("export." + string(format))
	return export.Filename(a.now(), format), nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close() // nolint:errcheck
	}
}
