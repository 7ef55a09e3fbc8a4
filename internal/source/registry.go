package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/logger"
)

// Store persists the full source list. Save must replace the stored list
// atomically: a failed Save leaves the previous list intact.
type Store interface {
	Load(ctx context.Context) ([]Source, error)
	Save(ctx context.Context, sources []Source) error
}

// Seed is a default source applied to an empty store.
type Seed struct {
	URL   string `json:"url" yaml:"url"`
	Tribe string `json:"tribe" yaml:"tribe"`
}

// ParseSeeds decodes a JSON list of {"url", "tribe"} objects, the format of
// the SOURCES_JSON environment variable.
func ParseSeeds(data string) ([]Seed, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	var seeds []Seed
	if err := json.Unmarshal([]byte(data), &seeds); err != nil {
		return nil, fmt.Errorf("parsing seeds: %w", err)
	}
	return seeds, nil
}

// Registry manages sources on top of a Store.
type Registry struct {
	mu        sync.Mutex
	store     Store
	now       func() time.Time
	listeners []func()
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		now:   time.Now,
	}
}

// WithClock sets the clock used for CreatedAt. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Subscribe registers fn to run after every successful add or delete.
func (r *Registry) Subscribe(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// List returns all sources ordered by creation time, then ID.
func (r *Registry) List(ctx context.Context) ([]Source, error) {
	sources, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	Sort(sources)
	return sources, nil
}

// Get returns the source with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (Source, error) {
	sources, err := r.List(ctx)
	if err != nil {
		return Source{}, err
	}
	for _, s := range sources {
		if s.ID == id {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add registers url under tribe. If the URL is already registered its tribe
// is updated in place and the existing source is returned with created=false.
func (r *Registry) Add(ctx context.Context, rawURL, tribe string) (Source, bool, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Source{}, false, err
	}

	r.mu.Lock()
	src, created, changed, err := r.add(ctx, rawURL, tribe)
	listeners := r.listeners
	r.mu.Unlock()
	if err != nil {
		return Source{}, false, err
	}

	if changed {
		notify(listeners)
		logger.Info("Source registered", logger.Fields{
			"id":      src.ID,
			"url":     src.URL,
			"tribe":   src.Tribe,
			"created": created,
		})
	}
	return src, created, nil
}

func (r *Registry) add(ctx context.Context, rawURL, tribe string) (Source, bool, bool, error) {
	sources, err := r.store.Load(ctx)
	if err != nil {
		return Source{}, false, false, fmt.Errorf("loading sources: %w", err)
	}

	candidate := NewSource(rawURL, tribe, r.now())
	for i := range sources {
		if sources[i].URL != candidate.URL {
			continue
		}
		if sources[i].Tribe == candidate.Tribe {
			return sources[i], false, false, nil
		}
		sources[i].Tribe = candidate.Tribe
		if err := r.store.Save(ctx, sources); err != nil {
			return Source{}, false, false, fmt.Errorf("saving sources: %w", err)
		}
		return sources[i], false, true, nil
	}

	sources = append(sources, candidate)
	if err := r.store.Save(ctx, sources); err != nil {
		return Source{}, false, false, fmt.Errorf("saving sources: %w", err)
	}
	return candidate, true, true, nil
}

// Delete removes the source with the given ID and reports whether it existed.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	removed, err := r.delete(ctx, id)
	listeners := r.listeners
	r.mu.Unlock()
	if err != nil {
		return false, err
	}

	if removed {
		notify(listeners)
		logger.Info("Source deleted", logger.Fields{"id": id})
	}
	return removed, nil
}

func (r *Registry) delete(ctx context.Context, id string) (bool, error) {
	sources, err := r.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading sources: %w", err)
	}

	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(sources) {
		return false, nil
	}

	if err := r.store.Save(ctx, kept); err != nil {
		return false, fmt.Errorf("saving sources: %w", err)
	}
	return true, nil
}

// Seed adds seeds when the store is empty and returns how many were added.
// Invalid or duplicate seed entries are skipped. A non-empty store is left
// untouched.
func (r *Registry) Seed(ctx context.Context, seeds []Seed) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading sources: %w", err)
	}
	if len(existing) > 0 || len(seeds) == 0 {
		return 0, nil
	}

	now := r.now()
	seen := make(map[string]bool)
	sources := make([]Source, 0, len(seeds))
	for _, seed := range seeds {
		if err := ValidateURL(seed.URL); err != nil {
			logger.Warn("Skipping seed source", logger.Fields{"url": seed.URL, "reason": err.Error()})
			continue
		}
		// Stagger creation times so List keeps the seed order.
		src := NewSource(seed.URL, seed.Tribe, now.Add(time.Duration(len(sources))*time.Millisecond))
		if seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return 0, nil
	}

	if err := r.store.Save(ctx, sources); err != nil {
		return 0, fmt.Errorf("saving seed sources: %w", err)
	}

	logger.Info("Seeded source registry", logger.Fields{"count": len(sources)})
	return len(sources), nil
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
