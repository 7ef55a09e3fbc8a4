// Package aggregate runs scrape rounds over every registered source and
// caches the merged result as a Generation.
//
// A Cache serves the current generation while it is younger than the TTL
// and non-empty. Otherwise it lists the sources, scrapes them with bounded
// parallelism and publishes the merged records together with the per-source
// failures. A failure in one source never aborts the round.
//
// Invalidate is meant to be subscribed to source registry changes. It drops
// the current generation, and a round that was already running when the
// registry changed is returned to its caller but never published.
//
// Example usage:
//
//	cache := aggregate.New(registry, scraper.New(), aggregate.Options{TTL: 10 * time.Minute})
//	registry.Subscribe(cache.Invalidate)
//
//	gen, err := cache.Get(ctx, false)
//	if err != nil {
//	    return err
//	}
//	for _, rec := range gen.Records {
//	    fmt.Println(rec.Tribe, rec.Team, rec.Date, rec.Value)
//	}
package aggregate
