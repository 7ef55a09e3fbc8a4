// Package source maintains the registry of TeamTemp pages to scrape.
//
// A Source is a URL plus a tribe label. IDs are derived from the URL, so
// re-adding a known URL updates its tribe instead of creating a duplicate,
// and reseeding from the same default list yields the same IDs. The
// registry keeps no state of its own; every operation reads and writes the
// full list through a Store.
package source
