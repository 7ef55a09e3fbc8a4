// Package scraper fetches TeamTemp historical pages and turns them into records.
//
// One Scrape call issues a single GET for a source URL (fixed User-Agent,
// bounded timeout, redirects followed), locates the embedded DataTable with
// the payload package and builds records with the record package. Transport
// problems are reported as ErrTransport; a page without a usable payload is
// reported with the payload package's not-found errors.
package scraper
