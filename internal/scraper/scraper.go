package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pfrederiksen/teamtemp/internal/payload"
	"github.com/pfrederiksen/teamtemp/internal/record"
)

const (
	UserAgent    = "teamtemp-scraper/1.0 (github.com/pfrederiksen/teamtemp)"
	Timeout      = 30 * time.Second
	MaxRedirects = 10
)

// ErrTransport marks network and HTTP status failures reaching a source.
var ErrTransport = errors.New("transport failure")

// Options configures a Scraper. Zero values select the package defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Variable  string
	Clock     func() time.Time
}

// Scraper fetches pages and extracts TeamTemp records from them.
type Scraper struct {
	client  *resty.Client
	locator *payload.Locator
	builder *record.Builder
}

// New creates a Scraper with default options.
func New() *Scraper {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Scraper from opts.
func NewWithOptions(opts Options) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}

	client := resty.New().
		SetHeader("User-Agent", opts.UserAgent).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects))

	builder := record.NewBuilder()
	if opts.Clock != nil {
		builder = builder.WithClock(opts.Clock)
	}

	return &Scraper{
		client:  client,
		locator: payload.NewLocator(opts.Variable),
		builder: builder,
	}
}

// Fetch returns the body of url. Non-2xx responses are transport failures.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: fetching page: %v", ErrTransport, err)
	}

	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: unexpected status code: %d", ErrTransport, code)
	}

	return resp.String(), nil
}

// Scrape fetches url and builds records tagged with tribe.
// A page without a decodable payload returns an empty result together with
// an error satisfying payload.IsNotFound.
func (s *Scraper) Scrape(ctx context.Context, url, tribe string) (*record.Result, error) {
	html, err := s.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.Parse(html, tribe)
}

// Parse extracts records from already-fetched html.
func (s *Scraper) Parse(html, tribe string) (*record.Result, error) {
	table, err := s.locator.Locate(html)
	if err != nil {
		return s.builder.Build(nil, tribe), err
	}
	return s.builder.Build(table, tribe), nil
}
