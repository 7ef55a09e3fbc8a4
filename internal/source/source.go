package source

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalid marks registry input that failed validation.
	ErrInvalid = errors.New("invalid source")

	// ErrNotFound marks an operation on an unknown source ID.
	ErrNotFound = errors.New("source not found")
)

// Source is a page to scrape and the tribe its records belong to.
type Source struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Tribe     string    `json:"tribe"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateID derives a stable ID from a source URL (UUIDv5, URL namespace).
func GenerateID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(rawURL))).String()
}

// NewSource creates a Source with its ID derived from the URL. CreatedAt is
// kept to microseconds, the finest precision every store round-trips.
func NewSource(rawURL, tribe string, createdAt time.Time) Source {
	rawURL = strings.TrimSpace(rawURL)
	return Source{
		ID:        GenerateID(rawURL),
		URL:       rawURL,
		Tribe:     strings.TrimSpace(tribe),
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("%w: url required", ErrInvalid)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: parsing url: %v", ErrInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url must be http or https: %s", ErrInvalid, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host: %s", ErrInvalid, rawURL)
	}
	return nil
}

// Sort orders sources by creation time, then ID.
func Sort(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].CreatedAt.Equal(sources[j].CreatedAt) {
			return sources[i].CreatedAt.Before(sources[j].CreatedAt)
		}
		return sources[i].ID < sources[j].ID
	})
}
