package provider

import (
	"context"
	"errors"
)

// CatalogAPI is the read-only external catalog consulted during enrichment.
// Implementations must be safe to call from one goroutine at a time; callers
// that want parallelism create one handle per worker.
type CatalogAPI interface {
	// SearchByTitle returns candidate shows for title, best match first.
	// An empty slice with a nil error is a miss.
	SearchByTitle(ctx context.Context, title string) ([]ShowSummary, error)

	// GetShowDetails returns the full record for a show id.
	GetShowDetails(ctx context.Context, id string) (*ShowDetails, error)

	// GetSeasonDetails returns one season of a show.
	GetSeasonDetails(ctx context.Context, showID string, number int) (*SeasonDetails, error)
}

// ShowSummary is the descriptive part of an external show record.
type ShowSummary struct {
	ID           string
	Name         string
	OriginalName string
	Overview     string
	FirstAirDate string
	Rating       *float64
}

// ShowDetails is the full external show record.
type ShowDetails struct {
	Show    ShowSummary
	Seasons []SeasonSummary
}

// SeasonSummary lists one season of a show. Number is nil when the catalog
// does not number the season.
type SeasonSummary struct {
	Number *int
	Name   string
}

// SeasonDetails is the external record for a single season.
type SeasonDetails struct {
	Name     string
	AirDate  string
	Episodes []EpisodeSummary
}

// EpisodeSummary lists one episode of a season.
type EpisodeSummary struct {
	Number *int
	Name   string
}

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Error codes shared by all backends.
const (
	CodeAuthFailed  = "AUTH_FAILED"
	CodeRateLimited = "RATE_LIMITED"
	CodeUnavailable = "UNAVAILABLE"
	CodeNotFound    = "NOT_FOUND"
	CodeInvalid     = "INVALID_REQUEST"
	CodeUnknown     = "UNKNOWN"
)

// IsNotFound reports whether err is a provider NOT_FOUND error.
func IsNotFound(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Code == CodeNotFound
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// FloatPtr returns a pointer to f, or nil when f is zero.
func FloatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
