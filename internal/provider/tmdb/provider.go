package tmdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/ryanbradynd05/go-tmdb"
)

const (
	providerName    = "tmdb"
	defaultLanguage = "en-US"
)

// Provider implements provider.CatalogAPI against The Movie Database.
type Provider struct {
	client      TMDBClient
	language    string
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

var _ provider.CatalogAPI = (*Provider)(nil)

// TMDBClient is the subset of *tmdb.TMDb the backend uses.
type TMDBClient interface {
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
}

// tvSearchResult mirrors the inline struct in tmdb.TvSearchResults.Results.
type tvSearchResult struct {
	BackdropPath  string `json:"backdrop_path"`
	ID            int
	OriginalName  string   `json:"original_name"`
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
	PosterPath    string   `json:"poster_path"`
	Popularity    float32
	Name          string
	VoteAverage   float32 `json:"vote_average"`
	VoteCount     uint32  `json:"vote_count"`
}

// New creates a TMDB backend from cfg. An API key is required.
func New(cfg provider.BackendConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tmdb api_key is required")
	}
	client := tmdb.Init(tmdb.Config{
		APIKey:   cfg.APIKey,
		Proxies:  nil,
		UseProxy: false,
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a backend around an existing client.
func NewWithClient(client TMDBClient, cfg provider.BackendConfig) *Provider {
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Provider{
		client:      client,
		language:    language,
		rateLimiter: newRateLimiter(38, 10*time.Second), // 38 requests per 10 seconds
		logger:      log.NewComponentLogger(logger, providerName),
	}
}

// Factory adapts New to provider.Factory.
func Factory(cfg provider.BackendConfig) (provider.CatalogAPI, error) {
	return New(cfg)
}

// mapError maps TMDB errors to provider errors
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "TMDB authentication failed: " + err.Error(),
			Retry:    false,
		}
	}
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    "TMDB rate limit exceeded",
			Retry:      true,
			RetryAfter: 10,
		}
	}
	if strings.Contains(errStr, "503") || strings.Contains(errStr, "unavailable") {
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeUnavailable,
			Message:    "TMDB service unavailable",
			Retry:      true,
			RetryAfter: 30,
		}
	}
	if strings.Contains(errStr, "404") || strings.Contains(errStr, "not found") {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "TMDB resource not found",
			Retry:    false,
		}
	}

	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeUnknown,
		Message:  fmt.Sprintf("TMDB error: %v", err),
		Retry:    false,
	}
}
