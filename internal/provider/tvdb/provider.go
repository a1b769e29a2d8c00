package tvdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"
)

const providerName = "tvdb"

// TVDBClient captures the dashotv client methods used by this provider.
type TVDBClient interface {
	GetSearchResults(request operations.GetSearchResultsRequest) (*tvdbapi.GetSearchResultsResponse, error)
	GetSeriesExtended(id float64, meta *operations.GetSeriesExtendedQueryParamMeta, short *bool) (*tvdbapi.GetSeriesExtendedResponse, error)
	GetSeriesEpisodes(request operations.GetSeriesEpisodesRequest) (*tvdbapi.GetSeriesEpisodesResponse, error)
}

// Provider implements provider.CatalogAPI for TheTVDB v4.
type Provider struct {
	client TVDBClient
	logger *slog.Logger
}

var _ provider.CatalogAPI = (*Provider)(nil)

// New logs in to TVDB with the configured API key.
func New(cfg provider.BackendConfig) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tvdb api_key is required")
	}

	client, err := tvdbapi.Login(apiKey)
	if err != nil {
		return nil, mapError(err)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a backend around an existing client.
func NewWithClient(client TVDBClient, cfg provider.BackendConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Provider{client: client, logger: log.NewComponentLogger(logger, providerName)}
}

// Factory adapts New to provider.Factory.
func Factory(cfg provider.BackendConfig) (provider.CatalogAPI, error) {
	return New(cfg)
}

// SearchByTitle returns series whose name matches title.
func (p *Provider) SearchByTitle(ctx context.Context, title string) ([]provider.ShowSummary, error) {
	query := strings.TrimSpace(title)
	if query == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	typeSeries := "series"
	resp, err := p.client.GetSearchResults(operations.GetSearchResultsRequest{Query: &query, Type: &typeSeries})
	if err != nil {
		err = mapError(err)
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, nil
	}

	var summaries []provider.ShowSummary
	for _, candidate := range resp.Data {
		if t := pointerToString(candidate.Type); t != "" && !strings.EqualFold(t, "series") {
			continue
		}
		record := toSearchRecord(candidate)
		if record.ID == 0 {
			continue
		}
		summaries = append(summaries, provider.ShowSummary{
			ID:           strconv.FormatInt(record.ID, 10),
			Name:         record.Name,
			FirstAirDate: record.Year,
		})
	}
	return summaries, nil
}

// GetShowDetails fetches the extended series record and derives its seasons
// from the official episode order.
func (p *Provider) GetShowDetails(ctx context.Context, id string) (*provider.ShowDetails, error) {
	seriesID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := p.client.GetSeriesExtended(seriesID, nil, nil)
	if err != nil {
		return nil, mapError(err)
	}
	if resp == nil || resp.Data == nil {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeNotFound, Message: "series not found", Retry: false}
	}

	series := resp.Data
	details := &provider.ShowDetails{
		Show: provider.ShowSummary{
			ID:           id,
			Name:         pointerToString(series.Name),
			Overview:     pointerToString(series.Overview),
			FirstAirDate: pointerToString(series.Year),
			Rating:       pointerToRating(series.Score),
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	episodes, err := p.client.GetSeriesEpisodes(operations.GetSeriesEpisodesRequest{
		ID:         seriesID,
		SeasonType: "official",
		Page:       0,
	})
	if err != nil {
		// The series record alone is still a usable match.
		p.logger.Warn("episode listing failed", "series", id, "error", err)
		return details, nil
	}
	if episodes == nil || episodes.Data == nil {
		return details, nil
	}

	seen := make(map[int64]bool)
	for _, ep := range episodes.Data.Episodes {
		if ep.SeasonNumber == nil || seen[*ep.SeasonNumber] {
			continue
		}
		seen[*ep.SeasonNumber] = true
		details.Seasons = append(details.Seasons, provider.SeasonSummary{
			Number: provider.IntPtr(int(*ep.SeasonNumber)),
		})
	}
	return details, nil
}

// GetSeasonDetails lists the episodes of one official season.
func (p *Provider) GetSeasonDetails(ctx context.Context, showID string, number int) (*provider.SeasonDetails, error) {
	seriesID, err := parseID(showID)
	if err != nil {
		return nil, err
	}
	if number < 0 {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: "season fetch requires a valid season number", Retry: false}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seasonNum := int64(number)
	episodes, err := p.client.GetSeriesEpisodes(operations.GetSeriesEpisodesRequest{
		ID:         seriesID,
		SeasonType: "official",
		Season:     &seasonNum,
		Page:       0,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if episodes == nil || episodes.Data == nil || len(episodes.Data.Episodes) == 0 {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeNotFound, Message: "season not found", Retry: false}
	}

	details := &provider.SeasonDetails{Name: fmt.Sprintf("Season %d", number)}
	for _, ep := range episodes.Data.Episodes {
		if details.AirDate == "" {
			details.AirDate = pointerToString(ep.Aired)
		}
		summary := provider.EpisodeSummary{Name: pointerToString(ep.Name)}
		if ep.Number != nil {
			summary.Number = provider.IntPtr(int(*ep.Number))
		}
		details.Episodes = append(details.Episodes, summary)
	}
	return details, nil
}

type searchRecord struct {
	ID   int64
	Name string
	Year string
}

func toSearchRecord(result shared.SearchResult) *searchRecord {
	id := parseInt64(pointerToString(result.TvdbID))
	if id == 0 {
		id = parseInt64(strings.TrimPrefix(pointerToString(result.ID), "series-"))
	}

	name := firstNonEmptyString(pointerToString(result.Name), pointerToString(result.NameTranslated), pointerToString(result.Title))
	year := pointerToString(result.Year)

	return &searchRecord{ID: id, Name: name, Year: year}
}

func parseID(id string) (float64, error) {
	n := parseInt64(id)
	if n <= 0 {
		return 0, &provider.ProviderError{Provider: providerName, Code: provider.CodeInvalid, Message: fmt.Sprintf("invalid TVDB id %q", id), Retry: false}
	}
	return float64(n), nil
}

func pointerToString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func pointerToRating(value *float64) *float64 {
	if value == nil {
		return nil
	}
	return provider.FloatPtr(*value)
}

func parseInt64(value string) int64 {
	parsed, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return parsed
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "apikey"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeAuthFailed, Message: "TVDB authentication failed: " + msg, Retry: false}
	case strings.Contains(lower, "429"), strings.Contains(lower, "too many"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeRateLimited, Message: msg, Retry: true, RetryAfter: 5}
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeNotFound, Message: msg, Retry: false}
	case strings.Contains(lower, "503"), strings.Contains(lower, "unavailable"):
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeUnavailable, Message: msg, Retry: true, RetryAfter: 30}
	default:
		return &provider.ProviderError{Provider: providerName, Code: provider.CodeUnknown, Message: msg, Retry: false}
	}
}
