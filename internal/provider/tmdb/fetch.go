package tmdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/ryanbradynd05/go-tmdb"
)

// SearchByTitle searches TMDB for TV shows named title.
func (p *Provider) SearchByTitle(ctx context.Context, title string) ([]provider.ShowSummary, error) {
	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	results, err := p.client.SearchTv(title, p.options())
	if err != nil {
		err = p.mapError(err)
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if results == nil || len(results.Results) == 0 {
		p.logger.Debug("no results", "query", title)
		return nil, nil
	}

	summaries := make([]provider.ShowSummary, 0, len(results.Results))
	for i := range results.Results {
		summaries = append(summaries, searchResultToSummary((*tvSearchResult)(&results.Results[i])))
	}
	return summaries, nil
}

// GetShowDetails fetches the full TMDB record for a show id.
func (p *Provider) GetShowDetails(ctx context.Context, id string) (*provider.ShowDetails, error) {
	showID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	show, err := p.client.GetTvInfo(showID, p.options())
	if err != nil {
		return nil, p.mapError(err)
	}
	if show == nil {
		return nil, notFound(fmt.Sprintf("show %d not found", showID))
	}
	return tvToDetails(show), nil
}

// GetSeasonDetails fetches one season of a TMDB show.
func (p *Provider) GetSeasonDetails(ctx context.Context, showID string, number int) (*provider.SeasonDetails, error) {
	id, err := parseID(showID)
	if err != nil {
		return nil, err
	}
	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	season, err := p.client.GetTvSeasonInfo(id, number, p.options())
	if err != nil {
		return nil, p.mapError(err)
	}
	if season == nil {
		return nil, notFound(fmt.Sprintf("season %d not found", number))
	}

	details := &provider.SeasonDetails{
		Name:     season.Name,
		AirDate:  season.AirDate,
		Episodes: make([]provider.EpisodeSummary, 0, len(season.Episodes)),
	}
	for _, ep := range season.Episodes {
		details.Episodes = append(details.Episodes, provider.EpisodeSummary{
			Number: provider.IntPtr(ep.EpisodeNumber),
			Name:   ep.Name,
		})
	}
	return details, nil
}

func (p *Provider) options() map[string]string {
	return map[string]string{"language": p.language}
}

func parseID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  fmt.Sprintf("invalid TMDB id %q", id),
		}
	}
	return n, nil
}

func notFound(msg string) error {
	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeNotFound,
		Message:  msg,
	}
}

// Conversion functions

func searchResultToSummary(show *tvSearchResult) provider.ShowSummary {
	return provider.ShowSummary{
		ID:           strconv.Itoa(show.ID),
		Name:         show.Name,
		OriginalName: show.OriginalName,
		FirstAirDate: show.FirstAirDate,
		Rating:       provider.FloatPtr(float64(show.VoteAverage)),
	}
}

func tvToDetails(show *tmdb.TV) *provider.ShowDetails {
	details := &provider.ShowDetails{
		Show: provider.ShowSummary{
			ID:           strconv.Itoa(show.ID),
			Name:         show.Name,
			Overview:     show.Overview,
			FirstAirDate: show.FirstAirDate,
			Rating:       provider.FloatPtr(float64(show.VoteAverage)),
		},
		Seasons: make([]provider.SeasonSummary, 0, len(show.Seasons)),
	}
	for _, season := range show.Seasons {
		details.Seasons = append(details.Seasons, provider.SeasonSummary{
			Number: provider.IntPtr(season.SeasonNumber),
		})
	}
	return details
}
