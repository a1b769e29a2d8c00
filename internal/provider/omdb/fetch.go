package omdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/Digital-Shane/omdb"
)

// SearchByTitle looks up a series by exact title. OMDb returns at most one match.
func (p *Provider) SearchByTitle(ctx context.Context, title string) ([]provider.ShowSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.client.SearchByTitle(omdb.QueryData{
		Title:      title,
		SearchType: "series",
		Plot:       "full",
	})
	if err != nil {
		err = p.mapError(err)
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	series, ok := asSeries(result)
	if !ok || series.ImdbID == "" {
		return nil, nil
	}
	return []provider.ShowSummary{seriesToSummary(series)}, nil
}

// GetShowDetails fetches a series by IMDb id. Seasons are numbered 1..totalSeasons.
func (p *Provider) GetShowDetails(ctx context.Context, id string) (*provider.ShowDetails, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  "show fetch requires an IMDb ID",
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.client.SearchByImdbID(omdb.QueryData{ImdbID: strings.TrimSpace(id), Plot: "full"})
	if err != nil {
		return nil, p.mapError(err)
	}
	series, ok := asSeries(result)
	if !ok {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "series not found",
		}
	}

	details := &provider.ShowDetails{Show: seriesToSummary(series)}
	for n := 1; n <= parseTotalSeasons(series.TotalSeasons); n++ {
		details.Seasons = append(details.Seasons, provider.SeasonSummary{Number: provider.IntPtr(n)})
	}
	return details, nil
}

// GetSeasonDetails fetches a season listing, then each episode record for its title.
func (p *Provider) GetSeasonDetails(ctx context.Context, showID string, number int) (*provider.SeasonDetails, error) {
	if number <= 0 {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  "season fetch requires a valid season number",
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := omdb.QueryData{ImdbID: strings.TrimSpace(showID), Season: strconv.Itoa(number)}
	result, err := p.client.SearchByImdbID(query)
	if err != nil {
		return nil, p.mapError(err)
	}

	var season *omdb.SeasonResult
	switch s := result.(type) {
	case omdb.SeasonResult:
		season = &s
	case *omdb.SeasonResult:
		season = s
	}
	if season == nil {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "season not found",
		}
	}

	details := &provider.SeasonDetails{Name: fmt.Sprintf("Season %d", number)}
	for n := 1; n <= len(season.Episodes); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		episode, err := p.fetchEpisode(query, n)
		if err != nil {
			if provider.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if details.AirDate == "" {
			details.AirDate = episode.Released
		}
		details.Episodes = append(details.Episodes, provider.EpisodeSummary{
			Number: provider.IntPtr(n),
			Name:   episode.Title,
		})
	}
	if details.AirDate == "" {
		details.AirDate = omdb.FirstYearFromEpisodes(season.Episodes)
	}
	return details, nil
}

func (p *Provider) fetchEpisode(season omdb.QueryData, number int) (*omdb.EpisodeResult, error) {
	season.Episode = strconv.Itoa(number)
	result, err := p.client.SearchByImdbID(season)
	if err != nil {
		return nil, p.mapError(err)
	}

	switch episode := result.(type) {
	case omdb.EpisodeResult:
		return &episode, nil
	case *omdb.EpisodeResult:
		return episode, nil
	default:
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  "episode not found",
		}
	}
}

func asSeries(result any) (omdb.SeriesResult, bool) {
	switch series := result.(type) {
	case omdb.SeriesResult:
		return series, true
	case *omdb.SeriesResult:
		if series != nil {
			return *series, true
		}
	}
	return omdb.SeriesResult{}, false
}

func seriesToSummary(series omdb.SeriesResult) provider.ShowSummary {
	return provider.ShowSummary{
		ID:           series.ImdbID,
		Name:         series.Title,
		Overview:     series.Plot,
		FirstAirDate: omdb.FirstYear(series.Year),
		Rating:       provider.FloatPtr(float64(omdb.ParseRating(series.ImdbRating))),
	}
}
