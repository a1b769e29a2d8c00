package catalog

import "fmt"

// Catalog is the root of the normalized Show → Season → Episode hierarchy.
// Shows are kept in first-encounter order.
type Catalog struct {
	Shows []*Show `json:"media"`
}

// Show is a single series. Title is unique within a catalog at build time.
type Show struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description,omitempty"`
	OriginalTitle *string   `json:"original_title,omitempty"`
	AirDate       *string   `json:"air_date,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	ExternalID    string    `json:"external_id,omitempty"`
	Seasons       []*Season `json:"seasons"`
}

// Season groups episodes by number. Season 0 holds specials.
type Season struct {
	ID       string     `json:"id"`
	Number   int        `json:"number"`
	Name     string     `json:"name"`
	AirDate  *string    `json:"air_date,omitempty"`
	Episodes []*Episode `json:"episodes"`
}

// Episode is one media file. Numbers may repeat within a season.
type Episode struct {
	ID     string     `json:"id"`
	Number int        `json:"number"`
	Name   string     `json:"name"`
	Path   string     `json:"path"`
	Media  *MediaInfo `json:"media,omitempty"`
}

// MediaInfo holds technical stream details for an episode file.
type MediaInfo struct {
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Entry is one leaf discovered by a source. Names holds the ancestry chain
// from the top-level show folder down to and including the leaf name.
type Entry struct {
	Names []string
	Path  string
}

// DefaultSeasonName is the display name given to a season before enrichment.
func DefaultSeasonName(number int) string {
	return fmt.Sprintf("Season %d", number)
}

// FindShow returns the show with exactly the given title.
func (c *Catalog) FindShow(title string) *Show {
	for _, show := range c.Shows {
		if show.Title == title {
			return show
		}
	}
	return nil
}

// FindSeason returns the season with the given number.
func (s *Show) FindSeason(number int) *Season {
	for _, season := range s.Seasons {
		if season.Number == number {
			return season
		}
	}
	return nil
}

// Counts returns the number of seasons and episodes across the catalog.
func (c *Catalog) Counts() (shows, seasons, episodes int) {
	for _, show := range c.Shows {
		seasons += len(show.Seasons)
		for _, season := range show.Seasons {
			episodes += len(season.Episodes)
		}
	}
	return len(c.Shows), seasons, episodes
}

// Episodes calls fn for every episode in catalog order.
func (c *Catalog) Episodes(fn func(show *Show, season *Season, episode *Episode)) {
	for _, show := range c.Shows {
		for _, season := range show.Seasons {
			for _, episode := range season.Episodes {
				fn(show, season, episode)
			}
		}
	}
}
