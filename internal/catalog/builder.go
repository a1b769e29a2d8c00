package catalog

import (
	"log/slog"
	"unicode/utf8"

	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/media"
)

// defaultSeason is used when no season number can be inferred.
const defaultSeason = 1

// BuildStats counts what happened to the entries folded by a Builder.
type BuildStats struct {
	Added   int
	Skipped int
}

// Builder folds leaf entries into a Catalog in a single pass.
type Builder struct {
	catalog *Catalog
	ids     IDGenerator
	logger  *slog.Logger
	stats   BuildStats
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator sets the identifier source for new entities.
func WithIDGenerator(ids IDGenerator) BuilderOption {
	return func(b *Builder) {
		if ids != nil {
			b.ids = ids
		}
	}
}

// WithLogger sets the logger used to report skipped entries.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a builder with an empty catalog and a fresh counter.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		catalog: &Catalog{Shows: []*Show{}},
		ids:     NewCounter(),
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build folds every entry and returns the resulting catalog.
func (b *Builder) Build(entries []Entry) *Catalog {
	for _, entry := range entries {
		b.Add(entry)
	}
	return b.catalog
}

// Catalog returns the catalog built so far.
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// Stats returns how many entries were added and skipped.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Add folds one leaf entry into the catalog. Entries without a usable show
// title are skipped; missing season and episode numbers fall back to 1 and 0.
func (b *Builder) Add(entry Entry) bool {
	if !validEntry(entry) {
		b.skip(entry, "undecodable name")
		return false
	}

	names := entry.Names
	leaf := names[len(names)-1]

	title, err := media.Title(names[0])
	if err != nil {
		b.skip(entry, "no show title")
		return false
	}

	show := b.catalog.FindShow(title)
	if show == nil {
		show = &Show{ID: b.ids.NextID(), Title: title, Seasons: []*Season{}}
		b.catalog.Shows = append(b.catalog.Shows, show)
	}

	seasonName := leaf
	if len(names) >= 3 {
		seasonName = names[1]
	}
	number, ok := media.ParseSeason(seasonName)
	if !ok {
		number = defaultSeason
	}

	season := show.FindSeason(number)
	if season == nil {
		season = &Season{
			ID:       b.ids.NextID(),
			Number:   number,
			Name:     DefaultSeasonName(number),
			Episodes: []*Episode{},
		}
		show.Seasons = append(show.Seasons, season)
	}

	episodeNumber, _ := media.ParseEpisode(leaf)
	season.Episodes = append(season.Episodes, &Episode{
		ID:     b.ids.NextID(),
		Number: episodeNumber,
		Name:   media.EpisodeTitle(leaf),
		Path:   entry.Path,
	})

	b.stats.Added++
	return true
}

func (b *Builder) skip(entry Entry, reason string) {
	b.stats.Skipped++
	b.logger.Debug("skipping entry", slog.String("path", entry.Path), slog.String("reason", reason))
}

func validEntry(entry Entry) bool {
	if len(entry.Names) == 0 {
		return false
	}
	for _, name := range entry.Names {
		if name == "" || !utf8.ValidString(name) {
			return false
		}
	}
	return true
}
