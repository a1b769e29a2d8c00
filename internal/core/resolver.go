package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/mhmtszr/concurrent-swiss-map"
)

// DefaultCallTimeout bounds every catalog API call.
const DefaultCallTimeout = 10 * time.Second

// ErrNoAPI is recorded when a worker has no catalog client to use.
var ErrNoAPI = errors.New("no catalog api configured")

// ResolverConfig configures catalog enrichment.
type ResolverConfig struct {
	// API is the shared client used when NewAPI is nil or fails.
	API provider.CatalogAPI
	// NewAPI, when set, gives each worker its own client handle.
	NewAPI func() (provider.CatalogAPI, error)
	// Workers is the number of shows resolved concurrently. Defaults to 1.
	Workers int
	// CallTimeout is the deadline for each API call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Outcome reports what enrichment did for one show.
type Outcome struct {
	ShowID          string
	LocalTitle      string
	Query           string
	Attempts        int
	Matched         bool
	ExternalID      string
	SeasonsMatched  int
	EpisodesMatched int
	Errs            []error
}

// ResolveSummary captures resolver progress at a point in time.
type ResolveSummary struct {
	TotalShows     int
	ProcessedShows int
	MatchedShows   int
	ErrorCount     int
	ActiveWorkers  int
	WorkerLimit    int
	LastShow       string
	Done           bool
	Canceled       bool
}

// ResolveEvent is a progress update emitted by Start.
type ResolveEvent struct {
	Summary ResolveSummary
	Err     error
}

// Resolver enriches a catalog in place from an external catalog API using
// progressive title truncation. Lookup failures never abort a run.
type Resolver struct {
	api         provider.CatalogAPI
	newAPI      func() (provider.CatalogAPI, error)
	workerCount int
	timeout     time.Duration
	logger      *slog.Logger

	outcomes *csmap.CsMap[string, *Outcome]
	order    []string

	summaryMu sync.RWMutex
	summary   ResolveSummary
}

// NewResolver constructs a resolver with defaults applied.
func NewResolver(cfg ResolverConfig) *Resolver {
	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Resolver{
		api:         cfg.API,
		newAPI:      cfg.NewAPI,
		workerCount: workerCount,
		timeout:     timeout,
		logger:      log.NewComponentLogger(logger, "resolver"),
		outcomes:    csmap.Create[string, *Outcome](),
		summary:     ResolveSummary{WorkerLimit: workerCount},
	}
}

// Resolve enriches cat and returns it once every show has been attempted or
// ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, cat *catalog.Catalog) *catalog.Catalog {
	for range r.Start(ctx, cat) {
	}
	return cat
}

// Start begins enrichment and returns a stream of progress events. The
// channel closes when the run is over.
func (r *Resolver) Start(ctx context.Context, cat *catalog.Catalog) <-chan ResolveEvent {
	events := make(chan ResolveEvent, 128)
	go r.run(ctx, cat, events)
	return events
}

// Outcomes returns per-show results in catalog order. Shows never attempted
// because the run was cancelled are omitted.
func (r *Resolver) Outcomes() []Outcome {
	result := make([]Outcome, 0, len(r.order))
	for _, id := range r.order {
		if out, ok := r.outcomes.Load(id); ok {
			result = append(result, *out)
		}
	}
	return result
}

// SummarySnapshot returns the latest progress summary.
func (r *Resolver) SummarySnapshot() ResolveSummary {
	r.summaryMu.RLock()
	defer r.summaryMu.RUnlock()
	return r.summary
}

func (r *Resolver) run(ctx context.Context, cat *catalog.Catalog, events chan<- ResolveEvent) {
	defer close(events)

	if cat == nil || len(cat.Shows) == 0 {
		r.finish(ctx, events)
		return
	}

	r.order = make([]string, 0, len(cat.Shows))
	for _, show := range cat.Shows {
		r.order = append(r.order, show.ID)
	}

	workerCount := min(r.workerCount, len(cat.Shows))
	r.summaryMu.Lock()
	r.summary.TotalShows = len(cat.Shows)
	r.summary.ActiveWorkers = workerCount
	r.summaryMu.Unlock()
	r.emit(ctx, events, nil)

	workCh := make(chan *catalog.Show)
	resultCh := make(chan *Outcome)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go r.worker(ctx, &wg, workCh, resultCh)
	}

	go func() {
		defer close(workCh)
		for _, show := range cat.Shows {
			select {
			case workCh <- show:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		r.processResult(res)
		r.emit(ctx, events, nil)
	}

	if ctx.Err() != nil {
		r.summaryMu.Lock()
		r.summary.Canceled = true
		r.summaryMu.Unlock()
	}

	r.warnDuplicateTitles(cat)
	r.finish(ctx, events)
}

func (r *Resolver) finish(ctx context.Context, events chan<- ResolveEvent) {
	r.summaryMu.Lock()
	r.summary.ActiveWorkers = 0
	r.summary.Done = true
	r.summaryMu.Unlock()
	r.emit(ctx, events, ctx.Err())
}

func (r *Resolver) worker(ctx context.Context, wg *sync.WaitGroup, workCh <-chan *catalog.Show, resultCh chan<- *Outcome) {
	defer wg.Done()

	api := r.workerAPI()
	for show := range workCh {
		if ctx.Err() != nil {
			return
		}
		out := r.resolveShow(ctx, api, show)
		resultCh <- out
	}
}

// workerAPI returns the client handle a worker should use.
func (r *Resolver) workerAPI() provider.CatalogAPI {
	if r.newAPI == nil {
		return r.api
	}
	api, err := r.newAPI()
	if err != nil {
		r.logger.Warn("worker client unavailable, using shared client", "error", err)
		return r.api
	}
	return api
}

func (r *Resolver) processResult(out *Outcome) {
	r.outcomes.Store(out.ShowID, out)

	r.summaryMu.Lock()
	defer r.summaryMu.Unlock()
	r.summary.ProcessedShows++
	r.summary.ErrorCount += len(out.Errs)
	if out.Matched {
		r.summary.MatchedShows++
	}
	r.summary.LastShow = out.LocalTitle
}

func (r *Resolver) emit(ctx context.Context, events chan<- ResolveEvent, err error) {
	select {
	case events <- ResolveEvent{Summary: r.SummarySnapshot(), Err: err}:
	case <-ctx.Done():
	}
}

// resolveShow enriches one show. Only descriptive fields are mutated.
func (r *Resolver) resolveShow(ctx context.Context, api provider.CatalogAPI, show *catalog.Show) *Outcome {
	out := &Outcome{ShowID: show.ID, LocalTitle: show.Title}
	if api == nil {
		out.Errs = append(out.Errs, ErrNoAPI)
		return out
	}

	match, query := r.search(ctx, api, show.Title, out)
	if match == nil {
		r.logger.Info("no match", "show", show.Title, "attempts", out.Attempts)
		return out
	}
	out.Query = query

	details, err := callWithDeadline(ctx, r.timeout, func(ctx context.Context) (*provider.ShowDetails, error) {
		return api.GetShowDetails(ctx, match.ID)
	})
	log.LogLookup(log.OpShowDetails, match.ID, show.ID, err == nil && details != nil, err)
	if err != nil || details == nil {
		if err != nil {
			out.Errs = append(out.Errs, fmt.Errorf("show details %s: %w", match.ID, err))
		}
		r.logger.Warn("show details unavailable", "show", show.Title, "external_id", match.ID, "error", err)
		return out
	}

	out.Matched = true
	out.ExternalID = match.ID
	applyShow(show, *match, details.Show)
	r.resolveSeasons(ctx, api, show, match.ID, details.Seasons, out)

	r.logger.Debug("show resolved",
		"show", show.Title,
		"query", query,
		"attempts", out.Attempts,
		"seasons", out.SeasonsMatched,
		"episodes", out.EpisodesMatched)
	return out
}

// Search runs the progressive truncation search for title and returns the
// first match with the number of searches issued.
func (r *Resolver) Search(ctx context.Context, api provider.CatalogAPI, title string) (*provider.ShowSummary, int) {
	out := &Outcome{}
	match, _ := r.search(ctx, api, title, out)
	return match, out.Attempts
}

// search queries the full title, then drops the last whitespace token and
// retries until a search returns results or nothing is left.
func (r *Resolver) search(ctx context.Context, api provider.CatalogAPI, title string, out *Outcome) (*provider.ShowSummary, string) {
	tokens := strings.Fields(title)
	for n := len(tokens); n > 0; n-- {
		if ctx.Err() != nil {
			return nil, ""
		}

		query := strings.Join(tokens[:n], " ")
		out.Attempts++
		results, err := callWithDeadline(ctx, r.timeout, func(ctx context.Context) ([]provider.ShowSummary, error) {
			return api.SearchByTitle(ctx, query)
		})
		log.LogLookup(log.OpSearch, query, out.ShowID, err == nil && len(results) > 0, err)
		if err != nil {
			out.Errs = append(out.Errs, fmt.Errorf("search %q: %w", query, err))
			r.logger.Debug("search failed", "query", query, "error", err)
			continue
		}
		if len(results) > 0 {
			match := results[0]
			return &match, query
		}
	}
	return nil, ""
}

func (r *Resolver) resolveSeasons(ctx context.Context, api provider.CatalogAPI, show *catalog.Show, externalID string, external []provider.SeasonSummary, out *Outcome) {
	known := make(map[int]bool, len(external))
	for _, s := range external {
		number := 0
		if s.Number != nil {
			number = *s.Number
		}
		known[number] = true
	}

	for _, season := range show.Seasons {
		if ctx.Err() != nil {
			return
		}
		if !known[season.Number] {
			continue
		}

		details, err := callWithDeadline(ctx, r.timeout, func(ctx context.Context) (*provider.SeasonDetails, error) {
			return api.GetSeasonDetails(ctx, externalID, season.Number)
		})
		target := fmt.Sprintf("%s/%d", externalID, season.Number)
		log.LogLookup(log.OpSeasonDetails, target, season.ID, err == nil && details != nil, err)
		if err != nil {
			out.Errs = append(out.Errs, fmt.Errorf("season details %s: %w", target, err))
			r.logger.Debug("season details unavailable", "show", show.Title, "season", season.Number, "error", err)
			continue
		}
		if details == nil {
			continue
		}

		out.SeasonsMatched++
		out.EpisodesMatched += applySeason(season, details)
	}
}

// applyShow overwrites the show's descriptive fields. Values from the detail
// record win; the search summary fills any gaps.
func applyShow(show *catalog.Show, summary, details provider.ShowSummary) {
	if name := firstNonEmpty(details.Name, summary.Name); name != "" {
		show.Title = name
	}
	show.Description = optionalString(firstNonEmpty(details.Overview, summary.Overview))
	show.OriginalTitle = optionalString(firstNonEmpty(details.OriginalName, summary.OriginalName))
	show.AirDate = optionalString(firstNonEmpty(details.FirstAirDate, summary.FirstAirDate))
	show.Rating = details.Rating
	if show.Rating == nil {
		show.Rating = summary.Rating
	}
	show.ExternalID = firstNonEmpty(details.ID, summary.ID)
}

// applySeason overwrites season name and air date and the names of episodes
// whose numbers appear in details. It returns the number of episodes matched.
func applySeason(season *catalog.Season, details *provider.SeasonDetails) int {
	if details.Name != "" {
		season.Name = details.Name
	}
	season.AirDate = optionalString(details.AirDate)

	names := make(map[int]string, len(details.Episodes))
	for _, ep := range details.Episodes {
		if ep.Number == nil {
			continue
		}
		if _, seen := names[*ep.Number]; !seen {
			names[*ep.Number] = ep.Name
		}
	}

	matched := 0
	for _, episode := range season.Episodes {
		name, ok := names[episode.Number]
		if !ok {
			continue
		}
		matched++
		if name != "" {
			episode.Name = name
		}
	}
	return matched
}

// warnDuplicateTitles logs shows that resolved to the same canonical title.
// They are left separate.
func (r *Resolver) warnDuplicateTitles(cat *catalog.Catalog) {
	seen := make(map[string]string, len(cat.Shows))
	for _, show := range cat.Shows {
		if first, ok := seen[show.Title]; ok {
			r.logger.Warn("shows share a resolved title", "title", show.Title, "show_id", show.ID, "first_show_id", first)
			continue
		}
		seen[show.Title] = show.ID
	}
}

// callWithDeadline runs fn under a per-call timeout. A client that ignores
// its context is abandoned when the deadline passes; its result is dropped.
func callWithDeadline[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
