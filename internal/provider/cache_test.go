package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestCachedSearch(t *testing.T) {
	api := &stubAPI{searchFunc: func(ctx context.Context, title string) ([]ShowSummary, error) {
		if title == "Breaking Bad" {
			return []ShowSummary{{ID: "1396", Name: "Breaking Bad"}}, nil
		}
		return nil, nil
	}}
	c := NewCached(api, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := c.SearchByTitle(ctx, "Breaking Bad")
		if err != nil {
			t.Fatalf("SearchByTitle() error = %v", err)
		}
		if diff := cmp.Diff([]ShowSummary{{ID: "1396", Name: "Breaking Bad"}}, got); diff != "" {
			t.Errorf("SearchByTitle() mismatch (-want +got):\n%s", diff)
		}
	}
	if api.searchCalls != 1 {
		t.Errorf("search calls = %d, want 1", api.searchCalls)
	}

	// Misses are cached too.
	for i := 0; i < 2; i++ {
		got, err := c.SearchByTitle(ctx, "Nothing")
		if err != nil || len(got) != 0 {
			t.Fatalf("SearchByTitle(miss) = %v, %v", got, err)
		}
	}
	if api.searchCalls != 2 {
		t.Errorf("search calls = %d, want 2", api.searchCalls)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	api := &stubAPI{showFunc: func(ctx context.Context, id string) (*ShowDetails, error) {
		return nil, &ProviderError{Code: CodeUnavailable, Message: "down"}
	}}
	c := NewCached(api, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := c.GetShowDetails(context.Background(), "1"); err == nil {
			t.Fatal("GetShowDetails() error = nil, want error")
		}
	}
	if api.showCalls != 2 {
		t.Errorf("show calls = %d, want 2", api.showCalls)
	}
}

func TestCachedSharedStore(t *testing.T) {
	api := &stubAPI{seasonFunc: func(ctx context.Context, showID string, number int) (*SeasonDetails, error) {
		return &SeasonDetails{Name: "Season 1", AirDate: "2008-01-20"}, nil
	}}
	first := NewCached(api, time.Hour)
	second := NewCachedWithStore(api, first.Store())

	if _, err := first.GetSeasonDetails(context.Background(), "1396", 1); err != nil {
		t.Fatal(err)
	}
	got, err := second.GetSeasonDetails(context.Background(), "1396", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Season 1" || api.seasonCalls != 1 {
		t.Errorf("got %+v after %d calls, want cached Season 1 after 1 call", got, api.seasonCalls)
	}
}

func TestCachedSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "stub.gob")
	api := &stubAPI{showFunc: func(ctx context.Context, id string) (*ShowDetails, error) {
		return &ShowDetails{
			Show:    ShowSummary{ID: id, Name: "Breaking Bad", Rating: FloatPtr(8.9)},
			Seasons: []SeasonSummary{{Number: IntPtr(1)}},
		}, nil
	}}

	c := NewCached(api, time.Hour)
	if err := c.Load(path); err != nil {
		t.Fatalf("Load() missing file error = %v", err)
	}
	want, err := c.GetShowDetails(context.Background(), "1396")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	offline := &stubAPI{showFunc: func(ctx context.Context, id string) (*ShowDetails, error) {
		return nil, errors.New("should be served from disk")
	}}
	restored := NewCached(offline, time.Hour)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := restored.GetShowDetails(context.Background(), "1396")
	if err != nil {
		t.Fatalf("GetShowDetails() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("restored details mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveWithoutFileIsNoop(t *testing.T) {
	if err := NewCached(&stubAPI{}, time.Hour).Save(); err != nil {
		t.Errorf("Save() error = %v, want nil", err)
	}
}

func TestGenerateCacheKey(t *testing.T) {
	if got := GenerateCacheKey("season", "1396", "2"); got != "season:1396:2" {
		t.Errorf("GenerateCacheKey() = %q", got)
	}
}
