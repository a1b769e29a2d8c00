package omdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/google/go-cmp/cmp"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func newTestProvider(t *testing.T, fn roundTripFunc) *Provider {
	t.Helper()
	prov, err := New(provider.BackendConfig{APIKey: "testing", HTTPClient: newTestClient(fn)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return prov
}

const seriesBody = `{
	"Title": "Game of Thrones",
	"Year": "2011–2019",
	"Plot": "Nine noble families fight for control over the lands of Westeros.",
	"imdbRating": "9.2",
	"imdbID": "tt0944947",
	"totalSeasons": "2",
	"Type": "series",
	"Response": "True"
}`

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(provider.BackendConfig{}); err == nil {
		t.Fatal("expected error when api_key is missing")
	}
}

func TestSearchByTitle(t *testing.T) {
	prov := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, seriesBody), nil
	})

	got, err := prov.SearchByTitle(context.Background(), "Game of Thrones")
	if err != nil {
		t.Fatalf("SearchByTitle() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("SearchByTitle() returned %d results, want 1", len(got))
	}
	if got[0].ID != "tt0944947" || got[0].Name != "Game of Thrones" || got[0].FirstAirDate != "2011" {
		t.Errorf("summary = %+v", got[0])
	}
	if got[0].Rating == nil {
		t.Error("expected rating to be parsed")
	}

	missing := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"Response": "False", "Error": "Series not found!"}`), nil
	})
	miss, err := missing.SearchByTitle(context.Background(), "Game of")
	if err != nil || len(miss) != 0 {
		t.Errorf("SearchByTitle(miss) = %v, %v; want empty miss", miss, err)
	}
}

func TestGetShowDetails(t *testing.T) {
	prov := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, seriesBody), nil
	})

	got, err := prov.GetShowDetails(context.Background(), "tt0944947")
	if err != nil {
		t.Fatalf("GetShowDetails() error = %v", err)
	}
	want := []provider.SeasonSummary{{Number: provider.IntPtr(1)}, {Number: provider.IntPtr(2)}}
	if diff := cmp.Diff(want, got.Seasons); diff != "" {
		t.Errorf("Seasons mismatch (-want +got):\n%s", diff)
	}
	if got.Show.Overview == "" {
		t.Error("expected plot as overview")
	}
}

func TestGetSeasonDetails(t *testing.T) {
	prov := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		switch q.Get("Episode") {
		case "":
			return jsonResponse(200, `{
				"Title": "Game of Thrones",
				"Season": "1",
				"totalSeasons": "8",
				"Episodes": [
					{"Title": "Winter Is Coming", "Released": "2011-04-17", "Episode": "1", "imdbRating": "8.9", "imdbID": "tt1480055"},
					{"Title": "The Kingsroad", "Released": "2011-04-24", "Episode": "2", "imdbRating": "8.6", "imdbID": "tt1668746"},
					{"Title": "Lord Snow", "Released": "2011-05-01", "Episode": "3", "imdbRating": "8.5", "imdbID": "tt1829962"}
				],
				"Response": "True"
			}`), nil
		case "1":
			return jsonResponse(200, `{"Title": "Winter Is Coming", "Released": "17 Apr 2011", "imdbRating": "8.9", "imdbID": "tt1480055", "seriesID": "tt0944947", "Type": "episode", "Response": "True"}`), nil
		case "3":
			return jsonResponse(200, `{"Title": "Lord Snow", "Released": "01 May 2011", "imdbID": "tt1829962", "seriesID": "tt0944947", "Type": "episode", "Response": "True"}`), nil
		}
		return jsonResponse(200, `{"Response": "False", "Error": "Episode not found"}`), nil
	})

	got, err := prov.GetSeasonDetails(context.Background(), "tt0944947", 1)
	if err != nil {
		t.Fatalf("GetSeasonDetails() error = %v", err)
	}
	want := &provider.SeasonDetails{
		Name:    "Season 1",
		AirDate: "17 Apr 2011",
		Episodes: []provider.EpisodeSummary{
			{Number: provider.IntPtr(1), Name: "Winter Is Coming"},
			{Number: provider.IntPtr(3), Name: "Lord Snow"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetSeasonDetails() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSeasonDetailsRejectsSpecials(t *testing.T) {
	prov := newTestProvider(t, func(*http.Request) (*http.Response, error) {
		t.Error("unexpected request")
		return nil, errors.New("unexpected")
	})
	if _, err := prov.GetSeasonDetails(context.Background(), "tt0944947", 0); err == nil {
		t.Error("GetSeasonDetails(0) should fail")
	}
}

func TestMapError(t *testing.T) {
	prov := newTestProvider(t, nil)
	tests := []struct {
		msg  string
		code string
	}{
		{"Invalid API key!", provider.CodeAuthFailed},
		{"Movie not found!", provider.CodeNotFound},
		{"Request limit reached!", provider.CodeRateLimited},
		{"boom", provider.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			var perr *provider.ProviderError
			if err := prov.mapError(errors.New(tt.msg)); !errors.As(err, &perr) || perr.Code != tt.code {
				t.Errorf("mapError(%q) = %v, want %s", tt.msg, err, tt.code)
			}
		})
	}
	if err := prov.mapError(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("mapError(canceled) = %v, want passthrough", err)
	}
}

func TestParseTotalSeasons(t *testing.T) {
	for in, want := range map[string]int{"8": 8, " 3 ": 3, "N/A": 0, "": 0, "-1": 0} {
		if got := parseTotalSeasons(in); got != want {
			t.Errorf("parseTotalSeasons(%q) = %d, want %d", in, got, want)
		}
	}
}
