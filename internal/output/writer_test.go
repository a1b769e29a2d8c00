package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
)

func sampleCatalog() *catalog.Catalog {
	desc := "A chemist turns to crime"
	return &catalog.Catalog{Shows: []*catalog.Show{{
		ID:          "1",
		Title:       "Breaking Bad",
		Description: &desc,
		ExternalID:  "1396",
		Seasons: []*catalog.Season{{
			ID:     "2",
			Number: 1,
			Name:   "Season 1",
			Episodes: []*catalog.Episode{
				{ID: "3", Number: 1, Name: "Pilot", Path: "Breaking Bad/Season 1/S01E01.mkv"},
			},
		}},
	}}}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(sampleCatalog())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	media, ok := doc["media"].([]any)
	if !ok || len(media) != 1 {
		t.Fatalf("media = %#v, want one show", doc["media"])
	}
	show := media[0].(map[string]any)
	if show["title"] != "Breaking Bad" || show["description"] != "A chemist turns to crime" {
		t.Errorf("show = %#v", show)
	}
	if _, ok := show["rating"]; ok {
		t.Error("nil rating should be omitted")
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("document should end with a newline")
	}
}

func TestEncodeEmptyCatalog(t *testing.T) {
	for name, cat := range map[string]*catalog.Catalog{"nil": nil, "nil_shows": {}, "empty": {Shows: []*catalog.Show{}}} {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(cat)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if diff := cmp.Diff("{\n  \"media\": []\n}\n", string(data)); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteStdout(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter("", &buf, nil).Write(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want, _ := Encode(sampleCatalog())
	if diff := cmp.Diff(string(want), buf.String()); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalog.json")
	w := NewWriter(path, nil, nil)

	if err := w.Write(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	if err := w.Write(context.Background(), &catalog.Catalog{}); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if diff := cmp.Diff("{\n  \"media\": []\n}\n", string(got)); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteCreatesMissingDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nightly", "catalog.json")
	if err := NewWriter(path, nil, nil).Write(context.Background(), &catalog.Catalog{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("catalog not written: %v", err)
	}
}

func TestWriteHonorsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	held := flock.New(path + ".lock")
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer held.Unlock()

	w := NewWriter(path, nil, nil)
	w.LockTimeout = 50 * time.Millisecond
	err = w.Write(context.Background(), sampleCatalog())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Write() error = %v, want ErrLocked", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("output written while locked")
	}
}
