package catalog

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintquest/internal/model"
)

const itemsNDJSON = `{"id":"login-bug","title":"Fix login loop","category":"defect","difficulty":2}

{"id":"sso","title":"Single sign-on","category":"feature","difficulty":3,"impact":{"income":6},"consequences":["sso-outage"]}
{"id":"broken",
{"title":"no id","category":"defect","difficulty":1}
{"id":"odd","title":"Unknown category","category":"marketing","difficulty":1}
{"id":"tech-debt","title":"Reserved","category":"defect","difficulty":1}
{"id":"neg","title":"Negative","category":"quality","difficulty":-1}
{"id":"audit","title":"SOC2 audit","category":"compliance","difficulty":4,"progress":9}
`

const eventsNDJSON = `{"id":"ddos","name":"DDoS","severity":"critical"}
{"id":"typo","name":"Typo on homepage"}
{"id":"bad","name":"Bad severity","severity":"apocalyptic"}
not json
`

func TestParseWorkItemsSkipsBadLines(t *testing.T) {
	items, skipped, err := ParseWorkItems(strings.NewReader(itemsNDJSON))
	require.NoError(t, err)
	assert.Equal(t, 5, skipped)
	require.Len(t, items, 3)

	assert.Equal(t, "login-bug", items[0].ID)
	assert.Equal(t, model.CategoryFeature, items[1].Category)
	assert.Equal(t, 6, items[1].Impact.Income)
	assert.Equal(t, []string{"sso-outage"}, items[1].Consequences)
	assert.Zero(t, items[2].Progress, "catalog progress is ignored")
}

func TestParseEventsDefaultsSeverity(t *testing.T) {
	events, skipped, err := ParseEvents(strings.NewReader(eventsNDJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, events, 2)
	assert.Equal(t, model.SeverityCritical, events[0].Severity)
	assert.Equal(t, model.SeverityLow, events[1].Severity)
}

func TestLoaderReadsFilesOnce(t *testing.T) {
	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "items.ndjson")
	eventsPath := filepath.Join(dir, "events.ndjson")
	require.NoError(t, os.WriteFile(itemsPath, []byte(itemsNDJSON), 0o644))
	require.NoError(t, os.WriteFile(eventsPath, []byte(eventsNDJSON), 0o644))

	l := NewLoader("file://"+itemsPath, eventsPath, time.Second, nil)
	items := l.LoadWorkItems(context.Background())
	require.Len(t, items, 3)
	require.Len(t, l.LoadEvents(context.Background()), 2)

	items[0].Progress = 99
	require.NoError(t, os.Remove(itemsPath))
	again := l.LoadWorkItems(context.Background())
	require.Len(t, again, 3)
	assert.Zero(t, again[0].Progress)
}

func TestLoaderFetchesOverHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/items":
			w.Write([]byte(itemsNDJSON))
		case "/events":
			w.Write([]byte(eventsNDJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(srv.URL+"/items", srv.URL+"/events", time.Second, nil)
	assert.Len(t, l.LoadWorkItems(context.Background()), 3)
	assert.Len(t, l.LoadWorkItems(context.Background()), 3)
	assert.Len(t, l.LoadEvents(context.Background()), 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLoaderFailuresLeaveCatalogEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewLoader(srv.URL+"/items", filepath.Join(t.TempDir(), "missing.ndjson"), time.Second, nil)
	assert.Empty(t, l.LoadWorkItems(context.Background()))
	assert.Empty(t, l.LoadEvents(context.Background()))

	unset := NewLoader("", "", 0, nil)
	assert.Empty(t, unset.LoadWorkItems(context.Background()))
}

func TestLoaderRetriesAfterFailedFetch(t *testing.T) {
	itemsPath := filepath.Join(t.TempDir(), "items.ndjson")
	l := NewLoader(itemsPath, "", time.Second, nil)

	assert.Empty(t, l.LoadWorkItems(context.Background()))

	require.NoError(t, os.WriteFile(itemsPath, []byte(itemsNDJSON), 0o644))
	assert.Len(t, l.LoadWorkItems(context.Background()), 3)

	require.NoError(t, os.Remove(itemsPath))
	assert.Len(t, l.LoadWorkItems(context.Background()), 3, "a successful read is kept")
}

func TestLoaderRetriesHTTPAfterCancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(eventsNDJSON))
	}))
	defer srv.Close()

	l := NewLoader("", srv.URL+"/events", time.Second, nil)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, l.LoadEvents(cancelled))

	assert.Len(t, l.LoadEvents(context.Background()), 2)
	assert.Len(t, l.LoadEvents(context.Background()), 2)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEncodeWritesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []*model.GameEvent{
		{ID: "a", Name: "A", Severity: model.SeverityLow},
		{ID: "b", Name: "B", Severity: model.SeverityHigh},
	}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	events, skipped, err := ParseEvents(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, events, 2)
}
