package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sprintquest/internal/model"
)

const maxLineSize = 1 << 20

// Loader fetches the work-item and event catalogs. A catalog is kept once it
// has been read successfully; a failed fetch yields an empty catalog for that
// caller and is retried by the next one.
type Loader struct {
	workItemsSrc string
	eventsSrc    string
	client       *http.Client
	logger       *zap.Logger

	mu           sync.Mutex
	items        []*model.WorkItem
	itemsLoaded  bool
	events       []*model.GameEvent
	eventsLoaded bool
}

// NewLoader creates a loader. Sources may be file:// URLs, plain paths, or
// http(s) URLs.
func NewLoader(workItemsSrc, eventsSrc string, timeout time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		workItemsSrc: workItemsSrc,
		eventsSrc:    eventsSrc,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.Named("catalog"),
	}
}

// LoadWorkItems returns a copy of the work-item catalog, fetching it until a
// read succeeds
func (l *Loader) LoadWorkItems(ctx context.Context) []*model.WorkItem {
	return model.CloneItems(cached(ctx, l, &l.items, &l.itemsLoaded, "work_items", l.workItemsSrc, validateWorkItem))
}

// LoadEvents returns a copy of the event catalog, fetching it until a read
// succeeds
func (l *Loader) LoadEvents(ctx context.Context) []*model.GameEvent {
	events := cached(ctx, l, &l.events, &l.eventsLoaded, "events", l.eventsSrc, validateEvent)
	out := make([]*model.GameEvent, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

func cached[T any](ctx context.Context, l *Loader, dst *[]*T, loaded *bool, name, src string, validate func(*T) error) []*T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if *loaded {
		return *dst
	}
	records, ok := load(ctx, l, name, src, validate)
	if ok {
		*dst = records
		*loaded = true
	}
	return records
}

// load reads one catalog. ok is false when the source could not be read and
// a later call should try again.
func load[T any](ctx context.Context, l *Loader, name, src string, validate func(*T) error) (records []*T, ok bool) {
	if src == "" {
		l.logger.Warn("catalog source not configured", zap.String("catalog", name))
		return nil, true
	}
	rc, err := l.open(ctx, src)
	if err != nil {
		l.logger.Error("failed to fetch catalog", zap.String("catalog", name), zap.String("source", src), zap.Error(err))
		return nil, false
	}
	defer rc.Close()

	records, skipped, err := decodeLines(rc, validate)
	if err != nil {
		l.logger.Error("failed to read catalog", zap.String("catalog", name), zap.String("source", src), zap.Error(err))
		return nil, false
	}
	l.logger.Info("catalog loaded",
		zap.String("catalog", name),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, true
}

func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp.Body, nil
	default:
		f, err := os.Open(strings.TrimPrefix(src, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to open: %w", err)
		}
		return f, nil
	}
}

// ParseWorkItems decodes an NDJSON work-item stream, returning the valid
// records and the number of lines skipped.
func ParseWorkItems(r io.Reader) ([]*model.WorkItem, int, error) {
	return decodeLines(r, validateWorkItem)
}

// ParseEvents decodes an NDJSON event stream, returning the valid records and
// the number of lines skipped.
func ParseEvents(r io.Reader) ([]*model.GameEvent, int, error) {
	return decodeLines(r, validateEvent)
}

// decodeLines reads one JSON record per line. Blank lines are ignored;
// malformed or invalid lines are skipped and counted.
func decodeLines[T any](r io.Reader, validate func(*T) error) ([]*T, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out     []*T
		skipped int
	)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec := new(T)
		if err := json.Unmarshal(line, rec); err != nil {
			skipped++
			continue
		}
		if err := validate(rec); err != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, err
	}
	return out, skipped, nil
}

var (
	errMissingID   = errors.New("missing id")
	errBadCategory = errors.New("unknown category")
	errBadSeverity = errors.New("unknown severity")
	errDifficulty  = errors.New("negative difficulty")
)

func validateWorkItem(it *model.WorkItem) error {
	if it.ID == "" || it.ID == model.TechDebtItemID {
		return errMissingID
	}
	if !it.Category.Valid() {
		return errBadCategory
	}
	if it.Difficulty < 0 {
		return errDifficulty
	}
	it.Progress = 0
	it.ProgressRequired = 0
	return nil
}

func validateEvent(e *model.GameEvent) error {
	if e.ID == "" {
		return errMissingID
	}
	if e.Severity == "" {
		e.Severity = model.SeverityLow
	}
	if !e.Severity.Valid() {
		return errBadSeverity
	}
	return nil
}

// Encode writes records as NDJSON, one per line
func Encode[T any](w io.Writer, records []*T) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}
