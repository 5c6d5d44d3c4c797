package service

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"sprintquest/internal/cache"
	"sprintquest/internal/model"
)

type fakeCatalog struct {
	items  []*model.WorkItem
	events []*model.GameEvent
}

func (c *fakeCatalog) LoadWorkItems(context.Context) []*model.WorkItem {
	return model.CloneItems(c.items)
}

func (c *fakeCatalog) LoadEvents(context.Context) []*model.GameEvent {
	out := make([]*model.GameEvent, len(c.events))
	for i, e := range c.events {
		out[i] = e.Clone()
	}
	return out
}

type fakeCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeCodes() *fakeCodes { return &fakeCodes{codes: map[string]string{}} }

func (f *fakeCodes) Reserve(_ context.Context, code, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[code]; ok {
		return false, nil
	}
	f.codes[code] = sessionID
	return true, nil
}

func (f *fakeCodes) Lookup(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[code], nil
}

func (f *fakeCodes) Release(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, code)
	return nil
}

func (f *fakeCodes) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

// fakeRecords is an in-memory SessionRepo and PlayerRepo
type fakeRecords struct {
	mu      sync.Mutex
	recs    map[string]*model.SessionRecord
	players map[string][]*model.PlayerRecord
	saves   int
	err     error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: map[string]*model.SessionRecord{}, players: map[string][]*model.PlayerRecord{}}
}

func (f *fakeRecords) Save(_ context.Context, rec *model.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	cp := *rec
	cp.SprintState = rec.SprintState.Clone()
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeRecords) GetByID(_ context.Context, id string) (*model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.SprintState = rec.SprintState.Clone()
	return &cp, nil
}

func (f *fakeRecords) GetByCode(_ context.Context, code string) (*model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.recs {
		if rec.Code == code {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRecords) ListOpen(context.Context) ([]*model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SessionRecord
	for _, rec := range f.recs {
		if !rec.Status.IsClosed() {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecords) SaveAll(_ context.Context, sessionID string, players []*model.PlayerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[sessionID] = players
	return nil
}

func (f *fakeRecords) ListBySession(_ context.Context, sessionID string) ([]*model.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[sessionID], nil
}

func (f *fakeRecords) record(id string) *model.SessionRecord {
	rec, _ := f.GetByID(context.Background(), id)
	return rec
}

// fakeFeed delivers patches through a JSON round trip, like Redis Pub/Sub
type fakeFeed struct {
	mu        sync.Mutex
	subs      map[string]map[int]func(*model.StatePatch)
	next      int
	published int
}

func newFakeFeed() *fakeFeed { return &fakeFeed{subs: map[string]map[int]func(*model.StatePatch){}} }

func (f *fakeFeed) Publish(_ context.Context, sessionID string, patch *model.StatePatch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.published++
	var fns []func(*model.StatePatch)
	for _, fn := range f.subs[sessionID] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		var p model.StatePatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		fn(&p)
	}
	return nil
}

func (f *fakeFeed) Subscribe(_ context.Context, sessionID string, fn func(*model.StatePatch)) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[sessionID] == nil {
		f.subs[sessionID] = map[int]func(*model.StatePatch){}
	}
	id := f.next
	f.next++
	f.subs[sessionID][id] = fn
	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[sessionID], id)
		return nil
	}, nil
}

func (f *fakeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

// fakeLive is an in-memory stand-in for the four Redis live-state caches
type fakeLive struct {
	mu      sync.Mutex
	states  map[string]*model.SprintState
	players map[string]map[string]*model.Participant
	tallies map[string]map[string]int
	history map[string][]model.HistoryEntry
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		states:  map[string]*model.SprintState{},
		players: map[string]map[string]*model.Participant{},
		tallies: map[string]map[string]int{},
		history: map[string][]model.HistoryEntry{},
	}
}

func (f *fakeLive) SetState(_ context.Context, state *model.SprintState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.SessionID] = state.Clone()
	return nil
}

func (f *fakeLive) GetState(_ context.Context, sessionID string) (*model.SprintState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[sessionID].Clone(), nil
}

func (f *fakeLive) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, sessionID)
	delete(f.players, sessionID)
	delete(f.tallies, sessionID)
	delete(f.history, sessionID)
	return nil
}

func (f *fakeLive) SetPlayers(_ context.Context, sessionID string, players []*model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := make(map[string]*model.Participant, len(players))
	for _, p := range players {
		cp := *p
		m[p.Name] = &cp
	}
	f.players[sessionID] = m
	return nil
}

func (f *fakeLive) GetAllPlayers(_ context.Context, sessionID string) (map[string]*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*model.Participant)
	for name, p := range f.players[sessionID] {
		cp := *p
		out[name] = &cp
	}
	return out, nil
}

func (f *fakeLive) SetTally(_ context.Context, sessionID string, tally map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := make(map[string]int, len(tally))
	for k, v := range tally {
		m[k] = v
	}
	f.tallies[sessionID] = m
	return nil
}

func (f *fakeLive) GetTop(_ context.Context, sessionID string, limit int) ([]cache.TallyEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cache.TallyEntry
	for itemID, votes := range f.tallies[sessionID] {
		out = append(out, cache.TallyEntry{ItemID: itemID, Votes: votes})
	}
	sortTally(out)
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (f *fakeLive) SetHistory(_ context.Context, sessionID string, entries []model.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[sessionID] = append([]model.HistoryEntry(nil), entries...)
	return nil
}

func (f *fakeLive) GetHistory(_ context.Context, sessionID string) ([]model.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.HistoryEntry(nil), f.history[sessionID]...), nil
}

func (f *fakeLive) state(id string) *model.SprintState {
	s, _ := f.GetState(context.Background(), id)
	return s
}

type sent struct {
	sessionID string
	msgType   string
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	sent         []sent
	disconnected []string
}

func (b *fakeBroadcaster) BroadcastToSession(sessionID, msgType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{sessionID, msgType})
}

func (b *fakeBroadcaster) BroadcastToPlayer(sessionID, _ string, msgType string, _ interface{}) {
	b.BroadcastToSession(sessionID, msgType, nil)
}

func (b *fakeBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

func (b *fakeBroadcaster) wasDisconnected(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Contains(b.disconnected, sessionID)
}

func (b *fakeBroadcaster) types(sessionID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, s := range b.sent {
		if s.sessionID == sessionID {
			out = append(out, s.msgType)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
