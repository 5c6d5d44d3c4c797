package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sprintquest/internal/cache"
	"sprintquest/internal/game"
	"sprintquest/internal/model"
	"sprintquest/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// CatalogSource provides the static catalogs a new session draws from
type CatalogSource interface {
	LoadWorkItems(ctx context.Context) []*model.WorkItem
	LoadEvents(ctx context.Context) []*model.GameEvent
}

// SessionOptions configures a SessionService
type SessionOptions struct {
	MaxTurns      int
	HistorySize   int
	Authoritative bool
	Now           func() time.Time
}

type sessionEntry struct {
	coord      *game.Coordinator
	bridge     *ReplicationBridge
	stop       func()
	lastActive time.Time
}

// SessionService is the registry of live sessions on this node. Each session
// has its own coordinator; sessions share nothing.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	byCode   map[string]string

	catalog     CatalogSource
	codes       cache.CodeCache
	records     repository.SessionRepo
	playerRows  repository.PlayerRepo
	replicator  *Replicator
	authSvc     *AuthService
	broadcaster Broadcaster
	logger      *zap.Logger

	opts SessionOptions
}

// NewSessionService creates a new session service. codes, records and
// playerRows may be nil when running without Redis or MongoDB.
func NewSessionService(
	catalog CatalogSource,
	codes cache.CodeCache,
	records repository.SessionRepo,
	playerRows repository.PlayerRepo,
	replicator *Replicator,
	authSvc *AuthService,
	logger *zap.Logger,
	opts SessionOptions,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if replicator == nil {
		replicator = NewReplicator(ReplicationTargets{}, logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionService{
		sessions:   make(map[string]*sessionEntry),
		byCode:     make(map[string]string),
		catalog:    catalog,
		codes:      codes,
		records:    records,
		playerRows: playerRows,
		replicator: replicator,
		authSvc:    authSvc,
		logger:     logger.Named("sessions"),
		opts:       opts,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create starts a new session with the caller as facilitator
func (s *SessionService) Create(ctx context.Context, req *model.CreateSessionRequest) (*model.JoinResponse, error) {
	if !s.opts.Authoritative {
		return nil, game.ErrReadOnly
	}
	name := strings.TrimSpace(req.FacilitatorName)
	if name == "" {
		return nil, fmt.Errorf("%w: facilitator name is required", ErrInvalidRequest)
	}
	if !req.Role.Valid() {
		return nil, game.ErrInvalidRole
	}
	maxTurns := s.opts.MaxTurns
	if req.MaxTurns > 0 {
		maxTurns = req.MaxTurns
	}

	id := uuid.New().String()
	code, err := s.generateCode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate join code: %w", err)
	}
	rng, err := game.NewSeededRand()
	if err != nil {
		return nil, err
	}

	// The catalog fetch outlives a client that hangs up mid-request
	catalogCtx := context.WithoutCancel(ctx)

	coord := game.NewCoordinator(game.Options{
		SessionID:     id,
		Code:          code,
		MaxTurns:      maxTurns,
		HistorySize:   s.opts.HistorySize,
		WorkItems:     s.catalog.LoadWorkItems(catalogCtx),
		Events:        s.catalog.LoadEvents(catalogCtx),
		Rand:          rng,
		Now:           s.opts.Now,
		Logger:        s.logger,
		Authoritative: true,
	})
	player, err := coord.Join(name, req.Role, true)
	if err != nil {
		coord.Close()
		return nil, err
	}

	entry := &sessionEntry{coord: coord, lastActive: s.opts.Now()}
	entry.stop = coord.Subscribe(s.fanOut(id))
	entry.bridge = s.replicator.Attach(coord)

	s.mu.Lock()
	s.sessions[id] = entry
	s.byCode[code] = id
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("code", code),
		zap.Int("max_turns", maxTurns),
	)
	return s.joinResponse(id, code, player)
}

// Join adds a participant to the session using code
func (s *SessionService) Join(ctx context.Context, req *model.JoinSessionRequest) (*model.JoinResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: code and name are required", ErrInvalidRequest)
	}

	s.mu.RLock()
	id, ok := s.byCode[code]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	coord, err := s.coordinator(id)
	if err != nil {
		return nil, err
	}
	player, err := coord.Join(name, req.Role, false)
	if err != nil {
		return nil, err
	}
	return s.joinResponse(id, code, player)
}

func (s *SessionService) joinResponse(id, code string, p *model.Participant) (*model.JoinResponse, error) {
	token, err := s.authSvc.GenerateParticipantToken(id, p.Name, p.Facilitator)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.JoinResponse{SessionID: id, Code: code, Token: token, Player: p}, nil
}

// Get returns the current snapshot of a session. On a replica node an unknown
// session is opened from the durable store.
func (s *SessionService) Get(ctx context.Context, id string) (*model.SprintState, error) {
	coord, err := s.coordinator(id)
	if errors.Is(err, ErrSessionNotFound) && !s.opts.Authoritative {
		coord, err = s.OpenReplica(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return coord.State(), nil
}

// Roster returns the stored participant rows of a session, live or ended
func (s *SessionService) Roster(ctx context.Context, id string) ([]*model.PlayerRecord, error) {
	if coord, err := s.coordinator(id); err == nil {
		return model.RecordFrom(coord.State()).Players, nil
	}
	if s.playerRows == nil {
		return nil, ErrSessionNotFound
	}
	rows, err := s.playerRows.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrSessionNotFound
	}
	return rows, nil
}

// Scoreboard returns the ranked vote tally, metrics history and participants.
// When the live stores are configured they are the source, so any node can
// serve it without hosting the session.
func (s *SessionService) Scoreboard(ctx context.Context, id string, limit int) (*Scoreboard, error) {
	if limit <= 0 {
		limit = defaultScoreboardSize
	}
	board, err := s.replicator.Scoreboard(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoreboard: %w", err)
	}
	if board != nil {
		return board, nil
	}
	coord, err := s.coordinator(id)
	if err != nil {
		return nil, err
	}
	return ScoreboardFrom(coord.State(), limit), nil
}

// OpenReplica hydrates a read-only copy of a session from the durable store
// and follows its change feed.
func (s *SessionService) OpenReplica(ctx context.Context, id string) (*game.Coordinator, error) {
	state, err := s.replicator.Snapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil || state.Status.IsClosed() {
		return nil, ErrSessionNotFound
	}

	coord := game.NewReplica(state, s.logger)
	bridge, err := s.replicator.Follow(ctx, coord)
	if err != nil {
		coord.Close()
		return nil, fmt.Errorf("failed to follow session: %w", err)
	}
	entry := &sessionEntry{coord: coord, bridge: bridge, lastActive: s.opts.Now()}
	entry.stop = coord.Subscribe(s.followReplica(id))

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		entry.stop()
		bridge.Close()
		coord.Close()
		return existing.coord, nil
	}
	s.sessions[id] = entry
	s.byCode[state.Code] = id
	s.mu.Unlock()

	s.logger.Info("replica opened", zap.String("session_id", id), zap.String("phase", string(state.Phase)))
	return coord, nil
}

// OpenAllReplicas mirrors every session the durable store lists as open
func (s *SessionService) OpenAllReplicas(ctx context.Context) (int, error) {
	if s.records == nil {
		return 0, nil
	}
	recs, err := s.records.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions: %w", err)
	}
	opened := 0
	for _, rec := range recs {
		if _, err := s.OpenReplica(ctx, rec.ID); err != nil {
			s.logger.Warn("failed to open replica", zap.String("session_id", rec.ID), zap.Error(err))
			continue
		}
		opened++
	}
	return opened, nil
}

// Lookup resolves a join code to a session id, falling back to the code index
func (s *SessionService) Lookup(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.RLock()
	id, ok := s.byCode[code]
	s.mu.RUnlock()
	if ok {
		return id, nil
	}
	if s.codes != nil {
		id, err := s.codes.Lookup(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to look up code: %w", err)
		}
		if id != "" {
			return id, nil
		}
	}
	if s.records != nil {
		rec, err := s.records.GetByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to look up code: %w", err)
		}
		if rec != nil {
			return rec.ID, nil
		}
	}
	return "", ErrSessionNotFound
}

// AssignRole sets target's role
func (s *SessionService) AssignRole(id, actor, target string, role model.Role) error {
	return s.do(id, func(c *game.Coordinator) error { return c.AssignRole(actor, target, role) })
}

// StartVoting opens voting for the current turn
func (s *SessionService) StartVoting(id, actor string) error {
	return s.do(id, func(c *game.Coordinator) error { return c.StartVoting(actor) })
}

// SubmitVote records actor's vote
func (s *SessionService) SubmitVote(id, actor, itemID string) error {
	return s.do(id, func(c *game.Coordinator) error { return c.SubmitVote(actor, itemID) })
}

// ResolveVoting tallies the votes
func (s *SessionService) ResolveVoting(id, actor string) error {
	return s.do(id, func(c *game.Coordinator) error { return c.ResolveVoting(actor) })
}

// AcknowledgeEvent applies the current event
func (s *SessionService) AcknowledgeEvent(id, actor string) error {
	return s.do(id, func(c *game.Coordinator) error { return c.AcknowledgeEvent(actor) })
}

// CompleteTask finishes an unselected item
func (s *SessionService) CompleteTask(id, actor, itemID string) error {
	return s.do(id, func(c *game.Coordinator) error { return c.CompleteTask(actor, itemID) })
}

// UsePower runs actor's role power and reports whether it took effect
func (s *SessionService) UsePower(id, actor, power string) (bool, error) {
	used := false
	err := s.do(id, func(c *game.Coordinator) error {
		used = c.UsePower(actor, power)
		return nil
	})
	if err == nil && s.broadcaster != nil {
		s.broadcaster.BroadcastToPlayer(id, actor, MsgPowerResult, map[string]interface{}{
			"power": power,
			"used":  used,
		})
	}
	return used, err
}

// EndTurn closes the current turn
func (s *SessionService) EndTurn(id, actor string) error {
	err := s.do(id, func(c *game.Coordinator) error { return c.EndTurn(actor) })
	if err != nil {
		return err
	}
	if coord, err := s.coordinator(id); err == nil && coord.State().Phase == model.PhaseFinished {
		s.teardown(id)
	}
	return nil
}

// End finishes the session and drops it from the registry
func (s *SessionService) End(id, actor string) error {
	if err := s.do(id, func(c *game.Coordinator) error { return c.EndGame(actor) }); err != nil {
		return err
	}
	s.teardown(id)
	return nil
}

// Reap ends every session idle for longer than idle and returns how many were removed
func (s *SessionService) Reap(idle time.Duration) int {
	cutoff := s.opts.Now().Add(-idle)
	var stale []string
	s.mu.RLock()
	for id, e := range s.sessions {
		if e.lastActive.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range stale {
		coord, err := s.coordinator(id)
		if err != nil {
			continue
		}
		if coord.Authoritative() {
			if f := coord.State().Facilitator(); f != nil {
				if err := coord.EndGame(f.Name); err != nil && !errors.Is(err, game.ErrSessionClosed) {
					s.logger.Warn("failed to end idle session", zap.String("session_id", id), zap.Error(err))
				}
			}
		}
		s.teardown(id)
		s.logger.Info("idle session reaped", zap.String("session_id", id))
	}
	return len(stale)
}

// Shutdown flushes and closes every session bridge without ending the games
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.byCode = make(map[string]string)
	s.mu.Unlock()

	for _, e := range entries {
		e.stop()
		e.bridge.Close()
		e.coord.Close()
	}
}

// Count returns the number of registered sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) coordinator(id string) (*game.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastActive = s.opts.Now()
	return e.coord, nil
}

func (s *SessionService) do(id string, fn func(*game.Coordinator) error) error {
	coord, err := s.coordinator(id)
	if err != nil {
		return err
	}
	return fn(coord)
}

// teardown removes a session, flushing its final snapshot before the bridge stops
func (s *SessionService) teardown(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	var code string
	for c, sid := range s.byCode {
		if sid == id {
			code = c
			delete(s.byCode, c)
		}
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	e.stop()
	e.bridge.Close()
	e.coord.Close()
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSession(id, MsgSessionOver, e.coord.State())
		s.broadcaster.DisconnectSession(id)
	}
	if !e.coord.Authoritative() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.replicator.Forget(ctx, id)
	if s.codes != nil && code != "" {
		if err := s.codes.Release(ctx, code); err != nil {
			s.logger.Warn("failed to release join code", zap.String("code", code), zap.Error(err))
		}
	}
}

func (s *SessionService) fanOut(id string) func(*model.SprintState) {
	return func(st *model.SprintState) {
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToSession(id, MsgState, st)
		}
	}
}

// followReplica fans replicated snapshots out and closes the replica once the
// authoritative session has ended
func (s *SessionService) followReplica(id string) func(*model.SprintState) {
	fanOut := s.fanOut(id)
	var closing sync.Once
	return func(st *model.SprintState) {
		fanOut(st)
		if st.Status.IsClosed() {
			// teardown unsubscribes this callback and stops the feed delivering it
			closing.Do(func() { go s.teardown(id) })
		}
	}
}

// generateCode creates a 6-char join code unique on this node and, when
// configured, across the Redis code index
func (s *SessionService) generateCode(ctx context.Context, sessionID string) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		s.mu.RLock()
		_, taken := s.byCode[codeStr]
		s.mu.RUnlock()
		if taken {
			continue
		}
		if s.codes == nil {
			return codeStr, nil
		}
		ok, err := s.codes.Reserve(ctx, codeStr, sessionID)
		if err != nil {
			return "", err
		}
		if ok {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique join code")
}
