package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sprintquest/internal/cache"
	"sprintquest/internal/game"
	"sprintquest/internal/model"
	"sprintquest/internal/repository"
)

// ReplicationTargets are the stores a snapshot is copied to. Nil targets are skipped.
type ReplicationTargets struct {
	Sessions   cache.SessionCache
	Players    cache.PlayerCache
	History    cache.HistoryCache
	Tally      cache.TallyCache
	Records    repository.SessionRepo
	PlayerRows repository.PlayerRepo
	Feed       cache.Feed
}

// Replicator copies session snapshots out of the authoritative node and feeds
// them into replicas.
type Replicator struct {
	targets ReplicationTargets
	timeout time.Duration
	logger  *zap.Logger
}

// NewReplicator creates a replicator over targets
func NewReplicator(targets ReplicationTargets, logger *zap.Logger) *Replicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicator{
		targets: targets,
		timeout: 5 * time.Second,
		logger:  logger.Named("replication"),
	}
}

// ReplicationBridge moves one session's snapshots in one direction
type ReplicationBridge struct {
	r         *Replicator
	sessionID string
	logger    *zap.Logger

	mu      sync.Mutex
	latest  *model.SprintState
	pending chan struct{}

	unsubscribe func()
	stopFeed    func() error
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
}

// Attach starts copying every snapshot of an authoritative coordinator.
// Snapshots are coalesced so a slow store only ever sees the newest one.
func (r *Replicator) Attach(c *game.Coordinator) *ReplicationBridge {
	b := r.newBridge(c.ID())
	b.unsubscribe = c.Subscribe(b.enqueue)
	b.enqueue(c.State())
	go b.run()
	return b
}

// Follow applies every snapshot published for the replica's session
func (r *Replicator) Follow(ctx context.Context, c *game.Coordinator) (*ReplicationBridge, error) {
	b := r.newBridge(c.ID())
	close(b.stopped)
	if r.targets.Feed == nil {
		return b, nil
	}
	stop, err := r.targets.Feed.Subscribe(ctx, c.ID(), func(p *model.StatePatch) {
		if err := c.ApplyRemote(p); err != nil {
			b.logger.Warn("failed to apply replicated state", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	b.stopFeed = stop
	return b, nil
}

func (r *Replicator) newBridge(sessionID string) *ReplicationBridge {
	return &ReplicationBridge{
		r:         r,
		sessionID: sessionID,
		logger:    r.logger.With(zap.String("session_id", sessionID)),
		pending:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (b *ReplicationBridge) enqueue(s *model.SprintState) {
	b.mu.Lock()
	b.latest = s
	b.mu.Unlock()
	select {
	case b.pending <- struct{}{}:
	default:
	}
}

func (b *ReplicationBridge) run() {
	defer close(b.stopped)
	for {
		select {
		case <-b.pending:
			b.flush()
		case <-b.done:
			b.flush()
			return
		}
	}
}

func (b *ReplicationBridge) flush() {
	b.mu.Lock()
	s := b.latest
	b.latest = nil
	b.mu.Unlock()
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.r.timeout)
	defer cancel()
	b.r.write(ctx, b.logger, s)
}

// Close stops the bridge. A pending snapshot is still written so the final
// state of an ended session reaches the stores.
func (b *ReplicationBridge) Close() {
	b.closeOnce.Do(func() {
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		if b.stopFeed != nil {
			if err := b.stopFeed(); err != nil {
				b.logger.Debug("failed to stop feed", zap.Error(err))
			}
		}
		close(b.done)
		<-b.stopped
	})
}

// Snapshot reads the newest stored state of a session, preferring the live
// cache over the durable record. It returns nil when neither has it.
func (r *Replicator) Snapshot(ctx context.Context, sessionID string) (*model.SprintState, error) {
	t := r.targets
	if t.Sessions != nil {
		state, err := t.Sessions.GetState(ctx, sessionID)
		if err != nil {
			r.logger.Warn("live state read failed, falling back to record",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else if state != nil {
			return state, nil
		}
	}
	if t.Records == nil {
		return nil, nil
	}
	rec, err := t.Records.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.SprintState, nil
}

// Scoreboard reads the ranked tally, history and players from the live
// stores. It returns nil when they are not configured or hold nothing.
func (r *Replicator) Scoreboard(ctx context.Context, sessionID string, limit int) (*Scoreboard, error) {
	t := r.targets
	if t.Tally == nil || t.History == nil || t.Players == nil {
		return nil, nil
	}
	players, err := t.Players.GetAllPlayers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}
	tally, err := t.Tally.GetTop(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	history, err := t.History.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	board := &Scoreboard{
		SessionID: sessionID,
		Tally:     tally,
		History:   history,
		Players:   make([]*model.Participant, 0, len(players)),
	}
	for _, p := range players {
		board.Players = append(board.Players, p)
	}
	sortPlayers(board.Players)
	return board, nil
}

// Forget drops the live keys of a finished session. The durable record stays.
func (r *Replicator) Forget(ctx context.Context, sessionID string) {
	if r.targets.Sessions == nil {
		return
	}
	if err := r.targets.Sessions.Delete(ctx, sessionID); err != nil {
		r.logger.Warn("failed to drop live state", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// write copies s to every target, logging failures without retrying
func (r *Replicator) write(ctx context.Context, logger *zap.Logger, s *model.SprintState) {
	t := r.targets
	fail := func(target string, err error) {
		if err != nil {
			logger.Error("replication write failed", zap.String("target", target), zap.Error(err))
		}
	}

	if t.Sessions != nil {
		fail("state", t.Sessions.SetState(ctx, s))
	}
	if t.Players != nil {
		fail("players", t.Players.SetPlayers(ctx, s.SessionID, s.Players))
	}
	if t.History != nil {
		fail("history", t.History.SetHistory(ctx, s.SessionID, s.History))
	}
	if t.Tally != nil {
		fail("tally", t.Tally.SetTally(ctx, s.SessionID, s.Tally))
	}

	rec := model.RecordFrom(s)
	if t.Records != nil {
		fail("record", t.Records.Save(ctx, rec))
	}
	if t.PlayerRows != nil {
		fail("player_rows", t.PlayerRows.SaveAll(ctx, s.SessionID, rec.Players))
	}
	if t.Feed != nil {
		fail("feed", t.Feed.Publish(ctx, s.SessionID, model.PatchFrom(s)))
	}
	logger.Debug("snapshot replicated", zap.String("phase", string(s.Phase)), zap.Int("turn", s.Turn))
}
