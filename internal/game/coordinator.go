package game

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sprintquest/internal/model"
)

// Options configures a Coordinator
type Options struct {
	SessionID     string
	Code          string
	MaxTurns      int
	HistorySize   int
	WorkItems     []*model.WorkItem
	Events        []*model.GameEvent
	Rand          Rand
	Now           func() time.Time
	Logger        *zap.Logger
	Authoritative bool
}

// Coordinator owns one session. It is the only writer of that session's state;
// calls are serialised by an internal mutex so concurrent requests for the
// same session run one at a time.
type Coordinator struct {
	mu sync.Mutex

	id            string
	authoritative bool

	store  *StateStore
	tasks  *TaskManager
	events *EventManager
	powers *PowerManager
	phases *PhaseManager

	now    func() time.Time
	logger *zap.Logger
}

// NewCoordinator creates a coordinator for a fresh session in the lobby
func NewCoordinator(opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	initial := &model.SprintState{
		SessionID:   opts.SessionID,
		Code:        opts.Code,
		Status:      model.SessionWaiting,
		Phase:       model.PhaseStartTurn,
		Turn:        1,
		MaxTurns:    opts.MaxTurns,
		StartedAt:   opts.Now(),
		Votes:       make(map[string]string),
		Tally:       make(map[string]int),
		Business:    model.DefaultBusinessMetrics(),
		Operational: model.DefaultOperationalMetrics(),
	}
	initial.History = []model.HistoryEntry{{Turn: 0, Business: initial.Business, Operational: initial.Operational}}

	c := newCoordinator(opts, initial)
	c.logger.Info("session created",
		zap.Int("work_items", c.tasks.CatalogSize()),
		zap.Int("events", c.events.CatalogSize()),
	)
	return c
}

// NewReplica creates a read-only coordinator hydrated from a replicated snapshot
func NewReplica(snapshot *model.SprintState, logger *zap.Logger) *Coordinator {
	return newCoordinator(Options{
		SessionID: snapshot.SessionID,
		Code:      snapshot.Code,
		MaxTurns:  snapshot.MaxTurns,
		Logger:    logger,
	}, snapshot)
}

func newCoordinator(opts Options, initial *model.SprintState) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = NewRand(uint64(opts.Now().UnixNano()))
	}
	store := NewStateStore(initial, opts.Now)
	tasks := NewTaskManager(opts.WorkItems, opts.Rand)
	events := NewEventManager(opts.Events, opts.Rand)
	return &Coordinator{
		id:            initial.SessionID,
		authoritative: opts.Authoritative,
		store:         store,
		tasks:         tasks,
		events:        events,
		powers:        NewPowerManager(opts.Rand),
		phases:        NewPhaseManager(store, tasks, events, opts.HistorySize),
		now:           opts.Now,
		logger:        opts.Logger.With(zap.String("session_id", initial.SessionID)),
	}
}

// ID returns the session id
func (c *Coordinator) ID() string { return c.id }

// Authoritative reports whether this instance may mutate the session
func (c *Coordinator) Authoritative() bool { return c.authoritative }

// State returns a copy of the current snapshot
func (c *Coordinator) State() *model.SprintState {
	return c.store.State()
}

// Subscribe registers fn for every snapshot change
func (c *Coordinator) Subscribe(fn func(*model.SprintState)) func() {
	return c.store.Subscribe(fn)
}

// Close tears down every subscription
func (c *Coordinator) Close() {
	c.store.Close()
}

// run serialises fn and enforces the writer checks shared by every mutation
func (c *Coordinator) run(actor string, facilitatorOnly bool, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authoritative {
		return ErrReadOnly
	}
	s := c.store.State()
	if s.Status.IsClosed() {
		return ErrSessionClosed
	}
	p := s.Player(actor)
	if p == nil {
		return ErrUnknownPlayer
	}
	if facilitatorOnly && !p.Facilitator {
		return ErrNotFacilitator
	}
	return fn()
}

// Join adds a participant. The first participant of a session should be the
// facilitator; role may only be set while the turn has not started.
func (c *Coordinator) Join(name string, role model.Role, facilitator bool) (*model.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authoritative {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownPlayer)
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var joined *model.Participant
	err := c.store.Update(func(s *model.SprintState) error {
		if s.Status.IsClosed() {
			return ErrSessionClosed
		}
		if s.Player(name) != nil {
			return ErrDuplicateName
		}
		if role != model.RoleNone && s.Phase != model.PhaseStartTurn {
			return ErrIllegalPhase
		}
		if facilitator && s.Facilitator() != nil {
			facilitator = false
		}
		joined = &model.Participant{
			Name:        name,
			Role:        role,
			Facilitator: facilitator,
			JoinedAt:    c.now(),
		}
		s.Players = append(s.Players, joined)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("participant joined",
		zap.String("name", name),
		zap.String("role", string(role)),
		zap.Bool("facilitator", joined.Facilitator),
	)
	cp := *joined
	return &cp, nil
}

// AssignRole changes target's role. Participants may set their own role; the
// facilitator may set anyone's. Only allowed before voting starts.
func (c *Coordinator) AssignRole(actor, target string, role model.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	return c.run(actor, false, func() error {
		return c.store.Update(func(s *model.SprintState) error {
			if s.Phase != model.PhaseStartTurn {
				return ErrIllegalPhase
			}
			if actor != target && !s.Player(actor).Facilitator {
				return ErrNotFacilitator
			}
			p := s.Player(target)
			if p == nil {
				return ErrUnknownPlayer
			}
			p.Role = role
			return nil
		})
	})
}

// StartVoting draws the pool for the current turn
func (c *Coordinator) StartVoting(actor string) error {
	return c.run(actor, true, func() error {
		if err := c.phases.StartVoting(); err != nil {
			return err
		}
		s := c.store.State()
		c.logger.Info("voting started",
			zap.Int("turn", s.Turn),
			zap.Int("pool_size", len(s.CurrentTasks)),
		)
		return nil
	})
}

// SubmitVote records actor's vote for itemID; resubmitting replaces it
func (c *Coordinator) SubmitVote(actor, itemID string) error {
	return c.run(actor, false, func() error {
		return c.store.Update(func(s *model.SprintState) error {
			if s.Phase != model.PhaseVoting {
				return ErrIllegalPhase
			}
			return c.tasks.SubmitVote(s, actor, itemID)
		})
	})
}

// ResolveVoting tallies votes and moves on to the events phase
func (c *Coordinator) ResolveVoting(actor string) error {
	return c.run(actor, true, func() error {
		drawn, err := c.phases.ResolveVoting()
		if err != nil {
			return err
		}
		s := c.store.State()
		fields := []zap.Field{
			zap.Int("turn", s.Turn),
			zap.Int("completed", len(s.CompletedTasks)),
			zap.Int("unselected", len(s.UnselectedTasks)),
			zap.String("phase", string(s.Phase)),
		}
		if drawn != nil {
			fields = append(fields, zap.String("event_id", drawn.ID))
		}
		c.logger.Info("votes resolved", fields...)
		return nil
	})
}

// AcknowledgeEvent applies the current event and enters execution
func (c *Coordinator) AcknowledgeEvent(actor string) error {
	return c.run(actor, true, func() error {
		return c.phases.AcknowledgeEvent()
	})
}

// CompleteTask manually finishes an unselected item during execution
func (c *Coordinator) CompleteTask(actor, itemID string) error {
	return c.run(actor, true, func() error {
		return c.phases.CompleteTask(itemID)
	})
}

// UsePower runs actor's role power. It reports false, leaving the state
// unchanged, whenever the power cannot be used.
func (c *Coordinator) UsePower(actor, power string) bool {
	used := false
	err := c.run(actor, false, func() error {
		return c.store.Update(func(s *model.SprintState) error {
			if !c.powers.UsePower(s, actor, power) {
				return ErrIllegalPhase
			}
			used = true
			return nil
		})
	})
	if err != nil {
		c.logger.Debug("power rejected",
			zap.String("name", actor),
			zap.String("power", power),
			zap.Error(err),
		)
		return false
	}
	c.logger.Info("power used", zap.String("name", actor), zap.String("power", power))
	return used
}

// EndTurn closes the turn and starts the next one
func (c *Coordinator) EndTurn(actor string) error {
	return c.run(actor, true, func() error {
		if err := c.phases.EndTurn(); err != nil {
			return err
		}
		s := c.store.State()
		c.logger.Info("turn ended",
			zap.Int("turn", s.Turn),
			zap.String("phase", string(s.Phase)),
			zap.Int("tech_debt", s.Business.TechDebt),
		)
		return nil
	})
}

// EndGame finishes the session and drops every subscription
func (c *Coordinator) EndGame(actor string) error {
	err := c.run(actor, true, func() error {
		return c.phases.EndGame()
	})
	if err != nil {
		return err
	}
	c.logger.Info("game ended")
	c.Close()
	return nil
}

// ApplyRemote merges a replicated snapshot into a read-only replica
func (c *Coordinator) ApplyRemote(patch *model.StatePatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authoritative {
		return fmt.Errorf("session %s is authoritative, refusing remote state", c.id)
	}
	return c.store.Apply(patch)
}
