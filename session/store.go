// Package session provides short-lived, process-local conversational state
// for one orchestration run. Sessions hold the ordered turn history and a
// merged context map, expire after an inactivity window and are reclaimed
// lazily on access plus by a periodic sweep. No operation observes a
// logically-expired session as live.
package session

import (
	"maps"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/metrics"
)

// DefaultTTL is the default inactivity window before a session expires.
const DefaultTTL = time.Hour

// record is the internal mutable session state. Callers never hold a
// reference; all access goes through Store methods.
type record struct {
	id         string
	subjectID  string
	agentType  string
	createdAt  time.Time
	lastAccess time.Time
	turns      []core.Turn
	context    map[string]any
}

// Snapshot is an immutable copy of a session's state handed to callers.
type Snapshot struct {
	ID         string
	SubjectID  string
	AgentType  string
	CreatedAt  time.Time
	LastAccess time.Time
	History    []core.Turn
	Context    map[string]any
}

// Summary is a compact view used for introspection listings.
type Summary struct {
	ID         string
	SubjectID  string
	AgentType  string
	CreatedAt  time.Time
	LastAccess time.Time
	TurnCount  int
}

// Stats aggregates store-wide counters.
type Stats struct {
	ActiveSessions int
	TotalTurns     int
}

// StoreOptions configures a Store.
type StoreOptions struct {
	TTL           time.Duration
	SweepSchedule string // cron spec for the periodic sweep, default "@every 5m"
	Logger        logging.Logger
	Metrics       *metrics.Metrics
	Clock         func() time.Time // test hook
}

// Store owns all session records. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*record
	ttl      time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	schedule string
	cron     *cron.Cron
}

// NewStore constructs an empty session store.
func NewStore(optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{
		TTL:           DefaultTTL,
		SweepSchedule: "@every 5m",
		Clock:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*record),
		ttl:      opts.TTL,
		logger:   logging.OrNoOp(opts.Logger),
		metrics:  opts.Metrics,
		now:      opts.Clock,
		schedule: opts.SweepSchedule,
	}
}

// Create allocates a new session and returns its identifier.
func (s *Store) Create(subjectID, agentType string, initialContext map[string]any) string {
	now := s.now()
	rec := &record{
		id:         core.NewSessionID(agentType),
		subjectID:  subjectID,
		agentType:  agentType,
		createdAt:  now,
		lastAccess: now,
		context:    map[string]any{},
	}
	maps.Copy(rec.context, initialContext)

	s.mu.Lock()
	s.sessions[rec.id] = rec
	s.mu.Unlock()

	s.metrics.SessionCreated()
	s.logger.Info("session.created", "session_id", rec.id, "subject_id", subjectID, "agent_type", agentType)
	return rec.id
}

// Get returns an immutable snapshot or SessionNotFoundError.
func (s *Store) Get(id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}
	rec.lastAccess = s.now()
	return snapshot(rec), nil
}

// Append adds a turn to the session history. The history is append-only and
// preserves LLM conversation order.
func (s *Store) Append(id string, t core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	rec.turns = append(rec.turns, t)
	rec.lastAccess = s.now()
	return nil
}

// MergeContext performs a shallow merge into the session context; new keys
// overwrite old ones.
func (s *Store) MergeContext(id string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	maps.Copy(rec.context, delta)
	rec.lastAccess = s.now()
	return nil
}

// Context returns a copy of the merged context map.
func (s *Store) Context(id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}
	rec.lastAccess = s.now()
	out := make(map[string]any, len(rec.context))
	maps.Copy(out, rec.context)
	return out, nil
}

// Touch refreshes the last-activity time.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	rec.lastAccess = s.now()
	return nil
}

// Close deletes a session explicitly. Reports whether it existed.
func (s *Store) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.metrics.SessionClosed(false)
	s.logger.Debug("session.closed", "session_id", id)
	return true
}

// Sweep removes all expired sessions and returns how many were reclaimed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.sessions {
		if s.expired(rec) {
			delete(s.sessions, id)
			s.metrics.SessionClosed(true)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("session.sweep", "removed", removed)
	}
	return removed
}

// StartSweeper schedules the periodic sweep. Stop with StopSweeper.
func (s *Store) StartSweeper() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	return nil
}

// StopSweeper halts the periodic sweep, if running.
func (s *Store) StopSweeper() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Stats returns store-wide counters over live sessions.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{}
	for _, rec := range s.sessions {
		if s.expired(rec) {
			continue
		}
		st.ActiveSessions++
		st.TotalTurns += len(rec.turns)
	}
	return st
}

// ActiveSessions lists live sessions, optionally filtered by subject.
func (s *Store) ActiveSessions(subjectID string) []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Summary
	for _, rec := range s.sessions {
		if s.expired(rec) {
			continue
		}
		if subjectID != "" && rec.subjectID != subjectID {
			continue
		}
		out = append(out, Summary{
			ID:         rec.id,
			SubjectID:  rec.subjectID,
			AgentType:  rec.agentType,
			CreatedAt:  rec.createdAt,
			LastAccess: rec.lastAccess,
			TurnCount:  len(rec.turns),
		})
	}
	return out
}

// liveLocked resolves a session id, reclaiming it lazily when expired.
// Caller must hold the lock.
func (s *Store) liveLocked(id string) (*record, error) {
	rec, ok := s.sessions[id]
	if !ok {
		return nil, &core.SessionNotFoundError{ID: id}
	}
	if s.expired(rec) {
		delete(s.sessions, id)
		s.metrics.SessionClosed(true)
		s.logger.Debug("session.expired", "session_id", id)
		return nil, &core.SessionNotFoundError{ID: id}
	}
	return rec, nil
}

func (s *Store) expired(rec *record) bool {
	return s.now().After(rec.lastAccess.Add(s.ttl))
}

func snapshot(rec *record) *Snapshot {
	history := make([]core.Turn, len(rec.turns))
	copy(history, rec.turns)
	ctx := make(map[string]any, len(rec.context))
	maps.Copy(ctx, rec.context)
	return &Snapshot{
		ID:         rec.id,
		SubjectID:  rec.subjectID,
		AgentType:  rec.agentType,
		CreatedAt:  rec.createdAt,
		LastAccess: rec.lastAccess,
		History:    history,
		Context:    ctx,
	}
}
