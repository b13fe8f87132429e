package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

type entry struct {
	state    *State
	lastSeen time.Time
}

// Store maps session IDs to their State.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time

	roles ingest.RoleConfig

	cron   *cron.Cron
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger sets the logger used by the sweeper.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithRoleConfig sets the column role candidates of new sessions. It should
// match the Ingester's configuration.
func WithRoleConfig(cfg ingest.RoleConfig) StoreOption {
	return func(s *Store) { s.roles = cfg }
}

// NewStore creates a Store that forgets sessions idle for longer than ttl.
func NewStore(ttl time.Duration, opts ...StoreOption) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the State for id and marks the session as active.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.state, true
}

// GetOrCreate returns the State for id. When id is empty or unknown a new
// session is created under a fresh ID, which is returned.
func (s *Store) GetOrCreate(id string) (string, *State) {
	if id != "" {
		if st, ok := s.Get(id); ok {
			return id, st
		}
	}

	id = uuid.NewString()
	st := NewState(s.roles)

	s.mu.Lock()
	s.sessions[id] = &entry{state: st, lastSeen: s.now()}
	s.mu.Unlock()

	return id, st
}

// Delete forgets a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until StopSweeper is called.
func (s *Store) StartSweeper(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	c := cron.New()
	if _, err := c.AddFunc("@every "+interval.String(), func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Info("expired idle sessions", "removed", n, "remaining", s.Len())
		}
	}); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.Info("session sweeper started", "interval", interval, "ttl", s.ttl)
	return nil
}

// StopSweeper stops the sweeper and waits for a running sweep to finish.
func (s *Store) StopSweeper() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("session sweeper stopped")
}
