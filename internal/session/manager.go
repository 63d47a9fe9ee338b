package session

import (
	"context"
	"sync"
	"time"

	"document-qa/internal/helper"

	"github.com/rs/zerolog/log"
)

// Manager keeps sessions in memory, keyed by a random UUID.
type Manager struct {
	pipeline *Pipeline
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerOption func(*Manager)

// WithIdleTTL lets Sweep evict sessions that have not been looked up for ttl. Zero keeps
// sessions until they are deleted.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

func NewManager(pipeline *Pipeline, opts ...ManagerOption) *Manager {
	m := &Manager{pipeline: pipeline, now: time.Now, sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := New(id, m.pipeline)
	s.touch(m.now())

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Debug().Str("session", id).Msg("Session created")
	return s, nil
}

// Get returns the session for id and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new one when id is unknown. The boolean
// reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false, nil
		}
	}
	s, err := m.Create()
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Reset()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the TTL and frees its index. It returns
// the number of sessions evicted.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Reset()
		log.Debug().Str("session", s.ID).Msg("Idle session evicted")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done. It returns at once when no TTL is set.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Info().Int("evicted", n).Int("sessions", m.Len()).Msg("Swept idle sessions")
			}
		}
	}
}
