package interview

import (
	"sync"
	"time"

	"intervisage/internal/errors"

	"github.com/google/uuid"
)

// Manager owns the live session registry. Sessions idle past the TTL are
// evicted by a background sweeper; MaxSessions caps concurrent sessions
// (0 means unlimited).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	flows        FlowClient
	logger       *errors.Logger
	ttl          time.Duration
	maxSessions  int
	maxQuestions int

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// ManagerConfig bundles the registry knobs.
type ManagerConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	MaxQuestions    int
}

// NewManager creates a session registry and starts its eviction sweeper.
func NewManager(flows FlowClient, cfg ManagerConfig, logger *errors.Logger) *Manager {
	m := &Manager{
		sessions:     make(map[string]*Session),
		flows:        flows,
		logger:       logger,
		ttl:          cfg.TTL,
		maxSessions:  cfg.MaxSessions,
		maxQuestions: cfg.MaxQuestions,
		stopCleanup:  make(chan struct{}),
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go m.cleanupLoop(interval)

	return m
}

// Create registers a new session and returns it.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, errors.NewSessionError(errors.ErrCodeSessionLimit,
			"Maximum number of concurrent sessions reached", nil)
	}

	session := NewSession(uuid.NewString(), m.flows, m.maxQuestions, m.logger)
	m.sessions[session.ID()] = session

	if m.logger != nil {
		m.logger.Debug("Session created", "session_id", session.ID(), "active_sessions", len(m.sessions))
	}
	return session, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session not found: "+id, nil)
	}
	return session, nil
}

// Delete removes the session with the given id, if present.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats returns registry statistics for the stats endpoint.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byStage := make(map[Stage]int)
	for _, session := range m.sessions {
		byStage[session.Stage()]++
	}

	return map[string]any{
		"active_sessions":   len(m.sessions),
		"max_sessions":      m.maxSessions,
		"sessions_by_stage": byStage,
		"ttl":               m.ttl.String(),
	}
}

// Stop terminates the eviction sweeper. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
	})
}

// cleanupLoop periodically evicts sessions idle past the TTL.
func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stopCleanup:
			return
		}
	}
}

// evictExpired removes every session idle longer than the TTL.
func (m *Manager) evictExpired() {
	if m.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			if m.logger != nil {
				m.logger.Debug("Session evicted after idle TTL", "session_id", id)
			}
		}
	}
}
