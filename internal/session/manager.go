package session

import (
	"sync"
	"time"
)

// Manager keeps one Session per user and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  func(email string) *Session
	ttl      time.Duration
}

// NewManager creates a manager. factory builds a fresh session for an email.
// A ttl of zero keeps sessions forever.
func NewManager(ttl time.Duration, factory func(email string) *Session) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
	}
}

// Get returns the session for email, creating it on first use.
func (m *Manager) Get(email string) *Session {
	key := NormalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := m.factory(key)
	m.sessions[key] = s
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict drops sessions idle for longer than the ttl. Busy sessions are kept.
func (m *Manager) Evict(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for key, s := range m.sessions {
		if s.Busy() || now.Sub(s.LastActive()) < m.ttl {
			continue
		}
		delete(m.sessions, key)
		evicted++
	}
	return evicted
}

// StartJanitor runs Evict every interval until stop is closed.
func (m *Manager) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				m.Evict(now)
			}
		}
	}()
}
