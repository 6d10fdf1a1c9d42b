package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrUnknownSession reports a session id that was never issued, has expired,
// or was explicitly closed. Clients must restart the conversation; a closed
// id is never resurrected under the same token.
var ErrUnknownSession = errors.New("gateway: unknown or expired session")

type session struct {
	id         string
	createdAt  time.Time
	lastActive time.Time
}

// sessionManager owns every live session. All mutation goes through its
// mutex; the lock is never held across a remote call, only around map and
// timestamp updates.
type sessionManager struct {
	clock       clockwork.Clock
	idleTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionManager(clock clockwork.Clock, idleTimeout time.Duration, logger *slog.Logger) *sessionManager {
	return &sessionManager{
		clock:       clock,
		idleTimeout: idleTimeout,
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

// resolveOrCreate returns the canonical session id for a request. An empty
// candidate signals a new conversation and mints a fresh token; a known
// candidate refreshes its activity clock; anything else fails with
// ErrUnknownSession. Tokens come from crypto/rand-backed UUIDs so they
// cannot be guessed or predicted.
func (m *sessionManager) resolveOrCreate(candidate string) (id string, created bool, err error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if candidate == "" {
		id = uuid.NewString()
		m.sessions[id] = &session{id: id, createdAt: now, lastActive: now}
		return id, true, nil
	}
	s, ok := m.sessions[candidate]
	if !ok {
		return "", false, ErrUnknownSession
	}
	if now.Sub(s.lastActive) > m.idleTimeout {
		// Expired but not yet swept. Treat exactly like an unknown id.
		delete(m.sessions, candidate)
		return "", false, ErrUnknownSession
	}
	s.lastActive = now
	return s.id, false, nil
}

// close removes a session. Closing an unknown id is a no-op, which makes
// repeated DELETEs harmless.
func (m *sessionManager) close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// lastActive reports a session's activity timestamp, for tests.
func (m *sessionManager) lastActiveAt(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return time.Time{}, false
	}
	return s.lastActive, true
}

// sweep drops every session idle past the timeout and returns how many went.
func (m *sessionManager) sweep() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastActive) > m.idleTimeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// run sweeps on a fixed cadence until ctx is cancelled. Request traffic
// never triggers a sweep; expiry of an individual id is still enforced
// lazily by resolveOrCreate in the window between ticks.
func (m *sessionManager) run(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := m.sweep(); n > 0 {
				m.logger.Debug("swept idle sessions", "count", n)
			}
		}
	}
}
