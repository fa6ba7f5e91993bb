// Package session keys conversation context by chat session and expires
// idle sessions.
package session

import (
	"sync"
	"time"

	"github.com/saleslens/sales_insights/internal/assist"
)

const defaultTTL = 60 * time.Minute

type entry struct {
	conversation *assist.Conversation
	lastSeen     time.Time
	// turn serializes whole turns on one session: the conversation's ring
	// and mention maps are not safe for concurrent writers.
	turn sync.Mutex
}

// Manager owns the conversation contexts of active chat sessions. The
// registry lock guards the session map; each session carries its own turn
// lock so concurrent requests on one session run one at a time without
// blocking other sessions.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*entry
	now      func() time.Time
}

// NewManager creates a registry. A non-positive ttl uses the default of one
// hour of idleness before a session's context is dropped.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Acquire returns the session's conversation with its turn lock held,
// creating the session on first use and refreshing its idle timer. Expired
// sessions restart empty. The caller must invoke release once the turn's
// reads and appends are done; until then other requests on the same session
// block.
func (m *Manager) Acquire(sessionID string) (conversation *assist.Conversation, release func()) {
	m.mu.Lock()
	now := m.now()
	e, ok := m.sessions[sessionID]
	if !ok || now.Sub(e.lastSeen) > m.ttl {
		e = &entry{conversation: assist.NewConversation(0)}
		m.sessions[sessionID] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	// Taken outside the registry lock so one slow turn never stalls
	// unrelated sessions.
	e.turn.Lock()
	return e.conversation, e.turn.Unlock
}

// HasContext reports whether the session currently holds any live context.
func (m *Manager) HasContext(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok || m.now().Sub(e.lastSeen) > m.ttl {
		return false
	}
	return e.conversation.HasContext()
}

// Reset drops the session's context, used on a "new topic" action.
func (m *Manager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Sweep removes idle sessions and returns how many were dropped. Called
// periodically from the server's TTL worker.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}
