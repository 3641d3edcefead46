package importer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle preview session is kept.
const DefaultSessionTTL = time.Hour

// Session is one CSV upload being reviewed before import.
type Session struct {
	mu sync.Mutex

	ID         string
	CategoryID int64
	Filename   string
	Rows       []*Row
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// guarded by Manager.mu
	lastUsed time.Time
}

func (s *Session) row(index int) (*Row, error) {
	if index < 0 || index >= len(s.Rows) {
		return nil, fmt.Errorf("row %d: %w", index, ErrRowNotFound)
	}
	return s.Rows[index], nil
}

// Preview is a snapshot of a session handed to callers.
type Preview struct {
	SessionID  string    `json:"sessionId"`
	CategoryID int64     `json:"categoryId"`
	Filename   string    `json:"filename,omitempty"`
	Rows       []Row     `json:"rows"`
	Summary    Summary   `json:"summary"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// snapshot must be called with s.mu held.
func (s *Session) snapshot() *Preview {
	rows := make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = *r
	}
	return &Preview{
		SessionID:  s.ID,
		CategoryID: s.CategoryID,
		Filename:   s.Filename,
		Rows:       rows,
		Summary:    summarize(s.Rows),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Manager keeps preview sessions in memory, keyed by an opaque id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session store whose sessions expire after ttl of inactivity.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Manager) add(categoryID int64, filename string, rows []*Row) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictLocked()

	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Filename:   filename,
		Rows:       rows,
		CreatedAt:  now,
		UpdatedAt:  now,
		lastUsed:   now,
	}
	m.sessions[s.ID] = s
	return s
}

// get returns a live session and refreshes its idle timer.
func (m *Manager) get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	now := m.now()
	if now.Sub(s.lastUsed) > m.ttl {
		delete(m.sessions, id)
		return nil, fmt.Errorf("%s expired: %w", id, ErrSessionNotFound)
	}
	s.lastUsed = now
	return s, nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	return len(m.sessions)
}

func (m *Manager) evictLocked() {
	now := m.now()
	for id, s := range m.sessions {
		if now.Sub(s.lastUsed) > m.ttl {
			slog.Debug("Expiring import session", "session", id)
			delete(m.sessions, id)
		}
	}
}
