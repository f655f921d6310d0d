// Package session tracks ingested documents for the lifetime of a
// conversation. A session owns the chunk texts and the vector index built
// from them; once it expires or is removed, the index is released and the
// document has to be ingested again.
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alan-mat/saidia/internal/registry"
	"github.com/alan-mat/saidia/internal/vector"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// DefaultTTL bounds how long an idle session stays queryable.
const DefaultTTL = 1 * time.Hour

// Session is a single ingested document ready to be asked questions.
// Chunks[i] is the text the vector at index position i was embedded from.
type Session struct {
	ID           string
	DocumentName string
	CreatedAt    time.Time
	Chunks       []string
	Index        vector.Index
}

// Manager keeps live sessions in memory and enforces their TTL lazily:
// an expired session is evicted on the first Get that finds it stale.
type Manager struct {
	sessions *registry.Registry[string, *Session]
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: registry.New[string, *Session](),
		ttl:      ttl,
	}
}

// Create registers a new session for the given document and returns it. The
// session ID is generated and unique.
func (m *Manager) Create(documentName string, chunks []string, index vector.Index) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		DocumentName: documentName,
		CreatedAt:    time.Now(),
		Chunks:       chunks,
		Index:        index,
	}
	m.sessions.Register(s.ID, s)
	slog.Info("session created", "id", s.ID, "document", s.DocumentName, "chunks", len(s.Chunks))
	return s
}

// Get returns the session with the given ID. Expired sessions are evicted
// and reported as ErrExpired.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if time.Since(s.CreatedAt) > m.ttl {
		m.remove(s)
		return nil, ErrExpired
	}
	return s, nil
}

// Delete removes a session and releases its index. Deleting an unknown ID
// is a no-op.
func (m *Manager) Delete(id string) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return
	}
	m.remove(s)
}

// Sweep evicts every expired session. Intended to be called periodically by
// the worker; Get handles expiry on its own, so sweeping only reclaims
// memory for sessions nobody asks about anymore.
func (m *Manager) Sweep() int {
	evicted := 0
	for _, id := range m.sessions.List() {
		s, ok := m.sessions.Get(id)
		if !ok {
			continue
		}
		if time.Since(s.CreatedAt) > m.ttl {
			m.remove(s)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("swept expired sessions", "count", evicted)
	}
	return evicted
}

func (m *Manager) remove(s *Session) {
	m.sessions.Delete(s.ID)
	if s.Index != nil {
		if err := s.Index.Close(); err != nil {
			slog.Warn("failed to close session index", "id", s.ID, "err", err)
		}
	}
	slog.Info("session removed", "id", s.ID, "document", s.DocumentName)
}
