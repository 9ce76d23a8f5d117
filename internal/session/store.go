package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// Store persists sessions. FindByID returns sentinel.ErrNotFound for
// unknown ids.
type Store interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	// FindByAccessToken returns sessions carrying token, in any status.
	FindByAccessToken(ctx context.Context, token string) ([]*Session, error)
	// DeleteLoggedInBefore removes sessions whose LoginAt is before cutoff.
	DeleteLoggedInBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore keeps sessions in process. Values are copied in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[id.SessionID]Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return &s, nil
}

func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s: %w", s.ID, sentinel.ErrNotFound)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) FindByAccessToken(_ context.Context, token string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.AccessToken == token {
			cp := s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteLoggedInBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sid, s := range m.sessions {
		if s.LoginAt.Before(cutoff) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
