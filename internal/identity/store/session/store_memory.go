// Package session persists issued sessions. Redis is the production backend;
// the in-memory store backs tests and dev mode.
package session

import (
	"context"
	"sync"
	"time"

	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	"carehub/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a map with lazy expiry.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]models.Session
}

// New builds an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[domain.SessionID]models.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if session.Expired(time.Now()) {
		return nil, sentinel.ErrExpired
	}
	copied := session
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// DeleteByIdentity removes every session for an identity. Used when an
// identity is deleted or suspended so stale sessions cannot outlive it.
func (s *InMemoryStore) DeleteByIdentity(_ context.Context, identityID domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.IdentityID == identityID {
			delete(s.sessions, id)
		}
	}
	return nil
}
