// Package user persists identities. The in-memory store is the unit-test
// seam and the dev-mode fallback; the GORM store is the system of record.
package user

import (
	"context"
	"sync"

	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in maps guarded by a RWMutex. Email
// uniqueness is enforced under the same lock so concurrent creates cannot
// both succeed, mirroring the database unique constraint.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[domain.IdentityID]*models.Identity
	byEmail map[string]domain.IdentityID
}

// New builds an empty in-memory identity store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[domain.IdentityID]*models.Identity),
		byEmail: make(map[string]domain.IdentityID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := email.Normalize(identity.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrDuplicate
	}

	copied := *identity
	s.byID[identity.ID] = &copied
	s.byEmail[key] = identity.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, addr string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email.Normalize(addr)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

// Update applies mutate to the identity atomically under the store lock and
// returns the updated snapshot. A non-nil error from mutate aborts the write.
func (s *InMemoryStore) Update(_ context.Context, id domain.IdentityID, mutate func(*models.Identity) error) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	staged := *identity
	if err := mutate(&staged); err != nil {
		return nil, err
	}
	*identity = staged
	copied := staged
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, email.Normalize(identity.Email))
	delete(s.byID, id)
	return nil
}

// EmailInUse implements the policy pre-flight lookup.
func (s *InMemoryStore) EmailInUse(_ context.Context, addr string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[email.Normalize(addr)]
	return ok, nil
}
