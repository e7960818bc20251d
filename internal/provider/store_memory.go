package provider

import (
	"context"
	"sync"

	"carehub/pkg/domain"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
)

// InMemoryStore mirrors the GORM store's all-or-nothing semantics for unit
// tests: either the whole graph lands or none of it does.
type InMemoryStore struct {
	mu         sync.RWMutex
	byIdentity map[domain.IdentityID]*Graph
	byEmail    map[string]domain.IdentityID

	failNext error
}

// NewInMemory builds an empty in-memory provider store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byIdentity: make(map[domain.IdentityID]*Graph),
		byEmail:    make(map[string]domain.IdentityID),
	}
}

// FailNextCreate arms a one-shot failure for the next CreateProfileGraph, so
// tests can exercise the persistence-failure compensation path.
func (s *InMemoryStore) FailNextCreate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryStore) CreateProfileGraph(_ context.Context, graph Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	graph.Profile.BusinessEmail = email.Normalize(graph.Profile.BusinessEmail)
	if _, exists := s.byEmail[graph.Profile.BusinessEmail]; exists {
		return sentinel.ErrDuplicate
	}
	if _, exists := s.byIdentity[graph.Profile.IdentityID]; exists {
		return sentinel.ErrDuplicate
	}

	stored := graph
	s.byIdentity[graph.Profile.IdentityID] = &stored
	s.byEmail[graph.Profile.BusinessEmail] = graph.Profile.IdentityID
	return nil
}

func (s *InMemoryStore) FindByIdentity(_ context.Context, identityID domain.IdentityID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, ok := s.byIdentity[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	profile := graph.Profile
	profile.Documents = append([]Document{}, graph.Documents...)
	profile.Services = append([]Service{}, graph.Services...)
	profile.Schedule = append([]ScheduleEntry{}, graph.Schedule...)
	return &profile, nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, profileID domain.ProfileID, status domain.ProfileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, graph := range s.byIdentity {
		if graph.Profile.ID == profileID {
			graph.Profile.Status = status
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) BusinessEmailInUse(_ context.Context, addr string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email.Normalize(addr)]
	return ok, nil
}

func (s *InMemoryStore) DeleteByIdentity(_ context.Context, identityID domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	graph, ok := s.byIdentity[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, graph.Profile.BusinessEmail)
	delete(s.byIdentity, identityID)
	return nil
}
