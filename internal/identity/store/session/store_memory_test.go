package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	"carehub/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
}

func makeSession(identityID domain.IdentityID, ttl time.Duration) models.Session {
	now := time.Now()
	return models.Session{
		ID:         domain.NewSessionID(),
		IdentityID: identityID,
		Role:       domain.RoleProvider,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	session := makeSession(domain.NewIdentityID(), time.Hour)
	s.Require().NoError(s.store.Save(context.Background(), session))

	found, err := s.store.FindByID(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(session.IdentityID, found.IdentityID)
}

func (s *InMemoryStoreSuite) TestExpiredSessionIsNotReturned() {
	session := makeSession(domain.NewIdentityID(), -time.Minute)
	s.Require().NoError(s.store.Save(context.Background(), session))

	_, err := s.store.FindByID(context.Background(), session.ID)
	s.Require().ErrorIs(err, sentinel.ErrExpired)
}

func (s *InMemoryStoreSuite) TestDeleteByIdentity() {
	identityID := domain.NewIdentityID()
	first := makeSession(identityID, time.Hour)
	second := makeSession(identityID, time.Hour)
	other := makeSession(domain.NewIdentityID(), time.Hour)

	for _, session := range []models.Session{first, second, other} {
		s.Require().NoError(s.store.Save(context.Background(), session))
	}

	s.Require().NoError(s.store.DeleteByIdentity(context.Background(), identityID))

	_, err := s.store.FindByID(context.Background(), first.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(context.Background(), second.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Unrelated sessions survive.
	_, err = s.store.FindByID(context.Background(), other.ID)
	s.Require().NoError(err)
}

func (s *InMemoryStoreSuite) TestDeleteMissing() {
	s.Require().ErrorIs(s.store.Delete(context.Background(), domain.NewSessionID()), sentinel.ErrNotFound)
}
