package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	"carehub/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix  = "session:"
	identityKeyPrefix = "identity_sessions:"
)

// RedisStore persists sessions in Redis with TTL-based expiry. A per-identity
// set tracks session IDs so DeleteByIdentity stays O(sessions-per-identity).
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, identityKey(session.IdentityID), session.ID.String())
	pipe.Expire(ctx, identityKey(session.IdentityID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, sentinel.ErrExpired
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id domain.SessionID) error {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, identityKey(session.IdentityID), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByIdentity removes every session for an identity.
func (s *RedisStore) DeleteByIdentity(ctx context.Context, identityID domain.IdentityID) error {
	ids, err := s.client.SMembers(ctx, identityKey(identityID)).Result()
	if err != nil {
		return fmt.Errorf("list identity sessions: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, raw := range ids {
		if id, err := domain.ParseSessionID(raw); err == nil {
			pipe.Del(ctx, sessionKey(id))
		}
	}
	pipe.Del(ctx, identityKey(identityID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete identity sessions: %w", err)
	}
	return nil
}

func sessionKey(id domain.SessionID) string {
	return sessionKeyPrefix + id.String()
}

func identityKey(id domain.IdentityID) string {
	return identityKeyPrefix + id.String()
}
