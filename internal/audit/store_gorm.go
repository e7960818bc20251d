package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormStore persists audit events in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GORM-backed audit store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, event Event) error {
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *GormStore) ListByIdentity(ctx context.Context, identityID string) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("timestamp asc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func (s *GormStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Order("timestamp desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	return events, nil
}
