package provider

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carehub/pkg/domain"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
)

// GormStore persists profile aggregates in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGorm constructs a GORM-backed provider store.
func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateProfileGraph inserts the profile and every dependent row in one
// transaction. Any failure, including a unique-constraint violation on the
// business email, aborts the whole insert.
func (s *GormStore) CreateProfileGraph(ctx context.Context, graph Graph) error {
	graph.Profile.BusinessEmail = email.Normalize(graph.Profile.BusinessEmail)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&graph.Profile).Error; err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		if len(graph.Documents) > 0 {
			if err := tx.Create(&graph.Documents).Error; err != nil {
				return fmt.Errorf("insert documents: %w", err)
			}
		}
		if len(graph.Services) > 0 {
			if err := tx.Create(&graph.Services).Error; err != nil {
				return fmt.Errorf("insert services: %w", err)
			}
		}
		if err := tx.Create(&graph.Schedule).Error; err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sentinel.ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByIdentity loads a profile with its dependent rows.
func (s *GormStore) FindByIdentity(ctx context.Context, identityID domain.IdentityID) (*Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Preload("Documents").
		Preload("Services").
		Preload("Schedule").
		First(&profile, "identity_id = ?", identityID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// SetStatus records the admin review decision on the profile.
func (s *GormStore) SetStatus(ctx context.Context, profileID domain.ProfileID, status domain.ProfileStatus) error {
	res := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("id = ?", profileID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("set profile status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// BusinessEmailInUse implements the policy pre-flight lookup.
func (s *GormStore) BusinessEmailInUse(ctx context.Context, addr string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Profile{}).
		Where("business_email = ?", email.Normalize(addr)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("business email lookup: %w", err)
	}
	return count > 0, nil
}

// DeleteByIdentity removes the profile graph for an identity. Dependent rows
// go with it through the cascade constraints.
func (s *GormStore) DeleteByIdentity(ctx context.Context, identityID domain.IdentityID) error {
	res := s.db.WithContext(ctx).Delete(&Profile{}, "identity_id = ?", identityID)
	if res.Error != nil {
		return fmt.Errorf("delete profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
