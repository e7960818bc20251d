package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
)

// GormStore persists identities in Postgres through GORM. Pure I/O; lifecycle
// rules live in the service layer.
type GormStore struct {
	db *gorm.DB
}

// NewGorm constructs a GORM-backed identity store.
func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, identity *models.Identity) error {
	identity.Email = email.Normalize(identity.Email)
	if err := s.db.WithContext(ctx).Create(identity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *GormStore) FindByID(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.WithContext(ctx).First(&identity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &identity, nil
}

func (s *GormStore) FindByEmail(ctx context.Context, addr string) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.WithContext(ctx).First(&identity, "email = ?", email.Normalize(addr)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return &identity, nil
}

// Update loads the row inside a transaction, applies mutate, and writes the
// result back, so status transitions read and write atomically.
func (s *GormStore) Update(ctx context.Context, id domain.IdentityID, mutate func(*models.Identity) error) (*models.Identity, error) {
	var updated *models.Identity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity models.Identity
		if err := tx.First(&identity, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("load identity: %w", err)
		}
		if err := mutate(&identity); err != nil {
			return err
		}
		if err := tx.Save(&identity).Error; err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
		updated = &identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) Delete(ctx context.Context, id domain.IdentityID) error {
	res := s.db.WithContext(ctx).Delete(&models.Identity{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// EmailInUse implements the policy pre-flight lookup.
func (s *GormStore) EmailInUse(ctx context.Context, addr string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("email = ?", email.Normalize(addr)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("email lookup: %w", err)
	}
	return count > 0, nil
}
