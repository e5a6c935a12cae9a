package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/auth-api/internal/domain/entity"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

// UserIdentityRepo implements repository.UserIdentityRepository.
type UserIdentityRepo struct {
	db *gorm.DB
}

func NewUserIdentityRepo(db *gorm.DB) *UserIdentityRepo {
	return &UserIdentityRepo{db: db}
}

// Create inserts a new identity link. A duplicate (provider, provider_sub)
// yields apperrors.ErrConflict.
func (r *UserIdentityRepo) Create(ctx context.Context, identity *entity.UserIdentity) error {
	return translateInsertError(r.db.WithContext(ctx).Create(identity).Error)
}

func (r *UserIdentityRepo) GetByProviderSub(ctx context.Context, provider, providerSub string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_sub = ?", provider, providerSub).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by provider_sub: %w", err)
	}
	return &identity, nil
}

func (r *UserIdentityRepo) GetByUserAndProvider(ctx context.Context, userID uint, provider string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by user/provider: %w", err)
	}
	return &identity, nil
}

func (r *UserIdentityRepo) ListByUser(ctx context.Context, userID uint) ([]entity.UserIdentity, error) {
	var identities []entity.UserIdentity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider").
		Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identities for user: %w", err)
	}
	return identities, nil
}
