package repository

import (
	"context"

	"github.com/yourusername/auth-api/internal/domain/entity"
)

// UserIdentityRepository defines persistence operations for identity links.
// Create returns apperrors.ErrConflict when the (provider, provider_sub)
// uniqueness constraint is violated; lookups return apperrors.ErrNotFound
// for missing rows.
type UserIdentityRepository interface {
	Create(ctx context.Context, identity *entity.UserIdentity) error
	GetByProviderSub(ctx context.Context, provider, providerSub string) (*entity.UserIdentity, error)
	GetByUserAndProvider(ctx context.Context, userID uint, provider string) (*entity.UserIdentity, error)
	ListByUser(ctx context.Context, userID uint) ([]entity.UserIdentity, error)
}
