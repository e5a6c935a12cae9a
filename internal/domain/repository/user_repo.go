package repository

import (
	"context"

	"github.com/yourusername/auth-api/internal/domain/entity"
)

// UserRepository defines persistence operations for users.
// Implementations return apperrors.ErrNotFound for missing rows and
// apperrors.ErrConflict when an insert violates the email uniqueness
// constraint.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error
}
