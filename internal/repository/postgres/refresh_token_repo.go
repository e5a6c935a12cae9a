package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/auth-api/internal/domain/entity"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

// RefreshTokenRepo implements repository.RefreshTokenRepository.
type RefreshTokenRepo struct {
	db *gorm.DB
}

func NewRefreshTokenRepo(db *gorm.DB) (*RefreshTokenRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: db}, nil
}

func (r *RefreshTokenRepo) Create(ctx context.Context, token *entity.RefreshToken) error {
	return translateInsertError(r.db.WithContext(ctx).Create(token).Error)
}

func (r *RefreshTokenRepo) GetByJTI(ctx context.Context, jti string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token by jti: %w", err)
	}
	return &token, nil
}

// Rotate marks the token as rotated out, but only while it is still active.
// The conditional update makes rotation first-wins under concurrent refresh
// attempts with the same token.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, jti, replacedBy string) error {
	res := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("jti = ? AND rotated_at IS NULL AND revoked_at IS NULL", jti).
		Updates(map[string]interface{}{
			"rotated_at":  time.Now(),
			"replaced_by": replacedBy,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, jti string) error {
	res := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("jti = ? AND rotated_at IS NULL AND revoked_at IS NULL", jti).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepo) RevokeFamily(ctx context.Context, family string) error {
	err := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("family = ? AND rotated_at IS NULL AND revoked_at IS NULL", family).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("user_id = ? AND rotated_at IS NULL AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) CleanupExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&entity.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
