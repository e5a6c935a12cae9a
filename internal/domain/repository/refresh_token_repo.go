package repository

import (
	"context"

	"github.com/yourusername/auth-api/internal/domain/entity"
)

// RefreshTokenRepository tracks the rotation state of issued refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (*entity.RefreshToken, error)

	// Rotate atomically marks the token identified by jti as rotated out and
	// records its successor. It only succeeds while the row is still in the
	// Valid state; a token that was already rotated, revoked or is unknown
	// yields apperrors.ErrNotFound, so a replayed refresh token can never
	// rotate twice.
	Rotate(ctx context.Context, jti, replacedBy string) error

	// Revoke marks the token as revoked. Revoking an already-terminal token
	// yields apperrors.ErrNotFound.
	Revoke(ctx context.Context, jti string) error

	// RevokeFamily revokes every active token descended from one login.
	// Used when a rotated-out token is presented again.
	RevokeFamily(ctx context.Context, family string) error
	RevokeAllForUser(ctx context.Context, userID uint) error

	// CleanupExpired deletes rows whose expiry has passed and returns the
	// number of rows removed.
	CleanupExpired(ctx context.Context) (int64, error)
}
