package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/auth-api/internal/domain/entity"
	"github.com/yourusername/auth-api/internal/domain/repository"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
	"github.com/yourusername/auth-api/pkg/auth"
)

// TokenPair is the credential set handed to clients after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenManager issues token pairs and drives refresh token rotation.
// The JWT itself proves authenticity; the persisted row per jti carries the
// rotation state that a stateless signature cannot.
type TokenManager struct {
	jwtService       *auth.JWTService
	refreshTokenRepo repository.RefreshTokenRepository
}

func NewTokenManager(
	jwtService *auth.JWTService,
	refreshTokenRepo repository.RefreshTokenRepository,
) (*TokenManager, error) {
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for TokenManager")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	return &TokenManager{
		jwtService:       jwtService,
		refreshTokenRepo: refreshTokenRepo,
	}, nil
}

// Issue mints a fresh token pair for the user, starting a new refresh
// token family.
func (m *TokenManager) Issue(ctx context.Context, userID uint) (*TokenPair, error) {
	return m.issueWithJTI(ctx, userID, uuid.NewString(), uuid.NewString())
}

// Refresh validates the presented refresh token, rotates it out and mints a
// replacement pair in the same family. A token that is unknown, already
// rotated or revoked is rejected; rotation is first-wins, so a replayed
// token can never yield a second pair.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	row, err := m.refreshTokenRepo.GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, auth.NewTokenError(auth.TokenRevoked, "refresh token is not recognized", nil)
		}
		return nil, auth.NewTokenError(auth.DatabaseError, "failed to load refresh token state", err)
	}

	if row.RevokedAt != nil {
		return nil, auth.NewTokenError(auth.TokenRevoked, "refresh token has been revoked", nil)
	}
	if row.RotatedAt != nil {
		// Reuse of a rotated-out token means the token leaked or the client
		// replayed it. Kill the whole family.
		log.Printf("[TokenManager] Rotated refresh token reused (user=%d, family=%s), revoking family", row.UserID, row.Family)
		if err := m.refreshTokenRepo.RevokeFamily(ctx, row.Family); err != nil {
			log.Printf("[TokenManager] Failed to revoke token family %s: %v", row.Family, err)
		}
		return nil, auth.NewTokenError(auth.TokenRotated, "refresh token has already been used", nil)
	}
	if !row.ExpiresAt.After(time.Now()) {
		return nil, auth.NewTokenError(auth.TokenExpired, "refresh token is expired", nil)
	}

	replacedBy := uuid.NewString()
	if err := m.refreshTokenRepo.Rotate(ctx, claims.ID, replacedBy); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost the race against a concurrent refresh with the same token.
			return nil, auth.NewTokenError(auth.TokenRotated, "refresh token has already been used", nil)
		}
		return nil, auth.NewTokenError(auth.DatabaseError, "failed to rotate refresh token", err)
	}

	pair, err := m.issueWithJTI(ctx, row.UserID, row.Family, replacedBy)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// issueWithJTI mints a pair inside the given family, persisting the refresh
// row before returning. Either both tokens come back or none. On refresh the
// jti is the one recorded as replaced_by during rotation, keeping the chain
// auditable.
func (m *TokenManager) issueWithJTI(ctx context.Context, userID uint, family, jti string) (*TokenPair, error) {
	refreshToken, refreshExpiresAt, err := m.jwtService.GenerateRefreshToken(userID, jti, family)
	if err != nil {
		return nil, err
	}

	row := &entity.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		Family:    family,
		IssuedAt:  time.Now(),
		ExpiresAt: refreshExpiresAt,
	}
	if err := m.refreshTokenRepo.Create(ctx, row); err != nil {
		return nil, auth.NewTokenError(auth.DatabaseError, "failed to persist refresh token", err)
	}

	accessToken, _, err := m.jwtService.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(m.jwtService.AccessTTL().Seconds()),
	}, nil
}

// Revoke invalidates one refresh token by its signed string.
func (m *TokenManager) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := m.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	if err := m.refreshTokenRepo.Revoke(ctx, claims.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Already rotated, revoked or unknown; revocation is idempotent.
			return nil
		}
		return auth.NewTokenError(auth.DatabaseError, "failed to revoke refresh token", err)
	}
	return nil
}

// RevokeAllForUser invalidates every active refresh token of the user.
func (m *TokenManager) RevokeAllForUser(ctx context.Context, userID uint) error {
	if err := m.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return auth.NewTokenError(auth.DatabaseError, "failed to revoke user tokens", err)
	}
	return nil
}

// CleanupExpired removes refresh token rows past their expiry.
func (m *TokenManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.refreshTokenRepo.CleanupExpired(ctx)
}
