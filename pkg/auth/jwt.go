package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Token type claim values. Access and refresh tokens are signed with
// different derived keys, so the claim is a second line of defense.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the custom JWT claims for both token kinds.
type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	// Family groups every refresh token descended from one login.
	Family string `json:"family,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies access and refresh tokens. The two signing
// keys are derived from a single process secret, so an access token can
// never verify as a refresh token even if the type claim is forged.
type JWTService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService derives the signing keys from secret and returns the service.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required for JWTService")
	}
	if accessTTL == 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 14 * 24 * time.Hour
	}

	accessKey, err := deriveKey(secret, "access-token-signing")
	if err != nil {
		return nil, fmt.Errorf("failed to derive access key: %w", err)
	}
	refreshKey, err := deriveKey(secret, "refresh-token-signing")
	if err != nil {
		return nil, fmt.Errorf("failed to derive refresh key: %w", err)
	}

	return &JWTService{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// deriveKey expands the process secret into a 32-byte signing key bound to
// the given purpose label.
func deriveKey(secret, purpose string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken signs a new access token for the user.
func (s *JWTService) GenerateAccessToken(userID uint) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	claims := &Claims{
		UserID:    userID,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessKey)
	if err != nil {
		return "", time.Time{}, NewTokenError(TokenGenerationFailed, "failed to sign access token", err)
	}
	return signed, expiresAt, nil
}

// GenerateRefreshToken signs a new refresh token carrying the given jti and
// family. The jti also keys the persisted rotation state.
func (s *JWTService) GenerateRefreshToken(userID uint, jti, family string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.refreshTTL)

	claims := &Claims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		Family:    family,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshKey)
	if err != nil {
		return "", time.Time{}, NewTokenError(TokenGenerationFailed, "failed to sign refresh token", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccess parses and validates an access token.
func (s *JWTService) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.accessKey, s.refreshKey, TokenTypeAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (s *JWTService) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.refreshKey, s.accessKey, TokenTypeRefresh)
}

// verify checks the token against the expected key. On a signature failure
// it retries with the other kind's key so a swapped token reports a
// wrong-type error instead of a bad signature.
func (s *JWTService) verify(tokenString string, key, otherKey []byte, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, NewTokenError(TokenMalformed, "token is malformed", err)
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, NewTokenError(TokenExpired, "token is expired", err)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				if s.signedWith(tokenString, otherKey) {
					return nil, NewTokenError(TokenWrongType,
						fmt.Sprintf("expected %s token", wantType), nil)
				}
				return nil, NewTokenError(TokenSignatureInvalid, "token signature is invalid", err)
			}
		}
		return nil, NewTokenError(TokenMalformed, "token validation failed", err)
	}

	if !token.Valid {
		return nil, NewTokenError(TokenSignatureInvalid, "token is invalid", nil)
	}
	if claims.TokenType != wantType {
		return nil, NewTokenError(TokenWrongType,
			fmt.Sprintf("expected %s token, got %s", wantType, claims.TokenType), nil)
	}
	return claims, nil
}

// signedWith reports whether the token carries a valid signature under key,
// ignoring every other validation concern.
func (s *JWTService) signedWith(tokenString string, key []byte) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	return err == nil
}
