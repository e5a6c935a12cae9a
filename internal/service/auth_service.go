package service

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/auth-api/internal/domain/entity"
	"github.com/yourusername/auth-api/internal/domain/repository"
	"github.com/yourusername/auth-api/internal/provider"
	"github.com/yourusername/auth-api/pkg/auth"
	"github.com/yourusername/auth-api/pkg/auth/manager"
)

// AuthService orchestrates the login and refresh flows. Provider I/O,
// identity resolution and token issuance each live behind their own
// component; this layer only sequences them.
type AuthService struct {
	linker       *IdentityLinker
	tokenManager *manager.TokenManager
	jwtService   *auth.JWTService
	userRepo     repository.UserRepository
	identityRepo repository.UserIdentityRepository
	emailService EmailService
}

func NewAuthService(
	linker *IdentityLinker,
	tokenManager *manager.TokenManager,
	jwtService *auth.JWTService,
	userRepo repository.UserRepository,
	identityRepo repository.UserIdentityRepository,
	emailService EmailService,
) *AuthService {
	return &AuthService{
		linker:       linker,
		tokenManager: tokenManager,
		jwtService:   jwtService,
		userRepo:     userRepo,
		identityRepo: identityRepo,
		emailService: emailService,
	}
}

// LoginResult carries everything the callback handler needs to finish a
// login.
type LoginResult struct {
	Tokens  *manager.TokenPair
	User    *entity.User
	Created bool
}

// OAuthLogin resolves the provider profile to a local user and issues a
// token pair. A brand-new account gets a welcome email, sent asynchronously
// so provider latency never blocks the login.
func (s *AuthService) OAuthLogin(ctx context.Context, providerName string, profile *provider.Profile) (*LoginResult, error) {
	user, created, err := s.linker.LinkOrCreate(ctx, providerName, profile)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokenManager.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if created {
		go s.sendWelcomeEmail(user.Email, user.Name)
	}

	return &LoginResult{Tokens: tokens, User: user, Created: created}, nil
}

func (s *AuthService) sendWelcomeEmail(email, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.emailService.SendWelcomeEmail(ctx, email, name); err != nil {
		log.Printf("[AuthService] Failed to send welcome email to %s: %v", email, err)
	}
}

// Refresh rotates the presented refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*manager.TokenPair, error) {
	return s.tokenManager.Refresh(ctx, refreshToken)
}

// CurrentUserID verifies the access token and returns the authenticated
// user id. Any verification failure fails closed.
func (s *AuthService) CurrentUserID(accessToken string) (uint, error) {
	claims, err := s.jwtService.VerifyAccess(accessToken)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// OptionalUserID resolves the token when one is present. An absent or
// invalid token reads as anonymous, never as an error.
func (s *AuthService) OptionalUserID(accessToken string) (uint, bool) {
	if accessToken == "" {
		return 0, false
	}
	userID, err := s.CurrentUserID(accessToken)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokenManager.Revoke(ctx, refreshToken)
}

// GetUser loads a user with their linked identities.
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*entity.User, []entity.UserIdentity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	identities, err := s.identityRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, identities, nil
}
