package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/auth-api/internal/domain/entity"
	"github.com/yourusername/auth-api/internal/domain/repository"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
	"github.com/yourusername/auth-api/internal/provider"
)

// maxLinkAttempts bounds the retry loop when concurrent logins race on the
// same identity or email.
const maxLinkAttempts = 5

// IdentityLinker resolves a provider profile to exactly one local user,
// creating the user and the identity link as needed. Uniqueness is enforced
// by database constraints; the linker absorbs the resulting conflicts by
// retrying the lookup path.
type IdentityLinker struct {
	userRepo     repository.UserRepository
	identityRepo repository.UserIdentityRepository
}

func NewIdentityLinker(
	userRepo repository.UserRepository,
	identityRepo repository.UserIdentityRepository,
) *IdentityLinker {
	return &IdentityLinker{
		userRepo:     userRepo,
		identityRepo: identityRepo,
	}
}

// LinkOrCreate returns the user owning the given provider identity. The
// second result reports whether a new user account was created.
//
// Resolution order: existing (provider, sub) identity wins; otherwise an
// existing user with the same email gains a new identity link; otherwise a
// new user and identity are created together.
func (l *IdentityLinker) LinkOrCreate(ctx context.Context, providerName string, profile *provider.Profile) (*entity.User, bool, error) {
	if profile == nil || profile.Sub == "" || profile.Email == "" {
		return nil, false, fmt.Errorf("%w: profile must carry sub and email", apperrors.ErrValidation)
	}
	email := normalizeEmail(profile.Email)

	var lastErr error
	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		user, created, err := l.linkOnce(ctx, providerName, profile, email)
		if err == nil {
			return user, created, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, false, err
		}
		// Lost an insert race; the winning row now exists, so the lookup
		// path will find it on the next pass.
		log.Printf("[IdentityLinker] Insert conflict for provider=%s, retrying (attempt %d)", providerName, attempt+1)
		lastErr = err
	}
	return nil, false, fmt.Errorf("identity link did not converge: %w", lastErr)
}

func (l *IdentityLinker) linkOnce(ctx context.Context, providerName string, profile *provider.Profile, email string) (*entity.User, bool, error) {
	identity, err := l.identityRepo.GetByProviderSub(ctx, providerName, profile.Sub)
	if err == nil {
		user, err := l.userRepo.GetByID(ctx, identity.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("identity %d points at missing user %d: %w", identity.ID, identity.UserID, err)
		}
		if err := l.refreshProfile(ctx, user, profile); err != nil {
			// Display fields are best-effort; the login still succeeds.
			log.Printf("[IdentityLinker] Failed to refresh profile for user %d: %v", user.ID, err)
		}
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	user, err := l.userRepo.GetByEmail(ctx, email)
	if err == nil {
		// Same mailbox, new provider: link it to the existing account.
		if err := l.createIdentity(ctx, user.ID, providerName, profile, email); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	user = &entity.User{
		Email:        email,
		Name:         profile.Name,
		ProfileImage: profile.ProfileImage,
	}
	if err := l.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	if err := l.createIdentity(ctx, user.ID, providerName, profile, email); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (l *IdentityLinker) createIdentity(ctx context.Context, userID uint, providerName string, profile *provider.Profile, email string) error {
	return l.identityRepo.Create(ctx, &entity.UserIdentity{
		UserID:        userID,
		Provider:      providerName,
		ProviderSub:   profile.Sub,
		ProviderEmail: email,
	})
}

// refreshProfile updates mutable display fields from the provider. Empty
// provider values never clobber stored ones.
func (l *IdentityLinker) refreshProfile(ctx context.Context, user *entity.User, profile *provider.Profile) error {
	if !user.ApplyProfile(profile.Name, profile.ProfileImage) {
		return nil
	}
	return l.userRepo.UpdateProfile(ctx, user.ID, map[string]interface{}{
		"name":          user.Name,
		"profile_image": user.ProfileImage,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
