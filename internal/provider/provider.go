package provider

import (
	"context"
	"time"
)

// Profile is the normalized identity a provider reports for a user.
// Sub and Email are always present; Name and ProfileImage may be empty.
type Profile struct {
	Sub          string
	Email        string
	Name         string
	ProfileImage string
}

// Token is the provider credential returned by a code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Provider wraps one external OAuth provider. Implementations return
// identity facts only; user creation, linking and session management
// happen elsewhere.
type Provider interface {
	// Name returns the provider identifier (e.g. "google", "kakao").
	Name() string

	// AuthorizationURL builds the URL the browser is sent to. The caller
	// supplies the CSRF state parameter.
	AuthorizationURL(state string) string

	// ExchangeCode trades the authorization code for provider credentials.
	// A rejected code yields apperrors.ErrProviderExchange; a provider that
	// cannot be reached yields apperrors.ErrProviderUnavailable.
	ExchangeCode(ctx context.Context, code string) (*Token, error)

	// FetchProfile loads the user's profile with the given credential.
	// A payload missing the subject identifier or email yields
	// apperrors.ErrProviderProfile.
	FetchProfile(ctx context.Context, token *Token) (*Profile, error)
}
