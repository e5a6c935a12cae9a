package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/yourusername/auth-api/internal/config"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Google implements Provider for Google OAuth.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewGoogle(cfg config.OAuthClientConfig) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *Google) Name() string {
	return "google"
}

// AuthorizationURL requests offline access so Google returns a refresh
// token on first consent.
func (p *Google) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *Google) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return exchangeCode(ctx, p.oauth, code)
}

func (p *Google) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchUserInfo(ctx, p.userInfoURL, token.AccessToken, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" || payload.Email == "" {
		return nil, fmt.Errorf("%w: google userinfo missing id or email", apperrors.ErrProviderProfile)
	}
	return &Profile{
		Sub:          payload.ID,
		Email:        payload.Email,
		Name:         payload.Name,
		ProfileImage: payload.Picture,
	}, nil
}
