package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/yourusername/auth-api/internal/config"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

const (
	naverAuthURL     = "https://nid.naver.com/oauth2.0/authorize"
	naverTokenURL    = "https://nid.naver.com/oauth2.0/token"
	naverUserInfoURL = "https://openapi.naver.com/v1/nid/me"
)

// Naver implements Provider for Naver OAuth.
type Naver struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewNaver(cfg config.OAuthClientConfig) *Naver {
	return &Naver{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  naverAuthURL,
				TokenURL: naverTokenURL,
			},
		},
		userInfoURL: naverUserInfoURL,
	}
}

func (p *Naver) Name() string {
	return "naver"
}

func (p *Naver) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *Naver) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return exchangeCode(ctx, p.oauth, code)
}

// FetchProfile reads the profile wrapped in Naver's response envelope.
func (p *Naver) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	var payload struct {
		ResultCode string `json:"resultcode"`
		Response   struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := fetchUserInfo(ctx, p.userInfoURL, token.AccessToken, &payload); err != nil {
		return nil, err
	}
	if payload.Response.ID == "" || payload.Response.Email == "" {
		return nil, fmt.Errorf("%w: naver userinfo missing id or email", apperrors.ErrProviderProfile)
	}
	return &Profile{
		Sub:          payload.Response.ID,
		Email:        payload.Response.Email,
		Name:         payload.Response.Name,
		ProfileImage: payload.Response.ProfileImage,
	}, nil
}
