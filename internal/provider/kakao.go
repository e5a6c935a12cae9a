package provider

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/yourusername/auth-api/internal/config"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

const (
	kakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// Kakao implements Provider for Kakao OAuth.
type Kakao struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewKakao(cfg config.OAuthClientConfig) *Kakao {
	return &Kakao{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  kakaoAuthURL,
				TokenURL: kakaoTokenURL,
			},
			Scopes: []string{"profile_nickname", "profile_image", "account_email"},
		},
		userInfoURL: kakaoUserInfoURL,
	}
}

func (p *Kakao) Name() string {
	return "kakao"
}

func (p *Kakao) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *Kakao) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return exchangeCode(ctx, p.oauth, code)
}

// FetchProfile reads the nested kakao_account payload. Kakao reports the
// subject as a numeric id.
func (p *Kakao) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	var payload struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := fetchUserInfo(ctx, p.userInfoURL, token.AccessToken, &payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 || payload.KakaoAccount.Email == "" {
		return nil, fmt.Errorf("%w: kakao userinfo missing id or email", apperrors.ErrProviderProfile)
	}
	return &Profile{
		Sub:          strconv.FormatInt(payload.ID, 10),
		Email:        payload.KakaoAccount.Email,
		Name:         payload.KakaoAccount.Profile.Nickname,
		ProfileImage: payload.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
