package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

const httpTimeout = 10 * time.Second

// exchangeCode runs the OAuth code exchange and maps failures onto the
// typed provider errors: a code the provider rejects is ErrProviderExchange,
// anything that looks like an outage is ErrProviderUnavailable.
func exchangeCode(ctx context.Context, cfg *oauth2.Config, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: httpTimeout})

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil &&
			rErr.Response.StatusCode >= 400 && rErr.Response.StatusCode < 500 {
			return nil, fmt.Errorf("%w: code exchange rejected: %v", apperrors.ErrProviderExchange, err)
		}
		return nil, fmt.Errorf("%w: code exchange failed: %v", apperrors.ErrProviderUnavailable, err)
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// fetchUserInfo performs an authenticated GET against the provider's
// userinfo endpoint and decodes the JSON payload into out.
func fetchUserInfo(ctx context.Context, url, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: userinfo request failed: %v", apperrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: userinfo read failed: %v", apperrors.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: userinfo returned status %d", apperrors.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: userinfo payload is not valid JSON: %v", apperrors.ErrProviderProfile, err)
	}
	return nil
}
