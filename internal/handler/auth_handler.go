package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/auth-api/internal/domain/repository"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
	"github.com/yourusername/auth-api/internal/provider"
	"github.com/yourusername/auth-api/internal/service"
)

// Opaque error codes surfaced in redirect URLs. Raw provider error text
// never leaves the server.
const (
	errCodeStateMismatch  = "state_mismatch"
	errCodeExchangeFailed = "exchange_failed"
	errCodeProviderError  = "provider_error"
	errCodeLoginFailed    = "login_failed"
)

const stateKeyPrefix = "oauth_state:"

// AuthHandler serves the OAuth login, callback and token endpoints.
type AuthHandler struct {
	authService *service.AuthService
	providers   *provider.Registry
	stateStore  repository.CacheRepository
	stateTTL    time.Duration
	successURL  string
	errorURL    string
}

func NewAuthHandler(
	authService *service.AuthService,
	providers *provider.Registry,
	stateStore repository.CacheRepository,
	stateTTL time.Duration,
	successURL, errorURL string,
) *AuthHandler {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &AuthHandler{
		authService: authService,
		providers:   providers,
		stateStore:  stateStore,
		stateTTL:    stateTTL,
		successURL:  successURL,
		errorURL:    errorURL,
	}
}

// RefreshRequest carries the refresh token being traded in.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest carries the refresh token being revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login returns the provider's authorization URL with a one-time CSRF
// state bound to the provider.
func (h *AuthHandler) Login(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		return
	}

	state := uuid.NewString()
	if err := h.stateStore.Set(c.Request.Context(), stateKeyPrefix+state, p.Name(), h.stateTTL); err != nil {
		log.Printf("[AuthHandler] Failed to store oauth state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization_url": p.AuthorizationURL(state)})
}

// Callback finishes the OAuth round trip: it consumes the state, exchanges
// the code, fetches the profile and redirects the browser back to the
// frontend with tokens, or with an opaque error code on failure.
func (h *AuthHandler) Callback(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.Redirect(http.StatusFound, h.errorRedirect(errCodeLoginFailed))
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.Redirect(http.StatusFound, h.errorRedirect(errCodeStateMismatch))
		return
	}

	// One-time consume: a replayed or expired state never matches.
	storedProvider, err := h.stateStore.GetDel(c.Request.Context(), stateKeyPrefix+state)
	if err != nil || storedProvider != p.Name() {
		c.Redirect(http.StatusFound, h.errorRedirect(errCodeStateMismatch))
		return
	}

	token, err := p.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		log.Printf("[AuthHandler] Code exchange failed for provider %s: %v", p.Name(), err)
		c.Redirect(http.StatusFound, h.errorRedirect(h.exchangeErrorCode(err)))
		return
	}

	profile, err := p.FetchProfile(c.Request.Context(), token)
	if err != nil {
		log.Printf("[AuthHandler] Profile fetch failed for provider %s: %v", p.Name(), err)
		c.Redirect(http.StatusFound, h.errorRedirect(errCodeProviderError))
		return
	}

	result, err := h.authService.OAuthLogin(c.Request.Context(), p.Name(), profile)
	if err != nil {
		log.Printf("[AuthHandler] Login failed for provider %s: %v", p.Name(), err)
		c.Redirect(http.StatusFound, h.errorRedirect(errCodeLoginFailed))
		return
	}

	c.Redirect(http.StatusFound, h.successRedirect(result))
}

// Refresh trades a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Printf("[AuthHandler] Refresh rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout revokes the presented refresh token. Always answers 200 so a
// client retrying with an already-dead token sees the same outcome.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		log.Printf("[AuthHandler] Logout: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) exchangeErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrProviderExchange):
		return errCodeExchangeFailed
	case errors.Is(err, apperrors.ErrProviderUnavailable):
		return errCodeProviderError
	default:
		return errCodeLoginFailed
	}
}

func (h *AuthHandler) successRedirect(result *service.LoginResult) string {
	params := url.Values{}
	params.Set("access_token", result.Tokens.AccessToken)
	params.Set("refresh_token", result.Tokens.RefreshToken)
	params.Set("user", result.User.Email)
	params.Set("name", result.User.Name)
	return appendQuery(h.successURL, params)
}

func (h *AuthHandler) errorRedirect(code string) string {
	params := url.Values{}
	params.Set("error", code)
	return appendQuery(h.errorURL, params)
}

func appendQuery(base string, params url.Values) string {
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s", base, sep, params.Encode())
}
