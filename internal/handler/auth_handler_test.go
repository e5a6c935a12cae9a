package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/auth-api/internal/domain/entity"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
	"github.com/yourusername/auth-api/internal/provider"
	"github.com/yourusername/auth-api/internal/service"
	"github.com/yourusername/auth-api/pkg/auth"
	"github.com/yourusername/auth-api/pkg/auth/manager"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSuccessURL = "http://front.test/auth/success"
	testErrorURL   = "http://front.test/auth/error"
)

// ============================================================================
// in-memory test doubles
// ============================================================================

// memCache implements repository.CacheRepository.
type memCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return value, nil
}

func (c *memCache) GetDel(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	delete(c.values, key)
	return value, nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

// memStore implements the user, identity and refresh token repositories in
// one struct, keeping the handler tests self-contained.
type memStore struct {
	mu         sync.Mutex
	nextID     uint
	users      map[uint]entity.User
	byEmail    map[string]uint
	identities map[string]entity.UserIdentity
	tokens     map[string]*entity.RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[uint]entity.User),
		byEmail:    make(map[string]uint),
		identities: make(map[string]entity.UserIdentity),
		tokens:     make(map[string]*entity.RefreshToken),
	}
}

func (s *memStore) Create(ctx context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return apperrors.ErrConflict
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *memStore) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	return nil
}

type memIdentities struct{ store *memStore }

func (s *memIdentities) Create(ctx context.Context, identity *entity.UserIdentity) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	key := identity.Provider + "\x00" + identity.ProviderSub
	if _, exists := s.store.identities[key]; exists {
		return apperrors.ErrConflict
	}
	s.store.identities[key] = *identity
	return nil
}

func (s *memIdentities) GetByProviderSub(ctx context.Context, provider, sub string) (*entity.UserIdentity, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	identity, ok := s.store.identities[provider+"\x00"+sub]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &identity, nil
}

func (s *memIdentities) GetByUserAndProvider(ctx context.Context, userID uint, provider string) (*entity.UserIdentity, error) {
	return nil, apperrors.ErrNotFound
}

func (s *memIdentities) ListByUser(ctx context.Context, userID uint) ([]entity.UserIdentity, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []entity.UserIdentity
	for _, identity := range s.store.identities {
		if identity.UserID == userID {
			out = append(out, identity)
		}
	}
	return out, nil
}

type memTokens struct{ store *memStore }

func (s *memTokens) Create(ctx context.Context, token *entity.RefreshToken) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	copied := *token
	s.store.tokens[token.JTI] = &copied
	return nil
}

func (s *memTokens) GetByJTI(ctx context.Context, jti string) (*entity.RefreshToken, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	row, ok := s.store.tokens[jti]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *memTokens) Rotate(ctx context.Context, jti, replacedBy string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	row, ok := s.store.tokens[jti]
	if !ok || row.RotatedAt != nil || row.RevokedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	row.RotatedAt = &now
	row.ReplacedBy = replacedBy
	return nil
}

func (s *memTokens) Revoke(ctx context.Context, jti string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	row, ok := s.store.tokens[jti]
	if !ok || row.RotatedAt != nil || row.RevokedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	row.RevokedAt = &now
	return nil
}

func (s *memTokens) RevokeFamily(ctx context.Context, family string) error { return nil }

func (s *memTokens) RevokeAllForUser(ctx context.Context, userID uint) error { return nil }

func (s *memTokens) CleanupExpired(ctx context.Context) (int64, error) { return 0, nil }

// stubProvider implements provider.Provider with canned responses.
type stubProvider struct {
	name        string
	exchangeErr error
	profileErr  error
	profile     *provider.Profile
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthorizationURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (*provider.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &provider.Token{AccessToken: "provider-access"}, nil
}

func (p *stubProvider) FetchProfile(ctx context.Context, token *provider.Token) (*provider.Profile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.profile, nil
}

// ============================================================================
// test harness
// ============================================================================

func newTestRouter(t *testing.T, p provider.Provider, cache *memCache) *gin.Engine {
	t.Helper()

	jwtService, err := auth.NewJWTService("test-secret", 30*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	store := newMemStore()
	tokenManager, err := manager.NewTokenManager(jwtService, &memTokens{store})
	require.NoError(t, err)

	linker := service.NewIdentityLinker(store, &memIdentities{store})
	authService := service.NewAuthService(linker, tokenManager, jwtService, store, &memIdentities{store}, &service.NoopEmailService{})

	h := NewAuthHandler(authService, provider.NewRegistry(p), cache, 10*time.Minute, testSuccessURL, testErrorURL)

	router := gin.New()
	router.GET("/api/auth/:provider/login", h.Login)
	router.GET("/api/auth/:provider/callback", h.Callback)
	router.POST("/api/auth/refresh", h.Refresh)
	router.POST("/api/auth/logout", h.Logout)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func redirectQuery(t *testing.T, w *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code, "body: %s", w.Body.String())
	location := w.Header().Get("Location")
	parsed, err := url.Parse(location)
	require.NoError(t, err)
	return parsed.Scheme + "://" + parsed.Host + parsed.Path, parsed.Query()
}

func testProfile() *provider.Profile {
	return &provider.Profile{Sub: "123", Email: "a@x.com", Name: "Alice"}
}

// ============================================================================
// tests
// ============================================================================

func TestLogin_ReturnsAuthorizationURLAndStoresState(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	w := doRequest(router, http.MethodGet, "/api/auth/google/login", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	authURL, err := url.Parse(resp["authorization_url"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	stored, err := cache.Get(context.Background(), stateKeyPrefix+state)
	require.NoError(t, err)
	assert.Equal(t, "google", stored)
}

func TestLogin_UnknownProvider(t *testing.T) {
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, newMemCache())

	w := doRequest(router, http.MethodGet, "/api/auth/github/login", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_SuccessRedirectsWithTokens(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-1", "google", time.Minute))

	w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-1", nil)

	base, query := redirectQuery(t, w)
	assert.Equal(t, testSuccessURL, base)
	assert.NotEmpty(t, query.Get("access_token"))
	assert.NotEmpty(t, query.Get("refresh_token"))
	assert.Equal(t, "a@x.com", query.Get("user"))
	assert.Equal(t, "Alice", query.Get("name"))

	// State is single-use.
	_, err := cache.Get(context.Background(), stateKeyPrefix+"state-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCallback_MissingOrUnknownState(t *testing.T) {
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, newMemCache())

	for _, path := range []string{
		"/api/auth/google/callback?code=ok",
		"/api/auth/google/callback?code=ok&state=never-stored",
	} {
		w := doRequest(router, http.MethodGet, path, nil)
		base, query := redirectQuery(t, w)
		assert.Equal(t, testErrorURL, base, "path %s", path)
		assert.Equal(t, "state_mismatch", query.Get("error"), "path %s", path)
		assert.Empty(t, query.Get("access_token"))
	}
}

func TestCallback_StateBoundToProvider(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	// State issued for another provider must not pass.
	require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-2", "kakao", time.Minute))

	w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-2", nil)

	base, query := redirectQuery(t, w)
	assert.Equal(t, testErrorURL, base)
	assert.Equal(t, "state_mismatch", query.Get("error"))
}

func TestCallback_ReplayedStateRejected(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-3", "google", time.Minute))

	first := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-3", nil)
	base, _ := redirectQuery(t, first)
	require.Equal(t, testSuccessURL, base)

	second := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-3", nil)
	base, query := redirectQuery(t, second)
	assert.Equal(t, testErrorURL, base)
	assert.Equal(t, "state_mismatch", query.Get("error"))
}

func TestCallback_OpaqueErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		wantCode string
	}{
		{
			name:     "rejected code",
			provider: &stubProvider{name: "google", exchangeErr: apperrors.ErrProviderExchange},
			wantCode: "exchange_failed",
		},
		{
			name:     "provider outage",
			provider: &stubProvider{name: "google", exchangeErr: apperrors.ErrProviderUnavailable},
			wantCode: "provider_error",
		},
		{
			name:     "broken profile",
			provider: &stubProvider{name: "google", profileErr: apperrors.ErrProviderProfile},
			wantCode: "provider_error",
		},
		{
			name:     "unusable profile",
			provider: &stubProvider{name: "google", profile: &provider.Profile{Sub: "123"}},
			wantCode: "login_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemCache()
			router := newTestRouter(t, tt.provider, cache)
			require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-x", "google", time.Minute))

			w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-x", nil)

			base, query := redirectQuery(t, w)
			assert.Equal(t, testErrorURL, base)
			assert.Equal(t, tt.wantCode, query.Get("error"))
			// Never leak raw error text.
			assert.Len(t, query, 1)
		})
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-4", "google", time.Minute))
	login := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-4", nil)
	_, query := redirectQuery(t, login)
	refreshToken := query.Get("refresh_token")
	require.NotEmpty(t, refreshToken)

	w := doRequest(router, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var pair map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair["access_token"])
	assert.NotEmpty(t, pair["refresh_token"])
	assert.Equal(t, "Bearer", pair["token_type"])
	assert.Equal(t, float64(1800), pair["expires_in"])

	// The spent token answers 401.
	replay := doRequest(router, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestRefresh_Validation(t *testing.T) {
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, newMemCache())

	w := doRequest(router, http.MethodPost, "/api/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_Idempotent(t *testing.T) {
	cache := newMemCache()
	router := newTestRouter(t, &stubProvider{name: "google", profile: testProfile()}, cache)

	require.NoError(t, cache.Set(context.Background(), stateKeyPrefix+"state-5", "google", time.Minute))
	login := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=ok&state=state-5", nil)
	_, query := redirectQuery(t, login)
	refreshToken := query.Get("refresh_token")

	first := doRequest(router, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusOK, second.Code)

	// The revoked token can no longer refresh.
	refresh := doRequest(router, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}
