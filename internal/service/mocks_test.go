package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/auth-api/internal/domain/entity"
	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

// ============================================================================
// testify mocks
// ============================================================================

// MockUserRepository implements repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, userID, updates)
	return args.Error(0)
}

// MockUserIdentityRepository implements repository.UserIdentityRepository
type MockUserIdentityRepository struct {
	mock.Mock
}

func (m *MockUserIdentityRepository) Create(ctx context.Context, identity *entity.UserIdentity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockUserIdentityRepository) GetByProviderSub(ctx context.Context, provider, providerSub string) (*entity.UserIdentity, error) {
	args := m.Called(ctx, provider, providerSub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserIdentity), args.Error(1)
}

func (m *MockUserIdentityRepository) GetByUserAndProvider(ctx context.Context, userID uint, provider string) (*entity.UserIdentity, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserIdentity), args.Error(1)
}

func (m *MockUserIdentityRepository) ListByUser(ctx context.Context, userID uint) ([]entity.UserIdentity, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserIdentity), args.Error(1)
}

// MockEmailService implements EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	args := m.Called(ctx, toEmail, name)
	return args.Error(0)
}

// ============================================================================
// in-memory fakes — used where real constraint semantics matter, e.g. the
// concurrent linking tests
// ============================================================================

// fakeStore backs fakeUserRepo and fakeIdentityRepo with the same unique
// constraints the SQL schema declares.
type fakeStore struct {
	mu            sync.Mutex
	nextUserID    uint
	nextIdentID   uint
	usersByID     map[uint]entity.User
	userIDByEmail map[string]uint
	identities    map[string]entity.UserIdentity // key: provider + "\x00" + sub
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		usersByID:     make(map[uint]entity.User),
		userIDByEmail: make(map[string]uint),
		identities:    make(map[string]entity.UserIdentity),
	}
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.userIDByEmail[user.Email]; exists {
		return apperrors.ErrConflict
	}
	r.store.nextUserID++
	user.ID = r.store.nextUserID
	user.CreatedAt = time.Now()
	r.store.usersByID[user.ID] = *user
	r.store.userIDByEmail[user.Email] = user.ID
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.usersByID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id, ok := r.store.userIDByEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := r.store.usersByID[id]
	return &user, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.usersByID[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		user.Name = name
	}
	if image, ok := updates["profile_image"].(string); ok {
		user.ProfileImage = image
	}
	r.store.usersByID[userID] = user
	return nil
}

type fakeIdentityRepo struct{ store *fakeStore }

func identityKey(provider, sub string) string {
	return provider + "\x00" + sub
}

func (r *fakeIdentityRepo) Create(ctx context.Context, identity *entity.UserIdentity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := identityKey(identity.Provider, identity.ProviderSub)
	if _, exists := r.store.identities[key]; exists {
		return apperrors.ErrConflict
	}
	r.store.nextIdentID++
	identity.ID = r.store.nextIdentID
	identity.CreatedAt = time.Now()
	r.store.identities[key] = *identity
	return nil
}

func (r *fakeIdentityRepo) GetByProviderSub(ctx context.Context, provider, providerSub string) (*entity.UserIdentity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	identity, ok := r.store.identities[identityKey(provider, providerSub)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &identity, nil
}

func (r *fakeIdentityRepo) GetByUserAndProvider(ctx context.Context, userID uint, provider string) (*entity.UserIdentity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, identity := range r.store.identities {
		if identity.UserID == userID && identity.Provider == provider {
			return &identity, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeIdentityRepo) ListByUser(ctx context.Context, userID uint) ([]entity.UserIdentity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entity.UserIdentity
	for _, identity := range r.store.identities {
		if identity.UserID == userID {
			out = append(out, identity)
		}
	}
	return out, nil
}
