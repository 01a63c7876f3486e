package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/auth"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

type mockUserRepo struct {
	byEmail map[string]*user.User
	byID    map[uint]*user.User
	nextID  uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail: map[string]*user.User{},
		byID:    map[uint]*user.User{},
		nextID:  1,
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "user not found", nil)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "user not found", nil)
}

func (m *mockUserRepo) SetComposioEntityID(ctx context.Context, id uint, entityID string) error {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.ComposioEntityID = entityID
	return nil
}

func newTestService(repo *mockUserRepo) (*user.Service, *auth.TokenManager) {
	tokens := auth.NewTokenManager(&config.Config{
		AuthSecretKey:        "test-secret",
		TokenIssuer:          "api.harmix.ai",
		AccessTokenLifetime:  30 * time.Minute,
		RefreshTokenLifetime: 720 * time.Hour,
	})
	return user.NewService(repo, tokens, zerolog.Nop()), tokens
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc, tokens := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "Jo@Example.com", "Jo", "supersecret", "")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	// Email is normalised before storage.
	stored, err := repo.FindByEmail(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)

	loginPair, err := svc.Login(ctx, "JO@example.COM", "supersecret")
	require.NoError(t, err)

	userID, err := tokens.Verify(ctx, loginPair.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, userID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "jo@example.com", "Jo", "supersecret", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "jo@example.com", "Jo", "supersecret", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "Jo", "supersecret", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Register(ctx, "jo@example.com", "Jo", "short", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestLoginDoesNotLeakAccountExistence(t *testing.T) {
	repo := newMockUserRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "jo@example.com", "Jo", "supersecret", "")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "jo@example.com", "wrong-password")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "supersecret")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.True(t, apperrors.IsType(wrongPassword, apperrors.ErrorTypeUnauthorized))
}

func TestRefreshIssuesNewPair(t *testing.T) {
	repo := newMockUserRepo()
	svc, tokens := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "jo@example.com", "Jo", "supersecret", "")
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	userID, err := tokens.Verify(ctx, fresh.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(1), userID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo())
	ctx := context.Background()

	pair, err := svc.Register(ctx, "jo@example.com", "Jo", "supersecret", "")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}
