package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/composio"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

type mockUsers struct {
	byID map[uint]*user.User
}

func (m *mockUsers) Create(_ context.Context, u *user.User) error {
	m.byID[u.ID] = u
	return nil
}

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "user not found", nil)
}

func (m *mockUsers) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "user not found", nil)
}

func (m *mockUsers) SetComposioEntityID(ctx context.Context, id uint, entityID string) error {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.ComposioEntityID = entityID
	return nil
}

type mockIntegrationRepo struct {
	catalog     []integration.Integration
	connections map[uint]map[uint]*integration.UserConnection // userID -> integrationID
}

func newMockIntegrationRepo(catalog ...integration.Integration) *mockIntegrationRepo {
	return &mockIntegrationRepo{
		catalog:     catalog,
		connections: map[uint]map[uint]*integration.UserConnection{},
	}
}

func (m *mockIntegrationRepo) ListAll(_ context.Context) ([]integration.Integration, error) {
	return m.catalog, nil
}

func (m *mockIntegrationRepo) FindBySlug(ctx context.Context, slug string) (*integration.Integration, error) {
	for i := range m.catalog {
		if m.catalog[i].Slug == slug {
			return &m.catalog[i], nil
		}
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "integration not found", nil)
}

func (m *mockIntegrationRepo) ListUserConnections(_ context.Context, userID uint) ([]integration.UserConnection, error) {
	var out []integration.UserConnection
	for _, conn := range m.connections[userID] {
		out = append(out, *conn)
	}
	return out, nil
}

func (m *mockIntegrationRepo) Upsert(_ context.Context, conn *integration.UserConnection) error {
	if m.connections[conn.UserID] == nil {
		m.connections[conn.UserID] = map[uint]*integration.UserConnection{}
	}
	m.connections[conn.UserID][conn.IntegrationID] = conn
	return nil
}

type mockProvider struct {
	authConfigs map[string]string
	accounts    []composio.ConnectedAccount
	initiated   []string
	deleted     []string
}

func (m *mockProvider) FindAuthConfig(ctx context.Context, slug string) (string, error) {
	if id, ok := m.authConfigs[slug]; ok {
		return id, nil
	}
	return "", apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeNotFound, "no auth config", nil)
}

func (m *mockProvider) InitiateConnection(_ context.Context, entityID, authConfigID, callbackURL string) (*composio.ConnectionRequest, error) {
	m.initiated = append(m.initiated, authConfigID)
	return &composio.ConnectionRequest{ID: "conn_1", RedirectURL: "https://provider.example/authorize?cb=" + callbackURL}, nil
}

func (m *mockProvider) ListConnectedAccounts(_ context.Context, entityID string) ([]composio.ConnectedAccount, error) {
	return m.accounts, nil
}

func (m *mockProvider) DeleteConnectedAccount(_ context.Context, accountID string) error {
	m.deleted = append(m.deleted, accountID)
	return nil
}

func gmailCatalog() integration.Integration {
	return integration.Integration{ID: 10, Name: "Gmail", Slug: "gmail", ImageURL: "https://img.example/gmail.png"}
}

func newTestService(users *mockUsers, repo *mockIntegrationRepo, provider *mockProvider) *integration.Service {
	return integration.NewService(repo, users, provider, "http://localhost:8080", zerolog.Nop())
}

func seedUser(id uint) *mockUsers {
	return &mockUsers{byID: map[uint]*user.User{
		id: {ID: id, Email: "jo@example.com"},
	}}
}

func TestEntityIDDerivedOnceFromEmail(t *testing.T) {
	users := seedUser(7)
	svc := newTestService(users, newMockIntegrationRepo(), &mockProvider{})
	ctx := context.Background()

	entityID, err := svc.EntityID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "user_jo_7", entityID)

	again, err := svc.EntityID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entityID, again)
	assert.Equal(t, entityID, users.byID[7].ComposioEntityID)
}

func TestListSplitsActiveAndInactive(t *testing.T) {
	users := seedUser(7)
	repo := newMockIntegrationRepo(gmailCatalog(), integration.Integration{ID: 11, Name: "Slack", Slug: "slack"})
	svc := newTestService(users, repo, &mockProvider{})
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &integration.UserConnection{
		UserID: 7, IntegrationID: 10, Status: integration.StatusConnected,
	}))

	active, inactive, err := svc.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "gmail", active[0].Slug)
	assert.True(t, active[0].IsConnected)
	require.Len(t, inactive, 1)
	assert.Equal(t, "slack", inactive[0].Slug)
}

func TestConnectReturnsRedirectAndRecordsPending(t *testing.T) {
	users := seedUser(7)
	repo := newMockIntegrationRepo(gmailCatalog())
	provider := &mockProvider{authConfigs: map[string]string{"gmail": "ac_123"}}
	svc := newTestService(users, repo, provider)

	result, err := svc.Connect(context.Background(), 7, "Gmail", "")
	require.NoError(t, err)
	assert.Equal(t, "gmail", result.AppSlug)
	assert.Equal(t, "pending", result.Status)
	assert.Contains(t, result.AuthURL, "https://provider.example/authorize")
	assert.Contains(t, result.AuthURL, "/v1/integrations/oauth-callback")
	assert.Equal(t, []string{"ac_123"}, provider.initiated)

	conn := repo.connections[7][10]
	require.NotNil(t, conn)
	// The background poller may have run; pending or connected both prove
	// the record exists.
	assert.Contains(t, []integration.ConnectionStatus{integration.StatusPending, integration.StatusConnected}, conn.Status)
}

func TestConnectUnknownSlugIsNotFound(t *testing.T) {
	svc := newTestService(seedUser(7), newMockIntegrationRepo(), &mockProvider{})

	_, err := svc.Connect(context.Background(), 7, "unknown", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestFinalizeCallbackPromotesActiveConnection(t *testing.T) {
	users := seedUser(7)
	users.byID[7].ComposioEntityID = "user_jo_7"
	repo := newMockIntegrationRepo(gmailCatalog())
	provider := &mockProvider{accounts: []composio.ConnectedAccount{
		{ID: "acc_1", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "GMAIL"}},
	}}
	svc := newTestService(users, repo, provider)

	result, err := svc.FinalizeCallback(context.Background(), 7, "gmail")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "connected", result.Status)

	conn := repo.connections[7][10]
	require.NotNil(t, conn)
	assert.Equal(t, integration.StatusConnected, conn.Status)
	assert.Equal(t, "acc_1", conn.ComposioConnectionID)
	assert.NotNil(t, conn.ConnectedAt)
}

func TestFinalizeCallbackPendingWhenProviderInactive(t *testing.T) {
	users := seedUser(7)
	users.byID[7].ComposioEntityID = "user_jo_7"
	repo := newMockIntegrationRepo(gmailCatalog())
	provider := &mockProvider{accounts: []composio.ConnectedAccount{
		{ID: "acc_1", Status: "INITIATED", Toolkit: composio.Toolkit{Slug: "gmail"}},
	}}
	svc := newTestService(users, repo, provider)

	result, err := svc.FinalizeCallback(context.Background(), 7, "gmail")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "pending", result.Status)
}

func TestDisconnectRevokesAndRecords(t *testing.T) {
	users := seedUser(7)
	users.byID[7].ComposioEntityID = "user_jo_7"
	repo := newMockIntegrationRepo(gmailCatalog())
	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(context.Background(), &integration.UserConnection{
		UserID: 7, IntegrationID: 10, Status: integration.StatusConnected,
		ComposioConnectionID: "acc_1", ConnectedAt: &now,
	}))
	provider := &mockProvider{accounts: []composio.ConnectedAccount{
		{ID: "acc_1", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "gmail"}},
	}}
	svc := newTestService(users, repo, provider)

	result, err := svc.Disconnect(context.Background(), 7, "gmail")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"acc_1"}, provider.deleted)
	assert.Equal(t, integration.StatusDisconnected, repo.connections[7][10].Status)
}

func TestDisconnectWithoutConnectionConflicts(t *testing.T) {
	svc := newTestService(seedUser(7), newMockIntegrationRepo(gmailCatalog()), &mockProvider{})

	_, err := svc.Disconnect(context.Background(), 7, "gmail")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestConnectedToolkitsDeduplicates(t *testing.T) {
	provider := &mockProvider{accounts: []composio.ConnectedAccount{
		{ID: "a", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "Gmail"}},
		{ID: "b", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "gmail"}},
		{ID: "c", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "slack"}},
	}}
	svc := newTestService(seedUser(7), newMockIntegrationRepo(), provider)

	toolkits, err := svc.ConnectedToolkits(context.Background(), "user_jo_7")
	require.NoError(t, err)
	assert.Equal(t, []string{"gmail", "slack"}, toolkits)
}
