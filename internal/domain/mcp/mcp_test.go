package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/domain/mcp"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/composio"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

type stubUsers struct{ u *user.User }

func (s *stubUsers) Create(context.Context, *user.User) error { return nil }

func (s *stubUsers) FindByEmail(ctx context.Context, _ string) (*user.User, error) {
	return s.u, nil
}

func (s *stubUsers) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if s.u != nil && s.u.ID == id {
		return s.u, nil
	}
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "user not found", nil)
}

func (s *stubUsers) SetComposioEntityID(_ context.Context, _ uint, entityID string) error {
	s.u.ComposioEntityID = entityID
	return nil
}

type stubIntegrationRepo struct{}

func (stubIntegrationRepo) ListAll(context.Context) ([]integration.Integration, error) {
	return nil, nil
}

func (stubIntegrationRepo) FindBySlug(ctx context.Context, _ string) (*integration.Integration, error) {
	return nil, apperrors.New(ctx, apperrors.LayerRepository, apperrors.ErrorTypeNotFound, "integration not found", nil)
}

func (stubIntegrationRepo) ListUserConnections(context.Context, uint) ([]integration.UserConnection, error) {
	return nil, nil
}

func (stubIntegrationRepo) Upsert(context.Context, *integration.UserConnection) error { return nil }

type stubProvider struct {
	accounts   []composio.ConnectedAccount
	routerURL  string
	created    atomic.Int32
	sessionErr error
}

func (s *stubProvider) FindAuthConfig(context.Context, string) (string, error) { return "", nil }

func (s *stubProvider) InitiateConnection(context.Context, string, string, string) (*composio.ConnectionRequest, error) {
	return nil, nil
}

func (s *stubProvider) ListConnectedAccounts(context.Context, string) ([]composio.ConnectedAccount, error) {
	return s.accounts, nil
}

func (s *stubProvider) DeleteConnectedAccount(context.Context, string) error { return nil }

func (s *stubProvider) CreateRouterSession(context.Context, string, []string) (*composio.RouterSession, error) {
	if s.sessionErr != nil {
		return nil, s.sessionErr
	}
	s.created.Add(1)
	return &composio.RouterSession{SessionID: "sess_1", URL: s.routerURL}, nil
}

func newMCPService(provider *stubProvider) *mcp.Service {
	users := &stubUsers{u: &user.User{ID: 7, Email: "jo@example.com", ComposioEntityID: "user_jo_7"}}
	integrations := integration.NewService(stubIntegrationRepo{}, users, provider, "http://localhost:8080", zerolog.Nop())
	return mcp.NewService(integrations, provider, "http://localhost:8080", zerolog.Nop())
}

func TestConfigPointsCLIAtRouter(t *testing.T) {
	svc := newMCPService(&stubProvider{})

	cfg := svc.Config("token-abc")
	servers, ok := cfg["mcpServers"].(map[string]any)
	require.True(t, ok)
	tools, ok := servers["harmix-tools"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080/v1/mcp/router", tools["url"])
	headers, ok := tools["headers"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Bearer token-abc", headers["Authorization"])
}

func TestRouteProxiesAndCachesSession(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`))
	}))
	defer upstream.Close()

	provider := &stubProvider{
		routerURL: upstream.URL,
		accounts: []composio.ConnectedAccount{
			{ID: "a", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "gmail"}},
		},
	}
	svc := newMCPService(provider)
	body := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	first := svc.Route(context.Background(), 7, body, "application/json")
	assert.Equal(t, http.StatusOK, first.Status)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`, string(first.Body))

	second := svc.Route(context.Background(), 7, body, "application/json")
	assert.Equal(t, http.StatusOK, second.Status)
	// Session handle is reused across requests.
	assert.Equal(t, int32(1), provider.created.Load())
}

func TestRouteWithoutToolkitsReturnsRPCError(t *testing.T) {
	svc := newMCPService(&stubProvider{})

	result := svc.Route(context.Background(), 7, json.RawMessage(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`), "application/json")
	assert.Equal(t, http.StatusOK, result.Status)

	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &payload))
	assert.Equal(t, mcp.CodeInvalidParams, payload.Error.Code)
	assert.Contains(t, payload.Error.Message, "No connected integrations")
}

func TestRouteMalformedBodyIsParseError(t *testing.T) {
	svc := newMCPService(&stubProvider{})

	result := svc.Route(context.Background(), 7, json.RawMessage(`{not json`), "application/json")

	var payload struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &payload))
	assert.Equal(t, mcp.CodeParseError, payload.Error.Code)
}

func TestClearSessionForcesRecreation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","result":{}}`))
	}))
	defer upstream.Close()

	provider := &stubProvider{
		routerURL: upstream.URL,
		accounts: []composio.ConnectedAccount{
			{ID: "a", Status: "ACTIVE", Toolkit: composio.Toolkit{Slug: "gmail"}},
		},
	}
	svc := newMCPService(provider)
	body := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	assert.False(t, svc.ClearSession(7))
	svc.Route(context.Background(), 7, body, "application/json")
	assert.True(t, svc.ClearSession(7))
	svc.Route(context.Background(), 7, body, "application/json")
	assert.Equal(t, int32(2), provider.created.Load())
}

func TestExtractPayloadUnwrapsEventStream(t *testing.T) {
	sse := []byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"result\":{}}\n\n")
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{}}`, string(mcp.ExtractPayload(sse)))

	plain := []byte(`{"jsonrpc":"2.0","result":{}}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{}}`, string(mcp.ExtractPayload(plain)))
}
