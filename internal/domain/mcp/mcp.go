package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/infrastructure/composio"
	"github.com/harmix/assistant-api/internal/infrastructure/sessioncache"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const routerTimeout = 60 * time.Second

// JSON-RPC error codes surfaced by the router.
const (
	CodeInvalidParams = -32602
	CodeInternalError = -32603
	CodeParseError    = -32700
)

// SessionProvider opens tool-router sessions. Satisfied by the composio
// client.
type SessionProvider interface {
	CreateRouterSession(ctx context.Context, entityID string, toolkits []string) (*composio.RouterSession, error)
}

// RouterResult is the proxied response handed back to the CLI.
type RouterResult struct {
	Body   json.RawMessage
	Status int
}

// Service generates MCP configs for agent CLI sessions and proxies JSON-RPC
// requests to a per-user tool-router session. Sessions are cached per user;
// the cache lock covers only creation, concurrent requests share the handle.
type Service struct {
	sessions     *sessioncache.Cache[uint, *composio.RouterSession]
	integrations *integration.Service
	provider     SessionProvider
	http         *resty.Client
	apiURL       string
	log          zerolog.Logger
}

func NewService(integrations *integration.Service, provider SessionProvider, apiURL string, log zerolog.Logger) *Service {
	return &Service{
		sessions:     sessioncache.New[uint, *composio.RouterSession](),
		integrations: integrations,
		provider:     provider,
		http:         resty.New().SetTimeout(routerTimeout),
		apiURL:       apiURL,
		log:          log.With().Str("component", "mcp_service").Logger(),
	}
}

// Config renders the MCP server configuration an agent CLI session loads to
// reach the tool router with the caller's own bearer token.
func (s *Service) Config(accessToken string) map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"harmix-tools": map[string]any{
				"type": "http",
				"url":  s.apiURL + "/v1/mcp/router",
				"headers": map[string]string{
					"Authorization": "Bearer " + accessToken,
				},
			},
		},
	}
}

// Route proxies one JSON-RPC request to the user's tool-router session,
// creating the session on first use. Provider-level failures come back as
// JSON-RPC error objects rather than transport errors, matching what MCP
// clients expect.
func (s *Service) Route(ctx context.Context, userID uint, body json.RawMessage, accept string) RouterResult {
	var envelope struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return rpcError(nil, CodeParseError, "Parse error", 200)
	}
	s.log.Info().Uint("user_id", userID).Str("method", envelope.Method).Msg("tool router request")

	entityID, err := s.integrations.EntityID(ctx, userID)
	if err != nil {
		return rpcError(envelope.ID, CodeInvalidParams, "User not configured for tool access", 200)
	}

	session, err := s.sessions.GetOrCreate(userID, func() (*composio.RouterSession, error) {
		toolkits, err := s.integrations.ConnectedToolkits(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if len(toolkits) == 0 {
			return nil, errNoToolkits
		}
		s.log.Info().Uint("user_id", userID).Strs("toolkits", toolkits).Msg("creating tool router session")
		return s.provider.CreateRouterSession(ctx, entityID, toolkits)
	})
	if err != nil {
		if err == errNoToolkits {
			return rpcError(envelope.ID, CodeInvalidParams, "No connected integrations found", 200)
		}
		apperrors.Log(s.log, err)
		return rpcError(envelope.ID, CodeInternalError, "Internal error: failed to open tool router session", 500)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", accept).
		SetBody([]byte(body)).
		Post(session.URL)
	if err != nil {
		// Drop the cached handle so the next request rebuilds it.
		s.sessions.Delete(userID)
		s.log.Error().Err(err).Uint("user_id", userID).Msg("tool router forward failed")
		return rpcError(envelope.ID, CodeInternalError, "Tool router error: "+err.Error(), 500)
	}

	payload := ExtractPayload(resp.Bytes())
	return RouterResult{Body: payload, Status: resp.StatusCode()}
}

// ClearSession drops the user's cached router session, forcing recreation on
// the next request. Returns whether a session existed.
func (s *Service) ClearSession(userID uint) bool {
	return s.sessions.Delete(userID)
}

// ExtractPayload normalizes a router response body: the session endpoint
// answers either plain JSON or a single SSE event wrapping the JSON.
func ExtractPayload(body []byte) json.RawMessage {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "event:") && !strings.HasPrefix(text, "data:") {
		return json.RawMessage(body)
	}
	for _, line := range strings.Split(text, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return json.RawMessage(data)
		}
	}
	return json.RawMessage(`{"error":"no data in event stream response"}`)
}

var errNoToolkits = fmt.Errorf("no connected toolkits")

func rpcError(id json.RawMessage, code int, message string, status int) RouterResult {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"error":   map[string]any{"code": code, "message": message},
	}
	if id != nil {
		payload["id"] = id
	}
	body, _ := json.Marshal(payload)
	return RouterResult{Body: body, Status: status}
}
