package composio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const requestTimeout = 30 * time.Second

// AuthConfig is one provider auth configuration registered with Composio.
type AuthConfig struct {
	ID      string  `json:"id"`
	Toolkit Toolkit `json:"toolkit"`
}

type Toolkit struct {
	Slug string `json:"slug"`
}

// ConnectedAccount is one user-level OAuth connection.
type ConnectedAccount struct {
	ID      string  `json:"id"`
	Status  string  `json:"status"`
	Toolkit Toolkit `json:"toolkit"`
}

// ConnectionRequest is the result of initiating an OAuth flow.
type ConnectionRequest struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

// RouterSession is a live tool-router session handle.
type RouterSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Client talks to the Composio v3 REST API. One instance is shared across
// requests; every call carries the service API key.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.ComposioBaseURL).
		SetTimeout(requestTimeout).
		SetHeader("x-api-key", cfg.ComposioAPIKey)
	return &Client{
		http: http,
		log:  log.With().Str("component", "composio_client").Logger(),
	}
}

// FindAuthConfig resolves the auth config id registered for a toolkit slug.
func (c *Client) FindAuthConfig(ctx context.Context, slug string) (string, error) {
	var out listResponse[AuthConfig]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v3/auth_configs")
	if err := c.check(ctx, resp, err, "list auth configs"); err != nil {
		return "", err
	}
	for _, cfg := range out.Items {
		if cfg.Toolkit.Slug == slug {
			return cfg.ID, nil
		}
	}
	return "", apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeNotFound,
		fmt.Sprintf("no auth config for toolkit %q", slug), nil)
}

// InitiateConnection starts the OAuth flow for a user entity and returns the
// authorization redirect URL.
func (c *Client) InitiateConnection(ctx context.Context, entityID, authConfigID, callbackURL string) (*ConnectionRequest, error) {
	var out ConnectionRequest
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"user_id":        entityID,
			"auth_config_id": authConfigID,
			"callback_url":   callbackURL,
			"allow_multiple": true,
		}).
		SetResult(&out).
		Post("/api/v3/connected_accounts")
	if err := c.check(ctx, resp, err, "initiate connection"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConnectedAccounts returns all of an entity's provider connections.
func (c *Client) ListConnectedAccounts(ctx context.Context, entityID string) ([]ConnectedAccount, error) {
	var out listResponse[ConnectedAccount]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_ids", entityID).
		SetResult(&out).
		Get("/api/v3/connected_accounts")
	if err := c.check(ctx, resp, err, "list connected accounts"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// DeleteConnectedAccount revokes one provider connection.
func (c *Client) DeleteConnectedAccount(ctx context.Context, accountID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/api/v3/connected_accounts/" + accountID)
	return c.check(ctx, resp, err, "delete connected account")
}

// CreateRouterSession opens a tool-router session scoped to the entity's
// connected toolkits.
func (c *Client) CreateRouterSession(ctx context.Context, entityID string, toolkits []string) (*RouterSession, error) {
	var out RouterSession
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"user_id":                     entityID,
			"toolkits":                    toolkits,
			"manually_manage_connections": true,
		}).
		SetResult(&out).
		Post("/api/v3/labs/tool_router/sessions")
	if err := c.check(ctx, resp, err, "create tool router session"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) check(ctx context.Context, resp *resty.Response, err error, op string) error {
	if err != nil {
		return apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUpstreamFailure,
			fmt.Sprintf("composio %s failed", op), err)
	}
	if resp.IsError() {
		c.log.Warn().Int("status", resp.StatusCode()).Str("op", op).Msg("composio returned error status")
		return apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUpstreamFailure,
			fmt.Sprintf("composio %s returned status %d", op, resp.StatusCode()), nil)
	}
	return nil
}
