package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/composio"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const (
	oauthPollInterval = 5 * time.Second
	oauthPollBudget   = 5 * time.Minute

	providerStatusActive = "ACTIVE"
)

// Provider is the slice of the Composio API the service needs. Satisfied by
// the composio client.
type Provider interface {
	FindAuthConfig(ctx context.Context, slug string) (string, error)
	InitiateConnection(ctx context.Context, entityID, authConfigID, callbackURL string) (*composio.ConnectionRequest, error)
	ListConnectedAccounts(ctx context.Context, entityID string) ([]composio.ConnectedAccount, error)
	DeleteConnectedAccount(ctx context.Context, accountID string) error
}

// Item is one catalog entry as listed to a user.
type Item struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Image       string `json:"image"`
	IsConnected bool   `json:"is_connected"`
}

// ConnectResult carries the OAuth redirect handed to the client.
type ConnectResult struct {
	AuthURL string `json:"auth_url"`
	AppSlug string `json:"app_slug"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CallbackResult reports whether the provider confirmed the connection.
type CallbackResult struct {
	Success bool   `json:"success"`
	AppSlug string `json:"app_slug"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Service manages OAuth-style integration connections through the provider.
type Service struct {
	integrations Repository
	users        user.Repository
	provider     Provider
	apiURL       string
	log          zerolog.Logger
}

func NewService(integrations Repository, users user.Repository, provider Provider, apiURL string, log zerolog.Logger) *Service {
	return &Service{
		integrations: integrations,
		users:        users,
		provider:     provider,
		apiURL:       apiURL,
		log:          log.With().Str("component", "integration_service").Logger(),
	}
}

// EntityID returns the user's provider entity id, deriving and storing it on
// first use.
func (s *Service) EntityID(ctx context.Context, userID uint) (string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load user")
	}
	if u.ComposioEntityID != "" {
		return u.ComposioEntityID, nil
	}

	local, _, _ := strings.Cut(u.Email, "@")
	entityID := fmt.Sprintf("user_%s_%d", local, u.ID)
	if err := s.users.SetComposioEntityID(ctx, u.ID, entityID); err != nil {
		return "", apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to store entity id")
	}
	s.log.Info().Uint("user_id", u.ID).Str("entity_id", entityID).Msg("provider entity id created")
	return entityID, nil
}

// List splits the catalog into the user's connected and unconnected apps.
func (s *Service) List(ctx context.Context, userID uint) (active, inactive []Item, err error) {
	catalog, err := s.integrations.ListAll(ctx)
	if err != nil {
		return nil, nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list integrations")
	}
	connections, err := s.integrations.ListUserConnections(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list connections")
	}

	connected := map[uint]bool{}
	for _, conn := range connections {
		if conn.Status == StatusConnected {
			connected[conn.IntegrationID] = true
		}
	}

	active, inactive = []Item{}, []Item{}
	for _, entry := range catalog {
		item := Item{
			Name:        entry.Name,
			Slug:        entry.Slug,
			Image:       entry.ImageURL,
			IsConnected: connected[entry.ID],
		}
		if item.IsConnected {
			active = append(active, item)
		} else {
			inactive = append(inactive, item)
		}
	}
	return active, inactive, nil
}

// Connect initiates the OAuth flow for one app and returns the authorization
// URL. A background poller promotes the pending connection once the provider
// reports it active, so the flow completes even if the callback never fires.
func (s *Service) Connect(ctx context.Context, userID uint, slug, redirectURL string) (*ConnectResult, error) {
	slug = strings.ToLower(slug)
	entityID, err := s.EntityID(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := s.integrations.FindBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to resolve integration")
	}

	pending := &UserConnection{UserID: userID, IntegrationID: entry.ID, Status: StatusPending}
	if err := s.integrations.Upsert(ctx, pending); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to record pending connection")
	}

	authConfigID, err := s.provider.FindAuthConfig(ctx, slug)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to resolve auth config")
	}

	callback := redirectURL
	if callback == "" {
		callback = s.apiURL + "/v1/integrations/oauth-callback"
	}
	connReq, err := s.provider.InitiateConnection(ctx, entityID, authConfigID, callback)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to initiate oauth")
	}
	s.log.Info().Uint("user_id", userID).Str("slug", slug).Msg("oauth initiated")

	go s.pollForActivation(entityID, slug, userID, entry.ID)

	return &ConnectResult{
		AuthURL: connReq.RedirectURL,
		AppSlug: slug,
		Status:  string(StatusPending),
		Message: fmt.Sprintf("Please authorize %s", slug),
	}, nil
}

// FinalizeCallback is invoked when the frontend relays the provider's OAuth
// callback: check for an active connection and promote the local record.
func (s *Service) FinalizeCallback(ctx context.Context, userID uint, slug string) (*CallbackResult, error) {
	slug = strings.ToLower(slug)
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load user")
	}
	if u.ComposioEntityID == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeNotFound, "user has no provider entity", nil)
	}

	entry, err := s.integrations.FindBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to resolve integration")
	}

	activated, err := s.activateIfConnected(ctx, u.ComposioEntityID, slug, userID, entry.ID)
	if err != nil {
		return nil, err
	}
	if !activated {
		return &CallbackResult{Success: false, AppSlug: slug, Status: string(StatusPending), Message: "Connection not yet active"}, nil
	}
	return &CallbackResult{Success: true, AppSlug: slug, Status: string(StatusConnected)}, nil
}

// Disconnect revokes the provider connection where possible and always marks
// the local record disconnected.
func (s *Service) Disconnect(ctx context.Context, userID uint, slug string) (*CallbackResult, error) {
	slug = strings.ToLower(slug)
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load user")
	}
	entry, err := s.integrations.FindBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to resolve integration")
	}

	connections, err := s.integrations.ListUserConnections(ctx, userID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list connections")
	}
	var current *UserConnection
	for i := range connections {
		if connections[i].IntegrationID == entry.ID {
			current = &connections[i]
			break
		}
	}
	if current == nil || current.Status != StatusConnected {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeConflict,
			fmt.Sprintf("%s is not connected", slug), nil)
	}

	if u.ComposioEntityID != "" {
		// Revocation failures are logged, not fatal: the local record is
		// authoritative for what the assistant may use.
		if accounts, err := s.provider.ListConnectedAccounts(ctx, u.ComposioEntityID); err == nil {
			for _, acc := range accounts {
				if strings.ToLower(acc.Toolkit.Slug) == slug {
					if err := s.provider.DeleteConnectedAccount(ctx, acc.ID); err != nil {
						s.log.Warn().Err(err).Str("slug", slug).Msg("failed to revoke provider account")
					}
					break
				}
			}
		} else {
			s.log.Warn().Err(err).Str("slug", slug).Msg("failed to list provider accounts")
		}
	}

	if err := s.integrations.Upsert(ctx, &UserConnection{
		UserID:        userID,
		IntegrationID: entry.ID,
		Status:        StatusDisconnected,
	}); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to record disconnect")
	}
	s.log.Info().Uint("user_id", userID).Str("slug", slug).Msg("integration disconnected")
	return &CallbackResult{Success: true, AppSlug: slug, Status: string(StatusDisconnected)}, nil
}

// ConnectedToolkits lists the slugs of the entity's active provider accounts.
func (s *Service) ConnectedToolkits(ctx context.Context, entityID string) ([]string, error) {
	accounts, err := s.provider.ListConnectedAccounts(ctx, entityID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list provider accounts")
	}
	seen := map[string]bool{}
	var toolkits []string
	for _, acc := range accounts {
		slug := strings.ToLower(acc.Toolkit.Slug)
		if !seen[slug] {
			seen[slug] = true
			toolkits = append(toolkits, slug)
		}
	}
	return toolkits, nil
}

func (s *Service) activateIfConnected(ctx context.Context, entityID, slug string, userID, integrationID uint) (bool, error) {
	accounts, err := s.provider.ListConnectedAccounts(ctx, entityID)
	if err != nil {
		return false, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list provider accounts")
	}
	for _, acc := range accounts {
		if strings.ToLower(acc.Toolkit.Slug) != slug || acc.Status != providerStatusActive {
			continue
		}
		now := time.Now().UTC()
		conn := &UserConnection{
			UserID:               userID,
			IntegrationID:        integrationID,
			Status:               StatusConnected,
			ComposioConnectionID: acc.ID,
			ConnectedAt:          &now,
		}
		if err := s.integrations.Upsert(ctx, conn); err != nil {
			return false, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to record connection")
		}
		return true, nil
	}
	return false, nil
}

// pollForActivation watches the provider until the pending connection turns
// active or the budget runs out. It runs detached from the request.
func (s *Service) pollForActivation(entityID, slug string, userID, integrationID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), oauthPollBudget)
	defer cancel()

	ticker := time.NewTicker(oauthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Warn().Uint("user_id", userID).Str("slug", slug).Msg("oauth activation timed out")
			return
		case <-ticker.C:
			activated, err := s.activateIfConnected(ctx, entityID, slug, userID, integrationID)
			if err != nil {
				s.log.Warn().Err(err).Str("slug", slug).Msg("oauth status check failed")
				continue
			}
			if activated {
				s.log.Info().Uint("user_id", userID).Str("slug", slug).Msg("oauth completed")
				return
			}
		}
	}
}
