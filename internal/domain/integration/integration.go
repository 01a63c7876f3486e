package integration

import (
	"context"
	"time"
)

// ConnectionStatus tracks the lifecycle of a user's provider connection.
type ConnectionStatus string

const (
	StatusPending      ConnectionStatus = "pending"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Integration is one catalog row: a third-party app users may connect.
type Integration struct {
	ID       uint
	Name     string
	Slug     string
	ImageURL string
}

// UserConnection is a user's state against one catalog integration.
type UserConnection struct {
	ID                   uint
	UserID               uint
	IntegrationID        uint
	Status               ConnectionStatus
	ComposioConnectionID string
	ConnectedAt          *time.Time
}

// Repository persists the integration catalog and per-user connections.
type Repository interface {
	ListAll(ctx context.Context) ([]Integration, error)
	FindBySlug(ctx context.Context, slug string) (*Integration, error)
	ListUserConnections(ctx context.Context, userID uint) ([]UserConnection, error)
	// Upsert replaces the user's connection state for one integration.
	Upsert(ctx context.Context, conn *UserConnection) error
}
