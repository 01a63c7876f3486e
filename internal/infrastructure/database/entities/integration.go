package entities

import (
	"time"

	"github.com/harmix/assistant-api/internal/domain/integration"
)

// Integration represents the database schema for the integration catalog.
type Integration struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name     string `gorm:"type:varchar(128);not null"`
	Slug     string `gorm:"type:varchar(64);uniqueIndex;not null"`
	ImageURL string `gorm:"type:varchar(512)"`
}

// TableName specifies the table name for Integration.
func (Integration) TableName() string {
	return "integrations"
}

// EtoD converts database entity to domain model
func (i *Integration) EtoD() *integration.Integration {
	return &integration.Integration{
		ID:       i.ID,
		Name:     i.Name,
		Slug:     i.Slug,
		ImageURL: i.ImageURL,
	}
}

// UserIntegration represents the database schema for per-user connections.
type UserIntegration struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID               uint   `gorm:"uniqueIndex:idx_user_integration;not null"`
	IntegrationID        uint   `gorm:"uniqueIndex:idx_user_integration;not null"`
	Status               string `gorm:"type:varchar(20);not null;default:'pending'"`
	ComposioConnectionID string `gorm:"type:varchar(128);index"`
	ConnectedAt          *time.Time
}

// TableName specifies the table name for UserIntegration.
func (UserIntegration) TableName() string {
	return "user_integrations"
}

// EtoD converts database entity to domain model
func (u *UserIntegration) EtoD() *integration.UserConnection {
	return &integration.UserConnection{
		ID:                   u.ID,
		UserID:               u.UserID,
		IntegrationID:        u.IntegrationID,
		Status:               integration.ConnectionStatus(u.Status),
		ComposioConnectionID: u.ComposioConnectionID,
		ConnectedAt:          u.ConnectedAt,
	}
}

// NewSchemaUserIntegration creates a database entity from domain model
func NewSchemaUserIntegration(c *integration.UserConnection) *UserIntegration {
	return &UserIntegration{
		ID:                   c.ID,
		UserID:               c.UserID,
		IntegrationID:        c.IntegrationID,
		Status:               string(c.Status),
		ComposioConnectionID: c.ComposioConnectionID,
		ConnectedAt:          c.ConnectedAt,
	}
}
