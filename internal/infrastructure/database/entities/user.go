package entities

import (
	"time"

	"github.com/harmix/assistant-api/internal/domain/user"
)

// User represents the database schema for accounts.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Email            string `gorm:"type:varchar(256);uniqueIndex;not null"`
	Name             string `gorm:"type:varchar(256);not null"`
	Company          string `gorm:"type:varchar(256)"`
	PasswordHash     string `gorm:"type:varchar(128);not null"`
	ComposioEntityID string `gorm:"type:varchar(128);index"`
	UpstreamHost     string `gorm:"type:varchar(512)"`
}

// TableName specifies the table name for User.
func (User) TableName() string {
	return "users"
}

// EtoD converts database entity to domain model
func (u *User) EtoD() *user.User {
	return &user.User{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Company:          u.Company,
		PasswordHash:     u.PasswordHash,
		ComposioEntityID: u.ComposioEntityID,
		UpstreamHost:     u.UpstreamHost,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// NewSchemaUser creates a database entity from domain model
func NewSchemaUser(u *user.User) *User {
	return &User{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Company:          u.Company,
		PasswordHash:     u.PasswordHash,
		ComposioEntityID: u.ComposioEntityID,
		UpstreamHost:     u.UpstreamHost,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
