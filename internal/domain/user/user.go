package user

import (
	"context"
	"time"
)

// User is a registered account. PasswordHash never leaves the domain layer.
// ComposioEntityID is derived lazily on the first integration connect.
// UpstreamHost, when assigned, routes the account's message turns to a remote
// backend instead of the local agent process.
type User struct {
	ID               uint
	Email            string
	Name             string
	Company          string
	PasswordHash     string
	ComposioEntityID string
	UpstreamHost     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repository persists users. FindByEmail and FindByID return a NOT_FOUND
// application error when no row matches.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	SetComposioEntityID(ctx context.Context, id uint, entityID string) error
}
