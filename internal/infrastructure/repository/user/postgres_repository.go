package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// Repository persists user accounts.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a user repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the user record.
func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	entity := entities.NewSchemaUser(u)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to create user",
			err,
		)
	}

	u.ID = entity.ID
	u.CreatedAt = entity.CreatedAt
	u.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByEmail fetches a user by normalized email address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("user not found: %s", email),
				nil,
			)
		}
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to fetch user",
			err,
		)
	}

	return entity.EtoD(), nil
}

// FindByID fetches a user by its internal ID.
func (r *Repository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("user not found: %d", id),
				nil,
			)
		}
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to fetch user",
			err,
		)
	}

	return entity.EtoD(), nil
}

// SetComposioEntityID stores the derived provider entity id for a user.
func (r *Repository) SetComposioEntityID(ctx context.Context, id uint, entityID string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("composio_entity_id", entityID)
	if result.Error != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to set composio entity id",
			result.Error,
		)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeNotFound,
			fmt.Sprintf("user not found: %d", id),
			nil,
		)
	}
	return nil
}
