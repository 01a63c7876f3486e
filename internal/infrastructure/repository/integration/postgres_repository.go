package integration

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// Repository persists the integration catalog and per-user connections.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an integration repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListAll fetches the full integration catalog in display order.
func (r *Repository) ListAll(ctx context.Context) ([]domain.Integration, error) {
	var rows []entities.Integration
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list integrations",
			err,
		)
	}

	result := make([]domain.Integration, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}

// FindBySlug fetches one catalog integration by its slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*domain.Integration, error) {
	var entity entities.Integration
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("integration not found: %s", slug),
				nil,
			)
		}
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to fetch integration",
			err,
		)
	}

	return entity.EtoD(), nil
}

// ListUserConnections fetches the user's connection state for every
// integration they have touched.
func (r *Repository) ListUserConnections(ctx context.Context, userID uint) ([]domain.UserConnection, error) {
	var rows []entities.UserIntegration
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list user connections",
			err,
		)
	}

	result := make([]domain.UserConnection, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}

// Upsert replaces the user's connection state for one integration.
func (r *Repository) Upsert(ctx context.Context, conn *domain.UserConnection) error {
	entity := entities.NewSchemaUserIntegration(conn)

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "integration_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "composio_connection_id", "connected_at", "updated_at",
			}),
		}).
		Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to upsert user connection",
			err,
		)
	}

	conn.ID = entity.ID
	return nil
}
