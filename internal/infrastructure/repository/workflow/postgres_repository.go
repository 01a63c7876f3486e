package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// Repository persists workflows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a workflow repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the workflow record.
func (r *Repository) Create(ctx context.Context, w *domain.Workflow) error {
	entity, err := entities.NewSchemaWorkflow(w)
	if err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeInternal,
			"failed to encode workflow",
			err,
		)
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to create workflow",
			err,
		)
	}

	w.ID = entity.ID
	w.CreatedAt = entity.CreatedAt
	w.UpdatedAt = entity.UpdatedAt
	return nil
}

// Find fetches a workflow owned by the user.
func (r *Repository) Find(ctx context.Context, userID uint, id uuid.UUID) (*domain.Workflow, error) {
	var entity entities.Workflow
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("workflow not found: %s", id),
				nil,
			)
		}
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to fetch workflow",
			err,
		)
	}

	return r.decode(ctx, &entity)
}

// ListByUser fetches the user's workflows, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]domain.Workflow, error) {
	var rows []entities.Workflow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list workflows",
			err,
		)
	}
	return r.decodeAll(ctx, rows)
}

// ListActive fetches every active workflow across all users for the
// scheduler tick.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Workflow, error) {
	var rows []entities.Workflow
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list active workflows",
			err,
		)
	}
	return r.decodeAll(ctx, rows)
}

// Update applies a patch to a workflow and returns the updated row.
func (r *Repository) Update(ctx context.Context, userID uint, id uuid.UUID, patch domain.WorkflowPatch) (*domain.Workflow, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Prompt != nil {
		updates["prompt"] = *patch.Prompt
	}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}
	if patch.RunOptions != nil {
		encoded, err := entities.NewSchemaWorkflow(&domain.Workflow{RunOptions: *patch.RunOptions})
		if err != nil {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeInternal,
				"failed to encode run options",
				err,
			)
		}
		updates["run_options"] = encoded.RunOptions
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&entities.Workflow{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeDatabaseError,
				"failed to update workflow",
				result.Error,
			)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("workflow not found: %s", id),
				nil,
			)
		}
	}

	return r.Find(ctx, userID, id)
}

// MarkRun records the moment a workflow last executed.
func (r *Repository) MarkRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&entities.Workflow{}).
		Where("id = ?", id).
		Update("last_run_at", at).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to mark workflow run",
			err,
		)
	}
	return nil
}

// SoftDelete hides a workflow from all lookups and from the scheduler.
func (r *Repository) SoftDelete(ctx context.Context, userID uint, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.Workflow{})
	if result.Error != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to delete workflow",
			result.Error,
		)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeNotFound,
			fmt.Sprintf("workflow not found: %s", id),
			nil,
		)
	}
	return nil
}

func (r *Repository) decode(ctx context.Context, entity *entities.Workflow) (*domain.Workflow, error) {
	w, err := entity.EtoD()
	if err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeInternal,
			"failed to decode workflow",
			err,
		)
	}
	return w, nil
}

func (r *Repository) decodeAll(ctx context.Context, rows []entities.Workflow) ([]domain.Workflow, error) {
	result := make([]domain.Workflow, len(rows))
	for i := range rows {
		w, err := r.decode(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		result[i] = *w
	}
	return result, nil
}
