package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// RunRepository persists workflow execution records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository builds a workflow run repository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts one run record.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	entity := entities.NewSchemaWorkflowRun(run)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to create workflow run",
			err,
		)
	}

	run.ID = entity.ID
	run.CreatedAt = entity.CreatedAt
	run.UpdatedAt = entity.UpdatedAt
	return nil
}

// Complete marks a run as finished and links the conversation it produced.
func (r *RunRepository) Complete(ctx context.Context, id uuid.UUID, conversationID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entities.WorkflowRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          string(domain.RunCompleted),
			"conversation_id": conversationID,
		})
	if result.Error != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to complete workflow run",
			result.Error,
		)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeNotFound,
			fmt.Sprintf("workflow run not found: %s", id),
			nil,
		)
	}
	return nil
}

// ListByWorkflow fetches the run history of one workflow, newest first.
func (r *RunRepository) ListByWorkflow(ctx context.Context, userID uint, workflowID uuid.UUID) ([]domain.Run, error) {
	var rows []entities.WorkflowRun
	if err := r.db.WithContext(ctx).
		Where("workflow_id = ? AND user_id = ?", workflowID, userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list workflow runs",
			err,
		)
	}

	result := make([]domain.Run, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}
