package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
		)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// Find fetches a conversation owned by the user. Soft-deleted and
// foreign-owned rows are indistinguishable from missing ones.
func (r *Repository) Find(ctx context.Context, userID uint, id uuid.UUID) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", id),
				nil,
			)
		}
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to fetch conversation",
			err,
		)
	}

	return entity.EtoD(), nil
}

// ListByUser fetches the user's conversations, most recently updated first.
// A blank convType matches every conversation type.
func (r *Repository) ListByUser(ctx context.Context, userID uint, convType string) ([]domain.Conversation, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC")
	if convType != "" {
		query = query.Where("type = ?", convType)
	}

	var rows []entities.Conversation
	if err := query.Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
		)
	}

	result := make([]domain.Conversation, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}

// Update applies a patch to a conversation and returns the updated row.
func (r *Repository) Update(ctx context.Context, userID uint, id uuid.UUID, patch domain.ConversationPatch) (*domain.Conversation, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Type != nil {
		updates["type"] = *patch.Type
	}
	if patch.Pinned != nil {
		updates["pinned"] = *patch.Pinned
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&entities.Conversation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeDatabaseError,
				"failed to update conversation",
				result.Error,
			)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.New(
				ctx,
				apperrors.LayerRepository,
				apperrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", id),
				nil,
			)
		}
	}

	return r.Find(ctx, userID, id)
}

// Touch bumps a conversation's updated-at timestamp.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to touch conversation",
			err,
		)
	}
	return nil
}

// SoftDelete hides a conversation from all lookups without erasing rows.
func (r *Repository) SoftDelete(ctx context.Context, userID uint, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.Conversation{})
	if result.Error != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to delete conversation",
			result.Error,
		)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %s", id),
			nil,
		)
	}
	return nil
}
