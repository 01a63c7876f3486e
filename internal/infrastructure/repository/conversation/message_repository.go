package conversation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// MessageRepository persists the append-only message log.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository builds a message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts one message row.
func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	entity := entities.NewSchemaMessage(m)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to create message",
			err,
		)
	}

	m.ID = entity.ID
	m.CreatedAt = entity.CreatedAt
	return nil
}

// ListByConversation fetches the user's messages for one conversation in
// insertion order: creation time first, turn sequence as the tie-breaker.
func (r *MessageRepository) ListByConversation(ctx context.Context, userID uint, conversationID uuid.UUID) ([]domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Order("created_at ASC, sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.New(
			ctx,
			apperrors.LayerRepository,
			apperrors.ErrorTypeDatabaseError,
			"failed to list messages",
			err,
		)
	}

	result := make([]domain.Message, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}
