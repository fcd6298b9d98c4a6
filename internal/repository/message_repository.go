package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
)

type MessageRepository interface {
	BaseRepository[models.Message]
	// Conversation returns every message exchanged between a and b, oldest first.
	Conversation(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	// MarkRead flags unread messages from sender to receiver as read.
	MarkRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error)
	GetWithParties(ctx context.Context, id uuid.UUID, dest *models.Message) error
}

type messageRepository struct {
	BaseRepository[models.Message]
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{BaseRepository: NewBaseRepository[models.Message](db, "message"), db: db}
}

func withParties(db *gorm.DB) *gorm.DB {
	summary := func(db *gorm.DB) *gorm.DB { return db.Select(models.SummaryColumns) }
	return db.Preload("Sender", summary).Preload("Receiver", summary)
}

func (r *messageRepository) Conversation(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	out := []models.Message{}
	err := r.db.WithContext(ctx).Scopes(withParties).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError(err, "list conversation failed")
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, mapDBError(res.Error, "mark messages read failed")
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) GetWithParties(ctx context.Context, id uuid.UUID, dest *models.Message) error {
	if err := r.db.WithContext(ctx).Scopes(withParties).First(dest, "id = ?", id).Error; err != nil {
		return mapDBError(err, "get message failed")
	}
	return nil
}
