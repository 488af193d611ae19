package repository

import (
	"context"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository handles database operations for Message and
// MessageReceipt rows.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateAndBump inserts the message and bumps the owning conversation's
// last_message_at inside one transaction, so a conversation list can never
// sort ahead of a message that failed to persist.
func (r *MessageRepository) CreateAndBump(msg *model.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_at": msg.SentAt,
				"updated_at":      msg.SentAt,
			}).Error
	})
}

// FindByID finds a message by id
func (r *MessageRepository) FindByID(id int64) (*model.Message, error) {
	var msg model.Message
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListSince returns messages in a conversation newer than the watermark,
// ordered by (sent_at, id) ascending so ties on the timestamp stay
// deterministic. A nil watermark returns from the beginning. The context is
// honored so a cancelled long-poll releases its query promptly.
func (r *MessageRepository) ListSince(ctx context.Context, conversationID int64, since *time.Time, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Limit(limit)
	if since != nil {
		query = query.Where("sent_at > ?", *since)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// ListPage returns paginated history for a conversation (cursor-based,
// newest first) for the non-polling read path.
func (r *MessageRepository) ListPage(conversationID int64, before *int64, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC, id DESC").
		Limit(limit)
	if before != nil {
		var cursor model.Message
		if err := r.db.Select("sent_at", "id").Where("id = ?", *before).First(&cursor).Error; err != nil {
			return nil, err
		}
		query = query.Where("(sent_at, id) < (?, ?)", cursor.SentAt, cursor.ID)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// MarkDelivered stamps per-viewer delivered receipts for the given messages
// and advances the aggregate delivery status. Both writes are monotonic:
// existing receipts are untouched and a read status never regresses to
// delivered.
func (r *MessageRepository) MarkDelivered(ctx context.Context, messageIDs []int64, viewerID int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	now := time.Now()
	receipts := make([]model.MessageReceipt, 0, len(messageIDs))
	for _, id := range messageIDs {
		receipts = append(receipts, model.MessageReceipt{
			MessageID:   id,
			UserID:      viewerID,
			DeliveredAt: now,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error; err != nil {
			return err
		}
		return tx.Model(&model.Message{}).
			Where("id IN ? AND sender_id <> ? AND delivery_status = ?",
				messageIDs, viewerID, model.DeliveryStatusSent).
			Update("delivery_status", model.DeliveryStatusDelivered).Error
	})
}

// MarkRead sets read_at on the viewer's receipts for every message in the
// conversation sent by others, creating receipts where a poll never delivered
// them, and advances the aggregate status to read.
func (r *MessageRepository) MarkRead(conversationID, viewerID int64) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO message_receipts (message_id, user_id, delivered_at, read_at)
			SELECT m.id, ?, ?, ?
			FROM messages m
			WHERE m.conversation_id = ? AND m.sender_id <> ?
			ON CONFLICT (message_id, user_id)
			DO UPDATE SET read_at = COALESCE(message_receipts.read_at, EXCLUDED.read_at)`,
			viewerID, now, now, conversationID, viewerID,
		).Error; err != nil {
			return err
		}
		return tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND delivery_status <> ?",
				conversationID, viewerID, model.DeliveryStatusRead).
			Update("delivery_status", model.DeliveryStatusRead).Error
	})
}

// CountUnread counts messages from others that the viewer has no read
// receipt for.
func (r *MessageRepository) CountUnread(conversationID, viewerID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, viewerID).
		Where("NOT EXISTS (SELECT 1 FROM message_receipts mr WHERE mr.message_id = messages.id AND mr.user_id = ? AND mr.read_at IS NOT NULL)", viewerID).
		Count(&count).Error
	return count, err
}
