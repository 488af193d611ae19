package repository

import (
	"errors"
	"strings"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"gorm.io/gorm"
)

// ErrDuplicateActivePair is returned when the partial unique index on the
// active (user_low_id, user_high_id) pair rejects a concurrent insert.
var ErrDuplicateActivePair = errors.New("active conversation already exists for pair")

// ConversationRepository handles database operations for Conversation
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation. A unique-index violation on the active
// pair is translated to ErrDuplicateActivePair so the service can fall back
// to the existing row.
func (r *ConversationRepository) Create(conv *model.Conversation) error {
	err := r.db.Create(conv).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateActivePair
	}
	return err
}

// FindByPublicID finds a conversation by its externally addressable id.
func (r *ConversationRepository) FindByPublicID(conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("conversation_id = ?", conversationID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindActiveByPair finds the active conversation between two user ids,
// regardless of which side initiated it.
func (r *ConversationRepository) FindActiveByPair(userA, userB int64) (*model.Conversation, error) {
	low, high := model.NormalizePair(userA, userB)
	var conv model.Conversation
	err := r.db.
		Where("user_low_id = ? AND user_high_id = ? AND status = ?",
			low, high, model.ConversationStatusActive).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns all non-deleted conversations a user id appears in,
// ordered by latest activity.
func (r *ConversationRepository) ListForUser(userID int64) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.
		Where("(user_low_id = ? OR user_high_id = ?) AND status <> ?",
			userID, userID, model.ConversationStatusDeleted).
		Order("COALESCE(last_message_at, updated_at) DESC").
		Find(&conversations).Error
	return conversations, err
}

// UpdateStatus flips the lifecycle status of a conversation.
func (r *ConversationRepository) UpdateStatus(id int64, status model.ConversationStatus) error {
	return r.db.Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Purge hard-deletes a conversation together with its messages and receipts.
// Admin-only destructive path; the default delete is a status flip.
func (r *ConversationRepository) Purge(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&model.Message{}).Select("id").Where("conversation_id = ?", id),
		).Delete(&model.MessageReceipt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Conversation{}, id).Error
	})
}

// AuthSignals is the single-round-trip authorization evidence for one
// (conversation, user) pair: prior message authorship plus a profile join
// against either participant column.
type AuthSignals struct {
	HasAuthored bool
	ProfileLink bool
}

// LoadAuthSignals gathers the authorship and profile-join signals in one
// query instead of sequential round-trips.
func (r *ConversationRepository) LoadAuthSignals(conversationID, userID int64) (*AuthSignals, error) {
	var signals AuthSignals
	err := r.db.Raw(`
		SELECT
			EXISTS (
				SELECT 1 FROM messages
				WHERE conversation_id = ? AND sender_id = ?
			) AS has_authored,
			EXISTS (
				SELECT 1 FROM conversations c
				LEFT JOIN patients p ON p.id = c.patient_id
				LEFT JOIN doctors d ON d.id = c.doctor_id
				WHERE c.id = ? AND (p.user_id = ? OR d.user_id = ?)
			) AS profile_link`,
		conversationID, userID, conversationID, userID, userID,
	).Scan(&signals).Error
	if err != nil {
		return nil, err
	}
	return &signals, nil
}

// isUniqueViolation detects a unique-constraint error across the driver and
// gorm translation layers (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
