package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
// Deletion is a status flip, not a row delete; the admin purge path is the
// only operation that removes rows.
type ConversationStatus string

const (
	ConversationStatusActive  ConversationStatus = "active"
	ConversationStatusClosed  ConversationStatus = "closed"
	ConversationStatusDeleted ConversationStatus = "deleted"
)

// Valid reports whether the status is a known lifecycle state.
func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationStatusActive, ConversationStatusClosed, ConversationStatusDeleted:
		return true
	}
	return false
}

// ParticipantKind tags which side of a conversation a resolved principal
// occupies.
type ParticipantKind string

const (
	ParticipantPatient      ParticipantKind = "patient"
	ParticipantDoctor       ParticipantKind = "doctor"
	ParticipantUnrestricted ParticipantKind = "unrestricted"
)

// Participant is the tagged form of one conversation side: a patient domain
// id, a doctor domain id, or an unrestricted staff principal with neither.
// It is flattened into the nullable patient_id/doctor_id columns only at the
// storage boundary.
type Participant struct {
	Kind     ParticipantKind
	DomainID *int64 // nil for unrestricted, and for profile-less patients/doctors
}

// Conversation represents a thread between two principals. The unordered
// (user_low_id, user_high_id) pair carries the idempotency guarantee: at most
// one active conversation may exist per pair, enforced by a partial unique
// index.
type Conversation struct {
	ID              int64              `json:"-" gorm:"primaryKey"`
	ConversationID  string             `json:"conversation_id" gorm:"uniqueIndex;size:64;not null"`
	UserLowID       int64              `json:"-" gorm:"not null;index:idx_conversations_pair"`
	UserHighID      int64              `json:"-" gorm:"not null;index:idx_conversations_pair"`
	PatientID       *int64             `json:"patient_id,omitempty" gorm:"index"`
	DoctorID        *int64             `json:"doctor_id,omitempty" gorm:"index"`
	Title           string             `json:"title" gorm:"size:255"`
	Description     string             `json:"description" gorm:"type:text"`
	ParticipantType string             `json:"participant_type" gorm:"size:40"`
	Status          ConversationStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	LastMessageAt   *time.Time         `json:"last_message_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	// Relations
	Patient *Patient `json:"-" gorm:"foreignKey:PatientID"`
	Doctor  *Doctor  `json:"-" gorm:"foreignKey:DoctorID"`
}

// OtherUserID returns the counterpart of userID in the stored pair.
func (c *Conversation) OtherUserID(userID int64) int64 {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

// HasUser reports whether userID is one of the two principals the
// conversation was created between.
func (c *Conversation) HasUser(userID int64) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// NormalizePair orders two user ids into the (low, high) form the pair
// columns store. The order of the arguments never matters to idempotency.
func NormalizePair(a, b int64) (low, high int64) {
	if a > b {
		return b, a
	}
	return a, b
}
