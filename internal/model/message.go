package model

import (
	"time"
)

// MessageType defines the type of message content.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether the message type is known.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// DeliveryStatus is the denormalized aggregate delivery state of a message.
// It only ever advances sent -> delivered -> read; per-viewer truth lives in
// MessageReceipt rows.
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
)

// rank orders delivery states for the monotonic-advance guard.
func (s DeliveryStatus) rank() int {
	switch s {
	case DeliveryStatusDelivered:
		return 1
	case DeliveryStatusRead:
		return 2
	}
	return 0
}

// Advance returns the further-along of the two states. Delivery status never
// regresses, regardless of the order receipts arrive in.
func (s DeliveryStatus) Advance(to DeliveryStatus) DeliveryStatus {
	if to.rank() > s.rank() {
		return to
	}
	return s
}

// Message is an immutable append-only record. Only the delivery-status fields
// change after creation. SenderRole is the sender's role at send time and is
// never rewritten, even if the user's role later changes.
type Message struct {
	ID             int64          `json:"id" gorm:"primaryKey"`
	ConversationID int64          `json:"-" gorm:"not null;index:idx_messages_conv_sent,priority:1"`
	SenderID       int64          `json:"sender_id" gorm:"not null;index"`
	SenderRole     Role           `json:"sender_role" gorm:"type:varchar(20);not null"`
	Content        string         `json:"content" gorm:"type:text;not null"`
	MessageType    MessageType    `json:"message_type" gorm:"type:varchar(20);default:'text'"`
	AttachmentURL  string         `json:"attachment_url,omitempty" gorm:"size:500"`
	AttachmentType string         `json:"attachment_type,omitempty" gorm:"size:50"`
	DeliveryStatus DeliveryStatus `json:"delivery_status" gorm:"type:varchar(20);default:'sent'"`
	SentAt         time.Time      `json:"sent_at" gorm:"not null;index:idx_messages_conv_sent,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Hydrated on read, never stored
	SenderName string `json:"sender_name,omitempty" gorm:"-"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID"`
}

// MessageReceipt tracks delivery and read state per viewer. One row per
// (message, viewer); DeliveredAt is set when a poll hands the message to the
// viewer, ReadAt when the viewer marks the conversation read.
type MessageReceipt struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	MessageID   int64      `json:"message_id" gorm:"not null;uniqueIndex:idx_receipt_msg_user,priority:1"`
	UserID      int64      `json:"user_id" gorm:"not null;uniqueIndex:idx_receipt_msg_user,priority:2"`
	DeliveredAt time.Time  `json:"delivered_at" gorm:"not null"`
	ReadAt      *time.Time `json:"read_at,omitempty"`

	Message Message `json:"-" gorm:"foreignKey:MessageID"`
}
