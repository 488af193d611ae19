package model

import "time"

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Role      Role   `json:"role" binding:"omitempty,oneof=patient doctor admin staff"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ========== Conversation DTOs ==========

type CreateConversationRequest struct {
	TargetUserID int64  `json:"target_user_id" binding:"required"`
	Subject      string `json:"subject" binding:"required,max=255"`
	Description  string `json:"description" binding:"max=2000"`
	Priority     string `json:"priority" binding:"omitempty,oneof=low normal high"`
}

type UpdateConversationStatusRequest struct {
	Status ConversationStatus `json:"status" binding:"required,oneof=active closed deleted"`
}

// ConversationResponse is a hydrated conversation row: the stored record plus
// display names resolved via joins and the caller's unread count.
type ConversationResponse struct {
	Conversation
	PartnerName string `json:"partner_name,omitempty"`
	UnreadCount int    `json:"unread_count"`
	IsNew       bool   `json:"is_new,omitempty"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Content        string      `json:"content" binding:"required"`
	MessageType    MessageType `json:"message_type" binding:"omitempty,oneof=text image file system"`
	AttachmentURL  string      `json:"attachment_url" binding:"omitempty,url,max=500"`
	AttachmentType string      `json:"attachment_type" binding:"max=50"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor: message id to page backwards from
	Limit  int    `form:"limit,default=50"`
}

// PollRequest carries the long-poll query parameters after validation.
type PollRequest struct {
	Since   *time.Time
	Timeout time.Duration
	Max     int
}

// PollResponse is the long-poll result. A timeout is a normal empty response,
// never an error.
type PollResponse struct {
	Messages      []Message `json:"messages"`
	HasMore       bool      `json:"has_more"`
	NextWatermark time.Time `json:"next_watermark"`
}

// ========== WebSocket Event DTOs ==========

// WSEvent is the envelope for the convenience broadcast path. It is advisory
// only; the poll endpoint is the authoritative retrieval protocol.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSEventNewMessage  = "new_message"
	WSEventMessageRead = "message_read"
	WSEventOnline      = "online"
	WSEventOffline     = "offline"
	WSEventTyping      = "typing"
)

type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
}

type OnlineEvent struct {
	UserID   int64 `json:"user_id"`
	IsOnline bool  `json:"is_online"`
}

type MessageReadEvent struct {
	ConversationID string    `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
