package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageStore is the persistence surface for messages and receipts.
type MessageStore interface {
	CreateAndBump(msg *model.Message) error
	ListSince(ctx context.Context, conversationID int64, since *time.Time, limit int) ([]model.Message, error)
	ListPage(conversationID int64, before *int64, limit int) ([]model.Message, error)
	MarkDelivered(ctx context.Context, messageIDs []int64, viewerID int64) error
	MarkRead(conversationID, viewerID int64) error
	CountUnread(conversationID, viewerID int64) (int64, error)
}

// conversationLookup is the read-only slice of the conversation store the
// message paths need.
type conversationLookup interface {
	FindByPublicID(conversationID string) (*model.Conversation, error)
}

// MessageService owns the send protocol, history reads, and read receipts.
// Every path runs the authorizer before touching message rows.
type MessageService struct {
	msgs   MessageStore
	convs  conversationLookup
	users  UserDirectory
	auth   *Authorizer
	logger *zap.Logger
}

func NewMessageService(
	msgs MessageStore,
	convs conversationLookup,
	users UserDirectory,
	auth *Authorizer,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{msgs: msgs, convs: convs, users: users, auth: auth, logger: logger}
}

// Send appends a message to the conversation. The insert and the
// conversation timestamp bump commit together; sender role is denormalized
// at send time and never rewritten.
func (s *MessageService) Send(conversationID string, senderID int64, senderRole model.Role, domainID *int64, req model.SendMessageRequest) (*model.Message, error) {
	conv, err := s.authorizedConversation(conversationID, senderID, senderRole, domainID)
	if err != nil {
		return nil, err
	}
	if conv.Status == model.ConversationStatusDeleted {
		return nil, apierr.NotFound(apierr.CodeConversationGone, "conversation not found")
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = model.MessageTypeText
		if req.AttachmentURL != "" {
			msgType = model.MessageTypeFile
		}
	}
	if !msgType.Valid() {
		return nil, apierr.BadRequest("unknown message type")
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderRole:     senderRole,
		Content:        req.Content,
		MessageType:    msgType,
		AttachmentURL:  req.AttachmentURL,
		AttachmentType: req.AttachmentType,
		DeliveryStatus: model.DeliveryStatusSent,
		SentAt:         time.Now(),
	}
	if err := s.msgs.CreateAndBump(msg); err != nil {
		s.logger.Error("message insert failed",
			zap.String("conversation_id", conversationID),
			zap.Int64("sender_id", senderID),
			zap.Error(err))
		return nil, apierr.Internal("failed to send message", err)
	}

	names, nerr := s.users.DisplayNames([]int64{senderID})
	if nerr == nil {
		msg.SenderName = names[senderID]
	}
	return msg, nil
}

// History returns paginated messages, newest first, for the non-polling read
// path.
func (s *MessageService) History(conversationID string, userID int64, role model.Role, domainID *int64, before *int64, limit int) ([]model.Message, error) {
	conv, err := s.authorizedConversation(conversationID, userID, role, domainID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, err := s.msgs.ListPage(conv.ID, before, limit)
	if err != nil {
		return nil, apierr.Internal("failed to load messages", err)
	}
	s.hydrateSenderNames(messages)
	return messages, nil
}

// MarkRead stamps the viewer's read receipts across the conversation.
func (s *MessageService) MarkRead(conversationID string, userID int64, role model.Role, domainID *int64) error {
	conv, err := s.authorizedConversation(conversationID, userID, role, domainID)
	if err != nil {
		return err
	}
	if err := s.msgs.MarkRead(conv.ID, userID); err != nil {
		return apierr.Internal("failed to mark messages read", err)
	}
	return nil
}

// Lookup loads a conversation by public id with the 404 taxonomy applied and
// no authorization, for callers that gate access themselves (the poller).
func (s *MessageService) Lookup(conversationID string) (*model.Conversation, error) {
	conv, err := s.convs.FindByPublicID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeConversationGone, "conversation not found")
		}
		return nil, apierr.Internal("failed to load conversation", err)
	}
	return conv, nil
}

// authorizedConversation loads by public id (404 on unknown) and gates
// access (403 on denial), keeping the two outcomes distinct.
func (s *MessageService) authorizedConversation(conversationID string, userID int64, role model.Role, domainID *int64) (*model.Conversation, error) {
	conv, err := s.Lookup(conversationID)
	if err != nil {
		return nil, err
	}
	ok, err := s.auth.IsParticipant(conv, userID, role, domainID)
	if err != nil {
		return nil, apierr.Internal("authorization check failed", err)
	}
	if !ok {
		return nil, apierr.Forbidden(apierr.CodeForbidden, "not a participant of this conversation")
	}
	return conv, nil
}

func (s *MessageService) hydrateSenderNames(messages []model.Message) {
	if len(messages) == 0 {
		return
	}
	ids := make([]int64, 0, len(messages))
	seen := map[int64]bool{}
	for i := range messages {
		if !seen[messages[i].SenderID] {
			seen[messages[i].SenderID] = true
			ids = append(ids, messages[i].SenderID)
		}
	}
	names, err := s.users.DisplayNames(ids)
	if err != nil {
		return // display names are cosmetic, never fail the read
	}
	for i := range messages {
		messages[i].SenderName = names[messages[i].SenderID]
	}
}
