package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/identity"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/policy"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConversationStore is the persistence surface the conversation service
// depends on.
type ConversationStore interface {
	Create(conv *model.Conversation) error
	FindByPublicID(conversationID string) (*model.Conversation, error)
	FindActiveByPair(userA, userB int64) (*model.Conversation, error)
	ListForUser(userID int64) ([]model.Conversation, error)
	UpdateStatus(id int64, status model.ConversationStatus) error
	Purge(id int64) error
}

// UserDirectory is the user/profile lookup surface.
type UserDirectory interface {
	FindByID(id int64) (*model.User, error)
	DisplayNames(userIDs []int64) (map[int64]string, error)
}

// UnreadCounter exposes the unread tally used when hydrating listings.
type UnreadCounter interface {
	CountUnread(conversationID, viewerID int64) (int64, error)
}

// ConversationService owns conversation lifecycle: role-gated creation
// (idempotent per active pair), listing, and status transitions.
type ConversationService struct {
	convs    ConversationStore
	users    UserDirectory
	unread   UnreadCounter
	resolver *identity.Resolver
	auth     *Authorizer
	logger   *zap.Logger
}

func NewConversationService(
	convs ConversationStore,
	users UserDirectory,
	unread UnreadCounter,
	resolver *identity.Resolver,
	auth *Authorizer,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		convs:    convs,
		users:    users,
		unread:   unread,
		resolver: resolver,
		auth:     auth,
		logger:   logger,
	}
}

// Create opens a conversation between the requester and a target user, or
// returns the existing active one for the pair. Policy runs before any
// persistence; the partial unique index makes the check-then-insert race
// collapse back to the winner's row.
func (s *ConversationService) Create(requesterID int64, requesterRole model.Role, req model.CreateConversationRequest) (*model.ConversationResponse, error) {
	target, err := s.users.FindByID(req.TargetUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeTargetNotFound, "target user not found")
		}
		return nil, apierr.Internal("failed to load target user", err)
	}

	decision := policy.Decide(requesterRole, target.Role)
	if !decision.Allowed {
		return nil, apierr.Forbidden(decision.ReasonCode, decision.Reason)
	}
	if decision.Pairing == policy.PairingUnrestricted {
		s.logger.Warn("conversation between unrestricted principals",
			zap.Int64("requester_id", requesterID),
			zap.Int64("target_id", target.ID),
			zap.String("requester_role", string(requesterRole)),
			zap.String("target_role", string(target.Role)))
	}

	if existing, err := s.convs.FindActiveByPair(requesterID, target.ID); err == nil {
		return s.hydrate(existing, requesterID, false)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Internal("failed to check existing conversation", err)
	}

	requesterRef, err := s.resolver.Resolve(requesterID, requesterRole)
	if err != nil {
		return nil, apierr.Internal("failed to resolve requester identity", err)
	}
	targetRef, err := s.resolver.Resolve(target.ID, target.Role)
	if err != nil {
		return nil, apierr.Internal("failed to resolve target identity", err)
	}

	low, high := model.NormalizePair(requesterID, target.ID)
	conv := &model.Conversation{
		ConversationID:  newConversationID(),
		UserLowID:       low,
		UserHighID:      high,
		Title:           req.Subject,
		Description:     req.Description,
		ParticipantType: string(decision.Pairing),
		Status:          model.ConversationStatusActive,
	}
	assignParticipant(conv, requesterRef.Participant())
	assignParticipant(conv, targetRef.Participant())

	if err := s.convs.Create(conv); err != nil {
		if errors.Is(err, repository.ErrDuplicateActivePair) {
			// Lost the creation race; the winner's row is the conversation.
			winner, ferr := s.convs.FindActiveByPair(requesterID, target.ID)
			if ferr != nil {
				return nil, apierr.Conflict(apierr.CodeDuplicatePair, "conversation already exists for pair")
			}
			return s.hydrate(winner, requesterID, false)
		}
		return nil, apierr.Internal("failed to create conversation", err)
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ConversationID),
		zap.Int64("requester_id", requesterID),
		zap.Int64("target_id", target.ID),
		zap.String("participant_type", conv.ParticipantType))

	return s.hydrate(conv, requesterID, true)
}

// Get returns a conversation the principal is authorized to see. Unknown ids
// and unauthorized access stay distinct: 404 vs 403.
func (s *ConversationService) Get(conversationID string, userID int64, role model.Role, domainID *int64) (*model.ConversationResponse, error) {
	conv, err := s.load(conversationID)
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
	return s.hydrate(conv, userID, false)
}

// List returns the caller's conversations with partner names and unread
// counts.
func (s *ConversationService) List(userID int64) ([]model.ConversationResponse, error) {
	conversations, err := s.convs.ListForUser(userID)
	if err != nil {
		return nil, apierr.Internal("failed to list conversations", err)
	}

	partnerIDs := make([]int64, 0, len(conversations))
	for i := range conversations {
		partnerIDs = append(partnerIDs, conversations[i].OtherUserID(userID))
	}
	names, err := s.users.DisplayNames(partnerIDs)
	if err != nil {
		return nil, apierr.Internal("failed to resolve partner names", err)
	}

	result := make([]model.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		unread, _ := s.unread.CountUnread(conversations[i].ID, userID)
		result = append(result, model.ConversationResponse{
			Conversation: conversations[i],
			PartnerName:  names[conversations[i].OtherUserID(userID)],
			UnreadCount:  int(unread),
		})
	}
	return result, nil
}

// UpdateStatus flips the conversation lifecycle state. Closing is gated to
// doctor/admin/staff; the soft delete is open to any participant.
func (s *ConversationService) UpdateStatus(conversationID string, status model.ConversationStatus, userID int64, role model.Role, domainID *int64) (*model.ConversationResponse, error) {
	if !status.Valid() {
		return nil, apierr.BadRequest("unknown conversation status")
	}
	conv, err := s.load(conversationID)
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
	if status == model.ConversationStatusClosed && role == model.RolePatient {
		return nil, apierr.Forbidden(apierr.CodeStatusGated, "only doctors and staff may close conversations")
	}

	if err := s.convs.UpdateStatus(conv.ID, status); err != nil {
		return nil, apierr.Internal("failed to update conversation status", err)
	}
	conv.Status = status

	s.logger.Info("conversation status updated",
		zap.String("conversation_id", conv.ConversationID),
		zap.Int64("user_id", userID),
		zap.String("status", string(status)))

	return s.hydrate(conv, userID, false)
}

// Purge hard-deletes a conversation and everything under it. Admin only;
// everyone else gets the soft status flip via UpdateStatus.
func (s *ConversationService) Purge(conversationID string, role model.Role) error {
	if role != model.RoleAdmin {
		return apierr.Forbidden(apierr.CodeForbidden, "only admins may purge conversations")
	}
	conv, err := s.load(conversationID)
	if err != nil {
		return err
	}
	if err := s.convs.Purge(conv.ID); err != nil {
		return apierr.Internal("failed to purge conversation", err)
	}
	s.logger.Info("conversation purged", zap.String("conversation_id", conversationID))
	return nil
}

// load fetches by public id, translating not-found into the 404 taxonomy.
func (s *ConversationService) load(conversationID string) (*model.Conversation, error) {
	conv, err := s.convs.FindByPublicID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeConversationGone, "conversation not found")
		}
		return nil, apierr.Internal("failed to load conversation", err)
	}
	return conv, nil
}

func (s *ConversationService) hydrate(conv *model.Conversation, viewerID int64, isNew bool) (*model.ConversationResponse, error) {
	partnerID := conv.OtherUserID(viewerID)
	names, err := s.users.DisplayNames([]int64{partnerID})
	if err != nil {
		return nil, apierr.Internal("failed to resolve partner name", err)
	}
	unread := int64(0)
	if !isNew {
		unread, _ = s.unread.CountUnread(conv.ID, viewerID)
	}
	return &model.ConversationResponse{
		Conversation: *conv,
		PartnerName:  names[partnerID],
		UnreadCount:  int(unread),
		IsNew:        isNew,
	}, nil
}

// assignParticipant flattens a tagged participant into the nullable storage
// columns. Unrestricted sides occupy neither; a profile-less patient or
// doctor leaves its column null as well.
func assignParticipant(conv *model.Conversation, p model.Participant) {
	switch p.Kind {
	case model.ParticipantPatient:
		conv.PatientID = p.DomainID
	case model.ParticipantDoctor:
		conv.DoctorID = p.DomainID
	}
}

// newConversationID builds the externally addressable id: millisecond
// timestamp plus a random suffix. Collisions are negligible and the unique
// index makes creation retryable regardless.
func newConversationID() string {
	return fmt.Sprintf("conv-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
