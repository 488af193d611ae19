package service

import (
	"github.com/Dave-code-creater/chiropractor-sub000/internal/identity"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/repository"
	"go.uber.org/zap"
)

// AccessSnapshot bundles everything the authorization predicate needs,
// fetched up front so the decision itself is a pure function. The layered
// signals guard against identity-resolution drift: a profile created after
// the conversation, or a stale domain id cached in a token.
type AccessSnapshot struct {
	Conversation *model.Conversation
	Signals      repository.AuthSignals
	Resolved     identity.Ref
}

// Authorize evaluates the access layers in strict precedence order; the
// first positive signal wins.
//
//  1. message authorship: anyone who has sent into the conversation keeps
//     read/write access even if their profile link later breaks
//  2. supplied domain id (e.g. cached on the session) matches a participant column
//  3. freshly resolved domain id matches
//  4. unrestricted role
//  5. profile-link join fallback
func Authorize(snap AccessSnapshot, role model.Role, suppliedDomainID *int64) bool {
	conv := snap.Conversation
	if conv == nil {
		return false
	}

	if snap.Signals.HasAuthored {
		return true
	}

	if suppliedDomainID != nil && matchesParticipant(conv, role, *suppliedDomainID) {
		return true
	}

	if snap.Resolved.DomainID != nil && matchesParticipant(conv, role, *snap.Resolved.DomainID) {
		return true
	}

	if role.Unrestricted() {
		return true
	}

	return snap.Signals.ProfileLink
}

func matchesParticipant(conv *model.Conversation, role model.Role, domainID int64) bool {
	switch role {
	case model.RolePatient:
		return conv.PatientID != nil && *conv.PatientID == domainID
	case model.RoleDoctor:
		return conv.DoctorID != nil && *conv.DoctorID == domainID
	}
	return false
}

// authSignalStore is the slice of the conversation repository the authorizer
// needs.
type authSignalStore interface {
	LoadAuthSignals(conversationID, userID int64) (*repository.AuthSignals, error)
}

// Authorizer gates every conversation read and write. It loads one snapshot
// and applies the pure predicate.
type Authorizer struct {
	signals  authSignalStore
	resolver *identity.Resolver
	logger   *zap.Logger
}

func NewAuthorizer(signals authSignalStore, resolver *identity.Resolver, logger *zap.Logger) *Authorizer {
	return &Authorizer{signals: signals, resolver: resolver, logger: logger}
}

// IsParticipant decides whether the principal may read and write the
// conversation. suppliedDomainID is an optional caller-cached domain id; a
// stale value only costs one layer, the fresh resolve still runs.
func (a *Authorizer) IsParticipant(conv *model.Conversation, userID int64, role model.Role, suppliedDomainID *int64) (bool, error) {
	signals, err := a.signals.LoadAuthSignals(conv.ID, userID)
	if err != nil {
		return false, err
	}
	resolved, err := a.resolver.Resolve(userID, role)
	if err != nil {
		return false, err
	}

	allowed := Authorize(AccessSnapshot{
		Conversation: conv,
		Signals:      *signals,
		Resolved:     resolved,
	}, role, suppliedDomainID)

	if !allowed {
		a.logger.Warn("conversation access denied",
			zap.String("conversation_id", conv.ConversationID),
			zap.Int64("user_id", userID),
			zap.String("role", string(role)))
	}
	return allowed, nil
}
