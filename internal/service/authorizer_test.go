package service

import (
	"testing"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/identity"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func snapshot(conv *model.Conversation, signals repository.AuthSignals, resolved identity.Ref) AccessSnapshot {
	return AccessSnapshot{Conversation: conv, Signals: signals, Resolved: resolved}
}

func TestAuthorize_AuthorshipAlwaysWins(t *testing.T) {
	// No participant columns, no profile, no domain id. Having sent a
	// message into the conversation is enough on its own.
	conv := &model.Conversation{}
	snap := snapshot(conv, repository.AuthSignals{HasAuthored: true}, identity.Ref{Kind: identity.KindPatient})

	assert.True(t, Authorize(snap, model.RolePatient, nil))
}

func TestAuthorize_SuppliedDomainIDMatch(t *testing.T) {
	conv := &model.Conversation{PatientID: ptr(7)}
	snap := snapshot(conv, repository.AuthSignals{}, identity.Ref{Kind: identity.KindPatient})

	assert.True(t, Authorize(snap, model.RolePatient, ptr(7)))
	assert.False(t, Authorize(snap, model.RolePatient, ptr(8)))
}

// A stale cached id only loses one layer; the fresh resolve still matches.
func TestAuthorize_ReResolvedMatchBeatsStaleSuppliedID(t *testing.T) {
	conv := &model.Conversation{DoctorID: ptr(5)}
	snap := snapshot(conv, repository.AuthSignals{}, identity.Ref{Kind: identity.KindDoctor, DomainID: ptr(5)})

	assert.True(t, Authorize(snap, model.RoleDoctor, ptr(999)))
}

func TestAuthorize_RoleMismatchDoesNotCrossColumns(t *testing.T) {
	// A doctor whose domain id happens to equal the patient_id must not match.
	conv := &model.Conversation{PatientID: ptr(5)}
	snap := snapshot(conv, repository.AuthSignals{}, identity.Ref{Kind: identity.KindDoctor, DomainID: ptr(5)})

	assert.False(t, Authorize(snap, model.RoleDoctor, nil))
}

func TestAuthorize_UnrestrictedRoles(t *testing.T) {
	conv := &model.Conversation{PatientID: ptr(1), DoctorID: ptr(2)}
	snap := snapshot(conv, repository.AuthSignals{}, identity.Ref{Kind: identity.KindNone})

	assert.True(t, Authorize(snap, model.RoleAdmin, nil))
	assert.True(t, Authorize(snap, model.RoleStaff, nil))
}

func TestAuthorize_ProfileLinkFallback(t *testing.T) {
	// Profile created after the conversation: columns match nothing the
	// resolver returned, but the join fallback finds the link.
	conv := &model.Conversation{PatientID: ptr(1)}
	snap := snapshot(conv, repository.AuthSignals{ProfileLink: true}, identity.Ref{Kind: identity.KindPatient})

	assert.True(t, Authorize(snap, model.RolePatient, nil))
}

func TestAuthorize_DenyWhenNoSignal(t *testing.T) {
	conv := &model.Conversation{PatientID: ptr(1), DoctorID: ptr(2)}
	snap := snapshot(conv, repository.AuthSignals{}, identity.Ref{Kind: identity.KindPatient, DomainID: ptr(42)})

	assert.False(t, Authorize(snap, model.RolePatient, nil))
	assert.False(t, Authorize(snap, model.RolePatient, ptr(43)))
}

func TestAuthorize_NilConversationDenies(t *testing.T) {
	snap := snapshot(nil, repository.AuthSignals{HasAuthored: true}, identity.Ref{})
	assert.False(t, Authorize(snap, model.RoleAdmin, nil))
}
