package service

import (
	"testing"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type msgFixture struct {
	convs *mockConvStore
	users *mockUserDir
	msgs  *fakeMessageStore
	svc   *MessageService
}

func newMsgFixture(auth *Authorizer) *msgFixture {
	convs := new(mockConvStore)
	users := new(mockUserDir)
	msgs := newFakeMessageStore()
	svc := NewMessageService(msgs, convs, users, auth, zap.NewNop())
	return &msgFixture{convs: convs, users: users, msgs: msgs, svc: svc}
}

func TestSend_StampsSenderRoleAndDeliveryStatus(t *testing.T) {
	f := newMsgFixture(allowAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusActive}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)
	f.users.On("DisplayNames", []int64{10}).Return(map[int64]string{10: "Pat Doe"}, nil)

	msg, err := f.svc.Send("conv-1-abc", 10, model.RolePatient, nil, model.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, model.RolePatient, msg.SenderRole)
	assert.Equal(t, model.DeliveryStatusSent, msg.DeliveryStatus)
	assert.Equal(t, model.MessageTypeText, msg.MessageType)
	assert.Equal(t, "Pat Doe", msg.SenderName)
	assert.False(t, msg.SentAt.IsZero())
	assert.NotZero(t, msg.ID)
}

func TestSend_AttachmentDefaultsToFileType(t *testing.T) {
	f := newMsgFixture(allowAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusActive}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)
	f.users.On("DisplayNames", mock.Anything).Return(map[int64]string{}, nil)

	msg, err := f.svc.Send("conv-1-abc", 10, model.RolePatient, nil, model.SendMessageRequest{
		Content:       "see attached",
		AttachmentURL: "https://files.clinic.local/xray.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeFile, msg.MessageType)
}

func TestSend_RejectsUnknownMessageType(t *testing.T) {
	f := newMsgFixture(allowAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusActive}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)

	_, err := f.svc.Send("conv-1-abc", 10, model.RolePatient, nil, model.SendMessageRequest{
		Content:     "hi",
		MessageType: model.MessageType("voice"),
	})

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindBadRequest, apiErr.Kind)
}

// A soft-deleted conversation is indistinguishable from a missing one.
func TestSend_DeletedConversationIs404(t *testing.T) {
	f := newMsgFixture(allowAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusDeleted}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)

	_, err := f.svc.Send("conv-1-abc", 10, model.RolePatient, nil, model.SendMessageRequest{Content: "hello?"})

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
	assert.Equal(t, apierr.CodeConversationGone, apiErr.Code)
}

func TestSend_NonParticipantIs403NotLeaked404(t *testing.T) {
	f := newMsgFixture(denyAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusActive}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)

	_, err := f.svc.Send("conv-1-abc", 99, model.RolePatient, nil, model.SendMessageRequest{Content: "let me in"})

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindForbidden, apiErr.Kind)
	assert.Equal(t, apierr.CodeForbidden, apiErr.Code)
}

func TestSend_UnknownConversationIs404(t *testing.T) {
	f := newMsgFixture(allowAllAuthorizer())
	f.convs.On("FindByPublicID", "conv-missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.Send("conv-missing", 10, model.RolePatient, nil, model.SendMessageRequest{Content: "hi"})

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

func TestMarkRead_RunsThroughAuthorizer(t *testing.T) {
	f := newMsgFixture(denyAllAuthorizer())
	conv := &model.Conversation{ID: 1, ConversationID: "conv-1-abc", UserLowID: 10, UserHighID: 20, Status: model.ConversationStatusActive}
	f.convs.On("FindByPublicID", "conv-1-abc").Return(conv, nil)

	err := f.svc.MarkRead("conv-1-abc", 99, model.RolePatient, nil)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindForbidden, apiErr.Kind)
}
