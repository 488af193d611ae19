package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/repository"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// ---- testify mocks ----

type mockConvStore struct {
	mock.Mock
}

func (m *mockConvStore) Create(conv *model.Conversation) error {
	args := m.Called(conv)
	return args.Error(0)
}

func (m *mockConvStore) FindByPublicID(conversationID string) (*model.Conversation, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConvStore) FindActiveByPair(userA, userB int64) (*model.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConvStore) ListForUser(userID int64) ([]model.Conversation, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *mockConvStore) UpdateStatus(id int64, status model.ConversationStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *mockConvStore) Purge(id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

type mockUserDir struct {
	mock.Mock
}

func (m *mockUserDir) FindByID(id int64) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserDir) DisplayNames(userIDs []int64) (map[int64]string, error) {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]string), args.Error(1)
}

// ---- stubs ----

// stubSignals returns fixed auth evidence for every conversation.
type stubSignals struct {
	signals repository.AuthSignals
	err     error
}

func (s *stubSignals) LoadAuthSignals(conversationID, userID int64) (*repository.AuthSignals, error) {
	if s.err != nil {
		return nil, s.err
	}
	sig := s.signals
	return &sig, nil
}

// stubDirectory resolves profiles from fixed maps; absent means no profile.
type stubDirectory struct {
	patients map[int64]int64 // user id -> patient id
	doctors  map[int64]int64 // user id -> doctor id
}

func (s *stubDirectory) FindPatientByUserID(userID int64) (*model.Patient, error) {
	if id, ok := s.patients[userID]; ok {
		return &model.Patient{ID: id, UserID: userID}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDirectory) FindDoctorByUserID(userID int64) (*model.Doctor, error) {
	if id, ok := s.doctors[userID]; ok {
		return &model.Doctor{ID: id, UserID: userID}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ---- in-memory message store for poll tests ----

// fakeMessageStore is a concurrency-safe in-memory MessageStore. Poll tests
// append into it from a second goroutine while the coordinator waits.
type fakeMessageStore struct {
	mu        sync.Mutex
	nextID    int64
	messages  []model.Message
	delivered map[int64][]int64 // viewer id -> message ids stamped delivered
	listErr   error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1, delivered: make(map[int64][]int64)}
}

func (f *fakeMessageStore) add(conversationID, senderID int64, content string, sentAt time.Time) model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := model.Message{
		ID:             f.nextID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		DeliveryStatus: model.DeliveryStatusSent,
		SentAt:         sentAt,
	}
	f.nextID++
	f.messages = append(f.messages, msg)
	return msg
}

func (f *fakeMessageStore) CreateAndBump(msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = f.nextID
	f.nextID++
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) ListSince(ctx context.Context, conversationID int64, since *time.Time, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if since != nil && !m.SentAt.After(*since) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageStore) ListPage(conversationID int64, before *int64, limit int) ([]model.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) MarkDelivered(ctx context.Context, messageIDs []int64, viewerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[viewerID] = append(f.delivered[viewerID], messageIDs...)
	return nil
}

func (f *fakeMessageStore) MarkRead(conversationID, viewerID int64) error { return nil }

func (f *fakeMessageStore) CountUnread(conversationID, viewerID int64) (int64, error) {
	return 0, nil
}

func (f *fakeMessageStore) deliveredTo(viewerID int64) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.delivered[viewerID]...)
}
