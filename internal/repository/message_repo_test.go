package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The poll protocol depends on (sent_at, id) ascending so timestamp ties
// stay deterministic; pin the exact clause.
func TestListSince_OrderingAndWatermark(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "sent_at"}).
		AddRow(7, 1, 20, "first", since.Add(time.Second)).
		AddRow(8, 1, 20, "second", since.Add(2*time.Second))
	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE conversation_id = \$1 AND sent_at > \$2 ORDER BY sent_at ASC, id ASC LIMIT \$3`).
		WithArgs(int64(1), since, 50).
		WillReturnRows(rows)

	messages, err := repo.ListSince(context.Background(), 1, &since, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSince_NilWatermarkScansFromStart(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE conversation_id = \$1 ORDER BY sent_at ASC, id ASC LIMIT \$2`).
		WithArgs(int64(1), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ListSince(context.Background(), 1, nil, 10)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The insert and the conversation activity bump commit together.
func TestCreateAndBump_SingleTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	sentAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`UPDATE "conversations" SET "last_message_at"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(sentAt, sentAt, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg := &model.Message{
		ConversationID: 1,
		SenderID:       10,
		SenderRole:     model.RolePatient,
		Content:        "hello",
		MessageType:    model.MessageTypeText,
		DeliveryStatus: model.DeliveryStatusSent,
		SentAt:         sentAt,
	}
	require.NoError(t, repo.CreateAndBump(msg))
	assert.Equal(t, int64(7), msg.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Receipts insert with ON CONFLICT DO NOTHING and the aggregate only moves
// off 'sent'; a row already at 'read' is left alone.
func TestMarkDelivered_OnlyAdvancesSentRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "message_receipts" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`UPDATE "messages" SET "delivery_status"=\$1,"updated_at"=\$2 WHERE id IN \(\$3,\$4\) AND sender_id <> \$5 AND delivery_status = \$6`).
		WithArgs(string(model.DeliveryStatusDelivered), sqlmock.AnyArg(),
			int64(7), int64(8), int64(10), string(model.DeliveryStatusSent)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkDelivered(context.Background(), []int64{7, 8}, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDelivered_NoIDsIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	require.NoError(t, repo.MarkDelivered(context.Background(), nil, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Read receipts upsert with a COALESCE so a second mark-read never rewrites
// the original read_at, and the aggregate never regresses from 'read'.
func TestMarkRead_MonotonicUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO message_receipts.*ON CONFLICT \(message_id, user_id\).*COALESCE\(message_receipts\.read_at, EXCLUDED\.read_at\)`).
		WithArgs(int64(10), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE "messages" SET "delivery_status"=\$1,"updated_at"=\$2 WHERE conversation_id = \$3 AND sender_id <> \$4 AND delivery_status <> \$5`).
		WithArgs(string(model.DeliveryStatusRead), sqlmock.AnyArg(),
			int64(1), int64(10), string(model.DeliveryStatusRead)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkRead(1, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread_JoinsReadReceipts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "messages" WHERE conversation_id = \$1 AND sender_id <> \$2 AND NOT EXISTS`).
		WithArgs(int64(1), int64(10), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}
