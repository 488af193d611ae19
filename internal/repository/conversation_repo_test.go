package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// The pair is normalized before it hits SQL, so both argument orders query
// the same row.
func TestFindActiveByPair_NormalizesOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "user_low_id", "user_high_id", "status"}).
		AddRow(42, "conv-1-abc", 10, 20, "active")
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE user_low_id = \$1 AND user_high_id = \$2 AND status = \$3`).
		WithArgs(int64(10), int64(20), string(model.ConversationStatusActive), 1).
		WillReturnRows(rows)

	conv, err := repo.FindActiveByPair(20, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(42), conv.ID)
	assert.Equal(t, "conv-1-abc", conv.ConversationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_TranslatesUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "uq_conversations_active_pair" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Create(&model.Conversation{
		ConversationID: "conv-2-def",
		UserLowID:      10,
		UserHighID:     20,
		Status:         model.ConversationStatusActive,
	})
	assert.ErrorIs(t, err, ErrDuplicateActivePair)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_PassesThroughOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	err := repo.Create(&model.Conversation{ConversationID: "conv-3-ghi", UserLowID: 1, UserHighID: 2})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateActivePair)
}

func TestListForUser_ExcludesDeletedOrdersByActivity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "user_low_id", "user_high_id", "status"}).
		AddRow(2, "conv-b", 3, 10, "active").
		AddRow(1, "conv-a", 10, 20, "closed")
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE \(user_low_id = \$1 OR user_high_id = \$2\) AND status <> \$3 ORDER BY COALESCE\(last_message_at, updated_at\) DESC`).
		WithArgs(int64(10), int64(10), string(model.ConversationStatusDeleted)).
		WillReturnRows(rows)

	conversations, err := repo.ListForUser(10)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "conv-b", conversations[0].ConversationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAuthSignals_SingleRoundTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)

	rows := sqlmock.NewRows([]string{"has_authored", "profile_link"}).AddRow(true, false)
	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs(int64(42), int64(10), int64(42), int64(10), int64(10)).
		WillReturnRows(rows)

	signals, err := repo.LoadAuthSignals(42, 10)
	require.NoError(t, err)
	assert.True(t, signals.HasAuthored)
	assert.False(t, signals.ProfileLink)
	require.NoError(t, mock.ExpectationsWereMet())
}
