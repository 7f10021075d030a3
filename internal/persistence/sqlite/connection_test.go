package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/speaker-scheduler/internal/persistence"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStorageFromDB(db), mock
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "wrapped no rows", in: errors.Join(errors.New("scan"), sql.ErrNoRows), want: persistence.ErrNotFound},
		{name: "unique", in: errors.New("constraint failed: UNIQUE constraint failed: programs.speaker_id, programs.date (2067)"), want: persistence.ErrDuplicate},
		{name: "primary key", in: errors.New("PRIMARY KEY constraint failed"), want: persistence.ErrDuplicate},
		{name: "foreign key", in: errors.New("FOREIGN KEY constraint failed (787)"), want: persistence.ErrForeignKeyViolation},
		{name: "check", in: errors.New("CHECK constraint failed: talk BETWEEN 1 AND 194"), want: persistence.ErrConstraintViolation},
		{name: "not null", in: errors.New("NOT NULL constraint failed: users.email"), want: persistence.ErrConstraintViolation},
	}

	mapper := NewErrorMapper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapper.MapError(tt.in), tt.want)
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, mapper.MapError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("disk I/O error")
		assert.Same(t, boom, mapper.MapError(boom))
	})
}

func TestProgramRepository_MapsDriverErrors(t *testing.T) {
	t.Parallel()

	t.Run("duplicate booking", func(t *testing.T) {
		t.Parallel()

		storage, mock := newMockStorage(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO programs")).
			WillReturnError(errors.New("UNIQUE constraint failed: programs.speaker_id, programs.date"))

		err := storage.CreateProgram(context.Background(), persistence.Program{
			ID: "p-1", OwnerID: "u-1", SpeakerID: "s-1", Date: "2025-01-11", Time: "10:00", Talk: 12,
		})
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
	})

	t.Run("missing identifiers never reach the database", func(t *testing.T) {
		t.Parallel()

		storage, _ := newMockStorage(t)
		err := storage.CreateProgram(context.Background(), persistence.Program{ID: "p-1", OwnerID: "u-1"})
		assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
	})

	t.Run("delete of an unknown program", func(t *testing.T) {
		t.Parallel()

		storage, mock := newMockStorage(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM programs WHERE id = ?")).
			WithArgs("p-404").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, storage.DeleteProgram(context.Background(), "p-404"), persistence.ErrNotFound)
	})
}

func TestSpeakerRepository_RollsBackOnTalkFailure(t *testing.T) {
	t.Parallel()

	storage, mock := newMockStorage(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO speakers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO speaker_talks")).
		WithArgs("s-1", 300).
		WillReturnError(errors.New("CHECK constraint failed: talk BETWEEN 1 AND 194"))
	mock.ExpectRollback()

	err := storage.CreateSpeaker(context.Background(), persistence.Speaker{
		ID: "s-1", GivenName: "Mario", FamilyName: "Rossi", Talks: []int{300},
	})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestUserRepository_GetUserNotFound(t *testing.T) {
	t.Parallel()

	storage, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs("u-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := storage.GetUser(context.Background(), "u-404")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestUserRepository_LooksUpNormalizedEmail(t *testing.T) {
	t.Parallel()

	storage, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE lower(email) = ?")).
		WithArgs("mario@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := storage.GetUserByEmail(context.Background(), "  Mario@Example.COM ")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `%roma 100\%%`, likePattern("Roma 100%"))
	assert.Equal(t, `%a\_b%`, likePattern("A_b"))
}
