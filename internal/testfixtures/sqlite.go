package testfixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite file with foreign keys enforced.
type SQLiteHarness struct {
	Storage       *sqlite.Storage
	Speakers      persistence.SpeakerRepository
	Programs      persistence.ProgramRepository
	Congregations persistence.CongregationRepository
	Users         persistence.UserRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// SQLiteDSN builds a modernc DSN for path with the pragmas the schema relies on.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// NewSQLiteHarness opens and migrates a database under tb.TempDir. Close is
// also registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "oratori.db")

	storage, err := sqlite.Open(SQLiteDSN(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:       storage,
		Speakers:      storage,
		Programs:      storage,
		Congregations: storage,
		Users:         storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUsers stores users and fails the test on error.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, u := range users {
		if err := h.Users.CreateUser(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("seed user %s: %v", u.ID, err)
		}
	}
}

// SeedSpeakers stores speakers and fails the test on error.
func (h *SQLiteHarness) SeedSpeakers(tb testing.TB, speakers ...SpeakerFixture) {
	tb.Helper()
	for _, s := range speakers {
		if err := h.Speakers.CreateSpeaker(context.Background(), s.Persistence()); err != nil {
			tb.Fatalf("seed speaker %s: %v", s.ID, err)
		}
	}
}

// SeedPrograms stores programs and fails the test on error.
func (h *SQLiteHarness) SeedPrograms(tb testing.TB, programs ...ProgramFixture) {
	tb.Helper()
	for _, p := range programs {
		if err := h.Programs.CreateProgram(context.Background(), p.Persistence()); err != nil {
			tb.Fatalf("seed program %s: %v", p.ID, err)
		}
	}
}
