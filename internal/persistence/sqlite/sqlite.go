package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseMu guards goose's package level dialect and filesystem settings.
var gooseMu sync.Mutex

// Storage bundles the SQLite repositories over a single connection pool.
type Storage struct {
	*SpeakerRepository
	*ProgramRepository
	*CongregationRepository
	*UserRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the SQLite database at dsn.
func Open(dsn string) (*Storage, error) {
	return OpenWithLogger(dsn, nil)
}

// OpenWithLogger connects to dsn and logs migrations through logger.
func OpenWithLogger(dsn string, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return newStorage(pool, logger), nil
}

// NewStorageFromDB wraps an existing handle, mainly for tests.
func NewStorageFromDB(db *sql.DB) *Storage {
	return newStorage(NewConnectionPoolFromDB(db), nil)
}

func newStorage(pool *ConnectionPool, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		SpeakerRepository:      NewSpeakerRepository(pool),
		ProgramRepository:      NewProgramRepository(pool),
		CongregationRepository: NewCongregationRepository(pool),
		UserRepository:         NewUserRepository(pool),
		pool:                   pool,
		logger:                 logger,
	}
}

// DB exposes the underlying handle.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: s.logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := goose.Up(s.pool.DB(), "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...), "component", "migrations")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "migrations")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func parseOptionalTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// likePattern builds a case-insensitive substring pattern for "lower(col) LIKE ? ESCAPE '\'".
func likePattern(value string) string {
	var b []rune
	for _, r := range value {
		switch r {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, r)
	}
	return "%" + string(toLower(b)) + "%"
}

func toLower(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out[i] = r
	}
	return out
}
