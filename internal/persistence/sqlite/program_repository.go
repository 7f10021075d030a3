package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
)

// ProgramRepository implements persistence.ProgramRepository using SQLite.
// The (speaker_id, date) unique index makes a double booking fail with
// persistence.ErrDuplicate even when two writers race past the service check.
type ProgramRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewProgramRepository creates a new SQLite program repository
func NewProgramRepository(pool *ConnectionPool) *ProgramRepository {
	return &ProgramRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const programColumns = `id, owner_id, speaker_id, date, time, talk, note, created_at, updated_at`

// CreateProgram inserts a new program.
func (r *ProgramRepository) CreateProgram(ctx context.Context, program persistence.Program) error {
	if program.ID == "" || program.OwnerID == "" || program.SpeakerID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	if program.UpdatedAt.IsZero() {
		program.UpdatedAt = now
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO programs (`+programColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		program.ID,
		program.OwnerID,
		program.SpeakerID,
		program.Date,
		program.Time,
		program.Talk,
		program.Note,
		formatTime(program.CreatedAt),
		formatTime(program.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateProgram rewrites every mutable column of an existing program.
func (r *ProgramRepository) UpdateProgram(ctx context.Context, program persistence.Program) error {
	if program.ID == "" {
		return persistence.ErrNotFound
	}
	if program.UpdatedAt.IsZero() {
		program.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE programs
		SET speaker_id = ?, date = ?, time = ?, talk = ?, note = ?, updated_at = ?
		WHERE id = ?`,
		program.SpeakerID,
		program.Date,
		program.Time,
		program.Talk,
		program.Note,
		formatTime(program.UpdatedAt),
		program.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetProgram retrieves a program by ID.
func (r *ProgramRepository) GetProgram(ctx context.Context, id string) (persistence.Program, error) {
	if id == "" {
		return persistence.Program{}, persistence.ErrNotFound
	}
	program, err := scanProgram(r.helper.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE id = ?`, id))
	if err != nil {
		return persistence.Program{}, r.mapper.MapError(err)
	}
	return program, nil
}

// ListPrograms returns programs matching filter ordered by date, time and ID.
func (r *ProgramRepository) ListPrograms(ctx context.Context, filter persistence.ProgramFilter) ([]persistence.Program, error) {
	var clauses []string
	var args []any
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.SpeakerID != "" {
		clauses = append(clauses, "speaker_id = ?")
		args = append(args, filter.SpeakerID)
	}
	if filter.Date != "" {
		clauses = append(clauses, "date = ?")
		args = append(args, filter.Date)
	}

	query := `SELECT ` + programColumns + ` FROM programs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, time, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	programs := []persistence.Program{}
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		programs = append(programs, program)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return programs, nil
}

// DeleteProgram removes a program by ID.
func (r *ProgramRepository) DeleteProgram(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanProgram(row rowScanner) (persistence.Program, error) {
	var program persistence.Program
	var createdAt, updatedAt string
	if err := row.Scan(
		&program.ID,
		&program.OwnerID,
		&program.SpeakerID,
		&program.Date,
		&program.Time,
		&program.Talk,
		&program.Note,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Program{}, err
	}

	var err error
	if program.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Program{}, err
	}
	if program.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Program{}, err
	}
	return program, nil
}
