package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
)

// CongregationRepository implements persistence.CongregationRepository using SQLite
type CongregationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCongregationRepository creates a new SQLite congregation repository
func NewCongregationRepository(pool *ConnectionPool) *CongregationRepository {
	return &CongregationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const congregationColumns = `id, name, responsible_speaker_id, meeting_schedule, address,
	created_by, updated_by, created_at, updated_at`

// CreateCongregation inserts a new congregation. Names are unique regardless of case.
func (r *CongregationRepository) CreateCongregation(ctx context.Context, congregation persistence.Congregation) error {
	if congregation.ID == "" || strings.TrimSpace(congregation.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if congregation.CreatedAt.IsZero() {
		congregation.CreatedAt = now
	}
	if congregation.UpdatedAt.IsZero() {
		congregation.UpdatedAt = now
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO congregations (`+congregationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		congregation.ID,
		congregation.Name,
		congregation.ResponsibleSpeakerID,
		congregation.MeetingSchedule,
		congregation.Address,
		congregation.CreatedBy,
		congregation.UpdatedBy,
		formatTime(congregation.CreatedAt),
		formatTime(congregation.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateCongregation rewrites an existing congregation.
func (r *CongregationRepository) UpdateCongregation(ctx context.Context, congregation persistence.Congregation) error {
	if congregation.ID == "" {
		return persistence.ErrNotFound
	}
	if congregation.UpdatedAt.IsZero() {
		congregation.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE congregations
		SET name = ?, responsible_speaker_id = ?, meeting_schedule = ?, address = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		congregation.Name,
		congregation.ResponsibleSpeakerID,
		congregation.MeetingSchedule,
		congregation.Address,
		congregation.UpdatedBy,
		formatTime(congregation.UpdatedAt),
		congregation.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetCongregation retrieves a congregation by ID.
func (r *CongregationRepository) GetCongregation(ctx context.Context, id string) (persistence.Congregation, error) {
	if id == "" {
		return persistence.Congregation{}, persistence.ErrNotFound
	}
	congregation, err := scanCongregation(r.helper.QueryRow(ctx,
		`SELECT `+congregationColumns+` FROM congregations WHERE id = ?`, id))
	if err != nil {
		return persistence.Congregation{}, r.mapper.MapError(err)
	}
	return congregation, nil
}

// GetCongregationByName matches the name case-insensitively.
func (r *CongregationRepository) GetCongregationByName(ctx context.Context, name string) (persistence.Congregation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persistence.Congregation{}, persistence.ErrNotFound
	}
	congregation, err := scanCongregation(r.helper.QueryRow(ctx,
		`SELECT `+congregationColumns+` FROM congregations WHERE lower(name) = lower(?)`, name))
	if err != nil {
		return persistence.Congregation{}, r.mapper.MapError(err)
	}
	return congregation, nil
}

// ListCongregations returns every congregation ordered by name.
func (r *CongregationRepository) ListCongregations(ctx context.Context) ([]persistence.Congregation, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+congregationColumns+` FROM congregations ORDER BY lower(name), id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	congregations := []persistence.Congregation{}
	for rows.Next() {
		congregation, err := scanCongregation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		congregations = append(congregations, congregation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return congregations, nil
}

// DeleteCongregation removes a congregation by ID.
func (r *CongregationRepository) DeleteCongregation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM congregations WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanCongregation(row rowScanner) (persistence.Congregation, error) {
	var c persistence.Congregation
	var createdAt, updatedAt string
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ResponsibleSpeakerID,
		&c.MeetingSchedule,
		&c.Address,
		&c.CreatedBy,
		&c.UpdatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Congregation{}, err
	}

	var err error
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Congregation{}, err
	}
	if c.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Congregation{}, err
	}
	return c, nil
}
