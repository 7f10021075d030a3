package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
)

// SpeakerRepository implements persistence.SpeakerRepository using SQLite
type SpeakerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSpeakerRepository creates a new SQLite speaker repository
func NewSpeakerRepository(pool *ConnectionPool) *SpeakerRepository {
	return &SpeakerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const speakerColumns = `id, given_name, family_name, email, phone, congregation, locality,
	created_by, created_by_name, updated_by, updated_by_name, created_at, updated_at`

// CreateSpeaker inserts the speaker and its talks in one transaction.
func (r *SpeakerRepository) CreateSpeaker(ctx context.Context, speaker persistence.Speaker) error {
	if speaker.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampSpeaker(&speaker, true)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO speakers (`+speakerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			speaker.ID,
			speaker.GivenName,
			speaker.FamilyName,
			nullString(speaker.Email),
			nullString(speaker.Phone),
			speaker.Congregation,
			nullString(speaker.Locality),
			speaker.CreatedBy,
			speaker.CreatedByName,
			speaker.UpdatedBy,
			speaker.UpdatedByName,
			formatTime(speaker.CreatedAt),
			formatTime(speaker.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertTalks(ctx, tx, speaker.ID, speaker.Talks)
	})
}

// UpdateSpeaker replaces the speaker row and its repertoire.
func (r *SpeakerRepository) UpdateSpeaker(ctx context.Context, speaker persistence.Speaker) error {
	if speaker.ID == "" {
		return persistence.ErrNotFound
	}
	stampSpeaker(&speaker, false)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE speakers
			SET given_name = ?, family_name = ?, email = ?, phone = ?, congregation = ?, locality = ?,
				updated_by = ?, updated_by_name = ?, updated_at = ?
			WHERE id = ?`,
			speaker.GivenName,
			speaker.FamilyName,
			nullString(speaker.Email),
			nullString(speaker.Phone),
			speaker.Congregation,
			nullString(speaker.Locality),
			speaker.UpdatedBy,
			speaker.UpdatedByName,
			formatTime(speaker.UpdatedAt),
			speaker.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM speaker_talks WHERE speaker_id = ?`, speaker.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertTalks(ctx, tx, speaker.ID, speaker.Talks)
	})
}

// insertTalks skips repeated numbers and lets the CHECK constraint reject
// numbers outside the catalog.
func (r *SpeakerRepository) insertTalks(ctx context.Context, tx *sql.Tx, speakerID string, talks []int) error {
	seen := make(map[int]struct{}, len(talks))
	for _, talk := range talks {
		if _, dup := seen[talk]; dup {
			continue
		}
		seen[talk] = struct{}{}
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO speaker_talks (speaker_id, talk) VALUES (?, ?)`,
			speakerID, talk,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetSpeaker retrieves a speaker with its talks.
func (r *SpeakerRepository) GetSpeaker(ctx context.Context, id string) (persistence.Speaker, error) {
	if id == "" {
		return persistence.Speaker{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = ?`, id)
	speaker, err := scanSpeaker(row)
	if err != nil {
		return persistence.Speaker{}, r.mapper.MapError(err)
	}

	talks, err := r.loadTalks(ctx, `WHERE speaker_id = ?`, id)
	if err != nil {
		return persistence.Speaker{}, err
	}
	speaker.Talks = talks[id]
	return speaker, nil
}

// ListSpeakers returns speakers matching filter ordered by family then given name.
func (r *SpeakerRepository) ListSpeakers(ctx context.Context, filter persistence.SpeakerFilter) ([]persistence.Speaker, error) {
	where, args := speakerWhere(filter)

	rows, err := r.helper.Query(ctx,
		`SELECT `+speakerColumns+` FROM speakers`+where+` ORDER BY family_name, given_name, id`,
		args...,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var speakers []persistence.Speaker
	for rows.Next() {
		speaker, err := scanSpeaker(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		speakers = append(speakers, speaker)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if len(speakers) == 0 {
		return []persistence.Speaker{}, nil
	}

	talks, err := r.loadTalks(ctx, `WHERE speaker_id IN (SELECT id FROM speakers`+where+`)`, args...)
	if err != nil {
		return nil, err
	}
	for i := range speakers {
		speakers[i].Talks = talks[speakers[i].ID]
	}
	return speakers, nil
}

// DeleteSpeaker removes a speaker. Talks cascade and linked users are unlinked.
func (r *SpeakerRepository) DeleteSpeaker(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM speakers WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *SpeakerRepository) loadTalks(ctx context.Context, where string, args ...any) (map[string][]int, error) {
	rows, err := r.helper.Query(ctx, `SELECT speaker_id, talk FROM speaker_talks `+where+` ORDER BY speaker_id, talk`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	talks := make(map[string][]int)
	for rows.Next() {
		var speakerID string
		var talk int
		if err := rows.Scan(&speakerID, &talk); err != nil {
			return nil, r.mapper.MapError(err)
		}
		talks[speakerID] = append(talks[speakerID], talk)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return talks, nil
}

func speakerWhere(filter persistence.SpeakerFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(column, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		clauses = append(clauses, fmt.Sprintf(`lower(coalesce(%s, '')) LIKE ? ESCAPE '\'`, column))
		args = append(args, likePattern(value))
	}
	add("given_name", filter.GivenName)
	add("family_name", filter.FamilyName)
	add("congregation", filter.Congregation)
	add("locality", filter.Locality)

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpeaker(row rowScanner) (persistence.Speaker, error) {
	var speaker persistence.Speaker
	var email, phone, locality sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&speaker.ID,
		&speaker.GivenName,
		&speaker.FamilyName,
		&email,
		&phone,
		&speaker.Congregation,
		&locality,
		&speaker.CreatedBy,
		&speaker.CreatedByName,
		&speaker.UpdatedBy,
		&speaker.UpdatedByName,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Speaker{}, err
	}

	speaker.Email = stringPtr(email)
	speaker.Phone = stringPtr(phone)
	speaker.Locality = stringPtr(locality)

	var err error
	if speaker.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Speaker{}, err
	}
	if speaker.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Speaker{}, err
	}
	return speaker, nil
}

func stampSpeaker(speaker *persistence.Speaker, creating bool) {
	now := time.Now().UTC()
	if creating && speaker.CreatedAt.IsZero() {
		speaker.CreatedAt = now
	}
	if speaker.UpdatedAt.IsZero() {
		speaker.UpdatedAt = now
	}
}
