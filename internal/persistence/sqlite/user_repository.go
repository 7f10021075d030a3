package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = `id, email, password_hash, given_name, family_name, phone, congregation, locality,
	role, status, speaker_id, requested_at, approved_at, approved_by, rejected_at, rejected_by,
	rejection_reason, created_at, updated_at`

// CreateUser inserts a new user. Emails are stored normalized.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.RequestedAt.IsZero() {
		user.RequestedAt = user.CreatedAt
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		normalizeEmail(user.Email),
		user.PasswordHash,
		user.GivenName,
		user.FamilyName,
		nullString(user.Phone),
		nullString(user.Congregation),
		nullString(user.Locality),
		user.Role,
		user.Status,
		nullString(user.SpeakerID),
		formatTime(user.RequestedAt),
		formatOptionalTime(user.ApprovedAt),
		nullString(user.ApprovedBy),
		formatOptionalTime(user.RejectedAt),
		nullString(user.RejectedBy),
		nullString(user.RejectionReason),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser rewrites every mutable column of an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrNotFound
	}
	if user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, given_name = ?, family_name = ?, phone = ?, congregation = ?,
			locality = ?, role = ?, status = ?, speaker_id = ?, approved_at = ?, approved_by = ?,
			rejected_at = ?, rejected_by = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		normalizeEmail(user.Email),
		user.PasswordHash,
		user.GivenName,
		user.FamilyName,
		nullString(user.Phone),
		nullString(user.Congregation),
		nullString(user.Locality),
		user.Role,
		user.Status,
		nullString(user.SpeakerID),
		formatOptionalTime(user.ApprovedAt),
		nullString(user.ApprovedBy),
		formatOptionalTime(user.RejectedAt),
		nullString(user.RejectedBy),
		nullString(user.RejectionReason),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail looks the user up by normalized email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `WHERE lower(email) = ?`, normalized)
}

// GetUserBySpeaker returns the user linked to speakerID.
func (r *UserRepository) GetUserBySpeaker(ctx context.Context, speakerID string) (persistence.User, error) {
	if speakerID == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `WHERE speaker_id = ?`, speakerID)
}

func (r *UserRepository) getOne(ctx context.Context, where string, args ...any) (persistence.User, error) {
	user, err := scanUser(r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, args...))
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// ListUsers returns users ordered by request time then ID.
func (r *UserRepository) ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error) {
	var clauses []string
	var args []any
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY requested_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	users := []persistence.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

// DeleteUser removes a user. Their programs are deleted with them.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var phone, congregation, locality, speakerID sql.NullString
	var approvedAt, approvedBy, rejectedAt, rejectedBy, reason sql.NullString
	var requestedAt, createdAt, updatedAt string

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.GivenName,
		&user.FamilyName,
		&phone,
		&congregation,
		&locality,
		&user.Role,
		&user.Status,
		&speakerID,
		&requestedAt,
		&approvedAt,
		&approvedBy,
		&rejectedAt,
		&rejectedBy,
		&reason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, err
	}

	user.Phone = stringPtr(phone)
	user.Congregation = stringPtr(congregation)
	user.Locality = stringPtr(locality)
	user.SpeakerID = stringPtr(speakerID)
	user.ApprovedBy = stringPtr(approvedBy)
	user.RejectedBy = stringPtr(rejectedBy)
	user.RejectionReason = stringPtr(reason)

	var err error
	if user.RequestedAt, err = parseTime("requested_at", requestedAt); err != nil {
		return persistence.User{}, err
	}
	if user.ApprovedAt, err = parseOptionalTime("approved_at", approvedAt); err != nil {
		return persistence.User{}, err
	}
	if user.RejectedAt, err = parseOptionalTime("rejected_at", rejectedAt); err != nil {
		return persistence.User{}, err
	}
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
