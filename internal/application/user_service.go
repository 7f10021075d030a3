package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/validation"
)

const msgOwnRole = "cannot change own role"

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserBySpeaker(ctx context.Context, speakerID string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
}

// Notifier delivers account lifecycle messages. Failures never fail the
// operation that triggered them.
type Notifier interface {
	ApprovalRequested(ctx context.Context, email string) error
	Approved(ctx context.Context, email string) error
	Rejected(ctx context.Context, email, reason string) error
}

// PasswordHasher derives a storable hash from a plain password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates registration, profiles and account administration.
type UserService struct {
	users       UserRepository
	speakers    SpeakerLookup
	notifier    Notifier
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, speakers SpeakerLookup, notifier Notifier, hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, speakers, notifier, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, speakers SpeakerLookup, notifier Notifier, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		speakers:    speakers,
		notifier:    notifier,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates a pending account and asks an administrator for approval.
// The very first account becomes an administrator so the system can be bootstrapped.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.GivenName = strings.TrimSpace(input.GivenName)
	input.FamilyName = strings.TrimSpace(input.FamilyName)

	logger := s.loggerWith(ctx, "Register", "email", input.Email)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "user registered")
	}()

	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hash(input.Password)
	if err != nil {
		return
	}

	var existing []User
	existing, err = s.users.ListUsers(ctx, UserFilter{})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now()
	user = User{
		ID:          s.idGenerator(),
		Email:       input.Email,
		GivenName:   input.GivenName,
		FamilyName:  input.FamilyName,
		Role:        RolePending,
		Status:      StatusActive,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(existing) == 0 {
		user.Role = RoleAdmin
		user.ApprovedAt = &now
	}

	user, err = s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if user.Role == RolePending && s.notifier != nil {
		if nerr := s.notifier.ApprovalRequested(ctx, user.Email); nerr != nil {
			logger.WarnContext(ctx, "approval request notification failed", "error", nerr)
		}
	}
	return
}

// GetProfile returns the caller's own account with the linked speaker.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if err := requireActive(principal); err != nil {
		return User{}, err
	}
	if s.users == nil {
		return User{}, ErrNotFound
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return s.withSpeaker(ctx, user)
}

// UpdateProfile edits the caller's profile and optionally links or unlinks a speaker.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if err = requireActive(params.Principal); err != nil {
		return
	}

	input := params.Input
	input.GivenName = strings.TrimSpace(input.GivenName)
	input.FamilyName = strings.TrimSpace(input.FamilyName)
	input.Phone = normalizeOptionalString(input.Phone)
	input.Congregation = normalizeOptionalString(input.Congregation)
	input.Locality = normalizeOptionalString(input.Locality)
	input.SpeakerID = normalizeOptionalString(input.SpeakerID)
	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	user.GivenName = input.GivenName
	user.FamilyName = input.FamilyName
	user.Phone = input.Phone
	user.Congregation = input.Congregation
	user.Locality = input.Locality

	if input.LinkSpeaker {
		if input.SpeakerID == nil {
			user.SpeakerID = nil
		} else {
			if err = s.ensureLinkable(ctx, *input.SpeakerID, user.ID); err != nil {
				return
			}
			user.SpeakerID = input.SpeakerID
		}
	}
	user.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrAlreadyExists) {
			err = ErrSpeakerLinked
		}
		return
	}
	user, err = s.withSpeaker(ctx, user)
	return
}

func (s *UserService) ensureLinkable(ctx context.Context, speakerID, userID string) error {
	if s.speakers != nil {
		if _, err := s.speakers.GetSpeaker(ctx, speakerID); err != nil {
			if errors.Is(mapRepoError(err), ErrNotFound) {
				return ErrSpeakerNotFound
			}
			return err
		}
	}
	linked, err := s.users.GetUserBySpeaker(ctx, speakerID)
	switch {
	case err == nil:
		if linked.ID != userID {
			return ErrSpeakerLinked
		}
		return nil
	case errors.Is(mapRepoError(err), ErrNotFound):
		return nil
	default:
		return err
	}
}

// ListUsers returns accounts for administrators, most recent request first.
func (s *UserService) ListUsers(ctx context.Context, principal Principal, filter UserFilter) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).DebugContext(ctx, "users listed")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	if filter.Role != "" && !filter.Role.Valid() {
		vErr.add("role", validation.MsgOneOf)
	}
	if filter.Status != "" && filter.Status != StatusActive && filter.Status != StatusRejected {
		vErr.add("status", validation.MsgOneOf)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	users, err = s.listUsers(ctx, filter)
	return
}

// ListPending returns active accounts awaiting approval.
func (s *UserService) ListPending(ctx context.Context, principal Principal) ([]User, error) {
	return s.ListUsers(ctx, principal, UserFilter{Role: RolePending, Status: StatusActive})
}

// Stats counts accounts by role for the admin dashboard.
func (s *UserService) Stats(ctx context.Context, principal Principal) (UserStats, error) {
	if s == nil {
		return UserStats{}, fmt.Errorf("UserService is nil")
	}
	if err := requireAdmin(principal); err != nil {
		return UserStats{}, err
	}
	all, err := s.listUsers(ctx, UserFilter{})
	if err != nil {
		return UserStats{}, err
	}

	stats := UserStats{Total: len(all)}
	for _, u := range all {
		switch u.Role {
		case RolePending:
			if u.Status == StatusActive {
				stats.Pending++
			}
		case RoleAdmin:
			stats.Admins++
		case RoleUser:
			stats.Users++
		}
	}
	return stats, nil
}

// ApproveUser grants the user role and notifies the account holder.
func (s *UserService) ApproveUser(ctx context.Context, principal Principal, userID string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ApproveUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to approve user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user approved")
	}()

	user, err = s.adminTarget(ctx, principal, userID)
	if err != nil {
		return
	}

	now := s.now()
	approver := principal.UserID
	user.Role = RoleUser
	user.Status = StatusActive
	user.ApprovedAt = &now
	user.ApprovedBy = &approver
	user.UpdatedAt = now

	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if s.notifier != nil {
		if nerr := s.notifier.Approved(ctx, user.Email); nerr != nil {
			logger.WarnContext(ctx, "approval notification failed", "error", nerr)
		}
	}
	return
}

// RejectUser marks the account rejected with an optional reason.
func (s *UserService) RejectUser(ctx context.Context, principal Principal, userID, reason string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, "RejectUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to reject user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user rejected")
	}()

	user, err = s.adminTarget(ctx, principal, userID)
	if err != nil {
		return
	}

	now := s.now()
	rejecter := principal.UserID
	user.Status = StatusRejected
	user.RejectedAt = &now
	user.RejectedBy = &rejecter
	user.RejectionReason = normalizeOptionalString(&reason)
	user.UpdatedAt = now

	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if s.notifier != nil {
		if nerr := s.notifier.Rejected(ctx, user.Email, derefString(user.RejectionReason)); nerr != nil {
			logger.WarnContext(ctx, "rejection notification failed", "error", nerr)
		}
	}
	return
}

// ChangeRole sets another user's role. Administrators cannot change their own.
func (s *UserService) ChangeRole(ctx context.Context, principal Principal, userID string, role Role) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ChangeRole", "principal_id", principal.UserID, "user_id", userID, "role", role)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to change role", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role changed")
	}()

	vErr := &ValidationError{}
	if !role.Valid() {
		vErr.add("role", validation.MsgOneOf)
	}
	if strings.TrimSpace(userID) != "" && userID == principal.UserID {
		vErr.add("user_id", msgOwnRole)
	}
	if vErr.HasErrors() {
		if err = requireAdmin(principal); err == nil {
			err = vErr
		}
		return
	}

	user, err = s.adminTarget(ctx, principal, userID)
	if err != nil {
		return
	}

	user.Role = role
	user.UpdatedAt = s.now()
	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

func (s *UserService) adminTarget(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", missingField)
		return User{}, vErr
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

func (s *UserService) listUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	if s.users == nil {
		return []User{}, nil
	}
	raw, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	users := make([]User, len(raw))
	copy(users, raw)
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].RequestedAt.Equal(users[j].RequestedAt) {
			return users[i].RequestedAt.After(users[j].RequestedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *UserService) withSpeaker(ctx context.Context, user User) (User, error) {
	user.Speaker = nil
	if user.SpeakerID == nil || s.speakers == nil {
		return user, nil
	}
	speaker, err := s.speakers.GetSpeaker(ctx, *user.SpeakerID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return user, nil
		}
		return User{}, err
	}
	user.Speaker = &speaker
	return user, nil
}
