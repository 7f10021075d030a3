package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
)

func plainHash(password string) (string, error) { return password, nil }

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("bootstraps the first account as administrator", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub()
		notifier := &notifierStub{}
		svc := NewUserService(users, nil, notifier, plainHash, func() string { return "u-1" }, fixedClock)

		user, err := svc.Register(context.Background(), RegisterInput{Email: " Admin@Example.com ", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Role != RoleAdmin || user.Status != StatusActive || user.ApprovedAt == nil {
			t.Fatalf("expected active admin, got %#v", user)
		}
		if user.Email != "admin@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		if len(notifier.requested) != 0 {
			t.Fatalf("expected no approval request for the first account, got %v", notifier.requested)
		}
		if users.hashes["u-1"] != "correct horse" {
			t.Fatalf("expected password hash to be stored, got %q", users.hashes["u-1"])
		}
	})

	t.Run("queues later accounts for approval", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub(User{ID: "admin-1", Email: "admin@example.com", Role: RoleAdmin, Status: StatusActive})
		notifier := &notifierStub{err: errBoom}
		svc := NewUserService(users, nil, notifier, plainHash, func() string { return "u-2" }, fixedClock)

		user, err := svc.Register(context.Background(), RegisterInput{Email: "new@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("expected notifier failure to be ignored, got %v", err)
		}
		if user.Role != RolePending || !user.RequestedAt.Equal(fixedClock()) {
			t.Fatalf("expected pending account, got %#v", user)
		}
		if len(notifier.requested) != 1 || notifier.requested[0] != "new@example.com" {
			t.Fatalf("expected approval request, got %v", notifier.requested)
		}
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub(User{ID: "admin-1", Email: "taken@example.com", Role: RoleAdmin, Status: StatusActive})
		svc := NewUserService(users, nil, nil, plainHash, func() string { return "u-2" }, fixedClock)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "TAKEN@example.com", Password: "password123"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("validates email and password", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), nil, nil, plainHash, nil, fixedClock)

		_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["email"] == "" || vErr.FieldErrors["password"] == "" {
			t.Fatalf("expected email and password errors, got %v", vErr.FieldErrors)
		}
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	newFixture := func() (*UserService, *userRepoStub) {
		users := newUserRepoStub(
			User{ID: pendingPrincipal.UserID, Email: "pending@example.com", Role: RolePending, Status: StatusActive},
			User{ID: otherPrincipal.UserID, Email: "other@example.com", Role: RoleUser, Status: StatusActive, SpeakerID: strPtr("sp-2")},
		)
		return NewUserService(users, speakerFixture(), nil, plainHash, nil, fixedClock), users
	}

	t.Run("lets pending accounts complete their profile", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal: pendingPrincipal,
			Input: ProfileInput{
				GivenName:   " Mario ",
				FamilyName:  "Rossi",
				Locality:    strPtr("Roma"),
				LinkSpeaker: true,
				SpeakerID:   strPtr("sp-1"),
			},
		})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.GivenName != "Mario" || user.Locality == nil || *user.Locality != "Roma" {
			t.Fatalf("unexpected profile %#v", user)
		}
		if user.Speaker == nil || user.Speaker.ID != "sp-1" {
			t.Fatalf("expected linked speaker, got %#v", user.Speaker)
		}
	})

	t.Run("refuses a speaker linked to someone else", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal: pendingPrincipal,
			Input:     ProfileInput{LinkSpeaker: true, SpeakerID: strPtr("sp-2")},
		})
		if !errors.Is(err, ErrSpeakerLinked) {
			t.Fatalf("expected ErrSpeakerLinked, got %v", err)
		}
	})

	t.Run("refuses unknown speakers", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal: pendingPrincipal,
			Input:     ProfileInput{LinkSpeaker: true, SpeakerID: strPtr("missing")},
		})
		if !errors.Is(err, ErrSpeakerNotFound) {
			t.Fatalf("expected ErrSpeakerNotFound, got %v", err)
		}
	})

	t.Run("unlinks when asked and keeps the link otherwise", func(t *testing.T) {
		t.Parallel()

		svc, users := newFixture()
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal: otherPrincipal,
			Input:     ProfileInput{GivenName: "Luca"},
		})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.SpeakerID == nil || *user.SpeakerID != "sp-2" {
			t.Fatalf("expected link to stay, got %v", user.SpeakerID)
		}

		user, err = svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal: otherPrincipal,
			Input:     ProfileInput{GivenName: "Luca", LinkSpeaker: true},
		})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.SpeakerID != nil || users.users[otherPrincipal.UserID].SpeakerID != nil {
			t.Fatalf("expected speaker to be unlinked, got %v", user.SpeakerID)
		}
	})

	t.Run("refuses rejected accounts", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		rejected := pendingPrincipal
		rejected.Status = StatusRejected
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{Principal: rejected})
		if !errors.Is(err, ErrAccountRejected) {
			t.Fatalf("expected ErrAccountRejected, got %v", err)
		}
	})
}

func adminFixture() (*userRepoStub, *notifierStub, *UserService) {
	base := fixedClock()
	users := newUserRepoStub(
		User{ID: adminPrincipal.UserID, Email: "admin@example.com", Role: RoleAdmin, Status: StatusActive, RequestedAt: base.Add(-72 * time.Hour)},
		User{ID: "u-old", Email: "old@example.com", Role: RolePending, Status: StatusActive, RequestedAt: base.Add(-48 * time.Hour)},
		User{ID: "u-new", Email: "new@example.com", Role: RolePending, Status: StatusActive, RequestedAt: base.Add(-1 * time.Hour)},
		User{ID: "u-gone", Email: "gone@example.com", Role: RolePending, Status: StatusRejected, RequestedAt: base.Add(-24 * time.Hour)},
		User{ID: userPrincipal.UserID, Email: "user@example.com", Role: RoleUser, Status: StatusActive, RequestedAt: base.Add(-60 * time.Hour)},
	)
	notifier := &notifierStub{}
	return users, notifier, NewUserService(users, nil, notifier, plainHash, nil, fixedClock)
}

func TestUserService_ListPending(t *testing.T) {
	t.Parallel()

	_, _, svc := adminFixture()

	pending, err := svc.ListPending(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "u-new" || pending[1].ID != "u-old" {
		t.Fatalf("expected most recent request first, got %#v", pending)
	}

	if _, err := svc.ListPending(context.Background(), userPrincipal); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_ListUsersValidatesFilter(t *testing.T) {
	t.Parallel()

	_, _, svc := adminFixture()

	_, err := svc.ListUsers(context.Background(), adminPrincipal, UserFilter{Role: "owner"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["role"] == "" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestUserService_Stats(t *testing.T) {
	t.Parallel()

	_, _, svc := adminFixture()

	stats, err := svc.Stats(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := UserStats{Total: 5, Pending: 2, Admins: 1, Users: 1}
	if stats != want {
		t.Fatalf("expected %#v, got %#v", want, stats)
	}
}

func TestUserService_ApproveAndReject(t *testing.T) {
	t.Parallel()

	t.Run("approve grants the user role and notifies", func(t *testing.T) {
		t.Parallel()

		users, notifier, svc := adminFixture()
		user, err := svc.ApproveUser(context.Background(), adminPrincipal, "u-old")
		if err != nil {
			t.Fatalf("ApproveUser failed: %v", err)
		}
		if user.Role != RoleUser || user.ApprovedBy == nil || *user.ApprovedBy != adminPrincipal.UserID {
			t.Fatalf("unexpected user %#v", user)
		}
		if users.updateCalls != 1 || len(notifier.approved) != 1 {
			t.Fatalf("expected one update and one notification, got %d and %v", users.updateCalls, notifier.approved)
		}
	})

	t.Run("approve reinstates rejected accounts", func(t *testing.T) {
		t.Parallel()

		_, _, svc := adminFixture()
		user, err := svc.ApproveUser(context.Background(), adminPrincipal, "u-gone")
		if err != nil {
			t.Fatalf("ApproveUser failed: %v", err)
		}
		if user.Status != StatusActive {
			t.Fatalf("expected active status, got %s", user.Status)
		}
	})

	t.Run("reject records the reason", func(t *testing.T) {
		t.Parallel()

		_, notifier, svc := adminFixture()
		user, err := svc.RejectUser(context.Background(), adminPrincipal, "u-new", "  sconosciuto ")
		if err != nil {
			t.Fatalf("RejectUser failed: %v", err)
		}
		if user.Status != StatusRejected || user.RejectionReason == nil || *user.RejectionReason != "sconosciuto" {
			t.Fatalf("unexpected user %#v", user)
		}
		if notifier.rejected["new@example.com"] != "sconosciuto" {
			t.Fatalf("expected rejection notice, got %v", notifier.rejected)
		}
	})

	t.Run("requires administrators", func(t *testing.T) {
		t.Parallel()

		_, _, svc := adminFixture()
		if _, err := svc.ApproveUser(context.Background(), userPrincipal, "u-new"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("reports missing users", func(t *testing.T) {
		t.Parallel()

		_, _, svc := adminFixture()
		if _, err := svc.RejectUser(context.Background(), adminPrincipal, "nobody", ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal Principal
		userID    string
		role      Role
		wantErr   error
		wantField string
	}{
		{name: "promotes a user", principal: adminPrincipal, userID: userPrincipal.UserID, role: RoleAdmin},
		{name: "refuses unknown roles", principal: adminPrincipal, userID: userPrincipal.UserID, role: "owner", wantField: "role"},
		{name: "refuses own role", principal: adminPrincipal, userID: adminPrincipal.UserID, role: RoleUser, wantField: "user_id"},
		{name: "requires administrators", principal: userPrincipal, userID: "u-new", role: RoleAdmin, wantErr: ErrUnauthorized},
		{name: "reports missing users", principal: adminPrincipal, userID: "nobody", role: RoleUser, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, svc := adminFixture()
			user, err := svc.ChangeRole(context.Background(), tt.principal, tt.userID, tt.role)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantField != "":
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.FieldErrors[tt.wantField] == "" {
					t.Fatalf("expected %s validation error, got %v", tt.wantField, err)
				}
			default:
				if err != nil {
					t.Fatalf("ChangeRole failed: %v", err)
				}
				if user.Role != tt.role {
					t.Fatalf("expected role %s, got %s", tt.role, user.Role)
				}
			}
		})
	}
}

func TestUserService_MapsStorageFailures(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub()
	users.createErr = persistence.ErrDuplicate
	svc := NewUserService(users, nil, nil, plainHash, nil, fixedClock)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "password123"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
