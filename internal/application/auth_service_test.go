package application

import (
	"context"
	"errors"
	"testing"
)

func authFixture() (*userRepoStub, *tokenStub, *AuthService) {
	users := newUserRepoStub(
		User{ID: "u-1", Email: "mario@example.com", GivenName: "Mario", Role: RoleUser, Status: StatusActive, SpeakerID: strPtr("sp-1")},
		User{ID: "u-2", Email: "pending@example.com", Role: RolePending, Status: StatusActive},
		User{ID: "u-3", Email: "rejected@example.com", Role: RolePending, Status: StatusRejected},
	)
	users.hashes["u-1"] = "secret"
	users.hashes["u-2"] = "secret"
	users.hashes["u-3"] = "secret"
	tokens := &tokenStub{}
	return users, tokens, NewAuthService(users, tokens, plainVerifier)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues tokens for valid credentials", func(t *testing.T) {
		t.Parallel()

		_, tokens, svc := authFixture()
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " Mario@Example.com ", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Token != "token-u-1" || result.User.ID != "u-1" {
			t.Fatalf("unexpected result %#v", result)
		}
		if !result.ExpiresAt.After(fixedClock()) {
			t.Fatalf("expected expiry after issue time, got %v", result.ExpiresAt)
		}
		if len(tokens.issued) != 1 {
			t.Fatalf("expected one token issued, got %v", tokens.issued)
		}
	})

	t.Run("lets pending accounts sign in", func(t *testing.T) {
		t.Parallel()

		_, _, svc := authFixture()
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "pending@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.User.Role != RolePending {
			t.Fatalf("expected pending user, got %s", result.User.Role)
		}
	})

	tests := []struct {
		name    string
		params  AuthenticateParams
		wantErr error
	}{
		{name: "wrong password", params: AuthenticateParams{Email: "mario@example.com", Password: "nope"}, wantErr: ErrInvalidCredentials},
		{name: "unknown email", params: AuthenticateParams{Email: "nobody@example.com", Password: "secret"}, wantErr: ErrInvalidCredentials},
		{name: "blank input", params: AuthenticateParams{}, wantErr: ErrInvalidCredentials},
		{name: "rejected account", params: AuthenticateParams{Email: "rejected@example.com", Password: "secret"}, wantErr: ErrAccountRejected},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, tokens, svc := authFixture()
			_, err := svc.Authenticate(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(tokens.issued) != 0 {
				t.Fatalf("expected no token, got %v", tokens.issued)
			}
		})
	}
}

func TestAuthService_Identify(t *testing.T) {
	t.Parallel()

	t.Run("resolves the principal", func(t *testing.T) {
		t.Parallel()

		_, _, svc := authFixture()
		principal, err := svc.Identify(context.Background(), "token-u-1")
		if err != nil {
			t.Fatalf("Identify failed: %v", err)
		}
		if principal.UserID != "u-1" || principal.Role != RoleUser || principal.DisplayName != "Mario" {
			t.Fatalf("unexpected principal %#v", principal)
		}
		if principal.SpeakerID == nil || *principal.SpeakerID != "sp-1" {
			t.Fatalf("expected linked speaker, got %v", principal.SpeakerID)
		}
	})

	t.Run("rejects missing and malformed tokens", func(t *testing.T) {
		t.Parallel()

		_, tokens, svc := authFixture()
		if _, err := svc.Identify(context.Background(), "  "); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for blank token, got %v", err)
		}

		tokens.parseErr = errBoom
		if _, err := svc.Identify(context.Background(), "garbage"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for bad token, got %v", err)
		}
	})

	t.Run("rejects tokens of deleted users", func(t *testing.T) {
		t.Parallel()

		_, _, svc := authFixture()
		if _, err := svc.Identify(context.Background(), "token-u-404"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("rejects tokens of rejected users", func(t *testing.T) {
		t.Parallel()

		_, _, svc := authFixture()
		if _, err := svc.Identify(context.Background(), "token-u-3"); !errors.Is(err, ErrAccountRejected) {
			t.Fatalf("expected ErrAccountRejected, got %v", err)
		}
	})
}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	params := DefaultArgon2idParams
	params.Memory = 1024
	params.Iterations = 1

	hash, err := CreatePasswordHash("correct horse", params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if err := VerifyPassword(hash, "battery staple"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyPassword("plain", "plain"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
}
