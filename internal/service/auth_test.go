package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"waveline/internal/backend"
	"waveline/internal/backend/backendtest"
	"waveline/internal/model"
	"waveline/internal/session"
	"waveline/internal/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================
//
// Services are exercised through the real store wrappers against an
// in-memory backend, so the table access paths are covered too.

func newAuthFixture() (*AuthService, *backendtest.Executor, *backendtest.Auth, session.Store) {
	exec := backendtest.NewExecutor()
	auth := backendtest.NewAuth()
	st := store.New(backend.NewClient(exec, auth))
	sessions := session.NewMemoryStore(session.DefaultMaxAge)
	svc := NewAuthService(st, auth, auth, sessions)
	return svc, exec, auth, sessions
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		wantOK   bool
	}{
		{"valid simple", "alice", true},
		{"valid with underscore and digits", "alice_1", true},
		{"minimum length", "abc", true},
		{"empty", "", false},
		{"too short", "ab", false},
		{"dash rejected", "ali-ce", false},
		{"space rejected", "ali ce", false},
		{"dot rejected", "ali.ce", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.username)
			if tc.wantOK && err != nil {
				t.Errorf("ValidateUsername(%q) = %v, want nil", tc.username, err)
			}
			if !tc.wantOK && err == nil {
				t.Errorf("ValidateUsername(%q) = nil, want error", tc.username)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid", "Abcdef1", true},
		{"empty", "", false},
		{"too short", "Ab1", false},
		{"no uppercase", "abcdef1", false},
		{"no lowercase", "ABCDEF1", false},
		{"no digit", "Abcdefg", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantOK && err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil", tc.password, err)
			}
			if !tc.wantOK && err == nil {
				t.Errorf("ValidatePassword(%q) = nil, want error", tc.password)
			}
		})
	}
}

func TestValidatePassword_FieldAndMessage(t *testing.T) {
	err := ValidatePassword("abcdef1")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.Field != "password" {
		t.Errorf("Field = %q, want %q", err.Field, "password")
	}
	if err.Message != "Password must contain uppercase, lowercase, and numbers" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	svc, exec, auth, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), model.RegisterRequest{
		Username:        "alice_1",
		Email:           "a@x.com",
		Password:        "Abcdef1",
		ConfirmPassword: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if auth.SignUpCalls != 1 {
		t.Errorf("SignUpCalls = %d, want 1", auth.SignUpCalls)
	}
	if user.Username != "alice_1" {
		t.Errorf("Username = %q, want %q", user.Username, "alice_1")
	}
	if user.FullName != "alice_1" {
		t.Errorf("FullName = %q, want username %q", user.FullName, "alice_1")
	}
	if user.Followers != 0 || user.Following != 0 {
		t.Errorf("counters = %d/%d, want 0/0", user.Followers, user.Following)
	}
	if user.Bio != "Welcome to my profile!" {
		t.Errorf("Bio = %q", user.Bio)
	}
	if !strings.HasPrefix(user.AvatarURL, "https://via.placeholder.com/100/") {
		t.Errorf("AvatarURL = %q, want placeholder", user.AvatarURL)
	}
	if !strings.HasSuffix(user.AvatarURL, "?text=AL") {
		t.Errorf("AvatarURL = %q, want initials AL", user.AvatarURL)
	}
	if _, perr := time.Parse(time.RFC3339, user.CreatedAt); perr != nil {
		t.Errorf("CreatedAt = %q, want RFC3339 text: %v", user.CreatedAt, perr)
	}

	rows := exec.Rows("users")
	if len(rows) != 1 {
		t.Fatalf("users rows = %d, want 1", len(rows))
	}
	if rows[0]["email"] != "a@x.com" {
		t.Errorf("stored email = %v", rows[0]["email"])
	}
}

func TestAuthService_Register_ValidationBlocksBeforeBackend(t *testing.T) {
	svc, _, auth, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username:        "ab",
		Email:           "a@x.com",
		Password:        "Abcdef1",
		ConfirmPassword: "Abcdef1",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "username" {
		t.Errorf("Field = %q, want username", verr.Field)
	}
	if auth.SignUpCalls != 0 {
		t.Errorf("SignUpCalls = %d, want 0 (no network call on validation failure)", auth.SignUpCalls)
	}
}

func TestAuthService_Register_MapsAuthErrors(t *testing.T) {
	cases := []struct {
		name    string
		backend string
		want    error
	}{
		{"rate limited", "email rate limit exceeded", model.ErrSignupRateLimited},
		{"already registered", "User already registered", model.ErrEmailRegistered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, auth, _ := newAuthFixture()
			auth.SignUpErr = &backend.Error{Message: tc.backend, Status: 422}

			_, err := svc.Register(context.Background(), model.RegisterRequest{
				Username:        "alice_1",
				Email:           "a@x.com",
				Password:        "Abcdef1",
				ConfirmPassword: "Abcdef1",
			})
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthService_Register_CompensatesFailedProfileInsert(t *testing.T) {
	svc, exec, auth, _ := newAuthFixture()
	exec.FailNextInsert["users"] = &backend.Error{Message: "insert denied", Status: 403}

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username:        "alice_1",
		Email:           "a@x.com",
		Password:        "Abcdef1",
		ConfirmPassword: "Abcdef1",
	})
	if err == nil {
		t.Fatal("expected error from failed profile insert")
	}

	// The identity created in step one must be removed again
	if len(auth.DeleteCalls) != 1 {
		t.Fatalf("DeleteCalls = %d, want 1", len(auth.DeleteCalls))
	}

	// A retry with the same email now succeeds instead of hitting
	// "already registered"
	if _, err := svc.Register(context.Background(), model.RegisterRequest{
		Username:        "alice_1",
		Email:           "a@x.com",
		Password:        "Abcdef1",
		ConfirmPassword: "Abcdef1",
	}); err != nil {
		t.Fatalf("retry after compensation failed: %v", err)
	}
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	svc, exec, auth, sessions := newAuthFixture()
	auth.SeedIdentity("u1", "a@x.com", "Abcdef1")
	exec.Seed("users", backendtest.Row{
		"id": "u1", "username": "alice_1", "email": "a@x.com",
		"full_name": "alice_1", "followers": 0, "following": 0,
	})

	sess, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "alice_1",
		Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if sess.User.ID != "u1" {
		t.Errorf("session user = %q, want u1", sess.User.ID)
	}
	if sess.AccessToken == "" {
		t.Error("session has no access token")
	}
	if _, err := sessions.Get(context.Background(), sess.ID); err != nil {
		t.Errorf("session not stored: %v", err)
	}
}

func TestAuthService_Login_UnknownUsername_NoAuthCall(t *testing.T) {
	svc, _, auth, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "nobody",
		Password: "Abcdef1",
	})
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if auth.SignInCalls != 0 {
		t.Errorf("SignInCalls = %d, want 0 (lookup failure must abort before auth)", auth.SignInCalls)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, exec, auth, _ := newAuthFixture()
	auth.SeedIdentity("u1", "a@x.com", "Abcdef1")
	exec.Seed("users", backendtest.Row{"id": "u1", "username": "alice_1", "email": "a@x.com"})

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "alice_1",
		Password: "Wrong99",
	})
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_Login_EmailNotConfirmed(t *testing.T) {
	svc, exec, auth, _ := newAuthFixture()
	auth.SeedIdentity("u1", "a@x.com", "Abcdef1")
	auth.SignInErr = &backend.Error{Message: "Email not confirmed", Status: 400}
	exec.Seed("users", backendtest.Row{"id": "u1", "username": "alice_1", "email": "a@x.com"})

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "alice_1",
		Password: "Abcdef1",
	})
	if !errors.Is(err, model.ErrEmailNotConfirmed) {
		t.Errorf("err = %v, want ErrEmailNotConfirmed", err)
	}
}

// =============================================================================
// LOGOUT TESTS
// =============================================================================

func TestAuthService_Logout_DropsSession(t *testing.T) {
	svc, exec, auth, sessions := newAuthFixture()
	auth.SeedIdentity("u1", "a@x.com", "Abcdef1")
	exec.Seed("users", backendtest.Row{"id": "u1", "username": "alice_1", "email": "a@x.com"})

	sess, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice_1", Password: "Abcdef1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), sess); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if auth.SignOutCalls != 1 {
		t.Errorf("SignOutCalls = %d, want 1", auth.SignOutCalls)
	}
	if _, err := sessions.Get(context.Background(), sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session still present after logout: %v", err)
	}
}
