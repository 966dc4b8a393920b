package model

import (
	"errors"
)

// User is the profile row kept in the backend's users table. The client only
// holds transient copies of it; the backend owns the data. CreatedAt carries
// the backend's timestamp text unparsed.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
	CreatedAt string `json:"created_at"`
}

// UserSummary is the author slice of a user row embedded into posts and
// comments by the backend join. The JSON key is the embedded table name.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	FullName  string `json:"full_name"`
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the login form payload. Login is by username; the email the
// auth subsystem needs is resolved through a profile lookup.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the profile edit payload.
type UpdateProfileRequest struct {
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// Username constraints
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

var (
	// ErrUserNotFound is returned when a username or id resolves to no row
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when the auth subsystem rejects the password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailNotConfirmed is returned when the auth identity exists but is unverified
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrEmailRegistered is returned when sign-up hits an already registered email
	ErrEmailRegistered = errors.New("email already registered")

	// ErrSignupRateLimited is returned when the auth subsystem throttles sign-ups
	ErrSignupRateLimited = errors.New("signup rate limited")
)
