package service

import (
	"regexp"
	"strings"
	"unicode"

	"waveline/internal/model"
)

// ValidationError is a field-level error caught before any backend call.
// It renders inline next to the offending input rather than as a
// general notification.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateUsername checks the username rules: required, at least
// MinUsernameLength characters, letters/digits/underscores only.
func ValidateUsername(username string) *ValidationError {
	username = strings.TrimSpace(username)

	if username == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if len(username) < model.MinUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at least 3 characters"}
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
		}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// ValidateEmail checks the email is present and shaped like an address.
func ValidateEmail(email string) *ValidationError {
	email = strings.TrimSpace(email)

	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email"}
	}
	return nil
}

// ValidatePassword checks the registration password rules: at least
// MinPasswordLength characters with uppercase, lowercase, and a digit.
func ValidatePassword(password string) *ValidationError {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(password) < model.MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !(hasUpper && hasLower && hasDigit) {
		return &ValidationError{Field: "password", Message: "Password must contain uppercase, lowercase, and numbers"}
	}
	return nil
}

// ValidateConfirmPassword checks the confirmation matches the password.
func ValidateConfirmPassword(password, confirm string) *ValidationError {
	if confirm == "" {
		return &ValidationError{Field: "confirm_password", Message: "Please confirm your password"}
	}
	if password != confirm {
		return &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	return nil
}

// ValidateLoginPassword applies the lighter login-time check. Login only
// requires the minimum length since existing accounts may predate the
// composition rules.
func ValidateLoginPassword(password string) *ValidationError {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(password) < model.MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}
