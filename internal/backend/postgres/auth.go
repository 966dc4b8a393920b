package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"waveline/internal/backend"
)

// Auth is the self-hosted auth subsystem: identities live in an identities
// table, passwords are bcrypt hashes, access tokens are HS256 JWTs. Error
// messages deliberately mirror the hosted auth API's strings so the substring
// mapping in the auth controller behaves the same in both modes.
type Auth struct {
	db          *sqlx.DB
	jwtSecret   string
	tokenMaxAge int
	autoConfirm bool
}

// NewAuth builds the local auth subsystem. tokenMaxAge is in seconds. With
// autoConfirm disabled, sign-ins fail until email_confirmed is set out of band.
func NewAuth(db *sqlx.DB, jwtSecret string, tokenMaxAge int, autoConfirm bool) *Auth {
	if tokenMaxAge <= 0 {
		tokenMaxAge = 3600
	}
	return &Auth{
		db:          db,
		jwtSecret:   jwtSecret,
		tokenMaxAge: tokenMaxAge,
		autoConfirm: autoConfirm,
	}
}

type identityRow struct {
	ID             string `db:"id"`
	Email          string `db:"email"`
	PasswordHash   string `db:"password_hash"`
	EmailConfirmed bool   `db:"email_confirmed"`
}

// SignUp creates an identity row. Duplicate emails surface the hosted API's
// "User already registered" message.
func (a *Auth) SignUp(ctx context.Context, creds backend.Credentials) (*backend.AuthUser, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM identities WHERE email = $1)`, creds.Email)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("check identity: %v", err)}
	}
	if exists {
		return nil, &backend.Error{Message: "User already registered", Status: 400}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("hash password: %v", err)}
	}

	id := uuid.NewString()
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, password_hash, email_confirmed, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, id, creds.Email, string(hash), a.autoConfirm)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("create identity: %v", err)}
	}

	return &backend.AuthUser{ID: id, Email: creds.Email}, nil
}

// SignInWithPassword verifies credentials and issues an access token. Unknown
// email and wrong password produce the same message on purpose.
func (a *Auth) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*backend.AuthSession, error) {
	var row identityRow
	err := a.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, email_confirmed
		FROM identities
		WHERE email = $1
	`, creds.Email)
	if err == sql.ErrNoRows {
		return nil, &backend.Error{Message: "Invalid login credentials", Status: 400}
	}
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("look up identity: %v", err)}
	}

	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(creds.Password)) != nil {
		return nil, &backend.Error{Message: "Invalid login credentials", Status: 400}
	}
	if !row.EmailConfirmed {
		return nil, &backend.Error{Message: "Email not confirmed", Status: 400}
	}

	token, err := a.generateAccessToken(row.ID, row.Email)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("generate access token: %v", err)}
	}

	return &backend.AuthSession{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   a.tokenMaxAge,
		User:        backend.AuthUser{ID: row.ID, Email: row.Email},
	}, nil
}

// SignOut is a no-op: locally issued tokens are stateless and expire on their
// own.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// DeleteUser removes an identity. Used to compensate a registration whose
// profile insert failed.
func (a *Auth) DeleteUser(ctx context.Context, userID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, userID)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("delete identity: %v", err)}
	}
	return nil
}

func (a *Auth) generateAccessToken(userID, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(time.Duration(a.tokenMaxAge) * time.Second).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}
