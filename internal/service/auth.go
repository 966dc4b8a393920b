package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"waveline/internal/backend"
	"waveline/internal/model"
	"waveline/internal/session"
	"waveline/internal/store"
)

// avatarColors are the hex palette used for generated placeholder avatars.
var avatarColors = []string{"3b82f6", "22c55e", "f59e0b", "ec4899", "8b5cf6"}

// AuthService implements registration, login, and logout on top of the
// backend auth subsystem and the users table.
type AuthService struct {
	store    *store.Store
	auth     backend.Auth
	admin    backend.AdminAuth // nil when no service credential is configured
	sessions session.Store
}

func NewAuthService(st *store.Store, auth backend.Auth, admin backend.AdminAuth, sessions session.Store) *AuthService {
	return &AuthService{store: st, auth: auth, admin: admin, sessions: sessions}
}

// Register creates an auth identity, then inserts the matching profile row.
// If the profile insert fails the identity is deleted again where the
// privileged API is available, so no dangling identity without a profile
// row is left behind.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if verr := ValidateUsername(username); verr != nil {
		return nil, verr
	}
	if verr := ValidateEmail(email); verr != nil {
		return nil, verr
	}
	if verr := ValidatePassword(req.Password); verr != nil {
		return nil, verr
	}
	if verr := ValidateConfirmPassword(req.Password, req.ConfirmPassword); verr != nil {
		return nil, verr
	}

	authUser, err := s.auth.SignUp(ctx, backend.Credentials{Email: email, Password: req.Password})
	if err != nil {
		return nil, mapSignUpError(err)
	}

	user := model.User{
		ID:        authUser.ID,
		Username:  username,
		Email:     email,
		FullName:  username,
		AvatarURL: placeholderAvatarURL(username),
		Bio:       "Welcome to my profile!",
		Followers: 0,
		Following: 0,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.store.Users.Insert(ctx, user); err != nil {
		log.Printf("[Auth] Register profile insert FAILED: user=%s err=%v", authUser.ID, err)
		// Best effort: remove the identity so a retry with the same email
		// does not hit "already registered".
		if s.admin != nil {
			if derr := s.admin.DeleteUser(ctx, authUser.ID); derr != nil {
				log.Printf("[Auth] Register compensation FAILED: user=%s err=%v", authUser.ID, derr)
			}
		}
		return nil, err
	}

	log.Printf("[Auth] Register OK: user=%s username=%s", authUser.ID, username)
	return &user, nil
}

// Login resolves the username to an email, authenticates, fetches the full
// profile row, and stores a session record. An unknown username aborts
// before any auth call is made.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.Session, error) {
	username := strings.TrimSpace(req.Username)

	if verr := ValidateUsername(username); verr != nil {
		return nil, verr
	}
	if verr := ValidateLoginPassword(req.Password); verr != nil {
		return nil, verr
	}

	email, err := s.store.Users.EmailByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	authSess, err := s.auth.SignInWithPassword(ctx, backend.Credentials{Email: email, Password: req.Password})
	if err != nil {
		return nil, mapSignInError(err)
	}

	actx := backend.WithAccessToken(ctx, authSess.AccessToken)
	user, err := s.store.Users.GetByID(actx, authSess.User.ID)
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID:          uuid.NewString(),
		User:        *user,
		AccessToken: authSess.AccessToken,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	log.Printf("[Auth] Login OK: user=%s username=%s", user.ID, user.Username)
	return sess, nil
}

// Logout revokes the backend token and drops the session record. Revocation
// failure is logged but does not keep the session alive.
func (s *AuthService) Logout(ctx context.Context, sess *model.Session) error {
	if err := s.auth.SignOut(ctx, sess.AccessToken); err != nil {
		log.Printf("[Auth] SignOut FAILED: user=%s err=%v", sess.User.ID, err)
	}
	return s.sessions.Delete(ctx, sess.ID)
}

// mapSignUpError translates the auth subsystem's message text into the
// sentinels callers branch on. Only substring matches are available.
func mapSignUpError(err error) error {
	var berr *backend.Error
	if !errors.As(err, &berr) {
		return err
	}
	if strings.Contains(berr.Message, "rate") {
		return model.ErrSignupRateLimited
	}
	if strings.Contains(berr.Message, "already") {
		return model.ErrEmailRegistered
	}
	return err
}

func mapSignInError(err error) error {
	var berr *backend.Error
	if !errors.As(err, &berr) {
		return err
	}
	if strings.Contains(berr.Message, "Invalid login credentials") {
		return model.ErrInvalidCredentials
	}
	if strings.Contains(berr.Message, "Email not confirmed") {
		return model.ErrEmailNotConfirmed
	}
	return err
}

// placeholderAvatarURL builds the generated avatar for a new account: two
// random palette colors and the first two letters of the username.
func placeholderAvatarURL(username string) string {
	initials := username
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return "https://via.placeholder.com/100/" + randomColor() + "/" + randomColor() +
		"?text=" + strings.ToUpper(initials)
}

func randomColor() string {
	return avatarColors[rand.Intn(len(avatarColors))]
}
