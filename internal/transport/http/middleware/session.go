package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"waveline/internal/httputil"
	"waveline/internal/model"
	"waveline/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for the authenticated session
	SessionKey contextKey = "session"

	// SessionCookie is the cookie carrying the session id
	SessionCookie = "session_id"
)

// SessionMiddleware resolves the session cookie against the session store
// and puts the session on the request context. Requests without a live
// session get a 401; the client treats that as "go to login".
//
// jwtSecret is optional. When set, the backend access token inside the
// session is also checked for expiry so a stale token fails here instead
// of on the first backend call.
func SessionMiddleware(sessions session.Store, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				httputil.WriteUnauthorized(w, "Not authenticated")
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					httputil.WriteUnauthorized(w, "Session expired. Please log in again.")
					return
				}
				httputil.WriteInternalError(w, "Failed to load session")
				return
			}

			if jwtSecret != "" && tokenExpired(sess.AccessToken, jwtSecret) {
				httputil.WriteUnauthorized(w, "Session expired. Please log in again.")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenExpired reports whether the access token is past its exp claim. A
// token that fails to parse for any other reason is left to the backend to
// reject.
func tokenExpired(tokenString, secret string) bool {
	_, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	return err != nil && strings.Contains(err.Error(), "expired")
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (*model.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*model.Session)
	return sess, ok
}
