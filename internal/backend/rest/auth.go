package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"waveline/internal/backend"
)

// Auth implements backend.Auth against the hosted auth API. With a service
// key it also implements backend.AdminAuth for identity cleanup.
type Auth struct {
	baseURL    string
	apiKey     string
	serviceKey string
	http       *http.Client
}

func NewAuth(baseURL, apiKey, serviceKey string) *Auth {
	return &Auth{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// HasAdmin reports whether privileged identity operations are available.
func (a *Auth) HasAdmin() bool {
	return a.serviceKey != ""
}

// SignUp creates an auth identity. The profile row is the caller's concern.
func (a *Auth) SignUp(ctx context.Context, creds backend.Credentials) (*backend.AuthUser, error) {
	body, err := a.do(ctx, http.MethodPost, "/auth/v1/signup", a.apiKey, creds)
	if err != nil {
		return nil, err
	}

	// The response is the identity itself, or a {user, session} envelope when
	// auto-confirm is on. Accept both.
	var envelope struct {
		ID   string            `json:"id"`
		User *backend.AuthUser `json:"user"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("decode signup response: %v", err)}
	}
	if envelope.User != nil {
		return envelope.User, nil
	}
	if envelope.ID != "" {
		var user backend.AuthUser
		if err := json.Unmarshal(body, &user); err != nil {
			return nil, &backend.Error{Message: fmt.Sprintf("decode signup response: %v", err)}
		}
		return &user, nil
	}
	return nil, &backend.Error{Message: "signup response carried no identity"}
}

// SignInWithPassword exchanges credentials for an access token.
func (a *Auth) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*backend.AuthSession, error) {
	body, err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", a.apiKey, creds)
	if err != nil {
		return nil, err
	}
	var session backend.AuthSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("decode token response: %v", err)}
	}
	return &session, nil
}

// SignOut revokes the access token server-side. Best effort: an invalid token
// is already signed out.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	return err
}

// DeleteUser removes an identity. Requires the service key.
func (a *Auth) DeleteUser(ctx context.Context, userID string) error {
	if a.serviceKey == "" {
		return &backend.Error{Message: "admin operations require a service key"}
	}
	_, err := a.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, a.serviceKey, nil)
	return err
}

func (a *Auth) do(ctx context.Context, method, path, bearer string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &backend.Error{Message: fmt.Sprintf("encode payload: %v", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &backend.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}
