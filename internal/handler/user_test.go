package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"waveline/internal/backend"
	"waveline/internal/backend/backendtest"
	"waveline/internal/model"
	"waveline/internal/service"
	"waveline/internal/state"
	"waveline/internal/store"
	"waveline/internal/transport/http/middleware"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newUserHandlerFixture() (*UserHandler, *state.Store, *backendtest.Executor) {
	exec := backendtest.NewExecutor()
	auth := backendtest.NewAuth()
	st := store.New(backend.NewClient(exec, auth))
	snapshot := state.New()
	svc := service.NewFeedService(st, snapshot, nil)
	return NewUserHandler(svc, snapshot), snapshot, exec
}

func seedProfiles(exec *backendtest.Executor) {
	exec.Seed("users",
		backendtest.Row{"id": "u1", "username": "alice", "full_name": "Alice", "email": "a@x.com"},
		backendtest.Row{"id": "u2", "username": "bob", "full_name": "Bob", "email": "b@x.com"},
	)
	exec.Seed("posts",
		backendtest.Row{"id": "p1", "user_id": "u2", "content": "hi", "created_at": "2026-08-01T10:00:00Z"},
	)
}

func sessionRequest(method, target string, sess *model.Session) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.SessionKey, sess)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// =============================================================================
// COLD SNAPSHOT
// =============================================================================

// A profile request before anyone has hit the timeline must load the
// snapshot itself rather than 404 on a user that exists.
func TestUserHandler_Profile_LoadsSnapshotOnColdStart(t *testing.T) {
	h, snapshot, exec := newUserHandlerFixture()
	seedProfiles(exec)
	sess := &model.Session{ID: "s1", User: model.User{ID: "u1", Username: "alice"}}

	req := withURLParam(sessionRequest(http.MethodGet, "/users/u2", sess), "id", "u2")
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !snapshot.Loaded() {
		t.Error("snapshot still not loaded after profile request")
	}

	var profile struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
		PostCount int `json:"post_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatal(err)
	}
	if profile.User.ID != "u2" || profile.User.Username != "bob" {
		t.Errorf("profile user = %+v", profile.User)
	}
	if profile.PostCount != 1 {
		t.Errorf("PostCount = %d, want 1", profile.PostCount)
	}
}

func TestUserHandler_Profile_UnknownUserStill404s(t *testing.T) {
	h, _, exec := newUserHandlerFixture()
	seedProfiles(exec)
	sess := &model.Session{ID: "s1", User: model.User{ID: "u1", Username: "alice"}}

	req := withURLParam(sessionRequest(http.MethodGet, "/users/ghost", sess), "id", "ghost")
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUserHandler_Search_LoadsSnapshotOnColdStart(t *testing.T) {
	h, _, exec := newUserHandlerFixture()
	seedProfiles(exec)
	sess := &model.Session{ID: "s1", User: model.User{ID: "u1", Username: "alice"}}

	req := sessionRequest(http.MethodGet, "/users/search?q=bob", sess)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Results []struct {
			Username string `json:"username"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 || result.Results[0].Username != "bob" {
		t.Errorf("search results = %+v", result.Results)
	}
}

func TestUserHandler_Suggested_LoadsSnapshotOnColdStart(t *testing.T) {
	h, _, exec := newUserHandlerFixture()
	seedProfiles(exec)
	sess := &model.Session{ID: "s1", User: model.User{ID: "u1", Username: "alice"}}

	req := sessionRequest(http.MethodGet, "/users/suggested", sess)
	rec := httptest.NewRecorder()
	h.Suggested(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Users) != 1 || result.Users[0].ID != "u2" {
		t.Errorf("suggested = %+v", result.Users)
	}
}
