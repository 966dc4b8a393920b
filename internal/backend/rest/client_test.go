package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"waveline/internal/backend"
)

// =============================================================================
// WIRE FORMAT TESTS
// =============================================================================

func TestQueryParams(t *testing.T) {
	q := backend.Query{
		Table:  "posts",
		Select: "*, users(id, username, avatar_url, full_name)",
		Filters: []backend.Filter{
			{Column: "user_id", Op: "eq", Value: "u1"},
		},
		Orders: []backend.Order{{Column: "created_at", Descending: true}},
		Limit:  1,
	}

	params := queryParams(q)
	if got := params.Get("select"); got != "*,users(id,username,avatar_url,full_name)" {
		t.Errorf("select = %q", got)
	}
	if got := params.Get("user_id"); got != "eq.u1" {
		t.Errorf("user_id = %q", got)
	}
	if got := params.Get("order"); got != "created_at.desc" {
		t.Errorf("order = %q", got)
	}
	if got := params.Get("limit"); got != "1" {
		t.Errorf("limit = %q", got)
	}
}

func TestParseContentRange(t *testing.T) {
	cases := []struct {
		header  string
		want    int64
		wantErr bool
	}{
		{"0-0/42", 42, false},
		{"*/0", 0, false},
		{"0-0/*", 0, false},
		{"garbage", 0, true},
	}
	for _, tc := range cases {
		got, err := parseContentRange(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseContentRange(%q): want error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseContentRange(%q): %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseContentRange(%q) = %d, want %d", tc.header, got, tc.want)
		}
	}
}

func TestNormalizeRows(t *testing.T) {
	single, err := normalizeRows(map[string]string{"content": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if string(single) != `[{"content":"hi"}]` {
		t.Errorf("single = %s", single)
	}

	already, err := normalizeRows([]map[string]string{{"content": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(already) != `[{"content":"hi"}]` {
		t.Errorf("array = %s", already)
	}
}

// =============================================================================
// HTTP ROUND TRIP TESTS
// =============================================================================

func TestExecutor_Select(t *testing.T) {
	var gotPath, gotAuth, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1","username":"alice"}]`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	ctx := backend.WithAccessToken(context.Background(), "user-token")

	var rows []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	err := exec.Select(ctx, backend.Query{Table: "users", Select: "*"}, &rows)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if gotPath != "/rest/v1/users" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAPIKey != "anon-key" {
		t.Errorf("apikey = %q", gotAPIKey)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q, want session token", gotAuth)
	}
	if len(rows) != 1 || rows[0].Username != "alice" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExecutor_Select_AnonFallback(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	var rows []struct{}
	if err := exec.Select(context.Background(), backend.Query{Table: "users"}, &rows); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if gotAuth != "Bearer anon-key" {
		t.Errorf("Authorization = %q, want anon key fallback", gotAuth)
	}
}

func TestExecutor_Count(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "count=exact" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		w.Header().Set("Content-Range", "0-0/42")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	n, err := exec.Count(context.Background(), backend.Query{Table: "likes"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 42 {
		t.Errorf("count = %d, want 42", n)
	}
}

func TestExecutor_Insert_Returning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"p1","content":"hi"}]`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	var rows []struct {
		ID string `json:"id"`
	}
	err := exec.Insert(context.Background(), "posts", map[string]string{"content": "hi"}, &rows)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "p1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExecutor_ErrorSurfacedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key value violates unique constraint","code":"23505"}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	err := exec.Insert(context.Background(), "users", map[string]string{"id": "u1"}, nil)

	var berr *backend.Error
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want *backend.Error", err)
	}
	if berr.Message != "duplicate key value violates unique constraint" {
		t.Errorf("Message = %q", berr.Message)
	}
	if berr.Code != "23505" {
		t.Errorf("Code = %q", berr.Code)
	}
	if berr.Status != http.StatusConflict {
		t.Errorf("Status = %d", berr.Status)
	}
}

func TestExecutor_SingleSetsAcceptHeader(t *testing.T) {
	var gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"id":"u1"}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, "anon-key")
	var row struct {
		ID string `json:"id"`
	}
	err := exec.Select(context.Background(), backend.Query{Table: "users", Single: true}, &row)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if gotAccept != "application/vnd.pgrst.object+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if row.ID != "u1" {
		t.Errorf("row = %+v", row)
	}
}
