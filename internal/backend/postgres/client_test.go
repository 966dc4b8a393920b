package postgres

import (
	"testing"

	"waveline/internal/backend"
)

// =============================================================================
// SELECT LIST PARSING
// =============================================================================

func TestParseSelect(t *testing.T) {
	columns, embeds, err := parseSelect("*, users(id, username, avatar_url, full_name)")
	if err != nil {
		t.Fatalf("parseSelect failed: %v", err)
	}

	if len(columns) != 1 || columns[0] != "*" {
		t.Errorf("columns = %v", columns)
	}
	if len(embeds) != 1 {
		t.Fatalf("embeds = %v", embeds)
	}
	if embeds[0].Table != "users" {
		t.Errorf("embed table = %q", embeds[0].Table)
	}
	want := []string{"id", "username", "avatar_url", "full_name"}
	if len(embeds[0].Columns) != len(want) {
		t.Fatalf("embed columns = %v", embeds[0].Columns)
	}
	for i, c := range want {
		if embeds[0].Columns[i] != c {
			t.Errorf("embed column %d = %q, want %q", i, embeds[0].Columns[i], c)
		}
	}
}

func TestParseSelect_PlainColumns(t *testing.T) {
	columns, embeds, err := parseSelect("id, email")
	if err != nil {
		t.Fatalf("parseSelect failed: %v", err)
	}
	if len(columns) != 2 || columns[0] != "id" || columns[1] != "email" {
		t.Errorf("columns = %v", columns)
	}
	if len(embeds) != 0 {
		t.Errorf("embeds = %v", embeds)
	}
}

func TestParseSelect_EmptyDefaultsToStar(t *testing.T) {
	columns, embeds, err := parseSelect("  ")
	if err != nil {
		t.Fatalf("parseSelect failed: %v", err)
	}
	if len(columns) != 1 || columns[0] != "*" || len(embeds) != 0 {
		t.Errorf("columns = %v embeds = %v", columns, embeds)
	}
}

func TestParseSelect_Malformed(t *testing.T) {
	for _, sel := range []string{"users(id", "users id)", "users(id))"} {
		if _, _, err := parseSelect(sel); err == nil {
			t.Errorf("parseSelect(%q): want error", sel)
		}
	}
}

// =============================================================================
// SQL RENDERING
// =============================================================================

func TestBuildSelectSQL(t *testing.T) {
	q := backend.Query{
		Table: "posts",
		Filters: []backend.Filter{
			{Column: "user_id", Op: "eq", Value: "u1"},
		},
		Orders: []backend.Order{{Column: "created_at", Descending: true}},
		Limit:  10,
	}

	query, args := buildSelectSQL(q, []string{"*"})
	want := `SELECT * FROM "posts" WHERE "user_id" = $1 ORDER BY "created_at" DESC LIMIT 10`
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	if len(args) != 1 || args[0] != "u1" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSelectSQL_ColumnSubset(t *testing.T) {
	q := backend.Query{Table: "users", Filters: []backend.Filter{{Column: "username", Op: "eq", Value: "alice"}}}

	query, args := buildSelectSQL(q, []string{"email"})
	want := `SELECT "email" FROM "users" WHERE "username" = $1`
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	if len(args) != 1 || args[0] != "alice" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildWhereOffset(t *testing.T) {
	filters := []backend.Filter{
		{Column: "post_id", Op: "eq", Value: "p1"},
		{Column: "user_id", Op: "eq", Value: "u1"},
	}

	where, args := buildWhereOffset(filters, 2)
	want := ` WHERE "post_id" = $3 AND "user_id" = $4`
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 2 || args[0] != "p1" || args[1] != "u1" {
		t.Errorf("args = %v", args)
	}

	if where, args := buildWhereOffset(nil, 0); where != "" || len(args) != 0 {
		t.Errorf("empty filters: where = %q args = %v", where, args)
	}
}

// =============================================================================
// INSERT PAYLOAD NORMALIZATION
// =============================================================================

func TestNormalizeRowMaps_SingleStruct(t *testing.T) {
	payload := struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
	}{UserID: "u1", Content: "hello"}

	rows, err := normalizeRowMaps(payload)
	if err != nil {
		t.Fatalf("normalizeRowMaps failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want one row", rows)
	}
	if rows[0]["user_id"] != "u1" || rows[0]["content"] != "hello" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestNormalizeRowMaps_Slice(t *testing.T) {
	payload := []map[string]interface{}{
		{"id": "a"},
		{"id": "b"},
	}

	rows, err := normalizeRowMaps(payload)
	if err != nil {
		t.Fatalf("normalizeRowMaps failed: %v", err)
	}
	if len(rows) != 2 || rows[0]["id"] != "a" || rows[1]["id"] != "b" {
		t.Errorf("rows = %v", rows)
	}
}

func TestNormalizeRowMaps_ColumnNamesFollowTags(t *testing.T) {
	payload := struct {
		PostID string `json:"post_id"`
	}{PostID: "p1"}

	rows, err := normalizeRowMaps(payload)
	if err != nil {
		t.Fatalf("normalizeRowMaps failed: %v", err)
	}
	if _, ok := rows[0]["post_id"]; !ok {
		t.Errorf("row keys = %v, want json tag names", rows[0])
	}
}
