// Package postgres runs the backend protocol directly against a PostgreSQL
// database holding the same schema as the hosted store. Used for self-hosted
// deployments; the semantics mirror the REST transport, including the error
// shape for single-row queries.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"waveline/internal/backend"
)

// embedForeignKeys maps an embeddable table to the parent column referencing
// it. The client only ever embeds author fields, so the registry is tiny.
var embedForeignKeys = map[string]string{
	"users": "user_id",
}

// Executor implements backend.Executor over sqlx.
type Executor struct {
	db *sqlx.DB
}

func NewExecutor(db *sqlx.DB) *Executor {
	return &Executor{db: db}
}

// Select builds and runs one SELECT, then resolves embedded joins with a
// second query per embedded table (two-query approach rather than a JOIN; the
// row shapes stay identical to the REST transport's nested objects).
func (e *Executor) Select(ctx context.Context, q backend.Query, dest interface{}) error {
	columns, embeds, err := parseSelect(q.Select)
	if err != nil {
		return err
	}

	query, args := buildSelectSQL(q, columns)
	rows, err := e.queryMaps(ctx, query, args...)
	if err != nil {
		return err
	}

	for _, embed := range embeds {
		if err := e.attachEmbed(ctx, rows, embed); err != nil {
			return err
		}
	}

	if q.Single {
		if len(rows) != 1 {
			return &backend.Error{
				Message: "JSON object requested, multiple (or no) rows returned",
				Code:    "PGRST116",
				Status:  406,
			}
		}
		return encodeInto(rows[0], dest)
	}
	return encodeInto(rows, dest)
}

// Count runs SELECT COUNT(*) with the query's filters.
func (e *Executor) Count(ctx context.Context, q backend.Query) (int64, error) {
	where, args := buildWhere(q.Filters)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", pq.QuoteIdentifier(q.Table), where)

	var n int64
	if err := e.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, &backend.Error{Message: err.Error()}
	}
	return n, nil
}

// Insert writes rows and optionally returns the stored representation.
func (e *Executor) Insert(ctx context.Context, table string, rowsValue interface{}, dest interface{}) error {
	rows, err := normalizeRowMaps(rowsValue)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &backend.Error{Message: "insert requires at least one row"}
	}

	columns := sortedKeys(rows[0])
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}

	var args []interface{}
	var tuples []string
	for _, row := range rows {
		placeholders := make([]string, len(columns))
		for i, c := range columns {
			args = append(args, normalizeArg(row[c]))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))

	if dest == nil {
		if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
			return &backend.Error{Message: err.Error()}
		}
		return nil
	}

	query += " RETURNING *"
	returned, err := e.queryMaps(ctx, query, args...)
	if err != nil {
		return err
	}
	return encodeInto(returned, dest)
}

// Update patches the filtered rows.
func (e *Executor) Update(ctx context.Context, table string, fields map[string]interface{}, filters []backend.Filter) error {
	columns := sortedKeys(fields)
	var args []interface{}
	sets := make([]string, len(columns))
	for i, c := range columns {
		args = append(args, normalizeArg(fields[c]))
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), len(args))
	}

	where, whereArgs := buildWhereOffset(filters, len(args))
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", pq.QuoteIdentifier(table), strings.Join(sets, ", "), where)
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return &backend.Error{Message: err.Error()}
	}
	return nil
}

// Delete removes the filtered rows.
func (e *Executor) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	where, args := buildWhere(filters)
	query := fmt.Sprintf("DELETE FROM %s%s", pq.QuoteIdentifier(table), where)
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return &backend.Error{Message: err.Error()}
	}
	return nil
}

// attachEmbed fetches the embedded table's rows for every distinct foreign key
// in the parent rows and nests them under the embedded table name.
func (e *Executor) attachEmbed(ctx context.Context, rows []map[string]interface{}, embed embedSpec) error {
	fk, ok := embedForeignKeys[embed.Table]
	if !ok {
		return &backend.Error{Message: fmt.Sprintf("no relationship registered for embed %q", embed.Table)}
	}

	idSet := make(map[string]struct{})
	for _, row := range rows {
		if id, ok := row[fk].(string); ok && id != "" {
			idSet[id] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	columnList := "*"
	if len(embed.Columns) > 0 {
		quoted := make([]string, len(embed.Columns))
		for i, c := range embed.Columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		columnList = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", columnList, pq.QuoteIdentifier(embed.Table))
	related, err := e.queryMaps(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}

	byID := make(map[string]map[string]interface{}, len(related))
	for _, r := range related {
		if id, ok := r["id"].(string); ok {
			byID[id] = r
		}
	}
	for _, row := range rows {
		if id, ok := row[fk].(string); ok {
			if nested, found := byID[id]; found {
				row[embed.Table] = nested
			}
		}
	}
	return nil
}

// queryMaps runs a query and scans every row into a map, normalizing driver
// byte slices into strings so the JSON re-encode looks like the wire format.
func (e *Executor) queryMaps(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	result, err := e.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, &backend.Error{Message: err.Error()}
	}
	defer result.Close()

	rows := []map[string]interface{}{}
	for result.Next() {
		row := map[string]interface{}{}
		if err := result.MapScan(row); err != nil {
			return nil, &backend.Error{Message: err.Error()}
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, &backend.Error{Message: err.Error()}
	}
	return rows, nil
}

type embedSpec struct {
	Table   string
	Columns []string
}

// parseSelect splits a select list into plain columns and embedded specs.
// "*, users(id,username)" -> ["*"], [{users [id username]}]
func parseSelect(sel string) ([]string, []embedSpec, error) {
	if strings.TrimSpace(sel) == "" {
		sel = "*"
	}

	var columns []string
	var embeds []embedSpec
	depth := 0
	start := 0
	sel = sel + ","
	for i, r := range sel {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, nil, &backend.Error{Message: fmt.Sprintf("malformed select list %q", sel)}
			}
		case ',':
			if depth != 0 {
				continue
			}
			item := strings.TrimSpace(sel[start:i])
			start = i + 1
			if item == "" {
				continue
			}
			if open := strings.Index(item, "("); open != -1 {
				if !strings.HasSuffix(item, ")") {
					return nil, nil, &backend.Error{Message: fmt.Sprintf("malformed embed %q", item)}
				}
				spec := embedSpec{Table: strings.TrimSpace(item[:open])}
				for _, c := range strings.Split(item[open+1:len(item)-1], ",") {
					if c = strings.TrimSpace(c); c != "" {
						spec.Columns = append(spec.Columns, c)
					}
				}
				embeds = append(embeds, spec)
			} else {
				columns = append(columns, item)
			}
		}
	}
	if depth != 0 {
		return nil, nil, &backend.Error{Message: fmt.Sprintf("malformed select list %q", sel)}
	}
	return columns, embeds, nil
}

// buildSelectSQL renders the base SELECT. Embeds are resolved separately.
func buildSelectSQL(q backend.Query, columns []string) (string, []interface{}) {
	columnList := "*"
	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "*") {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			if c == "*" {
				quoted[i] = "*"
				continue
			}
			quoted[i] = pq.QuoteIdentifier(c)
		}
		columnList = strings.Join(quoted, ", ")
	}

	where, args := buildWhere(q.Filters)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", columnList, pq.QuoteIdentifier(q.Table), where)

	if len(q.Orders) > 0 {
		clauses := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			clauses[i] = pq.QuoteIdentifier(o.Column) + " " + dir
		}
		fmt.Fprintf(&sb, " ORDER BY %s", strings.Join(clauses, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

func buildWhere(filters []backend.Filter) (string, []interface{}) {
	return buildWhereOffset(filters, 0)
}

func buildWhereOffset(filters []backend.Filter, offset int) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	var args []interface{}
	clauses := make([]string, len(filters))
	for i, f := range filters {
		args = append(args, normalizeArg(f.Value))
		clauses[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column), offset+len(args))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// normalizeRowMaps flattens an insert payload (struct, map, or slice of
// either) into row maps via a JSON round trip, so struct tags decide the
// column names just as they do on the wire.
func normalizeRowMaps(rowsValue interface{}) ([]map[string]interface{}, error) {
	raw, err := json.Marshal(rowsValue)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("encode insert payload: %v", err)}
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]interface{}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, &backend.Error{Message: fmt.Sprintf("decode insert payload: %v", err)}
		}
		return rows, nil
	}

	var row map[string]interface{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("decode insert payload: %v", err)}
	}
	return []map[string]interface{}{row}, nil
}

// normalizeArg flattens composite values (maps, slices) to JSON text; scalars
// pass through for the driver.
func normalizeArg(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return v
	}
	if raw, err := json.Marshal(v); err == nil {
		return string(raw)
	}
	return fmt.Sprint(v)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeInto re-encodes scanned rows through JSON so dest decoding matches the
// REST transport exactly.
func encodeInto(value interface{}, dest interface{}) error {
	if dest == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("encode rows: %v", err)}
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &backend.Error{Message: fmt.Sprintf("decode rows: %v", err)}
	}
	return nil
}
