// Package backendtest provides an in-memory backend for tests. The fake
// executor keeps rows as generic maps per table and implements enough of
// the query surface (equality filters, ordering, limits, embeds, counts)
// to exercise the real store wrappers end to end.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"waveline/internal/backend"
)

// Row is one stored record.
type Row = map[string]interface{}

// Executor is an in-memory backend.Executor.
type Executor struct {
	mu     sync.Mutex
	tables map[string][]Row

	// FailNextInsert makes the next Insert on the named table fail with
	// the given error. Used to force the registration compensation path.
	FailNextInsert map[string]error
}

func NewExecutor() *Executor {
	return &Executor{
		tables:         make(map[string][]Row),
		FailNextInsert: make(map[string]error),
	}
}

// Seed adds rows to a table directly.
func (e *Executor) Seed(table string, rows ...Row) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables[table] = append(e.tables[table], rows...)
}

// Rows returns a copy of a table's rows.
func (e *Executor) Rows(table string) []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Row(nil), e.tables[table]...)
}

func (e *Executor) Select(ctx context.Context, q backend.Query, dest interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := e.match(q.Table, q.Filters)
	e.order(rows, q.Orders)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	if strings.Contains(q.Select, "users(") {
		rows = e.embedUsers(rows)
	}

	if q.Single {
		if len(rows) != 1 {
			return &backend.Error{
				Message: "JSON object requested, multiple (or no) rows returned",
				Code:    "PGRST116",
				Status:  406,
			}
		}
		return reencode(rows[0], dest)
	}
	return reencode(rows, dest)
}

func (e *Executor) Count(ctx context.Context, q backend.Query) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.match(q.Table, q.Filters))), nil
}

func (e *Executor) Insert(ctx context.Context, table string, rows interface{}, dest interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err, ok := e.FailNextInsert[table]; ok {
		delete(e.FailNextInsert, table)
		return err
	}

	var generic []Row
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &generic); err != nil {
		var one Row
		if err := json.Unmarshal(data, &one); err != nil {
			return fmt.Errorf("backendtest: unsupported insert payload: %w", err)
		}
		generic = []Row{one}
	}

	for i := range generic {
		if _, ok := generic[i]["id"]; !ok {
			generic[i]["id"] = uuid.NewString()
		}
	}
	e.tables[table] = append(e.tables[table], generic...)

	if dest != nil {
		return reencode(generic, dest)
	}
	return nil
}

func (e *Executor) Update(ctx context.Context, table string, fields map[string]interface{}, filters []backend.Filter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, row := range e.match(table, filters) {
		for k, v := range fields {
			row[k] = v
		}
	}
	return nil
}

func (e *Executor) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var kept []Row
	for _, row := range e.tables[table] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	e.tables[table] = kept
	return nil
}

// match returns the live row maps so Update can mutate in place.
func (e *Executor) match(table string, filters []backend.Filter) []Row {
	var out []Row
	for _, row := range e.tables[table] {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row Row, filters []backend.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func (e *Executor) order(rows []Row, orders []backend.Order) {
	if len(orders) == 0 {
		return
	}
	o := orders[0]
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := fmt.Sprint(rows[i][o.Column]), fmt.Sprint(rows[j][o.Column])
		if o.Descending {
			return a > b
		}
		return a < b
	})
}

// embedUsers nests the matching users row under a "users" key, the way the
// row store materializes an embedded join.
func (e *Executor) embedUsers(rows []Row) []Row {
	byID := make(map[string]Row)
	for _, u := range e.tables["users"] {
		byID[fmt.Sprint(u["id"])] = u
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		clone := make(Row, len(row)+1)
		for k, v := range row {
			clone[k] = v
		}
		if author, ok := byID[fmt.Sprint(row["user_id"])]; ok {
			clone["users"] = author
		}
		out = append(out, clone)
	}
	return out
}

func reencode(src, dest interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Auth is an in-memory backend.Auth that records calls.
type Auth struct {
	mu sync.Mutex

	// identities maps email to password
	identities map[string]string
	ids        map[string]string // email -> user id

	// SignUpErr, when set, fails the next SignUp with this error.
	SignUpErr error
	// SignInErr, when set, fails the next SignInWithPassword.
	SignInErr error

	SignUpCalls  int
	SignInCalls  int
	SignOutCalls int
	DeleteCalls  []string
}

func NewAuth() *Auth {
	return &Auth{
		identities: make(map[string]string),
		ids:        make(map[string]string),
	}
}

// SeedIdentity registers an identity without going through SignUp.
func (a *Auth) SeedIdentity(id, email, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identities[email] = password
	a.ids[email] = id
}

func (a *Auth) SignUp(ctx context.Context, creds backend.Credentials) (*backend.AuthUser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SignUpCalls++

	if a.SignUpErr != nil {
		err := a.SignUpErr
		a.SignUpErr = nil
		return nil, err
	}
	if _, exists := a.identities[creds.Email]; exists {
		return nil, &backend.Error{Message: "User already registered", Status: 422}
	}

	id := uuid.NewString()
	a.identities[creds.Email] = creds.Password
	a.ids[creds.Email] = id
	return &backend.AuthUser{ID: id, Email: creds.Email}, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*backend.AuthSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SignInCalls++

	if a.SignInErr != nil {
		err := a.SignInErr
		a.SignInErr = nil
		return nil, err
	}
	password, exists := a.identities[creds.Email]
	if !exists || password != creds.Password {
		return nil, &backend.Error{Message: "Invalid login credentials", Status: 400}
	}

	return &backend.AuthSession{
		AccessToken: "token-" + a.ids[creds.Email],
		TokenType:   "bearer",
		ExpiresIn:   3600,
		User:        backend.AuthUser{ID: a.ids[creds.Email], Email: creds.Email},
	}, nil
}

func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SignOutCalls++
	return nil
}

func (a *Auth) DeleteUser(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.DeleteCalls = append(a.DeleteCalls, userID)
	for email, id := range a.ids {
		if id == userID {
			delete(a.ids, email)
			delete(a.identities, email)
		}
	}
	return nil
}
