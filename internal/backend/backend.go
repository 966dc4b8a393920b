// Package backend is the client for the external backend-as-a-service: a
// row-oriented data store addressed per table plus a separate auth subsystem.
// The store exposes a small fluent query language; every terminal method is
// exactly one network round trip, with no retries and no batching. Backend
// errors are surfaced verbatim as *Error.
package backend

import (
	"context"
	"fmt"
)

// Error carries the backend's error object. Message is whatever text the
// backend produced; callers match on it by substring only.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Filter is a single row predicate. Only equality is needed by this client.
type Filter struct {
	Column string
	Op     string
	Value  interface{}
}

// Order is a sort directive applied server-side; the client never re-sorts.
type Order struct {
	Column     string
	Descending bool
}

// Query describes one select against a table. Select may embed a related
// table's columns, e.g. "*, users(id,username,avatar_url,full_name)".
type Query struct {
	Table   string
	Select  string
	Filters []Filter
	Orders  []Order
	Limit   int
	Single  bool
}

// Executor runs queries against one concrete transport (hosted REST or direct
// Postgres). Implementations decode result rows into dest via JSON tags.
type Executor interface {
	Select(ctx context.Context, q Query, dest interface{}) error
	Count(ctx context.Context, q Query) (int64, error)
	Insert(ctx context.Context, table string, rows interface{}, dest interface{}) error
	Update(ctx context.Context, table string, fields map[string]interface{}, filters []Filter) error
	Delete(ctx context.Context, table string, filters []Filter) error
}

// Credentials is the auth subsystem's sign-up/sign-in payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUser is the identity record the auth subsystem returns.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthSession is the token bundle returned by a successful sign-in.
type AuthSession struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        AuthUser `json:"user"`
}

// Auth is the authentication subsystem.
type Auth interface {
	SignUp(ctx context.Context, creds Credentials) (*AuthUser, error)
	SignInWithPassword(ctx context.Context, creds Credentials) (*AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AdminAuth is the privileged identity API. Optional: only available with a
// service key (hosted) or in direct mode. Used to compensate a failed
// registration by removing the dangling identity.
type AdminAuth interface {
	DeleteUser(ctx context.Context, userID string) error
}

// Client couples an executor with the auth subsystem.
type Client struct {
	exec Executor
	auth Auth
}

func NewClient(exec Executor, auth Auth) *Client {
	return &Client{exec: exec, auth: auth}
}

// Auth returns the auth subsystem.
func (c *Client) Auth() Auth {
	return c.auth
}

// From starts a query against a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, query: Query{Table: table, Select: "*"}}
}

// QueryBuilder accumulates one query. Terminal methods execute it.
type QueryBuilder struct {
	client *Client
	query  Query
}

// Select sets the column list, optionally with an embedded join.
func (b *QueryBuilder) Select(columns string) *QueryBuilder {
	b.query.Select = columns
	return b
}

// Eq adds an equality filter.
func (b *QueryBuilder) Eq(column string, value interface{}) *QueryBuilder {
	b.query.Filters = append(b.query.Filters, Filter{Column: column, Op: "eq", Value: value})
	return b
}

// Order adds a sort directive.
func (b *QueryBuilder) Order(column string, descending bool) *QueryBuilder {
	b.query.Orders = append(b.query.Orders, Order{Column: column, Descending: descending})
	return b
}

// Limit caps the number of rows returned.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.query.Limit = n
	return b
}

// Fetch executes the query and decodes the rows into dest (a slice pointer).
func (b *QueryBuilder) Fetch(ctx context.Context, dest interface{}) error {
	return b.client.exec.Select(ctx, b.query, dest)
}

// FetchSingle executes the query expecting exactly one row.
func (b *QueryBuilder) FetchSingle(ctx context.Context, dest interface{}) error {
	q := b.query
	q.Single = true
	return b.client.exec.Select(ctx, q, dest)
}

// CountExact executes a count-only query; no rows are transferred.
func (b *QueryBuilder) CountExact(ctx context.Context) (int64, error) {
	return b.client.exec.Count(ctx, b.query)
}

// Insert writes one or more rows. rows is a struct, struct slice, or map.
func (b *QueryBuilder) Insert(ctx context.Context, rows interface{}) error {
	return b.client.exec.Insert(ctx, b.query.Table, rows, nil)
}

// InsertReturning writes rows and decodes the stored representation into dest.
func (b *QueryBuilder) InsertReturning(ctx context.Context, rows interface{}, dest interface{}) error {
	return b.client.exec.Insert(ctx, b.query.Table, rows, dest)
}

// Update patches the filtered rows with the given fields.
func (b *QueryBuilder) Update(ctx context.Context, fields map[string]interface{}) error {
	if len(b.query.Filters) == 0 {
		return &Error{Message: fmt.Sprintf("refusing unfiltered update on %q", b.query.Table)}
	}
	return b.client.exec.Update(ctx, b.query.Table, fields, b.query.Filters)
}

// Delete removes the filtered rows.
func (b *QueryBuilder) Delete(ctx context.Context) error {
	if len(b.query.Filters) == 0 {
		return &Error{Message: fmt.Sprintf("refusing unfiltered delete on %q", b.query.Table)}
	}
	return b.client.exec.Delete(ctx, b.query.Table, b.query.Filters)
}

type contextKey string

const accessTokenKey contextKey = "backend_access_token"

// WithAccessToken attaches the session's access token to the context so the
// transport can authorize row access as the current user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFromContext returns the attached access token, if any.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}
