// Package rest talks the hosted backend's wire protocol: a PostgREST-style
// row API under /rest/v1 and a GoTrue-style auth API under /auth/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waveline/internal/backend"
)

// Executor implements backend.Executor over the row API.
type Executor struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewExecutor creates an executor for the given project URL and anon key.
func NewExecutor(baseURL, apiKey string) *Executor {
	return &Executor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Select issues GET /rest/v1/{table} with PostgREST query params.
func (e *Executor) Select(ctx context.Context, q backend.Query, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.tableURL(q.Table, queryParams(q)), nil)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	e.setHeaders(ctx, req)
	if q.Single {
		// One JSON object instead of an array; zero or many rows is an error.
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return &backend.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &backend.Error{Message: fmt.Sprintf("decode rows: %v", err)}
	}
	return nil
}

// Count issues a count-only query: Prefer count=exact with an empty row range,
// so only the Content-Range header carries data.
func (e *Executor) Count(ctx context.Context, q backend.Query) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.tableURL(q.Table, queryParams(q)), nil)
	if err != nil {
		return 0, &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	e.setHeaders(ctx, req)
	req.Header.Set("Prefer", "count=exact")
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", "0-0")

	resp, err := e.http.Do(req)
	if err != nil {
		return 0, &backend.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &backend.Error{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return 0, decodeError(resp.StatusCode, body)
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// Insert issues POST /rest/v1/{table} with a JSON array of rows.
func (e *Executor) Insert(ctx context.Context, table string, rows interface{}, dest interface{}) error {
	payload, err := normalizeRows(rows)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tableURL(table, nil), bytes.NewReader(payload))
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	e.setHeaders(ctx, req)
	req.Header.Set("Content-Type", "application/json")
	if dest != nil {
		req.Header.Set("Prefer", "return=representation")
	} else {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return &backend.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &backend.Error{Message: fmt.Sprintf("decode rows: %v", err)}
	}
	return nil
}

// Update issues PATCH /rest/v1/{table} with filters in the query string.
func (e *Executor) Update(ctx context.Context, table string, fields map[string]interface{}, filters []backend.Filter) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("encode fields: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, e.tableURL(table, filterParams(filters)), bytes.NewReader(body))
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	e.setHeaders(ctx, req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	return e.doNoContent(req)
}

// Delete issues DELETE /rest/v1/{table} with filters in the query string.
func (e *Executor) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, e.tableURL(table, filterParams(filters)), nil)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	e.setHeaders(ctx, req)
	req.Header.Set("Prefer", "return=minimal")
	return e.doNoContent(req)
}

func (e *Executor) doNoContent(req *http.Request) error {
	resp, err := e.http.Do(req)
	if err != nil {
		return &backend.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}
	return nil
}

func (e *Executor) tableURL(table string, params url.Values) string {
	u := e.baseURL + "/rest/v1/" + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// setHeaders authorizes the request: the anon key always, plus the session's
// access token when one is attached to the context.
func (e *Executor) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("apikey", e.apiKey)
	if token, ok := backend.AccessTokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// queryParams renders a Query into PostgREST query parameters.
func queryParams(q backend.Query) url.Values {
	params := filterParams(q.Filters)
	if q.Select != "" {
		params.Set("select", compactSelect(q.Select))
	}
	for _, o := range q.Orders {
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		params.Add("order", o.Column+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

func filterParams(filters []backend.Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, f.Op+"."+fmt.Sprint(f.Value))
	}
	return params
}

// compactSelect strips spaces so "*, users(id, username)" becomes the wire
// form "*,users(id,username)".
func compactSelect(sel string) string {
	return strings.ReplaceAll(sel, " ", "")
}

// normalizeRows wraps a single row into a one-element JSON array; the row API
// always takes arrays.
func normalizeRows(rows interface{}) ([]byte, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, &backend.Error{Message: fmt.Sprintf("encode rows: %v", err)}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, nil
	}
	return append(append([]byte{'['}, trimmed...), ']'), nil
}

// parseContentRange extracts the total from "0-0/42" or "*/0".
func parseContentRange(header string) (int64, error) {
	idx := strings.LastIndex(header, "/")
	if idx == -1 {
		return 0, &backend.Error{Message: fmt.Sprintf("malformed content range %q", header)}
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, nil
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, &backend.Error{Message: fmt.Sprintf("malformed content range %q", header)}
	}
	return n, nil
}

// decodeError lifts the backend's error object into *backend.Error. The row
// API uses {message, code}; the auth API uses {msg} or {error_description}.
func decodeError(status int, body []byte) error {
	var payload struct {
		Message          string `json:"message"`
		Code             string `json:"code"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	message := strings.TrimSpace(string(body))
	code := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			message = payload.Message
		case payload.Msg != "":
			message = payload.Msg
		case payload.ErrorDescription != "":
			message = payload.ErrorDescription
		}
		code = payload.Code
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &backend.Error{Message: message, Code: code, Status: status}
}
