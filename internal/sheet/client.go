// Package sheet talks to a spreadsheet-like web endpoint that serves the
// board's rows and applies row updates.
//
// Wire format: GET returns {"rows": [[...], ...]} with the header row first.
// POST takes {"action": ..., "row": n, ...} for the actions setStatus,
// saveFields, upsert and delete; upsert answers {"row": n}.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/jobdeck/internal/models"
)

const maxResponseBytes = 10 * 1024 * 1024

// Actions understood by the endpoint.
const (
	ActionSetStatus  = "setStatus"
	ActionSaveFields = "saveFields"
	ActionUpsert     = "upsert"
	ActionDelete     = "delete"
)

// Request is the body of a write call.
type Request struct {
	Action string            `json:"action"`
	Row    int               `json:"row,omitempty"`
	ID     string            `json:"id,omitempty"`
	Status models.Column     `json:"status,omitempty"`
	Fields *models.Fields    `json:"fields,omitempty"`
	Record *models.JobRecord `json:"record,omitempty"`
}

type rowsResponse struct {
	Rows [][]string `json:"rows"`
}

type upsertResponse struct {
	Row int `json:"row"`
}

// Client implements ingest.Source and remote.Syncer over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns a client for endpoint. token, when set, is sent as a
// bearer token. A nil httpClient gets a client with a 15s timeout.
func NewClient(endpoint, token string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("sheet: invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("sheet: unsupported URL scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: u.String(), token: token, http: httpClient}, nil
}

// Fetch downloads every row, headers first.
func (c *Client) Fetch(ctx context.Context) ([][]string, error) {
	var out rowsResponse
	if err := c.do(ctx, http.MethodGet, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// SetStatus rewrites the status cell of a row.
func (c *Client) SetStatus(ctx context.Context, rowIndex int, status models.Column) error {
	return c.do(ctx, http.MethodPost, Request{Action: ActionSetStatus, Row: rowIndex, Status: status}, nil)
}

// SaveFields rewrites the notes, interview date, contacts and tag of a row.
func (c *Client) SaveFields(ctx context.Context, rowIndex int, fields models.Fields) error {
	return c.do(ctx, http.MethodPost, Request{Action: ActionSaveFields, Row: rowIndex, Fields: &fields}, nil)
}

// UpsertRecord creates the row when rowIndex is 0. An update that gets no
// row back keeps rowIndex.
func (c *Client) UpsertRecord(ctx context.Context, rec models.JobRecord, rowIndex int) (int, error) {
	var out upsertResponse
	if err := c.do(ctx, http.MethodPost, Request{Action: ActionUpsert, Row: rowIndex, Record: &rec}, &out); err != nil {
		return 0, err
	}
	if out.Row > 0 {
		return out.Row, nil
	}
	if rowIndex == 0 {
		return 0, errors.New("sheet: upsert returned no row")
	}
	return rowIndex, nil
}

// DeleteRecord removes the row holding id.
func (c *Client) DeleteRecord(ctx context.Context, id string, rowIndex int) error {
	return c.do(ctx, http.MethodPost, Request{Action: ActionDelete, Row: rowIndex, ID: id}, nil)
}

func (c *Client) do(ctx context.Context, method string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sheet: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, reader)
	if err != nil {
		return fmt.Errorf("sheet: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheet: %s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("sheet: read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		return errors.New("sheet: response too large")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("sheet: decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sheet: HTTP %d", e.Code)
	}
	return fmt.Sprintf("sheet: HTTP %d: %s", e.Code, e.Body)
}
