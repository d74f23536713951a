package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SheetClient talks to the JSON web API fronting the enrollment
// spreadsheet. The API exposes three operations:
//
//	GET  {base}/keys  → {"keys": [column names in order]}
//	GET  {base}/rows  → {"rows": [{column: value, ...}, ...]}
//	POST {base}/rows  ← {"data": {column: value, ...}}
//
// Outbound calls are paced by a client-side token bucket so a burst of
// submissions cannot trip the sheet API's quota.
type SheetClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pace       *rate.Limiter
}

type SheetOption func(*SheetClient)

// WithPace overrides the default outbound pacing (2 calls/s, burst 4).
func WithPace(callsPerSec float64, burst int) SheetOption {
	return func(c *SheetClient) { c.pace = rate.NewLimiter(rate.Limit(callsPerSec), burst) }
}

// NewSheetClient constructs a client for the sheet API at baseURL.
// token is sent as a bearer credential; empty disables the header.
func NewSheetClient(baseURL, token string, timeout time.Duration, opts ...SheetOption) *SheetClient {
	c := &SheetClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		pace:       rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sheetRow mirrors Row keyed by the sheet's column headers.
type sheetRow struct {
	Timestamp    string `json:"Fecha"`
	StudentName  string `json:"Nombre del Estudiante"`
	BirthDate    string `json:"Fecha de Nacimiento"`
	Address      string `json:"Dirección"`
	GuardianName string `json:"Nombre del Encargado"`
	Phone        string `json:"Teléfono"`
	Email        string `json:"Correo"`
	ProgramID    string `json:"Programa"`
	GradeLabel   string `json:"Grado"`
	Message      string `json:"Mensaje"`
}

func toSheetRow(r Row) sheetRow {
	return sheetRow{
		Timestamp:    r.Timestamp,
		StudentName:  r.StudentName,
		BirthDate:    r.BirthDate,
		Address:      r.Address,
		GuardianName: r.GuardianName,
		Phone:        r.Phone,
		Email:        r.Email,
		ProgramID:    r.ProgramID,
		GradeLabel:   r.GradeLabel,
		Message:      r.Message,
	}
}

func fromSheetRow(r sheetRow) Row {
	return Row{
		Timestamp:    r.Timestamp,
		StudentName:  r.StudentName,
		BirthDate:    r.BirthDate,
		Address:      r.Address,
		GuardianName: r.GuardianName,
		Phone:        r.Phone,
		Email:        r.Email,
		ProgramID:    r.ProgramID,
		GradeLabel:   r.GradeLabel,
		Message:      r.Message,
	}
}

// ReadAll fetches the full current row set.
func (c *SheetClient) ReadAll(ctx context.Context) ([]Row, error) {
	var resp struct {
		Rows []sheetRow `json:"rows"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/rows", &resp); err != nil {
		return nil, fmt.Errorf("sheet read: %w", err)
	}

	rows := make([]Row, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		rows = append(rows, fromSheetRow(r))
	}
	return rows, nil
}

// Append adds one row at the end of the sheet. A 400/422 from the API means
// the sheet's columns no longer match the contract and is classified as
// ErrSchemaMismatch.
func (c *SheetClient) Append(ctx context.Context, row Row) error {
	payload := map[string]sheetRow{"data": toSheetRow(row)}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sheet append: %w", err)
	}

	if err := c.pace.Wait(ctx); err != nil {
		return fmt.Errorf("sheet append: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rows", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sheet append: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheet append: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheet append rejected (%d) %s: %w",
			resp.StatusCode, strings.TrimSpace(string(detail)), ErrSchemaMismatch)
	default:
		return fmt.Errorf("sheet append: unexpected status %d", resp.StatusCode)
	}
}

// Ping verifies reachability and that the live sheet's columns still match
// the header contract.
func (c *SheetClient) Ping(ctx context.Context) error {
	var resp struct {
		Keys []string `json:"keys"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/keys", &resp); err != nil {
		return fmt.Errorf("sheet ping: %w", err)
	}

	want := Header()
	if len(resp.Keys) != len(want) {
		return fmt.Errorf("sheet has %d columns, want %d: %w", len(resp.Keys), len(want), ErrSchemaMismatch)
	}
	for i, k := range want {
		if resp.Keys[i] != k {
			return fmt.Errorf("sheet column %d is %q, want %q: %w", i, resp.Keys[i], k, ErrSchemaMismatch)
		}
	}
	return nil
}

func (c *SheetClient) getJSON(ctx context.Context, url string, out any) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *SheetClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
