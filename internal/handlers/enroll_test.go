package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/academia-hn/enrollment-intake/internal/httpserver"
	"github.com/academia-hn/enrollment-intake/internal/intake"
	"github.com/academia-hn/enrollment-intake/internal/ledger"
	"github.com/academia-hn/enrollment-intake/internal/models"
	"github.com/academia-hn/enrollment-intake/internal/ratelimit"
)

type fakeLedger struct {
	rows    []ledger.Row
	pingErr error
}

func (f *fakeLedger) ReadAll(context.Context) ([]ledger.Row, error) { return f.rows, nil }
func (f *fakeLedger) Append(_ context.Context, row ledger.Row) error {
	f.rows = append(f.rows, row)
	return nil
}
func (f *fakeLedger) Ping(context.Context) error { return f.pingErr }

func newRouter(fl *fakeLedger) http.Handler {
	svc := intake.NewService(
		ratelimit.New(5, 15*time.Minute),
		fl,
		intake.WithLedgerTimeout(time.Second),
	)
	return httpserver.NewRouter(svc, fl, prometheus.NewRegistry(), zap.NewNop())
}

func post(t *testing.T, h http.Handler, body any, clientIP string) (*httptest.ResponseRecorder, models.IntakeResponse) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/enrollments", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = clientIP + ":1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp models.IntakeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func validBody() models.IntakeRequest {
	return models.IntakeRequest{
		StudentName:  "Maria Lopez",
		BirthDate:    "2012-05-01",
		Address:      "123 Main",
		GuardianName: "Jose Lopez",
		Phone:        "+504 9876-5432",
		ProgramID:    "btp",
		GradeLabel:   "10mo Grado",
	}
}

func TestEnroll_Success(t *testing.T) {
	fl := &fakeLedger{}
	h := newRouter(fl)

	w, resp := post(t, h, validBody(), "190.4.20.1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(fl.rows) != 1 || fl.rows[0].Email != ledger.Placeholder {
		t.Fatalf("row not written with placeholder: %+v", fl.rows)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestEnroll_MalformedJSON(t *testing.T) {
	h := newRouter(&fakeLedger{})

	req := httptest.NewRequest(http.MethodPost, "/api/enrollments", strings.NewReader("{not json"))
	req.RemoteAddr = "190.4.20.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEnroll_MissingFields(t *testing.T) {
	body := validBody()
	body.GuardianName = ""
	body.Phone = ""

	w, resp := post(t, newRouter(&fakeLedger{}), body, "190.4.20.1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(resp.MissingFields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", resp.MissingFields)
	}
}

func TestEnroll_Duplicate(t *testing.T) {
	fl := &fakeLedger{}
	h := newRouter(fl)

	if w, _ := post(t, h, validBody(), "190.4.20.1"); w.Code != http.StatusOK {
		t.Fatalf("first submission: expected 200, got %d", w.Code)
	}
	w, resp := post(t, h, validBody(), "190.4.20.2")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp.Success {
		t.Fatal("duplicate must not report success")
	}
	if len(fl.rows) != 1 {
		t.Fatalf("duplicate wrote a second row: %d", len(fl.rows))
	}
}

func TestEnroll_ThrottledWithRetryAfter(t *testing.T) {
	h := newRouter(&fakeLedger{})

	for i := 0; i < 5; i++ {
		body := validBody()
		body.StudentName = "Estudiante " + strings.Repeat("A", i+1)
		body.Phone = "+504 1111-111" + string(rune('0'+i))
		post(t, h, body, "190.4.20.1")
	}

	w, resp := post(t, h, validBody(), "190.4.20.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if resp.Success {
		t.Fatal("throttled must not report success")
	}
}

func TestEnroll_ForwardedForKeysThrottle(t *testing.T) {
	h := newRouter(&fakeLedger{})

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/enrollments", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", xff)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 5; i++ {
		if code := send("200.1.1.1"); code != http.StatusBadRequest {
			t.Fatalf("expected 400 while under limit, got %d", code)
		}
	}
	if code := send("200.1.1.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for exhausted XFF key, got %d", code)
	}
	if code := send("200.2.2.2"); code != http.StatusBadRequest {
		t.Fatalf("expected different XFF key to be admitted, got %d", code)
	}
}

func TestHealthAndReady(t *testing.T) {
	fl := &fakeLedger{}
	h := newRouter(fl)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", w.Code)
	}

	fl.pingErr = errors.New("sheet unreachable")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with failing ledger: expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newRouter(&fakeLedger{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
}
