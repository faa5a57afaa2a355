package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/records/memory"
	"financeflow/internal/services"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	svc := services.NewFinanceService(memory.New(), nil, services.WithClock(func() time.Time { return testNow }))
	srv := NewServer(svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type billResponse struct {
	ID     int64 `json:"id"`
	Name   string
	IsPaid bool `json:"isPaid"`
	State  struct {
		Label string `json:"label"`
	} `json:"state"`
}

type goalResponse struct {
	ID            int64           `json:"id"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Status        string          `json:"status"`
	Progress      struct {
		Percentage float64 `json:"percentage"`
	} `json:"progress"`
}

const rentBill = `{"name":"Rent","amount":"1200","dueDate":"2024-01-20","category":"Housing"}`

func TestHealthAndReadiness(t *testing.T) {
	var readyErr error
	srv := newTestServer(t, Options{Ready: func(context.Context) error { return readyErr }})

	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
	readyErr = errors.New("database is locked")
	rec := do(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing store = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "locked") {
		t.Errorf("readiness leaked the cause: %s", rec.Body.String())
	}
}

func TestBillLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/bills", rentBill)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/bills/1" {
		t.Errorf("Location = %q", loc)
	}
	created := decode[billResponse](t, rec)
	if created.ID != 1 || created.State.Label == "" {
		t.Errorf("created = %+v", created)
	}

	list := decode[[]billResponse](t, do(t, srv, http.MethodGet, "/api/bills", ""))
	if len(list) != 1 || list[0].State.Label == "" {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, srv, http.MethodPatch, "/api/bills/1", `{"name":"Flat rent"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[billResponse](t, rec); got.Name != "Flat rent" {
		t.Errorf("patched name = %q", got.Name)
	}
	// The merge kept the fields the patch omitted.
	rec = do(t, srv, http.MethodGet, "/api/bills/1", "")
	if !strings.Contains(rec.Body.String(), `"category":"Housing"`) {
		t.Errorf("patch dropped fields: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPut, "/api/bills/1", `{"name":"Flat rent"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("replace with partial body = %d, want 422", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/bills/1/pay", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pay = %d: %s", rec.Code, rec.Body.String())
	}
	if paid := decode[billResponse](t, rec); !paid.IsPaid || paid.State.Label != "Paid" {
		t.Errorf("paid = %+v", paid)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/bills/1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bills/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/bills/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete twice = %d", rec.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid json", http.MethodPost, "/api/accounts", `{"name":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/accounts", "", http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/accounts", `{"name":"A","type":"checking"} {}`, http.StatusBadRequest},
		{"validation", http.MethodPost, "/api/accounts", `{"name":"A","type":"piggy-bank"}`, http.StatusUnprocessableEntity},
		{"non numeric id", http.MethodGet, "/api/accounts/abc", "", http.StatusNotFound},
		{"missing record", http.MethodGet, "/api/accounts/99", "", http.StatusNotFound},
		{"patch missing record", http.MethodPatch, "/api/goals/99", `{"name":"x"}`, http.StatusNotFound},
		{"unknown collection", http.MethodGet, "/api/pets", "", http.StatusNotFound},
		{"method not allowed", http.MethodDelete, "/api/accounts", "", http.StatusMethodNotAllowed},
		{"bad type filter", http.MethodGet, "/api/transactions?type=gift", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
			if body := decode[errorBody](t, rec); body.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestAccountCreateStampsAndIgnoresBodyID(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/accounts", `{"id":42,"name":"Main","type":"checking","balance":"10.50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		ID          int64  `json:"id"`
		Currency    string `json:"currency"`
		LastUpdated string `json:"lastUpdated"`
	}](t, rec)
	if got.ID != 1 || got.Currency != "USD" || !strings.HasPrefix(got.LastUpdated, "2024-01-15") {
		t.Errorf("account = %+v", got)
	}
}

func TestTransactionSearch(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, body := range []string{
		`{"date":"2024-01-10","description":"Coffee beans","amount":"12","category":"Food","type":"expense"}`,
		`{"date":"2024-01-11","description":"Salary","amount":"3000","category":"Income","type":"income"}`,
		`{"date":"2024-01-12","description":"Groceries","amount":"80","category":"Food","type":"expense","notes":"coffee filters"}`,
	} {
		if rec := do(t, srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?search=COFFEE", 2},
		{"?category=Food", 2},
		{"?type=income", 1},
		{"?search=coffee&type=income", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/transactions"+tt.query, "")
			if got := decode[[]json.RawMessage](t, rec); len(got) != tt.want {
				t.Errorf("got %d transactions, want %d", len(got), tt.want)
			}
		})
	}
}

func TestGoalContributions(t *testing.T) {
	srv := newTestServer(t, Options{})
	rec := do(t, srv, http.MethodPost, "/api/goals",
		`{"name":"Rainy day","targetAmount":"1000","currentAmount":"750","deadline":"2024-12-31","category":"Emergency Fund","status":"completed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	if g := decode[goalResponse](t, rec); g.Status != "active" {
		t.Errorf("status = %q, want the derived active", g.Status)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"negative", `{"amount":"-5"}`, http.StatusUnprocessableEntity},
		{"zero", `{"amount":0}`, http.StatusUnprocessableEntity},
		{"missing", `{}`, http.StatusUnprocessableEntity},
		{"not a number", `{"amount":"lots"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, "/api/goals/1/contributions", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec = do(t, srv, http.MethodPost, "/api/goals/1/contributions", `{"amount":"300"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute = %d: %s", rec.Code, rec.Body.String())
	}
	g := decode[goalResponse](t, rec)
	if !g.CurrentAmount.Equal(decimal.NewFromInt(1050)) || g.Status != "completed" || g.Progress.Percentage != 105 {
		t.Errorf("goal = %+v", g)
	}

	if rec := do(t, srv, http.MethodPost, "/api/goals/7/contributions", `{"amount":"1"}`); rec.Code != http.StatusNotFound {
		t.Errorf("missing goal = %d", rec.Code)
	}
}

func TestAnalyticsRoutes(t *testing.T) {
	srv := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"date":"2024-01-10","description":"Lunch","amount":"20","category":"Food","type":"expense"}`)
	do(t, srv, http.MethodPost, "/api/budgets", `{"category":"Food","allocated":"100","period":"monthly"}`)
	do(t, srv, http.MethodPost, "/api/bills", rentBill)

	for _, path := range []string{
		"/api/analytics/dashboard",
		"/api/analytics/categories",
		"/api/analytics/top-categories",
		"/api/analytics/budgets",
		"/api/bills/upcoming",
	} {
		if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s = %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 6},
		{"?months=3", 3},
		{"?months=12", 12},
		{"?months=5", 6},
		{"?months=abc", 6},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, "/api/analytics/trend"+tt.query, "")
		got := decode[struct {
			Months  int               `json:"months"`
			Buckets []json.RawMessage `json:"buckets"`
		}](t, rec)
		if got.Months != tt.want || len(got.Buckets) != tt.want {
			t.Errorf("trend%s = %d months, %d buckets, want %d", tt.query, got.Months, len(got.Buckets), tt.want)
		}
	}

	upcoming := decode[[]billResponse](t, do(t, srv, http.MethodGet, "/api/bills/upcoming", ""))
	if len(upcoming) != 1 || upcoming[0].Name != "Rent" {
		t.Errorf("upcoming = %+v", upcoming)
	}
}

func TestMiddlewareChain(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	rec := do(t, srv, http.MethodGet, "/api/nowhere", "")
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers missing on 404: %v", rec.Header())
	}

	if rec := do(t, srv, http.MethodPost, "/api/bills", rentBill); rec.Code != http.StatusCreated {
		t.Fatalf("first write = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/bills", rentBill)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("second write = %d, Retry-After %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := do(t, srv, http.MethodGet, "/api/bills", ""); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rec.Code)
	}
}

func TestTestimonialRoutes(t *testing.T) {
	repo := memory.NewCollection([]core.Testimonial{
		{ID: 1, Name: "Ana", Title: "Designer", Quote: "No more late fees", Rating: 5},
		{ID: 2, Name: "Ben", Title: "Nurse", Quote: "Handy", Rating: 4},
	}, nil)
	svc := services.NewFinanceService(memory.New(), nil, services.WithTestimonials(repo))
	srv := NewServer(svc, Options{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := do(t, srv, http.MethodGet, "/api/testimonials", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}
	if all := decode[[]core.Testimonial](t, rec); len(all) != 2 {
		t.Errorf("list = %+v", all)
	}

	rec = do(t, srv, http.MethodGet, "/api/testimonials?featured=true", "")
	featured := decode[[]core.Testimonial](t, rec)
	if len(featured) != 1 || featured[0].Name != "Ana" {
		t.Errorf("featured = %+v", featured)
	}

	rec = do(t, srv, http.MethodGet, "/api/testimonials/2", "")
	if got := decode[core.Testimonial](t, rec); rec.Code != http.StatusOK || got.Title != "Nurse" {
		t.Errorf("get = %d %+v", rec.Code, got)
	}

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/testimonials/9", http.StatusNotFound},
		{http.MethodGet, "/api/testimonials?featured=maybe", http.StatusBadRequest},
		{http.MethodPost, "/api/testimonials", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/testimonials/1", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		if rec := do(t, srv, tc.method, tc.path, ""); rec.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
