package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/report"
	"fintrack/internal/store"
	"fintrack/internal/transfer"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type countingFlusher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *countingFlusher) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *countingFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestStore() *store.Store {
	n := 0
	return store.New(
		store.WithClock(func() time.Time { return fixedNow }),
		store.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

type testServer struct {
	*Server
	store   *store.Store
	flusher *countingFlusher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := newTestStore()
	f := &countingFlusher{}
	return &testServer{Server: NewServer(":0", Deps{Store: s, Saver: f}), store: s, flusher: f}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.0.2.10:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v\nbody: %s", v, err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, want, rec.Body.String())
	}
}

func fieldNames(resp ErrorResponse) []string {
	out := make([]string, len(resp.Fields))
	for i, f := range resp.Fields {
		out[i] = f.Field
	}
	return out
}

func lunch() map[string]any {
	return map[string]any{
		"description": "Lunch",
		"amount":      12.5,
		"date":        "2025-03-14",
		"category":    "1",
		"type":        "expense",
		"account":     "1",
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/nope", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if decode[ErrorResponse](t, rec).Error != "not_found" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/transactions", lunch())
	expectStatus(t, rec, http.StatusCreated)
	created := decode[core.Transaction](t, rec)
	if created.ID == "" || created.Amount.Cents != 1250 || created.Date.String() != "2025-03-14" {
		t.Fatalf("created = %+v", created)
	}
	if got := ts.store.GetAccountBalance("1").Cents; got != 498750 {
		t.Errorf("balance after create = %d, want 498750", got)
	}
	if ts.flusher.count() == 0 {
		t.Error("create should flush state")
	}

	rec = ts.do(t, http.MethodGet, "/api/transactions?type=expense&account=1", nil)
	expectStatus(t, rec, http.StatusOK)
	list := decode[TransactionsResponse](t, rec)
	if list.Count != 1 || list.Expenses.Cents != 1250 || list.Income.Cents != 0 {
		t.Errorf("list = %+v", list)
	}

	rec = ts.do(t, http.MethodGet, "/api/transactions?type=income", nil)
	if decode[TransactionsResponse](t, rec).Count != 0 {
		t.Error("income filter should exclude the expense")
	}

	rec = ts.do(t, http.MethodPatch, "/api/transactions/"+created.ID, map[string]any{"amount": "20.00"})
	expectStatus(t, rec, http.StatusOK)
	if got := ts.store.GetAccountBalance("1").Cents; got != 498000 {
		t.Errorf("balance after update = %d, want 498000", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[core.Transaction](t, rec).Amount.Cents != 2000 {
		t.Error("update not visible")
	}

	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	expectStatus(t, rec, http.StatusNoContent)
	if got := ts.store.GetAccountBalance("1").Cents; got != 500000 {
		t.Errorf("balance after delete = %d, want 500000", got)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPatch, "/api/transactions/missing", map[string]any{"description": "x"}), http.StatusNotFound)
}

func TestTransactionValidation(t *testing.T) {
	ts := newTestServer(t)

	bad := lunch()
	bad["description"] = ""
	bad["amount"] = 0
	rec := ts.do(t, http.MethodPost, "/api/transactions", bad)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	fields := strings.Join(fieldNames(decode[ErrorResponse](t, rec)), ",")
	if fields != "description,amount" {
		t.Errorf("fields = %s", fields)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/transactions", "{not json"), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/transactions", nil), http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/api/transactions", lunch())
	created := decode[core.Transaction](t, rec)
	rec = ts.do(t, http.MethodPatch, "/api/transactions/"+created.ID, map[string]any{"description": "  "})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if got, _ := ts.store.Transaction(created.ID); got.Description != "Lunch" {
		t.Error("rejected patch must not change the transaction")
	}

	huge := lunch()
	huge["amount"] = json.Number("184467440737095516.17")
	expectStatus(t, ts.do(t, http.MethodPost, "/api/transactions", huge), http.StatusBadRequest)
	if got := ts.store.GetAccountBalance("1").Cents; got != 498750 {
		t.Errorf("balance = %d, an out-of-range amount must not post", got)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/transactions?dateFrom=15/03/2025", nil), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/transactions?type=transfer", nil), http.StatusUnprocessableEntity)
}

func TestTransactionsUseSessionFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/transactions", lunch())
	ts.store.SetFilters(core.FilterOptions{Search: "dinner"})

	rec := ts.do(t, http.MethodGet, "/api/transactions?useSession=true", nil)
	if decode[TransactionsResponse](t, rec).Count != 0 {
		t.Error("session filters should apply")
	}
	rec = ts.do(t, http.MethodGet, "/api/transactions", nil)
	if decode[TransactionsResponse](t, rec).Count != 1 {
		t.Error("query filters should ignore the session")
	}
}

func TestCategoriesAndAccounts(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/transactions", lunch())

	rec := ts.do(t, http.MethodGet, "/api/categories", nil)
	expectStatus(t, rec, http.StatusOK)
	cats := decode[struct {
		Categories []CategoryView `json:"categories"`
	}](t, rec).Categories
	if len(cats) != 3 || cats[0].Name != "Food & Dining" || cats[0].MonthlySpending.Cents != 1250 {
		t.Errorf("categories = %+v", cats)
	}

	rec = ts.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Health", "color": "#00FF00", "icon": "heart", "type": "expense"})
	expectStatus(t, rec, http.StatusCreated)
	cat := decode[core.Category](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "", "type": "other"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodPatch, "/api/categories/"+cat.ID, map[string]any{"name": "Health & Fitness"})
	expectStatus(t, rec, http.StatusOK)
	if decode[core.Category](t, rec).Name != "Health & Fitness" {
		t.Error("category rename not applied")
	}
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/categories/"+cat.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/categories/"+cat.ID, nil), http.StatusNotFound)

	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	accounts := decode[AccountsResponse](t, rec)
	if len(accounts.Accounts) != 2 || accounts.TotalBalance.Cents != 498750+25000 {
		t.Errorf("accounts = %+v", accounts)
	}

	rec = ts.do(t, http.MethodPatch, "/api/accounts/2", map[string]any{"isActive": false})
	expectStatus(t, rec, http.StatusOK)
	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	if got := decode[AccountsResponse](t, rec).TotalBalance.Cents; got != 498750 {
		t.Errorf("total balance = %d, inactive accounts must not count", got)
	}
}

func TestBudgetsAndGoals(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/budgets", map[string]any{"categoryId": "1", "limit": 100, "period": "monthly", "alertThreshold": 80})
	expectStatus(t, rec, http.StatusCreated)
	budget := decode[core.Budget](t, rec)

	spend := lunch()
	spend["amount"] = 90
	ts.do(t, http.MethodPost, "/api/transactions", spend)

	rec = ts.do(t, http.MethodGet, "/api/budgets/progress", nil)
	expectStatus(t, rec, http.StatusOK)
	overview := decode[report.BudgetsOverview](t, rec)
	if len(overview.Budgets) != 1 {
		t.Fatalf("overview = %+v", overview)
	}
	st := overview.Budgets[0]
	if st.Budget.ID != budget.ID || st.Spent.Cents != 9000 || st.Percentage != 90 || !st.IsNearLimit || st.IsOverBudget {
		t.Errorf("status = %+v", st)
	}

	rec = ts.do(t, http.MethodPatch, "/api/budgets/"+budget.ID, map[string]any{"alertThreshold": 150})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodPost, "/api/goals", map[string]any{
		"name": "Emergency fund", "targetAmount": 1000, "currentAmount": 250,
		"targetDate": "2025-12-31", "category": "Savings",
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = ts.do(t, http.MethodGet, "/api/goals", nil)
	goals := decode[GoalsResponse](t, rec)
	if len(goals.Goals) != 1 || goals.Goals[0].Percentage != 25 || goals.Summary.OverallPercent != 25 {
		t.Errorf("goals = %+v", goals)
	}

	rec = ts.do(t, http.MethodPost, "/api/goals", map[string]any{"name": "No target"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	names := strings.Join(fieldNames(decode[ErrorResponse](t, rec)), ",")
	if !strings.Contains(names, "targetAmount") || !strings.Contains(names, "targetDate") {
		t.Errorf("fields = %s", names)
	}
}

func TestAlerts(t *testing.T) {
	ts := newTestServer(t)
	a := ts.store.AddAlert(core.Alert{Type: core.AlertGoalReminder, Title: "Goal", Message: "Soon"})
	ts.store.AddAlert(core.Alert{Type: core.AlertBillDue, Title: "Bill", Message: "Rent"})

	rec := ts.do(t, http.MethodGet, "/api/alerts", nil)
	if got := decode[AlertsResponse](t, rec); len(got.Alerts) != 2 || got.Unread != 2 {
		t.Errorf("alerts = %+v", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/alerts/"+a.ID+"/read", nil), http.StatusNoContent)
	rec = ts.do(t, http.MethodGet, "/api/alerts?unread=true", nil)
	if got := decode[AlertsResponse](t, rec); len(got.Alerts) != 1 || got.Unread != 1 {
		t.Errorf("unread alerts = %+v", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/alerts/missing/read", nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/alerts/"+a.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/alerts", nil), http.StatusNoContent)
	if len(ts.store.Alerts()) != 0 {
		t.Error("alerts should be cleared")
	}
}

func TestDashboardAndReports(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/transactions", lunch())
	salary := lunch()
	salary["description"], salary["amount"], salary["type"], salary["category"] = "Salary", 3000, "income", "3"
	ts.do(t, http.MethodPost, "/api/transactions", salary)

	rec := ts.do(t, http.MethodGet, "/api/dashboard", nil)
	expectStatus(t, rec, http.StatusOK)
	d := decode[report.Dashboard](t, rec)
	if d.MonthlyIncome.Cents != 300000 || d.MonthlyExpenses.Cents != 1250 || len(d.Recent) != 2 {
		t.Errorf("dashboard = %+v", d)
	}

	rec = ts.do(t, http.MethodGet, "/api/reports?type=expense", nil)
	expectStatus(t, rec, http.StatusOK)
	sum := decode[report.Summary](t, rec)
	if sum.TransactionCount != 1 || sum.TotalExpenses.Cents != 1250 || sum.TotalIncome.Cents != 0 {
		t.Errorf("report = %+v", sum)
	}
}

func TestSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPatch, "/api/session", map[string]any{
		"sidebarOpen":    true,
		"currentFilters": map[string]any{"type": "income", "search": "salary"},
	})
	expectStatus(t, rec, http.StatusOK)
	sess := decode[store.Session](t, rec)
	if !sess.SidebarOpen || sess.Filters.Type != core.Income || sess.Filters.Search != "salary" {
		t.Errorf("session = %+v", sess)
	}

	rec = ts.do(t, http.MethodPatch, "/api/session", map[string]any{"clearFilters": true, "currentFilters": map[string]any{"search": "rent"}})
	sess = decode[store.Session](t, rec)
	if sess.Filters.Type != "" || sess.Filters.Search != "rent" {
		t.Errorf("filters after clear = %+v", sess.Filters)
	}

	rec = ts.do(t, http.MethodPatch, "/api/session", map[string]any{"user": map[string]any{"name": "", "email": "nope"}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	names := strings.Join(fieldNames(decode[ErrorResponse](t, rec)), ",")
	if !strings.Contains(names, "user.email") || !strings.Contains(names, "user.name") {
		t.Errorf("fields = %s", names)
	}

	rec = ts.do(t, http.MethodPost, "/api/session/theme", nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[map[string]string](t, rec)["theme"] != "dark" {
		t.Errorf("theme = %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/session/login", map[string]any{"email": "bad", "password": "123"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodPost, "/api/session/login", map[string]any{"email": "ada@example.com", "password": "secret1"})
	expectStatus(t, rec, http.StatusOK)
	sess = decode[store.Session](t, rec)
	if !sess.IsAuthenticated || sess.User == nil || sess.User.Email != "ada@example.com" || sess.User.Name != "ada" {
		t.Errorf("session after login = %+v", sess)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/session/logout", nil), http.StatusNoContent)
	if s := ts.store.Session(); s.IsAuthenticated || s.User != nil {
		t.Errorf("session after logout = %+v", s)
	}
}

const importCSV = `date,description,amount,category
2025-03-10,Groceries,-45.20,Food & Dining
2025-03-11,Paycheck,1500,Salary
`

func TestCSVImportFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/import/csv", importCSV)
	expectStatus(t, rec, http.StatusCreated)
	preview := decode[ImportPreview](t, rec)
	if preview.ID == "" || len(preview.Rows) != 2 || preview.Selected != 2 {
		t.Fatalf("preview = %+v", preview)
	}
	if r := preview.Rows[0]; r.Type != core.Expense || r.Amount.Cents != 4520 || r.Category != "1" {
		t.Errorf("row 0 = %+v", r)
	}

	rec = ts.do(t, http.MethodGet, "/api/import/csv/"+preview.ID, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(t, http.MethodPost, "/api/import/csv/"+preview.ID+"/commit", CommitRequest{Selected: []int{5}})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/api/import/csv/"+preview.ID+"/commit", CommitRequest{Selected: []int{0}})
	expectStatus(t, rec, http.StatusCreated)
	res := decode[CommitResponse](t, rec)
	if res.Created != 1 || res.Transactions[0].Description != "Groceries" {
		t.Errorf("commit = %+v", res)
	}
	if got := ts.store.GetAccountBalance("1").Cents; got != 500000-4520 {
		t.Errorf("balance = %d", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/import/csv/"+preview.ID+"/commit", nil), http.StatusNotFound)
}

func TestCSVImportCommitAll(t *testing.T) {
	ts := newTestServer(t)
	preview := decode[ImportPreview](t, ts.do(t, http.MethodPost, "/api/import/csv", importCSV))

	rec := ts.do(t, http.MethodPost, "/api/import/csv/"+preview.ID+"/commit", nil)
	expectStatus(t, rec, http.StatusCreated)
	if decode[CommitResponse](t, rec).Created != 2 {
		t.Error("an empty commit body should post every selected row")
	}
	if len(ts.store.Transactions()) != 2 {
		t.Errorf("transactions = %d", len(ts.store.Transactions()))
	}
}

func TestCSVImportMultipartAndDiscard(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "bank.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(importCSV))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusCreated)
	preview := decode[ImportPreview](t, rec)

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/import/csv/"+preview.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/import/csv/"+preview.ID, nil), http.StatusNotFound)
	if len(ts.store.Transactions()) != 0 {
		t.Error("discarding a preview must not post anything")
	}
}

func TestCSVImportRejectsMalformed(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/import/csv", "date,description\n2025-03-01,Coffee\n")
	expectStatus(t, rec, http.StatusBadRequest)
	if len(ts.store.Transactions()) != 0 {
		t.Error("store must be untouched")
	}
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/transactions", lunch())

	rec := ts.do(t, http.MethodGet, "/api/export/csv", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions-2025-03-15.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	want := "Date,Description,Amount,Type,Category,Account\n2025-03-14,Lunch,12.50,expense,Food & Dining,Main Checking\n"
	if rec.Body.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", rec.Body.String(), want)
	}

	rec = ts.do(t, http.MethodGet, "/api/import/template", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != transfer.Template {
		t.Errorf("template = %q", rec.Body.String())
	}
}

func TestJSONBackupRoundTrip(t *testing.T) {
	src := newTestServer(t)
	src.do(t, http.MethodPost, "/api/transactions", lunch())
	src.do(t, http.MethodPost, "/api/budgets", map[string]any{"categoryId": "1", "limit": 200, "period": "monthly", "alertThreshold": 80})

	rec := src.do(t, http.MethodGet, "/api/export/json", nil)
	expectStatus(t, rec, http.StatusOK)
	backup := rec.Body.String()

	dst := newTestServer(t)
	rec = dst.do(t, http.MethodPost, "/api/import/json", backup)
	expectStatus(t, rec, http.StatusOK)
	res := decode[transfer.ImportResult](t, rec)
	if res.Policy != transfer.PolicyReplace || res.Transactions != 1 || res.Budgets != 1 {
		t.Errorf("result = %+v", res)
	}

	want, _ := json.Marshal(src.store.Data())
	got, _ := json.Marshal(dst.store.Data())
	if !bytes.Equal(want, got) {
		t.Errorf("imported data differs\nwant %s\ngot  %s", want, got)
	}
	if dst.flusher.count() == 0 {
		t.Error("import should flush state")
	}
}

func TestJSONImportErrors(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/import/json?policy=append", `{"transactions":[]}`), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/import/json", `[1,2,3]`), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/import/json", `{"unrelated":true}`), http.StatusBadRequest)

	rec := ts.do(t, http.MethodPost, "/api/import/json?policy=merge", `{"accounts":[{"id":"9","name":"","type":"cash","currency":"USD","color":"#fff"}]}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if names := fieldNames(decode[ErrorResponse](t, rec)); len(names) == 0 || !strings.HasPrefix(names[0], "accounts[0].") {
		t.Errorf("fields = %v", names)
	}
	if len(ts.store.Accounts()) != 2 {
		t.Error("a rejected import must leave the store untouched")
	}
}

func TestFlushFailureDoesNotFailRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.flusher.err = errors.New("disk full")
	expectStatus(t, ts.do(t, http.MethodPost, "/api/transactions", lunch()), http.StatusCreated)
	if len(ts.store.Transactions()) != 1 {
		t.Error("transaction should be committed in memory")
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestStore()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
	ts := &testServer{Server: NewServer(":0", Deps{Store: s, Limiter: limiter}), store: s, flusher: &countingFlusher{}}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/transactions", lunch()), http.StatusCreated)
	rec := ts.do(t, http.MethodPost, "/api/transactions", lunch())
	expectStatus(t, rec, http.StatusTooManyRequests)
	if decode[ErrorResponse](t, rec).Error != "rate_limited" {
		t.Errorf("body = %s", rec.Body.String())
	}
	expectStatus(t, ts.do(t, http.MethodGet, "/api/transactions", nil), http.StatusOK)
}

func TestShutdownFlushes(t *testing.T) {
	ts := newTestServer(t)
	if err := ts.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ts.flusher.count() != 1 {
		t.Errorf("flushes = %d, want 1", ts.flusher.count())
	}
	if err := ts.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ts.flusher.count() != 1 {
		t.Error("second Shutdown should be a no-op")
	}
}

func TestWriteErrorLogsUnexpectedFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)})
	req := httptest.NewRequest(http.MethodPost, "/api/goals", nil)
	req = req.WithContext(context.WithValue(req.Context(), log.LoggerContextKey, logger))
	rec := httptest.NewRecorder()

	writeError(rec, req, errors.New("boom"))

	expectStatus(t, rec, http.StatusInternalServerError)
	if decode[ErrorResponse](t, rec).Error != "server_error" {
		t.Errorf("body = %s", rec.Body.String())
	}
	out := buf.String()
	for _, want := range []string{"Request failed", "level=ERROR", "error=boom", "operation=create", "path=/api/goals"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestImportRoutesLogUnderImportComponent(t *testing.T) {
	var buf bytes.Buffer
	s := newTestStore()
	logger := log.New(log.Config{Component: log.ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})
	ts := &testServer{Server: NewServer(":0", Deps{Store: s, Logger: logger}), store: s, flusher: &countingFlusher{}}

	rec := ts.do(t, http.MethodPost, "/api/import/csv", importCSV)
	expectStatus(t, rec, http.StatusCreated)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "CSV import previewed") {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("preview not logged:\n%s", buf.String())
	}
	if !strings.Contains(line, "component=import") {
		t.Errorf("preview log should carry the import component: %s", line)
	}
	if !strings.Contains(line, "request_id="+rec.Header().Get("X-Request-ID")) {
		t.Errorf("preview log should carry the request id: %s", line)
	}
}

func TestTrustedProxiesKeyRateLimitByForwardedClient(t *testing.T) {
	post := func(ts *testServer, forwardedFor string) int {
		raw, _ := json.Marshal(lunch())
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(raw))
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		ts.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	build := func(proxies []string) *testServer {
		s := newTestStore()
		limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
		deps := Deps{Store: s, Limiter: limiter, TrustedProxies: proxies}
		return &testServer{Server: NewServer(":0", deps), store: s, flusher: &countingFlusher{}}
	}

	trusted := build([]string{"192.0.2.0/24", "not-a-cidr"})
	if code := post(trusted, "198.51.100.1"); code != http.StatusCreated {
		t.Fatalf("first client = %d", code)
	}
	if code := post(trusted, "198.51.100.2"); code != http.StatusCreated {
		t.Errorf("second client behind trusted proxy = %d, want 201", code)
	}
	if code := post(trusted, "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client = %d, want 429", code)
	}

	untrusted := build(nil)
	post(untrusted, "198.51.100.1")
	if code := post(untrusted, "198.51.100.2"); code != http.StatusTooManyRequests {
		t.Errorf("forwarding header from untrusted peer honoured: %d", code)
	}
}
