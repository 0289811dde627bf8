package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/money"
	"github.com/dvloznov/finance-ledger/internal/recurring"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
)

type testServer struct {
	handler http.Handler
	engine  *ledger.Engine
	account domain.AssetAccount
	cash    domain.PaymentMethod
	card    domain.PaymentMethod
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	seq := 0
	engine := ledger.New(s, s,
		ledger.WithClock(calendar.FixedDate(civil.Date{Year: 2024, Month: time.March, Day: 20})),
		ledger.WithLocation(time.UTC),
		ledger.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)

	acc, err := engine.CreateAccount(ctx, "Main", money.New(100000))
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	cash, err := engine.CreatePaymentMethod(ctx, domain.PaymentMethod{Name: "Cash", Type: domain.PaymentCash, AssetAccountID: acc.ID})
	if err != nil {
		t.Fatalf("CreatePaymentMethod(cash) error = %v", err)
	}
	card, err := engine.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name: "Card", Type: domain.PaymentCreditCard, AssetAccountID: acc.ID, ClosingDay: 25, WithdrawalDay: 10,
	})
	if err != nil {
		t.Fatalf("CreatePaymentMethod(card) error = %v", err)
	}

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { queue.Close() })

	mux := http.NewServeMux()
	Register(mux, Deps{
		Engine:    engine,
		Recurring: recurring.New(engine),
		JobStore:  jobStore,
		Publisher: queue,
	})
	return &testServer{
		handler: middleware.Chain(mux, zerolog.Nop()),
		engine:  engine,
		account: acc,
		cash:    cash,
		card:    card,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) wantBalance(t *testing.T, want int64) {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/accounts/"+ts.account.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET account status = %d, want 200", rec.Code)
	}
	acc := decode[domain.AssetAccount](t, rec)
	if !acc.Balance.Equal(money.New(want)) {
		t.Errorf("balance = %s, want %d", acc.Balance, want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("x: %w", domain.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("x: %w", domain.ErrAlreadyExists), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCardExpenseSettlementFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"date":              "2024-03-20",
		"amount":            "3000",
		"type":              "expense",
		"payment_method_id": ts.card.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST transaction status = %d, body %s", rec.Code, rec.Body)
	}
	tx := decode[domain.Transaction](t, rec)
	if want := (civil.Date{Year: 2024, Month: time.April, Day: 10}); tx.SettlementDate != want {
		t.Errorf("settlement_date = %s, want %s", tx.SettlementDate, want)
	}
	if tx.Settled {
		t.Error("card expense settled at creation")
	}
	ts.wantBalance(t, 100000)

	rec = ts.do(t, http.MethodGet, "/api/settlements/pending", nil)
	pending := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}](t, rec)
	if pending.Count != 1 || pending.Transactions[0].ID != tx.ID {
		t.Errorf("pending = %+v, want only %s", pending, tx.ID)
	}

	rec = ts.do(t, http.MethodPost, "/api/settlements/run?as_of=2024-04-09", nil)
	if res := decode[ledger.SettlementResult](t, rec); len(res.Settled) != 0 {
		t.Errorf("settled before due date: %v", res.Settled)
	}
	ts.wantBalance(t, 100000)

	rec = ts.do(t, http.MethodPost, "/api/settlements/run?as_of=2024-04-10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST settlements/run status = %d, body %s", rec.Code, rec.Body)
	}
	if res := decode[ledger.SettlementResult](t, rec); len(res.Settled) != 1 {
		t.Errorf("settled = %v, want [%s]", res.Settled, tx.ID)
	}
	ts.wantBalance(t, 97000)

	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("DELETE settled transaction status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/transactions/"+tx.ID+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body)
	}
	ts.wantBalance(t, 100000)

	rec = ts.do(t, http.MethodPost, "/api/transactions/"+tx.ID+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["kind"] != "invalid_state" {
		t.Errorf("kind = %q, want invalid_state", body["kind"])
	}
}

func TestTransactionErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing transaction", http.MethodGet, "/api/transactions/nope", nil, http.StatusNotFound},
		{"bad date filter", http.MethodGet, "/api/transactions?start_date=03/20/2024", nil, http.StatusBadRequest},
		{"bad type filter", http.MethodGet, "/api/transactions?type=gift", nil, http.StatusBadRequest},
		{"non-positive amount", http.MethodPost, "/api/transactions", map[string]any{
			"date": "2024-03-20", "amount": "0", "type": "expense", "payment_method_id": ts.cash.ID,
		}, http.StatusBadRequest},
		{"unknown payment method", http.MethodPost, "/api/transactions", map[string]any{
			"date": "2024-03-20", "amount": "10", "type": "expense", "payment_method_id": "nope",
		}, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/transactions", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestListTransactionsFilter(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	for _, in := range []domain.TransactionInput{
		{Date: civil.Date{Year: 2024, Month: time.March, Day: 1}, Amount: money.New(500), Type: domain.TransactionIncome, PaymentMethodID: ts.cash.ID},
		{Date: civil.Date{Year: 2024, Month: time.March, Day: 15}, Amount: money.New(200), Type: domain.TransactionExpense, PaymentMethodID: ts.cash.ID},
		{Date: civil.Date{Year: 2024, Month: time.March, Day: 18}, Amount: money.New(300), Type: domain.TransactionExpense, PaymentMethodID: ts.card.ID},
	} {
		if _, err := ts.engine.Create(ctx, in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/transactions?start_date=2024-03-10&type=expense&payment_method_id="+ts.cash.ID, nil)
	got := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}](t, rec)
	if got.Count != 1 || !got.Transactions[0].Amount.Equal(money.New(200)) {
		t.Errorf("filtered = %+v, want the 200 cash expense", got.Transactions)
	}
}

func TestBudget(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/settings/budget", nil)
	if body := decode[map[string]any](t, rec); body["monthly_budget"] != nil {
		t.Errorf("unset budget = %v, want null", body["monthly_budget"])
	}

	rec = ts.do(t, http.MethodPut, "/api/settings/budget", map[string]any{"monthly_budget": 50000})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT budget status = %d, body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodGet, "/api/settings/budget", nil)
	body := decode[struct {
		MonthlyBudget money.Amount `json:"monthly_budget"`
	}](t, rec)
	if !body.MonthlyBudget.Equal(money.New(50000)) {
		t.Errorf("budget = %s, want 50000", body.MonthlyBudget)
	}
}

func TestTransfers(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	savings, err := ts.engine.CreateAccount(ctx, "Savings", money.New(0))
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/transfers", map[string]any{
		"kind":            "account",
		"date":            "2024-03-20",
		"amount":          "25000",
		"from_account_id": ts.account.ID,
		"to_account_id":   savings.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST transfer status = %d, body %s", rec.Code, rec.Body)
	}
	tr := decode[domain.Transfer](t, rec)
	ts.wantBalance(t, 75000)

	rec = ts.do(t, http.MethodGet, "/api/transfers/"+tr.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET transfer status = %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/transfers/"+tr.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE transfer status = %d, body %s", rec.Code, rec.Body)
	}
	ts.wantBalance(t, 100000)
}

func TestRecurringEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/recurring", map[string]any{
		"name":              "Rent",
		"amount":            "1000",
		"type":              "expense",
		"payment_method_id": ts.cash.ID,
		"frequency":         "monthly",
		"start_date":        "2024-01-01",
		"day_of_month":      20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST recurring status = %d, body %s", rec.Code, rec.Body)
	}
	tmpl := decode[domain.RecurringTransaction](t, rec)
	if !tmpl.Active {
		t.Error("new template is not active")
	}

	rec = ts.do(t, http.MethodPut, "/api/recurring/"+tmpl.ID, map[string]any{
		"name":              "Rent and fees",
		"amount":            "1000",
		"type":              "expense",
		"payment_method_id": ts.cash.ID,
		"frequency":         "monthly",
		"start_date":        "2024-01-01",
		"day_of_month":      20,
	})
	if got := decode[domain.RecurringTransaction](t, rec); rec.Code != http.StatusOK || !got.Active || got.Name != "Rent and fees" {
		t.Errorf("PUT recurring = %d %+v, want active template renamed", rec.Code, got)
	}

	rec = ts.do(t, http.MethodPost, "/api/recurring/catch-up", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catch-up status = %d, body %s", rec.Code, rec.Body)
	}
	if body := decode[map[string]any](t, rec); body["created"] != float64(1) {
		t.Errorf("created = %v, want 1", body["created"])
	}
	ts.wantBalance(t, 99000)

	// Same day again is a no-op.
	rec = ts.do(t, http.MethodPost, "/api/recurring/catch-up", nil)
	if body := decode[map[string]any](t, rec); body["created"] != float64(0) {
		t.Errorf("second catch-up created = %v, want 0", body["created"])
	}

	rec = ts.do(t, http.MethodPost, "/api/recurring/fire?date=2024-03-20", nil)
	if res := decode[recurring.FireResult](t, rec); len(res.Created) != 0 || len(res.Skipped) != 1 {
		t.Errorf("refire = %+v, want one skip", res)
	}
	ts.wantBalance(t, 99000)

	rec = ts.do(t, http.MethodPost, "/api/recurring/"+tmpl.ID+"/active", nil)
	if got := decode[domain.RecurringTransaction](t, rec); got.Active {
		t.Error("toggle left template active")
	}

	rec = ts.do(t, http.MethodPatch, "/api/recurring/"+tmpl.ID, map[string]any{"name": "Flat"})
	if got := decode[domain.RecurringTransaction](t, rec); got.Name != "Flat" || got.Active {
		t.Errorf("patched = %+v", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/recurring?active=true", nil)
	if body := decode[map[string]any](t, rec); body["count"] != float64(0) {
		t.Errorf("active count = %v, want 0", body["count"])
	}

	rec = ts.do(t, http.MethodDelete, "/api/recurring/"+tmpl.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE recurring status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/recurring/"+tmpl.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted template status = %d, want 404", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/jobs", map[string]any{"type": "settle_pending", "as_of": "2024-04-10"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST job status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != string(jobs.JobStatusPending) {
		t.Errorf("status = %q, want pending", body["status"])
	}

	rec = ts.do(t, http.MethodGet, "/api/jobs/"+body["job_id"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET job status = %d", rec.Code)
	}
	job := decode[jobs.LedgerJob](t, rec)
	if job.Type != jobs.JobTypeSettlePending || job.AsOf == nil || job.AsOf.Day != 10 {
		t.Errorf("job = %+v", job)
	}

	rec = ts.do(t, http.MethodGet, "/api/jobs?type=settle_pending", nil)
	if list := decode[map[string]any](t, rec); list["count"] != float64(1) {
		t.Errorf("count = %v, want 1", list["count"])
	}

	rec = ts.do(t, http.MethodPost, "/api/jobs", map[string]any{"type": "parse_document"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown job type status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/jobs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", rec.Code)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
