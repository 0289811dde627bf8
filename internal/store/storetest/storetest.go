// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
	"github.com/dvloznov/finance-ledger/internal/store"
)

var (
	t0  = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	day = civil.Date{Year: 2024, Month: time.March, Day: 20}
)

// Run exercises a fresh, empty store from newStore in every subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("mutate transaction", func(t *testing.T) { testMutateTransaction(t, newStore(t)) })
	t.Run("mutation rollback", func(t *testing.T) { testMutationRollback(t, newStore(t)) })
	t.Run("delete transaction", func(t *testing.T) { testDeleteTransaction(t, newStore(t)) })
	t.Run("concurrent units", func(t *testing.T) { testConcurrentUnits(t, newStore(t)) })
	t.Run("pending", func(t *testing.T) { testPending(t, newStore(t)) })
	t.Run("transfers", func(t *testing.T) { testTransfers(t, newStore(t)) })
	t.Run("recurring", func(t *testing.T) { testRecurring(t, newStore(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
}

func mustAccount(t *testing.T, s store.Store, id string, balance int64) {
	t.Helper()
	a := domain.AssetAccount{ID: id, Name: id, Balance: money.New(balance), CreatedAt: t0, UpdatedAt: t0}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", id, err)
	}
}

func balance(t *testing.T, s store.Store, id string) money.Amount {
	t.Helper()
	a, err := s.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccount(%s) error = %v", id, err)
	}
	return a.Balance
}

func tx(id string, settleOn civil.Date) domain.Transaction {
	return domain.Transaction{
		ID:              id,
		Date:            day,
		Amount:          money.New(3000),
		Type:            domain.TransactionExpense,
		PaymentMethodID: "pm-card",
		AssetAccountID:  "acc-1",
		SettlementDate:  settleOn,
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
}

func create(t *testing.T, s store.Store, next domain.Transaction, effects ...domain.BalanceEffect) {
	t.Helper()
	_, err := s.MutateTransaction(context.Background(), next.ID, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		if existing != nil {
			return domain.Transaction{}, nil, domain.ErrAlreadyExists
		}
		return next, effects, nil
	})
	if err != nil {
		t.Fatalf("creating %s: %v", next.ID, err)
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 100)

	err := s.CreateAccount(ctx, domain.AssetAccount{ID: "acc-1", Name: "dup", CreatedAt: t0, UpdatedAt: t0})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateAccount error = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.GetAccount(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetAccount(missing) error = %v, want ErrNotFound", err)
	}

	renamed, err := s.RenameAccount(ctx, "acc-1", "Main", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RenameAccount() error = %v", err)
	}
	if renamed.Name != "Main" || !renamed.Balance.Equal(money.New(100)) {
		t.Errorf("RenameAccount() = %+v", renamed)
	}

	pm := domain.PaymentMethod{ID: "pm-cash", Name: "Wallet", Type: domain.PaymentCash, AssetAccountID: "acc-1", CreatedAt: t0, UpdatedAt: t0}
	if err := s.SavePaymentMethod(ctx, pm); err != nil {
		t.Fatalf("SavePaymentMethod() error = %v", err)
	}
	got, err := s.GetPaymentMethod(ctx, "pm-cash")
	if err != nil {
		t.Fatalf("GetPaymentMethod() error = %v", err)
	}
	if diff := cmp.Diff(pm, got); diff != "" {
		t.Errorf("GetPaymentMethod() mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteAccount(ctx, "acc-1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("DeleteAccount(referenced) error = %v, want ErrInvalidState", err)
	}
	if err := s.DeletePaymentMethod(ctx, "pm-cash"); err != nil {
		t.Fatalf("DeletePaymentMethod() error = %v", err)
	}
	if err := s.DeleteAccount(ctx, "acc-1"); err != nil {
		t.Errorf("DeleteAccount() error = %v", err)
	}
	accounts, err := s.ListAccounts(ctx)
	if err != nil || len(accounts) != 0 {
		t.Errorf("ListAccounts() = %v, %v; want empty", accounts, err)
	}
}

func testMutateTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 105000)

	settleOn := civil.Date{Year: 2024, Month: time.April, Day: 10}
	create(t, s, tx("tx-1", settleOn))
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(105000)) {
		t.Errorf("balance after deferred create = %s, want 105000", got)
	}

	settled, err := s.MutateTransaction(ctx, "tx-1", func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		next := existing.MarkSettled(t0.Add(time.Hour))
		return next, []domain.BalanceEffect{{AccountID: "acc-1", Delta: existing.SignedAmount()}}, nil
	})
	if err != nil {
		t.Fatalf("settling: %v", err)
	}
	if !settled.Settled {
		t.Error("returned transaction is not settled")
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(102000)) {
		t.Errorf("balance after settlement = %s, want 102000", got)
	}

	stored, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if diff := cmp.Diff(settled, stored, cmp.Comparer(func(a, b money.Amount) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("stored transaction mismatch (-want +got):\n%s", diff)
	}
}

func testMutationRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 100)

	next := tx("tx-1", day)
	_, err := s.MutateTransaction(ctx, "tx-1", func(*domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		return next, []domain.BalanceEffect{
			{AccountID: "acc-1", Delta: money.New(-10)},
			{AccountID: "acc-missing", Delta: money.New(10)},
		}, nil
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MutateTransaction() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetTransaction(ctx, "tx-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("transaction persisted despite failed unit: %v", err)
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(100)) {
		t.Errorf("balance changed despite failed unit: %s", got)
	}

	rejected := errors.New("rejected")
	_, err = s.MutateTransaction(ctx, "tx-1", func(*domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		return domain.Transaction{}, nil, rejected
	})
	if !errors.Is(err, rejected) {
		t.Errorf("MutateTransaction() error = %v, want the mutation's error", err)
	}
}

// testConcurrentUnits races independent debits against repeated attempts to
// settle one pending expense on the same account. No debit may be lost and
// the expense must settle exactly once.
func testConcurrentUnits(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 25
	mustAccount(t, s, "acc-1", 100000)
	create(t, s, tx("tx-pending", day))

	errSettled := errors.New("already settled")
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			next := tx(fmt.Sprintf("tx-%02d", i), day)
			next.Amount = money.New(1)
			next.Settled = true
			_, err := s.MutateTransaction(ctx, next.ID, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
				if existing != nil {
					return domain.Transaction{}, nil, domain.ErrAlreadyExists
				}
				return next, []domain.BalanceEffect{{AccountID: "acc-1", Delta: money.New(-1)}}, nil
			})
			if err != nil {
				t.Errorf("debit %s: %v", next.ID, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.MutateTransaction(ctx, "tx-pending", func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
				if existing == nil {
					return domain.Transaction{}, nil, domain.ErrNotFound
				}
				if existing.Settled {
					return domain.Transaction{}, nil, errSettled
				}
				return existing.MarkSettled(t0), []domain.BalanceEffect{{AccountID: "acc-1", Delta: money.New(-3000)}}, nil
			})
			switch {
			case err == nil:
				mu.Lock()
				settled++
				mu.Unlock()
			case !errors.Is(err, errSettled):
				t.Errorf("settling tx-pending: %v", err)
			}
		}()
	}
	wg.Wait()

	if settled != 1 {
		t.Errorf("tx-pending settled %d times, want 1", settled)
	}
	if got, want := balance(t, s, "acc-1"), money.New(100000-3000-workers); !got.Equal(want) {
		t.Errorf("balance = %s, want %s", got, want)
	}
}

func testDeleteTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 100)
	create(t, s, tx("tx-1", day))

	err := s.DeleteTransaction(ctx, "tx-1", t0, func(existing domain.Transaction) ([]domain.BalanceEffect, error) {
		return []domain.BalanceEffect{{AccountID: "acc-1", Delta: money.New(5)}}, nil
	})
	if err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := s.GetTransaction(ctx, "tx-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTransaction() after delete error = %v", err)
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(105)) {
		t.Errorf("balance = %s, want 105", got)
	}
	if err := s.DeleteTransaction(ctx, "tx-1", t0, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want ErrNotFound", err)
	}
}

func testPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 0)

	early := civil.Date{Year: 2024, Month: time.April, Day: 10}
	late := civil.Date{Year: 2024, Month: time.May, Day: 10}
	create(t, s, tx("tx-late", late))
	create(t, s, tx("tx-early", early))
	cancelled := tx("tx-cancelled", early)
	cancelled.Cancelled = true
	create(t, s, cancelled)
	settled := tx("tx-settled", early)
	settled.Settled = true
	create(t, s, settled)

	pending, err := s.ListPending(ctx, early)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "tx-early" {
		t.Errorf("ListPending(%s) = %v, want [tx-early]", early, ids(pending))
	}

	unsettled, err := s.ListUnsettled(ctx)
	if err != nil {
		t.Fatalf("ListUnsettled() error = %v", err)
	}
	if diff := cmp.Diff([]string{"tx-early", "tx-late"}, ids(unsettled)); diff != "" {
		t.Errorf("ListUnsettled() mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListTransactions(ctx, domain.TransactionFilter{IncludeCancelled: true})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListTransactions(include cancelled) returned %d, want 4", len(all))
	}
	visible, err := s.ListTransactions(ctx, domain.TransactionFilter{PaymentMethodID: "pm-card"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(visible) != 3 {
		t.Errorf("ListTransactions() returned %d, want 3", len(visible))
	}
}

func ids(txs []domain.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func testTransfers(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustAccount(t, s, "acc-1", 1000)
	mustAccount(t, s, "acc-2", 0)

	tr := domain.Transfer{
		ID:            "tr-1",
		Kind:          domain.TransferAccount,
		Date:          day,
		Amount:        money.MustParse("250.50"),
		FromAccountID: "acc-1",
		ToAccountID:   "acc-2",
		CreatedAt:     t0,
	}
	if err := s.CreateTransfer(ctx, tr, t0); err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}
	if err := s.CreateTransfer(ctx, tr, t0); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateTransfer() error = %v", err)
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.MustParse("749.50")) {
		t.Errorf("source balance = %s, want 749.50", got)
	}
	if got := balance(t, s, "acc-2"); !got.Equal(money.MustParse("250.50")) {
		t.Errorf("destination balance = %s, want 250.50", got)
	}

	if err := s.DeleteTransfer(ctx, "tr-1", t0); err != nil {
		t.Fatalf("DeleteTransfer() error = %v", err)
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(1000)) {
		t.Errorf("source balance after delete = %s, want 1000", got)
	}
	if got := balance(t, s, "acc-2"); !got.IsZero() {
		t.Errorf("destination balance after delete = %s, want 0", got)
	}

	broken := tr
	broken.ID = "tr-2"
	broken.ToAccountID = "acc-missing"
	if err := s.CreateTransfer(ctx, broken, t0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CreateTransfer(missing account) error = %v", err)
	}
	if got := balance(t, s, "acc-1"); !got.Equal(money.New(1000)) {
		t.Errorf("source balance changed by failed transfer: %s", got)
	}
}

func testRecurring(t *testing.T, s store.Store) {
	ctx := context.Background()
	end := civil.Date{Year: 2024, Month: time.December, Day: 31}
	r := domain.RecurringTransaction{
		ID:              "rt-1",
		Name:            "Rent",
		Amount:          money.New(1200),
		Type:            domain.TransactionExpense,
		PaymentMethodID: "pm-1",
		Frequency:       domain.FrequencyMonthly,
		StartDate:       civil.Date{Year: 2024, Month: time.January, Day: 1},
		EndDate:         &end,
		DayOfMonth:      1,
		Active:          true,
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
	if err := s.SaveRecurring(ctx, r); err != nil {
		t.Fatalf("SaveRecurring() error = %v", err)
	}
	inactive := r
	inactive.ID, inactive.Active, inactive.EndDate = "rt-2", false, nil
	inactive.CreatedAt = t0.Add(time.Minute)
	if err := s.SaveRecurring(ctx, inactive); err != nil {
		t.Fatalf("SaveRecurring() error = %v", err)
	}

	got, err := s.GetRecurring(ctx, "rt-1")
	if err != nil {
		t.Fatalf("GetRecurring() error = %v", err)
	}
	if diff := cmp.Diff(r, got, cmp.Comparer(func(a, b money.Amount) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("GetRecurring() mismatch (-want +got):\n%s", diff)
	}

	active, err := s.ListRecurring(ctx, true)
	if err != nil || len(active) != 1 {
		t.Errorf("ListRecurring(active) = %d templates, %v; want 1", len(active), err)
	}
	all, err := s.ListRecurring(ctx, false)
	if err != nil || len(all) != 2 {
		t.Errorf("ListRecurring(all) = %d templates, %v; want 2", len(all), err)
	}

	if err := s.DeleteRecurring(ctx, "rt-1"); err != nil {
		t.Fatalf("DeleteRecurring() error = %v", err)
	}
	if err := s.DeleteRecurring(ctx, "rt-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteRecurring() error = %v, want ErrNotFound", err)
	}
}

func testSettings(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, ok, err := s.GetSetting(ctx, store.SettingRecurringWatermark); err != nil || ok {
		t.Fatalf("GetSetting(unset) = ok %v, err %v", ok, err)
	}
	for _, v := range []string{"2024-03-01", "2024-03-02"} {
		if err := s.SetSetting(ctx, store.SettingRecurringWatermark, v); err != nil {
			t.Fatalf("SetSetting() error = %v", err)
		}
	}
	v, ok, err := s.GetSetting(ctx, store.SettingRecurringWatermark)
	if err != nil || !ok || v != "2024-03-02" {
		t.Errorf("GetSetting() = %q, %v, %v; want 2024-03-02", v, ok, err)
	}
}
