package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

type fixture struct {
	engine  *Engine
	store   *memory.Store
	account domain.AssetAccount
	cash    domain.PaymentMethod
	card    domain.PaymentMethod
}

func newFixture(t *testing.T, opening int64) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	seq := 0
	e := New(s, s,
		WithClock(calendar.FixedDate(date(2024, time.March, 20))),
		WithLocation(time.UTC),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)

	acc, err := e.CreateAccount(ctx, "Main", money.New(opening))
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	cash, err := e.CreatePaymentMethod(ctx, domain.PaymentMethod{Name: "Cash", Type: domain.PaymentCash, AssetAccountID: acc.ID})
	if err != nil {
		t.Fatalf("CreatePaymentMethod(cash) error = %v", err)
	}
	card, err := e.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name: "Card", Type: domain.PaymentCreditCard, AssetAccountID: acc.ID, ClosingDay: 25, WithdrawalDay: 10,
	})
	if err != nil {
		t.Fatalf("CreatePaymentMethod(card) error = %v", err)
	}
	return &fixture{engine: e, store: s, account: acc, cash: cash, card: card}
}

func (f *fixture) balance(t *testing.T) money.Amount {
	t.Helper()
	a, err := f.engine.GetAccount(context.Background(), f.account.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	return a.Balance
}

func (f *fixture) wantBalance(t *testing.T, want int64) {
	t.Helper()
	if got := f.balance(t); !got.Equal(money.New(want)) {
		t.Errorf("balance = %s, want %d", got, want)
	}
}

func (f *fixture) input(pm domain.PaymentMethod, typ domain.TransactionType, amount int64, d civil.Date) domain.TransactionInput {
	return domain.TransactionInput{
		Date:            d,
		Amount:          money.New(amount),
		Type:            typ,
		PaymentMethodID: pm.ID,
		AssetAccountID:  f.account.ID,
	}
}

func (f *fixture) create(t *testing.T, in domain.TransactionInput) domain.Transaction {
	t.Helper()
	tx, err := f.engine.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tx
}

func TestScenario_CashIncomeCardExpenseSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100000)

	income := f.create(t, f.input(f.cash, domain.TransactionIncome, 5000, date(2024, time.March, 20)))
	if !income.Settled {
		t.Error("cash income should be settled at creation")
	}
	f.wantBalance(t, 105000)

	expense := f.create(t, f.input(f.card, domain.TransactionExpense, 3000, date(2024, time.March, 20)))
	f.wantBalance(t, 105000)
	if expense.Settled {
		t.Error("card expense should be unsettled at creation")
	}
	if expense.SettlementDate != date(2024, time.April, 10) {
		t.Errorf("settlement date = %s, want 2024-04-10", expense.SettlementDate)
	}

	res, err := f.engine.SettlePending(ctx, date(2024, time.April, 9))
	if err != nil {
		t.Fatalf("SettlePending() error = %v", err)
	}
	if len(res.Settled) != 0 {
		t.Errorf("settled %v before the settlement date", res.Settled)
	}
	f.wantBalance(t, 105000)

	res, err = f.engine.SettlePending(ctx, date(2024, time.April, 10))
	if err != nil {
		t.Fatalf("SettlePending() error = %v", err)
	}
	if diff := cmp.Diff([]string{expense.ID}, res.Settled); diff != "" {
		t.Errorf("settled mismatch (-want +got):\n%s", diff)
	}
	if !res.Debited.Equal(money.New(3000)) {
		t.Errorf("debited = %s, want 3000", res.Debited)
	}
	f.wantBalance(t, 102000)

	got, err := f.engine.Get(ctx, expense.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Settled {
		t.Error("expense should be settled after the run")
	}
}

func TestCreate_CashExpenseDebitsImmediately(t *testing.T) {
	f := newFixture(t, 1000)
	f.create(t, f.input(f.cash, domain.TransactionExpense, 300, date(2024, time.March, 20)))
	f.wantBalance(t, 700)
}

func TestCreate_DefaultsToLinkedAccount(t *testing.T) {
	f := newFixture(t, 1000)
	in := f.input(f.cash, domain.TransactionExpense, 300, date(2024, time.March, 20))
	in.AssetAccountID = ""

	tx := f.create(t, in)
	if tx.AssetAccountID != f.account.ID {
		t.Errorf("AssetAccountID = %q, want the payment method's account %q", tx.AssetAccountID, f.account.ID)
	}
	f.wantBalance(t, 700)
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)

	tests := []struct {
		name    string
		mutate  func(*domain.TransactionInput)
		wantErr error
	}{
		{"zero amount", func(in *domain.TransactionInput) { in.Amount = money.Zero }, domain.ErrInvalidArgument},
		{"negative amount", func(in *domain.TransactionInput) { in.Amount = money.New(-5) }, domain.ErrInvalidArgument},
		{"unknown type", func(in *domain.TransactionInput) { in.Type = "refund" }, domain.ErrInvalidArgument},
		{"missing payment method", func(in *domain.TransactionInput) { in.PaymentMethodID = "nope" }, domain.ErrNotFound},
		{"missing account", func(in *domain.TransactionInput) { in.AssetAccountID = "nope" }, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(f.cash, domain.TransactionExpense, 10, date(2024, time.March, 20))
			tt.mutate(&in)
			if _, err := f.engine.Create(ctx, in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
			f.wantBalance(t, 1000)
		})
	}

	all, err := f.engine.List(ctx, domain.TransactionFilter{IncludeCancelled: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected creates persisted %d transactions", len(all))
	}
}

func TestSettlePending_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)
	f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 1)))
	f.create(t, f.input(f.card, domain.TransactionExpense, 2000, date(2024, time.March, 2)))

	asOf := date(2024, time.April, 10)
	first, err := f.engine.SettlePending(ctx, asOf)
	if err != nil {
		t.Fatalf("SettlePending() error = %v", err)
	}
	if len(first.Settled) != 2 {
		t.Fatalf("first run settled %d, want 2", len(first.Settled))
	}
	f.wantBalance(t, 7000)

	second, err := f.engine.SettlePending(ctx, asOf)
	if err != nil {
		t.Fatalf("SettlePending() error = %v", err)
	}
	if len(second.Settled) != 0 || len(second.Failed) != 0 {
		t.Errorf("second run = %+v, want no work", second)
	}
	f.wantBalance(t, 7000)
}

func TestSettlePending_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)

	other, err := f.engine.CreateAccount(ctx, "Other", money.Zero)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	in := f.input(f.card, domain.TransactionExpense, 500, date(2024, time.March, 1))
	in.AssetAccountID = other.ID
	orphan := f.create(t, in)
	good := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 2)))

	// Remove the account behind the store's back so settlement of orphan fails.
	if _, err := f.engine.Cancel(ctx, orphan.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := f.store.DeleteAccount(ctx, other.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if _, err := f.store.MutateTransaction(ctx, orphan.ID, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		revived := *existing
		revived.Cancelled = false
		return revived, nil, nil
	}); err != nil {
		t.Fatalf("reviving orphan: %v", err)
	}

	res, err := f.engine.SettlePending(ctx, date(2024, time.April, 10))
	if err != nil {
		t.Fatalf("SettlePending() error = %v", err)
	}
	if diff := cmp.Diff([]string{good.ID}, res.Settled); diff != "" {
		t.Errorf("settled mismatch (-want +got):\n%s", diff)
	}
	if len(res.Failed) != 1 || res.Failed[0].TransactionID != orphan.ID {
		t.Errorf("failed = %+v, want only %s", res.Failed, orphan.ID)
	}
	f.wantBalance(t, 9000)

	stillPending, err := f.engine.Get(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stillPending.Settled {
		t.Error("failed transaction must stay unsettled")
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("settled expense is credited back", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.card, domain.TransactionExpense, 2500, date(2024, time.March, 1)))
		if _, err := f.engine.SettlePending(ctx, tx.SettlementDate); err != nil {
			t.Fatalf("SettlePending() error = %v", err)
		}
		f.wantBalance(t, 7500)

		cancelled, err := f.engine.Cancel(ctx, tx.ID)
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if !cancelled.Cancelled {
			t.Error("Cancel() result is not cancelled")
		}
		f.wantBalance(t, 10000)
	})

	t.Run("unsettled expense leaves balance", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.card, domain.TransactionExpense, 2500, date(2024, time.March, 1)))
		if _, err := f.engine.Cancel(ctx, tx.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		f.wantBalance(t, 10000)

		res, err := f.engine.SettlePending(ctx, date(2025, time.January, 1))
		if err != nil {
			t.Fatalf("SettlePending() error = %v", err)
		}
		if len(res.Settled) != 0 {
			t.Error("cancelled transaction must never settle")
		}
		f.wantBalance(t, 10000)
	})

	t.Run("settled income is debited back", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.cash, domain.TransactionIncome, 4000, date(2024, time.March, 1)))
		f.wantBalance(t, 14000)
		if _, err := f.engine.Cancel(ctx, tx.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		f.wantBalance(t, 10000)
	})

	t.Run("cancel twice", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.cash, domain.TransactionExpense, 100, date(2024, time.March, 1)))
		if _, err := f.engine.Cancel(ctx, tx.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if _, err := f.engine.Cancel(ctx, tx.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("second Cancel() error = %v, want ErrInvalidState", err)
		}
		f.wantBalance(t, 10000)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t, 0)
		if _, err := f.engine.Cancel(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Cancel() error = %v, want ErrNotFound", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("unsettled expense is replaced without balance effect", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 20)))

		in := f.input(f.card, domain.TransactionExpense, 1500, date(2024, time.March, 26))
		in.Memo = "dinner"
		updated, err := f.engine.Update(ctx, tx.ID, in)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.SettlementDate != date(2024, time.May, 10) {
			t.Errorf("settlement date = %s, want recomputed 2024-05-10", updated.SettlementDate)
		}
		if !updated.CreatedAt.Equal(tx.CreatedAt) || updated.Memo != "dinner" {
			t.Errorf("Update() = %+v", updated)
		}
		f.wantBalance(t, 10000)
	})

	t.Run("settled transaction is immutable", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.cash, domain.TransactionExpense, 1000, date(2024, time.March, 20)))

		_, err := f.engine.Update(ctx, tx.ID, f.input(f.cash, domain.TransactionExpense, 10, date(2024, time.March, 20)))
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("Update() error = %v, want ErrInvalidState", err)
		}
		got, _ := f.engine.Get(ctx, tx.ID)
		if !got.Amount.Equal(money.New(1000)) {
			t.Errorf("amount changed to %s", got.Amount)
		}
		f.wantBalance(t, 9000)
	})

	t.Run("cancelled transaction is immutable", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 20)))
		if _, err := f.engine.Cancel(ctx, tx.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		_, err := f.engine.Update(ctx, tx.ID, f.input(f.card, domain.TransactionExpense, 10, date(2024, time.March, 20)))
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("Update() error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("switching to cash settles and debits", func(t *testing.T) {
		f := newFixture(t, 10000)
		tx := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 20)))

		updated, err := f.engine.Update(ctx, tx.ID, f.input(f.cash, domain.TransactionExpense, 1000, date(2024, time.March, 20)))
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !updated.Settled {
			t.Error("cash transaction should be settled")
		}
		f.wantBalance(t, 9000)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.engine.Update(ctx, "missing", f.input(f.cash, domain.TransactionExpense, 1, date(2024, time.March, 20)))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)

	unsettled := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 20)))
	if err := f.engine.Delete(ctx, unsettled.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.engine.Get(ctx, unsettled.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v", err)
	}
	f.wantBalance(t, 10000)

	settled := f.create(t, f.input(f.cash, domain.TransactionExpense, 1000, date(2024, time.March, 20)))
	if err := f.engine.Delete(ctx, settled.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("Delete(settled) error = %v, want ErrInvalidState", err)
	}
	f.wantBalance(t, 9000)

	if err := f.engine.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPendingAndUpcomingSettlements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)

	// a and b settle on 04-10, c on 05-10. The cash expense is settled at
	// creation and card income is not an expense.
	a := f.create(t, f.input(f.card, domain.TransactionExpense, 1000, date(2024, time.March, 1)))
	b := f.create(t, f.input(f.card, domain.TransactionExpense, 2000, date(2024, time.March, 2)))
	c := f.create(t, f.input(f.card, domain.TransactionExpense, 500, date(2024, time.March, 27)))
	f.create(t, f.input(f.cash, domain.TransactionExpense, 99, date(2024, time.March, 2)))
	f.create(t, f.input(f.card, domain.TransactionIncome, 10, date(2024, time.March, 2)))

	pending, err := f.engine.PendingSettlements(ctx)
	if err != nil {
		t.Fatalf("PendingSettlements() error = %v", err)
	}
	var ids []string
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{a.ID, b.ID, c.ID}, ids); diff != "" {
		t.Errorf("PendingSettlements() mismatch (-want +got):\n%s", diff)
	}

	reminders, err := f.engine.UpcomingSettlements(ctx, date(2024, time.April, 5), 7)
	if err != nil {
		t.Fatalf("UpcomingSettlements() error = %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("UpcomingSettlements() returned %d groups, want 1", len(reminders))
	}
	r := reminders[0]
	if r.Date != date(2024, time.April, 10) || r.Count != 2 || !r.Total.Equal(money.New(3000)) {
		t.Errorf("reminder = %+v", r)
	}

	if _, err := f.engine.UpcomingSettlements(ctx, date(2024, time.April, 5), -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("negative window error = %v", err)
	}
}

func TestTransfers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)
	savings, err := f.engine.CreateAccount(ctx, "Savings", money.Zero)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	wallet, err := f.engine.CreatePaymentMethod(ctx, domain.PaymentMethod{Name: "Suica", Type: domain.PaymentEMoney, AssetAccountID: f.account.ID})
	if err != nil {
		t.Fatalf("CreatePaymentMethod() error = %v", err)
	}

	tr, err := f.engine.CreateTransfer(ctx, domain.Transfer{
		Kind: domain.TransferAccount, Date: date(2024, time.March, 20), Amount: money.New(4000),
		FromAccountID: f.account.ID, ToAccountID: savings.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}
	f.wantBalance(t, 6000)
	if got, _ := f.engine.GetAccount(ctx, savings.ID); !got.Balance.Equal(money.New(4000)) {
		t.Errorf("savings balance = %s, want 4000", got.Balance)
	}

	if _, err := f.engine.CreateTransfer(ctx, domain.Transfer{
		Kind: domain.TransferCharge, Date: date(2024, time.March, 20), Amount: money.New(1000),
		FromAccountID: f.account.ID, ToPaymentMethodID: wallet.ID,
	}); err != nil {
		t.Fatalf("CreateTransfer(charge) error = %v", err)
	}
	f.wantBalance(t, 5000)

	_, err = f.engine.CreateTransfer(ctx, domain.Transfer{
		Kind: domain.TransferCharge, Date: date(2024, time.March, 20), Amount: money.New(1000),
		FromAccountID: f.account.ID, ToPaymentMethodID: f.card.ID,
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("charge to a credit card error = %v, want ErrInvalidArgument", err)
	}

	if err := f.engine.DeleteTransfer(ctx, tr.ID); err != nil {
		t.Fatalf("DeleteTransfer() error = %v", err)
	}
	f.wantBalance(t, 9000)
	if got, _ := f.engine.GetAccount(ctx, savings.ID); !got.Balance.IsZero() {
		t.Errorf("savings balance after delete = %s, want 0", got.Balance)
	}
}

func TestMonthlyBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	if _, ok, err := f.engine.MonthlyBudget(ctx); err != nil || ok {
		t.Fatalf("MonthlyBudget() before set = ok %v, err %v", ok, err)
	}
	if err := f.engine.SetMonthlyBudget(ctx, money.New(-1)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("SetMonthlyBudget(-1) error = %v", err)
	}
	if err := f.engine.SetMonthlyBudget(ctx, money.MustParse("250000.50")); err != nil {
		t.Fatalf("SetMonthlyBudget() error = %v", err)
	}
	got, ok, err := f.engine.MonthlyBudget(ctx)
	if err != nil || !ok || !got.Equal(money.MustParse("250000.5")) {
		t.Errorf("MonthlyBudget() = %s, %v, %v", got, ok, err)
	}
}

func TestAccountsAndPaymentMethods(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	if _, err := f.engine.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name: "Card", Type: domain.PaymentCreditCard, AssetAccountID: f.account.ID, ClosingDay: 32, WithdrawalDay: 10,
	}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("CreatePaymentMethod(closing 32) error = %v", err)
	}
	if _, err := f.engine.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name: "Cash", Type: domain.PaymentCash, AssetAccountID: "missing",
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CreatePaymentMethod(missing account) error = %v", err)
	}

	updated, err := f.engine.UpdatePaymentMethod(ctx, f.card.ID, domain.PaymentMethod{
		Name: "Card", Type: domain.PaymentCreditCard, AssetAccountID: f.account.ID, ClosingDay: 15, WithdrawalDay: 27,
	})
	if err != nil {
		t.Fatalf("UpdatePaymentMethod() error = %v", err)
	}
	if updated.ClosingDay != 15 || !updated.CreatedAt.Equal(f.card.CreatedAt) {
		t.Errorf("UpdatePaymentMethod() = %+v", updated)
	}

	if err := f.engine.DeleteAccount(ctx, f.account.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("DeleteAccount(in use) error = %v, want ErrInvalidState", err)
	}
	renamed, err := f.engine.RenameAccount(ctx, f.account.ID, "Household")
	if err != nil || renamed.Name != "Household" {
		t.Errorf("RenameAccount() = %+v, %v", renamed, err)
	}

	cat, err := f.engine.CreateCategory(ctx, "Food", domain.TransactionExpense)
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := f.engine.UpdateCategory(ctx, cat.ID, "Groceries", domain.TransactionExpense); err != nil {
		t.Errorf("UpdateCategory() error = %v", err)
	}
	cats, err := f.engine.ListCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].Name != "Groceries" {
		t.Errorf("ListCategories() = %+v, %v", cats, err)
	}
}
