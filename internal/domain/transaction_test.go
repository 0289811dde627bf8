package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/money"
)

func TestNewTransaction(t *testing.T) {
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	cash := PaymentMethod{ID: "pm-cash", Type: PaymentCash, AssetAccountID: "acc-1"}

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		for _, amt := range []string{"0", "-1", "-0.01"} {
			in := TransactionInput{
				Date:            date(2024, time.March, 20),
				Amount:          money.MustParse(amt),
				Type:            TransactionExpense,
				PaymentMethodID: cash.ID,
			}
			if _, err := NewTransaction("tx-1", in, cash, "acc-1", now); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("amount %s: expected ErrInvalidArgument, got %v", amt, err)
			}
		}
	})

	t.Run("deferred card is unsettled", func(t *testing.T) {
		in := TransactionInput{
			Date:            date(2024, time.March, 20),
			Amount:          money.New(3000),
			Type:            TransactionExpense,
			PaymentMethodID: "pm-card",
		}
		tx, err := NewTransaction("tx-1", in, creditCard(25, 10), "acc-1", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Settled {
			t.Error("credit card transaction should not be settled at creation")
		}
		if tx.SettlementDate != date(2024, time.April, 10) {
			t.Errorf("settlement date = %s, want 2024-04-10", tx.SettlementDate)
		}
		if !tx.AppliedEffect().IsZero() {
			t.Errorf("unsettled expense should carry no effect, got %+v", tx.AppliedEffect())
		}
	})

	t.Run("cash is settled immediately", func(t *testing.T) {
		in := TransactionInput{
			Date:            date(2024, time.March, 20),
			Amount:          money.New(500),
			Type:            TransactionExpense,
			PaymentMethodID: cash.ID,
		}
		tx, err := NewTransaction("tx-1", in, cash, "acc-1", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tx.Settled || tx.SettlementDate != in.Date {
			t.Errorf("cash transaction = %+v, want settled on its date", tx)
		}
		if got := tx.AppliedEffect().Delta; !got.Equal(money.New(-500)) {
			t.Errorf("applied effect = %s, want -500", got)
		}
	})
}

func TestTransaction_Pending(t *testing.T) {
	tx := Transaction{SettlementDate: date(2024, time.April, 10)}
	if tx.Pending(date(2024, time.April, 9)) {
		t.Error("should not be pending before settlement date")
	}
	if !tx.Pending(date(2024, time.April, 10)) {
		t.Error("should be pending on settlement date")
	}
	if tx.MarkSettled(time.Now()).Pending(date(2024, time.May, 1)) {
		t.Error("settled transaction should not be pending")
	}
	if tx.MarkCancelled(time.Now()).Pending(date(2024, time.May, 1)) {
		t.Error("cancelled transaction should not be pending")
	}
}

func TestAssetAccount_CreditDebit(t *testing.T) {
	now := time.Now()
	acc := AssetAccount{ID: "acc-1", Balance: money.New(100)}

	debited := acc.Debit(money.New(150), now)
	if !debited.Balance.Equal(money.New(-50)) {
		t.Errorf("Debit() balance = %s, want -50", debited.Balance)
	}
	if !acc.Balance.Equal(money.New(100)) {
		t.Error("Debit() must not modify the receiver")
	}
	if got := debited.Credit(money.MustParse("50.25"), now).Balance; !got.Equal(money.MustParse("0.25")) {
		t.Errorf("Credit() balance = %s, want 0.25", got)
	}
}

func TestTransfer_Validate(t *testing.T) {
	base := Transfer{Date: date(2024, time.May, 1), Amount: money.New(10), FromAccountID: "a"}
	tests := []struct {
		name    string
		mutate  func(*Transfer)
		wantErr bool
	}{
		{"account transfer", func(tr *Transfer) { tr.Kind = TransferAccount; tr.ToAccountID = "b" }, false},
		{"account transfer to self", func(tr *Transfer) { tr.Kind = TransferAccount; tr.ToAccountID = "a" }, true},
		{"cash withdrawal", func(tr *Transfer) { tr.Kind = TransferCashWithdrawal }, false},
		{"charge without method", func(tr *Transfer) { tr.Kind = TransferCharge }, true},
		{"zero amount", func(tr *Transfer) { tr.Kind = TransferCashWithdrawal; tr.Amount = money.Zero }, true},
		{"unknown kind", func(tr *Transfer) { tr.Kind = "swap" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := base
			tt.mutate(&tr)
			err := tr.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if got := Kind(errors.New("boom")); got != "internal" {
		t.Errorf("Kind(plain) = %q", got)
	}
	wrapped := errors.Join(errors.New("context"), ErrInvalidState)
	if got := Kind(wrapped); got != "invalid_state" {
		t.Errorf("Kind(wrapped) = %q", got)
	}
}
