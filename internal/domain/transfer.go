package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// TransferKind distinguishes how money leaves the source account.
type TransferKind string

const (
	// TransferAccount moves money between two asset accounts.
	TransferAccount TransferKind = "account"
	// TransferCashWithdrawal takes cash out of an account.
	TransferCashWithdrawal TransferKind = "cash_withdrawal"
	// TransferCharge tops up a stored-value payment method.
	TransferCharge TransferKind = "charge"
)

// Transfer moves money out of FromAccountID and, for account transfers,
// into ToAccountID. Transfers settle on their date.
type Transfer struct {
	ID                string       `json:"id"`
	Kind              TransferKind `json:"kind"`
	Date              civil.Date   `json:"date"`
	Amount            money.Amount `json:"amount"`
	FromAccountID     string       `json:"from_account_id"`
	ToAccountID       string       `json:"to_account_id,omitempty"`
	ToPaymentMethodID string       `json:"to_payment_method_id,omitempty"`
	Memo              string       `json:"memo,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Validate checks the transfer shape for its kind.
func (t Transfer) Validate() error {
	if !t.Date.IsValid() {
		return fmt.Errorf("invalid transfer date %q: %w", t.Date, ErrInvalidArgument)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s: %w", t.Amount, ErrInvalidArgument)
	}
	if t.FromAccountID == "" {
		return fmt.Errorf("transfer source account is required: %w", ErrInvalidArgument)
	}
	switch t.Kind {
	case TransferAccount:
		if t.ToAccountID == "" {
			return fmt.Errorf("account transfer needs a destination account: %w", ErrInvalidArgument)
		}
		if t.ToAccountID == t.FromAccountID {
			return fmt.Errorf("cannot transfer an account to itself: %w", ErrInvalidArgument)
		}
	case TransferCashWithdrawal:
	case TransferCharge:
		if t.ToPaymentMethodID == "" {
			return fmt.Errorf("charge needs a payment method: %w", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("unknown transfer kind %q: %w", t.Kind, ErrInvalidArgument)
	}
	return nil
}

// Effects returns the balance changes the transfer applies.
func (t Transfer) Effects() []BalanceEffect {
	effects := []BalanceEffect{{AccountID: t.FromAccountID, Delta: t.Amount.Neg()}}
	if t.Kind == TransferAccount {
		effects = append(effects, BalanceEffect{AccountID: t.ToAccountID, Delta: t.Amount})
	}
	return effects
}

// Reversed negates a set of effects.
func Reversed(effects []BalanceEffect) []BalanceEffect {
	out := make([]BalanceEffect, len(effects))
	for i, e := range effects {
		out[i] = BalanceEffect{AccountID: e.AccountID, Delta: e.Delta.Neg()}
	}
	return out
}
