package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionExpense TransactionType = "expense"
	TransactionIncome  TransactionType = "income"
)

// Validate rejects unknown types.
func (t TransactionType) Validate() error {
	switch t {
	case TransactionExpense, TransactionIncome:
		return nil
	default:
		return fmt.Errorf("unknown transaction type %q: %w", t, ErrInvalidArgument)
	}
}

// Signed returns amount with the sign this type applies to a balance.
func (t TransactionType) Signed(amount money.Amount) money.Amount {
	switch t {
	case TransactionIncome:
		return amount
	case TransactionExpense:
		return amount.Neg()
	default:
		panic(fmt.Sprintf("domain: unhandled transaction type %q", t))
	}
}

// Transaction is a ledger entry. It is replaced, never mutated in place:
// the helper methods below return modified copies.
type Transaction struct {
	ID              string          `json:"id"`
	Date            civil.Date      `json:"date"`
	Amount          money.Amount    `json:"amount"`
	Type            TransactionType `json:"type"`
	PaymentMethodID string          `json:"payment_method_id"`
	CategoryID      string          `json:"category_id,omitempty"`
	AssetAccountID  string          `json:"asset_account_id"`
	Memo            string          `json:"memo,omitempty"`
	SettlementDate  civil.Date      `json:"settlement_date"`
	Settled         bool            `json:"settled"`
	Cancelled       bool            `json:"cancelled"`
	RecurringID     string          `json:"recurring_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TransactionInput carries the caller-editable fields of a transaction.
type TransactionInput struct {
	Date            civil.Date      `json:"date"`
	Amount          money.Amount    `json:"amount"`
	Type            TransactionType `json:"type"`
	PaymentMethodID string          `json:"payment_method_id"`
	CategoryID      string          `json:"category_id,omitempty"`
	AssetAccountID  string          `json:"asset_account_id,omitempty"`
	Memo            string          `json:"memo,omitempty"`
}

// Validate checks the fields that can be checked without the store.
func (in TransactionInput) Validate() error {
	if !in.Date.IsValid() {
		return fmt.Errorf("invalid transaction date %q: %w", in.Date, ErrInvalidArgument)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s: %w", in.Amount, ErrInvalidArgument)
	}
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if in.PaymentMethodID == "" {
		return fmt.Errorf("payment method is required: %w", ErrInvalidArgument)
	}
	return nil
}

// NewTransaction builds a transaction on pm, booked to accountID. The
// settlement date is computed from pm and the transaction is settled at once
// when pm settles immediately.
func NewTransaction(id string, in TransactionInput, pm PaymentMethod, accountID string, now time.Time) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("NewTransaction: %w", err)
	}
	settleOn, err := SettlementDate(in.Date, pm)
	if err != nil {
		return Transaction{}, fmt.Errorf("NewTransaction: %w", err)
	}
	return Transaction{
		ID:              id,
		Date:            in.Date,
		Amount:          in.Amount,
		Type:            in.Type,
		PaymentMethodID: pm.ID,
		CategoryID:      in.CategoryID,
		AssetAccountID:  accountID,
		Memo:            in.Memo,
		SettlementDate:  settleOn,
		Settled:         pm.SettlesImmediately(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SignedAmount is the transaction's full effect on its account balance.
func (t Transaction) SignedAmount() money.Amount {
	return t.Type.Signed(t.Amount)
}

// AppliedEffect is the balance change this transaction has already made.
// Income is credited when it is created; an expense only moves money once
// settled. Cancelled transactions carry no effect.
func (t Transaction) AppliedEffect() BalanceEffect {
	if t.Cancelled {
		return BalanceEffect{AccountID: t.AssetAccountID, Delta: money.Zero}
	}
	switch t.Type {
	case TransactionIncome:
		return BalanceEffect{AccountID: t.AssetAccountID, Delta: t.SignedAmount()}
	case TransactionExpense:
		if t.Settled {
			return BalanceEffect{AccountID: t.AssetAccountID, Delta: t.SignedAmount()}
		}
		return BalanceEffect{AccountID: t.AssetAccountID, Delta: money.Zero}
	default:
		panic(fmt.Sprintf("domain: unhandled transaction type %q", t.Type))
	}
}

// Pending reports whether batch settlement should pick t up on asOf.
func (t Transaction) Pending(asOf civil.Date) bool {
	return !t.Settled && !t.Cancelled && !t.SettlementDate.After(asOf)
}

// MarkSettled returns a settled copy.
func (t Transaction) MarkSettled(now time.Time) Transaction {
	t.Settled = true
	t.UpdatedAt = now
	return t
}

// MarkCancelled returns a cancelled copy.
func (t Transaction) MarkCancelled(now time.Time) Transaction {
	t.Cancelled = true
	t.UpdatedAt = now
	return t
}

// TransactionFilter narrows transaction listings. Zero fields match all.
type TransactionFilter struct {
	From             civil.Date
	To               civil.Date
	CategoryID       string
	PaymentMethodID  string
	AssetAccountID   string
	Type             TransactionType
	IncludeCancelled bool
}

// Match reports whether t passes the filter.
func (f TransactionFilter) Match(t Transaction) bool {
	if !f.IncludeCancelled && t.Cancelled {
		return false
	}
	if f.From.IsValid() && t.Date.Before(f.From) {
		return false
	}
	if f.To.IsValid() && t.Date.After(f.To) {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.PaymentMethodID != "" && t.PaymentMethodID != f.PaymentMethodID {
		return false
	}
	if f.AssetAccountID != "" && t.AssetAccountID != f.AssetAccountID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}
