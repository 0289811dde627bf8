package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// AssetAccount is a named running balance. The balance is maintained
// incrementally by the ledger and is never recomputed from history.
type AssetAccount struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Balance   money.Amount `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewAssetAccount validates and builds an account with an opening balance.
func NewAssetAccount(id, name string, opening money.Amount, now time.Time) (AssetAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AssetAccount{}, fmt.Errorf("NewAssetAccount: name is required: %w", ErrInvalidArgument)
	}
	return AssetAccount{
		ID:        id,
		Name:      name,
		Balance:   opening,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Credit returns the account with amount added to the balance.
func (a AssetAccount) Credit(amount money.Amount, now time.Time) AssetAccount {
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = now
	return a
}

// Debit returns the account with amount subtracted from the balance.
// Overdraft is allowed.
func (a AssetAccount) Debit(amount money.Amount, now time.Time) AssetAccount {
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = now
	return a
}

// Apply returns the account adjusted by a signed delta.
func (a AssetAccount) Apply(delta money.Amount, now time.Time) AssetAccount {
	if delta.IsNegative() {
		return a.Debit(delta.Neg(), now)
	}
	return a.Credit(delta, now)
}

// BalanceEffect is a signed change to one account's balance.
type BalanceEffect struct {
	AccountID string
	Delta     money.Amount
}

// IsZero reports whether the effect changes nothing.
func (e BalanceEffect) IsZero() bool { return e.AccountID == "" || e.Delta.IsZero() }
