// Package store defines the persistence contract the ledger runs on.
//
// Plain reads and writes are keyed by id. Every operation that moves money
// goes through a unit (MutateTransaction, DeleteTransaction, CreateTransfer,
// DeleteTransfer) that writes the record and the account balances together
// or not at all. Implementations serialize units so that concurrent balance
// updates on the same account never overwrite one another.
package store

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Setting keys.
const (
	// SettingMonthlyBudget holds the monthly budget as a decimal string.
	SettingMonthlyBudget = "monthly_budget"

	// SettingRecurringWatermark holds the last date (YYYY-MM-DD) through which
	// recurring templates have been evaluated.
	SettingRecurringWatermark = "last_recurring_transaction_check_date"
)

// AccountStore provides asset account persistence. Balances are never
// written directly; they change only through transaction and transfer units.
type AccountStore interface {
	// GetAccount returns an account by id or ErrNotFound.
	GetAccount(ctx context.Context, id string) (domain.AssetAccount, error)

	// ListAccounts returns all accounts ordered by creation time.
	ListAccounts(ctx context.Context) ([]domain.AssetAccount, error)

	// CreateAccount inserts a new account or returns ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.AssetAccount) error

	// RenameAccount changes an account's display name.
	RenameAccount(ctx context.Context, id, name string, now time.Time) (domain.AssetAccount, error)

	// DeleteAccount removes an account. It returns ErrInvalidState while a
	// payment method or a non-cancelled transaction still references it.
	DeleteAccount(ctx context.Context, id string) error
}

// PaymentMethodStore provides payment method persistence.
type PaymentMethodStore interface {
	// GetPaymentMethod returns a payment method by id or ErrNotFound.
	GetPaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, error)

	// ListPaymentMethods returns all payment methods ordered by creation time.
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)

	// SavePaymentMethod inserts or replaces a payment method.
	SavePaymentMethod(ctx context.Context, pm domain.PaymentMethod) error

	// DeletePaymentMethod removes a payment method or returns ErrNotFound.
	DeletePaymentMethod(ctx context.Context, id string) error
}

// CategoryStore provides category persistence.
type CategoryStore interface {
	// GetCategory returns a category by id or ErrNotFound.
	GetCategory(ctx context.Context, id string) (domain.Category, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// SaveCategory inserts or replaces a category.
	SaveCategory(ctx context.Context, c domain.Category) error

	// DeleteCategory removes a category or returns ErrNotFound.
	DeleteCategory(ctx context.Context, id string) error
}

// TransactionMutation computes the next state of a transaction from the
// stored one (nil when no record with that id exists) together with the
// balance effects to apply alongside the write. Returning an error aborts
// the unit without changing anything.
type TransactionMutation func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error)

// TransactionDeletion checks a stored transaction before removal and returns
// the balance effects to apply with it.
type TransactionDeletion func(existing domain.Transaction) ([]domain.BalanceEffect, error)

// TransactionStore provides transaction persistence.
type TransactionStore interface {
	// GetTransaction returns a transaction by id or ErrNotFound.
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)

	// ListTransactions returns transactions matching filter, newest first.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)

	// ListPending returns unsettled, non-cancelled transactions whose
	// settlement date is on or before asOf, ordered by settlement date.
	ListPending(ctx context.Context, asOf civil.Date) ([]domain.Transaction, error)

	// ListUnsettled returns every unsettled, non-cancelled transaction
	// ordered by settlement date.
	ListUnsettled(ctx context.Context) ([]domain.Transaction, error)

	// MutateTransaction runs fn against the stored transaction with id and
	// atomically persists the result and its balance effects. Effects on a
	// missing account fail the unit with ErrNotFound. Accounts are stamped
	// with the returned transaction's UpdatedAt.
	MutateTransaction(ctx context.Context, id string, fn TransactionMutation) (domain.Transaction, error)

	// DeleteTransaction removes a transaction and applies the effects fn
	// returns in the same unit. It returns ErrNotFound for unknown ids.
	DeleteTransaction(ctx context.Context, id string, now time.Time, fn TransactionDeletion) error
}

// TransferStore provides transfer persistence.
type TransferStore interface {
	// GetTransfer returns a transfer by id or ErrNotFound.
	GetTransfer(ctx context.Context, id string) (domain.Transfer, error)

	// ListTransfers returns all transfers, newest first.
	ListTransfers(ctx context.Context) ([]domain.Transfer, error)

	// CreateTransfer inserts a transfer and applies its effects atomically.
	CreateTransfer(ctx context.Context, t domain.Transfer, now time.Time) error

	// DeleteTransfer removes a transfer and reverses its effects atomically.
	DeleteTransfer(ctx context.Context, id string, now time.Time) error
}

// RecurringStore provides recurring template persistence.
type RecurringStore interface {
	// GetRecurring returns a template by id or ErrNotFound.
	GetRecurring(ctx context.Context, id string) (domain.RecurringTransaction, error)

	// ListRecurring returns templates ordered by creation time, optionally
	// only the active ones.
	ListRecurring(ctx context.Context, activeOnly bool) ([]domain.RecurringTransaction, error)

	// SaveRecurring inserts or replaces a template.
	SaveRecurring(ctx context.Context, r domain.RecurringTransaction) error

	// DeleteRecurring removes a template or returns ErrNotFound.
	DeleteRecurring(ctx context.Context, id string) error
}

// SettingsStore is a durable string key-value store.
type SettingsStore interface {
	// GetSetting returns the value for key and whether it was set.
	GetSetting(ctx context.Context, key string) (string, bool, error)

	// SetSetting stores value under key.
	SetSetting(ctx context.Context, key, value string) error
}

// Ledger is the full entity persistence contract.
type Ledger interface {
	AccountStore
	PaymentMethodStore
	CategoryStore
	TransactionStore
	TransferStore
	RecurringStore
}

// Store is a Ledger that also keeps settings and owns resources.
type Store interface {
	Ledger
	SettingsStore

	// Close releases the underlying resources.
	Close() error
}
