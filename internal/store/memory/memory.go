// Package memory is an in-memory implementation of store.Store.
// It is safe for concurrent use; one lock serializes every write, which gives
// each balance-changing unit the isolation the ledger requires. Data is lost
// on restart.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// Store keeps every entity in maps guarded by a single mutex.
// Values are stored and returned by copy.
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]domain.AssetAccount
	paymentMethods map[string]domain.PaymentMethod
	categories     map[string]domain.Category
	transactions   map[string]domain.Transaction
	transfers      map[string]domain.Transfer
	recurring      map[string]domain.RecurringTransaction
	settings       map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:       make(map[string]domain.AssetAccount),
		paymentMethods: make(map[string]domain.PaymentMethod),
		categories:     make(map[string]domain.Category),
		transactions:   make(map[string]domain.Transaction),
		transfers:      make(map[string]domain.Transfer),
		recurring:      make(map[string]domain.RecurringTransaction),
		settings:       make(map[string]string),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func byCreated[T any](items []T, created func(T) time.Time, id func(T) string) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(a).Compare(created(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.AssetAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.AssetAccount{}, notFound("account", id)
	}
	return a, nil
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.AssetAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AssetAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	byCreated(out, func(a domain.AssetAccount) time.Time { return a.CreatedAt }, func(a domain.AssetAccount) string { return a.ID })
	return out, nil
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, a domain.AssetAccount) error {
	if a.ID == "" {
		return fmt.Errorf("CreateAccount: id is required: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return fmt.Errorf("CreateAccount: account %s: %w", a.ID, domain.ErrAlreadyExists)
	}
	s.accounts[a.ID] = a
	return nil
}

// RenameAccount implements store.AccountStore.
func (s *Store) RenameAccount(ctx context.Context, id, name string, now time.Time) (domain.AssetAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.AssetAccount{}, notFound("account", id)
	}
	a.Name = name
	a.UpdatedAt = now
	s.accounts[id] = a
	return a, nil
}

// DeleteAccount implements store.AccountStore.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return notFound("account", id)
	}
	for _, pm := range s.paymentMethods {
		if pm.AssetAccountID == id {
			return fmt.Errorf("DeleteAccount: account %s is linked to payment method %s: %w", id, pm.ID, domain.ErrInvalidState)
		}
	}
	for _, t := range s.transactions {
		if t.AssetAccountID == id && !t.Cancelled {
			return fmt.Errorf("DeleteAccount: account %s has transaction %s: %w", id, t.ID, domain.ErrInvalidState)
		}
	}
	delete(s.accounts, id)
	return nil
}

// GetPaymentMethod implements store.PaymentMethodStore.
func (s *Store) GetPaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pm, ok := s.paymentMethods[id]
	if !ok {
		return domain.PaymentMethod{}, notFound("payment method", id)
	}
	return pm, nil
}

// ListPaymentMethods implements store.PaymentMethodStore.
func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, pm := range s.paymentMethods {
		out = append(out, pm)
	}
	byCreated(out, func(pm domain.PaymentMethod) time.Time { return pm.CreatedAt }, func(pm domain.PaymentMethod) string { return pm.ID })
	return out, nil
}

// SavePaymentMethod implements store.PaymentMethodStore.
func (s *Store) SavePaymentMethod(ctx context.Context, pm domain.PaymentMethod) error {
	if pm.ID == "" {
		return fmt.Errorf("SavePaymentMethod: id is required: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paymentMethods[pm.ID] = pm
	return nil
}

// DeletePaymentMethod implements store.PaymentMethodStore.
func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paymentMethods[id]; !ok {
		return notFound("payment method", id)
	}
	delete(s.paymentMethods, id)
	return nil
}

// GetCategory implements store.CategoryStore.
func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, notFound("category", id)
	}
	return c, nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// SaveCategory implements store.CategoryStore.
func (s *Store) SaveCategory(ctx context.Context, c domain.Category) error {
	if c.ID == "" {
		return fmt.Errorf("SaveCategory: id is required: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories[c.ID] = c
	return nil
}

// DeleteCategory implements store.CategoryStore.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(s.categories, id)
	return nil
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, t := range s.transactions {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Transaction) int {
		return cmp.Or(
			b.Date.Compare(a.Date),
			b.CreatedAt.Compare(a.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (s *Store) unsettled(keep func(domain.Transaction) bool) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range s.transactions {
		if !t.Settled && !t.Cancelled && keep(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Transaction) int {
		return cmp.Or(a.SettlementDate.Compare(b.SettlementDate), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// ListPending implements store.TransactionStore.
func (s *Store) ListPending(ctx context.Context, asOf civil.Date) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unsettled(func(t domain.Transaction) bool { return !t.SettlementDate.After(asOf) }), nil
}

// ListUnsettled implements store.TransactionStore.
func (s *Store) ListUnsettled(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unsettled(func(domain.Transaction) bool { return true }), nil
}

// getAccountLocked reads an account while the write lock is held.
func (s *Store) getAccountLocked(id string) (domain.AssetAccount, error) {
	a, ok := s.accounts[id]
	if !ok {
		return domain.AssetAccount{}, notFound("account", id)
	}
	return a, nil
}

// MutateTransaction implements store.TransactionStore.
func (s *Store) MutateTransaction(ctx context.Context, id string, fn store.TransactionMutation) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *domain.Transaction
	if t, ok := s.transactions[id]; ok {
		existing = &t
	}
	next, effects, err := fn(existing)
	if err != nil {
		return domain.Transaction{}, err
	}
	if next.ID != id {
		return domain.Transaction{}, fmt.Errorf("MutateTransaction: id changed from %s to %s: %w", id, next.ID, domain.ErrInvalidArgument)
	}
	accounts, err := store.ApplyEffects(effects, next.UpdatedAt, s.getAccountLocked)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("MutateTransaction: %w", err)
	}

	s.transactions[id] = next
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return next, nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, id string, now time.Time, fn store.TransactionDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return notFound("transaction", id)
	}
	effects, err := fn(t)
	if err != nil {
		return err
	}
	accounts, err := store.ApplyEffects(effects, now, s.getAccountLocked)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	delete(s.transactions, id)
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return nil
}

// GetTransfer implements store.TransferStore.
func (s *Store) GetTransfer(ctx context.Context, id string) (domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return domain.Transfer{}, notFound("transfer", id)
	}
	return t, nil
}

// ListTransfers implements store.TransferStore.
func (s *Store) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.Transfer) int {
		return cmp.Or(b.Date.Compare(a.Date), b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// CreateTransfer implements store.TransferStore.
func (s *Store) CreateTransfer(ctx context.Context, t domain.Transfer, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transfers[t.ID]; exists {
		return fmt.Errorf("CreateTransfer: transfer %s: %w", t.ID, domain.ErrAlreadyExists)
	}
	accounts, err := store.ApplyEffects(t.Effects(), now, s.getAccountLocked)
	if err != nil {
		return fmt.Errorf("CreateTransfer: %w", err)
	}

	s.transfers[t.ID] = t
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return nil
}

// DeleteTransfer implements store.TransferStore.
func (s *Store) DeleteTransfer(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return notFound("transfer", id)
	}
	accounts, err := store.ApplyEffects(domain.Reversed(t.Effects()), now, s.getAccountLocked)
	if err != nil {
		return fmt.Errorf("DeleteTransfer: %w", err)
	}

	delete(s.transfers, id)
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return nil
}

// GetRecurring implements store.RecurringStore.
func (s *Store) GetRecurring(ctx context.Context, id string) (domain.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recurring[id]
	if !ok {
		return domain.RecurringTransaction{}, notFound("recurring transaction", id)
	}
	return r, nil
}

// ListRecurring implements store.RecurringStore.
func (s *Store) ListRecurring(ctx context.Context, activeOnly bool) ([]domain.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecurringTransaction, 0, len(s.recurring))
	for _, r := range s.recurring {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	byCreated(out, func(r domain.RecurringTransaction) time.Time { return r.CreatedAt }, func(r domain.RecurringTransaction) string { return r.ID })
	return out, nil
}

// SaveRecurring implements store.RecurringStore.
func (s *Store) SaveRecurring(ctx context.Context, r domain.RecurringTransaction) error {
	if r.ID == "" {
		return fmt.Errorf("SaveRecurring: id is required: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recurring[r.ID] = r
	return nil
}

// DeleteRecurring implements store.RecurringStore.
func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recurring[id]; !ok {
		return notFound("recurring transaction", id)
	}
	delete(s.recurring, id)
	return nil
}

// GetSetting implements store.SettingsStore.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[key]
	return v, ok, nil
}

// SetSetting implements store.SettingsStore.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
