// Package sqlite is a durable store.Store on SQLite (modernc.org/sqlite, no
// cgo). Every balance-changing unit runs in one SQL transaction, and the pool
// is limited to a single connection so units on the same account serialize.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// Store implements store.Store on a *sql.DB.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ==================== Accounts ====================

const accountColumns = `id, name, balance, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.AssetAccount, error) {
	var (
		a                domain.AssetAccount
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Balance, &created, &updated); err != nil {
		return domain.AssetAccount{}, err
	}
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return domain.AssetAccount{}, fmt.Errorf("account %s: created_at: %w", a.ID, err)
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.AssetAccount{}, fmt.Errorf("account %s: updated_at: %w", a.ID, err)
	}
	return a, nil
}

func getAccount(ctx context.Context, q queryer, id string) (domain.AssetAccount, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.AssetAccount{}, notFound("account", id)
	}
	return a, err
}

func saveBalance(ctx context.Context, q queryer, a domain.AssetAccount) error {
	_, err := q.ExecContext(ctx, `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		a.Balance, formatTime(a.UpdatedAt), a.ID)
	return err
}

// applyEffects loads, adjusts and writes the accounts touched by effects.
func applyEffects(ctx context.Context, tx *sql.Tx, effects []domain.BalanceEffect, now time.Time) error {
	accounts, err := store.ApplyEffects(effects, now, func(id string) (domain.AssetAccount, error) {
		return getAccount(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if err := saveBalance(ctx, tx, a); err != nil {
			return fmt.Errorf("saving balance of %s: %w", a.ID, err)
		}
	}
	return nil
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.AssetAccount, error) {
	a, err := getAccount(ctx, s.db, id)
	if err != nil {
		return domain.AssetAccount{}, fmt.Errorf("GetAccount: %w", err)
	}
	return a, nil
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.AssetAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, a domain.AssetAccount) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, a.ID); err == nil {
			return fmt.Errorf("account %s: %w", a.ID, domain.ErrAlreadyExists)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Balance, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("CreateAccount: %w", err)
	}
	return nil
}

// RenameAccount implements store.AccountStore.
func (s *Store) RenameAccount(ctx context.Context, id, name string, now time.Time) (domain.AssetAccount, error) {
	var renamed domain.AssetAccount
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		a, err := getAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		a.Name, a.UpdatedAt = name, now
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET name = ?, updated_at = ? WHERE id = ?`,
			a.Name, formatTime(a.UpdatedAt), id); err != nil {
			return err
		}
		renamed = a
		return nil
	})
	if err != nil {
		return domain.AssetAccount{}, fmt.Errorf("RenameAccount: %w", err)
	}
	return renamed, nil
}

// DeleteAccount implements store.AccountStore.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, id); err != nil {
			return err
		}
		var refs int
		err := tx.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM payment_methods WHERE asset_account_id = ?)
     + (SELECT COUNT(*) FROM transactions WHERE asset_account_id = ? AND cancelled = 0)`, id, id).Scan(&refs)
		if err != nil {
			return fmt.Errorf("counting references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("account %s is referenced %d times: %w", id, refs, domain.ErrInvalidState)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

// ==================== Payment methods ====================

const paymentMethodColumns = `id, name, type, asset_account_id, closing_day, withdrawal_day, memo, created_at, updated_at`

func scanPaymentMethod(row interface{ Scan(...any) error }) (domain.PaymentMethod, error) {
	var (
		pm               domain.PaymentMethod
		created, updated string
	)
	err := row.Scan(&pm.ID, &pm.Name, &pm.Type, &pm.AssetAccountID, &pm.ClosingDay, &pm.WithdrawalDay, &pm.Memo, &created, &updated)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if pm.CreatedAt, err = parseTime(created); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("payment method %s: created_at: %w", pm.ID, err)
	}
	if pm.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("payment method %s: updated_at: %w", pm.ID, err)
	}
	return pm, nil
}

// GetPaymentMethod implements store.PaymentMethodStore.
func (s *Store) GetPaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, error) {
	pm, err := scanPaymentMethod(s.db.QueryRowContext(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.PaymentMethod{}, fmt.Errorf("GetPaymentMethod: %w", notFound("payment method", id))
	}
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("GetPaymentMethod: %w", err)
	}
	return pm, nil
}

// ListPaymentMethods implements store.PaymentMethodStore.
func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListPaymentMethods: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPaymentMethods: scan: %w", err)
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

// SavePaymentMethod implements store.PaymentMethodStore.
func (s *Store) SavePaymentMethod(ctx context.Context, pm domain.PaymentMethod) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO payment_methods (`+paymentMethodColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    type = excluded.type,
    asset_account_id = excluded.asset_account_id,
    closing_day = excluded.closing_day,
    withdrawal_day = excluded.withdrawal_day,
    memo = excluded.memo,
    updated_at = excluded.updated_at`,
		pm.ID, pm.Name, string(pm.Type), pm.AssetAccountID, pm.ClosingDay, pm.WithdrawalDay, pm.Memo,
		formatTime(pm.CreatedAt), formatTime(pm.UpdatedAt))
	if err != nil {
		return fmt.Errorf("SavePaymentMethod: %w", err)
	}
	return nil
}

// DeletePaymentMethod implements store.PaymentMethodStore.
func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "payment_methods", "payment method", id)
}

// deleteByID removes one row and maps "no row" to ErrNotFound.
func deleteByID(ctx context.Context, q queryer, table, kind, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// ==================== Categories ====================

const categoryColumns = `id, name, type, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (domain.Category, error) {
	var (
		c                domain.Category
		created, updated string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Type, &created, &updated)
	if err != nil {
		return domain.Category{}, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return domain.Category{}, fmt.Errorf("category %s: created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Category{}, fmt.Errorf("category %s: updated_at: %w", c.ID, err)
	}
	return c, nil
}

// GetCategory implements store.CategoryStore.
func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.Category{}, fmt.Errorf("GetCategory: %w", notFound("category", id))
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("GetCategory: %w", err)
	}
	return c, nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCategory implements store.CategoryStore.
func (s *Store) SaveCategory(ctx context.Context, c domain.Category) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type, updated_at = excluded.updated_at`,
		c.ID, c.Name, string(c.Type), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("SaveCategory: %w", err)
	}
	return nil
}

// DeleteCategory implements store.CategoryStore.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "categories", "category", id)
}

// ==================== Transactions ====================

const transactionColumns = `id, date, amount, type, payment_method_id, category_id, asset_account_id, memo,
    settlement_date, settled, cancelled, recurring_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (domain.Transaction, error) {
	var (
		t                                domain.Transaction
		date, settleOn, created, updated string
		settled, cancelled               int
	)
	err := row.Scan(&t.ID, &date, &t.Amount, &t.Type, &t.PaymentMethodID, &t.CategoryID, &t.AssetAccountID, &t.Memo,
		&settleOn, &settled, &cancelled, &t.RecurringID, &created, &updated)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Settled, t.Cancelled = settled != 0, cancelled != 0
	if t.Date, err = civil.ParseDate(date); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: date: %w", t.ID, err)
	}
	if t.SettlementDate, err = civil.ParseDate(settleOn); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: settlement_date: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: updated_at: %w", t.ID, err)
	}
	return t, nil
}

func queryTransactions(ctx context.Context, q queryer, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func getTransaction(ctx context.Context, q queryer, id string) (domain.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.Transaction{}, notFound("transaction", id)
	}
	return t, err
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	t, err := getTransaction(ctx, s.db, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1 = 1`
	var args []any
	if !f.IncludeCancelled {
		query += ` AND cancelled = 0`
	}
	if f.From.IsValid() {
		query += ` AND date >= ?`
		args = append(args, f.From.String())
	}
	if f.To.IsValid() {
		query += ` AND date <= ?`
		args = append(args, f.To.String())
	}
	if f.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.PaymentMethodID != "" {
		query += ` AND payment_method_id = ?`
		args = append(args, f.PaymentMethodID)
	}
	if f.AssetAccountID != "" {
		query += ` AND asset_account_id = ?`
		args = append(args, f.AssetAccountID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	query += ` ORDER BY date DESC, created_at DESC, id`

	out, err := queryTransactions(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return out, nil
}

// ListPending implements store.TransactionStore.
func (s *Store) ListPending(ctx context.Context, asOf civil.Date) ([]domain.Transaction, error) {
	out, err := queryTransactions(ctx, s.db, `SELECT `+transactionColumns+` FROM transactions
WHERE settled = 0 AND cancelled = 0 AND settlement_date <= ?
ORDER BY settlement_date, id`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	return out, nil
}

// ListUnsettled implements store.TransactionStore.
func (s *Store) ListUnsettled(ctx context.Context) ([]domain.Transaction, error) {
	out, err := queryTransactions(ctx, s.db, `SELECT `+transactionColumns+` FROM transactions
WHERE settled = 0 AND cancelled = 0
ORDER BY settlement_date, id`)
	if err != nil {
		return nil, fmt.Errorf("ListUnsettled: %w", err)
	}
	return out, nil
}

func upsertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    date = excluded.date,
    amount = excluded.amount,
    type = excluded.type,
    payment_method_id = excluded.payment_method_id,
    category_id = excluded.category_id,
    asset_account_id = excluded.asset_account_id,
    memo = excluded.memo,
    settlement_date = excluded.settlement_date,
    settled = excluded.settled,
    cancelled = excluded.cancelled,
    recurring_id = excluded.recurring_id,
    updated_at = excluded.updated_at`,
		t.ID, t.Date.String(), t.Amount, string(t.Type), t.PaymentMethodID, t.CategoryID, t.AssetAccountID, t.Memo,
		t.SettlementDate.String(), boolInt(t.Settled), boolInt(t.Cancelled), t.RecurringID,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	return err
}

// MutateTransaction implements store.TransactionStore.
func (s *Store) MutateTransaction(ctx context.Context, id string, fn store.TransactionMutation) (domain.Transaction, error) {
	var next domain.Transaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var existing *domain.Transaction
		current, err := getTransaction(ctx, tx, id)
		switch {
		case err == nil:
			existing = &current
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		var effects []domain.BalanceEffect
		next, effects, err = fn(existing)
		if err != nil {
			return err
		}
		if next.ID != id {
			return fmt.Errorf("id changed from %s to %s: %w", id, next.ID, domain.ErrInvalidArgument)
		}
		if err := applyEffects(ctx, tx, effects, next.UpdatedAt); err != nil {
			return err
		}
		if err := upsertTransaction(ctx, tx, next); err != nil {
			return fmt.Errorf("saving transaction %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("MutateTransaction: %w", err)
	}
	return next, nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, id string, now time.Time, fn store.TransactionDeletion) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		effects, err := fn(t)
		if err != nil {
			return err
		}
		if err := applyEffects(ctx, tx, effects, now); err != nil {
			return err
		}
		return deleteByID(ctx, tx, "transactions", "transaction", id)
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// ==================== Transfers ====================

const transferColumns = `id, kind, date, amount, from_account_id, to_account_id, to_payment_method_id, memo, created_at`

func scanTransfer(row interface{ Scan(...any) error }) (domain.Transfer, error) {
	var (
		t             domain.Transfer
		date, created string
	)
	err := row.Scan(&t.ID, &t.Kind, &date, &t.Amount, &t.FromAccountID, &t.ToAccountID, &t.ToPaymentMethodID, &t.Memo, &created)
	if err != nil {
		return domain.Transfer{}, err
	}
	if t.Date, err = civil.ParseDate(date); err != nil {
		return domain.Transfer{}, fmt.Errorf("transfer %s: date: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return domain.Transfer{}, fmt.Errorf("transfer %s: created_at: %w", t.ID, err)
	}
	return t, nil
}

func getTransfer(ctx context.Context, q queryer, id string) (domain.Transfer, error) {
	t, err := scanTransfer(q.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.Transfer{}, notFound("transfer", id)
	}
	return t, err
}

// GetTransfer implements store.TransferStore.
func (s *Store) GetTransfer(ctx context.Context, id string) (domain.Transfer, error) {
	t, err := getTransfer(ctx, s.db, id)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("GetTransfer: %w", err)
	}
	return t, nil
}

// ListTransfers implements store.TransferStore.
func (s *Store) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transferColumns+` FROM transfers ORDER BY date DESC, created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("ListTransfers: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransfers: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTransfer implements store.TransferStore.
func (s *Store) CreateTransfer(ctx context.Context, t domain.Transfer, now time.Time) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTransfer(ctx, tx, t.ID); err == nil {
			return fmt.Errorf("transfer %s: %w", t.ID, domain.ErrAlreadyExists)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := applyEffects(ctx, tx, t.Effects(), now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO transfers (`+transferColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Kind), t.Date.String(), t.Amount, t.FromAccountID, t.ToAccountID, t.ToPaymentMethodID, t.Memo,
			formatTime(t.CreatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("CreateTransfer: %w", err)
	}
	return nil
}

// DeleteTransfer implements store.TransferStore.
func (s *Store) DeleteTransfer(ctx context.Context, id string, now time.Time) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyEffects(ctx, tx, domain.Reversed(t.Effects()), now); err != nil {
			return err
		}
		return deleteByID(ctx, tx, "transfers", "transfer", id)
	})
	if err != nil {
		return fmt.Errorf("DeleteTransfer: %w", err)
	}
	return nil
}

// ==================== Recurring ====================

const recurringColumns = `id, name, amount, type, payment_method_id, category_id, asset_account_id, frequency,
    start_date, end_date, day_of_month, day_of_week, active, memo, created_at, updated_at`

func scanRecurring(row interface{ Scan(...any) error }) (domain.RecurringTransaction, error) {
	var (
		r                       domain.RecurringTransaction
		start, created, updated string
		end                     sql.NullString
		active                  int
	)
	err := row.Scan(&r.ID, &r.Name, &r.Amount, &r.Type, &r.PaymentMethodID, &r.CategoryID, &r.AssetAccountID, &r.Frequency,
		&start, &end, &r.DayOfMonth, &r.DayOfWeek, &active, &r.Memo, &created, &updated)
	if err != nil {
		return domain.RecurringTransaction{}, err
	}
	r.Active = active != 0
	if r.StartDate, err = civil.ParseDate(start); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("recurring %s: start_date: %w", r.ID, err)
	}
	if end.Valid {
		d, err := civil.ParseDate(end.String)
		if err != nil {
			return domain.RecurringTransaction{}, fmt.Errorf("recurring %s: end_date: %w", r.ID, err)
		}
		r.EndDate = &d
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("recurring %s: created_at: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("recurring %s: updated_at: %w", r.ID, err)
	}
	return r, nil
}

// GetRecurring implements store.RecurringStore.
func (s *Store) GetRecurring(ctx context.Context, id string) (domain.RecurringTransaction, error) {
	r, err := scanRecurring(s.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id))
	if isNoRows(err) {
		return domain.RecurringTransaction{}, fmt.Errorf("GetRecurring: %w", notFound("recurring transaction", id))
	}
	if err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("GetRecurring: %w", err)
	}
	return r, nil
}

// ListRecurring implements store.RecurringStore.
func (s *Store) ListRecurring(ctx context.Context, activeOnly bool) ([]domain.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListRecurring: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RecurringTransaction
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecurring: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRecurring implements store.RecurringStore.
func (s *Store) SaveRecurring(ctx context.Context, r domain.RecurringTransaction) error {
	var end sql.NullString
	if r.EndDate != nil {
		end = sql.NullString{String: r.EndDate.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO recurring_transactions (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    amount = excluded.amount,
    type = excluded.type,
    payment_method_id = excluded.payment_method_id,
    category_id = excluded.category_id,
    asset_account_id = excluded.asset_account_id,
    frequency = excluded.frequency,
    start_date = excluded.start_date,
    end_date = excluded.end_date,
    day_of_month = excluded.day_of_month,
    day_of_week = excluded.day_of_week,
    active = excluded.active,
    memo = excluded.memo,
    updated_at = excluded.updated_at`,
		r.ID, r.Name, r.Amount, string(r.Type), r.PaymentMethodID, r.CategoryID, r.AssetAccountID, string(r.Frequency),
		r.StartDate.String(), end, r.DayOfMonth, r.DayOfWeek, boolInt(r.Active), r.Memo,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("SaveRecurring: %w", err)
	}
	return nil
}

// DeleteRecurring implements store.RecurringStore.
func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "recurring_transactions", "recurring transaction", id)
}

// ==================== Settings ====================

// GetSetting implements store.SettingsStore.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("GetSetting: %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting implements store.SettingsStore.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("SetSetting: %s: %w", key, err)
	}
	return nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
