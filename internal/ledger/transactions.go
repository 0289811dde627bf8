package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// resolve loads the payment method for in and the account the transaction
// is booked to. An empty AssetAccountID means the payment method's linked
// account.
func (e *Engine) resolve(ctx context.Context, in domain.TransactionInput) (domain.PaymentMethod, string, error) {
	pm, err := e.store.GetPaymentMethod(ctx, in.PaymentMethodID)
	if err != nil {
		return domain.PaymentMethod{}, "", fmt.Errorf("payment method: %w", err)
	}
	accountID := in.AssetAccountID
	if accountID == "" {
		accountID = pm.AssetAccountID
	}
	if _, err := e.store.GetAccount(ctx, accountID); err != nil {
		return domain.PaymentMethod{}, "", fmt.Errorf("asset account: %w", err)
	}
	return pm, accountID, nil
}

// Create records a transaction and applies its immediate balance effect:
// income is credited now, an expense on an immediately settling method is
// debited now, and a credit card expense waits for settlement.
func (e *Engine) Create(ctx context.Context, in domain.TransactionInput) (domain.Transaction, error) {
	t, err := e.create(ctx, e.newID(), in, "")
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Create: %w", err)
	}
	return t, nil
}

// CreateGenerated records a transaction produced by a recurring template
// under a caller-chosen id. It returns ErrAlreadyExists when id is taken,
// which lets callers fire a template at most once per id.
func (e *Engine) CreateGenerated(ctx context.Context, id string, in domain.TransactionInput, recurringID string) (domain.Transaction, error) {
	t, err := e.create(ctx, id, in, recurringID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("CreateGenerated: %w", err)
	}
	return t, nil
}

func (e *Engine) create(ctx context.Context, id string, in domain.TransactionInput, recurringID string) (domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	pm, accountID, err := e.resolve(ctx, in)
	if err != nil {
		return domain.Transaction{}, err
	}
	t, err := domain.NewTransaction(id, in, pm, accountID, e.Now())
	if err != nil {
		return domain.Transaction{}, err
	}
	t.RecurringID = recurringID

	saved, err := e.store.MutateTransaction(ctx, id, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		if existing != nil {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s: %w", id, domain.ErrAlreadyExists)
		}
		return t, []domain.BalanceEffect{t.AppliedEffect()}, nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", saved.ID).
		Str("account_id", saved.AssetAccountID).
		Str("type", string(saved.Type)).
		Str("amount", saved.Amount.String()).
		Str("settlement_date", saved.SettlementDate.String()).
		Bool("settled", saved.Settled).
		Msg("Transaction created")
	return saved, nil
}

// Update replaces an unsettled transaction. Settled and cancelled
// transactions are rejected with ErrInvalidState.
//
// An unsettled expense has never touched the balance, so for the usual edit
// nothing moves. When the edit changes what the record has applied (for
// example switching to a method that settles immediately, or editing
// income that was credited at creation) the difference is applied in the
// same unit so the balance stays consistent with the stored record. This is
// a deliberate departure from updates that never touch the balance.
func (e *Engine) Update(ctx context.Context, id string, in domain.TransactionInput) (domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("Update: %w", err)
	}
	pm, accountID, err := e.resolve(ctx, in)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Update: %w", err)
	}
	now := e.Now()

	updated, err := e.store.MutateTransaction(ctx, id, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		if existing == nil {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		if existing.Cancelled {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s is cancelled: %w", id, domain.ErrInvalidState)
		}
		if existing.Settled {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s is settled: %w", id, domain.ErrInvalidState)
		}
		next, err := domain.NewTransaction(id, in, pm, accountID, now)
		if err != nil {
			return domain.Transaction{}, nil, err
		}
		next.CreatedAt = existing.CreatedAt
		next.RecurringID = existing.RecurringID

		effects := domain.Reversed([]domain.BalanceEffect{existing.AppliedEffect()})
		effects = append(effects, next.AppliedEffect())
		return next, effects, nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Update: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", id).
		Str("settlement_date", updated.SettlementDate.String()).
		Msg("Transaction updated")
	return updated, nil
}

// Cancel soft-deletes a transaction and reverses whatever it had applied to
// the balance: a settled expense is credited back, settled income debited.
// Cancelling twice fails with ErrInvalidState.
func (e *Engine) Cancel(ctx context.Context, id string) (domain.Transaction, error) {
	now := e.Now()
	var reversed []domain.BalanceEffect

	cancelled, err := e.store.MutateTransaction(ctx, id, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		if existing == nil {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		if existing.Cancelled {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s is already cancelled: %w", id, domain.ErrInvalidState)
		}
		reversed = store.MergeEffects(domain.Reversed([]domain.BalanceEffect{existing.AppliedEffect()}))
		return existing.MarkCancelled(now), reversed, nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Cancel: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", id).
		Bool("reversed", len(reversed) > 0).
		Msg("Transaction cancelled")
	return cancelled, nil
}

// Delete removes an unsettled transaction. Once money has moved the
// transaction must be cancelled instead, and Delete fails with
// ErrInvalidState.
func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.store.DeleteTransaction(ctx, id, e.Now(), func(existing domain.Transaction) ([]domain.BalanceEffect, error) {
		if existing.Settled {
			return nil, fmt.Errorf("transaction %s is settled: %w", id, domain.ErrInvalidState)
		}
		return domain.Reversed([]domain.BalanceEffect{existing.AppliedEffect()}), nil
	})
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}

// Get returns one transaction.
func (e *Engine) Get(ctx context.Context, id string) (domain.Transaction, error) {
	return e.store.GetTransaction(ctx, id)
}

// List returns transactions matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return e.store.ListTransactions(ctx, filter)
}
