package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// CreateTransfer validates and records a transfer and applies its balance
// effects atomically. A charge must target a stored-value payment method.
func (e *Engine) CreateTransfer(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	t.ID = e.newID()
	t.CreatedAt = e.Now()
	if err := t.Validate(); err != nil {
		return domain.Transfer{}, fmt.Errorf("CreateTransfer: %w", err)
	}
	if t.Kind == domain.TransferCharge {
		pm, err := e.store.GetPaymentMethod(ctx, t.ToPaymentMethodID)
		if err != nil {
			return domain.Transfer{}, fmt.Errorf("CreateTransfer: %w", err)
		}
		if pm.Type != domain.PaymentEMoney {
			return domain.Transfer{}, fmt.Errorf("CreateTransfer: payment method %s is %s, not e-money: %w",
				pm.ID, pm.Type, domain.ErrInvalidArgument)
		}
	}
	if err := e.store.CreateTransfer(ctx, t, t.CreatedAt); err != nil {
		return domain.Transfer{}, fmt.Errorf("CreateTransfer: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transfer_id", t.ID).
		Str("kind", string(t.Kind)).
		Str("from_account_id", t.FromAccountID).
		Str("to_account_id", t.ToAccountID).
		Str("amount", t.Amount.String()).
		Msg("Transfer recorded")
	return t, nil
}

// DeleteTransfer removes a transfer and reverses its balance effects.
func (e *Engine) DeleteTransfer(ctx context.Context, id string) error {
	if err := e.store.DeleteTransfer(ctx, id, e.Now()); err != nil {
		return fmt.Errorf("DeleteTransfer: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("transfer_id", id).Msg("Transfer deleted")
	return nil
}

// GetTransfer returns one transfer.
func (e *Engine) GetTransfer(ctx context.Context, id string) (domain.Transfer, error) {
	return e.store.GetTransfer(ctx, id)
}

// ListTransfers returns every transfer, newest first.
func (e *Engine) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	return e.store.ListTransfers(ctx)
}
