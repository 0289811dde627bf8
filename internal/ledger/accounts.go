package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// CreateAccount opens an asset account with an opening balance.
func (e *Engine) CreateAccount(ctx context.Context, name string, opening money.Amount) (domain.AssetAccount, error) {
	a, err := domain.NewAssetAccount(e.newID(), name, opening, e.Now())
	if err != nil {
		return domain.AssetAccount{}, fmt.Errorf("CreateAccount: %w", err)
	}
	if err := e.store.CreateAccount(ctx, a); err != nil {
		return domain.AssetAccount{}, fmt.Errorf("CreateAccount: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", a.ID).
		Str("opening_balance", opening.String()).
		Msg("Account created")
	return a, nil
}

// GetAccount returns one account.
func (e *Engine) GetAccount(ctx context.Context, id string) (domain.AssetAccount, error) {
	return e.store.GetAccount(ctx, id)
}

// ListAccounts returns every account.
func (e *Engine) ListAccounts(ctx context.Context) ([]domain.AssetAccount, error) {
	return e.store.ListAccounts(ctx)
}

// RenameAccount changes an account's display name. The balance is untouched.
func (e *Engine) RenameAccount(ctx context.Context, id, name string) (domain.AssetAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.AssetAccount{}, fmt.Errorf("RenameAccount: name is required: %w", domain.ErrInvalidArgument)
	}
	a, err := e.store.RenameAccount(ctx, id, name, e.Now())
	if err != nil {
		return domain.AssetAccount{}, fmt.Errorf("RenameAccount: %w", err)
	}
	return a, nil
}

// DeleteAccount removes an account nothing refers to any more.
func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	if err := e.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

// CreatePaymentMethod validates pm, checks its linked account exists and
// stores it under a new id.
func (e *Engine) CreatePaymentMethod(ctx context.Context, pm domain.PaymentMethod) (domain.PaymentMethod, error) {
	pm.ID = e.newID()
	pm.CreatedAt = e.Now()
	return e.savePaymentMethod(ctx, "CreatePaymentMethod", pm)
}

// UpdatePaymentMethod replaces a payment method. Settlement dates already
// computed for existing transactions are not recomputed.
func (e *Engine) UpdatePaymentMethod(ctx context.Context, id string, pm domain.PaymentMethod) (domain.PaymentMethod, error) {
	existing, err := e.store.GetPaymentMethod(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("UpdatePaymentMethod: %w", err)
	}
	pm.ID = id
	pm.CreatedAt = existing.CreatedAt
	return e.savePaymentMethod(ctx, "UpdatePaymentMethod", pm)
}

func (e *Engine) savePaymentMethod(ctx context.Context, op string, pm domain.PaymentMethod) (domain.PaymentMethod, error) {
	pm, err := domain.NewPaymentMethod(pm, e.Now())
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := e.store.GetAccount(ctx, pm.AssetAccountID); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("%s: linked account: %w", op, err)
	}
	if err := e.store.SavePaymentMethod(ctx, pm); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("%s: %w", op, err)
	}
	return pm, nil
}

// GetPaymentMethod returns one payment method.
func (e *Engine) GetPaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, error) {
	return e.store.GetPaymentMethod(ctx, id)
}

// ListPaymentMethods returns every payment method.
func (e *Engine) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return e.store.ListPaymentMethods(ctx)
}

// DeletePaymentMethod removes a payment method.
func (e *Engine) DeletePaymentMethod(ctx context.Context, id string) error {
	if err := e.store.DeletePaymentMethod(ctx, id); err != nil {
		return fmt.Errorf("DeletePaymentMethod: %w", err)
	}
	return nil
}

// CreateCategory adds a category.
func (e *Engine) CreateCategory(ctx context.Context, name string, typ domain.TransactionType) (domain.Category, error) {
	c, err := domain.NewCategory(e.newID(), name, typ, e.Now())
	if err != nil {
		return domain.Category{}, fmt.Errorf("CreateCategory: %w", err)
	}
	if err := e.store.SaveCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("CreateCategory: %w", err)
	}
	return c, nil
}

// UpdateCategory renames or retypes a category.
func (e *Engine) UpdateCategory(ctx context.Context, id, name string, typ domain.TransactionType) (domain.Category, error) {
	existing, err := e.store.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	c, err := domain.NewCategory(id, name, typ, e.Now())
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	c.CreatedAt = existing.CreatedAt
	if err := e.store.SaveCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	return c, nil
}

// ListCategories returns every category.
func (e *Engine) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return e.store.ListCategories(ctx)
}

// DeleteCategory removes a category. Transactions keep the dangling id.
func (e *Engine) DeleteCategory(ctx context.Context, id string) error {
	if err := e.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return nil
}
