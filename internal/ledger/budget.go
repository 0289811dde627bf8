package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// MonthlyBudget returns the configured monthly budget and whether one is set.
func (e *Engine) MonthlyBudget(ctx context.Context) (money.Amount, bool, error) {
	raw, ok, err := e.settings.GetSetting(ctx, store.SettingMonthlyBudget)
	if err != nil || !ok {
		return money.Zero, false, err
	}
	budget, err := money.Parse(raw)
	if err != nil {
		return money.Zero, false, fmt.Errorf("MonthlyBudget: stored value %q: %w", raw, err)
	}
	return budget, true, nil
}

// SetMonthlyBudget stores a non-negative monthly budget.
func (e *Engine) SetMonthlyBudget(ctx context.Context, budget money.Amount) error {
	if budget.IsNegative() {
		return fmt.Errorf("SetMonthlyBudget: budget %s is negative: %w", budget, domain.ErrInvalidArgument)
	}
	if err := e.settings.SetSetting(ctx, store.SettingMonthlyBudget, budget.String()); err != nil {
		return fmt.Errorf("SetMonthlyBudget: %w", err)
	}
	return nil
}
