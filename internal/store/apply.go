package store

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// MergeEffects sums effects per account, drops zero deltas and keeps the
// order in which accounts first appear.
func MergeEffects(effects []domain.BalanceEffect) []domain.BalanceEffect {
	totals := make(map[string]money.Amount, len(effects))
	var order []string
	for _, e := range effects {
		if e.AccountID == "" {
			continue
		}
		if _, seen := totals[e.AccountID]; !seen {
			order = append(order, e.AccountID)
		}
		totals[e.AccountID] = totals[e.AccountID].Add(e.Delta)
	}
	merged := make([]domain.BalanceEffect, 0, len(order))
	for _, id := range order {
		if totals[id].IsZero() {
			continue
		}
		merged = append(merged, domain.BalanceEffect{AccountID: id, Delta: totals[id]})
	}
	return merged
}

// ApplyEffects applies merged effects to accounts loaded through get and
// returns the updated accounts. Nothing is written; callers persist the
// result inside their unit.
func ApplyEffects(effects []domain.BalanceEffect, now time.Time, get func(id string) (domain.AssetAccount, error)) ([]domain.AssetAccount, error) {
	merged := MergeEffects(effects)
	updated := make([]domain.AssetAccount, 0, len(merged))
	for _, e := range merged {
		acc, err := get(e.AccountID)
		if err != nil {
			return nil, fmt.Errorf("ApplyEffects: loading account %s: %w", e.AccountID, err)
		}
		updated = append(updated, acc.Apply(e.Delta, now))
	}
	return updated, nil
}
