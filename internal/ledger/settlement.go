package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// errNotPending marks a transaction that stopped being pending between the
// listing and its unit, e.g. settled by a concurrent run.
var errNotPending = errors.New("transaction is no longer pending")

// ItemFailure records one transaction a batch could not process.
type ItemFailure struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

// SettlementResult summarizes one SettlePending run.
type SettlementResult struct {
	AsOf    civil.Date    `json:"as_of"`
	Settled []string      `json:"settled"`
	Skipped []string      `json:"skipped,omitempty"`
	Failed  []ItemFailure `json:"failed,omitempty"`
	Debited money.Amount  `json:"debited"`
}

// SettlePending settles every unsettled, non-cancelled transaction whose
// settlement date is on or before asOf. Each expense is debited from its
// account and marked settled in one unit; income found here is only marked
// settled, having been credited at creation.
//
// Failures are isolated per transaction and reported in the result. Running
// it again is safe: settled transactions are no longer selected.
func (e *Engine) SettlePending(ctx context.Context, asOf civil.Date) (SettlementResult, error) {
	log := logger.FromContext(ctx)
	result := SettlementResult{AsOf: asOf, Settled: []string{}}

	pending, err := e.store.ListPending(ctx, asOf)
	if err != nil {
		return result, fmt.Errorf("SettlePending: listing pending: %w", err)
	}

	for _, p := range pending {
		settled, err := e.settleOne(ctx, p.ID, asOf)
		switch {
		case errors.Is(err, errNotPending):
			result.Skipped = append(result.Skipped, p.ID)
		case err != nil:
			log.Warn().Err(err).
				Str("transaction_id", p.ID).
				Str("account_id", p.AssetAccountID).
				Str("as_of", asOf.String()).
				Msg("Settlement failed")
			result.Failed = append(result.Failed, ItemFailure{TransactionID: p.ID, Error: err.Error()})
		default:
			result.Settled = append(result.Settled, settled.ID)
			if settled.Type == domain.TransactionExpense {
				result.Debited = result.Debited.Add(settled.Amount)
			}
		}
	}

	log.Info().
		Str("as_of", asOf.String()).
		Int("settled", len(result.Settled)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Str("debited", result.Debited.String()).
		Msg("Settlement run finished")
	return result, nil
}

func (e *Engine) settleOne(ctx context.Context, id string, asOf civil.Date) (domain.Transaction, error) {
	now := e.Now()
	return e.store.MutateTransaction(ctx, id, func(existing *domain.Transaction) (domain.Transaction, []domain.BalanceEffect, error) {
		if existing == nil {
			return domain.Transaction{}, nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		if !existing.Pending(asOf) {
			return domain.Transaction{}, nil, errNotPending
		}
		// Apply only what settling adds; income was credited at creation.
		before := existing.AppliedEffect()
		next := existing.MarkSettled(now)
		after := next.AppliedEffect()
		return next, []domain.BalanceEffect{after, {AccountID: before.AccountID, Delta: before.Delta.Neg()}}, nil
	})
}

// PendingSettlements returns unsettled, non-cancelled expenses ordered by
// settlement date.
func (e *Engine) PendingSettlements(ctx context.Context) ([]domain.Transaction, error) {
	unsettled, err := e.store.ListUnsettled(ctx)
	if err != nil {
		return nil, fmt.Errorf("PendingSettlements: %w", err)
	}
	out := make([]domain.Transaction, 0, len(unsettled))
	for _, t := range unsettled {
		if t.Type == domain.TransactionExpense {
			out = append(out, t)
		}
	}
	return out, nil
}

// SettlementReminder groups the expenses settling on one date.
type SettlementReminder struct {
	Date           civil.Date   `json:"date"`
	Count          int          `json:"count"`
	Total          money.Amount `json:"total"`
	TransactionIDs []string     `json:"transaction_ids"`
}

// UpcomingSettlements groups pending expenses settling within
// [today, today+days] by settlement date, earliest first.
func (e *Engine) UpcomingSettlements(ctx context.Context, today civil.Date, days int) ([]SettlementReminder, error) {
	if days < 0 {
		return nil, fmt.Errorf("UpcomingSettlements: negative window %d: %w", days, domain.ErrInvalidArgument)
	}
	pending, err := e.PendingSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpcomingSettlements: %w", err)
	}

	until := today.AddDays(days)
	var reminders []SettlementReminder
	for _, t := range pending {
		if t.SettlementDate.Before(today) || t.SettlementDate.After(until) {
			continue
		}
		// pending is sorted by settlement date, so groups are contiguous.
		if n := len(reminders); n == 0 || reminders[n-1].Date != t.SettlementDate {
			reminders = append(reminders, SettlementReminder{Date: t.SettlementDate})
		}
		r := &reminders[len(reminders)-1]
		r.Count++
		r.Total = r.Total.Add(t.Amount)
		r.TransactionIDs = append(r.TransactionIDs, t.ID)
	}
	return reminders, nil
}
