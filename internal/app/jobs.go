package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/domain"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/jobs"
)

// ErrExportDisabled is returned by export jobs when no BigQuery project is
// configured.
var ErrExportDisabled = errors.New("ledger export is not configured")

// ExportResult summarizes an export job.
type ExportResult struct {
	Snapshot civil.Date `json:"snapshot_date"`
	Rows     int        `json:"rows"`
}

// HandleJob runs one ledger job. It matches jobs.JobHandler.
func (a *App) HandleJob(ctx context.Context, job jobs.Job) error {
	lj, ok := job.(*jobs.LedgerJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}
	asOf := a.Engine.Today()
	if lj.AsOf != nil {
		asOf = *lj.AsOf
	}

	switch lj.Type {
	case jobs.JobTypeSettlePending:
		res, err := a.Engine.SettlePending(ctx, asOf)
		if err != nil {
			return err
		}
		lj.Result = res
	case jobs.JobTypeRecurringCatchUp:
		res, err := a.Recurring.CatchUp(ctx, asOf)
		lj.Result = res
		if err != nil {
			return err
		}
	case jobs.JobTypeExportLedger:
		res, err := a.Export(ctx, asOf)
		if err != nil {
			return err
		}
		lj.Result = res
	default:
		return fmt.Errorf("unhandled job type %q", lj.Type)
	}
	return nil
}

// Export writes every transaction, cancelled ones included, as the snapshot
// for date.
func (a *App) Export(ctx context.Context, snapshot civil.Date) (ExportResult, error) {
	if a.Exporter == nil {
		return ExportResult{}, ErrExportDisabled
	}
	return a.export(ctx, a.Exporter, snapshot)
}

func (a *App) export(ctx context.Context, w infraBQ.RowWriter, snapshot civil.Date) (ExportResult, error) {
	txs, err := a.Engine.List(ctx, domain.TransactionFilter{IncludeCancelled: true})
	if err != nil {
		return ExportResult{}, fmt.Errorf("Export: listing transactions: %w", err)
	}
	n, err := infraBQ.Export(ctx, w, txs, snapshot, a.Engine.Now())
	if err != nil {
		return ExportResult{Snapshot: snapshot, Rows: n}, err
	}
	return ExportResult{Snapshot: snapshot, Rows: n}, nil
}
