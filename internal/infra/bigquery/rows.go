// Package bigquery exports ledger state to a BigQuery table for reporting.
// Reporting reads the exported rows; the ledger itself never reads back from
// BigQuery.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// LedgerRow is one transaction as of a snapshot date.
type LedgerRow struct {
	SnapshotDate    civil.Date          `bigquery:"snapshot_date"`    // REQUIRED, partition column
	TransactionID   string              `bigquery:"transaction_id"`   // REQUIRED
	TransactionDate civil.Date          `bigquery:"transaction_date"` // REQUIRED
	SettlementDate  civil.Date          `bigquery:"settlement_date"`  // REQUIRED
	Type            string              `bigquery:"type"`             // REQUIRED: expense | income
	Amount          *big.Rat            `bigquery:"amount"`           // REQUIRED NUMERIC, always positive
	SignedAmount    *big.Rat            `bigquery:"signed_amount"`    // REQUIRED NUMERIC, negative for expenses
	AccountID       string              `bigquery:"account_id"`       // REQUIRED
	PaymentMethodID string              `bigquery:"payment_method_id"`
	CategoryID      bigquery.NullString `bigquery:"category_id"`
	RecurringID     bigquery.NullString `bigquery:"recurring_id"`
	Memo            bigquery.NullString `bigquery:"memo"`
	Settled         bool                `bigquery:"settled"`
	Cancelled       bool                `bigquery:"cancelled"`
	ExportedTS      time.Time           `bigquery:"exported_ts"`
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ToRow maps a transaction into its export row.
func ToRow(t domain.Transaction, snapshot civil.Date, now time.Time) *LedgerRow {
	return &LedgerRow{
		SnapshotDate:    snapshot,
		TransactionID:   t.ID,
		TransactionDate: t.Date,
		SettlementDate:  t.SettlementDate,
		Type:            string(t.Type),
		Amount:          t.Amount.Rat(),
		SignedAmount:    t.SignedAmount().Rat(),
		AccountID:       t.AssetAccountID,
		PaymentMethodID: t.PaymentMethodID,
		CategoryID:      nullString(t.CategoryID),
		RecurringID:     nullString(t.RecurringID),
		Memo:            nullString(t.Memo),
		Settled:         t.Settled,
		Cancelled:       t.Cancelled,
		ExportedTS:      now,
	}
}

// InsertID is the best-effort de-duplication key for a row, so re-running
// the same day's export does not double rows.
func (r *LedgerRow) InsertID() string {
	return r.SnapshotDate.String() + "/" + r.TransactionID
}
