package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// RowWriter provides an interface for the export destination.
// This interface enables mocking of BigQuery in tests.
type RowWriter interface {
	// InsertLedgerRows streams rows into the export table.
	InsertLedgerRows(ctx context.Context, rows []*LedgerRow) error
}

// Exporter writes and reads ledger rows in project.dataset.table.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	tableID   string
}

// NewExporter creates an exporter with its own BigQuery client.
func NewExporter(ctx context.Context, projectID, datasetID, tableID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID, tableID: tableID}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Exporter) table() *bigquery.Table {
	return e.client.DatasetInProject(e.projectID, e.datasetID).Table(e.tableID)
}

// EnsureTable creates the export table, partitioned by snapshot_date, when
// it does not exist yet. It reports whether the table was created.
func (e *Exporter) EnsureTable(ctx context.Context) (bool, error) {
	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return false, fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "snapshot_date",
		},
		Description: "Daily ledger snapshots",
	}
	err = e.table().Create(ctx, meta)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("EnsureTable: creating %s.%s.%s: %w", e.projectID, e.datasetID, e.tableID, err)
	}
	return true, nil
}

// InsertLedgerRows implements RowWriter.
func (e *Exporter) InsertLedgerRows(ctx context.Context, rows []*LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}
	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return fmt.Errorf("InsertLedgerRows: inferring schema: %w", err)
	}
	savers := make([]*bigquery.StructSaver, len(rows))
	for i, r := range rows {
		savers[i] = &bigquery.StructSaver{Struct: r, Schema: schema, InsertID: r.InsertID()}
	}
	if err := e.table().Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertLedgerRows: inserting rows: %w", err)
	}
	return nil
}

// QueryByDateRange returns the rows of one snapshot whose transaction date
// falls within [from, to].
func (e *Exporter) QueryByDateRange(ctx context.Context, snapshot, from, to civil.Date) ([]*LedgerRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE snapshot_date = @snapshot
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, transaction_id
	`, e.projectID, e.datasetID, e.tableID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "snapshot", Value: snapshot},
		{Name: "start_date", Value: from},
		{Name: "end_date", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: query read: %w", err)
	}

	var rows []*LedgerRow
	for {
		var r LedgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// Export writes a snapshot of txs to w in batches.
func Export(ctx context.Context, w RowWriter, txs []domain.Transaction, snapshot civil.Date, now time.Time) (int, error) {
	const batchSize = 500
	log := logger.FromContext(ctx)

	written := 0
	for start := 0; start < len(txs); start += batchSize {
		end := min(start+batchSize, len(txs))
		rows := make([]*LedgerRow, 0, end-start)
		for _, t := range txs[start:end] {
			rows = append(rows, ToRow(t, snapshot, now))
		}
		if err := w.InsertLedgerRows(ctx, rows); err != nil {
			return written, fmt.Errorf("Export: batch at %d: %w", start, err)
		}
		written += len(rows)
	}

	log.Info().
		Str("snapshot_date", snapshot.String()).
		Int("rows", written).
		Msg("Exported ledger snapshot")
	return written, nil
}

var _ RowWriter = (*Exporter)(nil)
