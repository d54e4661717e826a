package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/inbound"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	receiptsTable     = "doc_inbound_receipts"
	receiptLinesTable = "doc_inbound_receipt_lines"
)

var receiptLineColumns = []string{
	"line_id", "line_no",
	"depot_id", "position_id", "item_id", "lot_id",
	"lot_number", "kilos", "unidades",
}

// ReceiptRepo implements inbound.Repository.
type ReceiptRepo struct {
	*BaseDocumentRepo[*inbound.Receipt]
}

// NewReceiptRepo creates a new receipt repository.
func NewReceiptRepo(txManager *postgres.TxManager) *ReceiptRepo {
	return &ReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*inbound.Receipt](
			txManager,
			receiptsTable,
			postgres.ExtractDBColumns[inbound.Receipt](),
			func() *inbound.Receipt { return &inbound.Receipt{} },
		),
	}
}

// GetLines returns the received lines in entry order.
func (r *ReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]inbound.ReceiptLine, error) {
	q := r.Builder().
		Select(receiptLineColumns...).
		From(receiptLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []inbound.ReceiptLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("get lines: %w", err), receiptLinesTable)
	}

	return lines, nil
}

// SaveLines replaces the table part of a receipt.
func (r *ReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []inbound.ReceiptLine) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + receiptLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return postgres.MapError(fmt.Errorf("delete existing lines: %w", err), receiptLinesTable)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(receiptLinesTable).
		Columns(append([]string{"document_id"}, receiptLineColumns...)...)

	for _, line := range lines {
		q = q.Values(
			docID,
			line.LineID, line.LineNo,
			line.DepotID, line.PositionID, line.ItemID, line.LotID,
			line.LotNumber, line.Kilos, line.Unidades,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert lines: %w", err), receiptLinesTable)
	}

	return nil
}

// List retrieves receipts with document filters applied.
func (r *ReceiptRepo) List(ctx context.Context, f inbound.ListFilter) (domain.ListResult[*inbound.Receipt], error) {
	q := r.baseSelect()

	if f.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *f.SupplierID})
	}
	if f.DepotID != nil {
		q = q.Where(squirrel.Eq{"depot_id": *f.DepotID})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}

	return r.list(ctx, q, f.ListFilter)
}

var _ inbound.Repository = (*ReceiptRepo)(nil)
