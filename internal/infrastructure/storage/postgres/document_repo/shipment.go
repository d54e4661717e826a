package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/outbound"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	shipmentsTable     = "doc_outbound_shipments"
	shipmentLinesTable = "doc_outbound_shipment_lines"
)

var shipmentLineColumns = []string{
	"line_id", "line_no",
	"depot_id", "position_id", "item_id", "lot_id",
	"lot_number", "kilos", "unidades",
}

// ShipmentRepo implements outbound.Repository.
type ShipmentRepo struct {
	*BaseDocumentRepo[*outbound.Shipment]
}

// NewShipmentRepo creates a new shipment repository.
func NewShipmentRepo(txManager *postgres.TxManager) *ShipmentRepo {
	return &ShipmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*outbound.Shipment](
			txManager,
			shipmentsTable,
			postgres.ExtractDBColumns[outbound.Shipment](),
			func() *outbound.Shipment { return &outbound.Shipment{} },
		),
	}
}

// GetLines returns the committed lines in FIFO order.
func (r *ShipmentRepo) GetLines(ctx context.Context, docID id.ID) ([]outbound.ShipmentLine, error) {
	q := r.Builder().
		Select(shipmentLineColumns...).
		From(shipmentLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []outbound.ShipmentLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("get lines: %w", err), shipmentLinesTable)
	}

	return lines, nil
}

// SaveLines replaces the table part of a shipment.
func (r *ShipmentRepo) SaveLines(ctx context.Context, docID id.ID, lines []outbound.ShipmentLine) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + shipmentLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return postgres.MapError(fmt.Errorf("delete existing lines: %w", err), shipmentLinesTable)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(shipmentLinesTable).
		Columns(append([]string{"document_id"}, shipmentLineColumns...)...)

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
		return postgres.MapError(fmt.Errorf("insert lines: %w", err), shipmentLinesTable)
	}

	return nil
}

// List retrieves shipments with document filters applied.
func (r *ShipmentRepo) List(ctx context.Context, f outbound.ListFilter) (domain.ListResult[*outbound.Shipment], error) {
	q := r.baseSelect()

	if f.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *f.ClientID})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}
	if f.ItemID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+shipmentLinesTable+" sl WHERE sl.document_id = "+shipmentsTable+".id AND sl.item_id = ?)",
			*f.ItemID,
		))
	}

	return r.list(ctx, q, f.ListFilter)
}

var _ outbound.Repository = (*ShipmentRepo)(nil)
