package memory

import (
	"context"
	"sort"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/inbound"
	"almacen/internal/domain/outbound"
)

// --- Shipments ---

// ShipmentRepo implements outbound.Repository over the store.
type ShipmentRepo struct {
	store *Store
}

// NewShipmentRepo creates the shipment repository.
func NewShipmentRepo(store *Store) *ShipmentRepo {
	return &ShipmentRepo{store: store}
}

func (r *ShipmentRepo) Create(ctx context.Context, doc *outbound.Shipment) error {
	return r.store.locked(ctx, func() error {
		c := *doc
		c.Lines = nil
		r.store.shipments[doc.ID] = &c
		return nil
	})
}

func (r *ShipmentRepo) GetByID(ctx context.Context, docID id.ID) (*outbound.Shipment, error) {
	var out *outbound.Shipment
	err := r.store.locked(ctx, func() error {
		doc, ok := r.store.shipments[docID]
		if !ok {
			return apperror.NewNotFound("shipment", docID.String())
		}
		c := *doc
		c.Lines = append([]outbound.ShipmentLine(nil), r.store.shipmentLines[docID]...)
		out = &c
		return nil
	})
	return out, err
}

func (r *ShipmentRepo) GetByNumber(ctx context.Context, number string) (*outbound.Shipment, error) {
	var found *outbound.Shipment
	err := r.store.locked(ctx, func() error {
		for _, doc := range r.store.shipments {
			if doc.Number == number {
				c := *doc
				c.Lines = append([]outbound.ShipmentLine(nil), r.store.shipmentLines[doc.ID]...)
				found = &c
				return nil
			}
		}
		return apperror.NewNotFound("shipment", number)
	})
	return found, err
}

// Delete soft-deletes the shipment; the document and its lines remain
// readable for history.
func (r *ShipmentRepo) Delete(ctx context.Context, docID id.ID) error {
	return r.store.locked(ctx, func() error {
		doc, ok := r.store.shipments[docID]
		if !ok {
			return apperror.NewNotFound("shipment", docID.String())
		}
		c := *doc
		c.MarkDeleted()
		c.Touch()
		r.store.shipments[docID] = &c
		return nil
	})
}

func (r *ShipmentRepo) GetLines(ctx context.Context, docID id.ID) ([]outbound.ShipmentLine, error) {
	var out []outbound.ShipmentLine
	err := r.store.locked(ctx, func() error {
		out = append([]outbound.ShipmentLine(nil), r.store.shipmentLines[docID]...)
		return nil
	})
	return out, err
}

func (r *ShipmentRepo) SaveLines(ctx context.Context, docID id.ID, lines []outbound.ShipmentLine) error {
	return r.store.locked(ctx, func() error {
		r.store.shipmentLines[docID] = append([]outbound.ShipmentLine(nil), lines...)
		return nil
	})
}

func (r *ShipmentRepo) List(ctx context.Context, f outbound.ListFilter) (domain.ListResult[*outbound.Shipment], error) {
	result := domain.ListResult[*outbound.Shipment]{Limit: f.Limit, Offset: f.Offset}
	err := r.store.locked(ctx, func() error {
		var matched []*outbound.Shipment
		for _, doc := range r.store.shipments {
			if doc.DeletionMark && !f.IncludeDeleted {
				continue
			}
			if f.ClientID != nil && (doc.ClientID == nil || *doc.ClientID != *f.ClientID) {
				continue
			}
			if f.DateFrom != nil && doc.Date.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && doc.Date.After(*f.DateTo) {
				continue
			}
			if f.ItemID != nil && !shipmentHasItem(r.store.shipmentLines[doc.ID], *f.ItemID) {
				continue
			}
			c := *doc
			c.Lines = append([]outbound.ShipmentLine(nil), r.store.shipmentLines[doc.ID]...)
			matched = append(matched, &c)
		}

		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].Date.Equal(matched[j].Date) {
				return matched[i].Date.After(matched[j].Date)
			}
			return matched[i].Number > matched[j].Number
		})

		result.TotalCount = int64(len(matched))
		if f.Offset > 0 {
			if f.Offset >= len(matched) {
				matched = nil
			} else {
				matched = matched[f.Offset:]
			}
		}
		if f.Limit > 0 && len(matched) > f.Limit {
			matched = matched[:f.Limit]
		}
		result.Items = matched
		return nil
	})
	return result, err
}

func shipmentHasItem(lines []outbound.ShipmentLine, itemID id.ID) bool {
	for _, line := range lines {
		if line.ItemID == itemID {
			return true
		}
	}
	return false
}

// PlanArchive implements outbound.PlanArchiver over the store.
type PlanArchive struct {
	store *Store
}

// NewPlanArchive creates the plan archive.
func NewPlanArchive(store *Store) *PlanArchive {
	return &PlanArchive{store: store}
}

func (a *PlanArchive) Archive(ctx context.Context, shipmentID id.ID, plan *allocation.Plan) error {
	return a.store.locked(ctx, func() error {
		c := *plan
		c.Lines = append([]allocation.Line(nil), plan.Lines...)
		a.store.plans[shipmentID] = &c
		return nil
	})
}

func (a *PlanArchive) GetPlan(ctx context.Context, shipmentID id.ID) (*allocation.Plan, error) {
	var out *allocation.Plan
	err := a.store.locked(ctx, func() error {
		plan, ok := a.store.plans[shipmentID]
		if !ok {
			return apperror.NewNotFound("plan snapshot", shipmentID.String())
		}
		c := *plan
		c.Lines = append([]allocation.Line(nil), plan.Lines...)
		out = &c
		return nil
	})
	return out, err
}

// --- Receipts ---

// ReceiptRepo implements inbound.Repository over the store.
type ReceiptRepo struct {
	store *Store
}

// NewReceiptRepo creates the receipt repository.
func NewReceiptRepo(store *Store) *ReceiptRepo {
	return &ReceiptRepo{store: store}
}

func (r *ReceiptRepo) Create(ctx context.Context, doc *inbound.Receipt) error {
	return r.store.locked(ctx, func() error {
		c := *doc
		c.Lines = nil
		r.store.receipts[doc.ID] = &c
		return nil
	})
}

func (r *ReceiptRepo) GetByID(ctx context.Context, docID id.ID) (*inbound.Receipt, error) {
	var out *inbound.Receipt
	err := r.store.locked(ctx, func() error {
		doc, ok := r.store.receipts[docID]
		if !ok {
			return apperror.NewNotFound("receipt", docID.String())
		}
		c := *doc
		c.Lines = append([]inbound.ReceiptLine(nil), r.store.receiptLines[docID]...)
		out = &c
		return nil
	})
	return out, err
}

func (r *ReceiptRepo) GetByNumber(ctx context.Context, number string) (*inbound.Receipt, error) {
	var found *inbound.Receipt
	err := r.store.locked(ctx, func() error {
		for _, doc := range r.store.receipts {
			if doc.Number == number {
				c := *doc
				c.Lines = append([]inbound.ReceiptLine(nil), r.store.receiptLines[doc.ID]...)
				found = &c
				return nil
			}
		}
		return apperror.NewNotFound("receipt", number)
	})
	return found, err
}

func (r *ReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]inbound.ReceiptLine, error) {
	var out []inbound.ReceiptLine
	err := r.store.locked(ctx, func() error {
		out = append([]inbound.ReceiptLine(nil), r.store.receiptLines[docID]...)
		return nil
	})
	return out, err
}

func (r *ReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []inbound.ReceiptLine) error {
	return r.store.locked(ctx, func() error {
		r.store.receiptLines[docID] = append([]inbound.ReceiptLine(nil), lines...)
		return nil
	})
}

func (r *ReceiptRepo) List(ctx context.Context, f inbound.ListFilter) (domain.ListResult[*inbound.Receipt], error) {
	result := domain.ListResult[*inbound.Receipt]{Limit: f.Limit, Offset: f.Offset}
	err := r.store.locked(ctx, func() error {
		var matched []*inbound.Receipt
		for _, doc := range r.store.receipts {
			if doc.DeletionMark && !f.IncludeDeleted {
				continue
			}
			if f.SupplierID != nil && (doc.SupplierID == nil || *doc.SupplierID != *f.SupplierID) {
				continue
			}
			if f.DepotID != nil && doc.DepotID != *f.DepotID {
				continue
			}
			if f.DateFrom != nil && doc.Date.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && doc.Date.After(*f.DateTo) {
				continue
			}
			c := *doc
			c.Lines = append([]inbound.ReceiptLine(nil), r.store.receiptLines[doc.ID]...)
			matched = append(matched, &c)
		}

		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].Date.Equal(matched[j].Date) {
				return matched[i].Date.After(matched[j].Date)
			}
			return matched[i].Number > matched[j].Number
		})

		result.TotalCount = int64(len(matched))
		if f.Offset > 0 {
			if f.Offset >= len(matched) {
				matched = nil
			} else {
				matched = matched[f.Offset:]
			}
		}
		if f.Limit > 0 && len(matched) > f.Limit {
			matched = matched[:f.Limit]
		}
		result.Items = matched
		return nil
	})
	return result, err
}
