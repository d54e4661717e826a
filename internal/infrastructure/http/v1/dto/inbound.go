package dto

import (
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/inbound"
)

// ReceiveLineRequest is one incoming line. The item may be named by id
// or by code; an unknown code with a description creates the item.
type ReceiveLineRequest struct {
	ItemID      *id.ID `json:"itemId,omitempty"`
	ItemCode    string `json:"itemCode,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	LotNumber  string `json:"lotNumber,omitempty"`
	PositionID *id.ID `json:"positionId,omitempty"`

	Kilos    types.Quantity  `json:"kilos"`
	Unidades *types.Quantity `json:"unidades,omitempty"`
}

// ReceiveRequest creates an inbound receipt.
type ReceiveRequest struct {
	SupplierID   *id.ID `json:"supplierId,omitempty"`
	SupplierName string `json:"supplierName,omitempty"`

	DepotID        id.ID      `json:"depotId" binding:"required"`
	Date           *time.Time `json:"date,omitempty"`
	SupplierDocRef *string    `json:"supplierDocRef,omitempty"`
	Note           string     `json:"note,omitempty"`

	Lines []ReceiveLineRequest `json:"lines" binding:"required"`
}

// ToDomain converts to the service request.
func (r ReceiveRequest) ToDomain() inbound.ReceiveRequest {
	req := inbound.ReceiveRequest{
		SupplierID:     r.SupplierID,
		SupplierName:   r.SupplierName,
		DepotID:        r.DepotID,
		SupplierDocRef: r.SupplierDocRef,
		Note:           r.Note,
		Lines:          make([]inbound.ReceiveLine, 0, len(r.Lines)),
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	for _, line := range r.Lines {
		req.Lines = append(req.Lines, inbound.ReceiveLine{
			ItemID:      line.ItemID,
			ItemCode:    line.ItemCode,
			Description: line.Description,
			Category:    line.Category,
			LotNumber:   line.LotNumber,
			PositionID:  line.PositionID,
			Kilos:       line.Kilos,
			Unidades:    line.Unidades,
		})
	}
	return req
}

// ReceiptResponse is a committed receipt with its lines.
type ReceiptResponse struct {
	DocumentResponse

	SupplierID     *string               `json:"supplierId,omitempty"`
	SupplierName   string                `json:"supplierName"`
	DepotID        string                `json:"depotId"`
	SupplierDocRef *string               `json:"supplierDocRef,omitempty"`
	TotalKilos     string                `json:"totalKilos"`
	Lines          []inbound.ReceiptLine `json:"lines"`
}

// FromReceipt converts a receipt to its response shape.
func FromReceipt(r *inbound.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		DocumentResponse: FromDocument(r.Document),
		SupplierName:     r.SupplierName,
		DepotID:          r.DepotID.String(),
		SupplierDocRef:   r.SupplierDocRef,
		TotalKilos:       r.TotalKilos.String(),
		Lines:            r.Lines,
	}
	if r.SupplierID != nil {
		v := r.SupplierID.String()
		resp.SupplierID = &v
	}
	return resp
}
