package dto

import (
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/outbound"
)

// PreviewShipmentRequest asks the planner for a FIFO draft.
type PreviewShipmentRequest struct {
	ItemID   id.ID           `json:"itemId" binding:"required"`
	Kilos    types.Quantity  `json:"kilos"`
	Unidades *types.Quantity `json:"unidades,omitempty"`

	DepotID    *id.ID `json:"depotId,omitempty"`
	PositionID *id.ID `json:"positionId,omitempty"`
}

// ToDomain converts to a planner request.
func (r PreviewShipmentRequest) ToDomain() allocation.Request {
	return allocation.Request{
		ItemID:     r.ItemID,
		Kilos:      r.Kilos,
		Unidades:   r.Unidades,
		DepotID:    r.DepotID,
		PositionID: r.PositionID,
	}
}

// CommitShipmentRequest commits a previewed plan.
type CommitShipmentRequest struct {
	Plan *allocation.Plan `json:"plan" binding:"required"`

	Date       *time.Time `json:"date,omitempty"`
	ClientID   *id.ID     `json:"clientId,omitempty"`
	ClientName string     `json:"clientName"`
	OrderRef   *string    `json:"orderRef,omitempty"`
	Note       string     `json:"note,omitempty"`

	// Replan absorbs a stale plan inside the commit transaction instead
	// of failing with a conflict.
	Replan bool `json:"replan,omitempty"`
}

// Meta converts the request to commit metadata.
func (r CommitShipmentRequest) Meta() outbound.CommitMeta {
	meta := outbound.CommitMeta{
		ClientID:   r.ClientID,
		ClientName: r.ClientName,
		OrderRef:   r.OrderRef,
		Note:       r.Note,
	}
	if r.Date != nil {
		meta.Date = *r.Date
	}
	return meta
}

// ShipmentResponse is a committed shipment with its lines.
type ShipmentResponse struct {
	DocumentResponse

	ClientID   *string                 `json:"clientId,omitempty"`
	ClientName string                  `json:"clientName"`
	OrderRef   *string                 `json:"orderRef,omitempty"`
	TotalKilos string                  `json:"totalKilos"`
	Lines      []outbound.ShipmentLine `json:"lines"`
}

// FromShipment converts a shipment to its response shape.
func FromShipment(s *outbound.Shipment) ShipmentResponse {
	resp := ShipmentResponse{
		DocumentResponse: FromDocument(s.Document),
		ClientName:       s.ClientName,
		OrderRef:         s.OrderRef,
		TotalKilos:       s.TotalKilos.String(),
		Lines:            s.Lines,
	}
	if s.ClientID != nil {
		v := s.ClientID.String()
		resp.ClientID = &v
	}
	return resp
}
