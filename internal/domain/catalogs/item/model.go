// Package item provides the Item catalog: the articles the warehouse
// stores and moves (yarn, work-in-progress bags, finished boxes, supplies).
package item

import (
	"context"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
)

// Category classifies an item by its role in the plant.
type Category string

const (
	CategoryYarn        Category = "yarn"
	CategoryWipBag      Category = "wip-bag"
	CategoryFinishedBox Category = "finished-box"
	CategorySupply      Category = "supply"
	CategorySparePart   Category = "spare-part"
)

// Item represents a stored article. The primary unit is always kilos;
// unidades (piece count) is an optional secondary unit per item.
type Item struct {
	entity.Catalog

	// Category defines the item role
	Category Category `db:"category" json:"category"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// TrackLot indicates the item is received and issued by lot.
	// Non-tracked items get a single implicit lot.
	TrackLot bool `db:"track_lot" json:"trackLot"`

	// TrackUnidades indicates the secondary unit (piece count) is carried
	TrackUnidades bool `db:"track_unidades" json:"trackUnidades"`

	// Active indicates the item can appear on new movements
	Active bool `db:"is_active" json:"active"`

	// AlertThresholdKilos triggers a low-stock alert when total kilos
	// fall below it (nil = no threshold alert)
	AlertThresholdKilos *types.Quantity `db:"alert_threshold_kilos" json:"alertThresholdKilos,omitempty"`

	// AlertRule is an optional CEL expression evaluated against the
	// item's totals (vars: kilos, unidades, threshold)
	AlertRule *string `db:"alert_rule" json:"alertRule,omitempty"`
}

// NewItem creates a new Item with required fields.
func NewItem(code, name string, category Category) *Item {
	return &Item{
		Catalog:  entity.NewCatalog(code, name),
		Category: category,
		Active:   true,
	}
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidCategory(i.Category) {
		return apperror.NewValidation("invalid item category").
			WithDetail("field", "category").
			WithDetail("value", string(i.Category))
	}

	if i.AlertThresholdKilos != nil && i.AlertThresholdKilos.IsNegative() {
		return apperror.NewValidation("alert threshold cannot be negative").
			WithDetail("field", "alertThresholdKilos")
	}

	return nil
}

// HasAlert returns true if any alert configuration is present.
func (i *Item) HasAlert() bool {
	return i.AlertThresholdKilos != nil || (i.AlertRule != nil && *i.AlertRule != "")
}

// --- Validation Helpers ---

func isValidCategory(c Category) bool {
	switch c {
	case CategoryYarn, CategoryWipBag, CategoryFinishedBox, CategorySupply, CategorySparePart:
		return true
	}
	return false
}
