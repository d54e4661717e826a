// Package allocation implements the FIFO allocation planner. The planner
// is pure: it takes a request and a snapshot of eligible lot balances and
// returns a plan, without touching storage. Persistence and locking are
// the outbound commit engine's job.
package allocation

import (
	"fmt"
	"sort"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Request asks for a quantity of one item, optionally constrained to a
// depot or a single position.
type Request struct {
	ItemID   id.ID           `json:"itemId"`
	Kilos    types.Quantity  `json:"kilos"`
	Unidades *types.Quantity `json:"unidades,omitempty"`

	DepotID    *id.ID `json:"depotId,omitempty"`
	PositionID *id.ID `json:"positionId,omitempty"`
}

// LotBalance is one candidate bucket: the current balance of one lot at
// one picking position, together with the lot fields FIFO ordering needs.
type LotBalance struct {
	entity.StockKey

	LotNumber    string         `json:"lotNumber"`
	LotCreatedAt time.Time      `json:"lotCreatedAt"`
	Kilos        types.Quantity `json:"kilos"`
	Unidades     types.Quantity `json:"unidades"`
}

// Line is one planned draw from one bucket.
type Line struct {
	entity.StockKey

	LotNumber string          `json:"lotNumber"`
	Kilos     types.Quantity  `json:"kilos"`
	Unidades  *types.Quantity `json:"unidades,omitempty"`
}

// Plan is the planner output. Lines are ordered oldest lot first and the
// same inputs always produce the same plan.
type Plan struct {
	Request Request `json:"request"`
	Lines   []Line  `json:"lines"`

	TotalKilos     types.Quantity `json:"totalKilos"`
	ShortfallKilos types.Quantity `json:"shortfallKilos"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// IsPartial reports whether the plan covers less than requested.
func (p *Plan) IsPartial() bool {
	return p.ShortfallKilos.IsPositive()
}

// BuildPlan allocates the requested kilos across lots strictly oldest
// first: lot creation time ascending, then lot id, then position id as
// deterministic tiebreaks.
func BuildPlan(req Request, lots []LotBalance) (*Plan, error) {
	if id.IsNil(req.ItemID) {
		return nil, apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if !req.Kilos.IsPositive() {
		return nil, apperror.NewValidation("requested kilos must be positive").
			WithDetail("field", "kilos").
			WithDetail("value", req.Kilos.String())
	}
	if req.Unidades != nil && req.Unidades.IsNegative() {
		return nil, apperror.NewValidation("requested unidades cannot be negative").
			WithDetail("field", "unidades")
	}

	eligible := make([]LotBalance, 0, len(lots))
	for _, lb := range lots {
		if lb.ItemID != req.ItemID || !lb.Kilos.IsPositive() {
			continue
		}
		if req.DepotID != nil && lb.DepotID != *req.DepotID {
			continue
		}
		if req.PositionID != nil && lb.PositionID != *req.PositionID {
			continue
		}
		eligible = append(eligible, lb)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if !a.LotCreatedAt.Equal(b.LotCreatedAt) {
			return a.LotCreatedAt.Before(b.LotCreatedAt)
		}
		if a.LotID != b.LotID {
			return lessID(a.LotID, b.LotID)
		}
		return lessID(a.PositionID, b.PositionID)
	})

	plan := &Plan{Request: req}
	remaining := req.Kilos

	for _, lb := range eligible {
		if !remaining.IsPositive() {
			break
		}

		draw := remaining
		if lb.Kilos < draw {
			draw = lb.Kilos
		}

		line := Line{
			StockKey:  lb.StockKey,
			LotNumber: lb.LotNumber,
			Kilos:     draw,
		}
		if !lb.Unidades.IsZero() {
			line.Unidades = proportionalUnidades(lb, draw)
		}

		plan.Lines = append(plan.Lines, line)
		plan.TotalKilos += draw
		remaining -= draw
	}

	plan.ShortfallKilos = remaining
	if len(eligible) == 0 {
		plan.Warnings = append(plan.Warnings,
			"no eligible stock for the requested item")
	} else if plan.IsPartial() {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"partial allocation: %s kg short of requested %s kg",
			plan.ShortfallKilos.String(), req.Kilos.String()))
	}

	return plan, nil
}

// proportionalUnidades scales the bucket's piece count by the fraction of
// kilos drawn. A full draw takes every piece so nothing is stranded.
func proportionalUnidades(lb LotBalance, draw types.Quantity) *types.Quantity {
	if draw == lb.Kilos {
		u := lb.Unidades
		return &u
	}
	ratio := draw.Decimal().Div(lb.Kilos.Decimal())
	u := types.NewQuantityFromDecimal(lb.Unidades.Decimal().Mul(ratio))
	return &u
}

func lessID(a, b id.ID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
