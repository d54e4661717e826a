// Package alerts evaluates low-stock alerts: a plain threshold on total
// kilos, or a per-item CEL expression for anything fancier.
package alerts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/stock"
	"almacen/pkg/logger"
)

// ItemCatalog lists the items that carry alert configuration.
type ItemCatalog interface {
	ListWithAlerts(ctx context.Context) ([]*item.Item, error)
}

// StockSummarizer folds balances into per-item totals.
type StockSummarizer interface {
	Summarize(ctx context.Context, group stock.SummaryGroup, f stock.BalanceFilter) ([]stock.SummaryRow, error)
}

// Alert is one triggered low-stock condition.
type Alert struct {
	ItemID   string          `json:"itemId"`
	ItemCode string          `json:"itemCode"`
	ItemName string          `json:"itemName"`
	Kilos    types.Quantity  `json:"kilos"`
	Unidades types.Quantity  `json:"unidades"`
	Reason   string          `json:"reason"`
	Rule     *string         `json:"rule,omitempty"`
	Shortage *types.Quantity `json:"shortage,omitempty"`
}

// Service evaluates alert rules against current stock.
type Service struct {
	items ItemCatalog
	stock StockSummarizer
	env   *cel.Env

	// programs caches compiled rules; Evaluate runs from concurrent
	// requests against the one shared service.
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewService creates the alert service.
func NewService(items ItemCatalog, summarizer StockSummarizer) (*Service, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("build rule environment: %w", err)
	}
	return &Service{
		items:    items,
		stock:    summarizer,
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("kilos", cel.DoubleType),
		cel.Variable("unidades", cel.DoubleType),
		cel.Variable("threshold", cel.DoubleType),
	)
}

// ValidateRule compiles an alert expression and checks it yields a bool.
// Called by the HTTP layer before an item with a rule is saved.
func ValidateRule(expr string) error {
	env, err := newRuleEnv()
	if err != nil {
		return apperror.NewInternal(err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return apperror.NewValidation("invalid alert rule").
			WithDetail("field", "alertRule").
			WithDetail("error", issues.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return apperror.NewValidation("alert rule must evaluate to a boolean").
			WithDetail("field", "alertRule").
			WithDetail("outputType", ast.OutputType().String())
	}
	return nil
}

func (s *Service) program(expr string) (cel.Program, error) {
	s.mu.RLock()
	prg, ok := s.programs[expr]
	s.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := s.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, apperror.NewValidation("invalid alert rule").
			WithDetail("error", issues.Err().Error())
	}
	prg, err := s.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build rule program: %w", err)
	}

	s.mu.Lock()
	s.programs[expr] = prg
	s.mu.Unlock()
	return prg, nil
}

// Evaluate returns the items whose current totals trigger their alert
// configuration.
func (s *Service) Evaluate(ctx context.Context) ([]Alert, error) {
	configured, err := s.items.ListWithAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert items: %w", err)
	}
	if len(configured) == 0 {
		return nil, nil
	}

	rows, err := s.stock.Summarize(ctx, stock.GroupByItem, stock.BalanceFilter{IncludeZero: true})
	if err != nil {
		return nil, fmt.Errorf("summarize stock: %w", err)
	}
	totals := make(map[string]stock.SummaryRow, len(rows))
	for _, row := range rows {
		totals[row.GroupID] = row
	}

	var alerts []Alert
	for _, it := range configured {
		row := totals[it.ID.String()]

		if it.AlertThresholdKilos != nil && row.Kilos < *it.AlertThresholdKilos {
			shortage := *it.AlertThresholdKilos - row.Kilos
			alerts = append(alerts, Alert{
				ItemID:   it.ID.String(),
				ItemCode: it.Code,
				ItemName: it.Name,
				Kilos:    row.Kilos,
				Unidades: row.Unidades,
				Reason: fmt.Sprintf("stock %s kg below threshold %s kg",
					row.Kilos, it.AlertThresholdKilos),
				Shortage: &shortage,
			})
			continue
		}

		if it.AlertRule == nil || *it.AlertRule == "" {
			continue
		}
		triggered, err := s.evalRule(*it.AlertRule, it, row)
		if err != nil {
			// A broken rule must not hide the rest of the report.
			logger.Warn(ctx, "alert rule evaluation failed",
				"item_code", it.Code,
				"error", err,
			)
			continue
		}
		if triggered {
			rule := *it.AlertRule
			alerts = append(alerts, Alert{
				ItemID:   it.ID.String(),
				ItemCode: it.Code,
				ItemName: it.Name,
				Kilos:    row.Kilos,
				Unidades: row.Unidades,
				Reason:   "alert rule triggered",
				Rule:     &rule,
			})
		}
	}

	return alerts, nil
}

func (s *Service) evalRule(expr string, it *item.Item, row stock.SummaryRow) (bool, error) {
	prg, err := s.program(expr)
	if err != nil {
		return false, err
	}

	threshold := 0.0
	if it.AlertThresholdKilos != nil {
		threshold = it.AlertThresholdKilos.Float64()
	}
	out, _, err := prg.Eval(map[string]any{
		"kilos":     row.Kilos.Float64(),
		"unidades":  row.Unidades.Float64(),
		"threshold": threshold,
	})
	if err != nil {
		return false, err
	}
	triggered, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule did not evaluate to bool")
	}
	return triggered, nil
}
