/*
rollup.go - Purchase order rollup

PURPOSE:
  Aggregates committed, invoiced, and forecast amounts per category across
  a project's purchase orders.

FORECAST POLICY:
  Per order: contributes max(explicit forecast, committed, invoiced) to the
  category forecast. An order invoiced past its commitment is already
  spending more than planned; an explicit forecast below either figure is
  stale and ignored in favor of the larger.

  Per category: a procurement category (materials, equipment, subcontracts,
  small tools) with a nonzero budget and zero countable orders forecasts at
  its budget amount - absent contrary evidence, spend proceeds as planned.
  Labor, Other and Risk never get the budget default.

STATUS FILTER:
  Draft and cancelled orders are excluded from all figures.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY ROLLUP
// =============================================================================

// CategoryRollup is the per-category purchase order position.
type CategoryRollup struct {
	Committed  decimal.Decimal
	Invoiced   decimal.Decimal
	Forecasted decimal.Decimal
	OrderCount int
}

// RollupResult maps categories to their PO position, plus the records no
// rule could classify.
type RollupResult struct {
	ByCategory map[CostCategory]CategoryRollup

	UnclassifiedPOs    int
	UnclassifiedPOCost decimal.Decimal
}

// Category returns the rollup for a category, zero-valued when absent.
func (r RollupResult) Category(c CostCategory) CategoryRollup {
	if cr, ok := r.ByCategory[c]; ok {
		return cr
	}
	return CategoryRollup{
		Committed: decimal.Zero, Invoiced: decimal.Zero, Forecasted: decimal.Zero,
	}
}

// =============================================================================
// ROLLUP
// =============================================================================

// PORollup aggregates purchase orders per category.
type PORollup struct {
	Classifier *Classifier
}

// Rollup folds the orders into per-category totals and applies the
// budget-default forecast policy. Pure; inputs are not mutated.
func (r *PORollup) Rollup(orders []PurchaseOrderRecord, budgets []BudgetAllocation) RollupResult {
	out := RollupResult{
		ByCategory:         make(map[CostCategory]CategoryRollup),
		UnclassifiedPOCost: decimal.Zero,
	}

	for _, po := range orders {
		if !po.Status.Countable() {
			continue
		}

		cat, ok := r.Classifier.Classify(po.Hints)
		if !ok {
			out.UnclassifiedPOs++
			out.UnclassifiedPOCost = out.UnclassifiedPOCost.Add(po.CommittedAmount)
			continue
		}

		cr := out.Category(cat)
		cr.Committed = cr.Committed.Add(po.CommittedAmount)
		cr.Invoiced = cr.Invoiced.Add(po.InvoicedAmount)
		cr.Forecasted = cr.Forecasted.Add(orderForecast(po))
		cr.OrderCount++
		out.ByCategory[cat] = cr
	}

	// Budget-default pass: procurement categories with budget but no
	// orders forecast at budget.
	for _, b := range budgets {
		if !b.Category.DefaultsToBudget() || b.Amount.IsZero() {
			continue
		}
		cr := out.Category(b.Category)
		if cr.OrderCount == 0 {
			cr.Forecasted = b.Amount
			out.ByCategory[b.Category] = cr
		}
	}

	return out
}

// orderForecast is the at-completion estimate for one order:
// max(explicit forecast, committed, invoiced).
func orderForecast(po PurchaseOrderRecord) decimal.Decimal {
	forecast := po.CommittedAmount
	if po.ForecastAmount != nil && po.ForecastAmount.GreaterThan(forecast) {
		forecast = *po.ForecastAmount
	}
	if po.InvoicedAmount.GreaterThan(forecast) {
		forecast = po.InvoicedAmount
	}
	return forecast
}
