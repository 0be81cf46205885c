/*
rate.go - Running average rate derivation

PURPOSE:
  Derives a per-category average hourly cost rate from a trailing window of
  labor actuals. The rate prices future, not-yet-incurred labor in the
  projector.

ALGORITHM:
  rate[cat] = sum(burdened cost) / sum(hours)   over the window

  Multiple craft codes mapping to the same category are summed together
  before dividing - cost-weighted, not an average of averages.

DIVISION BY ZERO:
  A category with zero hours in the window has rate exactly 0. The output
  never contains NaN or Infinity; this is a defined value, not an error.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE
// =============================================================================

// RateTable maps labor categories to dollars per hour. Derived on demand,
// never persisted. Rates are always >= 0.
type RateTable map[CostCategory]decimal.Decimal

// Rate returns the rate for a category, 0 when none was derivable.
func (rt RateTable) Rate(c CostCategory) decimal.Decimal {
	if r, ok := rt[c]; ok {
		return r
	}
	return decimal.Zero
}

// =============================================================================
// CALCULATOR
// =============================================================================

// RateCalculator derives running rates from a trailing window of actuals.
type RateCalculator struct {
	Classifier *Classifier
	Params     Params
}

// Window returns the trailing window boundary [start, asOf] for an anchor
// week. With an 8-week window and anchor W, weeks W-7 .. W are included.
func (rc *RateCalculator) Window(asOf WeekEnding) (WeekEnding, WeekEnding) {
	if asOf.IsZero() || rc.Params.RateWindowWeeks <= 0 {
		return WeekEnding{}, asOf
	}
	return asOf.AddWeeks(-(rc.Params.RateWindowWeeks - 1)), asOf
}

// Calculate derives the rate table from records, restricted to the trailing
// window ending at asOf. A zero asOf anchors at the latest recorded week.
//
// Cost is normalized the same way the aggregator normalizes it (burden
// applied when no explicit total exists) so rates and actuals agree.
func (rc *RateCalculator) Calculate(records []LaborActualRecord, asOf WeekEnding) RateTable {
	if asOf.IsZero() {
		asOf = LatestWeek(records)
	}
	from, to := rc.Window(asOf)
	windowed := FilterWeeks(records, from, to)

	agg := LaborAggregator{Classifier: rc.Classifier, Params: rc.Params}

	cost := make(map[CostCategory]decimal.Decimal)
	hours := make(map[CostCategory]decimal.Decimal)
	for _, rec := range windowed {
		cat, ok := rc.Classifier.Classify(rec.Hints)
		if !ok || !cat.IsLabor() {
			continue
		}
		cost[cat] = cost[cat].Add(agg.BurdenedCost(rec))
		hours[cat] = hours[cat].Add(rec.Hours)
	}

	table := make(RateTable, len(cost))
	for cat, c := range cost {
		h := hours[cat]
		if h.IsZero() {
			table[cat] = decimal.Zero
			continue
		}
		table[cat] = c.Div(h)
	}
	return table
}
