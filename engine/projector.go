/*
projector.go - Future labor projection

PURPOSE:
  Prices forward headcount forecasts into projected future labor dollars:
  headcount * hours-per-person * running rate, summed per category.

DOUBLE-COUNT GUARD:
  A week that already has actuals recorded for a category is authoritative;
  the forecast entry for that same week is provisional and must contribute
  exactly zero. Actuals and forecasts are never summed for the same week.
  This is the bug class the construction-side spreadsheets kept
  reintroducing, so it is enforced here and pinned by tests.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FUTURE LABOR - Projected not-yet-incurred dollars
// =============================================================================

// FutureLabor is projected future labor cost per category.
type FutureLabor struct {
	Direct   decimal.Decimal
	Indirect decimal.Decimal
	Staff    decimal.Decimal
	Total    decimal.Decimal

	// ExcludedWeeks counts forecast entries dropped because their week
	// already has actuals.
	ExcludedWeeks int
}

// Cost returns the projected dollars for a labor category (zero otherwise).
func (f FutureLabor) Cost(c CostCategory) decimal.Decimal {
	switch c {
	case CategoryLaborDirect:
		return f.Direct
	case CategoryLaborIndirect:
		return f.Indirect
	case CategoryLaborStaff:
		return f.Staff
	}
	return decimal.Zero
}

// =============================================================================
// ACTUAL WEEK SET - Which (category, week) pairs already have actuals
// =============================================================================

// ActualWeekSet records which weeks have actuals per category.
type ActualWeekSet map[CostCategory]map[WeekEnding]struct{}

// NewActualWeekSet indexes the actuals records by resolved category and
// week. Unclassifiable records are ignored here; they cannot vouch for any
// category's week.
func NewActualWeekSet(records []LaborActualRecord, classifier *Classifier) ActualWeekSet {
	set := make(ActualWeekSet)
	for _, rec := range records {
		cat, ok := classifier.Classify(rec.Hints)
		if !ok {
			continue
		}
		weeks, ok := set[cat]
		if !ok {
			weeks = make(map[WeekEnding]struct{})
			set[cat] = weeks
		}
		weeks[rec.WeekEnding] = struct{}{}
	}
	return set
}

// Has reports whether actuals exist for the category in that week.
func (s ActualWeekSet) Has(c CostCategory, w WeekEnding) bool {
	weeks, ok := s[c]
	if !ok {
		return false
	}
	_, ok = weeks[w]
	return ok
}

// =============================================================================
// PROJECTOR
// =============================================================================

// LaborProjector prices headcount forecasts with running rates.
type LaborProjector struct{}

// Project sums headcount * hoursPerPerson * rate[category] over the
// forecast entries, excluding every entry whose (category, week) already
// has actuals recorded. Pure; inputs are not mutated.
func (p *LaborProjector) Project(entries []HeadcountForecastEntry, rates RateTable, actualWeeks ActualWeekSet) FutureLabor {
	out := FutureLabor{
		Direct: decimal.Zero, Indirect: decimal.Zero, Staff: decimal.Zero, Total: decimal.Zero,
	}

	for _, e := range entries {
		if !e.Category.IsLabor() {
			continue
		}
		if actualWeeks.Has(e.Category, e.WeekEnding) {
			out.ExcludedWeeks++
			continue
		}

		dollars := e.Headcount.Mul(e.HoursPerPerson).Mul(rates.Rate(e.Category))

		switch e.Category {
		case CategoryLaborDirect:
			out.Direct = out.Direct.Add(dollars)
		case CategoryLaborIndirect:
			out.Indirect = out.Indirect.Add(dollars)
		case CategoryLaborStaff:
			out.Staff = out.Staff.Add(dollars)
		}
		out.Total = out.Total.Add(dollars)
	}

	return out
}
