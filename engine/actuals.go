/*
actuals.go - Labor actuals aggregation and canonical source selection

PURPOSE:
  Sums historical labor cost and hours per category, normalizing burden
  consistently across records that carry an explicit burdened total and
  records that only carry raw wages.

BURDEN NORMALIZATION:
  cost = BurdenedTotal                          when recorded
       = (ST wages + OT wages) * (1 + burden)   otherwise

  The burden rate is injected via Params, never a literal - jurisdictions
  and periods differ.

PER DIEM:
  Daily-allowance costs ride along with wages but accrue to the
  Direct/Indirect buckets by employee type, never Staff. Per diem on a
  staff-classified record lands in Indirect.

SOURCE SELECTION:
  Two actuals tables can exist for one project: current per-employee rows
  and legacy per-craft rows. Exactly one may be counted. The project's
  LaborSource tag decides; when the tag is unset the employee table is
  preferred, but overlapping weeks in both tables surface as
  SourceConflictError - the engine refuses to guess which side of an
  overlap is real.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LABOR TOTALS - Aggregated actuals per category
// =============================================================================

// LaborTotals is the burdened cost and hours breakdown across the three
// labor categories, plus the unclassified remainder.
type LaborTotals struct {
	Direct   decimal.Decimal
	Indirect decimal.Decimal
	Staff    decimal.Decimal
	Total    decimal.Decimal

	DirectHours   decimal.Decimal
	IndirectHours decimal.Decimal
	StaffHours    decimal.Decimal
	TotalHours    decimal.Decimal

	UnclassifiedRecords int
	UnclassifiedCost    decimal.Decimal
}

// Cost returns the dollar bucket for a labor category (zero otherwise).
func (t LaborTotals) Cost(c CostCategory) decimal.Decimal {
	switch c {
	case CategoryLaborDirect:
		return t.Direct
	case CategoryLaborIndirect:
		return t.Indirect
	case CategoryLaborStaff:
		return t.Staff
	}
	return decimal.Zero
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// LaborAggregator folds actuals records into per-category totals.
type LaborAggregator struct {
	Classifier *Classifier
	Params     Params
}

// BurdenedCost normalizes one record to its fully-burdened dollar cost,
// excluding per diem.
func (a *LaborAggregator) BurdenedCost(rec LaborActualRecord) decimal.Decimal {
	if rec.BurdenedTotal != nil {
		return *rec.BurdenedTotal
	}
	wages := rec.StraightTimeWages.Add(rec.OvertimeWages)
	return wages.Mul(decimal.NewFromInt(1).Add(a.Params.BurdenRate))
}

// Aggregate is a pure fold over the records; it never mutates its input and
// returns a fresh totals struct every call.
func (a *LaborAggregator) Aggregate(records []LaborActualRecord) LaborTotals {
	totals := LaborTotals{
		Direct: decimal.Zero, Indirect: decimal.Zero, Staff: decimal.Zero, Total: decimal.Zero,
		DirectHours: decimal.Zero, IndirectHours: decimal.Zero, StaffHours: decimal.Zero, TotalHours: decimal.Zero,
		UnclassifiedCost: decimal.Zero,
	}

	for _, rec := range records {
		cost := a.BurdenedCost(rec)

		cat, ok := a.Classifier.Classify(rec.Hints)
		if !ok || !cat.IsLabor() {
			// Excluded from category totals, surfaced for data quality.
			// Labor rows classified to a non-labor category are legacy
			// mis-codings and get the same treatment.
			totals.UnclassifiedRecords++
			totals.UnclassifiedCost = totals.UnclassifiedCost.Add(cost).Add(rec.PerDiem)
			continue
		}

		switch cat {
		case CategoryLaborDirect:
			totals.Direct = totals.Direct.Add(cost).Add(rec.PerDiem)
			totals.DirectHours = totals.DirectHours.Add(rec.Hours)
		case CategoryLaborIndirect:
			totals.Indirect = totals.Indirect.Add(cost).Add(rec.PerDiem)
			totals.IndirectHours = totals.IndirectHours.Add(rec.Hours)
		case CategoryLaborStaff:
			// Per diem never accrues to Staff.
			totals.Staff = totals.Staff.Add(cost)
			totals.Indirect = totals.Indirect.Add(rec.PerDiem)
			totals.StaffHours = totals.StaffHours.Add(rec.Hours)
		}

		totals.Total = totals.Total.Add(cost).Add(rec.PerDiem)
		totals.TotalHours = totals.TotalHours.Add(rec.Hours)
	}

	return totals
}

// FilterWeeks returns the records whose week-ending falls in [from, to],
// inclusive. Zero boundaries are open ends.
func FilterWeeks(records []LaborActualRecord, from, to WeekEnding) []LaborActualRecord {
	var out []LaborActualRecord
	for _, rec := range records {
		if !from.IsZero() && rec.WeekEnding.Before(from) {
			continue
		}
		if !to.IsZero() && rec.WeekEnding.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// =============================================================================
// CANONICAL SOURCE SELECTION
// =============================================================================

// SelectSource picks the single actuals table to count for the project.
//
//   - Declared source: use it, ignore the other table entirely.
//   - Unset, rows in one table only: use that table.
//   - Unset, rows in both: prefer employee rows, but any week present in
//     both tables is a SourceConflictError - a declared source is required
//     to resolve an overlap.
func SelectSource(project Project, employee, craft []LaborActualRecord) ([]LaborActualRecord, error) {
	switch project.LaborSource {
	case LaborSourceEmployee:
		return employee, nil
	case LaborSourceCraft:
		return craft, nil
	}

	if len(craft) == 0 {
		return employee, nil
	}
	if len(employee) == 0 {
		return craft, nil
	}

	overlap := overlappingWeeks(employee, craft)
	if len(overlap) > 0 {
		return nil, &SourceConflictError{ProjectID: project.ID, OverlapWeeks: overlap}
	}
	return employee, nil
}

func overlappingWeeks(a, b []LaborActualRecord) []WeekEnding {
	seen := make(map[WeekEnding]bool, len(a))
	for _, rec := range a {
		seen[rec.WeekEnding] = true
	}
	var overlap []WeekEnding
	reported := make(map[WeekEnding]bool)
	for _, rec := range b {
		if seen[rec.WeekEnding] && !reported[rec.WeekEnding] {
			overlap = append(overlap, rec.WeekEnding)
			reported[rec.WeekEnding] = true
		}
	}
	return overlap
}
