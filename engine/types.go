/*
Package engine provides the core project cost forecasting engine.

PURPOSE:
  This package contains the types and algorithms that reconcile three
  independent, imperfectly-aligned data sources - purchase-order
  commitments/invoices, historical labor actuals, and forward-looking
  headcount forecasts - into one internally consistent financial picture
  per cost category for a construction project.

KEY CONCEPTS IN THIS FILE (types.go):
  - CostCategory: Fixed enumeration of budget buckets (labor splits,
    materials, equipment, subcontracts, ...)
  - LaborActualRecord / PurchaseOrderRecord / HeadcountForecastEntry /
    BudgetAllocation: Read-only inputs owned by external flows
  - Params: Injected engine policy (burden rate, rate window, week end)
  - ForecastResult: The engine's sole externally visible artifact

DESIGN PRINCIPLES:
  1. Purity: The engine never writes to the data store. Every result is
     recomputed fresh from current inputs - a view, not a record.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors in
     money math.
  3. Safety: A forecast can never be presented below money already spent;
     a final clamp enforces this regardless of upstream input quality.
  4. Fail closed: A missing input source fails the whole computation
     rather than silently zeroing one leg of the picture.

SEE ALSO:
  - classify.go: Category resolution fallback chain
  - actuals.go:  Labor actuals aggregation and source selection
  - rate.go:     Trailing-window running rate derivation
  - projector.go: Future labor projection
  - rollup.go:   Purchase order rollup
  - reconcile.go: AC/ETC/EAC reconciliation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COST CATEGORY - Fixed enumeration of budget buckets
// =============================================================================

// CostCategory is one of a fixed set of mutually exclusive cost buckets.
// Every dollar of project cost resolves to exactly one category.
type CostCategory string

const (
	CategoryLaborDirect   CostCategory = "labor_direct"
	CategoryLaborIndirect CostCategory = "labor_indirect"
	CategoryLaborStaff    CostCategory = "labor_staff"
	CategoryMaterials     CostCategory = "materials"
	CategoryEquipment     CostCategory = "equipment"
	CategorySubcontracts  CostCategory = "subcontracts"
	CategorySmallTools    CostCategory = "small_tools"
	CategoryOther         CostCategory = "other"
	CategoryRisk          CostCategory = "risk"

	// CategoryUnknown is the zero value: no rule matched. Records resolving
	// here are excluded from category totals and surfaced as an
	// "unclassified" count - never silently merged into CategoryOther.
	CategoryUnknown CostCategory = ""
)

// AllCategories lists every category in stable display order. Result
// assembly iterates this slice so output ordering is deterministic.
var AllCategories = []CostCategory{
	CategoryLaborDirect,
	CategoryLaborIndirect,
	CategoryLaborStaff,
	CategoryMaterials,
	CategoryEquipment,
	CategorySubcontracts,
	CategorySmallTools,
	CategoryOther,
	CategoryRisk,
}

// IsLabor reports whether costs in this category are priced through the
// labor pipeline (actuals + running rate) rather than purchase orders.
func (c CostCategory) IsLabor() bool {
	switch c {
	case CategoryLaborDirect, CategoryLaborIndirect, CategoryLaborStaff:
		return true
	}
	return false
}

// DefaultsToBudget reports whether a category with a nonzero budget and no
// matching purchase orders forecasts at its budget amount ("spend proceeds
// as planned"). Deliberately limited to the procurement categories; labor
// has its own projection path and Other/Risk were never covered by the
// assumption.
func (c CostCategory) DefaultsToBudget() bool {
	switch c {
	case CategoryMaterials, CategoryEquipment, CategorySubcontracts, CategorySmallTools:
		return true
	}
	return false
}

func (c CostCategory) Valid() bool {
	switch c {
	case CategoryLaborDirect, CategoryLaborIndirect, CategoryLaborStaff,
		CategoryMaterials, CategoryEquipment, CategorySubcontracts,
		CategorySmallTools, CategoryOther, CategoryRisk:
		return true
	}
	return false
}

func (c CostCategory) String() string { return string(c) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string

// =============================================================================
// LABOR SOURCE - Canonical actuals table for a project
// =============================================================================

// LaborSource declares which actuals table is the source of truth for a
// project. Current projects record per-employee actuals; legacy projects
// carry per-craft actuals. Exactly one source may be counted per project -
// summing both would double count overlapping weeks.
type LaborSource string

const (
	// LaborSourceUnset means the project never declared a canonical source.
	// The aggregator then prefers the employee table, but overlapping weeks
	// in both tables are a configuration error (SourceConflictError).
	LaborSourceUnset LaborSource = ""

	// LaborSourceEmployee: current per-employee actuals table.
	LaborSourceEmployee LaborSource = "employee"

	// LaborSourceCraft: legacy per-craft actuals table.
	LaborSourceCraft LaborSource = "craft"
)

// =============================================================================
// INPUT RECORDS - Read-only to this engine
// =============================================================================

// Project carries the contract values and labor source declaration. The
// engine never mutates it.
type Project struct {
	ID                    ProjectID
	Name                  string
	OriginalContractValue decimal.Decimal
	RevisedContractValue  decimal.Decimal
	LaborSource           LaborSource
}

// CategoryHints is the partial, possibly inconsistent classification
// information attached to a raw record. The classifier resolves it to a
// single category via an ordered fallback chain (see classify.go).
type CategoryHints struct {
	// Explicit is a category already resolved upstream (e.g. on the craft
	// record). First rule in the chain.
	Explicit CostCategory

	// CraftCategory is the free-text category field on the referenced
	// craft/cost-code record, matched case-insensitively.
	CraftCategory string

	// CostCenterCode is the numeric cost-center code on the cost code
	// (e.g. "2000" = equipment). Legacy fallback.
	CostCenterCode string

	// BudgetText is the free-text budget_category string on the record
	// itself. Last-resort fallback for records lacking any reference data.
	BudgetText string
}

// LaborActualRecord is one aggregation unit of historical labor cost.
// Created by labor-import/actuals-entry flows; read-only here.
type LaborActualRecord struct {
	ProjectID  ProjectID
	WeekEnding WeekEnding
	Hints      CategoryHints

	Hours             decimal.Decimal
	StraightTimeWages decimal.Decimal
	OvertimeWages     decimal.Decimal

	// BurdenedTotal, when present, is the authoritative fully-burdened
	// cost. When nil the engine applies Params.BurdenRate to ST+OT wages.
	BurdenedTotal *decimal.Decimal

	// PerDiem is a daily-allowance cost reported alongside wages. It lands
	// in the Direct/Indirect buckets by employee type, never Staff.
	PerDiem decimal.Decimal
}

// POStatus is the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusApproved  POStatus = "approved"
	POStatusClosed    POStatus = "closed"
	POStatusCancelled POStatus = "cancelled"
)

// Countable reports whether the order participates in rollups. Drafts are
// not yet commitments; cancelled orders never were.
func (s POStatus) Countable() bool {
	return s == POStatusApproved || s == POStatusClosed
}

// PurchaseOrderRecord is a commitment against the project. Read-only here;
// created and mutated by PO management flows.
type PurchaseOrderRecord struct {
	ProjectID ProjectID
	Number    string
	Vendor    string
	Status    POStatus
	Hints     CategoryHints

	CommittedAmount decimal.Decimal
	InvoicedAmount  decimal.Decimal

	// ForecastAmount is the buyer's explicit at-completion estimate, when
	// one has been set. Frequently stale or absent; the rollup treats it
	// as a floor candidate, never as authoritative on its own.
	ForecastAmount *decimal.Decimal
}

// HeadcountForecastEntry is a planner's forward-looking projection for one
// category and one future week. Mutable by planners; consumed read-only.
type HeadcountForecastEntry struct {
	ProjectID      ProjectID
	WeekEnding     WeekEnding
	Category       CostCategory
	Headcount      decimal.Decimal
	HoursPerPerson decimal.Decimal
}

// BudgetAllocation is the budgeted amount for one category, sourced from
// project budget configuration.
type BudgetAllocation struct {
	ProjectID ProjectID
	Category  CostCategory
	Amount    decimal.Decimal
}

// =============================================================================
// PARAMS - Injected engine policy
// =============================================================================

// Params carries the policy constants that vary by jurisdiction or period.
// These are injected configuration, never literals in the math.
type Params struct {
	// BurdenRate is the overhead loading applied to straight-time and
	// overtime wages when no explicit burdened total is recorded.
	// Expressed as a fraction (0.28 = 28%).
	BurdenRate decimal.Decimal

	// RateWindowWeeks is the trailing window of actuals used to derive
	// running average rates.
	RateWindowWeeks int
}

// DefaultParams returns the standard policy: 28% burden, 8-week window.
func DefaultParams() Params {
	return Params{
		BurdenRate:      decimal.NewFromFloat(0.28),
		RateWindowWeeks: 8,
	}
}

// =============================================================================
// FORECAST RESULT - The engine's sole output artifact
// =============================================================================

// CategoryLine is the per-category slice of the forecast.
//
// Invariant: ForecastedFinal >= Actuals. A project can never be forecast to
// spend less than it already has; the reconciler clamps as its last step.
type CategoryLine struct {
	Category        CostCategory
	Budget          decimal.Decimal
	Committed       decimal.Decimal
	Actuals         decimal.Decimal
	ForecastedFinal decimal.Decimal
	Variance        decimal.Decimal // Budget - ForecastedFinal
	LeftToSpend     decimal.Decimal // ForecastedFinal - Actuals
}

// DataQuality surfaces records no classification rule could place. They are
// excluded from category totals, not dumped into "other", so the report
// stays honest about its own coverage.
type DataQuality struct {
	UnclassifiedLaborRecords int
	UnclassifiedLaborCost    decimal.Decimal
	UnclassifiedPOs          int
	UnclassifiedPOCost       decimal.Decimal
}

// ForecastResult is the consolidated picture for one project. It is
// recomputed fresh on every request; there is no persisted lifecycle.
type ForecastResult struct {
	ProjectID ProjectID

	// One line per CostCategory in AllCategories order.
	Categories []CategoryLine

	// Labor detail behind the three labor category lines.
	Labor       LaborTotals
	FutureLabor FutureLabor
	Rates       RateTable

	ActualCostToDate     decimal.Decimal
	EstimateToComplete   decimal.Decimal
	EstimateAtCompletion decimal.Decimal
	VarianceAtCompletion decimal.Decimal
	ProfitMargin         decimal.Decimal // percent, 0 when contract value is 0
	PercentComplete      decimal.Decimal // capped at 100, 0 when EAC is 0

	Quality DataQuality
}

// Line returns the category line for c, or a zero line if absent.
func (r *ForecastResult) Line(c CostCategory) CategoryLine {
	for _, line := range r.Categories {
		if line.Category == c {
			return line
		}
	}
	return CategoryLine{Category: c}
}
