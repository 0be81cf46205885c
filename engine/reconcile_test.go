/*
reconcile_test.go - Executable specification for the reconciler

Each test pins one behavior of the consolidated forecast: the worked
scenarios, the algebraic identities, and the failure modes. These are the
tests a financial stakeholder would want to read.
*/
package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gantry/cost-engine/engine"
	"github.com/gantry/cost-engine/engine/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newReconciler(src engine.DataSource) *engine.Reconciler {
	return engine.NewReconciler(src, nil, engine.DefaultParams(), nil)
}

func seedProject(m *store.Memory, rcv float64) engine.Project {
	p := engine.Project{
		ID:                    "proj-1",
		Name:                  "Riverside Plant Expansion",
		OriginalContractValue: dollars(rcv),
		RevisedContractValue:  dollars(rcv),
		LaborSource:           engine.LaborSourceEmployee,
	}
	m.PutProject(p)
	return p
}

// failingSource wraps a DataSource and fails one component.
type failingSource struct {
	engine.DataSource
	failPOs       bool
	failHeadcount bool
	failBudget    bool
	failLabor     bool
}

func (f *failingSource) PurchaseOrders(ctx context.Context, id engine.ProjectID) ([]engine.PurchaseOrderRecord, error) {
	if f.failPOs {
		return nil, fmt.Errorf("po query timeout")
	}
	return f.DataSource.PurchaseOrders(ctx, id)
}

func (f *failingSource) HeadcountForecasts(ctx context.Context, id engine.ProjectID) ([]engine.HeadcountForecastEntry, error) {
	if f.failHeadcount {
		return nil, fmt.Errorf("headcount query timeout")
	}
	return f.DataSource.HeadcountForecasts(ctx, id)
}

func (f *failingSource) BudgetAllocations(ctx context.Context, id engine.ProjectID) ([]engine.BudgetAllocation, error) {
	if f.failBudget {
		return nil, fmt.Errorf("budget query timeout")
	}
	return f.DataSource.BudgetAllocations(ctx, id)
}

func (f *failingSource) EmployeeActuals(ctx context.Context, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	if f.failLabor {
		return nil, fmt.Errorf("labor query timeout")
	}
	return f.DataSource.EmployeeActuals(ctx, id)
}

// =============================================================================
// SCENARIO A - Single PO, no labor
// =============================================================================

func TestForecast_ScenarioA_SinglePONoLabor(t *testing.T) {
	// GIVEN: One materials PO, committed 100000 / invoiced 40000, no labor
	// THEN:  AC = 40000, ETC = 60000, EAC = 100000

	m := store.NewMemory()
	seedProject(m, 0)
	m.AddPurchaseOrder(po(100000, 40000, engine.CategoryMaterials, engine.POStatusApproved))

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.ActualCostToDate.Equal(dollars(40000)) {
		t.Errorf("AC: expected 40000, got %v", result.ActualCostToDate)
	}
	if !result.EstimateToComplete.Equal(dollars(60000)) {
		t.Errorf("ETC: expected 60000, got %v", result.EstimateToComplete)
	}
	if !result.EstimateAtCompletion.Equal(dollars(100000)) {
		t.Errorf("EAC: expected 100000, got %v", result.EstimateAtCompletion)
	}

	mat := result.Line(engine.CategoryMaterials)
	if !mat.Committed.Equal(dollars(100000)) || !mat.Actuals.Equal(dollars(40000)) {
		t.Errorf("materials line wrong: %+v", mat)
	}
}

// =============================================================================
// SCENARIO B - Labor actuals plus forecast week
// =============================================================================

func TestForecast_ScenarioB_LaborActualsPlusForecast(t *testing.T) {
	// GIVEN: Direct actuals 24000/480h for week W, forecast 12 x 40h for
	//        week W+1 with no actuals
	// THEN:  Rate = 50/hr, future labor = 24000, labor EAC = 48000

	w := week(2026, time.March, 7)
	m := store.NewMemory()
	seedProject(m, 0)
	m.AddEmployeeActual(burdenedRecord(w, directHints(), 24000, 480))
	m.AddHeadcountForecast(forecastEntry(w.AddWeeks(1), engine.CategoryLaborDirect, 12, 40))

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Rates.Rate(engine.CategoryLaborDirect).Equal(dollars(50)) {
		t.Errorf("rate: expected 50, got %v", result.Rates.Rate(engine.CategoryLaborDirect))
	}
	if !result.FutureLabor.Direct.Equal(dollars(24000)) {
		t.Errorf("future labor: expected 24000, got %v", result.FutureLabor.Direct)
	}

	direct := result.Line(engine.CategoryLaborDirect)
	if !direct.Actuals.Equal(dollars(24000)) {
		t.Errorf("direct actuals: expected 24000, got %v", direct.Actuals)
	}
	if !direct.ForecastedFinal.Equal(dollars(48000)) {
		t.Errorf("direct forecastedFinal: expected 48000, got %v", direct.ForecastedFinal)
	}
	if !result.EstimateAtCompletion.Equal(dollars(48000)) {
		t.Errorf("EAC: expected 48000, got %v", result.EstimateAtCompletion)
	}
}

// =============================================================================
// SCENARIO C - Forecast week already has actuals
// =============================================================================

func TestForecast_ScenarioC_ForecastWeekWithActuals_Excluded(t *testing.T) {
	// Same as B but the forecast week also has an actual recorded: the
	// forecast contributes 0, not 24000.

	w := week(2026, time.March, 7)
	next := w.AddWeeks(1)
	m := store.NewMemory()
	seedProject(m, 0)
	m.AddEmployeeActual(burdenedRecord(w, directHints(), 24000, 480))
	m.AddEmployeeActual(burdenedRecord(next, directHints(), 20000, 400))
	m.AddHeadcountForecast(forecastEntry(next, engine.CategoryLaborDirect, 12, 40))

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.FutureLabor.Direct.IsZero() {
		t.Errorf("future labor for a week with actuals must be 0, got %v", result.FutureLabor.Direct)
	}
	direct := result.Line(engine.CategoryLaborDirect)
	if !direct.ForecastedFinal.Equal(dollars(44000)) {
		t.Errorf("direct forecastedFinal: expected 44000 (actuals only), got %v", direct.ForecastedFinal)
	}
}

// =============================================================================
// SCENARIO D - Budget default
// =============================================================================

func TestForecast_ScenarioD_BudgetDefaultNoPOs(t *testing.T) {
	// GIVEN: Equipment budget 50000, zero equipment POs
	// THEN:  forecastedFinal = 50000, variance = 0

	m := store.NewMemory()
	seedProject(m, 0)
	m.SetBudget(engine.BudgetAllocation{ProjectID: "proj-1", Category: engine.CategoryEquipment, Amount: dollars(50000)})

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eq := result.Line(engine.CategoryEquipment)
	if !eq.ForecastedFinal.Equal(dollars(50000)) {
		t.Errorf("expected forecastedFinal 50000, got %v", eq.ForecastedFinal)
	}
	if !eq.Variance.IsZero() {
		t.Errorf("expected variance 0, got %v", eq.Variance)
	}
}

// =============================================================================
// SCENARIO E - Zero contract value
// =============================================================================

func TestForecast_ScenarioE_ZeroContractValue_NoDivisionErrors(t *testing.T) {
	m := store.NewMemory()
	seedProject(m, 0)
	m.AddPurchaseOrder(po(100000, 40000, engine.CategoryMaterials, engine.POStatusApproved))

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.ProfitMargin.IsZero() {
		t.Errorf("expected margin 0 with zero contract value, got %v", result.ProfitMargin)
	}
	// EAC is nonzero here, so percentComplete is real: 40000/100000 = 40%.
	if !result.PercentComplete.Equal(dollars(40)) {
		t.Errorf("expected percent complete 40, got %v", result.PercentComplete)
	}
}

func TestForecast_EmptyProject_AllZeroNoErrors(t *testing.T) {
	// No data at all: every figure is 0, never NaN, never an error.
	m := store.NewMemory()
	seedProject(m, 0)

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.EstimateAtCompletion.IsZero() || !result.PercentComplete.IsZero() || !result.ProfitMargin.IsZero() {
		t.Errorf("expected all-zero result, got EAC=%v pct=%v margin=%v",
			result.EstimateAtCompletion, result.PercentComplete, result.ProfitMargin)
	}
}

// =============================================================================
// INVARIANTS
// =============================================================================

func seedBusyProject(m *store.Memory) {
	seedProject(m, 500000)
	w := week(2026, time.March, 7)
	m.AddEmployeeActual(burdenedRecord(w, directHints(), 24000, 480))
	m.AddEmployeeActual(burdenedRecord(w, engine.CategoryHints{Explicit: engine.CategoryLaborStaff}, 8000, 80))
	m.AddHeadcountForecast(forecastEntry(w.AddWeeks(1), engine.CategoryLaborDirect, 12, 40))
	m.AddPurchaseOrder(po(100000, 40000, engine.CategoryMaterials, engine.POStatusApproved))
	m.AddPurchaseOrder(po(60000, 70000, engine.CategorySubcontracts, engine.POStatusApproved)) // over-invoiced
	m.SetBudget(engine.BudgetAllocation{ProjectID: "proj-1", Category: engine.CategoryEquipment, Amount: dollars(50000)})
	m.SetBudget(engine.BudgetAllocation{ProjectID: "proj-1", Category: engine.CategoryMaterials, Amount: dollars(120000)})
}

func TestForecast_Invariant_ForecastedFinalNeverBelowActuals(t *testing.T) {
	m := store.NewMemory()
	seedBusyProject(m)

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sumForecast := decimal.Zero
	for _, line := range result.Categories {
		if line.Actuals.GreaterThan(line.ForecastedFinal) {
			t.Errorf("category %s: forecastedFinal %v < actuals %v",
				line.Category, line.ForecastedFinal, line.Actuals)
		}
		if line.LeftToSpend.IsNegative() {
			t.Errorf("category %s: negative leftToSpend %v", line.Category, line.LeftToSpend)
		}
		sumForecast = sumForecast.Add(line.ForecastedFinal)
	}
	if result.ActualCostToDate.GreaterThan(result.EstimateAtCompletion) {
		t.Errorf("aggregate: EAC %v < AC %v", result.EstimateAtCompletion, result.ActualCostToDate)
	}
	if !sumForecast.Equal(result.EstimateAtCompletion) {
		t.Errorf("sum of forecastedFinal %v != EAC %v", sumForecast, result.EstimateAtCompletion)
	}
}

func TestForecast_Invariant_EACEqualsACPlusETC(t *testing.T) {
	m := store.NewMemory()
	seedBusyProject(m)

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exact algebraic identity, not approximate.
	want := result.ActualCostToDate.Add(result.EstimateToComplete)
	if !result.EstimateAtCompletion.Equal(want) {
		t.Errorf("EAC %v != AC %v + ETC %v", result.EstimateAtCompletion,
			result.ActualCostToDate, result.EstimateToComplete)
	}
}

func TestForecast_Invariant_CategoryCompleteness(t *testing.T) {
	// Sum of per-category actuals equals the aggregate AC.
	m := store.NewMemory()
	seedBusyProject(m)

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, line := range result.Categories {
		sum = sum.Add(line.Actuals)
	}
	if !sum.Equal(result.ActualCostToDate) {
		t.Errorf("sum of category actuals %v != AC %v", sum, result.ActualCostToDate)
	}
}

func TestForecast_Invariant_OverInvoicedCategoryClamped(t *testing.T) {
	// GIVEN: A subcontract invoiced past its commitment with a stale zero
	//        forecast... the clamp is the last line of defense
	stale := decimal.Zero
	order := po(60000, 70000, engine.CategorySubcontracts, engine.POStatusApproved)
	order.ForecastAmount = &stale

	m := store.NewMemory()
	seedProject(m, 0)
	m.AddPurchaseOrder(order)

	result, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := result.Line(engine.CategorySubcontracts)
	if sub.ForecastedFinal.LessThan(sub.Actuals) {
		t.Errorf("clamp failed: forecastedFinal %v < actuals %v", sub.ForecastedFinal, sub.Actuals)
	}
	if !sub.ForecastedFinal.Equal(dollars(70000)) {
		t.Errorf("expected forecastedFinal 70000, got %v", sub.ForecastedFinal)
	}
}

func TestForecast_Idempotent(t *testing.T) {
	// Recomputing on unchanged inputs yields an identical result.
	m := store.NewMemory()
	seedBusyProject(m)
	r := newReconciler(m)

	first, err := r.Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Forecast(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.EstimateAtCompletion.Equal(second.EstimateAtCompletion) ||
		!first.ActualCostToDate.Equal(second.ActualCostToDate) ||
		len(first.Categories) != len(second.Categories) {
		t.Error("forecast is not idempotent")
	}
	for i := range first.Categories {
		a, b := first.Categories[i], second.Categories[i]
		if a.Category != b.Category || !a.ForecastedFinal.Equal(b.ForecastedFinal) {
			t.Errorf("category %s differs between runs", a.Category)
		}
	}
}

// =============================================================================
// FAILURE MODES
// =============================================================================

func TestForecast_UpstreamFailure_FailsClosed(t *testing.T) {
	// A PO query failure must fail the whole computation, never produce a
	// plausible-looking result with a zeroed PO leg.
	m := store.NewMemory()
	seedBusyProject(m)

	cases := []struct {
		name      string
		src       *failingSource
		component string
	}{
		{"purchase_orders", &failingSource{DataSource: m, failPOs: true}, "purchase_orders"},
		{"headcount", &failingSource{DataSource: m, failHeadcount: true}, "headcount_forecasts"},
		{"budget", &failingSource{DataSource: m, failBudget: true}, "budget"},
		{"labor", &failingSource{DataSource: m, failLabor: true}, "labor_actuals"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := newReconciler(tc.src).Forecast(context.Background(), "proj-1")
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if !errors.Is(err, engine.ErrUpstreamFetch) {
				t.Errorf("expected ErrUpstreamFetch, got %v", err)
			}
			var up *engine.UpstreamError
			if !errors.As(err, &up) {
				t.Fatalf("expected UpstreamError, got %T", err)
			}
			if up.Component != tc.component {
				t.Errorf("expected component %s, got %s", tc.component, up.Component)
			}
		})
	}
}

func TestForecast_UnknownProject_NotFound(t *testing.T) {
	m := store.NewMemory()
	_, err := newReconciler(m).Forecast(context.Background(), "missing")
	if !engine.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestForecast_SourceConflict_Propagates(t *testing.T) {
	w := week(2026, time.March, 7)
	m := store.NewMemory()
	p := seedProject(m, 0)
	p.LaborSource = engine.LaborSourceUnset
	m.PutProject(p)
	m.AddEmployeeActual(burdenedRecord(w, directHints(), 1000, 40))
	m.AddCraftActual(burdenedRecord(w, directHints(), 900, 40))

	_, err := newReconciler(m).Forecast(context.Background(), "proj-1")
	if !errors.Is(err, engine.ErrSourceConflict) {
		t.Errorf("expected source conflict, got %v", err)
	}
}

// =============================================================================
// RUNNING RATES ENDPOINT
// =============================================================================

func TestRunningRates_StandaloneView(t *testing.T) {
	w := week(2026, time.March, 7)
	m := store.NewMemory()
	seedProject(m, 0)
	m.AddEmployeeActual(burdenedRecord(w, directHints(), 24000, 480))

	rates, err := newReconciler(m).RunningRates(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rates.Rate(engine.CategoryLaborDirect).Equal(dollars(50)) {
		t.Errorf("expected rate 50, got %v", rates.Rate(engine.CategoryLaborDirect))
	}
}
