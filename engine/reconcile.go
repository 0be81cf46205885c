/*
reconcile.go - AC / ETC / EAC reconciliation

PURPOSE:
  Combines labor actuals, purchase order rollups, and future labor
  projection into the final ForecastResult. This is the only place the
  three data sources meet.

THE MATH:
  Per labor category:
    actuals         = burdened labor actuals
    forecastedFinal = actuals + projected future labor
  Per non-labor category:
    actuals         = invoiced
    forecastedFinal = PO forecast (with budget default, see rollup.go)
  Everywhere, last:
    forecastedFinal = max(forecastedFinal, actuals)     <- safety clamp

  AC  = sum of category actuals
  ETC = sum of (forecastedFinal - actuals)
  EAC = AC + ETC                                         (exact identity)
  varianceAtCompletion = revisedContractValue - EAC
  profitMargin    = variance / revisedContractValue * 100  (0 when RCV = 0)
  percentComplete = min(100, AC / EAC * 100)               (0 when EAC = 0)

WHY CLAMP LAST:
  Upstream forecast inputs are untrusted and frequently stale or zero. The
  invariant "a project is never forecast to spend less than it already has"
  is enforced by construction where possible and by the final clamp always.

CONCURRENCY:
  The four record fetches are independent reads and run concurrently. Any
  fetch failure fails the whole computation (UpstreamError) - substituting
  zero for one leg would misrepresent the project's financial position.
*/
package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler computes the consolidated forecast for a project.
type Reconciler struct {
	Source     DataSource
	Classifier *Classifier
	Params     Params
	Logger     *zap.Logger
}

// NewReconciler wires a reconciler with defaults for any nil collaborator.
func NewReconciler(source DataSource, classifier *Classifier, params Params, logger *zap.Logger) *Reconciler {
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{Source: source, Classifier: classifier, Params: params, Logger: logger}
}

// inputs bundles the fetched record sets.
type inputs struct {
	project   Project
	employee  []LaborActualRecord
	craft     []LaborActualRecord
	orders    []PurchaseOrderRecord
	headcount []HeadcountForecastEntry
	budgets   []BudgetAllocation
}

// Forecast recomputes the full financial picture for the project. Pure with
// respect to the data store: reads only, no caching, safe to retry.
func (r *Reconciler) Forecast(ctx context.Context, id ProjectID) (*ForecastResult, error) {
	in, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	actuals, err := SelectSource(in.project, in.employee, in.craft)
	if err != nil {
		return nil, err
	}

	agg := LaborAggregator{Classifier: r.Classifier, Params: r.Params}
	labor := agg.Aggregate(actuals)

	rateCalc := RateCalculator{Classifier: r.Classifier, Params: r.Params}
	rates := rateCalc.Calculate(actuals, WeekEnding{})

	projector := LaborProjector{}
	future := projector.Project(in.headcount, rates, NewActualWeekSet(actuals, r.Classifier))

	rollup := PORollup{Classifier: r.Classifier}
	pos := rollup.Rollup(in.orders, in.budgets)

	result := r.assemble(in, labor, future, rates, pos)

	r.Logger.Debug("forecast computed",
		zap.String("project", string(id)),
		zap.String("ac", result.ActualCostToDate.String()),
		zap.String("eac", result.EstimateAtCompletion.String()),
		zap.Int("unclassified_labor", result.Quality.UnclassifiedLaborRecords),
		zap.Int("unclassified_pos", result.Quality.UnclassifiedPOs),
	)
	return result, nil
}

// fetch loads the project, then the four record sets concurrently. All
// reads are independent; none mutate shared state.
func (r *Reconciler) fetch(ctx context.Context, id ProjectID) (*inputs, error) {
	project, err := r.Source.Project(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &UpstreamError{Component: "project", Err: err}
	}

	in := &inputs{project: project}
	errs := make([]error, 4)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		emp, err := r.Source.EmployeeActuals(ctx, id)
		if err != nil {
			errs[0] = &UpstreamError{Component: "labor_actuals", Err: err}
			return
		}
		craft, err := r.Source.CraftActuals(ctx, id)
		if err != nil {
			errs[0] = &UpstreamError{Component: "labor_actuals", Err: err}
			return
		}
		in.employee, in.craft = emp, craft
	}()
	go func() {
		defer wg.Done()
		in.orders, errs[1] = r.Source.PurchaseOrders(ctx, id)
		if errs[1] != nil {
			errs[1] = &UpstreamError{Component: "purchase_orders", Err: errs[1]}
		}
	}()
	go func() {
		defer wg.Done()
		in.headcount, errs[2] = r.Source.HeadcountForecasts(ctx, id)
		if errs[2] != nil {
			errs[2] = &UpstreamError{Component: "headcount_forecasts", Err: errs[2]}
		}
	}()
	go func() {
		defer wg.Done()
		in.budgets, errs[3] = r.Source.BudgetAllocations(ctx, id)
		if errs[3] != nil {
			errs[3] = &UpstreamError{Component: "budget", Err: errs[3]}
		}
	}()

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// assemble builds the per-category lines and top-level figures.
func (r *Reconciler) assemble(in *inputs, labor LaborTotals, future FutureLabor, rates RateTable, pos RollupResult) *ForecastResult {
	budgets := make(map[CostCategory]decimal.Decimal, len(in.budgets))
	for _, b := range in.budgets {
		budgets[b.Category] = budgets[b.Category].Add(b.Amount)
	}

	lines := make([]CategoryLine, 0, len(AllCategories))
	ac := decimal.Zero
	etc := decimal.Zero

	for _, cat := range AllCategories {
		line := CategoryLine{Category: cat, Budget: budgets[cat]}

		if cat.IsLabor() {
			line.Actuals = labor.Cost(cat)
			line.Committed = decimal.Zero
			line.ForecastedFinal = line.Actuals.Add(future.Cost(cat))
		} else {
			cr := pos.Category(cat)
			line.Actuals = cr.Invoiced
			line.Committed = cr.Committed
			line.ForecastedFinal = cr.Forecasted
		}

		// Safety clamp, always last: never forecast below money already
		// spent, regardless of what upstream claimed.
		if line.Actuals.GreaterThan(line.ForecastedFinal) {
			line.ForecastedFinal = line.Actuals
		}

		line.LeftToSpend = line.ForecastedFinal.Sub(line.Actuals)
		line.Variance = line.Budget.Sub(line.ForecastedFinal)

		ac = ac.Add(line.Actuals)
		etc = etc.Add(line.LeftToSpend)
		lines = append(lines, line)
	}

	eac := ac.Add(etc)
	rcv := in.project.RevisedContractValue

	variance := rcv.Sub(eac)
	margin := decimal.Zero
	if !rcv.IsZero() {
		margin = variance.Div(rcv).Mul(hundred)
	}
	pct := decimal.Zero
	if !eac.IsZero() {
		pct = ac.Div(eac).Mul(hundred)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
	}

	return &ForecastResult{
		ProjectID:            in.project.ID,
		Categories:           lines,
		Labor:                labor,
		FutureLabor:          future,
		Rates:                rates,
		ActualCostToDate:     ac,
		EstimateToComplete:   etc,
		EstimateAtCompletion: eac,
		VarianceAtCompletion: variance,
		ProfitMargin:         margin,
		PercentComplete:      pct,
		Quality: DataQuality{
			UnclassifiedLaborRecords: labor.UnclassifiedRecords,
			UnclassifiedLaborCost:    labor.UnclassifiedCost,
			UnclassifiedPOs:          pos.UnclassifiedPOs,
			UnclassifiedPOCost:       pos.UnclassifiedPOCost,
		},
	}
}

// RunningRates exposes the derived rate table on its own, for planner UIs.
// Same source selection rules as Forecast.
func (r *Reconciler) RunningRates(ctx context.Context, id ProjectID) (RateTable, error) {
	project, err := r.Source.Project(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &UpstreamError{Component: "project", Err: err}
	}
	employee, err := r.Source.EmployeeActuals(ctx, id)
	if err != nil {
		return nil, &UpstreamError{Component: "labor_actuals", Err: err}
	}
	craft, err := r.Source.CraftActuals(ctx, id)
	if err != nil {
		return nil, &UpstreamError{Component: "labor_actuals", Err: err}
	}
	actuals, err := SelectSource(project, employee, craft)
	if err != nil {
		return nil, err
	}
	calc := RateCalculator{Classifier: r.Classifier, Params: r.Params}
	return calc.Calculate(actuals, WeekEnding{}), nil
}
