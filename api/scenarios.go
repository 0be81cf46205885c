/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a project with
	actuals, purchase orders, budgets, and headcount plans that demonstrate
	specific engine behavior.

AVAILABLE SCENARIOS:

	active-job:     Current project mid-execution with a labor ramp planned
	legacy-craft:   Closed-out legacy project reported per craft
	messy-data:     Records with poor classification and stale PO forecasts

HOW SCENARIOS WORK:
 1. Create a project
 2. Feed actuals week by week
 3. Add purchase orders and category budgets
 4. Add a forward headcount plan

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "active-job"}

NOTE:

	Scenarios write into the live database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shared helpers and Handler type
  - server.go: Route registration
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gantry/cost-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   string `json:"project_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "active-job",
		Name:        "Active Job",
		Description: "Mid-execution project with running labor, open POs, and a crew ramp planned",
		ProjectID:   "DEMO-ACTIVE",
	},
	{
		ID:          "legacy-craft",
		Name:        "Legacy Craft Job",
		Description: "Older project reported per craft with explicit burdened totals",
		ProjectID:   "DEMO-CRAFT",
	},
	{
		ID:          "messy-data",
		Name:        "Messy Data",
		Description: "Unclassifiable records, draft POs, and an over-invoiced commitment",
		ProjectID:   "DEMO-MESSY",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the database with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		loaded ScenarioDTO
		err    error
	)
	switch req.ScenarioID {
	case "active-job":
		loaded, err = h.loadActiveJobScenario(r.Context())
	case "legacy-craft":
		loaded, err = h.loadLegacyCraftScenario(r.Context())
	case "messy-data":
		loaded, err = h.loadMessyDataScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, loaded)
}

// =============================================================================
// LOADERS
// =============================================================================

func amt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func demoWeek(daysAgo int) engine.WeekEnding {
	// Anchor on the most recent Sunday so demo actuals always read as recent.
	anchor := engine.WeekEndingOf(time.Now().UTC(), time.Sunday)
	return anchor.AddWeeks(-daysAgo / 7)
}

// loadActiveJobScenario builds a healthy mid-execution project: six weeks of
// direct and indirect actuals, an eight-week crew ramp ahead, and the usual
// procurement spread.
func (h *Handler) loadActiveJobScenario(ctx context.Context) (ScenarioDTO, error) {
	s := scenarios[0]
	id := engine.ProjectID(s.ProjectID)

	err := h.Store.SaveProject(ctx, engine.Project{
		ID:                    id,
		Name:                  "Unit 4 Pipe Rack",
		OriginalContractValue: amt(2400000),
		RevisedContractValue:  amt(2520000),
		LaborSource:           engine.LaborSourceEmployee,
	})
	if err != nil {
		return s, err
	}

	// Six trailing weeks of actuals, slightly noisy hours.
	for i := 6; i >= 1; i-- {
		week := demoWeek(i * 7)
		if err := h.Store.AddEmployeeActual(ctx, engine.LaborActualRecord{
			ProjectID:         id,
			WeekEnding:        week,
			Hints:             engine.CategoryHints{Explicit: engine.CategoryLaborDirect},
			Hours:             amt(int64(380 + i*10)),
			StraightTimeWages: amt(int64(9500 + i*250)),
			OvertimeWages:     amt(800),
		}); err != nil {
			return s, err
		}
		if err := h.Store.AddEmployeeActual(ctx, engine.LaborActualRecord{
			ProjectID:         id,
			WeekEnding:        week,
			Hints:             engine.CategoryHints{CostCenterCode: "1500"},
			Hours:             amt(80),
			StraightTimeWages: amt(2400),
		}); err != nil {
			return s, err
		}
	}

	// Eight-week ramp from the current crew of ~10 up to 16.
	for i := 1; i <= 8; i++ {
		if err := h.Store.AddHeadcountForecast(ctx, engine.HeadcountForecastEntry{
			ProjectID:      id,
			WeekEnding:     demoWeek(-i * 7),
			Category:       engine.CategoryLaborDirect,
			Headcount:      amt(int64(9 + i)),
			HoursPerPerson: amt(40),
		}); err != nil {
			return s, err
		}
	}

	pos := []engine.PurchaseOrderRecord{
		{
			ProjectID: id, Number: "PO-4101", Vendor: "Gulf Coast Supply",
			Status: engine.POStatusApproved,
			Hints:  engine.CategoryHints{Explicit: engine.CategoryMaterials},
			CommittedAmount: amt(310000), InvoicedAmount: amt(145000),
		},
		{
			ProjectID: id, Number: "PO-4102", Vendor: "Bayside Crane",
			Status: engine.POStatusApproved,
			Hints:  engine.CategoryHints{Explicit: engine.CategoryEquipment},
			CommittedAmount: amt(88000), InvoicedAmount: amt(52000),
		},
		{
			ProjectID: id, Number: "PO-4103", Vendor: "Apex Coatings",
			Status: engine.POStatusApproved,
			Hints:  engine.CategoryHints{Explicit: engine.CategorySubcontracts},
			CommittedAmount: amt(140000), InvoicedAmount: amt(35000),
		},
	}
	for _, po := range pos {
		if err := h.Store.AddPurchaseOrder(ctx, po); err != nil {
			return s, err
		}
	}

	budgets := map[engine.CostCategory]int64{
		engine.CategoryLaborDirect:   780000,
		engine.CategoryLaborIndirect: 120000,
		engine.CategoryMaterials:     340000,
		engine.CategoryEquipment:     95000,
		engine.CategorySubcontracts:  150000,
		engine.CategorySmallTools:    28000,
	}
	for category, amount := range budgets {
		if err := h.Store.SetBudget(ctx, engine.BudgetAllocation{
			ProjectID: id, Category: category, Amount: amt(amount),
		}); err != nil {
			return s, err
		}
	}
	return s, nil
}

// loadLegacyCraftScenario builds an older project whose actuals live in the
// craft table with explicit burdened totals and no forward plan.
func (h *Handler) loadLegacyCraftScenario(ctx context.Context) (ScenarioDTO, error) {
	s := scenarios[1]
	id := engine.ProjectID(s.ProjectID)

	err := h.Store.SaveProject(ctx, engine.Project{
		ID:                    id,
		Name:                  "River Crossing Tie-In",
		OriginalContractValue: amt(640000),
		RevisedContractValue:  amt(640000),
		LaborSource:           engine.LaborSourceCraft,
	})
	if err != nil {
		return s, err
	}

	crafts := []struct {
		craft string
		hours int64
		cost  int64
	}{
		{"Pipefitter", 1200, 78000},
		{"Welder", 900, 68400},
		{"Laborer", 600, 24000},
	}
	for _, c := range crafts {
		burdened := amt(c.cost)
		if err := h.Store.AddCraftActual(ctx, engine.LaborActualRecord{
			ProjectID:     id,
			WeekEnding:    demoWeek(14),
			Hints:         engine.CategoryHints{Explicit: engine.CategoryLaborDirect, CraftCategory: c.craft},
			Hours:         amt(c.hours),
			BurdenedTotal: &burdened,
		}); err != nil {
			return s, err
		}
	}

	if err := h.Store.SetBudget(ctx, engine.BudgetAllocation{
		ProjectID: id, Category: engine.CategoryLaborDirect, Amount: amt(180000),
	}); err != nil {
		return s, err
	}
	return s, nil
}

// loadMessyDataScenario builds the pathological inputs the engine has to
// stay honest about: rows nothing classifies, draft and cancelled POs, and
// a PO invoiced past its commitment.
func (h *Handler) loadMessyDataScenario(ctx context.Context) (ScenarioDTO, error) {
	s := scenarios[2]
	id := engine.ProjectID(s.ProjectID)

	err := h.Store.SaveProject(ctx, engine.Project{
		ID:                   id,
		Name:                 "Brownfield Revamp",
		RevisedContractValue: amt(450000),
		LaborSource:          engine.LaborSourceEmployee,
	})
	if err != nil {
		return s, err
	}

	// A clean row and one nothing can classify.
	if err := h.Store.AddEmployeeActual(ctx, engine.LaborActualRecord{
		ProjectID:         id,
		WeekEnding:        demoWeek(7),
		Hints:             engine.CategoryHints{Explicit: engine.CategoryLaborDirect},
		Hours:             amt(320),
		StraightTimeWages: amt(8000),
	}); err != nil {
		return s, err
	}
	if err := h.Store.AddEmployeeActual(ctx, engine.LaborActualRecord{
		ProjectID:         id,
		WeekEnding:        demoWeek(7),
		Hints:             engine.CategoryHints{BudgetText: "misc site costs"},
		Hours:             amt(60),
		StraightTimeWages: amt(1500),
	}); err != nil {
		return s, err
	}

	pos := []engine.PurchaseOrderRecord{
		{
			ProjectID: id, Number: "PO-9001", Vendor: "Delta Steel",
			Status: engine.POStatusApproved,
			Hints:  engine.CategoryHints{Explicit: engine.CategoryMaterials},
			// Invoiced past commitment: change orders billed before the PO
			// was revised.
			CommittedAmount: amt(60000), InvoicedAmount: amt(74000),
		},
		{
			ProjectID: id, Number: "PO-9002", Vendor: "Delta Steel",
			Status: engine.POStatusDraft,
			Hints:  engine.CategoryHints{Explicit: engine.CategoryMaterials},
			CommittedAmount: amt(25000),
		},
		{
			ProjectID: id, Number: "PO-9003", Vendor: "Canceled Vendor Co",
			Status: engine.POStatusCancelled,
			Hints:  engine.CategoryHints{Explicit: engine.CategoryEquipment},
			CommittedAmount: amt(40000),
		},
		{
			ProjectID: id, Number: "PO-9004", Vendor: "Unlabeled Services",
			Status: engine.POStatusApproved,
			// No usable classification at all.
			Hints:           engine.CategoryHints{BudgetText: "general"},
			CommittedAmount: amt(12000), InvoicedAmount: amt(3000),
		},
	}
	for _, po := range pos {
		if err := h.Store.AddPurchaseOrder(ctx, po); err != nil {
			return s, err
		}
	}
	return s, nil
}
