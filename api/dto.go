/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNT ENCODING:
  All money and hours fields are JSON strings ("48000", "87.5"), never
  floats. Clients doing arithmetic should use a decimal library.

TYPES:
  Project:
    ProjectDTO, CreateProjectRequest

  Forecast:
    ForecastResponse, CategoryLineDTO, LaborDetailDTO, RateDTO, QualityDTO

  Record feed:
    ActualRequest, PurchaseOrderRequest, HeadcountRequest, BudgetRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain model these map from
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/gantry/cost-engine/engine"
)

// =============================================================================
// PROJECT TYPES
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	OriginalContractValue string `json:"original_contract_value"`
	RevisedContractValue  string `json:"revised_contract_value"`
	LaborSource           string `json:"labor_source,omitempty"`
}

// CreateProjectRequest is the request to create or update a project.
type CreateProjectRequest struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	OriginalContractValue string `json:"original_contract_value"`
	RevisedContractValue  string `json:"revised_contract_value"`
	LaborSource           string `json:"labor_source"`
}

func toProjectDTO(p engine.Project) ProjectDTO {
	return ProjectDTO{
		ID:                    string(p.ID),
		Name:                  p.Name,
		OriginalContractValue: p.OriginalContractValue.String(),
		RevisedContractValue:  p.RevisedContractValue.String(),
		LaborSource:           string(p.LaborSource),
	}
}

// =============================================================================
// FORECAST TYPES
// =============================================================================

// CategoryLineDTO is one category row of the forecast response.
type CategoryLineDTO struct {
	Category        string `json:"category"`
	Budget          string `json:"budget"`
	Committed       string `json:"committed"`
	Actuals         string `json:"actuals"`
	ForecastedFinal string `json:"forecasted_final"`
	Variance        string `json:"variance"`
	LeftToSpend     string `json:"left_to_spend"`
}

// LaborDetailDTO breaks the three labor lines into their actual and
// projected components.
type LaborDetailDTO struct {
	ActualCost    string `json:"actual_cost"`
	ActualHours   string `json:"actual_hours"`
	ProjectedCost string `json:"projected_cost"`
}

// RateDTO is the trailing-window running rate for one labor category.
type RateDTO struct {
	Category    string `json:"category"`
	RatePerHour string `json:"rate_per_hour"`
}

// QualityDTO reports records no classification rule could place.
type QualityDTO struct {
	UnclassifiedLaborRecords int    `json:"unclassified_labor_records"`
	UnclassifiedLaborCost    string `json:"unclassified_labor_cost"`
	UnclassifiedPOs          int    `json:"unclassified_pos"`
	UnclassifiedPOCost       string `json:"unclassified_po_cost"`
}

// ForecastResponse is the consolidated forecast for one project.
type ForecastResponse struct {
	ProjectID  string                    `json:"project_id"`
	Categories []CategoryLineDTO         `json:"categories"`
	Labor      map[string]LaborDetailDTO `json:"labor"`
	Rates      []RateDTO                 `json:"rates"`

	ActualCostToDate     string `json:"actual_cost_to_date"`
	EstimateToComplete   string `json:"estimate_to_complete"`
	EstimateAtCompletion string `json:"estimate_at_completion"`
	VarianceAtCompletion string `json:"variance_at_completion"`
	ProfitMargin         string `json:"profit_margin"`
	PercentComplete      string `json:"percent_complete"`

	Quality QualityDTO `json:"quality"`
}

func toForecastResponse(result *engine.ForecastResult) ForecastResponse {
	lines := make([]CategoryLineDTO, len(result.Categories))
	for i, line := range result.Categories {
		lines[i] = CategoryLineDTO{
			Category:        string(line.Category),
			Budget:          line.Budget.String(),
			Committed:       line.Committed.String(),
			Actuals:         line.Actuals.String(),
			ForecastedFinal: line.ForecastedFinal.String(),
			Variance:        line.Variance.String(),
			LeftToSpend:     line.LeftToSpend.String(),
		}
	}

	labor := map[string]LaborDetailDTO{}
	hours := map[engine.CostCategory]decimal.Decimal{
		engine.CategoryLaborDirect:   result.Labor.DirectHours,
		engine.CategoryLaborIndirect: result.Labor.IndirectHours,
		engine.CategoryLaborStaff:    result.Labor.StaffHours,
	}
	for _, c := range engine.AllCategories {
		if !c.IsLabor() {
			continue
		}
		labor[string(c)] = LaborDetailDTO{
			ActualCost:    result.Labor.Cost(c).String(),
			ActualHours:   hours[c].String(),
			ProjectedCost: result.FutureLabor.Cost(c).String(),
		}
	}

	return ForecastResponse{
		ProjectID:            string(result.ProjectID),
		Categories:           lines,
		Labor:                labor,
		Rates:                toRateDTOs(result.Rates),
		ActualCostToDate:     result.ActualCostToDate.String(),
		EstimateToComplete:   result.EstimateToComplete.String(),
		EstimateAtCompletion: result.EstimateAtCompletion.String(),
		VarianceAtCompletion: result.VarianceAtCompletion.String(),
		ProfitMargin:         result.ProfitMargin.String(),
		PercentComplete:      result.PercentComplete.String(),
		Quality: QualityDTO{
			UnclassifiedLaborRecords: result.Quality.UnclassifiedLaborRecords,
			UnclassifiedLaborCost:    result.Quality.UnclassifiedLaborCost.String(),
			UnclassifiedPOs:          result.Quality.UnclassifiedPOs,
			UnclassifiedPOCost:       result.Quality.UnclassifiedPOCost.String(),
		},
	}
}

func toRateDTOs(rates engine.RateTable) []RateDTO {
	var dtos []RateDTO
	for _, c := range engine.AllCategories {
		if !c.IsLabor() {
			continue
		}
		dtos = append(dtos, RateDTO{
			Category:    string(c),
			RatePerHour: rates.Rate(c).String(),
		})
	}
	return dtos
}

// =============================================================================
// RECORD FEED TYPES
// =============================================================================

// HintsRequest carries the raw classification fields of an incoming record.
type HintsRequest struct {
	Category       string `json:"category"`
	CraftCategory  string `json:"craft_category"`
	CostCenterCode string `json:"cost_center_code"`
	BudgetCategory string `json:"budget_category"`
}

func (h HintsRequest) toHints() engine.CategoryHints {
	return engine.CategoryHints{
		Explicit:       engine.CostCategory(h.Category),
		CraftCategory:  h.CraftCategory,
		CostCenterCode: h.CostCenterCode,
		BudgetText:     h.BudgetCategory,
	}
}

// ActualRequest is one labor actuals row. Source selects the table:
// "employee" (default) or "craft".
type ActualRequest struct {
	Source     string       `json:"source"`
	WeekEnding string       `json:"week_ending"`
	Hints      HintsRequest `json:"hints"`

	Hours             string `json:"hours"`
	StraightTimeWages string `json:"st_wages"`
	OvertimeWages     string `json:"ot_wages"`
	BurdenedTotal     string `json:"burdened_total,omitempty"`
	PerDiem           string `json:"per_diem"`
}

// PurchaseOrderRequest is one purchase order row.
type PurchaseOrderRequest struct {
	Number string       `json:"po_number"`
	Vendor string       `json:"vendor"`
	Status string       `json:"status"`
	Hints  HintsRequest `json:"hints"`

	CommittedAmount string `json:"committed_amount"`
	InvoicedAmount  string `json:"invoiced_amount"`
	ForecastAmount  string `json:"forecast_amount,omitempty"`
}

// HeadcountRequest is one planner headcount entry.
type HeadcountRequest struct {
	WeekEnding     string `json:"week_ending"`
	Category       string `json:"category"`
	Headcount      string `json:"headcount"`
	HoursPerPerson string `json:"hours_per_person"`
}

// BudgetRequest sets the budget amount for one category.
type BudgetRequest struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
