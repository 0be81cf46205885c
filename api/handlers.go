/*
handlers.go - HTTP API handlers for the cost forecasting engine

PURPOSE:
  Exposes the forecasting engine and its record store via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Projects:
    GET    /api/projects                    List all projects
    POST   /api/projects                    Create or update a project
    GET    /api/projects/{id}               Get project details

  Forecast (read-only, recomputed per request):
    GET    /api/projects/{id}/forecast      Full reconciled forecast
    GET    /api/projects/{id}/rates         Running labor rates
    GET    /api/projects/{id}/quality       Unclassified-record report

  Record feed (used by import flows):
    POST   /api/projects/{id}/actuals       Append a labor actuals row
    POST   /api/projects/{id}/purchase-orders  Append a purchase order
    POST   /api/projects/{id}/headcount     Append a headcount entry
    PUT    /api/projects/{id}/budget        Upsert a category budget

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Project not found
  - 409: Labor source conflict (both actuals tables cover a week)
  - 502: An upstream record fetch failed inside the reconciler
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/reconcile.go: The computation behind /forecast
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gantry/cost-engine/engine"
	"github.com/gantry/cost-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Reconciler *engine.Reconciler
	Logger     *zap.Logger
}

// NewHandler creates a new handler around the store. The classifier and
// params are shared with the reconciler so the API and engine always agree
// on category resolution.
func NewHandler(store *sqlite.Store, classifier *engine.Classifier, params engine.Params, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Reconciler: engine.NewReconciler(store, classifier, params, logger),
		Logger:     logger,
	}
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates or updates a project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Project id is required", nil)
		return
	}
	switch engine.LaborSource(req.LaborSource) {
	case engine.LaborSourceUnset, engine.LaborSourceEmployee, engine.LaborSourceCraft:
	default:
		writeError(w, http.StatusBadRequest, "Invalid labor_source", nil)
		return
	}

	ocv, err := parseAmount(req.OriginalContractValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid original_contract_value", err)
		return
	}
	rcv, err := parseAmount(req.RevisedContractValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid revised_contract_value", err)
		return
	}

	project := engine.Project{
		ID:                    engine.ProjectID(req.ID),
		Name:                  req.Name,
		OriginalContractValue: ocv,
		RevisedContractValue:  rcv,
		LaborSource:           engine.LaborSource(req.LaborSource),
	}
	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	project, err := h.Store.Project(r.Context(), id)
	if err != nil {
		if engine.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Project not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(project))
}

// =============================================================================
// FORECAST HANDLERS
// =============================================================================

// GetForecast returns the full reconciled forecast for a project.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	result, err := h.Reconciler.Forecast(r.Context(), id)
	if err != nil {
		writeForecastError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastResponse(result))
}

// GetRates returns the running labor rates for a project.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	rates, err := h.Reconciler.RunningRates(r.Context(), id)
	if err != nil {
		writeForecastError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRateDTOs(rates))
}

// GetQuality returns the unclassified-record report for a project.
func (h *Handler) GetQuality(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	result, err := h.Reconciler.Forecast(r.Context(), id)
	if err != nil {
		writeForecastError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastResponse(result).Quality)
}

func writeForecastError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Project not found", nil)
	case errors.Is(err, engine.ErrSourceConflict):
		writeError(w, http.StatusConflict, "Labor source conflict", err)
	case errors.Is(err, engine.ErrUpstreamFetch):
		writeError(w, http.StatusBadGateway, "Failed to fetch project records", err)
	default:
		writeError(w, http.StatusInternalServerError, "Forecast failed", err)
	}
}

// =============================================================================
// RECORD FEED HANDLERS
// =============================================================================

// AddActual appends a labor actuals row to the employee or craft table.
func (h *Handler) AddActual(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	var req ActualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	week, err := engine.ParseWeekEnding(req.WeekEnding)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_ending", err)
		return
	}
	hours, err := parseAmount(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	st, err := parseAmount(req.StraightTimeWages)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid st_wages", err)
		return
	}
	ot, err := parseAmount(req.OvertimeWages)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ot_wages", err)
		return
	}
	perDiem, err := parseAmount(req.PerDiem)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid per_diem", err)
		return
	}
	burdened, err := parseOptionalAmount(req.BurdenedTotal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid burdened_total", err)
		return
	}

	rec := engine.LaborActualRecord{
		ProjectID:         id,
		WeekEnding:        week,
		Hints:             req.Hints.toHints(),
		Hours:             hours,
		StraightTimeWages: st,
		OvertimeWages:     ot,
		BurdenedTotal:     burdened,
		PerDiem:           perDiem,
	}

	switch req.Source {
	case "", string(engine.LaborSourceEmployee):
		err = h.Store.AddEmployeeActual(r.Context(), rec)
	case string(engine.LaborSourceCraft):
		err = h.Store.AddCraftActual(r.Context(), rec)
	default:
		writeError(w, http.StatusBadRequest, "Invalid source", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save actual", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// AddPurchaseOrder appends a purchase order.
func (h *Handler) AddPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	var req PurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := engine.POStatus(req.Status)
	switch status {
	case engine.POStatusDraft, engine.POStatusApproved, engine.POStatusClosed, engine.POStatusCancelled:
	default:
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}
	committed, err := parseAmount(req.CommittedAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid committed_amount", err)
		return
	}
	invoiced, err := parseAmount(req.InvoicedAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoiced_amount", err)
		return
	}
	forecast, err := parseOptionalAmount(req.ForecastAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid forecast_amount", err)
		return
	}

	po := engine.PurchaseOrderRecord{
		ProjectID:       id,
		Number:          req.Number,
		Vendor:          req.Vendor,
		Status:          status,
		Hints:           req.Hints.toHints(),
		CommittedAmount: committed,
		InvoicedAmount:  invoiced,
		ForecastAmount:  forecast,
	}
	if err := h.Store.AddPurchaseOrder(r.Context(), po); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save purchase order", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// AddHeadcount appends a headcount forecast entry.
func (h *Handler) AddHeadcount(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	var req HeadcountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	category := engine.CostCategory(req.Category)
	if !category.IsLabor() {
		writeError(w, http.StatusBadRequest, "Category must be a labor category", nil)
		return
	}
	week, err := engine.ParseWeekEnding(req.WeekEnding)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_ending", err)
		return
	}
	headcount, err := parseAmount(req.Headcount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid headcount", err)
		return
	}
	hours, err := parseAmount(req.HoursPerPerson)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours_per_person", err)
		return
	}

	entry := engine.HeadcountForecastEntry{
		ProjectID:      id,
		WeekEnding:     week,
		Category:       category,
		Headcount:      headcount,
		HoursPerPerson: hours,
	}
	if err := h.Store.AddHeadcountForecast(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save headcount entry", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SetBudget upserts the budget amount for one category.
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))

	var req BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	category := engine.CostCategory(req.Category)
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid category", nil)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	budget := engine.BudgetAllocation{ProjectID: id, Category: category, Amount: amount}
	if err := h.Store.SetBudget(r.Context(), budget); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseAmount parses a JSON amount string; empty means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseOptionalAmount distinguishes absent from zero.
func parseOptionalAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
