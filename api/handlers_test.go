/*
handlers_test.go - End-to-end tests for the HTTP API

Each test spins up the full router over an in-memory SQLite store, feeds
records through the write endpoints, and reads the forecast back the way a
dashboard client would.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gantry/cost-engine/engine"
	"github.com/gantry/cost-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, nil, engine.DefaultParams(), nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s failed: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: A created project
	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID:                    "JOB-100",
		Name:                  "Compressor Station 7",
		OriginalContractValue: "1200000",
		RevisedContractValue:  "1250000",
		LaborSource:           "employee",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// WHEN: Fetching it back
	resp, err := http.Get(srv.URL + "/api/projects/JOB-100")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var dto ProjectDTO
	decodeJSON(t, resp, &dto)

	// THEN: Fields round-trip as strings
	if dto.Name != "Compressor Station 7" {
		t.Errorf("Expected name round-trip, got %q", dto.Name)
	}
	if dto.RevisedContractValue != "1250000" {
		t.Errorf("Expected revised contract value 1250000, got %q", dto.RevisedContractValue)
	}

	// AND: It appears in the listing
	resp, err = http.Get(srv.URL + "/api/projects")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var list []ProjectDTO
	decodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("Expected 1 project, got %d", len(list))
	}
}

func TestGetProject_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projects/NOPE")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestForecast_UnknownProject(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projects/NOPE/forecast")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	srv := newTestServer(t)

	// Missing id
	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{Name: "No ID"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing id, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad labor source
	resp = postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID: "JOB-1", LaborSource: "payroll",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad labor_source, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad amount
	resp = postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID: "JOB-1", OriginalContractValue: "a lot",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad amount, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestForecast_EndToEnd(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: A project with actuals, a PO, a budget, and a headcount plan
	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID:                   "JOB-1",
		Name:                 "Tank Farm Expansion",
		RevisedContractValue: "200000",
		LaborSource:          "employee",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// One week of direct labor: 400 hours at $50/hr burdened.
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
		WeekEnding:    "2026-03-08",
		Hints:         HintsRequest{Category: "labor_direct"},
		Hours:         "400",
		BurdenedTotal: "20000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 for actual, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// One future week: 10 heads x 40 hours at the running rate.
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/headcount", HeadcountRequest{
		WeekEnding:     "2026-03-15",
		Category:       "labor_direct",
		Headcount:      "10",
		HoursPerPerson: "40",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 for headcount, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// An approved materials PO, partially invoiced.
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/purchase-orders", PurchaseOrderRequest{
		Number:          "PO-1",
		Vendor:          "Gulf Coast Supply",
		Status:          "approved",
		Hints:           HintsRequest{Category: "materials"},
		CommittedAmount: "30000",
		InvoicedAmount:  "12000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 for PO, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A subcontracts budget with no POs: forecasts at budget.
	resp = putJSON(t, srv.URL+"/api/projects/JOB-1/budget", BudgetRequest{
		Category: "subcontracts",
		Amount:   "25000",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204 for budget, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// WHEN: Reading the forecast
	resp, err := http.Get(srv.URL + "/api/projects/JOB-1/forecast")
	if err != nil {
		t.Fatalf("GET forecast failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var forecast ForecastResponse
	decodeJSON(t, resp, &forecast)

	// THEN: Labor actuals 20000, projected 10*40*50 = 20000, final 40000
	lineFor := func(category string) CategoryLineDTO {
		for _, line := range forecast.Categories {
			if line.Category == category {
				return line
			}
		}
		t.Fatalf("Category %s missing from forecast", category)
		return CategoryLineDTO{}
	}

	direct := lineFor("labor_direct")
	if direct.Actuals != "20000" {
		t.Errorf("Expected direct actuals 20000, got %s", direct.Actuals)
	}
	if direct.ForecastedFinal != "40000" {
		t.Errorf("Expected direct final 40000, got %s", direct.ForecastedFinal)
	}

	materials := lineFor("materials")
	if materials.Committed != "30000" {
		t.Errorf("Expected materials committed 30000, got %s", materials.Committed)
	}
	if materials.Actuals != "12000" {
		t.Errorf("Expected materials actuals 12000, got %s", materials.Actuals)
	}
	if materials.ForecastedFinal != "30000" {
		t.Errorf("Expected materials final 30000, got %s", materials.ForecastedFinal)
	}

	subs := lineFor("subcontracts")
	if subs.ForecastedFinal != "25000" {
		t.Errorf("Expected subcontracts final at budget 25000, got %s", subs.ForecastedFinal)
	}

	// AND: Every category appears exactly once
	if len(forecast.Categories) != len(engine.AllCategories) {
		t.Errorf("Expected %d categories, got %d", len(engine.AllCategories), len(forecast.Categories))
	}

	// AND: Totals tie out as strings (AC 32000, EAC 95000)
	if forecast.ActualCostToDate != "32000" {
		t.Errorf("Expected AC 32000, got %s", forecast.ActualCostToDate)
	}
	if forecast.EstimateAtCompletion != "95000" {
		t.Errorf("Expected EAC 95000, got %s", forecast.EstimateAtCompletion)
	}
	if forecast.EstimateToComplete != "63000" {
		t.Errorf("Expected ETC 63000, got %s", forecast.EstimateToComplete)
	}
}

func TestRatesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID: "JOB-1", Name: "Rates", LaborSource: "employee",
	})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
		WeekEnding:    "2026-03-08",
		Hints:         HintsRequest{Category: "labor_direct"},
		Hours:         "480",
		BurdenedTotal: "24000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	r, err := http.Get(srv.URL + "/api/projects/JOB-1/rates")
	if err != nil {
		t.Fatalf("GET rates failed: %v", err)
	}
	var rates []RateDTO
	decodeJSON(t, r, &rates)

	found := false
	for _, rate := range rates {
		if rate.Category == "labor_direct" {
			found = true
			if rate.RatePerHour != "50" {
				t.Errorf("Expected direct rate 50, got %s", rate.RatePerHour)
			}
		}
	}
	if !found {
		t.Error("Expected a labor_direct rate entry")
	}
}

func TestQualityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{
		ID: "JOB-1", Name: "Quality", LaborSource: "employee",
	})
	resp.Body.Close()

	// A row no rule can classify
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
		WeekEnding:        "2026-03-08",
		Hints:             HintsRequest{BudgetCategory: "miscellaneous stuff"},
		Hours:             "40",
		StraightTimeWages: "1000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	r, err := http.Get(srv.URL + "/api/projects/JOB-1/quality")
	if err != nil {
		t.Fatalf("GET quality failed: %v", err)
	}
	var quality QualityDTO
	decodeJSON(t, r, &quality)

	if quality.UnclassifiedLaborRecords != 1 {
		t.Errorf("Expected 1 unclassified labor record, got %d", quality.UnclassifiedLaborRecords)
	}
	if quality.UnclassifiedLaborCost != "1280" {
		t.Errorf("Expected unclassified cost 1280, got %s", quality.UnclassifiedLaborCost)
	}
}

func TestActualValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{ID: "JOB-1"})
	resp.Body.Close()

	// Bad week
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
		WeekEnding: "next tuesday",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad week, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad source
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
		WeekEnding: "2026-03-08",
		Source:     "payroll",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad source, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Non-labor headcount category
	resp = postJSON(t, srv.URL+"/api/projects/JOB-1/headcount", HeadcountRequest{
		WeekEnding: "2026-03-08",
		Category:   "materials",
		Headcount:  "5",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-labor headcount, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSourceConflictReturns409(t *testing.T) {
	srv := newTestServer(t)

	// Project with no declared source and both tables covering the same week
	resp := postJSON(t, srv.URL+"/api/projects", CreateProjectRequest{ID: "JOB-1", Name: "Conflicted"})
	resp.Body.Close()

	for _, source := range []string{"employee", "craft"} {
		resp = postJSON(t, srv.URL+"/api/projects/JOB-1/actuals", ActualRequest{
			Source:            source,
			WeekEnding:        "2026-03-08",
			Hints:             HintsRequest{Category: "labor_direct"},
			Hours:             "40",
			StraightTimeWages: "1000",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("Expected 201 for %s actual, got %d", source, resp.StatusCode)
		}
		resp.Body.Close()
	}

	r, err := http.Get(srv.URL + "/api/projects/JOB-1/forecast")
	if err != nil {
		t.Fatalf("GET forecast failed: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for overlapping sources, got %d", r.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
