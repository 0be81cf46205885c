/*
source.go - Read-only data access interface

PURPOSE:
  Defines the interface between the engine and whatever holds the project
  records. The engine only ever reads; record creation and mutation belong
  to the surrounding import/management flows.

IMPLEMENTATIONS:
  - engine/store/memory.go: In-memory fixtures for tests
  - store/sqlite/sqlite.go: Production SQLite

CANCELLATION:
  Every method takes a context. If the caller aborts mid-computation no
  partial state has been mutated anywhere - recomputation is always safe.
*/
package engine

import "context"

// DataSource provides the five read-only inputs the reconciler needs.
//
// The four record queries are independent and the reconciler fetches them
// concurrently; implementations must be safe for concurrent reads.
type DataSource interface {
	// Project returns the project record, or ErrProjectNotFound.
	Project(ctx context.Context, id ProjectID) (Project, error)

	// EmployeeActuals returns current per-employee labor actuals.
	EmployeeActuals(ctx context.Context, id ProjectID) ([]LaborActualRecord, error)

	// CraftActuals returns legacy per-craft labor actuals.
	CraftActuals(ctx context.Context, id ProjectID) ([]LaborActualRecord, error)

	// PurchaseOrders returns all purchase orders for the project,
	// regardless of status. Status filtering is rollup policy.
	PurchaseOrders(ctx context.Context, id ProjectID) ([]PurchaseOrderRecord, error)

	// HeadcountForecasts returns the planner's forward headcount entries.
	HeadcountForecasts(ctx context.Context, id ProjectID) ([]HeadcountForecastEntry, error)

	// BudgetAllocations returns the per-category budget configuration.
	BudgetAllocations(ctx context.Context, id ProjectID) ([]BudgetAllocation, error)
}
