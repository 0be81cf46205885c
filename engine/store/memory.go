// Package store provides DataSource implementations.
package store

import (
	"context"
	"sync"

	"github.com/gantry/cost-engine/engine"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a DataSource backed by maps. Writes are for fixture setup; the
// engine itself only ever reads.
type Memory struct {
	mu        sync.RWMutex
	projects  map[engine.ProjectID]engine.Project
	employee  map[engine.ProjectID][]engine.LaborActualRecord
	craft     map[engine.ProjectID][]engine.LaborActualRecord
	orders    map[engine.ProjectID][]engine.PurchaseOrderRecord
	headcount map[engine.ProjectID][]engine.HeadcountForecastEntry
	budgets   map[engine.ProjectID][]engine.BudgetAllocation
}

var _ engine.DataSource = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		projects:  make(map[engine.ProjectID]engine.Project),
		employee:  make(map[engine.ProjectID][]engine.LaborActualRecord),
		craft:     make(map[engine.ProjectID][]engine.LaborActualRecord),
		orders:    make(map[engine.ProjectID][]engine.PurchaseOrderRecord),
		headcount: make(map[engine.ProjectID][]engine.HeadcountForecastEntry),
		budgets:   make(map[engine.ProjectID][]engine.BudgetAllocation),
	}
}

// -----------------------------------------------------------------------------
// Fixture setup
// -----------------------------------------------------------------------------

func (m *Memory) PutProject(p engine.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *Memory) AddEmployeeActual(rec engine.LaborActualRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employee[rec.ProjectID] = append(m.employee[rec.ProjectID], rec)
}

func (m *Memory) AddCraftActual(rec engine.LaborActualRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.craft[rec.ProjectID] = append(m.craft[rec.ProjectID], rec)
}

func (m *Memory) AddPurchaseOrder(po engine.PurchaseOrderRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[po.ProjectID] = append(m.orders[po.ProjectID], po)
}

func (m *Memory) AddHeadcountForecast(e engine.HeadcountForecastEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headcount[e.ProjectID] = append(m.headcount[e.ProjectID], e)
}

func (m *Memory) SetBudget(b engine.BudgetAllocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ProjectID] = append(m.budgets[b.ProjectID], b)
}

// -----------------------------------------------------------------------------
// DataSource
// -----------------------------------------------------------------------------

func (m *Memory) Project(_ context.Context, id engine.ProjectID) (engine.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return engine.Project{}, engine.ErrProjectNotFound
	}
	return p, nil
}

func (m *Memory) EmployeeActuals(_ context.Context, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.employee[id]), nil
}

func (m *Memory) CraftActuals(_ context.Context, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.craft[id]), nil
}

func (m *Memory) PurchaseOrders(_ context.Context, id engine.ProjectID) ([]engine.PurchaseOrderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.orders[id]), nil
}

func (m *Memory) HeadcountForecasts(_ context.Context, id engine.ProjectID) ([]engine.HeadcountForecastEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.headcount[id]), nil
}

func (m *Memory) BudgetAllocations(_ context.Context, id engine.ProjectID) ([]engine.BudgetAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.budgets[id]), nil
}

func copySlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
