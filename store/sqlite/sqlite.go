/*
Package sqlite provides a SQLite-backed implementation of engine.DataSource.

PURPOSE:
  Persists the project records the engine reads: projects, both labor
  actuals tables, purchase orders, headcount forecasts, and budget
  allocations. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

TWO ACTUALS TABLES:
  employee_actuals and craft_actuals are deliberately separate tables, not
  a flag column: the legacy craft rows come from a different upstream and
  the engine's source-selection rules treat the two tables as distinct
  sources of truth (see engine/actuals.go).

AMOUNT STORAGE:
  Money and hours are stored as TEXT decimal strings and parsed back with
  shopspring/decimal, so values round-trip without float drift.

WAL MODE:
  SQLite is opened with WAL so the reconciler's concurrent readers don't
  block each other.

USAGE:
  store, err := sqlite.New("./cost-engine.db")
  if err != nil { ... }
  defer store.Close()

  reconciler := engine.NewReconciler(store, classifier, params, logger)

SEE ALSO:
  - engine/source.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/gantry/cost-engine/engine"
)

// Store implements engine.DataSource plus the write side used by the
// record-management API.
type Store struct {
	db *sql.DB
}

var _ engine.DataSource = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		original_contract_value TEXT NOT NULL DEFAULT '0',
		revised_contract_value TEXT NOT NULL DEFAULT '0',
		labor_source TEXT NOT NULL DEFAULT ''
	);

	-- Current per-employee labor actuals
	CREATE TABLE IF NOT EXISTS employee_actuals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		week_ending TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		craft_category TEXT NOT NULL DEFAULT '',
		cost_center_code TEXT NOT NULL DEFAULT '',
		budget_category TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '0',
		st_wages TEXT NOT NULL DEFAULT '0',
		ot_wages TEXT NOT NULL DEFAULT '0',
		burdened_total TEXT,
		per_diem TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_employee_actuals_project
		ON employee_actuals(project_id, week_ending);

	-- Legacy per-craft labor actuals
	CREATE TABLE IF NOT EXISTS craft_actuals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		week_ending TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		craft_category TEXT NOT NULL DEFAULT '',
		cost_center_code TEXT NOT NULL DEFAULT '',
		budget_category TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '0',
		st_wages TEXT NOT NULL DEFAULT '0',
		ot_wages TEXT NOT NULL DEFAULT '0',
		burdened_total TEXT,
		per_diem TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_craft_actuals_project
		ON craft_actuals(project_id, week_ending);

	CREATE TABLE IF NOT EXISTS purchase_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		po_number TEXT NOT NULL DEFAULT '',
		vendor TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		category TEXT NOT NULL DEFAULT '',
		craft_category TEXT NOT NULL DEFAULT '',
		cost_center_code TEXT NOT NULL DEFAULT '',
		budget_category TEXT NOT NULL DEFAULT '',
		committed_amount TEXT NOT NULL DEFAULT '0',
		invoiced_amount TEXT NOT NULL DEFAULT '0',
		forecast_amount TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_purchase_orders_project
		ON purchase_orders(project_id);

	CREATE TABLE IF NOT EXISTS headcount_forecasts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		week_ending TEXT NOT NULL,
		category TEXT NOT NULL,
		headcount TEXT NOT NULL DEFAULT '0',
		hours_per_person TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_headcount_forecasts_project
		ON headcount_forecasts(project_id, week_ending);

	CREATE TABLE IF NOT EXISTS budget_allocations (
		project_id TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (project_id, category)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid {
		return nil
	}
	d := parseDecimal(s.String)
	return &d
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// =============================================================================
// WRITE SIDE - Used by record-management endpoints and imports
// =============================================================================

// SaveProject inserts or replaces a project.
func (s *Store) SaveProject(ctx context.Context, p engine.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, original_contract_value, revised_contract_value, labor_source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			original_contract_value = excluded.original_contract_value,
			revised_contract_value = excluded.revised_contract_value,
			labor_source = excluded.labor_source`,
		string(p.ID), p.Name, p.OriginalContractValue.String(),
		p.RevisedContractValue.String(), string(p.LaborSource))
	return err
}

func (s *Store) insertActual(ctx context.Context, table string, rec engine.LaborActualRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, week_ending, category, craft_category,
			cost_center_code, budget_category, hours, st_wages, ot_wages,
			burdened_total, per_diem)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
	_, err := s.db.ExecContext(ctx, query,
		string(rec.ProjectID), rec.WeekEnding.String(),
		string(rec.Hints.Explicit), rec.Hints.CraftCategory,
		rec.Hints.CostCenterCode, rec.Hints.BudgetText,
		rec.Hours.String(), rec.StraightTimeWages.String(),
		rec.OvertimeWages.String(), nullDecimal(rec.BurdenedTotal),
		rec.PerDiem.String())
	return err
}

// AddEmployeeActual appends a row to the current actuals table.
func (s *Store) AddEmployeeActual(ctx context.Context, rec engine.LaborActualRecord) error {
	return s.insertActual(ctx, "employee_actuals", rec)
}

// AddCraftActual appends a row to the legacy actuals table.
func (s *Store) AddCraftActual(ctx context.Context, rec engine.LaborActualRecord) error {
	return s.insertActual(ctx, "craft_actuals", rec)
}

// AddPurchaseOrder appends a purchase order.
func (s *Store) AddPurchaseOrder(ctx context.Context, po engine.PurchaseOrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (project_id, po_number, vendor, status,
			category, craft_category, cost_center_code, budget_category,
			committed_amount, invoiced_amount, forecast_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(po.ProjectID), po.Number, po.Vendor, string(po.Status),
		string(po.Hints.Explicit), po.Hints.CraftCategory,
		po.Hints.CostCenterCode, po.Hints.BudgetText,
		po.CommittedAmount.String(), po.InvoicedAmount.String(),
		nullDecimal(po.ForecastAmount))
	return err
}

// AddHeadcountForecast appends a planner's headcount entry.
func (s *Store) AddHeadcountForecast(ctx context.Context, e engine.HeadcountForecastEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO headcount_forecasts (project_id, week_ending, category, headcount, hours_per_person)
		VALUES (?, ?, ?, ?, ?)`,
		string(e.ProjectID), e.WeekEnding.String(), string(e.Category),
		e.Headcount.String(), e.HoursPerPerson.String())
	return err
}

// SetBudget upserts the budget amount for one category.
func (s *Store) SetBudget(ctx context.Context, b engine.BudgetAllocation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_allocations (project_id, category, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id, category) DO UPDATE SET amount = excluded.amount`,
		string(b.ProjectID), string(b.Category), b.Amount.String())
	return err
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]engine.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, original_contract_value, revised_contract_value, labor_source
		FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []engine.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// =============================================================================
// READ SIDE - engine.DataSource
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (engine.Project, error) {
	var id, name, ocv, rcv, source string
	if err := row.Scan(&id, &name, &ocv, &rcv, &source); err != nil {
		return engine.Project{}, err
	}
	return engine.Project{
		ID:                    engine.ProjectID(id),
		Name:                  name,
		OriginalContractValue: parseDecimal(ocv),
		RevisedContractValue:  parseDecimal(rcv),
		LaborSource:           engine.LaborSource(source),
	}, nil
}

func (s *Store) Project(ctx context.Context, id engine.ProjectID) (engine.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, original_contract_value, revised_contract_value, labor_source
		FROM projects WHERE id = ?`, string(id))
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return engine.Project{}, engine.ErrProjectNotFound
	}
	return p, err
}

func (s *Store) queryActuals(ctx context.Context, table string, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	query := fmt.Sprintf(`
		SELECT project_id, week_ending, category, craft_category,
			cost_center_code, budget_category, hours, st_wages, ot_wages,
			burdened_total, per_diem
		FROM %s WHERE project_id = ? ORDER BY week_ending, id`, table)
	rows, err := s.db.QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.LaborActualRecord
	for rows.Next() {
		var (
			projectID, weekStr, category, craftCat, costCenter, budgetText string
			hours, st, ot, perDiem                                         string
			burdened                                                       sql.NullString
		)
		if err := rows.Scan(&projectID, &weekStr, &category, &craftCat,
			&costCenter, &budgetText, &hours, &st, &ot, &burdened, &perDiem); err != nil {
			return nil, err
		}
		week, err := engine.ParseWeekEnding(weekStr)
		if err != nil {
			return nil, fmt.Errorf("bad week_ending %q in %s: %w", weekStr, table, err)
		}
		records = append(records, engine.LaborActualRecord{
			ProjectID:  engine.ProjectID(projectID),
			WeekEnding: week,
			Hints: engine.CategoryHints{
				Explicit:       engine.CostCategory(category),
				CraftCategory:  craftCat,
				CostCenterCode: costCenter,
				BudgetText:     budgetText,
			},
			Hours:             parseDecimal(hours),
			StraightTimeWages: parseDecimal(st),
			OvertimeWages:     parseDecimal(ot),
			BurdenedTotal:     parseNullDecimal(burdened),
			PerDiem:           parseDecimal(perDiem),
		})
	}
	return records, rows.Err()
}

func (s *Store) EmployeeActuals(ctx context.Context, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	return s.queryActuals(ctx, "employee_actuals", id)
}

func (s *Store) CraftActuals(ctx context.Context, id engine.ProjectID) ([]engine.LaborActualRecord, error) {
	return s.queryActuals(ctx, "craft_actuals", id)
}

func (s *Store) PurchaseOrders(ctx context.Context, id engine.ProjectID) ([]engine.PurchaseOrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, po_number, vendor, status, category, craft_category,
			cost_center_code, budget_category, committed_amount,
			invoiced_amount, forecast_amount
		FROM purchase_orders WHERE project_id = ? ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []engine.PurchaseOrderRecord
	for rows.Next() {
		var (
			projectID, number, vendor, status          string
			category, craftCat, costCenter, budgetText string
			committed, invoiced                        string
			forecast                                   sql.NullString
		)
		if err := rows.Scan(&projectID, &number, &vendor, &status, &category,
			&craftCat, &costCenter, &budgetText, &committed, &invoiced, &forecast); err != nil {
			return nil, err
		}
		orders = append(orders, engine.PurchaseOrderRecord{
			ProjectID: engine.ProjectID(projectID),
			Number:    number,
			Vendor:    vendor,
			Status:    engine.POStatus(status),
			Hints: engine.CategoryHints{
				Explicit:       engine.CostCategory(category),
				CraftCategory:  craftCat,
				CostCenterCode: costCenter,
				BudgetText:     budgetText,
			},
			CommittedAmount: parseDecimal(committed),
			InvoicedAmount:  parseDecimal(invoiced),
			ForecastAmount:  parseNullDecimal(forecast),
		})
	}
	return orders, rows.Err()
}

func (s *Store) HeadcountForecasts(ctx context.Context, id engine.ProjectID) ([]engine.HeadcountForecastEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, week_ending, category, headcount, hours_per_person
		FROM headcount_forecasts WHERE project_id = ? ORDER BY week_ending, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []engine.HeadcountForecastEntry
	for rows.Next() {
		var projectID, weekStr, category, headcount, hours string
		if err := rows.Scan(&projectID, &weekStr, &category, &headcount, &hours); err != nil {
			return nil, err
		}
		week, err := engine.ParseWeekEnding(weekStr)
		if err != nil {
			return nil, fmt.Errorf("bad week_ending %q in headcount_forecasts: %w", weekStr, err)
		}
		entries = append(entries, engine.HeadcountForecastEntry{
			ProjectID:      engine.ProjectID(projectID),
			WeekEnding:     week,
			Category:       engine.CostCategory(category),
			Headcount:      parseDecimal(headcount),
			HoursPerPerson: parseDecimal(hours),
		})
	}
	return entries, rows.Err()
}

func (s *Store) BudgetAllocations(ctx context.Context, id engine.ProjectID) ([]engine.BudgetAllocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, category, amount
		FROM budget_allocations WHERE project_id = ? ORDER BY category`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []engine.BudgetAllocation
	for rows.Next() {
		var projectID, category, amount string
		if err := rows.Scan(&projectID, &category, &amount); err != nil {
			return nil, err
		}
		budgets = append(budgets, engine.BudgetAllocation{
			ProjectID: engine.ProjectID(projectID),
			Category:  engine.CostCategory(category),
			Amount:    parseDecimal(amount),
		})
	}
	return budgets, rows.Err()
}
