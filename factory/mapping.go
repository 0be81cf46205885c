/*
Package factory provides JSON to Go classification mapping conversion.

PURPOSE:
  Converts JSON classification mapping definitions into an
  engine.Classifier. This enables category mapping changes without code
  changes - project controls can maintain the cost-center code table and
  the free-text synonym list as data.

WHY JSON?
  - Non-developers can extend the synonym list as new budget-category
    spellings show up in imports
  - Easy integration with an admin UI
  - Version control for mapping definitions

JSON SCHEMA:
  {
    "cost_centers": {
      "2000": "equipment",
      "3000": "materials",
      "4000": "subcontracts",
      "5000": "small_tools"
    },
    "synonyms": {
      "consumables": "small_tools",
      "sub": "subcontracts"
    }
  }

USAGE:
  classifier, err := factory.ParseMapping(jsonStr)

  // Or start from the engine defaults:
  classifier, err := factory.ParseMapping(factory.DefaultMappingJSON())

SEE ALSO:
  - engine/classify.go: Rule chain and default tables
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/gantry/cost-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// MappingJSON is the JSON representation of a classification mapping.
type MappingJSON struct {
	CostCenters map[string]string `json:"cost_centers"`
	Synonyms    map[string]string `json:"synonyms"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseMapping validates the JSON and builds a classifier. Every mapped
// value must name a real category; a typo in the mapping would otherwise
// silently reroute dollars.
func ParseMapping(jsonStr string) (*engine.Classifier, error) {
	var m MappingJSON
	if err := json.Unmarshal([]byte(jsonStr), &m); err != nil {
		return nil, fmt.Errorf("invalid mapping JSON: %w", err)
	}

	costCenters, err := toCategoryTable(m.CostCenters, "cost_centers")
	if err != nil {
		return nil, err
	}
	synonyms, err := toCategoryTable(m.Synonyms, "synonyms")
	if err != nil {
		return nil, err
	}

	// Custom synonyms extend the engine defaults; cost centers replace
	// them wholesale when provided (a partial code table is ambiguous).
	merged := engine.DefaultSynonymTable()
	for k, v := range synonyms {
		merged[k] = v
	}
	if costCenters == nil {
		costCenters = engine.DefaultCostCenterTable()
	}

	return engine.NewClassifier(costCenters, merged), nil
}

func toCategoryTable(src map[string]string, field string) (map[string]engine.CostCategory, error) {
	if src == nil {
		return nil, nil
	}
	table := make(map[string]engine.CostCategory, len(src))
	for key, val := range src {
		cat := engine.CostCategory(val)
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: %s[%q] = %q", engine.ErrInvalidCategory, field, key, val)
		}
		table[key] = cat
	}
	return table, nil
}

// DefaultMappingJSON returns the engine's built-in tables as editable JSON,
// the starting point for a project-specific mapping file.
func DefaultMappingJSON() string {
	m := MappingJSON{
		CostCenters: make(map[string]string),
		Synonyms:    make(map[string]string),
	}
	for code, cat := range engine.DefaultCostCenterTable() {
		m.CostCenters[code] = string(cat)
	}
	for text, cat := range engine.DefaultSynonymTable() {
		m.Synonyms[text] = string(cat)
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return string(out)
}
