/*
classify.go - Category resolution fallback chain

PURPOSE:
  Maps raw records (purchase orders, labor entries, craft references) to
  exactly one CostCategory. Raw data is inconsistently classified - current
  records carry a proper category enum, legacy records may only have a
  numeric cost-center code or a free-text budget string - so resolution is
  an ordered list of pure rules tried in sequence, first match wins.

RESOLUTION ORDER:
  1. Explicit category field on the referenced craft/cost-code record
  2. Free-text category on the craft record, case-normalized
  3. Cost-center numeric code against a fixed code table
  4. Free-text budget_category on the record itself, against synonyms

NO MATCH:
  A record no rule can place is NOT assigned to CategoryOther. It is
  excluded from category totals and counted in DataQuality so coverage
  gaps stay visible to whoever owns the source data.

  Classification is pure and never errors; absence of a match is a valid,
  representable outcome.

SEE ALSO:
  - factory/mapping.go: JSON-configured code and synonym tables
*/
package engine

import (
	"strings"
)

// =============================================================================
// RULE - One pure classification strategy
// =============================================================================

// Rule attempts to resolve hints to a category. Returns (category, true) on
// a match, (CategoryUnknown, false) otherwise. Rules must be pure.
type Rule func(CategoryHints) (CostCategory, bool)

// =============================================================================
// CLASSIFIER - Ordered rule chain
// =============================================================================

// Classifier resolves raw records to categories by trying rules in order.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the standard four-rule chain with the given lookup
// tables. Pass nil tables to use the defaults.
func NewClassifier(costCenters map[string]CostCategory, synonyms map[string]CostCategory) *Classifier {
	if costCenters == nil {
		costCenters = DefaultCostCenterTable()
	}
	if synonyms == nil {
		synonyms = DefaultSynonymTable()
	}
	return &Classifier{
		rules: []Rule{
			RuleExplicit,
			RuleCraftCategory(synonyms),
			RuleCostCenter(costCenters),
			RuleBudgetText(synonyms),
		},
	}
}

// NewClassifierWithRules builds a classifier from a custom rule chain.
func NewClassifierWithRules(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify runs the chain. Never errors; (CategoryUnknown, false) means no
// rule matched and the record must be surfaced as unclassified.
func (c *Classifier) Classify(h CategoryHints) (CostCategory, bool) {
	for _, rule := range c.rules {
		if cat, ok := rule(h); ok {
			return cat, true
		}
	}
	return CategoryUnknown, false
}

// =============================================================================
// RULES
// =============================================================================

// RuleExplicit matches when the referenced record already carries a valid
// category enum.
func RuleExplicit(h CategoryHints) (CostCategory, bool) {
	if h.Explicit.Valid() {
		return h.Explicit, true
	}
	return CategoryUnknown, false
}

// RuleCraftCategory matches the free-text category on the craft/cost-code
// record, case-normalized, against category names and synonyms.
func RuleCraftCategory(synonyms map[string]CostCategory) Rule {
	return func(h CategoryHints) (CostCategory, bool) {
		return matchText(h.CraftCategory, synonyms)
	}
}

// RuleCostCenter matches the numeric cost-center code against a fixed
// code table. Legacy cost codes predate proper category fields.
func RuleCostCenter(table map[string]CostCategory) Rule {
	return func(h CategoryHints) (CostCategory, bool) {
		code := strings.TrimSpace(h.CostCenterCode)
		if code == "" {
			return CategoryUnknown, false
		}
		cat, ok := table[code]
		return cat, ok
	}
}

// RuleBudgetText matches the record's own free-text budget_category string,
// case-insensitively, against category names and known synonyms.
func RuleBudgetText(synonyms map[string]CostCategory) Rule {
	return func(h CategoryHints) (CostCategory, bool) {
		return matchText(h.BudgetText, synonyms)
	}
}

func matchText(s string, synonyms map[string]CostCategory) (CostCategory, bool) {
	key := normalize(s)
	if key == "" {
		return CategoryUnknown, false
	}
	if cat := CostCategory(key); cat.Valid() {
		return cat, true
	}
	cat, ok := synonyms[key]
	return cat, ok
}

// normalize lower-cases and collapses separators so "Small Tools",
// "small_tools" and "small-tools" all compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// =============================================================================
// DEFAULT TABLES
// =============================================================================

// DefaultCostCenterTable is the fixed code table for legacy cost codes.
func DefaultCostCenterTable() map[string]CostCategory {
	return map[string]CostCategory{
		"1000": CategoryLaborDirect,
		"1500": CategoryLaborIndirect,
		"1800": CategoryLaborStaff,
		"2000": CategoryEquipment,
		"3000": CategoryMaterials,
		"4000": CategorySubcontracts,
		"5000": CategorySmallTools,
	}
}

// DefaultSynonymTable maps normalized free-text labels to categories.
// Keys must already be in normalized form (see normalize).
func DefaultSynonymTable() map[string]CostCategory {
	return map[string]CostCategory{
		"material":         CategoryMaterials,
		"materials":        CategoryMaterials,
		"subcontract":      CategorySubcontracts,
		"subcontracts":     CategorySubcontracts,
		"sub":              CategorySubcontracts,
		"small_tools":      CategorySmallTools,
		"consumables":      CategorySmallTools,
		"equipment":        CategoryEquipment,
		"rental_equipment": CategoryEquipment,
		"direct":           CategoryLaborDirect,
		"direct_labor":     CategoryLaborDirect,
		"labor_direct":     CategoryLaborDirect,
		"indirect":         CategoryLaborIndirect,
		"indirect_labor":   CategoryLaborIndirect,
		"staff":            CategoryLaborStaff,
		"salaried":         CategoryLaborStaff,
		"other":            CategoryOther,
		"risk":             CategoryRisk,
		"contingency":      CategoryRisk,
	}
}
