package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"spendtrack/internal/core"
)

// CategoryMap is a case-insensitive category name -> id lookup, built once
// per import run from the user's category set at that moment.
type CategoryMap map[string]string

func BuildCategoryMap(cats []core.Category) CategoryMap {
	m := make(CategoryMap, len(cats))
	for _, c := range cats {
		m[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}
	return m
}

func (m CategoryMap) Lookup(name string) (string, bool) {
	id, ok := m[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// KeywordRule maps merchant substrings to a canonical category name. Rules
// are evaluated in order and the first matching rule wins, even when a later
// rule would also match.
type KeywordRule struct {
	Keywords []string
	Category string
}

// DefaultKeywordRules returns the built-in merchant heuristics. Callers may
// supply their own rule set; only the ordered-first-match contract is fixed.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Keywords: []string{"coffee", "restaurant"}, Category: "dining"},
		{Keywords: []string{"uber", "taxi", "car", "lyft", "gas"}, Category: "transport"},
		{Keywords: []string{"supermarket", "food", "grocer", "kroger", "whole foods"}, Category: "groceries"},
	}
}

// ParseKeywordRules decodes an operator-supplied rule set from JSON:
//
//	[{"keywords":["coffee"],"category":"dining"}, ...]
//
// Rule order in the array is the evaluation order.
func ParseKeywordRules(raw string) ([]KeywordRule, error) {
	var decoded []struct {
		Keywords []string `json:"keywords"`
		Category string   `json:"category"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse keyword rules: %w", err)
	}

	rules := make([]KeywordRule, 0, len(decoded))
	for i, d := range decoded {
		if len(d.Keywords) == 0 || strings.TrimSpace(d.Category) == "" {
			return nil, fmt.Errorf("parse keyword rules: rule %d needs keywords and a category", i)
		}
		kws := make([]string, len(d.Keywords))
		for j, kw := range d.Keywords {
			kws[j] = strings.ToLower(strings.TrimSpace(kw))
		}
		rules = append(rules, KeywordRule{Keywords: kws, Category: d.Category})
	}
	return rules, nil
}

// Resolve picks a category id for one imported row. Pure and total: it
// always returns an id from the map, or uncategorizedID.
//
// Order: an explicit category name hint wins when it names a known category;
// otherwise the merchant text is scanned against the keyword rules; otherwise
// the row stays uncategorized. A matching rule whose canonical category is
// missing from the map also falls back to uncategorizedID rather than
// scanning further rules.
func Resolve(merchant, categoryHint string, cm CategoryMap, rules []KeywordRule, uncategorizedID string) string {
	if strings.TrimSpace(categoryHint) != "" {
		if id, ok := cm.Lookup(categoryHint); ok {
			return id
		}
	}

	m := strings.ToLower(merchant)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(m, kw) {
				if id, ok := cm.Lookup(rule.Category); ok {
					return id
				}
				return uncategorizedID
			}
		}
	}

	return uncategorizedID
}
