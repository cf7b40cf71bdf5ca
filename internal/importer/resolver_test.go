package importer

import (
	"testing"

	"spendtrack/internal/core"
)

func testCategoryMap() (CategoryMap, string) {
	cats := []core.Category{
		{ID: "cat-dining", Name: "Dining"},
		{ID: "cat-transport", Name: "Transport"},
		{ID: "cat-groceries", Name: "Groceries"},
		{ID: "cat-travel", Name: "Travel"},
		{ID: "cat-unc", Name: "Uncategorized"},
	}
	return BuildCategoryMap(cats), "cat-unc"
}

func TestResolve(t *testing.T) {
	cm, uncID := testCategoryMap()
	rules := DefaultKeywordRules()

	tests := []struct {
		name     string
		merchant string
		hint     string
		want     string
	}{
		{
			name:     "hint wins over merchant keywords",
			merchant: "Starbucks Coffee",
			hint:     "Travel",
			want:     "cat-travel",
		},
		{
			name:     "hint is case-insensitive",
			merchant: "Anything",
			hint:     "dInInG",
			want:     "cat-dining",
		},
		{
			name:     "unknown hint falls through to keywords",
			merchant: "Starbucks Coffee",
			hint:     "Nonsense",
			want:     "cat-dining",
		},
		{
			name:     "coffee keyword maps to dining",
			merchant: "Blue Bottle Coffee",
			want:     "cat-dining",
		},
		{
			name:     "uber keyword maps to transport",
			merchant: "UBER *TRIP",
			want:     "cat-transport",
		},
		{
			name:     "grocer keyword maps to groceries",
			merchant: "Corner Grocer",
			want:     "cat-groceries",
		},
		{
			name:     "earlier rule wins when both match",
			merchant: "Restaurant Food Hall", // dining and groceries keywords
			want:     "cat-dining",
		},
		{
			name:     "no match falls back to uncategorized",
			merchant: "Random Shop",
			want:     uncID,
		},
		{
			name:     "empty merchant and hint",
			merchant: "",
			want:     uncID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.merchant, tt.hint, cm, rules, uncID)
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.merchant, tt.hint, got, tt.want)
			}
		})
	}
}

func TestResolveMissingCanonicalCategory(t *testing.T) {
	// The transport rule matches but the map has no transport category;
	// resolution must fall back to uncategorized, not scan later rules.
	cm := BuildCategoryMap([]core.Category{
		{ID: "cat-groceries", Name: "Groceries"},
		{ID: "cat-unc", Name: "Uncategorized"},
	})

	got := Resolve("Gas Food Mart", "", cm, DefaultKeywordRules(), "cat-unc")
	if got != "cat-unc" {
		t.Errorf("Resolve() = %q, want cat-unc", got)
	}
}

func TestResolveNeverInventsIDs(t *testing.T) {
	cm, uncID := testCategoryMap()
	known := map[string]bool{uncID: true}
	for _, id := range cm {
		known[id] = true
	}

	merchants := []string{"Starbucks Coffee", "Uber", "Whole Foods", "Mystery Inc", ""}
	hints := []string{"", "Dining", "DoesNotExist", "Travel"}
	for _, m := range merchants {
		for _, h := range hints {
			if got := Resolve(m, h, cm, DefaultKeywordRules(), uncID); !known[got] {
				t.Errorf("Resolve(%q, %q) returned unknown id %q", m, h, got)
			}
		}
	}
}

func TestParseKeywordRules(t *testing.T) {
	raw := `[
		{"keywords": ["Pharmacy", "clinic"], "category": "Health"},
		{"keywords": ["bakery"], "category": "dining"}
	]`
	rules, err := ParseKeywordRules(raw)
	if err != nil {
		t.Fatalf("ParseKeywordRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Category != "Health" {
		t.Errorf("first rule category = %q, want Health", rules[0].Category)
	}
	// Keywords are normalized at parse time so Resolve's lowercase scan matches.
	if rules[0].Keywords[0] != "pharmacy" {
		t.Errorf("keyword not lowercased: %q", rules[0].Keywords[0])
	}
}

func TestParseKeywordRulesRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "pharmacy=Health"},
		{"empty keywords", `[{"keywords": [], "category": "Health"}]`},
		{"blank category", `[{"keywords": ["pharmacy"], "category": "  "}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseKeywordRules(tc.raw); err == nil {
				t.Fatalf("ParseKeywordRules(%q) accepted bad input", tc.raw)
			}
		})
	}
}
