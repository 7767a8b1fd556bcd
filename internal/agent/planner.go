package agent

import (
	"regexp"
	"strings"

	"hybridqa/internal/types"
)

// =============================================================================
// CONSTRAINT PLANNER
// =============================================================================

// KnownCategories is the fixed product-category enumeration. Matching
// is case-insensitive substring; the canonical spelling is what ends
// up in constraints.
var KnownCategories = []string{
	"Beverages",
	"Condiments",
	"Confections",
	"Dairy Products",
	"Grains/Cereals",
	"Meat/Poultry",
	"Produce",
	"Seafood",
}

// dateRangePattern matches an explicit "YYYY-MM-DD to YYYY-MM-DD"
// range; the separator may also be a dash or en-dash.
var dateRangePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|–|-)\s*(\d{4}-\d{2}-\d{2})`)

// campaignRanges maps named campaign aliases to their fixed calendar
// ranges.
var campaignRanges = []struct {
	alias string
	dr    types.DateRange
}{
	{"summer beverages 1997", types.DateRange{Start: "1997-06-01", End: "1997-06-30"}},
	{"winter classics 1997", types.DateRange{Start: "1997-12-01", End: "1997-12-31"}},
}

// Plan extracts structured filters from the question and the retrieved
// context. Planning never fails: every extractor degrades to "no
// constraint" rather than raising.
func (a *Agent) Plan(question string, chunks []types.Chunk) types.Constraints {
	var c types.Constraints
	c.DateRange = extractDateRange(question, chunks)
	c.Category = normalizeCategory(extractCategory(question, chunks))
	c.KPI = extractKPI(question)
	return c
}

// extractDateRange checks the question first, then each chunk in
// retrieval order, returning the first match.
func extractDateRange(question string, chunks []types.Chunk) *types.DateRange {
	targets := make([]string, 0, len(chunks)+1)
	targets = append(targets, question)
	for _, ch := range chunks {
		targets = append(targets, ch.Content)
	}
	for _, text := range targets {
		if dr := firstDateRange(text); dr != nil {
			return dr
		}
	}
	return nil
}

// firstDateRange finds an explicit two-date pattern, falling back to
// the named campaign aliases.
func firstDateRange(text string) *types.DateRange {
	if text == "" {
		return nil
	}
	if m := dateRangePattern.FindStringSubmatch(text); m != nil {
		return &types.DateRange{Start: m[1], End: m[2]}
	}
	lower := strings.ToLower(text)
	for _, c := range campaignRanges {
		if strings.Contains(lower, c.alias) {
			dr := c.dr
			return &dr
		}
	}
	return nil
}

// extractCategory checks the question against the category enumeration
// before checking chunk text.
func extractCategory(question string, chunks []types.Chunk) string {
	q := strings.ToLower(question)
	for _, cat := range KnownCategories {
		if strings.Contains(q, strings.ToLower(cat)) {
			return cat
		}
	}
	for _, ch := range chunks {
		content := strings.ToLower(ch.Content)
		for _, cat := range KnownCategories {
			if strings.Contains(content, strings.ToLower(cat)) {
				return cat
			}
		}
	}
	return ""
}

// normalizeCategory maps a free-text guess to the canonical enumeration
// member whose name appears as a substring; anything else passes
// through unchanged.
func normalizeCategory(value string) string {
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	for _, cat := range KnownCategories {
		if strings.Contains(lower, strings.ToLower(cat)) {
			return cat
		}
	}
	return value
}

// extractKPI applies three mutually exclusive keyword checks in fixed
// priority order; the first match wins.
func extractKPI(question string) types.KPI {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "aov") || strings.Contains(q, "average order value"):
		return types.KPIAverageOrderValue
	case strings.Contains(q, "gross margin") || strings.Contains(q, "margin"):
		return types.KPIGrossMargin
	case strings.Contains(q, "revenue"):
		return types.KPIRevenue
	}
	return ""
}
