// Package types holds the domain types shared across the pipeline.
// These are plain data carriers - no knowledge of storage, retrieval,
// or model providers.
package types

import "strings"

// =============================================================================
// ROUTING
// =============================================================================

// Route is the resolution strategy assigned to a question.
type Route string

const (
	// RouteRAG answers from retrieved documents only.
	RouteRAG Route = "rag"
	// RouteSQL answers from the structured store only.
	RouteSQL Route = "sql"
	// RouteHybrid combines retrieval context with a structured query.
	RouteHybrid Route = "hybrid"
)

// Valid reports whether r is one of the three known route labels.
func (r Route) Valid() bool {
	switch r {
	case RouteRAG, RouteSQL, RouteHybrid:
		return true
	}
	return false
}

// NeedsSQL reports whether the route requires a structured query.
func (r Route) NeedsSQL() bool {
	return r == RouteSQL || r == RouteHybrid
}

// ParseRoute normalizes a raw model label into a Route. The second
// return value is false when the label is not one of the known three.
func ParseRoute(raw string) (Route, bool) {
	r := Route(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}

// =============================================================================
// INPUT / OUTPUT CONTRACT
// =============================================================================

// QuestionItem is one line of the batch input. Immutable.
type QuestionItem struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	FormatHint string `json:"format_hint"`
}

// Answer is one line of the batch output. Written once per item,
// never mutated after synthesis.
type Answer struct {
	ID          string   `json:"id"`
	FinalAnswer any      `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Chunk is a contiguous excerpt of a source document, the unit of
// retrieval. Read-only after retrieval.
type Chunk struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

// KPI identifies the metric a question asks about.
type KPI string

const (
	KPIAverageOrderValue KPI = "aov"
	KPIGrossMargin       KPI = "gross_margin"
	KPIRevenue           KPI = "revenue"
)

// DateRange is an inclusive calendar date range (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Constraints is the sparse filter set extracted by the planner.
// A zero field means "no filter on this dimension", never "filter on
// empty". Only the repair step mutates a constraint set, and it
// removes exactly one field per attempt.
type Constraints struct {
	DateRange *DateRange `json:"date_range,omitempty"`
	Category  string     `json:"category,omitempty"`
	KPI       KPI        `json:"kpi,omitempty"`
}

// Clone returns an independent copy, so repairs never alias the
// planner's original set.
func (c Constraints) Clone() Constraints {
	out := c
	if c.DateRange != nil {
		dr := *c.DateRange
		out.DateRange = &dr
	}
	return out
}

// Empty reports whether no filter is present at all.
func (c Constraints) Empty() bool {
	return c.DateRange == nil && c.Category == "" && c.KPI == ""
}
