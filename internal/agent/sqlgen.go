package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hybridqa/internal/types"
)

// =============================================================================
// STRUCTURED-QUERY SYNTHESIZER
// =============================================================================
//
// A fixed, ordered library of intent recognizers. Each rule pairs a
// boolean predicate over the normalized question with a template
// builder. The first matching rule wins; order is load-bearing
// (return-window phrasing must short-circuit before generic revenue
// matching). No match yields an empty query, which the validator and
// the document-only path both understand as "no structured answer
// needed".

type intentRule struct {
	name  string
	match func(q string, c types.Constraints) bool
	build func(a *Agent, q string, c types.Constraints) string
}

var intentRules = []intentRule{
	{
		name: "policy_return_window",
		match: func(q string, _ types.Constraints) bool {
			return strings.Contains(q, "return window") || strings.Contains(q, "return policy")
		},
		build: func(*Agent, string, types.Constraints) string { return "" },
	},
	{
		name: "top_products_by_revenue",
		match: func(q string, _ types.Constraints) bool {
			if strings.Contains(q, "top 3 products") {
				return true
			}
			return strings.Contains(q, "top") && strings.Contains(q, "products") && strings.Contains(q, "revenue")
		},
		build: func(a *Agent, q string, _ types.Constraints) string {
			limit := 3
			if n, ok := parseTopN(q); ok {
				limit = n
			}
			return joinSQL(
				"SELECT p.ProductName AS product,",
				"       SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue",
				`FROM "Order Details" od`,
				"JOIN Products p ON p.ProductID = od.ProductID",
				"GROUP BY p.ProductID",
				"ORDER BY revenue DESC",
				fmt.Sprintf("LIMIT %d;", limit),
			)
		},
	},
	{
		name: "top_category_by_quantity",
		match: func(q string, _ types.Constraints) bool {
			return (strings.Contains(q, "highest") || strings.Contains(q, "top")) &&
				strings.Contains(q, "category") && strings.Contains(q, "quantity")
		},
		build: func(a *Agent, _ string, c types.Constraints) string {
			return joinSQL(
				"SELECT c.CategoryName AS category,",
				"       SUM(od.Quantity) AS quantity",
				`FROM "Order Details" od`,
				"JOIN Orders o ON o.OrderID = od.OrderID",
				"JOIN Products p ON p.ProductID = od.ProductID",
				"JOIN Categories c ON c.CategoryID = p.CategoryID",
				a.dateWhere(c),
				"GROUP BY c.CategoryID",
				"ORDER BY quantity DESC",
				"LIMIT 1;",
			)
		},
	},
	{
		name: "average_order_value",
		match: func(q string, _ types.Constraints) bool {
			return strings.Contains(q, "aov") || strings.Contains(q, "average order value")
		},
		build: func(a *Agent, _ string, c types.Constraints) string {
			return joinSQL(
				"SELECT SUM(od.UnitPrice * od.Quantity * (1 - od.Discount))",
				"       / COUNT(DISTINCT o.OrderID) AS aov",
				`FROM "Order Details" od`,
				"JOIN Orders o ON o.OrderID = od.OrderID",
				a.dateWhere(c),
				";",
			)
		},
	},
	{
		name: "total_revenue_for_category",
		match: func(q string, c types.Constraints) bool {
			return strings.Contains(q, "total revenue") && c.Category != ""
		},
		build: func(a *Agent, _ string, c types.Constraints) string {
			where := []string{fmt.Sprintf("c.CategoryName = '%s'", escapeLiteral(c.Category))}
			if dr := a.shiftedDateRange(c); dr != nil {
				where = append(where, fmt.Sprintf("DATE(o.OrderDate) BETWEEN '%s' AND '%s'", dr.Start, dr.End))
			}
			return joinSQL(
				"SELECT SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue",
				`FROM "Order Details" od`,
				"JOIN Orders o ON o.OrderID = od.OrderID",
				"JOIN Products p ON p.ProductID = od.ProductID",
				"JOIN Categories c ON c.CategoryID = p.CategoryID",
				"WHERE "+strings.Join(where, " AND ")+";",
			)
		},
	},
	{
		name: "margin_by_customer",
		match: func(q string, _ types.Constraints) bool {
			return strings.Contains(q, "gross margin") ||
				(strings.Contains(q, "margin") && strings.Contains(q, "customer"))
		},
		build: func(a *Agent, _ string, c types.Constraints) string {
			return joinSQL(
				"SELECT c.CompanyName AS customer,",
				"       SUM(od.UnitPrice * 0.3 * od.Quantity * (1 - od.Discount)) AS margin",
				`FROM "Order Details" od`,
				"JOIN Orders o ON o.OrderID = od.OrderID",
				"JOIN Customers c ON c.CustomerID = o.CustomerID",
				a.dateWhere(c),
				"GROUP BY c.CustomerID",
				"ORDER BY margin DESC",
				"LIMIT 1;",
			)
		},
	},
}

// GenerateSQL maps a question plus the current constraint set to a
// parameterized query string. Every date or category filter is
// re-derived from the constraints passed in, so a repaired
// (constraint-dropped) call regenerates a strictly less-filtered
// query. An empty return means no structured answer is needed.
func (a *Agent) GenerateSQL(question string, c types.Constraints) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, rule := range intentRules {
		if rule.match(q, c) {
			return rule.build(a, q, c)
		}
	}
	return ""
}

// dateWhere renders the optional date filter clause from the current
// constraints, with the year offset applied. Empty when no date range
// is set.
func (a *Agent) dateWhere(c types.Constraints) string {
	dr := a.shiftedDateRange(c)
	if dr == nil {
		return ""
	}
	return fmt.Sprintf("WHERE DATE(o.OrderDate) BETWEEN '%s' AND '%s'", dr.Start, dr.End)
}

// escapeLiteral doubles single quotes before a string is interpolated
// into SQL. This is the injection boundary for planner-extracted text.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

var topNPattern = regexp.MustCompile(`top\s+(\d+)`)

// parseTopN extracts the N from "top N ..." phrasing.
func parseTopN(q string) (int, bool) {
	m := topNPattern.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// joinSQL assembles template lines, skipping the blanks optional
// clauses leave behind. A bare ";" terminator attaches to the line
// before it.
func joinSQL(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if l == ";" && len(out) > 0 {
			out[len(out)-1] += ";"
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
