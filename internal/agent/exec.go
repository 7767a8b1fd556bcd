package agent

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"hybridqa/internal/store"
)

// =============================================================================
// EXECUTION + TEXTUAL REPAIR
// =============================================================================

// ExecuteSQL runs the query against the store. Empty query text
// short-circuits to a trivially successful empty result; that is the
// document-only path. On a store-reported failure with repair budget
// remaining, one lightweight textual repair is attempted before the
// constraint-relaxation ladder gets its turn. The possibly-repaired
// query text is returned alongside the result so the trace and the
// citations reflect what actually ran.
func (a *Agent) ExecuteSQL(sqlText string, attempt int) (string, store.Result) {
	if strings.TrimSpace(sqlText) == "" {
		return "", store.Result{Success: true}
	}

	result := a.store.Execute(sqlText)
	if result.Success {
		return sqlText, result
	}
	if attempt >= a.maxRepairs {
		return sqlText, result
	}

	repaired := repairSQLText(sqlText)
	if repaired == sqlText {
		return sqlText, result
	}

	a.logger.Debug("retrying with textually repaired query",
		zap.String("error", result.Error))
	return repaired, a.store.Execute(repaired)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// repairSQLText applies syntax-level fixes that cover the known
// failure shapes: the multi-word "Order Details" entity missing its
// quoting, stray newlines, and a missing statement terminator.
func repairSQLText(sqlText string) string {
	if !strings.Contains(sqlText, `"Order Details"`) {
		sqlText = strings.ReplaceAll(sqlText, "Order Details", `"Order Details"`)
	}
	sqlText = strings.ReplaceAll(sqlText, "\n", " ")
	sqlText = strings.TrimSpace(whitespaceRun.ReplaceAllString(sqlText, " "))
	if !strings.HasSuffix(sqlText, ";") {
		sqlText += ";"
	}
	return sqlText
}
