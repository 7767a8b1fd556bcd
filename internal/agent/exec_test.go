package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hybridqa/internal/store"
)

func TestRepairSQLText(t *testing.T) {
	t.Run("quotes order details", func(t *testing.T) {
		got := repairSQLText("SELECT * FROM Order Details")
		assert.Equal(t, `SELECT * FROM "Order Details";`, got)
	})

	t.Run("leaves quoted name alone", func(t *testing.T) {
		got := repairSQLText(`SELECT * FROM "Order Details";`)
		assert.Equal(t, `SELECT * FROM "Order Details";`, got)
	})

	t.Run("collapses whitespace and terminates", func(t *testing.T) {
		got := repairSQLText("SELECT 1\n   FROM   Orders")
		assert.Equal(t, "SELECT 1 FROM Orders;", got)
	})
}

// syntaxStore fails any query with an unquoted multi-word entity and
// succeeds otherwise.
type syntaxStore struct {
	calls []string
}

func (s *syntaxStore) ListTables() ([]string, error)             { return nil, nil }
func (s *syntaxStore) TableSchema(string) ([]store.Column, error) { return nil, nil }

func (s *syntaxStore) Execute(q string) store.Result {
	s.calls = append(s.calls, q)
	if strings.Contains(q, "Order Details") && !strings.Contains(q, `"Order Details"`) {
		return store.Result{Success: false, Error: `near "Details": syntax error`}
	}
	return store.Result{Success: true, Columns: []string{"n"}, Rows: []store.Row{{"n": int64(1)}}}
}

func TestExecuteSQL_TextualRepairRunsExactlyOnce(t *testing.T) {
	st := &syntaxStore{}
	a := &Agent{store: st, logger: zap.NewNop(), maxRepairs: 2}

	sql, res := a.ExecuteSQL("SELECT COUNT(*) FROM Order Details", 0)

	require.Len(t, st.calls, 2, "one failing execution, one repaired re-execution")
	assert.True(t, res.Success)
	assert.Equal(t, `SELECT COUNT(*) FROM "Order Details";`, sql)
}

func TestExecuteSQL_NoTextualRepairPastBudget(t *testing.T) {
	st := &syntaxStore{}
	a := &Agent{store: st, logger: zap.NewNop(), maxRepairs: 2}

	sql, res := a.ExecuteSQL("SELECT COUNT(*) FROM Order Details", 2)

	require.Len(t, st.calls, 1)
	assert.False(t, res.Success)
	assert.Equal(t, "SELECT COUNT(*) FROM Order Details", sql)
}

func TestExecuteSQL_EmptyQueryShortCircuits(t *testing.T) {
	st := &syntaxStore{}
	a := &Agent{store: st, logger: zap.NewNop(), maxRepairs: 2}

	sql, res := a.ExecuteSQL("   ", 0)

	assert.Empty(t, st.calls)
	assert.Empty(t, sql)
	assert.True(t, res.Success)
	assert.Empty(t, res.Rows)
}

func TestExecuteSQL_NoRetryWhenRepairChangesNothing(t *testing.T) {
	// A failure on an already-clean query has nothing for the textual
	// repair to fix, so the original result is returned unchanged.
	failing := &scriptedStore{result: store.Result{Success: false, Error: "no such table: Foo"}}
	a := &Agent{store: failing, logger: zap.NewNop(), maxRepairs: 2}

	sql, res := a.ExecuteSQL("SELECT * FROM Foo;", 0)

	assert.Equal(t, 1, failing.calls)
	assert.False(t, res.Success)
	assert.Equal(t, "SELECT * FROM Foo;", sql)
}

type scriptedStore struct {
	result store.Result
	calls  int
}

func (s *scriptedStore) ListTables() ([]string, error)             { return nil, nil }
func (s *scriptedStore) TableSchema(string) ([]store.Column, error) { return nil, nil }
func (s *scriptedStore) Execute(string) store.Result {
	s.calls++
	return s.result
}
