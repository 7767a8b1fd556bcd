package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybridqa/internal/store"
	"hybridqa/internal/types"
)

func synthAgent() *Agent {
	return &Agent{}
}

func TestSynthesize_IntFromPolicyText(t *testing.T) {
	chunks := []types.Chunk{
		{
			ChunkID: "product_policy.md::chunk_1",
			Content: "General goods: 30 days.\nBeverages: returns accepted within 14 days if unopened.",
		},
	}
	ans := synthAgent().Synthesize("q1",
		"What is the return window for unopened Beverages per policy?",
		"int", "", store.Result{Success: true}, chunks, types.Constraints{})

	// The Beverages line wins over the general one because it matches
	// the question's category hint.
	assert.Equal(t, 14, ans.FinalAnswer)
	assert.Equal(t, 0.85, ans.Confidence)
	assert.Equal(t, []string{"product_policy.md::chunk_1"}, ans.Citations)
}

func TestSynthesize_IntFallsBackToWholeChunk(t *testing.T) {
	chunks := []types.Chunk{
		{ChunkID: "c1", Content: "Standard window is 30 days for everything."},
	}
	ans := synthAgent().Synthesize("q2", "What is the grace period?", "int", "",
		store.Result{Success: true}, chunks, types.Constraints{})

	assert.Equal(t, 30, ans.FinalAnswer)
	assert.Equal(t, 0.85, ans.Confidence)
}

func TestSynthesize_IntFromFirstRowWhenDocsSilent(t *testing.T) {
	res := store.Result{
		Success: true,
		Columns: []string{"n"},
		Rows:    []store.Row{{"n": int64(7)}},
	}
	ans := synthAgent().Synthesize("q3", "How many distinct orders?", "int",
		"SELECT COUNT(*) AS n FROM Orders;", res, nil, types.Constraints{})

	assert.Equal(t, 7, ans.FinalAnswer)
	assert.Equal(t, 0.85, ans.Confidence)
}

func TestSynthesize_IntDefaultsToZero(t *testing.T) {
	ans := synthAgent().Synthesize("q4", "What is the return window?", "int", "",
		store.Result{Success: true}, nil, types.Constraints{})

	assert.Equal(t, 0, ans.FinalAnswer)
	assert.Equal(t, 0.4, ans.Confidence)
}

func TestSynthesize_FloatRoundsToTwoDecimals(t *testing.T) {
	res := store.Result{
		Success: true,
		Columns: []string{"aov"},
		Rows:    []store.Row{{"aov": 1456.78921}},
	}
	ans := synthAgent().Synthesize("q5", "What was the AOV?", "float",
		"SELECT ... AS aov", res, nil, types.Constraints{})

	assert.Equal(t, 1456.79, ans.FinalAnswer)
	assert.Equal(t, 0.9, ans.Confidence)
}

func TestSynthesize_FloatNoRows(t *testing.T) {
	ans := synthAgent().Synthesize("q6", "What was the AOV?", "float", "SELECT 1;",
		store.Result{Success: true, Columns: []string{"aov"}}, nil, types.Constraints{})

	assert.Equal(t, 0.0, ans.FinalAnswer)
	assert.Equal(t, 0.5, ans.Confidence)
}

func TestSynthesize_ListNormalizesRows(t *testing.T) {
	res := store.Result{
		Success: true,
		Columns: []string{"Product", "Revenue"},
		Rows: []store.Row{
			{"Product": "Chai", "Revenue": 1234.5678},
			{"Product": "Chang", "Revenue": int64(900)},
		},
	}
	ans := synthAgent().Synthesize("q7", "top products", "list[{product:str, revenue:float}]",
		"SELECT ...", res, nil, types.Constraints{})

	rows, ok := ans.FinalAnswer.([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, len(res.Rows), "output length equals result row count")
	for _, row := range rows {
		for key := range row {
			assert.Equal(t, strings.ToLower(key), key, "every key is lower-cased")
		}
	}
	assert.Equal(t, 1234.57, rows[0]["revenue"])
	assert.Equal(t, "Chai", rows[0]["product"])
	assert.Equal(t, int64(900), rows[1]["revenue"])
	assert.Equal(t, 0.9, ans.Confidence)
}

func TestSynthesize_ListEmpty(t *testing.T) {
	ans := synthAgent().Synthesize("q8", "top products", "list[str]", "SELECT ...",
		store.Result{Success: true}, nil, types.Constraints{})

	rows, ok := ans.FinalAnswer.([]map[string]any)
	require.True(t, ok)
	assert.Empty(t, rows)
	assert.Equal(t, 0.5, ans.Confidence)
}

func TestSynthesize_ObjectFirstRowOnly(t *testing.T) {
	res := store.Result{
		Success: true,
		Columns: []string{"Customer", "Margin"},
		Rows: []store.Row{
			{"Customer": "QUICK-Stop", "Margin": 3421.90123},
			{"Customer": "Ernst Handel", "Margin": 3000.0},
		},
	}
	ans := synthAgent().Synthesize("q9", "best customer by margin", "{customer:str, margin:float}",
		"SELECT ...", res, nil, types.Constraints{})

	obj, ok := ans.FinalAnswer.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "QUICK-Stop", obj["customer"])
	assert.Equal(t, 3421.9, obj["margin"])
	assert.Equal(t, 0.9, ans.Confidence)
}

func TestSynthesize_ObjectEmpty(t *testing.T) {
	ans := synthAgent().Synthesize("q10", "best customer", "{customer:str}", "SELECT ...",
		store.Result{Success: true}, nil, types.Constraints{})

	assert.Equal(t, map[string]any{}, ans.FinalAnswer)
	assert.Equal(t, 0.5, ans.Confidence)
}

func TestSynthesize_StringDefault(t *testing.T) {
	res := store.Result{
		Success: true,
		Columns: []string{"name"},
		Rows:    []store.Row{{"name": "Chai"}},
	}
	ans := synthAgent().Synthesize("q11", "anything", "str", "SELECT ...", res, nil, types.Constraints{})
	assert.Equal(t, res.Rows[0], ans.FinalAnswer)
	assert.Equal(t, 0.5, ans.Confidence)

	ans = synthAgent().Synthesize("q12", "anything", "str", "", store.Result{Success: true}, nil, types.Constraints{})
	assert.Equal(t, "", ans.FinalAnswer)
}

func TestBuildCitations_TablesThenChunks(t *testing.T) {
	sql := `SELECT ... FROM "Order Details" od
JOIN Orders o ON o.OrderID = od.OrderID
JOIN Products p ON p.ProductID = od.ProductID
JOIN Categories c ON c.CategoryID = p.CategoryID;`
	chunks := []types.Chunk{
		{ChunkID: "b.md::chunk_1"},
		{ChunkID: "a.md::chunk_0"},
	}

	got := buildCitations(sql, chunks)
	assert.Equal(t, []string{
		"Categories", "Order Details", "Orders", "Products", // sorted entities
		"b.md::chunk_1", "a.md::chunk_0", // chunks in retrieval order
	}, got)
}

func TestBuildCitations_EmptySQL(t *testing.T) {
	got := buildCitations("", []types.Chunk{{ChunkID: "a.md::chunk_0"}})
	assert.Equal(t, []string{"a.md::chunk_0"}, got)
}

func TestTablesFromSQL(t *testing.T) {
	assert.Empty(t, tablesFromSQL(""))
	assert.Equal(t, []string{"orders"}, tablesFromSQL("select * from orders"))
	assert.Equal(t,
		[]string{"Order Details", "Orders"},
		tablesFromSQL(`SELECT 1 FROM "Order Details" od JOIN Orders o ON o.OrderID = od.OrderID`))
}
